package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
	coremqtt "github.com/kilianp07/ess-scheduler/core/mqtt"
)

// Actuator sends commands over MQTT and optionally waits for the
// actuator acknowledgment.
type Actuator struct {
	client     coremqtt.Client
	ackTimeout time.Duration
}

// NewActuator wraps client. A zero ackTimeout disables acknowledgment waits.
func NewActuator(client coremqtt.Client, ackTimeout time.Duration) *Actuator {
	return &Actuator{client: client, ackTimeout: ackTimeout}
}

// Actuate sends cmd and waits for its acknowledgment when configured.
func (a *Actuator) Actuate(ctx context.Context, cmd model.ActuationCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := a.client.SendCommand(cmd)
	if err != nil {
		return fmt.Errorf("send %s command: %w", cmd.Storage, err)
	}
	if a.ackTimeout <= 0 {
		return nil
	}
	ok, err := a.client.WaitForAck(id, a.ackTimeout)
	if err != nil {
		return fmt.Errorf("command %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("command %s: %w", id, coremqtt.ErrAckTimeout)
	}
	return nil
}
