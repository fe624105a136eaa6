package mqtt

import (
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
)

// Client represents an MQTT client capable of sending storage commands and
// waiting for acknowledgments from the actuators.
type Client interface {
	// SendCommand publishes the command on the topic of its storage kind and
	// returns the identifier used to track the acknowledgment.
	SendCommand(cmd model.ActuationCommand) (commandID string, err error)

	// WaitForAck waits for an acknowledgment for the provided command
	// identifier or until the timeout expires.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}

// Publisher publishes JSON encoded payloads.
type Publisher interface {
	Publish(topic string, payload any) error
}
