package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
	coremqtt "github.com/kilianp07/ess-scheduler/core/mqtt"
)

// MockClient is an in-memory Client and Publisher used in tests and dry runs.
type MockClient struct {
	Commands  []model.ActuationCommand
	Published map[string][]any
	// FailKinds makes SendCommand fail for the listed storage kinds.
	FailKinds map[model.StorageKind]bool
	// NoAck lists command ids that never get acknowledged.
	NoAck map[string]bool
	mu    sync.Mutex
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		Published: make(map[string][]any),
		FailKinds: make(map[model.StorageKind]bool),
		NoAck:     make(map[string]bool),
	}
}

// SendCommand records the command or returns an error if configured to fail.
func (m *MockClient) SendCommand(cmd model.ActuationCommand) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailKinds[cmd.Storage] {
		return "", fmt.Errorf("publish failed")
	}
	m.Commands = append(m.Commands, cmd)
	return cmd.ID, nil
}

// WaitForAck simulates an immediate acknowledgment.
func (m *MockClient) WaitForAck(commandID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Commands {
		if c.ID != commandID {
			continue
		}
		if m.NoAck[commandID] {
			return false, coremqtt.ErrAckTimeout
		}
		return true, nil
	}
	return false, coremqtt.ErrUnknownCommand
}

// Publish records the payload.
func (m *MockClient) Publish(topic string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published[topic] = append(m.Published[topic], payload)
	return nil
}

// Sent returns a copy of the recorded commands.
func (m *MockClient) Sent() []model.ActuationCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ActuationCommand(nil), m.Commands...)
}
