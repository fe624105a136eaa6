package actuation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/ess-scheduler/core/guard"
	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/infra/logger"
	"github.com/kilianp07/ess-scheduler/infra/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type fakeActuator struct {
	mu    sync.Mutex
	fails int
	sent  []model.ActuationCommand
	calls int
}

func (f *fakeActuator) Actuate(_ context.Context, cmd model.ActuationCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return errors.New("broker unavailable")
	}
	f.sent = append(f.sent, cmd)
	return nil
}

type fakeStatus struct{ ops []model.Operation }

func (f *fakeStatus) PublishOperation(_ context.Context, _ model.StorageKind, op model.Operation) error {
	f.ops = append(f.ops, op)
	return nil
}

type fixedState map[model.StorageKind]model.StorageState

func (f fixedState) StorageState(kind model.StorageKind) model.StorageState { return f[kind] }

func freshStates() fixedState {
	return fixedState{
		model.StorageBattery: {Kind: model.StorageBattery, SoC: 50, MinSoC: 20, MaxSoC: 80, UpdatedAt: now},
		model.StorageThermal: {Kind: model.StorageThermal, SoC: 40, MinSoC: 10, MaxSoC: 90, UpdatedAt: now},
	}
}

func newExecutor(act Actuator, st StateReader, status StatusPublisher, attempts int) *Executor {
	r := retry.New(retry.Config{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}, nil)
	e := NewExecutor(guard.New(guard.Config{}), act, status, st, r, logger.NopLogger{})
	e.now = func() time.Time { return now }
	return e
}

func TestExecuteApproved(t *testing.T) {
	act := &fakeActuator{fails: 2}
	status := &fakeStatus{}
	e := newExecutor(act, freshStates(), status, 10)
	cmd := model.NewCommand(model.StorageBattery, -20, now, 0)
	out := e.Execute(context.Background(), cmd)
	require.NoError(t, out.Err)
	assert.Equal(t, guard.Approved, out.Decision.Verdict)
	require.Len(t, act.sent, 1)
	assert.Equal(t, -20.0, act.sent[0].Setpoint)
	assert.Equal(t, 3, act.calls)
	assert.Equal(t, []model.Operation{model.OperationCharge}, status.ops)
	assert.Nil(t, out.FollowUp)
}

func TestExecuteSuppressedSendsNeutral(t *testing.T) {
	act := &fakeActuator{}
	st := freshStates()
	b := st[model.StorageBattery]
	b.SoC = 79.5
	st[model.StorageBattery] = b
	e := newExecutor(act, st, nil, 3)
	out := e.Execute(context.Background(), model.NewCommand(model.StorageBattery, -20, now, 0))
	require.NoError(t, out.Err)
	assert.Equal(t, guard.Suppressed, out.Decision.Verdict)
	require.Len(t, act.sent, 1)
	assert.Equal(t, model.OperationOff, act.sent[0].Operation())
}

func TestExecuteRetriesExhausted(t *testing.T) {
	act := &fakeActuator{fails: 100}
	e := newExecutor(act, freshStates(), nil, 4)
	out := e.Execute(context.Background(), model.NewCommand(model.StorageBattery, 5, now, 0))
	assert.ErrorIs(t, out.Err, model.ErrActuation)
	assert.Equal(t, 4, act.calls)
	assert.Empty(t, act.sent)
}

func TestExecuteThermalChargeFollowUp(t *testing.T) {
	act := &fakeActuator{}
	e := newExecutor(act, freshStates(), nil, 3)
	out := e.Execute(context.Background(), model.NewCommand(model.StorageThermal, -20, now, 2))
	require.NoError(t, out.Err)
	require.NotNil(t, out.FollowUp)
	assert.Equal(t, model.OperationCooling, out.FollowUp.Operation())
	assert.Equal(t, now.Add(2000*time.Second), out.FollowUp.At)
	assert.Equal(t, 2, out.FollowUp.Hour)
}

func TestChargeFollowUpDelay(t *testing.T) {
	d, ok := ChargeFollowUpDelay(-4)
	assert.True(t, ok)
	assert.Equal(t, 800*time.Second, d, "short charges run at least 800 s")

	d, ok = ChargeFollowUpDelay(-20)
	assert.True(t, ok)
	assert.Equal(t, 2000*time.Second, d)

	_, ok = ChargeFollowUpDelay(-32)
	assert.False(t, ok, "long charges run until the next command")
}
