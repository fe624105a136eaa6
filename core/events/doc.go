// Package events defines the scheduling related events emitted on the event bus.
//
// Available event types:
//   - CycleCompleted: a scheduling cycle finished (successfully or not)
//   - CommandExecuted: an actuation command went through the guard and the actuator
//   - SoCUpdated: telemetry accepted a new state of charge sample
package events
