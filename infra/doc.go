// Package infra groups the adapters of the scheduler: the MQTT client and
// actuator, telemetry ingestion, metrics sinks, Sentry monitoring, the
// zerolog logger and the LP solver. They implement interfaces declared in
// core and are wired together by app.
package infra
