package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/ess-scheduler/core/metrics"
	"github.com/kilianp07/ess-scheduler/infra/logger"
)

// InfluxSink writes scheduling events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCycle writes one ess_cycle point.
func (s *InfluxSink) RecordCycle(ev coremetrics.CycleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("ess_cycle").
		AddTag("system", ev.System).
		AddTag("method", ev.Method).
		AddTag("cycle_id", ev.CycleID).
		AddField("status", ev.Status).
		AddField("objective", round3(ev.Objective)).
		AddField("peak_kw", round3(ev.Peak)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("skipped", ev.Skipped)
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSetpoints writes one ess_setpoint point per storage and hour.
func (s *InfluxSink) RecordSetpoints(evs []coremetrics.SetpointEvent) error {
	if len(evs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(evs))
	for _, e := range evs {
		points = append(points, write.NewPointWithMeasurement("ess_setpoint").
			AddTag("storage", string(e.Storage)).
			AddTag("cycle_id", e.CycleID).
			AddField("setpoint_kw", round3(e.Setpoint)).
			AddField("soc", round3(e.SoC)).
			SetTime(e.Hour))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordCommand writes one ess_command point.
func (s *InfluxSink) RecordCommand(ev coremetrics.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("ess_command").
		AddTag("storage", string(ev.Storage)).
		AddTag("operation", ev.Operation.String()).
		AddTag("command_id", ev.CommandID).
		AddField("setpoint_kw", round3(ev.Setpoint)).
		AddField("suppressed", ev.Suppressed).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000))
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	}
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSoC writes one ess_soc point.
func (s *InfluxSink) RecordSoC(ev coremetrics.SoCEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("ess_soc").
		AddTag("storage", string(ev.Storage)).
		AddField("soc", round3(ev.SoC)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close flushes and closes the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
