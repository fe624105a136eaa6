package mqtt

import (
	"context"
	"fmt"

	"github.com/kilianp07/ess-scheduler/core/model"
	coremqtt "github.com/kilianp07/ess-scheduler/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// ScheduleTopic returns the topic schedules and operation statuses are
// published on.
func ScheduleTopic(campus, building, device string) string {
	return fmt.Sprintf("record/%s/%s/%s/schedule", campus, building, device)
}

// SchedulePublisher publishes cycle schedules and storage operations.
type SchedulePublisher struct {
	pub   coremqtt.Publisher
	topic string
}

// NewSchedulePublisher publishes on topic through pub.
func NewSchedulePublisher(pub coremqtt.Publisher, topic string) *SchedulePublisher {
	return &SchedulePublisher{pub: pub, topic: topic}
}

// Topic returns the publish topic.
func (p *SchedulePublisher) Topic() string { return p.topic }

// PublishSchedule publishes the schedule keyed by hour.
func (p *SchedulePublisher) PublishSchedule(ctx context.Context, s model.Schedule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.pub.Publish(p.topic, s)
}

// PublishOperation publishes {"<kind>_operation": code}.
func (p *SchedulePublisher) PublishOperation(ctx context.Context, kind model.StorageKind, op model.Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.pub.Publish(p.topic, map[string]int{string(kind) + "_operation": int(op)})
}
