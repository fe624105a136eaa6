package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/ess-scheduler/config"
	"github.com/kilianp07/ess-scheduler/core/events"
	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/scheduler"
	"github.com/kilianp07/ess-scheduler/infra/logger"
	infmqtt "github.com/kilianp07/ess-scheduler/infra/mqtt"
	"github.com/kilianp07/ess-scheduler/internal/eventbus"
)

var (
	messagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ess_telemetry_messages_total",
		Help: "Telemetry messages received per topic",
	}, []string{"topic"})
	samplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ess_telemetry_samples_total",
		Help: "Telemetry values per point and outcome",
	}, []string{"point", "outcome"})
	lastSample = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ess_telemetry_last_sample_timestamp_seconds",
		Help: "Unix timestamp of the last accepted value per point",
	}, []string{"point"})
)

func init() {
	prometheus.MustRegister(messagesTotal, samplesTotal, lastSample)
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

var newSubscriber = func(opts *paho.ClientOptions) (subscriber, error) {
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}

// route lists the points read from the messages of one topic.
type route struct {
	topic  string
	soc    map[string]model.StorageKind
	fields map[string]model.ForecastField
}

// Manager feeds the state store from telemetry published on MQTT.
type Manager struct {
	cli    subscriber
	qos    byte
	routes []*route
	state  *scheduler.StateStore
	bus    eventbus.EventBus
	log    logger.Logger
	now    func() time.Time
}

// NewManager connects to MQTT and prepares the subscriptions. Forecast
// topics are subscribed only when streamForecasts is set. Accepted SoC
// samples are published on bus, which may be nil.
func NewManager(mqttCfg infmqtt.Config, cfg config.TelemetryConfig, system model.SystemKind, streamForecasts bool, state *scheduler.StateStore, bus eventbus.EventBus) (*Manager, error) {
	if state == nil {
		return nil, fmt.Errorf("telemetry: nil state store")
	}
	mqttCfg.SetDefaults()
	opts, err := infmqtt.NewClientOptions(mqttCfg)
	if err != nil {
		return nil, err
	}
	id := mqttCfg.ClientID
	if id != "" {
		id += "-telemetry"
	} else {
		id = "telemetry-" + uuid.NewString()
	}
	opts.SetClientID(id)
	cli, err := newSubscriber(opts)
	if err != nil {
		return nil, err
	}
	m := newManager(cli, cfg, system, streamForecasts, state, bus)
	return m, nil
}

func newManager(cli subscriber, cfg config.TelemetryConfig, system model.SystemKind, streamForecasts bool, state *scheduler.StateStore, bus eventbus.EventBus) *Manager {
	cfg.SetDefaults()
	m := &Manager{
		cli:   cli,
		qos:   cfg.QoS,
		state: state,
		bus:   bus,
		log:   logger.New("telemetry"),
		now:   time.Now,
	}
	for _, src := range cfg.SoCSources(system) {
		m.route(src.Topic).soc[src.Point] = src.Kind
	}
	if streamForecasts {
		for _, src := range cfg.ForecastSources() {
			m.route(src.Topic).fields[src.Point] = src.Field
		}
	}
	return m
}

func (m *Manager) route(topic string) *route {
	for _, r := range m.routes {
		if r.topic == topic {
			return r
		}
	}
	r := &route{topic: topic, soc: map[string]model.StorageKind{}, fields: map[string]model.ForecastField{}}
	m.routes = append(m.routes, r)
	return r
}

// Topics returns the subscribed topics in subscription order.
func (m *Manager) Topics() []string {
	out := make([]string, len(m.routes))
	for i, r := range m.routes {
		out[i] = r.topic
	}
	return out
}

// Subscribe registers a handler for every topic.
func (m *Manager) Subscribe() error {
	for _, r := range m.routes {
		r := r
		handler := func(_ paho.Client, msg paho.Message) {
			if err := m.process(r, msg.Payload()); err != nil {
				m.log.Warnf("telemetry on %s: %v", msg.Topic(), err)
			}
		}
		if token := m.cli.Subscribe(r.topic, m.qos, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", r.topic, token.Error())
		}
		m.log.Infof("subscribed to %s", r.topic)
	}
	return nil
}

// Start subscribes and blocks until ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.Subscribe(); err != nil {
		return err
	}
	<-ctx.Done()
	if m.cli.IsConnected() {
		m.cli.Disconnect(250)
	}
	return nil
}

// decode accepts a JSON object or an array whose first element is an object.
func decode(payload []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err == nil {
		return obj, nil
	}
	var arr []map[string]any
	if err := json.Unmarshal(payload, &arr); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("empty payload array")
	}
	return arr[0], nil
}

func number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		p, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (m *Manager) timestamp(msg map[string]any) time.Time {
	if s, ok := msg["timestamp"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts
		}
		m.log.Warnf("invalid timestamp %q, using receive time", s)
	}
	return m.now()
}

func (m *Manager) process(r *route, payload []byte) error {
	messagesTotal.WithLabelValues(r.topic).Inc()
	msg, err := decode(payload)
	if err != nil {
		return err
	}
	at := m.timestamp(msg)
	found := false
	for point, kind := range r.soc {
		raw, ok := msg[point]
		if !ok {
			continue
		}
		found = true
		v, ok := number(raw)
		if !ok {
			samplesTotal.WithLabelValues(point, "invalid").Inc()
			continue
		}
		m.acceptSoC(point, model.SoCSample{Kind: kind, SoC: v, At: at})
	}
	for point, field := range r.fields {
		raw, ok := msg[point]
		if !ok {
			continue
		}
		found = true
		v, ok := number(raw)
		if !ok {
			samplesTotal.WithLabelValues(point, "invalid").Inc()
			continue
		}
		m.state.PushForecast(field, v)
		samplesTotal.WithLabelValues(point, "accepted").Inc()
		lastSample.WithLabelValues(point).Set(float64(at.Unix()))
	}
	if !found {
		m.log.Debugw("no known point in message", map[string]any{"topic": r.topic})
	}
	return nil
}

func (m *Manager) acceptSoC(point string, sample model.SoCSample) {
	if !m.state.UpdateSoC(sample) {
		samplesTotal.WithLabelValues(point, "stale").Inc()
		return
	}
	samplesTotal.WithLabelValues(point, "accepted").Inc()
	lastSample.WithLabelValues(point).Set(float64(sample.At.Unix()))
	m.log.Debugw("soc updated", map[string]any{"storage": string(sample.Kind), "soc": sample.SoC})
	if m.bus != nil {
		m.bus.Publish(events.SoCUpdated{Sample: sample})
	}
}
