package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCycle forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordCycle(ev CycleEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordCycle(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSetpoints forwards setpoints to sinks supporting them.
func (m *MultiSink) RecordSetpoints(evs []SetpointEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SetpointRecorder); ok {
			if err := rec.RecordSetpoints(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCommand forwards command events.
func (m *MultiSink) RecordCommand(ev CommandEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CommandRecorder); ok {
			if err := rec.RecordCommand(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSoC forwards state of charge samples.
func (m *MultiSink) RecordSoC(ev SoCEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SoCRecorder); ok {
			if err := rec.RecordSoC(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
