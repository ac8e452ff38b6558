package metrics

import coremetrics "github.com/Santonastaso/scheduler-demo-sub000/core/metrics"

// MultiSink fans scheduling records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlacement forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordPlacement(recs []coremetrics.PlacementRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlacement(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordShunt forwards shunt events to sinks that support them.
func (m *MultiSink) RecordShunt(rec coremetrics.ShuntRecord) error {
	for _, s := range m.Sinks {
		if sr, ok := s.(coremetrics.ShuntRecorder); ok {
			if err := sr.RecordShunt(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAvailabilityChange forwards availability mutations to sinks that
// support them.
func (m *MultiSink) RecordAvailabilityChange(ev coremetrics.AvailabilityChange) error {
	for _, s := range m.Sinks {
		if ar, ok := s.(coremetrics.AvailabilityRecorder); ok {
			if err := ar.RecordAvailabilityChange(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
