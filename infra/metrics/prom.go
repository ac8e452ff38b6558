package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/Santonastaso/scheduler-demo-sub000/core/metrics"
)

// PromSink records scheduling events in Prometheus metrics.
type PromSink struct {
	placements   *prometheus.CounterVec
	shunts       *prometheus.CounterVec
	availability *prometheus.CounterVec
}

// NewPromSink registers scheduling metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	placements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_placement_events_total",
		Help: "Total number of placement events per machine",
	}, []string{"machine_id", "operation", "outcome"})
	shunts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_shunt_events_total",
		Help: "Total number of shunt resolutions per machine",
	}, []string{"machine_id", "direction", "outcome"})
	avail := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_availability_changes_total",
		Help: "Availability mutations, including guarded rejections",
	}, []string{"machine_id", "blocked"})

	if err := reg.Register(placements); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			placements = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(shunts); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			shunts = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(avail); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			avail = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{placements: placements, shunts: shunts, availability: avail}, nil
}

// RecordPlacement increments the counter for each placement record.
func (s *PromSink) RecordPlacement(recs []coremetrics.PlacementRecord) error {
	for _, r := range recs {
		s.placements.WithLabelValues(r.MachineID, r.Operation, r.Outcome).Inc()
	}
	return nil
}

// RecordShunt increments the shunt counter.
func (s *PromSink) RecordShunt(rec coremetrics.ShuntRecord) error {
	s.shunts.WithLabelValues(rec.MachineID, rec.Direction, rec.Outcome).Inc()
	return nil
}

// RecordAvailabilityChange counts availability mutations.
func (s *PromSink) RecordAvailabilityChange(ev coremetrics.AvailabilityChange) error {
	s.availability.WithLabelValues(ev.MachineID, strconv.FormatBool(ev.Blocked)).Inc()
	return nil
}
