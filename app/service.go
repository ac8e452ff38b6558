// Package app wires the configuration into a running scheduler service:
// persistence, availability guard, placement engine, conflict resolver,
// metrics sinks and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apischeduling "github.com/Santonastaso/scheduler-demo-sub000/api/scheduling"
	"github.com/Santonastaso/scheduler-demo-sub000/config"
	"github.com/Santonastaso/scheduler-demo-sub000/core/availability"
	coremetrics "github.com/Santonastaso/scheduler-demo-sub000/core/metrics"
	"github.com/Santonastaso/scheduler-demo-sub000/core/scheduling"
	"github.com/Santonastaso/scheduler-demo-sub000/core/scheduling/logging"
	"github.com/Santonastaso/scheduler-demo-sub000/core/store"
	"github.com/Santonastaso/scheduler-demo-sub000/infra/logger"
	"github.com/Santonastaso/scheduler-demo-sub000/infra/metrics"
	infrastore "github.com/Santonastaso/scheduler-demo-sub000/infra/store"
	"github.com/Santonastaso/scheduler-demo-sub000/internal/eventbus"
	"github.com/Santonastaso/scheduler-demo-sub000/internal/lockmap"
)

// Service orchestrates the scheduling engine and its HTTP surface.
type Service struct {
	Engine       *scheduling.Engine
	Resolver     *scheduling.ConflictResolver
	Availability *availability.Service
	Store        store.Store

	bus         eventbus.EventBus
	log         logger.Logger
	apiAddr     string
	logsToken   string
	logStore    logging.LogStore
	promEnabled bool
	promPort    string
	closers     []func() error
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	svc := &Service{
		log:         logg,
		apiAddr:     cfg.API.Addr,
		logsToken:   cfg.API.LogsToken,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}

	var st store.Store
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := infrastore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		svc.closers = append(svc.closers, s.Close)
		st = s
	default:
		st = store.NewMemoryStore()
	}
	svc.Store = st

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	svc.bus = bus

	locks := lockmap.New()
	lockWait := time.Duration(cfg.Scheduling.LockWaitSeconds) * time.Second
	avail := availability.NewService(st, locks, lockWait, sink, bus, logger.New("availability"))
	svc.Availability = avail

	engine, err := scheduling.NewEngine(cfg.Scheduling, st, avail, locks, sink, bus, logger.New("engine"))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	svc.Engine = engine

	logStore, err := newLogStore(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("log store: %w", err)
	}
	engine.SetLogStore(logStore)
	svc.logStore = logStore

	resolver, err := scheduling.NewConflictResolver(engine, logger.New("resolver"))
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	svc.Resolver = resolver

	return svc, nil
}

func newLogStore(cfg config.LoggingConfig) (logging.LogStore, error) {
	switch cfg.Backend {
	case "sqlite":
		return logging.NewSQLiteStore(cfg.Path)
	default:
		if cfg.MaxSizeMB > 0 {
			return logging.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return logging.NewJSONLStore(cfg.Path)
	}
}

// Run starts the HTTP servers and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	handler := apischeduling.NewHandler(s.Engine, s.Resolver, s.Availability, s.Store, s.log)
	mux.Handle("/api/scheduling/", handler)
	mux.Handle("/api/scheduling/logs", apischeduling.NewLogHandler(s.logStore, s.logsToken))

	srv := &http.Server{Addr: s.apiAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
	}()

	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	s.log.Infof("scheduling api listening on %s", s.apiAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.Engine.Close()
	for _, c := range s.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
