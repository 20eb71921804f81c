package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"cagecore/internal/blob"
	"cagecore/internal/config"
	"cagecore/internal/core"
	"cagecore/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
)

// app holds the wiring shared by every subcommand.
type app struct {
	out      io.Writer
	errOut   io.Writer
	envFiles []string
	jsonOut  bool

	cfg       config.Config
	logger    *logging.Logger
	registry  *prometheus.Registry
	expvarRec *core.ExpvarMetricsRecorder
	traceFile *os.File
	svc       *core.Service
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, envFiles: []string{".env"}}
}

// open loads configuration and builds the service. It runs before every
// subcommand.
func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return err
	}
	logger, err := logging.New(a.errOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	store, err := core.OpenPersistentStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("open blob store: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	obs, err := a.observability()
	if err != nil {
		_ = store.Close()
		a.closeTrace()
		return err
	}
	opts := append([]core.ServiceOption{
		core.WithLogger(logger.With("component", "cagecore")),
		core.WithAuditRecorder(auditLogger{logger: logger}),
		core.WithBlobStore(blobs, cfg.Blob.PurgeConcurrency),
		core.WithLineageLimits(cfg.Lineage.MaxAncestorHops, cfg.Lineage.MaxDescendantDepth),
	}, obs...)
	a.svc = core.NewService(store, opts...)
	logger.Debug("cagectl ready", "storage", cfg.Storage.Driver, "blob", cfg.Blob.Driver,
		"metrics", cfg.Metrics.Driver, "trace", cfg.Trace.Output)
	return nil
}

// observability builds the metrics recorder and tracer selected by config.
func (a *app) observability() ([]core.ServiceOption, error) {
	var opts []core.ServiceOption
	switch a.cfg.Metrics.Driver {
	case "prometheus":
		registry := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(registry)
		if err != nil {
			return nil, err
		}
		a.registry = registry
		opts = append(opts, core.WithMetricsRecorder(rec))
	case "expvar":
		rec, err := core.NewExpvarMetricsRecorder(a.cfg.Metrics.ExpvarName)
		if err != nil {
			return nil, err
		}
		a.expvarRec = rec
		opts = append(opts, core.WithMetricsRecorder(rec))
	}

	var w io.Writer
	switch a.cfg.Trace.Output {
	case "none":
	case "stderr":
		w = a.errOut
	default:
		f, err := os.OpenFile(a.cfg.Trace.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace output: %w", err)
		}
		a.traceFile = f
		w = f
	}
	if w != nil {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(w, a.cfg.Trace.Retain)))
	}
	return opts, nil
}

func (a *app) closeTrace() {
	if a.traceFile != nil {
		_ = a.traceFile.Close()
		a.traceFile = nil
	}
}

func (a *app) close() error {
	defer a.closeTrace()
	if a.svc == nil {
		return nil
	}
	err := a.svc.Close()
	a.svc = nil
	return err
}

// auditLogger writes lifecycle audit entries to the process log.
type auditLogger struct {
	logger *logging.Logger
}

func (l auditLogger) Record(_ context.Context, e core.AuditEntry) {
	args := []any{"op", e.Operation, "cage_id", e.CageID, "actor", e.ActorID, "status", string(e.Status), "duration", e.Duration}
	if e.Error != "" {
		args = append(args, "error", e.Error)
	}
	l.logger.Info("audit", args...)
}
