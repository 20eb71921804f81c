// Package core implements the cage lifecycle state machine and the lineage
// graph queries on top of a domain.PersistentStore.
package core

import (
	blobcore "cagecore/internal/blob/core"
	"cagecore/internal/infra/persistence/memory"
	"cagecore/pkg/domain"
	"context"
	"time"
)

const (
	// DefaultMaxAncestorHops bounds the parent walk of FindAncestors.
	DefaultMaxAncestorHops = 20
	// DefaultMaxDescendantDepth bounds the child scan of BuildDescendantTree.
	DefaultMaxDescendantDepth = 10
	// DefaultPurgeConcurrency bounds parallel blob deletes after a cage delete.
	DefaultPurgeConcurrency = 4
)

// Logger is the structured logger the service reports through. Arguments are
// alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for activity and audit entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// AuditStatus is the outcome recorded for a lifecycle operation.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one attempted lifecycle transition.
type AuditEntry struct {
	Operation string
	CageID    string
	ActorID   string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives an entry for every lifecycle transition attempt.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes the outcome and latency of every service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraversalObserver is optionally implemented by a MetricsRecorder to count
// lineage traversals cut short by a hop or depth bound.
type TraversalObserver interface {
	TraversalTruncated(ctx context.Context, operation string)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan is ended once per operation with its final error.
type TraceSpan interface {
	End(err error)
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

func (noopSpan) End(error) {}

type serviceOptions struct {
	logger             Logger
	clock              Clock
	audit              AuditRecorder
	metrics            MetricsRecorder
	tracer             Tracer
	blobs              blobcore.Store
	purgeConcurrency   int
	maxAncestorHops    int
	maxDescendantDepth int
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:             noopLogger{},
		clock:              ClockFunc(func() time.Time { return time.Now().UTC() }),
		audit:              noopAuditRecorder{},
		metrics:            noopMetricsRecorder{},
		tracer:             noopTracer{},
		purgeConcurrency:   DefaultPurgeConcurrency,
		maxAncestorHops:    DefaultMaxAncestorHops,
		maxDescendantDepth: DefaultMaxDescendantDepth,
	}
}

// ServiceOption customises a Service.
type ServiceOption func(*serviceOptions)

// WithLogger sets the service logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithAuditRecorder sets the recorder for lifecycle audit entries.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithBlobStore enables purging of cage file attachments after a permanent
// delete. concurrency <= 0 keeps the default.
func WithBlobStore(store blobcore.Store, concurrency int) ServiceOption {
	return func(o *serviceOptions) {
		o.blobs = store
		if concurrency > 0 {
			o.purgeConcurrency = concurrency
		}
	}
}

// WithLineageLimits overrides the default ancestor hop bound and descendant
// depth cap. Non-positive hops and negative depth keep the defaults.
func WithLineageLimits(maxAncestorHops, maxDescendantDepth int) ServiceOption {
	return func(o *serviceOptions) {
		if maxAncestorHops > 0 {
			o.maxAncestorHops = maxAncestorHops
		}
		if maxDescendantDepth >= 0 {
			o.maxDescendantDepth = maxDescendantDepth
		}
	}
}

// Service is the facade over cage lineage queries and lifecycle transitions.
type Service struct {
	store domain.PersistentStore
	serviceOptions
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{store: store, serviceOptions: o}
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// observe wraps an operation with tracing and metrics.
func (s *Service) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, s.clock.Now().Sub(start))
	return err
}

func (s *Service) noteTruncated(ctx context.Context, op, cageID string) {
	s.logger.Debug("lineage traversal bounded", "op", op, "cage_id", cageID)
	if obs, ok := s.metrics.(TraversalObserver); ok {
		obs.TraversalTruncated(ctx, op)
	}
}

// storageFailure logs the hidden cause and returns the generic persistence error.
func (s *Service) storageFailure(op, cageID string, err error) error {
	s.logger.Error("cage operation failed", "op", op, "cage_id", cageID, "error", err)
	return domain.NewOperationError(op, cageID, domain.ErrPersistence, "the operation could not be completed")
}

// classify passes caller-facing errors through and hides everything else.
func (s *Service) classify(op, cageID string, err error) error {
	if err == nil {
		return nil
	}
	if domain.Classified(err) {
		return err
	}
	return s.storageFailure(op, cageID, err)
}
