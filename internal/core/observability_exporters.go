package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// OperationStats aggregates the outcomes of one service operation.
type OperationStats struct {
	Calls     int64   `json:"calls"`
	Errors    int64   `json:"errors"`
	TotalMS   float64 `json:"total_ms"`
	MaxMS     float64 `json:"max_ms"`
	Truncated int64   `json:"truncated"`
}

// ExpvarMetrics is the document published under the recorder's expvar name.
type ExpvarMetrics struct {
	Operations map[string]OperationStats `json:"operations"`
	RecordedAt time.Time                 `json:"recorded_at"`
}

// ExpvarMetricsRecorder keeps per-operation counters in process and publishes
// them through expvar. cagectl selects it with COLONYCORE_METRICS_DRIVER=expvar
// and serves it on /debug/vars.
type ExpvarMetricsRecorder struct {
	name string
	now  func() time.Time

	mu  sync.Mutex
	ops map[string]*OperationStats
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated cagecore_metrics_<n> name when name is empty. expvar names are
// process global, so reusing one is an error.
func NewExpvarMetricsRecorder(name string) (*ExpvarMetricsRecorder, error) {
	if name == "" {
		name = fmt.Sprintf("cagecore_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	if expvar.Get(name) != nil {
		return nil, fmt.Errorf("expvar %q already published", name)
	}
	rec := &ExpvarMetricsRecorder{
		name: name,
		now:  func() time.Time { return time.Now().UTC() },
		ops:  make(map[string]*OperationStats),
	}
	expvar.Publish(name, expvar.Func(func() any { return rec.Metrics() }))
	return rec, nil
}

// Name returns the expvar key.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Metrics copies the current counters.
func (r *ExpvarMetricsRecorder) Metrics() ExpvarMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make(map[string]OperationStats, len(r.ops))
	for op, st := range r.ops {
		ops[op] = *st
	}
	return ExpvarMetrics{Operations: ops, RecordedAt: r.now()}
}

func (r *ExpvarMetricsRecorder) stats(op string) *OperationStats {
	st, ok := r.ops[op]
	if !ok {
		st = &OperationStats{}
		r.ops[op] = st
	}
	return st
}

// Observe implements MetricsRecorder. Unnamed operations are dropped.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.stats(operation)
	st.Calls++
	if !success {
		st.Errors++
	}
	st.TotalMS += ms
	if ms > st.MaxMS {
		st.MaxMS = ms
	}
}

// TraversalTruncated implements TraversalObserver.
func (r *ExpvarMetricsRecorder) TraversalTruncated(_ context.Context, operation string) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	r.stats(operation).Truncated++
	r.mu.Unlock()
}

// SpanRecord is one finished operation as written by JSONTracer.
type SpanRecord struct {
	Operation  string    `json:"operation"`
	Outcome    string    `json:"outcome"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// JSONTracer writes one JSON line per service operation and retains the most
// recent spans. Span errors are the unclassified causes, so the output belongs
// in server-side logs only.
type JSONTracer struct {
	now    func() time.Time
	retain int

	mu     sync.Mutex
	enc    *json.Encoder
	recent []SpanRecord
}

// NewJSONTracer writes spans to w (nil disables writing) and keeps the last
// retain spans for Recent. A non-positive retain keeps none.
func NewJSONTracer(w io.Writer, retain int) *JSONTracer {
	t := &JSONTracer{
		now:    func() time.Time { return time.Now().UTC() },
		retain: max(retain, 0),
	}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Recent returns the retained spans, oldest first.
func (t *JSONTracer) Recent() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.recent...)
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, rec: SpanRecord{Operation: operation, StartedAt: t.now()}}
}

func (t *JSONTracer) finish(rec SpanRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc != nil {
		_ = t.enc.Encode(rec)
	}
	if t.retain == 0 {
		return
	}
	if len(t.recent) == t.retain {
		t.recent = append(t.recent[:0], t.recent[1:]...)
	}
	t.recent = append(t.recent, rec)
}

type jsonSpan struct {
	tracer *JSONTracer
	rec    SpanRecord
	done   atomic.Bool
}

func (s *jsonSpan) End(err error) {
	if !s.done.CompareAndSwap(false, true) {
		return
	}
	rec := s.rec
	rec.DurationMS = float64(s.tracer.now().Sub(rec.StartedAt)) / float64(time.Millisecond)
	rec.Outcome = "success"
	if err != nil {
		rec.Outcome = "error"
		rec.Error = err.Error()
	}
	s.tracer.finish(rec)
}
