package orders

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the order path.
var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_operations_total",
		Help: "Total order store operations by operation and result",
	}, []string{"operation", "result"})

	opLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderflow_operation_duration_seconds",
		Help:    "Latency of order store operations",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"operation"})

	queueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderflow_queue_depth",
		Help: "Current depth of the in-process processing queue",
	})

	drainFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_drain_failures_total",
		Help: "Order resolutions that failed during drain, by reason",
	}, []string{"reason"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_events_published_total",
		Help: "Order lifecycle events handed to the publisher, by type",
	}, []string{"type"})
)

// OpStats is a point-in-time snapshot of one operation's window.
type OpStats struct {
	Count     int64         `json:"count"`
	Errors    int64         `json:"errors"`
	AvgMillis float64       `json:"avg_ms"`
	Min       time.Duration `json:"min_ns"`
	Max       time.Duration `json:"max_ns"`
}

// ErrorRate returns errors over total operations for the window.
func (s OpStats) ErrorRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Count)
}

// opWindow keeps running latency statistics for one operation. The mean uses
// Welford's incremental update to avoid drift over long windows.
type opWindow struct {
	count  int64
	errs   int64
	meanMS float64
	min    time.Duration
	max    time.Duration
}

func (w *opWindow) observe(d time.Duration, failed bool) {
	w.count++
	if failed {
		w.errs++
	}
	ms := float64(d) / float64(time.Millisecond)
	w.meanMS += (ms - w.meanMS) / float64(w.count)
	if w.count == 1 || d < w.min {
		w.min = d
	}
	if d > w.max {
		w.max = d
	}
}

// Recorder tracks per-operation latency statistics over a reset window, and
// mirrors every observation into Prometheus. Each externally observable
// operation records exactly once.
type Recorder struct {
	mu      sync.Mutex
	windows map[string]*opWindow
	window  time.Duration
}

// NewRecorder creates a recorder with the given reset window. Zero window
// falls back to 60s.
func NewRecorder(window time.Duration) *Recorder {
	if window <= 0 {
		window = 60 * time.Second
	}
	return &Recorder{windows: make(map[string]*opWindow), window: window}
}

// Observe records one operation's latency and outcome.
func (r *Recorder) Observe(operation string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	opsTotal.WithLabelValues(operation, result).Inc()
	opLatency.WithLabelValues(operation).Observe(d.Seconds())

	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[operation]
	if !ok {
		w = &opWindow{}
		r.windows[operation] = w
	}
	w.observe(d, err != nil)
}

// Snapshot returns the current window statistics per operation.
func (r *Recorder) Snapshot() map[string]OpStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]OpStats, len(r.windows))
	for op, w := range r.windows {
		out[op] = OpStats{
			Count:     w.count,
			Errors:    w.errs,
			AvgMillis: w.meanMS,
			Min:       w.min,
			Max:       w.max,
		}
	}
	return out
}

// Reset clears the current window so dashboards see windowed rather than
// lifetime statistics.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = make(map[string]*opWindow)
}

// Run resets the window on a fixed period until the context is cancelled.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reset()
		}
	}
}
