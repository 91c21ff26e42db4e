package observability

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names recorded by the pipeline.
const (
	OperationExtract = "extract"
	OperationPersist = "persist"
	OperationBrief   = "brief"
)

// Metrics collects and aggregates metrics for pipeline operations.
// Counters are always kept in memory and mirrored to Prometheus once Register is called.
type Metrics struct {
	mu sync.Mutex

	// Counters
	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	operationMetrics map[string]*OperationMetrics

	// Duration window (simplified for internal use)
	durations    []time.Duration
	maxDurations int

	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// OperationMetrics represents metrics for a specific operation.
type OperationMetrics struct {
	executionCount atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
	errorCount     atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		operationMetrics: make(map[string]*OperationMetrics),
		durations:        make([]time.Duration, 0, maxDurations),
		maxDurations:     maxDurations,
	}
}

// MustRegister exports the counters through reg and returns m.
// Collectors already registered under the same names are reused.
func (m *Metrics) MustRegister(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicecal",
		Subsystem: "pipeline",
		Name:      "requests_total",
		Help:      "Total number of pipeline requests by operation.",
	}, []string{"operation"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicecal",
		Subsystem: "pipeline",
		Name:      "failures_total",
		Help:      "Total number of failed pipeline requests by operation and failure kind.",
	}, []string{"operation", "kind"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voicecal",
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "Duration of pipeline requests by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	requests = registerOrReuse(reg, requests)
	failures = registerOrReuse(reg, failures)
	latency = registerOrReuse(reg, latency)

	m.mu.Lock()
	m.requests, m.failures, m.latency = requests, failures, latency
	m.mu.Unlock()
	return m
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordRequest records a request.
func (m *Metrics) RecordRequest(operation string) {
	m.requestTotal.Add(1)
	m.mu.Lock()
	m.operation(operation).executionCount.Add(1)
	requests := m.requests
	m.mu.Unlock()

	if requests != nil {
		requests.WithLabelValues(operation).Inc()
	}
}

// RecordFailure records a failed request with its failure kind.
func (m *Metrics) RecordFailure(operation, kind string) {
	m.requestFailed.Add(1)
	m.mu.Lock()
	m.operation(operation).errorCount.Add(1)
	failures := m.failures
	m.mu.Unlock()

	if failures != nil {
		failures.WithLabelValues(operation, kind).Inc()
	}
}

// RecordDuration records a request duration.
func (m *Metrics) RecordDuration(operation string, duration time.Duration) {
	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		// Remove oldest duration (FIFO)
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.operation(operation).totalDuration.Add(duration.Milliseconds())
	latency := m.latency
	m.mu.Unlock()

	if latency != nil {
		latency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// operation gets or creates operation metrics, the caller holds m.mu.
func (m *Metrics) operation(name string) *OperationMetrics {
	om, ok := m.operationMetrics[name]
	if !ok {
		om = &OperationMetrics{}
		m.operationMetrics[name] = om
	}
	return om
}

func average(om *OperationMetrics) int64 {
	count := om.executionCount.Load()
	if count == 0 {
		return 0
	}
	return om.totalDuration.Load() / count
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	operations := make(map[string]*OperationMetricsSnapshot, len(m.operationMetrics))
	for name, om := range m.operationMetrics {
		operations[name] = &OperationMetricsSnapshot{
			ExecutionCount:  om.executionCount.Load(),
			TotalDuration:   om.totalDuration.Load(),
			ErrorCount:      om.errorCount.Load(),
			AverageDuration: average(om),
		}
	}

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		Operations:    operations,
		DurationCount: len(m.durations),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                                `json:"requestTotal"`
	RequestFailed int64                                `json:"requestFailed"`
	Operations    map[string]*OperationMetricsSnapshot `json:"operations"`
	DurationCount int                                  `json:"durationCount"`
}

// OperationMetricsSnapshot represents metrics for a specific operation.
type OperationMetricsSnapshot struct {
	ExecutionCount  int64 `json:"executionCount"`
	TotalDuration   int64 `json:"totalDurationMs"`
	ErrorCount      int64 `json:"errorCount"`
	AverageDuration int64 `json:"averageDurationMs"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
