package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type timer struct {
	h     prometheus.Observer
	start time.Time
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30,
}

type promHeadMetrics struct {
	listDuration      *prometheus.HistogramVec
	listsTotal        *prometheus.CounterVec
	nodeQueryFailures *prometheus.CounterVec
	logStreamsActive  *prometheus.GaugeVec
	logStreamsTotal   *prometheus.CounterVec
	logBytes          prometheus.Counter
	registrySize      *prometheus.GaugeVec
	membershipRefresh *prometheus.HistogramVec
}

// NewPrometheus creates a Prometheus implementation of HeadMetrics and
// registers its collectors with reg.
func NewPrometheus(reg prometheus.Registerer) HeadMetrics {
	m := &promHeadMetrics{
		listDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statehead_list_duration_seconds",
			Help:    "List query latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"kind"}),

		listsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statehead_lists_total",
			Help: "Total number of list queries by outcome",
		}, []string{"kind", "outcome"}),

		nodeQueryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statehead_node_query_failures_total",
			Help: "Per-node fan-out calls that failed or timed out",
		}, []string{"kind"}),

		logStreamsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statehead_log_streams_active",
			Help: "Number of open log retrievals",
		}, []string{"media_type"}),

		logStreamsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statehead_log_streams_total",
			Help: "Total number of log retrievals started",
		}, []string{"media_type"}),

		logBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statehead_log_bytes_streamed_total",
			Help: "Bytes of log content written to clients",
		}),

		registrySize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statehead_registry_endpoints",
			Help: "Registered agent endpoints",
		}, []string{"endpoint"}),

		membershipRefresh: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statehead_membership_refresh_seconds",
			Help:    "Time taken to read and diff the node table",
			Buckets: defaultBuckets,
		}, []string{"success"}),
	}

	reg.MustRegister(
		m.listDuration,
		m.listsTotal,
		m.nodeQueryFailures,
		m.logStreamsActive,
		m.logStreamsTotal,
		m.logBytes,
		m.registrySize,
		m.membershipRefresh,
	)
	return m
}

func (m *promHeadMetrics) ListDuration(kind string) Timer {
	return &timer{h: m.listDuration.WithLabelValues(kind), start: time.Now()}
}

func (m *promHeadMetrics) ListCompleted(kind, outcome string) {
	m.listsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *promHeadMetrics) NodeQueryFailed(kind string) {
	m.nodeQueryFailures.WithLabelValues(kind).Inc()
}

func (m *promHeadMetrics) LogStreamOpened(mediaType string) {
	m.logStreamsActive.WithLabelValues(mediaType).Inc()
	m.logStreamsTotal.WithLabelValues(mediaType).Inc()
}

func (m *promHeadMetrics) LogStreamClosed(mediaType string) {
	m.logStreamsActive.WithLabelValues(mediaType).Dec()
}

func (m *promHeadMetrics) LogBytesStreamed(n int) {
	m.logBytes.Add(float64(n))
}

func (m *promHeadMetrics) RegistrySize(endpointKind string, n int) {
	m.registrySize.WithLabelValues(endpointKind).Set(float64(n))
}

func (m *promHeadMetrics) MembershipRefreshed(d time.Duration, err error) {
	success := "true"
	if err != nil {
		success = "false"
	}
	m.membershipRefresh.WithLabelValues(success).Observe(d.Seconds())
}
