package verdoc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "verdoc"

// Metrics receives DB activity.
type Metrics interface {
	AddWrite(op string)
	AddRead(op string)
	AddCompaction(d time.Duration)
	SetSnapshotSize(bytes int)
}

type noopMetrics struct{}

func (noopMetrics) AddWrite(string)             {}
func (noopMetrics) AddRead(string)              {}
func (noopMetrics) AddCompaction(time.Duration) {}
func (noopMetrics) SetSnapshotSize(int)         {}

type prometheusMetrics struct {
	writes       *prometheus.CounterVec
	reads        *prometheus.CounterVec
	compaction   prometheus.Histogram
	snapshotSize prometheus.Gauge
}

const opLabelKey = "op"

// NewPrometheusMetrics creates Metrics backed by Prometheus collectors and
// registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (Metrics, error) {
	m := &prometheusMetrics{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "writes_total",
			Help:      "Number of versions appended, by operation",
		}, []string{opLabelKey}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reads_total",
			Help:      "Number of lookups, by operation",
		}, []string{opLabelKey}),
		compaction: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "compaction_time",
			Help:      "Compaction handling time",
		}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "snapshot_size_bytes",
			Help:      "Size of the last stored checkpoint",
		}),
	}
	for _, c := range []prometheus.Collector{m.writes, m.reads, m.compaction, m.snapshotSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *prometheusMetrics) AddWrite(op string) {
	m.writes.With(prometheus.Labels{opLabelKey: op}).Inc()
}

func (m *prometheusMetrics) AddRead(op string) {
	m.reads.With(prometheus.Labels{opLabelKey: op}).Inc()
}

func (m *prometheusMetrics) AddCompaction(d time.Duration) {
	m.compaction.Observe(d.Seconds())
}

func (m *prometheusMetrics) SetSnapshotSize(bytes int) {
	m.snapshotSize.Set(float64(bytes))
}
