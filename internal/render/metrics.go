package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts renderer activity. A nil *Metrics records nothing.
type Metrics struct {
	renders    prometheus.Counter
	nodes      prometheus.Counter
	shared     prometheus.Counter
	expansions *prometheus.CounterVec
}

// NewMetrics creates and registers renderer metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		renders: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "dfexpr",
			Subsystem: "render",
			Name:      "renders_total",
			Help:      "Top-level render calls.",
		}),
		nodes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "dfexpr",
			Subsystem: "render",
			Name:      "interned_nodes_total",
			Help:      "Distinct IR nodes added to a context.",
		}),
		shared: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "dfexpr",
			Subsystem: "render",
			Name:      "shared_nodes_total",
			Help:      "Produced nodes replaced by an existing structurally equal node.",
		}),
		expansions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "dfexpr",
			Subsystem: "render",
			Name:      "callable_expansions_total",
			Help:      "Captured function expansions by outcome.",
		}, []string{"status"}),
	}
}

func (m *Metrics) observeRender() {
	if m != nil {
		m.renders.Inc()
	}
}

func (m *Metrics) observeIntern(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.shared.Inc()
	} else {
		m.nodes.Inc()
	}
}

func (m *Metrics) observeExpansion(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.expansions.WithLabelValues(status).Inc()
}
