package service

import (
	"time"

	"github.com/bitfantasy/groupchange/internal/params/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 改写相关的 Prometheus 指标
type Metrics struct {
	rewrites *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时使用默认注册表
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		rewrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "groupchange_rewrites_total",
			Help: "Rewrite requests by family, scope and outcome.",
		}, []string{"family", "scope", "outcome"}),
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "groupchange_rewrite_rows_total",
			Help: "Parameter records touched by committed rewrites.",
		}, []string{"family", "scope", "kind"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "groupchange_rewrite_duration_seconds",
			Help:    "Rewrite transaction latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"family", "scope"}),
	}
}

func (m *Metrics) observe(family entity.Family, scope entity.Scope, started time.Time, res *RewriteResult, err error) {
	if m == nil {
		return
	}
	f, s := string(family), scope.Label()
	m.duration.WithLabelValues(f, s).Observe(time.Since(started).Seconds())

	outcome := "ok"
	switch {
	case err != nil:
		outcome = outcomeOf(err)
	case res.AffectedCount == 0:
		outcome = "no_match"
	}
	m.rewrites.WithLabelValues(f, s, outcome).Inc()

	if res != nil {
		m.rows.WithLabelValues(f, s, "affected").Add(float64(res.AffectedCount))
		m.rows.WithLabelValues(f, s, "changed").Add(float64(res.ChangedCount))
		m.rows.WithLabelValues(f, s, "unresolved").Add(float64(res.UnresolvedCount))
	}
}
