// Package metrics 提供重排链路的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 指标名
const (
	MetricFeatureDegradedTotal = "ltr_feature_degraded_total"
	MetricRerankDuration       = "ltr_rerank_duration_seconds"
	MetricShardFailuresTotal   = "ltr_shard_failures_total"
	MetricModelFallbackTotal   = "ltr_model_fallback_total"
	MetricReloadTotal          = "ltr_registry_reload_total"
)

// reload 结果
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics 实现 feature.Monitor 与 registry.Observer，并发安全。
type Metrics struct {
	featureDegraded *prometheus.CounterVec
	rerankDuration  *prometheus.HistogramVec
	shardFailures   *prometheus.CounterVec
	modelFallback   *prometheus.CounterVec
	reloads         *prometheus.CounterVec
}

// NewMetrics 创建指标，需调用 Register 注册到 registry。
func NewMetrics() *Metrics {
	return &Metrics{
		featureDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeatureDegradedTotal,
				Help: "Total number of feature evaluations that fell back to the default value",
			},
			[]string{"feature"},
		),
		rerankDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRerankDuration,
				Help:    "Histogram of per-shard rerank duration in seconds by model",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"model"},
		),
		shardFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricShardFailuresTotal,
				Help: "Total number of shards that failed or timed out during a search",
			},
			[]string{"shard"},
		),
		modelFallback: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricModelFallbackTotal,
				Help: "Total number of searches or shards that fell back to native order by reason",
			},
			[]string{"reason"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricReloadTotal,
				Help: "Total number of registry snapshot builds by status",
			},
			[]string{"status"},
		),
	}
}

// Register 注册全部指标。
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors 返回全部 collector。
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.featureDegraded,
		m.rerankDuration,
		m.shardFailures,
		m.modelFallback,
		m.reloads,
	}
}

// FeatureDegraded 实现 feature.Monitor。
func (m *Metrics) FeatureDegraded(featureName string) {
	m.featureDegraded.WithLabelValues(featureName).Inc()
}

// ObserveRerank 记录一次分片重排耗时。
func (m *Metrics) ObserveRerank(model string, seconds float64) {
	m.rerankDuration.WithLabelValues(model).Observe(seconds)
}

// IncShardFailure 记录分片失败。
func (m *Metrics) IncShardFailure(shard string) {
	m.shardFailures.WithLabelValues(shard).Inc()
}

// IncModelFallback 记录退回原生排序，reason 为错误码（如 MODEL_NOT_FOUND）。
func (m *Metrics) IncModelFallback(reason string) {
	m.modelFallback.WithLabelValues(reason).Inc()
}

// ReloadDone 实现 registry.Observer。
func (m *Metrics) ReloadDone(err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	m.reloads.WithLabelValues(status).Inc()
}
