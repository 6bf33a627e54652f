package feature

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/rushteam/ltr/core"
)

// DefaultValue 是特征取值失败时的降级值。
const DefaultValue = 0.0

// Layout 描述特征向量的布局：从哪个特征库取、按什么顺序取。model.Model 都满足该接口。
type Layout interface {
	FeatureStore() *Store
	FeatureNames() []string
}

// Evaluator 为 (查询, 文档, 模型) 计算有序特征向量。
//
// 这是每个文档的热路径：每次只分配一个向量，不修改任何共享状态。
// 单个特征取值失败时降级为 DefaultValue 并记录，不向上传播。
type Evaluator struct {
	monitor Monitor
	logger  *zap.Logger
}

// EvaluatorOption Evaluator 配置选项
type EvaluatorOption func(*Evaluator)

// WithMonitor 设置降级监控
func WithMonitor(m Monitor) EvaluatorOption {
	return func(e *Evaluator) {
		if m != nil {
			e.monitor = m
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		monitor: NopMonitor{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate 按 layout.FeatureNames() 的顺序计算特征向量。
// 特征名在特征库中不存在时返回 UNKNOWN_FEATURE（请求级错误）。
func (e *Evaluator) Evaluate(qctx *core.QueryContext, c *core.Candidate, layout Layout) (core.FeatureVector, error) {
	names := layout.FeatureNames()
	store := layout.FeatureStore()
	if store == nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnknownFeature, "feature: layout has no feature store")
	}

	vec := make(core.FeatureVector, len(names))
	for i, name := range names {
		f, err := store.Lookup(name)
		if err != nil {
			return nil, err
		}
		v, err := f.Evaluate(qctx, c)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			// div(x,0)、ln(0) 等非有限值同样按降级处理
			err = fmt.Errorf("feature %s: non-finite value %v", name, v)
		}
		if err != nil {
			v = DefaultValue
			e.monitor.FeatureDegraded(name)
			e.logger.Debug("feature degraded",
				zap.String("feature", name),
				zap.String("doc", c.ID()),
				zap.Error(err),
			)
		}
		vec[i] = core.FeatureValue{Name: name, Value: v}
	}
	return vec, nil
}
