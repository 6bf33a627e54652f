package model

import (
	"fmt"
	"math"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/conv"
)

// LinearModel 计算特征的加权和：score = Σ weight_i * x_i。
// 特征没有配置权重时权重为 0。
type LinearModel struct {
	Base
	weights []float64 // 与 FeatureNames 对齐
}

func newLinearModel(b Base, params map[string]any) (Model, error) {
	weights, err := parseWeights(b, params)
	if err != nil {
		return nil, err
	}
	return &LinearModel{Base: b, weights: weights}, nil
}

// parseWeights 解析 params.weights，返回与特征布局对齐的权重。
func parseWeights(b Base, params map[string]any) ([]float64, error) {
	weights := make([]float64, len(b.names))
	raw, ok := params["weights"]
	if !ok || raw == nil {
		return weights, nil
	}
	var m map[string]any
	switch w := raw.(type) {
	case map[string]any:
		m = w
	case map[string]float64:
		m = make(map[string]any, len(w))
		for k, v := range w {
			m[k] = v
		}
	default:
		return nil, fmt.Errorf("params.weights must be a map, got %T", raw)
	}
	for name, w := range m {
		i, ok := b.index[name]
		if !ok {
			return nil, configErrorf("model %q: weight for unknown feature %q", b.name, name)
		}
		f, ok := conv.ParseFloat64(w)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("weight %q must be a finite number, got %v", name, w)
		}
		weights[i] = f
	}
	return weights, nil
}

// Weight 返回特征的权重。
func (m *LinearModel) Weight(name string) float64 {
	if i, ok := m.index[name]; ok {
		return m.weights[i]
	}
	return 0
}

func (m *LinearModel) Score(vec core.FeatureVector) float64 {
	var score float64
	for i, w := range m.weights {
		score += w * m.value(vec, i)
	}
	return score
}
