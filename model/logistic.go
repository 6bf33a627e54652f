package model

import (
	"fmt"
	"math"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/conv"
)

// LogisticModel 实现逻辑回归：
//
//  1. 线性加权求和: z = bias + Σ weight_i * x_i
//  2. Sigmoid 变换: P = 1 / (1 + exp(-z))
//
// 输出范围 (0, 1)，保持线性分数的相对顺序。
type LogisticModel struct {
	Base
	bias    float64
	weights []float64
}

func newLogisticModel(b Base, params map[string]any) (Model, error) {
	weights, err := parseWeights(b, params)
	if err != nil {
		return nil, err
	}
	var bias float64
	if raw, ok := params["bias"]; ok {
		f, ok := conv.ParseFloat64(raw)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("params.bias must be a finite number, got %v", raw)
		}
		bias = f
	}
	return &LogisticModel{Base: b, bias: bias, weights: weights}, nil
}

func (m *LogisticModel) Score(vec core.FeatureVector) float64 {
	z := m.bias
	for i, w := range m.weights {
		z += w * m.value(vec, i)
	}
	return 1 / (1 + math.Exp(-z))
}
