package model

import (
	"fmt"
	"math"

	"github.com/rushteam/ltr/pkg/conv"
)

// 内置归一化类型
const (
	NormStandard = "standard" // z = (x - avg) / std
	NormMinMax   = "minmax"   // x' = (x - min) / (max - min)
	NormLog      = "log"      // x' = log(x + 1)，负数视为 0
	NormSqrt     = "sqrt"     // x' = sqrt(x)，负数视为 0
)

// Normalizer 在打分前变换单个特征值。
type Normalizer interface {
	Normalize(v float64) float64
}

// NormalizerDefinition 是归一化配置，例如 {class: standard, params: {avg: 1, std: 2}}。
type NormalizerDefinition struct {
	Class  string         `json:"class" yaml:"class" validate:"required"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// BuildNormalizer 根据定义创建归一化器。
func BuildNormalizer(def NormalizerDefinition) (Normalizer, error) {
	switch lastSegment(def.Class) {
	case NormStandard, "StandardNormalizer":
		avg, err := numberParam(def.Params, "avg", 0)
		if err != nil {
			return nil, err
		}
		std, err := numberParam(def.Params, "std", 1)
		if err != nil {
			return nil, err
		}
		if std <= 0 {
			return nil, fmt.Errorf("standard normalizer: std must be > 0, got %v", std)
		}
		return &StandardNormalizer{Avg: avg, Std: std}, nil
	case NormMinMax, "MinMaxNormalizer":
		min, err := numberParam(def.Params, "min", 0)
		if err != nil {
			return nil, err
		}
		max, err := numberParam(def.Params, "max", 1)
		if err != nil {
			return nil, err
		}
		if max <= min {
			return nil, fmt.Errorf("minmax normalizer: max (%v) must be > min (%v)", max, min)
		}
		return &MinMaxNormalizer{Min: min, Max: max}, nil
	case NormLog:
		return LogNormalizer{}, nil
	case NormSqrt:
		return SqrtNormalizer{}, nil
	}
	return nil, fmt.Errorf("unknown normalizer class %q", def.Class)
}

// StandardNormalizer Z-score 标准化
type StandardNormalizer struct {
	Avg float64
	Std float64
}

func (n *StandardNormalizer) Normalize(v float64) float64 { return (v - n.Avg) / n.Std }

// MinMaxNormalizer 把值缩放到 [min, max] 对应的 [0, 1]
type MinMaxNormalizer struct {
	Min float64
	Max float64
}

func (n *MinMaxNormalizer) Normalize(v float64) float64 { return (v - n.Min) / (n.Max - n.Min) }

// LogNormalizer 处理长尾分布，压缩大值
type LogNormalizer struct{}

func (LogNormalizer) Normalize(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Log1p(v)
}

// SqrtNormalizer 比 Log 变换更温和
type SqrtNormalizer struct{}

func (SqrtNormalizer) Normalize(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}

func numberParam(params map[string]any, key string, def float64) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	f, ok := conv.ParseFloat64(raw)
	if !ok {
		return 0, fmt.Errorf("params.%s must be a number, got %v", key, raw)
	}
	return f, nil
}

func lastSegment(class string) string {
	for i := len(class) - 1; i >= 0; i-- {
		if class[i] == '.' {
			return class[i+1:]
		}
	}
	return class
}
