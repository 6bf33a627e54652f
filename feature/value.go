package feature

import (
	"fmt"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/conv"
)

// ValueParams 是常量特征的参数。
type ValueParams struct {
	Value float64
}

// ValueFeature 始终返回配置的常量，与文档、查询无关。
type ValueFeature struct {
	base
	cfg ValueParams
}

func newValueFeature(name string, params map[string]any) (Feature, error) {
	raw, ok := params["value"]
	if !ok {
		return nil, fmt.Errorf("params.value is required")
	}
	v, ok := conv.ParseFloat64(raw)
	if !ok {
		return nil, fmt.Errorf("params.value %v is not a number", raw)
	}
	return &ValueFeature{
		base: base{name: name, class: ClassValue, params: params},
		cfg:  ValueParams{Value: v},
	}, nil
}

// NewValueFeature 直接构造常量特征。
func NewValueFeature(name string, value float64) *ValueFeature {
	return &ValueFeature{
		base: base{name: name, class: ClassValue, params: map[string]any{"value": value}},
		cfg:  ValueParams{Value: value},
	}
}

func (f *ValueFeature) Evaluate(_ *core.QueryContext, _ *core.Candidate) (float64, error) {
	return f.cfg.Value, nil
}
