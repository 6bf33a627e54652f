package feature

import (
	"fmt"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/conv"
)

// FieldParams 是字段特征的参数。
type FieldParams struct {
	Field string
}

// FieldValueFeature 读取文档存储字段的数值（bool 为 1/0，数字字符串会被解析）。
type FieldValueFeature struct {
	base
	cfg FieldParams
}

func newFieldFeature(name string, params map[string]any) (Feature, error) {
	field := conv.ConfigGet(params, "field", "")
	if field == "" {
		return nil, fmt.Errorf("params.field is required")
	}
	return &FieldValueFeature{
		base: base{name: name, class: ClassField, params: params},
		cfg:  FieldParams{Field: field},
	}, nil
}

func (f *FieldValueFeature) Evaluate(_ *core.QueryContext, c *core.Candidate) (float64, error) {
	raw, ok := c.Doc.Field(f.cfg.Field)
	if !ok {
		return 0, fmt.Errorf("field %q missing", f.cfg.Field)
	}
	v, ok := conv.ParseFloat64(raw)
	if !ok {
		return 0, fmt.Errorf("field %q is not numeric: %v", f.cfg.Field, raw)
	}
	return v, nil
}

// OriginalScoreFeature 返回候选的原生相关性分数。
type OriginalScoreFeature struct {
	base
}

func newOriginalScoreFeature(name string, params map[string]any) (Feature, error) {
	return &OriginalScoreFeature{base: base{name: name, class: ClassOriginalScore, params: params}}, nil
}

func (f *OriginalScoreFeature) Evaluate(_ *core.QueryContext, c *core.Candidate) (float64, error) {
	return c.OriginalScore, nil
}
