package feature

import (
	"fmt"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/conv"
	"github.com/rushteam/ltr/pkg/dsl"
)

// QueryParams 是查询派生特征的参数。
//   - q：数值表达式（可带 {!func} 前缀），结果即特征值
//   - fq：过滤表达式列表，任一结果为 0/false 时特征值为 0；只有 fq 时命中为 1
type QueryParams struct {
	Q  string
	FQ []string
}

// QueryFeature 在当前查询上下文中对单个候选文档执行表达式。
// 表达式在加载时编译一次，求值无共享可变状态。
type QueryFeature struct {
	base
	cfg     QueryParams
	q       *dsl.Expression
	filters []*dsl.Expression
}

func newQueryFeature(name string, params map[string]any) (Feature, error) {
	cfg := QueryParams{
		Q:  conv.ConfigGet(params, "q", ""),
		FQ: conv.SliceAnyToString(params["fq"]),
	}
	if cfg.Q == "" && len(cfg.FQ) == 0 {
		return nil, fmt.Errorf("params.q or params.fq is required")
	}

	f := &QueryFeature{
		base: base{name: name, class: ClassQuery, params: params},
		cfg:  cfg,
	}
	if cfg.Q != "" {
		e, err := dsl.Compile(cfg.Q)
		if err != nil {
			return nil, err
		}
		f.q = e
	}
	for _, src := range cfg.FQ {
		e, err := dsl.Compile(src)
		if err != nil {
			return nil, err
		}
		f.filters = append(f.filters, e)
	}
	return f, nil
}

// NewQueryFeature 直接用表达式构造查询派生特征。
func NewQueryFeature(name, expr string) (*QueryFeature, error) {
	f, err := newQueryFeature(name, map[string]any{"q": expr})
	if err != nil {
		return nil, err
	}
	return f.(*QueryFeature), nil
}

func (f *QueryFeature) Evaluate(qctx *core.QueryContext, c *core.Candidate) (float64, error) {
	vars := dsl.Vars{ID: c.ID(), Score: c.OriginalScore}
	if c.Doc != nil {
		vars.Doc = c.Doc.Fields
	}
	if qctx != nil {
		vars.Params = qctx.Params
	}

	for _, fq := range f.filters {
		v, err := fq.EvalFloat(vars)
		if err != nil {
			return 0, err
		}
		if v == 0 {
			return 0, nil
		}
	}
	if f.q == nil {
		return 1, nil
	}
	return f.q.EvalFloat(vars)
}
