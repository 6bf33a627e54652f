package filter

import (
	"context"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/dsl"
)

// ExprFilter 是表达式过滤器（fq）：表达式结果为 0/false 或求值失败的文档被过滤。
type ExprFilter struct {
	expr *dsl.Expression
}

// NewExprFilter 编译过滤表达式，例如 doc.popularity > 3。
func NewExprFilter(src string) (*ExprFilter, error) {
	e, err := dsl.Compile(src)
	if err != nil {
		return nil, core.WrapError(core.ModuleShard, core.ErrorCodeInvalidInput, "invalid filter query", err)
	}
	return &ExprFilter{expr: e}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(_ context.Context, qctx *core.QueryContext, c *core.Candidate) (bool, error) {
	vars := dsl.Vars{ID: c.ID(), Score: c.OriginalScore}
	if c.Doc != nil {
		vars.Doc = c.Doc.Fields
	}
	if qctx != nil {
		vars.Params = qctx.Params
	}
	v, err := f.expr.EvalFloat(vars)
	if err != nil {
		return true, nil
	}
	return v == 0, nil
}
