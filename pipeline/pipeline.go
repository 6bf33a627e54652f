package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/ltr/core"
)

// Pipeline 把单个分片上的处理拆成可组合的 Node 链。
type Pipeline struct {
	Nodes []Node
}

// Run 依次执行各 Node，任一 Node 出错即中止。返回的错误保留 DomainError，
// 调用方可以用 core.IsXXX 判断。
func (p *Pipeline) Run(
	ctx context.Context,
	qctx *core.QueryContext,
	cands []*core.Candidate,
) ([]*core.Candidate, error) {
	cur := cands
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, qctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
