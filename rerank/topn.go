package rerank

import (
	"context"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，放在 LTRNode 之后，
// 每个分片只需把全局 rows 条交给合并阶段。
type TopNNode struct {
	// N 要保留的候选数量
	// 如果 N <= 0，则返回所有候选（不截断）
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.QueryContext,
	cands []*core.Candidate,
) ([]*core.Candidate, error) {
	if n.N <= 0 || len(cands) <= n.N {
		return cands, nil
	}
	return cands[:n.N], nil
}
