package pipeline

import (
	"context"

	"github.com/rushteam/ltr/core"
)

// Kind 用于标记 Node 类型，方便观测与按阶段打点。
type Kind string

const (
	KindFilter      Kind = "filter"      // 过滤阶段：剔除不符合约束的候选
	KindReRank      Kind = "rerank"      // 重排阶段：在原生排序结果上用模型重新打分
	KindPostProcess Kind = "postprocess" // 后处理阶段：截断、结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 candidates -> 输出 candidates"的形态，方便重排、截断等操作组合。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		qctx *core.QueryContext,
		cands []*core.Candidate,
	) ([]*core.Candidate, error)
}
