package rerank

import (
	"context"

	"github.com/panjf2000/ants/v2"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/model"
	"github.com/rushteam/ltr/pipeline"
)

// ModelSource 按名称解析模型，模型不存在时返回 MODEL_NOT_FOUND。
// registry.Snapshot 满足该接口。
type ModelSource interface {
	Model(name string) (model.Model, error)
}

// LTRNode 是 Pipeline 中的重排节点：读取 qctx.Rerank，解析模型后交给 Collector。
// 查询未携带重排指令时原样返回。
//
// 示例：
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rerank.LTRNode{Models: snapshot},
//	        &rerank.TopNNode{N: 10},
//	    },
//	}
type LTRNode struct {
	Models    ModelSource
	Evaluator *feature.Evaluator
	Pool      *ants.Pool
}

func (n *LTRNode) Name() string        { return "rerank.ltr" }
func (n *LTRNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *LTRNode) Process(
	ctx context.Context,
	qctx *core.QueryContext,
	cands []*core.Candidate,
) ([]*core.Candidate, error) {
	if qctx == nil || qctx.Rerank == nil {
		return cands, nil
	}
	d := qctx.Rerank
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if n.Models == nil {
		return nil, core.Errorf(core.ModuleRerank, core.ErrorCodeModelNotFound, "rerank: model %q not found", d.Model)
	}
	m, err := n.Models.Model(d.Model)
	if err != nil {
		return nil, err
	}

	c := &Collector{
		Model:          m,
		ReRankDocs:     d.ReRankDocs,
		FeatureVectors: d.FeatureVectors,
		Evaluator:      n.Evaluator,
		Pool:           n.Pool,
	}
	return c.Rerank(ctx, qctx, cands)
}
