// Package rerank 在单个分片上用模型重排原生排序结果的头部窗口。
package rerank

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/model"
	"github.com/rushteam/ltr/pkg/utils"
)

// Collector 对一个分片的候选列表执行重排：
//
//  1. 取前 ReRankDocs 个候选作为窗口（head），其余为 tail；
//  2. 对窗口内每个候选计算特征向量并打分；
//  3. 窗口按分数降序稳定排序，分数相同保持原始顺序，NaN 排在最后；
//  4. 输出 head + tail，tail 保持原生顺序与原生分数。
//
// 输入切片与其中的候选不会被修改；所有输出候选都是副本。
type Collector struct {
	Model          model.Model
	ReRankDocs     int
	FeatureVectors bool
	Evaluator      *feature.Evaluator

	// Pool 非空时窗口内的文档在协程池上并发打分
	Pool *ants.Pool
}

// Rerank 执行重排。ctx 取消时中止并返回 ctx.Err()。
func (c *Collector) Rerank(ctx context.Context, qctx *core.QueryContext, cands []*core.Candidate) ([]*core.Candidate, error) {
	if c.Model == nil {
		return nil, core.NewDomainError(core.ModuleRerank, core.ErrorCodeInvalidInput, "rerank: model is required")
	}
	if c.ReRankDocs <= 0 {
		return nil, core.Errorf(core.ModuleRerank, core.ErrorCodeInvalidInput, "rerank: reRankDocs must be positive, got %d", c.ReRankDocs)
	}
	ev := c.Evaluator
	if ev == nil {
		ev = feature.NewEvaluator()
	}

	n := min(c.ReRankDocs, len(cands))
	head := make([]*core.Candidate, n)
	for i := range head {
		head[i] = cands[i].Clone()
	}

	var err error
	if c.Pool != nil && n > 1 {
		err = c.scoreParallel(ctx, qctx, ev, head)
	} else {
		err = c.scoreSequential(ctx, qctx, ev, head)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(head, func(i, j int) bool {
		return core.ScoreGreater(head[i].RerankScore, head[j].RerankScore)
	})

	out := make([]*core.Candidate, 0, len(cands))
	out = append(out, head...)
	for _, cand := range cands[n:] {
		out = append(out, cand.Clone())
	}
	for i, cand := range out {
		cand.Rank = i
	}
	return out, nil
}

func (c *Collector) scoreSequential(ctx context.Context, qctx *core.QueryContext, ev *feature.Evaluator, head []*core.Candidate) error {
	for _, cand := range head {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.score(qctx, ev, cand); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) scoreParallel(ctx context.Context, qctx *core.QueryContext, ev *feature.Evaluator, head []*core.Candidate) error {
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() { firstErr = err })
	}

	for _, cand := range head {
		cand := cand
		wg.Add(1)
		err := c.Pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			if err := c.score(qctx, ev, cand); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("rerank: submit scoring task: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// score 为单个候选（已是副本）写入重排分数与可选特征向量。
func (c *Collector) score(qctx *core.QueryContext, ev *feature.Evaluator, cand *core.Candidate) error {
	vec, err := ev.Evaluate(qctx, cand, c.Model)
	if err != nil {
		return err
	}
	cand.RerankScore = c.Model.Score(vec)
	cand.Reranked = true
	if c.FeatureVectors {
		cand.Vector = vec
	}
	cand.PutLabel("rerank_model", utils.Label{Value: c.Model.Name(), Source: "rerank"})
	return nil
}
