package shard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/utils"
)

// Func 是在单个分片上执行的任务。
type Func func(ctx context.Context, shardID int) ([]*core.Candidate, error)

// Fanout 并发地在所有分片上执行任务，等待全部结束后返回（合并前的屏障）。
// 支持单分片超时与并发上限。
type Fanout struct {
	Timeout       time.Duration // 每个分片的超时时间（0 表示不限制）
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	// Strict 为 true 时任一分片失败即整体失败；否则失败分片记录在 Result.Err 中，
	// 调用方可以返回部分结果。
	Strict bool
}

// Run 在分片 0..shards-1 上执行 fn。返回的 Result 按分片号排列。
// 非 Strict 模式下只有父 ctx 结束时才返回错误。
func (f *Fanout) Run(ctx context.Context, shards int, fn Func) ([]Result, error) {
	results := make([]Result, shards)
	if shards == 0 {
		return results, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	if f.MaxConcurrent > 0 {
		eg.SetLimit(f.MaxConcurrent)
	}

	for i := 0; i < shards; i++ {
		shardID := i
		eg.Go(func() error {
			runCtx := egCtx
			if !f.Strict {
				// 非严格模式下一个分片失败不应取消其他分片
				runCtx = ctx
			}
			if f.Timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, f.Timeout)
				defer cancel()
			}

			start := time.Now()
			cands, err := f.call(runCtx, shardID, fn)
			if err == nil && runCtx.Err() != nil {
				err = runCtx.Err()
			}
			res := Result{ShardID: shardID, Took: time.Since(start)}
			if err != nil {
				res.Err = fmt.Errorf("shard %d: %w", shardID, err)
				results[shardID] = res
				if f.Strict {
					return core.WrapError(core.ModuleShard, core.ErrorCodeUnavailable, "shard "+strconv.Itoa(shardID)+" failed", err)
				}
				return nil
			}

			for _, c := range cands {
				c.ShardID = shardID
				c.PutLabel("shard", utils.Label{Value: strconv.Itoa(shardID), Source: "shard"})
			}
			res.Candidates = cands
			results[shardID] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

type callResult struct {
	cands []*core.Candidate
	err   error
}

// call 在独立 goroutine 中执行 fn，ctx 结束（超时或取消）时立即返回 ctx.Err()，
// 不等待不响应 ctx 的分片。晚到的结果被丢弃。
func (f *Fanout) call(ctx context.Context, shardID int, fn Func) ([]*core.Candidate, error) {
	done := make(chan callResult, 1)
	go func() {
		cands, err := fn(ctx, shardID)
		done <- callResult{cands: cands, err: err}
	}()
	select {
	case r := <-done:
		return r.cands, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Failed 返回失败分片的编号。
func Failed(results []Result) []int {
	var ids []int
	for _, r := range results {
		if r.Err != nil {
			ids = append(ids, r.ShardID)
		}
	}
	return ids
}
