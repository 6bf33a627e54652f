// Package shard 负责分片级的并发执行（Fanout）与结果合并（Merge）。
package shard

import (
	"container/heap"
	"time"

	"github.com/rushteam/ltr/core"
)

// Result 是单个分片的输出。Err 非空表示该分片失败或超时，其候选不参与合并。
type Result struct {
	ShardID    int
	Candidates []*core.Candidate
	Err        error
	Took       time.Duration
}

// Merge 把各分片已排好序的列表合并成全局列表：
//
//   - 按 SortScore 降序（重排过的用重排分数，其余用原生分数）；
//   - 分数相同时分片号小的优先，再按文档 ID 升序；
//   - 同一分片内的相对顺序保持不变；
//   - rows <= 0 表示不截断。
//
// 输出候选的 Rank 会被重新编号。
func Merge(results []Result, rows int) []*core.Candidate {
	h := make(cursorHeap, 0, len(results))
	total := 0
	for _, r := range results {
		if r.Err != nil || len(r.Candidates) == 0 {
			continue
		}
		h = append(h, &cursor{shardID: r.ShardID, cands: r.Candidates})
		total += len(r.Candidates)
	}
	if rows > 0 && rows < total {
		total = rows
	}
	heap.Init(&h)

	out := make([]*core.Candidate, 0, total)
	for h.Len() > 0 && len(out) < total {
		top := h[0]
		c := top.cands[top.pos]
		c.Rank = len(out)
		out = append(out, c)

		top.pos++
		if top.pos == len(top.cands) {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	return out
}

// cursor 指向某个分片列表中下一个待输出的候选。
type cursor struct {
	shardID int
	cands   []*core.Candidate
	pos     int
}

func (c *cursor) head() *core.Candidate { return c.cands[c.pos] }

type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	a, b := h[i].head(), h[j].head()
	sa, sb := a.SortScore(), b.SortScore()
	if !core.ScoreEqual(sa, sb) {
		return core.ScoreGreater(sa, sb)
	}
	if h[i].shardID != h[j].shardID {
		return h[i].shardID < h[j].shardID
	}
	return a.ID() < b.ID()
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) { *h = append(*h, x.(*cursor)) }

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
