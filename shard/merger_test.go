package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rushteam/ltr/core"
)

func cand(id string, score float64, reranked bool) *core.Candidate {
	c := core.NewCandidate(&core.Document{ID: id}, score, 0)
	if reranked {
		c.RerankScore = score
		c.Reranked = true
		c.OriginalScore = -1
	}
	return c
}

func ids(cands []*core.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID()
	}
	return out
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		rows    int
		want    []string
	}{
		{
			name: "two shards by rerank score",
			results: []Result{
				{ShardID: 0, Candidates: []*core.Candidate{cand("A", 90, true), cand("B", 80, true)}},
				{ShardID: 1, Candidates: []*core.Candidate{cand("C", 85, true)}},
			},
			rows: 3,
			want: []string{"A", "C", "B"},
		},
		{
			name: "truncate to rows",
			results: []Result{
				{ShardID: 0, Candidates: []*core.Candidate{cand("A", 90, true), cand("B", 80, true)}},
				{ShardID: 1, Candidates: []*core.Candidate{cand("C", 85, true)}},
			},
			rows: 2,
			want: []string{"A", "C"},
		},
		{
			name: "tie prefers lower shard then id",
			results: []Result{
				{ShardID: 1, Candidates: []*core.Candidate{cand("a", 5, true)}},
				{ShardID: 0, Candidates: []*core.Candidate{cand("z", 5, true), cand("y", 5, true)}},
			},
			want: []string{"z", "y", "a"},
		},
		{
			name: "per shard order preserved",
			results: []Result{
				{ShardID: 0, Candidates: []*core.Candidate{cand("r1", 10, true), cand("t1", 20, false)}},
				{ShardID: 1, Candidates: []*core.Candidate{cand("r2", 15, true)}},
			},
			want: []string{"r2", "r1", "t1"},
		},
		{
			name: "failed shard skipped",
			results: []Result{
				{ShardID: 0, Candidates: []*core.Candidate{cand("A", 90, true)}},
				{ShardID: 1, Candidates: []*core.Candidate{cand("C", 95, true)}, Err: assert.AnError},
			},
			want: []string{"A"},
		},
		{
			name: "empty",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Merge(tt.results, tt.rows)
			assert.Equal(t, tt.want, ids(out))
			for i, c := range out {
				assert.Equal(t, i, c.Rank)
			}
		})
	}
}
