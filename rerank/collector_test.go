package rerank

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/model"
)

// popularityModel 打分为 pow(popularity,2) + 2。
func popularityModel(t *testing.T) model.Model {
	t.Helper()
	store, err := feature.LoadStore("test", []feature.Definition{
		{Name: "powpularityS", Class: "SolrFeature", Params: map[string]any{"q": "{!func}pow(doc.popularity,2)"}},
		{Name: "c3", Class: "ValueFeature", Params: map[string]any{"value": 2}},
	})
	require.NoError(t, err)
	m, err := model.Load(model.Definition{
		Name:     "powpularityS-model",
		Class:    "LinearModel",
		Store:    "test",
		Features: []string{"powpularityS", "c3"},
		Params:   map[string]any{"weights": map[string]any{"powpularityS": 1.0, "c3": 1.0}},
	}, store)
	require.NoError(t, err)
	return m
}

// fieldModel 直接以 score 字段为分数。
func fieldModel(t *testing.T) model.Model {
	t.Helper()
	store, err := feature.LoadStore(feature.DefaultStoreName, []feature.Definition{
		{Name: "s", Class: feature.ClassField, Params: map[string]any{"field": "s"}},
	})
	require.NoError(t, err)
	m, err := model.Load(model.Definition{
		Name:     "field",
		Class:    model.ClassLinear,
		Features: []string{"s"},
		Params:   map[string]any{"weights": map[string]any{"s": 1}},
	}, store)
	require.NoError(t, err)
	return m
}

// nativeList 按 sub(8,popularity) 的原生顺序构造 id 1..8（popularity=id）。
func nativeList() []*core.Candidate {
	out := make([]*core.Candidate, 0, 8)
	for i := 1; i <= 8; i++ {
		doc := &core.Document{ID: strconv.Itoa(i), Fields: map[string]any{"popularity": float64(i)}}
		out = append(out, core.NewCandidate(doc, float64(8-i), i-1))
	}
	return out
}

func withScores(scores ...float64) []*core.Candidate {
	out := make([]*core.Candidate, len(scores))
	for i, s := range scores {
		doc := &core.Document{ID: string(rune('a' + i)), Fields: map[string]any{"s": s}}
		out[i] = core.NewCandidate(doc, float64(100-i), i)
	}
	return out
}

func ids(cands []*core.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID()
	}
	return out
}

func TestCollector_EndToEndVectors(t *testing.T) {
	c := &Collector{Model: popularityModel(t), ReRankDocs: 8, FeatureVectors: true}
	out, err := c.Rerank(context.Background(), &core.QueryContext{}, nativeList())
	require.NoError(t, err)

	assert.Equal(t, []string{"8", "7", "6", "5", "4", "3", "2", "1"}, ids(out))
	assert.Equal(t, 66.0, out[0].RerankScore)
	assert.Equal(t, "powpularityS:64.0;c3:2.0", out[0].Vector.String())
	assert.Equal(t, "powpularityS:49.0;c3:2.0", out[1].Vector.String())
	assert.Equal(t, "powpularityS:36.0;c3:2.0", out[2].Vector.String())
	assert.Equal(t, "powpularityS:25.0;c3:2.0", out[3].Vector.String())
	for i, cand := range out {
		assert.Equal(t, i, cand.Rank)
		assert.True(t, cand.Reranked)
	}
}

func TestCollector_WindowBoundary(t *testing.T) {
	in := nativeList()
	c := &Collector{Model: popularityModel(t), ReRankDocs: 3}
	out, err := c.Rerank(context.Background(), &core.QueryContext{}, in)
	require.NoError(t, err)
	require.Len(t, out, 8)

	assert.Equal(t, []string{"3", "2", "1", "4", "5", "6", "7", "8"}, ids(out))
	for _, cand := range out[3:] {
		assert.False(t, cand.Reranked)
		assert.Nil(t, cand.Vector)
	}
	assert.Equal(t, 4.0, out[3].SortScore())

	// 输入不被修改
	for i, cand := range in {
		assert.False(t, cand.Reranked)
		assert.Equal(t, i, cand.Rank)
	}
}

func TestCollector_WindowLargerThanList(t *testing.T) {
	c := &Collector{Model: popularityModel(t), ReRankDocs: 100}
	out, err := c.Rerank(context.Background(), &core.QueryContext{}, nativeList()[:2])
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids(out))

	out, err = c.Rerank(context.Background(), &core.QueryContext{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCollector_TiesAndNaN(t *testing.T) {
	c := &Collector{Model: fieldModel(t), ReRankDocs: 10}
	out, err := c.Rerank(context.Background(), &core.QueryContext{}, withScores(1, math.NaN(), 5, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "e", "a", "d", "b"}, ids(out))
}

func TestCollector_Deterministic(t *testing.T) {
	m := fieldModel(t)
	in := withScores(3, 1, 3, 2, 1, 3)
	first, err := (&Collector{Model: m, ReRankDocs: 6}).Rerank(context.Background(), &core.QueryContext{}, in)
	require.NoError(t, err)

	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	for i := 0; i < 20; i++ {
		out, err := (&Collector{Model: m, ReRankDocs: 6, Pool: pool}).Rerank(context.Background(), &core.QueryContext{}, in)
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(out))
	}
}

func TestCollector_Degrade(t *testing.T) {
	mon := feature.NewCountingMonitor()
	c := &Collector{Model: popularityModel(t), ReRankDocs: 2, Evaluator: feature.NewEvaluator(feature.WithMonitor(mon))}
	in := nativeList()[:2]
	in[0] = core.NewCandidate(&core.Document{ID: "nofield"}, 7, 0)

	out, err := c.Rerank(context.Background(), &core.QueryContext{}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "nofield"}, ids(out))
	assert.Equal(t, 2.0, out[1].RerankScore)
	assert.Equal(t, 1, mon.Count("powpularityS"))
}

func TestCollector_DegradeWithPool(t *testing.T) {
	pool, err := ants.NewPool(8)
	require.NoError(t, err)
	defer pool.Release()

	mon := feature.NewCountingMonitor()
	in := make([]*core.Candidate, 200)
	for i := range in {
		in[i] = core.NewCandidate(&core.Document{ID: strconv.Itoa(i)}, float64(200-i), i)
	}
	c := &Collector{Model: popularityModel(t), ReRankDocs: len(in), Pool: pool, Evaluator: feature.NewEvaluator(feature.WithMonitor(mon))}

	out, err := c.Rerank(context.Background(), &core.QueryContext{}, in)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	assert.Equal(t, len(in), mon.Count("powpularityS"))
	// 全部同分时保持原生顺序
	assert.Equal(t, ids(in), ids(out))
}

func TestCollector_Errors(t *testing.T) {
	_, err := (&Collector{ReRankDocs: 1}).Rerank(context.Background(), &core.QueryContext{}, nativeList())
	assert.True(t, core.IsInvalidInput(err))

	_, err = (&Collector{Model: fieldModel(t)}).Rerank(context.Background(), &core.QueryContext{}, nativeList())
	assert.True(t, core.IsInvalidInput(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&Collector{Model: popularityModel(t), ReRankDocs: 8}).Rerank(ctx, &core.QueryContext{}, nativeList())
	assert.ErrorIs(t, err, context.Canceled)

	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()
	_, err = (&Collector{Model: popularityModel(t), ReRankDocs: 8, Pool: pool}).Rerank(ctx, &core.QueryContext{}, nativeList())
	assert.ErrorIs(t, err, context.Canceled)
}
