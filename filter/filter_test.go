package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/store"
)

func cands() []*core.Candidate {
	out := make([]*core.Candidate, 0, 5)
	for i := 1; i <= 5; i++ {
		doc := &core.Document{ID: string(rune('0' + i)), Fields: map[string]any{"popularity": float64(i)}}
		out = append(out, core.NewCandidate(doc, float64(10-i), i-1))
	}
	return out
}

func ids(cs []*core.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID()
	}
	return out
}

func TestFilterNode(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, "blacklist", []byte(`["4"]`)))

	bl, err := NewBlacklistFilter(ctx, []string{"1"}, kv, "blacklist")
	require.NoError(t, err)
	fq, err := NewExprFilter("doc.popularity < 5.0")
	require.NoError(t, err)

	in := cands()
	out, err := (&FilterNode{Filters: []Filter{bl, fq}}).Process(ctx, &core.QueryContext{}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(out))
	assert.Equal(t, "filter.blacklist", in[0].Labels["filtered"].Source)
	assert.Equal(t, "filter.expr", in[4].Labels["filtered"].Source)
}

func TestBlacklistFilter_MissingKey(t *testing.T) {
	bl, err := NewBlacklistFilter(context.Background(), nil, store.NewMemoryStore(), "absent")
	require.NoError(t, err)
	out, err := (&FilterNode{Filters: []Filter{bl}}).Process(context.Background(), nil, cands())
	require.NoError(t, err)
	assert.Len(t, out, 5)

	_, err = NewBlacklistFilter(context.Background(), nil, func() core.Store {
		kv := store.NewMemoryStore()
		_ = kv.Set(context.Background(), "bad", []byte("{"))
		return kv
	}(), "bad")
	assert.True(t, core.IsInvalidInput(err))
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter("params.min <= doc.popularity")
	require.NoError(t, err)
	out, err := (&FilterNode{Filters: []Filter{f}}).Process(context.Background(), &core.QueryContext{Params: map[string]any{"min": 4.0}}, cands())
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "5"}, ids(out))

	_, err = NewExprFilter("doc.popularity <")
	assert.True(t, core.IsInvalidInput(err))
}

func TestFilterNode_Canceled(t *testing.T) {
	f, err := NewExprFilter("doc.popularity > 1.0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = (&FilterNode{Filters: []Filter{f}}).Process(ctx, &core.QueryContext{}, cands())
	assert.ErrorIs(t, err, context.Canceled)
}
