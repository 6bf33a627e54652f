package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/ltr/core"
)

type testLayout struct {
	store *Store
	names []string
}

func (l testLayout) FeatureStore() *Store   { return l.store }
func (l testLayout) FeatureNames() []string { return l.names }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	pow, err := NewQueryFeature("powpularityS", "{!func}pow(doc.popularity,2)")
	require.NoError(t, err)
	s, err := NewStore("test", pow, NewValueFeature("c3", 2))
	require.NoError(t, err)
	return s
}

func TestEvaluator_Evaluate(t *testing.T) {
	s := newTestStore(t)
	e := NewEvaluator()

	vec, err := e.Evaluate(nil, doc("8", map[string]any{"popularity": 8}), testLayout{store: s, names: []string{"powpularityS", "c3"}})
	require.NoError(t, err)
	assert.Equal(t, "powpularityS:64.0;c3:2.0", vec.String())

	// 布局顺序由调用方决定，而不是特征库顺序
	vec, err = e.Evaluate(nil, doc("8", map[string]any{"popularity": 8}), testLayout{store: s, names: []string{"c3", "powpularityS"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "powpularityS"}, vec.Names())
}

func TestEvaluator_Degrade(t *testing.T) {
	s := newTestStore(t)
	mon := NewCountingMonitor()
	e := NewEvaluator(WithMonitor(mon))

	vec, err := e.Evaluate(nil, doc("nofield", map[string]any{}), testLayout{store: s, names: []string{"powpularityS", "c3"}})
	require.NoError(t, err)
	v, ok := vec.Get("powpularityS")
	require.True(t, ok)
	assert.Equal(t, DefaultValue, v)
	assert.Equal(t, 1, mon.Count("powpularityS"))
	assert.Zero(t, mon.Count("c3"))
}

func TestEvaluator_NonFiniteDegrades(t *testing.T) {
	inv, err := NewQueryFeature("inv", "div(1, doc.popularity)")
	require.NoError(t, err)
	ln, err := NewQueryFeature("ln", "ln(doc.popularity)")
	require.NoError(t, err)
	root, err := NewQueryFeature("root", "sqrt(sub(0, 1))")
	require.NoError(t, err)
	s, err := NewStore("test", inv, ln, root)
	require.NoError(t, err)

	mon := NewCountingMonitor()
	vec, err := NewEvaluator(WithMonitor(mon)).Evaluate(nil, doc("0", map[string]any{"popularity": 0.0}), testLayout{store: s, names: []string{"inv", "ln", "root"}})
	require.NoError(t, err)
	assert.Equal(t, "inv:0.0;ln:0.0;root:0.0", vec.String())
	for _, name := range []string{"inv", "ln", "root"} {
		assert.Equal(t, 1, mon.Count(name), name)
	}
}

func TestEvaluator_UnknownFeature(t *testing.T) {
	s := newTestStore(t)
	_, err := NewEvaluator().Evaluate(nil, doc("1", nil), testLayout{store: s, names: []string{"nope"}})
	assert.True(t, core.IsUnknownFeature(err))

	_, err = NewEvaluator().Evaluate(nil, doc("1", nil), testLayout{names: []string{"c3"}})
	assert.True(t, core.IsUnknownFeature(err))
}
