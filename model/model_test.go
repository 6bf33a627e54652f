package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
)

func testStore(t *testing.T) *feature.Store {
	t.Helper()
	s, err := feature.LoadStore("test", []feature.Definition{
		{Name: "powpularityS", Class: feature.ClassQuery, Params: map[string]any{"q": "{!func}pow(doc.popularity,2)"}},
		{Name: "c3", Class: feature.ClassValue, Params: map[string]any{"value": 2}},
		{Name: "orig", Class: feature.ClassOriginalScore},
	})
	require.NoError(t, err)
	return s
}

func vec(pairs ...any) core.FeatureVector {
	out := make(core.FeatureVector, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, core.FeatureValue{Name: pairs[i].(string), Value: pairs[i+1].(float64)})
	}
	return out
}

func TestLinearModel_Score(t *testing.T) {
	m, err := Load(Definition{
		Name:     "powpularityS-model",
		Class:    "org.apache.solr.ltr.model.LinearModel",
		Store:    "test",
		Features: []string{"powpularityS", "c3"},
		Params:   map[string]any{"weights": map[string]any{"powpularityS": 1.0, "c3": 1.0}},
	}, testStore(t))
	require.NoError(t, err)

	assert.Equal(t, 66.0, m.Score(vec("powpularityS", 64.0, "c3", 2.0)))
	assert.Equal(t, []string{"powpularityS", "c3"}, m.FeatureNames())
	assert.Equal(t, "test", m.FeatureStore().Name())

	// 未按布局对齐时按名称取值
	assert.Equal(t, 66.0, m.Score(vec("c3", 2.0, "powpularityS", 64.0)))
}

func TestLinearModel_DefaultWeight(t *testing.T) {
	m, err := Load(Definition{
		Name:     "partial",
		Class:    ClassLinear,
		Store:    "test",
		Features: []string{"powpularityS", "c3"},
		Params:   map[string]any{"weights": map[string]float64{"c3": 0.5}},
	}, testStore(t))
	require.NoError(t, err)
	lm := m.(*LinearModel)
	assert.Equal(t, 0.0, lm.Weight("powpularityS"))
	assert.Equal(t, 1.0, m.Score(vec("powpularityS", 64.0, "c3", 2.0)))
}

func TestLogisticModel_Score(t *testing.T) {
	m, err := Load(Definition{
		Name:     "lr",
		Class:    ClassLogistic,
		Store:    "test",
		Features: []string{"c3"},
		Params:   map[string]any{"bias": -2, "weights": map[string]any{"c3": 1}},
	}, testStore(t))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.Score(vec("c3", 2.0)), 1e-12)
	assert.Greater(t, m.Score(vec("c3", 3.0)), m.Score(vec("c3", 2.0)))
}

func TestLoad_Normalizers(t *testing.T) {
	m, err := Load(Definition{
		Name:     "normed",
		Class:    ClassLinear,
		Store:    "test",
		Features: []string{"powpularityS", "c3"},
		Params:   map[string]any{"weights": map[string]any{"powpularityS": 1, "c3": 1}},
		Norms: map[string]NormalizerDefinition{
			"powpularityS": {Class: NormMinMax, Params: map[string]any{"min": 0, "max": 64}},
			"c3":           {Class: "org.apache.solr.ltr.norm.StandardNormalizer", Params: map[string]any{"avg": 1, "std": 2}},
		},
	}, testStore(t))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, m.Score(vec("powpularityS", 64.0, "c3", 2.0)), 1e-12)
}

func TestLoad_Validation(t *testing.T) {
	store := testStore(t)
	weights := func(w map[string]any) map[string]any { return map[string]any{"weights": w} }

	tests := []struct {
		name string
		def  Definition
	}{
		{"unknown class", Definition{Name: "m", Class: "tree", Store: "test", Features: []string{"c3"}}},
		{"store mismatch", Definition{Name: "m", Class: ClassLinear, Store: "other", Features: []string{"c3"}}},
		{"empty features", Definition{Name: "m", Class: ClassLinear, Store: "test"}},
		{"duplicate feature", Definition{Name: "m", Class: ClassLinear, Store: "test", Features: []string{"c3", "c3"}}},
		{"feature not in store", Definition{Name: "m", Class: ClassLinear, Store: "test", Features: []string{"nope"}}},
		{"unknown weight key", Definition{Name: "m", Class: ClassLinear, Store: "test", Features: []string{"c3"}, Params: weights(map[string]any{"orig": 1})}},
		{"non numeric weight", Definition{Name: "m", Class: ClassLinear, Store: "test", Features: []string{"c3"}, Params: weights(map[string]any{"c3": "x"})}},
		{"infinite weight", Definition{Name: "m", Class: ClassLinear, Store: "test", Features: []string{"c3"}, Params: weights(map[string]any{"c3": math.Inf(1)})}},
		{"weights not a map", Definition{Name: "m", Class: ClassLinear, Store: "test", Features: []string{"c3"}, Params: map[string]any{"weights": []any{1}}}},
		{"bad normalizer", Definition{Name: "m", Class: ClassLinear, Store: "test", Features: []string{"c3"}, Norms: map[string]NormalizerDefinition{"c3": {Class: NormStandard, Params: map[string]any{"std": 0}}}}},
		{"normalizer for unknown feature", Definition{Name: "m", Class: ClassLinear, Store: "test", Features: []string{"c3"}, Norms: map[string]NormalizerDefinition{"orig": {Class: NormLog}}}},
		{"missing name", Definition{Class: ClassLinear, Store: "test", Features: []string{"c3"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.def, store)
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err), "got %v", err)
		})
	}

	_, err := Load(Definition{Name: "m", Class: ClassLinear, Store: "test", Features: []string{"c3"}}, nil)
	assert.True(t, core.IsConfigurationError(err))
}

func TestNormalizers(t *testing.T) {
	assert.InDelta(t, math.Log1p(3), LogNormalizer{}.Normalize(3), 1e-12)
	assert.Equal(t, 0.0, LogNormalizer{}.Normalize(-1))
	assert.Equal(t, 3.0, SqrtNormalizer{}.Normalize(9))

	_, err := BuildNormalizer(NormalizerDefinition{Class: NormMinMax, Params: map[string]any{"min": 5, "max": 5}})
	assert.Error(t, err)
	_, err = BuildNormalizer(NormalizerDefinition{Class: "zscore-ish"})
	assert.Error(t, err)
}
