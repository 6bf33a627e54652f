package dsl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpression_EvalFloat(t *testing.T) {
	doc := NormalizeFields(map[string]any{"popularity": 8, "title": "a1", "price": 2.5})

	tests := []struct {
		name string
		expr string
		vars Vars
		want float64
	}{
		{"pow", "pow(doc.popularity, 2)", Vars{Doc: doc}, 64},
		{"func prefix", "{!func}pow(doc.popularity,2)", Vars{Doc: doc}, 64},
		{"sub int literal", "sub(8, doc.popularity)", Vars{Doc: doc}, 0},
		{"cel arithmetic", "doc.price * 2.0", Vars{Doc: doc}, 5},
		{"constant int", "2", Vars{}, 2},
		{"score", "score + 1.0", Vars{Score: 1.5}, 2.5},
		{"params", "mul(params.boost, doc.price)", Vars{Doc: doc, Params: map[string]any{"boost": 2}}, 5},
		{"log10", "log(100)", Vars{}, 2},
		{"max", "max(doc.price, 3)", Vars{Doc: doc}, 3},
		{"bool", "doc.price > 1.0", Vars{Doc: doc}, 1},
		{"ternary", "has(doc.missing) ? 1 : 0", Vars{Doc: doc}, 0},
		{"bare field", "{!func}pow(popularity,2)", Vars{Doc: doc}, 64},
		{"field helper", "sub(8,field(popularity))", Vars{Doc: doc}, 0},
		{"bare and qualified", "add(price, doc.price)", Vars{Doc: doc}, 5},
		{"loop var is not a field", "[1, 2, 3].exists(x, x == 2) ? popularity : 0", Vars{Doc: doc}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := e.EvalFloat(tt.vars)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestExpression_MissingField(t *testing.T) {
	e := MustCompile("pow(doc.popularity, 2)")
	_, err := e.EvalFloat(Vars{Doc: map[string]any{"title": "x"}})
	assert.Error(t, err)

	_, err = e.EvalFloat(Vars{})
	assert.Error(t, err)
}

func TestExpression_MissingBareField(t *testing.T) {
	e := MustCompile("pow(popularity, 2)")
	_, err := e.EvalFloat(Vars{Doc: map[string]any{"title": "x"}})
	assert.Error(t, err)

	_, err = e.EvalFloat(Vars{})
	assert.Error(t, err)
}

func TestExpression_NonNumericField(t *testing.T) {
	e := MustCompile("sqrt(doc.title)")
	_, err := e.EvalFloat(Vars{Doc: map[string]any{"title": "x"}})
	assert.Error(t, err)
}

func TestCompile_Errors(t *testing.T) {
	for _, expr := range []string{"", "{!func}", "pow(doc.a", `"text"`, "unknown_fn(1)"} {
		_, err := Compile(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestExpression_DivByZero(t *testing.T) {
	e := MustCompile("div(1, 0)")
	got, err := e.EvalFloat(Vars{})
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1))
}
