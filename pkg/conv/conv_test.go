package conv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{8, 8, true},
		{int64(3), 3, true},
		{float32(0.5), 0.5, true},
		{true, 1, true},
		{" 2.5 ", 2.5, true},
		{json.Number("7"), 7, true},
		{"abc", 0, false},
		{nil, 0, false},
		{[]int{1}, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFloat64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "%v", tt.in)
		}
	}
}

func TestConfigGetAndSlice(t *testing.T) {
	m := map[string]any{"q": "pow(popularity,2)", "n": 2}
	assert.Equal(t, "pow(popularity,2)", ConfigGet(m, "q", ""))
	assert.Equal(t, "x", ConfigGet(m, "n", "x"))
	assert.Equal(t, "d", ConfigGet[string](nil, "q", "d"))

	assert.Equal(t, []string{"a", "3"}, SliceAnyToString([]any{"a", 3.0, struct{}{}}))
	assert.Nil(t, SliceAnyToString("a"))
}
