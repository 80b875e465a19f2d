package applications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleEvaluator(t *testing.T) {
	rules, err := NewRuleEvaluator()
	require.NoError(t, err)

	vars := map[string]any{"userRating": 4.5, "ratingCount": int64(3), "gigCategory": "events"}
	tests := []struct {
		name    string
		expr    string
		want    bool
		wantErr bool
	}{
		{name: "empty rule passes", expr: "  ", want: true},
		{name: "rating threshold", expr: "ctx.userRating >= 4.0", want: true},
		{name: "count threshold", expr: "ctx.ratingCount >= 5", want: false},
		{name: "string compare", expr: `ctx.gigCategory == "events" && ctx.userRating > 4.0`, want: true},
		{name: "syntax error", expr: "ctx.userRating >=", wantErr: true},
		{name: "non bool output", expr: `"yes"`, wantErr: true},
		{name: "missing key", expr: "ctx.unknown > 1", wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := rules.Eval(tc.expr, vars)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRuleEvaluatorCachesPrograms(t *testing.T) {
	rules, err := NewRuleEvaluator()
	require.NoError(t, err)
	require.NoError(t, rules.Compile("ctx.userRating >= 1.0"))
	_, ok := rules.cache.Load("ctx.userRating >= 1.0")
	assert.True(t, ok)
	assert.Error(t, rules.Compile("ctx.userRating +"))
}
