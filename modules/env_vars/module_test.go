package env_vars

import (
	"context"
	"testing"

	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCook(t *testing.T) {
	t.Setenv("COOKGRAPH_TEST_SHOT", "sh010")

	testCases := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{name: "set", params: map[string]any{"name": "COOKGRAPH_TEST_SHOT", "default": "x"}, want: "sh010"},
		{name: "unset falls back", params: map[string]any{"name": "COOKGRAPH_TEST_UNSET", "default": "x"}, want: "x"},
		{name: "no name", params: map[string]any{"name": "", "default": "y"}, want: "y"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Cook(context.Background(), registry.CookInput{Params: tc.params})
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}
