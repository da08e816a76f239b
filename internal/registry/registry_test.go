package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func noop() Operator {
	return OperatorFunc(func(context.Context, CookInput) (any, error) { return nil, nil })
}

func TestRegister(t *testing.T) {
	r := New()
	r.Register(&NodeType{Kind: "b", New: noop})
	r.Register(&NodeType{Kind: "a", New: noop, Params: []ParamSpec{{Name: "value", Default: 1.0}}})

	assert.Equal(t, []string{"a", "b"}, r.Kinds())
	nt, ok := r.Lookup("a")
	require.True(t, ok)
	spec, ok := nt.ParamSpec("value")
	require.True(t, ok)
	assert.Equal(t, 1.0, spec.Default)
	_, ok = nt.ParamSpec("missing")
	assert.False(t, ok)

	assert.Panics(t, func() { r.Register(&NodeType{Kind: "a", New: noop}) })
	assert.Panics(t, func() { r.Register(&NodeType{Kind: "c"}) })
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name      string
		params    []ParamSpec
		maxInputs int
		wantErr   string
	}{
		{
			name:   "valid",
			params: []ParamSpec{{Name: "tx", Default: 0.0, Type: cty.Number}, {Name: "label", Default: "x"}},
		},
		{
			name:   "string default on string parameter",
			params: []ParamSpec{{Name: "label", Default: "x", Type: cty.String}},
		},
		{
			name:   "number converts to string",
			params: []ParamSpec{{Name: "label", Default: 3, Type: cty.String}},
		},
		{
			name:    "invalid name",
			params:  []ParamSpec{{Name: "bad-name"}},
			wantErr: "not a valid path segment",
		},
		{
			name:    "duplicate",
			params:  []ParamSpec{{Name: "a"}, {Name: "a"}},
			wantErr: "declared twice",
		},
		{
			name:    "default does not convert",
			params:  []ParamSpec{{Name: "on", Default: []float64{1}, Type: cty.Bool}},
			wantErr: "does not convert",
		},
		{
			name:    "default without cty type",
			params:  []ParamSpec{{Name: "ch", Default: make(chan int)}},
			wantErr: "could not imply cty type",
		},
		{
			name:      "negative inputs",
			maxInputs: -1,
			wantErr:   "max inputs",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New()
			r.Register(&NodeType{Kind: "k", Params: tc.params, MaxInputs: tc.maxInputs, New: noop})
			err := r.Validate(context.Background())
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParam(t *testing.T) {
	in := CookInput{Params: map[string]any{"n": 2.0, "s": "x"}}
	assert.Equal(t, 2.0, Param(in, "n", 0.0))
	assert.Equal(t, 5.0, Param(in, "s", 5.0))
	assert.Equal(t, "d", Param(in, "missing", "d"))
}
