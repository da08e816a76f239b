package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Validate checks every registered kind: parameter names must be usable in
// reference paths, and every default must be representable as an expression
// value of the declared type.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, kind := range r.Kinds() {
		t, _ := r.Lookup(kind)
		if t.MaxInputs < 0 {
			errs = append(errs, fmt.Sprintf("kind '%s': max inputs must not be negative", kind))
		}

		seen := make(map[string]struct{}, len(t.Params))
		for _, p := range t.Params {
			if !nodeid.IsValidName(p.Name) {
				errs = append(errs, fmt.Sprintf("kind '%s': parameter name '%s' is not a valid path segment", kind, p.Name))
				continue
			}
			if _, dup := seen[p.Name]; dup {
				errs = append(errs, fmt.Sprintf("kind '%s': parameter '%s' declared twice", kind, p.Name))
				continue
			}
			seen[p.Name] = struct{}{}

			if p.Default == nil {
				continue
			}
			implied, err := gocty.ImpliedType(p.Default)
			if err != nil {
				errs = append(errs, fmt.Sprintf("kind '%s', parameter '%s': could not imply cty type from default %T: %v", kind, p.Name, p.Default, err))
				continue
			}
			if p.Type == cty.NilType || p.Type.Equals(cty.DynamicPseudoType) {
				logger.Debug("Parameter accepts any type.", "kind", kind, "param", p.Name)
				continue
			}
			// GetConversion is nil for identical types as well.
			if !implied.Equals(p.Type) && convert.GetConversion(implied, p.Type) == nil {
				errs = append(errs, fmt.Sprintf("kind '%s', parameter '%s': default of type '%s' does not convert to '%s'",
					kind, p.Name, implied.FriendlyName(), p.Type.FriendlyName()))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}
