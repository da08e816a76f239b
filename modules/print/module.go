package print

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Cook logs the first input and passes it through unchanged.
func Cook(ctx context.Context, in registry.CookInput) (any, error) {
	logger := ctxlog.FromContext(ctx)

	var value any
	if len(in.Inputs) > 0 {
		value = in.Inputs[0]
	}
	label := registry.Param(in, "label", "")
	if label == "" {
		label = in.Path
	}

	if value == nil {
		logger.Info("Printing input", "label", label, "frame", in.Frame, "value", "(null)")
		return nil, nil
	}
	logger.Info("Printing input", "label", label, "frame", in.Frame, "value", fmt.Sprintf("%v", value))
	return value, nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.NodeType{
		Kind:      "print",
		Doc:       "Logs its input every time it cooks and passes it through.",
		MaxInputs: 1,
		Params: []registry.ParamSpec{
			{Name: "label", Default: "", Type: cty.String, Doc: "Log label, the node path when empty."},
		},
		New: func() registry.Operator { return registry.OperatorFunc(Cook) },
	})
}
