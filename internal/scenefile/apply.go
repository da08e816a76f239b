package scenefile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/scene"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

const (
	expressionAttr = "__expression"
	nodeBlockType  = "node"
)

// expressionType is what expr("...") evaluates to. Parameters receiving a value
// of this type get an expression instead of a literal.
var expressionType = cty.Object(map[string]cty.Type{expressionAttr: cty.String})

var exprFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "source", Type: cty.String},
	},
	Type: function.StaticReturnType(expressionType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.ObjectVal(map[string]cty.Value{expressionAttr: args[0]}), nil
	},
})

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{"expr": exprFunc},
	}
}

// wiring is an inputs list waiting for every node to exist.
type wiring struct {
	node   *scene.Node
	inputs []string
	rng    hcl.Range
}

// Apply creates the document's nodes in s. All edits happen inside one batch,
// so the scene cooks once when Apply returns. Errors are collected; a node
// whose block failed is skipped along with its children.
func (d *Document) Apply(ctx context.Context, s *scene.Scene) error {
	logger := ctxlog.FromContext(ctx)
	var wires []wiring

	err := s.Batch(ctx, func() error {
		var errs []error
		evalCtx := evalContext()
		for _, block := range d.nodes {
			errs = append(errs, d.create(ctx, s, evalCtx, s.Root(), block, &wires)...)
		}
		for _, w := range wires {
			if err := w.apply(ctx, s); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	if pending := s.PendingReferences(); pending > 0 {
		logger.Warn("Scene has unresolved references after load.", "count", pending)
	}
	if err != nil {
		return err
	}
	logger.Info("Scene loaded.", "nodes", d.NodeCount(), "files", len(d.Files))
	return nil
}

func (d *Document) create(ctx context.Context, s *scene.Scene, evalCtx *hcl.EvalContext, parent *scene.Node, block *hclNode, wires *[]wiring) []error {
	if slices.ContainsFunc(parent.Children(), func(c *scene.Node) bool { return c.Name() == block.Name }) {
		return []error{fmt.Errorf("%s: node %q is declared twice under %s", block.DefRange, block.Name, parent.Path())}
	}
	n, err := s.CreateNode(ctx, parent, block.Kind, block.Name)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", block.DefRange, err)}
	}

	errs := setParams(ctx, n, evalCtx, block.Remain)
	if len(block.Inputs) > 0 {
		*wires = append(*wires, wiring{node: n, inputs: block.Inputs, rng: block.DefRange})
	}
	for _, child := range block.Nodes {
		errs = append(errs, d.create(ctx, s, evalCtx, n, child, wires)...)
	}
	return errs
}

func setParams(ctx context.Context, n *scene.Node, evalCtx *hcl.EvalContext, body hcl.Body) []error {
	attrs, diags := justAttributes(body)
	if diags.HasErrors() {
		return []error{diags}
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	slices.Sort(names)

	var errs []error
	for _, name := range names {
		attr := attrs[name]
		p, ok := n.Param(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %s node %s has no parameter %q", attr.NameRange, n.Kind(), n.Path(), name))
			continue
		}
		v, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			errs = append(errs, diags)
			continue
		}
		if v.Type().Equals(expressionType) {
			src := v.GetAttr(expressionAttr)
			if src.IsNull() {
				errs = append(errs, fmt.Errorf("%s: expression source must not be null", attr.Range))
				continue
			}
			if err := p.SetExpression(ctx, src.AsString()); err != nil {
				errs = append(errs, fmt.Errorf("%s: %s/%s: %w", attr.Range, n.Path(), name, err))
			}
			continue
		}
		if err := p.Set(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %s/%s: %w", attr.Range, n.Path(), name, err))
		}
	}
	return errs
}

// justAttributes returns the body's attributes, allowing the child node
// blocks that the document schema already decoded. Native syntax bodies
// report any block from JustAttributes, hidden or not.
func justAttributes(body hcl.Body) (hcl.Attributes, hcl.Diagnostics) {
	attrs, diags := body.JustAttributes()
	syntaxBody, ok := body.(*hclsyntax.Body)
	if !ok {
		return attrs, diags
	}

	var kept hcl.Diagnostics
	for _, diag := range diags {
		if strings.HasPrefix(diag.Summary, "Unexpected ") && strings.HasSuffix(diag.Summary, " block") {
			continue
		}
		kept = append(kept, diag)
	}
	for _, block := range syntaxBody.Blocks {
		if block.Type == nodeBlockType {
			continue
		}
		kept = append(kept, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Unexpected %q block", block.Type),
			Detail:   fmt.Sprintf("Only %q blocks are allowed inside a node.", nodeBlockType),
			Subject:  block.TypeRange.Ptr(),
		})
	}
	return attrs, kept
}

func (w wiring) apply(ctx context.Context, s *scene.Scene) error {
	var errs []error
	for i, path := range w.inputs {
		if path == "" {
			continue
		}
		src, ok := s.Lookup(inputPath(w.node.Parent(), path))
		if !ok {
			errs = append(errs, fmt.Errorf("%s: input %d of %s: no node at %q", w.rng, i, w.node.Path(), path))
			continue
		}
		if err := s.SetInput(ctx, w.node, i, src); err != nil {
			errs = append(errs, fmt.Errorf("%s: input %d of %s: %w", w.rng, i, w.node.Path(), err))
		}
	}
	return errors.Join(errs...)
}

// inputPath makes path absolute. Relative paths start at parent.
func inputPath(parent *scene.Node, path string) string {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "#") {
		return path
	}
	return strings.TrimSuffix(parent.Path(), "/") + "/" + path
}
