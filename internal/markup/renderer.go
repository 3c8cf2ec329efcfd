package markup

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/leapstack-labs/leapstory/internal/macro"
	starctx "github.com/leapstack-labs/leapstory/internal/starlark"
	"go.starlark.net/starlark"
)

// DefaultMaxIterations is the default expansion budget of one render pass.
const DefaultMaxIterations = 1000

// Renderer expands markup by dispatching macro invocations to the handlers
// of a registry. A Renderer is not safe for concurrent use: a render pass
// is a synchronous tree of nested Render calls sharing one budget.
type Renderer struct {
	registry      *macro.Registry
	eval          macro.Evaluator
	logger        *slog.Logger
	maxIterations int
	nobr          bool
	env           *macro.Env

	depth int // nesting depth of the current pass; 0 between passes
	count int // nested renders performed by the current pass
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithPassages sets the passage source used by <<include>>.
func WithPassages(passages macro.PassageSource) RendererOption {
	return func(r *Renderer) {
		r.env.Passages = passages
	}
}

// WithLogger sets the logger handed to handlers.
func WithLogger(logger *slog.Logger) RendererOption {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxIterations bounds the nested renders of one pass.
func WithMaxIterations(n int) RendererOption {
	return func(r *Renderer) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithNobr collapses line breaks in rendered text into single spaces.
func WithNobr(nobr bool) RendererOption {
	return func(r *Renderer) {
		r.nobr = nobr
	}
}

// NewRenderer creates a renderer dispatching through registry and
// evaluating expressions with eval.
func NewRenderer(registry *macro.Registry, eval macro.Evaluator, opts ...RendererOption) *Renderer {
	r := &Renderer{
		registry:      registry,
		eval:          eval,
		logger:        slog.New(slog.DiscardHandler),
		maxIterations: DefaultMaxIterations,
		env:           &macro.Env{Eval: eval},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.env.Renderer = r
	r.env.Logger = r.logger
	return r
}

// RenderString renders a complete passage in a fresh pass.
func (r *Renderer) RenderString(src, file string) *macro.Output {
	out := macro.NewOutput()
	// A top-level call never exceeds the budget.
	_ = r.Render(src, Position{File: file, Line: 1, Column: 1}, out)
	return out
}

// Render expands src into out. A call made while a pass is running counts
// against the pass budget and fails with a limit Error once it is spent;
// failed invocations inside src become error markers in out.
func (r *Renderer) Render(src string, pos Position, out *macro.Output) error {
	if r.depth == 0 {
		r.count = 0
	} else {
		r.count++
		if r.count > r.maxIterations {
			return macro.LimitError(r.maxIterations)
		}
	}

	r.depth++
	defer func() { r.depth-- }()

	doc := Parse(src, pos, r.registry)
	for _, n := range doc.Nodes {
		r.renderNode(n, out)
	}
	return nil
}

func (r *Renderer) renderNode(n Node, out *macro.Output) {
	switch node := n.(type) {
	case *TextNode:
		if r.nobr {
			out.WriteString(Nobr(node.Text))
		} else {
			out.WriteString(node.Text)
		}
	case *BadNode:
		r.logger.Debug("malformed markup", "pos", node.Pos().String(), "error", node.Err.Error())
		out.WriteError(node.Err)
	case *MacroNode:
		r.invoke(node, out)
	}
}

// invoke evaluates the arguments of an invocation and runs its handler.
func (r *Renderer) invoke(node *MacroNode, out *macro.Output) {
	def, ok := r.registry.Lookup(node.Name)
	if !ok {
		out.WriteError(&macro.Error{
			Kind:    macro.KindUnknown,
			Message: fmt.Sprintf("macro <<%s>> does not exist", node.Name),
			Source:  node.Source,
			Pos:     node.Pos(),
		})
		return
	}

	inv := &macro.Invocation{
		Name:    node.Name,
		Args:    macro.Args{Raw: node.Args},
		Clauses: node.Clauses,
		Source:  node.Source,
		Pos:     node.Pos(),
		Env:     r.env,
	}

	if err := r.evalArgs(def, inv); err != nil {
		out.WriteError(err)
		return
	}

	if err := r.call(def, inv, out); err != nil {
		merr := macro.AsError(inv, err)
		r.logger.Debug("macro failed",
			"macro", inv.Name,
			"pos", inv.Pos.String(),
			"kind", merr.Kind.String(),
			"error", merr.Message,
		)
		out.WriteError(merr)
	}
}

// evalArgs evaluates the argument text of every clause that its
// definition does not skip. The primary clause shares inv.Args.
func (r *Renderer) evalArgs(def *macro.Definition, inv *macro.Invocation) *macro.Error {
	if len(inv.Clauses) == 0 {
		if def.Skips(def.Name) {
			return nil
		}
		values, err := r.evalArgText(inv.Args.Raw, inv.Pos)
		if err != nil {
			return inv.EvalError(err, "unable to parse macro arguments: %s", starctx.ErrorMessage(err))
		}
		inv.Args.Values = values
		return nil
	}

	clauses := inv.Clauses
	for i := range clauses {
		c := &clauses[i]
		if def.Skips(c.Name) {
			continue
		}
		values, err := r.evalArgText(c.Args.Raw, c.MarkerPos)
		if err != nil {
			return inv.EvalError(err, "unable to parse arguments of <<%s>> (#%d): %s", c.Name, i, starctx.ErrorMessage(err))
		}
		c.Args.Values = values
	}
	inv.Args = clauses[0].Args
	return nil
}

func (r *Renderer) evalArgText(raw string, pos Position) ([]starlark.Value, error) {
	if r.eval == nil {
		return nil, nil
	}
	return r.eval.EvalArgs(raw, pos.File, pos.Line)
}

// call runs a handler, converting a panic into an internal Error.
func (r *Renderer) call(def *macro.Definition, inv *macro.Invocation, out *macro.Output) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = macro.NewError(macro.KindInternal, inv.Name, fmt.Sprintf("internal error: %v", p))
		}
	}()
	return def.Handler.Handle(inv, out)
}

var lineBreaks = regexp.MustCompile(`\n+`)

// Nobr collapses runs of line breaks into single spaces.
func Nobr(text string) string {
	return lineBreaks.ReplaceAllString(text, " ")
}
