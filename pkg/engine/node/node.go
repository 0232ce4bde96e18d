package node

import (
	"context"
	"log/slog"
	"slices"

	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
	"github.com/voxflow/voxflow/pkg/common/validation"
)

// Values maps port names to port values.
type Values map[string]any

// Clone returns a shallow copy of the values.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Runtime is the per-execution environment handed to an Interface.
type Runtime struct {
	// Dir is the instance's output directory. It exists before Run is called
	// and is unique per branch, so interfaces can write files without
	// worrying about parameter values colliding.
	Dir string

	// Logger is a structured logger scoped to the executing instance.
	Logger *slog.Logger
}

// Interface is the contract a processing step implements.
//
// InputNames and OutputNames declare the named ports the step consumes and
// produces; Run receives every declared input resolved (static values,
// swept parameter values, and upstream outputs merged) and must return a
// value for every declared output.
type Interface interface {
	InputNames() []string
	OutputNames() []string
	Run(ctx context.Context, rt Runtime, in Values) (Values, error)
}

// FuncInterface adapts a function into an Interface.
type FuncInterface struct {
	inputs  []string
	outputs []string
	fn      func(ctx context.Context, rt Runtime, in Values) (Values, error)
}

// NewFunc creates an Interface from a function and its port declarations.
func NewFunc(inputs, outputs []string, fn func(ctx context.Context, rt Runtime, in Values) (Values, error)) *FuncInterface {
	return &FuncInterface{
		inputs:  slices.Clone(inputs),
		outputs: slices.Clone(outputs),
		fn:      fn,
	}
}

// InputNames returns the declared input ports.
func (f *FuncInterface) InputNames() []string { return slices.Clone(f.inputs) }

// OutputNames returns the declared output ports.
func (f *FuncInterface) OutputNames() []string { return slices.Clone(f.outputs) }

// Run invokes the wrapped function.
func (f *FuncInterface) Run(ctx context.Context, rt Runtime, in Values) (Values, error) {
	return f.fn(ctx, rt, in)
}

// Iterable declares a parameter sweep on one input port: the engine expands
// the owning node (and everything downstream of it) once per value.
type Iterable struct {
	Param  string
	Values []any
}

// Node binds an Interface into a workflow under a unique name, carrying
// static input assignments and iterables declarations.
type Node struct {
	name      string
	iface     Interface
	inputs    Values
	iterables []Iterable
}

// New creates a named node wrapping the given interface.
func New(name string, iface Interface) *Node {
	return &Node{
		name:   name,
		iface:  iface,
		inputs: make(Values),
	}
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Interface returns the wrapped processing interface.
func (n *Node) Interface() Interface { return n.iface }

// SetInput assigns a static value to an input port. The assignment is
// checked against the interface's declared ports at validation time.
func (n *Node) SetInput(port string, value any) *Node {
	n.inputs[port] = value
	return n
}

// Iterate declares a list of candidate values for an input port. The engine
// expands the node into one branch per value; multiple Iterate calls on
// different ports multiply into their cartesian product.
func (n *Node) Iterate(param string, values ...any) *Node {
	n.iterables = append(n.iterables, Iterable{Param: param, Values: values})
	return n
}

// Inputs returns a copy of the static input assignments.
func (n *Node) Inputs() Values { return n.inputs.Clone() }

// Iterables returns a copy of the iterables declarations in declaration order.
func (n *Node) Iterables() []Iterable {
	out := make([]Iterable, len(n.iterables))
	for i, it := range n.iterables {
		out[i] = Iterable{Param: it.Param, Values: slices.Clone(it.Values)}
	}
	return out
}

// Validate checks the node's construction: a path-safe name, a non-nil
// interface, and static inputs and iterables that refer to declared ports.
func (n *Node) Validate() error {
	if err := validation.ValidateIdentifier("node", "name", n.name); err != nil {
		return err
	}
	if n.iface == nil {
		return vferrors.NewValidationError("node", "interface", nil, "cannot be nil").
			WithHint("wrap a processing interface with node.New")
	}

	declared := n.iface.InputNames()
	for port := range n.inputs {
		if !slices.Contains(declared, port) {
			return vferrors.NewValidationError("node", "input", port, "not declared by interface").
				WithHint("declared inputs: " + joinNames(declared))
		}
	}

	seen := make(map[string]bool, len(n.iterables))
	for _, it := range n.iterables {
		if err := validation.ValidateIdentifier("node", "iterable", it.Param); err != nil {
			return err
		}
		if !slices.Contains(declared, it.Param) {
			return vferrors.NewValidationError("node", "iterable", it.Param, "not declared by interface").
				WithHint("declared inputs: " + joinNames(declared))
		}
		if len(it.Values) == 0 {
			return vferrors.NewValidationError("node", "iterable", it.Param, "has no values").
				WithHint("supply at least one candidate value")
		}
		if seen[it.Param] {
			return vferrors.NewValidationError("node", "iterable", it.Param, "declared twice")
		}
		if _, static := n.inputs[it.Param]; static {
			return vferrors.NewValidationError("node", "iterable", it.Param, "also has a static input").
				WithHint("a port is either swept or fixed, not both")
		}
		seen[it.Param] = true
	}

	return nil
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
