package workflow

import (
	"fmt"
	"slices"

	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
	"github.com/voxflow/voxflow/pkg/common/validation"
	"github.com/voxflow/voxflow/pkg/engine/node"
)

// Connection wires a named output port of one node to a named input port of
// another.
type Connection struct {
	SrcNode string
	SrcPort string
	DstNode string
	DstPort string
}

// Workflow is a container for a directed acyclic graph of processing nodes.
// Nodes are added with Add, wired with Connect, and executed with Run.
type Workflow struct {
	name    string
	workdir string

	nodes   []*node.Node
	byName  map[string]*node.Node
	conns   []Connection
	inbound map[string]map[string]Connection // dst node -> dst port -> conn
}

// New creates a workflow. Run writes all outputs under workdir/<name>/.
func New(name, workdir string) *Workflow {
	return &Workflow{
		name:    name,
		workdir: workdir,
		byName:  make(map[string]*node.Node),
		inbound: make(map[string]map[string]Connection),
	}
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Workdir returns the base working directory.
func (w *Workflow) Workdir() string { return w.workdir }

// Nodes returns the workflow's nodes in insertion order.
func (w *Workflow) Nodes() []*node.Node { return slices.Clone(w.nodes) }

// Connections returns the workflow's connections in insertion order.
func (w *Workflow) Connections() []Connection { return slices.Clone(w.conns) }

// Add registers one or more nodes with the workflow. Adding a node whose
// name is already taken is an error.
func (w *Workflow) Add(nodes ...*node.Node) error {
	for _, n := range nodes {
		if n == nil {
			return vferrors.NewValidationError("workflow", "node", nil, "cannot be nil")
		}
		if err := n.Validate(); err != nil {
			return err
		}
		if _, dup := w.byName[n.Name()]; dup {
			return vferrors.NewValidationError("workflow", "node", n.Name(), "name already taken").
				WithHint("node names must be unique within a workflow")
		}
		w.nodes = append(w.nodes, n)
		w.byName[n.Name()] = n
	}
	return nil
}

// Connect wires srcNode's output port srcPort into dstNode's input port
// dstPort. Both nodes must already be added; ports must be declared by the
// respective interfaces; an input port accepts at most one inbound connection
// and must not also carry a static value or an iterables declaration.
func (w *Workflow) Connect(srcNode, srcPort, dstNode, dstPort string) error {
	src, ok := w.byName[srcNode]
	if !ok {
		return fmt.Errorf("connect %s.%s -> %s.%s: %w %q", srcNode, srcPort, dstNode, dstPort, vferrors.ErrUnknownNode, srcNode)
	}
	dst, ok := w.byName[dstNode]
	if !ok {
		return fmt.Errorf("connect %s.%s -> %s.%s: %w %q", srcNode, srcPort, dstNode, dstPort, vferrors.ErrUnknownNode, dstNode)
	}
	if srcNode == dstNode {
		return fmt.Errorf("connect %s.%s -> %s.%s: %w", srcNode, srcPort, dstNode, dstPort, vferrors.ErrCycle)
	}
	if !slices.Contains(src.Interface().OutputNames(), srcPort) {
		return fmt.Errorf("connect %s.%s -> %s.%s: %w: %q is not an output of %q", srcNode, srcPort, dstNode, dstPort, vferrors.ErrUnknownPort, srcPort, srcNode)
	}
	if !slices.Contains(dst.Interface().InputNames(), dstPort) {
		return fmt.Errorf("connect %s.%s -> %s.%s: %w: %q is not an input of %q", srcNode, srcPort, dstNode, dstPort, vferrors.ErrUnknownPort, dstPort, dstNode)
	}
	if _, taken := w.inbound[dstNode][dstPort]; taken {
		return fmt.Errorf("connect %s.%s -> %s.%s: %w", srcNode, srcPort, dstNode, dstPort, vferrors.ErrPortConnected)
	}
	if _, static := dst.Inputs()[dstPort]; static {
		return fmt.Errorf("connect %s.%s -> %s.%s: %w: %q has a static value", srcNode, srcPort, dstNode, dstPort, vferrors.ErrPortConnected, dstPort)
	}
	for _, it := range dst.Iterables() {
		if it.Param == dstPort {
			return fmt.Errorf("connect %s.%s -> %s.%s: %w: %q is swept by iterables", srcNode, srcPort, dstNode, dstPort, vferrors.ErrPortConnected, dstPort)
		}
	}

	conn := Connection{SrcNode: srcNode, SrcPort: srcPort, DstNode: dstNode, DstPort: dstPort}
	w.conns = append(w.conns, conn)
	if w.inbound[dstNode] == nil {
		w.inbound[dstNode] = make(map[string]Connection)
	}
	w.inbound[dstNode][dstPort] = conn
	return nil
}

// Validate checks the assembled graph: workflow identity, node construction,
// connection conflicts, and acyclicity. Connect rejects conflicts it can see;
// Validate re-checks them because SetInput and Iterate may run after Connect.
func (w *Workflow) Validate() error {
	if err := validation.ValidateIdentifier("workflow", "name", w.name); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("workflow", "workdir", w.workdir); err != nil {
		return err
	}
	for _, n := range w.nodes {
		if err := n.Validate(); err != nil {
			return err
		}
		for port := range w.inbound[n.Name()] {
			if _, static := n.Inputs()[port]; static {
				return fmt.Errorf("workflow %q: %w: %s.%s carries both a connection and a static value",
					w.name, vferrors.ErrPortConnected, n.Name(), port)
			}
			for _, it := range n.Iterables() {
				if it.Param == port {
					return fmt.Errorf("workflow %q: %w: %s.%s carries both a connection and an iterables declaration",
						w.name, vferrors.ErrPortConnected, n.Name(), port)
				}
			}
		}
	}
	if _, err := w.topoOrder(); err != nil {
		return err
	}
	return nil
}

// topoOrder returns the nodes in a stable topological order, or ErrCycle.
// Kahn's algorithm seeded in insertion order keeps the result deterministic.
func (w *Workflow) topoOrder() ([]*node.Node, error) {
	indeg := make(map[string]int, len(w.nodes))
	succ := make(map[string][]string, len(w.nodes))
	for _, c := range w.conns {
		// Parallel edges between the same pair count once.
		if !slices.Contains(succ[c.SrcNode], c.DstNode) {
			succ[c.SrcNode] = append(succ[c.SrcNode], c.DstNode)
			indeg[c.DstNode]++
		}
	}

	var queue []*node.Node
	for _, n := range w.nodes {
		if indeg[n.Name()] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]*node.Node, 0, len(w.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, name := range succ[n.Name()] {
			indeg[name]--
			if indeg[name] == 0 {
				queue = append(queue, w.byName[name])
			}
		}
	}

	if len(order) != len(w.nodes) {
		return nil, fmt.Errorf("workflow %q: %w", w.name, vferrors.ErrCycle)
	}
	return order, nil
}

// upstream returns the distinct direct predecessors of a node, in insertion
// order of the connection list.
func (w *Workflow) upstream(name string) []string {
	var ups []string
	for _, c := range w.conns {
		if c.DstNode == name && !slices.Contains(ups, c.SrcNode) {
			ups = append(ups, c.SrcNode)
		}
	}
	return ups
}
