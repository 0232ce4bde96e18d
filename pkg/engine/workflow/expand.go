package workflow

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/voxflow/voxflow/pkg/engine/node"
)

// Assignment binds one swept parameter to a concrete value. Owner is the
// node that declared the iterable; Param is the input port it applies to.
type Assignment struct {
	Owner string
	Param string
	Value any
}

// Branch is a concrete assignment of every swept parameter reaching a node,
// in canonical order (owner insertion order, then declaration order).
type Branch []Assignment

// Dir renders the branch as its on-disk directory name: one `_param_value`
// segment per assignment (e.g. "_subject_id_sub01_fwhm_8"). An empty branch
// renders as "" and adds no directory level.
func (b Branch) Dir() string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, a := range b {
		sb.WriteByte('_')
		sb.WriteString(a.Param)
		sb.WriteByte('_')
		sb.WriteString(formatValue(a.Value))
	}
	return sb.String()
}

// value returns the assigned value for an owner's parameter.
func (b Branch) value(owner, param string) (any, bool) {
	for _, a := range b {
		if a.Owner == owner && a.Param == param {
			return a.Value, true
		}
	}
	return nil, false
}

// subsetOf reports whether every assignment in b also appears in other.
func (b Branch) subsetOf(other Branch) bool {
	for _, a := range b {
		v, ok := other.value(a.Owner, a.Param)
		if !ok || v != a.Value {
			return false
		}
	}
	return true
}

// Instance is one executable clone of a node: the node plus the branch it
// runs under. Expansion produces one instance per value combination of the
// iterables declared on the node and its ancestors.
type Instance struct {
	node   *node.Node
	branch Branch

	deps       []*Instance
	dependents []*Instance
}

// Node returns the node this instance executes.
func (in *Instance) Node() *node.Node { return in.node }

// Branch returns the instance's parameter assignment.
func (in *Instance) Branch() Branch { return in.branch }

// Deps returns the upstream instances this instance waits for.
func (in *Instance) Deps() []*Instance { return in.deps }

// Dependents returns the downstream instances waiting for this instance.
func (in *Instance) Dependents() []*Instance { return in.dependents }

// ID returns a run-unique identifier combining node name and branch.
func (in *Instance) ID() string {
	if dir := in.branch.Dir(); dir != "" {
		return in.node.Name() + dir
	}
	return in.node.Name()
}

// iterDecl is one iterables declaration located in the graph.
type iterDecl struct {
	owner string
	param string
	vals  []any
}

// expand clones the graph into per-branch instances. A node's branch space is
// the cartesian product of the value lists of every iterables declaration on
// the node itself and on its ancestors; an instance depends on the upstream
// instance whose branch is a subset of its own.
func (w *Workflow) expand() ([]*Instance, error) {
	order, err := w.topoOrder()
	if err != nil {
		return nil, err
	}

	// Which iterables declarations reach each node.
	declIndex := make(map[string]int) // insertion index per node, for canonical ordering
	for i, n := range w.nodes {
		declIndex[n.Name()] = i
	}
	sources := make(map[string][]iterDecl, len(order))
	for _, n := range order {
		merged := make([]iterDecl, 0)
		seen := make(map[[2]string]bool)
		add := func(d iterDecl) {
			key := [2]string{d.owner, d.param}
			if !seen[key] {
				seen[key] = true
				merged = append(merged, d)
			}
		}
		for _, up := range w.upstream(n.Name()) {
			for _, d := range sources[up] {
				add(d)
			}
		}
		for _, it := range n.Iterables() {
			add(iterDecl{owner: n.Name(), param: it.Param, vals: it.Values})
		}
		// Canonical order: owner insertion order, then declaration order
		// (already declaration-ordered within an owner; stable sort by owner).
		stableSortDecls(merged, declIndex)
		sources[n.Name()] = merged
	}

	// One instance per value combination, last declaration varying fastest.
	byNode := make(map[string][]*Instance, len(order))
	var all []*Instance
	for _, n := range order {
		decls := sources[n.Name()]
		for _, branch := range combinations(decls) {
			inst := &Instance{node: n, branch: branch}
			byNode[n.Name()] = append(byNode[n.Name()], inst)
			all = append(all, inst)
		}
	}

	// Instance-level edges: upstream branch must be a subset of downstream's.
	for _, n := range order {
		for _, inst := range byNode[n.Name()] {
			for _, up := range w.upstream(n.Name()) {
				matched := false
				for _, upInst := range byNode[up] {
					if upInst.branch.subsetOf(inst.branch) {
						inst.deps = append(inst.deps, upInst)
						upInst.dependents = append(upInst.dependents, inst)
						matched = true
					}
				}
				if !matched {
					return nil, fmt.Errorf("expand %s: no upstream instance of %q matches branch %q", inst.ID(), up, inst.branch.Dir())
				}
			}
		}
	}

	return all, nil
}

// stableSortDecls orders declarations by owner insertion index, preserving
// declaration order within an owner.
func stableSortDecls(decls []iterDecl, index map[string]int) {
	// Insertion sort keeps it stable; decl lists are tiny.
	for i := 1; i < len(decls); i++ {
		for j := i; j > 0 && index[decls[j-1].owner] > index[decls[j].owner]; j-- {
			decls[j-1], decls[j] = decls[j], decls[j-1]
		}
	}
}

// combinations enumerates the cartesian product of the declarations' value
// lists as branches. No declarations yields the single empty branch.
func combinations(decls []iterDecl) []Branch {
	total := 1
	for _, d := range decls {
		total *= len(d.vals)
	}
	out := make([]Branch, 0, total)

	idx := make([]int, len(decls))
	for {
		branch := make(Branch, len(decls))
		for i, d := range decls {
			branch[i] = Assignment{Owner: d.owner, Param: d.param, Value: d.vals[idx[i]]}
		}
		out = append(out, branch)

		// Odometer increment, last position fastest.
		pos := len(decls) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(decls[pos].vals) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return out
}

// formatValue renders a parameter value as a directory-name fragment.
// Integral floats drop their fractional part so fwhm=8.0 reads "_fwhm_8".
func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return sanitizeSegment(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	default:
		return sanitizeSegment(fmt.Sprintf("%v", v))
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return sanitizeSegment(strconv.FormatFloat(f, 'f', -1, 64))
}

// sanitizeSegment replaces path-hostile characters so a branch directory is
// always a single well-formed path component.
func sanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '-' || r == '.' || r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
