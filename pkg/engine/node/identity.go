package node

import (
	"context"
	"slices"
)

// identity is a pass-through interface: every declared field is both an
// input and an output, echoed unchanged.
type identity struct {
	fields []string
}

// Identity creates an identity mapping interface over the given fields.
// It performs no computation; its only purpose is to inject named parameter
// values into a pipeline, typically combined with Iterate:
//
//	infosource := node.New("infosource", node.Identity("subject_id"))
//	infosource.Iterate("subject_id", "sub01", "sub02", "sub03")
func Identity(fields ...string) Interface {
	return &identity{fields: slices.Clone(fields)}
}

// InputNames returns the identity fields.
func (id *identity) InputNames() []string { return slices.Clone(id.fields) }

// OutputNames returns the identity fields.
func (id *identity) OutputNames() []string { return slices.Clone(id.fields) }

// Run echoes every field from input to output.
func (id *identity) Run(_ context.Context, _ Runtime, in Values) (Values, error) {
	out := make(Values, len(id.fields))
	for _, f := range id.fields {
		out[f] = in[f]
	}
	return out, nil
}
