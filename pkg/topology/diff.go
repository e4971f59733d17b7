package topology

import (
	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/merge"
)

// Diff computes the edit script transforming this topology into other.
// Both must model the same graph: re-running an authoring script against a
// published model yields a revised graph under the same identifier, and
// the returned plan applied to this topology's store brings it up to date.
func (t *Topology) Diff(other *Topology) (*merge.Plan, error) {
	if t.GraphID() != other.GraphID() {
		return nil, errors.New(errors.ErrCodeValidation,
			"cannot diff distinct graphs %s and %s; load the revision under the published identifier",
			t.GraphID(), other.GraphID())
	}
	return merge.Diff(t.store, other.store), nil
}

// Update applies an edit script to the topology as one atomic operation,
// then re-validates the domain invariants. Validation failure is reported
// but the script stays applied; callers diff against graphs they authored
// through a facade, so an invalid result indicates the revision itself was
// invalid.
func (t *Topology) Update(plan *merge.Plan) error {
	if err := merge.Apply(t.store, plan); err != nil {
		return err
	}
	return t.Validate()
}
