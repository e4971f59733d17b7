// Package merge computes and applies minimal edit scripts between two
// versions of the same property graph.
//
// Identity is GUID-only: an entity present in both versions under the same
// GUID is the same entity, however much its attributes changed, and a
// renamed entity under a fresh GUID is a delete plus an insert. Edges match
// by their own GUID, independent of their endpoints' GUIDs.
//
// Diff never mutates either input. Apply is atomic: the script runs
// against a clone of the target, which replaces the target's contents only
// when every operation succeeded. Readers of the target observe either the
// old graph or the fully updated one.
package merge

import (
	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/propgraph"
)

// OpKind enumerates edit script operations.
type OpKind string

const (
	InsertNode OpKind = "insert-node"
	DeleteNode OpKind = "delete-node"
	UpdateNode OpKind = "update-node"
	InsertEdge OpKind = "insert-edge"
	DeleteEdge OpKind = "delete-edge"
	UpdateEdge OpKind = "update-edge"
)

// Op is one edit operation. Node carries the payload for node inserts and
// updates, Edge for edge inserts and updates; deletes carry only the GUID.
type Op struct {
	Kind OpKind              `json:"kind"`
	GUID string              `json:"guid"`
	Node *propgraph.NodeView `json:"node,omitempty"`
	Edge *propgraph.EdgeView `json:"edge,omitempty"`
}

// Conflict reports a GUID whose two versions cannot be reconciled by an
// update: the entity's type changed, or an edge's endpoints moved.
// Conflicts are surfaced, never coerced; resolving one requires an
// explicit delete plus insert under a fresh GUID.
type Conflict struct {
	GUID   string `json:"guid"`
	Reason string `json:"reason"`
}

// Plan is the outcome of a diff: the edit script plus any conflicts.
// A plan with conflicts cannot be applied.
type Plan struct {
	Ops       []Op       `json:"ops"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Empty reports whether the plan changes nothing and reports no conflicts.
func (p *Plan) Empty() bool { return len(p.Ops) == 0 && len(p.Conflicts) == 0 }

// Counts returns the number of insert, delete, and update operations.
func (p *Plan) Counts() (inserts, deletes, updates int) {
	for _, op := range p.Ops {
		switch op.Kind {
		case InsertNode, InsertEdge:
			inserts++
		case DeleteNode, DeleteEdge:
			deletes++
		case UpdateNode, UpdateEdge:
			updates++
		}
	}
	return
}

// Diff computes the edit script transforming old into new.
//
// Entities are partitioned by GUID: present only in new is an insertion,
// only in old a deletion, in both an update when the attribute maps
// differ. A GUID denoting a node in one version and an edge in the other,
// a node whose class changed, or an edge whose kind or endpoint GUIDs
// changed, is reported as a Conflict.
func Diff(old, new *propgraph.Store) *Plan {
	plan := &Plan{}

	oldNodes := indexNodes(old)
	newNodes := indexNodes(new)
	oldEdges := indexEdges(old)
	newEdges := indexEdges(new)

	// Deletions first, in old's insertion order.
	for _, e := range old.Edges() {
		if _, ok := newEdges[e.GUID]; ok {
			continue
		}
		if _, ok := newNodes[e.GUID]; ok {
			plan.Conflicts = append(plan.Conflicts, Conflict{GUID: e.GUID, Reason: "edge became a node"})
			continue
		}
		plan.Ops = append(plan.Ops, Op{Kind: DeleteEdge, GUID: e.GUID})
	}
	for _, n := range old.Nodes() {
		if _, ok := newNodes[n.GUID]; ok {
			continue
		}
		if _, ok := newEdges[n.GUID]; ok {
			plan.Conflicts = append(plan.Conflicts, Conflict{GUID: n.GUID, Reason: "node became an edge"})
			continue
		}
		plan.Ops = append(plan.Ops, Op{Kind: DeleteNode, GUID: n.GUID})
	}

	// Insertions and updates, in new's insertion order. Nodes precede
	// edges so inserted edges find their endpoints.
	for _, n := range new.Nodes() {
		o, ok := oldNodes[n.GUID]
		if !ok {
			if _, wasEdge := oldEdges[n.GUID]; wasEdge {
				continue // conflict already recorded above
			}
			n := n
			plan.Ops = append(plan.Ops, Op{Kind: InsertNode, GUID: n.GUID, Node: &n})
			continue
		}
		if o.Class != n.Class {
			plan.Conflicts = append(plan.Conflicts, Conflict{
				GUID:   n.GUID,
				Reason: "node class changed from " + string(o.Class) + " to " + string(n.Class),
			})
			continue
		}
		if !o.Props.Equal(n.Props) {
			n := n
			plan.Ops = append(plan.Ops, Op{Kind: UpdateNode, GUID: n.GUID, Node: &n})
		}
	}
	for _, e := range new.Edges() {
		o, ok := oldEdges[e.GUID]
		if !ok {
			if _, wasNode := oldNodes[e.GUID]; wasNode {
				continue
			}
			e := e
			plan.Ops = append(plan.Ops, Op{Kind: InsertEdge, GUID: e.GUID, Edge: &e})
			continue
		}
		if o.Kind != e.Kind {
			plan.Conflicts = append(plan.Conflicts, Conflict{
				GUID:   e.GUID,
				Reason: "edge kind changed from " + string(o.Kind) + " to " + string(e.Kind),
			})
			continue
		}
		if o.From != e.From || o.To != e.To {
			plan.Conflicts = append(plan.Conflicts, Conflict{
				GUID:   e.GUID,
				Reason: "edge endpoints changed",
			})
			continue
		}
		if !o.Props.Equal(e.Props) {
			e := e
			plan.Ops = append(plan.Ops, Op{Kind: UpdateEdge, GUID: e.GUID, Edge: &e})
		}
	}

	return plan
}

// Apply runs the plan against target as one atomic operation. A plan with
// conflicts is rejected with MERGE_CONFLICT. On any operation failure the
// target is left unchanged and the failing operation's error is returned.
func Apply(target *propgraph.Store, plan *Plan) error {
	if len(plan.Conflicts) > 0 {
		return errors.New(errors.ErrCodeMergeConflict,
			"plan has %d unresolved conflicts (first: %s: %s)",
			len(plan.Conflicts), plan.Conflicts[0].GUID, plan.Conflicts[0].Reason)
	}
	if len(plan.Ops) == 0 {
		return nil
	}

	work := target.Clone()

	// Deletes run before inserts so a delete+insert pair under distinct
	// GUIDs never trips duplicate-identity checks mid-script. Edge deletes
	// precede node deletes; node inserts precede edge inserts.
	order := []OpKind{DeleteEdge, DeleteNode, InsertNode, InsertEdge, UpdateNode, UpdateEdge}
	for _, kind := range order {
		for _, op := range plan.Ops {
			if op.Kind != kind {
				continue
			}
			if err := applyOp(work, op); err != nil {
				return errors.Wrap(errors.ErrCodeMergeConflict, err, "apply %s %s", op.Kind, op.GUID)
			}
		}
	}

	target.ReplaceContents(work)
	return nil
}

func applyOp(s *propgraph.Store, op Op) error {
	switch op.Kind {
	case DeleteEdge:
		// The edge may already be gone if a node delete cascaded over it.
		if !s.Contains(op.GUID) {
			return nil
		}
		return s.RemoveEdge(op.GUID)
	case DeleteNode:
		if !s.Contains(op.GUID) {
			return nil
		}
		return s.RemoveNode(op.GUID, true)
	case InsertNode:
		return s.AddNode(op.Node.GUID, op.Node.Class, op.Node.Props)
	case InsertEdge:
		return s.AddEdge(op.Edge.GUID, op.Edge.Kind, op.Edge.From, op.Edge.To, op.Edge.Props)
	case UpdateNode:
		return s.ReplaceNodeProps(op.GUID, op.Node.Props)
	case UpdateEdge:
		return s.ReplaceEdgeProps(op.GUID, op.Edge.Props)
	default:
		return errors.New(errors.ErrCodeInternal, "unknown op kind %q", op.Kind)
	}
}

func indexNodes(s *propgraph.Store) map[string]propgraph.NodeView {
	out := map[string]propgraph.NodeView{}
	for _, n := range s.Nodes() {
		out[n.GUID] = n
	}
	return out
}

func indexEdges(s *propgraph.Store) map[string]propgraph.EdgeView {
	out := map[string]propgraph.EdgeView{}
	for _, e := range s.Edges() {
		out[e.GUID] = e
	}
	return out
}
