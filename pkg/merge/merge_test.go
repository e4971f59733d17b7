package merge

import (
	"bytes"
	"testing"

	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/graphml"
	"github.com/netweave/netweave/pkg/propgraph"
)

// buildGraph assembles one NetworkNode owning a GPU component.
func buildGraph(t *testing.T) *propgraph.Store {
	t.Helper()
	s := propgraph.New("adv-1")
	mustNode := func(guid string, class propgraph.Class, props propgraph.Props) {
		t.Helper()
		if err := s.AddNode(guid, class, props); err != nil {
			t.Fatal(err)
		}
	}
	mustNode("n1", propgraph.ClassNetworkNode, propgraph.Props{"Name": "worker1"})
	mustNode("gpu1", propgraph.ClassComponent, propgraph.Props{"Name": "gpu1", "Model": "RTX6000"})
	if err := s.AddEdge("h1", propgraph.EdgeHas, "n1", "gpu1", nil); err != nil {
		t.Fatal(err)
	}
	return s
}

func encode(t *testing.T, s *propgraph.Store) []byte {
	t.Helper()
	data, err := graphml.Marshal(s.ToDocument())
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDiffIdempotence(t *testing.T) {
	g := buildGraph(t)
	plan := Diff(g, g.Clone())
	if !plan.Empty() {
		t.Errorf("diff of identical graphs = %+v", plan)
	}

	before := encode(t, g)
	if err := Apply(g, plan); err != nil {
		t.Fatalf("Apply empty plan: %v", err)
	}
	if !bytes.Equal(before, encode(t, g)) {
		t.Error("empty plan changed the canonical encoding")
	}
}

func TestDiffMinimality(t *testing.T) {
	old := buildGraph(t)
	revised := old.Clone()
	if err := revised.ReplaceNodeProps("gpu1", propgraph.Props{"Name": "gpu1", "Model": "RTX6000Ada"}); err != nil {
		t.Fatal(err)
	}

	plan := Diff(old, revised)
	if len(plan.Conflicts) != 0 {
		t.Fatalf("conflicts = %+v", plan.Conflicts)
	}
	inserts, deletes, updates := plan.Counts()
	if inserts != 0 || deletes != 0 || updates != 1 {
		t.Fatalf("counts = %d/%d/%d, want 0/0/1", inserts, deletes, updates)
	}
	if plan.Ops[0].GUID != "gpu1" || plan.Ops[0].Kind != UpdateNode {
		t.Errorf("op = %+v", plan.Ops[0])
	}

	// Applying the script to a copy of old yields new.
	target := old.Clone()
	if err := Apply(target, plan); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(encode(t, target), encode(t, revised)) {
		t.Error("applied graph differs from the revision")
	}
}

func TestDiffIdentityIsGUIDNotName(t *testing.T) {
	old := buildGraph(t)
	revised := old.Clone()
	// Drop gpu1 and add a new component under a fresh GUID but the same
	// name.
	if err := revised.RemoveNode("gpu1", true); err != nil {
		t.Fatal(err)
	}
	if err := revised.AddNode("gpu2", propgraph.ClassComponent, propgraph.Props{"Name": "gpu1", "Model": "A100"}); err != nil {
		t.Fatal(err)
	}
	if err := revised.AddEdge("h2", propgraph.EdgeHas, "n1", "gpu2", nil); err != nil {
		t.Fatal(err)
	}

	plan := Diff(old, revised)
	if len(plan.Conflicts) != 0 {
		t.Fatalf("conflicts = %+v", plan.Conflicts)
	}

	var dels, ins, upd []string
	for _, op := range plan.Ops {
		switch op.Kind {
		case DeleteNode, DeleteEdge:
			dels = append(dels, op.GUID)
		case InsertNode, InsertEdge:
			ins = append(ins, op.GUID)
		case UpdateNode, UpdateEdge:
			upd = append(upd, op.GUID)
		}
	}
	if len(upd) != 0 {
		t.Errorf("updates = %v; names never match identities", upd)
	}
	if len(dels) != 2 || len(ins) != 2 {
		t.Errorf("deletes = %v, inserts = %v; want gpu1+h1 out, gpu2+h2 in", dels, ins)
	}

	target := old.Clone()
	if err := Apply(target, plan); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if target.Contains("gpu1") || !target.Contains("gpu2") {
		t.Error("apply did not swap the component identity")
	}
}

func TestDiffConflicts(t *testing.T) {
	t.Run("node class change", func(t *testing.T) {
		old := buildGraph(t)
		revised := propgraph.New("adv-1")
		if err := revised.AddNode("n1", propgraph.ClassNetworkNode, propgraph.Props{"Name": "worker1"}); err != nil {
			t.Fatal(err)
		}
		// gpu1's GUID now denotes an Interface.
		if err := revised.AddNode("gpu1", propgraph.ClassInterface, nil); err != nil {
			t.Fatal(err)
		}
		if err := revised.AddEdge("h1", propgraph.EdgeHas, "n1", "gpu1", nil); err != nil {
			t.Fatal(err)
		}

		plan := Diff(old, revised)
		if len(plan.Conflicts) != 1 || plan.Conflicts[0].GUID != "gpu1" {
			t.Fatalf("conflicts = %+v", plan.Conflicts)
		}
		if err := Apply(old.Clone(), plan); !errors.Is(err, errors.ErrCodeMergeConflict) {
			t.Errorf("Apply with conflicts = %v", err)
		}
	})

	t.Run("edge endpoints change", func(t *testing.T) {
		old := buildGraph(t)
		revised := old.Clone()
		if err := revised.AddNode("gpu2", propgraph.ClassComponent, propgraph.Props{"Name": "gpu2"}); err != nil {
			t.Fatal(err)
		}
		if err := revised.RemoveEdge("h1"); err != nil {
			t.Fatal(err)
		}
		// Same edge GUID, different target.
		if err := revised.AddEdge("h1", propgraph.EdgeHas, "n1", "gpu2", nil); err != nil {
			t.Fatal(err)
		}

		plan := Diff(old, revised)
		if len(plan.Conflicts) != 1 || plan.Conflicts[0].GUID != "h1" {
			t.Fatalf("conflicts = %+v", plan.Conflicts)
		}
	})

	t.Run("node becomes edge", func(t *testing.T) {
		old := propgraph.New("g")
		if err := old.AddNode("a", propgraph.ClassNetworkNode, nil); err != nil {
			t.Fatal(err)
		}
		if err := old.AddNode("x", propgraph.ClassComponent, nil); err != nil {
			t.Fatal(err)
		}

		revised := propgraph.New("g")
		if err := revised.AddNode("a", propgraph.ClassNetworkNode, nil); err != nil {
			t.Fatal(err)
		}
		if err := revised.AddNode("b", propgraph.ClassComponent, nil); err != nil {
			t.Fatal(err)
		}
		// GUID x is an edge in the revision.
		if err := revised.AddEdge("x", propgraph.EdgeHas, "a", "b", nil); err != nil {
			t.Fatal(err)
		}

		plan := Diff(old, revised)
		found := false
		for _, c := range plan.Conflicts {
			if c.GUID == "x" {
				found = true
			}
		}
		if !found {
			t.Errorf("no conflict for node-to-edge GUID: %+v", plan.Conflicts)
		}
	})
}

func TestApplyAtomicity(t *testing.T) {
	target := buildGraph(t)
	before := encode(t, target)

	// A plan inserting an edge with a missing endpoint fails partway
	// through the ordered application.
	plan := &Plan{Ops: []Op{
		{Kind: InsertNode, GUID: "n2", Node: &propgraph.NodeView{
			GUID: "n2", Class: propgraph.ClassNetworkNode, Props: propgraph.Props{"Name": "worker2"},
		}},
		{Kind: InsertEdge, GUID: "bad", Edge: &propgraph.EdgeView{
			GUID: "bad", Kind: propgraph.EdgeHas, From: "n2", To: "ghost",
		}},
	}}

	err := Apply(target, plan)
	if !errors.Is(err, errors.ErrCodeMergeConflict) {
		t.Fatalf("Apply = %v", err)
	}
	if !bytes.Equal(before, encode(t, target)) {
		t.Error("failed apply left the target partially mutated")
	}
	if target.Contains("n2") {
		t.Error("inserted node visible after failed apply")
	}
}

func TestApplyDeleteCascadeTolerance(t *testing.T) {
	// Deleting a node and, separately, an edge its cascade already removed
	// must not fail the script.
	old := buildGraph(t)
	revised := old.Clone()
	if err := revised.RemoveNode("gpu1", true); err != nil {
		t.Fatal(err)
	}

	plan := Diff(old, revised)
	target := old.Clone()
	if err := Apply(target, plan); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if target.Contains("gpu1") || target.Contains("h1") {
		t.Error("deletion script left entities behind")
	}
}
