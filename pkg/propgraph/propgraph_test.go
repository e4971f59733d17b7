package propgraph

import (
	"testing"

	"github.com/netweave/netweave/pkg/errors"
)

// buildFixture assembles a small valid graph:
//
//	n1 has c1 has i1
//	n2 has c2 has i2
//	l1 connects i1, i2
func buildFixture(t *testing.T) *Store {
	t.Helper()
	s := New("g1")
	for _, n := range []struct {
		guid  string
		class Class
	}{
		{"n1", ClassNetworkNode}, {"c1", ClassComponent}, {"i1", ClassInterface},
		{"n2", ClassNetworkNode}, {"c2", ClassComponent}, {"i2", ClassInterface},
		{"l1", ClassLink},
	} {
		if err := s.AddNode(n.guid, n.class, nil); err != nil {
			t.Fatalf("AddNode(%s): %v", n.guid, err)
		}
	}
	for _, e := range []struct {
		guid, from, to string
		kind           EdgeKind
	}{
		{"h1", "n1", "c1", EdgeHas}, {"h2", "c1", "i1", EdgeHas},
		{"h3", "n2", "c2", EdgeHas}, {"h4", "c2", "i2", EdgeHas},
		{"x1", "l1", "i1", EdgeConnects}, {"x2", "l1", "i2", EdgeConnects},
	} {
		if err := s.AddEdge(e.guid, e.kind, e.from, e.to, nil); err != nil {
			t.Fatalf("AddEdge(%s): %v", e.guid, err)
		}
	}
	return s
}

func TestAddNodeValidation(t *testing.T) {
	s := New("g")
	tests := []struct {
		name  string
		guid  string
		class Class
		code  errors.Code
	}{
		{"empty guid", "", ClassLink, errors.ErrCodeValidation},
		{"unknown class", "x", Class("Router"), errors.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.AddNode(tt.guid, tt.class, nil); !errors.Is(err, tt.code) {
				t.Errorf("AddNode = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestDuplicateGUIDAcrossNodesAndEdges(t *testing.T) {
	s := New("g")
	if err := s.AddNode("a", ClassNetworkNode, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddNode("b", ClassComponent, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddNode("a", ClassLink, nil); !errors.Is(err, errors.ErrCodeGraphIntegrity) {
		t.Errorf("duplicate node GUID: %v", err)
	}
	if err := s.AddEdge("a", EdgeHas, "a", "b", nil); !errors.Is(err, errors.ErrCodeGraphIntegrity) {
		t.Errorf("edge GUID colliding with node GUID: %v", err)
	}
	if err := s.AddEdge("e", EdgeHas, "a", "b", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddNode("e", ClassLink, nil); !errors.Is(err, errors.ErrCodeGraphIntegrity) {
		t.Errorf("node GUID colliding with edge GUID: %v", err)
	}
}

func TestOwnershipForest(t *testing.T) {
	s := New("g")
	for _, g := range []string{"a", "b", "c"} {
		if err := s.AddNode(g, ClassInterface, nil); err != nil {
			t.Fatal(err)
		}
	}
	mustEdge := func(guid, from, to string) {
		t.Helper()
		if err := s.AddEdge(guid, EdgeHas, from, to, nil); err != nil {
			t.Fatalf("AddEdge(%s): %v", guid, err)
		}
	}
	mustEdge("e1", "a", "b")
	mustEdge("e2", "b", "c")

	if err := s.AddEdge("e3", EdgeHas, "a", "a", nil); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("self-ownership: %v", err)
	}
	if err := s.AddEdge("e4", EdgeHas, "a", "c", nil); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("second owner: %v", err)
	}
	if err := s.AddEdge("e5", EdgeHas, "c", "a", nil); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("ownership cycle: %v", err)
	}

	owner, err := s.Owner("c")
	if err != nil || owner != "b" {
		t.Errorf("Owner(c) = %q, %v", owner, err)
	}
	owner, err = s.Owner("a")
	if err != nil || owner != "" {
		t.Errorf("Owner(a) = %q, %v; roots have no owner", owner, err)
	}
}

func TestAddEdgeMissingEndpoint(t *testing.T) {
	s := New("g")
	if err := s.AddNode("a", ClassLink, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddEdge("e", EdgeConnects, "a", "ghost", nil); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing target: %v", err)
	}
	if err := s.AddEdge("e", EdgeConnects, "ghost", "a", nil); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing source: %v", err)
	}
	// Failed adds must leave no trace.
	if len(s.Edges()) != 0 {
		t.Error("failed AddEdge left an edge behind")
	}
}

func TestRemoveNodeNonCascade(t *testing.T) {
	s := buildFixture(t)

	if err := s.RemoveNode("c1", false); !errors.Is(err, errors.ErrCodeGraphIntegrity) {
		t.Errorf("removing owner of children without cascade: %v", err)
	}
	if err := s.RemoveNode("i1", false); !errors.Is(err, errors.ErrCodeGraphIntegrity) {
		t.Errorf("removing a connected interface without cascade: %v", err)
	}
	if !s.Contains("c1") || !s.Contains("i1") {
		t.Error("failed removals mutated the store")
	}

	// A leaf with no connections removes cleanly, taking its incoming
	// ownership edge with it.
	if err := s.RemoveEdge("x2"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveNode("i2", false); err != nil {
		t.Fatalf("RemoveNode(i2): %v", err)
	}
	if s.Contains("i2") || s.Contains("h4") {
		t.Error("leaf removal left the node or its ownership edge")
	}
}

func TestRemoveNodeCascadeCollapsesLink(t *testing.T) {
	s := buildFixture(t)

	if err := s.RemoveNode("n1", true); err != nil {
		t.Fatalf("RemoveNode(n1): %v", err)
	}
	for _, gone := range []string{"n1", "c1", "i1", "h1", "h2", "x1"} {
		if s.Contains(gone) {
			t.Errorf("%s survived the cascade", gone)
		}
	}
	// The link dropped to one endpoint, below the default minimum of 2.
	if s.Contains("l1") || s.Contains("x2") {
		t.Error("link below endpoint minimum survived")
	}
	// The other branch is untouched.
	for _, kept := range []string{"n2", "c2", "i2", "h3", "h4"} {
		if !s.Contains(kept) {
			t.Errorf("%s was removed but is outside the cascade", kept)
		}
	}
}

func TestRemoveNodeCascadeLinkRule(t *testing.T) {
	s := buildFixture(t)
	// With a minimum of 1 the link survives on its remaining endpoint.
	s.SetLinkRule(func(Props) int { return 1 })

	if err := s.RemoveNode("n1", true); err != nil {
		t.Fatal(err)
	}
	if !s.Contains("l1") || !s.Contains("x2") {
		t.Error("link with one endpoint should survive under min=1 rule")
	}
	if s.Contains("x1") {
		t.Error("connection edge to a removed interface survived")
	}
}

func TestNeighbors(t *testing.T) {
	s := buildFixture(t)

	got, err := s.Neighbors("l1", EdgeConnects, Out)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "i1" || got[1] != "i2" {
		t.Errorf("Neighbors(l1, connects, out) = %v", got)
	}

	got, err = s.Neighbors("i1", EdgeConnects, In)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "l1" {
		t.Errorf("Neighbors(i1, connects, in) = %v", got)
	}

	got, err = s.Neighbors("c1", EdgeHas, Both)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("Neighbors(c1, has, both) = %v", got)
	}

	if _, err := s.Neighbors("ghost", EdgeHas, Out); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Neighbors of missing node: %v", err)
	}
}

func TestSetAndReplaceProps(t *testing.T) {
	s := buildFixture(t)

	if err := s.SetNodeProps("n1", Props{"Site": "RENC"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetNodeProps("n1", Props{"Name": "node-one"}); err != nil {
		t.Fatal(err)
	}
	props, _ := s.NodeProps("n1")
	if props["Site"] != "RENC" || props["Name"] != "node-one" {
		t.Errorf("merged props = %v", props)
	}

	if err := s.ReplaceNodeProps("n1", Props{"Name": "replaced"}); err != nil {
		t.Fatal(err)
	}
	props, _ = s.NodeProps("n1")
	if len(props) != 1 || props["Name"] != "replaced" {
		t.Errorf("replaced props = %v", props)
	}
}

func TestCloneIsolation(t *testing.T) {
	s := buildFixture(t)
	c := s.Clone()

	if err := c.RemoveNode("n1", true); err != nil {
		t.Fatal(err)
	}
	if err := c.SetNodeProps("n2", Props{"Site": "UKY"}); err != nil {
		t.Fatal(err)
	}

	if !s.Contains("n1") || !s.Contains("l1") {
		t.Error("mutating the clone changed the original")
	}
	props, _ := s.NodeProps("n2")
	if props["Site"] == "UKY" {
		t.Error("clone shares property maps with the original")
	}
}

func TestReplaceContents(t *testing.T) {
	s := buildFixture(t)
	c := s.Clone()
	if err := c.RemoveNode("n1", true); err != nil {
		t.Fatal(err)
	}

	s.ReplaceContents(c)
	if s.Contains("n1") {
		t.Error("ReplaceContents did not take the clone's state")
	}
	if !s.Contains("n2") {
		t.Error("ReplaceContents lost surviving entities")
	}
}

func TestViewsAreCopies(t *testing.T) {
	s := buildFixture(t)
	if err := s.SetNodeProps("n1", Props{"Name": "n1"}); err != nil {
		t.Fatal(err)
	}
	v, err := s.Node("n1")
	if err != nil {
		t.Fatal(err)
	}
	v.Props["Name"] = "tampered"
	props, _ := s.NodeProps("n1")
	if props["Name"] != "n1" {
		t.Error("mutating a view changed the store")
	}
}
