package propgraph

import (
	"testing"

	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/graphml"
)

func TestImportRoundTrip(t *testing.T) {
	s := buildFixture(t)
	doc := s.ToDocument()

	got, err := FromDocument(doc, "")
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if got.ID() != "g1" {
		t.Errorf("ID = %q, want g1", got.ID())
	}
	if len(got.Nodes()) != len(s.Nodes()) || len(got.Edges()) != len(s.Edges()) {
		t.Errorf("imported %d nodes, %d edges; want %d, %d",
			len(got.Nodes()), len(got.Edges()), len(s.Nodes()), len(s.Edges()))
	}
	for _, n := range s.Nodes() {
		if !got.Contains(n.GUID) {
			t.Errorf("node %s lost in round trip", n.GUID)
		}
	}
}

func TestImportIDOverride(t *testing.T) {
	doc := &graphml.Document{
		ID:    "published",
		Nodes: []graphml.Node{{GUID: "n1", Class: "NetworkNode", Props: map[string]string{"Name": "n1"}}},
	}
	got, err := FromDocument(doc, "clone-id")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID() != "clone-id" {
		t.Errorf("ID = %q, want clone-id", got.ID())
	}

	// Without an ID anywhere a fresh one is assigned.
	doc.ID = ""
	got, err = FromDocument(doc, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID() == "" {
		t.Error("imported graph has no identifier")
	}
}

func TestImportDanglingReference(t *testing.T) {
	doc := &graphml.Document{
		ID:    "g",
		Nodes: []graphml.Node{{GUID: "a", Class: "Link"}},
		Edges: []graphml.Edge{{GUID: "e", Kind: "connects", From: "a", To: "ghost"}},
	}
	if _, err := FromDocument(doc, ""); !errors.Is(err, errors.ErrCodeGraphIntegrity) {
		t.Errorf("dangling reference: %v", err)
	}
}

func TestImportDuplicateGUID(t *testing.T) {
	doc := &graphml.Document{
		ID: "g",
		Nodes: []graphml.Node{
			{GUID: "a", Class: "Link"},
			{GUID: "a", Class: "Interface"},
		},
	}
	if _, err := FromDocument(doc, ""); !errors.Is(err, errors.ErrCodeGraphIntegrity) {
		t.Errorf("duplicate GUID: %v", err)
	}
}

func TestImportString(t *testing.T) {
	s := buildFixture(t)
	data, err := graphml.Marshal(s.ToDocument())
	if err != nil {
		t.Fatal(err)
	}

	got, err := ImportString(string(data))
	if err != nil {
		t.Fatalf("ImportString: %v", err)
	}
	if got.ID() != "g1" || !got.Contains("l1") {
		t.Errorf("imported graph %s missing entities", got.ID())
	}

	reID, err := ImportStringWithID(string(data), "revision")
	if err != nil {
		t.Fatal(err)
	}
	if reID.ID() != "revision" {
		t.Errorf("ID = %q, want revision", reID.ID())
	}
}
