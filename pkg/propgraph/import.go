package propgraph

import (
	"github.com/google/uuid"

	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/graphml"
)

// FromDocument builds a store from a decoded document, validating
// structural integrity: every edge endpoint must reference a decoded node
// and no GUID may appear twice. The id parameter overrides the document's
// graph identifier; pass empty to keep it, and a fresh identifier is
// assigned when the document has none.
//
// On any failure no store is returned; a partially populated graph is
// never handed back.
func FromDocument(doc *graphml.Document, id string) (*Store, error) {
	if id == "" {
		id = doc.ID
	}
	if id == "" {
		id = uuid.NewString()
	}

	s := New(id)
	for _, n := range doc.Nodes {
		if err := s.AddNode(n.GUID, Class(n.Class), Props(n.Props)); err != nil {
			return nil, errors.Wrap(errors.ErrCodeGraphIntegrity, err, "import node %s", n.GUID)
		}
	}
	for _, e := range doc.Edges {
		if err := s.AddEdge(e.GUID, EdgeKind(e.Kind), e.From, e.To, Props(e.Props)); err != nil {
			if errors.Is(err, errors.ErrCodeNotFound) {
				return nil, errors.Wrap(errors.ErrCodeGraphIntegrity, err, "edge %s references a missing node", e.GUID)
			}
			return nil, errors.Wrap(errors.ErrCodeGraphIntegrity, err, "import edge %s", e.GUID)
		}
	}
	return s, nil
}

// ImportString decodes a serialized graph and builds a validated store,
// preserving the payload's graph identifier (or assigning a fresh one when
// absent).
func ImportString(payload string) (*Store, error) {
	return ImportStringWithID(payload, "")
}

// ImportStringWithID decodes a serialized graph and builds a validated
// store under the given graph identifier. Re-identifying an imported graph
// is how an authoring script clones a published model before modifying it.
func ImportStringWithID(payload, id string) (*Store, error) {
	doc, err := graphml.Unmarshal([]byte(payload))
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, id)
}

// ImportFile reads a serialized graph from a file and builds a validated
// store.
func ImportFile(path string) (*Store, error) {
	doc, err := graphml.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, "")
}

// ToDocument exports the store's live nodes and edges, in insertion order,
// as a document ready for serialization.
func (s *Store) ToDocument() *graphml.Document {
	doc := &graphml.Document{ID: s.ID()}
	for _, n := range s.Nodes() {
		doc.Nodes = append(doc.Nodes, graphml.Node{
			GUID:  n.GUID,
			Class: string(n.Class),
			Props: n.Props,
		})
	}
	for _, e := range s.Edges() {
		doc.Edges = append(doc.Edges, graphml.Edge{
			GUID:  e.GUID,
			Kind:  string(e.Kind),
			From:  e.From,
			To:    e.To,
			Props: e.Props,
		})
	}
	return doc
}
