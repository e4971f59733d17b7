// Package graphml implements the lossless text codec for property graphs.
//
// The format is GraphML: every node carries its class tag, GUID, and full
// property map; every edge carries its kind, GUID, endpoint GUIDs, and
// property map. Round-tripping a document through Marshal and Unmarshal
// reproduces the identical set of nodes, edges, properties, and GUIDs.
//
// Property values are strings. Attribute keys are declared up front in
// <key> elements, one per property name, so output is self-describing and
// deterministic: keys are sorted by name, and node/edge order follows the
// document.
//
// The class of a node and the kind of an edge are encoded as the reserved
// attribute names "Class" and "Kind".
package graphml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/netweave/netweave/pkg/errors"
)

// Reserved attribute names used by the codec.
const (
	// ClassAttr is the node attribute carrying the node's class tag.
	ClassAttr = "Class"
	// KindAttr is the edge attribute carrying the edge's kind.
	KindAttr = "Kind"
)

// xmlns is the GraphML namespace written on every document.
const xmlns = "http://graphml.graphdrawing.org/xmlns"

// Document is the neutral decoded form of a serialized graph.
// It is the system's only persisted/on-the-wire artifact: the archive
// stores documents as BSON, the view API serves them as JSON, and the
// property graph store builds from and exports to them.
type Document struct {
	ID    string `json:"id" bson:"id"`
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Node is a serialized graph node.
type Node struct {
	GUID  string            `json:"guid" bson:"guid"`
	Class string            `json:"class" bson:"class"`
	Props map[string]string `json:"props,omitempty" bson:"props,omitempty"`
}

// Edge is a serialized graph edge. From and To reference node GUIDs.
type Edge struct {
	GUID  string            `json:"guid" bson:"guid"`
	Kind  string            `json:"kind" bson:"kind"`
	From  string            `json:"from" bson:"from"`
	To    string            `json:"to" bson:"to"`
	Props map[string]string `json:"props,omitempty" bson:"props,omitempty"`
}

// =============================================================================
// Wire types
// =============================================================================

type xmlGraphML struct {
	XMLName xml.Name `xml:"graphml"`
	Xmlns   string   `xml:"xmlns,attr"`
	Keys    []xmlKey `xml:"key"`
	Graph   xmlGraph `xml:"graph"`
}

type xmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type xmlGraph struct {
	ID          string    `xml:"id,attr"`
	EdgeDefault string    `xml:"edgedefault,attr"`
	Nodes       []xmlNode `xml:"node"`
	Edges       []xmlEdge `xml:"edge"`
}

type xmlNode struct {
	ID   string    `xml:"id,attr"`
	Data []xmlData `xml:"data"`
}

type xmlEdge struct {
	ID     string    `xml:"id,attr"`
	Source string    `xml:"source,attr"`
	Target string    `xml:"target,attr"`
	Data   []xmlData `xml:"data"`
}

type xmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// =============================================================================
// Encoding
// =============================================================================

// Marshal encodes a document as GraphML bytes.
// Attribute keys are declared in sorted order for deterministic output;
// node and edge order follows the document.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes a document as GraphML to w.
func Write(doc *Document, w io.Writer) error {
	nodeKeys := collectKeys(doc, "node")
	edgeKeys := collectKeys(doc, "edge")

	out := xmlGraphML{
		Xmlns: xmlns,
		Graph: xmlGraph{ID: doc.ID, EdgeDefault: "directed"},
	}

	keyID := make(map[[2]string]string)
	for _, k := range nodeKeys {
		id := fmt.Sprintf("d%d", len(out.Keys))
		keyID[[2]string{"node", k}] = id
		out.Keys = append(out.Keys, xmlKey{ID: id, For: "node", Name: k, Type: "string"})
	}
	for _, k := range edgeKeys {
		id := fmt.Sprintf("d%d", len(out.Keys))
		keyID[[2]string{"edge", k}] = id
		out.Keys = append(out.Keys, xmlKey{ID: id, For: "edge", Name: k, Type: "string"})
	}

	for _, n := range doc.Nodes {
		if n.GUID == "" {
			return errors.New(errors.ErrCodeGraphIntegrity, "node with empty GUID")
		}
		xn := xmlNode{ID: n.GUID}
		xn.Data = append(xn.Data, xmlData{Key: keyID[[2]string{"node", ClassAttr}], Value: n.Class})
		for _, k := range sortedKeys(n.Props) {
			xn.Data = append(xn.Data, xmlData{Key: keyID[[2]string{"node", k}], Value: n.Props[k]})
		}
		out.Graph.Nodes = append(out.Graph.Nodes, xn)
	}

	for _, e := range doc.Edges {
		if e.GUID == "" {
			return errors.New(errors.ErrCodeGraphIntegrity, "edge with empty GUID")
		}
		xe := xmlEdge{ID: e.GUID, Source: e.From, Target: e.To}
		xe.Data = append(xe.Data, xmlData{Key: keyID[[2]string{"edge", KindAttr}], Value: e.Kind})
		for _, k := range sortedKeys(e.Props) {
			xe.Data = append(xe.Data, xmlData{Key: keyID[[2]string{"edge", k}], Value: e.Props[k]})
		}
		out.Graph.Edges = append(out.Graph.Edges, xe)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes a document to a GraphML file at path.
// The file is created with 0644 permissions.
func WriteFile(doc *Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(doc, f)
}

func collectKeys(doc *Document, forWhat string) []string {
	seen := map[string]bool{}
	if forWhat == "node" {
		seen[ClassAttr] = true
		for _, n := range doc.Nodes {
			for k := range n.Props {
				seen[k] = true
			}
		}
	} else {
		seen[KindAttr] = true
		for _, e := range doc.Edges {
			for k := range e.Props {
				seen[k] = true
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == ClassAttr || k == KindAttr {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// =============================================================================
// Decoding
// =============================================================================

// Unmarshal decodes GraphML bytes into a document.
//
// Unmarshal returns a GRAPH_INTEGRITY error if:
//   - The XML is malformed
//   - A node or edge has an empty id
//   - A data element references an undeclared key
//   - A node is missing its Class attribute or an edge its Kind attribute
//
// Referential integrity (edge endpoints resolving to decoded nodes) and
// GUID uniqueness are checked by the importer, not the codec.
func Unmarshal(data []byte) (*Document, error) {
	return Read(bytes.NewReader(data))
}

// Read decodes a GraphML document from r.
func Read(r io.Reader) (*Document, error) {
	var in xmlGraphML
	if err := xml.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.Wrap(errors.ErrCodeGraphIntegrity, err, "decode graphml")
	}

	type keyInfo struct{ forWhat, name string }
	keys := make(map[string]keyInfo, len(in.Keys))
	for _, k := range in.Keys {
		keys[k.ID] = keyInfo{forWhat: k.For, name: k.Name}
	}

	doc := &Document{ID: in.Graph.ID}

	for _, xn := range in.Graph.Nodes {
		if xn.ID == "" {
			return nil, errors.New(errors.ErrCodeGraphIntegrity, "node with empty id")
		}
		n := Node{GUID: xn.ID, Props: map[string]string{}}
		for _, d := range xn.Data {
			ki, ok := keys[d.Key]
			if !ok {
				return nil, errors.New(errors.ErrCodeGraphIntegrity, "node %s references undeclared key %q", xn.ID, d.Key)
			}
			if ki.name == ClassAttr {
				n.Class = d.Value
				continue
			}
			n.Props[ki.name] = d.Value
		}
		if n.Class == "" {
			return nil, errors.New(errors.ErrCodeGraphIntegrity, "node %s has no Class attribute", xn.ID)
		}
		if len(n.Props) == 0 {
			n.Props = nil
		}
		doc.Nodes = append(doc.Nodes, n)
	}

	for _, xe := range in.Graph.Edges {
		if xe.ID == "" {
			return nil, errors.New(errors.ErrCodeGraphIntegrity, "edge with empty id")
		}
		e := Edge{GUID: xe.ID, From: xe.Source, To: xe.Target, Props: map[string]string{}}
		for _, d := range xe.Data {
			ki, ok := keys[d.Key]
			if !ok {
				return nil, errors.New(errors.ErrCodeGraphIntegrity, "edge %s references undeclared key %q", xe.ID, d.Key)
			}
			if ki.name == KindAttr {
				e.Kind = d.Value
				continue
			}
			e.Props[ki.name] = d.Value
		}
		if e.Kind == "" {
			return nil, errors.New(errors.ErrCodeGraphIntegrity, "edge %s has no Kind attribute", xe.ID)
		}
		if len(e.Props) == 0 {
			e.Props = nil
		}
		doc.Edges = append(doc.Edges, e)
	}

	return doc, nil
}

// ReadFile reads and decodes a GraphML file.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
