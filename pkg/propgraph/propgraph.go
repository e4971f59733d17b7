// Package propgraph implements the typed property graph store underlying
// all topology models.
//
// Nodes carry a class tag (NetworkNode, Component, Interface, Link), a
// caller-assigned GUID, and a string property map. Edges are either
// ownership edges ("has"), which must form a forest, or connection edges
// ("connects"), which tie Links to Interfaces. GUIDs are unique across all
// nodes and edges of a graph and survive serialization round-trips.
//
// Entities live in insertion-ordered arenas addressed by internal indices;
// a GUID lookup table provides the only external identity. Callers never
// see arena indices, so storage can be reorganized without breaking
// references.
//
// All mutations validate before touching the arenas: on error the store is
// unchanged. A sync.RWMutex gives readers snapshot isolation while the
// merge engine swaps in an updated graph.
package propgraph

import (
	"fmt"
	"sync"

	"github.com/netweave/netweave/pkg/errors"
)

// Class tags the variant of a graph node.
type Class string

// Node classes. The set is closed: behavior differences between classes
// are table lookups in the topology facade, not subtypes.
const (
	ClassNetworkNode Class = "NetworkNode"
	ClassComponent   Class = "Component"
	ClassInterface   Class = "Interface"
	ClassLink        Class = "Link"
)

var validClasses = map[Class]bool{
	ClassNetworkNode: true,
	ClassComponent:   true,
	ClassInterface:   true,
	ClassLink:        true,
}

// EdgeKind distinguishes ownership from connection edges.
type EdgeKind string

const (
	// EdgeHas is an ownership edge: NetworkNode→Component,
	// Component→Interface, or Interface→child Interface.
	// Ownership edges form a forest.
	EdgeHas EdgeKind = "has"
	// EdgeConnects ties a Link to one of its endpoint Interfaces.
	EdgeConnects EdgeKind = "connects"
)

// Direction selects which edges Neighbors follows.
type Direction int

const (
	Out Direction = iota // edges where the node is the source
	In                   // edges where the node is the target
	Both
)

// Props is a node or edge property map. Values are strings; the facade
// validates legal keys per class against its template tables.
type Props map[string]string

// Clone returns a copy of the property map. Nil maps clone to nil.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Equal reports whether two property maps hold the same key-value pairs.
func (p Props) Equal(other Props) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// NodeView is a read-only copy of a node's identity and properties.
type NodeView struct {
	GUID  string
	Class Class
	Props Props
}

// EdgeView is a read-only copy of an edge. From and To are node GUIDs.
type EdgeView struct {
	GUID  string
	Kind  EdgeKind
	From  string
	To    string
	Props Props
}

// LinkRule reports the minimum endpoint count for a Link node with the
// given properties. The topology facade installs its per-type table here
// so cascade removal can collapse links that drop below their minimum.
type LinkRule func(linkProps Props) int

func defaultLinkRule(Props) int { return 2 }

type nodeRec struct {
	guid  string
	class Class
	props Props
	gone  bool
}

type edgeRec struct {
	guid  string
	kind  EdgeKind
	from  int // arena index of source node
	to    int // arena index of target node
	props Props
	gone  bool
}

// Store is a single property graph. The zero value is not usable; use New
// or the import functions.
//
// A Store is safe for concurrent readers. Writers are serialized; a reader
// always observes either the pre-mutation or post-mutation graph.
type Store struct {
	mu sync.RWMutex

	id    string
	nodes []nodeRec
	edges []edgeRec

	nodeByGUID map[string]int
	edgeByGUID map[string]int
	outEdges   map[int][]int // node index -> edge indices, insertion order
	inEdges    map[int][]int

	linkRule LinkRule
}

// New creates an empty store with the given graph identifier.
func New(id string) *Store {
	return &Store{
		id:         id,
		nodeByGUID: make(map[string]int),
		edgeByGUID: make(map[string]int),
		outEdges:   make(map[int][]int),
		inEdges:    make(map[int][]int),
		linkRule:   defaultLinkRule,
	}
}

// ID returns the graph identifier, distinct from any node GUID.
func (s *Store) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// SetLinkRule installs the minimum-endpoint lookup used during cascade
// removal. Passing nil restores the default minimum of 2.
func (s *Store) SetLinkRule(fn LinkRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = defaultLinkRule
	}
	s.linkRule = fn
}

// =============================================================================
// Mutation
// =============================================================================

// AddNode adds a node with the given GUID, class, and properties.
// Returns a GRAPH_INTEGRITY error if the GUID is already present, or a
// VALIDATION error for an empty GUID or unknown class.
func (s *Store) AddNode(guid string, class Class, props Props) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if guid == "" {
		return errors.New(errors.ErrCodeValidation, "node GUID must not be empty")
	}
	if !validClasses[class] {
		return errors.New(errors.ErrCodeValidation, "unknown node class %q", class)
	}
	if s.guidTaken(guid) {
		return errors.New(errors.ErrCodeGraphIntegrity, "duplicate GUID %s", guid)
	}
	s.nodes = append(s.nodes, nodeRec{guid: guid, class: class, props: props.Clone()})
	s.nodeByGUID[guid] = len(s.nodes) - 1
	return nil
}

// AddEdge adds an edge of the given kind between two existing nodes.
//
// Ownership edges are validated against the forest invariant: the target
// must not already have an owner, and the edge must not create a cycle.
// Returns NOT_FOUND if either endpoint is absent, GRAPH_INTEGRITY for a
// duplicate GUID, and VALIDATION for ownership violations.
func (s *Store) AddEdge(guid string, kind EdgeKind, from, to string, props Props) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if guid == "" {
		return errors.New(errors.ErrCodeValidation, "edge GUID must not be empty")
	}
	if kind != EdgeHas && kind != EdgeConnects {
		return errors.New(errors.ErrCodeValidation, "unknown edge kind %q", kind)
	}
	if s.guidTaken(guid) {
		return errors.New(errors.ErrCodeGraphIntegrity, "duplicate GUID %s", guid)
	}
	fi, ok := s.nodeByGUID[from]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "edge source %s not in graph", from)
	}
	ti, ok := s.nodeByGUID[to]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "edge target %s not in graph", to)
	}
	if kind == EdgeHas {
		if fi == ti {
			return errors.New(errors.ErrCodeValidation, "node %s cannot own itself", from)
		}
		if s.ownerOf(ti) >= 0 {
			return errors.New(errors.ErrCodeValidation, "node %s already has an owner", to)
		}
		// Walk up from the source: if we reach the target, the new edge
		// would close an ownership cycle.
		for cur := fi; cur >= 0; cur = s.ownerOf(cur) {
			if cur == ti {
				return errors.New(errors.ErrCodeValidation, "ownership edge %s->%s would create a cycle", from, to)
			}
		}
	}
	s.edges = append(s.edges, edgeRec{guid: guid, kind: kind, from: fi, to: ti, props: props.Clone()})
	ei := len(s.edges) - 1
	s.edgeByGUID[guid] = ei
	s.outEdges[fi] = append(s.outEdges[fi], ei)
	s.inEdges[ti] = append(s.inEdges[ti], ei)
	return nil
}

// RemoveNode removes a node.
//
// With cascade false the node must be a leaf: owning children or serving
// as a Link endpoint is a GRAPH_INTEGRITY error and the store is left
// unchanged. The node's incoming ownership edge, if any, is removed with
// it.
//
// With cascade true the whole ownership subtree is removed, along with
// every connection edge touching it; Link nodes whose endpoint count drops
// below their type's minimum are removed as well.
func (s *Store) RemoveNode(guid string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ni, ok := s.nodeByGUID[guid]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "node %s not in graph", guid)
	}

	if !cascade {
		for _, ei := range s.outEdges[ni] {
			if e := &s.edges[ei]; !e.gone && e.kind == EdgeHas {
				return errors.New(errors.ErrCodeGraphIntegrity, "node %s still owns children", guid)
			}
		}
		for _, ei := range s.touchingEdges(ni) {
			if e := &s.edges[ei]; !e.gone && e.kind == EdgeConnects {
				return errors.New(errors.ErrCodeGraphIntegrity, "node %s is still connected", guid)
			}
		}
		s.dropNode(ni)
		return nil
	}

	// Gather the ownership subtree first so the mutation below cannot fail
	// partway through.
	var subtree []int
	doomed := map[int]bool{}
	s.collectSubtree(ni, doomed, &subtree)

	// Links connected to any doomed interface collapse when their surviving
	// endpoint count falls below the type minimum.
	var collapsed []int
	for _, idx := range subtree {
		for _, ei := range s.touchingEdges(idx) {
			e := &s.edges[ei]
			if e.gone || e.kind != EdgeConnects {
				continue
			}
			li := e.from
			if li == idx {
				li = e.to
			}
			if s.nodes[li].class != ClassLink || doomed[li] {
				continue
			}
			if s.liveEndpoints(li, doomed) < s.linkRule(s.nodes[li].props) {
				doomed[li] = true
				collapsed = append(collapsed, li)
			}
		}
	}

	for _, idx := range append(subtree, collapsed...) {
		s.dropNode(idx)
	}
	return nil
}

// RemoveEdge removes a single edge by GUID. Removing the last ownership
// edge of a node leaves that node unowned; the facade treats such nodes as
// transient and its Validate call flags them if they persist.
func (s *Store) RemoveEdge(guid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ei, ok := s.edgeByGUID[guid]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "edge %s not in graph", guid)
	}
	s.edges[ei].gone = true
	delete(s.edgeByGUID, guid)
	return nil
}

// SetNodeProps merges the given partial property map into a node's
// properties, overwriting existing keys.
func (s *Store) SetNodeProps(guid string, partial Props) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ni, ok := s.nodeByGUID[guid]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "node %s not in graph", guid)
	}
	if s.nodes[ni].props == nil {
		s.nodes[ni].props = Props{}
	}
	for k, v := range partial {
		s.nodes[ni].props[k] = v
	}
	return nil
}

// ReplaceNodeProps swaps a node's entire property map. Used by the merge
// engine when applying update ops, which carry the full new map.
func (s *Store) ReplaceNodeProps(guid string, props Props) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ni, ok := s.nodeByGUID[guid]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "node %s not in graph", guid)
	}
	s.nodes[ni].props = props.Clone()
	return nil
}

// SetEdgeProps merges the given partial property map into an edge's
// properties.
func (s *Store) SetEdgeProps(guid string, partial Props) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ei, ok := s.edgeByGUID[guid]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "edge %s not in graph", guid)
	}
	if s.edges[ei].props == nil {
		s.edges[ei].props = Props{}
	}
	for k, v := range partial {
		s.edges[ei].props[k] = v
	}
	return nil
}

// ReplaceEdgeProps swaps an edge's entire property map.
func (s *Store) ReplaceEdgeProps(guid string, props Props) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ei, ok := s.edgeByGUID[guid]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "edge %s not in graph", guid)
	}
	s.edges[ei].props = props.Clone()
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// Contains reports whether a node or edge with the given GUID exists.
func (s *Store) Contains(guid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guidTaken(guid)
}

// Node returns a read-only view of the node with the given GUID.
func (s *Store) Node(guid string) (NodeView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ni, ok := s.nodeByGUID[guid]
	if !ok {
		return NodeView{}, errors.New(errors.ErrCodeNotFound, "node %s not in graph", guid)
	}
	return s.nodeView(ni), nil
}

// Edge returns a read-only view of the edge with the given GUID.
func (s *Store) Edge(guid string) (EdgeView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ei, ok := s.edgeByGUID[guid]
	if !ok {
		return EdgeView{}, errors.New(errors.ErrCodeNotFound, "edge %s not in graph", guid)
	}
	return s.edgeView(ei), nil
}

// NodeProps returns a copy of a node's property map.
func (s *Store) NodeProps(guid string) (Props, error) {
	n, err := s.Node(guid)
	if err != nil {
		return nil, err
	}
	return n.Props, nil
}

// Nodes returns read-only views of all live nodes in insertion order.
func (s *Store) Nodes() []NodeView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NodeView, 0, len(s.nodeByGUID))
	for i := range s.nodes {
		if !s.nodes[i].gone {
			out = append(out, s.nodeView(i))
		}
	}
	return out
}

// Edges returns read-only views of all live edges in insertion order.
func (s *Store) Edges() []EdgeView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EdgeView, 0, len(s.edgeByGUID))
	for i := range s.edges {
		if !s.edges[i].gone {
			out = append(out, s.edgeView(i))
		}
	}
	return out
}

// Neighbors returns the GUIDs of nodes reachable from the given node over
// edges of the given kind, in edge insertion order.
func (s *Store) Neighbors(guid string, kind EdgeKind, dir Direction) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ni, ok := s.nodeByGUID[guid]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "node %s not in graph", guid)
	}
	var out []string
	if dir == Out || dir == Both {
		for _, ei := range s.outEdges[ni] {
			if e := &s.edges[ei]; !e.gone && e.kind == kind {
				out = append(out, s.nodes[e.to].guid)
			}
		}
	}
	if dir == In || dir == Both {
		for _, ei := range s.inEdges[ni] {
			if e := &s.edges[ei]; !e.gone && e.kind == kind {
				out = append(out, s.nodes[e.from].guid)
			}
		}
	}
	return out, nil
}

// Owner returns the GUID of the node owning the given node, or empty when
// the node has no owner.
func (s *Store) Owner(guid string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ni, ok := s.nodeByGUID[guid]
	if !ok {
		return "", errors.New(errors.ErrCodeNotFound, "node %s not in graph", guid)
	}
	oi := s.ownerOf(ni)
	if oi < 0 {
		return "", nil
	}
	return s.nodes[oi].guid, nil
}

// =============================================================================
// Copying and swapping
// =============================================================================

// Clone returns a deep copy of the store. The copy shares no state with
// the original; the merge engine mutates a clone and swaps it in so that
// readers never observe a half-applied edit script.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := New(s.id)
	c.linkRule = s.linkRule
	c.nodes = make([]nodeRec, len(s.nodes))
	for i, n := range s.nodes {
		c.nodes[i] = nodeRec{guid: n.guid, class: n.class, props: n.props.Clone(), gone: n.gone}
	}
	c.edges = make([]edgeRec, len(s.edges))
	for i, e := range s.edges {
		c.edges[i] = edgeRec{guid: e.guid, kind: e.kind, from: e.from, to: e.to, props: e.props.Clone(), gone: e.gone}
	}
	for g, i := range s.nodeByGUID {
		c.nodeByGUID[g] = i
	}
	for g, i := range s.edgeByGUID {
		c.edgeByGUID[g] = i
	}
	for i, es := range s.outEdges {
		c.outEdges[i] = append([]int(nil), es...)
	}
	for i, es := range s.inEdges {
		c.inEdges[i] = append([]int(nil), es...)
	}
	return c
}

// ReplaceContents atomically swaps this store's graph for the contents of
// other. Readers blocked on the store observe either the old or the new
// graph in full.
func (s *Store) ReplaceContents(other *Store) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = other.id
	s.nodes = other.nodes
	s.edges = other.edges
	s.nodeByGUID = other.nodeByGUID
	s.edgeByGUID = other.edgeByGUID
	s.outEdges = other.outEdges
	s.inEdges = other.inEdges
}

// =============================================================================
// Internal helpers (callers hold the appropriate lock)
// =============================================================================

func (s *Store) guidTaken(guid string) bool {
	if _, ok := s.nodeByGUID[guid]; ok {
		return true
	}
	_, ok := s.edgeByGUID[guid]
	return ok
}

// ownerOf returns the arena index of a node's owner, or -1.
func (s *Store) ownerOf(ni int) int {
	for _, ei := range s.inEdges[ni] {
		if e := &s.edges[ei]; !e.gone && e.kind == EdgeHas {
			return e.from
		}
	}
	return -1
}

// collectSubtree marks ni and every transitively owned node.
func (s *Store) collectSubtree(ni int, doomed map[int]bool, order *[]int) {
	if doomed[ni] {
		return
	}
	doomed[ni] = true
	*order = append(*order, ni)
	for _, ei := range s.outEdges[ni] {
		if e := &s.edges[ei]; !e.gone && e.kind == EdgeHas {
			s.collectSubtree(e.to, doomed, order)
		}
	}
}

// touchingEdges returns the indices of all edges incident to a node.
// The result is a fresh slice; appending to it cannot corrupt the
// adjacency lists.
func (s *Store) touchingEdges(ni int) []int {
	out := make([]int, 0, len(s.outEdges[ni])+len(s.inEdges[ni]))
	out = append(out, s.outEdges[ni]...)
	out = append(out, s.inEdges[ni]...)
	return out
}

// liveEndpoints counts connection endpoints of a Link that will survive
// removal of the doomed set.
func (s *Store) liveEndpoints(li int, doomed map[int]bool) int {
	count := 0
	for _, ei := range s.touchingEdges(li) {
		e := &s.edges[ei]
		if e.gone || e.kind != EdgeConnects {
			continue
		}
		other := e.from
		if other == li {
			other = e.to
		}
		if !doomed[other] {
			count++
		}
	}
	return count
}

// dropNode marks a node and every edge touching it as gone.
func (s *Store) dropNode(ni int) {
	for _, ei := range s.touchingEdges(ni) {
		if e := &s.edges[ei]; !e.gone {
			e.gone = true
			delete(s.edgeByGUID, e.guid)
		}
	}
	s.nodes[ni].gone = true
	delete(s.nodeByGUID, s.nodes[ni].guid)
}

func (s *Store) nodeView(ni int) NodeView {
	n := &s.nodes[ni]
	return NodeView{GUID: n.guid, Class: n.class, Props: n.props.Clone()}
}

func (s *Store) edgeView(ei int) EdgeView {
	e := &s.edges[ei]
	return EdgeView{
		GUID:  e.guid,
		Kind:  e.kind,
		From:  s.nodes[e.from].guid,
		To:    s.nodes[e.to].guid,
		Props: e.props.Clone(),
	}
}

// String returns a short description for debugging.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("graph %s (%d nodes, %d edges)", s.id, len(s.nodeByGUID), len(s.edgeByGUID))
}
