// Package topology provides the authoring and query facade over the
// property graph store.
//
// A Topology wraps one graph and enforces the domain rules the raw store
// does not know about: component interface templates, trunk/access mode
// transitions, and per-link-type endpoint bounds. Two kinds share the
// same structural rules: an experiment topology is authored by a user and
// submitted to an orchestrator; a substrate topology is authored by
// infrastructure operators, advertised, and incrementally updated through
// the merge engine.
//
// Handles returned by the facade (Node, Component, Interface, Link) carry
// GUIDs, never internal store indices. Each accessor re-reads the store,
// so a handle stays valid across unrelated mutations and reports NOT_FOUND
// once its entity is removed.
package topology

import (
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/graphml"
	"github.com/netweave/netweave/pkg/propgraph"
)

// Well-known property names shared with the serialized form.
const (
	PropName             = "Name"
	PropSite             = "Site"
	PropNodeClass        = "NodeClass"
	PropType             = "Type"
	PropModel            = "Model"
	PropMode             = "Mode"
	PropBandwidth        = "Bandwidth"
	PropReservationState = "ReservationState"

	// PropOrder records creation order so that loaded graphs iterate the
	// same way the authoring session did.
	PropOrder = "Order"
)

// Mode is an Interface's trunking capability.
type Mode string

const (
	// Access interfaces carry a single allocation and cannot own children.
	Access Mode = "Access"
	// Trunk interfaces may own child interfaces representing
	// sub-allocations of the same physical port.
	Trunk Mode = "Trunk"
)

// NodeClass describes what a NetworkNode models.
type NodeClass string

const (
	ClassVM       NodeClass = "VM"
	ClassServer   NodeClass = "Server"
	ClassSwitch   NodeClass = "Switch"
	ClassFacility NodeClass = "Facility"
)

// Kind distinguishes the two topology roles. Structural rules are
// identical; the kind is carried for callers (and the orchestrator
// client) to tell requests from advertisements apart.
type Kind int

const (
	Experiment Kind = iota
	Substrate
)

func (k Kind) String() string {
	if k == Substrate {
		return "substrate"
	}
	return "experiment"
}

// Topology is a named facade over one property graph. It is intended for
// single-writer use: one authoring session owns one Topology. Concurrent
// readers of the underlying store are safe; see the merge package for the
// shared-advertisement update path.
type Topology struct {
	name  string
	kind  Kind
	cfg   *Config
	store *propgraph.Store

	nextOrder int
}

// Option configures a Topology at construction time.
type Option func(*Topology)

// WithConfig overrides the default link-bounds and component-template
// tables.
func WithConfig(cfg *Config) Option {
	return func(t *Topology) { t.cfg = cfg }
}

// NewExperiment creates an empty experiment topology with a fresh graph
// identifier.
func NewExperiment(name string, opts ...Option) *Topology {
	return newTopology(name, Experiment, opts)
}

// NewSubstrate creates an empty substrate topology with a fresh graph
// identifier.
func NewSubstrate(name string, opts ...Option) *Topology {
	return newTopology(name, Substrate, opts)
}

func newTopology(name string, kind Kind, opts []Option) *Topology {
	t := &Topology{
		name:  name,
		kind:  kind,
		cfg:   DefaultConfig(),
		store: propgraph.New(uuid.NewString()),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.installLinkRule()
	return t
}

// Attach wraps an already-imported store in a facade of the given kind,
// validating domain invariants first. This is the query-side (ASM) entry
// point: the importer produces the store, Attach interprets it.
func Attach(name string, kind Kind, store *propgraph.Store, opts ...Option) (*Topology, error) {
	t := &Topology{name: name, kind: kind, cfg: DefaultConfig(), store: store}
	for _, opt := range opts {
		opt(t)
	}
	t.installLinkRule()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.nextOrder = t.maxOrder() + 1
	return t, nil
}

// Load decodes a serialized topology payload, validates it structurally
// and against domain rules, and attaches a facade. The payload's graph
// identifier is preserved.
func Load(name string, kind Kind, payload string, opts ...Option) (*Topology, error) {
	store, err := propgraph.ImportString(payload)
	if err != nil {
		return nil, err
	}
	return Attach(name, kind, store, opts...)
}

// LoadWithID is Load under a new graph identifier, for cloning a
// published model before editing it.
func LoadWithID(name string, kind Kind, payload, id string, opts ...Option) (*Topology, error) {
	store, err := propgraph.ImportStringWithID(payload, id)
	if err != nil {
		return nil, err
	}
	return Attach(name, kind, store, opts...)
}

// LoadFile reads and attaches a serialized topology from a file.
func LoadFile(name string, kind Kind, path string, opts ...Option) (*Topology, error) {
	store, err := propgraph.ImportFile(path)
	if err != nil {
		return nil, err
	}
	return Attach(name, kind, store, opts...)
}

// Name returns the topology's name.
func (t *Topology) Name() string { return t.name }

// Kind returns the topology's role.
func (t *Topology) Kind() Kind { return t.kind }

// GraphID returns the identifier of the backing graph.
func (t *Topology) GraphID() string { return t.store.ID() }

// Store exposes the backing property graph for the merge engine and the
// sliver builder. Mutating it directly bypasses domain validation.
func (t *Topology) Store() *propgraph.Store { return t.store }

// Config returns the domain rule tables in effect.
func (t *Topology) Config() *Config { return t.cfg }

func (t *Topology) installLinkRule() {
	cfg := t.cfg
	t.store.SetLinkRule(func(props propgraph.Props) int {
		if b, ok := cfg.linkBounds(LinkType(props[PropType])); ok {
			return b.Min
		}
		return 2
	})
}

func (t *Topology) takeOrder() string {
	o := t.nextOrder
	t.nextOrder++
	return strconv.Itoa(o)
}

func (t *Topology) maxOrder() int {
	max := -1
	for _, n := range t.store.Nodes() {
		if o, err := strconv.Atoi(n.Props[PropOrder]); err == nil && o > max {
			max = o
		}
	}
	return max
}

// =============================================================================
// Node management
// =============================================================================

// AddNode creates a NetworkNode. Names must be unique among the
// topology's nodes; class defaults to VM when empty.
func (t *Topology) AddNode(name, site string, class NodeClass) (*Node, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeValidation, "node name must not be empty")
	}
	if class == "" {
		class = ClassVM
	}
	if _, err := t.Node(name); err == nil {
		return nil, errors.New(errors.ErrCodeValidation, "node name %q already in use", name)
	}
	guid := uuid.NewString()
	props := propgraph.Props{
		PropName:      name,
		PropSite:      site,
		PropNodeClass: string(class),
		PropOrder:     t.takeOrder(),
	}
	if err := t.store.AddNode(guid, propgraph.ClassNetworkNode, props); err != nil {
		return nil, err
	}
	return &Node{topo: t, guid: guid, name: name}, nil
}

// Node looks up a NetworkNode by name.
func (t *Topology) Node(name string) (*Node, error) {
	for _, v := range t.nodeViews(propgraph.ClassNetworkNode) {
		if v.Props[PropName] == name {
			return &Node{topo: t, guid: v.GUID, name: name}, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no node named %q", name)
}

// RemoveNode removes a NetworkNode and its entire ownership subtree.
// Links left below their endpoint minimum are removed as well.
func (t *Topology) RemoveNode(name string) error {
	n, err := t.Node(name)
	if err != nil {
		return err
	}
	return t.store.RemoveNode(n.guid, true)
}

// Nodes returns the topology's NetworkNodes in creation order.
func (t *Topology) Nodes() []*Node {
	var out []*Node
	for _, v := range t.nodeViews(propgraph.ClassNetworkNode) {
		out = append(out, &Node{topo: t, guid: v.GUID, name: v.Props[PropName]})
	}
	return out
}

// =============================================================================
// Link management
// =============================================================================

// AddLink connects the given interfaces with a new Link of the given
// type. The endpoint count is validated against the type's bounds, and an
// interface already connected to a link cannot be connected again.
// Bandwidth may be empty.
func (t *Topology) AddLink(name string, ltype LinkType, bandwidth string, ifaces ...*Interface) (*Link, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeValidation, "link name must not be empty")
	}
	bounds, ok := t.cfg.linkBounds(ltype)
	if !ok {
		return nil, errors.New(errors.ErrCodeValidation, "unknown link type %q", ltype)
	}
	if len(ifaces) < bounds.Min {
		return nil, errors.New(errors.ErrCodeValidation,
			"link type %s requires at least %d endpoints, got %d", ltype, bounds.Min, len(ifaces))
	}
	if bounds.Max != 0 && len(ifaces) > bounds.Max {
		return nil, errors.New(errors.ErrCodeValidation,
			"link type %s allows at most %d endpoints, got %d", ltype, bounds.Max, len(ifaces))
	}
	if _, err := t.Link(name); err == nil {
		return nil, errors.New(errors.ErrCodeValidation, "link name %q already in use", name)
	}
	for _, iface := range ifaces {
		links, err := t.store.Neighbors(iface.guid, propgraph.EdgeConnects, propgraph.Both)
		if err != nil {
			return nil, err
		}
		if len(links) > 0 {
			return nil, errors.New(errors.ErrCodeValidation,
				"interface %s is already connected to a link", iface.Name())
		}
	}

	guid := uuid.NewString()
	props := propgraph.Props{
		PropName:  name,
		PropType:  string(ltype),
		PropOrder: t.takeOrder(),
	}
	if bandwidth != "" {
		props[PropBandwidth] = bandwidth
	}
	if err := t.store.AddNode(guid, propgraph.ClassLink, props); err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if err := t.store.AddEdge(uuid.NewString(), propgraph.EdgeConnects, guid, iface.guid, nil); err != nil {
			// Endpoint validation happened above; an edge failure here is
			// internal. Undo the link node to keep the facade transactional.
			_ = t.store.RemoveNode(guid, true)
			return nil, err
		}
	}
	return &Link{topo: t, guid: guid, name: name}, nil
}

// Link looks up a Link by name.
func (t *Topology) Link(name string) (*Link, error) {
	for _, v := range t.nodeViews(propgraph.ClassLink) {
		if v.Props[PropName] == name {
			return &Link{topo: t, guid: v.GUID, name: name}, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no link named %q", name)
}

// RemoveLink removes a Link, detaching it from its endpoints.
func (t *Topology) RemoveLink(name string) error {
	l, err := t.Link(name)
	if err != nil {
		return err
	}
	return t.store.RemoveNode(l.guid, true)
}

// Links returns the topology's Links in creation order.
func (t *Topology) Links() []*Link {
	var out []*Link
	for _, v := range t.nodeViews(propgraph.ClassLink) {
		out = append(out, &Link{topo: t, guid: v.GUID, name: v.Props[PropName]})
	}
	return out
}

// Interfaces returns every Interface in the topology in creation order.
func (t *Topology) Interfaces() []*Interface {
	var out []*Interface
	for _, v := range t.nodeViews(propgraph.ClassInterface) {
		out = append(out, &Interface{topo: t, guid: v.GUID, name: v.Props[PropName]})
	}
	return out
}

// nodeViews returns live nodes of one class ordered by their creation
// order property. Falls back to store insertion order for entities
// without one.
func (t *Topology) nodeViews(class propgraph.Class) []propgraph.NodeView {
	var out []propgraph.NodeView
	for _, v := range t.store.Nodes() {
		if v.Class == class {
			out = append(out, v)
		}
	}
	sortByOrder(out)
	return out
}

// sortByOrder orders views by their creation order property, keeping
// store insertion order for entities without one.
func sortByOrder(views []propgraph.NodeView) {
	sort.SliceStable(views, func(i, j int) bool {
		oi, erri := strconv.Atoi(views[i].Props[PropOrder])
		oj, errj := strconv.Atoi(views[j].Props[PropOrder])
		if erri != nil || errj != nil {
			return false
		}
		return oi < oj
	})
}

// =============================================================================
// Serialization
// =============================================================================

// Serialize encodes the topology as a GraphML payload. The graph is
// validated first: a topology holding transient unattached interfaces or
// other invariant violations does not serialize.
func (t *Topology) Serialize() (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	data, err := graphml.Marshal(t.store.ToDocument())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SerializeToFile writes the serialized topology to a file.
func (t *Topology) SerializeToFile(path string) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return graphml.WriteFile(t.store.ToDocument(), path)
}

// =============================================================================
// Maintenance
// =============================================================================

// Prune removes every NetworkNode and Link whose reservation state
// property equals state, cascading through ownership subtrees. Used to
// drop failed reservations from a model.
func (t *Topology) Prune(state string) error {
	var doomed []string
	for _, v := range t.store.Nodes() {
		if v.Class != propgraph.ClassNetworkNode && v.Class != propgraph.ClassLink {
			continue
		}
		if v.Props[PropReservationState] == state {
			doomed = append(doomed, v.GUID)
		}
	}
	for _, guid := range doomed {
		// A link may already have collapsed with an earlier node.
		if !t.store.Contains(guid) {
			continue
		}
		if err := t.store.RemoveNode(guid, true); err != nil {
			return err
		}
	}
	return nil
}
