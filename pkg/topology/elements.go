package topology

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/propgraph"
)

// =============================================================================
// Node
// =============================================================================

// Node is a handle on a NetworkNode. Handles hold only the GUID; every
// accessor re-reads the store.
type Node struct {
	topo *Topology
	guid string
	name string
}

// GUID returns the node's globally unique identifier.
func (n *Node) GUID() string { return n.guid }

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Site returns the node's site property.
func (n *Node) Site() string {
	v, _ := n.GetProperty(PropSite)
	return v
}

// Class returns the node's class property.
func (n *Node) Class() NodeClass {
	v, _ := n.GetProperty(PropNodeClass)
	return NodeClass(v)
}

// AddComponent attaches a Component of the given type to the node and
// instantiates the type's interface complement. Interfaces are named
// <node>-<component>-p<index> and start in Access mode. Component names
// must be unique within the node.
func (n *Node) AddComponent(name string, ctype ComponentType, model string) (*Component, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeValidation, "component name must not be empty")
	}
	tpl, ok := n.topo.cfg.template(ctype)
	if !ok {
		return nil, errors.New(errors.ErrCodeValidation, "unknown component type %q", ctype)
	}
	if _, err := n.Component(name); err == nil {
		return nil, errors.New(errors.ErrCodeValidation,
			"component name %q already in use on node %s", name, n.name)
	}

	st := n.topo.store
	guid := uuid.NewString()
	props := propgraph.Props{
		PropName:  name,
		PropType:  string(ctype),
		PropOrder: n.topo.takeOrder(),
	}
	if model != "" {
		props[PropModel] = model
	}
	if err := st.AddNode(guid, propgraph.ClassComponent, props); err != nil {
		return nil, err
	}
	if err := st.AddEdge(uuid.NewString(), propgraph.EdgeHas, n.guid, guid, nil); err != nil {
		_ = st.RemoveNode(guid, true)
		return nil, err
	}

	for i := 0; i < tpl.Interfaces; i++ {
		iguid := uuid.NewString()
		iprops := propgraph.Props{
			PropName:  fmt.Sprintf("%s-%s-p%d", n.name, name, i),
			PropMode:  string(Access),
			PropOrder: n.topo.takeOrder(),
		}
		if err := st.AddNode(iguid, propgraph.ClassInterface, iprops); err != nil {
			_ = st.RemoveNode(guid, true)
			return nil, err
		}
		if err := st.AddEdge(uuid.NewString(), propgraph.EdgeHas, guid, iguid, nil); err != nil {
			_ = st.RemoveNode(iguid, true)
			_ = st.RemoveNode(guid, true)
			return nil, err
		}
	}
	return &Component{topo: n.topo, guid: guid, name: name}, nil
}

// Component looks up a component of the node by name.
func (n *Node) Component(name string) (*Component, error) {
	for _, c := range n.Components() {
		if c.name == name {
			return c, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "node %s has no component named %q", n.name, name)
}

// RemoveComponent removes a component and its interfaces, collapsing links
// left below their endpoint minimum.
func (n *Node) RemoveComponent(name string) error {
	c, err := n.Component(name)
	if err != nil {
		return err
	}
	return n.topo.store.RemoveNode(c.guid, true)
}

// Components returns the node's components in creation order.
func (n *Node) Components() []*Component {
	var out []*Component
	for _, v := range n.topo.ownedViews(n.guid, propgraph.ClassComponent) {
		out = append(out, &Component{topo: n.topo, guid: v.GUID, name: v.Props[PropName]})
	}
	return out
}

// Interfaces returns every interface under the node's components,
// including trunk children, in creation order.
func (n *Node) Interfaces() []*Interface {
	var out []*Interface
	for _, c := range n.Components() {
		for _, i := range c.Interfaces() {
			out = append(out, i)
			out = append(out, i.descendants()...)
		}
	}
	return out
}

// GetProperty reads one property of the node.
func (n *Node) GetProperty(key string) (string, error) {
	return n.topo.getProperty(n.guid, key)
}

// SetProperty writes one property of the node.
func (n *Node) SetProperty(key, value string) error {
	return n.topo.setProperty(n.guid, key, value)
}

// SetProperties merges the given properties into the node's map.
func (n *Node) SetProperties(props map[string]string) error {
	return n.topo.setProperties(n.guid, props)
}

// =============================================================================
// Component
// =============================================================================

// Component is a handle on a Component node.
type Component struct {
	topo *Topology
	guid string
	name string
}

// GUID returns the component's globally unique identifier.
func (c *Component) GUID() string { return c.guid }

// Name returns the component's name.
func (c *Component) Name() string { return c.name }

// Type returns the component's type property.
func (c *Component) Type() ComponentType {
	v, _ := c.GetProperty(PropType)
	return ComponentType(v)
}

// Model returns the component's model property.
func (c *Component) Model() string {
	v, _ := c.GetProperty(PropModel)
	return v
}

// Interfaces returns the component's directly owned interfaces in
// creation order. Trunk children are reached through Interface.Children.
func (c *Component) Interfaces() []*Interface {
	var out []*Interface
	for _, v := range c.topo.ownedViews(c.guid, propgraph.ClassInterface) {
		out = append(out, &Interface{topo: c.topo, guid: v.GUID, name: v.Props[PropName]})
	}
	return out
}

// GetProperty reads one property of the component.
func (c *Component) GetProperty(key string) (string, error) {
	return c.topo.getProperty(c.guid, key)
}

// SetProperty writes one property of the component.
func (c *Component) SetProperty(key, value string) error {
	return c.topo.setProperty(c.guid, key, value)
}

// =============================================================================
// Interface
// =============================================================================

// Interface is a handle on an Interface node.
type Interface struct {
	topo *Topology
	guid string
	name string
}

// GUID returns the interface's globally unique identifier.
func (i *Interface) GUID() string { return i.guid }

// Name returns the interface's name.
func (i *Interface) Name() string { return i.name }

// Mode returns the interface's mode. Interfaces without a recorded mode
// read as Access.
func (i *Interface) Mode() Mode {
	v, _ := i.GetProperty(PropMode)
	if v == "" {
		return Access
	}
	return Mode(v)
}

// SetMode changes the interface's mode. A Trunk interface that still owns
// child interfaces cannot be demoted to Access.
func (i *Interface) SetMode(m Mode) error {
	if m != Access && m != Trunk {
		return errors.New(errors.ErrCodeValidation, "unknown interface mode %q", m)
	}
	if m == Access && len(i.Children()) > 0 {
		return errors.New(errors.ErrCodeValidation,
			"interface %s still has child interfaces", i.name)
	}
	return i.SetProperty(PropMode, string(m))
}

// AddChildInterface creates a child interface under a Trunk interface.
// Children start in Access mode.
func (i *Interface) AddChildInterface(name string) (*Interface, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeValidation, "interface name must not be empty")
	}
	if i.Mode() != Trunk {
		return nil, errors.New(errors.ErrCodeValidation,
			"interface %s is not a trunk; only trunk interfaces own children", i.name)
	}
	st := i.topo.store
	guid := uuid.NewString()
	props := propgraph.Props{
		PropName:  name,
		PropMode:  string(Access),
		PropOrder: i.topo.takeOrder(),
	}
	if err := st.AddNode(guid, propgraph.ClassInterface, props); err != nil {
		return nil, err
	}
	if err := st.AddEdge(uuid.NewString(), propgraph.EdgeHas, i.guid, guid, nil); err != nil {
		_ = st.RemoveNode(guid, true)
		return nil, err
	}
	return &Interface{topo: i.topo, guid: guid, name: name}, nil
}

// Children returns the interface's child interfaces in creation order.
func (i *Interface) Children() []*Interface {
	var out []*Interface
	for _, v := range i.topo.ownedViews(i.guid, propgraph.ClassInterface) {
		out = append(out, &Interface{topo: i.topo, guid: v.GUID, name: v.Props[PropName]})
	}
	return out
}

func (i *Interface) descendants() []*Interface {
	var out []*Interface
	for _, c := range i.Children() {
		out = append(out, c)
		out = append(out, c.descendants()...)
	}
	return out
}

// Link returns the link the interface is connected to, or NOT_FOUND when
// unconnected.
func (i *Interface) Link() (*Link, error) {
	guids, err := i.topo.store.Neighbors(i.guid, propgraph.EdgeConnects, propgraph.In)
	if err != nil {
		return nil, err
	}
	for _, g := range guids {
		v, err := i.topo.store.Node(g)
		if err != nil {
			return nil, err
		}
		if v.Class == propgraph.ClassLink {
			return &Link{topo: i.topo, guid: g, name: v.Props[PropName]}, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "interface %s is not connected", i.name)
}

// GetProperty reads one property of the interface.
func (i *Interface) GetProperty(key string) (string, error) {
	return i.topo.getProperty(i.guid, key)
}

// SetProperty writes one property of the interface.
func (i *Interface) SetProperty(key, value string) error {
	return i.topo.setProperty(i.guid, key, value)
}

// =============================================================================
// Link
// =============================================================================

// Link is a handle on a Link node.
type Link struct {
	topo *Topology
	guid string
	name string
}

// GUID returns the link's globally unique identifier.
func (l *Link) GUID() string { return l.guid }

// Name returns the link's name.
func (l *Link) Name() string { return l.name }

// Type returns the link's type property.
func (l *Link) Type() LinkType {
	v, _ := l.GetProperty(PropType)
	return LinkType(v)
}

// Bandwidth returns the link's bandwidth property, empty when unset.
func (l *Link) Bandwidth() string {
	v, _ := l.GetProperty(PropBandwidth)
	return v
}

// Interfaces returns the link's endpoint interfaces in connection order.
func (l *Link) Interfaces() []*Interface {
	guids, err := l.topo.store.Neighbors(l.guid, propgraph.EdgeConnects, propgraph.Out)
	if err != nil {
		return nil
	}
	var out []*Interface
	for _, g := range guids {
		v, err := l.topo.store.Node(g)
		if err != nil {
			continue
		}
		out = append(out, &Interface{topo: l.topo, guid: g, name: v.Props[PropName]})
	}
	return out
}

// GetProperty reads one property of the link.
func (l *Link) GetProperty(key string) (string, error) {
	return l.topo.getProperty(l.guid, key)
}

// SetProperty writes one property of the link.
func (l *Link) SetProperty(key, value string) error {
	return l.topo.setProperty(l.guid, key, value)
}

// =============================================================================
// Shared handle plumbing
// =============================================================================

func (t *Topology) getProperty(guid, key string) (string, error) {
	props, err := t.store.NodeProps(guid)
	if err != nil {
		return "", err
	}
	return props[key], nil
}

func (t *Topology) setProperty(guid, key, value string) error {
	return t.store.SetNodeProps(guid, propgraph.Props{key: value})
}

func (t *Topology) setProperties(guid string, props map[string]string) error {
	return t.store.SetNodeProps(guid, propgraph.Props(props))
}

// ownedViews returns the views of nodes of one class directly owned by
// the given node, ordered by creation order.
func (t *Topology) ownedViews(owner string, class propgraph.Class) []propgraph.NodeView {
	guids, err := t.store.Neighbors(owner, propgraph.EdgeHas, propgraph.Out)
	if err != nil {
		return nil
	}
	var out []propgraph.NodeView
	for _, g := range guids {
		v, err := t.store.Node(g)
		if err != nil || v.Class != class {
			continue
		}
		out = append(out, v)
	}
	sortByOrder(out)
	return out
}
