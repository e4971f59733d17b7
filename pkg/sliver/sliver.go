// Package sliver extracts detached resource descriptors from a topology.
//
// A sliver snapshots one NetworkNode's ownership subtree: the node's
// attributes, and for a deep sliver every owned Component and Interface,
// recursively. The result holds plain copies only, so a sliver stays valid
// after the source topology changes or is discarded. Links are never part
// of a node sliver; they are resolved separately through the topology's
// link view, keyed by interface GUID.
package sliver

import (
	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/topology"
)

// InterfaceSliver is a detached copy of one interface, with any trunk
// children nested under it.
type InterfaceSliver struct {
	GUID     string            `json:"guid"`
	Name     string            `json:"name"`
	Mode     topology.Mode     `json:"mode"`
	Props    map[string]string `json:"props,omitempty"`
	Children []InterfaceSliver `json:"children,omitempty"`
}

// ComponentSliver is a detached copy of one component with its interfaces.
type ComponentSliver struct {
	GUID       string                 `json:"guid"`
	Name       string                 `json:"name"`
	Type       topology.ComponentType `json:"type"`
	Model      string                 `json:"model,omitempty"`
	Props      map[string]string      `json:"props,omitempty"`
	Interfaces []InterfaceSliver      `json:"interfaces,omitempty"`
}

// NodeSliver is a detached copy of one NetworkNode. A shallow sliver
// carries only the node's own attributes; a deep sliver nests the full
// ownership subtree. Components are ordered by creation, as are
// interfaces within each component, so repeated extraction of the same
// structure is deterministic.
type NodeSliver struct {
	GUID       string             `json:"guid"`
	Name       string             `json:"name"`
	Site       string             `json:"site,omitempty"`
	Class      topology.NodeClass `json:"class"`
	Props      map[string]string  `json:"props,omitempty"`
	Components []ComponentSliver  `json:"components,omitempty"`
}

// BuildShallow extracts a sliver holding only the named node's own
// attributes.
func BuildShallow(t *topology.Topology, nodeName string) (*NodeSliver, error) {
	n, err := t.Node(nodeName)
	if err != nil {
		return nil, err
	}
	return nodeRecord(t, n)
}

// BuildDeep extracts a sliver holding the named node's full ownership
// subtree. Traversal follows ownership edges only, depth first, children
// in creation order.
func BuildDeep(t *topology.Topology, nodeName string) (*NodeSliver, error) {
	n, err := t.Node(nodeName)
	if err != nil {
		return nil, err
	}
	ns, err := nodeRecord(t, n)
	if err != nil {
		return nil, err
	}
	for _, c := range n.Components() {
		cs, err := componentRecord(t, c)
		if err != nil {
			return nil, err
		}
		ns.Components = append(ns.Components, *cs)
	}
	return ns, nil
}

func nodeRecord(t *topology.Topology, n *topology.Node) (*NodeSliver, error) {
	props, err := t.Store().NodeProps(n.GUID())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read node %s", n.Name())
	}
	return &NodeSliver{
		GUID:  n.GUID(),
		Name:  n.Name(),
		Site:  props[topology.PropSite],
		Class: topology.NodeClass(props[topology.PropNodeClass]),
		Props: map[string]string(props),
	}, nil
}

func componentRecord(t *topology.Topology, c *topology.Component) (*ComponentSliver, error) {
	props, err := t.Store().NodeProps(c.GUID())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read component %s", c.Name())
	}
	cs := &ComponentSliver{
		GUID:  c.GUID(),
		Name:  c.Name(),
		Type:  topology.ComponentType(props[topology.PropType]),
		Model: props[topology.PropModel],
		Props: map[string]string(props),
	}
	for _, i := range c.Interfaces() {
		is, err := interfaceRecord(t, i)
		if err != nil {
			return nil, err
		}
		cs.Interfaces = append(cs.Interfaces, *is)
	}
	return cs, nil
}

func interfaceRecord(t *topology.Topology, i *topology.Interface) (*InterfaceSliver, error) {
	props, err := t.Store().NodeProps(i.GUID())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read interface %s", i.Name())
	}
	is := &InterfaceSliver{
		GUID:  i.GUID(),
		Name:  i.Name(),
		Mode:  i.Mode(),
		Props: map[string]string(props),
	}
	for _, c := range i.Children() {
		cs, err := interfaceRecord(t, c)
		if err != nil {
			return nil, err
		}
		is.Children = append(is.Children, *cs)
	}
	return is, nil
}
