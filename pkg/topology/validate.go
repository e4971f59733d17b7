package topology

import (
	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/propgraph"
)

// Validate checks the domain invariants the raw store does not enforce:
//
//   - Ownership edges respect the class hierarchy: NetworkNode owns
//     Component, Component owns Interface, Interface owns Interface (and
//     only Trunk interfaces own children).
//   - Connection edges run from a Link to an Interface.
//   - Components and Interfaces have owners; NetworkNodes and Links do not.
//   - Link endpoint counts lie within the type's bounds.
//   - Names are present and unique per class among NetworkNodes and Links.
//
// Structural integrity (dangling endpoints, duplicate GUIDs, ownership
// forest shape) is already guaranteed by the store and the importer.
func (t *Topology) Validate() error {
	st := t.store

	names := map[propgraph.Class]map[string]bool{
		propgraph.ClassNetworkNode: {},
		propgraph.ClassLink:        {},
	}
	for _, n := range st.Nodes() {
		switch n.Class {
		case propgraph.ClassNetworkNode, propgraph.ClassLink:
			name := n.Props[PropName]
			if name == "" {
				return errors.New(errors.ErrCodeValidation, "%s %s has no name", n.Class, n.GUID)
			}
			if names[n.Class][name] {
				return errors.New(errors.ErrCodeValidation, "duplicate %s name %q", n.Class, name)
			}
			names[n.Class][name] = true
		case propgraph.ClassComponent, propgraph.ClassInterface:
			owner, err := st.Owner(n.GUID)
			if err != nil {
				return err
			}
			if owner == "" {
				return errors.New(errors.ErrCodeValidation, "%s %s has no owner", n.Class, n.GUID)
			}
		}
	}

	for _, e := range st.Edges() {
		from, err := st.Node(e.From)
		if err != nil {
			return err
		}
		to, err := st.Node(e.To)
		if err != nil {
			return err
		}
		switch e.Kind {
		case propgraph.EdgeHas:
			if err := t.checkOwnership(from, to); err != nil {
				return err
			}
		case propgraph.EdgeConnects:
			if from.Class != propgraph.ClassLink || to.Class != propgraph.ClassInterface {
				return errors.New(errors.ErrCodeValidation,
					"connection edge %s must run from a Link to an Interface, got %s->%s",
					e.GUID, from.Class, to.Class)
			}
		}
	}

	for _, n := range st.Nodes() {
		if n.Class != propgraph.ClassLink {
			continue
		}
		if err := t.checkLinkBounds(n); err != nil {
			return err
		}
	}
	return nil
}

func (t *Topology) checkOwnership(from, to propgraph.NodeView) error {
	switch from.Class {
	case propgraph.ClassNetworkNode:
		if to.Class != propgraph.ClassComponent {
			return errors.New(errors.ErrCodeValidation,
				"a NetworkNode owns Components, not %s (%s)", to.Class, to.GUID)
		}
	case propgraph.ClassComponent:
		if to.Class != propgraph.ClassInterface {
			return errors.New(errors.ErrCodeValidation,
				"a Component owns Interfaces, not %s (%s)", to.Class, to.GUID)
		}
	case propgraph.ClassInterface:
		if to.Class != propgraph.ClassInterface {
			return errors.New(errors.ErrCodeValidation,
				"an Interface owns child Interfaces, not %s (%s)", to.Class, to.GUID)
		}
		if Mode(from.Props[PropMode]) != Trunk {
			return errors.New(errors.ErrCodeValidation,
				"interface %s owns children but is not a trunk", from.Props[PropName])
		}
	default:
		return errors.New(errors.ErrCodeValidation,
			"a %s cannot own other entities (%s)", from.Class, from.GUID)
	}
	return nil
}

func (t *Topology) checkLinkBounds(link propgraph.NodeView) error {
	lt := LinkType(link.Props[PropType])
	bounds, ok := t.cfg.linkBounds(lt)
	if !ok {
		return errors.New(errors.ErrCodeValidation,
			"link %s has unknown type %q", link.Props[PropName], lt)
	}
	endpoints, err := t.store.Neighbors(link.GUID, propgraph.EdgeConnects, propgraph.Out)
	if err != nil {
		return err
	}
	if len(endpoints) < bounds.Min {
		return errors.New(errors.ErrCodeValidation,
			"link %s (%s) has %d endpoints, minimum is %d",
			link.Props[PropName], lt, len(endpoints), bounds.Min)
	}
	if bounds.Max != 0 && len(endpoints) > bounds.Max {
		return errors.New(errors.ErrCodeValidation,
			"link %s (%s) has %d endpoints, maximum is %d",
			link.Props[PropName], lt, len(endpoints), bounds.Max)
	}
	return nil
}
