// Package render draws topology diagrams.
//
// The renderer consumes the facade's read-only views only: NetworkNodes
// become clusters holding their components and interfaces, Links become
// hub nodes connected to their endpoint interfaces. Output is Graphviz
// DOT, rendered to SVG in-process.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/netweave/netweave/pkg/topology"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed includes component models and interface modes in labels.
	// When false, only names are shown.
	Detailed bool
}

// ToDOT converts a topology to Graphviz DOT format. The resulting DOT
// string can be rendered with [RenderSVG].
func ToDOT(t *topology.Topology, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph topology {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for i, n := range t.Nodes() {
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", nodeLabel(n, opts.Detailed))
		for _, c := range n.Components() {
			fmt.Fprintf(&buf, "    %q [%s];\n", c.GUID(), strings.Join(componentAttrs(c, opts.Detailed), ", "))
			for _, iface := range c.Interfaces() {
				writeInterface(&buf, c.GUID(), iface, opts.Detailed)
			}
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, l := range t.Links() {
		fmt.Fprintf(&buf, "  %q [label=%q, shape=diamond, fillcolor=lightblue];\n",
			l.GUID(), linkLabel(l, opts.Detailed))
		for _, iface := range l.Interfaces() {
			fmt.Fprintf(&buf, "  %q -- %q;\n", l.GUID(), iface.GUID())
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeInterface(buf *bytes.Buffer, ownerGUID string, iface *topology.Interface, detailed bool) {
	label := iface.Name()
	if detailed {
		label = fmt.Sprintf("%s\n%s", iface.Name(), iface.Mode())
	}
	fmt.Fprintf(buf, "    %q [label=%q, shape=ellipse, fontsize=10];\n", iface.GUID(), label)
	fmt.Fprintf(buf, "    %q -- %q [style=dotted];\n", ownerGUID, iface.GUID())
	for _, child := range iface.Children() {
		writeInterface(buf, iface.GUID(), child, detailed)
	}
}

func nodeLabel(n *topology.Node, detailed bool) string {
	if !detailed || n.Site() == "" {
		return n.Name()
	}
	return fmt.Sprintf("%s @ %s", n.Name(), n.Site())
}

func componentAttrs(c *topology.Component, detailed bool) []string {
	label := c.Name()
	if detailed {
		parts := []string{c.Name(), string(c.Type())}
		if m := c.Model(); m != "" {
			parts = append(parts, m)
		}
		label = strings.Join(parts, "\n")
	}
	return []string{fmt.Sprintf("label=%q", label)}
}

func linkLabel(l *topology.Link, detailed bool) string {
	if !detailed {
		return l.Name()
	}
	parts := []string{l.Name(), string(l.Type())}
	if bw := l.Bandwidth(); bw != "" {
		parts = append(parts, bw)
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
