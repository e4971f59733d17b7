package render

import (
	"strings"
	"testing"

	"github.com/netweave/netweave/pkg/topology"
)

func buildTopo(t *testing.T) *topology.Topology {
	t.Helper()
	topo := topology.NewExperiment("diagram")
	for _, name := range []string{"n1", "n2"} {
		n, err := topo.AddNode(name, "RENC", topology.ClassVM)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := n.AddComponent("nic", topology.SharedNIC, "ConnectX-6"); err != nil {
			t.Fatal(err)
		}
	}
	n1, _ := topo.Node("n1")
	n2, _ := topo.Node("n2")
	c1, _ := n1.Component("nic")
	c2, _ := n2.Component("nic")
	if _, err := topo.AddLink("wave1", topology.Wave, "100G", c1.Interfaces()[0], c2.Interfaces()[0]); err != nil {
		t.Fatal(err)
	}
	return topo
}

func TestToDOT(t *testing.T) {
	topo := buildTopo(t)
	dot := ToDOT(topo, Options{})

	if !strings.HasPrefix(dot, "graph topology {") {
		t.Errorf("DOT does not open an undirected graph: %q", dot[:30])
	}
	for _, want := range []string{"cluster_0", "cluster_1", `label="n1"`, `label="n2"`, `label="wave1"`, "shape=diamond"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q", want)
		}
	}
	// Two link endpoints, each drawn once.
	if got := strings.Count(dot, `"`+linkGUID(t, topo)+`" -- `); got != 2 {
		t.Errorf("link edges = %d, want 2", got)
	}
}

func TestToDOTDetailed(t *testing.T) {
	topo := buildTopo(t)
	dot := ToDOT(topo, Options{Detailed: true})

	for _, want := range []string{"n1 @ RENC", "ConnectX-6", "100G", string(topology.Access)} {
		if !strings.Contains(dot, want) {
			t.Errorf("detailed DOT missing %q", want)
		}
	}
}

func TestToDOTTrunkChildren(t *testing.T) {
	topo := topology.NewExperiment("trunked")
	n, err := topo.AddNode("n1", "RENC", topology.ClassServer)
	if err != nil {
		t.Fatal(err)
	}
	c, err := n.AddComponent("nic", topology.SmartNIC, "BlueField-2")
	if err != nil {
		t.Fatal(err)
	}
	trunk := c.Interfaces()[0]
	if err := trunk.SetMode(topology.Trunk); err != nil {
		t.Fatal(err)
	}
	child, err := trunk.AddChildInterface("vlan200")
	if err != nil {
		t.Fatal(err)
	}

	dot := ToDOT(topo, Options{})
	if !strings.Contains(dot, `label="vlan200"`) {
		t.Error("child interface missing from DOT")
	}
	// The child hangs off its parent interface, not the component.
	wantEdge := `"` + trunk.GUID() + `" -- "` + child.GUID() + `"`
	if !strings.Contains(dot, wantEdge) {
		t.Errorf("DOT missing parent-child edge %s", wantEdge)
	}
}

func linkGUID(t *testing.T, topo *topology.Topology) string {
	t.Helper()
	links := topo.Links()
	if len(links) != 1 {
		t.Fatalf("links = %d", len(links))
	}
	return links[0].GUID()
}
