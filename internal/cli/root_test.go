package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/netweave/netweave/pkg/topology"
)

func TestRulesOptsEmpty(t *testing.T) {
	opts, err := rulesOpts("")
	if err != nil {
		t.Fatalf("rulesOpts: %v", err)
	}
	if opts != nil {
		t.Errorf("opts = %v, want nil for empty path", opts)
	}
}

func TestRulesOptsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	if err := os.WriteFile(path, []byte("[links.Wave]\nmin = 1\nmax = 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := rulesOpts(path)
	if err != nil {
		t.Fatalf("rulesOpts: %v", err)
	}
	if len(opts) != 1 {
		t.Fatalf("opts = %d, want 1", len(opts))
	}
}

func TestRulesOptsMissingFile(t *testing.T) {
	if _, err := rulesOpts(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("rulesOpts should fail for a missing file")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want topology.Kind
	}{
		{"experiment", topology.Experiment},
		{"substrate", topology.Substrate},
		{"Substrate", topology.Substrate},
		{"", topology.Experiment},
		{"anything-else", topology.Experiment},
	}
	for _, tt := range tests {
		if got := parseKind(tt.in); got != tt.want {
			t.Errorf("parseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
