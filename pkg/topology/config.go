package topology

import (
	"github.com/BurntSushi/toml"

	"github.com/netweave/netweave/pkg/errors"
)

// ComponentType identifies the kind of hardware a Component models.
type ComponentType string

// Known component types.
const (
	SharedNIC ComponentType = "SharedNIC"
	SmartNIC  ComponentType = "SmartNIC"
	GPU       ComponentType = "GPU"
	FPGA      ComponentType = "FPGA"
	NVMe      ComponentType = "NVME"
)

// LinkType identifies the technology of a Link.
type LinkType string

// Known link types.
const (
	// Wave is a point-to-point wavelength: exactly two endpoints.
	Wave LinkType = "Wave"
	// Patch is a dedicated point-to-point patch connection.
	Patch LinkType = "Patch"
	// L2 is a shared layer-2 segment: two or more endpoints.
	L2 LinkType = "L2"
)

// EndpointBounds bounds the number of interfaces a link type may connect.
// A Max of 0 means unbounded.
type EndpointBounds struct {
	Min int `toml:"min"`
	Max int `toml:"max"`
}

// ComponentTemplate fixes the interface complement instantiated with each
// component of a type. A component's interface count is never chosen by
// the caller.
type ComponentTemplate struct {
	Interfaces int `toml:"interfaces"`
}

// Config carries the two domain tables the facade validates against: the
// per-link-type endpoint bounds and the per-component-type interface
// templates. Both have compiled-in defaults and can be overridden from a
// TOML file, for example:
//
//	[links.Wave]
//	min = 2
//	max = 2
//
//	[components.SmartNIC]
//	interfaces = 2
type Config struct {
	Links      map[string]EndpointBounds    `toml:"links"`
	Components map[string]ComponentTemplate `toml:"components"`
}

// DefaultConfig returns the built-in tables.
//
// Endpoint bounds: Wave and Patch are point-to-point (exactly 2); L2 is a
// shared segment (2 or more). Templates: SharedNIC carries one interface,
// SmartNIC two; GPU, FPGA, and NVMe devices carry none.
func DefaultConfig() *Config {
	return &Config{
		Links: map[string]EndpointBounds{
			string(Wave):  {Min: 2, Max: 2},
			string(Patch): {Min: 2, Max: 2},
			string(L2):    {Min: 2, Max: 0},
		},
		Components: map[string]ComponentTemplate{
			string(SharedNIC): {Interfaces: 1},
			string(SmartNIC):  {Interfaces: 2},
			string(GPU):       {Interfaces: 0},
			string(FPGA):      {Interfaces: 0},
			string(NVMe):      {Interfaces: 0},
		},
	}
}

// LoadConfig reads a TOML rules file and overlays it on the defaults.
// Entries present in the file replace the default entry for that type;
// unknown types in the file define new types.
func LoadConfig(path string) (*Config, error) {
	var file Config
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode rules file %s", path)
	}
	cfg := DefaultConfig()
	for t, b := range file.Links {
		if b.Min < 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "link type %s: min endpoints must be at least 1", t)
		}
		if b.Max != 0 && b.Max < b.Min {
			return nil, errors.New(errors.ErrCodeInvalidInput, "link type %s: max endpoints below min", t)
		}
		cfg.Links[t] = b
	}
	for t, tpl := range file.Components {
		if tpl.Interfaces < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "component type %s: negative interface count", t)
		}
		cfg.Components[t] = tpl
	}
	return cfg, nil
}

func (c *Config) linkBounds(lt LinkType) (EndpointBounds, bool) {
	b, ok := c.Links[string(lt)]
	return b, ok
}

func (c *Config) template(ct ComponentType) (ComponentTemplate, bool) {
	t, ok := c.Components[string(ct)]
	return t, ok
}
