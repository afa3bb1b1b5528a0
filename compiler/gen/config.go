package gen

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/syssam/smithygen/compiler/load"
)

// Flavor selects the kind of crate being generated.
type Flavor int

const (
	_ Flavor = iota
	// FlavorClient generates a generic client crate.
	FlavorClient
	// FlavorServer generates a server SDK crate.
	FlavorServer
	// FlavorSDK generates an AWS SDK client crate.
	FlavorSDK
)

// Flavors lists every flavor in declaration order.
var Flavors = []Flavor{FlavorClient, FlavorServer, FlavorSDK}

// String implements fmt.Stringer.
func (f Flavor) String() string {
	switch f {
	case FlavorClient:
		return "client"
	case FlavorServer:
		return "server"
	case FlavorSDK:
		return "sdk"
	default:
		return fmt.Sprintf("flavor(%d)", int(f))
	}
}

// ParseFlavor parses a flavor name.
func ParseFlavor(s string) (Flavor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client":
		return FlavorClient, nil
	case "server":
		return FlavorServer, nil
	case "sdk":
		return FlavorSDK, nil
	}
	return 0, NewConfigError("Flavor", s, "unknown flavor; use client, server, or sdk")
}

// Config holds the global codegen configuration.
type Config struct {
	// Target is the output directory of DirBackend.
	Target string

	// Flavor of the generated crate.
	Flavor Flavor

	// Services selects the services to generate. All services of the
	// graph are generated when empty.
	Services []load.ShapeID

	// Crate name and version written to the manifest.
	Crate        string
	CrateVersion string

	// Workers bounds parallel symbol resolution.
	Workers int

	// Features enabled for this run. NewConfig seeds it with the default
	// features.
	Features []Feature

	// Decorators registered after the dialect's built-in decorators.
	Decorators []*Decorator

	// ProtocolOverrides registered after the dialect's defaults.
	ProtocolOverrides []ProtocolOverride

	// Settings holds the parsed settings file, if any.
	Settings *Settings

	// Snapshot is the path of the Go symbol snapshot written when the
	// snapshot feature is enabled.
	Snapshot string

	Logger  *zap.Logger
	Backend Backend
	Dialect Dialect
}

// FeatureEnabled reports whether the named feature is enabled.
func (c *Config) FeatureEnabled(name string) (bool, error) {
	for _, f := range AllFeatures {
		if f.Name != name {
			continue
		}
		for _, enabled := range c.Features {
			if enabled.Name == name {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unexpected feature name %q", name)
}

// enabled is FeatureEnabled for features known to exist.
func (c *Config) enabled(f Feature) bool {
	ok, _ := c.FeatureEnabled(f.Name)
	return ok
}

func (c *Config) workers() int {
	if !c.enabled(FeatureParallelResolution) {
		return 1
	}
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c *Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.L()
}

// Settings is the per-project settings file, in the spirit of
// smithy-build.json plugin settings.
type Settings struct {
	Service       string            `yaml:"service"`
	Module        string            `yaml:"module"`
	ModuleVersion string            `yaml:"moduleVersion"`
	Flavor        string            `yaml:"flavor"`
	Features      []string          `yaml:"features"`
	Rename        map[string]string `yaml:"rename"`
}

// LoadSettings reads a YAML or JSON settings file.
func LoadSettings(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := ParseSettings(f)
	if err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// ParseSettings decodes settings from r.
func ParseSettings(r io.Reader) (*Settings, error) {
	s := &Settings{}
	if err := yaml.NewDecoder(r).Decode(s); err != nil && err != io.EOF {
		return nil, err
	}
	return s, nil
}

// Renamed returns the settings rename for the shape, if any.
func (s *Settings) Renamed(id load.ShapeID) (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s.Rename[string(id)]
	return name, ok && name != ""
}

// Options converts the settings to config options.
func (s *Settings) Options() ([]Option, error) {
	opts := []Option{WithSettings(s)}
	if s.Service != "" {
		opts = append(opts, WithService(load.ShapeID(s.Service)))
	}
	if s.Module != "" {
		opts = append(opts, WithCrate(s.Module, s.ModuleVersion))
	}
	if s.Flavor != "" {
		f, err := ParseFlavor(s.Flavor)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithFlavor(f))
	}
	if len(s.Features) > 0 {
		names := append([]string(nil), s.Features...)
		sort.Strings(names)
		features := make([]Feature, 0, len(names))
		for _, name := range names {
			f, ok := FeatureByName(name)
			if !ok {
				return nil, NewConfigError("Features", name, "unknown feature")
			}
			features = append(features, f)
		}
		opts = append(opts, WithFeatures(features...))
	}
	return opts, nil
}
