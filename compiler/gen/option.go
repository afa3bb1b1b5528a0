package gen

import (
	"errors"

	"go.uber.org/zap"

	"github.com/syssam/smithygen/compiler/load"
)

// Option configures code generation.
type Option func(*Config) error

// WithTarget sets the output directory.
// The directory where generated code will be written.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithFlavor sets the crate flavor.
func WithFlavor(f Flavor) Option {
	return func(c *Config) error {
		switch f {
		case FlavorClient, FlavorServer, FlavorSDK:
			c.Flavor = f
			return nil
		}
		return NewConfigError("Flavor", f, "unknown flavor")
	}
}

// WithService selects a service to generate. It may be given more than once.
func WithService(id load.ShapeID) Option {
	return func(c *Config) error {
		if !id.Valid() || id.Member() != "" {
			return NewConfigError("Service", id, "invalid service shape id")
		}
		for _, s := range c.Services {
			if s == id {
				return nil
			}
		}
		c.Services = append(c.Services, id)
		return nil
	}
}

// WithCrate sets the crate name and version of the manifest.
func WithCrate(name, version string) Option {
	return func(c *Config) error {
		if name == "" {
			return NewConfigError("Crate", nil, "crate name cannot be empty")
		}
		c.Crate = name
		c.CrateVersion = version
		return nil
	}
}

// WithWorkers bounds parallel symbol resolution.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithFeatures enables specific features.
// Features control optional code generation capabilities.
func WithFeatures(features ...Feature) Option {
	return func(c *Config) error {
		for _, f := range features {
			if !hasFeature(c.Features, f.Name) {
				c.Features = append(c.Features, f)
			}
		}
		return nil
	}
}

// WithoutFeatures disables features, including default ones.
func WithoutFeatures(names ...string) Option {
	return func(c *Config) error {
		kept := c.Features[:0]
		for _, f := range c.Features {
			drop := false
			for _, name := range names {
				drop = drop || f.Name == name
			}
			if !drop {
				kept = append(kept, f)
			}
		}
		c.Features = kept
		return nil
	}
}

// WithDecorators registers decorators after the built-in ones.
func WithDecorators(ds ...*Decorator) Option {
	return func(c *Config) error {
		for _, d := range ds {
			if d == nil {
				return NewConfigError("Decorators", nil, "decorator cannot be nil")
			}
		}
		c.Decorators = append(c.Decorators, ds...)
		return nil
	}
}

// WithProtocolOverride registers a protocol strategy override.
// Duplicates are reported when the run's registry is built.
func WithProtocolOverride(protocol ProtocolID, capability Capability, s Strategy) Option {
	return func(c *Config) error {
		if s == nil {
			return NewConfigError("ProtocolOverride", protocol, "strategy cannot be nil")
		}
		c.ProtocolOverrides = append(c.ProtocolOverrides, ProtocolOverride{
			Protocol:   protocol,
			Capability: capability,
			Strategy:   s,
		})
		return nil
	}
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithBackend sets the emission backend.
// If not set, a DirBackend rooted at Target is used, or a MemoryBackend
// when no target is configured.
func WithBackend(b Backend) Option {
	return func(c *Config) error {
		if b == nil {
			return NewConfigError("Backend", nil, "backend cannot be nil")
		}
		c.Backend = b
		return nil
	}
}

// WithDialect sets the target-language dialect.
func WithDialect(d Dialect) Option {
	return func(c *Config) error {
		if d == nil {
			return NewConfigError("Dialect", nil, "dialect cannot be nil")
		}
		c.Dialect = d
		return nil
	}
}

// WithSnapshot enables the snapshot feature and sets the output path.
func WithSnapshot(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return NewConfigError("Snapshot", nil, "snapshot path cannot be empty")
		}
		c.Snapshot = path
		return WithFeatures(FeatureSnapshot)(c)
	}
}

// WithSettings attaches a parsed settings file.
func WithSettings(s *Settings) Option {
	return func(c *Config) error {
		if s == nil {
			return NewConfigError("Settings", nil, "settings cannot be nil")
		}
		c.Settings = s
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with the default features and the given
// options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{Flavor: FlavorClient}
	for _, f := range AllFeatures {
		if f.Default {
			c.Features = append(c.Features, f)
		}
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
