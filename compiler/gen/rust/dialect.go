// Package rust provides the Rust target of smithygen.
//
// This package implements the gen.DialectGenerator interface for the three
// crate flavors: client, server and AWS SDK.
//
// Usage:
//
//	import (
//	    "github.com/syssam/smithygen/compiler/gen"
//	    "github.com/syssam/smithygen/compiler/gen/rust"
//	)
//
//	err := rust.Generate(ctx, "model.json",
//	    gen.WithFlavor(gen.FlavorClient),
//	    gen.WithTarget("./weather"),
//	)
//
// Generated crate structure (client and sdk):
//
//	{output}/src/
//	├── lib.rs               # crate root: Client, Config re-export
//	├── config.rs            # Config and its Builder
//	├── config/
//	│   └── endpoint.rs      # endpoint built-in parameters
//	├── operation.rs
//	├── operation/
//	│   ├── {op}.rs          # operation struct, synthetic input/output
//	│   └── {op}/builders.rs # input/output builders
//	├── types.rs             # shared data types
//	└── types/
//	    ├── builders.rs
//	    └── error.rs         # modeled errors
//
// Server crates place shared types in model and errors in error.
package rust

import (
	"context"

	"github.com/syssam/smithygen/compiler/gen"
	"github.com/syssam/smithygen/compiler/load"
)

// Dialect is the Rust dialect.
type Dialect struct {
	lang Language
}

var _ gen.DialectGenerator = (*Dialect)(nil)

// New returns the Rust dialect.
func New() *Dialect {
	return &Dialect{}
}

// Name implements gen.Dialect.
func (d *Dialect) Name() string { return "rust" }

// Language implements gen.Dialect.
func (d *Dialect) Language() gen.Language { return d.lang }

// Generate loads the model at path and generates every selected service
// with the Rust dialect. This is the recommended entry point.
//
// Example:
//
//	err := rust.Generate(ctx, "weather.json", gen.WithTarget("./out"))
func Generate(ctx context.Context, path string, opts ...gen.Option) error {
	g, err := load.Load(path)
	if err != nil {
		return err
	}
	_, err = GenerateGraph(ctx, g, opts...)
	return err
}

// GenerateGraph generates a loaded model and returns the generator for
// inspection of its statistics.
func GenerateGraph(ctx context.Context, g *load.Graph, opts ...gen.Option) (*gen.Generator, error) {
	cfg, err := gen.NewConfig(append([]gen.Option{gen.WithDialect(New())}, opts...)...)
	if err != nil {
		return nil, err
	}
	generator, err := gen.NewGenerator(g, cfg)
	if err != nil {
		return nil, err
	}
	if err := generator.Generate(ctx); err != nil {
		return nil, err
	}
	return generator, nil
}
