// Package gen provides the resolution and composition core of smithygen.
//
// The package maps every shape reachable from a service to a Symbol (name,
// module, type and metadata), organizes symbols into a module tree, and runs
// prioritized decorators that contribute code to fixed extension points.
// It is target-language neutral; a Dialect supplies the naming rules,
// placement strategies and built-in decorators (see compiler/gen/rust).
//
// # Architecture
//
// A generation run follows this flow:
//
//	Shape graph (compiler/load)
//	        ↓
//	   load.Normalize (synthetic operation inputs/outputs)
//	        ↓
//	   Resolver chain: BaseResolver → MetadataResolver → EscapingResolver
//	        ↓
//	   ModuleStrategy (per flavor) + ModuleRegistry
//	        ↓
//	   Pipeline (decorators by priority, then registration order)
//	        ↓
//	   Backend (Emission: module, symbol, fragment)
//
// # Interface Hierarchy
//
// Dialects follow the Interface Segregation Principle:
//
//	Dialect (required)
//	├── Name() string
//	├── Language() Language
//	└── Strategy(Flavor) (ModuleStrategy, error)
//
//	Optional capabilities, detected by type assertion:
//	├── DecoratorProvider  built-in decorators per flavor
//	├── ProtocolProvider   default protocol strategies and overrides
//	├── SymbolRenderer     declarations of resolved symbols
//	└── LayoutProvider     module-to-file mapping for DirBackend
//
// # Error Handling
//
// The package uses structured error types; all of them end the run:
//
//   - UnmappedModuleError: a shape kind with no placement rule
//   - UnreachableOperationError: a synthetic shape whose operation is missing
//   - DuplicateProtocolOverrideError: a second override for the same key
//   - NonDeterministicResolutionError: two resolutions of a shape disagree
//   - NameConflictError: two shapes declare the same name in one scope
//   - DecoratorError, DecoratorOrderError: decorator failures
//   - ConfigError, GenerationError
//
// Example error handling:
//
//	if err := generator.Generate(ctx); err != nil {
//	    if errors.Is(err, gen.ErrUnmappedModule) {
//	        // the model uses a shape kind the flavor cannot place
//	    }
//	    return err
//	}
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	config, err := gen.NewConfig(
//	    gen.WithDialect(rust.New()),
//	    gen.WithFlavor(gen.FlavorClient),
//	    gen.WithTarget("./weather"),
//	)
//
// Settings files map to options through Settings.Options.
//
// # Features
//
//   - verify-determinism: resolve twice and compare
//   - snapshot: write the symbol table as Go source
//   - parallel-resolution: bounded concurrent resolution (default)
package gen
