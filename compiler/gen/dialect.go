package gen

import "github.com/syssam/smithygen/compiler/load"

// =============================================================================
// Interface Segregation: a dialect provides the target language; rendering,
// decorators and protocol strategies are optional capabilities.
// =============================================================================

// Dialect is the minimal target-language support the generator needs.
type Dialect interface {
	// Name of the dialect, e.g. "rust".
	Name() string
	// Language returns the naming and type rules.
	Language() Language
	// Strategy returns the module placement strategy of a flavor.
	Strategy(flavor Flavor) (ModuleStrategy, error)
}

// DecoratorProvider supplies the built-in decorators of a flavor.
type DecoratorProvider interface {
	Decorators(flavor Flavor) []*Decorator
}

// ProtocolProvider registers default protocol strategies, and any
// overrides the flavor needs for the service.
type ProtocolProvider interface {
	RegisterProtocols(flavor Flavor, service *load.Shape, r *ProtocolRegistry) error
}

// SymbolRenderer renders the declaration of a symbol. members holds the
// resolved members of aggregate shapes in declaration order.
type SymbolRenderer interface {
	RenderSymbol(ctx *Context, sym Symbol, members []Symbol) (string, error)
}

// FileLayout maps modules to files for DirBackend.
type FileLayout interface {
	// File returns the path of the module's file relative to the output
	// directory. Inline modules are written into their parent's file.
	File(m *Module) string
	// Header returns the leading content of a module: its documentation.
	Header(m *Module, doc string) string
	// Declare returns the declaration of a child module in its parent.
	Declare(child *Module) string
	// Open and Close wrap the body of an inline child module.
	Open(child *Module) string
	Close(child *Module) string
}

// LayoutProvider supplies a FileLayout.
type LayoutProvider interface {
	Layout() FileLayout
}

// DialectGenerator is a dialect implementing every optional capability.
type DialectGenerator interface {
	Dialect
	DecoratorProvider
	ProtocolProvider
	SymbolRenderer
	LayoutProvider
}
