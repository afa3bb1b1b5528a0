package gen

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/syssam/smithygen/compiler/load"
)

// BuiltinParam is an endpoint rule-set parameter bound to a built-in value
// such as AWS::Region.
type BuiltinParam struct {
	Name     string
	BuiltIn  string
	Type     string
	Required bool
}

// Context is the read-only bundle handed to resolvers, strategies and
// decorators. The With methods return modified copies; the per-run state
// (module registry, escaper, manifest) is shared between copies.
type Context struct {
	graph     *load.Graph
	service   *load.Shape
	flavor    Flavor
	lang      Language
	strategy  ModuleStrategy
	settings  *Settings
	modules   *ModuleRegistry
	escaper   *Escaper
	manifest  *Manifest
	protocols *ProtocolRegistry
	symbols   Resolver
	logger    *zap.Logger

	shape   *load.Shape
	symbol  *Symbol
	builtin *BuiltinParam
}

// NewContext creates the context of a fresh run for one service.
func NewContext(g *load.Graph, service load.ShapeID, flavor Flavor, lang Language, strategy ModuleStrategy) (*Context, error) {
	if g == nil {
		return nil, NewConfigError("Graph", nil, "graph cannot be nil")
	}
	if lang == nil {
		return nil, NewConfigError("Language", nil, "language cannot be nil")
	}
	if strategy == nil {
		return nil, NewConfigError("Strategy", nil, "module strategy cannot be nil")
	}
	svc, err := g.Expect(service)
	if err != nil {
		return nil, NewConfigError("Service", service, err.Error())
	}
	if svc.Kind != load.KindService {
		return nil, NewConfigError("Service", service, "shape is not a service")
	}
	modules := NewModuleRegistry()
	return &Context{
		graph:     g,
		service:   svc,
		flavor:    flavor,
		lang:      lang,
		strategy:  strategy,
		modules:   modules,
		escaper:   NewEscaper(lang),
		manifest:  NewManifest(modules),
		protocols: NewProtocolRegistry().For(service, flavor),
		logger:    zap.NewNop(),
	}, nil
}

// Graph returns the shape graph.
func (c *Context) Graph() *load.Graph { return c.graph }

// Service returns the service being generated.
func (c *Context) Service() *load.Shape { return c.service }

// Flavor returns the crate flavor.
func (c *Context) Flavor() Flavor { return c.flavor }

// Language returns the target language.
func (c *Context) Language() Language { return c.lang }

// Strategy returns the module placement strategy.
func (c *Context) Strategy() ModuleStrategy { return c.strategy }

// Settings returns the settings file, or nil.
func (c *Context) Settings() *Settings { return c.settings }

// Modules returns the run's module registry.
func (c *Context) Modules() *ModuleRegistry { return c.modules }

// Escaper returns the run's escaper.
func (c *Context) Escaper() *Escaper { return c.escaper }

// Manifest returns the run's manifest registrar.
func (c *Context) Manifest() *Manifest { return c.manifest }

// Protocols returns the protocol registry.
func (c *Context) Protocols() *ProtocolRegistry { return c.protocols }

// Logger returns the run logger.
func (c *Context) Logger() *zap.Logger { return c.logger }

// Symbols returns the resolver that maps any shape of the run to its
// symbol. Until a chain is attached it is the bare BaseResolver.
func (c *Context) Symbols() Resolver {
	if c.symbols == nil {
		return BaseResolver{}
	}
	return c.symbols
}

// Shape returns the shape an extension point runs for, if any.
func (c *Context) Shape() *load.Shape { return c.shape }

// Symbol returns the symbol an extension point runs for, if any.
func (c *Context) Symbol() (Symbol, bool) {
	if c.symbol == nil {
		return Symbol{}, false
	}
	return *c.symbol, true
}

// Builtin returns the endpoint parameter an extension point runs for, if any.
func (c *Context) Builtin() (BuiltinParam, bool) {
	if c.builtin == nil {
		return BuiltinParam{}, false
	}
	return *c.builtin, true
}

// WithSettings returns a copy bound to the settings file.
func (c *Context) WithSettings(s *Settings) *Context {
	cc := *c
	cc.settings = s
	return &cc
}

// WithProtocols returns a copy bound to a protocol registry.
func (c *Context) WithProtocols(r *ProtocolRegistry) *Context {
	cc := *c
	cc.protocols = r
	return &cc
}

// WithLogger returns a copy using the logger.
func (c *Context) WithLogger(l *zap.Logger) *Context {
	cc := *c
	cc.logger = l
	return &cc
}

// WithSymbols returns a copy resolving shapes through r.
func (c *Context) WithSymbols(r Resolver) *Context {
	cc := *c
	cc.symbols = r
	return &cc
}

// WithShape returns a copy focused on shape and its symbol.
func (c *Context) WithShape(shape *load.Shape, sym Symbol) *Context {
	cc := *c
	cc.shape = shape
	cc.symbol = &sym
	cc.builtin = nil
	return &cc
}

// WithBuiltin returns a copy focused on an endpoint built-in parameter.
func (c *Context) WithBuiltin(p BuiltinParam) *Context {
	cc := *c
	cc.builtin = &p
	cc.shape = nil
	cc.symbol = nil
	return &cc
}

// Fresh returns a context with the same inputs and empty run state.
func (c *Context) Fresh() *Context {
	cc := *c
	cc.modules = NewModuleRegistry()
	cc.escaper = NewEscaper(c.lang)
	cc.manifest = NewManifest(cc.modules)
	cc.symbols = nil
	cc.shape, cc.symbol, cc.builtin = nil, nil, nil
	return &cc
}

// ServiceName returns the service's name after any rename.
func (c *Context) ServiceName() string {
	if name, ok := c.settings.Renamed(c.service.ID); ok {
		return name
	}
	return c.service.ID.Name()
}

// BuiltinParams returns the endpoint rule-set parameters bound to built-in
// values, ordered by name.
func (c *Context) BuiltinParams() []BuiltinParam {
	return BuiltinParams(c.service)
}

// BuiltinParams extracts the built-in bound parameters of the service's
// endpoint rule set, ordered by name.
func BuiltinParams(service *load.Shape) []BuiltinParam {
	v, ok := service.Trait(load.TraitEndpointRuleSet)
	if !ok {
		return nil
	}
	ruleset, ok := toMap(v)
	if !ok {
		return nil
	}
	params, ok := toMap(ruleset["parameters"])
	if !ok {
		return nil
	}
	var out []BuiltinParam
	for name, raw := range params {
		p, ok := toMap(raw)
		if !ok {
			continue
		}
		builtIn, _ := p["builtIn"].(string)
		if builtIn == "" {
			continue
		}
		typ, _ := p["type"].(string)
		required, _ := p["required"].(bool)
		out = append(out, BuiltinParam{Name: name, BuiltIn: builtIn, Type: typ, Required: required})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}
