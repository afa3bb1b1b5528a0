package gen

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/syssam/smithygen/compiler/load"
)

// Resolver maps a shape to its symbol.
type Resolver interface {
	Resolve(ctx *Context, shape *load.Shape) (Symbol, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx *Context, shape *load.Shape) (Symbol, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx *Context, shape *load.Shape) (Symbol, error) {
	return f(ctx, shape)
}

// Layer refines the symbol produced by the layers below it. A layer may add
// metadata but never remove or change metadata set below it.
type Layer interface {
	Name() string
	Wrap(ctx *Context, shape *load.Shape, inner Symbol) (Symbol, error)
}

// identityPreserving is implemented by layers that must leave the name and
// module of the inner symbol unchanged.
type identityPreserving interface {
	PreservesIdentity() bool
}

// Chain is a base resolver wrapped by layers, applied in order.
type Chain struct {
	base   Resolver
	layers []Layer
}

var _ Resolver = (*Chain)(nil)

// NewChain composes base with the given layers. The first layer wraps base,
// the last layer produces the final symbol.
func NewChain(base Resolver, layers ...Layer) *Chain {
	return &Chain{base: base, layers: append([]Layer(nil), layers...)}
}

// NewResolver returns the standard per-run resolver: base, metadata and
// escaping layers behind a cache.
func NewResolver() *CachingResolver {
	return NewCachingResolver(NewChain(BaseResolver{}, MetadataResolver{}, EscapingResolver{}))
}

// Layers returns the names of the chain's layers.
func (c *Chain) Layers() []string {
	names := make([]string, len(c.layers))
	for i, l := range c.layers {
		names[i] = l.Name()
	}
	return names
}

// Resolve implements Resolver.
func (c *Chain) Resolve(ctx *Context, shape *load.Shape) (Symbol, error) {
	sym, err := c.base.Resolve(ctx, shape)
	if err != nil {
		return Symbol{}, err
	}
	for _, l := range c.layers {
		next, err := l.Wrap(ctx, shape, sym)
		if err != nil {
			return Symbol{}, err
		}
		if err := checkLayer(l, shape, sym, next); err != nil {
			return Symbol{}, err
		}
		sym = next
	}
	return sym, nil
}

func checkLayer(l Layer, shape *load.Shape, prev, next Symbol) error {
	if next.Shape != prev.Shape {
		return NewGenerationError("resolve", shape.ID, fmt.Sprintf("layer %s changed the symbol's shape to %s", l.Name(), next.Shape), nil)
	}
	for _, k := range prev.Meta.Keys() {
		if v, ok := next.Meta[k]; !ok || v != prev.Meta[k] {
			return NewGenerationError("resolve", shape.ID, fmt.Sprintf("layer %s removed or changed metadata %q", l.Name(), k), nil)
		}
	}
	if p, ok := l.(identityPreserving); ok && p.PreservesIdentity() {
		if next.Name != prev.Name || next.Module != prev.Module {
			return NewGenerationError("resolve", shape.ID, fmt.Sprintf("layer %s changed name or module", l.Name()), nil)
		}
	}
	return nil
}

// BaseResolver derives name, module and type of a shape.
type BaseResolver struct{}

// Resolve implements Resolver.
func (BaseResolver) Resolve(ctx *Context, shape *load.Shape) (Symbol, error) {
	if shape == nil {
		return Symbol{}, NewGenerationError("resolve", "", "nil shape", nil)
	}
	if shape.ID == load.UnitID {
		return Symbol{
			Shape:  shape.ID,
			Name:   shape.ID.Name(),
			Module: ctx.Modules().Root(),
			Type:   UnitType(),
			Meta:   Meta{MetaBuiltin: "true"},
		}, nil
	}
	mod, err := ctx.Strategy().ModuleFor(ctx, shape)
	if err != nil {
		return Symbol{}, err
	}
	lang := ctx.Language()
	sym := Symbol{Shape: shape.ID, Module: mod, Meta: Meta{}}
	switch {
	case shape.Kind == load.KindMember:
		return resolveMember(ctx, shape, sym)
	case shape.Kind.Aggregate(), shape.Kind == load.KindOperation, shape.Kind == load.KindService,
		shape.Kind == load.KindString && shape.HasTrait(load.TraitEnum):
		sym.Name = lang.Case(DomainType, modelName(ctx, shape))
		sym.Type = NamedType(mod.Path, sym.Name)
	case shape.Kind.Simple():
		t, ok := lang.Builtin(shape.Kind)
		if !ok {
			return Symbol{}, NewGenerationError("resolve", shape.ID, fmt.Sprintf("%s has no builtin %s type", lang.Name(), shape.Kind), nil)
		}
		sym.Name = lang.Case(DomainType, modelName(ctx, shape))
		sym.Type = t
		sym.Meta = Meta{MetaBuiltin: "true"}
	case shape.Kind == load.KindList, shape.Kind == load.KindSet:
		elem, err := memberType(ctx, shape, "member")
		if err != nil {
			return Symbol{}, err
		}
		sym.Name = lang.Case(DomainType, modelName(ctx, shape))
		sym.Type = ListOf(elem)
	case shape.Kind == load.KindMap:
		key, err := memberType(ctx, shape, "key")
		if err != nil {
			return Symbol{}, err
		}
		value, err := memberType(ctx, shape, "value")
		if err != nil {
			return Symbol{}, err
		}
		sym.Name = lang.Case(DomainType, modelName(ctx, shape))
		sym.Type = MapOf(key, value)
	default:
		return Symbol{}, &UnmappedModuleError{Shape: shape.ID, Kind: shape.Kind, Flavor: ctx.Flavor()}
	}
	return sym, nil
}

func resolveMember(ctx *Context, member *load.Shape, sym Symbol) (Symbol, error) {
	container, err := ctx.Graph().Expect(member.Container)
	if err != nil {
		return Symbol{}, NewGenerationError("resolve", member.ID, "member without container", err)
	}
	lang := ctx.Language()
	switch container.Kind {
	case load.KindEnum, load.KindIntEnum:
		sym.Name = lang.Case(DomainType, member.MemberName())
		sym.Type = UnitType()
		if v, ok := member.Trait(load.TraitEnumValue); ok {
			sym.Meta = Meta{MetaEnumValue: fmt.Sprint(v)}
		}
		return sym, nil
	case load.KindUnion:
		sym.Name = lang.Case(DomainType, member.MemberName())
	default:
		sym.Name = lang.Case(DomainMember, member.MemberName())
	}
	t, err := targetType(ctx, member)
	if err != nil {
		return Symbol{}, err
	}
	if container.Kind == load.KindStructure && !(member.HasTrait(load.TraitRequired) && ctx.Flavor() == FlavorServer) {
		t = OptionOf(t)
	}
	sym.Type = t
	return sym, nil
}

func memberType(ctx *Context, shape *load.Shape, name string) (TypeRef, error) {
	m, ok := shape.Member(name)
	if !ok {
		return TypeRef{}, NewGenerationError("resolve", shape.ID, fmt.Sprintf("%s has no %s member", shape.Kind, name), nil)
	}
	return targetType(ctx, m)
}

func targetType(ctx *Context, member *load.Shape) (TypeRef, error) {
	target, err := ctx.Graph().Expect(member.Target)
	if err != nil {
		return TypeRef{}, NewGenerationError("resolve", member.ID, "unknown member target", err)
	}
	sym, err := ctx.Symbols().Resolve(ctx, target)
	if err != nil {
		return TypeRef{}, err
	}
	return sym.Type, nil
}

// modelName returns the shape's name with service and settings renames applied.
func modelName(ctx *Context, shape *load.Shape) string {
	if name, ok := ctx.Service().Rename[shape.ID]; ok && name != "" {
		return name
	}
	if name, ok := ctx.Settings().Renamed(shape.ID); ok {
		return name
	}
	return shape.ID.Name()
}

// MetaEnumValue carries the wire value of an enum variant.
const MetaEnumValue = "enum_value"

// MetadataResolver annotates symbols with flavor-dependent metadata. It
// never changes a symbol's name or module.
type MetadataResolver struct{}

// Name implements Layer.
func (MetadataResolver) Name() string { return "metadata" }

// PreservesIdentity implements identityPreserving.
func (MetadataResolver) PreservesIdentity() bool { return true }

// Wrap implements Layer.
func (MetadataResolver) Wrap(ctx *Context, shape *load.Shape, inner Symbol) (Symbol, error) {
	meta := inner.Meta
	set := func(k, v string) {
		if !meta.Has(k) {
			meta = meta.With(k, v)
		}
	}
	if inner.Declares() && shape.Kind != load.KindOperation && shape.Kind != load.KindService {
		if ctx.Flavor() != FlavorServer {
			set(MetaNonExhaustive, "true")
		}
		switch {
		case shape.Kind == load.KindEnum, shape.Kind == load.KindIntEnum, shape.HasTrait(load.TraitEnum):
			set(MetaDerives, "Clone,Debug,PartialEq,Eq,Hash")
		default:
			set(MetaDerives, "Clone,Debug,PartialEq")
		}
	}
	if sensitive(ctx, shape) {
		set(MetaSensitive, "true")
	}
	if shape.HasTrait(load.TraitDeprecated) {
		msg, ok := shape.TraitString(load.TraitDeprecated, "message")
		if !ok {
			msg = "true"
		}
		set(MetaDeprecated, msg)
	}
	if doc, ok := shape.TraitString(load.TraitDocumentation, ""); ok {
		set(MetaDocumentation, doc)
	}
	inner.Meta = meta
	return inner, nil
}

func sensitive(ctx *Context, shape *load.Shape) bool {
	if shape.HasTrait(load.TraitSensitive) {
		return true
	}
	if shape.Kind != load.KindMember {
		return false
	}
	target, ok := ctx.Graph().Shape(shape.Target)
	return ok && target.HasTrait(load.TraitSensitive)
}

type cacheKey struct {
	flavor Flavor
	shape  load.ShapeID
}

// CachingResolver memoizes symbols per flavor and shape. When two callers
// race on the same shape, the first stored symbol is returned to both.
type CachingResolver struct {
	inner  Resolver
	cache  sync.Map
	hits   *atomic.Int64
	misses *atomic.Int64
}

var _ Resolver = (*CachingResolver)(nil)

// NewCachingResolver wraps inner with a cache.
func NewCachingResolver(inner Resolver) *CachingResolver {
	return &CachingResolver{
		inner:  inner,
		hits:   atomic.NewInt64(0),
		misses: atomic.NewInt64(0),
	}
}

// Resolve implements Resolver.
func (c *CachingResolver) Resolve(ctx *Context, shape *load.Shape) (Symbol, error) {
	key := cacheKey{flavor: ctx.Flavor(), shape: shape.ID}
	if v, ok := c.cache.Load(key); ok {
		c.hits.Inc()
		return v.(Symbol), nil
	}
	sym, err := c.inner.Resolve(ctx, shape)
	if err != nil {
		return Symbol{}, err
	}
	v, loaded := c.cache.LoadOrStore(key, sym)
	if loaded {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return v.(Symbol), nil
}

// Hits returns the number of cache hits.
func (c *CachingResolver) Hits() int64 { return c.hits.Load() }

// Misses returns the number of resolutions that reached the inner resolver.
func (c *CachingResolver) Misses() int64 { return c.misses.Load() }

// NeedsBuilder reports whether a builder is generated for the shape.
func NeedsBuilder(shape *load.Shape) bool {
	return shape.Kind == load.KindStructure && shape.ID != load.UnitID
}

// BuilderSymbol returns the builder of sym, placed in the builders
// submodule of sym's module.
func BuilderSymbol(ctx *Context, sym Symbol) (Symbol, error) {
	mod, err := ctx.Strategy().BuilderModuleFor(ctx, sym.Module)
	if err != nil {
		return Symbol{}, err
	}
	name := ctx.Escaper().Escape(DomainType, sym.Name+"Builder")
	return Symbol{
		Shape:  sym.Shape,
		Name:   name,
		Module: mod,
		Type:   NamedType(mod.Path, name),
		Meta:   Meta{MetaBuilderFor: sym.FullName()},
	}, nil
}

// CheckNames verifies that no two shapes declare the same name in a module
// and that member names are unique within their container.
func CheckNames(symbols []Symbol) error {
	type scope struct{ scope, name string }
	seen := make(map[scope][]load.ShapeID)
	for _, s := range symbols {
		var key scope
		switch {
		case s.Shape.Member() != "":
			key = scope{scope: string(s.Shape.Root()), name: s.Name}
		case s.Declares():
			key = scope{scope: s.Module.Path, name: s.Name}
		default:
			continue
		}
		ids := seen[key]
		dup := false
		for _, id := range ids {
			dup = dup || id == s.Shape
		}
		if !dup {
			seen[key] = append(ids, s.Shape)
		}
	}
	keys := make([]scope, 0, len(seen))
	for k, ids := range seen {
		if len(ids) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].scope != keys[j].scope {
			return keys[i].scope < keys[j].scope
		}
		return keys[i].name < keys[j].name
	})
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		ids := seen[k]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		errs = append(errs, &NameConflictError{Scope: k.scope, Name: k.name, Shapes: ids})
	}
	return errors.Join(errs...)
}
