package gen

import (
	"sort"
	"sync"

	"github.com/syssam/smithygen/compiler/load"
)

// EscapeDomain selects the name table an identifier is escaped in.
type EscapeDomain int

const (
	// DomainType covers type names and enum or union variants.
	DomainType EscapeDomain = iota
	// DomainMember covers structure fields.
	DomainMember
	// DomainModule covers module names.
	DomainModule
)

var domains = []EscapeDomain{DomainType, DomainMember, DomainModule}

// String implements fmt.Stringer.
func (d EscapeDomain) String() string {
	switch d {
	case DomainType:
		return "type"
	case DomainMember:
		return "member"
	case DomainModule:
		return "module"
	}
	return "unknown"
}

// Language describes the naming rules and type spelling of a target
// language.
type Language interface {
	// Name of the language.
	Name() string
	// Case converts a model name to the language convention of the domain.
	Case(d EscapeDomain, name string) string
	// Escape rewrites reserved identifiers of the domain. It must be
	// idempotent: Escape(d, Escape(d, n)) == Escape(d, n).
	Escape(d EscapeDomain, name string) string
	// Builtin maps a simple shape kind to a builtin type.
	Builtin(kind load.Kind) (TypeRef, bool)
	// RenderType spells a type reference.
	RenderType(t TypeRef) string
}

// Rename records an identifier changed by escaping.
type Rename struct {
	Domain EscapeDomain
	From   string
	To     string
}

// Escaper applies a Language's escaping rules and memoizes the result in a
// table per domain. The first stored result for a name wins, so concurrent
// callers observe the same escaped name.
type Escaper struct {
	lang   Language
	tables map[EscapeDomain]*sync.Map
}

// NewEscaper returns an escaper with empty tables.
func NewEscaper(lang Language) *Escaper {
	e := &Escaper{lang: lang, tables: make(map[EscapeDomain]*sync.Map, len(domains))}
	for _, d := range domains {
		e.tables[d] = &sync.Map{}
	}
	return e
}

// Escape returns the escaped form of name in domain d.
func (e *Escaper) Escape(d EscapeDomain, name string) string {
	table, ok := e.tables[d]
	if !ok {
		return name
	}
	if v, ok := table.Load(name); ok {
		return v.(string)
	}
	v, _ := table.LoadOrStore(name, e.lang.Escape(d, name))
	return v.(string)
}

// Renames returns the identifiers of domain d that escaping changed,
// ordered by original name.
func (e *Escaper) Renames(d EscapeDomain) []Rename {
	table, ok := e.tables[d]
	if !ok {
		return nil
	}
	var out []Rename
	table.Range(func(k, v any) bool {
		if from, to := k.(string), v.(string); from != to {
			out = append(out, Rename{Domain: d, From: from, To: to})
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

// AllRenames returns the renames of every domain.
func (e *Escaper) AllRenames() []Rename {
	var out []Rename
	for _, d := range domains {
		out = append(out, e.Renames(d)...)
	}
	return out
}

// EscapingResolver is the last layer of the resolution chain. It rewrites
// reserved names through the run's Escaper and records the original name.
type EscapingResolver struct{}

// Name implements Layer.
func (EscapingResolver) Name() string { return "escaping" }

// Wrap implements Layer.
func (EscapingResolver) Wrap(ctx *Context, shape *load.Shape, inner Symbol) (Symbol, error) {
	d, ok := escapeDomain(ctx, shape)
	if !ok {
		return inner, nil
	}
	escaped := ctx.Escaper().Escape(d, inner.Name)
	if escaped == inner.Name {
		return inner, nil
	}
	out := inner
	if inner.Declares() {
		out.Type.Name = escaped
	}
	out.Name = escaped
	out.Meta = inner.Meta.With(MetaRenamedFrom, inner.Name)
	return out, nil
}

// escapeDomain returns the domain of the shape's name, or false when the
// shape's name is never spelled in generated code.
func escapeDomain(ctx *Context, shape *load.Shape) (EscapeDomain, bool) {
	switch {
	case shape.Kind == load.KindMember:
		if variantContainer(ctx, shape) {
			return DomainType, true
		}
		return DomainMember, true
	case shape.Kind.Aggregate(), shape.Kind == load.KindOperation, shape.Kind == load.KindService:
		return DomainType, true
	case shape.HasTrait(load.TraitEnum):
		return DomainType, true
	}
	return 0, false
}

// variantContainer reports whether the member is an enum or union variant.
func variantContainer(ctx *Context, member *load.Shape) bool {
	c, ok := ctx.Graph().Shape(member.Container)
	if !ok {
		return false
	}
	switch c.Kind {
	case load.KindUnion, load.KindEnum, load.KindIntEnum:
		return true
	}
	return c.HasTrait(load.TraitEnum)
}
