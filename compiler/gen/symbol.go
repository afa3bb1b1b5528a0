package gen

import (
	"maps"
	"sort"
	"strings"

	"github.com/syssam/smithygen/compiler/load"
)

// TypeKind discriminates TypeRef.
type TypeKind int

// Type reference kinds.
const (
	TypeNamed TypeKind = iota
	TypeBuiltin
	TypeUnit
	TypeOption
	TypeList
	TypeMap
	TypeBox
)

// TypeRef is a language-neutral reference to a type in generated code.
// Named types live in Module; builtin types carry the target language's
// spelling in Name; wrappers carry their element types in Elems.
type TypeRef struct {
	Kind   TypeKind
	Name   string
	Module string
	Elems  []TypeRef
}

// NamedType references a type declared in module.
func NamedType(module, name string) TypeRef {
	return TypeRef{Kind: TypeNamed, Module: module, Name: name}
}

// BuiltinType references a type provided by the language or runtime.
func BuiltinType(name string) TypeRef {
	return TypeRef{Kind: TypeBuiltin, Name: name}
}

// UnitType references the empty type.
func UnitType() TypeRef {
	return TypeRef{Kind: TypeUnit}
}

// OptionOf wraps t in an optional type.
func OptionOf(t TypeRef) TypeRef {
	return TypeRef{Kind: TypeOption, Elems: []TypeRef{t}}
}

// ListOf references a list of t.
func ListOf(t TypeRef) TypeRef {
	return TypeRef{Kind: TypeList, Elems: []TypeRef{t}}
}

// MapOf references a map from k to v.
func MapOf(k, v TypeRef) TypeRef {
	return TypeRef{Kind: TypeMap, Elems: []TypeRef{k, v}}
}

// BoxOf references a heap-allocated t.
func BoxOf(t TypeRef) TypeRef {
	return TypeRef{Kind: TypeBox, Elems: []TypeRef{t}}
}

// Optional reports whether the type is an optional wrapper.
func (t TypeRef) Optional() bool {
	return t.Kind == TypeOption
}

// Equal reports whether two type references are identical.
func (t TypeRef) Equal(o TypeRef) bool {
	if t.Kind != o.Kind || t.Name != o.Name || t.Module != o.Module || len(t.Elems) != len(o.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

// String returns a language-neutral rendering used in logs and snapshots.
func (t TypeRef) String() string {
	elems := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		elems[i] = e.String()
	}
	switch t.Kind {
	case TypeNamed:
		return t.Module + pathSep + t.Name
	case TypeBuiltin:
		return t.Name
	case TypeUnit:
		return "()"
	case TypeOption:
		return "option<" + strings.Join(elems, ", ") + ">"
	case TypeList:
		return "list<" + strings.Join(elems, ", ") + ">"
	case TypeMap:
		return "map<" + strings.Join(elems, ", ") + ">"
	case TypeBox:
		return "box<" + strings.Join(elems, ", ") + ">"
	}
	return "?"
}

// Well-known metadata keys.
const (
	MetaNonExhaustive = "non_exhaustive"
	MetaDerives       = "derives"
	MetaSensitive     = "sensitive"
	MetaDeprecated    = "deprecated"
	MetaRenamedFrom   = "renamed_from"
	MetaBuiltin       = "builtin"
	MetaBuilderFor    = "builder_for"
	MetaDocumentation = "documentation"
)

// Meta holds key-tagged symbol annotations. A Meta value is never mutated
// after it is attached to a symbol; With returns a copy.
type Meta map[string]string

// With returns a copy of m with key set to value.
func (m Meta) With(key, value string) Meta {
	out := make(Meta, len(m)+1)
	maps.Copy(out, m)
	out[key] = value
	return out
}

// Has reports whether key is set.
func (m Meta) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Keys returns the keys in sorted order.
func (m Meta) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Symbol is the resolved identity of a shape in generated code.
type Symbol struct {
	Shape  load.ShapeID
	Name   string
	Module *Module
	Type   TypeRef
	Meta   Meta
}

// FullName returns the module-qualified name.
func (s Symbol) FullName() string {
	if s.Module == nil {
		return s.Name
	}
	return s.Module.Path + pathSep + s.Name
}

// WithMeta returns a copy of s with the metadata key set.
func (s Symbol) WithMeta(key, value string) Symbol {
	s.Meta = s.Meta.With(key, value)
	return s
}

// Declares reports whether the symbol introduces a named type in its module,
// as opposed to referring to a builtin or a collection.
func (s Symbol) Declares() bool {
	return s.Module != nil && s.Type.Kind == TypeNamed && s.Type.Name == s.Name && s.Type.Module == s.Module.Path
}

// Key returns a canonical string that identifies the symbol's resolved
// content. Equal keys mean equal symbols.
func (s Symbol) Key() string {
	var b strings.Builder
	b.WriteString(string(s.Shape))
	b.WriteString("|")
	b.WriteString(s.FullName())
	b.WriteString("|")
	b.WriteString(s.Type.String())
	for _, k := range s.Meta.Keys() {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(s.Meta[k])
	}
	return b.String()
}
