// Package load provides the shape graph consumed by the code generator.
//
// A graph is decoded from a Smithy JSON AST document (or its YAML/msgpack
// equivalent), validated for dangling references and then frozen. The
// generator only reads from it.
package load

import (
	"fmt"
	"sort"
	"strings"
)

// ShapeID is an absolute shape identifier such as "example.weather#GetForecast"
// or, for members, "example.weather#GetForecastInput$city".
type ShapeID string

// Namespace returns the namespace part of the identifier.
func (id ShapeID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), "#")
	return ns
}

// Name returns the shape name without namespace and member.
func (id ShapeID) Name() string {
	_, rest, ok := strings.Cut(string(id), "#")
	if !ok {
		rest = string(id)
	}
	name, _, _ := strings.Cut(rest, "$")
	return name
}

// Member returns the member name, or "" for non-member identifiers.
func (id ShapeID) Member() string {
	_, member, _ := strings.Cut(string(id), "$")
	return member
}

// Root returns the identifier without its member part.
func (id ShapeID) Root() ShapeID {
	root, _, _ := strings.Cut(string(id), "$")
	return ShapeID(root)
}

// WithMember returns the member identifier of name within id.
func (id ShapeID) WithMember(name string) ShapeID {
	return ShapeID(string(id.Root()) + "$" + name)
}

// Valid reports whether the identifier has a namespace and a name.
func (id ShapeID) Valid() bool {
	ns, rest, ok := strings.Cut(string(id), "#")
	return ok && ns != "" && rest != "" && !strings.HasPrefix(rest, "$")
}

// Kind is the type of a shape.
type Kind string

// Shape kinds.
const (
	KindStructure  Kind = "structure"
	KindUnion      Kind = "union"
	KindEnum       Kind = "enum"
	KindIntEnum    Kind = "intEnum"
	KindOperation  Kind = "operation"
	KindService    Kind = "service"
	KindResource   Kind = "resource"
	KindMember     Kind = "member"
	KindList       Kind = "list"
	KindSet        Kind = "set"
	KindMap        Kind = "map"
	KindString     Kind = "string"
	KindBlob       Kind = "blob"
	KindBoolean    Kind = "boolean"
	KindByte       Kind = "byte"
	KindShort      Kind = "short"
	KindInteger    Kind = "integer"
	KindLong       Kind = "long"
	KindFloat      Kind = "float"
	KindDouble     Kind = "double"
	KindBigInteger Kind = "bigInteger"
	KindBigDecimal Kind = "bigDecimal"
	KindTimestamp  Kind = "timestamp"
	KindDocument   Kind = "document"
)

// Simple reports whether the kind is a simple (scalar) kind.
func (k Kind) Simple() bool {
	switch k {
	case KindString, KindBlob, KindBoolean, KindByte, KindShort, KindInteger, KindLong,
		KindFloat, KindDouble, KindBigInteger, KindBigDecimal, KindTimestamp, KindDocument:
		return true
	}
	return false
}

// Aggregate reports whether the kind declares a named type in generated code.
func (k Kind) Aggregate() bool {
	switch k {
	case KindStructure, KindUnion, KindEnum, KindIntEnum:
		return true
	}
	return false
}

// Collection reports whether the kind is a list, set or map.
func (k Kind) Collection() bool {
	return k == KindList || k == KindSet || k == KindMap
}

// Well-known trait identifiers.
const (
	TraitError           = "smithy.api#error"
	TraitInput           = "smithy.api#input"
	TraitOutput          = "smithy.api#output"
	TraitEnum            = "smithy.api#enum"
	TraitRequired        = "smithy.api#required"
	TraitSensitive       = "smithy.api#sensitive"
	TraitDocumentation   = "smithy.api#documentation"
	TraitStreaming       = "smithy.api#streaming"
	TraitDeprecated      = "smithy.api#deprecated"
	TraitEnumValue       = "smithy.api#enumValue"
	TraitSyntheticInput  = "smithy.synthetic#syntheticInput"
	TraitSyntheticOutput = "smithy.synthetic#syntheticOutput"
	TraitEndpointRuleSet = "smithy.rules#endpointRuleSet"
)

// Traits maps trait identifiers to their decoded values.
type Traits map[string]any

// Has reports whether the trait is present.
func (t Traits) Has(id string) bool {
	_, ok := t[id]
	return ok
}

// Keys returns the trait identifiers in sorted order.
func (t Traits) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns a string trait value, or a string field of an object trait
// when field is not empty.
func (t Traits) String(id, field string) (string, bool) {
	v, ok := t[id]
	if !ok {
		return "", false
	}
	if field == "" {
		s, ok := v.(string)
		return s, ok
	}
	m, ok := asMap(v)
	if !ok {
		return "", false
	}
	s, ok := m[field].(string)
	return s, ok
}

// Shape is a node in the shape graph.
type Shape struct {
	ID     ShapeID
	Kind   Kind
	Traits Traits
	// Members holds the ordered members of aggregate and collection shapes.
	// Each member is a shape of kind member.
	Members []*Shape
	// Target and Container are set on member shapes only.
	Target    ShapeID
	Container ShapeID
	// Operation bindings.
	Input  ShapeID
	Output ShapeID
	Errors []ShapeID
	// Service and resource bindings.
	Version    string
	Operations []ShapeID
	Resources  []ShapeID
	Rename     map[ShapeID]string
}

// HasTrait reports whether the shape carries the trait.
func (s *Shape) HasTrait(id string) bool {
	return s.Traits.Has(id)
}

// Trait returns the raw trait value.
func (s *Shape) Trait(id string) (any, bool) {
	v, ok := s.Traits[id]
	return v, ok
}

// TraitString returns a string trait value or string field of an object trait.
func (s *Shape) TraitString(id, field string) (string, bool) {
	return s.Traits.String(id, field)
}

// Member returns the member with the given name.
func (s *Shape) Member(name string) (*Shape, bool) {
	for _, m := range s.Members {
		if m.ID.Member() == name {
			return m, true
		}
	}
	return nil, false
}

// MemberName returns the member name for member shapes.
func (s *Shape) MemberName() string {
	return s.ID.Member()
}

// IsError reports whether the shape is a structure tagged with the error trait.
func (s *Shape) IsError() bool {
	return s.Kind == KindStructure && s.HasTrait(TraitError)
}

// SyntheticOperation returns the operation a synthetic input/output structure
// was derived from.
func (s *Shape) SyntheticOperation() (ShapeID, bool) {
	for _, id := range []string{TraitSyntheticInput, TraitSyntheticOutput} {
		if op, ok := s.TraitString(id, "operation"); ok {
			return ShapeID(op), true
		}
	}
	return "", false
}

// References returns every shape id the shape refers to, in declaration order.
func (s *Shape) References() []ShapeID {
	var refs []ShapeID
	if s.Target != "" {
		refs = append(refs, s.Target)
	}
	for _, m := range s.Members {
		refs = append(refs, m.Target)
	}
	if s.Input != "" {
		refs = append(refs, s.Input)
	}
	if s.Output != "" {
		refs = append(refs, s.Output)
	}
	refs = append(refs, s.Errors...)
	refs = append(refs, s.Operations...)
	refs = append(refs, s.Resources...)
	return refs
}

// String implements fmt.Stringer.
func (s *Shape) String() string {
	return fmt.Sprintf("%s %s", s.Kind, s.ID)
}

// clone returns a deep copy of the shape with members re-parented to id.
func (s *Shape) clone(id ShapeID) *Shape {
	c := *s
	c.ID = id
	c.Traits = make(Traits, len(s.Traits))
	for k, v := range s.Traits {
		c.Traits[k] = v
	}
	c.Members = make([]*Shape, 0, len(s.Members))
	for _, m := range s.Members {
		mc := m.clone(id.WithMember(m.ID.Member()))
		mc.Container = id
		c.Members = append(c.Members, mc)
	}
	c.Errors = append([]ShapeID(nil), s.Errors...)
	c.Operations = append([]ShapeID(nil), s.Operations...)
	c.Resources = append([]ShapeID(nil), s.Resources...)
	return &c
}

func asMap(v any) (map[string]any, bool) {
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
