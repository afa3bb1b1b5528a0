package rust

import (
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/syssam/smithygen/compiler/gen"
	"github.com/syssam/smithygen/compiler/load"
)

// keywords are the strict and reserved keywords of Rust 2021.
var keywords = set(
	"as", "async", "await", "break", "const", "continue", "crate", "dyn", "else", "enum",
	"extern", "false", "fn", "for", "if", "impl", "in", "let", "loop", "match", "mod",
	"move", "mut", "pub", "ref", "return", "self", "Self", "static", "struct", "super",
	"trait", "true", "type", "unsafe", "use", "where", "while",
	"abstract", "become", "box", "do", "final", "macro", "override", "priv", "try",
	"typeof", "unsized", "virtual", "yield",
)

// unrawable keywords cannot be written as raw identifiers.
var unrawable = set("self", "Self", "crate", "super")

// builderMethods collide with the methods generated on builders and fluent
// operation clients.
var builderMethods = set("build", "builder", "default", "send", "customize", "config_override")

// preludeTypes shadow types every generated module relies on.
var preludeTypes = set("Self", "Option", "Result", "Box", "Vec", "String", "Send", "Sync", "Sized", "Error", "Unknown")

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func in(m map[string]struct{}, s string) bool {
	_, ok := m[s]
	return ok
}

// Language implements gen.Language for Rust.
type Language struct{}

var _ gen.Language = Language{}

// Name implements gen.Language.
func (Language) Name() string { return "rust" }

// Case implements gen.Language. Types and variants are UpperCamelCase,
// fields and modules snake_case.
func (Language) Case(d gen.EscapeDomain, name string) string {
	switch d {
	case gen.DomainType:
		return strcase.ToCamel(name)
	default:
		return strcase.ToSnake(name)
	}
}

// Escape implements gen.Language.
func (Language) Escape(d gen.EscapeDomain, name string) string {
	switch d {
	case gen.DomainMember:
		switch {
		case strings.HasPrefix(name, "r#"):
			return name
		case in(unrawable, name):
			return name + "_"
		case in(keywords, name):
			return "r#" + name
		case in(builderMethods, name):
			return name + "_value"
		}
	case gen.DomainType:
		if in(preludeTypes, name) {
			return name + "Value"
		}
	case gen.DomainModule:
		if in(keywords, name) {
			return name + "_"
		}
	}
	return name
}

// Builtin implements gen.Language.
func (Language) Builtin(kind load.Kind) (gen.TypeRef, bool) {
	name, ok := builtins[kind]
	if !ok {
		return gen.TypeRef{}, false
	}
	return gen.BuiltinType(name), true
}

var builtins = map[load.Kind]string{
	load.KindString:     "::std::string::String",
	load.KindBlob:       "::aws_smithy_types::Blob",
	load.KindBoolean:    "bool",
	load.KindByte:       "i8",
	load.KindShort:      "i16",
	load.KindInteger:    "i32",
	load.KindLong:       "i64",
	load.KindFloat:      "f32",
	load.KindDouble:     "f64",
	load.KindBigInteger: "::aws_smithy_types::BigInteger",
	load.KindBigDecimal: "::aws_smithy_types::BigDecimal",
	load.KindTimestamp:  "::aws_smithy_types::DateTime",
	load.KindDocument:   "::aws_smithy_types::Document",
}

// RenderType implements gen.Language.
func (l Language) RenderType(t gen.TypeRef) string {
	elems := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		elems[i] = l.RenderType(e)
	}
	switch t.Kind {
	case gen.TypeNamed:
		return t.Module + "::" + t.Name
	case gen.TypeBuiltin:
		return t.Name
	case gen.TypeUnit:
		return "()"
	case gen.TypeOption:
		return "::std::option::Option<" + elems[0] + ">"
	case gen.TypeList:
		return "::std::vec::Vec<" + elems[0] + ">"
	case gen.TypeMap:
		return "::std::collections::HashMap<" + strings.Join(elems, ", ") + ">"
	case gen.TypeBox:
		return "::std::boxed::Box<" + elems[0] + ">"
	}
	return "()"
}
