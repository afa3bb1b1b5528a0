package rust

import (
	"fmt"
	"sort"
	"strings"

	"github.com/syssam/smithygen/compiler/gen"
	"github.com/syssam/smithygen/compiler/load"
)

const redacted = "*** Sensitive Data Redacted ***"

var derivePaths = map[string]string{
	"Clone":      "::std::clone::Clone",
	"Debug":      "::std::fmt::Debug",
	"Default":    "::std::default::Default",
	"PartialEq":  "::std::cmp::PartialEq",
	"Eq":         "::std::cmp::Eq",
	"PartialOrd": "::std::cmp::PartialOrd",
	"Ord":        "::std::cmp::Ord",
	"Hash":       "::std::hash::Hash",
}

// writer accumulates Rust source with indentation.
type writer struct {
	b      strings.Builder
	indent int
}

func (w *writer) line(format string, args ...any) {
	if format == "" {
		w.b.WriteString("\n")
		return
	}
	w.b.WriteString(strings.Repeat("    ", w.indent))
	if len(args) == 0 {
		w.b.WriteString(format)
	} else {
		fmt.Fprintf(&w.b, format, args...)
	}
	w.b.WriteString("\n")
}

func (w *writer) open(format string, args ...any) {
	w.line(format+" {", args...)
	w.indent++
}

func (w *writer) close() {
	w.indent--
	w.line("}")
}

func (w *writer) docs(doc string) {
	if doc == "" {
		return
	}
	for _, l := range strings.Split(strings.TrimSpace(doc), "\n") {
		w.line("/// %s", strings.TrimRight(l, " \t"))
	}
}

func (w *writer) String() string { return w.b.String() }

// RenderSymbol renders the declaration of a resolved symbol.
func (d *Dialect) RenderSymbol(ctx *gen.Context, sym gen.Symbol, members []gen.Symbol) (string, error) {
	shape := ctx.Shape()
	if shape == nil {
		return "", fmt.Errorf("rust: no shape for %s", sym.FullName())
	}
	lang := ctx.Language()
	w := &writer{}
	switch {
	case sym.Meta.Has(gen.MetaBuilderFor):
		renderBuilder(w, lang, sym, members)
	case shape.Kind == load.KindService:
		return "", nil
	case shape.Kind == load.KindOperation:
		renderOperation(w, sym)
	case shape.Kind == load.KindStructure:
		renderStruct(w, lang, sym, members)
		if shape.IsError() {
			renderError(w, sym, members)
		}
	case shape.Kind == load.KindUnion:
		renderUnion(w, lang, sym, members)
	case shape.Kind == load.KindEnum, shape.Kind == load.KindIntEnum:
		renderEnum(w, sym, shape.Kind == load.KindIntEnum, variants(members))
	case shape.HasTrait(load.TraitEnum):
		vs, err := traitVariants(ctx, shape)
		if err != nil {
			return "", err
		}
		renderEnum(w, sym, false, vs)
	default:
		return "", fmt.Errorf("rust: cannot declare %s", shape)
	}
	return w.String(), nil
}

// attributes writes docs, deprecation and derive attributes. Debug is
// dropped from the derives when it is implemented by hand.
func attributes(w *writer, sym gen.Symbol, manualDebug bool) {
	w.docs(sym.Meta[gen.MetaDocumentation])
	if msg, ok := sym.Meta[gen.MetaDeprecated]; ok {
		if msg == "true" {
			w.line("#[deprecated]")
		} else {
			w.line("#[deprecated(note = %q)]", msg)
		}
	}
	var derives []string
	for _, name := range strings.Split(sym.Meta[gen.MetaDerives], ",") {
		name = strings.TrimSpace(name)
		if name == "" || (manualDebug && name == "Debug") {
			continue
		}
		if p, ok := derivePaths[name]; ok {
			name = p
		}
		derives = append(derives, name)
	}
	if len(derives) > 0 {
		w.line("#[derive(%s)]", strings.Join(derives, ", "))
	}
	if sym.Meta.Has(gen.MetaNonExhaustive) {
		w.line("#[non_exhaustive]")
	}
}

func redactsAny(sym gen.Symbol, members []gen.Symbol) bool {
	if sym.Meta.Has(gen.MetaSensitive) {
		return true
	}
	for _, m := range members {
		if m.Meta.Has(gen.MetaSensitive) {
			return true
		}
	}
	return false
}

func renderStruct(w *writer, lang gen.Language, sym gen.Symbol, members []gen.Symbol) {
	manualDebug := redactsAny(sym, members)
	attributes(w, sym, manualDebug)
	if len(members) == 0 {
		w.line("pub struct %s {}", sym.Name)
	} else {
		w.open("pub struct %s", sym.Name)
		for _, m := range members {
			w.docs(m.Meta[gen.MetaDocumentation])
			w.line("pub %s: %s,", m.Name, lang.RenderType(m.Type))
		}
		w.close()
	}
	if manualDebug {
		w.open("impl ::std::fmt::Debug for %s", sym.Name)
		w.open("fn fmt(&self, f: &mut ::std::fmt::Formatter<'_>) -> ::std::fmt::Result")
		w.line("let mut formatter = f.debug_struct(%q);", sym.Name)
		for _, m := range members {
			if sym.Meta.Has(gen.MetaSensitive) || m.Meta.Has(gen.MetaSensitive) {
				w.line("formatter.field(%q, &%q);", strings.TrimPrefix(m.Name, "r#"), redacted)
			} else {
				w.line("formatter.field(%q, &self.%s);", strings.TrimPrefix(m.Name, "r#"), m.Name)
			}
		}
		w.line("formatter.finish()")
		w.close()
		w.close()
	}
}

func renderError(w *writer, sym gen.Symbol, members []gen.Symbol) {
	var message *gen.Symbol
	for i := range members {
		if members[i].Shape.Member() == "message" || members[i].Shape.Member() == "Message" {
			message = &members[i]
		}
	}
	w.open("impl ::std::fmt::Display for %s", sym.Name)
	w.open("fn fmt(&self, f: &mut ::std::fmt::Formatter<'_>) -> ::std::fmt::Result")
	w.line("::std::write!(f, %q)?;", sym.Name)
	if message != nil {
		if message.Type.Optional() {
			w.open("if let ::std::option::Option::Some(inner) = &self.%s", message.Name)
			w.line("::std::write!(f, \": {}\", inner)?;")
			w.close()
		} else {
			w.line("::std::write!(f, \": {}\", &self.%s)?;", message.Name)
		}
	}
	w.line("::std::result::Result::Ok(())")
	w.close()
	w.close()
	w.line("impl ::std::error::Error for %s {}", sym.Name)
}

func renderOperation(w *writer, sym gen.Symbol) {
	attributes(w, sym, false)
	w.line("#[derive(::std::clone::Clone, ::std::default::Default, ::std::fmt::Debug)]")
	w.line("pub struct %s;", sym.Name)
	w.open("impl %s", sym.Name)
	w.line("/// Creates a new `%s`", sym.Name)
	w.open("pub fn new() -> Self")
	w.line("Self")
	w.close()
	w.close()
}

func renderUnion(w *writer, lang gen.Language, sym gen.Symbol, members []gen.Symbol) {
	attributes(w, sym, false)
	w.open("pub enum %s", sym.Name)
	for _, m := range members {
		w.docs(m.Meta[gen.MetaDocumentation])
		t := m.Type
		if t.Optional() {
			t = t.Elems[0]
		}
		if t.Kind == gen.TypeUnit {
			w.line("%s,", m.Name)
			continue
		}
		w.line("%s(%s),", m.Name, lang.RenderType(t))
	}
	if sym.Meta.Has(gen.MetaNonExhaustive) {
		w.line("/// The `Unknown` variant represents cases where new union variant was received.")
		w.line("#[non_exhaustive]")
		w.line("Unknown,")
	}
	w.close()
}

type variant struct {
	name  string
	value string
	doc   string
}

func variants(members []gen.Symbol) []variant {
	out := make([]variant, 0, len(members))
	for _, m := range members {
		v := variant{name: m.Name, value: m.Meta[gen.MetaEnumValue], doc: m.Meta[gen.MetaDocumentation]}
		if v.value == "" {
			v.value = m.Shape.Member()
		}
		out = append(out, v)
	}
	return out
}

// traitVariants reads the variants of a string shape carrying the legacy
// enum trait: a list of {value, name?, documentation?} definitions.
func traitVariants(ctx *gen.Context, shape *load.Shape) ([]variant, error) {
	raw, _ := shape.Trait(load.TraitEnum)
	defs, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("rust: enum trait of %s is not a list", shape.ID)
	}
	out := make([]variant, 0, len(defs))
	for _, d := range defs {
		def := load.Traits{"def": d}
		value, ok := def.String("def", "value")
		if !ok {
			return nil, fmt.Errorf("rust: enum definition of %s has no value", shape.ID)
		}
		name, ok := def.String("def", "name")
		if !ok {
			name = value
		}
		doc, _ := def.String("def", "documentation")
		lang := ctx.Language()
		out = append(out, variant{
			name:  ctx.Escaper().Escape(gen.DomainType, lang.Case(gen.DomainType, name)),
			value: value,
			doc:   doc,
		})
	}
	return out, nil
}

func renderEnum(w *writer, sym gen.Symbol, numeric bool, vs []variant) {
	attributes(w, sym, false)
	if numeric {
		w.line("#[repr(i32)]")
	}
	w.open("pub enum %s", sym.Name)
	for _, v := range vs {
		w.docs(v.doc)
		if numeric {
			w.line("%s = %s,", v.name, v.value)
		} else {
			w.line("%s,", v.name)
		}
	}
	if sym.Meta.Has(gen.MetaNonExhaustive) && !numeric {
		w.line("/// `Unknown` contains new variants that have been added since this code was generated.")
		w.line("Unknown(::std::string::String),")
	}
	w.close()
	if numeric {
		return
	}
	w.open("impl %s", sym.Name)
	w.line("/// Returns the `&str` value of the enum member.")
	w.open("pub fn as_str(&self) -> &str")
	w.open("match self")
	for _, v := range vs {
		w.line("%s::%s => %q,", sym.Name, v.name, v.value)
	}
	if sym.Meta.Has(gen.MetaNonExhaustive) {
		w.line("%s::Unknown(value) => value.as_str(),", sym.Name)
	}
	w.close()
	w.close()
	w.line("/// Returns all the `&str` values of the enum members.")
	values := make([]string, len(vs))
	for i, v := range vs {
		values[i] = fmt.Sprintf("%q", v.value)
	}
	w.open("pub const fn values() -> &'static [&'static str]")
	w.line("&[%s]", strings.Join(values, ", "))
	w.close()
	w.close()
	w.open("impl ::std::convert::From<&str> for %s", sym.Name)
	w.open("fn from(s: &str) -> Self")
	w.open("match s")
	for _, v := range vs {
		w.line("%q => %s::%s,", v.value, sym.Name, v.name)
	}
	if sym.Meta.Has(gen.MetaNonExhaustive) {
		w.line("other => %s::Unknown(other.to_owned()),", sym.Name)
	} else {
		w.line("_ => ::std::panic!(\"unknown variant {s}\"),")
	}
	w.close()
	w.close()
	w.close()
}

func renderBuilder(w *writer, lang gen.Language, sym gen.Symbol, members []gen.Symbol) {
	owner := sym.Meta[gen.MetaBuilderFor]
	w.line("/// A builder for [`%s`](%s).", ownerName(owner), owner)
	w.line("#[derive(::std::clone::Clone, ::std::default::Default, ::std::fmt::Debug, ::std::cmp::PartialEq)]")
	w.line("#[non_exhaustive]")
	if len(members) == 0 {
		w.line("pub struct %s {}", sym.Name)
	} else {
		w.open("pub struct %s", sym.Name)
		for _, m := range members {
			w.line("pub(crate) %s: ::std::option::Option<%s>,", m.Name, lang.RenderType(inner(m.Type)))
		}
		w.close()
	}
	var required []gen.Symbol
	w.open("impl %s", sym.Name)
	for _, m := range members {
		t := lang.RenderType(inner(m.Type))
		if !m.Type.Optional() {
			required = append(required, m)
			w.line("/// This field is required.")
		}
		w.open("pub fn %s(mut self, input: %s) -> Self", m.Name, t)
		w.line("self.%s = ::std::option::Option::Some(input);", m.Name)
		w.line("self")
		w.close()
		w.open("pub fn set_%s(mut self, input: ::std::option::Option<%s>) -> Self", strings.TrimPrefix(m.Name, "r#"), t)
		w.line("self.%s = input;", m.Name)
		w.line("self")
		w.close()
	}
	if len(required) == 0 {
		w.line("/// Consumes the builder and constructs a [`%s`](%s).", ownerName(owner), owner)
		w.open("pub fn build(self) -> %s", owner)
		w.open("%s", owner)
		for _, m := range members {
			w.line("%s: self.%s,", m.Name, m.Name)
		}
		w.close()
		w.close()
	} else {
		w.line("/// Consumes the builder and constructs a [`%s`](%s).", ownerName(owner), owner)
		w.line("/// This method will fail if any of the following fields are not set:")
		names := make([]string, len(required))
		for i, m := range required {
			names[i] = m.Name
		}
		sort.Strings(names)
		for _, n := range names {
			w.line("/// - [`%s`](%s::%s)", n, sym.FullName(), n)
		}
		w.open("pub fn build(self) -> ::std::result::Result<%s, ::aws_smithy_types::error::operation::BuildError>", owner)
		w.open("::std::result::Result::Ok(%s", owner)
		for _, m := range members {
			if m.Type.Optional() {
				w.line("%s: self.%s,", m.Name, m.Name)
				continue
			}
			w.line("%s: self.%s.ok_or_else(|| ::aws_smithy_types::error::operation::BuildError::missing_field(%q, \"%s was not specified but it is required when building %s\"))?,",
				m.Name, m.Name, strings.TrimPrefix(m.Name, "r#"), strings.TrimPrefix(m.Name, "r#"), ownerName(owner))
		}
		w.indent--
		w.line("})")
		w.close()
	}
	w.close()
}

func inner(t gen.TypeRef) gen.TypeRef {
	if t.Optional() {
		return t.Elems[0]
	}
	return t
}

func ownerName(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[i+2:]
	}
	return path
}

// layout writes one file per module below src/.
type layout struct{}

var _ gen.FileLayout = layout{}

// File implements gen.FileLayout.
func (layout) File(m *gen.Module) string {
	if m.IsRoot() {
		return "src/lib.rs"
	}
	return "src/" + strings.Join(m.Segments(), "/") + ".rs"
}

// Header implements gen.FileLayout.
func (layout) Header(m *gen.Module, doc string) string {
	w := &writer{}
	w.line("// Code generated by smithygen. DO NOT EDIT.")
	if doc != "" {
		for _, l := range strings.Split(strings.TrimSpace(doc), "\n") {
			w.line("//! %s", strings.TrimRight(l, " \t"))
		}
	}
	w.line("")
	return w.String()
}

// Declare implements gen.FileLayout.
func (layout) Declare(child *gen.Module) string {
	return visibility(child) + "mod " + child.Name + ";\n"
}

// Open implements gen.FileLayout.
func (layout) Open(child *gen.Module) string {
	return visibility(child) + "mod " + child.Name + " {\n"
}

// Close implements gen.FileLayout.
func (layout) Close(*gen.Module) string {
	return "}\n"
}

func visibility(m *gen.Module) string {
	switch m.Visibility {
	case gen.Public:
		return "pub "
	case gen.PubCrate:
		return "pub(crate) "
	}
	return ""
}

// Layout returns the crate file layout.
func (d *Dialect) Layout() gen.FileLayout {
	return layout{}
}
