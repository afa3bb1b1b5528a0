package gen

import (
	"testing"

	"github.com/iancoleman/strcase"
	"github.com/stretchr/testify/require"

	"github.com/syssam/smithygen/compiler/load"
)

const weatherID load.ShapeID = "example.weather#Weather"

// testLang is a small Language with one reserved word per domain.
type testLang struct{}

func (testLang) Name() string { return "test" }

func (testLang) Case(d EscapeDomain, name string) string {
	if d == DomainType {
		return strcase.ToCamel(name)
	}
	return strcase.ToSnake(name)
}

func (testLang) Escape(d EscapeDomain, name string) string {
	switch {
	case d == DomainMember && name == "type":
		return "r#type"
	case d == DomainType && name == "Option":
		return "OptionValue"
	case d == DomainModule && name == "type":
		return "type_"
	}
	return name
}

func (testLang) Builtin(kind load.Kind) (TypeRef, bool) {
	switch kind {
	case load.KindString:
		return BuiltinType("string"), true
	case load.KindBoolean:
		return BuiltinType("bool"), true
	case load.KindInteger:
		return BuiltinType("i32"), true
	case load.KindFloat:
		return BuiltinType("f32"), true
	}
	if kind.Simple() {
		return BuiltinType(string(kind)), true
	}
	return TypeRef{}, false
}

func (testLang) RenderType(t TypeRef) string { return t.String() }

func testDestinations(flavor Flavor) Destinations {
	if flavor == FlavorServer {
		return Destinations{
			Operations: "operation",
			Types:      "model",
			Errors:     "error",
			Docs:       map[string]string{"model": "Model types."},
		}
	}
	return Destinations{
		Operations:   "operation",
		Types:        "types",
		Errors:       "types::error",
		OperationDoc: "Operation {operation}.",
		Docs:         map[string]string{"types": "Shared types.", "types::error": "Errors."},
	}
}

// testDialect implements only the required Dialect methods.
type testDialect struct{}

func (testDialect) Name() string       { return "test" }
func (testDialect) Language() Language { return testLang{} }
func (testDialect) Strategy(f Flavor) (ModuleStrategy, error) {
	return NewRoutingStrategy(testDestinations(f)), nil
}

func weatherGraph(t testing.TB) *load.Graph {
	t.Helper()
	g, err := load.Load("../load/testdata/weather.json")
	require.NoError(t, err)
	n, err := load.Normalize(g)
	require.NoError(t, err)
	return n
}

// newTestContext returns a run context over the normalized weather model
// with the standard resolver attached.
func newTestContext(t testing.TB, flavor Flavor) *Context {
	t.Helper()
	ctx, err := NewContext(weatherGraph(t), weatherID, flavor, testLang{}, NewRoutingStrategy(testDestinations(flavor)))
	require.NoError(t, err)
	return ctx.WithSymbols(NewResolver())
}

func shape(t testing.TB, ctx *Context, id load.ShapeID) *load.Shape {
	t.Helper()
	s, ok := ctx.Graph().Shape(id)
	require.True(t, ok, "no shape %s", id)
	return s
}

func resolve(t testing.TB, ctx *Context, id load.ShapeID) Symbol {
	t.Helper()
	sym, err := ctx.Symbols().Resolve(ctx, shape(t, ctx, id))
	require.NoError(t, err)
	return sym
}
