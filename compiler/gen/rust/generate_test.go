package rust

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/syssam/smithygen/compiler/gen"
	"github.com/syssam/smithygen/compiler/load"
)

const weatherService load.ShapeID = "example.weather#Weather"

type fixture struct {
	generator *gen.Generator
	result    *gen.Result
	backend   *gen.MemoryBackend
}

func model(t *testing.T) *load.Graph {
	t.Helper()
	g, err := load.Load("testdata/weather.json")
	require.NoError(t, err)
	return g
}

func generate(t *testing.T, g *load.Graph, opts ...gen.Option) fixture {
	t.Helper()
	backend := gen.NewMemoryBackend()
	cfg, err := gen.NewConfig(append([]gen.Option{
		gen.WithDialect(New()),
		gen.WithBackend(backend),
		gen.WithLogger(zaptest.NewLogger(t)),
	}, opts...)...)
	require.NoError(t, err)
	generator, err := gen.NewGenerator(g, cfg)
	require.NoError(t, err)
	require.NoError(t, generator.Generate(context.Background()))
	results := backend.Results()
	require.Len(t, results, 1)
	return fixture{generator: generator, result: results[0], backend: backend}
}

func symbol(t *testing.T, res *gen.Result, id load.ShapeID) gen.Symbol {
	t.Helper()
	s, ok := res.Symbol(id)
	require.True(t, ok, "no symbol for %s", id)
	return s
}

func TestOperationPlacement(t *testing.T) {
	f := generate(t, model(t))
	res := f.result

	for _, id := range []load.ShapeID{
		"example.weather#Fetch",
		"example.weather.synthetic#FetchInput",
		"example.weather.synthetic#FetchOutput",
	} {
		assert.Equal(t, "crate::operation::fetch", symbol(t, res, id).Module.Path, id)
	}
	assert.Equal(t, "FetchInput", symbol(t, res, "example.weather.synthetic#FetchInput").Name)
	assert.Equal(t, "crate::operation::list_cities", symbol(t, res, "example.weather.synthetic#ListCitiesInput").Module.Path)

	notFound := symbol(t, res, "example.weather#NotFoundError")
	assert.Equal(t, "crate::types::error", notFound.Module.Path)
	assert.Equal(t, "crate::types::error::NotFoundError", notFound.FullName())

	field := symbol(t, res, "example.weather.synthetic#FetchInput$type")
	assert.Equal(t, "r#type", field.Name)
	assert.Equal(t, "type", field.Meta[gen.MetaRenamedFrom])
	assert.Equal(t, gen.OptionOf(gen.BuiltinType("::std::string::String")), field.Type)

	assert.Contains(t, res.Renames, gen.Rename{Domain: gen.DomainMember, From: "type", To: "r#type"})
}

func TestFlavorPlacement(t *testing.T) {
	tests := []struct {
		flavor   gen.Flavor
		types    string
		errors   string
		required gen.TypeRef
	}{
		{gen.FlavorClient, "crate::types", "crate::types::error", gen.OptionOf(gen.BuiltinType("::std::string::String"))},
		{gen.FlavorSDK, "crate::types", "crate::types::error", gen.OptionOf(gen.BuiltinType("::std::string::String"))},
		{gen.FlavorServer, "crate::model", "crate::error", gen.BuiltinType("::std::string::String")},
	}
	for _, tt := range tests {
		t.Run(tt.flavor.String(), func(t *testing.T) {
			res := generate(t, model(t), gen.WithFlavor(tt.flavor)).result
			assert.Equal(t, tt.types, symbol(t, res, "example.weather#Forecast").Module.Path)
			assert.Equal(t, tt.types, symbol(t, res, "example.weather#CitySummary").Module.Path)
			assert.Equal(t, tt.errors, symbol(t, res, "example.weather#NotFoundError").Module.Path)
			assert.Equal(t, "crate::operation::get_city", symbol(t, res, "example.weather.synthetic#GetCityInput").Module.Path)
			assert.Equal(t, tt.required, symbol(t, res, "example.weather.synthetic#FetchInput$type").Type)

			_, nonExhaustive := symbol(t, res, "example.weather#Forecast").Meta[gen.MetaNonExhaustive]
			assert.Equal(t, tt.flavor != gen.FlavorServer, nonExhaustive)
		})
	}
}

func TestResolutionIsTotal(t *testing.T) {
	for _, flavor := range gen.Flavors {
		t.Run(flavor.String(), func(t *testing.T) {
			f := generate(t, model(t), gen.WithFlavor(flavor))
			shapes, err := f.generator.Graph().Walk(weatherService)
			require.NoError(t, err)
			require.Len(t, f.result.Symbols, len(shapes))
			for _, s := range shapes {
				sym := symbol(t, f.result, s.ID)
				assert.NotEmpty(t, sym.Name, s.ID)
				assert.NotNil(t, sym.Module, s.ID)
			}
		})
	}
}

func TestResolutionIsDeterministic(t *testing.T) {
	first := generate(t, model(t), gen.WithWorkers(1)).result
	second := generate(t, model(t), gen.WithWorkers(8), gen.WithFeatures(gen.FeatureVerifyDeterminism)).result
	require.Len(t, second.Symbols, len(first.Symbols))
	for i := range first.Symbols {
		assert.Equal(t, first.Symbols[i].Key(), second.Symbols[i].Key())
	}
	assert.Equal(t, first.Renames, second.Renames)
}

func TestModuleTree(t *testing.T) {
	res := generate(t, model(t)).result
	var paths []string
	for _, m := range res.Modules {
		paths = append(paths, m.Path)
	}
	assert.Equal(t, "crate", paths[0])
	for _, want := range []string{
		"crate::operation",
		"crate::operation::fetch",
		"crate::operation::fetch::builders",
		"crate::types",
		"crate::types::builders",
		"crate::types::error",
		"crate::types::error::builders",
		"crate::config",
		"crate::config::endpoint",
	} {
		assert.Contains(t, paths, want)
	}
	assert.Equal(t, "Types for the `Fetch` operation.", res.Docs["crate::operation::fetch"])
	assert.Equal(t, docErrors, res.Docs["crate::types::error"])

	builder, ok := res.Builder("example.weather.synthetic#FetchInput")
	require.True(t, ok)
	assert.Equal(t, "crate::operation::fetch::builders::FetchInputBuilder", builder.FullName())
	assert.Equal(t, "crate::operation::fetch::FetchInput", builder.Meta[gen.MetaBuilderFor])
}

func TestDecoratorPriority(t *testing.T) {
	contribute := func(code string) gen.Contribution {
		return func(*gen.Context, gen.Registrar) (gen.Fragment, error) {
			return gen.Raw(code), nil
		}
	}
	high := gen.NewDecorator("high", 20, gen.On(gen.PointCrateRootBody, contribute("// from high")))
	low := gen.NewDecorator("low", 10, gen.On(gen.PointCrateRootBody, contribute("// from low")))

	f := generate(t, model(t), gen.WithDecorators(high, low))

	assert.Equal(t, []string{
		DecoratorRequired,
		DecoratorRegion,
		"low",
		DecoratorEndpointBuiltins,
		"high",
		DecoratorErrorMetadata,
		DecoratorClientDocs,
		DecoratorRenamed,
	}, f.result.Decorators)

	var order []string
	for _, frag := range f.result.Fragments[gen.PointCrateRootBody] {
		order = append(order, frag.Decorator)
	}
	assert.Equal(t, []string{DecoratorRequired, "low", "high", DecoratorRenamed}, order)

	root := f.backend.Module("crate")
	lowAt, highAt := strings.Index(root, "// from low"), strings.Index(root, "// from high")
	require.NotEqual(t, -1, lowAt)
	require.NotEqual(t, -1, highAt)
	assert.Less(t, lowAt, highAt)
}

func TestDecoratorConstraintViolation(t *testing.T) {
	early := gen.NewDecorator("early", 5, gen.After(DecoratorEndpointBuiltins))
	cfg, err := gen.NewConfig(
		gen.WithDialect(New()),
		gen.WithDecorators(early),
		gen.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	generator, err := gen.NewGenerator(model(t), cfg)
	require.NoError(t, err)
	_, err = generator.Run(context.Background(), weatherService)
	require.ErrorIs(t, err, gen.ErrDecoratorOrder)
}

func TestBuiltinDecoratorConstraints(t *testing.T) {
	for _, flavor := range gen.Flavors {
		t.Run(flavor.String(), func(t *testing.T) {
			ds := New().Decorators(flavor)
			preds := make(map[string][]string, len(ds))
			for _, d := range ds {
				preds[d.Name()] = d.Predecessors()
			}
			assert.Equal(t, []string{DecoratorRequired}, preds[DecoratorRegion])
			assert.Equal(t, []string{DecoratorRegion}, preds[DecoratorEndpointBuiltins])

			p := gen.NewPipeline(zaptest.NewLogger(t))
			require.NoError(t, p.Register(ds...))
			_, err := p.Ordered()
			require.NoError(t, err)
		})
	}
}

func TestBuiltinDecorators(t *testing.T) {
	t.Run("client", func(t *testing.T) {
		f := generate(t, model(t))
		b := f.backend

		assert.Contains(t, b.Module("crate"), "pub static PKG_VERSION")
		assert.Contains(t, b.Module("crate"), "pub struct Client {")
		assert.Contains(t, b.Module("crate"), "//   member `type` -> `r#type`")
		assert.Contains(t, b.Module("crate::config"), "pub struct Config {")
		assert.Contains(t, b.Module("crate::config"), "pub fn region(mut self")

		endpoint := b.Module("crate::config::endpoint")
		assert.Contains(t, endpoint, "pub(crate) fn region(")
		assert.Contains(t, endpoint, "pub(crate) fn use_fips(config: &crate::config::Config) -> ::std::option::Option<bool>")
		assert.Contains(t, endpoint, "::aws_types::endpoint_config::EndpointUrl")
		assert.Less(t, strings.Index(endpoint, "fn endpoint("), strings.Index(endpoint, "fn region("))

		assert.Contains(t, b.Module("crate::types::error"), "crate::json_errors::parse_error_metadata(response_body, response_headers)")
		assert.Contains(t, b.Module("crate::operation::fetch"), `pub const CONTENT_TYPE: &'static str = "application/json";`)

		var deps []string
		for _, d := range f.result.Manifest.Dependencies() {
			deps = append(deps, d.Name)
		}
		assert.Equal(t, []string{"aws-smithy-json", "aws-smithy-runtime", "aws-smithy-runtime-api", "aws-smithy-types", "aws-types"}, deps)
		assert.Equal(t, []string{"rt-tokio"}, f.result.Manifest.Features())
		aliases := f.result.Manifest.Aliases(f.result.Modules[0])
		require.Len(t, aliases, 1)
		assert.Equal(t, "crate::config::Config", aliases[0].Target)
	})

	t.Run("server", func(t *testing.T) {
		f := generate(t, model(t), gen.WithFlavor(gen.FlavorServer))
		b := f.backend

		assert.Empty(t, b.Module("crate::config"))
		assert.Empty(t, b.Module("crate::config::endpoint"))
		assert.NotContains(t, b.Module("crate"), "pub struct Client")
		assert.NotContains(t, b.Module("crate::error"), "parse_error_metadata")
		assert.Contains(t, b.Module("crate::operation::fetch"), "CONTENT_TYPE")
		for _, m := range f.result.Modules {
			assert.NotEqual(t, "crate::config", m.Path)
		}
	})
}

func TestRenderedDeclarations(t *testing.T) {
	t.Run("client", func(t *testing.T) {
		b := generate(t, model(t)).backend

		fetch := b.Module("crate::operation::fetch")
		assert.Contains(t, fetch, "pub struct Fetch;")
		assert.Contains(t, fetch, "pub struct FetchInput {")
		assert.Contains(t, fetch, "pub r#type: ::std::option::Option<::std::string::String>,")
		assert.Contains(t, fetch, "pub city_id: ::std::option::Option<::std::string::String>,")
		assert.Contains(t, fetch, "pub condition: ::std::option::Option<crate::types::Condition>,")
		assert.Contains(t, fetch, "#[non_exhaustive]")

		types := b.Module("crate::types")
		assert.Contains(t, types, "pub enum Condition {")
		assert.Contains(t, types, `Condition::Sunny => "sunny",`)
		assert.Contains(t, types, `other => Condition::Unknown(other.to_owned()),`)
		assert.Contains(t, types, "Rain(f32),")
		assert.Contains(t, types, "pub tags: ::std::option::Option<::std::collections::HashMap<::std::string::String, ::std::string::String>>,")

		errs := b.Module("crate::types::error")
		assert.Contains(t, errs, "impl ::std::fmt::Display for NotFoundError")
		assert.Contains(t, errs, "impl ::std::error::Error for NotFoundError {}")

		builders := b.Module("crate::operation::fetch::builders")
		assert.Contains(t, builders, "pub struct FetchInputBuilder {")
		assert.Contains(t, builders, "pub fn r#type(mut self, input: ::std::string::String) -> Self")
		assert.Contains(t, builders, "pub fn set_type(mut self, input: ::std::option::Option<::std::string::String>) -> Self")
		assert.Contains(t, builders, "pub fn build(self) -> crate::operation::fetch::FetchInput")
	})

	t.Run("server", func(t *testing.T) {
		b := generate(t, model(t), gen.WithFlavor(gen.FlavorServer)).backend

		fetch := b.Module("crate::operation::fetch")
		assert.Contains(t, fetch, "pub r#type: ::std::string::String,")
		assert.NotContains(t, fetch, "#[non_exhaustive]")

		builders := b.Module("crate::operation::fetch::builders")
		assert.Contains(t, builders, "/// This field is required.")
		assert.Contains(t, builders, "::std::result::Result<crate::operation::fetch::FetchInput, ::aws_smithy_types::error::operation::BuildError>")
		assert.Contains(t, builders, `BuildError::missing_field("type",`)

		types := b.Module("crate::model")
		assert.Contains(t, types, `_ => ::std::panic!("unknown variant {s}"),`)
		assert.NotContains(t, types, "Unknown,")
	})
}

func TestSensitiveRedaction(t *testing.T) {
	g, err := load.NewGraph(
		&load.Shape{
			ID:         "example.secret#Vault",
			Kind:       load.KindService,
			Version:    "2024-01-01",
			Operations: []load.ShapeID{"example.secret#Open"},
		},
		&load.Shape{
			ID:    "example.secret#Open",
			Kind:  load.KindOperation,
			Input: "example.secret#OpenInput",
		},
		&load.Shape{
			ID:   "example.secret#OpenInput",
			Kind: load.KindStructure,
			Members: []*load.Shape{
				{ID: "example.secret#OpenInput$name", Target: "smithy.api#String"},
				{ID: "example.secret#OpenInput$password", Target: "example.secret#Password"},
			},
		},
		&load.Shape{
			ID:     "example.secret#Password",
			Kind:   load.KindString,
			Traits: load.Traits{load.TraitSensitive: map[string]any{}},
		},
	)
	require.NoError(t, err)
	f := generate(t, g)

	open := f.backend.Module("crate::operation::open")
	assert.Contains(t, open, "impl ::std::fmt::Debug for OpenInput")
	assert.Contains(t, open, `formatter.field("password", &"*** Sensitive Data Redacted ***");`)
	assert.Contains(t, open, `formatter.field("name", &self.name);`)
	assert.Contains(t, open, "#[derive(::std::clone::Clone, ::std::cmp::PartialEq)]")

	pw := symbol(t, f.result, "example.secret.synthetic#OpenInput$password")
	assert.Equal(t, "true", pw.Meta[gen.MetaSensitive])
}

func TestDirBackend(t *testing.T) {
	dir := t.TempDir()
	cfg, err := gen.NewConfig(
		gen.WithDialect(New()),
		gen.WithTarget(dir),
		gen.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	generator, err := gen.NewGenerator(model(t), cfg)
	require.NoError(t, err)
	require.NoError(t, generator.Generate(context.Background()))

	lib, err := os.ReadFile(filepath.Join(dir, "src", "lib.rs"))
	require.NoError(t, err)
	assert.Contains(t, string(lib), "// Code generated by smithygen. DO NOT EDIT.")
	assert.Contains(t, string(lib), "pub mod operation;")
	assert.Contains(t, string(lib), "pub mod types;")
	assert.Contains(t, string(lib), "pub mod config;")

	types, err := os.ReadFile(filepath.Join(dir, "src", "types.rs"))
	require.NoError(t, err)
	assert.Contains(t, string(types), "//! "+docTypes)
	assert.Contains(t, string(types), "pub mod error;")
	assert.Contains(t, string(types), "pub enum Forecast {")

	endpoint, err := os.ReadFile(filepath.Join(dir, "src", "config", "endpoint.rs"))
	require.NoError(t, err)
	assert.Contains(t, string(endpoint), "pub(crate) fn use_fips(")

	config, err := os.ReadFile(filepath.Join(dir, "src", "config.rs"))
	require.NoError(t, err)
	assert.Contains(t, string(config), "pub(crate) mod endpoint;")

	for _, p := range []string{
		"src/operation/fetch.rs",
		"src/operation/fetch/builders.rs",
		"src/types/error.rs",
	} {
		assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(p)))
	}
}

const twoServices = `{
    "smithy": "2.0",
    "shapes": {
        "ex#Alpha": {"type": "service", "version": "1", "operations": [{"target": "ex#GetA"}]},
        "ex#Beta": {"type": "service", "version": "1", "operations": [{"target": "ex#GetB"}]},
        "ex#GetA": {"type": "operation", "input": {"target": "ex#GetAInput"}},
        "ex#GetB": {"type": "operation", "input": {"target": "ex#GetBInput"}},
        "ex#GetAInput": {"type": "structure", "members": {}},
        "ex#GetBInput": {"type": "structure", "members": {}}
    }
}`

func TestGenerateGraphSeveralServices(t *testing.T) {
	g, err := load.DecodeBytes([]byte(twoServices), load.FormatJSON)
	require.NoError(t, err)
	dir := t.TempDir()

	_, err = GenerateGraph(context.Background(), g, gen.WithTarget(dir), gen.WithLogger(zaptest.NewLogger(t)))
	require.ErrorIs(t, err, gen.ErrMissingConfig)
	assert.NoFileExists(t, filepath.Join(dir, "src", "lib.rs"))

	for _, svc := range []struct {
		id, op, gone string
	}{
		{"ex#Alpha", "get_a", ""},
		{"ex#Beta", "get_b", "get_a"},
	} {
		_, err = GenerateGraph(context.Background(), g,
			gen.WithTarget(dir), gen.WithService(load.ShapeID(svc.id)), gen.WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "src", "operation", svc.op+".rs"))
		if svc.gone != "" {
			assert.NoFileExists(t, filepath.Join(dir, "src", "operation", svc.gone+".rs"),
				"files of the previous crate are removed")
		}
		ops, err := os.ReadFile(filepath.Join(dir, "src", "operation.rs"))
		require.NoError(t, err)
		assert.Contains(t, string(ops), "pub mod "+svc.op+";")
	}
}

func TestGenerateEntryPoint(t *testing.T) {
	dir := t.TempDir()
	err := Generate(context.Background(), "testdata/weather.json",
		gen.WithTarget(dir),
		gen.WithFlavor(gen.FlavorSDK),
		gen.WithSnapshot(filepath.Join(dir, "weathersnap", "symbols.go")),
		gen.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "src", "lib.rs"))

	snap, err := os.ReadFile(filepath.Join(dir, "weathersnap", "symbols.go"))
	require.NoError(t, err)
	assert.Contains(t, string(snap), "package weathersnap")
	assert.Contains(t, string(snap), `"example.weather#NotFoundError"`)
	assert.Contains(t, string(snap), `"crate::types::error"`)

	err = Generate(context.Background(), "testdata/missing.json")
	require.Error(t, err)
}
