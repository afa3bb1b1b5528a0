package rust

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/lithammer/dedent"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/smithygen/compiler/gen"
)

// Built-in decorator names.
const (
	DecoratorRequired         = "required-customizations"
	DecoratorRegion           = "region"
	DecoratorEndpointBuiltins = "endpoint-builtins"
	DecoratorErrorMetadata    = "error-metadata"
	DecoratorClientDocs       = "client-docs"
	DecoratorRenamed          = "renamed-identifiers"
)

// Runtime crate versions written to the manifest.
const (
	smithyVersion   = "1.3"
	awsTypesVersion = "1.3"
)

// Endpoint built-in identifiers.
const (
	builtinRegion       = "AWS::Region"
	builtinUseFIPS      = "AWS::UseFIPS"
	builtinUseDualStack = "AWS::UseDualStack"
	builtinEndpoint     = "SDK::Endpoint"
)

var title = cases.Title(language.English, cases.NoLower)

// rust dedents a template written with "~" for backticks and formats it.
func rust(tpl string, args ...any) string {
	s := strings.TrimLeft(dedent.Dedent(tpl), "\n")
	s = strings.ReplaceAll(s, "~", "`")
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}

// Decorators returns the built-in decorators. Every flavor registers the
// same set so that ordering constraints hold; contributions that do not
// apply to a flavor return gen.NoContribution.
func (d *Dialect) Decorators(gen.Flavor) []*gen.Decorator {
	return []*gen.Decorator{
		gen.NewDecorator(DecoratorRequired, 0,
			gen.On(gen.PointServiceRuntimeConfig, runtimeConfig),
			gen.On(gen.PointCrateRootBody, crateRoot),
		),
		// region extends the Builder and Config types declared by the
		// required customizations.
		gen.NewDecorator(DecoratorRegion, 10,
			gen.After(DecoratorRequired),
			gen.On(gen.PointServiceRuntimeConfig, regionConfig),
			gen.On(gen.PointEndpointBuiltin, regionBuiltin),
		),
		gen.NewDecorator(DecoratorEndpointBuiltins, 20,
			gen.After(DecoratorRegion),
			gen.On(gen.PointEndpointBuiltin, endpointBuiltin),
		),
		gen.NewDecorator(DecoratorErrorMetadata, 30,
			gen.On(gen.PointErrorCustomization, errorMetadata),
			gen.On(gen.PointOperationCustomization, operationContentType),
		),
		gen.NewDecorator(DecoratorClientDocs, 100,
			gen.On(gen.PointClientConstructionDocs, clientDocs),
		),
		gen.NewDecorator(DecoratorRenamed, 200,
			gen.On(gen.PointCrateRootBody, renamedIdentifiers),
		),
	}
}

func isClient(ctx *gen.Context) bool {
	return ctx.Flavor() == gen.FlavorClient || ctx.Flavor() == gen.FlavorSDK
}

// hasRegion reports whether the crate configures a region: always for SDK
// crates, and for clients whose endpoint rules bind AWS::Region.
func hasRegion(ctx *gen.Context) bool {
	if ctx.Flavor() == gen.FlavorSDK {
		return true
	}
	if ctx.Flavor() != gen.FlavorClient {
		return false
	}
	for _, p := range ctx.BuiltinParams() {
		if p.BuiltIn == builtinRegion {
			return true
		}
	}
	return false
}

func configModule(ctx *gen.Context, reg gen.Registrar) (*gen.Module, error) {
	return reg.Module(ctx.Modules().Root(), "config", gen.WithVisibility(gen.Public))
}

func endpointModule(ctx *gen.Context, reg gen.Registrar) (*gen.Module, error) {
	cfg, err := configModule(ctx, reg)
	if err != nil {
		return nil, err
	}
	return reg.Module(cfg, "endpoint", gen.WithVisibility(gen.PubCrate))
}

func serviceTitle(ctx *gen.Context) string {
	return title.String(strcase.ToDelimited(ctx.ServiceName(), ' '))
}

func crateName(ctx *gen.Context) string {
	if s := ctx.Settings(); s != nil && s.Module != "" {
		return strcase.ToSnake(s.Module)
	}
	return strcase.ToSnake(ctx.ServiceName())
}

func runtimeConfig(ctx *gen.Context, reg gen.Registrar) (gen.Fragment, error) {
	if !isClient(ctx) {
		return gen.NoContribution, nil
	}
	if err := reg.AddDependency(gen.Dependency{Name: "aws-smithy-runtime", Version: smithyVersion, Features: []string{"client"}}); err != nil {
		return gen.NoContribution, err
	}
	if err := reg.AddDependency(gen.Dependency{Name: "aws-smithy-runtime-api", Version: smithyVersion, Features: []string{"client"}}); err != nil {
		return gen.NoContribution, err
	}
	reg.AddFeature("rt-tokio")
	m, err := configModule(ctx, reg)
	if err != nil {
		return gen.NoContribution, err
	}
	if err := reg.Alias(ctx.Modules().Root(), "Config", m.Path+"::Config"); err != nil {
		return gen.NoContribution, err
	}
	return gen.Raw(rust(`
		/// Configuration for a %[1]s client.
		#[derive(::std::clone::Clone, ::std::fmt::Debug)]
		pub struct Config {
		    pub(crate) config: ::aws_smithy_types::config_bag::FrozenLayer,
		}
		impl Config {
		    /// Constructs a config builder.
		    pub fn builder() -> Builder {
		        Builder::default()
		    }
		}
		/// Builder for creating a ~Config~.
		#[derive(::std::clone::Clone, ::std::fmt::Debug, ::std::default::Default)]
		pub struct Builder {
		    pub(crate) config: ::aws_smithy_types::config_bag::CloneableLayer,
		}
		impl Builder {
		    /// Builds a [~Config~].
		    pub fn build(self) -> Config {
		        Config { config: self.config.freeze() }
		    }
		}
	`, serviceTitle(ctx))).In(m), nil
}

func crateRoot(ctx *gen.Context, reg gen.Registrar) (gen.Fragment, error) {
	if err := reg.AddDependency(gen.Dependency{Name: "aws-smithy-types", Version: smithyVersion}); err != nil {
		return gen.NoContribution, err
	}
	if ctx.Flavor() == gen.FlavorServer {
		if err := reg.AddDependency(gen.Dependency{Name: "aws-smithy-http-server", Version: smithyVersion}); err != nil {
			return gen.NoContribution, err
		}
	}
	code := rust(`
		/// Crate version number.
		pub static PKG_VERSION: &str = ::std::env!("CARGO_PKG_VERSION");
	`)
	if isClient(ctx) {
		code += "pub use crate::config::Config;\n"
	}
	return gen.Raw(code), nil
}

func regionConfig(ctx *gen.Context, reg gen.Registrar) (gen.Fragment, error) {
	if !hasRegion(ctx) {
		return gen.NoContribution, nil
	}
	if err := reg.AddDependency(gen.Dependency{Name: "aws-types", Version: awsTypesVersion}); err != nil {
		return gen.NoContribution, err
	}
	m, err := configModule(ctx, reg)
	if err != nil {
		return gen.NoContribution, err
	}
	return gen.Raw(rust(`
		pub use ::aws_types::region::Region;
		impl Builder {
		    /// Sets the AWS region to use when making requests.
		    pub fn region(mut self, region: impl ::std::convert::Into<::std::option::Option<Region>>) -> Self {
		        self.config.store_or_unset(region.into());
		        self
		    }
		}
		impl Config {
		    /// Returns the AWS region, if it was provided.
		    pub fn region(&self) -> ::std::option::Option<&Region> {
		        self.config.load::<Region>()
		    }
		}
	`)).In(m), nil
}

func regionBuiltin(ctx *gen.Context, reg gen.Registrar) (gen.Fragment, error) {
	p, ok := ctx.Builtin()
	if !ok || p.BuiltIn != builtinRegion || !hasRegion(ctx) {
		return gen.NoContribution, nil
	}
	m, err := endpointModule(ctx, reg)
	if err != nil {
		return gen.NoContribution, err
	}
	return gen.Raw(rust(`
		/// Endpoint parameter ~%[1]s~, bound to ~%[2]s~.
		pub(crate) fn %[3]s(config: &crate::config::Config) -> ::std::option::Option<::std::string::String> {
		    config.region().map(|r| r.as_ref().to_owned())
		}
	`, p.Name, p.BuiltIn, strcase.ToSnake(p.Name))).In(m), nil
}

// builtinLoaders maps endpoint built-ins to the config layer type they are
// loaded from.
var builtinLoaders = map[string]string{
	builtinUseFIPS:      "::aws_types::endpoint_config::UseFips",
	builtinUseDualStack: "::aws_types::endpoint_config::UseDualStack",
	builtinEndpoint:     "::aws_types::endpoint_config::EndpointUrl",
}

func endpointBuiltin(ctx *gen.Context, reg gen.Registrar) (gen.Fragment, error) {
	p, ok := ctx.Builtin()
	if !ok || p.BuiltIn == builtinRegion || !isClient(ctx) {
		return gen.NoContribution, nil
	}
	m, err := endpointModule(ctx, reg)
	if err != nil {
		return gen.NoContribution, err
	}
	typ := "::std::string::String"
	if strings.EqualFold(p.Type, "boolean") {
		typ = "bool"
	}
	body := "None"
	if loader, ok := builtinLoaders[p.BuiltIn]; ok {
		if err := reg.AddDependency(gen.Dependency{Name: "aws-types", Version: awsTypesVersion}); err != nil {
			return gen.NoContribution, err
		}
		body = fmt.Sprintf("config.config.load::<%s>().map(|v| v.0.clone())", loader)
	}
	return gen.Raw(rust(`
		/// Endpoint parameter ~%[1]s~, bound to ~%[2]s~.
		pub(crate) fn %[3]s(config: &crate::config::Config) -> ::std::option::Option<%[4]s> {
		    %[5]s
		}
	`, p.Name, p.BuiltIn, strcase.ToSnake(p.Name), typ, body)).In(m), nil
}

// protocolCrates are the runtime crates a protocol's generated code uses.
var protocolCrates = map[gen.ProtocolID][]string{
	gen.ProtocolRestJSON1: {"aws-smithy-json"},
	gen.ProtocolAWSJSON10: {"aws-smithy-json"},
	gen.ProtocolAWSJSON11: {"aws-smithy-json"},
	gen.ProtocolRestXML:   {"aws-smithy-xml"},
	gen.ProtocolAWSQuery:  {"aws-smithy-query", "aws-smithy-xml"},
	gen.ProtocolEC2Query:  {"aws-smithy-query", "aws-smithy-xml"},
	gen.ProtocolRPCv2CBOR: {"aws-smithy-cbor"},
}

func errorMetadata(ctx *gen.Context, reg gen.Registrar) (gen.Fragment, error) {
	sym, ok := ctx.Symbol()
	if !ok || !isClient(ctx) {
		return gen.NoContribution, nil
	}
	id, ok := gen.ServiceProtocol(ctx.Service())
	if !ok {
		return gen.NoContribution, nil
	}
	parser, err := gen.ResolveAs[gen.ErrorMetadataParser](ctx.Protocols(), id, gen.CapabilityErrorMetadataParser)
	if err != nil {
		return gen.NoContribution, err
	}
	for _, c := range protocolCrates[id] {
		if err := reg.AddDependency(gen.Dependency{Name: c, Version: smithyVersion}); err != nil {
			return gen.NoContribution, err
		}
	}
	return gen.Raw(rust(`
		impl %[1]s {
		    /// Parses the error metadata of a ~%[1]s~ response (%[2]s).
		    pub(crate) fn parse_error_metadata(
		        response_body: &[u8],
		        response_headers: &::aws_smithy_runtime_api::http::Headers,
		    ) -> ::std::result::Result<::aws_smithy_types::error::metadata::Builder, ::aws_smithy_types::error::operation::BuildError> {
		        %[3]s(response_body, response_headers)
		    }
		}
	`, sym.Name, parser.Name(), parser.ParseFunction(ctx, sym))), nil
}

func operationContentType(ctx *gen.Context, _ gen.Registrar) (gen.Fragment, error) {
	sym, ok := ctx.Symbol()
	if !ok {
		return gen.NoContribution, nil
	}
	id, ok := gen.ServiceProtocol(ctx.Service())
	if !ok {
		return gen.NoContribution, nil
	}
	codec, err := gen.ResolveAs[gen.PayloadCodec](ctx.Protocols(), id, gen.CapabilityPayloadCodec)
	if err != nil {
		return gen.NoContribution, err
	}
	return gen.Raw(rust(`
		impl %[1]s {
		    /// Content type of ~%[1]s~ request and response payloads.
		    pub const CONTENT_TYPE: &'static str = %[2]q;
		}
	`, sym.Name, codec.ContentType())), nil
}

func clientDocs(ctx *gen.Context, _ gen.Registrar) (gen.Fragment, error) {
	if !isClient(ctx) {
		return gen.NoContribution, nil
	}
	setup := "let config = %[1]s::Config::builder().build();"
	if hasRegion(ctx) {
		setup = "let config = %[1]s::Config::builder().region(%[1]s::config::Region::new(\"us-east-1\")).build();"
	}
	setup = fmt.Sprintf(setup, crateName(ctx))
	return gen.Raw(rust(`
		/// Client for calling %[1]s.
		///
		/// ## Constructing a ~Client~
		///
		/// A ~Client~ is built from a [~Config~](crate::Config):
		///
		/// ~~~rust,no_run
		/// %[2]s
		/// let client = %[3]s::Client::from_conf(config);
		/// ~~~
		#[derive(::std::clone::Clone, ::std::fmt::Debug)]
		pub struct Client {
		    conf: crate::config::Config,
		}
		impl Client {
		    /// Creates a new client from the service [~Config~](crate::Config).
		    pub fn from_conf(conf: crate::config::Config) -> Self {
		        Self { conf }
		    }
		    /// Returns the client's configuration.
		    pub fn config(&self) -> &crate::config::Config {
		        &self.conf
		    }
		}
	`, serviceTitle(ctx), setup, crateName(ctx))), nil
}

func renamedIdentifiers(ctx *gen.Context, _ gen.Registrar) (gen.Fragment, error) {
	renames := ctx.Escaper().AllRenames()
	if len(renames) == 0 {
		return gen.NoContribution, nil
	}
	var b strings.Builder
	b.WriteString("// Identifiers renamed to avoid reserved words:\n")
	for _, r := range renames {
		fmt.Fprintf(&b, "//   %s `%s` -> `%s`\n", r.Domain, r.From, r.To)
	}
	return gen.Raw(b.String()), nil
}
