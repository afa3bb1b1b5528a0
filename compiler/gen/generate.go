package gen

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/smithygen/compiler/load"
)

// Stats counts the work done by a generator across runs.
type Stats struct {
	Runs      int64
	Resolved  int64
	CacheHits int64
	Emitted   int64
}

// Result is the outcome of one run: the resolved symbols, the module tree
// and the decorator output for a single service and flavor.
type Result struct {
	RunID   string
	Service load.ShapeID
	Flavor  Flavor

	// Symbols holds one symbol per reachable shape, sorted by shape id.
	Symbols []Symbol
	// Builders holds the builder symbols of structures, sorted by shape id.
	Builders []Symbol

	Modules    []*Module
	Docs       map[string]string
	Decorators []string
	Fragments  map[ExtensionPoint][]Fragment
	Emissions  []Emission
	Manifest   *Manifest
	Renames    []Rename

	index map[load.ShapeID]int
}

// Symbol returns the symbol of the shape.
func (r *Result) Symbol(id load.ShapeID) (Symbol, bool) {
	i, ok := r.index[id]
	if !ok {
		return Symbol{}, false
	}
	return r.Symbols[i], true
}

// Builder returns the builder symbol of the shape.
func (r *Result) Builder(id load.ShapeID) (Symbol, bool) {
	i := sort.Search(len(r.Builders), func(i int) bool { return r.Builders[i].Shape >= id })
	if i < len(r.Builders) && r.Builders[i].Shape == id {
		return r.Builders[i], true
	}
	return Symbol{}, false
}

// Generator drives generation runs over a normalized graph.
type Generator struct {
	cfg   *Config
	graph *load.Graph

	runs      *atomic.Int64
	resolved  *atomic.Int64
	cacheHits *atomic.Int64
	emitted   *atomic.Int64
}

// NewGenerator normalizes the graph and validates the configuration.
func NewGenerator(g *load.Graph, cfg *Config) (*Generator, error) {
	if cfg == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	if cfg.Dialect == nil {
		return nil, NewConfigError("Dialect", nil, "no dialect set: use WithDialect")
	}
	if g == nil {
		return nil, NewConfigError("Graph", nil, "graph cannot be nil")
	}
	normalized, err := load.Normalize(g)
	if err != nil {
		return nil, NewGenerationError("normalize", "", "cannot normalize operations", err)
	}
	if cfg.Backend == nil {
		switch lp, ok := cfg.Dialect.(LayoutProvider); {
		case cfg.Target == "":
			cfg.Backend = NewMemoryBackend()
		case ok:
			cfg.Backend = NewDirBackend(cfg.Target, lp.Layout())
		default:
			return nil, NewConfigError("Backend", cfg.Dialect.Name(), "dialect has no file layout: use WithBackend")
		}
	}
	return &Generator{
		cfg:       cfg,
		graph:     normalized,
		runs:      atomic.NewInt64(0),
		resolved:  atomic.NewInt64(0),
		cacheHits: atomic.NewInt64(0),
		emitted:   atomic.NewInt64(0),
	}, nil
}

// Graph returns the normalized graph.
func (g *Generator) Graph() *load.Graph { return g.graph }

// Config returns the configuration.
func (g *Generator) Config() *Config { return g.cfg }

// Stats returns the counters accumulated so far.
func (g *Generator) Stats() Stats {
	return Stats{
		Runs:      g.runs.Load(),
		Resolved:  g.resolved.Load(),
		CacheHits: g.cacheHits.Load(),
		Emitted:   g.emitted.Load(),
	}
}

// Services returns the services to generate, sorted.
func (g *Generator) Services() ([]load.ShapeID, error) {
	var ids []load.ShapeID
	if len(g.cfg.Services) > 0 {
		for _, id := range g.cfg.Services {
			s, ok := g.graph.Shape(id)
			if !ok || s.Kind != load.KindService {
				return nil, NewConfigError("Service", id, "service not found in model")
			}
			ids = append(ids, id)
		}
	} else {
		for _, s := range g.graph.Services() {
			ids = append(ids, s.ID)
		}
	}
	if len(ids) == 0 {
		return nil, NewConfigError("Service", nil, "model declares no service")
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Generate runs every selected service and hands the output to the backend.
// A failed run emits nothing. A target directory or snapshot path holds the
// output of one service, so selecting several services with either is a
// configuration error.
func (g *Generator) Generate(ctx context.Context) error {
	services, err := g.Services()
	if err != nil {
		return err
	}
	if len(services) > 1 && (g.cfg.Target != "" || g.cfg.enabled(FeatureSnapshot)) {
		return NewConfigError("Service", services, "a target directory or snapshot holds one service: select one with WithService")
	}
	for _, svc := range services {
		res, err := g.Run(ctx, svc)
		if err != nil {
			return err
		}
		if err := g.Emit(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

// Emit hands a run's emissions to the backend, then writes the snapshot if
// the feature is enabled.
func (g *Generator) Emit(ctx context.Context, res *Result) error {
	for _, e := range res.Emissions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.cfg.Backend.Emit(ctx, e); err != nil {
			return NewGenerationError("emit", e.Symbol.Shape, "backend rejected emission", err)
		}
		g.emitted.Inc()
	}
	if err := g.cfg.Backend.Finish(ctx, res); err != nil {
		return err
	}
	if !g.cfg.enabled(FeatureSnapshot) {
		return nil
	}
	path := g.cfg.Snapshot
	if path == "" {
		if g.cfg.Target == "" {
			return NewConfigError("Snapshot", nil, "snapshot feature needs a snapshot path or a target directory")
		}
		path = filepath.Join(g.cfg.Target, "snapshot", "symbols.go")
	}
	return WriteSnapshot(path, res)
}

// Run performs one generation run for the service. Every run starts with
// fresh module, escaping and symbol state.
func (g *Generator) Run(ctx context.Context, service load.ShapeID) (*Result, error) {
	runID := uuid.NewString()
	log := g.cfg.logger().With(
		zap.String("run", runID),
		zap.String("service", string(service)),
		zap.Stringer("flavor", g.cfg.Flavor),
	)
	log.Debug("starting")
	g.runs.Inc()

	cctx, pipeline, err := g.prepare(service, log)
	if err != nil {
		return nil, err
	}
	decorators, err := pipeline.Ordered()
	if err != nil {
		return nil, err
	}
	resolver := NewResolver()
	cctx = cctx.WithSymbols(resolver)

	shapes, err := g.graph.Walk(service)
	if err != nil {
		return nil, NewGenerationError("walk", service, "cannot walk service closure", err)
	}
	symbols, err := resolveAll(ctx, cctx, resolver, shapes, g.cfg.workers())
	if err != nil {
		return nil, err
	}
	var builders []Symbol
	for i, s := range symbols {
		shape, _ := g.graph.Shape(s.Shape)
		if !NeedsBuilder(shape) {
			continue
		}
		b, err := BuilderSymbol(cctx, symbols[i])
		if err != nil {
			return nil, err
		}
		builders = append(builders, b)
	}
	if err := CheckNames(append(append([]Symbol(nil), symbols...), builders...)); err != nil {
		return nil, err
	}
	if g.cfg.enabled(FeatureVerifyDeterminism) {
		if err := verifyDeterminism(ctx, cctx, shapes, symbols); err != nil {
			return nil, err
		}
	}
	g.resolved.Add(int64(len(symbols)))
	g.cacheHits.Add(resolver.Hits())

	res := &Result{
		RunID:     runID,
		Service:   service,
		Flavor:    g.cfg.Flavor,
		Symbols:   symbols,
		Builders:  builders,
		Fragments: make(map[ExtensionPoint][]Fragment),
		Manifest:  cctx.Manifest(),
		index:     make(map[load.ShapeID]int, len(symbols)),
	}
	for i, s := range symbols {
		res.index[s.Shape] = i
	}
	for _, d := range decorators {
		res.Decorators = append(res.Decorators, d.Name())
	}
	if err := g.declare(cctx, res); err != nil {
		return nil, err
	}
	if err := g.extend(cctx, pipeline, res); err != nil {
		return nil, err
	}
	modules, err := cctx.Modules().Modules()
	if err != nil {
		return nil, err
	}
	res.Modules = modules
	res.Docs = make(map[string]string, len(modules))
	for _, m := range modules {
		if doc := cctx.Modules().Doc(m); doc != "" {
			res.Docs[m.Path] = doc
		}
	}
	res.Renames = cctx.Escaper().AllRenames()
	log.Debug("completed",
		zap.Int("symbols", len(symbols)),
		zap.Int("modules", len(modules)),
		zap.Int("emissions", len(res.Emissions)),
		zap.Int64("cache_hits", resolver.Hits()),
	)
	return res, nil
}

// prepare builds the run context and the decorator pipeline.
func (g *Generator) prepare(service load.ShapeID, log *zap.Logger) (*Context, *Pipeline, error) {
	dialect := g.cfg.Dialect
	strategy, err := dialect.Strategy(g.cfg.Flavor)
	if err != nil {
		return nil, nil, err
	}
	cctx, err := NewContext(g.graph, service, g.cfg.Flavor, dialect.Language(), strategy)
	if err != nil {
		return nil, nil, err
	}
	protocols := NewProtocolRegistry().For(service, g.cfg.Flavor)
	if pp, ok := dialect.(ProtocolProvider); ok {
		if err := pp.RegisterProtocols(g.cfg.Flavor, cctx.Service(), protocols); err != nil {
			return nil, nil, err
		}
	}
	for _, o := range g.cfg.ProtocolOverrides {
		if err := protocols.Register(o.Protocol, o.Capability, o.Strategy); err != nil {
			return nil, nil, err
		}
	}
	cctx = cctx.WithProtocols(protocols).WithLogger(log)
	if g.cfg.Settings != nil {
		cctx = cctx.WithSettings(g.cfg.Settings)
	}
	pipeline := NewPipeline(log)
	if dp, ok := dialect.(DecoratorProvider); ok {
		if err := pipeline.Register(dp.Decorators(g.cfg.Flavor)...); err != nil {
			return nil, nil, err
		}
	}
	if err := pipeline.Register(g.cfg.Decorators...); err != nil {
		return nil, nil, err
	}
	return cctx, pipeline, nil
}

// resolveAll resolves shapes on a bounded worker pool and returns the
// symbols sorted by shape id.
func resolveAll(ctx context.Context, cctx *Context, r Resolver, shapes []*load.Shape, workers int) ([]Symbol, error) {
	out := make([]Symbol, len(shapes))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, s := range shapes {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sym, err := r.Resolve(cctx, s)
			if err != nil {
				return err
			}
			out[i] = sym
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Shape < out[j].Shape })
	return out, nil
}

// verifyDeterminism resolves the shapes again, in reverse order and with
// fresh run state, and compares the result with the first resolution.
func verifyDeterminism(ctx context.Context, cctx *Context, shapes []*load.Shape, first []Symbol) error {
	want := make(map[load.ShapeID]Symbol, len(first))
	for _, s := range first {
		want[s.Shape] = s
	}
	r := NewResolver()
	fresh := cctx.Fresh().WithSymbols(r)
	for i := len(shapes) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		sym, err := r.Resolve(fresh, shapes[i])
		if err != nil {
			return err
		}
		if w := want[sym.Shape]; w.Key() != sym.Key() {
			return &NonDeterministicResolutionError{Shape: sym.Shape, Flavor: cctx.Flavor(), First: w.Key(), Second: sym.Key()}
		}
	}
	return nil
}

// declare renders the declaration of every declaring symbol and builder,
// grouped by module path and ordered by name.
func (g *Generator) declare(cctx *Context, res *Result) error {
	renderer, ok := g.cfg.Dialect.(SymbolRenderer)
	if !ok {
		return nil
	}
	var decls []Symbol
	for _, s := range res.Symbols {
		if s.Declares() && s.Shape.Member() == "" {
			decls = append(decls, s)
		}
	}
	decls = append(decls, res.Builders...)
	sort.SliceStable(decls, func(i, j int) bool {
		if decls[i].Module.Path != decls[j].Module.Path {
			return decls[i].Module.Path < decls[j].Module.Path
		}
		return decls[i].Name < decls[j].Name
	})
	for _, s := range decls {
		shape, _ := g.graph.Shape(s.Shape)
		var members []Symbol
		for _, m := range shape.Members {
			ms, ok := res.Symbol(m.ID)
			if !ok {
				return NewGenerationError("declare", m.ID, "member was not resolved", nil)
			}
			members = append(members, ms)
		}
		code, err := renderer.RenderSymbol(cctx.WithShape(shape, s), s, members)
		if err != nil {
			return NewGenerationError("declare", s.Shape, "cannot render "+s.FullName(), err)
		}
		if code == "" {
			continue
		}
		res.Emissions = append(res.Emissions, Emission{Module: s.Module, Symbol: s, Fragment: Fragment{Code: code}})
	}
	return nil
}

// extend runs the extension points in their fixed order: the global points,
// then once per operation, per error and per endpoint built-in parameter.
func (g *Generator) extend(cctx *Context, p *Pipeline, res *Result) error {
	svc, _ := res.Symbol(res.Service)
	root := cctx.Modules().Root()
	collect := func(c *Context, point ExtensionPoint, m *Module, sym Symbol) error {
		frags, err := p.Run(c, point)
		if err != nil {
			return err
		}
		for _, f := range frags {
			target := m
			if f.Module != nil {
				target = f.Module
			}
			res.Fragments[point] = append(res.Fragments[point], f)
			res.Emissions = append(res.Emissions, Emission{Module: target, Symbol: sym, Fragment: f})
		}
		return nil
	}
	global := cctx.WithShape(cctx.Service(), svc)
	for _, point := range []ExtensionPoint{PointServiceRuntimeConfig, PointCrateRootBody, PointClientConstructionDocs} {
		if err := collect(global, point, root, svc); err != nil {
			return err
		}
	}
	for _, param := range cctx.BuiltinParams() {
		if err := collect(cctx.WithBuiltin(param), PointEndpointBuiltin, root, svc); err != nil {
			return err
		}
	}
	ops, err := g.graph.Operations(res.Service)
	if err != nil {
		return err
	}
	for _, op := range ops {
		sym, _ := res.Symbol(op.ID)
		if err := collect(cctx.WithShape(op, sym), PointOperationCustomization, sym.Module, sym); err != nil {
			return err
		}
	}
	for _, sym := range res.Symbols {
		shape, _ := g.graph.Shape(sym.Shape)
		if !shape.IsError() {
			continue
		}
		if err := collect(cctx.WithShape(shape, sym), PointErrorCustomization, sym.Module, sym); err != nil {
			return err
		}
	}
	return nil
}
