package gen

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ExtensionPoint names a place in the generated output that decorators may
// contribute code to.
type ExtensionPoint string

// Extension points.
const (
	PointServiceRuntimeConfig   ExtensionPoint = "service-runtime-config"
	PointCrateRootBody          ExtensionPoint = "crate-root-body"
	PointEndpointBuiltin        ExtensionPoint = "endpoint-builtin"
	PointClientConstructionDocs ExtensionPoint = "client-construction-docs"
	PointOperationCustomization ExtensionPoint = "operation-customization"
	PointErrorCustomization     ExtensionPoint = "error-customization"
)

// ExtensionPoints lists every extension point in the order the driver
// runs them.
var ExtensionPoints = []ExtensionPoint{
	PointServiceRuntimeConfig,
	PointCrateRootBody,
	PointClientConstructionDocs,
	PointEndpointBuiltin,
	PointOperationCustomization,
	PointErrorCustomization,
}

// Fragment is a piece of code contributed by a decorator. Module, when set,
// places the fragment in that module instead of the extension point's
// default module.
type Fragment struct {
	Decorator string
	Code      string
	Module    *Module
}

// NoContribution is returned by contributions that have nothing to add.
var NoContribution = Fragment{}

// Raw returns a fragment holding code verbatim.
func Raw(code string) Fragment {
	return Fragment{Code: code}
}

// Code returns a fragment holding code formatted with fmt.Sprintf.
func Code(format string, args ...any) Fragment {
	return Fragment{Code: fmt.Sprintf(format, args...)}
}

// In returns a copy of f placed in module m.
func (f Fragment) In(m *Module) Fragment {
	f.Module = m
	return f
}

// Empty reports whether the fragment carries no code.
func (f Fragment) Empty() bool {
	return strings.TrimSpace(f.Code) == ""
}

// Contribution produces a decorator's fragment for one extension point.
// Side effects beyond the fragment go through the Registrar.
type Contribution func(ctx *Context, reg Registrar) (Fragment, error)

// Decorator is a named, prioritized set of contributions.
type Decorator struct {
	name          string
	priority      int
	after         []string
	contributions map[ExtensionPoint]Contribution
}

// DecoratorOption configures a decorator.
type DecoratorOption func(*Decorator)

// NewDecorator creates a decorator. Lower priorities run first.
func NewDecorator(name string, priority int, opts ...DecoratorOption) *Decorator {
	d := &Decorator{
		name:          name,
		priority:      priority,
		contributions: make(map[ExtensionPoint]Contribution),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// On registers fn for point.
func On(point ExtensionPoint, fn Contribution) DecoratorOption {
	return func(d *Decorator) { d.contributions[point] = fn }
}

// After requires the named decorators to run before this one.
func After(names ...string) DecoratorOption {
	return func(d *Decorator) { d.after = append(d.after, names...) }
}

// Name returns the decorator name.
func (d *Decorator) Name() string { return d.name }

// Priority returns the decorator priority.
func (d *Decorator) Priority() int { return d.priority }

// Predecessors returns the names the decorator must run after.
func (d *Decorator) Predecessors() []string { return append([]string(nil), d.after...) }

// Contributes reports whether the decorator contributes to point.
func (d *Decorator) Contributes(point ExtensionPoint) bool {
	_, ok := d.contributions[point]
	return ok
}

// Points returns the extension points the decorator contributes to, in
// run order.
func (d *Decorator) Points() []ExtensionPoint {
	var out []ExtensionPoint
	for _, p := range ExtensionPoints {
		if d.Contributes(p) {
			out = append(out, p)
		}
	}
	return out
}

// Pipeline orders decorators by priority, ties broken by registration
// order, and runs their contributions.
type Pipeline struct {
	mu         sync.Mutex
	decorators []*Decorator
	names      map[string]struct{}
	logger     *zap.Logger
}

// NewPipeline returns an empty pipeline.
func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{names: make(map[string]struct{}), logger: logger}
}

// Register appends decorators in registration order.
func (p *Pipeline) Register(ds ...*Decorator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range ds {
		switch {
		case d == nil:
			return NewConfigError("Decorator", nil, "decorator cannot be nil")
		case d.name == "":
			return NewConfigError("Decorator", nil, "decorator name cannot be empty")
		}
		if _, ok := p.names[d.name]; ok {
			return NewConfigError("Decorator", d.name, "decorator registered twice")
		}
		p.names[d.name] = struct{}{}
		p.decorators = append(p.decorators, d)
	}
	return nil
}

// Ordered returns the decorators sorted by (priority, registration index)
// after checking every predecessor constraint. A decorator must declare a
// strictly greater priority than each of its predecessors.
func (p *Pipeline) Ordered() ([]*Decorator, error) {
	p.mu.Lock()
	ordered := append([]*Decorator(nil), p.decorators...)
	p.mu.Unlock()
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].priority < ordered[j].priority
	})
	pos := make(map[string]int, len(ordered))
	for i, d := range ordered {
		pos[d.name] = i
	}
	var errs []error
	for _, d := range ordered {
		for _, pred := range d.after {
			j, ok := pos[pred]
			switch {
			case !ok:
				errs = append(errs, &DecoratorOrderError{Decorator: d.name, Predecessor: pred, Message: "predecessor is not registered"})
			case d.priority <= ordered[j].priority:
				errs = append(errs, &DecoratorOrderError{
					Decorator:   d.name,
					Predecessor: pred,
					Message:     fmt.Sprintf("priority %d does not order it after priority %d", d.priority, ordered[j].priority),
				})
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return ordered, nil
}

// Run invokes every contribution to point in pipeline order and returns the
// non-empty fragments in that order.
func (p *Pipeline) Run(ctx *Context, point ExtensionPoint) ([]Fragment, error) {
	ordered, err := p.Ordered()
	if err != nil {
		return nil, err
	}
	log := p.logger.With(zap.String("point", string(point)))
	var out []Fragment
	for _, d := range ordered {
		fn, ok := d.contributions[point]
		if !ok {
			continue
		}
		dlog := log.With(zap.String("decorator", d.name))
		dlog.Debug("starting")
		frag, err := fn(ctx, ctx.Manifest())
		if err != nil {
			derr := &DecoratorError{Decorator: d.name, Point: point, Cause: err}
			if s := ctx.Shape(); s != nil {
				derr.Shape = s.ID
			}
			return nil, derr
		}
		if frag.Empty() {
			dlog.Debug("no contribution")
			continue
		}
		frag.Decorator = d.name
		out = append(out, frag)
		dlog.Debug("completed", zap.Int("bytes", len(frag.Code)))
	}
	return out, nil
}
