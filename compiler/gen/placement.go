package gen

import (
	"strings"

	"github.com/syssam/smithygen/compiler/load"
)

// ModuleStrategy decides which module a shape's symbol lives in.
type ModuleStrategy interface {
	// ModuleFor returns the module of the shape's symbol.
	ModuleFor(ctx *Context, shape *load.Shape) (*Module, error)
	// BuilderModuleFor returns the module holding builders of types
	// declared in owner.
	BuilderModuleFor(ctx *Context, owner *Module) (*Module, error)
}

// Destinations names the top-level modules a RoutingStrategy routes to.
// Paths are relative to the crate root, with segments separated by "::".
type Destinations struct {
	Operations string
	Types      string
	Errors     string
	Builders   string
	// Docs holds module documentation keyed by relative path.
	Docs map[string]string
	// OperationDoc is formatted with the operation name to document each
	// operation module.
	OperationDoc string
}

// RoutingStrategy implements the placement rules shared by every flavor:
//
//	operation                 -> <Operations>::<operation>
//	error structure           -> <Errors>
//	synthetic input/output    -> the owning operation's module
//	service                   -> crate root
//	member                    -> its container's module
//	simple, collection, other -> <Types>
//	aggregate shapes
//	resource and unknown      -> UnmappedModuleError
type RoutingStrategy struct {
	dest Destinations
}

var _ ModuleStrategy = (*RoutingStrategy)(nil)

// NewRoutingStrategy returns a strategy routing to dest.
func NewRoutingStrategy(dest Destinations) *RoutingStrategy {
	if dest.Builders == "" {
		dest.Builders = "builders"
	}
	return &RoutingStrategy{dest: dest}
}

// Destinations returns the strategy's destinations.
func (s *RoutingStrategy) Destinations() Destinations {
	return s.dest
}

// ModuleFor implements ModuleStrategy.
func (s *RoutingStrategy) ModuleFor(ctx *Context, shape *load.Shape) (*Module, error) {
	switch {
	case shape.Kind == load.KindService:
		return ctx.Modules().Root(), nil
	case shape.Kind == load.KindOperation:
		return s.operationModule(ctx, shape)
	case shape.Kind == load.KindMember:
		container, ok := ctx.Graph().Shape(shape.Container)
		if !ok {
			return nil, &UnmappedModuleError{Shape: shape.ID, Kind: shape.Kind, Flavor: ctx.Flavor()}
		}
		return s.ModuleFor(ctx, container)
	case shape.HasTrait(load.TraitSyntheticInput), shape.HasTrait(load.TraitSyntheticOutput):
		opID, ok := shape.SyntheticOperation()
		if !ok {
			return nil, &UnreachableOperationError{Shape: shape.ID, Flavor: ctx.Flavor()}
		}
		op, ok := ctx.Graph().Shape(opID)
		if !ok || op.Kind != load.KindOperation {
			return nil, &UnreachableOperationError{Shape: shape.ID, Operation: opID, Flavor: ctx.Flavor()}
		}
		return s.operationModule(ctx, op)
	case shape.IsError():
		return s.path(ctx, s.dest.Errors)
	case shape.Kind == load.KindResource:
		return nil, &UnmappedModuleError{Shape: shape.ID, Kind: shape.Kind, Flavor: ctx.Flavor()}
	case shape.Kind.Simple(), shape.Kind.Collection(), shape.Kind.Aggregate():
		return s.path(ctx, s.dest.Types)
	}
	return nil, &UnmappedModuleError{Shape: shape.ID, Kind: shape.Kind, Flavor: ctx.Flavor()}
}

// BuilderModuleFor implements ModuleStrategy.
func (s *RoutingStrategy) BuilderModuleFor(ctx *Context, owner *Module) (*Module, error) {
	if owner == nil {
		return nil, NewGenerationError("placement", "", "builder owner module is nil", nil)
	}
	m, err := ctx.Modules().Child(owner, s.dest.Builders, WithVisibility(Public))
	if err != nil {
		return nil, err
	}
	ctx.Modules().SetDoc(m, s.dest.Docs[s.dest.Builders])
	return m, nil
}

func (s *RoutingStrategy) operationModule(ctx *Context, op *load.Shape) (*Module, error) {
	parent, err := s.path(ctx, s.dest.Operations)
	if err != nil {
		return nil, err
	}
	lang := ctx.Language()
	name := ctx.Escaper().Escape(DomainModule, lang.Case(DomainModule, modelName(ctx, op)))
	m, err := ctx.Modules().Child(parent, name, WithVisibility(Public))
	if err != nil {
		return nil, err
	}
	if s.dest.OperationDoc != "" {
		ctx.Modules().SetDoc(m, strings.ReplaceAll(s.dest.OperationDoc, "{operation}", lang.Case(DomainType, modelName(ctx, op))))
	}
	return m, nil
}

// path returns the module at rel below the crate root, documenting each
// segment from Docs.
func (s *RoutingStrategy) path(ctx *Context, rel string) (*Module, error) {
	m := ctx.Modules().Root()
	if rel == "" {
		return m, nil
	}
	var walked []string
	for _, seg := range strings.Split(rel, pathSep) {
		walked = append(walked, seg)
		var err error
		name := ctx.Escaper().Escape(DomainModule, seg)
		if m, err = ctx.Modules().Child(m, name, WithVisibility(Public)); err != nil {
			return nil, err
		}
		ctx.Modules().SetDoc(m, s.dest.Docs[strings.Join(walked, pathSep)])
	}
	return m, nil
}
