package load

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidGraph is returned when shapes cannot form a consistent graph.
var ErrInvalidGraph = errors.New("load: invalid shape graph")

// Graph is an immutable, indexed set of shapes.
type Graph struct {
	shapes map[ShapeID]*Shape
	// declared holds the ids of user-declared top-level shapes, sorted.
	declared []ShapeID
}

// NewGraph indexes the given shapes, fills in member identities and verifies
// that every reference points to a declared or prelude shape.
func NewGraph(shapes ...*Shape) (*Graph, error) {
	g := &Graph{shapes: make(map[ShapeID]*Shape, len(shapes))}
	for id, s := range prelude {
		g.shapes[id] = s
	}
	for _, s := range shapes {
		switch {
		case s == nil:
			return nil, fmt.Errorf("%w: nil shape", ErrInvalidGraph)
		case !s.ID.Valid() || s.ID.Member() != "":
			return nil, fmt.Errorf("%w: invalid shape id %q", ErrInvalidGraph, s.ID)
		case s.Kind == "" || s.Kind == KindMember:
			return nil, fmt.Errorf("%w: shape %s has invalid kind %q", ErrInvalidGraph, s.ID, s.Kind)
		}
		if _, ok := g.shapes[s.ID]; ok {
			return nil, fmt.Errorf("%w: shape %s redeclared", ErrInvalidGraph, s.ID)
		}
		g.shapes[s.ID] = s
		g.declared = append(g.declared, s.ID)
		for _, m := range s.Members {
			if m.ID == "" || m.ID.Root() != s.ID {
				return nil, fmt.Errorf("%w: member %q does not belong to %s", ErrInvalidGraph, m.ID, s.ID)
			}
			m.Kind = KindMember
			m.Container = s.ID
			if _, ok := g.shapes[m.ID]; ok {
				return nil, fmt.Errorf("%w: member %s redeclared", ErrInvalidGraph, m.ID)
			}
			g.shapes[m.ID] = m
		}
	}
	sort.Slice(g.declared, func(i, j int) bool { return g.declared[i] < g.declared[j] })
	var errs []error
	for _, id := range g.declared {
		s := g.shapes[id]
		for _, ref := range s.References() {
			if _, ok := g.shapes[ref]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s references unknown shape %s", ErrInvalidGraph, s.ID, ref))
			}
		}
		for from := range s.Rename {
			if _, ok := g.shapes[from]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s renames unknown shape %s", ErrInvalidGraph, s.ID, from))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return g, nil
}

// Shape returns the shape (declared, member or prelude) with the given id.
func (g *Graph) Shape(id ShapeID) (*Shape, bool) {
	s, ok := g.shapes[id]
	return s, ok
}

// Expect returns the shape with the given id or an error.
func (g *Graph) Expect(id ShapeID) (*Shape, error) {
	s, ok := g.shapes[id]
	if !ok {
		return nil, fmt.Errorf("%w: shape %s not found", ErrInvalidGraph, id)
	}
	return s, nil
}

// Shapes returns the declared top-level shapes sorted by id.
func (g *Graph) Shapes() []*Shape {
	shapes := make([]*Shape, 0, len(g.declared))
	for _, id := range g.declared {
		shapes = append(shapes, g.shapes[id])
	}
	return shapes
}

// ShapesOf returns the declared shapes of the given kind sorted by id.
func (g *Graph) ShapesOf(kind Kind) []*Shape {
	var shapes []*Shape
	for _, id := range g.declared {
		if s := g.shapes[id]; s.Kind == kind {
			shapes = append(shapes, s)
		}
	}
	return shapes
}

// Services returns the declared services sorted by id.
func (g *Graph) Services() []*Shape {
	return g.ShapesOf(KindService)
}

// Walk returns every shape reachable from the service in a deterministic
// breadth-first order, the service first. Resources are traversed but not
// returned, and neither is the prelude unit shape.
func (g *Graph) Walk(service ShapeID) ([]*Shape, error) {
	root, err := g.Expect(service)
	if err != nil {
		return nil, err
	}
	if root.Kind != KindService {
		return nil, fmt.Errorf("%w: %s is a %s, not a service", ErrInvalidGraph, service, root.Kind)
	}
	var (
		out   []*Shape
		queue = []*Shape{root}
		seen  = map[ShapeID]struct{}{root.ID: {}}
	)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if s.Kind != KindResource && s.ID != UnitID {
			out = append(out, s)
		}
		for _, next := range neighbors(s) {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			n, ok := g.shapes[next]
			if !ok {
				return nil, fmt.Errorf("%w: %s references unknown shape %s", ErrInvalidGraph, s.ID, next)
			}
			queue = append(queue, n)
		}
	}
	return out, nil
}

// Operations returns the operations bound to the service, including those
// bound through its resources, sorted by id.
func (g *Graph) Operations(service ShapeID) ([]*Shape, error) {
	shapes, err := g.Walk(service)
	if err != nil {
		return nil, err
	}
	var ops []*Shape
	for _, s := range shapes {
		if s.Kind == KindOperation {
			ops = append(ops, s)
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops, nil
}

// neighbors returns the edges followed by Walk. Aggregates lead to their
// member shapes and members lead to their targets.
func neighbors(s *Shape) []ShapeID {
	if s.Kind == KindMember {
		return []ShapeID{s.Target}
	}
	var ids []ShapeID
	for _, m := range s.Members {
		ids = append(ids, m.ID)
	}
	if s.Input != "" {
		ids = append(ids, s.Input)
	}
	if s.Output != "" {
		ids = append(ids, s.Output)
	}
	ids = append(ids, s.Errors...)
	ids = append(ids, s.Operations...)
	ids = append(ids, s.Resources...)
	return ids
}
