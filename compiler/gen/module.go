package gen

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dominikbraun/graph"
)

// RootModule is the path of the crate root.
const RootModule = "crate"

// pathSep separates module path segments.
const pathSep = "::"

// Visibility of a module declaration.
type Visibility int

const (
	// Public modules are exported from the crate.
	Public Visibility = iota
	// PubCrate modules are visible inside the crate only.
	PubCrate
	// Private modules are visible to their parent only.
	Private
)

// String implements fmt.Stringer.
func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case PubCrate:
		return "pub-crate"
	case Private:
		return "private"
	}
	return "unknown"
}

// Module is a node of the output module tree. Modules are identified by
// path and created only through a ModuleRegistry, so two modules with the
// same path are the same pointer.
type Module struct {
	Name       string
	Path       string
	Parent     string
	Visibility Visibility
	// Inline modules are rendered inside their parent's file.
	Inline bool
}

// String implements fmt.Stringer.
func (m *Module) String() string {
	return m.Path
}

// IsRoot reports whether m is the crate root.
func (m *Module) IsRoot() bool {
	return m.Path == RootModule
}

// Segments returns the path segments below the crate root.
func (m *Module) Segments() []string {
	if m.IsRoot() {
		return nil
	}
	return strings.Split(strings.TrimPrefix(m.Path, RootModule+pathSep), pathSep)
}

// ModuleOption configures a module on first registration.
type ModuleOption func(*Module)

// WithVisibility sets the module visibility.
func WithVisibility(v Visibility) ModuleOption {
	return func(m *Module) { m.Visibility = v }
}

// Inline renders the module inside its parent.
func Inline() ModuleOption {
	return func(m *Module) { m.Inline = true }
}

// ModuleRegistry interns the modules of a run. The parent/child relation is
// kept in a directed graph that rejects cycles.
type ModuleRegistry struct {
	mu      sync.Mutex
	modules map[string]*Module
	docs    map[string]string
	tree    graph.Graph[string, string]
}

// NewModuleRegistry returns a registry holding only the crate root.
func NewModuleRegistry() *ModuleRegistry {
	r := &ModuleRegistry{
		modules: make(map[string]*Module),
		docs:    make(map[string]string),
		tree:    graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
	}
	root := &Module{Name: RootModule, Path: RootModule}
	r.modules[root.Path] = root
	_ = r.tree.AddVertex(root.Path)
	return r
}

// Root returns the crate root module.
func (r *ModuleRegistry) Root() *Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modules[RootModule]
}

// Child returns the module name under parent, creating it on first use.
// Options only apply to the call that creates the module.
func (r *ModuleRegistry) Child(parent *Module, name string, opts ...ModuleOption) (*Module, error) {
	if parent == nil {
		return nil, fmt.Errorf("smithygen: nil parent module for %q", name)
	}
	if name == "" || strings.Contains(name, pathSep) {
		return nil, fmt.Errorf("smithygen: invalid module name %q under %s", name, parent.Path)
	}
	path := parent.Path + pathSep + name
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modules[path]; ok {
		return m, nil
	}
	if _, ok := r.modules[parent.Path]; !ok {
		return nil, fmt.Errorf("smithygen: parent module %s is not registered", parent.Path)
	}
	m := &Module{Name: name, Path: path, Parent: parent.Path}
	for _, opt := range opts {
		opt(m)
	}
	if err := r.tree.AddVertex(path); err != nil {
		return nil, err
	}
	if err := r.link(parent.Path, path); err != nil {
		_ = r.tree.RemoveVertex(path)
		return nil, err
	}
	r.modules[path] = m
	return m, nil
}

// Path returns the module at the given path below root, creating missing
// segments with default options.
func (r *ModuleRegistry) Path(segments ...string) (*Module, error) {
	m := r.Root()
	for _, s := range segments {
		var err error
		if m, err = r.Child(m, s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Attach records child as a child of parent. Attaching a module to its
// current parent is a no-op.
func (r *ModuleRegistry) Attach(parent, child *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.modules[parent.Path]
	if !ok {
		return fmt.Errorf("smithygen: module %s is not registered", parent.Path)
	}
	c, ok := r.modules[child.Path]
	if !ok {
		return fmt.Errorf("smithygen: module %s is not registered", child.Path)
	}
	if c.Parent == p.Path {
		return nil
	}
	if err := r.link(p.Path, c.Path); err != nil {
		return err
	}
	_ = r.tree.RemoveEdge(p.Path, c.Path)
	return fmt.Errorf("%w: %s is a child of %s, not %s", ErrModuleReparent, c.Path, c.Parent, p.Path)
}

func (r *ModuleRegistry) link(parent, child string) error {
	err := r.tree.AddEdge(parent, child)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("%w: %s -> %s", ErrModuleCycle, parent, child)
	case errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	default:
		return err
	}
}

// Lookup returns the module with the given path.
func (r *ModuleRegistry) Lookup(path string) (*Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[path]
	return m, ok
}

// SetDoc attaches documentation to a module. The first documentation wins.
func (r *ModuleRegistry) SetDoc(m *Module, doc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[m.Path]; !ok && doc != "" {
		r.docs[m.Path] = doc
	}
}

// Doc returns the documentation of a module.
func (r *ModuleRegistry) Doc(m *Module) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[m.Path]
}

// Modules returns every module, parents before children and siblings
// ordered by path.
func (r *ModuleRegistry) Modules() ([]*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths, err := graph.StableTopologicalSort(r.tree, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, err
	}
	out := make([]*Module, 0, len(paths))
	for _, p := range paths {
		out = append(out, r.modules[p])
	}
	return out, nil
}

// Children returns the direct children of m ordered by path.
func (r *ModuleRegistry) Children(m *Module) ([]*Module, error) {
	all, err := r.Modules()
	if err != nil {
		return nil, err
	}
	var out []*Module
	for _, c := range all {
		if c.Parent == m.Path {
			out = append(out, c)
		}
	}
	return out, nil
}

// Ancestors returns the ancestors of m, nearest first, ending at the root.
func (r *ModuleRegistry) Ancestors(m *Module) []*Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Module
	for p := m.Parent; p != ""; {
		a := r.modules[p]
		out = append(out, a)
		p = a.Parent
	}
	return out
}
