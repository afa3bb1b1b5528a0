package gen

import (
	"fmt"
	"sort"
	"sync"
)

// Dependency is a crate the generated code depends on.
type Dependency struct {
	Name     string
	Version  string
	Features []string
	Optional bool
}

// Alias is a re-export of Target under Name in Module.
type Alias struct {
	Module string
	Name   string
	Target string
}

// Registrar receives the side effects of decorator contributions. All
// registrations are idempotent.
type Registrar interface {
	// AddFeature declares a crate feature.
	AddFeature(name string)
	// AddDependency declares a dependency. Declaring the same dependency
	// with a different version fails.
	AddDependency(dep Dependency) error
	// Module registers an additional output module under parent.
	Module(parent *Module, name string, opts ...ModuleOption) (*Module, error)
	// Alias re-exports target as name in module.
	Alias(module *Module, name, target string) error
}

// Manifest collects the registrations of a run for the manifest assembler.
type Manifest struct {
	mu       sync.Mutex
	modules  *ModuleRegistry
	features map[string]struct{}
	deps     map[string]*Dependency
	aliases  map[[2]string]Alias
}

var _ Registrar = (*Manifest)(nil)

// NewManifest returns an empty manifest registering modules in r.
func NewManifest(r *ModuleRegistry) *Manifest {
	return &Manifest{
		modules:  r,
		features: make(map[string]struct{}),
		deps:     make(map[string]*Dependency),
		aliases:  make(map[[2]string]Alias),
	}
}

// AddFeature implements Registrar.
func (m *Manifest) AddFeature(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features[name] = struct{}{}
}

// AddDependency implements Registrar.
func (m *Manifest) AddDependency(dep Dependency) error {
	if dep.Name == "" {
		return NewConfigError("Dependency", nil, "dependency name cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.deps[dep.Name]
	if !ok {
		d := dep
		d.Features = uniqueSorted(dep.Features)
		m.deps[dep.Name] = &d
		return nil
	}
	if cur.Version != dep.Version {
		return fmt.Errorf("%w: %s requested at %q and %q", ErrDependencyConflict, dep.Name, cur.Version, dep.Version)
	}
	cur.Features = uniqueSorted(append(cur.Features, dep.Features...))
	cur.Optional = cur.Optional && dep.Optional
	return nil
}

// Module implements Registrar.
func (m *Manifest) Module(parent *Module, name string, opts ...ModuleOption) (*Module, error) {
	return m.modules.Child(parent, name, opts...)
}

// Alias implements Registrar.
func (m *Manifest) Alias(module *Module, name, target string) error {
	if module == nil || name == "" || target == "" {
		return NewConfigError("Alias", name, "alias needs a module, a name and a target")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{module.Path, name}
	if cur, ok := m.aliases[key]; ok {
		if cur.Target == target {
			return nil
		}
		return &NameConflictError{Scope: module.Path, Name: name}
	}
	m.aliases[key] = Alias{Module: module.Path, Name: name, Target: target}
	return nil
}

// Features returns the declared features, sorted.
func (m *Manifest) Features() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.features))
	for f := range m.features {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Dependencies returns the declared dependencies, sorted by name.
func (m *Manifest) Dependencies() []Dependency {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Dependency, 0, len(m.deps))
	for _, d := range m.deps {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Aliases returns the aliases of module, sorted by name.
func (m *Manifest) Aliases(module *Module) []Alias {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Alias
	for k, a := range m.aliases {
		if k[0] == module.Path {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := set[s]; !ok {
			set[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
