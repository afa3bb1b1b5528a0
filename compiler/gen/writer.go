package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/syssam/smithygen/compiler/load"
)

// Emission is one unit of output handed to a Backend: a fragment placed in a
// module, on behalf of a symbol.
type Emission struct {
	Module   *Module
	Symbol   Symbol
	Fragment Fragment
}

// Backend receives the output of a run. Emit is called sequentially in a
// deterministic order; Finish is called once after the last emission of a
// successful run.
type Backend interface {
	Emit(ctx context.Context, e Emission) error
	Finish(ctx context.Context, res *Result) error
}

// MemoryBackend collects emissions in memory.
type MemoryBackend struct {
	mu        sync.Mutex
	emissions []Emission
	results   []*Result
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Emit implements Backend.
func (b *MemoryBackend) Emit(_ context.Context, e Emission) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emissions = append(b.emissions, e)
	return nil
}

// Finish implements Backend.
func (b *MemoryBackend) Finish(_ context.Context, res *Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, res)
	return nil
}

// Emissions returns the collected emissions in emission order.
func (b *MemoryBackend) Emissions() []Emission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Emission(nil), b.emissions...)
}

// Results returns the finished runs.
func (b *MemoryBackend) Results() []*Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Result(nil), b.results...)
}

// Module returns the concatenated code emitted into the module path.
func (b *MemoryBackend) Module(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var buf bytes.Buffer
	for _, e := range b.emissions {
		if e.Module.Path == path {
			buf.WriteString(e.Fragment.Code)
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

// GeneratedList is the file below a DirBackend directory that lists the
// files written by the last run, relative to the directory.
const GeneratedList = ".smithygen"

// DirBackend writes one file per module under a directory. A directory
// holds the crate of a single service. Files listed by a previous run that
// the current run no longer writes are removed.
type DirBackend struct {
	dir    string
	layout FileLayout

	mu      sync.Mutex
	service load.ShapeID
	bodies  map[string]*bytes.Buffer
	written []string
}

var _ Backend = (*DirBackend)(nil)

// NewDirBackend returns a backend writing below dir.
func NewDirBackend(dir string, layout FileLayout) *DirBackend {
	return &DirBackend{dir: dir, layout: layout, bodies: make(map[string]*bytes.Buffer)}
}

// Emit implements Backend.
func (b *DirBackend) Emit(_ context.Context, e Emission) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.bodies[e.Module.Path]
	if !ok {
		buf = &bytes.Buffer{}
		b.bodies[e.Module.Path] = buf
	}
	if buf.Len() > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString(e.Fragment.Code)
	if n := len(e.Fragment.Code); n > 0 && e.Fragment.Code[n-1] != '\n' {
		buf.WriteString("\n")
	}
	return nil
}

// Finish implements Backend. It renders the module tree of the run and
// writes every non-inline module to its file.
func (b *DirBackend) Finish(ctx context.Context, res *Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.service != "" && b.service != res.Service {
		return NewGenerationError("emit", res.Service,
			fmt.Sprintf("directory %s already holds the crate of %s", b.dir, b.service), nil)
	}
	children := make(map[string][]*Module)
	for _, m := range res.Modules {
		if m.Parent != "" {
			children[m.Parent] = append(children[m.Parent], m)
		}
	}
	for _, cs := range children {
		sort.Slice(cs, func(i, j int) bool { return cs[i].Path < cs[j].Path })
	}
	var render func(m *Module) []byte
	render = func(m *Module) []byte {
		var buf bytes.Buffer
		buf.WriteString(b.layout.Header(m, res.Docs[m.Path]))
		for _, c := range children[m.Path] {
			if c.Inline {
				buf.WriteString(b.layout.Open(c))
				buf.Write(render(c))
				buf.WriteString(b.layout.Close(c))
				continue
			}
			buf.WriteString(b.layout.Declare(c))
		}
		if body, ok := b.bodies[m.Path]; ok {
			if len(children[m.Path]) > 0 {
				buf.WriteString("\n")
			}
			buf.Write(body.Bytes())
		}
		return buf.Bytes()
	}
	var files []string
	for _, m := range res.Modules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.Inline {
			continue
		}
		rel := filepath.FromSlash(b.layout.File(m))
		path := filepath.Join(b.dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(path, render(m), 0o644); err != nil {
			return NewGenerationError("emit", res.Service, "cannot write "+path, err)
		}
		files = append(files, rel)
		b.written = append(b.written, path)
	}
	b.service = res.Service
	b.bodies = make(map[string]*bytes.Buffer)
	if err := b.prune(files); err != nil {
		return NewGenerationError("emit", res.Service, "cannot remove stale files", err)
	}
	return nil
}

// prune removes the files of the previous run that are not in files, then
// records files as the current run.
func (b *DirBackend) prune(files []string) error {
	list := filepath.Join(b.dir, GeneratedList)
	keep := make(map[string]struct{}, len(files))
	for _, f := range files {
		keep[f] = struct{}{}
	}
	data, err := os.ReadFile(list)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		rel := filepath.FromSlash(strings.TrimSpace(line))
		if rel == "" || !filepath.IsLocal(rel) {
			continue
		}
		if _, ok := keep[rel]; ok {
			continue
		}
		if err := remove(b.dir, rel); err != nil {
			return err
		}
	}
	sorted := make([]string, len(files))
	for i, f := range files {
		sorted[i] = filepath.ToSlash(f)
	}
	sort.Strings(sorted)
	return os.WriteFile(list, []byte(strings.Join(sorted, "\n")+"\n"), 0o644)
}

// remove deletes dir/rel if it exists, then every parent directory below
// dir that became empty.
func remove(dir, rel string) error {
	if err := os.Remove(filepath.Join(dir, rel)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for parent := filepath.Dir(rel); parent != "."; parent = filepath.Dir(parent) {
		entries, err := os.ReadDir(filepath.Join(dir, parent))
		if err != nil || len(entries) > 0 {
			return err
		}
		if err := os.Remove(filepath.Join(dir, parent)); err != nil {
			return err
		}
	}
	return nil
}

// Written returns the files written so far.
func (b *DirBackend) Written() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.written...)
}
