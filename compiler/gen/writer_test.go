package gen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textLayout writes modules as .txt files with a brace syntax for inline
// modules.
type textLayout struct{}

func (textLayout) File(m *Module) string {
	if m.IsRoot() {
		return "lib.txt"
	}
	return strings.Join(m.Segments(), "/") + ".txt"
}

func (textLayout) Header(_ *Module, doc string) string {
	if doc == "" {
		return ""
	}
	return "// " + doc + "\n"
}

func (textLayout) Declare(c *Module) string { return "mod " + c.Name + ";\n" }
func (textLayout) Open(c *Module) string    { return "mod " + c.Name + " {\n" }
func (textLayout) Close(*Module) string     { return "}\n" }

func testTree(t *testing.T) (root, types, config, endpoint *Module, res *Result) {
	t.Helper()
	r := NewModuleRegistry()
	root = r.Root()
	var err error
	types, err = r.Child(root, "types")
	require.NoError(t, err)
	config, err = r.Child(root, "config")
	require.NoError(t, err)
	endpoint, err = r.Child(config, "endpoint", Inline(), WithVisibility(PubCrate))
	require.NoError(t, err)
	modules, err := r.Modules()
	require.NoError(t, err)
	return root, types, config, endpoint, &Result{
		Service: weatherID,
		Flavor:  FlavorClient,
		Modules: modules,
		Docs:    map[string]string{types.Path: "Types."},
	}
}

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	_, types, config, _, res := testTree(t)
	b := NewMemoryBackend()
	require.NoError(t, b.Emit(ctx, Emission{Module: types, Fragment: Raw("struct A;")}))
	require.NoError(t, b.Emit(ctx, Emission{Module: config, Fragment: Raw("struct Config;")}))
	require.NoError(t, b.Emit(ctx, Emission{Module: types, Fragment: Raw("struct B;")}))
	require.NoError(t, b.Finish(ctx, res))

	assert.Len(t, b.Emissions(), 3)
	assert.Equal(t, "struct A;\nstruct B;\n", b.Module(types.Path))
	assert.Empty(t, b.Module("crate::missing"))
	require.Len(t, b.Results(), 1)
	assert.Same(t, res, b.Results()[0])
}

func TestDirBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root, types, config, endpoint, res := testTree(t)
	b := NewDirBackend(dir, textLayout{})
	for _, e := range []Emission{
		{Module: root, Fragment: Raw("fn main() {}")},
		{Module: types, Fragment: Raw("struct A;\n")},
		{Module: types, Fragment: Raw("struct B;")},
		{Module: config, Fragment: Raw("struct Config;")},
		{Module: endpoint, Fragment: Raw("fn region() {}")},
	} {
		require.NoError(t, b.Emit(ctx, e))
	}
	require.NoError(t, b.Finish(ctx, res))

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, "mod config;\nmod types;\n\nfn main() {}\n", read("lib.txt"))
	assert.Equal(t, "// Types.\nstruct A;\n\nstruct B;\n", read("types.txt"))
	assert.Equal(t, "mod endpoint {\nfn region() {}\n}\n\nstruct Config;\n", read("config.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "config", "endpoint.txt"))
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "lib.txt"),
		filepath.Join(dir, "types.txt"),
		filepath.Join(dir, "config.txt"),
	}, b.Written())

	// Bodies are consumed by Finish.
	require.NoError(t, b.Finish(ctx, res))
	assert.Equal(t, "mod config;\nmod types;\n", read("lib.txt"))
}

func TestDirBackendRemovesStaleFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := NewModuleRegistry()
	op, err := r.Path("operation")
	require.NoError(t, err)
	getA, err := r.Child(op, "get_a")
	require.NoError(t, err)
	_, err = r.Child(op, "get_b")
	require.NoError(t, err)
	modules, err := r.Modules()
	require.NoError(t, err)

	b := NewDirBackend(dir, textLayout{})
	require.NoError(t, b.Emit(ctx, Emission{Module: getA, Fragment: Raw("struct GetA;")}))
	require.NoError(t, b.Finish(ctx, &Result{Service: weatherID, Modules: modules}))
	assert.FileExists(t, filepath.Join(dir, "operation", "get_a.txt"))
	assert.FileExists(t, filepath.Join(dir, "operation", "get_b.txt"))
	list, err := os.ReadFile(filepath.Join(dir, GeneratedList))
	require.NoError(t, err)
	assert.Equal(t, "lib.txt\noperation.txt\noperation/get_a.txt\noperation/get_b.txt\n", string(list))

	// A later run without get_a, from a new backend as in watch mode.
	var kept []*Module
	for _, m := range modules {
		if m != getA {
			kept = append(kept, m)
		}
	}
	b = NewDirBackend(dir, textLayout{})
	require.NoError(t, b.Finish(ctx, &Result{Service: weatherID, Modules: kept}))
	assert.NoFileExists(t, filepath.Join(dir, "operation", "get_a.txt"))
	assert.FileExists(t, filepath.Join(dir, "operation", "get_b.txt"))

	// A run without operations removes the emptied directory.
	b = NewDirBackend(dir, textLayout{})
	require.NoError(t, b.Finish(ctx, &Result{Service: weatherID, Modules: modules[:1]}))
	assert.NoDirExists(t, filepath.Join(dir, "operation"))
	assert.FileExists(t, filepath.Join(dir, "lib.txt"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("mine"), 0o644))
	require.NoError(t, b.Finish(ctx, &Result{Service: weatherID, Modules: modules[:1]}))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"), "files not written by a run are kept")
}

func TestDirBackendHoldsOneService(t *testing.T) {
	ctx := context.Background()
	_, _, _, _, res := testTree(t)
	b := NewDirBackend(t.TempDir(), textLayout{})
	require.NoError(t, b.Finish(ctx, res))
	require.NoError(t, b.Finish(ctx, res), "the same service may run again")

	other := *res
	other.Service = "example.weather#Almanac"
	err := b.Finish(ctx, &other)
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "already holds the crate of "+string(weatherID))
}

func TestDirBackendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, _, res := testTree(t)
	b := NewDirBackend(t.TempDir(), textLayout{})
	require.ErrorIs(t, b.Finish(ctx, res), context.Canceled)
	assert.Empty(t, b.Written())
}
