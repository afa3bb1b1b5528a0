package gen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"
)

// Snapshot renders the resolved symbol table of a run as a Go source file.
// The generated package exposes a Symbols map keyed by shape id.
func Snapshot(res *Result, pkg string) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by smithygen. DO NOT EDIT.")
	f.PackageComment(fmt.Sprintf("Package %s holds the symbol table of %s (%s).", pkg, res.Service, res.Flavor))

	f.Comment("Symbol is a resolved shape.")
	f.Type().Id("Symbol").Struct(
		jen.Id("Name").String(),
		jen.Id("Module").String(),
		jen.Id("Type").String(),
		jen.Id("Builder").String(),
		jen.Id("Meta").Map(jen.String()).String(),
	)

	f.Comment("Service is the shape id of the generated service.")
	f.Const().Id("Service").Op("=").Lit(string(res.Service))

	f.Comment("Flavor is the crate flavor of the run.")
	f.Const().Id("Flavor").Op("=").Lit(res.Flavor.String())

	entries := jen.Dict{}
	for _, s := range res.Symbols {
		fields := jen.Dict{
			jen.Id("Name"):   jen.Lit(s.Name),
			jen.Id("Module"): jen.Lit(s.Module.Path),
			jen.Id("Type"):   jen.Lit(s.Type.String()),
		}
		if b, ok := res.Builder(s.Shape); ok && s.Shape.Member() == "" {
			fields[jen.Id("Builder")] = jen.Lit(b.FullName())
		}
		if len(s.Meta) > 0 {
			meta := jen.Dict{}
			for _, k := range s.Meta.Keys() {
				meta[jen.Lit(k)] = jen.Lit(s.Meta[k])
			}
			fields[jen.Id("Meta")] = jen.Map(jen.String()).String().Values(meta)
		}
		entries[jen.Lit(string(s.Shape))] = jen.Values(fields)
	}
	f.Comment("Symbols maps shape ids to their resolved symbols.")
	f.Var().Id("Symbols").Op("=").Map(jen.String()).Id("Symbol").Values(entries)

	renames := jen.Dict{}
	for _, r := range res.Renames {
		renames[jen.Lit(r.Domain.String()+":"+r.From)] = jen.Lit(r.To)
	}
	f.Comment("Renames maps escaped identifiers, keyed by domain and original name.")
	f.Var().Id("Renames").Op("=").Map(jen.String()).String().Values(renames)
	return f
}

// WriteSnapshot renders the snapshot of res to path. The package is named
// after the containing directory.
func WriteSnapshot(path string, res *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	pkg := filepath.Base(filepath.Dir(path))
	if pkg == "." || pkg == string(filepath.Separator) {
		pkg = "snapshot"
	}
	if err := Snapshot(res, pkg).Save(path); err != nil {
		return NewGenerationError("snapshot", res.Service, "cannot write "+path, err)
	}
	return nil
}
