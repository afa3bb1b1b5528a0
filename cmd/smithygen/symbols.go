package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syssam/smithygen/compiler/gen"
	"github.com/syssam/smithygen/compiler/load"
)

var symbolsCfg struct {
	modelFlags
	builders bool
}

func newSymbolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Print the resolved symbol table of a model",
		RunE:  runSymbols,
	}
	symbolsCfg.register(cmd)
	cmd.Flags().BoolVar(&symbolsCfg.builders, "builders", false, "Also print builder symbols")
	return cmd
}

func runSymbols(cmd *cobra.Command, _ []string) error {
	opts, err := symbolsCfg.options(cmd)
	if err != nil {
		return err
	}
	opts = append(opts, gen.WithBackend(gen.NewMemoryBackend()))
	g, err := load.Load(symbolsCfg.model)
	if err != nil {
		return err
	}
	cfg, err := gen.NewConfig(opts...)
	if err != nil {
		return err
	}
	generator, err := gen.NewGenerator(g, cfg)
	if err != nil {
		return err
	}
	services, err := generator.Services()
	if err != nil {
		return err
	}
	for _, svc := range services {
		res, err := generator.Run(cmd.Context(), svc)
		if err != nil {
			return err
		}
		if err := printSymbols(cmd.OutOrStdout(), res, symbolsCfg.builders); err != nil {
			return err
		}
	}
	return nil
}

func printSymbols(w io.Writer, res *gen.Result, builders bool) error {
	fmt.Fprintf(w, "# %s (%s)\n", res.Service, res.Flavor)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHAPE\tSYMBOL\tTYPE\tMETA")
	row := func(s gen.Symbol) {
		var meta []string
		for _, k := range s.Meta.Keys() {
			meta = append(meta, k+"="+s.Meta[k])
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Shape, s.FullName(), s.Type, strings.Join(meta, ","))
	}
	for _, s := range res.Symbols {
		row(s)
	}
	if builders {
		for _, b := range res.Builders {
			row(b)
		}
	}
	return tw.Flush()
}
