package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/smithygen/compiler/gen"
	"github.com/syssam/smithygen/compiler/gen/rust"
)

var decoratorsCfg struct {
	flavor string
}

func newDecoratorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decorators",
		Short: "Print the effective decorator order of a flavor",
		RunE:  runDecorators,
	}
	cmd.Flags().StringVarP(&decoratorsCfg.flavor, "flavor", "f", "client", "Crate flavor: client, server or sdk")
	return cmd
}

func runDecorators(cmd *cobra.Command, _ []string) error {
	flavor, err := gen.ParseFlavor(decoratorsCfg.flavor)
	if err != nil {
		return err
	}
	p := gen.NewPipeline(zap.L())
	if err := p.Register(rust.New().Decorators(flavor)...); err != nil {
		return err
	}
	ordered, err := p.Ordered()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDECORATOR\tPRIORITY\tAFTER\tPOINTS")
	for i, d := range ordered {
		points := make([]string, 0, len(d.Points()))
		for _, pt := range d.Points() {
			points = append(points, string(pt))
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", i+1, d.Name(), d.Priority(), strings.Join(d.Predecessors(), ","), strings.Join(points, ","))
	}
	return tw.Flush()
}
