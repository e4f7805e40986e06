package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navstack/pkg/navserver"
)

func routesCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes of the route table",
		Long: `List every route in match order with its full template.

Examples:
  navstack routes
  navstack routes --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			tree, err := compile(cfg)
			if err != nil {
				return err
			}

			views := navserver.NewRouteViews(tree)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTEMPLATE")
			for _, v := range views {
				name := v.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(tw, "%s%s\t%s\n", strings.Repeat("  ", v.Depth), name, v.Template)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print routes as JSON")

	return cmd
}
