package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navstack/internal/errors"
)

func linkCmd(opts *globalOptions) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "link NAME",
		Short: "Build the location of a named route",
		Long: `Build the location of a named route from its parameters.

Route names are matched ignoring case. Parameters the route template
does not use become query parameters.

Examples:
  navstack link person --param fid=f1 --param pid=7
  navstack link family -p fid=f1 -p tab=members`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseParams(params)
			if err != nil {
				return err
			}

			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			tree, err := compile(cfg)
			if err != nil {
				return err
			}

			location, err := tree.LocationFor(args[0], values)
			if err != nil {
				return errors.FromError(err, "E107")
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Route parameter as name=value (repeatable)")

	return cmd
}

// parseParams splits name=value pairs. The last value of a name wins.
func parseParams(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errors.New("E143").
				WithDetail(fmt.Sprintf("%q is not name=value", pair))
		}
		values[name] = value
	}
	return values, nil
}
