package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/pkg/router"
)

func checkCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the route table",
		Long: `Validate the route table and report every malformed route.

Unlike resolution, which stops at the first compile error, check lists
them all, with a caret under the offending part of each pattern.

Examples:
  navstack check
  navstack --config ./app/navstack.yaml check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}
}

func runCheck(cmd *cobra.Command, opts *globalOptions) error {
	out := cmd.OutOrStdout()

	cfg, err := opts.load(cmd.Context())
	if err != nil {
		return err
	}

	routes, err := cfg.BuildRoutes()
	if err != nil {
		return err
	}

	faults := router.Validate(routes)
	for _, f := range faults {
		fmt.Fprint(cmd.ErrOrStderr(), errors.FromFault(f).Format())
	}
	if len(faults) > 0 {
		return errors.New("E140").
			WithDetail(fmt.Sprintf("%d route(s) failed to compile", len(faults)))
	}

	if _, err := cfg.RedirectHook(nil); err != nil {
		return err
	}

	tree, err := compile(cfg)
	if err != nil {
		return err
	}

	success(out, "Route table OK: %d routes, %d redirect rules", tree.Len(), len(cfg.Redirects))
	if cfg.Path() != "" {
		info(out, "Source: %s", cfg.Path())
	}
	return nil
}
