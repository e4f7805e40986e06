package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navstack/internal/config"
	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/pkg/navserver"
	"github.com/vango-dev/navstack/pkg/router"
)

func resolveCmd(opts *globalOptions) *cobra.Command {
	var (
		state  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "resolve LOCATION",
		Short: "Resolve a location to its page stack",
		Long: `Resolve a location against the route table and print the page stack.

Guards and redirect rules see the state given with --state as a JSON
object. A failed resolution prints its error page and exits non-zero.

Examples:
  navstack resolve /family/f1/person/7
  navstack resolve /family/f1 --state '{"user":"ann"}'
  navstack resolve /f/f1 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts, args[0], state, asJSON)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Navigation state as a JSON object")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the resolution as JSON")

	return cmd
}

func runResolve(cmd *cobra.Command, opts *globalOptions, location, rawState string, asJSON bool) error {
	navState, err := parseState(rawState)
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
	resolver, err := newResolver(cfg, cfg.Logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	res := resolver.Resolve(cmd.Context(), tree, location, navState)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(navserver.NewResolutionView(res)); err != nil {
			return err
		}
	} else {
		printResolution(out, res)
	}

	if res.Fault != nil {
		return errors.FromFault(res.Fault)
	}
	return nil
}

// parseState decodes the --state flag. It must be a JSON object.
func parseState(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	var state map[string]any
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, errors.New("E141").Wrap(err).
			WithSuggestion(`Quote the object, e.g. --state '{"user":"ann"}'`)
	}
	return state, nil
}

func printResolution(w io.Writer, res *router.Resolution) {
	fmt.Fprintf(w, "Location: %s\n", res.Location)
	for i, r := range res.Redirects {
		fmt.Fprintf(w, "  redirect %d → %s\n", i+1, r)
	}
	if res.Fault != nil {
		fmt.Fprintf(w, "Fault:    %s\n", res.Fault.Kind)
		if p, ok := res.ErrorPage.(*config.Page); ok && p.Error != nil {
			fmt.Fprintf(w, "Error:    %s %s\n", p.Error.Code, p.Error.Message)
		}
		return
	}

	fmt.Fprintln(w, "Stack:")
	for i := range res.Entries {
		e := &res.Entries[i]
		fmt.Fprintf(w, "  %d. %s", i+1, e.Prefix)
		if p, ok := e.Page.(*config.Page); ok && p.Title != "" {
			fmt.Fprintf(w, "  %q", p.Title)
		}
		if len(e.Params) > 0 {
			fmt.Fprintf(w, "  %s", formatParams(e.Params))
		}
		fmt.Fprintln(w)
	}
}

func formatParams(params router.Params) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + params[name]
	}
	return "{" + strings.Join(parts, " ") + "}"
}
