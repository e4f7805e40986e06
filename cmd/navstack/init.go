package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navstack/internal/config"
	"github.com/vango-dev/navstack/internal/errors"
)

func initCmd(opts *globalOptions) *cobra.Command {
	var (
		useYAML bool
		force   bool
		name    string
	)

	cmd := &cobra.Command{
		Use:   "init [directory | s3://bucket/key]",
		Short: "Write a sample route table",
		Long: `Write a sample route table to get started.

The table is written as navstack.json, or navstack.yaml with --yaml.
An s3:// target uploads the table instead; the key's extension picks
the format.

Examples:
  navstack init
  navstack init ./app --yaml
  navstack init s3://my-bucket/routes/navstack.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			return runInit(cmd, target, name, useYAML, force)
		},
	}

	cmd.Flags().BoolVar(&useYAML, "yaml", false, "Write navstack.yaml instead of navstack.json")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing route table")
	cmd.Flags().StringVar(&name, "name", "family", "Application name")

	return cmd
}

func runInit(cmd *cobra.Command, target, name string, useYAML, force bool) error {
	out := cmd.OutOrStdout()
	cfg := sampleConfig(name)

	if config.IsS3(target) {
		if err := cfg.SaveS3(cmd.Context(), newObjectStore(), target); err != nil {
			return err
		}
		success(out, "Uploaded route table to %s", target)
		return nil
	}

	fileName := config.ConfigFileName
	if useYAML {
		fileName = config.YAMLConfigFileName
	}
	path := filepath.Join(target, fileName)

	if !force {
		if config.Exists(target) {
			return errors.Newf(errors.CategoryCLI, "a route table already exists in %s", target).
				WithSuggestion("Use --force to overwrite it")
		}
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success(out, "Created %s", path)
	info(out, "Try: navstack --config %s resolve /family/f1/person/7 --state '{\"user\":\"ann\"}'", target)
	return nil
}

// sampleConfig is the route table written by init.
func sampleConfig(name string) *config.Config {
	cfg := config.New()
	cfg.Name = name
	cfg.Version = "1"
	cfg.Routes = []config.RouteConfig{
		{Path: "/", Name: "home", Title: "Home"},
		{Path: "/login", Name: "login", Title: "Sign in"},
		{
			Path:  "/family/:fid",
			Name:  "family",
			Title: "Family :fid",
			Guard: &config.GuardConfig{
				When:     "has(state.user)",
				Redirect: "/login?from={location}",
			},
			Children: []config.RouteConfig{
				{
					Path:  `person/:pid(\d+)`,
					Name:  "person",
					Title: "Person :pid",
					Data:  map[string]any{"tabs": []any{"profile", "notes"}},
				},
			},
		},
		{Path: "/f/:fid", Redirect: "/family/:fid"},
	}
	cfg.Redirects = []config.RedirectRule{
		{From: "/admin", To: "/login?from={location}", When: `!has(state.admin)`},
	}
	return cfg
}
