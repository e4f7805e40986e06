package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navstack/internal/config"
	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/pkg/router"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌┐┌┌─┐┬  ┬┌─┐┌┬┐┌─┐┌─┐┬┌─
  │││├─┤└┐┌┘└─┐ │ ├─┤│  ├┴┐
  ┘└┘┴ ┴ └┘ └─┘ ┴ ┴ ┴└─┘┴ ┴
`

// newObjectStore returns the S3 client used for s3:// route tables.
var newObjectStore = func() config.ObjectStore {
	return config.NewS3Client(config.S3OptionsFromEnv())
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	config   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "navstack",
		Short: "Resolve locations to page stacks",
		Long: `navstack maps locations like /family/f1/person/7 to the stack of
pages a navigation UI shows, using a declarative route table.

  • Nested routes with typed parameters
  • Redirects and CEL guards
  • Reverse lookup by route name
  • HTTP and WebSocket navigation server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "",
		"Route table directory, file or s3://bucket/key (default: search upward from the working directory)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default from the route table)")

	rootCmd.AddCommand(
		initCmd(opts),
		checkCmd(opts),
		routesCmd(opts),
		resolveCmd(opts),
		linkCmd(opts),
		serveCmd(opts),
		versionCmd(),
	)
	return rootCmd
}

// load reads and validates the route table named by --config.
func (o *globalOptions) load(ctx context.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case o.config == "":
		cfg, err = config.LoadFromWorkingDir()
	case config.IsS3(o.config):
		cfg, err = config.LoadS3(ctx, newObjectStore(), o.config)
	default:
		cfg, err = config.LoadSource(ctx, o.config, nil)
	}
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newResolver builds a resolver with the route table's options and hooks.
func newResolver(cfg *config.Config, logger *slog.Logger, hooks ...router.Hook) (*router.Resolver, error) {
	opts, err := cfg.ResolverOptions(logger)
	if err != nil {
		return nil, errors.FromError(err, "E100")
	}
	if len(hooks) > 0 {
		opts = append(opts, router.WithHooks(hooks...))
	}
	return router.NewResolver(opts...), nil
}

// compile builds the route tree, mapping faults to coded errors.
func compile(cfg *config.Config) (*router.Tree, error) {
	tree, err := cfg.Tree()
	if err != nil {
		return nil, errors.FromError(err, "E100")
	}
	return tree, nil
}

// printBanner prints the navstack ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
