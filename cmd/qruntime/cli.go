package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upb/qruntime/app"
	"github.com/upb/qruntime/config"
	"github.com/upb/qruntime/internal/observability"
	"github.com/upb/qruntime/internal/params"
	"github.com/upb/qruntime/services/session"
)

// cliOptions holds the flag values shared by every command.
type cliOptions struct {
	token      string
	instance   string
	backend    string
	keyFile    string
	configFile string

	offline   bool
	preferEnv bool
	fallback  bool

	logLevel  string
	logFormat string
	envFile   string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "qruntime",
		Short: "Resolve credentials and select a quantum compute backend",
		Long: `qruntime gathers the token, instance and backend name from the command
line, a key file, a YAML config file and the environment, then opens a
session with the runtime service and selects a backend.

With --offline a local simulator is used instead. When credentials are
available it is seeded with the noise profile of the named backend.

Running qruntime without a subcommand is the same as "qruntime resolve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.token, "token", "t", "", "API token for the runtime service")
	flags.StringVarP(&opts.instance, "instance", "i", "", "service instance (hub/group/project or CRN)")
	flags.StringVarP(&opts.backend, "backend", "b", "", "backend name")
	flags.StringVarP(&opts.keyFile, "key", "k", "", "file holding the API token; outranks --token")
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML file with token, instance and backend")
	flags.BoolVar(&opts.offline, "offline", false, "use a local simulator instead of a remote backend")
	flags.BoolVar(&opts.preferEnv, "env", false, "rank environment values above command-line values")
	flags.BoolVar(&opts.fallback, "fallback", false, "try lower-priority sources when the first choice fails")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&opts.envFile, "env-file", config.DefaultDotenvPath, "dotenv file consulted after the process environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "resolve",
			Short: "Resolve parameters, select a backend and print the selection",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runResolve(cmd, opts)
			},
		},
		newServeCmd(opts),
	)

	return root
}

// bootstrap loads the configuration, applies flag overrides and builds the
// dependencies.
func bootstrap(cmd *cobra.Command, opts *cliOptions) (*app.Dependencies, error) {
	cfg, err := config.NewFromFile(cmd.Context(), opts.envFile)
	if err != nil {
		return nil, err
	}

	if opts.logLevel != "" {
		cfg.Observability.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Observability.LogFormat = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return app.NewDependencies(cmd.Context(), cfg, logger)
}

// openRequest merges the flags with the resolution policy from the
// environment. A policy switch is on when either enables it.
func openRequest(opts *cliOptions, cfg *config.Config) session.OpenRequest {
	return session.OpenRequest{
		Token:             opts.token,
		Instance:          opts.instance,
		Backend:           opts.backend,
		KeyFile:           opts.keyFile,
		ConfigFile:        opts.configFile,
		PreferEnvironment: opts.preferEnv || cfg.Resolution.PreferEnvironment,
		Offline:           opts.offline || cfg.Resolution.Offline,
		AllowFallback:     opts.fallback || cfg.Resolution.AllowFallback,
	}
}

func runResolve(cmd *cobra.Command, opts *cliOptions) error {
	deps, err := bootstrap(cmd, opts)
	if err != nil {
		return err
	}
	defer closeDependencies(deps)

	result, err := deps.Sessions.Open(cmd.Context(), openRequest(opts, deps.Config))
	if err != nil {
		deps.Logger.Error("failed to open session", zap.Error(err))
		return err
	}

	return printResult(cmd.OutOrStdout(), result)
}

func closeDependencies(deps *app.Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), deps.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := deps.Close(ctx); err != nil {
		deps.Logger.Warn("failed to close dependencies", zap.Error(err))
	}
}

// printResult writes a human-readable summary. Parameter values come from
// the redacted reports.
func printResult(w io.Writer, result *session.Result) error {
	sel := result.Selection
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "session\t%s\n", result.SessionID)
	fmt.Fprintf(tw, "mode\t%s\n", sel.Mode)
	fmt.Fprintf(tw, "backend\t%s\n", sel.Backend.Name())
	fmt.Fprintf(tw, "qubits\t%d\n", sel.Backend.NumQubits())
	if sel.Backend.Local() {
		fmt.Fprintf(tw, "noise profile\t%t\n", sel.Seeded)
	}
	if sel.ConnectionLabel != "" {
		fmt.Fprintf(tw, "connection\t%s\n", sel.ConnectionLabel)
	}
	if sel.BackendLabel != "" {
		fmt.Fprintf(tw, "backend source\t%s\n", sel.BackendLabel)
	}
	for _, name := range result.Backends {
		fmt.Fprintf(tw, "available\t%s\n", name)
	}
	for _, report := range result.Reports {
		names := make([]string, 0, len(report.Values))
		for n := range report.Values {
			names = append(names, string(n))
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(tw, "[%d] %s\t%s = %s\n", report.Rank+1, report.Source, n, report.Values[params.Name(n)])
		}
	}

	return tw.Flush()
}
