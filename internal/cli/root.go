package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/clubfridge/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Database   string
	Offline    bool
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the clubfridge CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// Execute runs the CLI with args and returns the process exit code. A
// failure is reported in the selected format: a JSON error response on
// stdout with --format json, an error line on stderr otherwise.
func Execute(ctx context.Context, stdout, stderr io.Writer, args []string) int {
	cmd, opts := newRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		out := &OutputFormatter{Format: opts.Format, Writer: stderr}
		if opts.Format == "json" {
			out.Writer = stdout
		}
		_ = out.Error(err)
	}
	return GetExitCode(err)
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "clubfridge",
		Short: "Club fridge checkout terminal",
		Long: `clubfridge runs the self-service checkout terminal of a club fridge.

Members identify themselves with their key, scan the articles they take and
pay. Sales are stored locally first and uploaded to Vereinsflieger in the
background, so the terminal keeps working while offline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (default $"+config.EnvConfig+" or "+config.DefaultFile+")")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "never contact Vereinsflieger")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSalesCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd, opts
}

// loadConfig reads .env, the config file and the environment, then applies
// the global flags.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load .env", err)
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Offline {
		cfg.Offline = true
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}
