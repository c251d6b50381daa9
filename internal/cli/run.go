package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/roach88/clubfridge/internal/config"
	"github.com/roach88/clubfridge/internal/kiosk"
	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/remote"
	"github.com/roach88/clubfridge/internal/selfupdate"
	"github.com/roach88/clubfridge/internal/session"
	"github.com/roach88/clubfridge/internal/store"
	"github.com/roach88/clubfridge/internal/syncer"
	"github.com/roach88/clubfridge/internal/vereinsflieger"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Headless bool

	// IDGenerator allows overriding the sale id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator model.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the checkout terminal",
		Long: `Start the checkout terminal.

The terminal opens the local database (creating it if it doesn't exist),
asks for Vereinsflieger credentials on first start, and then accepts member
keys and article barcodes from the scanner.

By default a full-screen UI takes over the terminal and logs go to the log
file only. With --headless every line read from stdin is one scan; the
commands :pay, :cancel, :update and :quit stand for the function keys, and
":setup <club-id> <app-key> <username> <password>" submits credentials.

Exit code 3 means the terminal stopped to apply an update.

Example:
  clubfridge run
  clubfridge run --db /var/lib/clubfridge/fridge.db --offline
  printf '0005635570\n3800235265659\n:pay\n:quit\n' | clubfridge run --headless`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTerminal(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Headless, "headless", false, "read scans from stdin instead of showing the UI")

	return cmd
}

func runTerminal(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	console := cmd.ErrOrStderr()
	if !opts.Headless {
		console = nil
	}
	closeLog, err := setupLogging(cfg.Log, console)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	defer closeLog()

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	if opts.Headless {
		h := newHeadless(cmd.OutOrStdout())
		m := newMachine(cfg, opts, session.WithObserver(h.observe))
		go h.feed(cmd.InOrStdin(), m)
		runErr = m.Run(ctx)
		h.stop()
	} else {
		// Validated by config.Load.
		tag, _ := cfg.Kiosk.Tag()
		feed := kiosk.NewFeed()
		m := newMachine(cfg, opts, session.WithObserver(feed.Observe))
		runErr = runKiosk(ctx, cmd, m, feed, kiosk.WithLanguage(tag))
	}
	return exitError(runErr)
}

// newMachine wires the session to the store, the accounting service and
// the release checker described by cfg.
func newMachine(cfg *config.Config, opts *RunOptions, extra ...session.Option) *session.Machine {
	// Set by the opener, which always completes before the connector runs.
	var st *store.Store
	open := func(context.Context) (session.Store, error) {
		slog.Info("opening database", "path", cfg.Database)
		s, err := store.Open(cfg.Database)
		if err != nil {
			return nil, err
		}
		st = s
		return s, nil
	}

	api := newAPI(cfg)
	connect := func(creds model.Credentials) session.Syncer {
		return syncer.New(st, remote.NewClient(api, creds))
	}

	version := currentVersion(cfg)
	all := []session.Option{
		session.WithConnector(connect),
		session.WithOffline(cfg.Offline),
		session.WithVersion(version),
		session.WithChecker(newChecker(cfg, version)),
		session.WithTimings(session.Timings{
			Interaction: cfg.InteractionTimeout,
			Notice:      cfg.NoticeTimeout,
			Catalog:     cfg.Intervals.Catalog,
			Sales:       cfg.Intervals.Sales,
			SelfUpdate:  cfg.Intervals.SelfUpdate,
		}),
	}
	if opts.IDGenerator != nil {
		all = append(all, session.WithIDGenerator(opts.IDGenerator))
	}
	return session.New(open, append(all, extra...)...)
}

// runKiosk runs m behind the full-screen UI. Whichever stops first stops
// the other.
func runKiosk(ctx context.Context, cmd *cobra.Command, m *session.Machine, feed *kiosk.Feed, opts ...kiosk.Option) error {
	p := tea.NewProgram(kiosk.New(m, feed, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Run(ctx)
		p.Quit()
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		slog.Error("kiosk UI failed", "error", err)
	}
	m.Dispatch(session.Shutdown{})
	return <-errCh
}

func newAPI(cfg *config.Config) *vereinsflieger.Client {
	return vereinsflieger.New(cfg.Vereinsflieger.BaseURL,
		vereinsflieger.WithTimeout(cfg.Vereinsflieger.Timeout),
		vereinsflieger.WithRateLimit(cfg.Vereinsflieger.RequestsPerSecond),
	)
}

func currentVersion(cfg *config.Config) string {
	if cfg.Update.CurrentVersion != "" {
		return cfg.Update.CurrentVersion
	}
	return Version
}

func newChecker(cfg *config.Config, version string) selfupdate.Checker {
	if !cfg.Update.Enabled || cfg.Offline {
		return selfupdate.Disabled{}
	}
	return selfupdate.NewGitHubChecker(cfg.Update.Owner, cfg.Update.Repo, version)
}

// exitError maps the result of Machine.Run to the CLI exit codes.
func exitError(err error) error {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		slog.Info("terminal stopped")
		return nil
	case errors.Is(err, session.ErrRestartRequested):
		return WrapExitError(ExitRestart, "restart required", err)
	default:
		return WrapExitError(ExitFailure, "terminal stopped", err)
	}
}
