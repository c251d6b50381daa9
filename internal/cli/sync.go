package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/clubfridge/internal/remote"
	"github.com/roach88/clubfridge/internal/store"
	"github.com/roach88/clubfridge/internal/syncer"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Catalog bool
	Sales   bool
}

// SyncResult is the outcome of one sync command.
type SyncResult struct {
	Catalog *syncer.PullReport `json:"catalog,omitempty"`
	Sales   *syncer.PushReport `json:"sales,omitempty"`
	// SalesSkipped is set when another process was uploading.
	SalesSkipped bool `json:"sales_skipped,omitempty"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the catalog and upload pending sales once",
		Long: `Synchronize with Vereinsflieger once, using the credentials stored by
the terminal. Without flags both the catalog pull and the sale upload run.

Example:
  clubfridge sync
  clubfridge sync --sales`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Catalog, "catalog", false, "pull members and articles")
	cmd.Flags().BoolVar(&opts.Sales, "sales", false, "upload pending sales")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cfg.Offline {
		return NewExitError(ExitCommandError, "sync is not available in offline mode")
	}
	closeLog, err := setupLogging(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	defer closeLog()

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	creds, found, err := st.FindCredentials(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load credentials", err)
	}
	if !found {
		return NewExitError(ExitCommandError, "no credentials stored; start the terminal once to set them up")
	}

	engine := syncer.New(st, remote.NewClient(newAPI(cfg), creds))
	pull, push := opts.Catalog, opts.Sales
	if !pull && !push {
		pull, push = true, true
	}

	var result SyncResult
	var errs []error
	if pull {
		report, err := engine.PullCatalog(ctx)
		result.Catalog = &report
		if err != nil {
			errs = append(errs, fmt.Errorf("pull catalog: %w", err))
		}
	}
	if push {
		report, ran, err := engine.PushSales(ctx)
		if err == nil && !ran {
			result.SalesSkipped = true
		} else {
			result.Sales = &report
		}
		if err != nil {
			errs = append(errs, err)
		} else if report.Failed > 0 {
			errs = append(errs, fmt.Errorf("%d of %d sales failed to upload", report.Failed, report.Attempted))
		}
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := out.Success(result, func(w io.Writer) error {
		return writeSyncText(w, result)
	}); err != nil {
		return err
	}
	if len(errs) > 0 {
		return WrapExitError(ExitFailure, "sync incomplete", errors.Join(errs...))
	}
	return nil
}

func writeSyncText(w io.Writer, r SyncResult) error {
	if c := r.Catalog; c != nil {
		if _, err := fmt.Fprintf(w, "catalog: %d members, %d articles (%d users, %d articles dropped)\n",
			c.Members, c.Articles, c.DroppedUsers, c.DroppedArticles); err != nil {
			return err
		}
	}
	if r.SalesSkipped {
		if _, err := fmt.Fprintln(w, "sales: skipped, another upload is running"); err != nil {
			return err
		}
	}
	if s := r.Sales; s != nil {
		if _, err := fmt.Fprintf(w, "sales: %d of %d uploaded, %d failed\n",
			s.Uploaded, s.Attempted, s.Failed); err != nil {
			return err
		}
	}
	return nil
}
