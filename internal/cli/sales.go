package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/clubfridge/internal/store"
)

// PendingSale is one ledger entry as printed by the sales command.
type PendingSale struct {
	ID            string     `json:"id"`
	Date          string     `json:"date"`
	MemberID      string     `json:"member_id"`
	ArticleID     string     `json:"article_id"`
	Amount        int        `json:"amount"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// NewSalesCommand creates the sales command.
func NewSalesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sales",
		Short: "List sales waiting for upload",
		Long: `List the sales in the local ledger that Vereinsflieger has not
acknowledged yet, oldest first, with the number of failed upload attempts.

Example:
  clubfridge sales
  clubfridge sales --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSales(rootOpts, cmd)
		},
	}
}

func listSales(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	sales, err := st.LoadSales(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load sales", err)
	}
	attempts, err := st.SaleAttempts(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load upload attempts", err)
	}

	pending := make([]PendingSale, 0, len(sales))
	for _, s := range sales {
		p := PendingSale{
			ID:        s.ID,
			Date:      s.Date.String(),
			MemberID:  s.MemberID,
			ArticleID: s.ArticleID,
			Amount:    s.Amount,
		}
		if a, ok := attempts[s.ID]; ok {
			p.Attempts = a.Attempts
			p.LastError = a.LastError
			at := a.LastAttemptAt
			p.LastAttemptAt = &at
		}
		pending = append(pending, p)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(pending, func(w io.Writer) error {
		return writeSalesText(w, pending)
	})
}

func writeSalesText(w io.Writer, pending []PendingSale) error {
	if len(pending) == 0 {
		_, err := fmt.Fprintln(w, "No pending sales.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tMEMBER\tARTICLE\tAMOUNT\tATTEMPTS\tLAST ERROR")
	for _, p := range pending {
		lastErr := p.LastError
		if lastErr == "" {
			lastErr = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			p.ID, p.Date, p.MemberID, p.ArticleID, p.Amount, p.Attempts, lastErr)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d pending sales\n", len(pending))
	return err
}
