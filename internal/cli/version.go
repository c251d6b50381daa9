package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version is the release of this binary, set at build time with
// -ldflags "-X github.com/roach88/clubfridge/internal/cli.Version=v1.2.3".
var Version = "dev"

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(map[string]string{"version": Version}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "clubfridge %s\n", Version)
				return err
			})
		},
	}
}
