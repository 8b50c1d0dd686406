package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mcarecon/mcarecon/internal/auditlog"
)

func newAuditCommand() *cobra.Command {
	var dealID string
	var dir string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recorded extraction attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			entries, err := auditlog.Read(absDir)
			if err != nil {
				return err
			}
			if dealID != "" {
				entries = auditlog.ForDeal(entries, dealID)
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No attempts recorded.")
				return nil
			}
			fmt.Fprintf(w, "%-20s %-12s %7s  %-12s %5s %6s\n", "TIME", "DEAL", "ATTEMPT", "STATUS", "ISSUES", "CONF")
			for _, e := range entries {
				fmt.Fprintf(w, "%-20s %-12s %7d  %-12s %5d %6.2f\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.DealID, e.Attempt, e.Status, e.Discrepancies, e.Confidence)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dealID, "deal", "", "only show this deal")
	cmd.Flags().StringVar(&dir, "dir", ".", "workspace directory")

	return cmd
}
