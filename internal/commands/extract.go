package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcarecon/mcarecon/internal/auditlog"
	"github.com/mcarecon/mcarecon/internal/engine"
	"github.com/mcarecon/mcarecon/internal/export"
	"github.com/mcarecon/mcarecon/internal/extractor"
	"github.com/mcarecon/mcarecon/internal/retry"
	"github.com/mcarecon/mcarecon/internal/verify"
)

func newExtractCommand(v *viper.Viper) *cobra.Command {
	var (
		dealID     string
		command    string
		submitCmd  string
		pollCmd    string
		file       string
		dir        string
		outDir     string
		maxRetries int
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract and verify a deal, retrying with feedback",
		Long: `Run the extraction command for a deal and verify its output. Failed
verifications are retried with correction feedback until the extraction is
accepted or the retry budget is spent. Each attempt is appended to
logs/audit-log.csv under --dir.

The command receives {"deal_id", "attempt", "feedback"} as JSON on stdin and
must print an extraction payload as JSON on stdout.

For long-running extraction services, --submit-cmd receives the same request
and prints a task id; --poll-cmd is run with the task id appended and prints
{"status": "pending|running|done|failed", "extraction": {...}, "error": "..."}.
Polling follows retry.poll_interval and gives up after retry.max_wait.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			log := newLogger(v)

			sources := 0
			for _, set := range []bool{command != "", file != "", submitCmd != "" || pollCmd != ""} {
				if set {
					sources++
				}
			}
			if sources > 1 {
				return errors.New("--cmd, --file and --submit-cmd/--poll-cmd are mutually exclusive")
			}

			var ex extractor.Extractor
			switch {
			case submitCmd != "" || pollCmd != "":
				client, err := extractor.NewCommandTaskClient(submitCmd, pollCmd, log)
				if err != nil {
					return err
				}
				ex = extractor.NewAsyncExtractor(client, cfg.Retry.PollInterval, cfg.Retry.MaxWait, log)
			case command != "":
				ce, err := extractor.ParseCommand(command, log)
				if err != nil {
					return err
				}
				ex = ce
			case file != "":
				ex = extractor.FileExtractor{Path: file}
			default:
				return errors.New("one of --cmd, --file or --submit-cmd/--poll-cmd is required")
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if maxRetries < 0 {
				maxRetries = cfg.Retry.MaxRetries
			}
			ctrl := retry.NewController(ex, engine.New(cfg, log), maxRetries, log,
				retry.WithRecorder(auditlog.Recorder{Dir: absDir}))

			outcome, err := ctrl.Run(cmd.Context(), dealID)
			if err != nil {
				return fmt.Errorf("extraction for %s interrupted: %w", dealID, err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run %s: %s after %d attempt(s)\n", outcome.RunID, outcome.State.Status, len(outcome.Attempts))
			if len(outcome.Attempts) > 0 && outcome.Attempts[len(outcome.Attempts)-1].Err == nil {
				fmt.Fprint(w, verify.FormatReport(outcome.Result.Verification))
			}

			if !outcome.Accepted() {
				if fb := outcome.State.LastErrorFeedback; fb != nil {
					fmt.Fprintf(w, "\n%s\n", *fb)
				}
				return fmt.Errorf("deal %s needs review", dealID)
			}

			if outDir != "" {
				svc := export.NewService(outDir)
				if err := svc.Save(dealID, outcome.Result.Transactions, outcome.Result.Positions); err != nil {
					return fmt.Errorf("exporting results: %w", err)
				}
				fmt.Fprintf(w, "Wrote %s\n", svc.DealDir(dealID))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dealID, "deal", "", "deal id (required)")
	_ = cmd.MarkFlagRequired("deal")
	cmd.Flags().StringVar(&command, "cmd", "", "extraction command line")
	cmd.Flags().StringVar(&submitCmd, "submit-cmd", "", "asynchronous extraction: command that submits a task and prints its id")
	cmd.Flags().StringVar(&pollCmd, "poll-cmd", "", "asynchronous extraction: command run with the task id that prints its status")
	cmd.Flags().StringVar(&file, "file", "", "static extraction JSON, served on every attempt")
	cmd.Flags().StringVar(&dir, "dir", ".", "workspace directory for the audit log")
	cmd.Flags().StringVar(&outDir, "out", "", "write annotated CSVs under this directory when accepted")
	cmd.Flags().IntVar(&maxRetries, "max-retries", -1, "retry budget (default: from config)")

	return cmd
}
