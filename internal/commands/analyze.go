package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcarecon/mcarecon/internal/engine"
	"github.com/mcarecon/mcarecon/internal/export"
	"github.com/mcarecon/mcarecon/internal/extractor"
	"github.com/mcarecon/mcarecon/internal/importer"
	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/patterns"
	"github.com/mcarecon/mcarecon/internal/verify"
)

const formatJSON = "json"

type analyzeOptions struct {
	format  string
	account string
	summary string
	outDir  string
	deal    string
	archive bool
	strict  bool
}

func newAnalyzeCommand(v *viper.Viper) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <file|directory>",
		Short: "Run one reconciliation pass over a statement",
		Long: `Run one reconciliation pass over a statement file, or over every CSV in a
directory (one file per bank account, named after the account).

CSV input carries no claimed summary; pass --summary to verify one.
JSON input is an extraction payload with transactions and summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			log := newLogger(v)

			x, files, err := loadExtraction(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			if opts.summary != "" {
				s, err := readSummary(opts.summary)
				if err != nil {
					return err
				}
				x.Summary = s
			}

			result := engine.New(cfg, log).Process(x)
			printResult(cmd.OutOrStdout(), result)

			if opts.outDir != "" {
				deal := opts.deal
				if deal == "" {
					deal = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				}
				svc := export.NewService(opts.outDir)
				if err := svc.Save(deal, result.Transactions, result.Positions); err != nil {
					return fmt.Errorf("exporting results: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nWrote %s\n", svc.DealDir(deal))
			}

			if opts.archive {
				for _, f := range files {
					if err := importer.MarkProcessed(filepath.Dir(f.Path), f.Name); err != nil {
						return err
					}
				}
			}

			if opts.strict && !result.Verification.IsValid {
				return fmt.Errorf("verification failed with %d discrepancies", len(result.Verification.Discrepancies))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "generic", "input format: generic, chase or json")
	cmd.Flags().StringVar(&opts.account, "account", "", "source account id for CSV rows (default: file name)")
	cmd.Flags().StringVar(&opts.summary, "summary", "", "claimed summary JSON to verify")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "write annotated CSVs under this directory")
	cmd.Flags().StringVar(&opts.deal, "deal", "", "deal id for --out (default: input name)")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "move imported CSVs to processed/ afterwards")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when verification fails")

	return cmd
}

// loadExtraction builds the engine input from a JSON payload, a CSV file,
// or a directory of CSVs. The imported files are returned for archiving.
func loadExtraction(ctx context.Context, path string, opts analyzeOptions) (model.Extraction, []importer.FileInfo, error) {
	if strings.EqualFold(opts.format, formatJSON) {
		x, err := extractor.FileExtractor{Path: path}.Extract(ctx, extractor.Request{})
		return x, nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.Extraction{}, nil, fmt.Errorf("reading input: %w", err)
	}

	var files []importer.FileInfo
	if info.IsDir() {
		files, err = importer.Scan(path)
		if err != nil {
			return model.Extraction{}, nil, err
		}
		if len(files) == 0 {
			return model.Extraction{}, nil, fmt.Errorf("no CSV files in %s", path)
		}
	} else {
		files = []importer.FileInfo{{
			Name:      info.Name(),
			Path:      path,
			Size:      info.Size(),
			AccountID: strings.TrimSuffix(info.Name(), filepath.Ext(info.Name())),
		}}
	}

	var x model.Extraction
	for _, f := range files {
		account := f.AccountID
		if opts.account != "" {
			account = opts.account
		}
		parser := importer.DefaultRegistry(account).Get(opts.format)
		if parser == nil {
			return model.Extraction{}, nil, fmt.Errorf("unknown format %q", opts.format)
		}

		records, err := parseFile(parser, f.Path)
		if err != nil {
			return model.Extraction{}, nil, err
		}
		x.Transactions = append(x.Transactions, records...)
	}
	return x, files, nil
}

func parseFile(p importer.Parser, path string) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

func readSummary(path string) (model.ClaimedSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ClaimedSummary{}, fmt.Errorf("reading summary: %w", err)
	}
	var s model.ClaimedSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return model.ClaimedSummary{}, fmt.Errorf("parsing summary: %w", err)
	}
	return s, nil
}

func printResult(w io.Writer, r engine.Result) {
	fmt.Fprint(w, verify.FormatReport(r.Verification))

	fmt.Fprintf(w, "\nTransactions: %d (internal transfers: %d, pairs: %d, moved: $%s)\n",
		len(r.Transactions), r.Transfers.TransferCount, r.Transfers.PairCount, r.Transfers.TotalTransferred.StringFixed(2))

	fmt.Fprintf(w, "\nPositions: %d\n", len(r.Positions))
	for _, p := range r.Positions {
		stacked := ""
		if p.IsStacked {
			stacked = fmt.Sprintf("  stacked x%d", p.StackCount)
		}
		fmt.Fprintf(w, "  %-24s %10s %-8s %4d  monthly $%s%s\n",
			p.LenderName, "$"+p.Amount.StringFixed(2), p.Frequency, p.OccurrenceCount, p.MonthlyPayment.StringFixed(2), stacked)
	}

	m := r.Metrics
	fmt.Fprintf(w, "\nNet revenue:           $%s (%d months)\n", m.NetRevenue.StringFixed(2), m.MonthsAnalyzed)
	fmt.Fprintf(w, "Avg monthly income:    $%s\n", m.AverageMonthlyIncome.StringFixed(2))
	fmt.Fprintf(w, "MCA monthly:           $%s\n", m.TotalMCAMonthly.StringFixed(2))
	fmt.Fprintf(w, "Payment to income:     %s%%\n", m.PaymentToIncomePct.StringFixed(1))
	fmt.Fprintf(w, "Available for payment: $%s\n", m.AvailableForNewPayment.StringFixed(2))
	if m.NSFCount > 0 {
		fmt.Fprintf(w, "NSF events:            %d\n", m.NSFCount)
	}

	printPatterns(w, r.Patterns)
}

func printPatterns(w io.Writer, p patterns.Report) {
	if len(p.Recurring) > 0 {
		fmt.Fprintf(w, "\nRecurring debits: %d\n", len(p.Recurring))
		for _, rec := range p.Recurring {
			fmt.Fprintf(w, "  %-32s %-7s %4d  avg $%s\n", rec.Key, rec.Frequency, rec.OccurrenceCount, rec.AverageAmount.StringFixed(2))
		}
	}
	if len(p.Changes) > 0 {
		fmt.Fprintf(w, "\nPayment changes: %d\n", len(p.Changes))
		for _, c := range p.Changes {
			switch c.Kind {
			case patterns.PausedResumed:
				fmt.Fprintf(w, "  %-32s paused %s, resumed %s (%d days)\n", c.Key, c.From.Format("2006-01-02"), c.To.Format("2006-01-02"), c.GapDays)
			case patterns.Refinanced:
				fmt.Fprintf(w, "  %-32s $%s -> $%s on %s (%s%%)\n", c.Key, c.OldAmount.StringFixed(2), c.NewAmount.StringFixed(2), c.To.Format("2006-01-02"), c.ChangePct.StringFixed(2))
			}
		}
	}
	if len(p.UnknownRecurring) > 0 {
		fmt.Fprintf(w, "\nUnknown recurring (review): %d\n", len(p.UnknownRecurring))
		for _, u := range p.UnknownRecurring {
			fmt.Fprintf(w, "  %-32s %4d  avg $%s\n", u.Name, u.OccurrenceCount, u.AverageAmount.StringFixed(2))
		}
	}
}
