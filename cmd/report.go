package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/clearpeak-lending/report-cli/internal/report"
	"github.com/clearpeak-lending/report-cli/internal/retriever"
	"github.com/clearpeak-lending/report-cli/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report <number|all>",
	Short: "Generate a report variant",
	Long: `Generates one numbered report variant (1-5), or every variant when given "all".

  1  Active pipeline volume
  2  Monthly closed volume
  3  Loan officer efficiency (requires the credit pull export)
  4  Underwriting turn times
  5  Branch processing turn times`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		month, _ := cmd.Flags().GetString("month")
		year, _ := cmd.Flags().GetString("year")
		noAppendix, _ := cmd.Flags().GetBool("no-appendix")
		dataRetrieve, _ := cmd.Flags().GetBool("data-retrieve")

		if dataRetrieve {
			client := retriever.NewClient(cfg.Retriever)
			if err := client.Authenticate(ctx); err != nil {
				return err
			}
			loans, err := client.Retrieve(ctx, 0, 0)
			if err != nil {
				return err
			}
			if err := retriever.WriteSnapshot(cfg.Paths.LoanJSON, loans); err != nil {
				return err
			}
		}

		opts := report.Options{
			MonthLabel:   month,
			YearLabel:    year,
			ShowAppendix: !noAppendix,
		}

		ledger, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		runner := report.NewRunner(cfg, ledger)

		if args[0] == "all" {
			outcomes := runner.RunAll(ctx, opts)
			var failed int
			for _, o := range outcomes {
				switch {
				case eris.Is(o.Err, report.ErrCreditFileMissing):
					fmt.Fprintf(os.Stderr, "report %d skipped: %v\n", o.Number, o.Err)
				case o.Err != nil:
					failed++
					fmt.Fprintf(os.Stderr, "report %d failed: %v\n", o.Number, o.Err)
				default:
					fmt.Printf("report %d: %s\n", o.Number, o.OutputPath)
				}
			}
			if failed > 0 {
				return eris.Errorf("%d report(s) failed", failed)
			}
			return nil
		}

		number, err := strconv.Atoi(args[0])
		if err != nil {
			return eris.Errorf("invalid report number %q", args[0])
		}

		out, err := runner.Run(ctx, number, opts)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

// initStore opens and migrates the run ledger.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func init() {
	reportCmd.Flags().String("month", "", "reporting month label override (e.g. June)")
	reportCmd.Flags().String("year", "", "reporting year label override (e.g. 2025)")
	reportCmd.Flags().Bool("no-appendix", false, "omit the appendix section")
	reportCmd.Flags().Bool("data-retrieve", false, "pull a fresh loan snapshot before generating")

	rootCmd.AddCommand(reportCmd)
}
