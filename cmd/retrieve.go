package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearpeak-lending/report-cli/internal/retriever"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Pull a loan snapshot from the origination API",
	Long:  "Authenticates against the origination API, fetches field data for every loan in the configured folders, filters the closed folder to last month's fundings, and writes the JSON snapshot the report command consumes.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		month, _ := cmd.Flags().GetInt("month")
		year, _ := cmd.Flags().GetInt("year")

		client := retriever.NewClient(cfg.Retriever)
		if err := client.Authenticate(ctx); err != nil {
			return err
		}

		loans, err := client.Retrieve(ctx, month, year)
		if err != nil {
			return err
		}

		if err := retriever.WriteSnapshot(cfg.Paths.LoanJSON, loans); err != nil {
			return err
		}
		fmt.Printf("saved %d loan(s) to %s\n", len(loans), cfg.Paths.LoanJSON)

		analysis := retriever.AnalyzeDateFields(loans, cfg.Retriever.DateFields)
		for folder, byField := range analysis {
			fmt.Printf("%s:\n", folder)
			for fieldID, months := range byField {
				fmt.Printf("  %s: %v\n", fieldID, months)
			}
		}
		return nil
	},
}

func init() {
	retrieveCmd.Flags().Int("month", 0, "reference month for the funding window (1-12, default: current)")
	retrieveCmd.Flags().Int("year", 0, "reference year for the funding window (default: current)")

	rootCmd.AddCommand(retrieveCmd)
}
