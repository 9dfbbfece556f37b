package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Prints the merged configuration (file, environment, defaults) as YAML. Credentials are redacted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		redacted := *cfg
		if redacted.Retriever.Password != "" {
			redacted.Retriever.Password = "***"
		}
		if redacted.Retriever.ClientSecret != "" {
			redacted.Retriever.ClientSecret = "***"
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(&redacted); err != nil {
			return eris.Wrap(err, "config: encode yaml")
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
