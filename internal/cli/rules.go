package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRulesCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the active fingerprint rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, root, true)
			if err != nil {
				return err
			}
			catalogue, err := loadCatalogue(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(catalogue.Rules())
			}

			for i, rule := range catalogue.Rules() {
				fmt.Fprintf(out, "%d. %s\n", i+1, rule.Name)
				for _, p := range rule.Patterns {
					fmt.Fprintf(out, "     %s\n", p)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rules as JSON")
	return cmd
}
