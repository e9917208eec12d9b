package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xmilen/solsentry/internal/rules"
)

func newRulesCmd() *cobra.Command {
	var ruleFiles []string
	cmd := &cobra.Command{Use: "rules", Short: "Inspect the rule set"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List registered detectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := rules.Load(ruleFiles)
			if err != nil {
				return err
			}
			for _, d := range reg.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", d.ID, d.Severity, d.Category, d.Title)
			}
			return nil
		},
	}
	list.Flags().StringSliceVar(&ruleFiles, "rules", nil, "Extra YAML rule files (repeatable)")
	cmd.AddCommand(list)
	return cmd
}
