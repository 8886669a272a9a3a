package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/seqflow/query"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <plan.yaml>",
		Short: "Print the operator tree of a plan",
		Long: `Parse a YAML plan and print its operator tree, one operator per line,
children indented below their parent. The plan is validated against the
demo catalog first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := query.LoadPlan(args[0])
			if err != nil {
				return err
			}
			if err := query.Validate(plan, demoCatalog{}); err != nil {
				return err
			}

			out := query.Explain(plan)
			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"plan": out})
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}
