package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/pkg/adapters/yamlchart"
	"github.com/aretw0/espalier/pkg/chart"
)

var validateCmd = &cobra.Command{
	Use:   "validate <chart.yaml>",
	Short: "Check a chart definition for consistency",
	Long:  `Compiles the chart and reports every structural problem: unknown transition targets, missing initial children, duplicate identifiers, unreachable transitions.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Chart is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	def, err := yamlchart.Load(path)
	if err != nil {
		return err
	}

	compiled, err := def.Compile()
	if err != nil {
		if verr := chart.AsValidationError(err); verr != nil {
			for _, issue := range verr.Issues {
				fmt.Printf("  - %s\n", issue)
			}
		}
		return fmt.Errorf("%d issue(s) found", issueCount(err))
	}

	fmt.Printf("Chart %q: %d states, %d actions, %d guards\n",
		compiled.ID(), len(compiled.Nodes()), len(compiled.ActionNames()), len(compiled.GuardNames()))
	return nil
}

func issueCount(err error) int {
	if verr := chart.AsValidationError(err); verr != nil {
		return len(verr.Issues)
	}
	return 1
}
