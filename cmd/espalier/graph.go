package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/adapters/yamlchart"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <chart.yaml>",
	Short: "Export the chart as a Mermaid diagram",
	Long:  `Compiles the chart and outputs a Mermaid state diagram (stateDiagram-v2) representing its states and transitions.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		compiled, err := yamlchart.LoadCompiled(args[0])
		if err != nil {
			fmt.Printf("Error loading chart: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.Generate(compiled, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
