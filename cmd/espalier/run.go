package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/yamlchart"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <chart.yaml>",
	Short: "Simulate a chart interactively",
	Long:  `Starts an interpreter for the chart with stub actions and guards, reads event names from stdin, and prints the active configuration after each event.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		if err := runSimulation(args[0], level); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runSimulation(path, level string) error {
	compiled, err := yamlchart.LoadCompiled(path)
	if err != nil {
		return err
	}

	interp := espalier.NewFromChart(compiled, simRegistry(compiled),
		espalier.WithLogger(logging.New(logging.ParseLevel(level))))

	ctx := context.Background()
	if err := interp.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("--- espalier: simulating chart %q ---\n", compiled.ID())
	fmt.Println("Type an event name to send it; 'states' to print the configuration; 'exit' to stop.")
	printConfiguration(interp.CurrentStates())

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		input := strings.TrimSpace(line)

		switch input {
		case "":
			continue
		case "exit", "quit":
			if err := interp.Stop(ctx); err != nil {
				return err
			}
			fmt.Println("Bye!")
			return nil
		case "states":
			printConfiguration(interp.CurrentStates())
			continue
		}

		if err := interp.Send(ctx, input); err != nil {
			fmt.Printf("  error: %v\n", err)
			continue
		}
		printConfiguration(interp.CurrentStates())
	}
	return interp.Stop(ctx)
}
