package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	host string
	raw  bool
)

var rootCmd = &cobra.Command{
	Use:   "phasekeeper-cli",
	Short: "A CLI to interact with the phasekeeper server",
	Long: `A command-line interface for previewing and committing phase progression
and managing rulesets on a running phasekeeper server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "The host address of the server")
	rootCmd.PersistentFlags().BoolVar(&raw, "raw", false, "Print the JSON response instead of tables")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'\n", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
