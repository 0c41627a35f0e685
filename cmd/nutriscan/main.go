package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via ldflags during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "nutriscan",
		Short:         "Nutrition analysis for dishes from a photo or a description",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (environment variables still apply)")

	rootCmd.AddCommand(
		newServeCmd(&configFile),
		newAnalyzeCmd(&configFile),
		newHistoryCmd(&configFile),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nutriscan %s (%s)\n", version, commit)
		},
	}
}
