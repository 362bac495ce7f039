// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prcounter",
	Short: "A CLI tool to count GitHub pull request activity per user.",
	Long: `prcounter mirrors pull requests, issue comments, reviews and review comments
matching the configured search queries into a local SQLite database, and counts
created, merged and commented pull requests and comments per user over a date range.
Pull requests that have not changed since the last run are not fetched again.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "etc/config.yaml", "Path to the configuration file")
}
