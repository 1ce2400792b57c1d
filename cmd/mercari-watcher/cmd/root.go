// Package cmd implements the CLI commands for mercari-watcher.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mercari-watcher",
	Short: "Watch Mercari for new listings and notify over LINE",
	Long: "A service that polls Mercari search results on a fixed interval, " +
		"detects listings updated within a sliding time window, and pushes " +
		"flex-message notifications to a LINE channel. A webhook endpoint " +
		"answers on-demand searches with user-specified windows.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (optional)")

	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
