package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slackbridge",
	Short: "slackbridge is a Slack adapter for a generic chat-bot runtime",
	Long: `slackbridge connects a generic chat-bot runtime to Slack. It receives
real-time events over a Socket Mode connection, normalizes them into the
runtime's message model (text, enter/leave, reactions, file shares) and
forwards replies and topic changes back through the Slack Web API.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
