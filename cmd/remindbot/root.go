package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "remindbot",
	Short: "RemindBot - personal reminder scheduler for Telegram",
	Long: `RemindBot stores reminders that fire once or on a weekly pattern and
delivers them to Telegram chats. Without a subcommand it runs serve.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}
