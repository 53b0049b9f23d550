package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the groupcal application
var rootCmd = &cobra.Command{
	Use:   "groupcal",
	Short: "View and edit the calendar of a Microsoft 365 group",
	Long: `groupcal shows the shared calendar of a Microsoft 365 group and lets
members of an authorization group create, edit and delete its events.

It can run as:
  - An interactive terminal calendar (default)
  - One-shot commands for scripting (groupcal events ...)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

var flags globalFlags

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "groupcal version %s\n" .Version}}`)

	// Without a subcommand the terminal calendar is started.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "tui")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags.register(rootCmd)

	rootCmd.AddCommand(newTUICmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
