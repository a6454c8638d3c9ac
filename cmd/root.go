// Package cmd implements the nautilus CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🐚"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "nautilus",
	Short: logo + " nautilus — MCP chat client",
	Long:  logo + " nautilus — a chat client that routes queries to MCP tool servers",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serversCmd)
	rootCmd.AddCommand(statusCmd)
}
