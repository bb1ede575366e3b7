// Package cmd implements the CLI commands for gmail-mcp.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/emailbot/gmail-mcp/internal/auth"
	"github.com/emailbot/gmail-mcp/internal/logging"
)

var (
	configDir       string
	credentialsFile string
	tokenFile       string
	logLevel        string
	version         = "dev"
)

// SetVersion sets the version string used in the CLI and MCP server.
func SetVersion(v string) {
	version = v
}

func newManager(opts ...auth.Option) (*auth.Manager, error) {
	return auth.NewManager(configDir, credentialsFile, tokenFile, opts...)
}

// newLogger builds the CLI logger. Logs go to stderr; stdout is reserved
// for the MCP stdio transport.
func newLogger() zerolog.Logger {
	return logging.New(os.Stderr, logLevel)
}

// envDefault returns the value of the environment variable when the flag
// was left empty.
func envDefault(flagValue, envName string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envName)
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gmail-mcp",
		Short: "Gmail MCP server",
		Long: `gmail-mcp provides a Model Context Protocol (MCP) server for Gmail:
sending mail, drafts, searching, reading, labeling, and attachments.

Setup:
  1. Download OAuth credentials from https://console.cloud.google.com/apis/credentials
  2. Place the file at ~/.config/gmail-mcp/credentials.json (or use --credentials)
  3. Authorize the account: gmail-mcp auth login
  4. Start the server: gmail-mcp serve`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Optional .env in the working directory; flags still win.
			_ = godotenv.Load()
			configDir = envDefault(configDir, "GMAIL_MCP_CONFIG_DIR")
			credentialsFile = envDefault(credentialsFile, "GMAIL_MCP_CREDENTIALS")
			tokenFile = envDefault(tokenFile, "GMAIL_MCP_TOKEN")
			if logLevel == "info" {
				if v := os.Getenv("GMAIL_MCP_LOG_LEVEL"); v != "" {
					logLevel = v
				}
			}
		},
	}

	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default: $XDG_CONFIG_HOME/gmail-mcp, env: GMAIL_MCP_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&credentialsFile, "credentials", "", "path to Google OAuth credentials.json (default: <config-dir>/credentials.json, env: GMAIL_MCP_CREDENTIALS)")
	root.PersistentFlags().StringVar(&tokenFile, "token", "", "path to the stored OAuth token (default: <config-dir>/token.json, env: GMAIL_MCP_TOKEN)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error (env: GMAIL_MCP_LOG_LEVEL)")

	root.AddCommand(
		newAuthCmd(),
		newServeCmd(),
	)

	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
