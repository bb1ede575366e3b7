package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emailbot/gmail-mcp/internal/auth"
	"github.com/emailbot/gmail-mcp/internal/gmail"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Gmail account authorization",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthStatusCmd(),
		newAuthRevokeCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var scopes []string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize a Gmail account via OAuth browser flow",
		Long: `Runs the OAuth consent flow and stores the resulting token.

Requires credentials.json from Google Cloud Console at the default
path (~/.config/gmail-mcp/credentials.json) or via --credentials.

By default the granular Gmail scopes (read, modify, send, compose,
labels, basic settings) are requested. Use --scopes to limit them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			requested := gmail.AccountScopes()
			if len(scopes) > 0 {
				requested = scopes
			}

			mgr, err := newManager(
				auth.WithScopes(requested),
				auth.WithAuthorizer(auth.BrowserFlow(cmd.OutOrStdout())),
				auth.WithLogger(newLogger()),
			)
			if err != nil {
				return err
			}

			if err := mgr.Login(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authorized. Token stored at %s\n", mgr.TokenFile())
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&scopes, "scopes", nil, "specific OAuth scopes to request (default: granular Gmail scopes)")

	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored credential's state",
		Long: `Reports the credential state without any network call:

  no-credential     - no token stored; run 'gmail-mcp auth login'
  awaiting-consent  - an authorization flow is in progress
  valid             - stored access token has not expired
  expired           - access token expired; it will be refreshed on next use`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State:       %s\n", mgr.State())
			fmt.Fprintf(out, "Config dir:  %s\n", mgr.ConfigDir())
			fmt.Fprintf(out, "Credentials: %s\n", mgr.CredentialsFile())
			fmt.Fprintf(out, "Token:       %s\n", mgr.TokenFile())
			return nil
		},
	}
}

func newAuthRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke",
		Short: "Delete the stored token",
		Long: `Removes the stored OAuth token. The client secret file is left in
place; run 'gmail-mcp auth login' to authorize again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			if err := mgr.Revoke(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stored token removed.")
			return nil
		},
	}
}
