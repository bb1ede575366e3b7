package cmd

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/emailbot/gmail-mcp/internal/auth"
	"github.com/emailbot/gmail-mcp/internal/gmail"
	"github.com/emailbot/gmail-mcp/internal/localfs"
	"github.com/emailbot/gmail-mcp/internal/logging"
	"github.com/emailbot/gmail-mcp/internal/server"
)

// toolFilterFlags holds the CLI flags for tool filtering.
type toolFilterFlags struct {
	readOnly bool
	enable   []string
	disable  []string
}

// addToolFilterFlags adds --read-only, --enable, and --disable flags to a command.
func addToolFilterFlags(cmd *cobra.Command, f *toolFilterFlags) {
	cmd.Flags().BoolVar(&f.readOnly, "read-only", false, "only expose read-only tools (no mutations)")
	cmd.Flags().StringSliceVar(&f.enable, "enable", nil, "whitelist of tool names to expose (comma-separated)")
	cmd.Flags().StringSliceVar(&f.disable, "disable", nil, "blacklist of tool names to hide (comma-separated)")
	cmd.MarkFlagsMutuallyExclusive("enable", "disable")
}

// toToolFilter converts the CLI flags to a server.ToolFilter.
func (f *toolFilterFlags) toToolFilter() server.ToolFilter {
	return server.ToolFilter{
		ReadOnly: f.readOnly,
		Enable:   f.enable,
		Disable:  f.disable,
	}
}

// localFSFlags holds the CLI flags for local filesystem access.
type localFSFlags struct {
	readDirs  []string
	writeDirs []string
}

// addLocalFSFlags adds --allow-read-dir and --allow-write-dir flags to a command.
func addLocalFSFlags(cmd *cobra.Command, f *localFSFlags) {
	cmd.Flags().StringSliceVar(&f.readDirs, "allow-read-dir", nil, "local directories to allow reading attachments from (repeatable, comma-separated)")
	cmd.Flags().StringSliceVar(&f.writeDirs, "allow-write-dir", nil, "local directories to allow reading and writing (repeatable, comma-separated)")
}

// toLocalFS creates a localfs.FS from the CLI flags.
// Returns nil if no directories are configured (local file access disabled).
func (f *localFSFlags) toLocalFS() (*localfs.FS, error) {
	if len(f.readDirs) == 0 && len(f.writeDirs) == 0 {
		return nil, nil
	}
	var dirs []localfs.Dir
	for _, d := range f.readDirs {
		dirs = append(dirs, localfs.Dir{Path: d, Mode: localfs.ModeRead})
	}
	for _, d := range f.writeDirs {
		dirs = append(dirs, localfs.Dir{Path: d, Mode: localfs.ModeReadWrite})
	}
	return localfs.New(dirs)
}

func newServeCmd() *cobra.Command {
	var flags toolFilterFlags
	var fsFlags localFSFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Gmail MCP server (stdio)",
		Long: `Starts an MCP server over stdio with Gmail tools:
  send_email, create_draft, list_messages, get_message, delete_message,
  modify_labels, list_labels, read_thread, get_attachment,
  extract_metadata, and more.

The server runs headless: it refreshes the stored credential as needed
but never opens a browser. Run 'gmail-mcp auth login' first.

Use --read-only to expose only read-only tools.
Use --enable or --disable for granular tool control.
Use --allow-read-dir to enable local file attachments (opt-in).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()

			mgr, err := newManager(
				auth.WithScopes(gmail.AccountScopes()),
				auth.WithLogger(logging.Sub(log, "auth")),
			)
			if err != nil {
				return err
			}

			srv := server.NewServer(&mcp.Implementation{
				Name:    "gmail-mcp",
				Version: version,
			}, nil)
			srv.SetLogger(logging.Sub(log, "server"))

			lfs, err := fsFlags.toLocalFS()
			if err != nil {
				return err
			}
			if lfs != nil {
				defer lfs.Close()
				srv.SetLocalFS(lfs)
			}

			gmail.RegisterTools(srv, mgr)
			server.RegisterLocalFSTools(srv)

			if err := srv.ApplyFilter(flags.toToolFilter()); err != nil {
				return err
			}

			log.Info().Str("version", version).Str("state", mgr.State().String()).Msg("starting gmail mcp server on stdio")
			return srv.Run(context.Background(), &mcp.StdioTransport{})
		},
	}
	addToolFilterFlags(cmd, &flags)
	addLocalFSFlags(cmd, &fsFlags)
	return cmd
}
