package gmail

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/emailbot/gmail-mcp/internal/auth"
	"github.com/emailbot/gmail-mcp/internal/gapi"
	"github.com/emailbot/gmail-mcp/internal/server"
)

// --- read_thread ---

type readThreadInput struct {
	ThreadID string `json:"thread_id" jsonschema:"Gmail thread ID (from list_messages or get_message results)"`
}

type readThreadOutput struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages"`
}

func registerReadThread(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "read_thread",
		Description: "Read an entire Gmail conversation thread: every message in chronological order with headers and body text.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input readThreadInput) (*mcp.CallToolResult, readThreadOutput, error) {
		var out readThreadOutput

		if input.ThreadID == "" {
			return nil, out, gapi.InvalidInput("thread_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		thread, err := gapi.Call(ctx, "getting thread", func() (*gmailapi.Thread, error) {
			return svc.Users.Threads.Get("me", input.ThreadID).Format("full").Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.ThreadID = thread.Id
		out.Messages = make([]Message, 0, len(thread.Messages))
		// The API returns thread messages in chronological order already.
		for _, raw := range thread.Messages {
			out.Messages = append(out.Messages, normalizeMessage(raw))
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Thread %s (%d messages):\n", out.ThreadID, len(out.Messages))
		for i, m := range out.Messages {
			fmt.Fprintf(&sb, "\n--- Message %d of %d (ID: %s) ---\n", i+1, len(out.Messages), m.ID)
			for _, name := range []string{"From", "To", "Subject", "Date"} {
				if v := m.Headers[name]; v != "" {
					fmt.Fprintf(&sb, "%s: %s\n", name, v)
				}
			}
			sb.WriteString("\n")
			if m.Body != "" {
				sb.WriteString(m.Body)
			} else {
				sb.WriteString("(no text content)")
			}
			sb.WriteString("\n")
			if len(m.Attachments) > 0 {
				fmt.Fprintf(&sb, "(%d attachments)\n", len(m.Attachments))
			}
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, out, nil
	})
}
