package gmail

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/emailbot/gmail-mcp/internal/auth"
	"github.com/emailbot/gmail-mcp/internal/gapi"
	"github.com/emailbot/gmail-mcp/internal/server"
)

// --- get_profile ---

type getProfileInput struct{}

type getProfileOutput struct {
	EmailAddress  string `json:"email_address"`
	MessagesTotal int64  `json:"messages_total"`
	ThreadsTotal  int64  `json:"threads_total"`
	HistoryID     uint64 `json:"history_id"`
}

func registerGetProfile(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "get_profile",
		Description: "Get the authorized Gmail account's profile: email address, total message and thread counts, and current history ID.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input getProfileInput) (*mcp.CallToolResult, getProfileOutput, error) {
		var out getProfileOutput

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		profile, err := gapi.Call(ctx, "getting profile", func() (*gmailapi.Profile, error) {
			return svc.Users.GetProfile("me").Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		out = getProfileOutput{
			EmailAddress:  profile.EmailAddress,
			MessagesTotal: profile.MessagesTotal,
			ThreadsTotal:  profile.ThreadsTotal,
			HistoryID:     profile.HistoryId,
		}

		text := fmt.Sprintf("Email: %s\nTotal messages: %d\nTotal threads: %d\nHistory ID: %d",
			out.EmailAddress, out.MessagesTotal, out.ThreadsTotal, out.HistoryID)

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, out, nil
	})
}
