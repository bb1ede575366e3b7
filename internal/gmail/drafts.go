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

// --- create_draft ---

type createDraftInput struct {
	composeInput
	ReplyToMessageID string `json:"reply_to_message_id,omitempty" jsonschema:"Message ID to reply to (sets In-Reply-To and References headers, keeps thread)"`
}

type draftOutput struct {
	DraftID   string `json:"draft_id"`
	MessageID string `json:"message_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
}

func registerCreateDraft(srv *server.Server, mgr *auth.Manager) {
	desc := "Create a Gmail draft. The draft is saved but not sent. Use send_draft to send it later, update_draft to change it, or list_drafts to see all drafts." + srv.ReadDirsDescription()

	server.AddTool(srv, &mcp.Tool{
		Name:        "create_draft",
		Description: desc,
		Annotations: &mcp.ToolAnnotations{
			DestructiveHint: server.BoolPtr(false),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input createDraftInput) (*mcp.CallToolResult, draftOutput, error) {
		var out draftOutput

		if err := input.validate(); err != nil {
			return nil, out, err
		}
		atts, err := loadAttachments(srv.LocalFS(), input.Attachments)
		if err != nil {
			return nil, out, err
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		result, err := buildMessage(ctx, svc, input.composeInput, atts, input.ReplyToMessageID)
		if err != nil {
			return nil, out, err
		}

		draft, err := gapi.Call(ctx, "creating draft", func() (*gmailapi.Draft, error) {
			return svc.Users.Drafts.Create("me", &gmailapi.Draft{
				Message: &gmailapi.Message{
					Raw:      result.Raw,
					ThreadId: result.ThreadID,
				},
			}).Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.DraftID = draft.Id
		if draft.Message != nil {
			out.MessageID = draft.Message.Id
			out.ThreadID = draft.Message.ThreadId
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Draft created.\n\nDraft ID: %s\nTo: %s\nSubject: %s", draft.Id, input.To, input.Subject)},
			},
		}, out, nil
	})
}

// --- list_drafts ---

type listDraftsInput struct {
	MaxResults int64  `json:"max_results,omitempty" jsonschema:"Maximum number of drafts to return (default 10, max 500)"`
	PageToken  string `json:"page_token,omitempty" jsonschema:"Continuation token from a previous list_drafts page"`
}

type listDraftsOutput struct {
	Drafts        []Draft `json:"drafts"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

func registerListDrafts(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "list_drafts",
		Description: "List drafts in the Gmail account with their recipients and subjects.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input listDraftsInput) (*mcp.CallToolResult, listDraftsOutput, error) {
		var out listDraftsOutput

		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 10
		}
		if maxResults > 500 {
			maxResults = 500
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		resp, err := gapi.Call(ctx, "listing drafts", func() (*gmailapi.ListDraftsResponse, error) {
			call := svc.Users.Drafts.List("me").MaxResults(maxResults).Context(ctx)
			if input.PageToken != "" {
				call = call.PageToken(input.PageToken)
			}
			return call.Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.NextPageToken = resp.NextPageToken
		out.Drafts = make([]Draft, 0, len(resp.Drafts))

		var sb strings.Builder
		if len(resp.Drafts) == 0 {
			sb.WriteString("No drafts found.")
		} else {
			fmt.Fprintf(&sb, "Found %d drafts:\n\n", len(resp.Drafts))
		}

		for _, d := range resp.Drafts {
			detail, err := gapi.Call(ctx, "fetching draft summary", func() (*gmailapi.Draft, error) {
				return svc.Users.Drafts.Get("me", d.Id).Format("metadata").Context(ctx).Do()
			})
			if err != nil {
				fmt.Fprintf(&sb, "- Draft ID: %s (error fetching details: %v)\n", d.Id, err)
				continue
			}

			draft := Draft{ID: detail.Id}
			if detail.Message != nil {
				draft.Message = normalizeMessage(detail.Message)
			}
			out.Drafts = append(out.Drafts, draft)
			fmt.Fprintf(&sb, "- Draft ID: %s\n  To: %s\n  Subject: %s\n\n",
				draft.ID, draft.Message.Headers["To"], draft.Message.Headers["Subject"])
		}

		if out.NextPageToken != "" {
			fmt.Fprintf(&sb, "More results available. Pass page_token=%q to continue.\n", out.NextPageToken)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, out, nil
	})
}

// --- get_draft ---

type getDraftInput struct {
	DraftID string `json:"draft_id" jsonschema:"Draft ID (from list_drafts results)"`
}

func registerGetDraft(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "get_draft",
		Description: "Read the full content of a Gmail draft by ID.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input getDraftInput) (*mcp.CallToolResult, Draft, error) {
		if input.DraftID == "" {
			return nil, Draft{}, gapi.InvalidInput("draft_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, Draft{}, err
		}

		raw, err := gapi.Call(ctx, "getting draft", func() (*gmailapi.Draft, error) {
			return svc.Users.Drafts.Get("me", input.DraftID).Format("full").Context(ctx).Do()
		})
		if err != nil {
			return nil, Draft{}, err
		}

		draft := Draft{ID: raw.Id}
		if raw.Message != nil {
			draft.Message = normalizeMessage(raw.Message)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Draft ID: %s\n", draft.ID)
		for _, name := range []string{"To", "Cc", "Bcc", "Subject"} {
			if v := draft.Message.Headers[name]; v != "" {
				fmt.Fprintf(&sb, "%s: %s\n", name, v)
			}
		}
		sb.WriteString("\n")
		if draft.Message.Body != "" {
			sb.WriteString(draft.Message.Body)
		} else {
			sb.WriteString("(no text content)")
		}
		if len(draft.Message.Attachments) > 0 {
			sb.WriteString("\n\nAttachments:\n")
			for _, a := range draft.Message.Attachments {
				fmt.Fprintf(&sb, "  - %s (MIME: %s, Size: %d bytes)\n", a.Filename, a.MimeType, a.Size)
			}
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, draft, nil
	})
}

// --- update_draft ---

type updateDraftInput struct {
	DraftID string `json:"draft_id" jsonschema:"Draft ID to update"`
	composeInput
	ReplyToMessageID string `json:"reply_to_message_id,omitempty" jsonschema:"Message ID to reply to (sets In-Reply-To and References headers, keeps thread)"`
}

func registerUpdateDraft(srv *server.Server, mgr *auth.Manager) {
	desc := "Replace a Gmail draft's content. The draft keeps its ID; to, subject, body, and attachments are replaced wholesale." + srv.ReadDirsDescription()

	server.AddTool(srv, &mcp.Tool{
		Name:        "update_draft",
		Description: desc,
		Annotations: &mcp.ToolAnnotations{
			DestructiveHint: server.BoolPtr(false),
			IdempotentHint:  true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input updateDraftInput) (*mcp.CallToolResult, draftOutput, error) {
		var out draftOutput

		if input.DraftID == "" {
			return nil, out, gapi.InvalidInput("draft_id is required")
		}
		if err := input.validate(); err != nil {
			return nil, out, err
		}
		atts, err := loadAttachments(srv.LocalFS(), input.Attachments)
		if err != nil {
			return nil, out, err
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		result, err := buildMessage(ctx, svc, input.composeInput, atts, input.ReplyToMessageID)
		if err != nil {
			return nil, out, err
		}

		draft, err := gapi.Call(ctx, "updating draft", func() (*gmailapi.Draft, error) {
			return svc.Users.Drafts.Update("me", input.DraftID, &gmailapi.Draft{
				Message: &gmailapi.Message{
					Raw:      result.Raw,
					ThreadId: result.ThreadID,
				},
			}).Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.DraftID = draft.Id
		if draft.Message != nil {
			out.MessageID = draft.Message.Id
			out.ThreadID = draft.Message.ThreadId
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Draft %s updated.", draft.Id)},
			},
		}, out, nil
	})
}

// --- delete_draft ---

type deleteDraftInput struct {
	DraftID string `json:"draft_id" jsonschema:"Draft ID to delete"`
}

func registerDeleteDraft(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "delete_draft",
		Description: "Permanently delete a Gmail draft. The draft does not go to the trash.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input deleteDraftInput) (*mcp.CallToolResult, any, error) {
		if input.DraftID == "" {
			return nil, nil, gapi.InvalidInput("draft_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, err
		}

		err = gapi.Do(ctx, "deleting draft", func() error {
			return svc.Users.Drafts.Delete("me", input.DraftID).Context(ctx).Do()
		})
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Draft %s deleted.", input.DraftID)},
			},
		}, nil, nil
	})
}

// --- send_draft ---

type sendDraftInput struct {
	DraftID string `json:"draft_id" jsonschema:"Draft ID to send"`
}

func registerSendDraft(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "send_draft",
		Description: "Send an existing Gmail draft. The draft entity is consumed; the result is a regular sent message. Delivery is irreversible.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input sendDraftInput) (*mcp.CallToolResult, sendEmailOutput, error) {
		var out sendEmailOutput

		if input.DraftID == "" {
			return nil, out, gapi.InvalidInput("draft_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		sent, err := gapi.Call(ctx, "sending draft", func() (*gmailapi.Message, error) {
			return svc.Users.Drafts.Send("me", &gmailapi.Draft{Id: input.DraftID}).Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.MessageID = sent.Id
		out.ThreadID = sent.ThreadId

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Draft sent.\n\nMessage ID: %s\nThread ID: %s", sent.Id, sent.ThreadId)},
			},
		}, out, nil
	})
}
