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

// --- list_messages ---

type listMessagesInput struct {
	Query      string   `json:"query,omitempty" jsonschema:"Gmail search query (same syntax as the Gmail search bar)"`
	LabelIDs   []string `json:"label_ids,omitempty" jsonschema:"Only return messages with all of these label IDs"`
	MaxResults int64    `json:"max_results,omitempty" jsonschema:"Maximum number of results (default 10, max 500)"`
	PageToken  string   `json:"page_token,omitempty" jsonschema:"Continuation token from a previous list_messages page"`
}

type listMessagesOutput struct {
	Messages           []Message `json:"messages"`
	NextPageToken      string    `json:"next_page_token,omitempty"`
	ResultSizeEstimate int64     `json:"result_size_estimate,omitempty"`
}

func registerListMessages(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "list_messages",
		Description: "List Gmail messages. Supports query filtering with Gmail search syntax, label filtering, and pagination via page_token. Returns message summaries; use get_message for full content.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input listMessagesInput) (*mcp.CallToolResult, listMessagesOutput, error) {
		var out listMessagesOutput

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

		resp, err := gapi.Call(ctx, "listing messages", func() (*gmailapi.ListMessagesResponse, error) {
			call := svc.Users.Messages.List("me").MaxResults(maxResults).Context(ctx)
			if input.Query != "" {
				call = call.Q(input.Query)
			}
			if len(input.LabelIDs) > 0 {
				call = call.LabelIds(input.LabelIDs...)
			}
			if input.PageToken != "" {
				call = call.PageToken(input.PageToken)
			}
			return call.Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.NextPageToken = resp.NextPageToken
		out.ResultSizeEstimate = resp.ResultSizeEstimate
		out.Messages = make([]Message, 0, len(resp.Messages))

		var sb strings.Builder
		if len(resp.Messages) == 0 {
			sb.WriteString("No messages found.")
		} else {
			fmt.Fprintf(&sb, "Found %d messages (estimated total: %d):\n\n", len(resp.Messages), resp.ResultSizeEstimate)
		}

		for _, msg := range resp.Messages {
			detail, err := gapi.Call(ctx, "fetching message summary", func() (*gmailapi.Message, error) {
				return svc.Users.Messages.Get("me", msg.Id).
					Format("metadata").
					MetadataHeaders("From", "To", "Subject", "Date").
					Context(ctx).
					Do()
			})
			if err != nil {
				fmt.Fprintf(&sb, "- Message ID: %s (error fetching details: %v)\n", msg.Id, err)
				continue
			}

			m := normalizeMessage(detail)
			out.Messages = append(out.Messages, m)
			fmt.Fprintf(&sb, "- Message ID: %s\n  From: %s\n  Subject: %s\n  Date: %s\n  Snippet: %s\n\n",
				m.ID, m.Headers["From"], m.Headers["Subject"], m.Headers["Date"], m.Snippet)
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

// --- get_message ---

type getMessageInput struct {
	MessageID string `json:"message_id" jsonschema:"Gmail message ID (from list_messages results)"`
}

func registerGetMessage(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "get_message",
		Description: "Read the full content of a Gmail message by ID. Returns headers, body text, labels, and attachment list. Use get_attachment to download attachments.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input getMessageInput) (*mcp.CallToolResult, Message, error) {
		if input.MessageID == "" {
			return nil, Message{}, gapi.InvalidInput("message_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, Message{}, err
		}

		msg, err := gapi.Call(ctx, "getting message", func() (*gmailapi.Message, error) {
			return svc.Users.Messages.Get("me", input.MessageID).Format("full").Context(ctx).Do()
		})
		if err != nil {
			return nil, Message{}, err
		}

		m := normalizeMessage(msg)

		var sb strings.Builder
		fmt.Fprintf(&sb, "Message ID: %s\nThread ID: %s\n", m.ID, m.ThreadID)
		for _, name := range []string{"From", "To", "Cc", "Bcc", "Subject", "Date", "Reply-To"} {
			if v := m.Headers[name]; v != "" {
				fmt.Fprintf(&sb, "%s: %s\n", name, v)
			}
		}
		if len(m.LabelIDs) > 0 {
			fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(m.LabelIDs, ", "))
		}
		sb.WriteString("\n")

		if m.Body != "" {
			sb.WriteString(m.Body)
		} else {
			sb.WriteString("(no text content)")
		}

		if len(m.Attachments) > 0 {
			sb.WriteString("\n\nAttachments:\n")
			for _, a := range m.Attachments {
				fmt.Fprintf(&sb, "  - %s (MIME: %s, Size: %d bytes, Attachment ID: %s)\n",
					a.Filename, a.MimeType, a.Size, a.AttachmentID)
			}
			sb.WriteString("\nUse get_attachment with the message ID and attachment ID to download.")
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, m, nil
	})
}

// --- send_email ---

type sendEmailInput struct {
	composeInput
	ReplyToMessageID string `json:"reply_to_message_id,omitempty" jsonschema:"Message ID to reply to (sets In-Reply-To and References headers, keeps thread)"`
}

type sendEmailOutput struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id,omitempty"`
}

func registerSendEmail(srv *server.Server, mgr *auth.Manager) {
	desc := "Send an email via Gmail. Supports To, CC, BCC, local file attachments, and replying to existing messages. Delivery is irreversible." + srv.ReadDirsDescription()

	server.AddTool(srv, &mcp.Tool{
		Name:        "send_email",
		Description: desc,
		Annotations: &mcp.ToolAnnotations{
			DestructiveHint: server.BoolPtr(false),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input sendEmailInput) (*mcp.CallToolResult, sendEmailOutput, error) {
		var out sendEmailOutput

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

		sent, err := gapi.Call(ctx, "sending message", func() (*gmailapi.Message, error) {
			return svc.Users.Messages.Send("me", &gmailapi.Message{
				Raw:      result.Raw,
				ThreadId: result.ThreadID,
			}).Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.MessageID = sent.Id
		out.ThreadID = sent.ThreadId

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Message sent.\n\nMessage ID: %s\nThread ID: %s", sent.Id, sent.ThreadId)},
			},
		}, out, nil
	})
}

// --- delete_message ---

type deleteMessageInput struct {
	MessageID string `json:"message_id" jsonschema:"Gmail message ID to delete"`
	Permanent bool   `json:"permanent,omitempty" jsonschema:"Permanently delete, bypassing the trash. Irreversible. Default is move to trash (recoverable for 30 days with untrash_message)."`
}

func registerDeleteMessage(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "delete_message",
		Description: "Delete a Gmail message. By default the message is moved to the trash and can be restored with untrash_message for 30 days. Set permanent=true to bypass the trash and delete irreversibly.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input deleteMessageInput) (*mcp.CallToolResult, any, error) {
		if input.MessageID == "" {
			return nil, nil, gapi.InvalidInput("message_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, err
		}

		if input.Permanent {
			err := gapi.Do(ctx, "deleting message", func() error {
				return svc.Users.Messages.Delete("me", input.MessageID).Context(ctx).Do()
			})
			if err != nil {
				return nil, nil, err
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: fmt.Sprintf("Message %s permanently deleted.", input.MessageID)},
				},
			}, nil, nil
		}

		msg, err := gapi.Call(ctx, "trashing message", func() (*gmailapi.Message, error) {
			return svc.Users.Messages.Trash("me", input.MessageID).Context(ctx).Do()
		})
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Message %s moved to trash.", msg.Id)},
			},
		}, nil, nil
	})
}

// --- untrash_message ---

type untrashMessageInput struct {
	MessageID string `json:"message_id" jsonschema:"Gmail message ID to restore from the trash"`
}

func registerUntrashMessage(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "untrash_message",
		Description: "Restore a Gmail message from the trash.",
		Annotations: &mcp.ToolAnnotations{
			DestructiveHint: server.BoolPtr(false),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input untrashMessageInput) (*mcp.CallToolResult, any, error) {
		if input.MessageID == "" {
			return nil, nil, gapi.InvalidInput("message_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, err
		}

		msg, err := gapi.Call(ctx, "untrashing message", func() (*gmailapi.Message, error) {
			return svc.Users.Messages.Untrash("me", input.MessageID).Context(ctx).Do()
		})
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Message %s restored from trash.", msg.Id)},
			},
		}, nil, nil
	})
}

// --- count_messages ---

type countMessagesInput struct {
	Query string `json:"query,omitempty" jsonschema:"Gmail search query to count matches for (empty counts the whole mailbox estimate)"`
}

type countMessagesOutput struct {
	Estimate int64 `json:"estimate"`
}

func registerCountMessages(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "count_messages",
		Description: "Estimate how many messages match a Gmail search query.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input countMessagesInput) (*mcp.CallToolResult, countMessagesOutput, error) {
		var out countMessagesOutput

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		resp, err := gapi.Call(ctx, "counting messages", func() (*gmailapi.ListMessagesResponse, error) {
			call := svc.Users.Messages.List("me").MaxResults(1).Context(ctx)
			if input.Query != "" {
				call = call.Q(input.Query)
			}
			return call.Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.Estimate = resp.ResultSizeEstimate

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Estimated matching messages: %d", out.Estimate)},
			},
		}, out, nil
	})
}
