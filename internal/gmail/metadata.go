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

// --- extract_metadata ---

type extractMetadataInput struct {
	MessageID string `json:"message_id" jsonschema:"Gmail message ID to extract metadata from"`
}

type extractMetadataOutput struct {
	ID           string            `json:"id"`
	ThreadID     string            `json:"thread_id,omitempty"`
	LabelIDs     []string          `json:"label_ids,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	From         []Party           `json:"from,omitempty"`
	To           []Party           `json:"to,omitempty"`
	Cc           []Party           `json:"cc,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	Date         string            `json:"date,omitempty"`
	Snippet      string            `json:"snippet,omitempty"`
	InternalDate int64             `json:"internal_date,omitempty"`
	Attachments  []Attachment      `json:"attachments,omitempty"`
}

func registerExtractMetadata(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "extract_metadata",
		Description: "Extract structured metadata from a Gmail message without its body: all headers, parsed From/To/Cc addresses, labels, attachment list, and timestamps.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input extractMetadataInput) (*mcp.CallToolResult, extractMetadataOutput, error) {
		var out extractMetadataOutput

		if input.MessageID == "" {
			return nil, out, gapi.InvalidInput("message_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		// Full format so attachment parts are visible; the body itself is
		// not included in the output.
		msg, err := gapi.Call(ctx, "getting message metadata", func() (*gmailapi.Message, error) {
			return svc.Users.Messages.Get("me", input.MessageID).Format("full").Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		headers := headerMap(msg.Payload)
		out = extractMetadataOutput{
			ID:           msg.Id,
			ThreadID:     msg.ThreadId,
			LabelIDs:     msg.LabelIds,
			Headers:      headers,
			From:         parseParties(headers["From"]),
			To:           parseParties(headers["To"]),
			Cc:           parseParties(headers["Cc"]),
			Subject:      headers["Subject"],
			Date:         headers["Date"],
			Snippet:      msg.Snippet,
			InternalDate: msg.InternalDate,
			Attachments:  listAttachments(msg.Payload),
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Message ID: %s\nThread ID: %s\n", out.ID, out.ThreadID)
		fmt.Fprintf(&sb, "Subject: %s\nDate: %s\n", out.Subject, out.Date)
		writeParties(&sb, "From", out.From)
		writeParties(&sb, "To", out.To)
		writeParties(&sb, "Cc", out.Cc)
		if len(out.LabelIDs) > 0 {
			fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(out.LabelIDs, ", "))
		}
		if len(out.Attachments) > 0 {
			fmt.Fprintf(&sb, "Attachments: %d\n", len(out.Attachments))
			for _, a := range out.Attachments {
				fmt.Fprintf(&sb, "  - %s (%s, %d bytes)\n", a.Filename, a.MimeType, a.Size)
			}
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, out, nil
	})
}

func writeParties(sb *strings.Builder, label string, parties []Party) {
	if len(parties) == 0 {
		return
	}
	parts := make([]string, 0, len(parties))
	for _, p := range parties {
		if p.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", p.Name, p.Address))
		} else {
			parts = append(parts, p.Address)
		}
	}
	fmt.Fprintf(sb, "%s: %s\n", label, strings.Join(parts, ", "))
}
