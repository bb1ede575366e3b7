package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/emailbot/gmail-mcp/internal/auth"
	"github.com/emailbot/gmail-mcp/internal/gapi"
	"github.com/emailbot/gmail-mcp/internal/server"
)

// listAttachments recursively collects the attachments in a message payload.
// A part counts as an attachment when it carries a filename and an
// attachment ID.
func listAttachments(part *gmailapi.MessagePart) []Attachment {
	if part == nil {
		return nil
	}

	var result []Attachment
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		result = append(result, Attachment{
			Filename:     part.Filename,
			MimeType:     part.MimeType,
			Size:         part.Body.Size,
			AttachmentID: part.Body.AttachmentId,
		})
	}
	for _, p := range part.Parts {
		result = append(result, listAttachments(p)...)
	}
	return result
}

// --- get_attachment ---

// inlineTextLimit caps attachment content returned inline as text.
const inlineTextLimit = 256 * 1024

type getAttachmentInput struct {
	MessageID    string `json:"message_id" jsonschema:"Gmail message ID the attachment belongs to"`
	AttachmentID string `json:"attachment_id" jsonschema:"Attachment ID (from get_message results)"`
	SaveTo       string `json:"save_to,omitempty" jsonschema:"Local path to save the attachment to, relative to an allowed directory (requires --allow-write-dir). When omitted, content is returned inline."`
}

type getAttachmentOutput struct {
	Size    int64  `json:"size"`
	SavedTo string `json:"saved_to,omitempty"`
	// Content holds the attachment inline when save_to is not given:
	// the text itself for small text payloads, base64 otherwise.
	Content  string `json:"content,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

func registerGetAttachment(srv *server.Server, mgr *auth.Manager) {
	desc := "Download a message attachment. With save_to, the attachment is written to an allowed local directory; otherwise small text attachments are returned inline and binary content is returned base64-encoded." + srv.WriteDirsDescription()

	server.AddTool(srv, &mcp.Tool{
		Name:        "get_attachment",
		Description: desc,
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input getAttachmentInput) (*mcp.CallToolResult, getAttachmentOutput, error) {
		var out getAttachmentOutput

		if input.MessageID == "" {
			return nil, out, gapi.InvalidInput("message_id is required")
		}
		if input.AttachmentID == "" {
			return nil, out, gapi.InvalidInput("attachment_id is required")
		}
		lfs := srv.LocalFS()
		if input.SaveTo != "" && (lfs == nil || !lfs.Enabled()) {
			return nil, out, gapi.InvalidInput("save_to requires local file access (use --allow-write-dir)")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		body, err := gapi.Call(ctx, "getting attachment", func() (*gmailapi.MessagePartBody, error) {
			return svc.Users.Messages.Attachments.Get("me", input.MessageID, input.AttachmentID).Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		data, err := base64.URLEncoding.DecodeString(body.Data)
		if err != nil {
			return nil, out, fmt.Errorf("decoding attachment data: %w", err)
		}
		out.Size = int64(len(data))

		if input.SaveTo != "" {
			abs, err := lfs.WriteFile(input.SaveTo, data)
			if err != nil {
				return nil, out, gapi.InvalidInput("saving attachment to %q: %v", input.SaveTo, err)
			}
			out.SavedTo = abs
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: fmt.Sprintf("Attachment saved to %s (%d bytes).", abs, out.Size)},
				},
			}, out, nil
		}

		if len(data) <= inlineTextLimit && isTextContent(data) {
			out.Content = string(data)
			out.Encoding = "text"
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: out.Content},
				},
			}, out, nil
		}

		out.Content = base64.StdEncoding.EncodeToString(data)
		out.Encoding = "base64"
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Attachment is binary (%d bytes); content returned base64-encoded in structured output.", out.Size)},
			},
		}, out, nil
	})
}

// isTextContent reports whether data looks like text: valid UTF-8 with no
// NUL bytes in the first KB.
func isTextContent(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	probe := data
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	if strings.ContainsRune(string(probe), 0) {
		return false
	}
	return utf8.Valid(data)
}
