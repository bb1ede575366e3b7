package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/emailbot/gmail-mcp/internal/gapi"
	"github.com/emailbot/gmail-mcp/internal/localfs"
)

// composeInput holds the common fields for composing an email message.
type composeInput struct {
	To          string   `json:"to" jsonschema:"Recipient email addresses (comma-separated)"`
	Subject     string   `json:"subject" jsonschema:"Email subject line"`
	Body        string   `json:"body" jsonschema:"Email body (plain text)"`
	Cc          string   `json:"cc,omitempty" jsonschema:"CC recipients (comma-separated email addresses)"`
	Bcc         string   `json:"bcc,omitempty" jsonschema:"BCC recipients (comma-separated email addresses)"`
	Attachments []string `json:"attachments,omitempty" jsonschema:"Local file paths to attach (relative to an allowed directory, requires --allow-read-dir)"`
}

// validate checks recipients syntactically. It runs before any network call
// so malformed input never causes a partial send.
func (in *composeInput) validate() error {
	if strings.TrimSpace(in.To) == "" {
		return gapi.InvalidInput("to is required")
	}
	fields := []struct{ name, value string }{
		{"to", in.To},
		{"cc", in.Cc},
		{"bcc", in.Bcc},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := mail.ParseAddressList(f.value); err != nil {
			return gapi.InvalidInput("invalid %s address list %q: %v", f.name, f.value, err)
		}
	}
	return nil
}

// attachmentFile is a resolved attachment: content read from an allowed
// local directory, ready for MIME embedding.
type attachmentFile struct {
	filename string
	mimeType string
	data     []byte
}

// loadAttachments reads attachment paths through the local filesystem
// allowlist. Missing or unreadable paths fail as invalid input before any
// network call.
func loadAttachments(lfs *localfs.FS, paths []string) ([]attachmentFile, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if lfs == nil || !lfs.Enabled() {
		return nil, gapi.InvalidInput("attachments require local file access (use --allow-read-dir)")
	}

	files := make([]attachmentFile, 0, len(paths))
	for _, p := range paths {
		data, _, err := lfs.ReadFile(p)
		if err != nil {
			return nil, gapi.InvalidInput("attachment %q: %v", p, err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(p))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		files = append(files, attachmentFile{
			filename: filepath.Base(p),
			mimeType: mimeType,
			data:     data,
		})
	}
	return files, nil
}

// composeResult holds the result of building an email message.
type composeResult struct {
	// Raw is the base64url-encoded RFC 2822 message.
	Raw string
	// ThreadID is set when replying to an existing message.
	ThreadID string
}

// buildMessage builds an RFC 2822 message from the compose input, as a
// single text/plain part or as multipart/mixed when attachments are present.
// If replyToMsgID is non-empty, the original message is fetched to set
// In-Reply-To/References headers and resolve the thread ID.
func buildMessage(ctx context.Context, svc *gmailapi.Service, input composeInput, atts []attachmentFile, replyToMsgID string) (*composeResult, error) {
	var raw strings.Builder
	fmt.Fprintf(&raw, "To: %s\r\n", input.To)
	if input.Cc != "" {
		fmt.Fprintf(&raw, "Cc: %s\r\n", input.Cc)
	}
	if input.Bcc != "" {
		fmt.Fprintf(&raw, "Bcc: %s\r\n", input.Bcc)
	}
	fmt.Fprintf(&raw, "Subject: %s\r\n", mime2047Encode(input.Subject))

	var threadID string

	if replyToMsgID != "" {
		origMsg, err := gapi.Call(ctx, "fetching reply-to message", func() (*gmailapi.Message, error) {
			return svc.Users.Messages.Get("me", replyToMsgID).
				Format("metadata").
				MetadataHeaders("Message-Id").
				Context(ctx).
				Do()
		})
		if err != nil {
			return nil, err
		}
		if origMsg.Payload != nil {
			for _, h := range origMsg.Payload.Headers {
				if h.Name == "Message-Id" {
					fmt.Fprintf(&raw, "In-Reply-To: %s\r\n", h.Value)
					fmt.Fprintf(&raw, "References: %s\r\n", h.Value)
				}
			}
		}
		threadID = origMsg.ThreadId
	}

	if len(atts) == 0 {
		raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		raw.WriteString("\r\n")
		raw.WriteString(input.Body)
	} else {
		writeMultipart(&raw, input.Body, atts)
	}

	return &composeResult{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw.String())),
		ThreadID: threadID,
	}, nil
}

// multipartBoundary returns a random boundary for one message. The text part
// is written raw, so the boundary must be unguessable: a fixed value could
// appear in the body and break the part framing.
func multipartBoundary() string {
	return "=_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// writeMultipart appends a multipart/mixed body: the text part first, then
// each attachment base64-encoded with a content-disposition filename.
func writeMultipart(raw *strings.Builder, body string, atts []attachmentFile) {
	boundary := multipartBoundary()

	raw.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(raw, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary)
	raw.WriteString("\r\n")

	fmt.Fprintf(raw, "--%s\r\n", boundary)
	raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	raw.WriteString("\r\n")
	raw.WriteString(body)
	raw.WriteString("\r\n")

	for _, att := range atts {
		fmt.Fprintf(raw, "--%s\r\n", boundary)
		fmt.Fprintf(raw, "Content-Type: %s\r\n", att.mimeType)
		raw.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(raw, "Content-Disposition: attachment; filename=\"%s\"\r\n", att.filename)
		raw.WriteString("\r\n")
		writeBase64Wrapped(raw, att.data)
	}
	fmt.Fprintf(raw, "--%s--\r\n", boundary)
}

// writeBase64Wrapped writes base64 content in 76-column lines per RFC 2045.
func writeBase64Wrapped(raw *strings.Builder, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	const lineLen = 76
	for len(encoded) > 0 {
		n := lineLen
		if n > len(encoded) {
			n = len(encoded)
		}
		raw.WriteString(encoded[:n])
		raw.WriteString("\r\n")
		encoded = encoded[n:]
	}
}
