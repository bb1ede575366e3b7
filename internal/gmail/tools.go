// Package gmail implements the MCP tool surface over the Gmail API: every
// tool validates its input, acquires an authenticated client from the
// credential manager, issues the API calls through the retry boundary, and
// returns normalized entities.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/emailbot/gmail-mcp/internal/auth"
	"github.com/emailbot/gmail-mcp/internal/server"
)

// Scopes requested during authorization. Granular scopes rather than full
// mail.google.com access: read, modify, send, compose, labels, and basic
// settings cover every exposed tool.
var Scopes = []string{
	gmailapi.GmailReadonlyScope,
	gmailapi.GmailModifyScope,
	gmailapi.GmailSendScope,
	gmailapi.GmailComposeScope,
	gmailapi.GmailLabelsScope,
	gmailapi.GmailSettingsBasicScope,
}

// AccountScopes returns the scopes used by the Gmail tools.
func AccountScopes() []string {
	return Scopes
}

// RegisterTools registers all Gmail MCP tools on the given server.
func RegisterTools(srv *server.Server, mgr *auth.Manager) {
	// profile.go
	registerGetProfile(srv, mgr)
	// messages.go
	registerListMessages(srv, mgr)
	registerGetMessage(srv, mgr)
	registerSendEmail(srv, mgr)
	registerDeleteMessage(srv, mgr)
	registerUntrashMessage(srv, mgr)
	registerCountMessages(srv, mgr)
	// modify.go
	registerModifyLabels(srv, mgr)
	// threads.go
	registerReadThread(srv, mgr)
	// labels.go
	registerListLabels(srv, mgr)
	registerGetLabel(srv, mgr)
	registerCreateLabel(srv, mgr)
	registerDeleteLabel(srv, mgr)
	// attachments.go
	registerGetAttachment(srv, mgr)
	// drafts.go
	registerCreateDraft(srv, mgr)
	registerListDrafts(srv, mgr)
	registerGetDraft(srv, mgr)
	registerUpdateDraft(srv, mgr)
	registerDeleteDraft(srv, mgr)
	registerSendDraft(srv, mgr)
	// metadata.go
	registerExtractMetadata(srv, mgr)
}

// newService acquires an authenticated client and binds a Gmail service to
// it. The credential manager caches the client, so repeated calls with a
// valid credential perform no I/O.
func newService(ctx context.Context, mgr *auth.Manager) (*gmailapi.Service, error) {
	opt, err := mgr.ClientOption(ctx)
	if err != nil {
		return nil, err
	}
	return gmailapi.NewService(ctx, opt)
}

// extractBody recursively extracts text content from a message payload.
func extractBody(part *gmailapi.MessagePart) string {
	if part == nil {
		return ""
	}

	// Prefer text/plain, fall back to text/html.
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return "(error decoding body)"
		}
		return string(data)
	}

	// For multipart messages, recurse into parts.
	// Prefer text/plain over text/html.
	var htmlBody string
	for _, p := range part.Parts {
		if p.MimeType == "text/plain" {
			if body := extractBody(p); body != "" {
				return body
			}
		}
		if p.MimeType == "text/html" {
			htmlBody = extractBody(p)
		}
		// Recurse into nested multipart.
		if strings.HasPrefix(p.MimeType, "multipart/") {
			if body := extractBody(p); body != "" {
				return body
			}
		}
	}

	// Fall back to HTML if no plain text found.
	if htmlBody == "" && part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return "(error decoding body)"
		}
		return string(data)
	}

	return htmlBody
}

// mime2047Encode performs a simple RFC 2047 encoding for the Subject header.
func mime2047Encode(s string) string {
	// Check if encoding is needed (non-ASCII characters).
	for _, r := range s {
		if r > 127 {
			return fmt.Sprintf("=?UTF-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(s)))
		}
	}
	return s
}
