package gmail

import (
	"net/mail"
	"sort"

	gmailapi "google.golang.org/api/gmail/v1"
)

// Message is the normalized view of a Gmail message handed back to the
// caller: a stable schema independent of the raw API payload shape. It is an
// immutable snapshot; the Gmail service remains the system of record.
type Message struct {
	ID           string            `json:"id"`
	ThreadID     string            `json:"thread_id,omitempty"`
	LabelIDs     []string          `json:"label_ids,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Snippet      string            `json:"snippet,omitempty"`
	Body         string            `json:"body,omitempty"`
	Attachments  []Attachment      `json:"attachments,omitempty"`
	InternalDate int64             `json:"internal_date,omitempty"`
}

// Attachment describes an attachment on a message. The content itself is
// fetched separately by attachment ID.
type Attachment struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachment_id"`
}

// Draft is a message held server-side that has not been sent. Its ID is
// distinct from the embedded message's ID; sending the draft discards the
// draft entity and yields a regular message.
type Draft struct {
	ID      string  `json:"id"`
	Message Message `json:"message"`
}

// Label is a normalized Gmail label.
type Label struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Type                  string `json:"type,omitempty"`
	LabelListVisibility   string `json:"label_list_visibility,omitempty"`
	MessageListVisibility string `json:"message_list_visibility,omitempty"`
	MessagesTotal         int64  `json:"messages_total,omitempty"`
	MessagesUnread        int64  `json:"messages_unread,omitempty"`
	ThreadsTotal          int64  `json:"threads_total,omitempty"`
	ThreadsUnread         int64  `json:"threads_unread,omitempty"`
}

// Party is a parsed mailbox: display name plus address.
type Party struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// headerMap flattens payload headers into a name to value map. For repeated
// headers the last occurrence wins; the callers only read single-valued
// headers (From, Subject, Date).
func headerMap(payload *gmailapi.MessagePart) map[string]string {
	if payload == nil || len(payload.Headers) == 0 {
		return nil
	}
	headers := make(map[string]string, len(payload.Headers))
	for _, h := range payload.Headers {
		headers[h.Name] = h.Value
	}
	return headers
}

// normalizeMessage maps a raw API message onto the stable Message schema.
func normalizeMessage(msg *gmailapi.Message) Message {
	m := Message{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		LabelIDs:     msg.LabelIds,
		Headers:      headerMap(msg.Payload),
		Snippet:      msg.Snippet,
		Body:         extractBody(msg.Payload),
		Attachments:  listAttachments(msg.Payload),
		InternalDate: msg.InternalDate,
	}
	return m
}

// normalizeLabel maps a raw API label onto the stable Label schema.
func normalizeLabel(l *gmailapi.Label) Label {
	return Label{
		ID:                    l.Id,
		Name:                  l.Name,
		Type:                  l.Type,
		LabelListVisibility:   l.LabelListVisibility,
		MessageListVisibility: l.MessageListVisibility,
		MessagesTotal:         l.MessagesTotal,
		MessagesUnread:        l.MessagesUnread,
		ThreadsTotal:          l.ThreadsTotal,
		ThreadsUnread:         l.ThreadsUnread,
	}
}

// sortLabels orders labels for a stable listing: system labels first, then
// user labels, each sorted by name.
func sortLabels(labels []Label) {
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Type != labels[j].Type {
			return labels[i].Type < labels[j].Type
		}
		return labels[i].Name < labels[j].Name
	})
}

// parseParties parses an address-list header value ("A <a@x.com>, b@y.org")
// into name/address pairs. Unparseable values return nil.
func parseParties(headerValue string) []Party {
	if headerValue == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(headerValue)
	if err != nil {
		return nil
	}
	parties := make([]Party, 0, len(addrs))
	for _, a := range addrs {
		parties = append(parties, Party{Name: a.Name, Address: a.Address})
	}
	return parties
}
