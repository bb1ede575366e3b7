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

// --- list_labels ---

type listLabelsInput struct{}

type listLabelsOutput struct {
	Labels []Label `json:"labels"`
}

func registerListLabels(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "list_labels",
		Description: "List all labels in the Gmail account, system labels (INBOX, SENT, UNREAD, ...) first, then user labels.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input listLabelsInput) (*mcp.CallToolResult, listLabelsOutput, error) {
		var out listLabelsOutput

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		resp, err := gapi.Call(ctx, "listing labels", func() (*gmailapi.ListLabelsResponse, error) {
			return svc.Users.Labels.List("me").Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.Labels = make([]Label, 0, len(resp.Labels))
		for _, l := range resp.Labels {
			out.Labels = append(out.Labels, normalizeLabel(l))
		}
		sortLabels(out.Labels)

		var sb strings.Builder
		fmt.Fprintf(&sb, "Found %d labels:\n\n", len(out.Labels))
		for _, l := range out.Labels {
			fmt.Fprintf(&sb, "- %s (ID: %s, Type: %s)\n", l.Name, l.ID, l.Type)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, out, nil
	})
}

// --- get_label ---

type getLabelInput struct {
	LabelID string `json:"label_id" jsonschema:"Label ID (from list_labels)"`
}

func registerGetLabel(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "get_label",
		Description: "Get a Gmail label by ID, including message and thread counts.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input getLabelInput) (*mcp.CallToolResult, Label, error) {
		if input.LabelID == "" {
			return nil, Label{}, gapi.InvalidInput("label_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, Label{}, err
		}

		raw, err := gapi.Call(ctx, "getting label", func() (*gmailapi.Label, error) {
			return svc.Users.Labels.Get("me", input.LabelID).Context(ctx).Do()
		})
		if err != nil {
			return nil, Label{}, err
		}

		l := normalizeLabel(raw)
		text := fmt.Sprintf("Label: %s\nID: %s\nType: %s\nMessages: %d (%d unread)\nThreads: %d (%d unread)",
			l.Name, l.ID, l.Type, l.MessagesTotal, l.MessagesUnread, l.ThreadsTotal, l.ThreadsUnread)

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, l, nil
	})
}

// --- create_label ---

type createLabelInput struct {
	Name                  string `json:"name" jsonschema:"Label name. Use '/' to nest, e.g. 'Work/Receipts'"`
	LabelListVisibility   string `json:"label_list_visibility,omitempty" jsonschema:"labelShow, labelShowIfUnread, or labelHide (default labelShow)"`
	MessageListVisibility string `json:"message_list_visibility,omitempty" jsonschema:"show or hide (default show)"`
}

func registerCreateLabel(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "create_label",
		Description: "Create a new user label in the Gmail account.",
		Annotations: &mcp.ToolAnnotations{
			DestructiveHint: server.BoolPtr(false),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input createLabelInput) (*mcp.CallToolResult, Label, error) {
		if strings.TrimSpace(input.Name) == "" {
			return nil, Label{}, gapi.InvalidInput("name is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, Label{}, err
		}

		raw, err := gapi.Call(ctx, "creating label", func() (*gmailapi.Label, error) {
			return svc.Users.Labels.Create("me", &gmailapi.Label{
				Name:                  input.Name,
				LabelListVisibility:   input.LabelListVisibility,
				MessageListVisibility: input.MessageListVisibility,
			}).Context(ctx).Do()
		})
		if err != nil {
			return nil, Label{}, err
		}

		l := normalizeLabel(raw)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Label %q created with ID %s.", l.Name, l.ID)},
			},
		}, l, nil
	})
}

// --- delete_label ---

type deleteLabelInput struct {
	LabelID string `json:"label_id" jsonschema:"ID of the user label to delete"`
}

func registerDeleteLabel(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "delete_label",
		Description: "Delete a user label. The label is removed from all messages it was applied to; the messages themselves are not deleted. System labels cannot be deleted.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input deleteLabelInput) (*mcp.CallToolResult, any, error) {
		if input.LabelID == "" {
			return nil, nil, gapi.InvalidInput("label_id is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, err
		}

		err = gapi.Do(ctx, "deleting label", func() error {
			return svc.Users.Labels.Delete("me", input.LabelID).Context(ctx).Do()
		})
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Label %s deleted.", input.LabelID)},
			},
		}, nil, nil
	})
}
