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

// --- modify_labels ---

type modifyLabelsInput struct {
	MessageIDs   []string `json:"message_ids" jsonschema:"Message IDs to modify"`
	AddLabels    []string `json:"add_labels,omitempty" jsonschema:"Labels to add, by ID or by name (e.g. UNREAD, STARRED, or a user label name)"`
	RemoveLabels []string `json:"remove_labels,omitempty" jsonschema:"Labels to remove, by ID or by name"`
}

type modifyLabelsOutput struct {
	Modified int      `json:"modified"`
	LabelIDs []string `json:"label_ids,omitempty"`
}

func registerModifyLabels(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "modify_labels",
		Description: "Add and/or remove labels on one or more Gmail messages. Labels may be given by ID or by name; names are resolved against the mailbox's labels before anything is changed. Common uses: mark read/unread (UNREAD), star (STARRED), archive (remove INBOX).",
		Annotations: &mcp.ToolAnnotations{
			DestructiveHint: server.BoolPtr(false),
			IdempotentHint:  true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input modifyLabelsInput) (*mcp.CallToolResult, modifyLabelsOutput, error) {
		var out modifyLabelsOutput

		if len(input.MessageIDs) == 0 {
			return nil, out, gapi.InvalidInput("message_ids is required")
		}
		if len(input.AddLabels) == 0 && len(input.RemoveLabels) == 0 {
			return nil, out, gapi.InvalidInput("at least one of add_labels or remove_labels is required")
		}

		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, out, err
		}

		addIDs, err := resolveLabelRefs(ctx, svc, input.AddLabels)
		if err != nil {
			return nil, out, err
		}
		removeIDs, err := resolveLabelRefs(ctx, svc, input.RemoveLabels)
		if err != nil {
			return nil, out, err
		}

		if len(input.MessageIDs) == 1 {
			msg, err := gapi.Call(ctx, "modifying message labels", func() (*gmailapi.Message, error) {
				return svc.Users.Messages.Modify("me", input.MessageIDs[0], &gmailapi.ModifyMessageRequest{
					AddLabelIds:    addIDs,
					RemoveLabelIds: removeIDs,
				}).Context(ctx).Do()
			})
			if err != nil {
				return nil, out, err
			}
			out.Modified = 1
			out.LabelIDs = msg.LabelIds
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: fmt.Sprintf("Message %s modified. Labels now: %s",
						msg.Id, strings.Join(msg.LabelIds, ", "))},
				},
			}, out, nil
		}

		err = gapi.Do(ctx, "batch modifying message labels", func() error {
			return svc.Users.Messages.BatchModify("me", &gmailapi.BatchModifyMessagesRequest{
				Ids:            input.MessageIDs,
				AddLabelIds:    addIDs,
				RemoveLabelIds: removeIDs,
			}).Context(ctx).Do()
		})
		if err != nil {
			return nil, out, err
		}

		out.Modified = len(input.MessageIDs)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Modified labels on %d messages.", out.Modified)},
			},
		}, out, nil
	})
}

// resolveLabelRefs maps label references (IDs or names) to label IDs. An
// unknown reference fails as invalid input before any message is touched.
func resolveLabelRefs(ctx context.Context, svc *gmailapi.Service, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	resp, err := gapi.Call(ctx, "listing labels", func() (*gmailapi.ListLabelsResponse, error) {
		return svc.Users.Labels.List("me").Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(resp.Labels))
	byName := make(map[string]string, len(resp.Labels))
	for _, l := range resp.Labels {
		ids[l.Id] = true
		byName[strings.ToLower(l.Name)] = l.Id
	}

	resolved := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ids[ref] {
			resolved = append(resolved, ref)
			continue
		}
		if id, ok := byName[strings.ToLower(ref)]; ok {
			resolved = append(resolved, id)
			continue
		}
		return nil, gapi.InvalidInput("unknown label %q (not a label ID or name; use list_labels)", ref)
	}
	return resolved, nil
}
