package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stackdesk/zendesk-mcp/pkg/zendesk"
)

func (s *Server) registerTicketTools() {
	s.mcp.AddTool(
		mcp.NewTool("get_ticket",
			mcp.WithDescription("Retrieve a Zendesk ticket by its ID"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The ID of the ticket to retrieve")),
		),
		s.handleGetTicket,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_tickets",
			mcp.WithDescription("Fetch the latest tickets with pagination support"),
			mcp.WithNumber("page", mcp.Description("Page number"), mcp.DefaultNumber(1)),
			mcp.WithNumber("per_page", mcp.Description("Number of tickets per page (max 100)"), mcp.DefaultNumber(25)),
			mcp.WithString("sort_by", mcp.Description("Field to sort by (created_at, updated_at, priority, status)")),
			mcp.WithString("sort_order", mcp.Description("Sort order (asc or desc)")),
		),
		s.handleGetTickets,
	)

	s.mcp.AddTool(
		mcp.NewTool("create_ticket",
			mcp.WithDescription("Create a new Zendesk ticket"),
			mcp.WithString("subject", mcp.Required(), mcp.Description("Ticket subject")),
			mcp.WithString("description", mcp.Required(), mcp.Description("Ticket description, posted as the first comment")),
			mcp.WithNumber("requester_id", mcp.Description("Requester user ID")),
			mcp.WithNumber("assignee_id", mcp.Description("Assignee user ID")),
			mcp.WithString("priority", mcp.Description("low, normal, high, urgent")),
			mcp.WithString("type", mcp.Description("problem, incident, question, task")),
			mcp.WithArray("tags", mcp.Description("Tags to set on the ticket")),
			mcp.WithArray("custom_fields", mcp.Description("Custom field objects with id and value")),
		),
		s.handleCreateTicket,
	)

	s.mcp.AddTool(
		mcp.NewTool("update_ticket",
			mcp.WithDescription("Update fields on an existing Zendesk ticket (e.g., status, priority, assignee_id)"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The ID of the ticket to update")),
			mcp.WithString("subject", mcp.Description("New subject")),
			mcp.WithString("status", mcp.Description("new, open, pending, on-hold, solved, closed")),
			mcp.WithString("priority", mcp.Description("low, normal, high, urgent")),
			mcp.WithString("type", mcp.Description("problem, incident, question, task")),
			mcp.WithNumber("assignee_id", mcp.Description("Assignee user ID")),
			mcp.WithNumber("requester_id", mcp.Description("Requester user ID")),
			mcp.WithArray("tags", mcp.Description("Replacement tag list")),
			mcp.WithArray("custom_fields", mcp.Description("Custom field objects with id and value")),
			mcp.WithString("due_at", mcp.Description("ISO8601 datetime")),
		),
		s.handleUpdateTicket,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_ticket_comments",
			mcp.WithDescription("Retrieve all comments for a Zendesk ticket by its ID"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The ID of the ticket to get comments for")),
			mcp.WithNumber("limit", mcp.Description("Maximum comments to return"), mcp.DefaultNumber(50)),
		),
		s.handleGetTicketComments,
	)

	s.mcp.AddTool(
		mcp.NewTool("create_ticket_comment",
			mcp.WithDescription("Create a new comment on an existing Zendesk ticket"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The ID of the ticket to comment on")),
			mcp.WithString("comment", mcp.Required(), mcp.Description("The comment text/content to add")),
			mcp.WithBoolean("public", mcp.Description("Whether the comment should be public"), mcp.DefaultBool(true)),
		),
		s.handleCreateTicketComment,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_ticket_bundle",
			mcp.WithDescription("Get a ticket with its comments, audit trail, actor context, and a chronological timeline in one call"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The ID of the ticket")),
			mcp.WithNumber("comment_limit", mcp.Description("Maximum comments to include"), mcp.DefaultNumber(50)),
			mcp.WithNumber("audit_limit", mcp.Description("Maximum audit entries to include"), mcp.DefaultNumber(100)),
		),
		s.handleGetTicketBundle,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_ticket_fields",
			mcp.WithDescription("Retrieve all ticket fields including custom fields with their definitions"),
		),
		s.handleGetTicketFields,
	)

	s.mcp.AddTool(
		mcp.NewTool("upload_attachment",
			mcp.WithDescription("Upload a file to Zendesk to get an attachment token. The token can be used when creating or updating tickets to attach files to comments. Tokens expire after 60 minutes; file size limit is 50 MB."),
			mcp.WithString("file_path", mcp.Required(), mcp.Description("Path to the file to upload (absolute or relative path)")),
		),
		s.handleUploadAttachment,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_ticket_attachments",
			mcp.WithDescription("List all attachments from all comments on a ticket, including filename, size, content type, and download URL"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The ID of the ticket to get attachments from")),
		),
		s.handleGetTicketAttachments,
	)

	s.mcp.AddTool(
		mcp.NewTool("download_attachment",
			mcp.WithDescription("Download an attachment by its ID. Returns the download URL, or saves the file when save_path is given."),
			mcp.WithNumber("attachment_id", mcp.Required(), mcp.Description("The ID of the attachment to download")),
			mcp.WithString("save_path", mcp.Description("Optional path to save the file. If not provided, only returns the download URL.")),
		),
		s.handleDownloadAttachment,
	)
}

func (s *Server) handleGetTicket(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	ticket, err := s.client.GetTicket(ctx, int64(ticketID))
	if err != nil {
		return s.toolError("get_ticket", err)
	}
	return jsonResult(ticket)
}

func (s *Server) handleGetTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.client.GetTickets(ctx,
		req.GetInt("page", 1),
		req.GetInt("per_page", 25),
		req.GetString("sort_by", ""),
		req.GetString("sort_order", ""),
	)
	if err != nil {
		return s.toolError("get_tickets", err)
	}
	return jsonResult(page)
}

func (s *Server) handleCreateTicket(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	draft := zendesk.TicketDraft{
		Subject:     req.GetString("subject", ""),
		Description: req.GetString("description", ""),
		RequesterID: optInt64(req, "requester_id"),
		AssigneeID:  optInt64(req, "assignee_id"),
		Priority:    req.GetString("priority", ""),
		Type:        req.GetString("type", ""),
		Tags:        req.GetStringSlice("tags", nil),
	}
	for _, cf := range customFieldArgs(req) {
		draft.CustomFields = append(draft.CustomFields, cf)
	}

	ticket, err := s.client.CreateTicket(ctx, draft)
	if err != nil {
		return s.toolError("create_ticket", err)
	}
	return jsonResult(map[string]any{
		"message": "Ticket created successfully",
		"ticket":  ticket,
	})
}

func (s *Server) handleUpdateTicket(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}

	fields := make(map[string]any)
	for _, key := range []string{"subject", "status", "priority", "type", "due_at"} {
		if v := req.GetString(key, ""); v != "" {
			fields[key] = v
		}
	}
	if id := optInt64(req, "assignee_id"); id != nil {
		fields["assignee_id"] = *id
	}
	if id := optInt64(req, "requester_id"); id != nil {
		fields["requester_id"] = *id
	}
	if tags := req.GetStringSlice("tags", nil); tags != nil {
		fields["tags"] = tags
	}
	if cfs := customFieldArgs(req); len(cfs) > 0 {
		fields["custom_fields"] = cfs
	}

	ticket, err := s.client.UpdateTicket(ctx, int64(ticketID), fields)
	if err != nil {
		return s.toolError("update_ticket", err)
	}
	return jsonResult(map[string]any{
		"message": "Ticket updated successfully",
		"ticket":  ticket,
	})
}

func (s *Server) handleGetTicketComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	comments, err := s.client.GetTicketComments(ctx, int64(ticketID), req.GetInt("limit", 50))
	if err != nil {
		return s.toolError("get_ticket_comments", err)
	}
	return jsonResult(comments)
}

func (s *Server) handleCreateTicketComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	comment, err := s.client.CreateTicketComment(ctx, int64(ticketID),
		req.GetString("comment", ""), req.GetBool("public", true))
	if err != nil {
		return s.toolError("create_ticket_comment", err)
	}
	return jsonResult(map[string]any{
		"message": "Comment created successfully",
		"comment": comment,
	})
}

func (s *Server) handleGetTicketBundle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	bundle, err := s.client.GetTicketBundle(ctx, int64(ticketID),
		req.GetInt("comment_limit", 50), req.GetInt("audit_limit", 100))
	if err != nil {
		return s.toolError("get_ticket_bundle", err)
	}
	return jsonResult(bundle)
}

func (s *Server) handleGetTicketFields(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalog, err := s.client.GetTicketFields(ctx)
	if err != nil {
		return s.toolError("get_ticket_fields", err)
	}
	return jsonResult(catalog)
}

func (s *Server) handleUploadAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath := req.GetString("file_path", "")
	if filePath == "" {
		return mcp.NewToolResultError("file_path is required"), nil
	}
	upload, err := s.client.UploadAttachment(ctx, filePath)
	if err != nil {
		return s.toolError("upload_attachment", err)
	}
	return jsonResult(upload)
}

func (s *Server) handleGetTicketAttachments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	attachments, err := s.client.GetTicketAttachments(ctx, int64(ticketID))
	if err != nil {
		return s.toolError("get_ticket_attachments", err)
	}
	return jsonResult(attachments)
}

func (s *Server) handleDownloadAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	attachmentID := req.GetInt("attachment_id", 0)
	if attachmentID == 0 {
		return mcp.NewToolResultError("attachment_id is required"), nil
	}
	result, err := s.client.DownloadAttachment(ctx, int64(attachmentID), req.GetString("save_path", ""))
	if err != nil {
		return s.toolError("download_attachment", err)
	}
	return jsonResult(result)
}

// customFieldArgs decodes the custom_fields argument: an array of
// objects with numeric id and arbitrary value.
func customFieldArgs(req mcp.CallToolRequest) []zendesk.CustomField {
	raw, ok := req.GetArguments()["custom_fields"].([]any)
	if !ok {
		return nil
	}
	fields := make([]zendesk.CustomField, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := obj["id"].(float64)
		if !ok {
			continue
		}
		fields = append(fields, zendesk.CustomField{ID: int64(id), Value: obj["value"]})
	}
	return fields
}
