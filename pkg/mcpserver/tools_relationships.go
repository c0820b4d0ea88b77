package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerRelationshipTools() {
	s.mcp.AddTool(
		mcp.NewTool("find_related_tickets",
			mcp.WithDescription("Find tickets related to a given ticket by subject similarity, same requester, or same organization"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The reference ticket ID")),
			mcp.WithNumber("limit", mcp.Description("Maximum related tickets to return"), mcp.DefaultNumber(100)),
		),
		s.handleFindRelatedTickets,
	)

	s.mcp.AddTool(
		mcp.NewTool("find_duplicate_tickets",
			mcp.WithDescription("Identify potential duplicate tickets: highly similar subjects from the same requester or organization"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The reference ticket ID")),
			mcp.WithNumber("limit", mcp.Description("Maximum duplicate candidates to return"), mcp.DefaultNumber(100)),
		),
		s.handleFindDuplicateTickets,
	)

	s.mcp.AddTool(
		mcp.NewTool("find_ticket_thread",
			mcp.WithDescription("Reconstruct the followup conversation thread around a ticket using via_id links"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The reference ticket ID")),
		),
		s.handleFindTicketThread,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_ticket_relationships",
			mcp.WithDescription("Get a ticket's parent, child, and sibling tickets via followup links"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The reference ticket ID")),
		),
		s.handleGetTicketRelationships,
	)
}

func (s *Server) handleFindRelatedTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	result, err := s.client.FindRelatedTickets(ctx, int64(ticketID), req.GetInt("limit", 100))
	if err != nil {
		return s.toolError("find_related_tickets", err)
	}
	return jsonResult(result)
}

func (s *Server) handleFindDuplicateTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	result, err := s.client.FindDuplicateTickets(ctx, int64(ticketID), req.GetInt("limit", 100))
	if err != nil {
		return s.toolError("find_duplicate_tickets", err)
	}
	return jsonResult(result)
}

func (s *Server) handleFindTicketThread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	result, err := s.client.FindTicketThread(ctx, int64(ticketID))
	if err != nil {
		return s.toolError("find_ticket_thread", err)
	}
	return jsonResult(result)
}

func (s *Server) handleGetTicketRelationships(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	result, err := s.client.GetTicketRelationships(ctx, int64(ticketID))
	if err != nil {
		return s.toolError("get_ticket_relationships", err)
	}
	return jsonResult(result)
}
