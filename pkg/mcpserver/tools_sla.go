package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stackdesk/zendesk-mcp/pkg/zendesk"
)

func (s *Server) registerSLATools() {
	s.mcp.AddTool(
		mcp.NewTool("get_sla_policies",
			mcp.WithDescription("Fetch all SLA policies configured on the account"),
		),
		s.handleGetSLAPolicies,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_sla_policy",
			mcp.WithDescription("Fetch a specific SLA policy by its ID"),
			mcp.WithNumber("policy_id", mcp.Required(), mcp.Description("The SLA policy ID")),
		),
		s.handleGetSLAPolicy,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_ticket_sla_status",
			mcp.WithDescription("Get SLA status and breach information for a ticket, derived from its metric events"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("The ticket ID to check")),
		),
		s.handleGetTicketSLAStatus,
	)

	s.mcp.AddTool(
		mcp.NewTool("search_tickets_with_sla_breaches",
			mcp.WithDescription("Search for tickets whose SLA has been breached, optionally narrowed by breach metric, status, and priority. Checks each candidate's metric events, so it can be slow on broad filters."),
			mcp.WithString("breach_type", mcp.Description("first_reply_time, next_reply_time, or resolution_time")),
			mcp.WithString("status", mcp.Description("Filter by ticket status")),
			mcp.WithString("priority", mcp.Description("Filter by ticket priority")),
			mcp.WithNumber("limit", mcp.Description("Maximum tickets to return"), mcp.DefaultNumber(100)),
		),
		s.handleSearchTicketsWithSLABreaches,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_tickets_at_risk_of_breach",
			mcp.WithDescription("Find tickets at risk of breaching their SLA that have not breached yet. Defaults to unsolved tickets."),
			mcp.WithString("status", mcp.Description("Filter by ticket status")),
			mcp.WithString("priority", mcp.Description("Filter by ticket priority")),
			mcp.WithNumber("limit", mcp.Description("Maximum tickets to return"), mcp.DefaultNumber(50)),
		),
		s.handleGetTicketsAtRiskOfBreach,
	)
}

func (s *Server) handleGetSLAPolicies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	policies, err := s.client.GetSLAPolicies(ctx)
	if err != nil {
		return s.toolError("get_sla_policies", err)
	}
	return jsonResult(policies)
}

func (s *Server) handleGetSLAPolicy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	policyID := req.GetInt("policy_id", 0)
	if policyID == 0 {
		return mcp.NewToolResultError("policy_id is required"), nil
	}
	policy, err := s.client.GetSLAPolicy(ctx, int64(policyID))
	if err != nil {
		return s.toolError("get_sla_policy", err)
	}
	return jsonResult(policy)
}

func (s *Server) handleGetTicketSLAStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetInt("ticket_id", 0)
	if ticketID == 0 {
		return mcp.NewToolResultError("ticket_id is required"), nil
	}
	status, err := s.client.GetTicketSLAStatus(ctx, int64(ticketID))
	if err != nil {
		return s.toolError("get_ticket_sla_status", err)
	}
	return jsonResult(status)
}

func (s *Server) handleSearchTicketsWithSLABreaches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.SearchTicketsWithSLABreaches(ctx, zendesk.SLABreachSearchParams{
		BreachType: req.GetString("breach_type", ""),
		Status:     req.GetString("status", ""),
		Priority:   req.GetString("priority", ""),
		Limit:      req.GetInt("limit", 100),
	})
	if err != nil {
		return s.toolError("search_tickets_with_sla_breaches", err)
	}
	return jsonResult(result)
}

func (s *Server) handleGetTicketsAtRiskOfBreach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.GetTicketsAtRiskOfBreach(ctx,
		req.GetString("status", ""), req.GetString("priority", ""), req.GetInt("limit", 50))
	if err != nil {
		return s.toolError("get_tickets_at_risk_of_breach", err)
	}
	return jsonResult(result)
}
