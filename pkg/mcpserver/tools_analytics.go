package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stackdesk/zendesk-mcp/pkg/zendesk"
)

func (s *Server) registerAnalyticsTools() {
	s.mcp.AddTool(
		mcp.NewTool("get_case_volume_analytics",
			mcp.WithDescription("Analyze case volume over a date range with zero-filled weekly, monthly, or daily buckets, per-technician/tag/requester/organization breakdowns, and optional response, resolution, channel, form, assignment, status transition, and satisfaction metrics"),
			mcp.WithString("start_date", mcp.Description("YYYY-MM-DD; defaults to roughly one year back")),
			mcp.WithString("end_date", mcp.Description("YYYY-MM-DD; defaults to today")),
			mcp.WithNumber("max_results", mcp.Description("Cap on tickets fetched for analysis")),
			mcp.WithArray("include_metrics", mcp.Description("Metric groups: response_times, resolution_times, channels, forms, assignments, status_transitions, satisfaction, or 'all'")),
			mcp.WithArray("group_by", mcp.Description("Extra breakdowns: technician, tags, requester, organization, or custom field IDs")),
			mcp.WithArray("filter_by_status", mcp.Description("Only include tickets in these statuses")),
			mcp.WithArray("filter_by_priority", mcp.Description("Only include tickets with these priorities")),
			mcp.WithArray("filter_by_tags", mcp.Description("Only include tickets carrying at least one of these tags")),
			mcp.WithString("time_bucket", mcp.Description("weekly, monthly, or daily"), mcp.DefaultString("weekly")),
		),
		s.handleGetCaseVolumeAnalytics,
	)

	s.mcp.AddTool(
		mcp.NewTool("incremental_tickets",
			mcp.WithDescription("Fetch tickets changed since a unix timestamp via the incremental export API. Progress is checkpointed so subsequent calls resume where the last one stopped."),
			mcp.WithNumber("start_time", mcp.Description("Unix timestamp to start from; the stored checkpoint is used when it is higher")),
			mcp.WithArray("include", mcp.Description("Sideloads to include (e.g. users, organizations, metric_sets)")),
			mcp.WithNumber("max_results", mcp.Description("Cap on returned records")),
		),
		s.handleIncrementalTickets,
	)

	s.mcp.AddTool(
		mcp.NewTool("incremental_ticket_events",
			mcp.WithDescription("Fetch ticket events since a unix timestamp via the incremental export API, with checkpoint resume"),
			mcp.WithNumber("start_time", mcp.Description("Unix timestamp to start from; the stored checkpoint is used when it is higher")),
			mcp.WithArray("include", mcp.Description("Sideloads to include (e.g. comment_events)")),
			mcp.WithNumber("max_results", mcp.Description("Cap on returned records")),
		),
		s.handleIncrementalTicketEvents,
	)

	s.mcp.AddTool(
		mcp.NewTool("incremental_ticket_metric_events",
			mcp.WithDescription("Fetch ticket metric events since a unix timestamp via the incremental export API, with checkpoint resume"),
			mcp.WithNumber("start_time", mcp.Description("Unix timestamp to start from; the stored checkpoint is used when it is higher")),
			mcp.WithNumber("max_results", mcp.Description("Cap on returned records")),
		),
		s.handleIncrementalTicketMetricEvents,
	)
}

func (s *Server) handleGetCaseVolumeAnalytics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rollup, err := s.client.GetCaseVolumeAnalytics(ctx, zendesk.CaseVolumeParams{
		StartDate:        req.GetString("start_date", ""),
		EndDate:          req.GetString("end_date", ""),
		MaxResults:       req.GetInt("max_results", 0),
		IncludeMetrics:   req.GetStringSlice("include_metrics", nil),
		GroupBy:          req.GetStringSlice("group_by", nil),
		FilterByStatus:   req.GetStringSlice("filter_by_status", nil),
		FilterByPriority: req.GetStringSlice("filter_by_priority", nil),
		FilterByTags:     req.GetStringSlice("filter_by_tags", nil),
		TimeBucket:       req.GetString("time_bucket", "weekly"),
	})
	if err != nil {
		return s.toolError("get_case_volume_analytics", err)
	}
	return jsonResult(rollup)
}

func (s *Server) handleIncrementalTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.IncrementalTickets(ctx,
		int64(req.GetInt("start_time", 0)),
		req.GetStringSlice("include", nil),
		req.GetInt("max_results", 0))
	if err != nil {
		return s.toolError("incremental_tickets", err)
	}
	return jsonResult(result)
}

func (s *Server) handleIncrementalTicketEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.IncrementalTicketEvents(ctx,
		int64(req.GetInt("start_time", 0)),
		req.GetStringSlice("include", nil),
		req.GetInt("max_results", 0))
	if err != nil {
		return s.toolError("incremental_ticket_events", err)
	}
	return jsonResult(result)
}

func (s *Server) handleIncrementalTicketMetricEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.IncrementalTicketMetricEvents(ctx,
		int64(req.GetInt("start_time", 0)),
		req.GetInt("max_results", 0))
	if err != nil {
		return s.toolError("incremental_ticket_metric_events", err)
	}
	return jsonResult(result)
}
