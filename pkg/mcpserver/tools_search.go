package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stackdesk/zendesk-mcp/pkg/zendesk"
)

const searchSyntaxHelp = "Query syntax examples: 'status:open', 'priority:high status:open', " +
	"'created>2024-01-01', 'tags:bug tags:urgent', 'assignee:email@example.com', 'assignee:none', " +
	"'subject:login*', 'status:pending -tags:spam', 'organization:\"Company Name\"'. " +
	"Operators: : (equals), > (greater), < (less), >=, <=, - (exclude), * (wildcard)"

func (s *Server) registerSearchTools() {
	s.mcp.AddTool(
		mcp.NewTool("search_tickets",
			mcp.WithDescription("Search for tickets using Zendesk's query syntax. Returns up to 1000 results (API limit). "+searchSyntaxHelp),
			mcp.WithString("query", mcp.Required(), mcp.Description("Zendesk search query string using the supported syntax")),
			mcp.WithString("sort_by", mcp.Description("Field to sort by: updated_at, created_at, priority, status, or ticket_type")),
			mcp.WithString("sort_order", mcp.Description("Sort order: asc or desc")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results to return (default 100, max 1000)"), mcp.DefaultNumber(100)),
		),
		s.handleSearchTickets,
	)

	s.mcp.AddTool(
		mcp.NewTool("search_tickets_export",
			mcp.WithDescription("Search for tickets using the export API for unlimited results (no 1000 limit). WARNING: can return a very large number of tickets and may take significant time. Same query syntax as search_tickets; sorting is applied client-side."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Zendesk search query string (same syntax as search_tickets)")),
			mcp.WithString("sort_by", mcp.Description("Field to sort by (updated_at, created_at, priority, status, ticket_type)")),
			mcp.WithString("sort_order", mcp.Description("Sort order (asc or desc)")),
			mcp.WithNumber("max_results", mcp.Description("Optional limit on results to return (default: unlimited)")),
		),
		s.handleSearchTicketsExport,
	)

	s.mcp.AddTool(
		mcp.NewTool("search_tickets_enhanced",
			mcp.WithDescription("Search tickets with client-side regex, fuzzy, and proximity filtering layered on top of a base query"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Base Zendesk search query")),
			mcp.WithString("regex_pattern", mcp.Description("Case-insensitive regex matched against subject and description")),
			mcp.WithString("fuzzy_term", mcp.Description("Term matched approximately against ticket subjects")),
			mcp.WithNumber("fuzzy_threshold", mcp.Description("Minimum similarity score 0-1"), mcp.DefaultNumber(0.7)),
			mcp.WithArray("proximity_terms", mcp.Description("Terms that must appear near each other")),
			mcp.WithNumber("proximity_distance", mcp.Description("Maximum word distance between proximity terms"), mcp.DefaultNumber(5)),
			mcp.WithString("sort_by", mcp.Description("Field to sort by")),
			mcp.WithString("sort_order", mcp.Description("asc or desc")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results"), mcp.DefaultNumber(100)),
		),
		s.handleSearchTicketsEnhanced,
	)

	s.mcp.AddTool(
		mcp.NewTool("build_search_query",
			mcp.WithDescription("Build a valid Zendesk search query string from structured filter parameters without executing it"),
			mcp.WithString("status", mcp.Description("Ticket status filter")),
			mcp.WithString("priority", mcp.Description("Ticket priority filter")),
			mcp.WithString("assignee", mcp.Description("Assignee email, ID, or 'none' for unassigned")),
			mcp.WithString("requester", mcp.Description("Requester email or ID")),
			mcp.WithString("organization", mcp.Description("Organization name or ID")),
			mcp.WithArray("tags", mcp.Description("Tags to require")),
			mcp.WithString("tags_logic", mcp.Description("AND or OR combination for tags"), mcp.DefaultString("AND")),
			mcp.WithArray("exclude_tags", mcp.Description("Tags to exclude")),
			mcp.WithString("created_after", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("created_before", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("updated_after", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("updated_before", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("solved_after", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("solved_before", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("due_after", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("due_before", mcp.Description("YYYY-MM-DD")),
			mcp.WithObject("custom_fields", mcp.Description("Map of custom field ID to required value")),
			mcp.WithString("subject_contains", mcp.Description("Text required in the subject")),
			mcp.WithString("description_contains", mcp.Description("Text required in the description")),
			mcp.WithString("comment_contains", mcp.Description("Text required in comments")),
		),
		s.handleBuildSearchQuery,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_search_statistics",
			mcp.WithDescription("Run a search and return aggregate statistics: counts by status, priority, channel, assignee, month, and resolution times"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Zendesk search query to analyze")),
			mcp.WithNumber("limit", mcp.Description("Maximum tickets to analyze"), mcp.DefaultNumber(1000)),
		),
		s.handleGetSearchStatistics,
	)

	s.mcp.AddTool(
		mcp.NewTool("search_by_date_range",
			mcp.WithDescription("Search tickets by a custom or relative date range on created, updated, solved, or due dates"),
			mcp.WithString("date_field", mcp.Required(), mcp.Description("created, updated, solved, or due")),
			mcp.WithString("range_type", mcp.Required(), mcp.Description("custom or relative")),
			mcp.WithString("start_date", mcp.Description("YYYY-MM-DD (custom range)")),
			mcp.WithString("end_date", mcp.Description("YYYY-MM-DD (custom range)")),
			mcp.WithString("relative_period", mcp.Description("last_7_days, last_30_days, this_month, last_month, this_quarter, last_quarter")),
			mcp.WithString("sort_by", mcp.Description("Field to sort by")),
			mcp.WithString("sort_order", mcp.Description("asc or desc")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results"), mcp.DefaultNumber(100)),
		),
		s.handleSearchByDateRange,
	)

	s.mcp.AddTool(
		mcp.NewTool("search_by_tags_advanced",
			mcp.WithDescription("Search tickets by tag combinations with AND/OR logic and exclusions"),
			mcp.WithArray("include_tags", mcp.Required(), mcp.Description("Tags that must be present")),
			mcp.WithArray("exclude_tags", mcp.Description("Tags that must be absent")),
			mcp.WithString("tag_logic", mcp.Description("AND or OR combination for include_tags"), mcp.DefaultString("AND")),
			mcp.WithString("sort_by", mcp.Description("Field to sort by")),
			mcp.WithString("sort_order", mcp.Description("asc or desc")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results"), mcp.DefaultNumber(100)),
		),
		s.handleSearchByTagsAdvanced,
	)

	s.mcp.AddTool(
		mcp.NewTool("search_by_source",
			mcp.WithDescription("Search tickets by their creation channel (web, email, api, chat, voice, ...)"),
			mcp.WithString("channel", mcp.Required(), mcp.Description("Via channel to match")),
			mcp.WithString("sort_by", mcp.Description("Field to sort by")),
			mcp.WithString("sort_order", mcp.Description("asc or desc")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results"), mcp.DefaultNumber(100)),
		),
		s.handleSearchBySource,
	)

	s.mcp.AddTool(
		mcp.NewTool("batch_search_tickets",
			mcp.WithDescription("Run multiple searches concurrently and optionally deduplicate tickets across results"),
			mcp.WithArray("queries", mcp.Required(), mcp.Description("Search query strings to run")),
			mcp.WithBoolean("deduplicate", mcp.Description("Remove tickets that appear in more than one result"), mcp.DefaultBool(true)),
			mcp.WithString("sort_by", mcp.Description("Field to sort each result by")),
			mcp.WithString("sort_order", mcp.Description("asc or desc")),
			mcp.WithNumber("limit_per_query", mcp.Description("Maximum results per query"), mcp.DefaultNumber(100)),
		),
		s.handleBatchSearchTickets,
	)
}

func (s *Server) handleSearchTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	result, err := s.client.SearchTickets(ctx, query,
		req.GetString("sort_by", ""), req.GetString("sort_order", ""), req.GetInt("limit", 100))
	if err != nil {
		return s.toolError("search_tickets", err)
	}
	return jsonResult(result)
}

func (s *Server) handleSearchTicketsExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	result, err := s.client.SearchTicketsExport(ctx, query,
		req.GetString("sort_by", ""), req.GetString("sort_order", ""), req.GetInt("max_results", 0))
	if err != nil {
		return s.toolError("search_tickets_export", err)
	}
	return jsonResult(result)
}

func (s *Server) handleSearchTicketsEnhanced(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	result, err := s.client.SearchTicketsEnhanced(ctx, zendesk.EnhancedSearchParams{
		Query:             query,
		RegexPattern:      req.GetString("regex_pattern", ""),
		FuzzyTerm:         req.GetString("fuzzy_term", ""),
		FuzzyThreshold:    req.GetFloat("fuzzy_threshold", 0),
		ProximityTerms:    req.GetStringSlice("proximity_terms", nil),
		ProximityDistance: req.GetInt("proximity_distance", 0),
		SortBy:            req.GetString("sort_by", ""),
		SortOrder:         req.GetString("sort_order", ""),
		Limit:             req.GetInt("limit", 100),
	})
	if err != nil {
		return s.toolError("search_tickets_enhanced", err)
	}
	return jsonResult(result)
}

func (s *Server) handleBuildSearchQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := zendesk.QueryParams{
		Status:              req.GetString("status", ""),
		Priority:            req.GetString("priority", ""),
		Assignee:            req.GetString("assignee", ""),
		Requester:           req.GetString("requester", ""),
		Organization:        req.GetString("organization", ""),
		Tags:                req.GetStringSlice("tags", nil),
		TagsLogic:           req.GetString("tags_logic", ""),
		ExcludeTags:         req.GetStringSlice("exclude_tags", nil),
		CreatedAfter:        req.GetString("created_after", ""),
		CreatedBefore:       req.GetString("created_before", ""),
		UpdatedAfter:        req.GetString("updated_after", ""),
		UpdatedBefore:       req.GetString("updated_before", ""),
		SolvedAfter:         req.GetString("solved_after", ""),
		SolvedBefore:        req.GetString("solved_before", ""),
		DueAfter:            req.GetString("due_after", ""),
		DueBefore:           req.GetString("due_before", ""),
		SubjectContains:     req.GetString("subject_contains", ""),
		DescriptionContains: req.GetString("description_contains", ""),
		CommentContains:     req.GetString("comment_contains", ""),
	}
	if cfs, ok := req.GetArguments()["custom_fields"].(map[string]any); ok {
		params.CustomFields = cfs
	}
	return jsonResult(zendesk.BuildSearchQuery(params))
}

func (s *Server) handleGetSearchStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	stats, err := s.client.GetSearchStatistics(ctx, query, "", "", req.GetInt("limit", 1000))
	if err != nil {
		return s.toolError("get_search_statistics", err)
	}
	return jsonResult(stats)
}

func (s *Server) handleSearchByDateRange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.SearchByDateRange(ctx, zendesk.DateRangeParams{
		DateField:      req.GetString("date_field", ""),
		RangeType:      req.GetString("range_type", ""),
		StartDate:      req.GetString("start_date", ""),
		EndDate:        req.GetString("end_date", ""),
		RelativePeriod: req.GetString("relative_period", ""),
		SortBy:         req.GetString("sort_by", ""),
		SortOrder:      req.GetString("sort_order", ""),
		Limit:          req.GetInt("limit", 100),
	})
	if err != nil {
		return s.toolError("search_by_date_range", err)
	}
	return jsonResult(result)
}

func (s *Server) handleSearchByTagsAdvanced(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	includeTags := req.GetStringSlice("include_tags", nil)
	if len(includeTags) == 0 {
		return mcp.NewToolResultError("include_tags is required"), nil
	}
	result, err := s.client.SearchByTagsAdvanced(ctx, includeTags,
		req.GetStringSlice("exclude_tags", nil),
		req.GetString("tag_logic", ""),
		req.GetString("sort_by", ""), req.GetString("sort_order", ""), req.GetInt("limit", 100))
	if err != nil {
		return s.toolError("search_by_tags_advanced", err)
	}
	return jsonResult(result)
}

func (s *Server) handleSearchBySource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel := req.GetString("channel", "")
	if channel == "" {
		return mcp.NewToolResultError("channel is required"), nil
	}
	result, err := s.client.SearchByIntegrationSource(ctx, channel,
		req.GetString("sort_by", ""), req.GetString("sort_order", ""), req.GetInt("limit", 100))
	if err != nil {
		return s.toolError("search_by_source", err)
	}
	return jsonResult(result)
}

func (s *Server) handleBatchSearchTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	queries := req.GetStringSlice("queries", nil)
	if len(queries) == 0 {
		return mcp.NewToolResultError("queries is required"), nil
	}
	result, err := s.client.BatchSearchTickets(ctx, queries,
		req.GetBool("deduplicate", true),
		req.GetString("sort_by", ""), req.GetString("sort_order", ""), req.GetInt("limit_per_query", 100))
	if err != nil {
		return s.toolError("batch_search_tickets", err)
	}
	return jsonResult(result)
}
