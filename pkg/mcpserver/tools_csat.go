package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stackdesk/zendesk-mcp/pkg/zendesk"
)

func (s *Server) registerCSATTools() {
	s.mcp.AddTool(
		mcp.NewTool("search_tickets_by_csat",
			mcp.WithDescription("Find tickets by their CSAT rating band. Checks the legacy satisfaction rating and the CSAT survey APIs. With filter_by_rating_date the date range applies to when the rating was submitted instead of when the ticket was created."),
			mcp.WithString("csat_score", mcp.Required(), mcp.Description("low (1-2), high (4-5), or any")),
			mcp.WithString("start_date", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("end_date", mcp.Description("YYYY-MM-DD")),
			mcp.WithNumber("organization_id", mcp.Description("Only tickets from this organization")),
			mcp.WithObject("custom_field", mcp.Description("Object with field_id and value to require on matching tickets")),
			mcp.WithNumber("limit", mcp.Description("Maximum tickets to return"), mcp.DefaultNumber(100)),
			mcp.WithBoolean("filter_by_rating_date", mcp.Description("Apply the date range to the rating submission time")),
			mcp.WithBoolean("has_comment", mcp.Description("Only ratings that carry a comment")),
		),
		s.handleSearchTicketsByCSAT,
	)

	s.mcp.AddTool(
		mcp.NewTool("list_survey_responses",
			mcp.WithDescription("List Guide CSAT survey responses, normalized to ticket ID, rating, and comment, with cursor pagination"),
			mcp.WithNumber("created_at_start_ms", mcp.Description("Unix millisecond lower bound on submission time")),
			mcp.WithNumber("created_at_end_ms", mcp.Description("Unix millisecond upper bound on submission time")),
			mcp.WithArray("subject_ticket_ids", mcp.Description("Only responses about these tickets")),
			mcp.WithArray("responder_ids", mcp.Description("Only responses from these users")),
			mcp.WithNumber("rating_min", mcp.Description("Minimum rating 1-5")),
			mcp.WithNumber("rating_max", mcp.Description("Maximum rating 1-5")),
			mcp.WithString("rating_category", mcp.Description("good (>=4) or bad (<=2)")),
			mcp.WithBoolean("has_comment", mcp.Description("Only responses that carry a comment")),
			mcp.WithString("cursor", mcp.Description("Pagination cursor from a previous call")),
		),
		s.handleListSurveyResponses,
	)

	s.mcp.AddTool(
		mcp.NewTool("count_survey_responses",
			mcp.WithDescription("Count Guide CSAT survey responses matching the given filters across all pages"),
			mcp.WithNumber("created_at_start_ms", mcp.Description("Unix millisecond lower bound on submission time")),
			mcp.WithNumber("created_at_end_ms", mcp.Description("Unix millisecond upper bound on submission time")),
			mcp.WithArray("subject_ticket_ids", mcp.Description("Only responses about these tickets")),
			mcp.WithArray("responder_ids", mcp.Description("Only responses from these users")),
			mcp.WithNumber("rating_min", mcp.Description("Minimum rating 1-5")),
			mcp.WithNumber("rating_max", mcp.Description("Maximum rating 1-5")),
			mcp.WithString("rating_category", mcp.Description("good (>=4) or bad (<=2)")),
			mcp.WithBoolean("has_comment", mcp.Description("Only responses that carry a comment")),
		),
		s.handleCountSurveyResponses,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_tickets_with_csat_this_week",
			mcp.WithDescription("Report CSAT ratings on tickets solved in the current ISO week (Monday through Sunday, UTC)"),
		),
		s.handleGetTicketsWithCSATThisWeek,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_recent_tickets_with_csat",
			mcp.WithDescription("Report the most recently updated solved tickets that carry a CSAT rating"),
			mcp.WithNumber("limit", mcp.Description("Maximum rated tickets to return"), mcp.DefaultNumber(20)),
		),
		s.handleGetRecentTicketsWithCSAT,
	)
}

func (s *Server) handleSearchTicketsByCSAT(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := zendesk.CSATTicketSearchParams{
		ScoreFilter:        req.GetString("csat_score", ""),
		StartDate:          req.GetString("start_date", ""),
		EndDate:            req.GetString("end_date", ""),
		OrganizationID:     optInt64(req, "organization_id"),
		Limit:              req.GetInt("limit", 100),
		FilterByRatingDate: req.GetBool("filter_by_rating_date", false),
		HasComment:         req.GetBool("has_comment", false),
	}
	if obj, ok := req.GetArguments()["custom_field"].(map[string]any); ok {
		if id, ok := obj["field_id"].(float64); ok {
			if value, ok := obj["value"].(string); ok {
				params.CustomField = &zendesk.CustomFieldFilter{FieldID: int64(id), Value: value}
			}
		}
	}

	result, err := s.client.SearchTicketsByCSAT(ctx, params)
	if err != nil {
		return s.toolError("search_tickets_by_csat", err)
	}
	return jsonResult(result)
}

func (s *Server) handleListSurveyResponses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.ListSurveyResponses(ctx, surveyParams(req), surveyFilter(req))
	if err != nil {
		return s.toolError("list_survey_responses", err)
	}
	return jsonResult(result)
}

func (s *Server) handleCountSurveyResponses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	total, err := s.client.CountSurveyResponses(ctx, surveyParams(req), surveyFilter(req))
	if err != nil {
		return s.toolError("count_survey_responses", err)
	}
	return jsonResult(map[string]any{"total_count": total})
}

func (s *Server) handleGetTicketsWithCSATThisWeek(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.client.GetTicketsWithCSATThisWeek(ctx)
	if err != nil {
		return s.toolError("get_tickets_with_csat_this_week", err)
	}
	return jsonResult(report)
}

func (s *Server) handleGetRecentTicketsWithCSAT(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.client.GetRecentTicketsWithCSAT(ctx, req.GetInt("limit", 20))
	if err != nil {
		return s.toolError("get_recent_tickets_with_csat", err)
	}
	return jsonResult(report)
}

func surveyParams(req mcp.CallToolRequest) zendesk.GuideSurveyParams {
	return zendesk.GuideSurveyParams{
		CreatedAtStartMS: optInt64(req, "created_at_start_ms"),
		CreatedAtEndMS:   optInt64(req, "created_at_end_ms"),
		SubjectTicketIDs: int64Args(req, "subject_ticket_ids"),
		ResponderIDs:     int64Args(req, "responder_ids"),
		Cursor:           req.GetString("cursor", ""),
	}
}

func surveyFilter(req mcp.CallToolRequest) zendesk.SurveyResponseFilter {
	return zendesk.SurveyResponseFilter{
		RatingMin:      optInt(req, "rating_min"),
		RatingMax:      optInt(req, "rating_max"),
		RatingCategory: req.GetString("rating_category", ""),
		HasComment:     req.GetBool("has_comment", false),
	}
}

// int64Args decodes an optional array-of-numbers argument.
func int64Args(req mcp.CallToolRequest, key string) []int64 {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(raw))
	for _, item := range raw {
		if n, ok := item.(float64); ok {
			ids = append(ids, int64(n))
		}
	}
	return ids
}
