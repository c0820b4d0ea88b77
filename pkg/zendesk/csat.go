package zendesk

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CSATResponseList holds CSAT survey responses from the newer survey
// API (preferred over the legacy satisfaction_rating field).
type CSATResponseList struct {
	CSATSurveyResponses []map[string]any `json:"csat_survey_responses"`
	Count               int              `json:"count"`
	HasMore             bool             `json:"has_more"`
}

// GetTicketCSATResponses fetches every CSAT survey response attached to
// one ticket.
func (c *Client) GetTicketCSATResponses(ctx context.Context, ticketID int64) (*CSATResponseList, error) {
	result := &CSATResponseList{CSATSurveyResponses: make([]map[string]any, 0)}
	pageURL := fmt.Sprintf("%s/tickets/%d/csat_survey_responses.json", c.baseURL, ticketID)
	for pageURL != "" {
		data, err := c.getJSONURL(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("get CSAT responses for ticket %d: %w", ticketID, err)
		}
		result.CSATSurveyResponses = append(result.CSATSurveyResponses, objectSlice(data["csat_survey_responses"])...)
		pageURL, _ = data["next_page"].(string)
	}
	result.Count = len(result.CSATSurveyResponses)
	return result, nil
}

// CSATSearchParams filters a CSAT survey response search. A nonzero
// TicketID short-circuits to the ticket-specific endpoint.
type CSATSearchParams struct {
	TicketID      int64
	Score         *int
	CreatedAfter  string
	CreatedBefore string
	Limit         int
}

// SearchCSATResponses searches CSAT survey responses account-wide.
func (c *Client) SearchCSATResponses(ctx context.Context, p CSATSearchParams) (*CSATResponseList, error) {
	if p.TicketID != 0 {
		return c.GetTicketCSATResponses(ctx, p.TicketID)
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{"per_page": {strconv.Itoa(min(limit, 100))}}
	if p.Score != nil {
		params.Set("score", strconv.Itoa(*p.Score))
	}
	if p.CreatedAfter != "" {
		params.Set("created_after", p.CreatedAfter)
	}
	if p.CreatedBefore != "" {
		params.Set("created_before", p.CreatedBefore)
	}

	result := &CSATResponseList{CSATSurveyResponses: make([]map[string]any, 0)}
	pageURL := c.baseURL + "/csat_survey_responses.json?" + params.Encode()
	for pageURL != "" && len(result.CSATSurveyResponses) < limit {
		data, err := c.getJSONURL(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("search CSAT responses: %w", err)
		}
		page := objectSlice(data["csat_survey_responses"])
		if remaining := limit - len(result.CSATSurveyResponses); len(page) > remaining {
			page = page[:remaining]
		}
		result.CSATSurveyResponses = append(result.CSATSurveyResponses, page...)
		next, _ := data["next_page"].(string)
		if len(result.CSATSurveyResponses) >= limit {
			result.HasMore = next != ""
			break
		}
		pageURL = next
	}
	result.Count = len(result.CSATSurveyResponses)
	return result, nil
}

// GuideSurveyParams filters the Guide survey responses API.
type GuideSurveyParams struct {
	CreatedAtStartMS *int64
	CreatedAtEndMS   *int64
	SubjectTicketIDs []int64
	ResponderIDs     []int64
	Cursor           string
}

// GuideSurveyResponses is the raw Guide survey responses payload.
type GuideSurveyResponses struct {
	SurveyResponses []map[string]any `json:"survey_responses"`
	Meta            map[string]any   `json:"meta"`
}

// ListGuideSurveyResponses calls the Guide CSAT survey responses API
// with its cursor-based pagination and ZRN subject filters.
func (c *Client) ListGuideSurveyResponses(ctx context.Context, p GuideSurveyParams) (*GuideSurveyResponses, error) {
	params := url.Values{}
	if p.CreatedAtStartMS != nil {
		params.Set("filter[created_at_start]", strconv.FormatInt(*p.CreatedAtStartMS, 10))
	}
	if p.CreatedAtEndMS != nil {
		params.Set("filter[created_at_end]", strconv.FormatInt(*p.CreatedAtEndMS, 10))
	}
	if len(p.SubjectTicketIDs) > 0 {
		zrns := make([]string, 0, len(p.SubjectTicketIDs))
		for _, id := range p.SubjectTicketIDs {
			zrns = append(zrns, fmt.Sprintf("zen:ticket:%d", id))
		}
		params.Set("filter[subject_zrns]", strings.Join(zrns, ","))
	}
	if len(p.ResponderIDs) > 0 {
		ids := make([]string, 0, len(p.ResponderIDs))
		for _, id := range p.ResponderIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		params.Set("filter[responder_ids]", strings.Join(ids, ","))
	}
	if p.Cursor != "" {
		params.Set("page[after]", p.Cursor)
	}

	data, err := c.getJSON(ctx, "/guide/survey_responses", params)
	if err != nil {
		return nil, fmt.Errorf("list guide survey responses: %w", err)
	}
	meta, _ := data["meta"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	return &GuideSurveyResponses{
		SurveyResponses: objectSlice(data["survey_responses"]),
		Meta:            meta,
	}, nil
}

// CSATTicket is one ticket/rating pair in a CSAT report. Source names
// which API supplied the score.
type CSATTicket struct {
	TicketID          int64  `json:"ticket_id"`
	Subject           string `json:"subject"`
	Status            string `json:"status"`
	Priority          string `json:"priority"`
	RequesterID       *int64 `json:"requester_id"`
	AssigneeID        *int64 `json:"assignee_id"`
	Score             any    `json:"score"`
	Comment           any    `json:"comment"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	ResponseCreatedAt string `json:"response_created_at,omitempty"`
	Source            string `json:"source"`
}

type CSATSummary struct {
	TotalWithCSAT     int            `json:"total_with_csat"`
	TotalWithComments int            `json:"total_with_comments"`
	ScoreDistribution map[string]int `json:"score_distribution"`
}

// CSATReport is a collection of rated tickets plus distribution stats.
type CSATReport struct {
	Tickets   []CSATTicket `json:"tickets"`
	Count     int          `json:"count"`
	WeekStart string       `json:"week_start,omitempty"`
	WeekEnd   string       `json:"week_end,omitempty"`
	Summary   CSATSummary  `json:"summary"`
}

// GetTicketsWithCSATThisWeek reports CSAT ratings on tickets solved in
// the current ISO week (Monday through Sunday, UTC).
func (c *Client) GetTicketsWithCSATThisWeek(ctx context.Context) (*CSATReport, error) {
	start := weekStart(dateOf(c.now().UTC()))
	end := start.AddDate(0, 0, 7)
	startStr, endStr := dayKey(start), dayKey(end)

	query := fmt.Sprintf("status:solved updated>=%s updated<%s", startStr, endStr)
	export, err := c.SearchTicketsExport(ctx, query, "updated_at", "desc", 500)
	if err != nil {
		return nil, err
	}

	report := c.collectCSAT(ctx, export.Tickets, 0)
	report.WeekStart = startStr
	report.WeekEnd = endStr
	return report, nil
}

// GetRecentTicketsWithCSAT reports the most recently updated solved
// tickets that carry a CSAT rating, up to limit.
func (c *Client) GetRecentTicketsWithCSAT(ctx context.Context, limit int) (*CSATReport, error) {
	if limit <= 0 {
		limit = 20
	}
	// overfetch candidates since most solved tickets go unrated
	export, err := c.SearchTicketsExport(ctx, "status:solved", "updated_at", "desc", min(limit*5, 500))
	if err != nil {
		return nil, err
	}
	return c.collectCSAT(ctx, export.Tickets, limit), nil
}

// collectCSAT walks tickets oldest-rating-first collecting ratings from
// the legacy satisfaction_rating field, falling back per ticket to the
// CSAT survey API. limit 0 means unbounded.
func (c *Client) collectCSAT(ctx context.Context, tickets []Ticket, limit int) *CSATReport {
	report := &CSATReport{
		Tickets: make([]CSATTicket, 0),
		Summary: CSATSummary{ScoreDistribution: map[string]int{}},
	}
	full := func() bool { return limit > 0 && len(report.Tickets) >= limit }

	for _, t := range tickets {
		if full() {
			break
		}
		base := CSATTicket{
			TicketID:    t.ID,
			Subject:     t.Subject,
			Status:      t.Status,
			Priority:    t.Priority,
			RequesterID: t.RequesterID,
			AssigneeID:  t.AssigneeID,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
		if t.Satisfaction != nil && t.Satisfaction.Score != nil {
			entry := base
			entry.Score = t.Satisfaction.Score
			if t.Satisfaction.Comment != nil {
				entry.Comment = *t.Satisfaction.Comment
			}
			entry.Source = "legacy_satisfaction_rating"
			report.Tickets = append(report.Tickets, entry)
			continue
		}
		responses, err := c.GetTicketCSATResponses(ctx, t.ID)
		if err != nil {
			// best effort: a ticket without survey responses is simply skipped
			continue
		}
		for _, resp := range responses.CSATSurveyResponses {
			if full() {
				break
			}
			score, ok := resp["score"]
			if !ok || score == nil {
				continue
			}
			entry := base
			entry.Score = score
			entry.Comment = resp["comment"]
			entry.ResponseCreatedAt, _ = resp["created_at"].(string)
			entry.Source = "csat_survey_response"
			report.Tickets = append(report.Tickets, entry)
		}
	}

	for _, entry := range report.Tickets {
		report.Summary.ScoreDistribution[scoreKey(entry.Score)]++
		if entry.Comment != nil && entry.Comment != "" {
			report.Summary.TotalWithComments++
		}
	}
	report.Count = len(report.Tickets)
	report.Summary.TotalWithCSAT = len(report.Tickets)
	return report
}

func scoreKey(score any) string {
	switch s := score.(type) {
	case string:
		return s
	case float64:
		return formatScore(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
