package zendesk

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Comment is one ticket comment, including attachment metadata.
type Comment struct {
	ID          int64        `json:"id"`
	AuthorID    *int64       `json:"author_id"`
	Body        string       `json:"body"`
	HTMLBody    string       `json:"html_body"`
	Public      bool         `json:"public"`
	CreatedAt   string       `json:"created_at"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is the metadata of one file attached to a comment; the
// binary content stays behind ContentURL.
type Attachment struct {
	ID          int64  `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	ContentURL  string `json:"content_url"`
	Size        int64  `json:"size"`
}

// CommentList is a bounded page walk over a ticket's comments.
type CommentList struct {
	Comments []Comment `json:"comments"`
	Count    int       `json:"count"`
	HasMore  bool      `json:"has_more"`
}

// AuditList is a bounded page walk over a ticket's audit log. Audit
// events are heterogeneous, so they stay as raw objects.
type AuditList struct {
	Audits  []map[string]any `json:"audits"`
	Count   int              `json:"count"`
	HasMore bool             `json:"has_more"`
}

// MetricEventList holds every metric event of one ticket.
type MetricEventList struct {
	MetricEvents []map[string]any `json:"metric_events"`
	Count        int              `json:"count"`
	HasMore      bool             `json:"has_more"`
}

// GetTicket fetches a single ticket by id.
func (c *Client) GetTicket(ctx context.Context, ticketID int64) (*Ticket, error) {
	var payload struct {
		Ticket rawTicket `json:"ticket"`
	}
	if err := c.getInto(ctx, fmt.Sprintf("%s/tickets/%d.json", c.baseURL, ticketID), &payload); err != nil {
		return nil, fmt.Errorf("get ticket %d: %w", ticketID, err)
	}
	t := payload.Ticket.normalize()
	return &t, nil
}

// TicketPage is one offset-paginated page of tickets.
type TicketPage struct {
	Tickets      []Ticket `json:"tickets"`
	Page         int      `json:"page"`
	PerPage      int      `json:"per_page"`
	Count        int      `json:"count"`
	SortBy       string   `json:"sort_by"`
	SortOrder    string   `json:"sort_order"`
	HasMore      bool     `json:"has_more"`
	NextPage     *int     `json:"next_page"`
	PreviousPage *int     `json:"previous_page"`
}

// GetTickets lists tickets with offset pagination. page is 1-based,
// perPage is capped at 100 (API limit).
func (c *Client) GetTickets(ctx context.Context, page, perPage int, sortBy, sortOrder string) (*TicketPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = min(max(perPage, 1), 100)
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	if sortOrder == "" {
		sortOrder = "desc"
	}

	params := url.Values{
		"page":       {strconv.Itoa(page)},
		"per_page":   {strconv.Itoa(perPage)},
		"sort_by":    {sortBy},
		"sort_order": {sortOrder},
	}
	var payload struct {
		Tickets      []rawTicket `json:"tickets"`
		NextPage     *string     `json:"next_page"`
		PreviousPage *string     `json:"previous_page"`
	}
	if err := c.getInto(ctx, c.baseURL+"/tickets.json?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	result := &TicketPage{
		Tickets:   make([]Ticket, 0, len(payload.Tickets)),
		Page:      page,
		PerPage:   perPage,
		SortBy:    sortBy,
		SortOrder: sortOrder,
		HasMore:   payload.NextPage != nil,
	}
	for i := range payload.Tickets {
		result.Tickets = append(result.Tickets, payload.Tickets[i].normalize())
	}
	result.Count = len(result.Tickets)
	if payload.NextPage != nil {
		next := page + 1
		result.NextPage = &next
	}
	if payload.PreviousPage != nil && page > 1 {
		prev := page - 1
		result.PreviousPage = &prev
	}
	return result, nil
}

// GetTicketComments fetches a ticket's comments, attachments included,
// up to limit.
func (c *Client) GetTicketComments(ctx context.Context, ticketID int64, limit int) (*CommentList, error) {
	if limit <= 0 {
		limit = 50
	}
	result := &CommentList{Comments: make([]Comment, 0)}
	pageURL := fmt.Sprintf("%s/tickets/%d/comments.json", c.baseURL, ticketID)
	for pageURL != "" && len(result.Comments) < limit {
		var payload struct {
			Comments []Comment `json:"comments"`
			NextPage *string   `json:"next_page"`
		}
		if err := c.getInto(ctx, pageURL, &payload); err != nil {
			return nil, fmt.Errorf("get comments for ticket %d: %w", ticketID, err)
		}
		for i := range payload.Comments {
			if payload.Comments[i].Attachments == nil {
				payload.Comments[i].Attachments = []Attachment{}
			}
			result.Comments = append(result.Comments, payload.Comments[i])
			if len(result.Comments) >= limit {
				break
			}
		}
		next := ""
		if payload.NextPage != nil {
			next = *payload.NextPage
		}
		if len(result.Comments) >= limit {
			result.HasMore = next != ""
			break
		}
		pageURL = next
	}
	result.Count = len(result.Comments)
	return result, nil
}

// GetTicketAudits fetches a ticket's audit log up to limit entries.
func (c *Client) GetTicketAudits(ctx context.Context, ticketID int64, limit int) (*AuditList, error) {
	if limit <= 0 {
		limit = 100
	}
	result := &AuditList{Audits: make([]map[string]any, 0)}
	pageURL := fmt.Sprintf("%s/tickets/%d/audits.json", c.baseURL, ticketID)
	for pageURL != "" && len(result.Audits) < limit {
		data, err := c.getJSONURL(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("get audits for ticket %d: %w", ticketID, err)
		}
		result.Audits = append(result.Audits, objectSlice(data["audits"])...)
		next, _ := data["next_page"].(string)
		if len(result.Audits) >= limit {
			result.HasMore = next != ""
			break
		}
		pageURL = next
	}
	if len(result.Audits) > limit {
		result.Audits = result.Audits[:limit]
	}
	result.Count = len(result.Audits)
	return result, nil
}

// GetTicketMetricEvents fetches all metric events for one ticket.
// Metric events carry SLA apply/breach/pause markers and timing data.
func (c *Client) GetTicketMetricEvents(ctx context.Context, ticketID int64) (*MetricEventList, error) {
	result := &MetricEventList{MetricEvents: make([]map[string]any, 0)}
	pageURL := fmt.Sprintf("%s/tickets/%d/metric_events.json", c.baseURL, ticketID)
	for pageURL != "" {
		data, err := c.getJSONURL(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("get metric events for ticket %d: %w", ticketID, err)
		}
		result.MetricEvents = append(result.MetricEvents, objectSlice(data["metric_events"])...)
		pageURL, _ = data["next_page"].(string)
	}
	result.Count = len(result.MetricEvents)
	return result, nil
}

// TimelineEvent is one normalized entry of a ticket bundle timeline.
type TimelineEvent struct {
	Timestamp string         `json:"timestamp"`
	EventType string         `json:"event_type"`
	AuthorID  any            `json:"author_id"`
	Details   map[string]any `json:"details"`
}

type BundleSummary struct {
	TotalComments     int    `json:"total_comments"`
	TotalAudits       int    `json:"total_audits"`
	StatusChanges     int    `json:"status_changes"`
	AssignmentChanges int    `json:"assignment_changes"`
	LastUpdated       string `json:"last_updated"`
}

// TicketBundle consolidates a ticket with its comments, audits, actor
// context, and a chronological timeline.
type TicketBundle struct {
	TicketID        int64            `json:"ticket_id"`
	Ticket          *Ticket          `json:"ticket"`
	Requester       map[string]any   `json:"requester"`
	Assignee        map[string]any   `json:"assignee"`
	Organization    map[string]any   `json:"organization"`
	Comments        []Comment        `json:"comments"`
	CommentsCount   int              `json:"comments_count"`
	CommentsHasMore bool             `json:"comments_has_more"`
	Audits          []map[string]any `json:"audits"`
	AuditsCount     int              `json:"audits_count"`
	AuditsHasMore   bool             `json:"audits_has_more"`
	Timeline        []TimelineEvent  `json:"timeline"`
	Summary         BundleSummary    `json:"summary"`
}

// GetTicketBundle assembles the full context of one ticket. The ticket
// itself must exist; requester/assignee/organization lookups are best
// effort and come back nil on failure.
func (c *Client) GetTicketBundle(ctx context.Context, ticketID int64, commentLimit, auditLimit int) (*TicketBundle, error) {
	ticket, err := c.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := c.GetTicketComments(ctx, ticketID, commentLimit)
	if err != nil {
		return nil, err
	}
	audits, err := c.GetTicketAudits(ctx, ticketID, auditLimit)
	if err != nil {
		return nil, err
	}

	bundle := &TicketBundle{
		TicketID:        ticketID,
		Ticket:          ticket,
		Comments:        comments.Comments,
		CommentsCount:   comments.Count,
		CommentsHasMore: comments.HasMore,
		Audits:          audits.Audits,
		AuditsCount:     audits.Count,
		AuditsHasMore:   audits.HasMore,
	}
	if ticket.RequesterID != nil {
		bundle.Requester = c.lookupUser(ctx, *ticket.RequesterID)
	}
	if ticket.AssigneeID != nil {
		bundle.Assignee = c.lookupUser(ctx, *ticket.AssigneeID)
	}
	if ticket.OrganizationID != nil {
		bundle.Organization = c.lookupOrganization(ctx, *ticket.OrganizationID)
	}

	bundle.Timeline = buildTimeline(audits.Audits, comments.Comments)
	bundle.Summary = BundleSummary{
		TotalComments: comments.Count,
		TotalAudits:   audits.Count,
		LastUpdated:   ticket.UpdatedAt,
	}
	for _, ev := range bundle.Timeline {
		switch ev.EventType {
		case "status_change":
			bundle.Summary.StatusChanges++
		case "assignment":
			bundle.Summary.AssignmentChanges++
		}
	}
	return bundle, nil
}

// buildTimeline merges audit field changes and comments into one
// chronological event stream. Audit comment events are skipped because
// the comments list already covers them.
func buildTimeline(audits []map[string]any, comments []Comment) []TimelineEvent {
	timeline := make([]TimelineEvent, 0, len(audits)+len(comments))

	for _, audit := range audits {
		createdAt, _ := audit["created_at"].(string)
		if createdAt == "" {
			createdAt, _ = audit["timestamp"].(string)
		}
		authorID := audit["author_id"]
		for _, ev := range objectSlice(audit["events"]) {
			evType, _ := ev["type"].(string)
			lower := strings.ToLower(evType)
			if strings.Contains(lower, "comment") {
				continue
			}
			if strings.Contains(lower, "change") {
				field := firstString(ev, "field", "field_name", "attribute")
				eventType := "field_update"
				switch field {
				case "status":
					eventType = "status_change"
				case "assignee_id":
					eventType = "assignment"
				case "priority":
					eventType = "priority_change"
				}
				timeline = append(timeline, TimelineEvent{
					Timestamp: createdAt,
					EventType: eventType,
					AuthorID:  authorID,
					Details: map[string]any{
						"field": field,
						"from":  firstValue(ev, "previous_value", "previous", "from"),
						"to":    firstValue(ev, "value", "new_value", "to"),
					},
				})
				continue
			}
			if evType == "" {
				evType = "audit_event"
			}
			details := make(map[string]any, len(ev))
			for k, v := range ev {
				if k != "type" {
					details[k] = v
				}
			}
			timeline = append(timeline, TimelineEvent{
				Timestamp: createdAt,
				EventType: evType,
				AuthorID:  authorID,
				Details:   details,
			})
		}
	}

	for _, cm := range comments {
		timeline = append(timeline, TimelineEvent{
			Timestamp: cm.CreatedAt,
			EventType: "comment",
			AuthorID:  cm.AuthorID,
			Details: map[string]any{
				"public":      cm.Public,
				"attachments": cm.Attachments,
			},
		})
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Timestamp < timeline[j].Timestamp
	})
	return timeline
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// TicketDraft is the writable surface for creating a ticket.
// Description doubles as the initial comment.
type TicketDraft struct {
	Subject      string
	Description  string
	RequesterID  *int64
	AssigneeID   *int64
	Priority     string
	Type         string
	Tags         []string
	CustomFields []CustomField
}

// CreateTicket creates a ticket and returns it as stored upstream.
func (c *Client) CreateTicket(ctx context.Context, draft TicketDraft) (*Ticket, error) {
	if draft.Subject == "" {
		return nil, validationErrorf("ticket subject cannot be empty")
	}
	if draft.Description == "" {
		return nil, validationErrorf("ticket description cannot be empty")
	}

	fields := map[string]any{
		"subject": draft.Subject,
		"comment": map[string]any{"body": draft.Description},
	}
	if draft.RequesterID != nil {
		fields["requester_id"] = *draft.RequesterID
	}
	if draft.AssigneeID != nil {
		fields["assignee_id"] = *draft.AssigneeID
	}
	if draft.Priority != "" {
		fields["priority"] = draft.Priority
	}
	if draft.Type != "" {
		fields["type"] = draft.Type
	}
	if len(draft.Tags) > 0 {
		fields["tags"] = draft.Tags
	}
	if len(draft.CustomFields) > 0 {
		fields["custom_fields"] = draft.CustomFields
	}

	data, err := c.postJSON(ctx, "/tickets.json", map[string]any{"ticket": fields})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return ticketFromResponse(data)
}

// UpdateTicket applies the given ticket fields (nil values skipped) and
// returns the refreshed ticket.
func (c *Client) UpdateTicket(ctx context.Context, ticketID int64, fields map[string]any) (*Ticket, error) {
	if len(fields) == 0 {
		return nil, validationErrorf("no fields to update")
	}
	payload := make(map[string]any, len(fields))
	for k, v := range fields {
		if v != nil {
			payload[k] = v
		}
	}
	if _, err := c.putJSON(ctx, fmt.Sprintf("/tickets/%d.json", ticketID), map[string]any{"ticket": payload}); err != nil {
		return nil, fmt.Errorf("update ticket %d: %w", ticketID, err)
	}
	return c.GetTicket(ctx, ticketID)
}

// CreateTicketComment posts a comment to an existing ticket and echoes
// the comment body back on success.
func (c *Client) CreateTicketComment(ctx context.Context, ticketID int64, comment string, public bool) (string, error) {
	if comment == "" {
		return "", validationErrorf("comment cannot be empty")
	}
	payload := map[string]any{
		"ticket": map[string]any{
			"comment": map[string]any{"html_body": comment, "public": public},
		},
	}
	if _, err := c.putJSON(ctx, fmt.Sprintf("/tickets/%d.json", ticketID), payload); err != nil {
		return "", fmt.Errorf("post comment on ticket %d: %w", ticketID, err)
	}
	return comment, nil
}

// ticketFromResponse re-decodes a generic API response's "ticket"
// object through the typed path.
func ticketFromResponse(data map[string]any) (*Ticket, error) {
	obj, _ := data["ticket"].(map[string]any)
	if obj == nil {
		return nil, &APIError{Body: "response missing ticket object"}
	}
	raw, err := reencode[rawTicket](obj)
	if err != nil {
		return nil, err
	}
	t := raw.normalize()
	return &t, nil
}
