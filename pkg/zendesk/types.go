package zendesk

import (
	"encoding/json"
	"fmt"
)

// Ticket is the flat normalized ticket shape every search and export
// operation returns. Pointer fields are absent when the upstream record
// omitted them.
type Ticket struct {
	ID             int64               `json:"id"`
	Subject        string              `json:"subject"`
	Description    string              `json:"description"`
	Status         string              `json:"status"`
	Priority       string              `json:"priority"`
	Type           *string             `json:"type"`
	CreatedAt      string              `json:"created_at"`
	UpdatedAt      string              `json:"updated_at"`
	SolvedAt       *string             `json:"solved_at,omitempty"`
	RequesterID    *int64              `json:"requester_id"`
	AssigneeID     *int64              `json:"assignee_id"`
	OrganizationID *int64              `json:"organization_id"`
	GroupID        *int64              `json:"group_id,omitempty"`
	TicketFormID   *int64              `json:"ticket_form_id,omitempty"`
	ViaID          *int64              `json:"via_id,omitempty"`
	Tags           []string            `json:"tags"`
	CustomFields   []CustomField       `json:"custom_fields"`
	Via            *Via                `json:"via,omitempty"`
	Metrics        *TicketMetrics      `json:"metrics,omitempty"`
	Satisfaction   *SatisfactionRating `json:"satisfaction_rating,omitempty"`
}

// CustomField is one custom field id/value pair on a ticket.
type CustomField struct {
	ID    int64 `json:"id"`
	Value any   `json:"value"`
}

// Via describes how a ticket was created (web, email, api, ...).
type Via struct {
	Channel string `json:"channel"`
	Source  any    `json:"source,omitempty"`
}

// TicketMetrics carries the side-loaded metric set durations, all in
// seconds. Every field is optional upstream.
type TicketMetrics struct {
	ReplyTimeInSeconds           *float64 `json:"reply_time_in_seconds"`
	FirstResolutionTimeInSeconds *float64 `json:"first_resolution_time_in_seconds"`
	FullResolutionTimeInSeconds  *float64 `json:"full_resolution_time_in_seconds"`
	AgentWaitTimeInSeconds       *float64 `json:"agent_wait_time_in_seconds"`
	RequesterWaitTimeInSeconds   *float64 `json:"requester_wait_time_in_seconds"`
	OnHoldTimeInSeconds          *float64 `json:"on_hold_time_in_seconds"`
}

// SatisfactionRating is a ticket's CSAT rating. Score is numeric for
// survey responses and left as-is otherwise.
type SatisfactionRating struct {
	Score   any     `json:"score"`
	Comment *string `json:"comment"`
}

// rawTicket mirrors a ticket object as the API serializes it. It is the
// single decode target shared by search, export, and single-ticket
// fetches; normalize() flattens it into the public Ticket shape.
type rawTicket struct {
	ID           *int64   `json:"id"`
	Subject      *string  `json:"subject"`
	Description  *string  `json:"description"`
	Status       *string  `json:"status"`
	Priority     *string  `json:"priority"`
	Type         *string  `json:"type"`
	CreatedAt    *string  `json:"created_at"`
	UpdatedAt    *string  `json:"updated_at"`
	SolvedAt     *string  `json:"solved_at"`
	RequesterID  *int64   `json:"requester_id"`
	AssigneeID   *int64   `json:"assignee_id"`
	OrgID        *int64   `json:"organization_id"`
	GroupID      *int64   `json:"group_id"`
	TicketFormID *int64   `json:"ticket_form_id"`
	ViaID        *int64   `json:"via_id"`
	Tags         []string `json:"tags"`
	CustomFields []struct {
		ID    *int64 `json:"id"`
		Value any    `json:"value"`
	} `json:"custom_fields"`
	Via *struct {
		Channel *string `json:"channel"`
		Source  any     `json:"source"`
	} `json:"via"`
	MetricSet *TicketMetrics `json:"metric_set"`
	Satisfaction *struct {
		Score   any     `json:"score"`
		Comment *string `json:"comment"`
	} `json:"satisfaction_rating"`
}

func (r *rawTicket) normalize() Ticket {
	t := Ticket{
		ID:             deref(r.ID, int64(0)),
		Subject:        deref(r.Subject, ""),
		Description:    deref(r.Description, ""),
		Status:         deref(r.Status, ""),
		Priority:       deref(r.Priority, ""),
		Type:           r.Type,
		CreatedAt:      deref(r.CreatedAt, ""),
		UpdatedAt:      deref(r.UpdatedAt, ""),
		SolvedAt:       r.SolvedAt,
		RequesterID:    r.RequesterID,
		AssigneeID:     r.AssigneeID,
		OrganizationID: r.OrgID,
		GroupID:        r.GroupID,
		TicketFormID:   r.TicketFormID,
		ViaID:          r.ViaID,
		Tags:           r.Tags,
		Metrics:        r.MetricSet,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	t.CustomFields = make([]CustomField, 0, len(r.CustomFields))
	for _, cf := range r.CustomFields {
		if cf.ID == nil {
			continue
		}
		t.CustomFields = append(t.CustomFields, CustomField{ID: *cf.ID, Value: cf.Value})
	}
	if r.Via != nil {
		t.Via = &Via{Channel: deref(r.Via.Channel, ""), Source: r.Via.Source}
	}
	if r.Satisfaction != nil {
		t.Satisfaction = &SatisfactionRating{Score: r.Satisfaction.Score, Comment: r.Satisfaction.Comment}
	}
	return t
}

// reencode round-trips a decoded generic JSON value into a typed
// struct, for responses that were first read as map[string]any.
func reencode[T any](v any) (*T, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &APIError{Body: fmt.Sprintf("re-encode response: %v", err)}
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Body: fmt.Sprintf("decode response: %v", err)}
	}
	return &out, nil
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
