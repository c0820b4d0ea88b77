package zendesk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTimeline(t *testing.T) {
	audits := []map[string]any{
		{
			"created_at": "2024-01-02T00:00:00Z",
			"author_id":  float64(7),
			"events": []any{
				map[string]any{"type": "Change", "field_name": "status", "previous_value": "new", "value": "open"},
				map[string]any{"type": "Comment", "body": "covered by the comments list"},
			},
		},
		{
			"created_at": "2024-01-03T00:00:00Z",
			"author_id":  float64(7),
			"events": []any{
				map[string]any{"type": "Change", "field_name": "assignee_id", "value": float64(9)},
				map[string]any{"type": "Change", "field_name": "priority", "previous_value": "normal", "value": "high"},
				map[string]any{"type": "Change", "field_name": "tags", "value": []any{"vip"}},
			},
		},
		{
			"created_at": "2024-01-04T00:00:00Z",
			"events": []any{
				map[string]any{"type": "Notification", "subject": "Your ticket was updated"},
			},
		},
	}
	comments := []Comment{
		{ID: 1, Body: "first", Public: true, CreatedAt: "2024-01-01T00:00:00Z", Attachments: []Attachment{}},
	}

	timeline := buildTimeline(audits, comments)

	types := make([]string, 0, len(timeline))
	for _, ev := range timeline {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{"comment", "status_change", "assignment", "priority_change", "field_update", "Notification"}, types)

	status := timeline[1]
	assert.Equal(t, "status", status.Details["field"])
	assert.Equal(t, "new", status.Details["from"])
	assert.Equal(t, "open", status.Details["to"])
	assert.Equal(t, float64(7), status.AuthorID)

	notification := timeline[5]
	assert.Equal(t, "Your ticket was updated", notification.Details["subject"])
	_, hasType := notification.Details["type"]
	assert.False(t, hasType)
}

func TestGetTicketCommentsLimitAndHasMore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets/1/comments.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"comments": []map[string]any{
				{"id": 1, "body": "first", "created_at": "2024-01-01T00:00:00Z"},
				{"id": 2, "body": "second", "created_at": "2024-01-02T00:00:00Z"},
			},
			"next_page": "http://" + r.Host + "/tickets/1/comments.json?page=2",
		})
	})
	c := newTestClient(t, mux)

	list, err := c.GetTicketComments(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.True(t, list.HasMore, "a pending next page past the limit flags has_more")
	assert.NotNil(t, list.Comments[0].Attachments, "attachments default to an empty slice")
}

func TestGetTicketsPagination(t *testing.T) {
	var query map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{
			"tickets":       []map[string]any{exportTicket(1, nil)},
			"next_page":     "https://acme.zendesk.com/api/v2/tickets.json?page=3",
			"previous_page": "https://acme.zendesk.com/api/v2/tickets.json?page=1",
		})
	})
	c := newTestClient(t, mux)

	page, err := c.GetTickets(context.Background(), 2, 500, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"100"}, query["per_page"], "per_page caps at the API limit")
	assert.Equal(t, []string{"created_at"}, query["sort_by"])
	assert.Equal(t, []string{"desc"}, query["sort_order"])
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextPage)
	assert.Equal(t, 3, *page.NextPage)
	require.NotNil(t, page.PreviousPage)
	assert.Equal(t, 1, *page.PreviousPage)
}

func TestGetTicketBundle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets/1.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ticket": exportTicket(1, map[string]any{
			"requester_id": 10, "assignee_id": 20, "updated_at": "2024-01-05T00:00:00Z",
		})})
	})
	mux.HandleFunc("/tickets/1/comments.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"comments": []map[string]any{{"id": 1, "body": "hello", "created_at": "2024-01-01T00:00:00Z"}},
		})
	})
	mux.HandleFunc("/tickets/1/audits.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"audits": []map[string]any{
				{
					"created_at": "2024-01-02T00:00:00Z",
					"events": []any{
						map[string]any{"type": "Change", "field_name": "status", "value": "open"},
						map[string]any{"type": "Change", "field_name": "assignee_id", "value": float64(20)},
					},
				},
			},
		})
	})
	mux.HandleFunc("/users/10.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"id": 10, "name": "Dana"}})
	})
	mux.HandleFunc("/users/20.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, mux)

	bundle, err := c.GetTicketBundle(context.Background(), 1, 10, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(1), bundle.TicketID)
	assert.Equal(t, 1, bundle.CommentsCount)
	assert.Equal(t, 1, bundle.AuditsCount)
	require.NotNil(t, bundle.Requester)
	assert.Equal(t, "Dana", bundle.Requester["name"])
	assert.Nil(t, bundle.Assignee, "actor lookups are best effort")
	assert.Nil(t, bundle.Organization)

	require.Len(t, bundle.Timeline, 3)
	assert.Equal(t, "comment", bundle.Timeline[0].EventType)
	assert.Equal(t, 1, bundle.Summary.StatusChanges)
	assert.Equal(t, 1, bundle.Summary.AssignmentChanges)
	assert.Equal(t, "2024-01-05T00:00:00Z", bundle.Summary.LastUpdated)
}

func TestCreateTicketValidation(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())

	_, err := c.CreateTicket(context.Background(), TicketDraft{Description: "body"})
	assert.True(t, IsValidation(err))

	_, err = c.CreateTicket(context.Background(), TicketDraft{Subject: "subject"})
	assert.True(t, IsValidation(err))
}

func TestCreateTicketPayload(t *testing.T) {
	var payload map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		json.NewEncoder(w).Encode(map[string]any{"ticket": exportTicket(99, map[string]any{
			"subject": "Printer on fire", "priority": "urgent",
		})})
	})
	c := newTestClient(t, mux)

	created, err := c.CreateTicket(context.Background(), TicketDraft{
		Subject:     "Printer on fire",
		Description: "It is actually on fire",
		Priority:    "urgent",
		Tags:        []string{"hardware"},
		RequesterID: int64p(10),
	})
	require.NoError(t, err)

	fields, _ := payload["ticket"].(map[string]any)
	require.NotNil(t, fields)
	assert.Equal(t, "Printer on fire", fields["subject"])
	comment, _ := fields["comment"].(map[string]any)
	assert.Equal(t, "It is actually on fire", comment["body"])
	assert.Equal(t, "urgent", fields["priority"])
	assert.Equal(t, []any{"hardware"}, fields["tags"])
	assert.Equal(t, float64(10), fields["requester_id"])
	_, hasAssignee := fields["assignee_id"]
	assert.False(t, hasAssignee, "unset optional fields stay out of the payload")

	assert.Equal(t, int64(99), created.ID)
	assert.Equal(t, "urgent", created.Priority)
}

func TestUpdateTicketSkipsNilFields(t *testing.T) {
	var payload map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets/5.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &payload))
		}
		json.NewEncoder(w).Encode(map[string]any{"ticket": exportTicket(5, map[string]any{"status": "solved"})})
	})
	c := newTestClient(t, mux)

	updated, err := c.UpdateTicket(context.Background(), 5, map[string]any{
		"status":   "solved",
		"priority": nil,
	})
	require.NoError(t, err)

	fields, _ := payload["ticket"].(map[string]any)
	assert.Equal(t, "solved", fields["status"])
	_, hasPriority := fields["priority"]
	assert.False(t, hasPriority)
	assert.Equal(t, "solved", updated.Status)

	_, err = c.UpdateTicket(context.Background(), 5, nil)
	assert.True(t, IsValidation(err))
}

func TestCreateTicketComment(t *testing.T) {
	var payload map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets/5.json", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		json.NewEncoder(w).Encode(map[string]any{})
	})
	c := newTestClient(t, mux)

	echoed, err := c.CreateTicketComment(context.Background(), 5, "<p>done</p>", false)
	require.NoError(t, err)
	assert.Equal(t, "<p>done</p>", echoed)

	ticket, _ := payload["ticket"].(map[string]any)
	comment, _ := ticket["comment"].(map[string]any)
	assert.Equal(t, "<p>done</p>", comment["html_body"])
	assert.Equal(t, false, comment["public"])

	_, err = c.CreateTicketComment(context.Background(), 5, "", true)
	assert.True(t, IsValidation(err))
}
