package zendesk

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportTicket(id int64, extra map[string]any) map[string]any {
	t := map[string]any{
		"id":         id,
		"subject":    "ticket",
		"status":     "open",
		"created_at": "2024-01-01T00:00:00Z",
		"updated_at": "2024-01-02T00:00:00Z",
	}
	for k, v := range extra {
		t[k] = v
	}
	return t
}

func exportHandler(pages ...[]map[string]any) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/export.json", func(w http.ResponseWriter, r *http.Request) {
		page := 0
		if p := r.URL.Query().Get("page"); p != "" {
			page = 1
		}
		hasMore := page < len(pages)-1
		body := map[string]any{
			"results": pages[page],
			"meta":    map[string]any{"has_more": hasMore},
		}
		if hasMore {
			body["links"] = map[string]any{"next": "http://" + r.Host + "/search/export.json?page=2"}
		}
		json.NewEncoder(w).Encode(body)
	})
	return mux
}

func TestSearchTicketsExportRejectsEmptyQuery(t *testing.T) {
	c := newTestClient(t, exportHandler([]map[string]any{}))
	_, err := c.SearchTicketsExport(context.Background(), "", "", "", 0)
	assert.True(t, IsValidation(err))
}

func TestSearchTicketsExportNeverSendsSortParams(t *testing.T) {
	var query map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/search/export.json", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	})
	c := newTestClient(t, mux)

	_, err := c.SearchTicketsExport(context.Background(), "status:open", "updated_at", "asc", 0)
	require.NoError(t, err)
	assert.NotContains(t, query, "sort_by", "export endpoint accepts no sort params")
	assert.NotContains(t, query, "sort_order")
	assert.Equal(t, []string{"ticket"}, query["filter[type]"])
	assert.Equal(t, []string{"1000"}, query["page[size]"])
	assert.Equal(t, []string{"status:open"}, query["query"])
}

func TestSearchTicketsExportPaginatesAndSorts(t *testing.T) {
	c := newTestClient(t, exportHandler(
		[]map[string]any{
			exportTicket(1, map[string]any{"updated_at": "2024-01-05T00:00:00Z"}),
			exportTicket(2, map[string]any{"updated_at": "2024-01-09T00:00:00Z"}),
		},
		[]map[string]any{
			exportTicket(3, map[string]any{"updated_at": "2024-01-07T00:00:00Z"}),
		},
	))

	res, err := c.SearchTicketsExport(context.Background(), "status:open", "updated_at", "", 0)
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)
	// sortOrder defaults to descending
	assert.Equal(t, []int64{2, 3, 1}, ticketIDs(res.Tickets))
	assert.False(t, res.HasMore)
	assert.Equal(t, exportNote, res.Note)
}

func TestSearchTicketsExportAscending(t *testing.T) {
	c := newTestClient(t, exportHandler([]map[string]any{
		exportTicket(1, map[string]any{"created_at": "2024-03-01T00:00:00Z"}),
		exportTicket(2, map[string]any{"created_at": "2024-01-01T00:00:00Z"}),
		exportTicket(3, map[string]any{"created_at": "2024-02-01T00:00:00Z"}),
	}))

	res, err := c.SearchTicketsExport(context.Background(), "status:open", "created_at", "asc", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, ticketIDs(res.Tickets))
}

func TestSearchTicketsExportMaxResults(t *testing.T) {
	c := newTestClient(t, exportHandler([]map[string]any{
		exportTicket(1, nil), exportTicket(2, nil), exportTicket(3, nil),
	}))

	res, err := c.SearchTicketsExport(context.Background(), "status:open", "", "", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.True(t, res.HasMore, "has_more reports the cap being hit")
}

func TestSortTicketsPriorityRank(t *testing.T) {
	tickets := []Ticket{
		{ID: 1, Priority: "low"},
		{ID: 2, Priority: "urgent"},
		{ID: 3, Priority: "normal"},
		{ID: 4, Priority: ""},
		{ID: 5, Priority: "high"},
	}
	sortTickets(tickets, "priority", "desc")
	assert.Equal(t, []int64{2, 5, 3, 1, 4}, ticketIDs(tickets), "unknown priority sorts last")

	sortTickets(tickets, "priority", "asc")
	assert.Equal(t, []int64{4, 1, 3, 5, 2}, ticketIDs(tickets))
}

func TestSortTicketsStatusRank(t *testing.T) {
	tickets := []Ticket{
		{ID: 1, Status: "closed"},
		{ID: 2, Status: "new"},
		{ID: 3, Status: "pending"},
		{ID: 4, Status: "open"},
	}
	sortTickets(tickets, "status", "desc")
	assert.Equal(t, []int64{2, 4, 3, 1}, ticketIDs(tickets))
}

func TestSortTicketsStableOnTies(t *testing.T) {
	tickets := []Ticket{
		{ID: 1, Priority: "high"},
		{ID: 2, Priority: "high"},
		{ID: 3, Priority: "high"},
	}
	sortTickets(tickets, "priority", "desc")
	assert.Equal(t, []int64{1, 2, 3}, ticketIDs(tickets), "equal keys keep input order")
}

func ticketIDs(tickets []Ticket) []int64 {
	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	return ids
}
