package zendesk

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackdesk/zendesk-mcp/pkg/cursor"
)

func incrementalPage(items int, startID int64, endTime int64, next string, eos bool) map[string]any {
	tickets := make([]map[string]any, 0, items)
	for i := 0; i < items; i++ {
		tickets = append(tickets, map[string]any{"id": startID + int64(i), "subject": "t"})
	}
	page := map[string]any{
		"tickets":       tickets,
		"end_time":      endTime,
		"end_of_stream": eos,
	}
	if next != "" {
		page["next_page"] = next
	}
	return page
}

func TestIncrementalTicketsRejectsNegativeStart(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	_, err := c.IncrementalTickets(context.Background(), -1, nil, 0)
	assert.True(t, IsValidation(err))
}

func TestIncrementalTicketsMaxResultsTruncates(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/incremental/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		calls++
		next := "http://" + r.Host + "/incremental/tickets.json?start_time=200"
		json.NewEncoder(w).Encode(incrementalPage(3, 1, 200, next, false))
	})
	c := newTestClient(t, mux)

	res, err := c.IncrementalTickets(context.Background(), 100, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "max_results reached on the first page")
	assert.Equal(t, 1, res.Count)
	assert.True(t, res.HasMore)
	require.NotNil(t, res.NextStartTime)
	assert.Equal(t, int64(200), *res.NextStartTime)
}

func TestIncrementalTicketsEndOfStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/incremental/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(incrementalPage(2, 1, 500, "", true))
	})
	c := newTestClient(t, mux)

	res, err := c.IncrementalTickets(context.Background(), 100, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.False(t, res.HasMore)
	assert.Nil(t, res.NextStartTime, "a finished stream has no resume point")
}

func TestIncrementalTicketsClockSkewBump(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/incremental/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		// end_time equal to the effective start would loop if fed back
		next := "http://" + r.Host + "/incremental/tickets.json?start_time=100"
		json.NewEncoder(w).Encode(incrementalPage(2, 1, 100, next, false))
	})
	c := newTestClient(t, mux)

	res, err := c.IncrementalTickets(context.Background(), 100, nil, 1)
	require.NoError(t, err)
	require.NotNil(t, res.NextStartTime)
	assert.Equal(t, int64(101), *res.NextStartTime, "resume point must move strictly forward")
}

func TestIncrementalTicketsFollowsNextPage(t *testing.T) {
	var starts []string
	mux := http.NewServeMux()
	mux.HandleFunc("/incremental/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start_time")
		starts = append(starts, start)
		if start == "100" {
			next := "http://" + r.Host + "/incremental/tickets.json?start_time=200"
			json.NewEncoder(w).Encode(incrementalPage(2, 1, 200, next, false))
			return
		}
		json.NewEncoder(w).Encode(incrementalPage(1, 3, 300, "", true))
	})
	c := newTestClient(t, mux)

	res, err := c.IncrementalTickets(context.Background(), 100, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200"}, starts)
	assert.Equal(t, 3, res.Count)
	assert.False(t, res.HasMore)
	assert.Nil(t, res.NextStartTime)
}

func TestIncrementalTicketsLoopSafety(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/incremental/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		calls++
		// a stuck API that keeps handing back the same link
		next := "http://" + r.Host + "/incremental/tickets.json?start_time=200"
		json.NewEncoder(w).Encode(incrementalPage(1, int64(calls), 200, next, false))
	})
	c := newTestClient(t, mux)

	res, err := c.IncrementalTickets(context.Background(), 100, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "a repeated next_page URL must end the walk")
	assert.Equal(t, 2, res.Count)
}

func TestIncrementalTicketsIncludePassthrough(t *testing.T) {
	var gotInclude string
	mux := http.NewServeMux()
	mux.HandleFunc("/incremental/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		gotInclude = r.URL.Query().Get("include")
		json.NewEncoder(w).Encode(incrementalPage(1, 1, 200, "", true))
	})
	c := newTestClient(t, mux)

	_, err := c.IncrementalTickets(context.Background(), 100, []string{"metric_sets", "slas"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "metric_sets,slas", gotInclude)
}

func TestIncrementalCursorRaisesStartAndPersists(t *testing.T) {
	var gotStart string
	mux := http.NewServeMux()
	mux.HandleFunc("/incremental/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start_time")
		next := "http://" + r.Host + "/incremental/tickets.json?start_time=600"
		json.NewEncoder(w).Encode(incrementalPage(1, 1, 600, next, false))
	})

	store := cursor.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SetCursor(ctx, "acme:incremental_tickets:primary", 500))

	c := newTestClient(t, mux)
	WithCursorStore(store, "primary")(c)

	res, err := c.IncrementalTickets(ctx, 100, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, "500", gotStart, "stored watermark raises the caller's start_time")
	require.NotNil(t, res.NextStartTime)
	assert.Equal(t, int64(600), *res.NextStartTime)

	saved, ok, err := store.GetCursor(ctx, "acme:incremental_tickets:primary")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(600), saved, "the new resume point is persisted")
}

func TestIncrementalCursorNeverLowersStart(t *testing.T) {
	var gotStart string
	mux := http.NewServeMux()
	mux.HandleFunc("/incremental/tickets.json", func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start_time")
		json.NewEncoder(w).Encode(incrementalPage(0, 0, 900, "", true))
	})

	store := cursor.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SetCursor(ctx, "acme:incremental_tickets:primary", 300))

	c := newTestClient(t, mux)
	WithCursorStore(store, "primary")(c)

	_, err := c.IncrementalTickets(ctx, 800, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "800", gotStart, "an older watermark must not rewind the caller")
}

func TestIncrementalMetricEventsEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/incremental/ticket_metric_events.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ticket_metric_events": []map[string]any{{"id": 1, "metric": "reply_time"}},
			"end_time":             700,
			"end_of_stream":        true,
		})
	})
	c := newTestClient(t, mux)

	res, err := c.IncrementalTicketMetricEvents(context.Background(), 100, 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "reply_time", res.Items[0]["metric"])
}

func TestStartTimeFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want int64
		ok   bool
	}{
		{"https://acme.zendesk.com/api/v2/incremental/tickets.json?start_time=1500", 1500, true},
		{"https://acme.zendesk.com/api/v2/incremental/tickets.json", 0, false},
		{"https://acme.zendesk.com/api/v2/incremental/tickets.json?start_time=abc", 0, false},
		{"https://acme.zendesk.com/api/v2/incremental/tickets.json?start_time=-5", 0, false},
	}
	for _, tt := range tests {
		got, ok := startTimeFromURL(tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}
