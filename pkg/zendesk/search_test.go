package zendesk

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTicketsAppendsTypeFilter(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{exportTicket(1, nil)},
		})
	})
	c := newTestClient(t, mux)

	res, err := c.SearchTickets(context.Background(), "status:open", "created_at", "desc", 10)
	require.NoError(t, err)
	assert.Equal(t, "status:open type:ticket", gotQuery)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "status:open", res.Query, "the type filter is an implementation detail")
}

func TestSearchTicketsLimitCap(t *testing.T) {
	var perPage string
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		perPage = r.URL.Query().Get("per_page")
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	})
	c := newTestClient(t, mux)

	res, err := c.SearchTickets(context.Background(), "status:open", "", "", 5000)
	require.NoError(t, err)
	assert.Equal(t, "100", perPage, "per_page never exceeds the API page cap")
	assert.Equal(t, 1000, res.Limit, "limit clamps to the search API ceiling")
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name   string
		params QueryParams
		want   string
	}{
		{"empty params wildcard", QueryParams{}, "*"},
		{
			"status and priority",
			QueryParams{Status: "open", Priority: "high"},
			"status:open priority:high",
		},
		{
			"assignee none",
			QueryParams{Assignee: "None"},
			"assignee:none",
		},
		{
			"organization quoted",
			QueryParams{Organization: "Acme Corp"},
			`organization:"Acme Corp"`,
		},
		{
			"tags default OR",
			QueryParams{Tags: []string{"bug", "urgent"}},
			"tags:bug tags:urgent",
		},
		{
			"tags AND with exclusions",
			QueryParams{Tags: []string{"bug", "urgent"}, TagsLogic: "and", ExcludeTags: []string{"spam"}},
			"tags:bug tags:urgent -tags:spam",
		},
		{
			"date ranges",
			QueryParams{CreatedAfter: "2024-01-01", UpdatedBefore: "2024-02-01"},
			"created>=2024-01-01 updated<=2024-02-01",
		},
		{
			"custom field with spaces quoted",
			QueryParams{CustomFields: map[string]any{"360001": "New York"}},
			`custom_field_360001:"New York"`,
		},
		{
			"text operators",
			QueryParams{SubjectContains: "login", CommentContains: "password reset"},
			`subject:"login" comment:"password reset"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built := BuildSearchQuery(tt.params)
			assert.Equal(t, tt.want, built.Query)
			assert.NotEmpty(t, built.Examples)
		})
	}
}

func TestExtractSearchTerms(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"", ""},
		{"Help with the billing issue!", "billing"},
		{"Cannot login to customer portal", "cannot login customer portal"},
		{"a an of to in", ""},
		{"one two three four five six seven", "one two three four five"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractSearchTerms(tt.subject), tt.subject)
	}
}

func TestSubjectSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, subjectSimilarity("", "anything"))
	assert.Equal(t, 1.0, subjectSimilarity("Login Failure", "login failure"))
	assert.Equal(t, 0.0, subjectSimilarity("alpha beta", "gamma delta"))

	// substring containment gets a 0.2 boost on top of word overlap
	plain := subjectSimilarity("password reset", "password reset broken")
	assert.InDelta(t, 2.0/3.0+0.2, plain, 1e-9)

	capped := subjectSimilarity("a b c", "a b c d")
	assert.LessOrEqual(t, capped, 1.0)
}

func TestApplyRegexFilter(t *testing.T) {
	matches := []EnhancedMatch{
		{Ticket: Ticket{ID: 1, Subject: "Error 500 on checkout"}},
		{Ticket: Ticket{ID: 2, Subject: "Feature request", Description: "error when saving"}},
		{Ticket: Ticket{ID: 3, Subject: "All good"}},
	}
	out, err := applyRegexFilter(matches, `error \d+|error when`, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "subject", out[0].RegexMatchField)
	assert.Equal(t, "description", out[1].RegexMatchField)

	_, err = applyRegexFilter(matches, `([`, nil)
	assert.True(t, IsValidation(err))
}

func TestApplyFuzzyFilter(t *testing.T) {
	matches := []EnhancedMatch{
		{Ticket: Ticket{ID: 1, Subject: "payment failed"}},
		{Ticket: Ticket{ID: 2, Subject: "payment failed again today"}},
		{Ticket: Ticket{ID: 3, Subject: "unrelated topic"}},
	}
	out, err := applyFuzzyFilter(matches, "payment failed", 0.5, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	// best score first
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, 1.0, out[0].FuzzyMatchScore)
	assert.Equal(t, "payment failed", out[0].FuzzySearchTerm)

	_, err = applyFuzzyFilter(matches, "payment", 1.5, nil)
	assert.True(t, IsValidation(err))
}

func TestApplyProximityFilter(t *testing.T) {
	matches := []EnhancedMatch{
		{Ticket: Ticket{ID: 1, Subject: "database connection timeout observed"}},
		{Ticket: Ticket{ID: 2, Subject: "database is slow but the timeout never appeared until the tenth retry attempt happened timeout"}},
		{Ticket: Ticket{ID: 3, Subject: "timeout only"}},
	}
	out, err := applyProximityFilter(matches, []string{"database", "timeout"}, 3, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, 2, out[0].ProximityDistance)

	_, err = applyProximityFilter(matches, []string{"a", "b"}, 0, nil)
	assert.True(t, IsValidation(err))

	// fewer than two terms is a no-op
	same, err := applyProximityFilter(matches, []string{"database"}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, matches, same)
}

func TestSearchByDateRangeRelativePeriods(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/search/export.json", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	})
	c := newTestClient(t, mux)
	c.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	_, err := c.SearchByDateRange(context.Background(), DateRangeParams{
		RangeType:      "relative",
		RelativePeriod: "last_7_days",
	})
	require.NoError(t, err)
	assert.Equal(t, "created>=2024-03-08 created<=2024-03-15", gotQuery)

	_, err = c.SearchByDateRange(context.Background(), DateRangeParams{
		DateField:      "updated",
		RangeType:      "relative",
		RelativePeriod: "this_month",
	})
	require.NoError(t, err)
	assert.Equal(t, "updated>=2024-03-01 updated<=2024-03-15", gotQuery)
}

func TestSearchByIntegrationSource(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/search/export.json", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	})
	c := newTestClient(t, mux)

	_, err := c.SearchByIntegrationSource(context.Background(), "email", "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, "via.channel:email", gotQuery)

	_, err = c.SearchByIntegrationSource(context.Background(), "", "", "", 10)
	assert.True(t, IsValidation(err))
}

func TestBatchSearchTickets(t *testing.T) {
	var mu sync.Mutex
	inflight, maxInflight := 0, 0

	mux := http.NewServeMux()
	mux.HandleFunc("/search/export.json", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inflight++
		if inflight > maxInflight {
			maxInflight = inflight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)

		var results []map[string]any
		switch r.URL.Query().Get("query") {
		case "status:open":
			results = []map[string]any{exportTicket(1, nil), exportTicket(2, nil)}
		case "priority:high":
			results = []map[string]any{exportTicket(2, nil), exportTicket(3, nil)}
		default:
			results = []map[string]any{exportTicket(4, nil)}
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})

		mu.Lock()
		inflight--
		mu.Unlock()
	})
	c := newTestClient(t, mux)

	queries := []string{"status:open", "priority:high", "tags:a", "tags:b", "tags:c", "tags:d"}
	res, err := c.BatchSearchTickets(context.Background(), queries, true, "", "", 50)
	require.NoError(t, err)

	assert.Equal(t, 6, res.QueriesExecuted)
	assert.LessOrEqual(t, maxInflight, batchSearchConcurrency)
	assert.True(t, res.DeduplicationApplied)
	// ids 1,2,3,4 once each
	assert.Equal(t, 4, res.UniqueTickets)
	assert.Len(t, res.AllTickets, 4)
	assert.Equal(t, "status:open", res.QueryResults["query_1"].Query)
	assert.Equal(t, 2, res.QueryResults["query_1"].Count)
}

func TestBatchSearchTicketsRequiresQueries(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	_, err := c.BatchSearchTickets(context.Background(), nil, false, "", "", 0)
	assert.True(t, IsValidation(err))
}

func TestGetSearchStatistics(t *testing.T) {
	c := newTestClient(t, exportHandler([]map[string]any{
		exportTicket(1, map[string]any{"status": "solved", "priority": "high", "requester_id": 10,
			"created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-02T00:00:00Z", "tags": []string{"billing"}}),
		exportTicket(2, map[string]any{"status": "open", "priority": "high", "requester_id": 10, "tags": []string{"billing", "vip"}}),
		exportTicket(3, map[string]any{"status": "open", "priority": "low", "assignee_id": 7}),
	}))

	stats, err := c.GetSearchStatistics(context.Background(), "status:open", "", "", 100)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTickets)
	require.NotNil(t, stats.Summary)
	assert.Equal(t, "open", stats.Summary.MostCommonStatus)
	assert.Equal(t, "high", stats.Summary.MostCommonPriority)
	require.NotNil(t, stats.Summary.MostActiveRequester)
	assert.Equal(t, "10", stats.Summary.MostActiveRequester.Key)
	assert.Equal(t, 2, stats.Summary.MostActiveRequester.Count)
	assert.Equal(t, 2, stats.Summary.UnassignedTickets)
	assert.Equal(t, 1, stats.Statistics.ResolutionTime.TotalSolved)
	assert.Equal(t, 24.0, stats.Statistics.ResolutionTime.AverageHours)
	assert.Equal(t, map[string]int{"billing": 2, "vip": 1}, stats.Statistics.ByTags)
}

func TestGetSearchStatisticsEmpty(t *testing.T) {
	c := newTestClient(t, exportHandler([]map[string]any{}))
	stats, err := c.GetSearchStatistics(context.Background(), "status:deleted", "", "", 100)
	require.NoError(t, err)
	assert.Equal(t, "No tickets found for analysis", stats.Message)
	assert.Nil(t, stats.Statistics)
}
