package zendesk

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSLAStatusAttributesBreaches(t *testing.T) {
	ticket := &Ticket{ID: 42, Status: "open", Priority: "high"}
	events := []map[string]any{
		{"type": "apply_sla", "time": "t1", "sla_policy": map[string]any{"id": float64(11), "title": "Gold"}},
		{"type": "breach", "metric": "first_reply_time", "instance_id": float64(1), "time": "t2"},
		{"type": "apply_sla", "time": "t3", "sla_policy": map[string]any{"id": float64(22), "title": "Silver"}},
		{"type": "breach", "metric": "resolution_time", "instance_id": float64(2), "time": "t4"},
	}

	status := analyzeSLAStatus(ticket, events)
	assert.Equal(t, "breached", status.Status)
	assert.True(t, status.HasBreaches)
	assert.Equal(t, 2, status.BreachCount)
	require.Len(t, status.Breaches, 2)
	// each breach belongs to the policy active when it happened
	assert.Equal(t, "Gold", status.Breaches[0].PolicyTitle)
	assert.Equal(t, "Silver", status.Breaches[1].PolicyTitle)
	assert.Len(t, status.ActiveSLAs, 2)
}

func TestAnalyzeSLAStatusAtRisk(t *testing.T) {
	ticket := &Ticket{ID: 7, Status: "open"}
	events := []map[string]any{
		{"type": "apply_sla", "sla_policy": map[string]any{"id": float64(1), "title": "Gold"}},
		{"type": "pause", "metric": "next_reply_time", "status": "near_breach", "time": "t1"},
		{"type": "pause", "metric": "next_reply_time", "status": "on_hold", "time": "t2"},
	}

	status := analyzeSLAStatus(ticket, events)
	assert.Equal(t, "at_risk", status.Status)
	assert.False(t, status.HasBreaches)
	require.Len(t, status.AtRisk, 1, "only pauses mentioning breach count as risk")
	assert.Equal(t, "next_reply_time", status.AtRisk[0].Metric)
}

func TestAnalyzeSLAStatusOK(t *testing.T) {
	ticket := &Ticket{ID: 9, Status: "solved"}
	status := analyzeSLAStatus(ticket, nil)
	assert.Equal(t, "ok", status.Status)
	assert.Empty(t, status.Breaches)
	assert.Empty(t, status.AtRisk)
	assert.Equal(t, "solved", status.TicketStatus)
}

func TestHasBreachOfType(t *testing.T) {
	breaches := []SLABreach{
		{Metric: "first_reply_time"},
		{Metric: "resolution_time"},
	}
	assert.True(t, hasBreachOfType(breaches, "resolution_time"))
	assert.False(t, hasBreachOfType(breaches, "next_reply_time"))
	assert.False(t, hasBreachOfType(nil, "resolution_time"))
}

func TestGetTicketSLAStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets/42.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ticket": exportTicket(42, map[string]any{"priority": "urgent"})})
	})
	mux.HandleFunc("/tickets/42/metric_events.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"metric_events": []map[string]any{
				{"type": "apply_sla", "sla_policy": map[string]any{"id": 5, "title": "VIP"}},
				{"type": "breach", "metric": "first_reply_time", "time": "t1"},
			},
		})
	})
	c := newTestClient(t, mux)

	status, err := c.GetTicketSLAStatus(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), status.TicketID)
	assert.Equal(t, "breached", status.Status)
	assert.Equal(t, "urgent", status.Priority)
	require.Len(t, status.Breaches, 1)
	assert.Equal(t, "VIP", status.Breaches[0].PolicyTitle)
}

func TestGetSLAPolicies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/slas/policies.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"sla_policies": []map[string]any{{"id": 1, "title": "Gold"}, {"id": 2, "title": "Silver"}},
		})
	})
	c := newTestClient(t, mux)

	policies, err := c.GetSLAPolicies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, policies.Count)
	assert.Equal(t, "Gold", policies.SLAPolicies[0]["title"])
}

func TestSearchTicketsWithSLABreaches(t *testing.T) {
	var exportQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/search/export.json", func(w http.ResponseWriter, r *http.Request) {
		exportQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{exportTicket(1, nil), exportTicket(2, nil)},
		})
	})
	mux.HandleFunc("/tickets/1.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ticket": exportTicket(1, nil)})
	})
	mux.HandleFunc("/tickets/1/metric_events.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"metric_events": []map[string]any{{"type": "breach", "metric": "resolution_time", "time": "t1"}},
		})
	})
	mux.HandleFunc("/tickets/2.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ticket": exportTicket(2, nil)})
	})
	mux.HandleFunc("/tickets/2/metric_events.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"metric_events": []map[string]any{}})
	})
	c := newTestClient(t, mux)

	res, err := c.SearchTicketsWithSLABreaches(context.Background(), SLABreachSearchParams{
		Status: "open", Priority: "high", Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "status:open priority:high", exportQuery)
	require.Equal(t, 1, res.Count, "candidates without breaches are discarded")
	assert.Equal(t, int64(1), res.Tickets[0].ID)
	assert.True(t, res.Tickets[0].SLAStatus.HasBreaches)
}

func TestGetTicketsAtRiskOfBreachDefaultsToUnsolved(t *testing.T) {
	var exportQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/search/export.json", func(w http.ResponseWriter, r *http.Request) {
		exportQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{exportTicket(3, nil)}})
	})
	mux.HandleFunc("/tickets/3.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ticket": exportTicket(3, nil)})
	})
	mux.HandleFunc("/tickets/3/metric_events.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"metric_events": []map[string]any{
				{"type": "pause", "metric": "next_reply_time", "status": "breach_imminent", "time": "t1"},
			},
		})
	})
	c := newTestClient(t, mux)

	res, err := c.GetTicketsAtRiskOfBreach(context.Background(), "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, "status<solved", exportQuery)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "at_risk", res.Tickets[0].SLAStatus.Status)
}
