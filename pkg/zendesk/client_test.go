package zendesk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestClient builds a client against a local fake server with
// deterministic jitter and no real sleeping.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Subdomain: "acme", Email: "agent@example.com", APIToken: "token"},
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	c.rnd = func() float64 { return 0 }
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

// recordSleeps replaces the client's sleep with one that only records
// the requested delays.
func recordSleeps(c *Client) *[]time.Duration {
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return &slept
}

func int64p(v int64) *int64       { return &v }
func intp(v int) *int             { return &v }
func strp(v string) *string       { return &v }
func float64p(v float64) *float64 { return &v }
