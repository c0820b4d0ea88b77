package zendesk

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// IncrementalResult is one page-walk over an incremental export
// endpoint. NextStartTime is nil when HasMore is false; when set it is
// always strictly greater than the effective start of this walk, so
// feeding it back can never loop.
type IncrementalResult struct {
	Items         []map[string]any `json:"items"`
	Count         int              `json:"count"`
	HasMore       bool             `json:"has_more"`
	NextStartTime *int64           `json:"next_start_time"`
}

// IncrementalTickets walks /incremental/tickets.json from startTime.
// include side-loads related records (e.g. metric_sets, slas).
// maxResults <= 0 means unbounded.
func (c *Client) IncrementalTickets(ctx context.Context, startTime int64, include []string, maxResults int) (*IncrementalResult, error) {
	return c.incrementalFetch(ctx, "/incremental/tickets.json", "tickets",
		startTime, strings.Join(include, ","), maxResults, "incremental_tickets")
}

// IncrementalTicketEvents walks /incremental/ticket_events.json.
func (c *Client) IncrementalTicketEvents(ctx context.Context, startTime int64, include []string, maxResults int) (*IncrementalResult, error) {
	return c.incrementalFetch(ctx, "/incremental/ticket_events.json", "ticket_events",
		startTime, strings.Join(include, ","), maxResults, "incremental_ticket_events")
}

// IncrementalTicketMetricEvents walks /incremental/ticket_metric_events.json.
func (c *Client) IncrementalTicketMetricEvents(ctx context.Context, startTime int64, maxResults int) (*IncrementalResult, error) {
	return c.incrementalFetch(ctx, "/incremental/ticket_metric_events.json", "ticket_metric_events",
		startTime, "", maxResults, "incremental_ticket_metric_events")
}

// incrementalFetch is the generic incremental page walker. The stored
// cursor, when newer than startTime, raises the effective start; the
// caller's value is never lowered. next_page URLs are followed verbatim.
func (c *Client) incrementalFetch(ctx context.Context, path, itemsKey string, startTime int64, includeCSV string, maxResults int, cursorEndpoint string) (*IncrementalResult, error) {
	if startTime < 0 {
		return nil, validationErrorf("start_time must be >= 0")
	}

	effective := startTime
	var key string
	if c.cursors != nil && cursorEndpoint != "" {
		key = c.cursorKey(cursorEndpoint)
		if last, ok, err := c.cursors.GetCursor(ctx, key); err != nil {
			c.log.Debug("cursor read failed", zap.String("key", key), zap.Error(err))
		} else if ok && last > effective {
			effective = last
		}
	}

	params := url.Values{"start_time": {strconv.FormatInt(effective, 10)}}
	if includeCSV != "" {
		params.Set("include", includeCSV)
	}

	items := make([]map[string]any, 0)
	hasMore := false
	var nextStart *int64
	nextURL := ""
	seen := make(map[string]struct{})

	for {
		var data map[string]any
		var err error
		if nextURL != "" {
			data, err = c.getJSONURL(ctx, nextURL)
		} else {
			data, err = c.getJSON(ctx, path, params)
		}
		if err != nil {
			return nil, err
		}

		pageItems := objectSlice(data[itemsKey])
		if maxResults > 0 {
			if remaining := maxResults - len(items); remaining > 0 {
				if len(pageItems) > remaining {
					pageItems = pageItems[:remaining]
				}
				items = append(items, pageItems...)
			}
		} else {
			items = append(items, pageItems...)
		}

		rawNext, _ := data["next_page"].(string)
		if rawNext == "" {
			rawNext, _ = data["after_url"].(string)
		}
		eos := data["end_of_stream"] == true

		// end_time is authoritative for the resume point; fall back to
		// the start_time embedded in the next_page URL.
		var candidate *int64
		if et, ok := intValue(data["end_time"]); ok {
			candidate = &et
		} else if rawNext != "" {
			if st, ok := startTimeFromURL(rawNext); ok {
				candidate = &st
			}
		}
		if candidate != nil {
			nextStart = candidate
		}

		hasMore = rawNext != "" && !eos

		if maxResults > 0 && len(items) >= maxResults {
			break
		}
		if rawNext == "" || eos {
			break
		}
		if _, dup := seen[rawNext]; dup {
			// loop safety
			break
		}
		seen[rawNext] = struct{}{}
		nextURL = rawNext
	}

	// Clock-skew guard: the resume point must move strictly forward.
	if nextStart != nil && *nextStart <= effective {
		bumped := effective + 1
		nextStart = &bumped
	}
	if !hasMore {
		nextStart = nil
	}

	if c.cursors != nil && key != "" && nextStart != nil {
		if err := c.cursors.SetCursor(ctx, key, *nextStart); err != nil {
			// best effort; a failed write only costs re-fetching
			c.log.Debug("cursor write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return &IncrementalResult{
		Items:         items,
		Count:         len(items),
		HasMore:       hasMore,
		NextStartTime: nextStart,
	}, nil
}

// startTimeFromURL extracts the start_time query parameter of a
// next_page link.
func startTimeFromURL(rawURL string) (int64, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	v := u.Query().Get("start_time")
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// objectSlice narrows a decoded JSON array to its object elements.
func objectSlice(v any) []map[string]any {
	raw, _ := v.([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, el := range raw {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// intValue narrows a decoded JSON value to an integral int64.
func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
