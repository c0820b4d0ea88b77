package zendesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// backoff returns the delay before retry number attempt+1:
// 2^attempt seconds plus jitter, capped at maxBackoff.
func (c *Client) backoff(attempt int) time.Duration {
	secs := math.Pow(2, float64(attempt)) + c.rnd()
	d := time.Duration(secs * float64(time.Second))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// retryAfter parses an integer-seconds Retry-After header. HTTP-date
// values are ignored and fall back to exponential backoff.
func retryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func truncateBody(b []byte) string {
	const limit = 2048
	if len(b) > limit {
		return string(b[:limit])
	}
	return string(b)
}

// doWithRetry performs one HTTP call with the shared retry policy:
// 429 and 5xx responses and connection failures are retried up to
// maxAttempts with exponential backoff, honoring an integer Retry-After
// header exactly. Any other non-2xx status surfaces immediately.
func (c *Client) doWithRetry(ctx context.Context, method, rawURL string, payload []byte, contentType string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
		if err != nil {
			return nil, validationErrorf("invalid request URL %q: %v", rawURL, err)
		}
		req.Header.Set("Authorization", c.authHeader)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &NetworkError{Err: err}
			if attempt == c.maxAttempts-1 {
				break
			}
			delay := c.backoff(attempt)
			c.log.Warn("zendesk request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(err))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &NetworkError{Err: readErr}
			if attempt == c.maxAttempts-1 {
				break
			}
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body), URL: rawURL}
			if attempt == c.maxAttempts-1 {
				break
			}
			delay := c.backoff(attempt)
			if ra, ok := retryAfter(resp.Header); ok {
				delay = ra
			}
			c.log.Warn("zendesk returned retryable status",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body), URL: rawURL}
		}
		return body, nil
	}
	return nil, &MaxRetriesError{Cause: lastErr}
}

// getJSON GETs an API path relative to the account's /api/v2 root.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.getJSONURL(ctx, u)
}

// getJSONURL GETs an absolute URL, typically a next_page link returned
// by the API, which is followed verbatim.
func (c *Client) getJSONURL(ctx context.Context, rawURL string) (map[string]any, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, rawURL, nil, "application/json")
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &APIError{Body: fmt.Sprintf("invalid JSON from %s: %v", rawURL, err), URL: rawURL}
	}
	return data, nil
}

// getInto GETs an absolute URL and decodes the response into v.
func (c *Client) getInto(ctx context.Context, rawURL string, v any) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, rawURL, nil, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &APIError{Body: fmt.Sprintf("invalid JSON from %s: %v", rawURL, err), URL: rawURL}
	}
	return nil
}

// postJSON POSTs a JSON payload to an API path.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (map[string]any, error) {
	return c.sendJSON(ctx, http.MethodPost, path, payload)
}

// putJSON PUTs a JSON payload to an API path.
func (c *Client) putJSON(ctx context.Context, path string, payload any) (map[string]any, error) {
	return c.sendJSON(ctx, http.MethodPut, path, payload)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, validationErrorf("unencodable payload for %s %s: %v", method, path, err)
	}
	body, err := c.doWithRetry(ctx, method, c.baseURL+path, raw, "application/json")
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &APIError{Body: fmt.Sprintf("invalid JSON from %s %s: %v", method, path, err)}
	}
	return data, nil
}
