package mcpserver

import (
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requestWithArgs(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestJSONResult(t *testing.T) {
	res, err := jsonResult(map[string]any{"count": 2})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.JSONEq(t, `{"count": 2}`, text.Text)
	assert.False(t, res.IsError)
}

func TestToolError(t *testing.T) {
	s := &Server{log: zap.NewNop()}
	res, err := s.toolError("search_tickets", errors.New("query cannot be empty"))
	require.NoError(t, err, "tool failures surface as results, not transport errors")
	assert.True(t, res.IsError)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "query cannot be empty", text.Text)
}

func TestOptInt64(t *testing.T) {
	req := requestWithArgs(map[string]any{
		"ticket_id": float64(42),
		"limit":     7,
		"label":     "not a number",
		"absent":    nil,
	})

	id := optInt64(req, "ticket_id")
	require.NotNil(t, id)
	assert.Equal(t, int64(42), *id)

	n := optInt(req, "limit")
	require.NotNil(t, n)
	assert.Equal(t, 7, *n)

	assert.Nil(t, optInt64(req, "label"))
	assert.Nil(t, optInt64(req, "absent"))
	assert.Nil(t, optInt64(req, "missing"))
}
