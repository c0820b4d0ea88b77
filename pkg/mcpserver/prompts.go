package mcpserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const ticketAnalysisTemplate = `
You are a helpful Zendesk support analyst. You've been asked to analyze ticket #%d.

Please fetch the ticket info and comments to analyze it and provide:
1. A summary of the issue
2. The current status and timeline
3. Key points of interaction

IMPORTANT: Before providing your analysis, search the Knowledge Base for articles related to the ticket subject and description. Use the search_kb_articles tool to find relevant solutions or documentation that might help resolve this issue.

Include relevant KB articles in your analysis if found, and suggest how they might help resolve the customer's issue.

Remember to be professional and focus on actionable insights.
`

const commentDraftTemplate = `
You are a helpful Zendesk support agent. You need to draft a response to ticket #%d.

IMPORTANT: First, search the Knowledge Base to see if there's an existing solution for this issue. Use the search_kb_articles tool to find relevant articles before drafting your response.

Please fetch the ticket info, comments and knowledge base to draft a professional and helpful response that:
1. Acknowledges the customer's concern
2. Addresses the specific issues raised
3. References relevant KB articles when applicable to provide solutions
4. Provides clear next steps or ask for specific details need to proceed
5. Maintains a friendly and professional tone
6. Ask for confirmation before commenting on the ticket

The response should be formatted well and ready to be posted as a comment.
`

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(
		mcp.NewPrompt("analyze-ticket",
			mcp.WithPromptDescription("Analyze a Zendesk ticket and provide insights"),
			mcp.WithArgument("ticket_id",
				mcp.ArgumentDescription("The ID of the ticket to analyze"),
				mcp.RequiredArgument(),
			),
		),
		s.handleAnalyzeTicketPrompt,
	)

	s.mcp.AddPrompt(
		mcp.NewPrompt("draft-ticket-response",
			mcp.WithPromptDescription("Draft a professional response to a Zendesk ticket"),
			mcp.WithArgument("ticket_id",
				mcp.ArgumentDescription("The ID of the ticket to respond to"),
				mcp.RequiredArgument(),
			),
		),
		s.handleDraftResponsePrompt,
	)
}

func (s *Server) handleAnalyzeTicketPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	ticketID, err := promptTicketID(req)
	if err != nil {
		return nil, err
	}
	return mcp.NewGetPromptResult(
		fmt.Sprintf("Analysis prompt for ticket #%d", ticketID),
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser,
				mcp.NewTextContent(strings.TrimSpace(fmt.Sprintf(ticketAnalysisTemplate, ticketID)))),
		},
	), nil
}

func (s *Server) handleDraftResponsePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	ticketID, err := promptTicketID(req)
	if err != nil {
		return nil, err
	}
	return mcp.NewGetPromptResult(
		fmt.Sprintf("Response draft prompt for ticket #%d", ticketID),
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser,
				mcp.NewTextContent(strings.TrimSpace(fmt.Sprintf(commentDraftTemplate, ticketID)))),
		},
	), nil
}

func promptTicketID(req mcp.GetPromptRequest) (int64, error) {
	raw, ok := req.Params.Arguments["ticket_id"]
	if !ok || raw == "" {
		return 0, fmt.Errorf("missing required argument: ticket_id")
	}
	ticketID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ticket_id %q", raw)
	}
	return ticketID, nil
}
