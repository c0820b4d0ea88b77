package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const knowledgeBaseURI = "zendesk://knowledge-base"

func (s *Server) registerResources() {
	s.mcp.AddResource(
		mcp.NewResource(
			knowledgeBaseURI,
			"Zendesk Knowledge Base",
			mcp.WithResourceDescription("Complete Help Center knowledge base grouped by section"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleKnowledgeBaseResource,
	)
}

func (s *Server) handleKnowledgeBaseResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	kb, err := s.client.GetKnowledgeBase(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch knowledge base: %w", err)
	}
	raw, err := json.MarshalIndent(kb, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode knowledge base: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      knowledgeBaseURI,
			MIMEType: "application/json",
			Text:     string(raw),
		},
	}, nil
}
