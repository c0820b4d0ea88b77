package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stackdesk/zendesk-mcp/pkg/zendesk"
)

func (s *Server) registerKBTools() {
	s.mcp.AddTool(
		mcp.NewTool("search_kb_articles",
			mcp.WithDescription("Search Help Center articles by content, title, and tags. Returns article summaries with URLs for quick reference. Use this to find existing solutions for customer issues."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query string (e.g., 'login issues', 'password reset')")),
			mcp.WithArray("labels", mcp.Description("Restrict results to articles with these labels")),
			mcp.WithNumber("section_id", mcp.Description("Restrict results to one section")),
			mcp.WithString("locale", mcp.Description("Locale for results"), mcp.DefaultString("en-us")),
			mcp.WithNumber("per_page", mcp.Description("Number of results (max 100)"), mcp.DefaultNumber(25)),
			mcp.WithString("sort_by", mcp.Description("Sort order for results"), mcp.DefaultString("relevance")),
		),
		s.handleSearchKBArticles,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_kb_article",
			mcp.WithDescription("Get the full content of a Help Center article by its ID"),
			mcp.WithNumber("article_id", mcp.Required(), mcp.Description("The ID of the article")),
			mcp.WithString("locale", mcp.Description("Locale for the article"), mcp.DefaultString("en-us")),
		),
		s.handleGetKBArticle,
	)

	s.mcp.AddTool(
		mcp.NewTool("search_kb_by_labels",
			mcp.WithDescription("List Help Center articles tagged with specific labels"),
			mcp.WithArray("labels", mcp.Required(), mcp.Description("Label names to match")),
			mcp.WithString("locale", mcp.Description("Locale for results"), mcp.DefaultString("en-us")),
			mcp.WithNumber("per_page", mcp.Description("Number of results (max 100)"), mcp.DefaultNumber(25)),
		),
		s.handleSearchKBByLabels,
	)

	s.mcp.AddTool(
		mcp.NewTool("list_kb_sections",
			mcp.WithDescription("List all Help Center sections"),
			mcp.WithString("locale", mcp.Description("Locale for results"), mcp.DefaultString("en-us")),
		),
		s.handleListKBSections,
	)
}

func (s *Server) handleSearchKBArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	result, err := s.client.SearchArticles(ctx, zendesk.ArticleSearchParams{
		Query:      query,
		LabelNames: req.GetStringSlice("labels", nil),
		SectionID:  optInt64(req, "section_id"),
		Locale:     req.GetString("locale", ""),
		PerPage:    req.GetInt("per_page", 25),
		SortBy:     req.GetString("sort_by", ""),
	})
	if err != nil {
		return s.toolError("search_kb_articles", err)
	}
	return jsonResult(result)
}

func (s *Server) handleGetKBArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	articleID := req.GetInt("article_id", 0)
	if articleID == 0 {
		return mcp.NewToolResultError("article_id is required"), nil
	}
	article, err := s.client.GetArticle(ctx, int64(articleID), req.GetString("locale", ""))
	if err != nil {
		return s.toolError("get_kb_article", err)
	}
	return jsonResult(article)
}

func (s *Server) handleSearchKBByLabels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	labels := req.GetStringSlice("labels", nil)
	if len(labels) == 0 {
		return mcp.NewToolResultError("labels is required"), nil
	}
	result, err := s.client.SearchArticlesByLabels(ctx, labels,
		req.GetString("locale", ""), req.GetInt("per_page", 25))
	if err != nil {
		return s.toolError("search_kb_by_labels", err)
	}
	return jsonResult(result)
}

func (s *Server) handleListKBSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sections, err := s.client.ListSections(ctx, req.GetString("locale", ""))
	if err != nil {
		return s.toolError("list_kb_sections", err)
	}
	return jsonResult(sections)
}
