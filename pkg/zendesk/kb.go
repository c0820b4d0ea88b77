package zendesk

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultLocale      = "en-us"
	articleSnippetSize = 500
)

// Article is one Help Center article with its full body.
type Article struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	HTMLURL          string   `json:"html_url"`
	SectionID        *int64   `json:"section_id"`
	Labels           []string `json:"labels"`
	AuthorID         *int64   `json:"author_id"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
	VoteSum          int      `json:"vote_sum"`
	VoteCount        int      `json:"vote_count"`
	CommentsDisabled bool     `json:"comments_disabled"`
	Draft            bool     `json:"draft"`
	Promoted         bool     `json:"promoted"`
}

// ArticleSummary is a search hit: article metadata plus a truncated
// body snippet instead of the full body.
type ArticleSummary struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	BodySnippet string   `json:"body_snippet"`
	URL         string   `json:"url"`
	SectionID   *int64   `json:"section_id"`
	Labels      []string `json:"labels"`
	UpdatedAt   string   `json:"updated_at"`
	AuthorID    *int64   `json:"author_id"`
	VoteSum     int      `json:"vote_sum"`
}

// rawArticle mirrors an article object as the Help Center API
// serializes it.
type rawArticle struct {
	ID               *int64   `json:"id"`
	Title            *string  `json:"title"`
	Body             *string  `json:"body"`
	HTMLURL          *string  `json:"html_url"`
	SectionID        *int64   `json:"section_id"`
	LabelNames       []string `json:"label_names"`
	AuthorID         *int64   `json:"author_id"`
	CreatedAt        *string  `json:"created_at"`
	UpdatedAt        *string  `json:"updated_at"`
	VoteSum          *int     `json:"vote_sum"`
	VoteCount        *int     `json:"vote_count"`
	CommentsDisabled *bool    `json:"comments_disabled"`
	Draft            *bool    `json:"draft"`
	Promoted         *bool    `json:"promoted"`
}

func (r *rawArticle) article() Article {
	a := Article{
		ID:               deref(r.ID, int64(0)),
		Title:            deref(r.Title, ""),
		Body:             deref(r.Body, ""),
		HTMLURL:          deref(r.HTMLURL, ""),
		SectionID:        r.SectionID,
		Labels:           r.LabelNames,
		AuthorID:         r.AuthorID,
		CreatedAt:        deref(r.CreatedAt, ""),
		UpdatedAt:        deref(r.UpdatedAt, ""),
		VoteSum:          deref(r.VoteSum, 0),
		VoteCount:        deref(r.VoteCount, 0),
		CommentsDisabled: deref(r.CommentsDisabled, false),
		Draft:            deref(r.Draft, false),
		Promoted:         deref(r.Promoted, false),
	}
	if a.Labels == nil {
		a.Labels = []string{}
	}
	return a
}

func (r *rawArticle) summary() ArticleSummary {
	a := r.article()
	return ArticleSummary{
		ID:          a.ID,
		Title:       a.Title,
		BodySnippet: snippet(a.Body, articleSnippetSize),
		URL:         a.HTMLURL,
		SectionID:   a.SectionID,
		Labels:      a.Labels,
		UpdatedAt:   a.UpdatedAt,
		AuthorID:    a.AuthorID,
		VoteSum:     a.VoteSum,
	}
}

func snippet(body string, size int) string {
	if len(body) > size {
		return body[:size] + "..."
	}
	return body
}

// ArticleSearchParams filters a Help Center article search.
type ArticleSearchParams struct {
	Query      string
	LabelNames []string
	SectionID  *int64
	Locale     string
	PerPage    int
	SortBy     string
}

// ArticleSearchResult is one page of article search hits.
type ArticleSearchResult struct {
	Articles   []ArticleSummary `json:"articles"`
	Count      int              `json:"count"`
	Query      string           `json:"query"`
	LabelNames []string         `json:"label_names,omitempty"`
	SectionID  *int64           `json:"section_id,omitempty"`
	SortBy     string           `json:"sort_by"`
	HasMore    bool             `json:"has_more"`
}

// SearchArticles searches Help Center articles. Results are
// deduplicated by article id and truncated to PerPage (capped at 100,
// the API limit).
func (c *Client) SearchArticles(ctx context.Context, p ArticleSearchParams) (*ArticleSearchResult, error) {
	if p.Query == "" {
		return nil, validationErrorf("search query cannot be empty")
	}
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	perPage = min(perPage, 100)
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "relevance"
	}

	params := url.Values{
		"query":    {p.Query},
		"per_page": {strconv.Itoa(perPage)},
		"sort_by":  {sortBy},
	}
	if p.Locale != "" {
		params.Set("locale", p.Locale)
	}
	if len(p.LabelNames) > 0 {
		params.Set("label_names", strings.Join(p.LabelNames, ","))
	}
	if p.SectionID != nil {
		params.Set("section_id", strconv.FormatInt(*p.SectionID, 10))
	}

	articles, hasMore, err := c.collectArticles(ctx, c.baseURL+"/help_center/articles/search.json?"+params.Encode(), perPage, "results")
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	return &ArticleSearchResult{
		Articles:   articles,
		Count:      len(articles),
		Query:      p.Query,
		LabelNames: p.LabelNames,
		SectionID:  p.SectionID,
		SortBy:     sortBy,
		HasMore:    hasMore,
	}, nil
}

// LabeledArticlesResult is one page of articles matching a label set.
type LabeledArticlesResult struct {
	Articles   []ArticleSummary `json:"articles"`
	Count      int              `json:"count"`
	LabelNames []string         `json:"label_names"`
	Locale     string           `json:"locale"`
	HasMore    bool             `json:"has_more"`
}

// SearchArticlesByLabels lists articles tagged with any of the given
// labels.
func (c *Client) SearchArticlesByLabels(ctx context.Context, labelNames []string, locale string, perPage int) (*LabeledArticlesResult, error) {
	if len(labelNames) == 0 {
		return nil, validationErrorf("at least one label name is required")
	}
	if locale == "" {
		locale = defaultLocale
	}
	if perPage <= 0 {
		perPage = 25
	}
	perPage = min(perPage, 100)

	params := url.Values{
		"label_names": {strings.Join(labelNames, ",")},
		"per_page":    {strconv.Itoa(perPage)},
	}
	listURL := fmt.Sprintf("%s/help_center/%s/articles.json?%s", c.baseURL, locale, params.Encode())
	articles, hasMore, err := c.collectArticles(ctx, listURL, perPage, "articles")
	if err != nil {
		return nil, fmt.Errorf("search articles by labels: %w", err)
	}
	return &LabeledArticlesResult{
		Articles:   articles,
		Count:      len(articles),
		LabelNames: labelNames,
		Locale:     locale,
		HasMore:    hasMore,
	}, nil
}

// collectArticles walks article pages under key, deduplicating by id,
// until limit is reached or pages run out. hasMore reports a cut-off.
func (c *Client) collectArticles(ctx context.Context, pageURL string, limit int, key string) ([]ArticleSummary, bool, error) {
	articles := make([]ArticleSummary, 0, limit)
	seen := make(map[int64]bool)
	for pageURL != "" {
		data, err := c.getJSONURL(ctx, pageURL)
		if err != nil {
			return nil, false, err
		}
		for _, obj := range objectSlice(data[key]) {
			raw, err := reencode[rawArticle](obj)
			if err != nil || raw.ID == nil {
				continue
			}
			if seen[*raw.ID] {
				continue
			}
			seen[*raw.ID] = true
			articles = append(articles, raw.summary())
			if len(articles) >= limit {
				return articles, true, nil
			}
		}
		pageURL, _ = data["next_page"].(string)
	}
	return articles, false, nil
}

// GetArticle fetches the full content of one article.
func (c *Client) GetArticle(ctx context.Context, articleID int64, locale string) (*Article, error) {
	if locale == "" {
		locale = defaultLocale
	}
	var payload struct {
		Article rawArticle `json:"article"`
	}
	articleURL := fmt.Sprintf("%s/help_center/%s/articles/%d.json", c.baseURL, locale, articleID)
	if err := c.getInto(ctx, articleURL, &payload); err != nil {
		return nil, fmt.Errorf("get article %d: %w", articleID, err)
	}
	a := payload.Article.article()
	return &a, nil
}

// Section is one Help Center section.
type Section struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Position    int    `json:"position"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	CategoryID  *int64 `json:"category_id"`
}

type rawSection struct {
	ID          *int64  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	HTMLURL     *string `json:"html_url"`
	Position    *int    `json:"position"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
	CategoryID  *int64  `json:"category_id"`
}

func (r *rawSection) section() Section {
	return Section{
		ID:          deref(r.ID, int64(0)),
		Name:        deref(r.Name, ""),
		Description: deref(r.Description, ""),
		URL:         deref(r.HTMLURL, ""),
		Position:    deref(r.Position, 0),
		CreatedAt:   deref(r.CreatedAt, ""),
		UpdatedAt:   deref(r.UpdatedAt, ""),
		CategoryID:  r.CategoryID,
	}
}

// SectionList holds every Help Center section for one locale.
type SectionList struct {
	Sections []Section `json:"sections"`
	Count    int       `json:"count"`
	Locale   string    `json:"locale"`
}

// ListSections lists all Help Center sections.
func (c *Client) ListSections(ctx context.Context, locale string) (*SectionList, error) {
	if locale == "" {
		locale = defaultLocale
	}
	result := &SectionList{Sections: make([]Section, 0), Locale: locale}
	pageURL := fmt.Sprintf("%s/help_center/%s/sections.json", c.baseURL, locale)
	for pageURL != "" {
		var payload struct {
			Sections []rawSection `json:"sections"`
			NextPage *string      `json:"next_page"`
		}
		if err := c.getInto(ctx, pageURL, &payload); err != nil {
			return nil, fmt.Errorf("list sections: %w", err)
		}
		for i := range payload.Sections {
			result.Sections = append(result.Sections, payload.Sections[i].section())
		}
		pageURL = ""
		if payload.NextPage != nil {
			pageURL = *payload.NextPage
		}
	}
	result.Count = len(result.Sections)
	return result, nil
}

// KBArticle is the compact article shape inside a knowledge base dump.
type KBArticle struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	UpdatedAt string `json:"updated_at"`
	URL       string `json:"url"`
}

// KBSection groups the articles of one section in a knowledge base
// dump, keyed by section name.
type KBSection struct {
	SectionID   int64       `json:"section_id"`
	Description string      `json:"description"`
	Articles    []KBArticle `json:"articles"`
}

// GetKnowledgeBase dumps the whole Help Center as section name ->
// articles, full bodies included.
func (c *Client) GetKnowledgeBase(ctx context.Context) (map[string]KBSection, error) {
	sections, err := c.ListSections(ctx, defaultLocale)
	if err != nil {
		return nil, err
	}

	kb := make(map[string]KBSection, len(sections.Sections))
	for _, section := range sections.Sections {
		articles := make([]KBArticle, 0)
		pageURL := fmt.Sprintf("%s/help_center/%s/sections/%d/articles.json", c.baseURL, defaultLocale, section.ID)
		for pageURL != "" {
			var payload struct {
				Articles []rawArticle `json:"articles"`
				NextPage *string      `json:"next_page"`
			}
			if err := c.getInto(ctx, pageURL, &payload); err != nil {
				return nil, fmt.Errorf("fetch articles for section %d: %w", section.ID, err)
			}
			for i := range payload.Articles {
				a := payload.Articles[i].article()
				articles = append(articles, KBArticle{
					ID:        a.ID,
					Title:     a.Title,
					Body:      a.Body,
					UpdatedAt: a.UpdatedAt,
					URL:       a.HTMLURL,
				})
			}
			pageURL = ""
			if payload.NextPage != nil {
				pageURL = *payload.NextPage
			}
		}
		kb[section.Name] = KBSection{
			SectionID:   section.ID,
			Description: section.Description,
			Articles:    articles,
		}
	}
	return kb, nil
}
