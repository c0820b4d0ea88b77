package zendesk

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SearchResult is a page-limited search through the standard search
// API, which caps at 1000 total results.
type SearchResult struct {
	Tickets   []Ticket `json:"tickets"`
	Count     int      `json:"count"`
	Query     string   `json:"query"`
	SortBy    string   `json:"sort_by,omitempty"`
	SortOrder string   `json:"sort_order,omitempty"`
	Limit     int      `json:"limit"`
	HasMore   bool     `json:"has_more"`
	Note      string   `json:"note"`
}

// SearchTickets searches with Zendesk query syntax through the standard
// search API. Use SearchTicketsExport for result sets past the API's
// 1000-result ceiling.
func (c *Client) SearchTickets(ctx context.Context, query, sortBy, sortOrder string, limit int) (*SearchResult, error) {
	if query == "" {
		return nil, validationErrorf("search query cannot be empty")
	}
	if limit <= 0 {
		limit = 100
	}
	limit = min(limit, 1000)

	params := url.Values{
		"query":    {query + " type:ticket"},
		"per_page": {strconv.Itoa(min(limit, 100))},
	}
	if sortBy != "" {
		params.Set("sort_by", sortBy)
	}
	if sortOrder != "" {
		params.Set("sort_order", sortOrder)
	}

	tickets := make([]Ticket, 0)
	pageURL := c.baseURL + "/search.json?" + params.Encode()
	for pageURL != "" && len(tickets) < limit {
		var page struct {
			Results  []rawTicket `json:"results"`
			NextPage *string     `json:"next_page"`
		}
		if err := c.getInto(ctx, pageURL, &page); err != nil {
			return nil, fmt.Errorf("search tickets: %w", err)
		}
		for i := range page.Results {
			if len(tickets) >= limit {
				break
			}
			tickets = append(tickets, page.Results[i].normalize())
		}
		if page.NextPage == nil {
			break
		}
		pageURL = *page.NextPage
	}

	return &SearchResult{
		Tickets:   tickets,
		Count:     len(tickets),
		Query:     query,
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Limit:     limit,
		HasMore:   len(tickets) >= limit,
		Note:      "Search API limited to 1000 total results. Use search_tickets_export for unlimited results.",
	}, nil
}

// EnhancedMatch is a ticket that passed the client-side filters of an
// enhanced search, annotated with how it matched.
type EnhancedMatch struct {
	Ticket
	RegexMatchField      string   `json:"regex_match_field,omitempty"`
	RegexPattern         string   `json:"regex_pattern,omitempty"`
	FuzzyMatchScore      float64  `json:"fuzzy_match_score,omitempty"`
	FuzzyMatchField      string   `json:"fuzzy_match_field,omitempty"`
	FuzzySearchTerm      string   `json:"fuzzy_search_term,omitempty"`
	ProximityMatchField  string   `json:"proximity_match_field,omitempty"`
	ProximityTerms       []string `json:"proximity_terms,omitempty"`
	ProximityDistance    int      `json:"proximity_distance,omitempty"`
	ProximityMaxDistance int      `json:"proximity_max_distance,omitempty"`
}

// EnhancedSearchParams configures SearchTicketsEnhanced. Filters apply
// in sequence: regex, then fuzzy, then proximity.
type EnhancedSearchParams struct {
	Query             string
	RegexPattern      string
	FuzzyTerm         string
	FuzzyThreshold    float64
	ProximityTerms    []string
	ProximityDistance int
	SortBy            string
	SortOrder         string
	Limit             int
}

type EnhancedResult struct {
	Tickets             []EnhancedMatch `json:"tickets"`
	Count               int             `json:"count"`
	Query               string          `json:"query"`
	SortBy              string          `json:"sort_by,omitempty"`
	SortOrder           string          `json:"sort_order,omitempty"`
	Limit               int             `json:"limit"`
	EnhancementsApplied string          `json:"enhancements_applied"`
}

// SearchTicketsEnhanced runs a base export search and layers regex,
// fuzzy, and proximity filters on top, client-side. The base search
// overfetches (2x limit) to leave the filters room.
func (c *Client) SearchTicketsEnhanced(ctx context.Context, p EnhancedSearchParams) (*EnhancedResult, error) {
	if p.Query == "" {
		return nil, validationErrorf("base search query cannot be empty")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	fuzzyThreshold := p.FuzzyThreshold
	if fuzzyThreshold == 0 {
		fuzzyThreshold = 0.7
	}
	proximityDistance := p.ProximityDistance
	if proximityDistance == 0 {
		proximityDistance = 5
	}

	export, err := c.SearchTicketsExport(ctx, p.Query, p.SortBy, p.SortOrder, limit*2)
	if err != nil {
		return nil, err
	}

	matches := make([]EnhancedMatch, 0, len(export.Tickets))
	for _, t := range export.Tickets {
		matches = append(matches, EnhancedMatch{Ticket: t})
	}

	var applied []string
	if p.RegexPattern != "" {
		if matches, err = applyRegexFilter(matches, p.RegexPattern, nil); err != nil {
			return nil, err
		}
		applied = append(applied, fmt.Sprintf("regex_pattern: %s", p.RegexPattern))
	}
	if p.FuzzyTerm != "" {
		if matches, err = applyFuzzyFilter(matches, p.FuzzyTerm, fuzzyThreshold, nil); err != nil {
			return nil, err
		}
		applied = append(applied, fmt.Sprintf("fuzzy_term: %s (threshold: %g)", p.FuzzyTerm, fuzzyThreshold))
	}
	if len(p.ProximityTerms) >= 2 {
		if matches, err = applyProximityFilter(matches, p.ProximityTerms, proximityDistance, nil); err != nil {
			return nil, err
		}
		applied = append(applied, fmt.Sprintf("proximity_terms: %v (distance: %d)", p.ProximityTerms, proximityDistance))
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}
	enhancements := "none"
	if len(applied) > 0 {
		enhancements = strings.Join(applied, ", ")
	}
	return &EnhancedResult{
		Tickets:             matches,
		Count:               len(matches),
		Query:               p.Query,
		SortBy:              p.SortBy,
		SortOrder:           p.SortOrder,
		Limit:               limit,
		EnhancementsApplied: enhancements,
	}, nil
}

var defaultFilterFields = []string{"subject", "description"}

func filterFieldText(t Ticket, field string) string {
	switch field {
	case "subject":
		return t.Subject
	case "description":
		return t.Description
	default:
		return sortFieldString(t, field)
	}
}

// applyRegexFilter keeps tickets where pattern (case-insensitive)
// matches any of the given fields. A ticket is kept once even when
// several fields match.
func applyRegexFilter(matches []EnhancedMatch, pattern string, fields []string) ([]EnhancedMatch, error) {
	if fields == nil {
		fields = defaultFilterFields
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, validationErrorf("invalid regex pattern: %v", err)
	}
	out := make([]EnhancedMatch, 0, len(matches))
	for _, m := range matches {
		for _, field := range fields {
			if text := filterFieldText(m.Ticket, field); text != "" && re.MatchString(text) {
				m.RegexMatchField = field
				m.RegexPattern = pattern
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

// applyFuzzyFilter keeps tickets whose best field similarity against
// term meets threshold, ordered best-first.
func applyFuzzyFilter(matches []EnhancedMatch, term string, threshold float64, fields []string) ([]EnhancedMatch, error) {
	if fields == nil {
		fields = defaultFilterFields
	}
	if threshold < 0.0 || threshold > 1.0 {
		return nil, validationErrorf("threshold must be between 0.0 and 1.0")
	}
	out := make([]EnhancedMatch, 0, len(matches))
	for _, m := range matches {
		bestScore := 0.0
		bestField := ""
		for _, field := range fields {
			if text := filterFieldText(m.Ticket, field); text != "" {
				if score := subjectSimilarity(term, text); score > bestScore {
					bestScore = score
					bestField = field
				}
			}
		}
		if bestScore >= threshold {
			m.FuzzyMatchScore = bestScore
			m.FuzzyMatchField = bestField
			m.FuzzySearchTerm = term
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FuzzyMatchScore > out[j].FuzzyMatchScore })
	return out, nil
}

// applyProximityFilter keeps tickets where every term occurs and at
// least one pair of terms appears within maxDistance words, ordered by
// closest pair.
func applyProximityFilter(matches []EnhancedMatch, terms []string, maxDistance int, fields []string) ([]EnhancedMatch, error) {
	if len(terms) < 2 {
		return matches, nil
	}
	if fields == nil {
		fields = defaultFilterFields
	}
	if maxDistance < 1 {
		return nil, validationErrorf("max distance must be at least 1")
	}
	out := make([]EnhancedMatch, 0, len(matches))
	for _, m := range matches {
		for _, field := range fields {
			text := filterFieldText(m.Ticket, field)
			if text == "" {
				continue
			}
			words := strings.Fields(strings.ToLower(text))

			positions := make(map[string][]int, len(terms))
			for _, term := range terms {
				lower := strings.ToLower(term)
				for i, word := range words {
					// partial matches count in both directions
					if strings.Contains(word, lower) || strings.Contains(lower, word) {
						positions[term] = append(positions[term], i)
					}
				}
			}
			allFound := true
			for _, term := range terms {
				if len(positions[term]) == 0 {
					allFound = false
					break
				}
			}
			if !allFound {
				continue
			}

			minDistance := -1
			for i := 0; i < len(terms); i++ {
				for j := i + 1; j < len(terms); j++ {
					for _, p1 := range positions[terms[i]] {
						for _, p2 := range positions[terms[j]] {
							d := p1 - p2
							if d < 0 {
								d = -d
							}
							if d <= maxDistance && (minDistance < 0 || d < minDistance) {
								minDistance = d
							}
						}
					}
				}
			}
			if minDistance >= 0 {
				m.ProximityMatchField = field
				m.ProximityTerms = terms
				m.ProximityDistance = minDistance
				m.ProximityMaxDistance = maxDistance
				out = append(out, m)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProximityDistance < out[j].ProximityDistance })
	return out, nil
}

var searchStopWords = stringSet([]string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "is", "are", "was", "were", "be", "been", "have",
	"has", "had", "do", "does", "did", "will", "would", "could", "should",
	"may", "might", "can", "must", "help", "issue", "problem", "question",
	"request", "ticket", "support",
})

// extractSearchTerms reduces a subject line to up to five meaningful
// keywords for similarity searches.
func extractSearchTerms(subject string) string {
	if subject == "" {
		return ""
	}
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(subject)) {
		cleaned := strings.Trim(word, `.,!?;:"()[]{}`)
		if cleaned == "" || len(cleaned) <= 2 || searchStopWords[cleaned] {
			continue
		}
		keywords = append(keywords, cleaned)
		if len(keywords) == 5 {
			break
		}
	}
	return strings.Join(keywords, " ")
}

// subjectSimilarity scores two strings with word-set Jaccard
// similarity, boosted by 0.2 when one contains the other.
func subjectSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	s1, s2 := strings.ToLower(a), strings.ToLower(b)
	if s1 == s2 {
		return 1.0
	}
	words1 := stringSet(strings.Fields(s1))
	words2 := stringSet(strings.Fields(s2))
	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}
	intersection := 0
	for w := range words1 {
		if words2[w] {
			intersection++
		}
	}
	union := len(words1) + len(words2) - intersection
	similarity := float64(intersection) / float64(union)
	if strings.Contains(s2, s1) || strings.Contains(s1, s2) {
		similarity = math.Min(1.0, similarity+0.2)
	}
	return similarity
}

// QueryParams is the structured input of BuildSearchQuery, mirroring
// Zendesk search operators.
type QueryParams struct {
	Status              string         `json:"status,omitempty"`
	Priority            string         `json:"priority,omitempty"`
	Assignee            string         `json:"assignee,omitempty"`
	Requester           string         `json:"requester,omitempty"`
	Organization        string         `json:"organization,omitempty"`
	Tags                []string       `json:"tags,omitempty"`
	TagsLogic           string         `json:"tags_logic,omitempty"`
	ExcludeTags         []string       `json:"exclude_tags,omitempty"`
	CreatedAfter        string         `json:"created_after,omitempty"`
	CreatedBefore       string         `json:"created_before,omitempty"`
	UpdatedAfter        string         `json:"updated_after,omitempty"`
	UpdatedBefore       string         `json:"updated_before,omitempty"`
	SolvedAfter         string         `json:"solved_after,omitempty"`
	SolvedBefore        string         `json:"solved_before,omitempty"`
	DueAfter            string         `json:"due_after,omitempty"`
	DueBefore           string         `json:"due_before,omitempty"`
	CustomFields        map[string]any `json:"custom_fields,omitempty"`
	SubjectContains     string         `json:"subject_contains,omitempty"`
	DescriptionContains string         `json:"description_contains,omitempty"`
	CommentContains     string         `json:"comment_contains,omitempty"`
}

type BuiltQuery struct {
	Query          string      `json:"query"`
	Examples       []string    `json:"examples"`
	ParametersUsed QueryParams `json:"parameters_used"`
}

// BuildSearchQuery assembles a Zendesk search query string from
// structured parameters. It never hits the network.
func BuildSearchQuery(p QueryParams) *BuiltQuery {
	var parts []string

	if p.Status != "" {
		parts = append(parts, "status:"+p.Status)
	}
	if p.Priority != "" {
		parts = append(parts, "priority:"+p.Priority)
	}
	if p.Assignee != "" {
		if strings.EqualFold(p.Assignee, "none") {
			parts = append(parts, "assignee:none")
		} else {
			parts = append(parts, "assignee:"+p.Assignee)
		}
	}
	if p.Requester != "" {
		parts = append(parts, "requester:"+p.Requester)
	}
	if p.Organization != "" {
		parts = append(parts, fmt.Sprintf("organization:%q", p.Organization))
	}

	if len(p.Tags) > 0 {
		if strings.EqualFold(p.TagsLogic, "AND") {
			for _, tag := range p.Tags {
				parts = append(parts, "tags:"+tag)
			}
		} else {
			tagParts := make([]string, 0, len(p.Tags))
			for _, tag := range p.Tags {
				tagParts = append(tagParts, "tags:"+tag)
			}
			parts = append(parts, strings.Join(tagParts, " "))
		}
	}
	for _, tag := range p.ExcludeTags {
		parts = append(parts, "-tags:"+tag)
	}

	for _, rng := range []struct{ field, after, before string }{
		{"created", p.CreatedAfter, p.CreatedBefore},
		{"updated", p.UpdatedAfter, p.UpdatedBefore},
		{"solved", p.SolvedAfter, p.SolvedBefore},
		{"due", p.DueAfter, p.DueBefore},
	} {
		if rng.after != "" {
			parts = append(parts, fmt.Sprintf("%s>=%s", rng.field, rng.after))
		}
		if rng.before != "" {
			parts = append(parts, fmt.Sprintf("%s<=%s", rng.field, rng.before))
		}
	}

	for _, fieldID := range sortedKeys(p.CustomFields) {
		value := p.CustomFields[fieldID]
		if s, ok := value.(string); ok && strings.Contains(s, " ") {
			parts = append(parts, fmt.Sprintf("custom_field_%s:%q", fieldID, s))
		} else {
			parts = append(parts, fmt.Sprintf("custom_field_%s:%v", fieldID, value))
		}
	}

	if p.SubjectContains != "" {
		parts = append(parts, fmt.Sprintf("subject:%q", p.SubjectContains))
	}
	if p.DescriptionContains != "" {
		parts = append(parts, fmt.Sprintf("description:%q", p.DescriptionContains))
	}
	if p.CommentContains != "" {
		parts = append(parts, fmt.Sprintf("comment:%q", p.CommentContains))
	}

	query := "*"
	if len(parts) > 0 {
		query = strings.Join(parts, " ")
	}

	var examples []string
	if query != "*" {
		examples = append(examples, "Generated query: "+query)
	}
	examples = append(examples,
		"status:open priority:high",
		"tags:bug tags:urgent",
		"assignee:none created>2024-01-01",
		`organization:"Acme Corp" -tags:spam`,
		"subject:login* description:password",
	)

	return &BuiltQuery{Query: query, Examples: examples, ParametersUsed: p}
}

// CountPair names a dimension value with its ticket count.
type CountPair struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type ResolutionTimeStats struct {
	AverageHours float64 `json:"average_hours"`
	TotalSolved  int     `json:"total_solved"`
	MinHours     float64 `json:"min_hours"`
	MaxHours     float64 `json:"max_hours"`
}

type SearchStatisticsBody struct {
	ByStatus       map[string]int      `json:"by_status"`
	ByPriority     map[string]int      `json:"by_priority"`
	ByAssignee     map[string]int      `json:"by_assignee"`
	ByRequester    map[string]int      `json:"by_requester"`
	ByOrganization map[string]int      `json:"by_organization"`
	ByTags         map[string]int      `json:"by_tags"`
	ByMonth        map[string]int      `json:"by_month"`
	ResolutionTime ResolutionTimeStats `json:"resolution_time"`
}

type SearchStatisticsSummary struct {
	MostCommonStatus       string     `json:"most_common_status,omitempty"`
	MostCommonPriority     string     `json:"most_common_priority,omitempty"`
	MostActiveRequester    *CountPair `json:"most_active_requester,omitempty"`
	MostActiveOrganization *CountPair `json:"most_active_organization,omitempty"`
	MostCommonTag          *CountPair `json:"most_common_tag,omitempty"`
	UnassignedTickets      int        `json:"unassigned_tickets"`
	AvgResolutionTimeHours float64    `json:"avg_resolution_time_hours"`
}

type SearchStatistics struct {
	Query        string                   `json:"query"`
	TotalTickets int                      `json:"total_tickets"`
	Statistics   *SearchStatisticsBody    `json:"statistics,omitempty"`
	Summary      *SearchStatisticsSummary `json:"summary,omitempty"`
	Message      string                   `json:"message,omitempty"`
}

// GetSearchStatistics runs a search and aggregates its results by
// status, priority, actors, tags, and month, with rough resolution
// times for solved tickets (created to last update).
func (c *Client) GetSearchStatistics(ctx context.Context, query, sortBy, sortOrder string, limit int) (*SearchStatistics, error) {
	if limit <= 0 {
		limit = 1000
	}
	export, err := c.SearchTicketsExport(ctx, query, sortBy, sortOrder, limit)
	if err != nil {
		return nil, err
	}
	tickets := export.Tickets
	if len(tickets) == 0 {
		return &SearchStatistics{Query: query, Message: "No tickets found for analysis"}, nil
	}

	statusCounts := map[string]int{}
	priorityCounts := map[string]int{}
	assigneeCounts := map[string]int{}
	requesterCounts := map[string]int{}
	organizationCounts := map[string]int{}
	tagCounts := map[string]int{}
	monthCounts := map[string]int{}
	var resolutionHours []float64
	assigned := 0

	for _, t := range tickets {
		statusCounts[orUnknown(t.Status)]++
		priorityCounts[orUnknown(t.Priority)]++
		if t.AssigneeID != nil {
			assigneeCounts[strconv.FormatInt(*t.AssigneeID, 10)]++
			assigned++
		}
		if t.RequesterID != nil {
			requesterCounts[strconv.FormatInt(*t.RequesterID, 10)]++
		}
		if t.OrganizationID != nil {
			organizationCounts[strconv.FormatInt(*t.OrganizationID, 10)]++
		}
		for _, tag := range t.Tags {
			tagCounts[tag]++
		}
		created, createdOK := parseTimestamp(t.CreatedAt)
		if createdOK {
			monthCounts[monthKeyOf(created)]++
		}
		if t.Status == "solved" && createdOK {
			if updated, ok := parseTimestamp(t.UpdatedAt); ok {
				resolutionHours = append(resolutionHours, updated.Sub(created).Hours())
			}
		}
	}

	resolution := ResolutionTimeStats{TotalSolved: len(resolutionHours)}
	if len(resolutionHours) > 0 {
		sorted := append([]float64(nil), resolutionHours...)
		sort.Float64s(sorted)
		sum := 0.0
		for _, v := range sorted {
			sum += v
		}
		resolution.AverageHours = round2(sum / float64(len(sorted)))
		resolution.MinHours = round2(sorted[0])
		resolution.MaxHours = round2(sorted[len(sorted)-1])
	}

	summary := &SearchStatisticsSummary{
		MostCommonStatus:       topKey(statusCounts),
		MostCommonPriority:     topKey(priorityCounts),
		MostActiveRequester:    topPair(requesterCounts),
		MostActiveOrganization: topPair(organizationCounts),
		MostCommonTag:          topPair(tagCounts),
		UnassignedTickets:      len(tickets) - assigned,
		AvgResolutionTimeHours: resolution.AverageHours,
	}

	return &SearchStatistics{
		Query:        query,
		TotalTickets: len(tickets),
		Statistics: &SearchStatisticsBody{
			ByStatus:       statusCounts,
			ByPriority:     priorityCounts,
			ByAssignee:     topN(assigneeCounts, 10),
			ByRequester:    topN(requesterCounts, 10),
			ByOrganization: topN(organizationCounts, 10),
			ByTags:         topN(tagCounts, 10),
			ByMonth:        monthCounts,
			ResolutionTime: resolution,
		},
		Summary: summary,
	}, nil
}

func topKey(m map[string]int) string {
	if pair := topPair(m); pair != nil {
		return pair.Key
	}
	return ""
}

func topPair(m map[string]int) *CountPair {
	keys := keysByCountDesc(m)
	if len(keys) == 0 {
		return nil
	}
	return &CountPair{Key: keys[0], Count: m[keys[0]]}
}

func topN(m map[string]int, n int) map[string]int {
	keys := keysByCountDesc(m)
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		out[k] = m[k]
	}
	return out
}

// DateRangeParams selects tickets by a date field, either with explicit
// bounds or a named relative period.
type DateRangeParams struct {
	DateField      string // created, updated, solved, due
	RangeType      string // custom or relative
	StartDate      string
	EndDate        string
	RelativePeriod string
	SortBy         string
	SortOrder      string
	Limit          int
}

// SearchByDateRange searches tickets within a date window. Relative
// periods (last_7_days, last_30_days, this_month, last_month,
// this_quarter, last_quarter) are resolved against the current time.
func (c *Client) SearchByDateRange(ctx context.Context, p DateRangeParams) (*ExportResult, error) {
	dateField := p.DateField
	if dateField == "" {
		dateField = "created"
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}

	startDate, endDate := p.StartDate, p.EndDate
	if p.RangeType == "relative" && p.RelativePeriod != "" {
		now := dateOf(c.now().UTC())
		switch p.RelativePeriod {
		case "last_7_days":
			startDate, endDate = dayKey(now.AddDate(0, 0, -7)), dayKey(now)
		case "last_30_days":
			startDate, endDate = dayKey(now.AddDate(0, 0, -30)), dayKey(now)
		case "this_month":
			startDate, endDate = dayKey(monthStart(now)), dayKey(now)
		case "last_month":
			lastMonthEnd := monthStart(now).AddDate(0, 0, -1)
			startDate, endDate = dayKey(monthStart(lastMonthEnd)), dayKey(lastMonthEnd)
		case "this_quarter":
			startDate, endDate = dayKey(quarterStart(now)), dayKey(now)
		case "last_quarter":
			qs := quarterStart(now)
			startDate, endDate = dayKey(qs.AddDate(0, 0, -90)), dayKey(qs)
		}
	}

	var parts []string
	if startDate != "" {
		parts = append(parts, fmt.Sprintf("%s>=%s", dateField, startDate))
	}
	if endDate != "" {
		parts = append(parts, fmt.Sprintf("%s<=%s", dateField, endDate))
	}
	query := "*"
	if len(parts) > 0 {
		query = strings.Join(parts, " ")
	}
	return c.SearchTicketsExport(ctx, query, p.SortBy, p.SortOrder, limit)
}

func quarterStart(d time.Time) time.Time {
	y, m, _ := d.Date()
	qm := time.Month((int(m)-1)/3*3 + 1)
	return time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
}

// SearchByTagsAdvanced searches by tag sets with AND/OR include logic
// and NOT exclusions.
func (c *Client) SearchByTagsAdvanced(ctx context.Context, includeTags, excludeTags []string, tagLogic, sortBy, sortOrder string, limit int) (*ExportResult, error) {
	if limit <= 0 {
		limit = 100
	}
	var parts []string
	if len(includeTags) > 0 {
		if strings.EqualFold(tagLogic, "AND") {
			for _, tag := range includeTags {
				parts = append(parts, "tags:"+tag)
			}
		} else {
			tagParts := make([]string, 0, len(includeTags))
			for _, tag := range includeTags {
				tagParts = append(tagParts, "tags:"+tag)
			}
			parts = append(parts, strings.Join(tagParts, " "))
		}
	}
	for _, tag := range excludeTags {
		parts = append(parts, "-tags:"+tag)
	}
	query := "*"
	if len(parts) > 0 {
		query = strings.Join(parts, " ")
	}
	return c.SearchTicketsExport(ctx, query, sortBy, sortOrder, limit)
}

// SearchByIntegrationSource searches tickets created through a specific
// channel (web, email, api, chat, ...).
func (c *Client) SearchByIntegrationSource(ctx context.Context, channel, sortBy, sortOrder string, limit int) (*ExportResult, error) {
	if channel == "" {
		return nil, validationErrorf("channel cannot be empty")
	}
	if limit <= 0 {
		limit = 100
	}
	return c.SearchTicketsExport(ctx, "via.channel:"+channel, sortBy, sortOrder, limit)
}

// batchSearchConcurrency caps concurrent export calls so a wide batch
// cannot trip the upstream rate limiter.
const batchSearchConcurrency = 3

// QueryResultEntry is the outcome of one query in a batch search.
type QueryResultEntry struct {
	Query   string   `json:"query"`
	Tickets []Ticket `json:"tickets"`
	Count   int      `json:"count"`
}

type BatchSearchResult struct {
	QueriesExecuted      int                         `json:"queries_executed"`
	TotalTickets         int                         `json:"total_tickets"`
	UniqueTickets        int                         `json:"unique_tickets"`
	QueryResults         map[string]QueryResultEntry `json:"query_results"`
	AllTickets           []Ticket                    `json:"all_tickets,omitempty"`
	DeduplicationApplied bool                        `json:"deduplication_applied"`
}

// BatchSearchTickets runs several export searches concurrently, at most
// batchSearchConcurrency at a time, and groups the results per query.
// With deduplicate set, AllTickets carries the id-deduplicated union in
// first-seen order.
func (c *Client) BatchSearchTickets(ctx context.Context, queries []string, deduplicate bool, sortBy, sortOrder string, limitPerQuery int) (*BatchSearchResult, error) {
	if len(queries) == 0 {
		return nil, validationErrorf("at least one query is required")
	}
	if limitPerQuery <= 0 {
		limitPerQuery = 100
	}

	results := make([]*ExportResult, len(queries))
	errs := make([]error, len(queries))
	sem := make(chan struct{}, batchSearchConcurrency)
	var wg sync.WaitGroup

	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = c.SearchTicketsExport(ctx, query, sortBy, sortOrder, limitPerQuery)
		}(i, query)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("batch search: %w", err)
		}
	}

	out := &BatchSearchResult{
		QueriesExecuted:      len(queries),
		QueryResults:         make(map[string]QueryResultEntry, len(queries)),
		DeduplicationApplied: deduplicate,
	}
	var allTickets []Ticket
	totalPerQuery := 0
	for i, query := range queries {
		tickets := results[i].Tickets
		out.QueryResults[fmt.Sprintf("query_%d", i+1)] = QueryResultEntry{
			Query:   query,
			Tickets: tickets,
			Count:   len(tickets),
		}
		allTickets = append(allTickets, tickets...)
		totalPerQuery += len(tickets)
	}

	if deduplicate {
		seen := make(map[int64]struct{}, len(allTickets))
		unique := make([]Ticket, 0, len(allTickets))
		for _, t := range allTickets {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			unique = append(unique, t)
		}
		out.AllTickets = unique
		out.TotalTickets = len(unique)
		out.UniqueTickets = len(unique)
	} else {
		out.TotalTickets = totalPerQuery
		out.UniqueTickets = totalPerQuery
	}
	return out, nil
}
