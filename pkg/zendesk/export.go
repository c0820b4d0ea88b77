package zendesk

import (
	"context"
	"net/url"
	"sort"
	"strconv"
)

const (
	exportPageSize = 1000
	exportNote     = "Results from search export API (no 1000 result limit). Sorting applied client-side."
)

// priorityRank and statusRank order ticket enums by urgency for
// client-side sorting. Unknown values sort below every known one.
var priorityRank = map[string]int{"urgent": 4, "high": 3, "normal": 2, "low": 1}

var statusRank = map[string]int{"new": 6, "open": 5, "pending": 4, "on-hold": 3, "solved": 2, "closed": 1}

// ExportResult is the outcome of a search-export walk. HasMore is true
// only when maxResults was supplied and truncated the result set.
type ExportResult struct {
	Tickets    []Ticket `json:"tickets"`
	Count      int      `json:"count"`
	Query      string   `json:"query"`
	SortBy     string   `json:"sort_by,omitempty"`
	SortOrder  string   `json:"sort_order,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
	HasMore    bool     `json:"has_more"`
	Note       string   `json:"note"`
}

// SearchTicketsExport searches tickets through the export API, which has
// no 1000-result ceiling but accepts no sort parameters. Sort params are
// therefore never sent upstream; ordering is applied client-side after
// collection. sortOrder defaults to descending when sortBy is given
// alone. maxResults <= 0 collects everything.
func (c *Client) SearchTicketsExport(ctx context.Context, query, sortBy, sortOrder string, maxResults int) (*ExportResult, error) {
	if query == "" {
		return nil, validationErrorf("search query cannot be empty")
	}

	params := url.Values{
		"query":        {query},
		"filter[type]": {"ticket"},
		"page[size]":   {strconv.Itoa(exportPageSize)},
	}
	pageURL := c.baseURL + "/search/export.json?" + params.Encode()

	tickets := make([]Ticket, 0)
collect:
	for pageURL != "" {
		var page struct {
			Results []rawTicket `json:"results"`
			Links   struct {
				Next string `json:"next"`
			} `json:"links"`
			Meta struct {
				HasMore bool `json:"has_more"`
			} `json:"meta"`
		}
		if err := c.getInto(ctx, pageURL, &page); err != nil {
			return nil, err
		}
		for i := range page.Results {
			if maxResults > 0 && len(tickets) >= maxResults {
				break collect
			}
			tickets = append(tickets, page.Results[i].normalize())
		}
		if maxResults > 0 && len(tickets) >= maxResults {
			break
		}
		if !page.Meta.HasMore || page.Links.Next == "" {
			break
		}
		pageURL = page.Links.Next
	}

	if sortBy != "" && len(tickets) > 0 {
		sortTickets(tickets, sortBy, sortOrder)
	}

	return &ExportResult{
		Tickets:    tickets,
		Count:      len(tickets),
		Query:      query,
		SortBy:     sortBy,
		SortOrder:  sortOrder,
		MaxResults: maxResults,
		HasMore:    maxResults > 0 && len(tickets) >= maxResults,
		Note:       exportNote,
	}, nil
}

// sortTickets stably sorts tickets in place. created_at/updated_at sort
// chronologically, priority and status by their rank tables, everything
// else lexicographically with missing values as "". An empty sortOrder
// means descending.
func sortTickets(tickets []Ticket, sortBy, sortOrder string) {
	desc := sortOrder != "asc"
	less := func(a, b Ticket) bool { return ticketLess(a, b, sortBy) }
	sort.SliceStable(tickets, func(i, j int) bool {
		if desc {
			return less(tickets[j], tickets[i])
		}
		return less(tickets[i], tickets[j])
	})
}

func ticketLess(a, b Ticket, sortBy string) bool {
	switch sortBy {
	case "created_at", "updated_at":
		av, bv := sortFieldString(a, sortBy), sortFieldString(b, sortBy)
		at, aok := parseTimestamp(av)
		bt, bok := parseTimestamp(bv)
		if aok && bok {
			return at.Before(bt)
		}
		return av < bv
	case "priority":
		return priorityRank[a.Priority] < priorityRank[b.Priority]
	case "status":
		return statusRank[a.Status] < statusRank[b.Status]
	default:
		return sortFieldString(a, sortBy) < sortFieldString(b, sortBy)
	}
}

// sortFieldString renders a sortable ticket field as a string, with nil
// and unknown fields as "".
func sortFieldString(t Ticket, field string) string {
	switch field {
	case "id":
		return strconv.FormatInt(t.ID, 10)
	case "subject":
		return t.Subject
	case "description":
		return t.Description
	case "status":
		return t.Status
	case "priority":
		return t.Priority
	case "type":
		return deref(t.Type, "")
	case "created_at":
		return t.CreatedAt
	case "updated_at":
		return t.UpdatedAt
	case "solved_at":
		return deref(t.SolvedAt, "")
	case "requester_id":
		return int64FieldString(t.RequesterID)
	case "assignee_id":
		return int64FieldString(t.AssigneeID)
	case "organization_id":
		return int64FieldString(t.OrganizationID)
	case "group_id":
		return int64FieldString(t.GroupID)
	case "ticket_form_id":
		return int64FieldString(t.TicketFormID)
	default:
		return ""
	}
}

func int64FieldString(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}
