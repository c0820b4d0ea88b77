package zendesk

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// RelatedTicket is a search hit annotated with why it was considered
// related and how strongly.
type RelatedTicket struct {
	Ticket
	RelevanceReason string  `json:"relevance_reason"`
	RelevanceScore  float64 `json:"relevance_score"`
}

// TicketRef identifies a ticket inside the reference block of a
// relationship result.
type TicketRef struct {
	ID             int64  `json:"id"`
	Subject        string `json:"subject"`
	RequesterID    *int64 `json:"requester_id"`
	OrganizationID *int64 `json:"organization_id"`
}

// RelatedTicketsResult is the outcome of a multi-strategy related
// ticket search.
type RelatedTicketsResult struct {
	RelatedTickets []RelatedTicket `json:"related_tickets"`
	Count          int             `json:"count"`
	Reference      TicketRef       `json:"reference_ticket"`
	SearchStrategy string          `json:"search_strategy"`
}

// FindRelatedTickets finds tickets related to ticketID by subject
// similarity, shared requester, or shared organization. Each strategy
// is best effort; failures are reported in SearchStrategy rather than
// failing the whole call.
func (c *Client) FindRelatedTickets(ctx context.Context, ticketID int64, limit int) (*RelatedTicketsResult, error) {
	if limit <= 0 {
		limit = 100
	}
	ref, err := c.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	related := make([]RelatedTicket, 0)
	seen := map[int64]bool{ticketID: true}
	strategies := make([]string, 0, 3)
	add := func(tickets []Ticket, reason string, score func(Ticket) float64) {
		for _, t := range tickets {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			related = append(related, RelatedTicket{Ticket: t, RelevanceReason: reason, RelevanceScore: score(t)})
		}
	}

	if terms := extractSearchTerms(ref.Subject); terms != "" {
		export, err := c.SearchTicketsExport(ctx, fmt.Sprintf("subject:%q", terms), "", "", limit)
		if err != nil {
			strategies = append(strategies, fmt.Sprintf("Subject search failed: %v", err))
		} else {
			add(export.Tickets, "similar_subject", func(t Ticket) float64 {
				return subjectSimilarity(ref.Subject, t.Subject)
			})
			if len(export.Tickets) > 0 {
				strategies = append(strategies, fmt.Sprintf("Found %d tickets with similar subjects", len(export.Tickets)))
			}
		}
	}

	if ref.RequesterID != nil {
		export, err := c.SearchTicketsExport(ctx, fmt.Sprintf("requester_id:%d", *ref.RequesterID), "", "", limit)
		if err != nil {
			strategies = append(strategies, fmt.Sprintf("Requester search failed: %v", err))
		} else {
			add(export.Tickets, "same_requester", func(Ticket) float64 { return 0.8 })
			if len(export.Tickets) > 0 {
				strategies = append(strategies, fmt.Sprintf("Found %d tickets from same requester", len(export.Tickets)))
			}
		}
	}

	if ref.OrganizationID != nil {
		export, err := c.SearchTicketsExport(ctx, fmt.Sprintf("organization_id:%d", *ref.OrganizationID), "", "", limit)
		if err != nil {
			strategies = append(strategies, fmt.Sprintf("Organization search failed: %v", err))
		} else {
			add(export.Tickets, "same_organization", func(Ticket) float64 { return 0.6 })
			if len(export.Tickets) > 0 {
				strategies = append(strategies, fmt.Sprintf("Found %d tickets from same organization", len(export.Tickets)))
			}
		}
	}

	// strongest matches first, most recently updated breaking ties
	sort.SliceStable(related, func(i, j int) bool {
		if related[i].RelevanceScore != related[j].RelevanceScore {
			return related[i].RelevanceScore > related[j].RelevanceScore
		}
		return related[i].UpdatedAt > related[j].UpdatedAt
	})
	if len(related) > limit {
		related = related[:limit]
	}

	strategy := "No search strategies executed"
	if len(strategies) > 0 {
		strategy = strings.Join(strategies, "; ")
	}
	return &RelatedTicketsResult{
		RelatedTickets: related,
		Count:          len(related),
		Reference: TicketRef{
			ID:             ref.ID,
			Subject:        ref.Subject,
			RequesterID:    ref.RequesterID,
			OrganizationID: ref.OrganizationID,
		},
		SearchStrategy: strategy,
	}, nil
}

// duplicateSimilarityThreshold is the minimum subject similarity for a
// ticket to count as a duplicate candidate.
const duplicateSimilarityThreshold = 0.7

// DuplicateCandidate is a potential duplicate of a reference ticket.
type DuplicateCandidate struct {
	Ticket
	SimilarityScore float64 `json:"similarity_score"`
	DuplicateReason string  `json:"duplicate_reason"`
}

// DuplicateTicketsResult lists duplicate candidates for one ticket.
type DuplicateTicketsResult struct {
	DuplicateCandidates []DuplicateCandidate `json:"duplicate_candidates"`
	Count               int                  `json:"count"`
	Reference           TicketRef            `json:"reference_ticket"`
	SimilarityThreshold float64              `json:"similarity_threshold"`
}

// FindDuplicateTickets identifies likely duplicates of ticketID:
// tickets whose subject is highly similar and that share the same
// requester or organization, plus exact subject matches.
func (c *Client) FindDuplicateTickets(ctx context.Context, ticketID int64, limit int) (*DuplicateTicketsResult, error) {
	if limit <= 0 {
		limit = 100
	}
	ref, err := c.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	candidates := make([]DuplicateCandidate, 0)
	seen := map[int64]bool{ticketID: true}

	if terms := extractSearchTerms(ref.Subject); terms != "" {
		// overfetch, similarity filtering discards most hits
		export, err := c.SearchTicketsExport(ctx, fmt.Sprintf("subject:%q", terms), "", "", limit*2)
		if err == nil {
			for _, t := range export.Tickets {
				if seen[t.ID] {
					continue
				}
				score := subjectSimilarity(ref.Subject, t.Subject)
				if score < duplicateSimilarityThreshold {
					continue
				}
				sameRequester := ref.RequesterID != nil && t.RequesterID != nil && *t.RequesterID == *ref.RequesterID
				sameOrg := ref.OrganizationID != nil && t.OrganizationID != nil && *t.OrganizationID == *ref.OrganizationID
				if !sameRequester && !sameOrg {
					continue
				}
				reason := "similar_subject"
				if sameRequester {
					reason += "_same_requester"
				}
				if sameOrg {
					reason += "_same_organization"
				}
				seen[t.ID] = true
				candidates = append(candidates, DuplicateCandidate{Ticket: t, SimilarityScore: score, DuplicateReason: reason})
			}
		}
	}

	if export, err := c.SearchTicketsExport(ctx, fmt.Sprintf("subject:%q", ref.Subject), "", "", limit); err == nil {
		for _, t := range export.Tickets {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			candidates = append(candidates, DuplicateCandidate{Ticket: t, SimilarityScore: 1.0, DuplicateReason: "exact_subject_match"})
		}
	}

	// strongest matches first, oldest duplicates breaking ties
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].SimilarityScore != candidates[j].SimilarityScore {
			return candidates[i].SimilarityScore > candidates[j].SimilarityScore
		}
		return candidates[i].CreatedAt < candidates[j].CreatedAt
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return &DuplicateTicketsResult{
		DuplicateCandidates: candidates,
		Count:               len(candidates),
		Reference: TicketRef{
			ID:             ref.ID,
			Subject:        ref.Subject,
			RequesterID:    ref.RequesterID,
			OrganizationID: ref.OrganizationID,
		},
		SimilarityThreshold: duplicateSimilarityThreshold,
	}, nil
}

// ThreadTicket is one entry in a followup thread: parent, child, or the
// reference ticket itself.
type ThreadTicket struct {
	ID           int64  `json:"id"`
	Subject      string `json:"subject"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	RequesterID  *int64 `json:"requester_id"`
	AssigneeID   *int64 `json:"assignee_id"`
	Relationship string `json:"relationship,omitempty"`
	Error        string `json:"error,omitempty"`
}

// TicketThread is a conversation thread reconstructed from via_id
// followup links.
type TicketThread struct {
	ThreadTickets     []ThreadTicket `json:"thread_tickets"`
	Count             int            `json:"count"`
	ThreadRoot        *ThreadTicket  `json:"thread_root"`
	ThreadStructure   string         `json:"thread_structure"`
	ReferenceTicketID int64          `json:"reference_ticket_id"`
}

func threadEntry(t *Ticket, relationship string) ThreadTicket {
	return ThreadTicket{
		ID:           t.ID,
		Subject:      t.Subject,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		RequesterID:  t.RequesterID,
		AssigneeID:   t.AssigneeID,
		Relationship: relationship,
	}
}

// FindTicketThread reconstructs the followup thread around ticketID.
// A ticket's via_id points at the ticket it was created as a followup
// to; children are found by searching via_id:ticketID.
func (c *Client) FindTicketThread(ctx context.Context, ticketID int64) (*TicketThread, error) {
	ref, err := c.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	thread := &TicketThread{
		ThreadTickets:     make([]ThreadTicket, 0),
		ReferenceTicketID: ticketID,
	}

	if ref.ViaID != nil {
		if parent, err := c.GetTicket(ctx, *ref.ViaID); err == nil {
			root := threadEntry(parent, "")
			thread.ThreadRoot = &root
			thread.ThreadTickets = append(thread.ThreadTickets, root)
		}
	}

	if export, err := c.SearchTicketsExport(ctx, fmt.Sprintf("via_id:%d", ticketID), "", "", 0); err == nil {
		for i := range export.Tickets {
			thread.ThreadTickets = append(thread.ThreadTickets, threadEntry(&export.Tickets[i], "child"))
		}
	}

	included := false
	for _, t := range thread.ThreadTickets {
		if t.ID == ticketID {
			included = true
			break
		}
	}
	if !included {
		thread.ThreadTickets = append(thread.ThreadTickets, threadEntry(ref, "reference"))
	}

	sort.SliceStable(thread.ThreadTickets, func(i, j int) bool {
		return thread.ThreadTickets[i].CreatedAt < thread.ThreadTickets[j].CreatedAt
	})
	thread.Count = len(thread.ThreadTickets)

	thread.ThreadStructure = "Single ticket"
	if thread.Count > 1 {
		if thread.ThreadRoot != nil {
			thread.ThreadStructure = fmt.Sprintf("Thread with %d tickets (parent + children)", thread.Count)
		} else {
			thread.ThreadStructure = fmt.Sprintf("Thread with %d tickets (children only)", thread.Count)
		}
	}
	return thread, nil
}

// TicketRelationships groups a ticket's parent, children, and siblings.
type TicketRelationships struct {
	Parent   *ThreadTicket  `json:"parent"`
	Children []ThreadTicket `json:"children"`
	Siblings []ThreadTicket `json:"siblings"`
}

// TicketRelationshipsResult describes how one ticket sits in a followup
// chain.
type TicketRelationshipsResult struct {
	Relationships     TicketRelationships `json:"relationships"`
	ParentTicket      *ThreadTicket       `json:"parent_ticket"`
	ChildTickets      []ThreadTicket      `json:"child_tickets"`
	SiblingTickets    []ThreadTicket      `json:"sibling_tickets"`
	RelationshipType  string              `json:"relationship_type"`
	ReferenceTicketID int64               `json:"reference_ticket_id"`
	TotalRelated      int                 `json:"total_related"`
}

// GetTicketRelationships resolves the parent, children, and siblings of
// ticketID via followup links. Parent and sibling lookups are best
// effort.
func (c *Client) GetTicketRelationships(ctx context.Context, ticketID int64) (*TicketRelationshipsResult, error) {
	ref, err := c.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	rel := TicketRelationships{
		Children: make([]ThreadTicket, 0),
		Siblings: make([]ThreadTicket, 0),
	}

	if ref.ViaID != nil {
		if parent, err := c.GetTicket(ctx, *ref.ViaID); err == nil {
			entry := threadEntry(parent, "parent")
			rel.Parent = &entry
		} else {
			rel.Parent = &ThreadTicket{
				ID:    *ref.ViaID,
				Error: fmt.Sprintf("Parent ticket not accessible: %v", err),
			}
		}
	}

	if export, err := c.SearchTicketsExport(ctx, fmt.Sprintf("via_id:%d", ticketID), "", "", 0); err == nil {
		for i := range export.Tickets {
			rel.Children = append(rel.Children, threadEntry(&export.Tickets[i], "child"))
		}
	}

	if ref.ViaID != nil {
		query := fmt.Sprintf("via_id:%d -id:%d", *ref.ViaID, ticketID)
		if export, err := c.SearchTicketsExport(ctx, query, "", "", 0); err == nil {
			for i := range export.Tickets {
				rel.Siblings = append(rel.Siblings, threadEntry(&export.Tickets[i], "sibling"))
			}
		}
	}

	relType := "Standalone ticket"
	switch {
	case rel.Parent != nil && len(rel.Children) > 0:
		relType = "Middle ticket in chain (has parent and children)"
	case rel.Parent != nil:
		relType = "Child ticket (has parent)"
	case len(rel.Children) > 0:
		relType = "Parent ticket (has children)"
	case len(rel.Siblings) > 0:
		relType = "Sibling ticket (shares parent with other tickets)"
	}

	total := len(rel.Children) + len(rel.Siblings)
	if rel.Parent != nil {
		total++
	}
	return &TicketRelationshipsResult{
		Relationships:     rel,
		ParentTicket:      rel.Parent,
		ChildTickets:      rel.Children,
		SiblingTickets:    rel.Siblings,
		RelationshipType:  relType,
		ReferenceTicketID: ticketID,
		TotalRelated:      total,
	}, nil
}

// TicketFieldCatalog lists every ticket field definition, split into
// custom and system fields.
type TicketFieldCatalog struct {
	Fields       []map[string]any `json:"fields"`
	CustomFields []map[string]any `json:"custom_fields"`
	SystemFields []map[string]any `json:"system_fields"`
	Count        int              `json:"count"`
	CustomCount  int              `json:"custom_count"`
	SystemCount  int              `json:"system_count"`
}

// GetTicketFields fetches all ticket field definitions, including
// custom field option lists. Fields carrying a custom_field_id are
// categorized as custom.
func (c *Client) GetTicketFields(ctx context.Context) (*TicketFieldCatalog, error) {
	catalog := &TicketFieldCatalog{
		Fields:       make([]map[string]any, 0),
		CustomFields: make([]map[string]any, 0),
		SystemFields: make([]map[string]any, 0),
	}
	pageURL := c.baseURL + "/ticket_fields.json"
	for pageURL != "" {
		data, err := c.getJSONURL(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("get ticket fields: %w", err)
		}
		catalog.Fields = append(catalog.Fields, objectSlice(data["ticket_fields"])...)
		pageURL, _ = data["next_page"].(string)
	}

	for _, field := range catalog.Fields {
		if field["custom_field_id"] != nil {
			catalog.CustomFields = append(catalog.CustomFields, field)
		} else {
			catalog.SystemFields = append(catalog.SystemFields, field)
		}
	}
	catalog.Count = len(catalog.Fields)
	catalog.CustomCount = len(catalog.CustomFields)
	catalog.SystemCount = len(catalog.SystemFields)
	return catalog, nil
}
