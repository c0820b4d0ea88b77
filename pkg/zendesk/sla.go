package zendesk

import (
	"context"
	"fmt"
	"strings"
)

// SLAPolicyList holds every SLA policy configured on the account.
type SLAPolicyList struct {
	SLAPolicies []map[string]any `json:"sla_policies"`
	Count       int              `json:"count"`
}

// GetSLAPolicies fetches all SLA policies.
func (c *Client) GetSLAPolicies(ctx context.Context) (*SLAPolicyList, error) {
	data, err := c.getJSON(ctx, "/slas/policies.json", nil)
	if err != nil {
		return nil, fmt.Errorf("get SLA policies: %w", err)
	}
	policies := objectSlice(data["sla_policies"])
	return &SLAPolicyList{SLAPolicies: policies, Count: len(policies)}, nil
}

// GetSLAPolicy fetches one SLA policy by id.
func (c *Client) GetSLAPolicy(ctx context.Context, policyID int64) (map[string]any, error) {
	data, err := c.getJSON(ctx, fmt.Sprintf("/slas/policies/%d.json", policyID), nil)
	if err != nil {
		return nil, fmt.Errorf("get SLA policy %d: %w", policyID, err)
	}
	policy, _ := data["sla_policy"].(map[string]any)
	if policy == nil {
		policy = map[string]any{}
	}
	return policy, nil
}

// SLABreach records one breached SLA metric.
type SLABreach struct {
	Metric      any `json:"metric"`
	InstanceID  any `json:"instance_id"`
	BreachedAt  any `json:"breached_at"`
	PolicyID    any `json:"policy_id"`
	PolicyTitle any `json:"policy_title"`
}

// SLAAtRisk records an SLA metric paused close to breaching.
type SLAAtRisk struct {
	Metric     any `json:"metric"`
	InstanceID any `json:"instance_id"`
	Status     any `json:"status"`
	Time       any `json:"time"`
}

// SLAApplication records one SLA policy being applied to a ticket.
type SLAApplication struct {
	PolicyID    any `json:"policy_id"`
	PolicyTitle any `json:"policy_title"`
	AppliedAt   any `json:"applied_at"`
}

// SLAStatus is the breach analysis of one ticket derived from its
// metric events. Status is breached, at_risk, or ok.
type SLAStatus struct {
	TicketID     int64            `json:"ticket_id"`
	Status       string           `json:"status"`
	HasBreaches  bool             `json:"has_breaches"`
	BreachCount  int              `json:"breach_count"`
	Breaches     []SLABreach      `json:"breaches"`
	AtRisk       []SLAAtRisk      `json:"at_risk"`
	ActiveSLAs   []SLAApplication `json:"active_slas"`
	TicketStatus string           `json:"ticket_status"`
	Priority     string           `json:"priority"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

// GetTicketSLAStatus derives SLA breach status for one ticket from its
// metric events.
func (c *Client) GetTicketSLAStatus(ctx context.Context, ticketID int64) (*SLAStatus, error) {
	ticket, err := c.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	events, err := c.GetTicketMetricEvents(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return analyzeSLAStatus(ticket, events.MetricEvents), nil
}

// analyzeSLAStatus walks a ticket's metric events in order, tracking
// the most recently applied SLA policy so breaches can be attributed
// to it.
func analyzeSLAStatus(ticket *Ticket, metricEvents []map[string]any) *SLAStatus {
	status := &SLAStatus{
		TicketID:     ticket.ID,
		Breaches:     make([]SLABreach, 0),
		AtRisk:       make([]SLAAtRisk, 0),
		ActiveSLAs:   make([]SLAApplication, 0),
		TicketStatus: ticket.Status,
		Priority:     ticket.Priority,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}

	var currentPolicyID, currentPolicyTitle any
	for _, event := range metricEvents {
		eventType, _ := event["type"].(string)
		switch eventType {
		case "apply_sla":
			policy, _ := event["sla_policy"].(map[string]any)
			currentPolicyID = policy["id"]
			currentPolicyTitle = policy["title"]
			status.ActiveSLAs = append(status.ActiveSLAs, SLAApplication{
				PolicyID:    currentPolicyID,
				PolicyTitle: currentPolicyTitle,
				AppliedAt:   event["time"],
			})
		case "breach":
			status.Breaches = append(status.Breaches, SLABreach{
				Metric:      event["metric"],
				InstanceID:  event["instance_id"],
				BreachedAt:  event["time"],
				PolicyID:    currentPolicyID,
				PolicyTitle: currentPolicyTitle,
			})
		case "pause":
			// a pause whose status mentions breach means the clock
			// stopped right at the edge
			if s := event["status"]; s != nil && strings.Contains(strings.ToLower(fmt.Sprintf("%v", s)), "breach") {
				status.AtRisk = append(status.AtRisk, SLAAtRisk{
					Metric:     event["metric"],
					InstanceID: event["instance_id"],
					Status:     s,
					Time:       event["time"],
				})
			}
		}
	}

	status.HasBreaches = len(status.Breaches) > 0
	status.BreachCount = len(status.Breaches)
	switch {
	case status.HasBreaches:
		status.Status = "breached"
	case len(status.AtRisk) > 0:
		status.Status = "at_risk"
	default:
		status.Status = "ok"
	}
	return status
}

// SLATicket pairs a ticket with its SLA analysis.
type SLATicket struct {
	Ticket
	SLAStatus *SLAStatus `json:"sla_status"`
}

// SLABreachSearchParams filters a breached-ticket search. BreachType
// narrows to one metric (first_reply_time, next_reply_time,
// resolution_time).
type SLABreachSearchParams struct {
	BreachType string
	Status     string
	Priority   string
	Limit      int
}

// SLABreachResult lists tickets with SLA breaches.
type SLABreachResult struct {
	Tickets          []SLATicket `json:"tickets"`
	Count            int         `json:"count"`
	BreachTypeFilter string      `json:"breach_type_filter,omitempty"`
	StatusFilter     string      `json:"status_filter,omitempty"`
	PriorityFilter   string      `json:"priority_filter,omitempty"`
	Note             string      `json:"note"`
}

// SearchTicketsWithSLABreaches finds tickets whose SLA has been
// breached. The search API cannot query breaches directly, so
// candidates are fetched by status/priority and each one's metric
// events are checked.
func (c *Client) SearchTicketsWithSLABreaches(ctx context.Context, p SLABreachSearchParams) (*SLABreachResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}

	var parts []string
	if p.Status != "" {
		parts = append(parts, "status:"+p.Status)
	}
	if p.Priority != "" {
		parts = append(parts, "priority:"+p.Priority)
	}
	query := "*"
	if len(parts) > 0 {
		query = strings.Join(parts, " ")
	}

	// overfetch, the per-ticket breach check discards most candidates
	export, err := c.SearchTicketsExport(ctx, query, "updated_at", "desc", limit*2)
	if err != nil {
		return nil, err
	}

	breached := make([]SLATicket, 0)
	for i := range export.Tickets {
		if len(breached) >= limit {
			break
		}
		status, err := c.GetTicketSLAStatus(ctx, export.Tickets[i].ID)
		if err != nil || !status.HasBreaches {
			continue
		}
		if p.BreachType != "" && !hasBreachOfType(status.Breaches, p.BreachType) {
			continue
		}
		breached = append(breached, SLATicket{Ticket: export.Tickets[i], SLAStatus: status})
	}

	return &SLABreachResult{
		Tickets:          breached,
		Count:            len(breached),
		BreachTypeFilter: p.BreachType,
		StatusFilter:     p.Status,
		PriorityFilter:   p.Priority,
		Note:             "Tickets with SLA breaches. Each ticket includes sla_status with breach details.",
	}, nil
}

func hasBreachOfType(breaches []SLABreach, breachType string) bool {
	for _, b := range breaches {
		if metric, ok := b.Metric.(string); ok && metric == breachType {
			return true
		}
	}
	return false
}

// SLAAtRiskResult lists tickets close to breaching their SLA.
type SLAAtRiskResult struct {
	Tickets        []SLATicket `json:"tickets"`
	Count          int         `json:"count"`
	StatusFilter   string      `json:"status_filter,omitempty"`
	PriorityFilter string      `json:"priority_filter,omitempty"`
	Note           string      `json:"note"`
}

// GetTicketsAtRiskOfBreach finds tickets at risk of breaching their SLA
// that have not breached yet. Defaults to unsolved tickets when no
// status filter is given.
func (c *Client) GetTicketsAtRiskOfBreach(ctx context.Context, status, priority string, limit int) (*SLAAtRiskResult, error) {
	if limit <= 0 {
		limit = 50
	}

	var parts []string
	if status != "" {
		parts = append(parts, "status:"+status)
	} else {
		parts = append(parts, "status<solved")
	}
	if priority != "" {
		parts = append(parts, "priority:"+priority)
	}

	export, err := c.SearchTicketsExport(ctx, strings.Join(parts, " "), "updated_at", "desc", limit*3)
	if err != nil {
		return nil, err
	}

	atRisk := make([]SLATicket, 0)
	for i := range export.Tickets {
		if len(atRisk) >= limit {
			break
		}
		slaStatus, err := c.GetTicketSLAStatus(ctx, export.Tickets[i].ID)
		if err != nil {
			continue
		}
		if slaStatus.Status != "at_risk" || slaStatus.HasBreaches {
			continue
		}
		atRisk = append(atRisk, SLATicket{Ticket: export.Tickets[i], SLAStatus: slaStatus})
	}

	return &SLAAtRiskResult{
		Tickets:        atRisk,
		Count:          len(atRisk),
		StatusFilter:   status,
		PriorityFilter: priority,
		Note:           "Tickets at risk of SLA breach. Each ticket includes sla_status with risk details.",
	}, nil
}
