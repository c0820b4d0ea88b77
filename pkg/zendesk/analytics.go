package zendesk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// allMetricGroups are the include_metrics values honored by
// GetCaseVolumeAnalytics, in the default order.
var allMetricGroups = []string{
	"response_times", "resolution_times", "channels", "forms",
	"assignments", "status_transitions", "satisfaction",
}

// CaseVolumeParams selects the window, filters, and optional metric
// groups for a case volume rollup. Zero values mean "default":
// dates default to a window covering the last 13 ISO weeks and 12
// months, IncludeMetrics nil means all groups, TimeBucket defaults to
// weekly.
type CaseVolumeParams struct {
	StartDate        string
	EndDate          string
	MaxResults       int
	IncludeMetrics   []string
	GroupBy          []string
	FilterByStatus   []string
	FilterByPriority []string
	FilterByTags     []string
	TimeBucket       string
}

// BucketPoint is one entry of the primary time series; exactly one of
// Date/Week/Month is set depending on the requested bucket.
type BucketPoint struct {
	Date  string `json:"date,omitempty"`
	Week  string `json:"week,omitempty"`
	Month string `json:"month,omitempty"`
	Count int    `json:"count"`
}

type WeekCount struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// MetricStats summarizes a sample of durations. The median of an
// even-length sample is the mean of the two middle values; everything
// is rounded to 2 decimals.
type MetricStats struct {
	Count  int     `json:"count"`
	Avg    float64 `json:"avg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

type RangeInfo struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Weeks      int    `json:"weeks"`
	Months     int    `json:"months"`
	Days       int    `json:"days"`
	TimeBucket string `json:"time_bucket"`
}

type VolumeTotals struct {
	Tickets           int            `json:"tickets"`
	AssignedTickets   int            `json:"assigned_tickets"`
	UnassignedTickets int            `json:"unassigned_tickets"`
	StatusBreakdown   map[string]int `json:"status_breakdown"`
	PriorityBreakdown map[string]int `json:"priority_breakdown"`
	TypeBreakdown     map[string]int `json:"type_breakdown"`
}

// TechnicianSeries is one assignee's zero-filled weekly volume.
// AssigneeID is nil for the synthetic "unassigned" bucket.
type TechnicianSeries struct {
	AssigneeID *int64      `json:"assignee_id"`
	DisplayKey string      `json:"display_key"`
	Weeks      []WeekCount `json:"weeks"`
	Total      int         `json:"total"`
}

type TagSeries struct {
	Tag   string      `json:"tag"`
	Total int         `json:"total"`
	Weeks []WeekCount `json:"weeks"`
}

type RequesterSeries struct {
	RequesterID int64       `json:"requester_id"`
	DisplayKey  string      `json:"display_key"`
	Total       int         `json:"total"`
	Weeks       []WeekCount `json:"weeks"`
}

type OrganizationSeries struct {
	OrganizationID int64       `json:"organization_id"`
	DisplayKey     string      `json:"display_key"`
	Total          int         `json:"total"`
	Weeks          []WeekCount `json:"weeks"`
}

type FieldValueSeries struct {
	FieldID string      `json:"field_id"`
	Value   string      `json:"value"`
	Total   int         `json:"total"`
	Weeks   []WeekCount `json:"weeks"`
}

type ResponseTimeMetrics struct {
	ReplyTime         MetricStats `json:"reply_time"`
	AgentWaitTime     MetricStats `json:"agent_wait_time"`
	RequesterWaitTime MetricStats `json:"requester_wait_time"`
}

type ResolutionTimeMetrics struct {
	FirstResolutionTime MetricStats `json:"first_resolution_time"`
	FullResolutionTime  MetricStats `json:"full_resolution_time"`
	OnHoldTime          MetricStats `json:"on_hold_time"`
}

type AssignmentMetrics struct {
	AssignmentTimes MetricStats `json:"assignment_times"`
}

type StatusTransitionMetrics struct {
	StatusCounts map[string]int         `json:"status_counts"`
	TimeInStatus map[string]MetricStats `json:"time_in_status"`
}

type SatisfactionMetrics struct {
	AverageScore      float64        `json:"average_score"`
	TotalRatings      int            `json:"total_ratings"`
	ScoreDistribution map[string]int `json:"score_distribution"`
}

// CaseVolumeRollup is the full analytics response. Optional sections
// are nil (omitted) when their metric group was excluded or empty.
// Maps marshal with sorted keys and all slices are built in sorted
// order, so the same inputs always serialize to identical bytes.
type CaseVolumeRollup struct {
	Query                   string                    `json:"query"`
	Range                   RangeInfo                 `json:"range"`
	Totals                  VolumeTotals              `json:"totals"`
	TimeSeries              []BucketPoint             `json:"time_series"`
	WeeklyCounts            []WeekCount               `json:"weekly_counts"`
	MonthlyCounts           []MonthCount              `json:"monthly_counts"`
	DailyCounts             []DayCount                `json:"daily_counts"`
	TechnicianWeeklyCounts  []TechnicianSeries        `json:"technician_weekly_counts"`
	ResponseTimeMetrics     *ResponseTimeMetrics      `json:"response_time_metrics,omitempty"`
	ResolutionTimeMetrics   *ResolutionTimeMetrics    `json:"resolution_time_metrics,omitempty"`
	ChannelBreakdown        map[string]int            `json:"channel_breakdown,omitempty"`
	FormBreakdown           map[string]int            `json:"form_breakdown,omitempty"`
	GroupBreakdown          map[string]int            `json:"group_breakdown,omitempty"`
	AssignmentMetrics       *AssignmentMetrics        `json:"assignment_metrics,omitempty"`
	StatusTransitionMetrics *StatusTransitionMetrics  `json:"status_transition_metrics,omitempty"`
	SatisfactionMetrics     *SatisfactionMetrics      `json:"satisfaction_metrics,omitempty"`
	TagBreakdown            map[string]int            `json:"tag_breakdown,omitempty"`
	TagWeeklyCounts         []TagSeries               `json:"tag_weekly_counts,omitempty"`
	RequesterWeeklyCounts   []RequesterSeries         `json:"requester_weekly_counts,omitempty"`
	RequesterBreakdown      map[string]int            `json:"requester_breakdown,omitempty"`
	OrganizationWeeklyCounts []OrganizationSeries     `json:"organization_weekly_counts,omitempty"`
	OrganizationBreakdown   map[string]int            `json:"organization_breakdown,omitempty"`
	CustomFieldBreakdown    map[string]map[string]int `json:"custom_field_breakdown,omitempty"`
	CustomFieldWeeklyCounts []FieldValueSeries        `json:"custom_field_weekly_counts,omitempty"`
	GroupedBreakdowns       map[string]map[string]int `json:"grouped_breakdowns,omitempty"`
	MaxResults              int                       `json:"max_results,omitempty"`
	IncludedMetrics         []string                  `json:"included_metrics"`
	GroupBy                 []string                  `json:"group_by"`
}

// GetCaseVolumeAnalytics aggregates ticket volume by week, month, day,
// and technician over one search-export pass, with optional metric
// groups and group-by dimensions. Buckets spanning the window are
// zero-filled, so quiet periods stay visible.
func (c *Client) GetCaseVolumeAnalytics(ctx context.Context, p CaseVolumeParams) (*CaseVolumeRollup, error) {
	today := dateOf(c.now().UTC())

	endDate := today
	if p.EndDate != "" {
		var err error
		if endDate, err = parseISODate(p.EndDate); err != nil {
			return nil, err
		}
	}

	var startDate time.Time
	if p.StartDate != "" {
		var err error
		if startDate, err = parseISODate(p.StartDate); err != nil {
			return nil, err
		}
	} else {
		// Default range covers the last 13 ISO weeks and 12 calendar
		// months, whichever reaches further back.
		weeklyStart := weekStart(endDate).AddDate(0, 0, -12*7)
		monthlyStart := shiftMonth(monthStart(endDate), -11)
		if weeklyStart.Before(monthlyStart) || weeklyStart.Equal(monthlyStart) {
			startDate = weeklyStart
		} else {
			startDate = monthlyStart
		}
	}

	if startDate.After(endDate) {
		return nil, validationErrorf("start_date must be on or before end_date")
	}

	timeBucket := p.TimeBucket
	if timeBucket == "" {
		timeBucket = "weekly"
	}

	query := fmt.Sprintf("created>=%s created<=%s", dayKey(startDate), dayKey(endDate))

	export, err := c.SearchTicketsExport(ctx, query, "created_at", "asc", p.MaxResults)
	if err != nil {
		return nil, err
	}
	tickets := export.Tickets

	includedMetrics := p.IncludeMetrics
	if includedMetrics == nil {
		includedMetrics = allMetricGroups
	}
	include := stringSet(includedMetrics)
	groupDims := stringSet(p.GroupBy)

	if len(p.FilterByStatus) > 0 {
		want := stringSet(p.FilterByStatus)
		tickets = filterTickets(tickets, func(t Ticket) bool { return want[t.Status] })
	}
	if len(p.FilterByPriority) > 0 {
		want := stringSet(p.FilterByPriority)
		tickets = filterTickets(tickets, func(t Ticket) bool { return want[t.Priority] })
	}
	if len(p.FilterByTags) > 0 {
		want := stringSet(p.FilterByTags)
		tickets = filterTickets(tickets, func(t Ticket) bool {
			for _, tag := range t.Tags {
				if want[tag] {
					return true
				}
			}
			return false
		})
	}

	weeklyCounts := map[string]int{}
	monthlyCounts := map[string]int{}
	dailyCounts := map[string]int{}
	technicianWeekly := map[string]map[string]int{}
	statusCounts := map[string]int{}
	priorityCounts := map[string]int{}
	typeCounts := map[string]int{}

	var responseTimes, firstResolutionTimes, fullResolutionTimes []float64
	var agentWaitTimes, requesterWaitTimes, onHoldTimes []float64

	channelCounts := map[string]int{}
	formCounts := map[string]int{}
	groupCounts := map[string]int{}

	var assignmentTimes []float64

	statusTransitionCounts := map[string]int{}
	timeInStatus := map[string][]float64{}

	var satisfactionScores []float64
	satisfactionCounts := map[string]int{}

	tagCounts := map[string]int{}
	tagWeekly := map[string]map[string]int{}

	requesterWeekly := map[string]map[string]int{}
	requesterCounts := map[string]int{}

	organizationWeekly := map[string]map[string]int{}
	organizationCounts := map[string]int{}

	customFieldCounts := map[string]map[string]int{}
	customFieldWeekly := map[string]map[string]map[string]int{}

	groupedCounts := map[string]map[string]int{}
	for _, dim := range p.GroupBy {
		groupedCounts[dim] = map[string]int{}
	}

	weekSequence := weekKeys(weekStart(startDate), weekStart(endDate))
	monthSequence := monthKeys(monthStart(startDate), monthStart(endDate))
	daySequence := dayKeys(startDate, endDate)

	totalTickets := 0
	assignedTickets := 0

	for _, t := range tickets {
		createdAt, ok := parseTimestamp(t.CreatedAt)
		if !ok {
			// unparseable created_at: skip the ticket, never abort
			continue
		}
		createdDate := dateOf(createdAt)
		if createdDate.Before(startDate) || createdDate.After(endDate) {
			continue
		}

		weekKey := isoWeekKey(createdDate)
		monthKey := monthKeyOf(createdDate)
		dayKeyStr := dayKey(createdDate)

		weeklyCounts[weekKey]++
		monthlyCounts[monthKey]++
		dailyCounts[dayKeyStr]++

		status := orUnknown(t.Status)
		statusCounts[status]++
		priority := orUnknown(t.Priority)
		priorityCounts[priority]++
		ticketType := orUnknown(deref(t.Type, ""))
		typeCounts[ticketType]++

		assigneeKey := "unassigned"
		if t.AssigneeID != nil {
			assigneeKey = strconv.FormatInt(*t.AssigneeID, 10)
		}
		bumpWeekly(technicianWeekly, assigneeKey, weekKey)

		totalTickets++
		if t.AssigneeID != nil {
			assignedTickets++
		}

		if include["channels"] && t.Via != nil && t.Via.Channel != "" {
			channelCounts[t.Via.Channel]++
			if groupDims["channel"] {
				groupedCounts["channel"][t.Via.Channel]++
			}
		}

		if include["forms"] && t.TicketFormID != nil && *t.TicketFormID != 0 {
			formKey := strconv.FormatInt(*t.TicketFormID, 10)
			formCounts[formKey]++
			if groupDims["form"] {
				groupedCounts["form"][formKey]++
			}
		}

		if t.GroupID != nil && *t.GroupID != 0 {
			groupKey := strconv.FormatInt(*t.GroupID, 10)
			groupCounts[groupKey]++
			if groupDims["group_id"] {
				groupedCounts["group_id"][groupKey]++
			}
		}

		if m := t.Metrics; m != nil {
			if include["response_times"] {
				appendSample(&responseTimes, m.ReplyTimeInSeconds)
				appendSample(&agentWaitTimes, m.AgentWaitTimeInSeconds)
				appendSample(&requesterWaitTimes, m.RequesterWaitTimeInSeconds)
			}
			if include["resolution_times"] {
				appendSample(&firstResolutionTimes, m.FirstResolutionTimeInSeconds)
				appendSample(&fullResolutionTimes, m.FullResolutionTimeInSeconds)
				appendSample(&onHoldTimes, m.OnHoldTimeInSeconds)
			}
		}

		// created-to-updated is an approximation; full assignment and
		// transition history would need the audit log.
		if include["assignments"] && t.AssigneeID != nil {
			if updatedAt, ok := parseTimestamp(t.UpdatedAt); ok {
				if d := updatedAt.Sub(createdAt).Seconds(); d > 0 {
					assignmentTimes = append(assignmentTimes, d)
				}
			}
		}

		if include["status_transitions"] {
			statusTransitionCounts[status]++
			if updatedAt, ok := parseTimestamp(t.UpdatedAt); ok {
				if d := updatedAt.Sub(createdAt).Seconds(); d > 0 {
					timeInStatus[status] = append(timeInStatus[status], d)
				}
			}
		}

		if include["satisfaction"] && t.Satisfaction != nil {
			if score, ok := floatValue(t.Satisfaction.Score); ok {
				satisfactionScores = append(satisfactionScores, score)
				satisfactionCounts[formatScore(score)]++
			}
		}

		for _, tag := range t.Tags {
			tagCounts[tag]++
			bumpWeekly(tagWeekly, tag, weekKey)
			if groupDims["tags"] {
				groupedCounts["tags"][tag]++
			}
		}

		if t.RequesterID != nil {
			requesterKey := strconv.FormatInt(*t.RequesterID, 10)
			bumpWeekly(requesterWeekly, requesterKey, weekKey)
			requesterCounts[requesterKey]++
			if groupDims["requester"] {
				groupedCounts["requester"][requesterKey]++
			}
		}

		if t.OrganizationID != nil {
			orgKey := strconv.FormatInt(*t.OrganizationID, 10)
			bumpWeekly(organizationWeekly, orgKey, weekKey)
			organizationCounts[orgKey]++
			if groupDims["organization"] {
				groupedCounts["organization"][orgKey]++
			}
		}

		for _, cf := range t.CustomFields {
			if cf.Value == nil {
				continue
			}
			fieldID := strconv.FormatInt(cf.ID, 10)
			fieldValue := formatFieldValue(cf.Value)
			if customFieldCounts[fieldID] == nil {
				customFieldCounts[fieldID] = map[string]int{}
			}
			customFieldCounts[fieldID][fieldValue]++
			if customFieldWeekly[fieldID] == nil {
				customFieldWeekly[fieldID] = map[string]map[string]int{}
			}
			bumpWeekly(customFieldWeekly[fieldID], fieldValue, weekKey)
			if groupDims["custom_fields"] {
				groupedCounts["custom_fields"][fieldID+":"+fieldValue]++
			}
		}

		if groupDims["priority"] {
			groupedCounts["priority"][priority]++
		}
		if groupDims["type"] {
			groupedCounts["type"][ticketType]++
		}
	}

	rollup := &CaseVolumeRollup{
		Query: query,
		Range: RangeInfo{
			StartDate:  dayKey(startDate),
			EndDate:    dayKey(endDate),
			Weeks:      len(weekSequence),
			Months:     len(monthSequence),
			Days:       len(daySequence),
			TimeBucket: timeBucket,
		},
		Totals: VolumeTotals{
			Tickets:           totalTickets,
			AssignedTickets:   assignedTickets,
			UnassignedTickets: totalTickets - assignedTickets,
			StatusBreakdown:   statusCounts,
			PriorityBreakdown: priorityCounts,
			TypeBreakdown:     typeCounts,
		},
		WeeklyCounts:    fillWeeks(weekSequence, weeklyCounts),
		MonthlyCounts:   fillMonths(monthSequence, monthlyCounts),
		DailyCounts:     fillDays(daySequence, dailyCounts),
		IncludedMetrics: includedMetrics,
		GroupBy:         p.GroupBy,
		MaxResults:      p.MaxResults,
	}

	switch timeBucket {
	case "daily":
		rollup.TimeSeries = make([]BucketPoint, 0, len(daySequence))
		for _, day := range daySequence {
			rollup.TimeSeries = append(rollup.TimeSeries, BucketPoint{Date: day, Count: dailyCounts[day]})
		}
	case "monthly":
		rollup.TimeSeries = make([]BucketPoint, 0, len(monthSequence))
		for _, month := range monthSequence {
			rollup.TimeSeries = append(rollup.TimeSeries, BucketPoint{Month: month, Count: monthlyCounts[month]})
		}
	default:
		rollup.TimeSeries = make([]BucketPoint, 0, len(weekSequence))
		for _, week := range weekSequence {
			rollup.TimeSeries = append(rollup.TimeSeries, BucketPoint{Week: week, Count: weeklyCounts[week]})
		}
	}

	for _, assigneeKey := range sortedKeys(technicianWeekly) {
		counts := technicianWeekly[assigneeKey]
		series := TechnicianSeries{
			DisplayKey: assigneeKey,
			Weeks:      fillWeeks(weekSequence, counts),
		}
		if assigneeKey != "unassigned" {
			if id, err := strconv.ParseInt(assigneeKey, 10, 64); err == nil {
				series.AssigneeID = &id
			}
		}
		for _, w := range series.Weeks {
			series.Total += w.Count
		}
		rollup.TechnicianWeeklyCounts = append(rollup.TechnicianWeeklyCounts, series)
	}

	if include["response_times"] {
		rollup.ResponseTimeMetrics = &ResponseTimeMetrics{
			ReplyTime:         calcStats(responseTimes),
			AgentWaitTime:     calcStats(agentWaitTimes),
			RequesterWaitTime: calcStats(requesterWaitTimes),
		}
	}
	if include["resolution_times"] {
		rollup.ResolutionTimeMetrics = &ResolutionTimeMetrics{
			FirstResolutionTime: calcStats(firstResolutionTimes),
			FullResolutionTime:  calcStats(fullResolutionTimes),
			OnHoldTime:          calcStats(onHoldTimes),
		}
	}
	if include["channels"] && len(channelCounts) > 0 {
		rollup.ChannelBreakdown = channelCounts
	}
	if include["forms"] && len(formCounts) > 0 {
		rollup.FormBreakdown = formCounts
	}
	if len(groupCounts) > 0 {
		rollup.GroupBreakdown = groupCounts
	}
	if include["assignments"] {
		rollup.AssignmentMetrics = &AssignmentMetrics{AssignmentTimes: calcStats(assignmentTimes)}
	}
	if include["status_transitions"] {
		stats := make(map[string]MetricStats, len(timeInStatus))
		for status, samples := range timeInStatus {
			stats[status] = calcStats(samples)
		}
		rollup.StatusTransitionMetrics = &StatusTransitionMetrics{
			StatusCounts: statusTransitionCounts,
			TimeInStatus: stats,
		}
	}
	if include["satisfaction"] {
		var avg float64
		for _, s := range satisfactionScores {
			avg += s
		}
		if len(satisfactionScores) > 0 {
			avg /= float64(len(satisfactionScores))
		}
		rollup.SatisfactionMetrics = &SatisfactionMetrics{
			AverageScore:      round2(avg),
			TotalRatings:      len(satisfactionScores),
			ScoreDistribution: satisfactionCounts,
		}
	}

	if len(tagCounts) > 0 {
		rollup.TagBreakdown = tagCounts
		for _, tag := range keysByCountDesc(tagCounts) {
			rollup.TagWeeklyCounts = append(rollup.TagWeeklyCounts, TagSeries{
				Tag:   tag,
				Total: tagCounts[tag],
				Weeks: fillWeeks(weekSequence, tagWeekly[tag]),
			})
		}
		if len(rollup.TagWeeklyCounts) > 50 {
			rollup.TagWeeklyCounts = rollup.TagWeeklyCounts[:50]
		}
	}

	if len(requesterCounts) > 0 {
		rollup.RequesterBreakdown = requesterCounts
		for _, key := range keysByCountDesc(requesterCounts) {
			id, _ := strconv.ParseInt(key, 10, 64)
			rollup.RequesterWeeklyCounts = append(rollup.RequesterWeeklyCounts, RequesterSeries{
				RequesterID: id,
				DisplayKey:  key,
				Total:       requesterCounts[key],
				Weeks:       fillWeeks(weekSequence, requesterWeekly[key]),
			})
		}
	}

	if len(organizationCounts) > 0 {
		rollup.OrganizationBreakdown = organizationCounts
		for _, key := range keysByCountDesc(organizationCounts) {
			id, _ := strconv.ParseInt(key, 10, 64)
			rollup.OrganizationWeeklyCounts = append(rollup.OrganizationWeeklyCounts, OrganizationSeries{
				OrganizationID: id,
				DisplayKey:     key,
				Total:          organizationCounts[key],
				Weeks:          fillWeeks(weekSequence, organizationWeekly[key]),
			})
		}
	}

	if len(customFieldCounts) > 0 {
		rollup.CustomFieldBreakdown = map[string]map[string]int{}
		fieldIDs := make([]string, 0, len(customFieldCounts))
		for id := range customFieldCounts {
			fieldIDs = append(fieldIDs, id)
		}
		sort.Slice(fieldIDs, func(i, j int) bool {
			ti, tj := sumCounts(customFieldCounts[fieldIDs[i]]), sumCounts(customFieldCounts[fieldIDs[j]])
			if ti != tj {
				return ti > tj
			}
			return fieldIDs[i] < fieldIDs[j]
		})
		for _, fieldID := range fieldIDs {
			// top 20 values per field keeps responses bounded
			topValues := keysByCountDesc(customFieldCounts[fieldID])
			if len(topValues) > 20 {
				topValues = topValues[:20]
			}
			breakdown := make(map[string]int, len(topValues))
			for _, value := range topValues {
				breakdown[value] = customFieldCounts[fieldID][value]
				rollup.CustomFieldWeeklyCounts = append(rollup.CustomFieldWeeklyCounts, FieldValueSeries{
					FieldID: fieldID,
					Value:   value,
					Total:   customFieldCounts[fieldID][value],
					Weeks:   fillWeeks(weekSequence, customFieldWeekly[fieldID][value]),
				})
			}
			rollup.CustomFieldBreakdown[fieldID] = breakdown
		}
		if len(rollup.CustomFieldWeeklyCounts) > 100 {
			rollup.CustomFieldWeeklyCounts = rollup.CustomFieldWeeklyCounts[:100]
		}
	}

	if len(p.GroupBy) > 0 {
		rollup.GroupedBreakdowns = groupedCounts
	}

	return rollup, nil
}

func filterTickets(tickets []Ticket, keep func(Ticket) bool) []Ticket {
	out := tickets[:0:0]
	for _, t := range tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func bumpWeekly(m map[string]map[string]int, key, week string) {
	if m[key] == nil {
		m[key] = map[string]int{}
	}
	m[key][week]++
}

func appendSample(samples *[]float64, v *float64) {
	if v != nil {
		*samples = append(*samples, *v)
	}
}

func sumCounts(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// keysByCountDesc orders map keys by count descending, breaking ties
// lexicographically so output never depends on map iteration order.
func keysByCountDesc(m map[string]int) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool { return m[keys[i]] > m[keys[j]] })
	return keys
}

func calcStats(values []float64) MetricStats {
	if len(values) == 0 {
		return MetricStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return MetricStats{
		Count:  n,
		Avg:    round2(sum / float64(n)),
		Min:    round2(sorted[0]),
		Max:    round2(sorted[n-1]),
		Median: round2(median),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func formatFieldValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// --- calendar helpers ---

// dateOf truncates t to its calendar date, normalized to UTC midnight
// so dates compare with Before/After/Equal.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekStart returns the Monday of d's ISO week.
func weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func monthStart(d time.Time) time.Time {
	y, m, _ := d.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// shiftMonth moves d by offset months, clamping the day to the target
// month's length (AddDate would overflow Jan 31 + 1 month into March).
func shiftMonth(d time.Time, offset int) time.Time {
	y, m, day := d.Date()
	monthIndex := int(m) - 1 + offset
	year := y + floorDiv(monthIndex, 12)
	month := time.Month(floorMod(monthIndex, 12) + 1)
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return ((a % b) + b) % b
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isoWeekKey(d time.Time) string {
	year, week := d.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthKeyOf(d time.Time) string {
	y, m, _ := d.Date()
	return fmt.Sprintf("%d-%02d", y, int(m))
}

func dayKey(d time.Time) string {
	return d.Format("2006-01-02")
}

func weekKeys(start, end time.Time) []string {
	var keys []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 7) {
		keys = append(keys, isoWeekKey(cur))
	}
	return keys
}

func monthKeys(start, end time.Time) []string {
	var keys []string
	for cur := start; !cur.After(end); cur = shiftMonth(cur, 1) {
		keys = append(keys, monthKeyOf(cur))
	}
	return keys
}

func dayKeys(start, end time.Time) []string {
	var keys []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		keys = append(keys, dayKey(cur))
	}
	return keys
}

func fillWeeks(sequence []string, counts map[string]int) []WeekCount {
	out := make([]WeekCount, 0, len(sequence))
	for _, week := range sequence {
		out = append(out, WeekCount{Week: week, Count: counts[week]})
	}
	return out
}

func fillMonths(sequence []string, counts map[string]int) []MonthCount {
	out := make([]MonthCount, 0, len(sequence))
	for _, month := range sequence {
		out = append(out, MonthCount{Month: month, Count: counts[month]})
	}
	return out
}

func fillDays(sequence []string, counts map[string]int) []DayCount {
	out := make([]DayCount, 0, len(sequence))
	for _, day := range sequence {
		out = append(out, DayCount{Date: day, Count: counts[day]})
	}
	return out
}

// parseISODate accepts YYYY-MM-DD (or a full timestamp, reduced to its
// date) and rejects everything else as a validation error.
func parseISODate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return dateOf(t), nil
	}
	if t, ok := parseTimestamp(value); ok {
		return dateOf(t), nil
	}
	return time.Time{}, validationErrorf("invalid date format %q, expected YYYY-MM-DD", value)
}

// parseTimestamp accepts the timestamp renditions seen in ticket
// payloads: RFC 3339, its space-separated variant, and bare dates.
func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
