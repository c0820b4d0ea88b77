package zendesk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyticsClient(t *testing.T, tickets []map[string]any) *Client {
	t.Helper()
	c := newTestClient(t, exportHandler(tickets))
	c.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return c
}

func TestCaseVolumeWeeklyZeroFill(t *testing.T) {
	c := analyticsClient(t, []map[string]any{
		exportTicket(1, map[string]any{"created_at": "2024-01-02T09:00:00Z", "assignee_id": 7}),
		exportTicket(2, map[string]any{"created_at": "2024-01-02T15:00:00Z", "assignee_id": 7}),
		exportTicket(3, map[string]any{"created_at": "2024-01-17T09:00:00Z"}),
	})

	rollup, err := c.GetCaseVolumeAnalytics(context.Background(), CaseVolumeParams{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-28",
	})
	require.NoError(t, err)

	assert.Equal(t, "created>=2024-01-01 created<=2024-01-28", rollup.Query)
	assert.Equal(t, "weekly", rollup.Range.TimeBucket)
	assert.Equal(t, 4, rollup.Range.Weeks)
	assert.Equal(t, 28, rollup.Range.Days)

	require.Len(t, rollup.WeeklyCounts, 4, "quiet weeks stay visible")
	assert.Equal(t, []WeekCount{
		{Week: "2024-W01", Count: 2},
		{Week: "2024-W02", Count: 0},
		{Week: "2024-W03", Count: 1},
		{Week: "2024-W04", Count: 0},
	}, rollup.WeeklyCounts)

	assert.Equal(t, 3, rollup.Totals.Tickets)
	assert.Equal(t, 2, rollup.Totals.AssignedTickets)
	assert.Equal(t, 1, rollup.Totals.UnassignedTickets)

	require.Len(t, rollup.TimeSeries, 4)
	assert.Equal(t, "2024-W01", rollup.TimeSeries[0].Week)
	assert.Equal(t, 2, rollup.TimeSeries[0].Count)

	// one real assignee plus the synthetic unassigned bucket
	require.Len(t, rollup.TechnicianWeeklyCounts, 2)
	assert.Equal(t, "7", rollup.TechnicianWeeklyCounts[0].DisplayKey)
	assert.Equal(t, 2, rollup.TechnicianWeeklyCounts[0].Total)
	assert.Equal(t, "unassigned", rollup.TechnicianWeeklyCounts[1].DisplayKey)
	assert.Nil(t, rollup.TechnicianWeeklyCounts[1].AssigneeID)
}

func TestCaseVolumeMonthlyTimeBucket(t *testing.T) {
	c := analyticsClient(t, []map[string]any{
		exportTicket(1, map[string]any{"created_at": "2024-01-10T00:00:00Z"}),
		exportTicket(2, map[string]any{"created_at": "2024-03-05T00:00:00Z"}),
	})

	rollup, err := c.GetCaseVolumeAnalytics(context.Background(), CaseVolumeParams{
		StartDate:  "2024-01-01",
		EndDate:    "2024-03-31",
		TimeBucket: "monthly",
	})
	require.NoError(t, err)

	assert.Equal(t, "monthly", rollup.Range.TimeBucket)
	require.Len(t, rollup.TimeSeries, 3)
	assert.Equal(t, []BucketPoint{
		{Month: "2024-01", Count: 1},
		{Month: "2024-02", Count: 0},
		{Month: "2024-03", Count: 1},
	}, rollup.TimeSeries)
}

func TestCaseVolumeSkipsTicketsOutsideRange(t *testing.T) {
	c := analyticsClient(t, []map[string]any{
		exportTicket(1, map[string]any{"created_at": "2024-01-10T00:00:00Z"}),
		exportTicket(2, map[string]any{"created_at": "2023-12-01T00:00:00Z"}),
		exportTicket(3, map[string]any{"created_at": "not-a-date"}),
	})

	rollup, err := c.GetCaseVolumeAnalytics(context.Background(), CaseVolumeParams{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rollup.Totals.Tickets)
}

func TestCaseVolumeStatusAndTagFilters(t *testing.T) {
	c := analyticsClient(t, []map[string]any{
		exportTicket(1, map[string]any{"status": "open", "tags": []string{"billing"}}),
		exportTicket(2, map[string]any{"status": "solved", "tags": []string{"billing"}}),
		exportTicket(3, map[string]any{"status": "open", "tags": []string{"outage"}}),
	})

	rollup, err := c.GetCaseVolumeAnalytics(context.Background(), CaseVolumeParams{
		StartDate:      "2024-01-01",
		EndDate:        "2024-01-31",
		FilterByStatus: []string{"open"},
		FilterByTags:   []string{"billing"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rollup.Totals.Tickets)
	assert.Equal(t, map[string]int{"open": 1}, rollup.Totals.StatusBreakdown)
}

func TestCaseVolumeIncludeMetricsSelection(t *testing.T) {
	c := analyticsClient(t, []map[string]any{
		exportTicket(1, map[string]any{
			"metric_set": map[string]any{"reply_time_in_seconds": 120.0},
			"via":        map[string]any{"channel": "email"},
		}),
	})

	rollup, err := c.GetCaseVolumeAnalytics(context.Background(), CaseVolumeParams{
		StartDate:      "2024-01-01",
		EndDate:        "2024-01-31",
		IncludeMetrics: []string{"response_times"},
	})
	require.NoError(t, err)
	require.NotNil(t, rollup.ResponseTimeMetrics)
	assert.Equal(t, 1, rollup.ResponseTimeMetrics.ReplyTime.Count)
	assert.Equal(t, 120.0, rollup.ResponseTimeMetrics.ReplyTime.Avg)
	assert.Nil(t, rollup.ResolutionTimeMetrics, "excluded groups stay out of the rollup")
	assert.Nil(t, rollup.ChannelBreakdown)
	assert.Equal(t, []string{"response_times"}, rollup.IncludedMetrics)
}

func TestCaseVolumeSatisfactionMetrics(t *testing.T) {
	c := analyticsClient(t, []map[string]any{
		exportTicket(1, map[string]any{"satisfaction_rating": map[string]any{"score": 5}}),
		exportTicket(2, map[string]any{"satisfaction_rating": map[string]any{"score": 2}}),
		exportTicket(3, map[string]any{"satisfaction_rating": map[string]any{"score": "good"}}),
	})

	rollup, err := c.GetCaseVolumeAnalytics(context.Background(), CaseVolumeParams{
		StartDate:      "2024-01-01",
		EndDate:        "2024-01-31",
		IncludeMetrics: []string{"satisfaction"},
	})
	require.NoError(t, err)
	require.NotNil(t, rollup.SatisfactionMetrics)
	// only numeric scores aggregate; string scores are skipped
	assert.Equal(t, 2, rollup.SatisfactionMetrics.TotalRatings)
	assert.Equal(t, 3.5, rollup.SatisfactionMetrics.AverageScore)
	assert.Equal(t, map[string]int{"5": 1, "2": 1}, rollup.SatisfactionMetrics.ScoreDistribution)
}

func TestCaseVolumeDefaultRange(t *testing.T) {
	c := analyticsClient(t, []map[string]any{})

	rollup, err := c.GetCaseVolumeAnalytics(context.Background(), CaseVolumeParams{})
	require.NoError(t, err)
	// the default window reaches back 12 calendar months from the pinned clock
	assert.Equal(t, "2023-04-01", rollup.Range.StartDate)
	assert.Equal(t, "2024-03-15", rollup.Range.EndDate)
	assert.Equal(t, 12, rollup.Range.Months)
}

func TestCaseVolumeDateValidation(t *testing.T) {
	c := analyticsClient(t, []map[string]any{})

	_, err := c.GetCaseVolumeAnalytics(context.Background(), CaseVolumeParams{
		StartDate: "2024-02-01", EndDate: "2024-01-01",
	})
	assert.True(t, IsValidation(err))

	_, err = c.GetCaseVolumeAnalytics(context.Background(), CaseVolumeParams{StartDate: "01/02/2024"})
	assert.True(t, IsValidation(err))
}

func TestCalcStats(t *testing.T) {
	assert.Equal(t, MetricStats{}, calcStats(nil))

	odd := calcStats([]float64{30, 10, 20})
	assert.Equal(t, MetricStats{Count: 3, Avg: 20, Min: 10, Max: 30, Median: 20}, odd)

	even := calcStats([]float64{1, 2, 3, 4})
	assert.Equal(t, 2.5, even.Median, "even-length median is the mean of the middle pair")
	assert.Equal(t, 2.5, even.Avg)
}

func TestShiftMonthClampsDay(t *testing.T) {
	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), shiftMonth(jan31, 1))

	jan31y23 := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), shiftMonth(jan31y23, 1))

	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), shiftMonth(mar, -11))
}

func TestWeekStartIsMonday(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, weekStart(sunday))
	assert.Equal(t, monday, weekStart(monday))
}

func TestParseISODate(t *testing.T) {
	d, err := parseISODate("2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), d)

	d, err = parseISODate("2024-06-30T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), d)

	_, err = parseISODate("June 30, 2024")
	assert.True(t, IsValidation(err))
}
