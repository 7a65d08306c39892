package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var aggNow = time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

func openItem(category Category, severity Severity, ageDays int) ItemSnapshot {
	created := aggNow.AddDate(0, 0, -ageDays)
	return ItemSnapshot{
		Category:  category,
		Severity:  severity,
		CreatedAt: created,
		Deadlines: Deadlines{
			// Far-future deadlines keep the item on track.
			Escalation: aggNow.AddDate(0, 1, 0),
			Resolution: aggNow.AddDate(0, 2, 0),
		},
	}
}

func resolvedItem(category Category, resolvedLate bool) ItemSnapshot {
	created := aggNow.AddDate(0, 0, -10)
	resolution := created.AddDate(0, 0, 5)
	resolvedAt := resolution.Add(-time.Hour)
	if resolvedLate {
		resolvedAt = resolution.Add(time.Hour)
	}
	return ItemSnapshot{
		Category:   category,
		Severity:   SeverityMajor,
		CreatedAt:  created,
		ResolvedAt: &resolvedAt,
		Deadlines: Deadlines{
			Escalation: created.AddDate(0, 0, 2),
			Resolution: resolution,
		},
	}
}

func overdueItem(category Category) ItemSnapshot {
	created := aggNow.AddDate(0, 0, -20)
	return ItemSnapshot{
		Category:  category,
		Severity:  SeverityCritical,
		CreatedAt: created,
		Deadlines: Deadlines{
			Escalation: created.AddDate(0, 0, 1),
			Resolution: created.AddDate(0, 0, 2),
		},
	}
}

func TestOverdueCount(t *testing.T) {
	items := []ItemSnapshot{
		openItem(CategoryQueries, SeverityMinor, 1),
		overdueItem(CategoryRegulatory),
		overdueItem(CategorySamples),
		resolvedItem(CategoryQueries, true), // late but resolved, not overdue
	}
	assert.Equal(t, 2, OverdueCount(items, aggNow))
}

func TestAgingP90Days_EmptyIsNil(t *testing.T) {
	assert.Nil(t, AgingP90Days(nil, aggNow))

	resolvedOnly := []ItemSnapshot{resolvedItem(CategoryQueries, false)}
	assert.Nil(t, AgingP90Days(resolvedOnly, aggNow))
}

func TestAgingP90Days_LinearInterpolation(t *testing.T) {
	var items []ItemSnapshot
	for age := 1; age <= 10; age++ {
		items = append(items, openItem(CategoryDataEntry, SeverityMinor, age))
	}

	got := AgingP90Days(items, aggNow)
	require.NotNil(t, got)
	// Ages 1..10: rank 0.9*(10-1) = 8.1 interpolates between 9 and 10 days.
	assert.InDelta(t, 9.1, *got, 0.001)
}

func TestAgingP90Days_SingleItem(t *testing.T) {
	items := []ItemSnapshot{openItem(CategoryImaging, SeverityInfo, 4)}
	got := AgingP90Days(items, aggNow)
	require.NotNil(t, got)
	assert.InDelta(t, 4.0, *got, 0.001)
}

func TestCompliancePercent(t *testing.T) {
	items := []ItemSnapshot{
		resolvedItem(CategoryQueries, false),
		resolvedItem(CategoryQueries, false),
		resolvedItem(CategoryQueries, false),
		resolvedItem(CategoryQueries, true),
		openItem(CategoryQueries, SeverityMinor, 1), // open items never count
	}

	got := CompliancePercent(items, aggNow, nil)
	require.NotNil(t, got)
	assert.InDelta(t, 75.0, *got, 0.001)
}

func TestCompliancePercent_NoResolvedItemsIsNil(t *testing.T) {
	items := []ItemSnapshot{openItem(CategoryQueries, SeverityMinor, 1)}
	assert.Nil(t, CompliancePercent(items, aggNow, nil))
}

func TestCompliancePercent_TrailingWindow(t *testing.T) {
	items := []ItemSnapshot{
		resolvedItem(CategoryQueries, true), // resolved ~5 days ago
	}
	since := aggNow.AddDate(0, 0, -1)

	assert.Nil(t, CompliancePercent(items, aggNow, &since))

	allTime := CompliancePercent(items, aggNow, nil)
	require.NotNil(t, allTime)
	assert.InDelta(t, 0.0, *allTime, 0.001)
}

func TestPareto(t *testing.T) {
	// 12/8/5/10/4/3/3/2/0 across nine categories; the zero-count category
	// contributes no items and therefore no row.
	counts := map[Category]int{
		CategoryRegulatory:      12,
		CategoryConsentICF:      8,
		CategoryDataEntry:       5,
		CategoryQueries:         10,
		CategorySafetyReporting: 4,
		CategorySamples:         3,
		CategoryImaging:         3,
		CategoryPharmacyIP:      2,
		CategoryTraining:        0,
	}
	var items []ItemSnapshot
	for cat, n := range counts {
		for i := 0; i < n; i++ {
			items = append(items, openItem(cat, SeverityMinor, 1))
		}
	}

	rows := Pareto(items, 0)
	require.Len(t, rows, 8)

	assert.Equal(t, CategoryRegulatory, rows[0].Category)
	assert.Equal(t, 12, rows[0].Count)
	assert.Equal(t, CategoryQueries, rows[1].Category)

	prevCount := rows[0].Count
	prevCumulative := 0.0
	for _, row := range rows {
		assert.LessOrEqual(t, row.Count, prevCount)
		assert.GreaterOrEqual(t, row.CumulativePercentage, prevCumulative)
		prevCount = row.Count
		prevCumulative = row.CumulativePercentage
	}
	assert.InDelta(t, 100.0, rows[len(rows)-1].CumulativePercentage, 0.001)
}

func TestPareto_TopNTruncation(t *testing.T) {
	items := []ItemSnapshot{
		openItem(CategoryRegulatory, SeverityMinor, 1),
		openItem(CategoryRegulatory, SeverityMinor, 1),
		openItem(CategoryQueries, SeverityMinor, 1),
		openItem(CategoryImaging, SeverityMinor, 1),
	}

	rows := Pareto(items, 2)
	require.Len(t, rows, 2)
	assert.Equal(t, CategoryRegulatory, rows[0].Category)
	// Cumulative percentage reflects the full population, not just the rows kept.
	assert.InDelta(t, 50.0, rows[0].CumulativePercentage, 0.001)
	assert.Less(t, rows[1].CumulativePercentage, 100.0)
}

func TestPareto_Empty(t *testing.T) {
	assert.Nil(t, Pareto(nil, 5))
}

func TestComputeKPIs(t *testing.T) {
	items := []ItemSnapshot{
		openItem(CategoryQueries, SeverityCritical, 1),
		openItem(CategoryQueries, SeverityMinor, 3),
		overdueItem(CategoryRegulatory),
		resolvedItem(CategorySamples, false),
		resolvedItem(CategorySamples, true),
	}

	kpis := ComputeKPIs(items, aggNow)

	assert.Equal(t, 3, kpis.TotalOpen)
	assert.Equal(t, 1, kpis.OverdueCount)
	require.NotNil(t, kpis.AgingP90Days)
	require.NotNil(t, kpis.CompliancePercent)
	assert.InDelta(t, 50.0, *kpis.CompliancePercent, 0.001)
	// The overdue regulatory item is also open and critical.
	assert.Equal(t, 2, kpis.OpenBySeverity[SeverityCritical])
	assert.Equal(t, 1, kpis.OpenBySeverity[SeverityMinor])
	assert.Equal(t, 2, kpis.CreatedLast7Days)
	assert.Equal(t, 2, kpis.ResolvedLast7Days)
	require.NotNil(t, kpis.AverageResolutionHours)
	assert.Equal(t, 1, kpis.StatusCounts[StatusOverdue])
	assert.Equal(t, 1, kpis.StatusCounts[StatusResolvedLate])
}

func TestComputeKPIs_EmptyCollection(t *testing.T) {
	kpis := ComputeKPIs(nil, aggNow)

	assert.Zero(t, kpis.TotalOpen)
	assert.Zero(t, kpis.OverdueCount)
	assert.Nil(t, kpis.AgingP90Days)
	assert.Nil(t, kpis.CompliancePercent)
	assert.Nil(t, kpis.AverageResolutionHours)
}

func TestBurndown(t *testing.T) {
	created := aggNow.AddDate(0, 0, -6)
	resolvedAt := aggNow.AddDate(0, 0, -2)
	items := []ItemSnapshot{
		{
			Category:  CategoryQueries,
			Severity:  SeverityMinor,
			CreatedAt: created,
			Deadlines: Deadlines{Escalation: aggNow.AddDate(0, 1, 0), Resolution: aggNow.AddDate(0, 2, 0)},
		},
		{
			Category:   CategoryQueries,
			Severity:   SeverityMinor,
			CreatedAt:  created,
			ResolvedAt: &resolvedAt,
			Deadlines:  Deadlines{Escalation: aggNow.AddDate(0, 1, 0), Resolution: aggNow.AddDate(0, 2, 0)},
		},
	}

	series := Burndown(items, aggNow, 7)
	require.Len(t, series, 8)

	last := series[len(series)-1]
	assert.Equal(t, 1, last.OpenItems)
	assert.Equal(t, 1, last.CumulativeClosed)

	prev := 0
	for _, point := range series {
		assert.GreaterOrEqual(t, point.CumulativeClosed, prev)
		prev = point.CumulativeClosed
	}
}

func TestBurndown_NoDays(t *testing.T) {
	assert.Nil(t, Burndown(nil, aggNow, 0))
}
