package sla

import (
	"sort"
	"time"
)

// KPIs is the headline dashboard bundle computed over a snapshot collection at
// a single point in time. Pointer fields are nil when the underlying
// population is empty, never zero-filled.
type KPIs struct {
	TotalOpen              int
	OverdueCount           int
	AgingP90Days           *float64
	CompliancePercent      *float64
	OpenBySeverity         map[Severity]int
	StatusCounts           map[Status]int
	CreatedLast7Days       int
	ResolvedLast7Days      int
	AverageResolutionHours *float64
}

// ParetoRow is one line of the category Pareto table.
type ParetoRow struct {
	Category             Category
	Count                int
	Percentage           float64
	CumulativePercentage float64
}

// BurndownPoint is one day of the burndown series.
type BurndownPoint struct {
	Date             time.Time
	OpenItems        int
	ClosedItems      int
	CumulativeClosed int
}

// OverdueCount counts items classified overdue at now.
func OverdueCount(items []ItemSnapshot, now time.Time) int {
	count := 0
	for _, it := range items {
		if it.Status(now) == StatusOverdue {
			count++
		}
	}
	return count
}

// AgingP90Days is the 90th percentile age, in days, of open items at now,
// using linear interpolation between the two closest ranks of the sorted age
// list. It is nil when no item is open.
func AgingP90Days(items []ItemSnapshot, now time.Time) *float64 {
	var ages []float64
	for _, it := range items {
		if it.Open() {
			ages = append(ages, it.AgeDays(now))
		}
	}
	if len(ages) == 0 {
		return nil
	}

	sort.Float64s(ages)
	p90 := percentile(ages, 0.9)
	return &p90
}

// percentile expects sorted values and interpolates linearly between the
// closest ranks (the same convention as PostgreSQL's percentile_cont).
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// CompliancePercent is 100 x resolved_on_time / all_resolved over items
// resolved at or after since (all-time when since is nil). It is nil when
// nothing was resolved in the window.
func CompliancePercent(items []ItemSnapshot, now time.Time, since *time.Time) *float64 {
	onTime, late := 0, 0
	for _, it := range items {
		if it.ResolvedAt == nil {
			continue
		}
		if since != nil && it.ResolvedAt.Before(*since) {
			continue
		}
		if it.Status(now) == StatusResolvedLate {
			late++
		} else {
			onTime++
		}
	}

	total := onTime + late
	if total == 0 {
		return nil
	}
	pct := 100 * float64(onTime) / float64(total)
	return &pct
}

// Pareto groups open and closed items by category, sorts descending by count
// and computes per-category and running cumulative percentages. topN <= 0
// returns every non-empty category; ties break on category name so the table
// is stable.
func Pareto(items []ItemSnapshot, topN int) []ParetoRow {
	counts := make(map[Category]int)
	for _, it := range items {
		counts[it.Category]++
	}
	if len(counts) == 0 {
		return nil
	}

	rows := make([]ParetoRow, 0, len(counts))
	total := 0
	for cat, count := range counts {
		rows = append(rows, ParetoRow{Category: cat, Count: count})
		total += count
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Category < rows[j].Category
	})

	if topN > 0 && topN < len(rows) {
		rows = rows[:topN]
	}

	cumulative := 0.0
	for i := range rows {
		rows[i].Percentage = 100 * float64(rows[i].Count) / float64(total)
		cumulative += rows[i].Percentage
		rows[i].CumulativePercentage = cumulative
	}
	return rows
}

// OpenBySeverity counts open items per severity.
func OpenBySeverity(items []ItemSnapshot) map[Severity]int {
	counts := make(map[Severity]int)
	for _, it := range items {
		if it.Open() {
			counts[it.Severity]++
		}
	}
	return counts
}

// StatusCounts classifies every item at now and tallies the outcomes.
func StatusCounts(items []ItemSnapshot, now time.Time) map[Status]int {
	counts := make(map[Status]int)
	for _, it := range items {
		counts[it.Status(now)]++
	}
	return counts
}

// AverageResolutionHours averages created-to-resolved wall time over resolved
// items, nil when there are none.
func AverageResolutionHours(items []ItemSnapshot) *float64 {
	sum, n := 0.0, 0
	for _, it := range items {
		if it.ResolvedAt == nil {
			continue
		}
		sum += it.ResolvedAt.Sub(it.CreatedAt).Hours()
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// Burndown builds the daily open/closed series for the trailing window of
// days, ending on the date of now. CumulativeClosed accumulates from the
// window start.
func Burndown(items []ItemSnapshot, now time.Time, days int) []BurndownPoint {
	if days <= 0 {
		return nil
	}

	y, m, d := now.AddDate(0, 0, -days).Date()
	cur := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	ey, em, ed := now.Date()
	end := time.Date(ey, em, ed, 0, 0, 0, 0, now.Location())

	var series []BurndownPoint
	cumulativeClosed := 0
	for !cur.After(end) {
		dayEnd := cur.AddDate(0, 0, 1)

		createdByDay, resolvedByDay, closedToday := 0, 0, 0
		for _, it := range items {
			if !it.CreatedAt.After(dayEnd) {
				createdByDay++
			}
			if it.ResolvedAt == nil {
				continue
			}
			if !it.ResolvedAt.After(dayEnd) {
				resolvedByDay++
			}
			if !it.ResolvedAt.Before(cur) && it.ResolvedAt.Before(dayEnd) {
				closedToday++
			}
		}

		cumulativeClosed += closedToday
		series = append(series, BurndownPoint{
			Date:             cur,
			OpenItems:        createdByDay - resolvedByDay,
			ClosedItems:      closedToday,
			CumulativeClosed: cumulativeClosed,
		})
		cur = dayEnd
	}
	return series
}

// ComputeKPIs bundles the headline metrics in one pass over the snapshots.
func ComputeKPIs(items []ItemSnapshot, now time.Time) KPIs {
	sevenDaysAgo := now.AddDate(0, 0, -7)

	createdLast7, resolvedLast7, totalOpen := 0, 0, 0
	for _, it := range items {
		if it.Open() {
			totalOpen++
		}
		if !it.CreatedAt.Before(sevenDaysAgo) {
			createdLast7++
		}
		if it.ResolvedAt != nil && !it.ResolvedAt.Before(sevenDaysAgo) {
			resolvedLast7++
		}
	}

	return KPIs{
		TotalOpen:              totalOpen,
		OverdueCount:           OverdueCount(items, now),
		AgingP90Days:           AgingP90Days(items, now),
		CompliancePercent:      CompliancePercent(items, now, nil),
		OpenBySeverity:         OpenBySeverity(items),
		StatusCounts:           StatusCounts(items, now),
		CreatedLast7Days:       createdLast7,
		ResolvedLast7Days:      resolvedLast7,
		AverageResolutionHours: AverageResolutionHours(items),
	}
}
