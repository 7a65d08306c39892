package dashboard

import (
	"time"

	"trialops/internal/sla"
)

// KPIResponse is the headline dashboard payload. Nullable metrics stay null
// when their population is empty instead of reporting a misleading zero.
type KPIResponse struct {
	TotalOpen              int            `json:"total_open"`
	OverdueCount           int            `json:"overdue_count"`
	AgingP90Days           *float64       `json:"aging_p90_days"`
	SLACompliancePct       *float64       `json:"sla_compliance_pct"`
	OpenBySeverity         map[string]int `json:"open_by_severity"`
	StatusCounts           map[string]int `json:"status_counts"`
	CreatedLast7Days       int            `json:"items_created_last_7_days"`
	ResolvedLast7Days      int            `json:"items_resolved_last_7_days"`
	AverageResolutionHours *float64       `json:"average_resolution_hours"`
	GeneratedAt            time.Time      `json:"generated_at"`
}

type ParetoEntry struct {
	Category             string  `json:"category"`
	Count                int     `json:"count"`
	Percentage           float64 `json:"percentage"`
	CumulativePercentage float64 `json:"cumulative_percentage"`
}

type ParetoResponse struct {
	Entries     []ParetoEntry `json:"entries"`
	TopN        int           `json:"top_n"`
	GeneratedAt time.Time     `json:"generated_at"`
}

type BurndownEntry struct {
	Date             string `json:"date"`
	OpenItems        int    `json:"open_items"`
	ClosedItems      int    `json:"closed_items"`
	CumulativeClosed int    `json:"cumulative_closed"`
}

type BurndownResponse struct {
	Points      []BurndownEntry `json:"points"`
	Days        int             `json:"days"`
	GeneratedAt time.Time       `json:"generated_at"`
}

func buildKPIResponse(kpis sla.KPIs, now time.Time) KPIResponse {
	openBySeverity := make(map[string]int, len(kpis.OpenBySeverity))
	for severity, count := range kpis.OpenBySeverity {
		openBySeverity[string(severity)] = count
	}
	statusCounts := make(map[string]int, len(kpis.StatusCounts))
	for status, count := range kpis.StatusCounts {
		statusCounts[string(status)] = count
	}

	return KPIResponse{
		TotalOpen:              kpis.TotalOpen,
		OverdueCount:           kpis.OverdueCount,
		AgingP90Days:           kpis.AgingP90Days,
		SLACompliancePct:       kpis.CompliancePercent,
		OpenBySeverity:         openBySeverity,
		StatusCounts:           statusCounts,
		CreatedLast7Days:       kpis.CreatedLast7Days,
		ResolvedLast7Days:      kpis.ResolvedLast7Days,
		AverageResolutionHours: kpis.AverageResolutionHours,
		GeneratedAt:            now,
	}
}

func buildParetoResponse(rows []sla.ParetoRow, topN int, now time.Time) ParetoResponse {
	entries := make([]ParetoEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, ParetoEntry{
			Category:             string(row.Category),
			Count:                row.Count,
			Percentage:           row.Percentage,
			CumulativePercentage: row.CumulativePercentage,
		})
	}
	return ParetoResponse{Entries: entries, TopN: topN, GeneratedAt: now}
}

func buildBurndownResponse(points []sla.BurndownPoint, days int, now time.Time) BurndownResponse {
	entries := make([]BurndownEntry, 0, len(points))
	for _, p := range points {
		entries = append(entries, BurndownEntry{
			Date:             p.Date.Format("2006-01-02"),
			OpenItems:        p.OpenItems,
			ClosedItems:      p.ClosedItems,
			CumulativeClosed: p.CumulativeClosed,
		})
	}
	return BurndownResponse{Points: entries, Days: days, GeneratedAt: now}
}
