// Package summary aggregates claims-worksheet rows into the reporting
// statistics the dashboard consumes: decision mix, approval rate,
// turnaround averages, retro counts, and care-category breakdowns.
package summary

import (
	"github.com/sells-group/eob-report/internal/model"
)

// ClaimsSummary holds topline claims statistics for a filtered set of
// worksheet rows.
type ClaimsSummary struct {
	TotalClaims        int     `json:"total_claims"`
	ApprovedClaims     int     `json:"approved_claims"`
	DeniedClaims       int     `json:"denied_claims"`
	InAssessmentClaims int     `json:"in_assessment_claims"`
	ApprovalRate       float64 `json:"approval_rate"`
	AvgProcessingDays  float64 `json:"avg_processing_time_days"`

	TotalRetroClaims int     `json:"total_retro_claims"`
	RetroPercentage  float64 `json:"retro_percentage"`

	// By care category.
	FacilityClaims   int `json:"facility_claims"`
	HomeHealthClaims int `json:"home_health_claims"`
	OtherClaims      int `json:"other_claims"`

	// By ongoing rate month.
	InitialDecisions     int `json:"initial_decisions"`
	OngoingDecisions     int `json:"ongoing_decisions"`
	RestorationDecisions int `json:"restoration_decisions"`
}

// Build computes a ClaimsSummary over the given claims. Filtering by
// carrier or snapshot date happens upstream, at the store.
func Build(claims []model.Claim) ClaimsSummary {
	var s ClaimsSummary
	var tatSum float64
	var tatCount int

	for _, c := range claims {
		s.TotalClaims++

		switch c.Decision {
		case model.DecisionApproved:
			s.ApprovedClaims++
		case model.DecisionDenied:
			s.DeniedClaims++
		case model.DecisionInAssessment, model.DecisionPending:
			s.InAssessmentClaims++
		}

		if c.ProcessToDecisionTAT != nil {
			tatSum += *c.ProcessToDecisionTAT
			tatCount++
		}

		if c.IsRetro() {
			s.TotalRetroClaims++
		}

		s.FacilityClaims += c.FacilityTotal()
		s.HomeHealthClaims += c.HomeHealthTotal()
		s.OtherClaims += c.OtherTotal()

		if c.OngoingRateMonth != nil {
			switch *c.OngoingRateMonth {
			case model.RateMonthInitial:
				s.InitialDecisions++
			case model.RateMonthOngoing:
				s.OngoingDecisions++
			case model.RateMonthRestoration:
				s.RestorationDecisions++
			}
		}
	}

	if s.TotalClaims > 0 {
		s.ApprovalRate = float64(s.ApprovedClaims) / float64(s.TotalClaims) * 100
		s.RetroPercentage = float64(s.TotalRetroClaims) / float64(s.TotalClaims) * 100
	}
	if tatCount > 0 {
		s.AvgProcessingDays = tatSum / float64(tatCount)
	}

	return s
}

// DecisionBreakdown counts claims per decision value, verbatim.
func DecisionBreakdown(claims []model.Claim) map[string]int {
	out := make(map[string]int)
	for _, c := range claims {
		if c.Decision == "" {
			continue
		}
		out[c.Decision]++
	}
	return out
}

// CategoryBreakdown maps care category to combined claim counts.
func CategoryBreakdown(s ClaimsSummary) map[string]int {
	return map[string]int{
		"Facility":    s.FacilityClaims,
		"Home Health": s.HomeHealthClaims,
		"Other":       s.OtherClaims,
	}
}
