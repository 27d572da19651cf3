package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/eob-report/internal/model"
)

func intp(v int) *int          { return &v }
func floatp(v float64) *float64 { return &v }

func testClaims() []model.Claim {
	return []model.Claim{
		{
			Decision:                   model.DecisionApproved,
			OngoingRateMonth:           intp(model.RateMonthInitial),
			ProcessToDecisionTAT:       floatp(10),
			InitialDecisionsFacilities: 1,
			RetroMonths:                intp(2),
			RetroAllFacilities:         1,
		},
		{
			Decision:                   model.DecisionApproved,
			OngoingRateMonth:           intp(model.RateMonthOngoing),
			ProcessToDecisionTAT:       floatp(20),
			OngoingHomeHealth:          1,
			InitialDecisionsHomeHealth: 1,
		},
		{
			Decision:         model.DecisionDenied,
			OngoingRateMonth: intp(model.RateMonthRestoration),
			AllOther:         2,
		},
		{
			Decision:    model.DecisionPending,
			RetroMonths: intp(3),
			RetroAllOther: 1,
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()
	s := Build(testClaims())

	assert.Equal(t, 4, s.TotalClaims)
	assert.Equal(t, 2, s.ApprovedClaims)
	assert.Equal(t, 1, s.DeniedClaims)
	assert.Equal(t, 1, s.InAssessmentClaims)
	assert.InDelta(t, 50.0, s.ApprovalRate, 0.001)
	assert.InDelta(t, 15.0, s.AvgProcessingDays, 0.001) // only two claims carry TAT

	assert.Equal(t, 2, s.TotalRetroClaims)
	assert.InDelta(t, 50.0, s.RetroPercentage, 0.001)

	assert.Equal(t, 2, s.FacilityClaims)
	assert.Equal(t, 2, s.HomeHealthClaims)
	assert.Equal(t, 3, s.OtherClaims)

	assert.Equal(t, 1, s.InitialDecisions)
	assert.Equal(t, 1, s.OngoingDecisions)
	assert.Equal(t, 1, s.RestorationDecisions)
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()
	s := Build(nil)

	assert.Equal(t, 0, s.TotalClaims)
	assert.Zero(t, s.ApprovalRate)
	assert.Zero(t, s.RetroPercentage)
	assert.Zero(t, s.AvgProcessingDays)
}

func TestDecisionBreakdown(t *testing.T) {
	t.Parallel()
	got := DecisionBreakdown(testClaims())

	assert.Equal(t, map[string]int{
		model.DecisionApproved: 2,
		model.DecisionDenied:   1,
		model.DecisionPending:  1,
	}, got)
}

func TestCategoryBreakdown(t *testing.T) {
	t.Parallel()
	got := CategoryBreakdown(Build(testClaims()))

	assert.Equal(t, 2, got["Facility"])
	assert.Equal(t, 2, got["Home Health"])
	assert.Equal(t, 3, got["Other"])
}

func TestAnalyzeRetro(t *testing.T) {
	t.Parallel()
	a := AnalyzeRetro(testClaims())

	assert.Equal(t, 2, a.TotalRetroClaims)
	assert.InDelta(t, 2.5, a.AvgRetroMonths, 0.001)
	assert.Equal(t, 1, a.RetroFacilities)
	assert.Equal(t, 0, a.RetroHomeHealth)
	assert.Equal(t, 1, a.RetroOther)
}

func TestAnalyzeRetro_NegativeMonthsExcluded(t *testing.T) {
	t.Parallel()

	// Negative retro months can occur when a benefit start postdates the
	// window; such claims do not count as retro.
	a := AnalyzeRetro([]model.Claim{
		{Decision: model.DecisionApproved, RetroMonths: intp(-2)},
		{Decision: model.DecisionApproved, RetroMonths: intp(0)},
	})
	assert.Equal(t, 0, a.TotalRetroClaims)
	assert.Zero(t, a.AvgRetroMonths)
}
