package summary

import "github.com/sells-group/eob-report/internal/model"

// RetroAnalysis breaks down the claims that carry a positive
// retro-months value.
type RetroAnalysis struct {
	TotalRetroClaims int     `json:"total_retro_claims"`
	AvgRetroMonths   float64 `json:"avg_retro_months"`
	RetroFacilities  int     `json:"total_retro_facilities"`
	RetroHomeHealth  int     `json:"total_retro_home_health"`
	RetroOther       int     `json:"total_retro_other"`
}

// AnalyzeRetro computes retro metrics over claims with retro_months > 0.
func AnalyzeRetro(claims []model.Claim) RetroAnalysis {
	var a RetroAnalysis
	var monthsSum int

	for _, c := range claims {
		if !c.IsRetro() {
			continue
		}
		a.TotalRetroClaims++
		monthsSum += *c.RetroMonths
		a.RetroFacilities += c.RetroAllFacilities
		a.RetroHomeHealth += c.RetroHomeHealth
		a.RetroOther += c.RetroAllOther
	}

	if a.TotalRetroClaims > 0 {
		a.AvgRetroMonths = float64(monthsSum) / float64(a.TotalRetroClaims)
	}
	return a
}
