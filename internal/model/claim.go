package model

import "time"

// Decision values as they appear in the TPA worksheet extracts.
const (
	DecisionApproved     = "Approved"
	DecisionDenied       = "Denied"
	DecisionInAssessment = "In Assessment"
	DecisionPending      = "Pending"
)

// Ongoing rate month buckets: what kind of decision a worksheet row is.
const (
	RateMonthInitial     = 0
	RateMonthOngoing     = 1
	RateMonthRestoration = 2
)

// Claim is one row of the claims fee-worksheet snapshot: a single RFB
// decision with its category counters and turnaround metrics.
type Claim struct {
	ID           string     `json:"id"`
	PolicyNumber string     `json:"policy_number"`
	ClaimantName string     `json:"claimant_name"`
	CarrierName  string     `json:"carrier_name"`
	Decision     string     `json:"decision"`
	SnapshotDate *time.Time `json:"snapshot_date,omitempty"`

	// Ongoing rate month: 0 = initial decision, 1 = ongoing, 2 = restoration.
	OngoingRateMonth *int `json:"ongoing_rate_month,omitempty"`

	// Days from RFB receipt to decision.
	ProcessToDecisionTAT *float64 `json:"process_to_decision_tat,omitempty"`

	// Category counters, split by decision kind.
	InitialDecisionsFacilities int `json:"initial_decisions_facilities"`
	OngoingAllFacilities       int `json:"ongoing_all_facilities"`
	RetroAllFacilities         int `json:"retro_all_facilities"`

	InitialDecisionsHomeHealth int `json:"initial_decisions_home_health"`
	OngoingHomeHealth          int `json:"ongoing_home_health"`
	RetroHomeHealth            int `json:"retro_home_health"`

	InitialDecisionsAllOther int `json:"initial_decisions_all_other"`
	AllOther                 int `json:"all_other"`
	RetroAllOther            int `json:"retro_all_other"`

	RetroMonths *int `json:"retro_months,omitempty"`
}

// FacilityTotal returns the combined facility claim count across
// initial, ongoing, and retro decisions.
func (c Claim) FacilityTotal() int {
	return c.InitialDecisionsFacilities + c.OngoingAllFacilities + c.RetroAllFacilities
}

// HomeHealthTotal returns the combined home-health claim count.
func (c Claim) HomeHealthTotal() int {
	return c.InitialDecisionsHomeHealth + c.OngoingHomeHealth + c.RetroHomeHealth
}

// OtherTotal returns the combined count for all other care categories.
func (c Claim) OtherTotal() int {
	return c.InitialDecisionsAllOther + c.AllOther + c.RetroAllOther
}

// IsRetro reports whether the claim carries a positive retro-months value.
func (c Claim) IsRetro() bool {
	return c.RetroMonths != nil && *c.RetroMonths > 0
}
