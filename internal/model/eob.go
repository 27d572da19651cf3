package model

import "time"

// EOBHistoryRow is one historical end-of-benefit record for an RFB
// (request for benefit). Rank orders an entity's history by recency:
// 1 is the most recent record, 2 the one before it.
//
// StartDate and EndDate are the benefit-period boundaries recorded at
// that EOB event. Both nil means the EOB state was open-ended /
// undetermined at that point. FirstDecision is the date the first
// end-of-benefit decision was recorded for the entry.
type EOBHistoryRow struct {
	RFBID         string     `json:"rfb_id"`
	Rank          int        `json:"eob_ranker"`
	StartDate     *time.Time `json:"eob_start_dt,omitempty"`
	EndDate       *time.Time `json:"eob_end_dt,omitempty"`
	FirstDecision *time.Time `json:"first_eb_decision_dt,omitempty"`
}

// OpenEnded reports whether the row records an open-ended EOB state
// (no benefit-period boundaries at all).
func (r EOBHistoryRow) OpenEnded() bool {
	return r.StartDate == nil && r.EndDate == nil
}

// RetroResult is the computed retro-months value for a single RFB.
// RetroMonths is capped at 3 and can be negative when the benefit
// start postdates the reporting window.
type RetroResult struct {
	RFBID       string `json:"rfb_id"`
	RetroMonths int    `json:"retro_months"`
}
