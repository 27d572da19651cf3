// Package retro computes the retro-months metric for RFB end-of-benefit
// histories. For each RFB, the most recent EOB record and the one before
// it decide how many months (capped at 3) the benefit determination is
// considered retroactive relative to the start of the reporting window.
package retro

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eob-report/internal/model"
)

// retroCap is the upper clamp on the computed month difference. There
// is deliberately no lower clamp: a benefit start that postdates the
// window start yields a negative value, and downstream consumers are
// expected to handle it.
const retroCap = 3

// pair holds the rank-1 and rank-2 rows for one RFB. prior is nil when
// the entity has no rank-2 history.
type pair struct {
	latest model.EOBHistoryRow
	prior  *model.EOBHistoryRow
}

// Compute evaluates the retro-months rule for every RFB present in rows
// and returns a map keyed by RFB id.
//
// Entities without a rank-1 row are omitted from the output. Malformed
// input (empty RFB id, rank below 1, duplicate rank-1 or rank-2 rows
// for the same entity) is rejected with an error rather than silently
// producing a misleading answer.
func Compute(rows []model.EOBHistoryRow, window Window) (map[string]int, error) {
	pairs, err := index(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(pairs))
	for id, p := range pairs {
		out[id] = decide(p, window)
	}
	return out, nil
}

// index pre-indexes the history by entity and rank so the latest/prior
// pairing is a map lookup rather than a join.
func index(rows []model.EOBHistoryRow) (map[string]pair, error) {
	latest := make(map[string]model.EOBHistoryRow)
	prior := make(map[string]model.EOBHistoryRow)

	for _, row := range rows {
		if row.RFBID == "" {
			return nil, eris.New("retro: history row with empty rfb_id")
		}
		if row.Rank < 1 {
			return nil, eris.Errorf("retro: rfb %s has invalid rank %d", row.RFBID, row.Rank)
		}
		switch row.Rank {
		case 1:
			if _, dup := latest[row.RFBID]; dup {
				return nil, eris.Errorf("retro: rfb %s has duplicate rank-1 rows", row.RFBID)
			}
			latest[row.RFBID] = row
		case 2:
			if _, dup := prior[row.RFBID]; dup {
				return nil, eris.Errorf("retro: rfb %s has duplicate rank-2 rows", row.RFBID)
			}
			prior[row.RFBID] = row
		}
	}

	pairs := make(map[string]pair, len(latest))
	for id, row := range latest {
		p := pair{latest: row}
		if pr, ok := prior[id]; ok {
			p.prior = &pr
		}
		pairs[id] = p
	}
	return pairs, nil
}

// decide evaluates the per-entity rule. Nil dates never reach the month
// arithmetic; every such path falls through to 0.
func decide(p pair, w Window) int {
	switch {
	case p.latest.OpenEnded():
		// Open-ended latest state: the prior record's decision drives
		// retroactivity, when it falls inside the window.
		if p.prior == nil || !w.Contains(p.prior.FirstDecision) || p.prior.StartDate == nil {
			return 0
		}
		return clamp(MonthsBetween(*p.prior.StartDate, w.Start))

	case p.latest.StartDate != nil:
		if !w.Contains(p.latest.FirstDecision) {
			return 0
		}
		return clamp(MonthsBetween(*p.latest.StartDate, w.Start))

	default:
		// Latest has an end date but no start date. Cannot anchor the
		// month difference, so no retroactivity.
		return 0
	}
}

func clamp(months int) int {
	if months > retroCap {
		return retroCap
	}
	return months
}

// Results converts a computed map into a slice sorted by RFB id, for
// deterministic report output.
func Results(m map[string]int) []model.RetroResult {
	out := make([]model.RetroResult, 0, len(m))
	for id, months := range m {
		out = append(out, model.RetroResult{RFBID: id, RetroMonths: months})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RFBID < out[j].RFBID })
	return out
}
