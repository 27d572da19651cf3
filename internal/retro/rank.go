package retro

import (
	"sort"
	"time"

	"github.com/sells-group/eob-report/internal/model"
)

// Rank assigns eob_ranker values (1 = most recent) to unranked history
// rows, per entity, and returns a new slice. Input order is not
// modified.
//
// Recency key: the decision date when recorded, otherwise the benefit
// end date, otherwise the benefit start date. A fully open-ended row
// (no dates at all) sorts as most recent, since it represents the
// current undetermined state. Ties keep their input order.
func Rank(rows []model.EOBHistoryRow) []model.EOBHistoryRow {
	byEntity := make(map[string][]model.EOBHistoryRow)
	var order []string
	for _, row := range rows {
		if _, seen := byEntity[row.RFBID]; !seen {
			order = append(order, row.RFBID)
		}
		byEntity[row.RFBID] = append(byEntity[row.RFBID], row)
	}

	out := make([]model.EOBHistoryRow, 0, len(rows))
	for _, id := range order {
		entity := byEntity[id]
		sort.SliceStable(entity, func(i, j int) bool {
			return recencyKey(entity[i]).After(recencyKey(entity[j]))
		})
		for i := range entity {
			entity[i].Rank = i + 1
		}
		out = append(out, entity...)
	}
	return out
}

// openEndedRecency sorts open-ended rows ahead of any dated row.
var openEndedRecency = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

func recencyKey(row model.EOBHistoryRow) time.Time {
	switch {
	case row.FirstDecision != nil:
		return *row.FirstDecision
	case row.EndDate != nil:
		return *row.EndDate
	case row.StartDate != nil:
		return *row.StartDate
	default:
		return openEndedRecency
	}
}
