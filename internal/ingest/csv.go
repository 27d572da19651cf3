// Package ingest reads EOB history and claims worksheet extracts from
// CSV and XLSX files into domain rows, with warehouse-style nullable
// date handling.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eob-report/internal/model"
)

// header maps normalized column names to their position.
type header map[string]int

func newHeader(cols []string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		h[normalizeCol(c)] = i
	}
	return h
}

func normalizeCol(c string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c)), " ", "_")
}

// get returns the trimmed cell for any of the given column aliases, or
// "" when none is present in the file.
func (h header) get(row []string, aliases ...string) string {
	for _, a := range aliases {
		if i, ok := h[a]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
	}
	return ""
}

// ReadHistoryCSV reads an EOB history extract. Required columns:
// rfb_id. The rank column (eob_ranker) is optional; unranked rows come
// back with Rank 0 and must go through retro.Rank before computation.
func ReadHistoryCSV(path string) ([]model.EOBHistoryRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return parseHistory(csv.NewReader(f))
}

func parseHistory(r *csv.Reader) ([]model.EOBHistoryRow, error) {
	r.TrimLeadingSpace = true

	cols, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read history header")
	}
	h := newHeader(cols)
	if _, ok := h["rfb_id"]; !ok {
		return nil, eris.New("ingest: history file missing rfb_id column")
	}

	var rows []model.EOBHistoryRow
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read history line %d", line+1)
		}
		line++

		row, err := historyRow(h, rec)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: history line %d", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func historyRow(h header, rec []string) (model.EOBHistoryRow, error) {
	var row model.EOBHistoryRow
	row.RFBID = h.get(rec, "rfb_id")
	if row.RFBID == "" {
		return row, eris.New("empty rfb_id")
	}

	if s := h.get(rec, "eob_ranker", "eob_rank"); s != "" {
		rank, err := strconv.Atoi(s)
		if err != nil {
			return row, eris.Wrapf(err, "parse eob_ranker %q", s)
		}
		row.Rank = rank
	}

	var err error
	if row.StartDate, err = ParseDate(h.get(rec, "eob_start_dt", "eob_start_date")); err != nil {
		return row, err
	}
	if row.EndDate, err = ParseDate(h.get(rec, "eob_end_dt", "eob_end_date")); err != nil {
		return row, err
	}
	if row.FirstDecision, err = ParseDate(h.get(rec, "first_eb_decision_dt", "firstebdecisiondt")); err != nil {
		return row, err
	}
	return row, nil
}

// ReadClaimsCSV reads a claims fee-worksheet extract.
func ReadClaimsCSV(path string) ([]model.Claim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return parseClaims(csv.NewReader(f))
}

func parseClaims(r *csv.Reader) ([]model.Claim, error) {
	r.TrimLeadingSpace = true

	cols, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read claims header")
	}
	h := newHeader(cols)
	if _, ok := h["policy_number"]; !ok {
		return nil, eris.New("ingest: claims file missing policy_number column")
	}

	var claims []model.Claim
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read claims line %d", line+1)
		}
		line++

		c, err := claimRow(h, rec)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: claims line %d", line)
		}
		claims = append(claims, c)
	}
	return claims, nil
}

func claimRow(h header, rec []string) (model.Claim, error) {
	c := model.Claim{
		PolicyNumber: h.get(rec, "policy_number"),
		ClaimantName: h.get(rec, "claimantname", "claimant_name"),
		CarrierName:  h.get(rec, "carrier_name"),
		Decision:     h.get(rec, "decision"),
	}
	if c.PolicyNumber == "" {
		return c, eris.New("empty policy_number")
	}

	var err error
	if c.SnapshotDate, err = ParseDate(h.get(rec, "snapshot_date")); err != nil {
		return c, err
	}
	if c.OngoingRateMonth, err = optInt(h.get(rec, "ongoing_rate_month")); err != nil {
		return c, err
	}
	if c.ProcessToDecisionTAT, err = optFloat(h.get(rec, "rfb_process_to_decision_tat", "process_to_decision_tat")); err != nil {
		return c, err
	}
	if c.RetroMonths, err = optInt(h.get(rec, "retro_months")); err != nil {
		return c, err
	}

	counters := []struct {
		dst     *int
		aliases []string
	}{
		{&c.InitialDecisionsFacilities, []string{"initial_decisions_facilities"}},
		{&c.OngoingAllFacilities, []string{"ongoing_all_facilities"}},
		{&c.RetroAllFacilities, []string{"retro_all_facilities"}},
		{&c.InitialDecisionsHomeHealth, []string{"initial_decisions_home_health"}},
		{&c.OngoingHomeHealth, []string{"ongoing_home_health"}},
		{&c.RetroHomeHealth, []string{"retro_home_health"}},
		{&c.InitialDecisionsAllOther, []string{"initial_decisions_all_other"}},
		{&c.AllOther, []string{"all_other"}},
		{&c.RetroAllOther, []string{"retro_all_other"}},
	}
	for _, ct := range counters {
		v, err := optInt(h.get(rec, ct.aliases...))
		if err != nil {
			return c, err
		}
		if v != nil {
			*ct.dst = *v
		}
	}
	return c, nil
}

func optInt(s string) (*int, error) {
	if s == "" || strings.EqualFold(s, "null") {
		return nil, nil
	}
	// Warehouse exports sometimes render integers as "2.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		v := int(f)
		return &v, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, eris.Wrapf(err, "parse integer %q", s)
	}
	return &v, nil
}

func optFloat(s string) (*float64, error) {
	if s == "" || strings.EqualFold(s, "null") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse number %q", s)
	}
	return &v, nil
}
