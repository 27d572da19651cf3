// Package report renders retro results, claims summaries, and run
// listings as tables, CSV, or XLSX workbooks.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eob-report/internal/model"
	"github.com/sells-group/eob-report/internal/summary"
)

// WriteResultsCSV writes retro results as CSV with a header row.
func WriteResultsCSV(w io.Writer, results []model.RetroResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"rfb_id", "retro_months"}); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for _, r := range results {
		if err := cw.Write([]string{r.RFBID, strconv.Itoa(r.RetroMonths)}); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}
	return nil
}

// WriteResultsTable writes retro results as a fixed-width text table.
func WriteResultsTable(w io.Writer, results []model.RetroResult) error {
	if _, err := fmt.Fprintf(w, "%-40s %12s\n", "RFB ID", "Retro Months"); err != nil {
		return eris.Wrap(err, "report: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 53)); err != nil {
		return eris.Wrap(err, "report: write table separator")
	}
	for _, r := range results {
		id := r.RFBID
		if len(id) > 40 {
			id = id[:37] + "..."
		}
		if _, err := fmt.Fprintf(w, "%-40s %12d\n", id, r.RetroMonths); err != nil {
			return eris.Wrap(err, "report: write table row")
		}
	}
	return nil
}

// WriteSummaryTable writes a claims summary with its retro analysis.
func WriteSummaryTable(w io.Writer, s summary.ClaimsSummary, retro summary.RetroAnalysis) error {
	lines := []string{
		"--- Claims Summary ---",
		fmt.Sprintf("Total claims:     %d", s.TotalClaims),
		fmt.Sprintf("Approved:         %d (%.1f%%)", s.ApprovedClaims, s.ApprovalRate),
		fmt.Sprintf("Denied:           %d", s.DeniedClaims),
		fmt.Sprintf("In assessment:    %d", s.InAssessmentClaims),
		fmt.Sprintf("Avg processing:   %.1f days", s.AvgProcessingDays),
		"",
		"--- Categories ---",
		fmt.Sprintf("Facility:         %d", s.FacilityClaims),
		fmt.Sprintf("Home health:      %d", s.HomeHealthClaims),
		fmt.Sprintf("Other:            %d", s.OtherClaims),
		"",
		"--- Retro ---",
		fmt.Sprintf("Retro claims:     %d (%.1f%%)", s.TotalRetroClaims, s.RetroPercentage),
		fmt.Sprintf("Avg retro months: %.2f", retro.AvgRetroMonths),
		fmt.Sprintf("Retro facility:   %d", retro.RetroFacilities),
		fmt.Sprintf("Retro home health: %d", retro.RetroHomeHealth),
		fmt.Sprintf("Retro other:      %d", retro.RetroOther),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return eris.Wrap(err, "report: write summary line")
		}
	}
	return nil
}

// WriteRunsTable writes report runs as a fixed-width text table, most
// recent first.
func WriteRunsTable(w io.Writer, runs []model.ReportRun) error {
	if _, err := fmt.Fprintf(w, "%-36s %-12s %-12s %-9s %8s %-20s\n",
		"Run ID", "Start", "End", "Status", "Entities", "Created"); err != nil {
		return eris.Wrap(err, "report: write runs header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 102)); err != nil {
		return eris.Wrap(err, "report: write runs separator")
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(w, "%-36s %-12s %-12s %-9s %8d %-20s\n",
			r.ID,
			r.WindowStart.Format(time.DateOnly),
			r.WindowEnd.Format(time.DateOnly),
			r.Status,
			r.EntityCount,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		); err != nil {
			return eris.Wrap(err, "report: write runs row")
		}
	}
	return nil
}
