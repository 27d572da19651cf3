package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/eob-report/internal/model"
	"github.com/sells-group/eob-report/internal/summary"
)

var testResults = []model.RetroResult{
	{RFBID: "rfb-1", RetroMonths: 2},
	{RFBID: "rfb-2", RetroMonths: 0},
	{RFBID: "rfb-3", RetroMonths: -1},
}

func TestWriteResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, testResults))

	want := "rfb_id,retro_months\nrfb-1,2\nrfb-2,0\nrfb-3,-1\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteResultsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, nil))
	assert.Equal(t, "rfb_id,retro_months\n", buf.String())
}

func TestWriteResultsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsTable(&buf, testResults))

	out := buf.String()
	assert.Contains(t, out, "RFB ID")
	assert.Contains(t, out, "rfb-1")
	assert.Contains(t, out, "-1")
}

func TestWriteResultsTable_TruncatesLongIDs(t *testing.T) {
	long := model.RetroResult{
		RFBID:       "rfb-0123456789012345678901234567890123456789",
		RetroMonths: 1,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteResultsTable(&buf, []model.RetroResult{long}))
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), long.RFBID)
}

func TestWriteSummaryTable(t *testing.T) {
	s := summary.ClaimsSummary{
		TotalClaims:       10,
		ApprovedClaims:    6,
		DeniedClaims:      3,
		ApprovalRate:      60,
		AvgProcessingDays: 14.5,
		TotalRetroClaims:  4,
		RetroPercentage:   40,
		FacilityClaims:    5,
		HomeHealthClaims:  3,
		OtherClaims:       2,
	}
	ra := summary.RetroAnalysis{
		TotalRetroClaims: 4,
		AvgRetroMonths:   2.25,
		RetroFacilities:  3,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTable(&buf, s, ra))

	out := buf.String()
	assert.Contains(t, out, "Total claims:     10")
	assert.Contains(t, out, "Approved:         6 (60.0%)")
	assert.Contains(t, out, "Avg processing:   14.5 days")
	assert.Contains(t, out, "Retro claims:     4 (40.0%)")
	assert.Contains(t, out, "Avg retro months: 2.25")
}

func TestWriteRunsTable(t *testing.T) {
	created := time.Date(2024, time.April, 1, 9, 30, 0, 0, time.UTC)
	runs := []model.ReportRun{
		{
			ID:          "run-1",
			WindowStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			WindowEnd:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
			Status:      model.RunStatusComplete,
			EntityCount: 42,
			CreatedAt:   created,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRunsTable(&buf, runs))

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "42")
}

func TestWriteResultsXLSX_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteResultsXLSX(path, testResults))

	wb, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)

	sheet := wb.Sheets[0]
	assert.Equal(t, "Retro Months", sheet.Name)
	require.Len(t, sheet.Rows, 4) // header + 3 results

	assert.Equal(t, "rfb_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "rfb-1", sheet.Rows[1].Cells[0].String())

	months, err := sheet.Rows[1].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 2, months)
}
