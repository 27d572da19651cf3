package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/eob-report/internal/model"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadHistoryXLSX reads an EOB history extract from an XLSX workbook.
// The first row of the sheet is the header.
func ReadHistoryXLSX(path string, opts XLSXOptions) ([]model.EOBHistoryRow, error) {
	h, records, err := readSheet(path, opts)
	if err != nil {
		return nil, err
	}

	var rows []model.EOBHistoryRow
	for i, rec := range records {
		row, err := historyRow(h, rec)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: history row %d", i+2)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadClaimsXLSX reads a claims fee-worksheet extract from an XLSX workbook.
func ReadClaimsXLSX(path string, opts XLSXOptions) ([]model.Claim, error) {
	h, records, err := readSheet(path, opts)
	if err != nil {
		return nil, err
	}

	var claims []model.Claim
	for i, rec := range records {
		c, err := claimRow(h, rec)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: claims row %d", i+2)
		}
		claims = append(claims, c)
	}
	return claims, nil
}

func readSheet(path string, opts XLSXOptions) (header, [][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: open xlsx %s", path)
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil, eris.Errorf("ingest: xlsx %s has no header row", path)
	}

	h := newHeader(rowToStrings(sheet.Rows[0]))
	var records [][]string
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if allEmpty(cells) {
			continue
		}
		records = append(records, cells)
	}
	return h, records, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: xlsx sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: xlsx sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
