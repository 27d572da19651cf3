package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/eob-report/internal/model"
)

// WriteResultsXLSX writes retro results to an XLSX workbook at path.
// The workbook has a single "Retro Months" sheet with a header row.
func WriteResultsXLSX(path string, results []model.RetroResult) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Retro Months")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("rfb_id")
	header.AddCell().SetString("retro_months")

	for _, r := range results {
		row := sheet.AddRow()
		row.AddCell().SetString(r.RFBID)
		row.AddCell().SetInt(r.RetroMonths)
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}
