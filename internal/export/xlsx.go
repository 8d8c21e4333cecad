package export

import (
	"io"

	"gps-fleet-api-server/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "History"

// WriteXLSX writes a single-sheet workbook with the CSV columns.
func WriteXLSX(w io.Writer, points []models.HistoryPoint) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	for i, header := range Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}

	for i, p := range points {
		values := []interface{}{
			p.TimestampText,
			p.Lat,
			p.Lng,
			p.Speed,
			p.SignalQuality,
			boolToInt(p.VehicleOn),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 28); err != nil {
		return err
	}

	return f.Write(w)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
