// Package export renders history points as CSV or XLSX.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"gps-fleet-api-server/internal/models"
)

// Columns is the header row shared by every export format.
var Columns = []string{"timestamp", "lat", "lng", "speed", "signal_quality", "vehicle_on"}

// WriteCSV streams points to w, header first.
func WriteCSV(w io.Writer, points []models.HistoryPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write(row(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(p models.HistoryPoint) []string {
	return []string{
		p.TimestampText,
		formatFloat(p.Lat),
		formatFloat(p.Lng),
		formatFloat(p.Speed),
		strconv.Itoa(p.SignalQuality),
		formatBool(p.VehicleOn),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
