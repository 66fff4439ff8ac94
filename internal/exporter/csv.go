package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"EventPull/internal/domain/models"
)

// WriteCSV writes a per-offset result table as delimited text.
func WriteCSV(w io.Writer, header []string, rows []models.OffsetRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			strconv.Itoa(row.Offset),
			formatFloat(row.AR),
			formatFloat(row.VarAR),
			formatFloat(row.CAR),
			formatFloat(row.VarCAR),
			formatFloat(row.TStat),
			formatFloat(row.PValue),
			row.Significance,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SingleHeader is the column set for one event's table.
func SingleHeader() []string { return append([]string(nil), resultHeader...) }

// AggregateHeader is the column set for a batch aggregate table.
func AggregateHeader() []string { return append([]string(nil), aggregateHeader...) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}
