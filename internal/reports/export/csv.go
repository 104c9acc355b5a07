package export

import (
	"encoding/csv"
	"io"

	"github.com/fleetledger/fleetledger/internal/reports"
)

// WriteTableCSV writes the header labels followed by one record per table
// row, reading each cell by its header key.
func WriteTableCSV(w io.Writer, table reports.Table) error {
	writer := csv.NewWriter(w)
	if err := writeTable(writer, table); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteViewCSV writes a view's table. Empty views get a single message
// record and detail views end with a totals record.
func WriteViewCSV(w io.Writer, view reports.View) error {
	writer := csv.NewWriter(w)
	if err := writeTable(writer, view.Table); err != nil {
		return err
	}
	width := len(view.Table.Headers)
	switch {
	case view.Empty:
		if err := writer.Write(padRecord([]string{view.Message}, width)); err != nil {
			return err
		}
	case view.Totals != nil:
		if err := writer.Write(totalsRecord(view.Table, *view.Totals)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(writer *csv.Writer, table reports.Table) error {
	labels := make([]string, len(table.Headers))
	for i, h := range table.Headers {
		labels[i] = h.Label
	}
	if err := writer.Write(labels); err != nil {
		return err
	}
	keys := table.Keys()
	for _, row := range table.Rows {
		record := make([]string, len(keys))
		for i, key := range keys {
			record[i] = csvCell(row[key])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func totalsRecord(table reports.Table, totals reports.ColumnTotals) []string {
	values := map[string]string{
		"sales":  formatFloat(totals.Sales),
		"cost":   formatFloat(totals.Cost),
		"profit": formatFloat(totals.Profit),
		"margin": formatFloat(totals.AverageMargin),
	}
	record := make([]string, len(table.Headers))
	for i, h := range table.Headers {
		record[i] = values[h.Key]
	}
	if len(record) > 0 {
		record[0] = "Total"
	}
	return record
}

func padRecord(record []string, width int) []string {
	for len(record) < width {
		record = append(record, "")
	}
	return record
}
