package reports

import (
	"math"

	"github.com/shopspring/decimal"
)

// Header describes one export column. Key matches the keys used in every
// Table row.
type Header struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Table is the shape CSV and PDF writers consume without remapping.
type Table struct {
	Headers []Header         `json:"headers"`
	Rows    []map[string]any `json:"rows"`
}

// Keys lists the header keys in column order.
func (t Table) Keys() []string {
	keys := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		keys[i] = h.Key
	}
	return keys
}

// ChartPoint is a single {name, value} pair for pie and bar charts. Value is
// always rounded and finite.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ChartSeries groups chart points under a name, e.g. one rep's sales per job
// type.
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points"`
}

var detailHeaders = []Header{
	{Key: "date", Label: "Date"},
	{Key: "source", Label: "Source"},
	{Key: "rep", Label: "Rep"},
	{Key: "customer", Label: "Customer"},
	{Key: "job_number", Label: "Job Number"},
	{Key: "invoice_number", Label: "Invoice Number"},
	{Key: "job_type", Label: "Job Type"},
	{Key: "sales", Label: "Sales"},
	{Key: "cost", Label: "Cost"},
	{Key: "profit", Label: "Profit"},
	{Key: "margin", Label: "Margin %"},
}

func detailTable(rows []Row) Table {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"date":           r.Date,
			"source":         r.Source.Label(),
			"rep":            r.Rep,
			"customer":       r.Customer,
			"job_number":     r.JobNumber,
			"invoice_number": r.InvoiceNumber,
			"job_type":       r.JobType,
			"sales":          round2(r.Sales),
			"cost":           round2(r.Cost),
			"profit":         round2(r.Profit),
			"margin":         round2(r.Margin),
		})
	}
	return Table{Headers: cloneHeaders(detailHeaders), Rows: out}
}

func groupTable(keyLabel string, groups []GroupSummary) Table {
	headers := []Header{
		{Key: "key", Label: keyLabel},
		{Key: "sales", Label: "Sales"},
		{Key: "cost", Label: "Cost"},
		{Key: "profit", Label: "Profit"},
		{Key: "margin", Label: "Margin %"},
		{Key: "count", Label: "Entries"},
	}
	out := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		out = append(out, map[string]any{
			"key":    g.Key,
			"sales":  round2(g.Sales),
			"cost":   round2(g.Cost),
			"profit": round2(g.Profit),
			"margin": round2(g.Margin()),
			"count":  g.Count,
		})
	}
	return Table{Headers: headers, Rows: out}
}

func salesChart(groups []GroupSummary) []ChartPoint {
	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{Name: g.Key, Value: round2(g.Sales)})
	}
	return points
}

func cloneHeaders(h []Header) []Header {
	out := make([]Header, len(h))
	copy(out, h)
	return out
}

// round2 rounds half away from zero to cents and maps non-finite input to 0.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
