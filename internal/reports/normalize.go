package reports

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Placeholder values keep every grouping key total.
const (
	JobTypeRental = "Rental"
	JobTypeSLA    = "SLA"
	JobTypeOther  = "Other"

	RepUnknown   = "Unknown"
	RepSLARental = "SLA/Rental"
)

// centTolerance bounds how far a stored costing profit may drift from
// sales-cost before it is reported.
var centTolerance = decimal.New(1, -2)

// Warning describes a record that was normalized with defaulted values.
type Warning struct {
	Source SourceKind `json:"source"`
	Index  int        `json:"index"`
	ID     uuid.UUID  `json:"id"`
	Field  string     `json:"field"`
	Reason string     `json:"reason"`
}

// Normalize converts the three source collections into reporting rows.
// Costing rows come first, then rental, then SLA, each in source order.
// Profit and margin are always recomputed from sales and cost; records with
// missing fields are kept with zeroed values and reported as warnings.
func Normalize(set SourceSet) ([]Row, []Warning) {
	rows := make([]Row, 0, set.Len())
	var warnings []Warning

	for i, entry := range set.Costing {
		row := Row{
			ID:            entry.ID,
			Source:        SourceCosting,
			Rep:           orDefault(entry.Rep, RepUnknown),
			Customer:      strings.TrimSpace(entry.Customer),
			JobNumber:     strings.TrimSpace(entry.JobNumber),
			InvoiceNumber: strings.TrimSpace(entry.InvoiceNumber),
			JobType:       orDefault(entry.JobDescription, JobTypeOther),
		}
		warn := warner(&warnings, SourceCosting, i, entry.ID)
		row.Date = normalizeRecordDate(entry.Date, warn)
		if entry.TotalCustomer == nil {
			warn("total_customer", "missing sales; treated as 0")
		}
		row.Sales = deref(entry.TotalCustomer)
		row.Cost = deref(entry.TotalExpenses)
		derive(&row)
		if entry.Profit != nil && !withinCent(*entry.Profit, row.Profit) {
			warn("profit", "stored profit differs from sales minus cost; recomputed")
		}
		rows = append(rows, row)
	}

	for i, income := range set.Rental {
		row := Row{
			ID:        income.ID,
			Source:    SourceRental,
			Rep:       RepSLARental,
			Customer:  strings.TrimSpace(income.Customer),
			JobType:   JobTypeRental,
			Reference: orDefault(income.EquipmentName, strings.TrimSpace(income.EquipmentID)),
		}
		warn := warner(&warnings, SourceRental, i, income.ID)
		row.Date = normalizeRecordDate(income.Date, warn)
		if income.Amount == nil {
			warn("amount", "missing amount; treated as 0")
		}
		row.Sales = deref(income.Amount)
		derive(&row)
		rows = append(rows, row)
	}

	for i, income := range set.SLA {
		row := Row{
			ID:        income.ID,
			Source:    SourceSLA,
			Rep:       RepSLARental,
			Customer:  strings.TrimSpace(income.Customer),
			JobType:   JobTypeSLA,
			Reference: orDefault(income.UnitName, strings.TrimSpace(income.UnitID)),
		}
		warn := warner(&warnings, SourceSLA, i, income.ID)
		row.Date = normalizeRecordDate(income.Date, warn)
		if income.Amount == nil {
			warn("amount", "missing amount; treated as 0")
		}
		row.Sales = deref(income.Amount)
		derive(&row)
		rows = append(rows, row)
	}

	return rows, warnings
}

// MarginOf returns profit as a percentage of sales, or 0 when sales is not positive.
func MarginOf(profit, sales float64) float64 {
	if sales > 0 {
		return profit / sales * 100
	}
	return 0
}

func derive(row *Row) {
	row.Profit = row.Sales - row.Cost
	row.Margin = MarginOf(row.Profit, row.Sales)
}

func normalizeRecordDate(raw string, warn func(field, reason string)) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		warn("date", "missing date; excluded from date filters")
		return ""
	}
	day, ok := normalizeDay(raw)
	if !ok {
		warn("date", "unparseable date; excluded from date filters")
		return ""
	}
	return day
}

func warner(dst *[]Warning, source SourceKind, index int, id uuid.UUID) func(field, reason string) {
	return func(field, reason string) {
		*dst = append(*dst, Warning{Source: source, Index: index, ID: id, Field: field, Reason: reason})
	}
}

func withinCent(stored, derived float64) bool {
	diff := decimal.NewFromFloat(stored).Sub(decimal.NewFromFloat(derived)).Abs()
	return diff.LessThanOrEqual(centTolerance)
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// deref treats NULL and non-finite amounts as 0.
func deref(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}
