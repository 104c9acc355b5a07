package reports

import (
	"github.com/google/uuid"
)

// SourceKind tags which persisted collection a reporting row came from.
type SourceKind string

const (
	SourceCosting SourceKind = "costing"
	SourceRental  SourceKind = "rental"
	SourceSLA     SourceKind = "sla"
)

// Label returns the display name of the source kind.
func (k SourceKind) Label() string {
	switch k {
	case SourceCosting:
		return "Costing"
	case SourceRental:
		return "Rental"
	case SourceSLA:
		return "SLA"
	default:
		return string(k)
	}
}

// CostingEntry mirrors one costing_entries record. Monetary fields are nil when
// the column is NULL.
type CostingEntry struct {
	ID             uuid.UUID `json:"id"`
	Date           string    `json:"date"`
	JobNumber      string    `json:"job_number"`
	InvoiceNumber  string    `json:"invoice_number"`
	JobDescription string    `json:"job_description"`
	Customer       string    `json:"customer"`
	Rep            string    `json:"rep"`
	TotalCustomer  *float64  `json:"total_customer"`
	TotalExpenses  *float64  `json:"total_expenses"`
	Profit         *float64  `json:"profit"`
	Margin         *float64  `json:"margin"`
}

// RentalIncome mirrors one rental_income record. Rentals carry no cost.
type RentalIncome struct {
	ID            uuid.UUID `json:"id"`
	Date          string    `json:"date"`
	Amount        *float64  `json:"amount"`
	EquipmentID   string    `json:"rental_equipment_id"`
	EquipmentName string    `json:"rental_equipment_name"`
	Customer      string    `json:"customer"`
}

// SLAIncome mirrors one sla_income record. SLA income carries no cost.
type SLAIncome struct {
	ID       uuid.UUID `json:"id"`
	Date     string    `json:"date"`
	Amount   *float64  `json:"amount"`
	UnitID   string    `json:"sla_unit_id"`
	UnitName string    `json:"sla_unit_name"`
	Customer string    `json:"customer"`
}

// SourceSet bundles the three collections fetched for one window.
type SourceSet struct {
	Costing []CostingEntry `json:"costing"`
	Rental  []RentalIncome `json:"rental"`
	SLA     []SLAIncome    `json:"sla"`
}

// Len reports the number of records across all sources.
func (s SourceSet) Len() int {
	return len(s.Costing) + len(s.Rental) + len(s.SLA)
}

// Row is the common reporting shape every source record is normalized into.
// Profit is always Sales-Cost and Margin is derived from both.
type Row struct {
	ID            uuid.UUID  `json:"id"`
	Date          string     `json:"date,omitempty"`
	Source        SourceKind `json:"source"`
	Rep           string     `json:"rep"`
	Customer      string     `json:"customer"`
	JobNumber     string     `json:"job_number"`
	InvoiceNumber string     `json:"invoice_number"`
	JobType       string     `json:"job_type"`
	Reference     string     `json:"reference,omitempty"`
	Sales         float64    `json:"sales"`
	Cost          float64    `json:"cost"`
	Profit        float64    `json:"profit"`
	Margin        float64    `json:"margin"`
}

// HasDate reports whether the row carries a calendar day.
func (r Row) HasDate() bool {
	return r.Date != ""
}
