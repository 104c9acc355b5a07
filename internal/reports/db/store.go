package reportsdb

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fleetledger/fleetledger/internal/reports"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

// Store reads the three report source tables.
type Store struct {
	db DBTX
}

// NewStore wraps a pool, connection or transaction.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

var _ reports.SourceStore = (*Store)(nil)

// EnsureSchema creates the source tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return wrapErr("ensure schema", err)
	}
	return nil
}

const listCostingEntries = `SELECT id, date,
       COALESCE(job_number, ''), COALESCE(invoice_number, ''), COALESCE(job_description, ''),
       COALESCE(customer, ''), COALESCE(rep, ''),
       total_customer::float8, total_expenses::float8, profit::float8, margin::float8
FROM costing_entries
WHERE date BETWEEN $1 AND $2
ORDER BY date, created_at, id`

const listRentalIncome = `SELECT ri.id, ri.date, ri.amount::float8,
       COALESCE(ri.rental_equipment_id, ''), COALESCE(re.name, ''), COALESCE(ri.customer, '')
FROM rental_income ri
LEFT JOIN rental_equipment re ON re.id = ri.rental_equipment_id
WHERE ri.date BETWEEN $1 AND $2
ORDER BY ri.date, ri.created_at, ri.id`

const listSLAIncome = `SELECT si.id, si.date, si.amount::float8,
       COALESCE(si.unit_id, ''), COALESCE(su.name, ''), COALESCE(si.customer, '')
FROM sla_income si
LEFT JOIN sla_units su ON su.id = si.unit_id
WHERE si.date BETWEEN $1 AND $2
ORDER BY si.date, si.created_at, si.id`

// ListCostingEntries returns costing entries dated within w.
func (s *Store) ListCostingEntries(ctx context.Context, w reports.Window) ([]reports.CostingEntry, error) {
	from, to, err := windowParams(w)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, listCostingEntries, from, to)
	if err != nil {
		return nil, wrapErr("list costing entries", err)
	}
	defer rows.Close()

	out := make([]reports.CostingEntry, 0)
	for rows.Next() {
		var (
			id    pgtype.UUID
			date  pgtype.Date
			entry reports.CostingEntry

			sales, expenses, profit, margin pgtype.Float8
		)
		if err := rows.Scan(&id, &date,
			&entry.JobNumber, &entry.InvoiceNumber, &entry.JobDescription,
			&entry.Customer, &entry.Rep,
			&sales, &expenses, &profit, &margin); err != nil {
			return nil, wrapErr("scan costing entry", err)
		}
		entry.ID = uuidFrom(id)
		entry.Date = dayString(date)
		entry.TotalCustomer = floatPtr(sales)
		entry.TotalExpenses = floatPtr(expenses)
		entry.Profit = floatPtr(profit)
		entry.Margin = floatPtr(margin)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list costing entries", err)
	}
	return out, nil
}

// ListRentalIncome returns rental income dated within w, with equipment
// names resolved.
func (s *Store) ListRentalIncome(ctx context.Context, w reports.Window) ([]reports.RentalIncome, error) {
	from, to, err := windowParams(w)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, listRentalIncome, from, to)
	if err != nil {
		return nil, wrapErr("list rental income", err)
	}
	defer rows.Close()

	out := make([]reports.RentalIncome, 0)
	for rows.Next() {
		var (
			id     pgtype.UUID
			date   pgtype.Date
			amount pgtype.Float8
			income reports.RentalIncome
		)
		if err := rows.Scan(&id, &date, &amount, &income.EquipmentID, &income.EquipmentName, &income.Customer); err != nil {
			return nil, wrapErr("scan rental income", err)
		}
		income.ID = uuidFrom(id)
		income.Date = dayString(date)
		income.Amount = floatPtr(amount)
		out = append(out, income)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list rental income", err)
	}
	return out, nil
}

// ListSLAIncome returns SLA income dated within w, with unit names resolved.
func (s *Store) ListSLAIncome(ctx context.Context, w reports.Window) ([]reports.SLAIncome, error) {
	from, to, err := windowParams(w)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, listSLAIncome, from, to)
	if err != nil {
		return nil, wrapErr("list sla income", err)
	}
	defer rows.Close()

	out := make([]reports.SLAIncome, 0)
	for rows.Next() {
		var (
			id     pgtype.UUID
			date   pgtype.Date
			amount pgtype.Float8
			income reports.SLAIncome
		)
		if err := rows.Scan(&id, &date, &amount, &income.UnitID, &income.UnitName, &income.Customer); err != nil {
			return nil, wrapErr("scan sla income", err)
		}
		income.ID = uuidFrom(id)
		income.Date = dayString(date)
		income.Amount = floatPtr(amount)
		out = append(out, income)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list sla income", err)
	}
	return out, nil
}
