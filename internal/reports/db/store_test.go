package reportsdb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetledger/fleetledger/internal/reports"
)

type fakeRows struct {
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: got %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

type fakeDB struct {
	rows     *fakeRows
	queryErr error
	execErr  error
	sql      string
	args     []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag("CREATE TABLE"), f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.sql, f.args = sql, args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func day(s string) pgtype.Date {
	t, _ := time.Parse(dayLayout, s)
	return pgtype.Date{Time: t, Valid: true}
}

func num(v float64) pgtype.Float8 { return pgtype.Float8{Float64: v, Valid: true} }

func pgUUID(id uuid.UUID) pgtype.UUID { return pgtype.UUID{Bytes: id, Valid: true} }

var november = reports.Window{From: "2025-11-01", To: "2025-11-30"}

func TestListCostingEntries(t *testing.T) {
	id := uuid.New()
	rows := &fakeRows{data: [][]any{
		{pgUUID(id), day("2025-11-03"), "J-1", "INV-1", "Repair", "Acme", "Alice", num(100), num(40), num(60), num(60)},
		{pgtype.UUID{}, pgtype.Date{}, "J-2", "", "", "", "", pgtype.Float8{}, num(5), pgtype.Float8{}, pgtype.Float8{}},
	}}
	db := &fakeDB{rows: rows}
	entries, err := NewStore(db).ListCostingEntries(context.Background(), november)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, rows.closed)

	first := entries[0]
	assert.Equal(t, id, first.ID)
	assert.Equal(t, "2025-11-03", first.Date)
	assert.Equal(t, "Repair", first.JobDescription)
	require.NotNil(t, first.TotalCustomer)
	assert.Equal(t, 100.0, *first.TotalCustomer)

	second := entries[1]
	assert.Equal(t, uuid.Nil, second.ID)
	assert.Empty(t, second.Date)
	assert.Nil(t, second.TotalCustomer)
	require.NotNil(t, second.TotalExpenses)

	require.Len(t, db.args, 2)
	assert.Equal(t, day("2025-11-01"), db.args[0])
	assert.Equal(t, day("2025-11-30"), db.args[1])
	assert.Contains(t, db.sql, "FROM costing_entries")
}

func TestListRentalAndSLAIncome(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{data: [][]any{
		{pgUUID(uuid.New()), day("2025-11-02"), num(500), "EQ-1", "Forklift", "Acme"},
	}}}
	store := NewStore(db)
	rental, err := store.ListRentalIncome(context.Background(), november)
	require.NoError(t, err)
	require.Len(t, rental, 1)
	assert.Equal(t, "Forklift", rental[0].EquipmentName)
	assert.Equal(t, 500.0, *rental[0].Amount)
	assert.Contains(t, db.sql, "LEFT JOIN rental_equipment")

	db.rows = &fakeRows{data: [][]any{
		{pgUUID(uuid.New()), day("2025-11-04"), pgtype.Float8{}, "U-7", "", "Initech"},
	}}
	sla, err := store.ListSLAIncome(context.Background(), november)
	require.NoError(t, err)
	require.Len(t, sla, 1)
	assert.Equal(t, "U-7", sla[0].UnitID)
	assert.Nil(t, sla[0].Amount)
	assert.Contains(t, db.sql, "LEFT JOIN sla_units")
}

func TestListRentalIncomeDropsNonFiniteAmounts(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{data: [][]any{
		{pgUUID(uuid.New()), day("2025-11-02"), num(math.NaN()), "EQ-1", "Forklift", "Acme"},
		{pgUUID(uuid.New()), day("2025-11-03"), num(math.Inf(1)), "EQ-2", "Crane", "Acme"},
	}}}
	rental, err := NewStore(db).ListRentalIncome(context.Background(), november)
	require.NoError(t, err)
	require.Len(t, rental, 2)
	assert.Nil(t, rental[0].Amount)
	assert.Nil(t, rental[1].Amount)
}

func TestListEmptyReturnsNonNil(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{}}
	entries, err := NewStore(db).ListCostingEntries(context.Background(), november)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestListRejectsInvalidWindow(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{}}
	_, err := NewStore(db).ListSLAIncome(context.Background(), reports.Window{From: "2025-11-30", To: "2025-11-01"})
	require.ErrorIs(t, err, reports.ErrInvalidWindow)
	assert.Empty(t, db.sql)
}

func TestListWrapsPgErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: codeUndefinedTable, Message: `relation "sla_income" does not exist`}
	_, err := NewStore(&fakeDB{queryErr: pgErr}).ListSLAIncome(context.Background(), november)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgErr))
	assert.True(t, IsMissingSchema(err))
	assert.Contains(t, err.Error(), "SQLSTATE 42P01")

	_, err = NewStore(&fakeDB{rows: &fakeRows{err: errors.New("conn closed")}}).ListRentalIncome(context.Background(), november)
	require.Error(t, err)
	assert.False(t, IsMissingSchema(err))
	assert.True(t, strings.HasPrefix(err.Error(), "reportsdb: list rental income"))
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewStore(db).EnsureSchema(context.Background()))
	assert.Contains(t, db.sql, "CREATE TABLE IF NOT EXISTS costing_entries")
	assert.Empty(t, db.args)
}
