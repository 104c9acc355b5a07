package reportsdb

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fleetledger/fleetledger/internal/reports"
)

const dayLayout = "2006-01-02"

// Postgres error codes surfaced with a readable operation name.
const (
	codeUndefinedTable  = "42P01"
	codeUndefinedColumn = "42703"
)

func windowParams(w reports.Window) (pgtype.Date, pgtype.Date, error) {
	if err := w.Validate(); err != nil {
		return pgtype.Date{}, pgtype.Date{}, err
	}
	from, _ := time.Parse(dayLayout, w.From)
	to, _ := time.Parse(dayLayout, w.To)
	return pgtype.Date{Time: from, Valid: true}, pgtype.Date{Time: to, Valid: true}, nil
}

func dayString(d pgtype.Date) string {
	if !d.Valid || d.InfinityModifier != pgtype.Finite {
		return ""
	}
	return d.Time.Format(dayLayout)
}

// floatPtr maps NULL and the NUMERIC 'NaN' (or an infinite float) to nil.
func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return nil
	}
	f := v.Float64
	return &f
}

func uuidFrom(v pgtype.UUID) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	return uuid.UUID(v.Bytes)
}

// IsMissingSchema reports whether err came from a table or column that does
// not exist, typically because EnsureSchema has not run.
func IsMissingSchema(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeUndefinedTable || pgErr.Code == codeUndefinedColumn
}

func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("reportsdb: %s: %s (SQLSTATE %s): %w", op, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("reportsdb: %s: %w", op, err)
}
