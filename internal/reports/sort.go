package reports

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Direction orders a sort ascending or descending.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortKey names the row field a detail view is ordered by.
type SortKey string

const (
	SortDate          SortKey = "date"
	SortSource        SortKey = "source"
	SortRep           SortKey = "rep"
	SortCustomer      SortKey = "customer"
	SortJobNumber     SortKey = "job_number"
	SortInvoiceNumber SortKey = "invoice_number"
	SortJobType       SortKey = "job_type"
	SortSales         SortKey = "sales"
	SortCost          SortKey = "cost"
	SortProfit        SortKey = "profit"
	SortMargin        SortKey = "margin"
)

type fieldKind int

const (
	fieldString fieldKind = iota
	fieldNumber
	fieldDate
)

var sortFields = map[SortKey]fieldKind{
	SortDate:          fieldDate,
	SortSource:        fieldString,
	SortRep:           fieldString,
	SortCustomer:      fieldString,
	SortJobNumber:     fieldString,
	SortInvoiceNumber: fieldString,
	SortJobType:       fieldString,
	SortSales:         fieldNumber,
	SortCost:          fieldNumber,
	SortProfit:        fieldNumber,
	SortMargin:        fieldNumber,
}

// SortState selects the key and direction of a detail view.
type SortState struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders detail rows by ascending date.
func DefaultSort() SortState {
	return SortState{Key: SortDate, Direction: Asc}
}

// ParseSortKey validates a sort key coming from a request.
func ParseSortKey(raw string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := sortFields[key]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, raw)
	}
	return key, nil
}

// ParseDirection maps anything other than "desc" to Asc.
func ParseDirection(raw string) Direction {
	if strings.EqualFold(strings.TrimSpace(raw), string(Desc)) {
		return Desc
	}
	return Asc
}

type sortValue struct {
	missing bool
	num     float64
	str     string
	day     time.Time
}

// SortRows returns a sorted copy of rows. Numbers compare numerically, dates
// chronologically and everything else as case-folded strings. Rows without a
// value for the key are placed last in both directions, and equal rows keep
// their input order. An unknown key leaves the order unchanged.
func SortRows(rows []Row, key SortKey, dir Direction) []Row {
	kind, known := sortFields[key]
	out := make([]Row, len(rows))
	copy(out, rows)
	if !known {
		return out
	}

	// Keys are extracted once and permuted alongside the rows.
	values := make([]sortValue, len(out))
	for i, row := range out {
		values[i] = extract(row, key, kind)
	}
	sort.Stable(&rowSorter{rows: out, values: values, kind: kind, desc: dir == Desc})
	return out
}

type rowSorter struct {
	rows   []Row
	values []sortValue
	kind   fieldKind
	desc   bool
}

func (s *rowSorter) Len() int { return len(s.rows) }

func (s *rowSorter) Swap(i, j int) {
	s.rows[i], s.rows[j] = s.rows[j], s.rows[i]
	s.values[i], s.values[j] = s.values[j], s.values[i]
}

func (s *rowSorter) Less(i, j int) bool {
	a, b := s.values[i], s.values[j]
	if a.missing || b.missing {
		return !a.missing && b.missing
	}
	c := compareValues(a, b, s.kind)
	if s.desc {
		return c > 0
	}
	return c < 0
}

func compareValues(a, b sortValue, kind fieldKind) int {
	switch kind {
	case fieldNumber:
		return compareFloat(a.num, b.num)
	case fieldDate:
		return a.day.Compare(b.day)
	default:
		return strings.Compare(a.str, b.str)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func extract(row Row, key SortKey, kind fieldKind) sortValue {
	switch kind {
	case fieldNumber:
		return sortValue{num: numericField(row, key)}
	case fieldDate:
		day, err := time.Parse(dayLayout, row.Date)
		if err != nil {
			return sortValue{missing: true}
		}
		return sortValue{day: day}
	default:
		s := strings.TrimSpace(stringField(row, key))
		if s == "" {
			return sortValue{missing: true}
		}
		return sortValue{str: fold(s)}
	}
}

func numericField(row Row, key SortKey) float64 {
	var v float64
	switch key {
	case SortSales:
		v = row.Sales
	case SortCost:
		v = row.Cost
	case SortProfit:
		v = row.Profit
	case SortMargin:
		v = row.Margin
	}
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func stringField(row Row, key SortKey) string {
	switch key {
	case SortSource:
		return string(row.Source)
	case SortRep:
		return row.Rep
	case SortCustomer:
		return row.Customer
	case SortJobNumber:
		return row.JobNumber
	case SortInvoiceNumber:
		return row.InvoiceNumber
	case SortJobType:
		return row.JobType
	default:
		return ""
	}
}

// GroupSortKey names the GroupSummary field a summary view is ordered by.
type GroupSortKey string

const (
	GroupSortKeyName GroupSortKey = "key"
	GroupSortSales   GroupSortKey = "sales"
	GroupSortCost    GroupSortKey = "cost"
	GroupSortProfit  GroupSortKey = "profit"
	GroupSortMargin  GroupSortKey = "margin"
	GroupSortCount   GroupSortKey = "count"
)

// SortGroups returns a stably sorted copy of groups.
func SortGroups(groups []GroupSummary, key GroupSortKey, dir Direction) []GroupSummary {
	out := make([]GroupSummary, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		c := compareGroups(out[i], out[j], key)
		if dir == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compareGroups(a, b GroupSummary, key GroupSortKey) int {
	switch key {
	case GroupSortKeyName:
		return strings.Compare(fold(a.Key), fold(b.Key))
	case GroupSortCost:
		return compareFloat(a.Cost, b.Cost)
	case GroupSortProfit:
		return compareFloat(a.Profit, b.Profit)
	case GroupSortMargin:
		return compareFloat(a.Margin(), b.Margin())
	case GroupSortCount:
		return a.Count - b.Count
	default:
		return compareFloat(a.Sales, b.Sales)
	}
}
