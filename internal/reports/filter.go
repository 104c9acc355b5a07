package reports

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Range is an inclusive numeric bound. A nil *Range is inactive.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r *Range) contains(v float64) bool {
	if r == nil {
		return true
	}
	return v >= r.Min && v <= r.Max
}

// FilterState is a snapshot of every active predicate. The zero value
// restricts nothing. Use the With* methods to derive narrowed copies; they
// never modify the receiver.
type FilterState struct {
	// From and To bound the calendar day inclusively; empty means open.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Margin and Sales are active whenever they are set, including at their
	// widest bounds.
	Margin *Range `json:"margin,omitempty"`
	Sales  *Range `json:"sales,omitempty"`

	// Empty selections match everything.
	Reps       []string     `json:"reps,omitempty"`
	Customers  []string     `json:"customers,omitempty"`
	JobTypes   []string     `json:"job_types,omitempty"`
	JobNumbers []string     `json:"job_numbers,omitempty"`
	Sources    []SourceKind `json:"sources,omitempty"`

	// JobNumberQuery is a case-insensitive substring of the job number.
	JobNumberQuery string `json:"job_number_query,omitempty"`
}

// DefaultFilter returns the state that excludes no row.
func DefaultFilter() FilterState {
	return FilterState{}
}

// WithDateRange returns a copy restricted to [from, to].
func (s FilterState) WithDateRange(from, to string) FilterState {
	out := s.clone()
	out.From, out.To = from, to
	return out
}

// WithMargin returns a copy with an active margin range.
func (s FilterState) WithMargin(minPct, maxPct float64) FilterState {
	out := s.clone()
	out.Margin = &Range{Min: minPct, Max: maxPct}
	return out
}

// WithSales returns a copy with an active sales range.
func (s FilterState) WithSales(minSales, maxSales float64) FilterState {
	out := s.clone()
	out.Sales = &Range{Min: minSales, Max: maxSales}
	return out
}

// WithReps returns a copy selecting the given reps.
func (s FilterState) WithReps(reps ...string) FilterState {
	out := s.clone()
	out.Reps = slices.Clone(reps)
	return out
}

// WithCustomers returns a copy selecting the given customers.
func (s FilterState) WithCustomers(customers ...string) FilterState {
	out := s.clone()
	out.Customers = slices.Clone(customers)
	return out
}

// WithJobTypes returns a copy selecting the given job types.
func (s FilterState) WithJobTypes(jobTypes ...string) FilterState {
	out := s.clone()
	out.JobTypes = slices.Clone(jobTypes)
	return out
}

// WithJobNumbers returns a copy selecting the given job numbers.
func (s FilterState) WithJobNumbers(numbers ...string) FilterState {
	out := s.clone()
	out.JobNumbers = slices.Clone(numbers)
	return out
}

// WithSources returns a copy selecting the given source kinds.
func (s FilterState) WithSources(sources ...SourceKind) FilterState {
	out := s.clone()
	out.Sources = slices.Clone(sources)
	return out
}

// WithJobNumberQuery returns a copy with a job number substring.
func (s FilterState) WithJobNumberQuery(q string) FilterState {
	out := s.clone()
	out.JobNumberQuery = q
	return out
}

func (s FilterState) clone() FilterState {
	out := s
	if s.Margin != nil {
		m := *s.Margin
		out.Margin = &m
	}
	if s.Sales != nil {
		v := *s.Sales
		out.Sales = &v
	}
	out.Reps = slices.Clone(s.Reps)
	out.Customers = slices.Clone(s.Customers)
	out.JobTypes = slices.Clone(s.JobTypes)
	out.JobNumbers = slices.Clone(s.JobNumbers)
	out.Sources = slices.Clone(s.Sources)
	return out
}

// MatchesAny is the wildcard rule for multi-select dimensions: nothing
// selected matches every value.
func MatchesAny[T comparable](selected []T, value T) bool {
	return len(selected) == 0 || slices.Contains(selected, value)
}

// Matches reports whether a single row passes every predicate.
func (s FilterState) Matches(row Row) bool {
	return s.compile().matches(row)
}

// ApplyFilters returns the rows passing every predicate, in input order.
// The input slice is never modified. A state whose From is after its To
// yields an empty result.
func ApplyFilters(rows []Row, state FilterState) []Row {
	m := state.compile()
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if m.matches(row) {
			out = append(out, row)
		}
	}
	return out
}

type matcher struct {
	state FilterState
	from  string
	to    string
	query string
}

func (s FilterState) compile() matcher {
	m := matcher{state: s}
	m.from = dayBound(s.From)
	m.to = dayBound(s.To)
	if q := strings.TrimSpace(s.JobNumberQuery); q != "" {
		m.query = fold(q)
	}
	return m
}

func (m matcher) matches(row Row) bool {
	if m.from != "" || m.to != "" {
		if !row.HasDate() {
			return false
		}
		if m.from != "" && row.Date < m.from {
			return false
		}
		if m.to != "" && row.Date > m.to {
			return false
		}
	}
	if !m.state.Margin.contains(row.Margin) || !m.state.Sales.contains(row.Sales) {
		return false
	}
	if !MatchesAny(m.state.Reps, row.Rep) ||
		!MatchesAny(m.state.Customers, row.Customer) ||
		!MatchesAny(m.state.JobTypes, row.JobType) ||
		!MatchesAny(m.state.JobNumbers, row.JobNumber) ||
		!MatchesAny(m.state.Sources, row.Source) {
		return false
	}
	if m.query != "" {
		if row.JobNumber == "" || !strings.Contains(fold(row.JobNumber), m.query) {
			return false
		}
	}
	return true
}

// dayBound reduces a filter bound to YYYY-MM-DD. Bounds that are not
// calendar days are kept verbatim so they still compare as strings.
func dayBound(raw string) string {
	raw = strings.TrimSpace(raw)
	if day, ok := normalizeDay(raw); ok {
		return day
	}
	return raw
}

func fold(s string) string {
	return cases.Fold().String(s)
}
