package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []Row {
	return []Row{
		{Date: "2025-11-01", Source: SourceCosting, Rep: "Alice", Customer: "Acme", JobNumber: "JOB-100", JobType: "Repair", Sales: 100, Cost: 40, Profit: 60, Margin: 60},
		{Date: "2025-11-05", Source: SourceCosting, Rep: "Bob", Customer: "Globex", JobNumber: "job-200", JobType: "Service", Sales: 200, Cost: 150, Profit: 50, Margin: 25},
		{Date: "2025-11-10", Source: SourceRental, Rep: RepSLARental, Customer: "Acme", JobType: JobTypeRental, Sales: 80, Profit: 80, Margin: 100},
		{Source: SourceCosting, Rep: "Alice", Customer: "Initech", JobNumber: "JOB-300", JobType: "Repair", Sales: 10, Cost: 20, Profit: -10, Margin: -100},
	}
}

func TestMatchesAnyWildcard(t *testing.T) {
	assert.True(t, MatchesAny(nil, "anything"))
	assert.True(t, MatchesAny([]string{}, ""))
	assert.True(t, MatchesAny([]string{"X"}, "X"))
	assert.False(t, MatchesAny([]string{"X"}, "x"))
	assert.False(t, MatchesAny([]string{"X"}, "Y"))
}

func TestApplyFiltersDefaultKeepsEverything(t *testing.T) {
	rows := sampleRows()
	out := ApplyFilters(rows, DefaultFilter())
	require.Equal(t, rows, out)
}

func TestApplyFiltersDoesNotMutateInput(t *testing.T) {
	rows := sampleRows()
	before := sampleRows()
	out := ApplyFilters(rows, DefaultFilter().WithReps("Bob"))
	require.Len(t, out, 1)
	out[0].Rep = "changed"
	assert.Equal(t, before, rows)
}

func TestApplyFiltersRepSelection(t *testing.T) {
	out := ApplyFilters(sampleRows(), DefaultFilter().WithReps("Alice"))
	require.Len(t, out, 2)
	for _, row := range out {
		assert.Equal(t, "Alice", row.Rep)
	}
}

func TestApplyFiltersDateRange(t *testing.T) {
	out := ApplyFilters(sampleRows(), DefaultFilter().WithDateRange("2025-11-01", "2025-11-05"))
	require.Len(t, out, 2)
	assert.Equal(t, "2025-11-01", out[0].Date)
	assert.Equal(t, "2025-11-05", out[1].Date)

	// Undated rows never fall inside a range, even an open-ended one.
	out = ApplyFilters(sampleRows(), DefaultFilter().WithDateRange("", "2025-12-31"))
	require.Len(t, out, 3)
	for _, row := range out {
		assert.True(t, row.HasDate())
	}
}

func TestApplyFiltersInvertedRangeIsEmpty(t *testing.T) {
	out := ApplyFilters(sampleRows(), DefaultFilter().WithDateRange("2025-11-10", "2025-11-05"))
	assert.Empty(t, out)
}

func TestApplyFiltersTimestampBound(t *testing.T) {
	out := ApplyFilters(sampleRows(), DefaultFilter().WithDateRange("2025-11-05T00:00:00+07:00", "2025-11-05T23:59:59-05:00"))
	require.Len(t, out, 1)
	assert.Equal(t, "Bob", out[0].Rep)
}

func TestApplyFiltersMarginRangeIsActiveAtFullDomain(t *testing.T) {
	anomaly := Row{Date: "2025-11-02", Source: SourceCosting, Rep: "Carol", Sales: 100, Cost: -50, Profit: 150, Margin: 150}
	rows := []Row{anomaly}

	assert.Len(t, ApplyFilters(rows, DefaultFilter()), 1, "unset margin range is inactive")
	assert.Empty(t, ApplyFilters(rows, DefaultFilter().WithMargin(0, 100)), "set range clamps inclusively")
	assert.Len(t, ApplyFilters(rows, DefaultFilter().WithMargin(0, 150)), 1, "bounds are inclusive")
}

func TestApplyFiltersSalesRange(t *testing.T) {
	out := ApplyFilters(sampleRows(), DefaultFilter().WithSales(80, 100))
	require.Len(t, out, 2)
	assert.Equal(t, 100.0, out[0].Sales)
	assert.Equal(t, 80.0, out[1].Sales)
}

func TestApplyFiltersJobNumberQuery(t *testing.T) {
	out := ApplyFilters(sampleRows(), DefaultFilter().WithJobNumberQuery("JOB-2"))
	require.Len(t, out, 1)
	assert.Equal(t, "job-200", out[0].JobNumber)

	// Rows without a job number never match a non-empty term.
	out = ApplyFilters(sampleRows(), DefaultFilter().WithJobNumberQuery("job"))
	assert.Len(t, out, 3)
}

func TestApplyFiltersCombined(t *testing.T) {
	state := DefaultFilter().
		WithCustomers("Acme").
		WithSources(SourceCosting).
		WithJobTypes("Repair")
	out := ApplyFilters(sampleRows(), state)
	require.Len(t, out, 1)
	assert.Equal(t, "JOB-100", out[0].JobNumber)
}

func TestFilterStateCopiesAreIndependent(t *testing.T) {
	base := DefaultFilter().WithReps("Alice")
	narrowed := base.WithReps("Alice", "Bob").WithMargin(10, 20)

	assert.Equal(t, []string{"Alice"}, base.Reps)
	assert.Nil(t, base.Margin)
	assert.Equal(t, []string{"Alice", "Bob"}, narrowed.Reps)

	reps := []string{"Dora"}
	withDora := base.WithReps(reps...)
	reps[0] = "Eve"
	assert.Equal(t, []string{"Dora"}, withDora.Reps)
}
