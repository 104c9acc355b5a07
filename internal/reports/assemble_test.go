package reports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportRows() []Row {
	return []Row{
		{Date: "2025-11-03", Source: SourceCosting, Rep: "Alice", Customer: "Acme", JobNumber: "J-1", JobType: "Repair", Sales: 100, Cost: 40, Profit: 60, Margin: 60},
		{Date: "2025-11-01", Source: SourceCosting, Rep: "Bob", Customer: "Globex", JobNumber: "J-2", JobType: "Service", Sales: 400, Cost: 300, Profit: 100, Margin: 25},
		{Date: "2025-11-03", Source: SourceCosting, Rep: "Alice", Customer: "Globex", JobNumber: "J-3", JobType: "Service", Sales: 50, Cost: 0, Profit: 50, Margin: 100},
		{Date: "2025-11-02", Source: SourceCosting, Rep: "Carol", Customer: "Acme", JobNumber: "J-4", JobType: "Repair", Sales: 0, Cost: 10, Profit: -10, Margin: 0},
		{Date: "2025-11-02", Source: SourceRental, Rep: RepSLARental, Customer: "Acme", JobType: JobTypeRental, Sales: 20, Profit: 20, Margin: 100},
		{Source: SourceSLA, Rep: RepSLARental, Customer: "Initech", JobType: JobTypeSLA, Sales: 30, Profit: 30, Margin: 100},
	}
}

func TestBuildDetailedEntriesStableProfitDesc(t *testing.T) {
	rows := []Row{
		{JobNumber: "A", Profit: 10, Sales: 10, Margin: 100},
		{JobNumber: "B", Profit: -5, Sales: 5, Cost: 10, Margin: -100},
		{JobNumber: "C", Profit: 10, Sales: 20, Cost: 10, Margin: 50},
	}
	view, err := Build(rows, DetailedEntries{Sort: SortState{Key: SortProfit, Direction: Desc}}, DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, jobNumbers(view.Rows))
	require.NotNil(t, view.Totals)
	assert.Equal(t, 35.0, view.Totals.Sales)
	assert.Equal(t, 15.0, view.Totals.Profit)
	assert.InDelta(t, 50.0/3, view.Totals.AverageMargin, 1e-9)
	assert.Nil(t, view.Pagination)
}

func TestBuildDetailedEntriesAverageMarginIsRowWeighted(t *testing.T) {
	view, err := Build(reportRows(), DetailedEntries{}, DefaultFilter())
	require.NoError(t, err)
	// (60 + 25 + 100 + 0 + 100 + 100) / 6, not total profit over total sales.
	assert.InDelta(t, 385.0/6, view.Totals.AverageMargin, 1e-9)
	assert.Equal(t, 6, view.Totals.Count)
	// Default sort is date ascending with undated rows last.
	assert.Equal(t, "2025-11-01", view.Rows[0].Date)
	assert.False(t, view.Rows[5].HasDate())
}

func TestBuildDetailedEntriesPagesKeepFullTotals(t *testing.T) {
	view, err := Build(reportRows(), DetailedEntries{Page: 2, PerPage: 4}, DefaultFilter())
	require.NoError(t, err)
	require.NotNil(t, view.Pagination)
	assert.Equal(t, 2, view.Pagination.Page)
	assert.Equal(t, 2, view.Pagination.TotalPages)
	assert.Len(t, view.Rows, 2)
	assert.Len(t, view.Table.Rows, 2)
	assert.Equal(t, 600.0, view.Totals.Sales)
	assert.Equal(t, 6, view.Matched)
}

func TestBuildTableKeysMatchHeaders(t *testing.T) {
	for _, kind := range PageSequence() {
		view, err := BuildKind(reportRows(), kind, DefaultFilter(), DefaultSort(), BuildOptions{})
		require.NoError(t, err, kind)
		require.NotEmpty(t, view.Table.Headers, kind)
		keys := view.Table.Keys()
		for _, row := range view.Table.Rows {
			require.Len(t, row, len(keys), kind)
			for _, k := range keys {
				_, ok := row[k]
				require.True(t, ok, "%s row missing %s", kind, k)
			}
		}
	}
}

func TestBuildSummaryByJobType(t *testing.T) {
	view, err := Build(reportRows(), SummaryByJobType{}, DefaultFilter())
	require.NoError(t, err)
	require.Len(t, view.Groups, 4)
	assert.Equal(t, "Service", view.Groups[0].Key)
	assert.Equal(t, 450.0, view.Groups[0].Sales)
	assert.Equal(t, "Repair", view.Groups[1].Key)
	assert.Equal(t, 600.0, view.GrandTotals.Sales)
	assert.Equal(t, []ChartPoint{
		{Name: "Service", Value: 450},
		{Name: "Repair", Value: 100},
		{Name: JobTypeSLA, Value: 30},
		{Name: JobTypeRental, Value: 20},
	}, view.Chart)
}

func TestBuildSummaryByRepRespectsFilter(t *testing.T) {
	view, err := Build(reportRows(), SummaryByRep{}, DefaultFilter().WithCustomers("Acme"))
	require.NoError(t, err)
	assert.Equal(t, 3, view.Matched)
	require.Len(t, view.Groups, 3)
	assert.Equal(t, "Alice", view.Groups[0].Key)
	assert.Equal(t, 120.0, view.GrandTotals.Sales)
}

func TestBuildSummaryByCustomer(t *testing.T) {
	view, err := Build(reportRows(), SummaryByCustomer{}, DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, "Globex", view.Groups[0].Key)
	assert.Equal(t, 2, view.Groups[0].Count)
}

func TestBuildRepBreakdownTopN(t *testing.T) {
	view, err := Build(reportRows(), RepBreakdown{TopN: 2}, DefaultFilter())
	require.NoError(t, err)
	require.Len(t, view.Groups, 2)
	require.Len(t, view.Series, 2)
	assert.Equal(t, "Bob", view.Series[0].Name)
	assert.Equal(t, "Alice", view.Series[1].Name)
	assert.Equal(t, []ChartPoint{{Name: "Repair", Value: 100}, {Name: "Service", Value: 50}}, view.Series[1].Points)
	// Grand totals still cover every rep.
	assert.Equal(t, 600.0, view.GrandTotals.Sales)
}

func TestBuildPerformanceComparison(t *testing.T) {
	view, err := Build(reportRows(), PerformanceComparison{}, DefaultFilter())
	require.NoError(t, err)
	perf := view.Performance
	require.NotNil(t, perf)
	require.NotNil(t, perf.TopPerformer)
	assert.Equal(t, "Bob", perf.TopPerformer.Rep)
	require.NotNil(t, perf.HighestMargin)
	assert.Equal(t, RepSLARental, perf.HighestMargin.Rep)
	assert.Equal(t, 100.0, perf.HighestMargin.Value)
	require.NotNil(t, perf.MostJobs)
	assert.Equal(t, "Alice", perf.MostJobs.Rep)
	assert.Equal(t, 2.0, perf.MostJobs.Value)
}

func TestBuildPerformanceIgnoresZeroSalesForMargin(t *testing.T) {
	rows := []Row{{Rep: "Carol", Cost: 10, Profit: -10}}
	view, err := Build(rows, PerformanceComparison{}, DefaultFilter())
	require.NoError(t, err)
	assert.Nil(t, view.Performance.HighestMargin)
	assert.Equal(t, "Carol", view.Performance.TopPerformer.Rep)
}

func TestBuildDailyTrendUnknownLast(t *testing.T) {
	view, err := Build(reportRows(), DailyTrend{}, DefaultFilter())
	require.NoError(t, err)
	keys := make([]string, 0, len(view.Groups))
	for _, g := range view.Groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"2025-11-01", "2025-11-02", "2025-11-03", "Unknown date"}, keys)
}

func TestBuildCover(t *testing.T) {
	view, err := Build(reportRows(), Cover{Window: Window{From: "2025-11-01", To: "2025-11-30"}}, DefaultFilter())
	require.NoError(t, err)
	require.NotNil(t, view.Cover)
	assert.Equal(t, "2025-11-01 to 2025-11-30", view.Cover.Period)
	assert.Equal(t, 600.0, view.Cover.Totals.Sales)
	assert.Equal(t, 6, view.Cover.Totals.Count)
	assert.Len(t, view.Cover.Sources, 3)
}

func TestBuildEmptyResult(t *testing.T) {
	filter := DefaultFilter().WithDateRange("2025-11-10", "2025-11-05")
	for _, kind := range PageSequence() {
		view, err := BuildKind(reportRows(), kind, filter, DefaultSort(), BuildOptions{})
		require.NoError(t, err)
		assert.True(t, view.Empty, kind)
		assert.Equal(t, NoDataMessage, view.Message, kind)
		assert.Equal(t, 0, view.Matched, kind)
		assert.NotNil(t, view.Table.Rows, kind)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	rows := reportRows()
	filter := DefaultFilter().WithMargin(0, 100).WithJobNumberQuery("j")
	sortState := SortState{Key: SortCustomer, Direction: Desc}
	for _, kind := range PageSequence() {
		first, err := BuildKind(rows, kind, filter, sortState, BuildOptions{TopN: 2, PerPage: 2})
		require.NoError(t, err)
		second, err := BuildKind(rows, kind, filter, sortState, BuildOptions{TopN: 2, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, first, second, kind)
	}
	assert.Equal(t, reportRows(), rows)
}

func TestBuildUnknownKind(t *testing.T) {
	_, err := BuildKind(reportRows(), Kind("pivot"), DefaultFilter(), DefaultSort(), BuildOptions{})
	require.True(t, errors.Is(err, ErrUnknownReportKind))

	_, err = Build(reportRows(), nil, DefaultFilter())
	require.True(t, errors.Is(err, ErrUnknownReportKind))

	_, err = ParseKind("pivot")
	require.True(t, errors.Is(err, ErrUnknownReportKind))
	kind, err := ParseKind("Daily-Trend")
	require.NoError(t, err)
	assert.Equal(t, KindDailyTrend, kind)
}

func TestChartValuesAreRounded(t *testing.T) {
	rows := []Row{{JobType: "Repair", Sales: 10.005}, {JobType: "Repair", Sales: 0.001}}
	view, err := Build(rows, SummaryByJobType{}, DefaultFilter())
	require.NoError(t, err)
	require.Len(t, view.Chart, 1)
	assert.Equal(t, 10.01, view.Chart[0].Value)
}
