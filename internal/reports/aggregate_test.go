package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateByJobTypeScenario(t *testing.T) {
	rows, _ := Normalize(SourceSet{Costing: []CostingEntry{
		{Date: "2025-11-01", JobDescription: "Repair", TotalCustomer: f64(100), TotalExpenses: f64(40)},
		{Date: "2025-11-02", JobDescription: "Repair", TotalCustomer: f64(200), TotalExpenses: f64(50)},
	}})
	agg := AggregateBy(rows, ByJobType)
	require.Len(t, agg.Groups, 1)
	g := agg.Groups[0]
	assert.Equal(t, "Repair", g.Key)
	assert.Equal(t, 300.0, g.Sales)
	assert.Equal(t, 90.0, g.Cost)
	assert.Equal(t, 210.0, g.Profit)
	assert.Equal(t, 2, g.Count)
	assert.InDelta(t, 70.0, g.Margin(), 1e-9)
}

func TestAggregateByPreservesTotals(t *testing.T) {
	rows := append(sampleRows(),
		Row{Source: SourceSLA, Sales: 12.34, Cost: 0, Profit: 12.34},
		Row{Source: SourceCosting, Rep: "  ", Sales: 0.1, Cost: 0.2, Profit: -0.1},
	)
	var sales, cost, profit float64
	for _, r := range rows {
		sales += r.Sales
		cost += r.Cost
		profit += r.Profit
	}
	for _, dim := range []Dimension{ByJobType, ByRep, ByCustomer, ByDate, BySource} {
		agg := AggregateBy(rows, dim)
		var groupSales float64
		var count int
		for _, g := range agg.Groups {
			groupSales += g.Sales
			count += g.Count
		}
		assert.InDelta(t, sales, groupSales, 1e-9, dim.Name)
		assert.InDelta(t, sales, agg.Totals.Sales, 1e-9, dim.Name)
		assert.InDelta(t, cost, agg.Totals.Cost, 1e-9, dim.Name)
		assert.InDelta(t, profit, agg.Totals.Profit, 1e-9, dim.Name)
		assert.Equal(t, len(rows), count, dim.Name)
		assert.Equal(t, len(rows), agg.Totals.Count, dim.Name)
	}
}

func TestAggregateByFallbackAndOrder(t *testing.T) {
	rows := []Row{
		{Customer: "Globex", Sales: 1},
		{Customer: "", Sales: 2},
		{Customer: "Acme", Sales: 3},
		{Customer: "Globex", Sales: 4},
	}
	agg := AggregateBy(rows, ByCustomer)
	keys := make([]string, 0, len(agg.Groups))
	for _, g := range agg.Groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"Globex", "Unknown customer", "Acme"}, keys)
	assert.Equal(t, 5.0, agg.Groups[0].Sales)
}

func TestAggregateByEmpty(t *testing.T) {
	agg := AggregateBy(nil, ByRep)
	assert.Empty(t, agg.Groups)
	assert.Equal(t, Totals{}, agg.Totals)
}

func TestAggregateNestedBreakdown(t *testing.T) {
	agg := AggregateNested(sampleRows(), ByRep, ByJobType)
	require.Len(t, agg.Groups, 3)
	alice := agg.Groups[0]
	assert.Equal(t, "Alice", alice.Key)
	assert.Equal(t, map[string]float64{"Repair": 110}, alice.Breakdown)

	var breakdownSales float64
	for _, g := range agg.Groups {
		for _, v := range g.Breakdown {
			breakdownSales += v
		}
	}
	assert.Equal(t, agg.Totals.Sales, breakdownSales)
}

func TestGroupMarginZeroSales(t *testing.T) {
	assert.Equal(t, 0.0, GroupSummary{Cost: 10, Profit: -10}.Margin())
}
