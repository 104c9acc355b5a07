package reports

import "strings"

// GroupSummary accumulates the rows sharing one grouping key.
type GroupSummary struct {
	Key       string             `json:"key"`
	Sales     float64            `json:"sales"`
	Cost      float64            `json:"cost"`
	Profit    float64            `json:"profit"`
	Count     int                `json:"count"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// Margin derives the group margin the same way row margins are derived.
func (g GroupSummary) Margin() float64 {
	return MarginOf(g.Profit, g.Sales)
}

// Totals are the grand totals across every group of an aggregation.
type Totals struct {
	Sales  float64 `json:"sales"`
	Cost   float64 `json:"cost"`
	Profit float64 `json:"profit"`
	Count  int     `json:"count"`
}

// Aggregation is the output of one aggregation pass. Groups appear in the
// order their key was first seen.
type Aggregation struct {
	Groups []GroupSummary `json:"groups"`
	Totals Totals         `json:"totals"`
}

// KeyFunc extracts a grouping key from a row.
type KeyFunc func(Row) string

// Dimension names a grouping attribute and the label that absorbs rows
// without a value, so every row lands in exactly one group.
type Dimension struct {
	Name     string
	Key      KeyFunc
	Fallback string
}

func (d Dimension) keyOf(row Row) string {
	if d.Key != nil {
		if key := strings.TrimSpace(d.Key(row)); key != "" {
			return key
		}
	}
	if d.Fallback != "" {
		return d.Fallback
	}
	return "Unknown " + d.Name
}

// Grouping dimensions used by the report views.
var (
	ByJobType = Dimension{
		Name:     "job type",
		Key:      func(r Row) string { return r.JobType },
		Fallback: "Unknown job type",
	}
	ByRep = Dimension{
		Name:     "rep",
		Key:      func(r Row) string { return r.Rep },
		Fallback: "Unknown rep",
	}
	ByCustomer = Dimension{
		Name:     "customer",
		Key:      func(r Row) string { return r.Customer },
		Fallback: "Unknown customer",
	}
	ByDate = Dimension{
		Name:     "date",
		Key:      func(r Row) string { return r.Date },
		Fallback: "Unknown date",
	}
	BySource = Dimension{
		Name:     "source",
		Key:      func(r Row) string { return r.Source.Label() },
		Fallback: "Unknown source",
	}
)

// AggregateBy folds rows into one GroupSummary per distinct key. Sums are
// kept at full precision; rounding happens only when a view is presented.
func AggregateBy(rows []Row, dim Dimension) Aggregation {
	return aggregate(rows, dim, nil)
}

// AggregateNested aggregates by outer and records, per group, the sales of
// each inner key in Breakdown.
func AggregateNested(rows []Row, outer, inner Dimension) Aggregation {
	return aggregate(rows, outer, &inner)
}

func aggregate(rows []Row, dim Dimension, inner *Dimension) Aggregation {
	index := make(map[string]int)
	groups := make([]GroupSummary, 0)
	for _, row := range rows {
		key := dim.keyOf(row)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			group := GroupSummary{Key: key}
			if inner != nil {
				group.Breakdown = make(map[string]float64)
			}
			groups = append(groups, group)
		}
		g := &groups[pos]
		g.Sales += row.Sales
		g.Cost += row.Cost
		g.Profit += row.Profit
		g.Count++
		if inner != nil {
			g.Breakdown[inner.keyOf(row)] += row.Sales
		}
	}

	var totals Totals
	for _, g := range groups {
		totals.Sales += g.Sales
		totals.Cost += g.Cost
		totals.Profit += g.Profit
		totals.Count += g.Count
	}
	return Aggregation{Groups: groups, Totals: totals}
}
