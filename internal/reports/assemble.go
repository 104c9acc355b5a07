package reports

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fleetledger/fleetledger/internal/shared"
)

// Kind names a report view.
type Kind string

const (
	KindCover                 Kind = "cover"
	KindSummaryByJobType      Kind = "summary-by-job-type"
	KindSummaryByRep          Kind = "summary-by-rep"
	KindSummaryByCustomer     Kind = "summary-by-customer"
	KindRepBreakdown          Kind = "rep-breakdown"
	KindPerformanceComparison Kind = "performance-comparison"
	KindDailyTrend            Kind = "daily-trend"
	KindDetailedEntries       Kind = "detailed-entries"
)

// NoDataMessage is shown in place of an empty table.
const NoDataMessage = "No data for selected filters"

// DefaultTopN is the number of reps charted by the rep breakdown.
const DefaultTopN = 5

var kindTitles = map[Kind]string{
	KindCover:                 "Monthly Report",
	KindSummaryByJobType:      "Summary by Job Type",
	KindSummaryByRep:          "Summary by Rep",
	KindSummaryByCustomer:     "Summary by Customer",
	KindRepBreakdown:          "Rep Breakdown",
	KindPerformanceComparison: "Performance Comparison",
	KindDailyTrend:            "Daily Trend",
	KindDetailedEntries:       "Detailed Entries",
}

// ParseKind validates a report kind coming from a request.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := kindTitles[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownReportKind, raw)
	}
	return k, nil
}

// Title returns the display title of the kind.
func (k Kind) Title() string {
	if t, ok := kindTitles[k]; ok {
		return t
	}
	return string(k)
}

// Variant is one report kind together with the parameters only it needs.
// The set of variants is closed; Build switches over every one of them.
type Variant interface {
	Kind() Kind
	variant()
}

// Cover is the book's opening page with headline totals.
type Cover struct {
	Window Window
}

// DetailedEntries lists filtered rows. PerPage <= 0 returns every row.
type DetailedEntries struct {
	Sort    SortState
	Page    int
	PerPage int
}

// SummaryByJobType groups filtered rows by job type.
type SummaryByJobType struct{}

// SummaryByRep groups filtered rows by rep.
type SummaryByRep struct{}

// SummaryByCustomer groups filtered rows by customer.
type SummaryByCustomer struct{}

// RepBreakdown charts the job type mix of the TopN reps by sales.
type RepBreakdown struct {
	TopN int
}

// PerformanceComparison ranks reps and picks the headline performers.
type PerformanceComparison struct{}

// DailyTrend groups filtered rows by calendar day.
type DailyTrend struct{}

func (Cover) Kind() Kind                 { return KindCover }
func (DetailedEntries) Kind() Kind       { return KindDetailedEntries }
func (SummaryByJobType) Kind() Kind      { return KindSummaryByJobType }
func (SummaryByRep) Kind() Kind          { return KindSummaryByRep }
func (SummaryByCustomer) Kind() Kind     { return KindSummaryByCustomer }
func (RepBreakdown) Kind() Kind          { return KindRepBreakdown }
func (PerformanceComparison) Kind() Kind { return KindPerformanceComparison }
func (DailyTrend) Kind() Kind            { return KindDailyTrend }

func (Cover) variant()                 {}
func (DetailedEntries) variant()       {}
func (SummaryByJobType) variant()      {}
func (SummaryByRep) variant()          {}
func (SummaryByCustomer) variant()     {}
func (RepBreakdown) variant()          {}
func (PerformanceComparison) variant() {}
func (DailyTrend) variant()            {}

// ColumnTotals sums the detail columns. AverageMargin is the mean of the
// per-row margins, so every row weighs the same regardless of its sales.
type ColumnTotals struct {
	Sales         float64 `json:"sales"`
	Cost          float64 `json:"cost"`
	Profit        float64 `json:"profit"`
	AverageMargin float64 `json:"average_margin"`
	Count         int     `json:"count"`
}

// Highlight is one headline figure of the performance comparison.
type Highlight struct {
	Rep   string  `json:"rep"`
	Value float64 `json:"value"`
}

// Performance holds three independent reductions over the rep groups. A nil
// highlight means no rep qualified.
type Performance struct {
	TopPerformer  *Highlight `json:"top_performer,omitempty"`
	HighestMargin *Highlight `json:"highest_margin,omitempty"`
	MostJobs      *Highlight `json:"most_jobs,omitempty"`
}

// CoverPage carries the headline numbers of the book.
type CoverPage struct {
	Period  string       `json:"period"`
	Totals  Totals       `json:"totals"`
	Margin  float64      `json:"margin"`
	Sources []ChartPoint `json:"sources"`
}

// View is a fully assembled report page ready for rendering or export.
type View struct {
	Kind        Kind               `json:"kind"`
	Title       string             `json:"title"`
	Empty       bool               `json:"empty"`
	Message     string             `json:"message,omitempty"`
	Matched     int                `json:"matched"`
	Rows        []Row              `json:"rows,omitempty"`
	Totals      *ColumnTotals      `json:"totals,omitempty"`
	Groups      []GroupSummary     `json:"groups,omitempty"`
	GrandTotals *Totals            `json:"grand_totals,omitempty"`
	Series      []ChartSeries      `json:"series,omitempty"`
	Performance *Performance       `json:"performance,omitempty"`
	Cover       *CoverPage         `json:"cover,omitempty"`
	Table       Table              `json:"table"`
	Chart       []ChartPoint       `json:"chart,omitempty"`
	Pagination  *shared.Pagination `json:"pagination,omitempty"`
}

// BuildOptions carries the per-kind parameters for BuildKind.
type BuildOptions struct {
	TopN    int
	Page    int
	PerPage int
	Window  Window
}

// BuildKind maps a kind and loose options onto its Variant and builds it.
func BuildKind(rows []Row, kind Kind, filter FilterState, sortState SortState, opts BuildOptions) (View, error) {
	var v Variant
	switch kind {
	case KindCover:
		v = Cover{Window: opts.Window}
	case KindDetailedEntries:
		v = DetailedEntries{Sort: sortState, Page: opts.Page, PerPage: opts.PerPage}
	case KindSummaryByJobType:
		v = SummaryByJobType{}
	case KindSummaryByRep:
		v = SummaryByRep{}
	case KindSummaryByCustomer:
		v = SummaryByCustomer{}
	case KindRepBreakdown:
		v = RepBreakdown{TopN: opts.TopN}
	case KindPerformanceComparison:
		v = PerformanceComparison{}
	case KindDailyTrend:
		v = DailyTrend{}
	default:
		return View{}, fmt.Errorf("%w: %q", ErrUnknownReportKind, kind)
	}
	return Build(rows, v, filter)
}

// Build filters rows and assembles the view for v. It never mutates rows and
// identical arguments always produce deep-equal views.
func Build(rows []Row, v Variant, filter FilterState) (View, error) {
	if v == nil {
		return View{}, fmt.Errorf("%w: nil variant", ErrUnknownReportKind)
	}
	filtered := ApplyFilters(rows, filter)
	view := View{Kind: v.Kind(), Title: v.Kind().Title(), Matched: len(filtered)}

	switch variant := v.(type) {
	case Cover:
		buildCover(&view, filtered, variant, filter)
	case DetailedEntries:
		buildDetailed(&view, filtered, variant)
	case SummaryByJobType:
		buildSummary(&view, filtered, ByJobType, "Job Type")
	case SummaryByRep:
		buildSummary(&view, filtered, ByRep, "Rep")
	case SummaryByCustomer:
		buildSummary(&view, filtered, ByCustomer, "Customer")
	case RepBreakdown:
		buildRepBreakdown(&view, filtered, variant)
	case PerformanceComparison:
		buildPerformance(&view, filtered)
	case DailyTrend:
		buildDailyTrend(&view, filtered)
	default:
		return View{}, fmt.Errorf("%w: %T", ErrUnknownReportKind, v)
	}

	if len(filtered) == 0 {
		view.Empty = true
		view.Message = NoDataMessage
	}
	return view, nil
}

func buildCover(view *View, rows []Row, c Cover, filter FilterState) {
	bySource := AggregateBy(rows, BySource)
	period := c.Window.Label()
	if c.Window.From == "" && c.Window.To == "" {
		period = periodLabel(filter)
	}
	totals := bySource.Totals
	view.Cover = &CoverPage{
		Period:  period,
		Totals:  totals,
		Margin:  round2(MarginOf(totals.Profit, totals.Sales)),
		Sources: salesChart(bySource.Groups),
	}
	view.GrandTotals = &totals
	view.Groups = bySource.Groups
	view.Table = groupTable("Source", bySource.Groups)
	view.Chart = salesChart(bySource.Groups)
}

func periodLabel(filter FilterState) string {
	switch {
	case filter.From != "" && filter.To != "":
		return filter.From + " to " + filter.To
	case filter.From != "":
		return "from " + filter.From
	case filter.To != "":
		return "until " + filter.To
	default:
		return "All dates"
	}
}

func buildDetailed(view *View, rows []Row, d DetailedEntries) {
	sortState := d.Sort
	if sortState.Key == "" {
		sortState = DefaultSort()
	}
	sorted := SortRows(rows, sortState.Key, sortState.Direction)
	view.Totals = columnTotals(sorted)

	page := sorted
	if d.PerPage > 0 {
		p := shared.NewPagination(d.Page, d.PerPage, len(sorted))
		start, end := p.Bounds()
		page = sorted[start:end]
		view.Pagination = &p
	}
	view.Rows = page
	view.Table = detailTable(page)
}

func columnTotals(rows []Row) *ColumnTotals {
	totals := &ColumnTotals{Count: len(rows)}
	var marginSum float64
	for _, r := range rows {
		totals.Sales += r.Sales
		totals.Cost += r.Cost
		totals.Profit += r.Profit
		marginSum += r.Margin
	}
	if len(rows) > 0 {
		totals.AverageMargin = marginSum / float64(len(rows))
	}
	return totals
}

func buildSummary(view *View, rows []Row, dim Dimension, keyLabel string) {
	agg := AggregateBy(rows, dim)
	groups := SortGroups(agg.Groups, GroupSortSales, Desc)
	view.Groups = groups
	view.GrandTotals = &agg.Totals
	view.Table = groupTable(keyLabel, groups)
	view.Chart = salesChart(groups)
}

func buildRepBreakdown(view *View, rows []Row, rb RepBreakdown) {
	topN := rb.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	agg := AggregateNested(rows, ByRep, ByJobType)
	groups := SortGroups(agg.Groups, GroupSortSales, Desc)
	if len(groups) > topN {
		groups = groups[:topN]
	}

	series := make([]ChartSeries, 0, len(groups))
	tableRows := make([]map[string]any, 0)
	for _, g := range groups {
		points := breakdownPoints(g.Breakdown)
		series = append(series, ChartSeries{Name: g.Key, Points: points})
		for _, p := range points {
			tableRows = append(tableRows, map[string]any{
				"rep":      g.Key,
				"job_type": p.Name,
				"sales":    p.Value,
			})
		}
	}

	view.Groups = groups
	view.GrandTotals = &agg.Totals
	view.Series = series
	view.Chart = salesChart(groups)
	view.Table = Table{
		Headers: []Header{
			{Key: "rep", Label: "Rep"},
			{Key: "job_type", Label: "Job Type"},
			{Key: "sales", Label: "Sales"},
		},
		Rows: tableRows,
	}
}

// breakdownPoints orders a breakdown by descending sales, then by name.
func breakdownPoints(breakdown map[string]float64) []ChartPoint {
	points := make([]ChartPoint, 0, len(breakdown))
	for name, sales := range breakdown {
		points = append(points, ChartPoint{Name: name, Value: round2(sales)})
	}
	slices.SortFunc(points, func(a, b ChartPoint) int {
		if c := compareFloat(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return points
}

func buildPerformance(view *View, rows []Row) {
	agg := AggregateBy(rows, ByRep)
	groups := SortGroups(agg.Groups, GroupSortSales, Desc)
	view.Groups = groups
	view.GrandTotals = &agg.Totals
	view.Performance = comparePerformance(agg.Groups)
	view.Table = groupTable("Rep", groups)
	view.Chart = salesChart(groups)
}

// comparePerformance runs three separate reductions. Ties keep the group seen
// first.
func comparePerformance(groups []GroupSummary) *Performance {
	perf := &Performance{}
	for _, g := range groups {
		if perf.TopPerformer == nil || g.Sales > perf.TopPerformer.Value {
			perf.TopPerformer = &Highlight{Rep: g.Key, Value: g.Sales}
		}
		if g.Sales > 0 {
			m := g.Margin()
			if perf.HighestMargin == nil || m > perf.HighestMargin.Value {
				perf.HighestMargin = &Highlight{Rep: g.Key, Value: m}
			}
		}
		if perf.MostJobs == nil || float64(g.Count) > perf.MostJobs.Value {
			perf.MostJobs = &Highlight{Rep: g.Key, Value: float64(g.Count)}
		}
	}
	return perf
}

func buildDailyTrend(view *View, rows []Row) {
	agg := AggregateBy(rows, ByDate)
	groups := make([]GroupSummary, len(agg.Groups))
	copy(groups, agg.Groups)
	slices.SortStableFunc(groups, func(a, b GroupSummary) int {
		aUnknown, bUnknown := a.Key == ByDate.Fallback, b.Key == ByDate.Fallback
		switch {
		case aUnknown && bUnknown:
			return 0
		case aUnknown:
			return 1
		case bUnknown:
			return -1
		}
		return strings.Compare(a.Key, b.Key)
	})
	view.Groups = groups
	view.GrandTotals = &agg.Totals
	view.Table = groupTable("Date", groups)
	view.Chart = salesChart(groups)
}
