package svg

// Series is one named run of values drawn against shared labels.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// Slice is one wedge of a pie chart.
type Slice struct {
	Label string
	Value float64
}

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	FillFirst   bool
	TickCount   int
}

// BarOpts customises the grouped bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// PieOpts customises the pie chart renderer.
type PieOpts struct {
	Title       string
	Description string
	TextColor   string
	// MaxSlices folds the smallest wedges into "Other" beyond this count.
	MaxSlices int
}

// Defaults for the report charts.
const (
	DefaultWidth     = 720
	DefaultHeight    = 260
	DefaultPadding   = 32.0
	DefaultTicks     = 5
	DefaultMaxSlices = 8
)

// Palette cycles through series and wedge colours.
var Palette = []string{"#0ea5e9", "#f97316", "#22c55e", "#a855f7", "#eab308", "#ef4444", "#14b8a6", "#64748b"}
