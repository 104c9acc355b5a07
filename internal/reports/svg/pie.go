package svg

import (
	"fmt"
	"html/template"
	"math"
	"sort"
	"strings"
)

// Pie renders the share of each slice. Non-positive slices are skipped and
// the smallest ones are folded into "Other" past opts.MaxSlices.
func Pie(width, height int, slices []Slice, opts PieOpts) (template.HTML, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	maxSlices := opts.MaxSlices
	if maxSlices <= 0 {
		maxSlices = DefaultMaxSlices
	}
	textColor := fallback(opts.TextColor, "#334155")

	parts := foldSlices(slices, maxSlices)
	var total float64
	for _, p := range parts {
		total += p.Value
	}
	if total <= 0 {
		return "", fmt.Errorf("svg: pie requires a positive total")
	}

	radius := math.Min(float64(width)/2, float64(height)) / 2 * 0.9
	cx, cy := radius+8, float64(height)/2

	var b strings.Builder
	openSVG(&b, width, height, opts.Title, opts.Description, "pie", "Pie chart", "Share of total")

	angle := -math.Pi / 2
	for i, p := range parts {
		color := Palette[i%len(Palette)]
		share := p.Value / total
		label := fmt.Sprintf("%s: %.1f%%", p.Label, share*100)
		if len(parts) == 1 {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"><title>%s</title></circle>`, cx, cy, radius, color, template.HTMLEscapeString(label))
		} else {
			sweep := share * 2 * math.Pi
			x1, y1 := cx+radius*math.Cos(angle), cy+radius*math.Sin(angle)
			angle += sweep
			x2, y2 := cx+radius*math.Cos(angle), cy+radius*math.Sin(angle)
			large := 0
			if sweep > math.Pi {
				large = 1
			}
			fmt.Fprintf(&b, `<path d="M%.2f %.2f L%.2f %.2f A%.2f %.2f 0 %d 1 %.2f %.2f Z" fill="%s"><title>%s</title></path>`,
				cx, cy, x1, y1, radius, radius, large, x2, y2, color, template.HTMLEscapeString(label))
		}
		ly := 16 + float64(i)*16
		lx := cx + radius + 24
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, lx, ly-9, color)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="11">%s</text>`, lx+14, ly, textColor, template.HTMLEscapeString(label))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func foldSlices(slices []Slice, max int) []Slice {
	parts := make([]Slice, 0, len(slices))
	for _, s := range slices {
		if s.Value > 0 && !math.IsInf(s.Value, 0) {
			parts = append(parts, s)
		}
	}
	if len(parts) <= max {
		return parts
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Value > parts[j].Value })
	other := Slice{Label: "Other"}
	for _, s := range parts[max-1:] {
		other.Value += s.Value
	}
	return append(parts[:max-1:max-1], other)
}
