package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Line renders one polyline per series over evenly spaced labels.
func Line(width, height int, labels []string, series []Series, opts LineOpts) (template.HTML, error) {
	if err := checkSeries(labels, series); err != nil {
		return "", err
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5e1")

	left := padding * 1.5
	chartWidth := float64(width) - left - padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}
	ax, err := newAxis(series, padding, chartHeight)
	if err != nil {
		return "", err
	}

	x := func(i int) float64 {
		if len(labels) == 1 {
			return left + chartWidth/2
		}
		return left + float64(i)*chartWidth/float64(len(labels)-1)
	}

	var b strings.Builder
	openSVG(&b, width, height, opts.Title, opts.Description, "line", "Line chart", "Trend data")
	writeGrid(&b, ax, left, chartWidth, tickCount, axisColor, gridColor)

	for si, s := range series {
		color := colorAt(s, si)
		var path strings.Builder
		for i, v := range s.Values {
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, x(i), ax.y(v))
		}
		d := strings.TrimSpace(path.String())
		if si == 0 && opts.FillFirst {
			base := ax.y(0)
			fmt.Fprintf(&b, `<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="%s" fill-opacity="0.12" stroke="none" aria-hidden="true"></path>`,
				d, x(len(s.Values)-1), base, x(0), base, color)
		}
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`, d, color)
		if opts.ShowDots {
			for i, v := range s.Values {
				fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"></circle>`, x(i), ax.y(v), color)
			}
		}
	}

	// Thin out x labels so long daily series stay legible.
	every := 1
	if len(labels) > 16 {
		every = (len(labels) + 15) / 16
	}
	for i, label := range labels {
		if i%every != 0 && i != len(labels)-1 {
			continue
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			x(i), padding+chartHeight+14, axisColor, template.HTMLEscapeString(shorten(label, 10)))
	}
	writeLegend(&b, series, left, axisColor)

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
