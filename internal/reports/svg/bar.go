package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Bars renders a grouped bar chart with one bar per series for every label.
func Bars(width, height int, labels []string, series []Series, opts BarOpts) (template.HTML, error) {
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

	var b strings.Builder
	openSVG(&b, width, height, opts.Title, opts.Description, "bar", "Bar chart", "Grouped bar comparison")
	writeGrid(&b, ax, left, chartWidth, tickCount, axisColor, gridColor)

	zeroY := ax.y(0)
	groupWidth := chartWidth / float64(len(labels))
	barWidth := groupWidth * 0.8 / float64(len(series))
	for i, label := range labels {
		baseX := left + float64(i)*groupWidth + groupWidth*0.1
		for si, s := range series {
			y := ax.y(s.Values[i])
			top, h := y, zeroY-y
			if h < 0 {
				top, h = zeroY, -h
			}
			fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"><title>%s %s: %s</title></rect>`,
				baseX+float64(si)*barWidth, top, barWidth, h, colorAt(s, si),
				template.HTMLEscapeString(s.Label), template.HTMLEscapeString(label), formatTick(s.Values[i]))
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			left+float64(i)*groupWidth+groupWidth/2, padding+chartHeight+14, axisColor,
			template.HTMLEscapeString(shorten(label, 14)))
	}
	writeLegend(&b, series, left, axisColor)

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func openSVG(b *strings.Builder, width, height int, title, desc, kind, defTitle, defDesc string) {
	titleID := makeID(title, kind+"-title")
	descID := makeID(title, kind+"-desc")
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, width, height, titleID, descID)
	fmt.Fprintf(b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(title, defTitle)))
	fmt.Fprintf(b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(fallback(desc, defDesc)))
}

func writeGrid(b *strings.Builder, ax axis, left, width float64, ticks int, axisColor, gridColor string) {
	for i := 0; i <= ticks; i++ {
		value, y := ax.tick(i, ticks)
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, left, y, left+width, y, gridColor)
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, left-6, y+4, axisColor, template.HTMLEscapeString(formatTick(value)))
	}
	zeroY := ax.y(0)
	fmt.Fprintf(b, `<g stroke="%s" aria-label="Axes">`, axisColor)
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, left, ax.top, left, ax.top+ax.height)
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, left, zeroY, left+width, zeroY)
	b.WriteString("</g>")
}

func writeLegend(b *strings.Builder, series []Series, x float64, textColor string) {
	for i, s := range series {
		fmt.Fprintf(b, `<rect x="%.2f" y="4" width="10" height="10" fill="%s"></rect>`, x, colorAt(s, i))
		fmt.Fprintf(b, `<text x="%.2f" y="13" fill="%s" font-size="10" text-anchor="start">%s</text>`, x+14, textColor, template.HTMLEscapeString(fallback(s.Label, fmt.Sprintf("Series %d", i+1))))
		x += 100
	}
}
