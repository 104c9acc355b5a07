package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"golang.org/x/text/language"

	"github.com/fleetledger/fleetledger/internal/reports"
	"github.com/fleetledger/fleetledger/internal/reports/svg"
	"github.com/fleetledger/fleetledger/web"
)

const (
	bookTemplate = "templates/reports/monthly_book.html"
	bookCSS      = "static/css/report.css"
)

// HTMLRenderer converts an HTML document into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// PDFRenderer lays a report book out as HTML and hands it to an HTMLRenderer.
type PDFRenderer struct {
	client HTMLRenderer
	tpl    *template.Template
	css    template.CSS
	format numberFormat
	title  string
}

// NewPDFRenderer parses the book template. client may be nil when only
// BuildHTML is used.
func NewPDFRenderer(client HTMLRenderer) (*PDFRenderer, error) {
	format := newNumberFormat(language.English)
	funcMap := template.FuncMap{
		"money":   format.money,
		"percent": format.percent,
		"cell":    format.cell,
		"numeric": func(key string) bool { return numericKeys[key] },
		"sub":     func(a, b int) int { return a - b },
	}
	tpl, err := template.New("monthly_book.html").Funcs(funcMap).ParseFS(web.Templates, bookTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse monthly book template: %w", err)
	}
	css, err := fs.ReadFile(web.Static, bookCSS)
	if err != nil {
		return nil, fmt.Errorf("read report stylesheet: %w", err)
	}
	return &PDFRenderer{
		client: client,
		tpl:    tpl,
		css:    template.CSS(css),
		format: format,
		title:  "Monthly Financial Report",
	}, nil
}

type bookPage struct {
	Number int
	View   reports.View
	Chart  template.HTML
}

type bookData struct {
	Title       string
	Period      string
	GeneratedAt string
	CSS         template.CSS
	Pages       []bookPage
}

// BuildHTML renders every page of book with its chart.
func (p *PDFRenderer) BuildHTML(book reports.Book, generatedAt time.Time) (string, error) {
	data := bookData{
		Title:       p.title,
		Period:      book.Window.Label(),
		GeneratedAt: generatedAt.UTC().Format("2006-01-02 15:04 MST"),
		CSS:         p.css,
		Pages:       make([]bookPage, 0, len(book.Pages)),
	}
	for i, view := range book.Pages {
		chart, err := Chart(view)
		if err != nil {
			return "", fmt.Errorf("chart %s: %w", view.Kind, err)
		}
		data.Pages = append(data.Pages, bookPage{Number: i + 1, View: view, Chart: chart})
	}
	var buf bytes.Buffer
	if err := p.tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render monthly book: %w", err)
	}
	return buf.String(), nil
}

// Render produces the PDF for book.
func (p *PDFRenderer) Render(ctx context.Context, book reports.Book, generatedAt time.Time) ([]byte, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("pdf renderer not initialised")
	}
	html, err := p.BuildHTML(book, generatedAt)
	if err != nil {
		return nil, err
	}
	return p.client.RenderHTML(ctx, html)
}

// Chart draws the chart that accompanies a view, or nothing for views that
// are tables only.
func Chart(view reports.View) (template.HTML, error) {
	if view.Empty {
		return "", nil
	}
	switch view.Kind {
	case reports.KindCover:
		if view.Cover == nil {
			return "", nil
		}
		return pie(view.Cover.Sources, "Sales by Source")
	case reports.KindSummaryByJobType, reports.KindSummaryByCustomer:
		return pie(view.Chart, view.Title)
	case reports.KindSummaryByRep, reports.KindPerformanceComparison:
		return salesProfitBars(view.Groups, view.Title)
	case reports.KindRepBreakdown:
		return breakdownBars(view.Series, view.Title)
	case reports.KindDailyTrend:
		return dailyLine(view.Groups, view.Title)
	default:
		return "", nil
	}
}

func pie(points []reports.ChartPoint, title string) (template.HTML, error) {
	slices := make([]svg.Slice, 0, len(points))
	var total float64
	for _, p := range points {
		slices = append(slices, svg.Slice{Label: p.Name, Value: p.Value})
		if p.Value > 0 {
			total += p.Value
		}
	}
	if total <= 0 {
		return "", nil
	}
	return svg.Pie(0, 0, slices, svg.PieOpts{Title: title})
}

func salesProfitBars(groups []reports.GroupSummary, title string) (template.HTML, error) {
	if len(groups) == 0 {
		return "", nil
	}
	labels := make([]string, len(groups))
	sales := make([]float64, len(groups))
	profit := make([]float64, len(groups))
	for i, g := range groups {
		labels[i] = g.Key
		sales[i] = g.Sales
		profit[i] = g.Profit
	}
	return svg.Bars(0, 0, labels, []svg.Series{
		{Label: "Sales", Values: sales},
		{Label: "Profit", Values: profit},
	}, svg.BarOpts{Title: title, Description: "Sales and profit per group"})
}

// breakdownBars groups bars by job type with one series per rep.
func breakdownBars(series []reports.ChartSeries, title string) (template.HTML, error) {
	if len(series) == 0 {
		return "", nil
	}
	var labels []string
	index := make(map[string]int)
	for _, s := range series {
		for _, p := range s.Points {
			if _, ok := index[p.Name]; !ok {
				index[p.Name] = len(labels)
				labels = append(labels, p.Name)
			}
		}
	}
	if len(labels) == 0 {
		return "", nil
	}
	out := make([]svg.Series, 0, len(series))
	for _, s := range series {
		values := make([]float64, len(labels))
		for _, p := range s.Points {
			values[index[p.Name]] = p.Value
		}
		out = append(out, svg.Series{Label: s.Name, Values: values})
	}
	return svg.Bars(0, 0, labels, out, svg.BarOpts{Title: title, Description: "Sales per job type for the top reps"})
}

func dailyLine(groups []reports.GroupSummary, title string) (template.HTML, error) {
	var labels []string
	var sales, profit []float64
	for _, g := range groups {
		if g.Key == reports.ByDate.Fallback {
			continue
		}
		labels = append(labels, g.Key)
		sales = append(sales, g.Sales)
		profit = append(profit, g.Profit)
	}
	if len(labels) == 0 {
		return "", nil
	}
	return svg.Line(0, 0, labels, []svg.Series{
		{Label: "Sales", Values: sales},
		{Label: "Profit", Values: profit},
	}, svg.LineOpts{Title: title, ShowDots: len(labels) <= 31, FillFirst: true})
}
