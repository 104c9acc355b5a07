package export

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// percentKeys are table columns holding margins.
var percentKeys = map[string]bool{"margin": true, "average_margin": true}

// numericKeys are right-aligned in rendered tables.
var numericKeys = map[string]bool{
	"sales": true, "cost": true, "profit": true, "margin": true, "count": true,
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// csvCell renders a table value without grouping separators so spreadsheets
// parse it as a number.
func csvCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case int:
		return strconv.Itoa(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// numberFormat renders amounts for people, with locale grouping.
type numberFormat struct {
	printer *message.Printer
}

func newNumberFormat(tag language.Tag) numberFormat {
	return numberFormat{printer: message.NewPrinter(tag)}
}

func (f numberFormat) money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return f.printer.Sprintf("%.2f", v)
}

func (f numberFormat) percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return f.printer.Sprintf("%.1f%%", v)
}

func (f numberFormat) cell(row map[string]any, key string) string {
	switch x := row[key].(type) {
	case float64:
		if percentKeys[key] {
			return f.percent(x)
		}
		return f.money(x)
	case int:
		return f.printer.Sprintf("%d", x)
	default:
		return csvCell(x)
	}
}
