package svg

import (
	"math"
	"strings"
	"testing"
)

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(420, 220, []string{"Repair", "Service"}, []Series{
		{Label: "Sales", Values: []float64{500, 600}},
		{Label: "Profit", Values: []float64{300, -20}},
	}, BarOpts{Title: "Summary by Job Type", Description: "Sales and profit"})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if got := strings.Count(output, "<rect x=") - 2; got != 4 {
		t.Fatalf("expected 4 bars besides the legend, got %d", got)
	}
	if !strings.Contains(output, "Profit") {
		t.Fatalf("expected legend label")
	}
	if !strings.Contains(output, `id="summary-by-job-type-bar-title"`) {
		t.Fatalf("expected title id derived from title")
	}
}

func TestBarsValidation(t *testing.T) {
	if _, err := Bars(0, 0, nil, []Series{{Values: []float64{1}}}, BarOpts{}); err == nil {
		t.Fatalf("expected labels error")
	}
	if _, err := Bars(0, 0, []string{"a", "b"}, []Series{{Values: []float64{1}}}, BarOpts{}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if _, err := Bars(0, 0, []string{"a"}, []Series{{Values: []float64{math.NaN()}}}, BarOpts{}); err == nil {
		t.Fatalf("expected non-finite error")
	}
	if _, err := Bars(40, 40, []string{"a"}, []Series{{Values: []float64{1}}}, BarOpts{}); err == nil {
		t.Fatalf("expected viewport error")
	}
}

func TestBarsEscapesLabels(t *testing.T) {
	html, err := Bars(0, 0, []string{"<b>Acme</b>"}, []Series{{Label: "Sales & more", Values: []float64{1}}}, BarOpts{})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	if strings.Contains(string(html), "<b>") {
		t.Fatalf("label was not escaped")
	}
	if !strings.Contains(string(html), "Sales &amp; more") {
		t.Fatalf("legend was not escaped")
	}
}
