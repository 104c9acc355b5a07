package svg

import (
	"strings"
	"testing"
)

func TestPieRendersWedges(t *testing.T) {
	html, err := Pie(0, 0, []Slice{
		{Label: "Costing", Value: 300},
		{Label: "Rental", Value: 100},
		{Label: "SLA", Value: 0},
	}, PieOpts{Title: "Sales by Source"})
	if err != nil {
		t.Fatalf("pie renderer error: %v", err)
	}
	output := string(html)
	if got := strings.Count(output, "<path"); got != 2 {
		t.Fatalf("expected 2 wedges, got %d", got)
	}
	if !strings.Contains(output, "Costing: 75.0%") {
		t.Fatalf("expected share label in %s", output)
	}
	if strings.Contains(output, "SLA") {
		t.Fatalf("zero slice should be skipped")
	}
}

func TestPieSingleSliceIsCircle(t *testing.T) {
	html, err := Pie(200, 100, []Slice{{Label: "Repair", Value: 5}}, PieOpts{})
	if err != nil {
		t.Fatalf("pie renderer error: %v", err)
	}
	if !strings.Contains(string(html), "<circle") {
		t.Fatalf("expected full circle")
	}
}

func TestPieFoldsSmallSlices(t *testing.T) {
	parts := foldSlices([]Slice{{"a", 5}, {"b", 1}, {"c", 4}, {"d", 2}}, 3)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if parts[2].Label != "Other" || parts[2].Value != 3 {
		t.Fatalf("unexpected other slice %+v", parts[2])
	}
}

func TestPieRequiresPositiveTotal(t *testing.T) {
	if _, err := Pie(0, 0, []Slice{{Label: "x", Value: -1}}, PieOpts{}); err == nil {
		t.Fatalf("expected error")
	}
}
