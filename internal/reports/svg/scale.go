package svg

import (
	"fmt"
	"math"
	"strings"
)

// axis maps values onto the vertical pixel range of a chart. Zero is always
// inside the range so bars grow from a visible baseline.
type axis struct {
	min, max    float64
	top, height float64
}

func newAxis(series []Series, top, height float64) (axis, error) {
	first := true
	var minVal, maxVal float64
	for _, s := range series {
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return axis{}, fmt.Errorf("svg: series %q contains a non-finite value", s.Label)
			}
			if first {
				minVal, maxVal = v, v
				first = false
				continue
			}
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	minVal = math.Min(minVal, 0)
	maxVal = math.Max(maxVal, 0)
	if almostEqual(maxVal, minVal) {
		maxVal = minVal + 1
	}
	return axis{min: minVal, max: maxVal, top: top, height: height}, nil
}

func (a axis) y(v float64) float64 {
	return a.top + a.height - (v-a.min)/(a.max-a.min)*a.height
}

func (a axis) tick(i, count int) (float64, float64) {
	ratio := float64(i) / float64(count)
	value := a.min + (a.max-a.min)*ratio
	return value, a.top + a.height - ratio*a.height
}

func checkSeries(labels []string, series []Series) error {
	if len(labels) == 0 {
		return fmt.Errorf("svg: labels required")
	}
	if len(series) == 0 {
		return fmt.Errorf("svg: at least one series required")
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return fmt.Errorf("svg: series %q has %d values for %d labels", s.Label, len(s.Values), len(labels))
		}
	}
	return nil
}

func colorAt(s Series, i int) string {
	return fallback(s.Color, Palette[i%len(Palette)])
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case almostEqual(v, math.Round(v)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// shorten trims long category labels so they fit under a bar group.
func shorten(label string, max int) string {
	r := []rune(label)
	if len(r) <= max || max < 2 {
		return label
	}
	return string(r[:max-1]) + "…"
}
