package reports

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Window is the inclusive calendar-day range the source collections are fetched for.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MonthWindow returns the window covering the whole month given as YYYY-MM.
func MonthWindow(month string) (Window, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return Window{}, fmt.Errorf("%w: month %q", ErrInvalidWindow, month)
	}
	end := start.AddDate(0, 1, -1)
	return Window{From: start.Format(dayLayout), To: end.Format(dayLayout)}, nil
}

// Validate checks both bounds are calendar days and From is not after To.
func (w Window) Validate() error {
	from, err := time.Parse(dayLayout, w.From)
	if err != nil {
		return fmt.Errorf("%w: from %q", ErrInvalidWindow, w.From)
	}
	to, err := time.Parse(dayLayout, w.To)
	if err != nil {
		return fmt.Errorf("%w: to %q", ErrInvalidWindow, w.To)
	}
	if from.After(to) {
		return fmt.Errorf("%w: from %s after to %s", ErrInvalidWindow, w.From, w.To)
	}
	return nil
}

// Label renders the window for page headers, e.g. "2025-11-01 to 2025-11-30".
func (w Window) Label() string {
	return w.From + " to " + w.To
}

// normalizeDay reduces a stored date or timestamp to its YYYY-MM-DD calendar
// day as written, without converting between time zones.
func normalizeDay(raw string) (string, bool) {
	if len(raw) < len(dayLayout) {
		return "", false
	}
	day := raw[:len(dayLayout)]
	if _, err := time.Parse(dayLayout, day); err != nil {
		return "", false
	}
	return day, true
}
