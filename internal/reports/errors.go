package reports

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceFetch matches any SourceFetchError.
	ErrSourceFetch = errors.New("reports: source fetch failed")
	// ErrUnknownReportKind is returned for report kinds outside the page sequence.
	ErrUnknownReportKind = errors.New("reports: unknown report kind")
	// ErrUnknownSortKey is returned when a sort key names no row field.
	ErrUnknownSortKey = errors.New("reports: unknown sort key")
	// ErrInvalidWindow is returned when a fetch window is not a pair of calendar days.
	ErrInvalidWindow = errors.New("reports: invalid window")
)

// SourceFetchError reports that one of the source collections could not be
// loaded. A report is never assembled from a partial SourceSet.
type SourceFetchError struct {
	Source SourceKind
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("reports: fetch %s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSourceFetch) match every source.
func (e *SourceFetchError) Is(target error) bool {
	return target == ErrSourceFetch
}
