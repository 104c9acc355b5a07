package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fleetledger/fleetledger/internal/reports"
	"github.com/fleetledger/fleetledger/internal/reports/export"
)

// Exit codes returned by ExportCommand.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitSources = 2
	ExitNoData  = 10
)

// Reporter builds a single report view.
type Reporter interface {
	Report(ctx context.Context, req reports.Request) (reports.View, error)
}

// ExportOptions defines available flags for the export command.
type ExportOptions struct {
	Month   string
	Kind    string
	Format  string
	Reps    []string
	Sources []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// ReportsCLI exports report views from the command line.
type ReportsCLI struct {
	reporter Reporter
}

// NewReportsCLI constructs the helper around a report service.
func NewReportsCLI(reporter Reporter) *ReportsCLI {
	return &ReportsCLI{reporter: reporter}
}

// ExportCommand writes one report view for a month as CSV or JSON. It
// returns ExitNoData when the filters matched nothing; the empty view is
// still written.
func (c *ReportsCLI) ExportCommand(ctx context.Context, opts ExportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	req, err := exportRequest(opts)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return ExitFailure
	}
	view, err := c.reporter.Report(ctx, req)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		if errors.Is(err, reports.ErrSourceFetch) {
			return ExitSources
		}
		return ExitFailure
	}
	switch opts.Format {
	case "json":
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(view)
	default:
		err = export.WriteViewCSV(opts.Stdout, view)
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: write %s: %v\n", opts.Format, err)
		return ExitFailure
	}
	if view.Empty {
		return ExitNoData
	}
	return ExitOK
}

func exportRequest(opts ExportOptions) (reports.Request, error) {
	switch opts.Format {
	case "", "csv", "json":
	default:
		return reports.Request{}, fmt.Errorf("unsupported format %q (expected csv or json)", opts.Format)
	}
	window, err := reports.MonthWindow(strings.TrimSpace(opts.Month))
	if err != nil {
		return reports.Request{}, fmt.Errorf("invalid month %q (expected YYYY-MM)", opts.Month)
	}
	kind := reports.KindDetailedEntries
	if opts.Kind != "" {
		if kind, err = reports.ParseKind(opts.Kind); err != nil {
			return reports.Request{}, err
		}
	}
	filter := reports.DefaultFilter()
	if reps := nonEmpty(opts.Reps); len(reps) > 0 {
		filter = filter.WithReps(reps...)
	}
	if len(opts.Sources) > 0 {
		sources := make([]reports.SourceKind, 0, len(opts.Sources))
		for _, raw := range nonEmpty(opts.Sources) {
			source := reports.SourceKind(strings.ToLower(raw))
			switch source {
			case reports.SourceCosting, reports.SourceRental, reports.SourceSLA:
				sources = append(sources, source)
			default:
				return reports.Request{}, fmt.Errorf("unknown source %q", raw)
			}
		}
		filter = filter.WithSources(sources...)
	}
	return reports.Request{
		Window:  window,
		Kind:    kind,
		Filter:  filter,
		Sort:    reports.DefaultSort(),
		PerPage: -1,
	}, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
