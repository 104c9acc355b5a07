package reports

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// SourceStore is the data-access layer for the three source collections.
// Each call returns the records dated within w, inclusive.
type SourceStore interface {
	ListCostingEntries(ctx context.Context, w Window) ([]CostingEntry, error)
	ListRentalIncome(ctx context.Context, w Window) ([]RentalIncome, error)
	ListSLAIncome(ctx context.Context, w Window) ([]SLAIncome, error)
}

// BuildObserver receives timing and outcome of report builds.
type BuildObserver interface {
	ObserveBuild(kind Kind, elapsed time.Duration, err error)
	ObserveWarnings(source SourceKind, count int)
}

// DefaultFetchTimeout bounds a shared source load when ServiceConfig leaves
// FetchTimeout unset.
const DefaultFetchTimeout = 30 * time.Second

// ServiceConfig holds defaults applied to requests that leave them unset.
// FetchTimeout bounds one shared source load, independent of any caller.
type ServiceConfig struct {
	DefaultTopN    int
	DefaultPerPage int
	FetchTimeout   time.Duration
}

// Service fetches sources through the cache and assembles report views.
type Service struct {
	store    SourceStore
	cache    *Cache
	logger   *slog.Logger
	observer BuildObserver
	cfg      ServiceConfig
	inflight singleflight.Group
}

// NewService wires a SourceStore with a Cache helper. cache may be nil.
func NewService(store SourceStore, cache *Cache, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = DefaultTopN
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Service{store: store, cache: cache, logger: logger, cfg: cfg}
}

// SetObserver attaches metrics collection to report builds.
func (s *Service) SetObserver(o BuildObserver) {
	s.observer = o
}

// Request selects one report view over a fetch window. PerPage 0 applies
// the configured default and a negative PerPage returns every detail row.
type Request struct {
	Window  Window
	Kind    Kind
	Filter  FilterState
	Sort    SortState
	TopN    int
	Page    int
	PerPage int
}

// FetchSources loads the three collections for w concurrently. If any fetch
// fails the others are cancelled and the whole call fails with a
// *SourceFetchError; no partial set is ever returned or cached. Concurrent
// callers for the same window share one load, which outlives any single
// caller's cancellation; each caller still returns on its own ctx.
func (s *Service) FetchSources(ctx context.Context, w Window) (SourceSet, error) {
	if err := w.Validate(); err != nil {
		return SourceSet{}, err
	}
	key, err := s.cache.BuildKey(ctx, keySources(w))
	if err != nil {
		return SourceSet{}, err
	}
	ch := s.inflight.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FetchTimeout)
		defer cancel()
		var set SourceSet
		err := s.cache.FetchJSON(loadCtx, key, &set, func(ctx context.Context) (any, error) {
			return s.loadSources(ctx, w)
		})
		return set, err
	})
	select {
	case <-ctx.Done():
		return SourceSet{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return SourceSet{}, res.Err
		}
		return res.Val.(SourceSet), nil
	}
}

func (s *Service) loadSources(ctx context.Context, w Window) (SourceSet, error) {
	var set SourceSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.ListCostingEntries(gctx, w)
		if err != nil {
			return &SourceFetchError{Source: SourceCosting, Err: err}
		}
		set.Costing = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.ListRentalIncome(gctx, w)
		if err != nil {
			return &SourceFetchError{Source: SourceRental, Err: err}
		}
		set.Rental = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.ListSLAIncome(gctx, w)
		if err != nil {
			return &SourceFetchError{Source: SourceSLA, Err: err}
		}
		set.SLA = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("fetch report sources", slog.String("window", w.Label()), slog.Any("error", err))
		return SourceSet{}, err
	}
	if set.Costing == nil {
		set.Costing = []CostingEntry{}
	}
	if set.Rental == nil {
		set.Rental = []RentalIncome{}
	}
	if set.SLA == nil {
		set.SLA = []SLAIncome{}
	}
	dropNonFinite(&set)
	return set, nil
}

// dropNonFinite clears NaN and infinite amounts so they normalize as missing
// values instead of failing the whole set.
func dropNonFinite(set *SourceSet) {
	scrub := func(v **float64) {
		if *v != nil && (math.IsNaN(**v) || math.IsInf(**v, 0)) {
			*v = nil
		}
	}
	for i := range set.Costing {
		scrub(&set.Costing[i].TotalCustomer)
		scrub(&set.Costing[i].TotalExpenses)
		scrub(&set.Costing[i].Profit)
		scrub(&set.Costing[i].Margin)
	}
	for i := range set.Rental {
		scrub(&set.Rental[i].Amount)
	}
	for i := range set.SLA {
		scrub(&set.SLA[i].Amount)
	}
}

// Rows fetches and normalizes the sources for w.
func (s *Service) Rows(ctx context.Context, w Window) ([]Row, []Warning, error) {
	set, err := s.FetchSources(ctx, w)
	if err != nil {
		return nil, nil, err
	}
	rows, warnings := Normalize(set)
	s.reportWarnings(w, warnings)
	return rows, warnings, nil
}

func (s *Service) reportWarnings(w Window, warnings []Warning) {
	if len(warnings) == 0 {
		return
	}
	counts := make(map[SourceKind]int)
	for _, warn := range warnings {
		counts[warn.Source]++
		s.logger.Warn("normalize report row",
			slog.String("window", w.Label()),
			slog.String("source", string(warn.Source)),
			slog.Int("index", warn.Index),
			slog.String("id", warn.ID.String()),
			slog.String("field", warn.Field),
			slog.String("reason", warn.Reason),
		)
	}
	if s.observer == nil {
		return
	}
	for _, source := range []SourceKind{SourceCosting, SourceRental, SourceSLA} {
		if n := counts[source]; n > 0 {
			s.observer.ObserveWarnings(source, n)
		}
	}
}

func (s *Service) buildOptions(req Request) BuildOptions {
	opts := BuildOptions{TopN: req.TopN, Page: req.Page, PerPage: req.PerPage, Window: req.Window}
	if opts.TopN <= 0 {
		opts.TopN = s.cfg.DefaultTopN
	}
	switch {
	case req.PerPage < 0:
		opts.PerPage = 0
	case req.PerPage == 0:
		opts.PerPage = s.cfg.DefaultPerPage
	}
	return opts
}

// Report assembles the single view named by req.Kind.
func (s *Service) Report(ctx context.Context, req Request) (View, error) {
	start := time.Now()
	view, err := s.report(ctx, req)
	s.observe(req.Kind, start, err)
	return view, err
}

func (s *Service) report(ctx context.Context, req Request) (View, error) {
	if _, err := ParseKind(string(req.Kind)); err != nil {
		return View{}, err
	}
	rows, _, err := s.Rows(ctx, req.Window)
	if err != nil {
		return View{}, err
	}
	return BuildKind(rows, req.Kind, req.Filter, req.Sort, s.buildOptions(req))
}

// Book assembles every page of the report for req.Window. req.Kind is
// ignored.
func (s *Service) Book(ctx context.Context, req Request) (Book, error) {
	start := time.Now()
	rows, _, err := s.Rows(ctx, req.Window)
	var book Book
	if err == nil {
		book, err = BuildBook(rows, req.Filter, req.Sort, s.buildOptions(req))
	}
	s.observe("book", start, err)
	return book, err
}

// Options lists the filter values available within w.
func (s *Service) Options(ctx context.Context, w Window) (Options, error) {
	rows, _, err := s.Rows(ctx, w)
	if err != nil {
		return Options{}, err
	}
	return FilterOptions(rows), nil
}

// InvalidateCache drops every cached source set and returns the new version.
func (s *Service) InvalidateCache(ctx context.Context) (int64, error) {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("report cache bumped", slog.Int64("version", ver))
	return ver, nil
}

func (s *Service) observe(kind Kind, start time.Time, err error) {
	if s.observer == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.observer.ObserveBuild(kind, time.Since(start), err)
}
