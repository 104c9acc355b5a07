package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	costing    []CostingEntry
	rental     []RentalIncome
	sla        []SLAIncome
	costingErr error
	rentalErr  error
	slaErr     error
	slaBlock   bool
	calls      atomic.Int32
	lastWindow Window
	mu         sync.Mutex
}

func (f *fakeStore) ListCostingEntries(ctx context.Context, w Window) ([]CostingEntry, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastWindow = w
	f.mu.Unlock()
	return f.costing, f.costingErr
}

func (f *fakeStore) ListRentalIncome(ctx context.Context, w Window) ([]RentalIncome, error) {
	return f.rental, f.rentalErr
}

func (f *fakeStore) ListSLAIncome(ctx context.Context, w Window) ([]SLAIncome, error) {
	if f.slaBlock {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.sla, f.slaErr
}

type recordingObserver struct {
	mu       sync.Mutex
	builds   []Kind
	errs     []error
	warnings map[SourceKind]int
}

func (o *recordingObserver) ObserveBuild(kind Kind, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.builds = append(o.builds, kind)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) ObserveWarnings(source SourceKind, count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.warnings == nil {
		o.warnings = make(map[SourceKind]int)
	}
	o.warnings[source] += count
}

func newTestService(t *testing.T, store SourceStore) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, NewCache(client, time.Minute), logger, ServiceConfig{DefaultPerPage: 50})
}

func novemberStore() *fakeStore {
	return &fakeStore{
		costing: []CostingEntry{
			{ID: uuid.New(), Date: "2025-11-03", JobNumber: "J-1", JobDescription: "Repair", Rep: "Alice", Customer: "Acme", TotalCustomer: f64(100), TotalExpenses: f64(40)},
			{ID: uuid.New(), Date: "2025-11-04", JobNumber: "J-2", JobDescription: "Repair", Rep: "Bob", Customer: "Globex", TotalCustomer: f64(200), TotalExpenses: f64(50)},
		},
		rental: []RentalIncome{{ID: uuid.New(), Date: "2025-11-01", Amount: f64(500), Customer: "Acme"}},
		sla:    []SLAIncome{{ID: uuid.New(), Date: "2025-11-02", Amount: f64(75), Customer: "Initech"}},
	}
}

func TestFetchSourcesCaches(t *testing.T) {
	store := novemberStore()
	svc := newTestService(t, store)
	ctx := context.Background()
	w, err := MonthWindow("2025-11")
	require.NoError(t, err)

	set, err := svc.FetchSources(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
	assert.Equal(t, int32(1), store.calls.Load())
	assert.Equal(t, Window{From: "2025-11-01", To: "2025-11-30"}, store.lastWindow)

	_, err = svc.FetchSources(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.calls.Load(), "second fetch should hit cache")

	_, err = svc.InvalidateCache(ctx)
	require.NoError(t, err)
	store.costing = store.costing[:1]
	set, err = svc.FetchSources(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.calls.Load())
	assert.Len(t, set.Costing, 1)
}

func TestFetchSourcesFailsWhole(t *testing.T) {
	store := novemberStore()
	store.rentalErr = errors.New("connection reset")
	store.slaBlock = true
	svc := newTestService(t, store)

	set, err := svc.FetchSources(context.Background(), Window{From: "2025-11-01", To: "2025-11-30"})
	require.Error(t, err)
	assert.Equal(t, 0, set.Len())
	assert.True(t, errors.Is(err, ErrSourceFetch))
	var fetchErr *SourceFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, SourceRental, fetchErr.Source)

	// A failed fetch is not cached.
	store.rentalErr = nil
	store.slaBlock = false
	set, err = svc.FetchSources(context.Background(), Window{From: "2025-11-01", To: "2025-11-30"})
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
}

func TestFetchSourcesRejectsBadWindow(t *testing.T) {
	svc := newTestService(t, novemberStore())
	_, err := svc.FetchSources(context.Background(), Window{From: "2025-11-30", To: "2025-11-01"})
	assert.True(t, errors.Is(err, ErrInvalidWindow))
}

func TestServiceReport(t *testing.T) {
	store := novemberStore()
	svc := newTestService(t, store)
	obs := &recordingObserver{}
	svc.SetObserver(obs)

	w, _ := MonthWindow("2025-11")
	view, err := svc.Report(context.Background(), Request{Window: w, Kind: KindSummaryByJobType})
	require.NoError(t, err)
	require.Len(t, view.Groups, 3)
	assert.Equal(t, JobTypeRental, view.Groups[0].Key)
	assert.Equal(t, "Repair", view.Groups[1].Key)
	assert.Equal(t, 300.0, view.Groups[1].Sales)
	assert.Equal(t, 90.0, view.Groups[1].Cost)
	assert.Equal(t, 210.0, view.Groups[1].Profit)

	detail, err := svc.Report(context.Background(), Request{Window: w, Kind: KindDetailedEntries})
	require.NoError(t, err)
	require.NotNil(t, detail.Pagination)
	assert.Equal(t, 50, detail.Pagination.PerPage)

	_, err = svc.Report(context.Background(), Request{Window: w, Kind: "pivot"})
	assert.True(t, errors.Is(err, ErrUnknownReportKind))

	require.Len(t, obs.builds, 3)
	assert.NoError(t, obs.errs[0])
	assert.Error(t, obs.errs[2])
}

func TestServiceReportWarnings(t *testing.T) {
	store := novemberStore()
	store.sla = append(store.sla, SLAIncome{ID: uuid.New(), Amount: f64(10)})
	svc := newTestService(t, store)
	obs := &recordingObserver{}
	svc.SetObserver(obs)

	rows, warnings, err := svc.Rows(context.Background(), Window{From: "2025-11-01", To: "2025-11-30"})
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	require.Len(t, warnings, 1)
	assert.Equal(t, map[SourceKind]int{SourceSLA: 1}, obs.warnings)
}

func TestServiceBookAndOptions(t *testing.T) {
	svc := newTestService(t, novemberStore())
	w, _ := MonthWindow("2025-11")

	book, err := svc.Book(context.Background(), Request{Window: w, Filter: DefaultFilter().WithReps("Alice")})
	require.NoError(t, err)
	require.Len(t, book.Pages, len(PageSequence()))
	for _, page := range book.Pages {
		assert.Equal(t, 1, page.Matched, page.Kind)
	}

	opts, err := svc.Options(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", RepSLARental}, opts.Reps)
	assert.Equal(t, "2025-11-01", opts.MinDate)
}

func TestServiceWithoutCache(t *testing.T) {
	store := novemberStore()
	svc := NewService(store, nil, nil, ServiceConfig{})
	w, _ := MonthWindow("2025-11")
	_, err := svc.FetchSources(context.Background(), w)
	require.NoError(t, err)
	_, err = svc.FetchSources(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.calls.Load())

	ver, err := svc.InvalidateCache(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ver)
}

func TestCacheListenForInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, cache.ListenForInvalidation(ctx, ""))
	require.NoError(t, client.Publish(ctx, BumpChannel, "7").Err())
	require.Eventually(t, func() bool {
		ver, err := cache.Version(ctx)
		return err == nil && ver == 7
	}, time.Second, 10*time.Millisecond)
}

func TestServiceReportAllRows(t *testing.T) {
	svc := newTestService(t, novemberStore())
	w, _ := MonthWindow("2025-11")
	view, err := svc.Report(context.Background(), Request{Window: w, Kind: KindDetailedEntries, PerPage: -1})
	require.NoError(t, err)
	assert.Nil(t, view.Pagination)
	assert.Len(t, view.Rows, 4)
}

// gatedStore blocks the costing fetch until release is closed.
type gatedStore struct {
	*fakeStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) ListCostingEntries(ctx context.Context, w Window) ([]CostingEntry, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return g.costing, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestFetchSourcesSurvivesCallerCancel(t *testing.T) {
	store := &gatedStore{fakeStore: novemberStore(), entered: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(t, store)
	w, _ := MonthWindow("2025-11")

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := svc.FetchSources(ctxA, w)
		errA <- err
	}()
	<-store.entered

	type result struct {
		set SourceSet
		err error
	}
	resB := make(chan result, 1)
	go func() {
		set, err := svc.FetchSources(context.Background(), w)
		resB <- result{set, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(store.release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.Equal(t, 4, res.set.Len())
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestServiceReportNonFiniteAmounts(t *testing.T) {
	for name, build := range map[string]func(*testing.T, SourceStore) *Service{
		"redis": newTestService,
		"memory": func(_ *testing.T, store SourceStore) *Service {
			return NewService(store, nil, nil, ServiceConfig{})
		},
	} {
		t.Run(name, func(t *testing.T) {
			store := novemberStore()
			store.rental[0].Amount = f64(math.NaN())
			store.sla[0].Amount = f64(math.Inf(1))
			svc := build(t, store)
			w, _ := MonthWindow("2025-11")

			view, err := svc.Report(context.Background(), Request{Window: w, Kind: KindSummaryByJobType, Filter: DefaultFilter(), Sort: DefaultSort()})
			require.NoError(t, err)
			sales := make(map[string]float64)
			for _, g := range view.Groups {
				sales[g.Key] = g.Sales
			}
			assert.Equal(t, map[string]float64{JobTypeRental: 0, JobTypeSLA: 0, "Repair": 300}, sales)

			_, warnings, err := svc.Rows(context.Background(), w)
			require.NoError(t, err)
			var sources []SourceKind
			for _, warning := range warnings {
				assert.Equal(t, "amount", warning.Field)
				sources = append(sources, warning.Source)
			}
			assert.ElementsMatch(t, []SourceKind{SourceRental, SourceSLA}, sources)
		})
	}
}
