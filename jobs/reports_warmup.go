package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/fleetledger/fleetledger/internal/jobs"
	"github.com/fleetledger/fleetledger/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const monthTimeout = 30 * time.Second

// ReportSource is the part of reports.Service the warmup drives.
type ReportSource interface {
	Rows(ctx context.Context, w reports.Window) ([]reports.Row, []reports.Warning, error)
	InvalidateCache(ctx context.Context) (int64, error)
}

// WarmupJob pre-populates the report source cache.
type WarmupJob struct {
	Reports ReportSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewWarmupJob wires dependencies for the warmup handler.
func NewWarmupJob(source ReportSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{
		Reports: source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes warmup tasks.
func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload WarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("reports warmup: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	months := payload.Months
	if len(months) == 0 {
		months = DefaultWarmupMonths(j.now())
	}
	_, err := j.Warm(ctx, months)
	return err
}

// Warm loads each month's sources and returns the rows per month. It stops at
// the first failing month.
func (j *WarmupJob) Warm(ctx context.Context, months []string) (map[string]int, error) {
	tracker := j.metrics().Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		_ = tracker.End(resultErr)
	}()

	start := j.now()
	logger := j.logger()
	warmed := make(map[string]int, len(months))
	for _, month := range months {
		count, err := j.warmMonth(ctx, month)
		if err != nil {
			resultErr = err
			logger.Error("warm month", slog.String("month", month), slog.Any("error", err))
			return warmed, resultErr
		}
		warmed[month] = count
		j.metrics().AddWarmed(month, count)
	}
	logger.Info("completed reports warmup", slog.Int("months", len(warmed)), slog.Duration("duration", j.now().Sub(start)))
	return warmed, resultErr
}

func (j *WarmupJob) warmMonth(ctx context.Context, month string) (int, error) {
	w, err := reports.MonthWindow(month)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	monthCtx, cancel := context.WithTimeout(ctx, monthTimeout)
	defer cancel()

	rows, warnings, err := j.Reports.Rows(monthCtx, w)
	if err != nil {
		return 0, err
	}
	if len(warnings) > 0 {
		j.logger().Info("warmup normalized with warnings", slog.String("month", month), slog.Int("warnings", len(warnings)))
	}
	return len(rows), nil
}

// HandleBump processes cache bump tasks.
func (j *WarmupJob) HandleBump(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports bump: handler not configured")
	}
	tracker := j.metrics().Track(TaskReportsBump)
	ver, err := j.Reports.InvalidateCache(ctx)
	if err == nil {
		j.logger().Info("report cache bumped", slog.Int64("version", ver))
	}
	return tracker.End(err)
}

// DefaultWarmupMonths returns the month of now and the one before it.
func DefaultWarmupMonths(now time.Time) []string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return []string{first.Format("2006-01"), first.AddDate(0, -1, 0).Format("2006-01")}
}

func (j *WarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *WarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *WarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
