package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetledger/fleetledger/cmd/reportctl/cli"
	"github.com/fleetledger/fleetledger/internal/app"
	"github.com/fleetledger/fleetledger/internal/platform/cache"
	"github.com/fleetledger/fleetledger/internal/platform/db"
	"github.com/fleetledger/fleetledger/internal/reports"
	reportsdb "github.com/fleetledger/fleetledger/internal/reports/db"
	"github.com/fleetledger/fleetledger/jobs"
)

const usage = `usage: reportctl <command> [flags]

commands:
  export   write one report view for a month as CSV or JSON
  schema   create the source tables when missing
  warmup   load months into the report cache in-process
  bump     invalidate every cached source set
  enqueue  queue a background job (reports:warmup or reports:bump)
  queue    show queue depth and scheduled jobs
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger := app.NewLoggerTo(stderr, cfg).With(slog.String("cmd", args[0]))

	switch args[0] {
	case "export":
		return runExport(ctx, cfg, logger, args[1:], stdout, stderr)
	case "schema":
		return runSchema(ctx, cfg, stdout, stderr)
	case "warmup":
		return runWarmup(ctx, cfg, logger, args[1:], stdout, stderr)
	case "bump":
		return runBump(ctx, cfg, stdout, stderr)
	case "enqueue":
		return runEnqueue(ctx, cfg, args[1:], stdout, stderr)
	case "queue":
		return runQueue(ctx, cfg, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 1
	}
}

func runExport(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	month := fs.String("month", "", "month to report on (YYYY-MM)")
	kind := fs.String("kind", string(reports.KindDetailedEntries), "report kind")
	format := fs.String("format", "csv", "output format: csv or json")
	reps := fs.String("rep", "", "comma-separated reps to include")
	sources := fs.String("source", "", "comma-separated sources to include")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "export: %v\n", err)
		return 1
	}
	defer pool.Close()

	service := app.NewReportService(cfg, pool, nil, logger, nil)
	return cli.NewReportsCLI(service).ExportCommand(ctx, cli.ExportOptions{
		Month:   *month,
		Kind:    *kind,
		Format:  *format,
		Reps:    splitList(*reps),
		Sources: splitList(*sources),
		Stdout:  stdout,
		Stderr:  stderr,
	})
}

func runSchema(ctx context.Context, cfg *app.Config, stdout, stderr io.Writer) int {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "schema: %v\n", err)
		return 1
	}
	defer pool.Close()

	if err := ensureSchema(ctx, pool); err != nil {
		_, _ = fmt.Fprintf(stderr, "schema: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, "schema ready")
	return 0
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		return reportsdb.NewStore(tx).EnsureSchema(ctx)
	})
}

func runWarmup(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("warmup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	months := fs.String("months", "", "comma-separated months (YYYY-MM); default current and previous")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "warmup: %v\n", err)
		return 1
	}
	defer pool.Close()
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "warmup: %v\n", err)
		return 1
	}
	defer func() { _ = redisClient.Close() }()

	service := app.NewReportService(cfg, pool, reports.NewCache(redisClient, cfg.ReportCacheTTL), logger, nil)
	job := jobs.NewWarmupJob(service, logger, nil)
	targets := splitList(*months)
	if len(targets) == 0 {
		targets = jobs.DefaultWarmupMonths(time.Now().UTC())
	}
	warmed, err := job.Warm(ctx, targets)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "warmup: %v\n", err)
		return 1
	}
	keys := make([]string, 0, len(warmed))
	for month := range warmed {
		keys = append(keys, month)
	}
	sort.Strings(keys)
	for _, month := range keys {
		_, _ = fmt.Fprintf(stdout, "%s\t%d rows\n", month, warmed[month])
	}
	return 0
}

func runBump(ctx context.Context, cfg *app.Config, stdout, stderr io.Writer) int {
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "bump: %v\n", err)
		return 1
	}
	defer func() { _ = redisClient.Close() }()

	version, err := reports.NewCache(redisClient, cfg.ReportCacheTTL).Bump(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "bump: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "cache version %d\n", version)
	return 0
}

func runEnqueue(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	fs.SetOutput(stderr)
	months := fs.String("months", "", "comma-separated months for reports:warmup")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		_, _ = fmt.Fprintf(stderr, "enqueue: expected one job name (%s or %s)\n", jobs.TaskReportsWarmup, jobs.TaskReportsBump)
		return 1
	}

	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "enqueue: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()

	info, err := jobsCLI.Trigger(ctx, fs.Arg(0), splitList(*months))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "enqueue: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return 0
}

func runQueue(ctx context.Context, cfg *app.Config, stdout, stderr io.Writer) int {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "queue: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()

	stats, err := jobsCLI.InspectQueue(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "queue: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)

	scheduled, err := jobsCLI.ListScheduled(ctx, 10)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "queue: %v\n", err)
		return 1
	}
	for _, task := range scheduled {
		_, _ = fmt.Fprintf(stdout, "  %s %s at %s\n", task.ID, task.Type, task.NextProcessAt.Format("2006-01-02 15:04:05"))
	}
	return 0
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
