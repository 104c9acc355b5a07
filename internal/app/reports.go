package app

import (
	"log/slog"

	"github.com/fleetledger/fleetledger/internal/reports"
	reportsdb "github.com/fleetledger/fleetledger/internal/reports/db"
)

// NewReportService wires the Postgres store and the source cache into a
// report service sized from cfg. cache may be nil to run uncached.
func NewReportService(cfg *Config, db reportsdb.DBTX, cache *reports.Cache, logger *slog.Logger, observer reports.BuildObserver) *reports.Service {
	svc := reports.NewService(reportsdb.NewStore(db), cache, logger, reports.ServiceConfig{
		DefaultTopN:    cfg.ReportTopReps,
		DefaultPerPage: cfg.ReportPageSize,
		FetchTimeout:   cfg.ReportBuildTimeout,
	})
	if observer != nil {
		svc.SetObserver(observer)
	}
	return svc
}
