// Package reporthttp serves the monthly report pages and their exports.
package reporthttp

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/blake2b"

	"github.com/fleetledger/fleetledger/internal/platform/httpx"
	"github.com/fleetledger/fleetledger/internal/reports"
	"github.com/fleetledger/fleetledger/internal/reports/export"
)

const defaultRequestTimeout = 5 * time.Second

// ReportService defines the report contract used by the handler.
type ReportService interface {
	Report(ctx context.Context, req reports.Request) (reports.View, error)
	Book(ctx context.Context, req reports.Request) (reports.Book, error)
	Options(ctx context.Context, w reports.Window) (reports.Options, error)
	InvalidateCache(ctx context.Context) (int64, error)
}

// PDFService renders a report book to PDF bytes.
type PDFService interface {
	Render(ctx context.Context, book reports.Book, generatedAt time.Time) ([]byte, error)
}

// Config tunes the handler.
type Config struct {
	RequestTimeout time.Duration
	ExportsPerMin  int
}

// Handler coordinates HTTP requests for the monthly report.
type Handler struct {
	logger   *slog.Logger
	service  ReportService
	pdf      PDFService
	validate *validator.Validate
	cfg      Config
	csvPool  sync.Pool
	now      func() time.Time
}

// NewHandler constructs the report HTTP handler. pdf may be nil, in which
// case the PDF export answers 503.
func NewHandler(logger *slog.Logger, service ReportService, pdf PDFService, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ExportsPerMin <= 0 {
		cfg.ExportsPerMin = 10
	}
	h := &Handler{
		logger:   logger,
		service:  service,
		pdf:      pdf,
		validate: newValidator(),
		cfg:      cfg,
		now:      time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type reportResponse struct {
	Window reports.Window      `json:"window"`
	Filter reports.FilterState `json:"filter"`
	Sort   reports.SortState   `json:"sort"`
	View   reports.View        `json:"view"`
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	kind, req, ok := h.parseKindRequest(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	view, err := h.service.Report(ctx, req)
	if err != nil {
		h.respondError(w, "build report "+string(kind), err)
		return
	}
	h.writeJSON(w, r, reportResponse{Window: req.Window, Filter: req.Filter, Sort: req.Sort, View: view})
}

type bookResponse struct {
	Window reports.Window     `json:"window"`
	Pager  reports.PagerState `json:"pager"`
	Pages  []reports.Kind     `json:"pages"`
	View   reports.View       `json:"view"`
}

// handleBook serves one page of the book. "at" selects a 1-based page and
// "jump" a page by kind; out-of-range positions clamp to the nearest page.
func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(h.validate, r.URL.Query())
	if err != nil {
		h.respondError(w, "parse query", err)
		return
	}
	req, err := q.request("", h.now().UTC())
	if err != nil {
		h.respondError(w, "build request", err)
		return
	}

	pager := reports.NewPager()
	if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
		at, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(w, "parse page", fieldErrors{"at": "must be an integer"})
			return
		}
		pager = pager.Goto(at)
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("jump")); raw != "" {
		kind, err := reports.ParseKind(raw)
		if err != nil {
			h.respondError(w, "parse jump", err)
			return
		}
		pager = pager.Jump(kind)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	book, err := h.service.Book(ctx, req)
	if err != nil {
		h.respondError(w, "build book", err)
		return
	}
	view, ok := book.Page(pager)
	if !ok {
		h.respondError(w, "locate page", fmt.Errorf("%w: %s", reports.ErrUnknownReportKind, pager.Current()))
		return
	}
	h.writeJSON(w, r, bookResponse{
		Window: req.Window,
		Pager:  pager.State(),
		Pages:  reports.PageSequence(),
		View:   view,
	})
}

func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(h.validate, r.URL.Query())
	if err != nil {
		h.respondError(w, "parse query", err)
		return
	}
	win, err := q.window(h.now().UTC())
	if err != nil {
		h.respondError(w, "resolve window", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	opts, err := h.service.Options(ctx, win)
	if err != nil {
		h.respondError(w, "load options", err)
		return
	}
	h.writeJSON(w, r, opts)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	kind, req, ok := h.parseKindRequest(w, r)
	if !ok {
		return
	}
	req.PerPage = -1

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	view, err := h.service.Report(ctx, req)
	if err != nil {
		h.respondError(w, "build report "+string(kind), err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteViewCSV(buf, view); err != nil {
		h.respondError(w, "write csv", err)
		return
	}

	filename := fileStem(string(kind), req.Window) + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", "pdf exporter not configured")
		return
	}
	q, err := parseQuery(h.validate, r.URL.Query())
	if err != nil {
		h.respondError(w, "parse query", err)
		return
	}
	req, err := q.request("", h.now().UTC())
	if err != nil {
		h.respondError(w, "build request", err)
		return
	}
	req.PerPage = -1

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	book, err := h.service.Book(ctx, req)
	if err != nil {
		h.respondError(w, "build book", err)
		return
	}
	pdfBytes, err := h.pdf.Render(ctx, book, h.now())
	if err != nil {
		h.respondError(w, "render pdf", fmt.Errorf("%w: %w", httpx.ErrUpstream, err))
		return
	}

	filename := fileStem("book", req.Window) + ".pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func (h *Handler) handleBump(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	ver, err := h.service.InvalidateCache(ctx)
	if err != nil {
		h.respondError(w, "bump cache", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"version": ver})
}

func (h *Handler) parseKindRequest(w http.ResponseWriter, r *http.Request) (reports.Kind, reports.Request, bool) {
	kind, err := reports.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.respondError(w, "parse kind", err)
		return "", reports.Request{}, false
	}
	q, err := parseQuery(h.validate, r.URL.Query())
	if err != nil {
		h.respondError(w, "parse query", err)
		return "", reports.Request{}, false
	}
	req, err := q.request(kind, h.now().UTC())
	if err != nil {
		h.respondError(w, "build request", err)
		return "", reports.Request{}, false
	}
	return kind, req, true
}

// writeJSON sends payload with a content ETag and answers 304 when the
// client already holds it.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.respondError(w, "encode response", err)
		return
	}
	sum := blake2b.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logError("stream json", err)
	}
}

// classify attaches the httpx sentinel matching a report error.
func classify(err error) error {
	switch {
	case errors.Is(err, reports.ErrUnknownReportKind):
		return fmt.Errorf("%w: %w", httpx.ErrNotFound, err)
	case errors.Is(err, reports.ErrInvalidWindow), errors.Is(err, reports.ErrUnknownSortKey):
		return fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	case errors.Is(err, reports.ErrSourceFetch):
		return fmt.Errorf("%w: %w", httpx.ErrUpstream, err)
	default:
		return err
	}
}

func (h *Handler) respondError(w http.ResponseWriter, context string, err error) {
	var fields fieldErrors
	if errors.As(err, &fields) {
		httpx.FieldProblem(w, fields)
		return
	}
	err = classify(err)
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logError(context, err)
	}
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
