// Package http exposes the dashboard, worked-hours and invoice status
// operations as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"forfettario/internal/core"
	"forfettario/internal/services"
	"forfettario/internal/tax"
)

// requestTimeout bounds every handler's downstream work so a stuck
// database read cannot hang the response forever.
const requestTimeout = 10 * time.Second

// defaultSeriesMonths is the income-expense series window used when the
// configuration supplies no usable value.
const defaultSeriesMonths = 12

// Dashboard is the read-view surface the server exposes.
type Dashboard interface {
	GetSummary(ctx context.Context) (services.Summary, error)
	GetMonthlyEstimate(ctx context.Context) (services.MonthlyEstimate, error)
	GetMonthlyOverview(ctx context.Context, year, month int, targetSalary core.Money, rates tax.Rates) (services.MonthlyOverview, error)
	GetIncomeExpenseSeries(ctx context.Context, months int) ([]services.MonthlyDataPoint, error)
	GetAnnualLimitStatus(ctx context.Context, year int) (services.AnnualLimitStatus, error)
}

// WorkedHours is the time-tracking surface the server exposes.
type WorkedHours interface {
	Log(ctx context.Context, req services.LogHoursRequest) (core.WorkedHourEntry, error)
	Update(ctx context.Context, id int64, req services.UpdateHoursRequest) (core.WorkedHourEntry, error)
	Delete(ctx context.Context, id int64) error
	MonthlySummary(ctx context.Context, year, month int) (services.MonthlyHoursSummary, error)
	MonthlyClientReport(ctx context.Context, year, month int, clientID int64) (services.MonthlyClientReport, error)
}

// SettingsReader supplies the regime parameters the overview endpoint
// needs for rates and the default target salary.
type SettingsReader interface {
	Settings(ctx context.Context) (core.TaxSettings, error)
}

// InvoiceStatusWriter transitions invoice statuses for the mark-paid
// endpoint.
type InvoiceStatusWriter interface {
	SetStatus(ctx context.Context, id int64, status core.InvoiceStatus, paidDate core.Date) error
}

type Server struct {
	http.Server
	dashboard    Dashboard
	hours        WorkedHours
	settings     SettingsReader
	invoices     InvoiceStatusWriter
	seriesMonths int
}

// NewServer configures routes, returning a ready-to-run http.Server.
// seriesMonths is the default window for the income-expense series when
// the request carries no months parameter.
func NewServer(addr string, dash Dashboard, hours WorkedHours, settings SettingsReader, invoices InvoiceStatusWriter, seriesMonths int) *Server {
	if seriesMonths < 1 {
		seriesMonths = defaultSeriesMonths
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		dashboard:    dash,
		hours:        hours,
		settings:     settings,
		invoices:     invoices,
		seriesMonths: seriesMonths,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/dashboard/summary", s.withRequestLog(s.handleSummary))
	mux.HandleFunc("/api/dashboard/monthly-estimate", s.withRequestLog(s.handleMonthlyEstimate))
	mux.HandleFunc("/api/dashboard/monthly-overview", s.withRequestLog(s.handleMonthlyOverview))
	mux.HandleFunc("/api/dashboard/income-expenses", s.withRequestLog(s.handleIncomeExpenses))
	mux.HandleFunc("/api/dashboard/annual-limit", s.withRequestLog(s.handleAnnualLimit))
	mux.HandleFunc("/api/worked-hours", s.withRequestLog(s.handleWorkedHoursCollection))
	mux.HandleFunc("/api/worked-hours/summary", s.withRequestLog(s.handleWorkedHoursSummary))
	mux.HandleFunc("/api/worked-hours/report", s.withRequestLog(s.handleWorkedHoursReport))
	mux.HandleFunc("/api/worked-hours/", s.withRequestLog(s.handleWorkedHoursItem))
	mux.HandleFunc("/api/invoices/", s.withRequestLog(s.handleInvoiceStatus))

	return s
}

// withRequestLog attaches a request ID, a downstream timeout and
// start/end logging to a handler.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		ctx = context.WithValue(ctx, requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
