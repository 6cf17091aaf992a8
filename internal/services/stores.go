// Package services holds the financial aggregation and tax computation
// engine: ledger aggregation under the per-view filtering policies, the
// overdue invoice sweep, worked-hours reporting and the dashboard views
// composed from them.
package services

import (
	"context"

	"forfettario/internal/core"
)

// InvoiceQuery narrows an invoice read. Nil fields are not applied.
type InvoiceQuery struct {
	Status    *core.InvoiceStatus
	IssueFrom *core.Date
	IssueTo   *core.Date
}

// ExpenseQuery narrows an expense read by expense date. Nil bounds mean
// no bound.
type ExpenseQuery struct {
	From *core.Date
	To   *core.Date
}

// WorkedHoursQuery narrows a worked-hours read.
type WorkedHoursQuery struct {
	From     *core.Date
	To       *core.Date
	ClientID *int64
}

// InvoiceStore is the invoice accessor the engine consumes.
type InvoiceStore interface {
	QueryInvoices(ctx context.Context, q InvoiceQuery) ([]core.Invoice, error)
	// SetStatus transitions an invoice. paidDate must be non-zero
	// exactly when status is paid.
	SetStatus(ctx context.Context, id int64, status core.InvoiceStatus, paidDate core.Date) error
}

// ExpenseStore is the expense accessor the engine consumes.
type ExpenseStore interface {
	QueryExpenses(ctx context.Context, q ExpenseQuery) ([]core.Expense, error)
}

// ClientStore resolves clients for worked-hours pricing.
type ClientStore interface {
	// GetByID returns core.ErrClientNotFound when the id does not resolve.
	GetByID(ctx context.Context, id int64) (core.Client, error)
}

// WorkedHoursStore persists logged time.
type WorkedHoursStore interface {
	QueryWorkedHours(ctx context.Context, q WorkedHoursQuery) ([]core.WorkedHourEntry, error)
	GetWorkedHours(ctx context.Context, id int64) (core.WorkedHourEntry, error)
	InsertWorkedHours(ctx context.Context, e core.WorkedHourEntry) (core.WorkedHourEntry, error)
	UpdateWorkedHours(ctx context.Context, e core.WorkedHourEntry) error
	DeleteWorkedHours(ctx context.Context, id int64) error
}

// SettingsStore reads the current regime parameters. Implementations
// return core.ErrSettingsUnavailable when the store is unreachable; the
// engine then degrades to core.DefaultTaxSettings.
type SettingsStore interface {
	Get(ctx context.Context) (core.TaxSettings, error)
}

func statusPtr(s core.InvoiceStatus) *core.InvoiceStatus { return &s }
func datePtr(d core.Date) *core.Date                     { return &d }
