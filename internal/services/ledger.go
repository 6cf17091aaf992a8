package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"forfettario/internal/core"
)

// FilterPolicy names one of the three invoice filtering semantics the
// views are built on. They are not interchangeable: the lifetime summary
// is pure cash basis, the monthly views count every invoice issued in
// the month but sum amounts only from paid ones, and the annual limit is
// measured on the gross invoiced total of paid invoices in the year.
type FilterPolicy int

const (
	// LifetimeCash sums paid invoices with no date bound.
	LifetimeCash FilterPolicy = iota
	// MonthHybrid counts all invoices issued in the window but sums
	// amount and VAT only for the paid ones.
	MonthHybrid
	// AnnualInvoiced sums total_amount (net + VAT) of paid invoices
	// issued in the window, the basis of the €85,000 ceiling.
	AnnualInvoiced
)

// LedgerTotals is the outcome of one aggregation pass.
type LedgerTotals struct {
	Year         int
	Month        int
	Income       core.Money // net invoice amounts per the policy
	Vat          core.Money
	Invoiced     core.Money // total_amount sums, AnnualInvoiced only
	InvoiceCount int
	Expenses     core.Money // always amount + iva_amount
}

// LedgerAggregator turns raw ledger records into period totals.
type LedgerAggregator struct {
	invoices InvoiceStore
	expenses ExpenseStore
	settings SettingsStore
}

func NewLedgerAggregator(invoices InvoiceStore, expenses ExpenseStore, settings SettingsStore) *LedgerAggregator {
	return &LedgerAggregator{
		invoices: invoices,
		expenses: expenses,
		settings: settings,
	}
}

// Settings returns the current regime parameters, degrading to the
// documented defaults when the settings store is unreachable. Showing
// the dashboard with default rates beats showing no dashboard at all.
func (a *LedgerAggregator) Settings(ctx context.Context) (core.TaxSettings, error) {
	s, err := a.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, core.ErrSettingsUnavailable) {
			slog.WarnContext(ctx, "Settings unavailable, using defaults", "error", err)
			return core.DefaultTaxSettings(), nil
		}
		return core.TaxSettings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

// AllTimeTotals aggregates under the LifetimeCash policy: every paid
// invoice ever, every expense ever.
func (a *LedgerAggregator) AllTimeTotals(ctx context.Context) (LedgerTotals, error) {
	invs, err := a.invoices.QueryInvoices(ctx, InvoiceQuery{Status: statusPtr(core.StatusPaid)})
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("query paid invoices: %w", err)
	}

	exps, err := a.expenses.QueryExpenses(ctx, ExpenseQuery{})
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("query expenses: %w", err)
	}

	totals := sumInvoices(invs, LifetimeCash)
	totals.Expenses = sumExpenses(exps)
	return totals, nil
}

// MonthTotals aggregates one calendar month under the MonthHybrid
// policy.
func (a *LedgerAggregator) MonthTotals(ctx context.Context, year, month int) (LedgerTotals, error) {
	first, last := core.MonthRange(year, month)

	invs, err := a.invoices.QueryInvoices(ctx, InvoiceQuery{IssueFrom: datePtr(first), IssueTo: datePtr(last)})
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("query invoices for %d-%02d: %w", year, month, err)
	}

	exps, err := a.expenses.QueryExpenses(ctx, ExpenseQuery{From: datePtr(first), To: datePtr(last)})
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("query expenses for %d-%02d: %w", year, month, err)
	}

	totals := sumInvoices(invs, MonthHybrid)
	totals.Year = year
	totals.Month = month
	totals.Expenses = sumExpenses(exps)
	return totals, nil
}

// AnnualInvoicedTotal returns the gross invoiced total of paid invoices
// issued in the given calendar year.
func (a *LedgerAggregator) AnnualInvoicedTotal(ctx context.Context, year int) (core.Money, error) {
	first, last := core.YearRange(year)

	invs, err := a.invoices.QueryInvoices(ctx, InvoiceQuery{
		Status:    statusPtr(core.StatusPaid),
		IssueFrom: datePtr(first),
		IssueTo:   datePtr(last),
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("query paid invoices for %d: %w", year, err)
	}

	return sumInvoices(invs, AnnualInvoiced).Invoiced, nil
}

// MonthlySeries aggregates the last n months including the current one,
// ordered oldest to newest.
func (a *LedgerAggregator) MonthlySeries(ctx context.Context, n int, now time.Time) ([]LedgerTotals, error) {
	if n < 1 {
		n = 1
	}

	// AddDate from a day-31 reference can slide into the following
	// month, so month stepping is anchored on the first of the month.
	anchor0 := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	series := make([]LedgerTotals, 0, n)
	for i := n - 1; i >= 0; i-- {
		anchor := anchor0.AddDate(0, -i, 0)
		totals, err := a.MonthTotals(ctx, anchor.Year(), int(anchor.Month()))
		if err != nil {
			return nil, err
		}
		series = append(series, totals)
	}
	return series, nil
}

// sumInvoices applies one filtering policy to an already date-bounded
// invoice set. Date bounding belongs to the store query; the policy only
// decides what each invoice contributes.
func sumInvoices(invs []core.Invoice, policy FilterPolicy) LedgerTotals {
	var t LedgerTotals
	for _, inv := range invs {
		switch policy {
		case LifetimeCash:
			if inv.IsPaid() {
				t.Income = t.Income.Add(inv.Amount)
				t.Vat = t.Vat.Add(inv.VatAmount)
				t.InvoiceCount++
			}
		case MonthHybrid:
			t.InvoiceCount++
			if inv.IsPaid() {
				t.Income = t.Income.Add(inv.Amount)
				t.Vat = t.Vat.Add(inv.VatAmount)
			}
		case AnnualInvoiced:
			if inv.IsPaid() {
				t.Invoiced = t.Invoiced.Add(inv.TotalAmount)
				t.InvoiceCount++
			}
		}
	}
	return t
}

// sumExpenses totals the true cash cost, net amount plus any
// reverse-charge VAT, never the net amount alone.
func sumExpenses(exps []core.Expense) core.Money {
	var total core.Money
	for _, e := range exps {
		total = total.Add(e.CashCost())
	}
	return total
}
