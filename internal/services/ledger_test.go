package services

import (
	"context"
	"testing"

	"forfettario/internal/core"
)

func TestAllTimeTotalsCashBasis(t *testing.T) {
	invoices := &fakeInvoiceStore{invoices: []core.Invoice{
		paidInvoice(1, 100000, 0, core.NewDate(2025, 3, 10)),
		paidInvoice(2, 250000, 22, core.NewDate(2026, 1, 15)),
		draftInvoice(3, 999999, core.NewDate(2026, 2, 1)), // never paid, never counted
		func() core.Invoice {
			inv := paidInvoice(4, 50000, 0, core.NewDate(2026, 2, 20))
			inv.Status = core.StatusOverdue
			inv.PaidDate = core.Date{}
			return inv
		}(),
	}}
	expenses := &fakeExpenseStore{expenses: []core.Expense{
		expense(1, 10000, false, 22, core.NewDate(2025, 6, 1)), // cash cost 122.00
		expense(2, 5000, true, 22, core.NewDate(2026, 1, 5)),   // cash cost 50.00
	}}

	agg := NewLedgerAggregator(invoices, expenses, defaultSettingsStore())
	totals, err := agg.AllTimeTotals(context.Background())
	if err != nil {
		t.Fatalf("AllTimeTotals returned error: %v", err)
	}

	if totals.Income.Cents != 350000 {
		t.Errorf("income = %d, want 350000 (only paid invoices, lifetime)", totals.Income.Cents)
	}
	if totals.InvoiceCount != 2 {
		t.Errorf("count = %d, want 2", totals.InvoiceCount)
	}
	if totals.Expenses.Cents != 17200 {
		t.Errorf("expenses = %d, want 17200 (amount + iva_amount)", totals.Expenses.Cents)
	}
}

func TestMonthTotalsHybridSemantics(t *testing.T) {
	// One paid €1000 and one draft €500 issued the same month: the count
	// includes both, the amount only the paid one.
	invoices := &fakeInvoiceStore{invoices: []core.Invoice{
		paidInvoice(1, 100000, 0, core.NewDate(2026, 8, 5)),
		draftInvoice(2, 50000, core.NewDate(2026, 8, 20)),
		paidInvoice(3, 70000, 0, core.NewDate(2026, 7, 30)), // previous month, excluded
	}}
	expenses := &fakeExpenseStore{expenses: []core.Expense{
		expense(1, 20000, false, 22, core.NewDate(2026, 8, 10)),
		expense(2, 30000, true, 0, core.NewDate(2026, 7, 10)), // previous month
	}}

	agg := NewLedgerAggregator(invoices, expenses, defaultSettingsStore())
	totals, err := agg.MonthTotals(context.Background(), 2026, 8)
	if err != nil {
		t.Fatalf("MonthTotals returned error: %v", err)
	}

	if totals.InvoiceCount != 2 {
		t.Errorf("invoice_count = %d, want 2 (draft counted)", totals.InvoiceCount)
	}
	if totals.Income.Cents != 100000 {
		t.Errorf("income = %d, want 100000 (draft excluded from amount)", totals.Income.Cents)
	}
	if totals.Expenses.Cents != 24400 {
		t.Errorf("expenses = %d, want 24400", totals.Expenses.Cents)
	}
}

func TestMonthTotalsSumsVatOnlyFromPaid(t *testing.T) {
	invoices := &fakeInvoiceStore{invoices: []core.Invoice{
		paidInvoice(1, 100000, 22, core.NewDate(2026, 8, 5)),
		func() core.Invoice {
			inv := paidInvoice(2, 100000, 22, core.NewDate(2026, 8, 8))
			inv.Status = core.StatusSent
			inv.PaidDate = core.Date{}
			return inv
		}(),
	}}

	agg := NewLedgerAggregator(invoices, &fakeExpenseStore{}, defaultSettingsStore())
	totals, err := agg.MonthTotals(context.Background(), 2026, 8)
	if err != nil {
		t.Fatalf("MonthTotals returned error: %v", err)
	}
	if totals.Vat.Cents != 22000 {
		t.Errorf("vat = %d, want 22000 (sent invoice contributes no VAT)", totals.Vat.Cents)
	}
}

func TestAnnualInvoicedUsesGrossTotal(t *testing.T) {
	// The ceiling is measured on total_amount (net + VAT) of paid
	// invoices issued in the calendar year.
	invoices := &fakeInvoiceStore{invoices: []core.Invoice{
		paidInvoice(1, 100000, 22, core.NewDate(2026, 2, 1)),  // total 1220.00
		paidInvoice(2, 200000, 0, core.NewDate(2026, 11, 30)), // total 2000.00
		paidInvoice(3, 500000, 0, core.NewDate(2025, 12, 31)), // previous year
		draftInvoice(4, 900000, core.NewDate(2026, 6, 1)),     // not paid
	}}

	agg := NewLedgerAggregator(invoices, &fakeExpenseStore{}, defaultSettingsStore())
	total, err := agg.AnnualInvoicedTotal(context.Background(), 2026)
	if err != nil {
		t.Fatalf("AnnualInvoicedTotal returned error: %v", err)
	}
	if total.Cents != 322000 {
		t.Errorf("total = %d, want 322000", total.Cents)
	}
}

func TestMonthlySeriesOrderAndWindow(t *testing.T) {
	invoices := &fakeInvoiceStore{invoices: []core.Invoice{
		paidInvoice(1, 10000, 0, core.NewDate(2026, 6, 10)),
		paidInvoice(2, 20000, 0, core.NewDate(2026, 7, 10)),
		paidInvoice(3, 30000, 0, core.NewDate(2026, 8, 10)),
	}}

	agg := NewLedgerAggregator(invoices, &fakeExpenseStore{}, defaultSettingsStore())
	now := core.NewDate(2026, 8, 31).Time
	series, err := agg.MonthlySeries(context.Background(), 3, now)
	if err != nil {
		t.Fatalf("MonthlySeries returned error: %v", err)
	}

	if len(series) != 3 {
		t.Fatalf("len(series) = %d, want 3", len(series))
	}
	wantMonths := []int{6, 7, 8}
	wantIncome := []int64{10000, 20000, 30000}
	for i, totals := range series {
		if totals.Month != wantMonths[i] {
			t.Errorf("series[%d].Month = %d, want %d (oldest to newest)", i, totals.Month, wantMonths[i])
		}
		if totals.Income.Cents != wantIncome[i] {
			t.Errorf("series[%d].Income = %d, want %d", i, totals.Income.Cents, wantIncome[i])
		}
	}
}

func TestMonthlySeriesEmptyMonthsYieldZeroTotals(t *testing.T) {
	agg := NewLedgerAggregator(&fakeInvoiceStore{}, &fakeExpenseStore{}, defaultSettingsStore())
	series, err := agg.MonthlySeries(context.Background(), 2, core.NewDate(2026, 1, 15).Time)
	if err != nil {
		t.Fatalf("MonthlySeries returned error: %v", err)
	}
	for _, totals := range series {
		if totals.Income.Cents != 0 || totals.Expenses.Cents != 0 || totals.InvoiceCount != 0 {
			t.Errorf("empty month should have zero totals, got %+v", totals)
		}
	}
	// Window crossing a year boundary: Dec 2025 then Jan 2026.
	if series[0].Year != 2025 || series[0].Month != 12 {
		t.Errorf("series[0] = %d-%02d, want 2025-12", series[0].Year, series[0].Month)
	}
}

func TestSettingsFallbackOnUnavailable(t *testing.T) {
	agg := NewLedgerAggregator(&fakeInvoiceStore{}, &fakeExpenseStore{},
		&fakeSettingsStore{err: core.ErrSettingsUnavailable})

	s, err := agg.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings should degrade, not fail: %v", err)
	}
	want := core.DefaultTaxSettings()
	if s != want {
		t.Errorf("fallback settings = %+v, want defaults", s)
	}
}

func TestSettingsPropagatesOtherErrors(t *testing.T) {
	agg := NewLedgerAggregator(&fakeInvoiceStore{}, &fakeExpenseStore{},
		&fakeSettingsStore{err: core.ErrDataAccess})

	if _, err := agg.Settings(context.Background()); err == nil {
		t.Error("data access failures must propagate, not degrade to defaults")
	}
}
