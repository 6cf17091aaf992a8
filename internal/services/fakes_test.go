package services

import (
	"context"
	"fmt"

	"forfettario/internal/core"
)

// In-memory store fakes shared by the engine tests. They reproduce the
// filtering contract of the SQLite repository so the services can be
// exercised without a database.

type fakeInvoiceStore struct {
	invoices []core.Invoice
	queryErr error
	setErr   error
}

func (f *fakeInvoiceStore) QueryInvoices(_ context.Context, q InvoiceQuery) ([]core.Invoice, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []core.Invoice
	for _, inv := range f.invoices {
		if q.Status != nil && inv.Status != *q.Status {
			continue
		}
		if q.IssueFrom != nil && inv.IssueDate.Before(q.IssueFrom.Time) {
			continue
		}
		if q.IssueTo != nil && inv.IssueDate.After(q.IssueTo.Time) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (f *fakeInvoiceStore) SetStatus(_ context.Context, id int64, status core.InvoiceStatus, paidDate core.Date) error {
	if f.setErr != nil {
		return f.setErr
	}
	for i := range f.invoices {
		if f.invoices[i].ID == id {
			f.invoices[i].Status = status
			if status == core.StatusPaid {
				f.invoices[i].PaidDate = paidDate
			}
			return nil
		}
	}
	return core.ErrInvoiceNotFound
}

func (f *fakeInvoiceStore) byID(id int64) core.Invoice {
	for _, inv := range f.invoices {
		if inv.ID == id {
			return inv
		}
	}
	return core.Invoice{}
}

type fakeExpenseStore struct {
	expenses []core.Expense
	queryErr error
}

func (f *fakeExpenseStore) QueryExpenses(_ context.Context, q ExpenseQuery) ([]core.Expense, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []core.Expense
	for _, e := range f.expenses {
		if q.From != nil && e.ExpenseDate.Before(q.From.Time) {
			continue
		}
		if q.To != nil && e.ExpenseDate.After(q.To.Time) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeClientStore struct {
	clients map[int64]core.Client
}

func (f *fakeClientStore) GetByID(_ context.Context, id int64) (core.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return core.Client{}, fmt.Errorf("client %d: %w", id, core.ErrClientNotFound)
	}
	return c, nil
}

// setRate changes a client's hourly rate, simulating a settings edit
// after entries were already priced.
func (f *fakeClientStore) setRate(id int64, cents int64) {
	c := f.clients[id]
	c.HourlyRate = core.Money{Cents: cents}
	f.clients[id] = c
}

type fakeHoursStore struct {
	entries []core.WorkedHourEntry
	nextID  int64
}

func (f *fakeHoursStore) QueryWorkedHours(_ context.Context, q WorkedHoursQuery) ([]core.WorkedHourEntry, error) {
	var out []core.WorkedHourEntry
	for _, e := range f.entries {
		if q.From != nil && e.WorkedDate.Before(q.From.Time) {
			continue
		}
		if q.To != nil && e.WorkedDate.After(q.To.Time) {
			continue
		}
		if q.ClientID != nil && e.ClientID != *q.ClientID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeHoursStore) GetWorkedHours(_ context.Context, id int64) (core.WorkedHourEntry, error) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.WorkedHourEntry{}, core.ErrEntryNotFound
}

func (f *fakeHoursStore) InsertWorkedHours(_ context.Context, e core.WorkedHourEntry) (core.WorkedHourEntry, error) {
	f.nextID++
	e.ID = f.nextID
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeHoursStore) UpdateWorkedHours(_ context.Context, e core.WorkedHourEntry) error {
	for i := range f.entries {
		if f.entries[i].ID == e.ID {
			f.entries[i] = e
			return nil
		}
	}
	return core.ErrEntryNotFound
}

func (f *fakeHoursStore) DeleteWorkedHours(_ context.Context, id int64) error {
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return core.ErrEntryNotFound
}

type fakeSettingsStore struct {
	settings core.TaxSettings
	err      error
}

func (f *fakeSettingsStore) Get(_ context.Context) (core.TaxSettings, error) {
	if f.err != nil {
		return core.TaxSettings{}, f.err
	}
	return f.settings, nil
}

func defaultSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{settings: core.DefaultTaxSettings()}
}

// paidInvoice builds a paid invoice with VAT derived from the rate.
func paidInvoice(id int64, amountCents int64, vatRate float64, issue core.Date) core.Invoice {
	amount := core.Money{Cents: amountCents}
	vat := amount.MulRate(vatRate)
	return core.Invoice{
		ID:          id,
		Number:      fmt.Sprintf("2026/%03d", id),
		Amount:      amount,
		VatRate:     vatRate,
		VatAmount:   vat,
		TotalAmount: amount.Add(vat),
		Status:      core.StatusPaid,
		IssueDate:   issue,
		PaidDate:    issue,
	}
}

func draftInvoice(id int64, amountCents int64, issue core.Date) core.Invoice {
	inv := paidInvoice(id, amountCents, 0, issue)
	inv.Status = core.StatusDraft
	inv.PaidDate = core.Date{}
	return inv
}

func expense(id int64, amountCents int64, ivaIncluded bool, ivaRate float64, date core.Date) core.Expense {
	amount := core.Money{Cents: amountCents}
	return core.Expense{
		ID:          id,
		Amount:      amount,
		IvaIncluded: ivaIncluded,
		IvaRate:     ivaRate,
		IvaAmount:   core.IvaAmount(amount, ivaIncluded, ivaRate),
		ExpenseDate: date,
	}
}
