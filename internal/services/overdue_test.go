package services

import (
	"context"
	"testing"

	"forfettario/internal/core"
)

type recordingPublisher struct {
	published []core.Invoice
	err       error
}

func (p *recordingPublisher) PublishInvoiceOverdue(_ context.Context, inv core.Invoice) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, inv)
	return nil
}

func newTestSweeper(store *fakeInvoiceStore, pub OverduePublisher, today core.Date) *OverdueSweeper {
	s := NewOverdueSweeper(store, pub)
	s.today = func() core.Date { return today }
	return s
}

func TestSweepTransitionsStaleUnpaid(t *testing.T) {
	today := core.NewDate(2026, 8, 29)
	store := &fakeInvoiceStore{invoices: []core.Invoice{
		{ID: 1, Status: core.StatusSent, DueDate: core.NewDate(2026, 8, 1)},
		{ID: 2, Status: core.StatusDraft, DueDate: core.NewDate(2026, 7, 15)},
		{ID: 3, Status: core.StatusSent, DueDate: core.NewDate(2026, 9, 30)}, // not yet due
		{ID: 4, Status: core.StatusPaid, DueDate: core.NewDate(2026, 8, 1), PaidDate: core.NewDate(2026, 8, 10)},
		{ID: 5, Status: core.StatusOverdue, DueDate: core.NewDate(2026, 6, 1)},
	}}
	pub := &recordingPublisher{}

	swept, err := newTestSweeper(store, pub, today).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}

	if len(swept) != 2 {
		t.Fatalf("swept %d invoices, want 2", len(swept))
	}
	if store.byID(1).Status != core.StatusOverdue || store.byID(2).Status != core.StatusOverdue {
		t.Error("stale unpaid invoices should be overdue after the sweep")
	}
	if store.byID(3).Status != core.StatusSent {
		t.Error("invoice not yet due must keep its status")
	}
	if store.byID(4).Status != core.StatusPaid {
		t.Error("paid invoice must never transition")
	}
	if len(pub.published) != 2 {
		t.Errorf("published %d events, want 2", len(pub.published))
	}
}

func TestSweepIdempotent(t *testing.T) {
	today := core.NewDate(2026, 8, 29)
	store := &fakeInvoiceStore{invoices: []core.Invoice{
		{ID: 1, Status: core.StatusSent, DueDate: core.NewDate(2026, 8, 1)},
		{ID: 2, Status: core.StatusSent, DueDate: core.NewDate(2026, 8, 15)},
	}}
	sweeper := newTestSweeper(store, nil, today)

	first, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	second, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}

	if len(first) != 2 {
		t.Errorf("first sweep transitioned %d, want 2", len(first))
	}
	if len(second) != 0 {
		t.Errorf("second sweep transitioned %d, want 0", len(second))
	}
	for _, inv := range store.invoices {
		if inv.Status != core.StatusOverdue {
			t.Errorf("invoice %d status = %s, want overdue", inv.ID, inv.Status)
		}
	}
}

func TestSweepPublishFailureDoesNotFailSweep(t *testing.T) {
	today := core.NewDate(2026, 8, 29)
	store := &fakeInvoiceStore{invoices: []core.Invoice{
		{ID: 1, Status: core.StatusSent, DueDate: core.NewDate(2026, 8, 1)},
	}}
	pub := &recordingPublisher{err: core.ErrDataAccess}

	swept, err := newTestSweeper(store, pub, today).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep must not fail on publish errors: %v", err)
	}
	if len(swept) != 1 {
		t.Errorf("swept %d, want 1", len(swept))
	}
	if store.byID(1).Status != core.StatusOverdue {
		t.Error("transition must stick even when publishing fails")
	}
}

func TestSweepWithoutPublisher(t *testing.T) {
	today := core.NewDate(2026, 8, 29)
	store := &fakeInvoiceStore{invoices: []core.Invoice{
		{ID: 1, Status: core.StatusDraft, DueDate: core.NewDate(2026, 8, 1)},
	}}

	if _, err := newTestSweeper(store, nil, today).Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep with nil publisher: %v", err)
	}
}
