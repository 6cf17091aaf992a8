package services

import (
	"context"
	"fmt"
	"log/slog"

	"forfettario/internal/core"
)

// OverduePublisher receives a notification for every invoice the sweep
// transitions. Publishing is best effort: a broker outage never fails
// the sweep, the transition is already durable in the store.
type OverduePublisher interface {
	PublishInvoiceOverdue(ctx context.Context, inv core.Invoice) error
}

// OverdueSweeper promotes stale unpaid invoices to overdue. It runs
// inline before the lifetime summary is computed, so summaries always
// reflect current overdue status. The sweep is idempotent: an invoice
// is transitioned at most once and never away from paid.
type OverdueSweeper struct {
	invoices  InvoiceStore
	publisher OverduePublisher // optional
	today     func() core.Date
}

func NewOverdueSweeper(invoices InvoiceStore, publisher OverduePublisher) *OverdueSweeper {
	return &OverdueSweeper{
		invoices:  invoices,
		publisher: publisher,
		today:     core.Today,
	}
}

// Sweep transitions every draft or sent invoice whose due date has
// passed and that was never collected. It returns the invoices it
// transitioned.
func (s *OverdueSweeper) Sweep(ctx context.Context) ([]core.Invoice, error) {
	today := s.today()

	var transitioned []core.Invoice
	for _, status := range []core.InvoiceStatus{core.StatusDraft, core.StatusSent} {
		invs, err := s.invoices.QueryInvoices(ctx, InvoiceQuery{Status: statusPtr(status)})
		if err != nil {
			return nil, fmt.Errorf("query %s invoices: %w", status, err)
		}

		for _, inv := range invs {
			if !inv.IsOverdueCandidate(today) {
				continue
			}
			if err := s.invoices.SetStatus(ctx, inv.ID, core.StatusOverdue, core.Date{}); err != nil {
				return transitioned, fmt.Errorf("mark invoice %d overdue: %w", inv.ID, err)
			}
			inv.Status = core.StatusOverdue
			transitioned = append(transitioned, inv)

			slog.InfoContext(ctx, "Invoice marked overdue",
				"id", inv.ID,
				"number", inv.Number,
				"due_date", inv.DueDate.ISO())

			if s.publisher != nil {
				if err := s.publisher.PublishInvoiceOverdue(ctx, inv); err != nil {
					slog.ErrorContext(ctx, "Failed to publish overdue event",
						"id", inv.ID, "error", err)
				}
			}
		}
	}

	return transitioned, nil
}
