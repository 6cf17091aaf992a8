// Package worker exports overdue invoices to the external register,
// driven by AMQP events with a periodic catch-up sweep behind them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"forfettario/internal/amqp"
	"forfettario/internal/core"
	"forfettario/internal/sheets"
)

// InvoiceGetter loads the full invoice referenced by an event.
type InvoiceGetter interface {
	GetInvoice(ctx context.Context, id int64) (core.Invoice, error)
}

// Consumer delivers overdue invoice events until the context ends.
type Consumer interface {
	ConsumeInvoiceOverdue(ctx context.Context, handler func(*amqp.InvoiceOverdueMessage) error) error
}

// Sweeper transitions due invoices to overdue and returns them.
type Sweeper interface {
	Sweep(ctx context.Context) ([]core.Invoice, error)
}

// ExportWorker appends each overdue invoice to the register. Events
// arrive over AMQP; the catch-up sweep on a ticker covers invoices
// whose events were lost while the worker was down.
type ExportWorker struct {
	invoices InvoiceGetter
	register sheets.OverdueWriter
	sweeper  Sweeper
	consumer Consumer
	interval time.Duration
}

func NewExportWorker(invoices InvoiceGetter, register sheets.OverdueWriter, sweeper Sweeper, consumer Consumer, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		invoices: invoices,
		register: register,
		sweeper:  sweeper,
		consumer: consumer,
		interval: interval,
	}
}

// Run consumes events and runs the catch-up sweep until the context
// ends.
func (w *ExportWorker) Run(ctx context.Context) error {
	// Cover anything that went overdue while the worker was down.
	if err := w.CatchUpSweep(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup catch-up sweep failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.consumer.ConsumeInvoiceOverdue(ctx, func(msg *amqp.InvoiceOverdueMessage) error {
			return w.HandleOverdueMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.CatchUpSweep(ctx); err != nil {
					slog.ErrorContext(ctx, "Catch-up sweep failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// HandleOverdueMessage exports the invoice referenced by one event.
// Invoices that are no longer overdue when the event arrives (paid in
// the meantime, or a replayed delivery) are skipped.
func (w *ExportWorker) HandleOverdueMessage(ctx context.Context, msg *amqp.InvoiceOverdueMessage) error {
	inv, err := w.invoices.GetInvoice(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrInvoiceNotFound) {
			slog.WarnContext(ctx, "Overdue event references missing invoice, dropping",
				"id", msg.ID, "number", msg.Number)
			return nil
		}
		return fmt.Errorf("get invoice %d: %w", msg.ID, err)
	}

	if inv.Status != core.StatusOverdue {
		slog.InfoContext(ctx, "Invoice no longer overdue, skipping export",
			"id", inv.ID, "status", inv.Status)
		return nil
	}

	ref, err := w.register.AppendOverdue(ctx, inv)
	if err != nil {
		return fmt.Errorf("append invoice %d to register: %w", inv.ID, err)
	}

	slog.InfoContext(ctx, "Exported overdue invoice",
		"id", inv.ID,
		"number", inv.Number,
		"row_ref", ref)

	return nil
}

// CatchUpSweep transitions anything currently due and exports the
// transitioned invoices directly, bypassing the broker.
func (w *ExportWorker) CatchUpSweep(ctx context.Context) error {
	swept, err := w.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	if len(swept) == 0 {
		return nil
	}

	exported := 0
	for _, inv := range swept {
		if _, err := w.register.AppendOverdue(ctx, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to export swept invoice",
				"id", inv.ID, "error", err)
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Catch-up sweep completed",
		"swept", len(swept),
		"exported", exported)

	return nil
}
