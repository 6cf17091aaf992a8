// Package sheets declares the outbound ports for the overdue invoice
// register.
package sheets

import (
	"context"

	"forfettario/internal/core"
)

// OverdueWriter appends an overdue invoice to the external register.
type OverdueWriter interface {
	AppendOverdue(ctx context.Context, inv core.Invoice) (rowRef string, err error)
}
