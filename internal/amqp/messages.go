package amqp

import (
	"encoding/json"
	"time"

	"forfettario/internal/core"
)

// InvoiceOverdueMessage is the lightweight event published when an
// invoice transitions to overdue. It carries only identifiers, the
// worker fetches the full invoice from the database.
type InvoiceOverdueMessage struct {
	ID        int64     `json:"id"`
	Number    string    `json:"number"`
	DueDate   string    `json:"due_date"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInvoiceOverdueMessage builds the event for a freshly transitioned
// invoice.
func NewInvoiceOverdueMessage(inv core.Invoice) *InvoiceOverdueMessage {
	return &InvoiceOverdueMessage{
		ID:        inv.ID,
		Number:    inv.Number,
		DueDate:   inv.DueDate.ISO(),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *InvoiceOverdueMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvoiceOverdueMessageFromJSON creates a message from JSON bytes.
func InvoiceOverdueMessageFromJSON(data []byte) (*InvoiceOverdueMessage, error) {
	var msg InvoiceOverdueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
