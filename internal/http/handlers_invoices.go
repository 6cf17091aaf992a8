package http

import (
	"net/http"
	"strconv"
	"strings"

	"forfettario/internal/core"
)

type invoiceStatusRequest struct {
	Status   core.InvoiceStatus `json:"status"`
	PaidDate core.Date          `json:"paid_date"`
}

type invoiceStatusResponse struct {
	ID       int64              `json:"id"`
	Status   core.InvoiceStatus `json:"status"`
	PaidDate core.Date          `json:"paid_date"`
}

// handleInvoiceStatus serves POST /api/invoices/{id}/status. Marking an
// invoice paid stamps paid_date, defaulting to today; any other target
// status clears it.
func (s *Server) handleInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := invoicePathID(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req invoiceStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "unknown status"})
		return
	}

	paidDate := core.Date{}
	if req.Status == core.StatusPaid {
		paidDate = req.PaidDate
		if paidDate.IsZero() {
			paidDate = core.Today()
		}
	}

	if err := s.invoices.SetStatus(r.Context(), id, req.Status, paidDate); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, invoiceStatusResponse{
		ID:       id,
		Status:   req.Status,
		PaidDate: paidDate,
	})
}

// invoicePathID parses /api/invoices/{id}/status.
func invoicePathID(path string) (int64, bool) {
	rest := strings.TrimPrefix(path, "/api/invoices/")
	idPart, tail, found := strings.Cut(rest, "/")
	if !found || tail != "status" {
		return 0, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
