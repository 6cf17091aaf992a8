package http

import (
	"net/http"

	"forfettario/internal/core"
	"forfettario/internal/services"
)

type workedHoursRequest struct {
	ClientID   int64     `json:"client_id"`
	WorkedDate core.Date `json:"worked_date"`
	Hours      float64   `json:"hours"`
	Note       string    `json:"note"`
}

type workedHoursEntryResponse struct {
	ID         int64      `json:"id"`
	ClientID   int64      `json:"client_id"`
	WorkedDate core.Date  `json:"worked_date"`
	Hours      float64    `json:"hours"`
	Amount     core.Money `json:"amount"`
	Note       string     `json:"note,omitempty"`
}

type clientHoursResponse struct {
	ClientID   int64      `json:"client_id"`
	ClientName string     `json:"client_name"`
	Hours      float64    `json:"hours"`
	Amount     core.Money `json:"amount"`
}

type hoursSummaryResponse struct {
	Year        int                   `json:"year"`
	Month       int                   `json:"month"`
	Clients     []clientHoursResponse `json:"clients"`
	TotalHours  float64               `json:"total_hours"`
	TotalAmount core.Money            `json:"total_amount"`
}

type dayGroupResponse struct {
	Date    core.Date                  `json:"date"`
	Hours   float64                    `json:"hours"`
	Amount  core.Money                 `json:"amount"`
	Notes   string                     `json:"notes,omitempty"`
	Records []workedHoursEntryResponse `json:"records"`
}

type clientReportResponse struct {
	Year        int                `json:"year"`
	Month       int                `json:"month"`
	ClientID    int64              `json:"client_id"`
	ClientName  string             `json:"client_name"`
	Days        []dayGroupResponse `json:"days"`
	TotalHours  float64            `json:"total_hours"`
	TotalAmount core.Money         `json:"total_amount"`
}

func entryView(e core.WorkedHourEntry) workedHoursEntryResponse {
	return workedHoursEntryResponse{
		ID:         e.ID,
		ClientID:   e.ClientID,
		WorkedDate: e.WorkedDate,
		Hours:      e.Hours,
		Amount:     e.AmountCached,
		Note:       e.Note,
	}
}

// handleWorkedHoursCollection serves POST /api/worked-hours.
func (s *Server) handleWorkedHoursCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req workedHoursRequest
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := s.hours.Log(r.Context(), services.LogHoursRequest{
		ClientID:   req.ClientID,
		WorkedDate: req.WorkedDate,
		Hours:      req.Hours,
		Note:       req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entryView(entry))
}

// handleWorkedHoursItem serves PUT and DELETE on /api/worked-hours/{id}.
func (s *Server) handleWorkedHoursItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "/api/worked-hours/")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req workedHoursRequest
		if !decodeBody(w, r, &req) {
			return
		}
		entry, err := s.hours.Update(r.Context(), id, services.UpdateHoursRequest{
			ClientID:   req.ClientID,
			WorkedDate: req.WorkedDate,
			Hours:      req.Hours,
			Note:       req.Note,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entryView(entry))

	case http.MethodDelete:
		if err := s.hours.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}

func (s *Server) handleWorkedHoursSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	year, month := parseYearMonth(r)
	summary, err := s.hours.MonthlySummary(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := hoursSummaryResponse{
		Year:        summary.Year,
		Month:       summary.Month,
		Clients:     make([]clientHoursResponse, 0, len(summary.Clients)),
		TotalHours:  summary.TotalHours,
		TotalAmount: summary.TotalAmount,
	}
	for _, ch := range summary.Clients {
		resp.Clients = append(resp.Clients, clientHoursResponse{
			ClientID:   ch.ClientID,
			ClientName: ch.ClientName,
			Hours:      ch.Hours,
			Amount:     ch.Amount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWorkedHoursReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	clientID := int64(parseIntParam(r, "client_id", 0))
	if clientID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "client_id is required"})
		return
	}

	year, month := parseYearMonth(r)
	report, err := s.hours.MonthlyClientReport(r.Context(), year, month, clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := clientReportResponse{
		Year:        report.Year,
		Month:       report.Month,
		ClientID:    report.Client.ID,
		ClientName:  report.Client.Name,
		Days:        make([]dayGroupResponse, 0, len(report.Days)),
		TotalHours:  report.TotalHours,
		TotalAmount: report.TotalAmount,
	}
	for _, day := range report.Days {
		records := make([]workedHoursEntryResponse, 0, len(day.Records))
		for _, rec := range day.Records {
			records = append(records, entryView(rec))
		}
		resp.Days = append(resp.Days, dayGroupResponse{
			Date:    day.Date,
			Hours:   day.Hours,
			Amount:  day.Amount,
			Notes:   day.Notes,
			Records: records,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
