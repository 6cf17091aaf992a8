package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"forfettario/internal/core"
)

// LogHoursRequest is the input for logging billable time.
type LogHoursRequest struct {
	ClientID   int64
	WorkedDate core.Date
	Hours      float64
	Note       string
}

// UpdateHoursRequest edits an existing entry. Every edit re-prices the
// entry against the current hourly rate of the (possibly new) client,
// unlike unedited entries whose cached amount stays frozen at creation.
type UpdateHoursRequest struct {
	ClientID   int64
	WorkedDate core.Date
	Hours      float64
	Note       string
}

// ClientHours is one client's share of a monthly summary.
type ClientHours struct {
	ClientID   int64
	ClientName string
	Hours      float64
	Amount     core.Money
}

// MonthlyHoursSummary groups one month's entries by client.
type MonthlyHoursSummary struct {
	Year        int
	Month       int
	Clients     []ClientHours
	TotalHours  float64
	TotalAmount core.Money
}

// DayGroup merges the entries of one worked date. Records keeps the
// underlying entries so per-record edit and delete stay possible from
// the grouped view.
type DayGroup struct {
	Date    core.Date
	Hours   float64
	Amount  core.Money
	Notes   string
	Records []core.WorkedHourEntry
}

// MonthlyClientReport is the per-client detail view of one month.
type MonthlyClientReport struct {
	Year        int
	Month       int
	Client      core.Client
	Entries     []core.WorkedHourEntry
	Days        []DayGroup
	TotalHours  float64
	TotalAmount core.Money
}

// WorkedHoursService logs, edits and reports billable time.
type WorkedHoursService struct {
	clients ClientStore
	hours   WorkedHoursStore
}

func NewWorkedHoursService(clients ClientStore, hours WorkedHoursStore) *WorkedHoursService {
	return &WorkedHoursService{clients: clients, hours: hours}
}

// Log prices the hours at the client's current rate and persists the
// entry. The cached amount is frozen: later rate changes do not touch
// entries already logged.
func (s *WorkedHoursService) Log(ctx context.Context, req LogHoursRequest) (core.WorkedHourEntry, error) {
	entry := core.WorkedHourEntry{
		ClientID:   req.ClientID,
		WorkedDate: req.WorkedDate,
		Hours:      req.Hours,
		Note:       strings.TrimSpace(req.Note),
	}
	if err := entry.Validate(); err != nil {
		return core.WorkedHourEntry{}, fmt.Errorf("validate entry: %w", err)
	}

	client, err := s.clients.GetByID(ctx, req.ClientID)
	if err != nil {
		return core.WorkedHourEntry{}, fmt.Errorf("resolve client %d: %w", req.ClientID, err)
	}

	entry.AmountCached = client.HourlyRate.MulHours(req.Hours)

	saved, err := s.hours.InsertWorkedHours(ctx, entry)
	if err != nil {
		return core.WorkedHourEntry{}, fmt.Errorf("insert entry: %w", err)
	}

	slog.InfoContext(ctx, "Worked hours logged",
		"id", saved.ID,
		"client_id", saved.ClientID,
		"date", saved.WorkedDate.ISO(),
		"hours", saved.Hours,
		"amount_cents", saved.AmountCached.Cents)

	return saved, nil
}

// Update edits an entry and always re-prices it against the current
// rate, even when the hours did not change.
func (s *WorkedHoursService) Update(ctx context.Context, id int64, req UpdateHoursRequest) (core.WorkedHourEntry, error) {
	entry, err := s.hours.GetWorkedHours(ctx, id)
	if err != nil {
		return core.WorkedHourEntry{}, fmt.Errorf("load entry %d: %w", id, err)
	}

	entry.ClientID = req.ClientID
	entry.WorkedDate = req.WorkedDate
	entry.Hours = req.Hours
	entry.Note = strings.TrimSpace(req.Note)
	if err := entry.Validate(); err != nil {
		return core.WorkedHourEntry{}, fmt.Errorf("validate entry: %w", err)
	}

	client, err := s.clients.GetByID(ctx, req.ClientID)
	if err != nil {
		return core.WorkedHourEntry{}, fmt.Errorf("resolve client %d: %w", req.ClientID, err)
	}
	entry.AmountCached = client.HourlyRate.MulHours(req.Hours)

	if err := s.hours.UpdateWorkedHours(ctx, entry); err != nil {
		return core.WorkedHourEntry{}, fmt.Errorf("update entry %d: %w", id, err)
	}

	return entry, nil
}

// Delete removes an entry permanently.
func (s *WorkedHoursService) Delete(ctx context.Context, id int64) error {
	if err := s.hours.DeleteWorkedHours(ctx, id); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}

// MonthlySummary groups one month's entries by client, ordered by
// client name ascending.
func (s *WorkedHoursService) MonthlySummary(ctx context.Context, year, month int) (MonthlyHoursSummary, error) {
	first, last := core.MonthRange(year, month)
	entries, err := s.hours.QueryWorkedHours(ctx, WorkedHoursQuery{From: datePtr(first), To: datePtr(last)})
	if err != nil {
		return MonthlyHoursSummary{}, fmt.Errorf("query worked hours for %d-%02d: %w", year, month, err)
	}

	summary := MonthlyHoursSummary{Year: year, Month: month}
	perClient := make(map[int64]*ClientHours)
	for _, e := range entries {
		ch, ok := perClient[e.ClientID]
		if !ok {
			client, err := s.clients.GetByID(ctx, e.ClientID)
			if err != nil {
				return MonthlyHoursSummary{}, fmt.Errorf("resolve client %d: %w", e.ClientID, err)
			}
			ch = &ClientHours{ClientID: e.ClientID, ClientName: client.Name}
			perClient[e.ClientID] = ch
		}
		ch.Hours += e.Hours
		ch.Amount = ch.Amount.Add(e.AmountCached)
		summary.TotalHours += e.Hours
		summary.TotalAmount = summary.TotalAmount.Add(e.AmountCached)
	}

	summary.Clients = make([]ClientHours, 0, len(perClient))
	for _, ch := range perClient {
		summary.Clients = append(summary.Clients, *ch)
	}
	sort.Slice(summary.Clients, func(i, j int) bool {
		return summary.Clients[i].ClientName < summary.Clients[j].ClientName
	})

	return summary, nil
}

// MonthlyClientReport returns one client's entries for a month, ordered
// by date then creation order, with totals and a day-grouped view.
func (s *WorkedHoursService) MonthlyClientReport(ctx context.Context, year, month int, clientID int64) (MonthlyClientReport, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return MonthlyClientReport{}, fmt.Errorf("resolve client %d: %w", clientID, err)
	}

	first, last := core.MonthRange(year, month)
	entries, err := s.hours.QueryWorkedHours(ctx, WorkedHoursQuery{
		From:     datePtr(first),
		To:       datePtr(last),
		ClientID: &clientID,
	})
	if err != nil {
		return MonthlyClientReport{}, fmt.Errorf("query worked hours for client %d: %w", clientID, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].WorkedDate.Equal(entries[j].WorkedDate.Time) {
			return entries[i].WorkedDate.Before(entries[j].WorkedDate.Time)
		}
		return entries[i].ID < entries[j].ID
	})

	report := MonthlyClientReport{
		Year:    year,
		Month:   month,
		Client:  client,
		Entries: entries,
	}

	for _, e := range entries {
		report.TotalHours += e.Hours
		report.TotalAmount = report.TotalAmount.Add(e.AmountCached)

		if n := len(report.Days); n > 0 && report.Days[n-1].Date.Equal(e.WorkedDate.Time) {
			g := &report.Days[n-1]
			g.Hours += e.Hours
			g.Amount = g.Amount.Add(e.AmountCached)
			g.Records = append(g.Records, e)
			if note := strings.TrimSpace(e.Note); note != "" {
				if g.Notes != "" {
					g.Notes += "; "
				}
				g.Notes += note
			}
			continue
		}

		report.Days = append(report.Days, DayGroup{
			Date:    e.WorkedDate,
			Hours:   e.Hours,
			Amount:  e.AmountCached,
			Notes:   strings.TrimSpace(e.Note),
			Records: []core.WorkedHourEntry{e},
		})
	}

	return report, nil
}
