// Package storage implements the relational accessors the engine
// consumes, over SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"forfettario/internal/core"
	"forfettario/internal/services"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the single concrete store behind every accessor
// interface the services consume. Dates are stored as ISO YYYY-MM-DD
// text, money as integer cents.
type SQLiteRepository struct {
	db *sql.DB
}

// Compile-time checks that the repository satisfies the engine's ports.
var (
	_ services.InvoiceStore     = (*SQLiteRepository)(nil)
	_ services.ExpenseStore     = (*SQLiteRepository)(nil)
	_ services.ClientStore      = (*SQLiteRepository)(nil)
	_ services.WorkedHoursStore = (*SQLiteRepository)(nil)
	_ services.SettingsStore    = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// dataErr wraps driver failures so callers can match core.ErrDataAccess
// without knowing the driver.
func dataErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, core.ErrDataAccess, err)
}

// --- invoices ---

const invoiceColumns = `i.id, i.number, COALESCE(i.client_id, 0), COALESCE(c.name, ''),
	i.amount_cents, i.vat_rate, i.vat_amount_cents, i.total_amount_cents,
	i.status, i.issue_date, COALESCE(i.due_date, ''), COALESCE(i.paid_date, '')`

// QueryInvoices implements services.InvoiceStore.
func (r *SQLiteRepository) QueryInvoices(ctx context.Context, q services.InvoiceQuery) ([]core.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices i LEFT JOIN clients c ON c.id = i.client_id`
	var (
		conds []string
		args  []any
	)
	if q.Status != nil {
		conds = append(conds, "i.status = ?")
		args = append(args, string(*q.Status))
	}
	if q.IssueFrom != nil {
		conds = append(conds, "i.issue_date >= ?")
		args = append(args, q.IssueFrom.ISO())
	}
	if q.IssueTo != nil {
		conds = append(conds, "i.issue_date <= ?")
		args = append(args, q.IssueTo.ISO())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY i.issue_date, i.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dataErr("query invoices", err)
	}
	defer rows.Close()

	var invs []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, dataErr("scan invoice", err)
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterate invoices", err)
	}
	return invs, nil
}

// GetInvoice returns a single invoice by id.
func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+`
		FROM invoices i LEFT JOIN clients c ON c.id = i.client_id
		WHERE i.id = ?`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("invoice %d: %w", id, core.ErrInvoiceNotFound)
	}
	if err != nil {
		return core.Invoice{}, dataErr("get invoice", err)
	}
	return inv, nil
}

// SetStatus implements services.InvoiceStore. paid_date is written only
// on the transition to paid and cleared by any other transition.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id int64, status core.InvoiceStatus, paidDate core.Date) error {
	if !status.Valid() {
		return fmt.Errorf("status %q: %w", status, core.ErrInvalidInput)
	}

	var paid any
	if status == core.StatusPaid {
		if paidDate.IsZero() {
			return fmt.Errorf("paid transition without paid date: %w", core.ErrInvalidInput)
		}
		paid = paidDate.ISO()
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, paid_date = ? WHERE id = ?`,
		string(status), paid, id)
	if err != nil {
		return dataErr("set invoice status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invoice %d: %w", id, core.ErrInvoiceNotFound)
	}

	slog.InfoContext(ctx, "Invoice status updated",
		"id", id, "status", string(status), "paid_date", paidDate.ISO())
	return nil
}

// CreateInvoice persists a new invoice in draft status unless another
// status is set.
func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if inv.Status == "" {
		inv.Status = core.StatusDraft
	}
	if !inv.Status.Valid() {
		return core.Invoice{}, fmt.Errorf("status %q: %w", inv.Status, core.ErrInvalidInput)
	}

	var clientID any
	if inv.ClientID != 0 {
		clientID = inv.ClientID
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO invoices
		(number, client_id, amount_cents, vat_rate, vat_amount_cents, total_amount_cents, status, issue_date, due_date, paid_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number, clientID, inv.Amount.Cents, inv.VatRate, inv.VatAmount.Cents,
		inv.TotalAmount.Cents, string(inv.Status), inv.IssueDate.ISO(),
		nullDate(inv.DueDate), nullDate(inv.PaidDate))
	if err != nil {
		return core.Invoice{}, dataErr("create invoice", err)
	}
	inv.ID, err = res.LastInsertId()
	if err != nil {
		return core.Invoice{}, dataErr("invoice id", err)
	}
	return inv, nil
}

// --- expenses ---

// QueryExpenses implements services.ExpenseStore.
func (r *SQLiteRepository) QueryExpenses(ctx context.Context, q services.ExpenseQuery) ([]core.Expense, error) {
	query := `SELECT id, description, amount_cents, iva_included, iva_rate, iva_amount_cents,
		COALESCE(category_id, 0), expense_date FROM expenses`
	var (
		conds []string
		args  []any
	)
	if q.From != nil {
		conds = append(conds, "expense_date >= ?")
		args = append(args, q.From.ISO())
	}
	if q.To != nil {
		conds = append(conds, "expense_date <= ?")
		args = append(args, q.To.ISO())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY expense_date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dataErr("query expenses", err)
	}
	defer rows.Close()

	var exps []core.Expense
	for rows.Next() {
		var (
			e        core.Expense
			included int64
			date     string
		)
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount.Cents, &included,
			&e.IvaRate, &e.IvaAmount.Cents, &e.CategoryID, &date); err != nil {
			return nil, dataErr("scan expense", err)
		}
		e.IvaIncluded = included != 0
		if e.ExpenseDate, err = core.ParseDate(date); err != nil {
			return nil, dataErr("parse expense date", err)
		}
		exps = append(exps, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterate expenses", err)
	}
	return exps, nil
}

// CreateExpense persists a new expense, deriving iva_amount from the
// IVA fields.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.IvaAmount = core.IvaAmount(e.Amount, e.IvaIncluded, e.IvaRate)

	var categoryID any
	if e.CategoryID != 0 {
		categoryID = e.CategoryID
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO expenses
		(description, amount_cents, iva_included, iva_rate, iva_amount_cents, category_id, expense_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Description, e.Amount.Cents, boolInt(e.IvaIncluded), e.IvaRate,
		e.IvaAmount.Cents, categoryID, e.ExpenseDate.ISO())
	if err != nil {
		return core.Expense{}, dataErr("create expense", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Expense{}, dataErr("expense id", err)
	}
	return e, nil
}

// UpdateExpense rewrites an expense. iva_amount is recomputed whenever
// amount, iva_included or iva_rate change; running the computation
// unconditionally is the same thing and simpler.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.IvaAmount = core.IvaAmount(e.Amount, e.IvaIncluded, e.IvaRate)

	var categoryID any
	if e.CategoryID != 0 {
		categoryID = e.CategoryID
	}
	res, err := r.db.ExecContext(ctx, `UPDATE expenses SET
		description = ?, amount_cents = ?, iva_included = ?, iva_rate = ?,
		iva_amount_cents = ?, category_id = ?, expense_date = ?
		WHERE id = ?`,
		e.Description, e.Amount.Cents, boolInt(e.IvaIncluded), e.IvaRate,
		e.IvaAmount.Cents, categoryID, e.ExpenseDate.ISO(), e.ID)
	if err != nil {
		return core.Expense{}, dataErr("update expense", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, fmt.Errorf("expense %d not found: %w", e.ID, core.ErrDataAccess)
	}
	return e, nil
}

// --- clients ---

// GetByID implements services.ClientStore.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (core.Client, error) {
	var c core.Client
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, hourly_rate_cents FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.HourlyRate.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Client{}, fmt.Errorf("client %d: %w", id, core.ErrClientNotFound)
	}
	if err != nil {
		return core.Client{}, dataErr("get client", err)
	}
	return c, nil
}

// CreateClient persists a new client.
func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (name, hourly_rate_cents) VALUES (?, ?)`,
		c.Name, c.HourlyRate.Cents)
	if err != nil {
		return core.Client{}, dataErr("create client", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Client{}, dataErr("client id", err)
	}
	return c, nil
}

// --- worked hours ---

// QueryWorkedHours implements services.WorkedHoursStore.
func (r *SQLiteRepository) QueryWorkedHours(ctx context.Context, q services.WorkedHoursQuery) ([]core.WorkedHourEntry, error) {
	query := `SELECT id, client_id, worked_date, hours, amount_cached_cents, note FROM worked_hours`
	var (
		conds []string
		args  []any
	)
	if q.From != nil {
		conds = append(conds, "worked_date >= ?")
		args = append(args, q.From.ISO())
	}
	if q.To != nil {
		conds = append(conds, "worked_date <= ?")
		args = append(args, q.To.ISO())
	}
	if q.ClientID != nil {
		conds = append(conds, "client_id = ?")
		args = append(args, *q.ClientID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY worked_date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dataErr("query worked hours", err)
	}
	defer rows.Close()

	var entries []core.WorkedHourEntry
	for rows.Next() {
		var (
			e    core.WorkedHourEntry
			date string
		)
		if err := rows.Scan(&e.ID, &e.ClientID, &date, &e.Hours, &e.AmountCached.Cents, &e.Note); err != nil {
			return nil, dataErr("scan worked hours", err)
		}
		if e.WorkedDate, err = core.ParseDate(date); err != nil {
			return nil, dataErr("parse worked date", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterate worked hours", err)
	}
	return entries, nil
}

// GetWorkedHours implements services.WorkedHoursStore.
func (r *SQLiteRepository) GetWorkedHours(ctx context.Context, id int64) (core.WorkedHourEntry, error) {
	var (
		e    core.WorkedHourEntry
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, client_id, worked_date, hours, amount_cached_cents, note
		FROM worked_hours WHERE id = ?`, id).
		Scan(&e.ID, &e.ClientID, &date, &e.Hours, &e.AmountCached.Cents, &e.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WorkedHourEntry{}, fmt.Errorf("entry %d: %w", id, core.ErrEntryNotFound)
	}
	if err != nil {
		return core.WorkedHourEntry{}, dataErr("get worked hours", err)
	}
	if e.WorkedDate, err = core.ParseDate(date); err != nil {
		return core.WorkedHourEntry{}, dataErr("parse worked date", err)
	}
	return e, nil
}

// InsertWorkedHours implements services.WorkedHoursStore.
func (r *SQLiteRepository) InsertWorkedHours(ctx context.Context, e core.WorkedHourEntry) (core.WorkedHourEntry, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO worked_hours
		(client_id, worked_date, hours, amount_cached_cents, note)
		VALUES (?, ?, ?, ?, ?)`,
		e.ClientID, e.WorkedDate.ISO(), e.Hours, e.AmountCached.Cents, e.Note)
	if err != nil {
		return core.WorkedHourEntry{}, dataErr("insert worked hours", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.WorkedHourEntry{}, dataErr("worked hours id", err)
	}
	return e, nil
}

// UpdateWorkedHours implements services.WorkedHoursStore.
func (r *SQLiteRepository) UpdateWorkedHours(ctx context.Context, e core.WorkedHourEntry) error {
	res, err := r.db.ExecContext(ctx, `UPDATE worked_hours SET
		client_id = ?, worked_date = ?, hours = ?, amount_cached_cents = ?, note = ?
		WHERE id = ?`,
		e.ClientID, e.WorkedDate.ISO(), e.Hours, e.AmountCached.Cents, e.Note, e.ID)
	if err != nil {
		return dataErr("update worked hours", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %d: %w", e.ID, core.ErrEntryNotFound)
	}
	return nil
}

// DeleteWorkedHours implements services.WorkedHoursStore. Hard delete,
// no tombstone.
func (r *SQLiteRepository) DeleteWorkedHours(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM worked_hours WHERE id = ?`, id)
	if err != nil {
		return dataErr("delete worked hours", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %d: %w", id, core.ErrEntryNotFound)
	}
	return nil
}

// --- settings ---

// Get implements services.SettingsStore.
func (r *SQLiteRepository) Get(ctx context.Context) (core.TaxSettings, error) {
	var s core.TaxSettings
	err := r.db.QueryRowContext(ctx, `SELECT taxable_percentage, income_tax_rate,
		health_insurance_rate, target_salary_cents, currency, default_vat_rate
		FROM settings WHERE id = 1`).
		Scan(&s.TaxablePercentage, &s.IncomeTaxRate, &s.HealthInsuranceRate,
			&s.TargetSalary.Cents, &s.Currency, &s.DefaultVatRate)
	if err != nil {
		return core.TaxSettings{}, fmt.Errorf("read settings: %w: %v", core.ErrSettingsUnavailable, err)
	}
	return s, nil
}

// UpdateSettings overwrites the single settings row.
func (r *SQLiteRepository) UpdateSettings(ctx context.Context, s core.TaxSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE settings SET
		taxable_percentage = ?, income_tax_rate = ?, health_insurance_rate = ?,
		target_salary_cents = ?, currency = ?, default_vat_rate = ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = 1`,
		s.TaxablePercentage, s.IncomeTaxRate, s.HealthInsuranceRate,
		s.TargetSalary.Cents, s.Currency, s.DefaultVatRate)
	if err != nil {
		return dataErr("update settings", err)
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (core.Invoice, error) {
	var (
		inv              core.Invoice
		status           string
		issue, due, paid string
	)
	if err := row.Scan(&inv.ID, &inv.Number, &inv.ClientID, &inv.ClientName,
		&inv.Amount.Cents, &inv.VatRate, &inv.VatAmount.Cents, &inv.TotalAmount.Cents,
		&status, &issue, &due, &paid); err != nil {
		return core.Invoice{}, err
	}
	inv.Status = core.InvoiceStatus(status)

	var err error
	if inv.IssueDate, err = core.ParseDate(issue); err != nil {
		return core.Invoice{}, fmt.Errorf("issue date %q: %w", issue, err)
	}
	if due != "" {
		if inv.DueDate, err = core.ParseDate(due); err != nil {
			return core.Invoice{}, fmt.Errorf("due date %q: %w", due, err)
		}
	}
	if paid != "" {
		if inv.PaidDate, err = core.ParseDate(paid); err != nil {
			return core.Invoice{}, fmt.Errorf("paid date %q: %w", paid, err)
		}
	}
	return inv, nil
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.ISO()
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
