package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	StatusDraft   InvoiceStatus = "draft"
	StatusSent    InvoiceStatus = "sent"
	StatusPaid    InvoiceStatus = "paid"
	StatusOverdue InvoiceStatus = "overdue"
)

type (
	InvoiceStatus string

	Date struct {
		time.Time
	}

	// Money is an amount of euros held as integer cents. Producing a
	// derived value at cent granularity is the same thing as rounding
	// the euro value to 2 decimals.
	Money struct {
		Cents int64
	}

	Client struct {
		ID         int64
		Name       string
		HourlyRate Money
	}

	Invoice struct {
		ID          int64
		Number      string
		ClientID    int64
		ClientName  string
		Amount      Money // net of VAT
		VatRate     float64
		VatAmount   Money
		TotalAmount Money // Amount + VatAmount; the figure the annual ceiling is measured on
		Status      InvoiceStatus
		IssueDate   Date
		DueDate     Date
		PaidDate    Date // zero until Status becomes paid
	}

	Expense struct {
		ID          int64
		Description string
		Amount      Money // net amount
		IvaIncluded bool
		IvaRate     float64
		IvaAmount   Money
		CategoryID  int64
		ExpenseDate Date
	}

	WorkedHourEntry struct {
		ID           int64
		ClientID     int64
		WorkedDate   Date
		Hours        float64
		AmountCached Money
		Note         string
	}

	// TaxSettings are the regime forfettario parameters. The engine
	// treats a value as immutable input; mutation happens only through
	// the settings store.
	TaxSettings struct {
		TaxablePercentage   float64
		IncomeTaxRate       float64
		HealthInsuranceRate float64
		TargetSalary        Money
		Currency            string
		DefaultVatRate      float64
	}
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrClientNotFound      = errors.New("client not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrEntryNotFound       = errors.New("worked hours entry not found")
	ErrSettingsUnavailable = errors.New("settings unavailable")
	ErrDataAccess          = errors.New("data access failure")
)

// AnnualRevenueLimitCents is the regime forfettario ceiling (€85,000),
// measured on invoiced totals including any charged VAT.
const AnnualRevenueLimitCents int64 = 85000 * 100

// DefaultTaxSettings are the documented fallbacks used when the settings
// store is unreachable: 67% taxable coefficient, 15% flat tax, 26.07%
// INPS Gestione Separata, €3000 target salary.
func DefaultTaxSettings() TaxSettings {
	return TaxSettings{
		TaxablePercentage:   67,
		IncomeTaxRate:       15,
		HealthInsuranceRate: 26.07,
		TargetSalary:        Money{Cents: 3000_00},
		Currency:            "EUR",
		DefaultVatRate:      22,
	}
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current date at midnight UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidInput
	}
	return Date{Time: t}, nil
}

func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// In reports whether d falls inside [from, to] inclusive.
func (d Date) In(from, to Date) bool {
	return !d.Before(from.Time) && !d.After(to.Time)
}

// MonthRange returns the first and last day of a calendar month.
func MonthRange(year, month int) (Date, Date) {
	first := NewDate(year, month, 1)
	last := Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

// YearRange returns January 1st and December 31st of a calendar year.
func YearRange(year int) (Date, Date) {
	return NewDate(year, 1, 1), NewDate(year, 12, 31)
}

// MoneyFromFloat converts a euro amount to Money, rounding half away
// from zero to the nearest cent.
func MoneyFromFloat(euros float64) Money {
	return Money{Cents: int64(math.Round(euros * 100))}
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Float returns the amount in euros.
func (m Money) Float() float64 { return float64(m.Cents) / 100 }

// MulRate returns m × pct/100 rounded half away from zero to the cent.
// Every derived stage of the tax pipeline goes through this, so each
// intermediate figure is already rounded before feeding the next one.
func (m Money) MulRate(pct float64) Money {
	return Money{Cents: int64(math.Round(float64(m.Cents) * pct / 100))}
}

// MulHours prices a number of hours at hourly rate m.
func (m Money) MulHours(hours float64) Money {
	return Money{Cents: int64(math.Round(float64(m.Cents) * hours))}
}

func (m Money) IsNegative() bool { return m.Cents < 0 }

// ClampZero floors negative amounts at zero.
func (m Money) ClampZero() Money {
	if m.Cents < 0 {
		return Money{}
	}
	return m
}

// IvaAmount computes the VAT owed on a net expense amount. Expenses with
// IVA already included carry no separate VAT.
func IvaAmount(amount Money, ivaIncluded bool, ivaRate float64) Money {
	if ivaIncluded {
		return Money{}
	}
	return amount.MulRate(ivaRate)
}

// CashCost is the true cash outflow of an expense: net amount plus any
// reverse-charge VAT the freelancer must remit.
func (e Expense) CashCost() Money {
	return e.Amount.Add(e.IvaAmount)
}

// IsPaid reports whether the invoice counts toward cash-basis income.
func (i Invoice) IsPaid() bool {
	return i.Status == StatusPaid
}

// IsOverdueCandidate reports whether the overdue sweep may transition
// this invoice: unpaid, never collected, past its due date.
func (i Invoice) IsOverdueCandidate(today Date) bool {
	if i.Status != StatusDraft && i.Status != StatusSent {
		return false
	}
	if !i.PaidDate.IsZero() {
		return false
	}
	return !i.DueDate.IsZero() && i.DueDate.Before(today.Time)
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidInput
	}
	return nil
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("empty client name")
	}
	if c.HourlyRate.Cents < 0 {
		return ErrInvalidInput
	}
	return nil
}

func (e WorkedHourEntry) Validate() error {
	if e.ClientID <= 0 {
		return errors.New("missing client id")
	}
	if e.WorkedDate.IsZero() {
		return errors.New("worked date cannot be zero")
	}
	if e.Hours <= 0 || math.IsNaN(e.Hours) || math.IsInf(e.Hours, 0) {
		return ErrInvalidInput
	}
	if e.Hours > 24 {
		return errors.New("hours exceed one day")
	}
	return nil
}

func (s TaxSettings) Validate() error {
	for _, rate := range []float64{s.TaxablePercentage, s.IncomeTaxRate, s.HealthInsuranceRate, s.DefaultVatRate} {
		if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return ErrInvalidInput
		}
	}
	if s.TaxablePercentage > 100 {
		return errors.New("taxable percentage above 100")
	}
	return nil
}
