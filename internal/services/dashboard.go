package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"forfettario/internal/core"
	"forfettario/internal/tax"
)

const (
	LimitStatusSafe      = "safe"
	LimitStatusAttention = "attention"
	LimitStatusCritical  = "critical"
)

// Summary is the lifetime cash-basis position.
type Summary struct {
	GrossIncome   core.Money
	TotalExpenses core.Money
	Tax           tax.Breakdown
	NetIncome     core.Money
	OverdueSwept  int // invoices transitioned by the sweep on this request
}

// MonthlyEstimate is one month's position under the hybrid policy.
type MonthlyEstimate struct {
	Year          int
	Month         int
	InvoiceCount  int
	GrossIncome   core.Money
	VatCollected  core.Money
	TotalExpenses core.Money
	Tax           tax.Breakdown
	NetIncome     core.Money
}

// MonthlyOverview extends the estimate with the savings figure against
// a target salary.
type MonthlyOverview struct {
	MonthlyEstimate
	TargetSalary core.Money
	Savings      core.Money
}

// MonthlyDataPoint is one month of the income/expense time series.
type MonthlyDataPoint struct {
	Year      int
	Month     int
	Income    core.Money
	Expenses  core.Money
	TaxBurden core.Money
	NetIncome core.Money
}

// AnnualLimitStatus reports progress against the regime ceiling.
type AnnualLimitStatus struct {
	Year           int
	Limit          core.Money
	TotalInvoiced  core.Money
	Remaining      core.Money
	PercentageUsed float64 // deliberately uncapped: >100 means the ceiling is blown
	Status         string
}

// DashboardService composes the aggregator, the tax engine and the
// overdue sweep into the externally consumed read views. All views are
// side-effect free except Summary, which runs the sweep first.
type DashboardService struct {
	ledger  *LedgerAggregator
	sweeper *OverdueSweeper
	now     func() time.Time
}

func NewDashboardService(ledger *LedgerAggregator, sweeper *OverdueSweeper) *DashboardService {
	return &DashboardService{
		ledger:  ledger,
		sweeper: sweeper,
		now:     time.Now,
	}
}

// GetSummary sweeps overdue invoices, then aggregates all-time paid
// income and lifetime expenses into the net position.
func (d *DashboardService) GetSummary(ctx context.Context) (Summary, error) {
	swept, err := d.sweeper.Sweep(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("overdue sweep: %w", err)
	}

	totals, err := d.ledger.AllTimeTotals(ctx)
	if err != nil {
		return Summary{}, err
	}

	settings, err := d.ledger.Settings(ctx)
	if err != nil {
		return Summary{}, err
	}

	breakdown, err := tax.Compute(totals.Income, tax.RatesFrom(settings))
	if err != nil {
		return Summary{}, fmt.Errorf("tax breakdown: %w", err)
	}

	return Summary{
		GrossIncome:   totals.Income,
		TotalExpenses: totals.Expenses,
		Tax:           breakdown,
		NetIncome:     totals.Income.Sub(totals.Expenses).Sub(breakdown.TotalTaxBurden),
		OverdueSwept:  len(swept),
	}, nil
}

// GetMonthlyEstimate aggregates the current calendar month.
func (d *DashboardService) GetMonthlyEstimate(ctx context.Context) (MonthlyEstimate, error) {
	now := d.now()
	settings, err := d.ledger.Settings(ctx)
	if err != nil {
		return MonthlyEstimate{}, err
	}
	return d.monthlyEstimate(ctx, now.Year(), int(now.Month()), tax.RatesFrom(settings))
}

// GetMonthlyOverview aggregates an arbitrary month with caller-supplied
// rates and target salary. Savings floor at zero: a month below target
// never shows negative savings.
func (d *DashboardService) GetMonthlyOverview(ctx context.Context, year, month int, targetSalary core.Money, rates tax.Rates) (MonthlyOverview, error) {
	est, err := d.monthlyEstimate(ctx, year, month, rates)
	if err != nil {
		return MonthlyOverview{}, err
	}

	return MonthlyOverview{
		MonthlyEstimate: est,
		TargetSalary:    targetSalary,
		Savings:         est.NetIncome.Sub(targetSalary).ClampZero(),
	}, nil
}

// GetIncomeExpenseSeries returns the last months (including the current
// one) ordered oldest to newest, each with its own tax breakdown.
func (d *DashboardService) GetIncomeExpenseSeries(ctx context.Context, months int) ([]MonthlyDataPoint, error) {
	settings, err := d.ledger.Settings(ctx)
	if err != nil {
		return nil, err
	}
	rates := tax.RatesFrom(settings)

	series, err := d.ledger.MonthlySeries(ctx, months, d.now())
	if err != nil {
		return nil, err
	}

	points := make([]MonthlyDataPoint, 0, len(series))
	for _, totals := range series {
		breakdown, err := tax.Compute(totals.Income, rates)
		if err != nil {
			return nil, fmt.Errorf("tax breakdown for %d-%02d: %w", totals.Year, totals.Month, err)
		}
		points = append(points, MonthlyDataPoint{
			Year:      totals.Year,
			Month:     totals.Month,
			Income:    totals.Income,
			Expenses:  totals.Expenses,
			TaxBurden: breakdown.TotalTaxBurden,
			NetIncome: totals.Income.Sub(totals.Expenses).Sub(breakdown.TotalTaxBurden),
		})
	}
	return points, nil
}

// GetAnnualLimitStatus reports the year's invoiced total against the
// €85,000 ceiling. The regime measures the ceiling on amounts actually
// invoiced and collected including any charged VAT, so the figure is
// total_amount of paid invoices, not the net amount used elsewhere.
func (d *DashboardService) GetAnnualLimitStatus(ctx context.Context, year int) (AnnualLimitStatus, error) {
	if year == 0 {
		year = d.now().Year()
	}

	invoiced, err := d.ledger.AnnualInvoicedTotal(ctx, year)
	if err != nil {
		return AnnualLimitStatus{}, err
	}

	limit := core.Money{Cents: core.AnnualRevenueLimitCents}
	pct := float64(invoiced.Cents) / float64(limit.Cents) * 100
	pct = math.Round(pct*100) / 100

	status := LimitStatusSafe
	switch {
	case pct >= 90:
		status = LimitStatusCritical
	case pct >= 70:
		status = LimitStatusAttention
	}

	if status != LimitStatusSafe {
		slog.InfoContext(ctx, "Annual revenue limit warning",
			"year", year,
			"invoiced_cents", invoiced.Cents,
			"percentage_used", pct,
			"status", status)
	}

	return AnnualLimitStatus{
		Year:           year,
		Limit:          limit,
		TotalInvoiced:  invoiced,
		Remaining:      limit.Sub(invoiced).ClampZero(),
		PercentageUsed: pct,
		Status:         status,
	}, nil
}

func (d *DashboardService) monthlyEstimate(ctx context.Context, year, month int, rates tax.Rates) (MonthlyEstimate, error) {
	totals, err := d.ledger.MonthTotals(ctx, year, month)
	if err != nil {
		return MonthlyEstimate{}, err
	}

	breakdown, err := tax.Compute(totals.Income, rates)
	if err != nil {
		return MonthlyEstimate{}, fmt.Errorf("tax breakdown: %w", err)
	}

	return MonthlyEstimate{
		Year:          year,
		Month:         month,
		InvoiceCount:  totals.InvoiceCount,
		GrossIncome:   totals.Income,
		VatCollected:  totals.Vat,
		TotalExpenses: totals.Expenses,
		Tax:           breakdown,
		NetIncome:     totals.Income.Sub(totals.Expenses).Sub(breakdown.TotalTaxBurden),
	}, nil
}
