package http

import (
	"net/http"
	"strconv"
	"strings"

	"forfettario/internal/core"
	"forfettario/internal/services"
	"forfettario/internal/tax"
)

type taxBreakdownView struct {
	TaxableIncome   core.Money `json:"taxable_income"`
	HealthInsurance core.Money `json:"health_insurance"`
	IncomeForTax    core.Money `json:"income_for_tax"`
	IncomeTax       core.Money `json:"income_tax"`
	TotalTaxBurden  core.Money `json:"total_tax_burden"`
}

func breakdownView(b tax.Breakdown) taxBreakdownView {
	return taxBreakdownView{
		TaxableIncome:   b.TaxableIncome,
		HealthInsurance: b.HealthInsurance,
		IncomeForTax:    b.IncomeForTax,
		IncomeTax:       b.IncomeTax,
		TotalTaxBurden:  b.TotalTaxBurden,
	}
}

type summaryResponse struct {
	GrossIncome   core.Money       `json:"gross_income"`
	TotalExpenses core.Money       `json:"total_expenses"`
	Tax           taxBreakdownView `json:"tax"`
	NetIncome     core.Money       `json:"net_income"`
	OverdueSwept  int              `json:"overdue_swept"`
}

type monthlyEstimateResponse struct {
	Year          int              `json:"year"`
	Month         int              `json:"month"`
	InvoiceCount  int              `json:"invoice_count"`
	GrossIncome   core.Money       `json:"gross_income"`
	VatCollected  core.Money       `json:"vat_collected"`
	TotalExpenses core.Money       `json:"total_expenses"`
	Tax           taxBreakdownView `json:"tax"`
	NetIncome     core.Money       `json:"net_income"`
}

type monthlyOverviewResponse struct {
	monthlyEstimateResponse
	TargetSalary core.Money `json:"target_salary"`
	Savings      core.Money `json:"savings"`
}

type dataPointResponse struct {
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	Income    core.Money `json:"income"`
	Expenses  core.Money `json:"expenses"`
	TaxBurden core.Money `json:"tax_burden"`
	NetIncome core.Money `json:"net_income"`
}

type annualLimitResponse struct {
	Year           int        `json:"year"`
	Limit          core.Money `json:"limit"`
	TotalInvoiced  core.Money `json:"total_invoiced"`
	Remaining      core.Money `json:"remaining"`
	PercentageUsed float64    `json:"percentage_used"`
	Status         string     `json:"status"`
}

func estimateView(est services.MonthlyEstimate) monthlyEstimateResponse {
	return monthlyEstimateResponse{
		Year:          est.Year,
		Month:         est.Month,
		InvoiceCount:  est.InvoiceCount,
		GrossIncome:   est.GrossIncome,
		VatCollected:  est.VatCollected,
		TotalExpenses: est.TotalExpenses,
		Tax:           breakdownView(est.Tax),
		NetIncome:     est.NetIncome,
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	sum, err := s.dashboard.GetSummary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		GrossIncome:   sum.GrossIncome,
		TotalExpenses: sum.TotalExpenses,
		Tax:           breakdownView(sum.Tax),
		NetIncome:     sum.NetIncome,
		OverdueSwept:  sum.OverdueSwept,
	})
}

func (s *Server) handleMonthlyEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	est, err := s.dashboard.GetMonthlyEstimate(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, estimateView(est))
}

// handleMonthlyOverview serves an arbitrary month. The target salary
// comes from the target_salary query parameter in euros, falling back
// to the configured one.
func (s *Server) handleMonthlyOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	year, month := parseYearMonth(r)

	settings, err := s.settings.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	target := settings.TargetSalary
	if v := strings.TrimSpace(r.URL.Query().Get("target_salary")); v != "" {
		euros, err := strconv.ParseFloat(v, 64)
		if err != nil || euros < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid target_salary"})
			return
		}
		target = core.MoneyFromFloat(euros)
	}

	ov, err := s.dashboard.GetMonthlyOverview(r.Context(), year, month, target, tax.RatesFrom(settings))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, monthlyOverviewResponse{
		monthlyEstimateResponse: estimateView(ov.MonthlyEstimate),
		TargetSalary:            ov.TargetSalary,
		Savings:                 ov.Savings,
	})
}

func (s *Server) handleIncomeExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	months := parseIntParam(r, "months", s.seriesMonths)
	if months < 1 || months > 60 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "months must be between 1 and 60"})
		return
	}

	series, err := s.dashboard.GetIncomeExpenseSeries(r.Context(), months)
	if err != nil {
		writeError(w, r, err)
		return
	}

	points := make([]dataPointResponse, 0, len(series))
	for _, p := range series {
		points = append(points, dataPointResponse{
			Year:      p.Year,
			Month:     p.Month,
			Income:    p.Income,
			Expenses:  p.Expenses,
			TaxBurden: p.TaxBurden,
			NetIncome: p.NetIncome,
		})
	}

	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleAnnualLimit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	year := parseIntParam(r, "year", 0)

	st, err := s.dashboard.GetAnnualLimitStatus(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, annualLimitResponse{
		Year:           st.Year,
		Limit:          st.Limit,
		TotalInvoiced:  st.TotalInvoiced,
		Remaining:      st.Remaining,
		PercentageUsed: st.PercentageUsed,
		Status:         st.Status,
	})
}
