// Package tax computes the regime forfettario tax breakdown.
//
// The pipeline rounds at every derived stage: taxable income is rounded
// to the cent before the INPS contribution is computed from it, and the
// contribution is rounded before it is deducted from the tax base. This
// matches how the figures appear on the freelancer's F24 forms, so the
// staged rounding must not be collapsed into a single final rounding.
package tax

import (
	"fmt"
	"math"

	"forfettario/internal/core"
)

// Rates are the three parameters the breakdown depends on.
type Rates struct {
	TaxablePercentage   float64
	IncomeTaxRate       float64
	HealthInsuranceRate float64
}

// RatesFrom extracts the breakdown parameters from full settings.
func RatesFrom(s core.TaxSettings) Rates {
	return Rates{
		TaxablePercentage:   s.TaxablePercentage,
		IncomeTaxRate:       s.IncomeTaxRate,
		HealthInsuranceRate: s.HealthInsuranceRate,
	}
}

// Breakdown is the derived tax position for a gross income. It is
// recomputed on every request and never persisted.
type Breakdown struct {
	TaxableIncome   core.Money
	HealthInsurance core.Money
	IncomeForTax    core.Money
	IncomeTax       core.Money
	TotalTaxBurden  core.Money
}

// Compute derives the full breakdown from gross income:
//
//	taxable_income   = gross × taxable_percentage
//	health_insurance = taxable_income × health_insurance_rate (INPS, deductible)
//	income_for_tax   = taxable_income − health_insurance
//	income_tax       = income_for_tax × income_tax_rate
//	total_tax_burden = income_tax + health_insurance
//
// Negative gross income is rejected rather than clamped: a negative
// cash-basis income can only come from a caller bug upstream.
func Compute(gross core.Money, r Rates) (Breakdown, error) {
	if gross.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: negative gross income", core.ErrInvalidInput)
	}
	if err := validRates(r); err != nil {
		return Breakdown{}, err
	}

	taxable := gross.MulRate(r.TaxablePercentage)
	inps := taxable.MulRate(r.HealthInsuranceRate)
	forTax := taxable.Sub(inps)
	incomeTax := forTax.MulRate(r.IncomeTaxRate)

	return Breakdown{
		TaxableIncome:   taxable,
		HealthInsurance: inps,
		IncomeForTax:    forTax,
		IncomeTax:       incomeTax,
		TotalTaxBurden:  incomeTax.Add(inps),
	}, nil
}

func validRates(r Rates) error {
	for _, rate := range []float64{r.TaxablePercentage, r.IncomeTaxRate, r.HealthInsuranceRate} {
		if math.IsNaN(rate) || math.IsInf(rate, 0) {
			return fmt.Errorf("%w: malformed rate", core.ErrInvalidInput)
		}
		if rate < 0 {
			return fmt.Errorf("%w: negative rate", core.ErrInvalidInput)
		}
	}
	return nil
}
