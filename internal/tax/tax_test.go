package tax

import (
	"errors"
	"math"
	"testing"

	"forfettario/internal/core"
)

func defaultRates() Rates {
	return RatesFrom(core.DefaultTaxSettings())
}

func TestComputeDefaultRatesScenario(t *testing.T) {
	// €1000 gross under 67 / 15 / 26.07. Every stage is rounded before
	// it feeds the next one, so 670 × 26.07% = 174.669 becomes 174.67
	// and the tax base is 670 − 174.67 = 495.33.
	b, err := Compute(core.Money{Cents: 100000}, defaultRates())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	checks := []struct {
		name string
		got  core.Money
		want int64
	}{
		{"taxable_income", b.TaxableIncome, 67000},
		{"health_insurance", b.HealthInsurance, 17467},
		{"income_for_tax", b.IncomeForTax, 49533},
		{"income_tax", b.IncomeTax, 7430},
		{"total_tax_burden", b.TotalTaxBurden, 24897},
	}
	for _, c := range checks {
		if c.got.Cents != c.want {
			t.Errorf("%s = %d cents, want %d", c.name, c.got.Cents, c.want)
		}
	}
}

func TestComputeZeroIncome(t *testing.T) {
	b, err := Compute(core.Money{}, defaultRates())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if b != (Breakdown{}) {
		t.Errorf("zero gross should yield zero breakdown, got %+v", b)
	}
}

func TestComputeDeterminism(t *testing.T) {
	gross := core.Money{Cents: 4217043}
	first, err := Compute(gross, defaultRates())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	second, err := Compute(gross, defaultRates())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if first != second {
		t.Errorf("identical inputs produced different breakdowns: %+v vs %+v", first, second)
	}
}

func TestComputeTotalBurdenIdentity(t *testing.T) {
	for _, cents := range []int64{1, 99, 1234, 99999, 8500000, 123456789} {
		b, err := Compute(core.Money{Cents: cents}, defaultRates())
		if err != nil {
			t.Fatalf("Compute(%d) returned error: %v", cents, err)
		}
		if b.TotalTaxBurden != b.IncomeTax.Add(b.HealthInsurance) {
			t.Errorf("gross %d: total burden %d != income tax %d + inps %d",
				cents, b.TotalTaxBurden.Cents, b.IncomeTax.Cents, b.HealthInsurance.Cents)
		}
	}
}

func TestComputeRejectsNegativeGross(t *testing.T) {
	_, err := Compute(core.Money{Cents: -1}, defaultRates())
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("negative gross: got %v, want ErrInvalidInput", err)
	}
}

func TestComputeRejectsMalformedRates(t *testing.T) {
	tests := []struct {
		name  string
		rates Rates
	}{
		{"nan taxable", Rates{TaxablePercentage: math.NaN(), IncomeTaxRate: 15, HealthInsuranceRate: 26.07}},
		{"inf income tax", Rates{TaxablePercentage: 67, IncomeTaxRate: math.Inf(1), HealthInsuranceRate: 26.07}},
		{"negative inps", Rates{TaxablePercentage: 67, IncomeTaxRate: 15, HealthInsuranceRate: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(core.Money{Cents: 100000}, tt.rates)
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestComputeReducedRateStartup(t *testing.T) {
	// New businesses pay 5% for the first five years.
	r := defaultRates()
	r.IncomeTaxRate = 5

	b, err := Compute(core.Money{Cents: 100000}, r)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	// 495.33 × 5% = 24.7665 -> 24.77
	if b.IncomeTax.Cents != 2477 {
		t.Errorf("income_tax = %d cents, want 2477", b.IncomeTax.Cents)
	}
}
