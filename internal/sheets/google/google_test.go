package google

import (
	"context"
	"strings"
	"testing"

	"forfettario/internal/core"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base     string
		year     int
		expected string
	}{
		{"Scadute", 2026, "2026 Scadute"},
		{"2025 Scadute", 2026, "2025 Scadute"},
		{"  Scadute  ", 2026, "2026 Scadute"},
		{"", 2026, ""},
		{"Registro fatture", 2024, "2024 Registro fatture"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.expected)
		}
	}
}

func TestRegisterSheetNameUsesDueYear(t *testing.T) {
	c := &Client{registerBase: "Scadute"}

	if got := c.registerSheetName(2025); got != "2025 Scadute" {
		t.Errorf("registerSheetName(2025) = %q", got)
	}
	if got := c.registerSheetName(0); !strings.HasSuffix(got, " Scadute") {
		t.Errorf("registerSheetName(0) = %q, want current-year prefix", got)
	}
}

func TestAppendOverdueWithoutService(t *testing.T) {
	c := &Client{registerBase: "Scadute"}
	inv := core.Invoice{ID: 1, Number: "2026-0001", DueDate: core.NewDate(2026, 7, 31)}

	if _, err := c.AppendOverdue(context.Background(), inv); err == nil {
		t.Error("expected an error with no initialized service")
	}
}

func TestAppendOverdueRejectsMissingDueDate(t *testing.T) {
	c := &Client{svc: nil, registerBase: "Scadute"}
	inv := core.Invoice{ID: 1, Number: "2026-0001"}

	_, err := c.AppendOverdue(context.Background(), inv)
	if err == nil {
		t.Fatal("expected an error")
	}
}
