package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money marshals as a plain decimal number of euros with two digits,
// e.g. 1234.50. All wire values are decimal money, never cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Float(), 'f', 2, 64)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("money %q: %w", s, ErrInvalidInput)
	}
	*m = MoneyFromFloat(v)
	return nil
}

// Date marshals as an ISO YYYY-MM-DD string; the zero date marshals as
// null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, ErrInvalidInput)
	}
	*d = parsed
	return nil
}
