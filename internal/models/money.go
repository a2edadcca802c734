package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a currency amount in integer minor units. All money in the system
// is accumulated as cents so repeated aggregation never drifts the way
// floating-point summation does.
type Cents int64

// ParseCents converts a decimal currency string ("12.34", "12", "-0.5") into
// cents. Empty input parses as zero.
func ParseCents(raw string) (Cents, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole = s[:i]
		frac = s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}

	// Normalize the fractional part to exactly two digits.
	switch {
	case len(frac) == 0:
		frac = "00"
	case len(frac) == 1:
		frac += "0"
	case len(frac) > 2:
		frac = frac[:2]
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}

	total := w*100 + f
	if negative {
		total = -total
	}
	return Cents(total), nil
}

// String formats the amount as a plain decimal with two fraction digits,
// matching what the dashboard displays.
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Float64 returns the amount in major units. Display use only.
func (c Cents) Float64() float64 {
	return float64(c) / 100
}
