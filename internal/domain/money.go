package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// NormalizeCurrency validates and upper-cases an ISO 4217 currency code.
func NormalizeCurrency(code string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return "", fmt.Errorf("currency code is required")
	}
	unit, err := currency.ParseISO(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid currency code %q: %w", trimmed, err)
	}
	return unit.String(), nil
}

// MinorUnitScale reports how many decimal digits the currency's minor unit
// carries (2 for USD, 0 for JPY). Unknown codes default to 2.
func MinorUnitScale(code string) int {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 2
	}
	scale, _ := currency.Cash.Rounding(unit)
	return scale
}

// FormatAmount renders an amount of minor units as a decimal string in the
// currency's conventional scale, e.g. FormatAmount("USD", 12050) == "120.50".
func FormatAmount(code string, minor int64) string {
	scale := MinorUnitScale(code)
	if scale == 0 {
		return fmt.Sprintf("%d", minor)
	}
	div := int64(1)
	for i := 0; i < scale; i++ {
		div *= 10
	}
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%0*d", sign, minor/div, scale, minor%div)
}
