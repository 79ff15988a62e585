package invoice

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var reNonDigit = regexp.MustCompile(`[^0-9]`)

// ParseAmount normalizes a printed monetary value to a decimal. Invoices in
// the wild mix locale conventions: "$ 1.234,56", "1,234.56", "COP 85000".
// A comma is treated as the decimal separator; when multiple dots remain,
// all but the last are thousands separators.
func ParseAmount(raw string) decimal.Decimal {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero
	}
	value = strings.ReplaceAll(value, "$", "")
	value = strings.ReplaceAll(value, "COP", "")
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, ",", ".")
	if strings.Count(value, ".") > 1 {
		parts := strings.Split(value, ".")
		value = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}
	if d, err := decimal.NewFromString(value); err == nil {
		return d
	}
	// salvage: strip everything but digits and assume two implied decimals
	digits := reNonDigit.ReplaceAllString(value, "")
	if digits == "" {
		return decimal.Zero
	}
	if len(digits) <= 2 {
		d, _ := decimal.NewFromString(digits)
		return d.Div(decimal.NewFromInt(100))
	}
	d, _ := decimal.NewFromString(digits[:len(digits)-2] + "." + digits[len(digits)-2:])
	return d
}
