package classify

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Extracted fields that carry monetary values.
var amountFields = []string{"amount", "total"}

var numericToken = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// NormalizeAmount parses a captured monetary string such as "$1,234.56" or
// "450.00 USD" into an exact decimal. The second return is false when the
// value contains no numeric token.
func NormalizeAmount(value string) (decimal.Decimal, bool) {
	token := numericToken.FindString(value)
	if token == "" {
		return decimal.Decimal{}, false
	}
	token = strings.ReplaceAll(token, ",", "")
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Amounts returns the monetary fields of info whose extracted values parse
// as decimals. Fields that do not parse are left out.
func Amounts(info DocumentInfo) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, field := range amountFields {
		raw, ok := info.ExtractedData[field]
		if !ok {
			continue
		}
		if d, ok := NormalizeAmount(raw); ok {
			out[field] = d
		}
	}
	return out
}
