// internal/currency/currency.go
package currency

import (
	"sort"

	"github.com/shopspring/decimal"

	"storefront-wallet/internal/domain"
)

// USD is the pivot currency for derived and cross rates.
const USD = "USD"

// fallbackUSD is the static last-resort rate table, quoted relative to USD.
// It also enumerates the fixed supported-currency set: every resolver result
// is filtered to these codes.
var fallbackUSD = domain.RateTable{
	"USD": decimal.RequireFromString("1.0"),
	"EUR": decimal.RequireFromString("0.92"),
	"GBP": decimal.RequireFromString("0.78"),
	"UAH": decimal.RequireFromString("41.0"),
	"RUB": decimal.RequireFromString("92.0"),
	"JPY": decimal.RequireFromString("150.0"),
	"CAD": decimal.RequireFromString("1.37"),
	"AUD": decimal.RequireFromString("1.55"),
	"CNY": decimal.RequireFromString("7.30"),
	"PLN": decimal.RequireFromString("3.98"),
}

// IsSupported reports whether code belongs to the supported currency set.
func IsSupported(code string) bool {
	_, ok := fallbackUSD[code]
	return ok
}

// Supported returns the supported currency codes in sorted order.
func Supported() []string {
	codes := make([]string, 0, len(fallbackUSD))
	for code := range fallbackUSD {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Quantize rounds a monetary amount to exactly 2 fractional digits, half
// away from zero (0.005 -> 0.01). Every externally visible amount passes
// through here.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// staticRates derives a rate table for base from the static USD table.
// For a non-USD base the table is pivoted: derived[c] = fallback[c] / fallback[base].
// An unknown base degrades to the USD table rather than failing.
func staticRates(base string) domain.RateTable {
	rateBase, ok := fallbackUSD[base]
	if !ok || base == USD {
		out := make(domain.RateTable, len(fallbackUSD))
		for code, rate := range fallbackUSD {
			out[code] = rate
		}
		return out
	}
	derived := make(domain.RateTable, len(fallbackUSD))
	for code, rate := range fallbackUSD {
		derived[code] = rate.Div(rateBase)
	}
	return derived
}
