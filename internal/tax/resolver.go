// Package tax resolves the VAT treatment for invoice totals.
package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// euMembers per ISO 3166-1 alpha-2, Sweden included.
var euMembers = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
}

var swedishVAT = decimal.New(25, -2) // 0.25

type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// RateFor returns the VAT fraction to apply to an invoice subtotal.
// Swedish residents pay domestic VAT; EU businesses with a tax identifier
// fall under reverse charge; everyone else is outside the scope of the tax.
func (Resolver) RateFor(countryCode, taxID string) decimal.Decimal {
	country := strings.ToUpper(strings.TrimSpace(countryCode))

	if country == "SE" {
		return swedishVAT
	}
	if _, eu := euMembers[country]; eu && strings.TrimSpace(taxID) != "" {
		return decimal.Zero // reverse charge
	}
	return decimal.Zero
}
