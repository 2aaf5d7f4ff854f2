package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

type ShippingPolicy struct {
	HomeCountry   string
	Domestic      decimal.Decimal
	International decimal.Decimal
	FreeThreshold decimal.Decimal
}

func (p ShippingPolicy) Fee(country string, subtotal decimal.Decimal) decimal.Decimal {
	if p.FreeThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	if strings.EqualFold(strings.TrimSpace(country), strings.TrimSpace(p.HomeCountry)) {
		return p.Domestic
	}
	return p.International
}
