package artwork

import (
	"github.com/shopspring/decimal"

	dom "example.com/gallery-storefront/app/internal/domain/artwork"
)

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, dom.ErrInvalidPrice
	}
	return d.Round(2), nil
}
