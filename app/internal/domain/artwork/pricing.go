package artwork

import "github.com/shopspring/decimal"

// Quote is the purchasable price and lead time of one unit.
type Quote struct {
	ArtworkID      int64
	VariantID      int64
	Title          string
	VariantName    string
	UnitPrice      decimal.Decimal
	ProcessingDays int
	Stock          int64
}

// QuoteFor prices one unit of a, optionally in variant variantID (0 means the
// artwork as listed). baseDays is the gallery's default processing time.
func QuoteFor(a *Artwork, variantID int64, baseDays int) (Quote, error) {
	if a == nil {
		return Quote{}, ErrArtworkNotFound
	}
	if !a.IsActive {
		return Quote{}, ErrArtworkUnavailable
	}
	if baseDays < 0 {
		baseDays = 0
	}

	q := Quote{
		ArtworkID:      a.ID,
		Title:          a.Title,
		UnitPrice:      a.Price,
		ProcessingDays: baseDays,
		Stock:          a.Stock,
	}

	if variantID != 0 {
		v, ok := a.Variant(variantID)
		if !ok || !v.IsActive {
			return Quote{}, ErrVariantNotFound
		}
		q.VariantID = v.ID
		q.VariantName = v.Name
		q.UnitPrice = a.Price.Add(v.PriceAdjustment)
		if v.ProcessingDays > 0 {
			q.ProcessingDays += v.ProcessingDays
		}
	}

	if !q.UnitPrice.IsPositive() {
		return Quote{}, ErrInvalidPrice
	}
	return q, nil
}
