package cart

import "github.com/shopspring/decimal"

// Item is a cart line. VariantID 0 means the artwork as listed.
type Item struct {
	ArtworkID int64
	VariantID int64
	Quantity  int64
}

type DetailedItem struct {
	Item
	Title          string
	VariantName    string
	UnitPrice      decimal.Decimal
	LineTotal      decimal.Decimal
	ProcessingDays int
	Available      bool
}

type Cart struct {
	UserID   int64
	Items    []DetailedItem
	Subtotal decimal.Decimal
}
