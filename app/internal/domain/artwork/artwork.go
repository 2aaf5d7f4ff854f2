package artwork

import (
	"time"

	"github.com/shopspring/decimal"
)

type Artwork struct {
	ID          int64
	Title       string
	Slug        string
	Artist      string
	Description string
	Medium      string
	WidthCM     decimal.Decimal
	HeightCM    decimal.Decimal
	Year        int
	Price       decimal.Decimal
	Stock       int64
	CategoryID  int64
	IsActive    bool
	IsFeatured  bool
	Images      []Image
	Variants    []Variant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Variant looks up one of the artwork's variants by id.
func (a *Artwork) Variant(id int64) (*Variant, bool) {
	for i := range a.Variants {
		if a.Variants[i].ID == id {
			return &a.Variants[i], true
		}
	}
	return nil, false
}

type Image struct {
	ID         int64
	ArtworkID  int64
	URL        string
	StorageKey string
	AltText    string
	Position   int
}

type VariantKind string

const (
	VariantFrame  VariantKind = "FRAME"
	VariantCanvas VariantKind = "CANVAS"
	VariantPrint  VariantKind = "PRINT"
)

func (k VariantKind) IsValid() bool {
	switch k {
	case VariantFrame, VariantCanvas, VariantPrint:
		return true
	default:
		return false
	}
}

// Variant is a frame or canvas option that shifts the base price and adds
// processing days on top of the gallery default.
type Variant struct {
	ID              int64
	ArtworkID       int64
	Kind            VariantKind
	Name            string
	PriceAdjustment decimal.Decimal
	ProcessingDays  int
	IsActive        bool
}

type ListFilter struct {
	CategoryID   *int64
	Search       string
	OnlyActive   bool
	OnlyFeatured bool
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Limit        int
	Offset       int
}
