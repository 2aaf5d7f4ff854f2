package artwork

import "context"

type Repository interface {
	Create(ctx context.Context, a *Artwork) (*Artwork, error)
	Update(ctx context.Context, a *Artwork) (*Artwork, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Artwork, error)
	GetBySlug(ctx context.Context, slug string) (*Artwork, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Artwork, error)
	List(ctx context.Context, filter ListFilter) ([]*Artwork, error)
	AdjustStock(ctx context.Context, id int64, delta int64) (*Artwork, error)

	CreateVariant(ctx context.Context, v *Variant) (*Variant, error)
	UpdateVariant(ctx context.Context, v *Variant) (*Variant, error)
	DeleteVariant(ctx context.Context, artworkID, variantID int64) error

	AddImage(ctx context.Context, img *Image) (*Image, error)
	GetImage(ctx context.Context, artworkID, imageID int64) (*Image, error)
	DeleteImage(ctx context.Context, artworkID, imageID int64) error
}
