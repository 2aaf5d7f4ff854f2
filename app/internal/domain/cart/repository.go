package cart

import "context"

type Repository interface {
	AddOrUpdateItem(ctx context.Context, userID int64, item Item) error
	SetQuantity(ctx context.Context, userID int64, item Item) error
	RemoveItem(ctx context.Context, userID, artworkID, variantID int64) error
	ListItems(ctx context.Context, userID int64) ([]Item, error)
	Clear(ctx context.Context, userID int64) error
}
