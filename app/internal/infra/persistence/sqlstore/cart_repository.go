package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	domcart "example.com/gallery-storefront/app/internal/domain/cart"
)

type CartRepository struct {
	store *Store
}

func NewCartRepository(store *Store) *CartRepository {
	return &CartRepository{store: store}
}

type cartItemRow struct {
	ArtworkID int64 `db:"artwork_id"`
	VariantID int64 `db:"variant_id"`
	Quantity  int64 `db:"quantity"`
}

// AddOrUpdateItem adds quantity to an existing line or inserts a new one.
func (r *CartRepository) AddOrUpdateItem(ctx context.Context, userID int64, item domcart.Item) error {
	return r.store.withTx(ctx, func(tx *sqlx.Tx) error {
		var current int64
		err := tx.GetContext(ctx, &current, r.store.rebind(`
            SELECT quantity FROM cart_items
            WHERE user_id = ? AND artwork_id = ? AND variant_id = ?
            FOR UPDATE
        `), userID, item.ArtworkID, item.VariantID)
		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx, r.store.rebind(`
                UPDATE cart_items SET quantity = ?
                WHERE user_id = ? AND artwork_id = ? AND variant_id = ?
            `), current+item.Quantity, userID, item.ArtworkID, item.VariantID)
			return err
		case isNoRows(err):
			_, err = tx.ExecContext(ctx, r.store.rebind(`
                INSERT INTO cart_items (user_id, artwork_id, variant_id, quantity)
                VALUES (?, ?, ?, ?)
            `), userID, item.ArtworkID, item.VariantID, item.Quantity)
			return err
		default:
			return err
		}
	})
}

func (r *CartRepository) SetQuantity(ctx context.Context, userID int64, item domcart.Item) error {
	var exists int64
	err := r.store.db.GetContext(ctx, &exists, r.store.rebind(`
        SELECT COUNT(*) FROM cart_items WHERE user_id = ? AND artwork_id = ? AND variant_id = ?
    `), userID, item.ArtworkID, item.VariantID)
	if err != nil {
		return err
	}
	if exists == 0 {
		return domcart.ErrItemNotFound
	}
	_, err = r.store.db.ExecContext(ctx, r.store.rebind(`
        UPDATE cart_items SET quantity = ?
        WHERE user_id = ? AND artwork_id = ? AND variant_id = ?
    `), item.Quantity, userID, item.ArtworkID, item.VariantID)
	return err
}

func (r *CartRepository) RemoveItem(ctx context.Context, userID, artworkID, variantID int64) error {
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`
        DELETE FROM cart_items WHERE user_id = ? AND artwork_id = ? AND variant_id = ?
    `), userID, artworkID, variantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domcart.ErrItemNotFound
	}
	return nil
}

func (r *CartRepository) ListItems(ctx context.Context, userID int64) ([]domcart.Item, error) {
	var rows []cartItemRow
	err := r.store.db.SelectContext(ctx, &rows, r.store.rebind(`
        SELECT artwork_id, variant_id, quantity
        FROM cart_items
        WHERE user_id = ?
        ORDER BY artwork_id, variant_id
    `), userID)
	if err != nil {
		return nil, err
	}
	items := make([]domcart.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, domcart.Item{ArtworkID: row.ArtworkID, VariantID: row.VariantID, Quantity: row.Quantity})
	}
	return items, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(`DELETE FROM cart_items WHERE user_id = ?`), userID)
	return err
}
