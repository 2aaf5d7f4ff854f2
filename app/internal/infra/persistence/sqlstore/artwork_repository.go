package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
)

type ArtworkRepository struct {
	store *Store
}

func NewArtworkRepository(store *Store) *ArtworkRepository {
	return &ArtworkRepository{store: store}
}

type artworkRow struct {
	ID          int64           `db:"id"`
	Title       string          `db:"title"`
	Slug        string          `db:"slug"`
	Artist      string          `db:"artist"`
	Description string          `db:"description"`
	Medium      string          `db:"medium"`
	WidthCM     decimal.Decimal `db:"width_cm"`
	HeightCM    decimal.Decimal `db:"height_cm"`
	Year        int             `db:"year_created"`
	Price       decimal.Decimal `db:"price"`
	Stock       int64           `db:"stock"`
	CategoryID  sql.NullInt64   `db:"category_id"`
	IsActive    bool            `db:"is_active"`
	IsFeatured  bool            `db:"is_featured"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r artworkRow) toDomain() *domartwork.Artwork {
	return &domartwork.Artwork{
		ID:          r.ID,
		Title:       r.Title,
		Slug:        r.Slug,
		Artist:      r.Artist,
		Description: r.Description,
		Medium:      r.Medium,
		WidthCM:     r.WidthCM,
		HeightCM:    r.HeightCM,
		Year:        r.Year,
		Price:       r.Price,
		Stock:       r.Stock,
		CategoryID:  r.CategoryID.Int64,
		IsActive:    r.IsActive,
		IsFeatured:  r.IsFeatured,
		Images:      []domartwork.Image{},
		Variants:    []domartwork.Variant{},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type variantRow struct {
	ID              int64           `db:"id"`
	ArtworkID       int64           `db:"artwork_id"`
	Kind            string          `db:"kind"`
	Name            string          `db:"name"`
	PriceAdjustment decimal.Decimal `db:"price_adjustment"`
	ProcessingDays  int             `db:"processing_days"`
	IsActive        bool            `db:"is_active"`
}

func (r variantRow) toDomain() domartwork.Variant {
	return domartwork.Variant{
		ID:              r.ID,
		ArtworkID:       r.ArtworkID,
		Kind:            domartwork.VariantKind(r.Kind),
		Name:            r.Name,
		PriceAdjustment: r.PriceAdjustment,
		ProcessingDays:  r.ProcessingDays,
		IsActive:        r.IsActive,
	}
}

type imageRow struct {
	ID         int64  `db:"id"`
	ArtworkID  int64  `db:"artwork_id"`
	URL        string `db:"url"`
	StorageKey string `db:"storage_key"`
	AltText    string `db:"alt_text"`
	Position   int    `db:"sort_order"`
}

func (r imageRow) toDomain() domartwork.Image {
	return domartwork.Image{
		ID:         r.ID,
		ArtworkID:  r.ArtworkID,
		URL:        r.URL,
		StorageKey: r.StorageKey,
		AltText:    r.AltText,
		Position:   r.Position,
	}
}

const artworkColumns = `id, title, slug, artist, description, medium, width_cm, height_cm, year_created,
        price, stock, category_id, is_active, is_featured, created_at, updated_at`

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func (r *ArtworkRepository) Create(ctx context.Context, a *domartwork.Artwork) (*domartwork.Artwork, error) {
	now := r.store.timestamp()
	id, err := r.store.insert(ctx, r.store.db, `
        INSERT INTO artworks (title, slug, artist, description, medium, width_cm, height_cm, year_created,
            price, stock, category_id, is_active, is_featured, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, a.Title, a.Slug, a.Artist, a.Description, a.Medium, a.WidthCM, a.HeightCM, a.Year,
		a.Price, a.Stock, nullableID(a.CategoryID), a.IsActive, a.IsFeatured, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domartwork.ErrArtworkSlugExists
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ArtworkRepository) Update(ctx context.Context, a *domartwork.Artwork) (*domartwork.Artwork, error) {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(`
        UPDATE artworks SET title = ?, slug = ?, artist = ?, description = ?, medium = ?, width_cm = ?,
            height_cm = ?, year_created = ?, price = ?, stock = ?, category_id = ?, is_active = ?,
            is_featured = ?, updated_at = ?
        WHERE id = ?
    `), a.Title, a.Slug, a.Artist, a.Description, a.Medium, a.WidthCM, a.HeightCM, a.Year,
		a.Price, a.Stock, nullableID(a.CategoryID), a.IsActive, a.IsFeatured, r.store.timestamp(), a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domartwork.ErrArtworkSlugExists
		}
		return nil, err
	}
	return r.GetByID(ctx, a.ID)
}

func (r *ArtworkRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`DELETE FROM artworks WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domartwork.ErrArtworkNotFound
	}
	return nil
}

func (r *ArtworkRepository) GetByID(ctx context.Context, id int64) (*domartwork.Artwork, error) {
	return r.getOne(ctx, `SELECT `+artworkColumns+` FROM artworks WHERE id = ?`, id)
}

func (r *ArtworkRepository) GetBySlug(ctx context.Context, slug string) (*domartwork.Artwork, error) {
	return r.getOne(ctx, `SELECT `+artworkColumns+` FROM artworks WHERE slug = ?`, slug)
}

func (r *ArtworkRepository) getOne(ctx context.Context, query string, args ...any) (*domartwork.Artwork, error) {
	var row artworkRow
	if err := r.store.db.GetContext(ctx, &row, r.store.rebind(query), args...); err != nil {
		if isNoRows(err) {
			return nil, domartwork.ErrArtworkNotFound
		}
		return nil, err
	}
	artworks, err := r.withChildren(ctx, []artworkRow{row})
	if err != nil {
		return nil, err
	}
	return artworks[0], nil
}

func (r *ArtworkRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domartwork.Artwork, error) {
	if len(ids) == 0 {
		return []*domartwork.Artwork{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+artworkColumns+` FROM artworks WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	var rows []artworkRow
	if err := r.store.db.SelectContext(ctx, &rows, r.store.rebind(query), args...); err != nil {
		return nil, err
	}
	return r.withChildren(ctx, rows)
}

func (r *ArtworkRepository) List(ctx context.Context, filter domartwork.ListFilter) ([]*domartwork.Artwork, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(artist) LIKE ?)")
		pattern := "%" + strings.ToLower(s) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.OnlyActive {
		conds = append(conds, "is_active = TRUE")
	}
	if filter.OnlyFeatured {
		conds = append(conds, "is_featured = TRUE")
	}
	if filter.MinPrice != nil {
		conds = append(conds, "price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}

	query := `SELECT ` + artworkColumns + ` FROM artworks`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY is_featured DESC, created_at DESC, id DESC`
	query, args = limitClause(query, args, filter.Limit, filter.Offset)

	var rows []artworkRow
	if err := r.store.db.SelectContext(ctx, &rows, r.store.rebind(query), args...); err != nil {
		return nil, err
	}
	return r.withChildren(ctx, rows)
}

// AdjustStock applies delta under a row lock and refuses to go below zero.
func (r *ArtworkRepository) AdjustStock(ctx context.Context, id int64, delta int64) (*domartwork.Artwork, error) {
	err := r.store.withTx(ctx, func(tx *sqlx.Tx) error {
		var stock int64
		if err := tx.GetContext(ctx, &stock, r.store.rebind(`SELECT stock FROM artworks WHERE id = ? FOR UPDATE`), id); err != nil {
			if isNoRows(err) {
				return domartwork.ErrArtworkNotFound
			}
			return err
		}
		if stock+delta < 0 {
			return domartwork.ErrOutOfStock
		}
		_, err := tx.ExecContext(ctx, r.store.rebind(`UPDATE artworks SET stock = ?, updated_at = ? WHERE id = ?`),
			stock+delta, r.store.timestamp(), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ArtworkRepository) CreateVariant(ctx context.Context, v *domartwork.Variant) (*domartwork.Variant, error) {
	id, err := r.store.insert(ctx, r.store.db, `
        INSERT INTO artwork_variants (artwork_id, kind, name, price_adjustment, processing_days, is_active)
        VALUES (?, ?, ?, ?, ?, ?)
    `, v.ArtworkID, v.Kind, v.Name, v.PriceAdjustment, v.ProcessingDays, v.IsActive)
	if err != nil {
		return nil, err
	}
	created := *v
	created.ID = id
	return &created, nil
}

func (r *ArtworkRepository) UpdateVariant(ctx context.Context, v *domartwork.Variant) (*domartwork.Variant, error) {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(`
        UPDATE artwork_variants SET kind = ?, name = ?, price_adjustment = ?, processing_days = ?, is_active = ?
        WHERE id = ? AND artwork_id = ?
    `), v.Kind, v.Name, v.PriceAdjustment, v.ProcessingDays, v.IsActive, v.ID, v.ArtworkID)
	if err != nil {
		return nil, err
	}
	updated := *v
	return &updated, nil
}

func (r *ArtworkRepository) DeleteVariant(ctx context.Context, artworkID, variantID int64) error {
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`DELETE FROM artwork_variants WHERE id = ? AND artwork_id = ?`), variantID, artworkID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domartwork.ErrVariantNotFound
	}
	return nil
}

func (r *ArtworkRepository) AddImage(ctx context.Context, img *domartwork.Image) (*domartwork.Image, error) {
	id, err := r.store.insert(ctx, r.store.db, `
        INSERT INTO artwork_images (artwork_id, url, storage_key, alt_text, sort_order)
        VALUES (?, ?, ?, ?, ?)
    `, img.ArtworkID, img.URL, img.StorageKey, img.AltText, img.Position)
	if err != nil {
		return nil, err
	}
	created := *img
	created.ID = id
	return &created, nil
}

func (r *ArtworkRepository) GetImage(ctx context.Context, artworkID, imageID int64) (*domartwork.Image, error) {
	var row imageRow
	err := r.store.db.GetContext(ctx, &row, r.store.rebind(`
        SELECT id, artwork_id, url, storage_key, alt_text, sort_order
        FROM artwork_images WHERE id = ? AND artwork_id = ?
    `), imageID, artworkID)
	if err != nil {
		if isNoRows(err) {
			return nil, domartwork.ErrImageNotFound
		}
		return nil, err
	}
	img := row.toDomain()
	return &img, nil
}

func (r *ArtworkRepository) DeleteImage(ctx context.Context, artworkID, imageID int64) error {
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`DELETE FROM artwork_images WHERE id = ? AND artwork_id = ?`), imageID, artworkID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domartwork.ErrImageNotFound
	}
	return nil
}

// withChildren loads variants and images for a page of artworks in two queries.
func (r *ArtworkRepository) withChildren(ctx context.Context, rows []artworkRow) ([]*domartwork.Artwork, error) {
	out := make([]*domartwork.Artwork, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	byID := make(map[int64]*domartwork.Artwork, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		a := row.toDomain()
		out = append(out, a)
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	query, args, err := sqlx.In(`
        SELECT id, artwork_id, kind, name, price_adjustment, processing_days, is_active
        FROM artwork_variants WHERE artwork_id IN (?) ORDER BY id
    `, ids)
	if err != nil {
		return nil, err
	}
	var variants []variantRow
	if err := r.store.db.SelectContext(ctx, &variants, r.store.rebind(query), args...); err != nil {
		return nil, err
	}
	for _, v := range variants {
		if a, ok := byID[v.ArtworkID]; ok {
			a.Variants = append(a.Variants, v.toDomain())
		}
	}

	query, args, err = sqlx.In(`
        SELECT id, artwork_id, url, storage_key, alt_text, sort_order
        FROM artwork_images WHERE artwork_id IN (?) ORDER BY sort_order, id
    `, ids)
	if err != nil {
		return nil, err
	}
	var images []imageRow
	if err := r.store.db.SelectContext(ctx, &images, r.store.rebind(query), args...); err != nil {
		return nil, err
	}
	for _, img := range images {
		if a, ok := byID[img.ArtworkID]; ok {
			a.Images = append(a.Images, img.toDomain())
		}
	}
	return out, nil
}
