package sqlstore

import (
	"context"

	domcategory "example.com/gallery-storefront/app/internal/domain/category"
)

type CategoryRepository struct {
	store *Store
}

func NewCategoryRepository(store *Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

type categoryRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Slug        string `db:"slug"`
	Description string `db:"description"`
	IsActive    bool   `db:"is_active"`
}

func (r categoryRow) toDomain() *domcategory.Category {
	return &domcategory.Category{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		IsActive:    r.IsActive,
	}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domcategory.Category) (*domcategory.Category, error) {
	id, err := r.store.insert(ctx, r.store.db, `
        INSERT INTO categories (name, slug, description, is_active)
        VALUES (?, ?, ?, ?)
    `, c.Name, c.Slug, c.Description, c.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domcategory.ErrCategorySlugExists
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *CategoryRepository) Update(ctx context.Context, c *domcategory.Category) (*domcategory.Category, error) {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(`
        UPDATE categories SET name = ?, slug = ?, description = ?, is_active = ?
        WHERE id = ?
    `), c.Name, c.Slug, c.Description, c.IsActive, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domcategory.ErrCategorySlugExists
		}
		return nil, err
	}
	return r.GetByID(ctx, c.ID)
}

// Delete refuses to remove a category that artworks still point at.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	var inUse int64
	if err := r.store.db.GetContext(ctx, &inUse, r.store.rebind(`SELECT COUNT(*) FROM artworks WHERE category_id = ?`), id); err != nil {
		return err
	}
	if inUse > 0 {
		return domcategory.ErrCategoryInUse
	}

	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`DELETE FROM categories WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domcategory.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domcategory.Category, error) {
	var row categoryRow
	err := r.store.db.GetContext(ctx, &row, r.store.rebind(`
        SELECT id, name, slug, description, is_active FROM categories WHERE id = ?
    `), id)
	if err != nil {
		if isNoRows(err) {
			return nil, domcategory.ErrCategoryNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *CategoryRepository) List(ctx context.Context, filter domcategory.ListFilter) ([]*domcategory.Category, error) {
	query := `SELECT id, name, slug, description, is_active FROM categories`
	if filter.OnlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	var rows []categoryRow
	if err := r.store.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	out := make([]*domcategory.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
