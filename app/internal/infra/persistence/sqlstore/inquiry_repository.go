package sqlstore

import (
	"context"
	"database/sql"
	"time"

	dominquiry "example.com/gallery-storefront/app/internal/domain/inquiry"
)

type InquiryRepository struct {
	store *Store
}

func NewInquiryRepository(store *Store) *InquiryRepository {
	return &InquiryRepository{store: store}
}

type inquiryRow struct {
	ID        int64         `db:"id"`
	ArtworkID sql.NullInt64 `db:"artwork_id"`
	Name      string        `db:"name"`
	Email     string        `db:"email"`
	Phone     string        `db:"phone"`
	Subject   string        `db:"subject"`
	Message   string        `db:"message"`
	Status    string        `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

func (r inquiryRow) toDomain() *dominquiry.Inquiry {
	in := &dominquiry.Inquiry{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Subject:   r.Subject,
		Message:   r.Message,
		Status:    dominquiry.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ArtworkID.Valid {
		id := r.ArtworkID.Int64
		in.ArtworkID = &id
	}
	return in
}

const inquiryColumns = `id, artwork_id, name, email, phone, subject, message, status, created_at, updated_at`

func (r *InquiryRepository) Create(ctx context.Context, in *dominquiry.Inquiry) (*dominquiry.Inquiry, error) {
	var artworkID sql.NullInt64
	if in.ArtworkID != nil {
		artworkID = sql.NullInt64{Int64: *in.ArtworkID, Valid: true}
	}
	now := r.store.timestamp()
	id, err := r.store.insert(ctx, r.store.db, `
        INSERT INTO inquiries (artwork_id, name, email, phone, subject, message, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, artworkID, in.Name, in.Email, in.Phone, in.Subject, in.Message, in.Status, now, now)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *InquiryRepository) GetByID(ctx context.Context, id int64) (*dominquiry.Inquiry, error) {
	var row inquiryRow
	err := r.store.db.GetContext(ctx, &row, r.store.rebind(`SELECT `+inquiryColumns+` FROM inquiries WHERE id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, dominquiry.ErrInquiryNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *InquiryRepository) List(ctx context.Context, filter dominquiry.ListFilter) ([]*dominquiry.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries`
	var args []any
	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query, args = limitClause(query, args, filter.Limit, filter.Offset)

	var rows []inquiryRow
	if err := r.store.db.SelectContext(ctx, &rows, r.store.rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]*dominquiry.Inquiry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *InquiryRepository) UpdateStatus(ctx context.Context, id int64, status dominquiry.Status) (*dominquiry.Inquiry, error) {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(`UPDATE inquiries SET status = ?, updated_at = ? WHERE id = ?`),
		status, r.store.timestamp(), id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *InquiryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`DELETE FROM inquiries WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dominquiry.ErrInquiryNotFound
	}
	return nil
}

func (r *InquiryRepository) CountByStatus(ctx context.Context, status dominquiry.Status) (int64, error) {
	var n int64
	err := r.store.db.GetContext(ctx, &n, r.store.rebind(`SELECT COUNT(*) FROM inquiries WHERE status = ?`), status)
	return n, err
}
