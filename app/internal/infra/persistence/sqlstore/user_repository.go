package sqlstore

import (
	"context"
	"time"

	domuser "example.com/gallery-storefront/app/internal/domain/user"
)

type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

type userRow struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	RoleCode     string    `db:"role_code"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toDomain() *domuser.User {
	return &domuser.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		RoleCode:     domuser.RoleCode(r.RoleCode),
		CreatedAt:    r.CreatedAt,
	}
}

const userColumns = `id, name, email, password_hash, role_code, created_at`

func (r *UserRepository) Create(ctx context.Context, u *domuser.User) (*domuser.User, error) {
	id, err := r.store.insert(ctx, r.store.db, `
        INSERT INTO users (name, email, password_hash, role_code, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, u.Name, u.Email, u.PasswordHash, u.RoleCode, r.store.timestamp())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domuser.ErrEmailAlreadyUsed
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domuser.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domuser.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*domuser.User, error) {
	var row userRow
	if err := r.store.db.GetContext(ctx, &row, r.store.rebind(query), args...); err != nil {
		if isNoRows(err) {
			return nil, domuser.ErrUserNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context, filter domuser.ListUsersFilter) ([]*domuser.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if filter.RoleCode != nil {
		query += ` WHERE role_code = ?`
		args = append(args, *filter.RoleCode)
	}
	query += ` ORDER BY id`

	var rows []userRow
	if err := r.store.db.SelectContext(ctx, &rows, r.store.rebind(query), args...); err != nil {
		return nil, err
	}
	users := make([]*domuser.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domuser.User) (*domuser.User, error) {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(`
        UPDATE users SET name = ?, email = ?, password_hash = ?, role_code = ?
        WHERE id = ?
    `), u.Name, u.Email, u.PasswordHash, u.RoleCode, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domuser.ErrEmailAlreadyUsed
		}
		return nil, err
	}
	return r.GetByID(ctx, u.ID)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domuser.ErrUserNotFound
	}
	return nil
}
