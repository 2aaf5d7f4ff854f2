package user

import (
	"context"
	"errors"
	"strings"

	dom "example.com/gallery-storefront/app/internal/domain/user"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type Service struct {
	repo   dom.Repository
	hasher PasswordHasher
}

func NewService(repo dom.Repository, hasher PasswordHasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

type CreateUserInput struct {
	ExecutorRole dom.RoleCode
	Name         string
	Email        string
	Password     string
	RoleCode     dom.RoleCode
}

type UpdateUserInput struct {
	ExecutorRole dom.RoleCode
	ID           int64
	Name         *string
	Email        *string
	Password     *string
	RoleCode     *dom.RoleCode
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*dom.User, error) {
	if !in.RoleCode.IsValid() {
		return nil, dom.ErrInvalidRoleCode
	}
	if !dom.CanAssignRole(in.ExecutorRole, in.RoleCode) {
		return nil, dom.ErrCannotAssignRole
	}
	if len(in.Password) < 8 {
		return nil, dom.ErrWeakPassword
	}

	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, &dom.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		RoleCode:     in.RoleCode,
	})
}

func (s *Service) GetUser(ctx context.Context, id int64) (*dom.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, filter dom.ListUsersFilter) ([]*dom.User, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) UpdateUser(ctx context.Context, in UpdateUserInput) (*dom.User, error) {
	u, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	// Touching a staff account at all requires the right to assign its role.
	if u.RoleCode.IsStaff() && !dom.CanAssignRole(in.ExecutorRole, u.RoleCode) {
		return nil, dom.ErrCannotAssignRole
	}

	if in.RoleCode != nil {
		if !in.RoleCode.IsValid() {
			return nil, dom.ErrInvalidRoleCode
		}
		if !dom.CanAssignRole(in.ExecutorRole, *in.RoleCode) {
			return nil, dom.ErrCannotAssignRole
		}
		u.RoleCode = *in.RoleCode
	}

	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := s.ensureEmailFree(ctx, email, u.ID); err != nil {
			return nil, err
		}
		u.Email = email
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			return nil, dom.ErrWeakPassword
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	return s.repo.Update(ctx, u)
}

func (s *Service) DeleteUser(ctx context.Context, executorID, id int64) error {
	if executorID == id {
		return dom.ErrCannotDeleteSelf
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, ownerID int64) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, dom.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != ownerID {
		return dom.ErrEmailAlreadyUsed
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
