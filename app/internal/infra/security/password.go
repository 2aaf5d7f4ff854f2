package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	domuser "example.com/gallery-storefront/app/internal/domain/user"
)

type BcryptService struct {
	cost int
}

func NewBcryptService(cost int) *BcryptService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptService{cost: cost}
}

func (s *BcryptService) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare maps a mismatch onto the domain's credential error.
func (s *BcryptService) Compare(hash string, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domuser.ErrInvalidCredential
	}
	return err
}
