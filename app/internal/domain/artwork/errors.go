package artwork

import "errors"

var (
	ErrArtworkNotFound    = errors.New("artwork not found")
	ErrArtworkUnavailable = errors.New("artwork is not available")
	ErrArtworkSlugExists  = errors.New("artwork slug already exists")
	ErrOutOfStock         = errors.New("artwork out of stock")
	ErrVariantNotFound    = errors.New("variant not found")
	ErrInvalidVariantKind = errors.New("invalid variant kind")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrImageNotFound      = errors.New("image not found")
)
