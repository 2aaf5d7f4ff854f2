package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
	domcart "example.com/gallery-storefront/app/internal/domain/cart"
)

type ArtworkRepository interface {
	GetByID(ctx context.Context, id int64) (*domartwork.Artwork, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domartwork.Artwork, error)
}

type Service struct {
	cartRepo    domcart.Repository
	artworkRepo ArtworkRepository
	baseDays    int
}

func NewService(cartRepo domcart.Repository, artworkRepo ArtworkRepository, baseDays int) *Service {
	return &Service{
		cartRepo:    cartRepo,
		artworkRepo: artworkRepo,
		baseDays:    baseDays,
	}
}

func (s *Service) AddToCart(ctx context.Context, userID int64, item domcart.Item) error {
	if item.Quantity <= 0 {
		return domcart.ErrInvalidQuantity
	}

	a, err := s.artworkRepo.GetByID(ctx, item.ArtworkID)
	if err != nil {
		return err
	}
	if _, err := domartwork.QuoteFor(a, item.VariantID, s.baseDays); err != nil {
		return err
	}

	inCart, err := s.quantityInCart(ctx, userID, item.ArtworkID)
	if err != nil {
		return err
	}
	if inCart+item.Quantity > a.Stock {
		return domartwork.ErrOutOfStock
	}

	return s.cartRepo.AddOrUpdateItem(ctx, userID, item)
}

// UpdateQuantity sets a line's quantity; zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID int64, item domcart.Item) error {
	if item.Quantity < 0 {
		return domcart.ErrInvalidQuantity
	}
	if item.Quantity == 0 {
		return s.cartRepo.RemoveItem(ctx, userID, item.ArtworkID, item.VariantID)
	}

	a, err := s.artworkRepo.GetByID(ctx, item.ArtworkID)
	if err != nil {
		return err
	}
	if _, err := domartwork.QuoteFor(a, item.VariantID, s.baseDays); err != nil {
		return err
	}

	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return err
	}
	var others int64
	found := false
	for _, existing := range items {
		if existing.ArtworkID != item.ArtworkID {
			continue
		}
		if existing.VariantID == item.VariantID {
			found = true
			continue
		}
		others += existing.Quantity
	}
	if !found {
		return domcart.ErrItemNotFound
	}
	if others+item.Quantity > a.Stock {
		return domartwork.ErrOutOfStock
	}

	return s.cartRepo.SetQuantity(ctx, userID, item)
}

func (s *Service) RemoveItem(ctx context.Context, userID, artworkID, variantID int64) error {
	return s.cartRepo.RemoveItem(ctx, userID, artworkID, variantID)
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.cartRepo.Clear(ctx, userID)
}

// GetCart prices every line at current catalogue prices. Lines that can no
// longer be bought stay in the cart marked unavailable and are left out of
// the subtotal.
func (s *Service) GetCart(ctx context.Context, userID int64) (*domcart.Cart, error) {
	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart := &domcart.Cart{
		UserID:   userID,
		Items:    make([]domcart.DetailedItem, 0, len(items)),
		Subtotal: decimal.Zero,
	}
	if len(items) == 0 {
		return cart, nil
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ArtworkID)
	}

	artworks, err := s.artworkRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	artworkMap := make(map[int64]*domartwork.Artwork)
	for _, a := range artworks {
		artworkMap[a.ID] = a
	}

	reserved := make(map[int64]int64)
	for _, item := range items {
		line := domcart.DetailedItem{Item: item}

		a, ok := artworkMap[item.ArtworkID]
		if !ok {
			cart.Items = append(cart.Items, line)
			continue
		}
		line.Title = a.Title

		q, err := domartwork.QuoteFor(a, item.VariantID, s.baseDays)
		if err != nil {
			if !isUnavailable(err) {
				return nil, err
			}
			cart.Items = append(cart.Items, line)
			continue
		}

		line.VariantName = q.VariantName
		line.UnitPrice = q.UnitPrice
		line.LineTotal = q.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
		line.ProcessingDays = q.ProcessingDays
		line.Available = reserved[a.ID]+item.Quantity <= a.Stock
		if line.Available {
			reserved[a.ID] += item.Quantity
			cart.Subtotal = cart.Subtotal.Add(line.LineTotal)
		}
		cart.Items = append(cart.Items, line)
	}

	return cart, nil
}

func (s *Service) quantityInCart(ctx context.Context, userID, artworkID int64) (int64, error) {
	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, item := range items {
		if item.ArtworkID == artworkID {
			total += item.Quantity
		}
	}
	return total, nil
}

func isUnavailable(err error) bool {
	return errors.Is(err, domartwork.ErrArtworkUnavailable) ||
		errors.Is(err, domartwork.ErrVariantNotFound) ||
		errors.Is(err, domartwork.ErrInvalidPrice)
}
