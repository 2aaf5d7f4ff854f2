package dashboard

import (
	"context"

	"github.com/shopspring/decimal"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
	dominquiry "example.com/gallery-storefront/app/internal/domain/inquiry"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

type OrderRepository interface {
	Stats(ctx context.Context) (*domorder.Stats, error)
	List(ctx context.Context, filter domorder.ListFilter) ([]*domorder.Order, error)
}

type ArtworkRepository interface {
	List(ctx context.Context, filter domartwork.ListFilter) ([]*domartwork.Artwork, error)
}

type InquiryRepository interface {
	CountByStatus(ctx context.Context, status dominquiry.Status) (int64, error)
}

type Summary struct {
	Revenue        decimal.Decimal
	OrdersByStatus map[domorder.Status]int64
	ArtworkCount   int64
	LowStock       []*domartwork.Artwork
	NewInquiries   int64
	RecentOrders   []*domorder.Order
}

const recentOrderCount = 5

type Service struct {
	orders            OrderRepository
	artworks          ArtworkRepository
	inquiries         InquiryRepository
	lowStockThreshold int64
}

func NewService(orders OrderRepository, artworks ArtworkRepository, inquiries InquiryRepository, lowStockThreshold int64) *Service {
	return &Service{
		orders:            orders,
		artworks:          artworks,
		inquiries:         inquiries,
		lowStockThreshold: lowStockThreshold,
	}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.orders.List(ctx, domorder.ListFilter{Limit: recentOrderCount})
	if err != nil {
		return nil, err
	}

	artworks, err := s.artworks.List(ctx, domartwork.ListFilter{OnlyActive: true})
	if err != nil {
		return nil, err
	}

	newInquiries, err := s.inquiries.CountByStatus(ctx, dominquiry.StatusNew)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Revenue:        stats.Revenue,
		OrdersByStatus: make(map[domorder.Status]int64),
		ArtworkCount:   int64(len(artworks)),
		LowStock:       []*domartwork.Artwork{},
		NewInquiries:   newInquiries,
		RecentOrders:   recent,
	}
	for _, st := range []domorder.Status{domorder.StatusPending, domorder.StatusPaid, domorder.StatusShipped, domorder.StatusCancelled} {
		summary.OrdersByStatus[st] = stats.CountByStatus[st]
	}
	for _, a := range artworks {
		if a.Stock <= s.lowStockThreshold {
			summary.LowStock = append(summary.LowStock, a)
		}
	}
	return summary, nil
}
