package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

type invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// StockTracking wraps an order repository and evicts cached catalogue
// entries whenever an order reserves or hands back stock.
type StockTracking struct {
	domorder.Repository
	cache invalidator
	log   logrus.FieldLogger
}

func NewStockTracking(repo domorder.Repository, c invalidator, log logrus.FieldLogger) *StockTracking {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StockTracking{Repository: repo, cache: c, log: log}
}

func (r *StockTracking) Create(ctx context.Context, o *domorder.Order) (*domorder.Order, error) {
	created, err := r.Repository.Create(ctx, o)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, created.ID)
	return created, nil
}

// Transition evicts after cancellations, the only transition that restocks.
func (r *StockTracking) Transition(ctx context.Context, id int64, to domorder.Status, change domorder.Change) (*domorder.Order, error) {
	updated, err := r.Repository.Transition(ctx, id, to, change)
	if err != nil {
		return nil, err
	}
	if to == domorder.StatusCancelled {
		r.evict(ctx, id)
	}
	return updated, nil
}

func (r *StockTracking) evict(ctx context.Context, orderID int64) {
	if err := r.cache.InvalidateAll(ctx); err != nil {
		r.log.WithError(err).WithField("order_id", orderID).Warn("catalogue cache invalidation after stock change failed")
	}
}
