package order

import (
	"context"
	"time"
)

type Repository interface {
	// Create inserts the order and reserves stock for every item atomically.
	Create(ctx context.Context, o *Order) (*Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByReference(ctx context.Context, reference string) (*Order, error)
	GetByProviderRef(ctx context.Context, provider PaymentProvider, ref string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
	SetProviderRef(ctx context.Context, id int64, ref string) error
	SetPaymentStatus(ctx context.Context, id int64, status PaymentStatus) (*Order, error)
	Transition(ctx context.Context, id int64, to Status, change Change) (*Order, error)
	ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*Order, error)
	Stats(ctx context.Context) (*Stats, error)
}
