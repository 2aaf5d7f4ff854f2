package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domnotification "example.com/gallery-storefront/app/internal/domain/notification"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

type InvoiceRenderer interface {
	Render(o *domorder.Order) ([]byte, error)
}

type Metrics interface {
	ReservationsExpired(n int)
}

type Options struct {
	Publisher domnotification.Publisher
	Invoices  InvoiceRenderer
	Logger    logrus.FieldLogger
	Metrics   Metrics
}

type Service struct {
	repo      domorder.Repository
	publisher domnotification.Publisher
	invoices  InvoiceRenderer
	metrics   Metrics
	log       logrus.FieldLogger
	now       func() time.Time
}

const expiryBatchSize = 100

func NewService(repo domorder.Repository, opts Options) *Service {
	s := &Service{
		repo:      repo,
		publisher: opts.Publisher,
		invoices:  opts.Invoices,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       time.Now,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

func (s *Service) List(ctx context.Context, filter domorder.ListFilter) ([]*domorder.Order, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, domorder.ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domorder.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, userID int64, filter domorder.ListFilter) ([]*domorder.Order, error) {
	filter.UserID = &userID
	return s.List(ctx, filter)
}

// GetForUser hides other customers' orders behind ErrOrderNotFound.
func (s *Service) GetForUser(ctx context.Context, userID, id int64) (*domorder.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domorder.ErrOrderNotFound
	}
	return o, nil
}

// UpdateStatus is the admin transition. Shipping records the tracking number;
// cancelling hands reserved stock back.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domorder.Status, trackingNumber string) (*domorder.Order, error) {
	if !status.IsValid() {
		return nil, domorder.ErrInvalidStatus
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domorder.CanTransition(o.Status, status) {
		return nil, domorder.ErrInvalidTransition
	}
	if o.Status == status && status != domorder.StatusShipped {
		return o, nil
	}

	at := s.now().UTC()
	updated, err := s.repo.Transition(ctx, id, status, domorder.Change{
		TrackingNumber: strings.TrimSpace(trackingNumber),
		At:             at,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"order_id": id, "from": o.Status, "to": status}).Info("order status updated")
	if o.Status != status {
		switch status {
		case domorder.StatusShipped:
			s.publish(ctx, domnotification.KindOrderShipped, id, at)
		case domorder.StatusCancelled:
			s.publish(ctx, domnotification.KindOrderCancelled, id, at)
		}
	}
	return updated, nil
}

// ExpireReservations cancels pending orders whose reservation window has
// passed and returns how many were released.
func (s *Service) ExpireReservations(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ListExpiredReservations(ctx, now.UTC(), expiryBatchSize)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, o := range expired {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		_, err := s.repo.Transition(ctx, o.ID, domorder.StatusCancelled, domorder.Change{
			From: []domorder.Status{domorder.StatusPending},
			At:   now.UTC(),
		})
		if err != nil {
			if errors.Is(err, domorder.ErrInvalidTransition) || errors.Is(err, domorder.ErrOrderNotFound) {
				continue
			}
			return count, err
		}
		count++
		s.log.WithFields(logrus.Fields{"order_id": o.ID, "reference": o.Reference}).Info("reservation expired, order cancelled")
		s.publish(ctx, domnotification.KindOrderCancelled, o.ID, now.UTC())
	}

	if s.metrics != nil && count > 0 {
		s.metrics.ReservationsExpired(count)
	}
	return count, nil
}

func (s *Service) Invoice(ctx context.Context, o *domorder.Order) ([]byte, error) {
	if s.invoices == nil {
		return nil, errors.New("invoice renderer not configured")
	}
	return s.invoices.Render(o)
}

func (s *Service) publish(ctx context.Context, kind domnotification.Kind, orderID int64, at time.Time) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, domnotification.Event{Kind: kind, OrderID: orderID, OccurredAt: at}); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"order_id": orderID, "kind": kind}).Error("failed to publish notification")
	}
}
