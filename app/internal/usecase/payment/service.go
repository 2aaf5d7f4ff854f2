package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domnotification "example.com/gallery-storefront/app/internal/domain/notification"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
)

type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*domorder.Order, error)
	GetByReference(ctx context.Context, reference string) (*domorder.Order, error)
	GetByProviderRef(ctx context.Context, provider domorder.PaymentProvider, ref string) (*domorder.Order, error)
	SetPaymentStatus(ctx context.Context, id int64, status domorder.PaymentStatus) (*domorder.Order, error)
	Transition(ctx context.Context, id int64, to domorder.Status, change domorder.Change) (*domorder.Order, error)
}

type Metrics interface {
	WebhookProcessed(provider, outcome string)
}

// Result describes what a webhook delivery did. Duplicate deliveries are
// acknowledged without side effects.
type Result struct {
	Event     *dompayment.Event
	Order     *domorder.Order
	Duplicate bool
	Outcome   dompayment.LedgerStatus
}

type Options struct {
	Publisher domnotification.Publisher
	Logger    logrus.FieldLogger
	Metrics   Metrics
}

type Service struct {
	orders    OrderRepository
	ledger    dompayment.Ledger
	gateways  map[domorder.PaymentProvider]dompayment.Gateway
	publisher domnotification.Publisher
	metrics   Metrics
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewService(orders OrderRepository, ledger dompayment.Ledger, gateways []dompayment.Gateway, opts Options) *Service {
	s := &Service{
		orders:    orders,
		ledger:    ledger,
		gateways:  make(map[domorder.PaymentProvider]dompayment.Gateway),
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       time.Now,
	}
	for _, gw := range gateways {
		if gw != nil {
			s.gateways[gw.Provider()] = gw
		}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

func (s *Service) HandleWebhook(ctx context.Context, provider domorder.PaymentProvider, payload []byte, headers http.Header) (*Result, error) {
	gw, ok := s.gateways[provider]
	if !ok {
		return nil, domorder.ErrProviderUnavailable
	}

	evt, err := gw.ParseWebhook(payload, headers)
	if err != nil {
		s.observe(provider, "rejected")
		if errors.Is(err, dompayment.ErrInvalidSignature) || errors.Is(err, dompayment.ErrInvalidPayload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", dompayment.ErrInvalidPayload, err)
	}
	evt.Provider = provider

	log := s.log.WithFields(logrus.Fields{
		"provider":  provider,
		"event_id":  evt.ID,
		"type":      evt.RawType,
		"reference": evt.OrderReference,
	})

	duplicate, err := s.ledger.Record(ctx, &dompayment.LedgerEntry{
		Provider:   provider,
		EventID:    evt.ID,
		EventType:  evt.RawType,
		Status:     dompayment.LedgerReceived,
		ReceivedAt: s.now().UTC(),
	})
	if errors.Is(err, dompayment.ErrDeliveryInProgress) {
		log.Info("webhook delivery already in progress")
		s.observe(provider, "in_flight")
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("record webhook delivery: %w", err)
	}
	if duplicate {
		log.Info("duplicate webhook delivery acknowledged")
		s.observe(provider, "duplicate")
		return &Result{Event: evt, Duplicate: true}, nil
	}

	if evt.Type == dompayment.EventIgnored {
		s.complete(ctx, log, evt, dompayment.LedgerIgnored, nil, "")
		return &Result{Event: evt, Outcome: dompayment.LedgerIgnored}, nil
	}

	o, err := s.resolveOrder(ctx, evt)
	if err != nil {
		s.complete(ctx, log, evt, dompayment.LedgerFailed, nil, err.Error())
		return nil, err
	}
	log = log.WithField("order_id", o.ID)

	updated, outcome, err := s.apply(ctx, log, o, evt)
	if err != nil {
		status := dompayment.LedgerFailed
		if errors.Is(err, dompayment.ErrAmountMismatch) {
			status = dompayment.LedgerMismatch
		}
		s.complete(ctx, log, evt, status, &o.ID, err.Error())
		return nil, err
	}

	s.complete(ctx, log, evt, outcome, &o.ID, "")
	return &Result{Event: evt, Order: updated, Outcome: outcome}, nil
}

// Refund asks the provider to refund a paid order. The refund webhook
// completes the state change.
func (s *Service) Refund(ctx context.Context, orderID int64) (*domorder.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domorder.StatusPaid || o.PaymentStatus != domorder.PaymentPaid {
		return nil, domorder.ErrNotRefundable
	}
	gw, ok := s.gateways[o.PaymentProvider]
	if !ok {
		return nil, domorder.ErrProviderUnavailable
	}
	if err := gw.Refund(ctx, o); err != nil {
		return nil, fmt.Errorf("refund order %s: %w", o.Reference, err)
	}
	s.log.WithFields(logrus.Fields{"order_id": o.ID, "provider": o.PaymentProvider}).Info("refund requested")
	return o, nil
}

func (s *Service) resolveOrder(ctx context.Context, evt *dompayment.Event) (*domorder.Order, error) {
	if evt.OrderReference != "" {
		o, err := s.orders.GetByReference(ctx, evt.OrderReference)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, domorder.ErrOrderNotFound) {
			return nil, err
		}
	}
	for _, ref := range []string{evt.ProviderRef, evt.PaymentRef} {
		if ref == "" {
			continue
		}
		o, err := s.orders.GetByProviderRef(ctx, evt.Provider, ref)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, domorder.ErrOrderNotFound) {
			return nil, err
		}
	}
	return nil, domorder.ErrOrderNotFound
}

func (s *Service) apply(ctx context.Context, log logrus.FieldLogger, o *domorder.Order, evt *dompayment.Event) (*domorder.Order, dompayment.LedgerStatus, error) {
	at := evt.OccurredAt
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	switch evt.Type {
	case dompayment.EventPaymentSucceeded:
		if evt.Amount != domorder.MinorUnits(o.Total) || !strings.EqualFold(evt.Currency, o.Currency) {
			log.WithFields(logrus.Fields{
				"amount":         evt.Amount,
				"currency":       evt.Currency,
				"expected":       domorder.MinorUnits(o.Total),
				"order_currency": o.Currency,
			}).Error("payment amount mismatch")
			return nil, "", dompayment.ErrAmountMismatch
		}
		if o.Status == domorder.StatusPending {
			updated, err := s.orders.Transition(ctx, o.ID, domorder.StatusPaid, domorder.Change{
				From:          []domorder.Status{domorder.StatusPending},
				PaymentStatus: domorder.PaymentPaid,
				PaymentRef:    evt.PaymentRef,
				At:            at,
			})
			if err == nil {
				log.Info("order paid")
				s.publish(ctx, log, domnotification.KindOrderPaid, o.ID, at)
				return updated, dompayment.LedgerProcessed, nil
			}
			if !errors.Is(err, domorder.ErrInvalidTransition) {
				return nil, "", err
			}
			// the order moved on since it was read; act on its current state
			if o, err = s.orders.GetByID(ctx, o.ID); err != nil {
				return nil, "", err
			}
		}
		if o.Status == domorder.StatusCancelled {
			return s.refundLatePayment(ctx, log, o, evt)
		}
		return o, dompayment.LedgerProcessed, nil

	case dompayment.EventPaymentFailed:
		if o.Status != domorder.StatusPending || o.PaymentStatus == domorder.PaymentPaid {
			return o, dompayment.LedgerIgnored, nil
		}
		updated, err := s.orders.SetPaymentStatus(ctx, o.ID, domorder.PaymentFailed)
		if err != nil {
			return nil, "", err
		}
		log.Info("payment attempt failed")
		return updated, dompayment.LedgerProcessed, nil

	case dompayment.EventCheckoutExpired:
		if o.Status != domorder.StatusPending {
			return o, dompayment.LedgerIgnored, nil
		}
		updated, err := s.orders.Transition(ctx, o.ID, domorder.StatusCancelled, domorder.Change{
			From: []domorder.Status{domorder.StatusPending},
			At:   at,
		})
		if errors.Is(err, domorder.ErrInvalidTransition) {
			return o, dompayment.LedgerIgnored, nil
		}
		if err != nil {
			return nil, "", err
		}
		log.Info("checkout expired, order cancelled")
		s.publish(ctx, log, domnotification.KindOrderCancelled, o.ID, at)
		return updated, dompayment.LedgerProcessed, nil

	case dompayment.EventRefunded:
		if o.Status == domorder.StatusPending || o.Status == domorder.StatusPaid {
			updated, err := s.orders.Transition(ctx, o.ID, domorder.StatusCancelled, domorder.Change{
				From:          []domorder.Status{domorder.StatusPending, domorder.StatusPaid},
				PaymentStatus: domorder.PaymentRefunded,
				At:            at,
			})
			if err == nil {
				log.Info("order refunded and cancelled")
				s.publish(ctx, log, domnotification.KindOrderCancelled, o.ID, at)
				return updated, dompayment.LedgerProcessed, nil
			}
			if !errors.Is(err, domorder.ErrInvalidTransition) {
				return nil, "", err
			}
			if o, err = s.orders.GetByID(ctx, o.ID); err != nil {
				return nil, "", err
			}
		}
		if o.PaymentStatus == domorder.PaymentRefunded {
			return o, dompayment.LedgerProcessed, nil
		}
		updated, err := s.orders.SetPaymentStatus(ctx, o.ID, domorder.PaymentRefunded)
		if err != nil {
			return nil, "", err
		}
		log.Info("order refunded")
		return updated, dompayment.LedgerProcessed, nil
	}

	return o, dompayment.LedgerIgnored, nil
}

// refundLatePayment hands back money captured after the reservation was
// released. A failed refund fails the delivery so the provider retries it.
func (s *Service) refundLatePayment(ctx context.Context, log logrus.FieldLogger, o *domorder.Order, evt *dompayment.Event) (*domorder.Order, dompayment.LedgerStatus, error) {
	if o.PaymentStatus == domorder.PaymentRefunded {
		return o, dompayment.LedgerIgnored, nil
	}
	gw, ok := s.gateways[evt.Provider]
	if !ok {
		return nil, "", domorder.ErrProviderUnavailable
	}
	target := *o
	if evt.PaymentRef != "" {
		target.PaymentRef = evt.PaymentRef
	}
	if err := gw.Refund(ctx, &target); err != nil {
		log.WithError(err).Error("refund of payment for cancelled order failed")
		return nil, "", fmt.Errorf("refund late payment for order %s: %w", o.Reference, err)
	}
	log.Warn("payment received for cancelled order, refund requested")
	return o, dompayment.LedgerIgnored, nil
}

func (s *Service) publish(ctx context.Context, log logrus.FieldLogger, kind domnotification.Kind, orderID int64, at time.Time) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, domnotification.Event{Kind: kind, OrderID: orderID, OccurredAt: at}); err != nil {
		log.WithError(err).WithField("kind", kind).Error("failed to publish notification")
	}
}

func (s *Service) complete(ctx context.Context, log logrus.FieldLogger, evt *dompayment.Event, status dompayment.LedgerStatus, orderID *int64, errMsg string) {
	if err := s.ledger.Complete(ctx, evt.Provider, evt.ID, status, orderID, errMsg); err != nil {
		log.WithError(err).Error("failed to complete webhook ledger entry")
	}
	s.observe(evt.Provider, strings.ToLower(string(status)))
}

func (s *Service) observe(provider domorder.PaymentProvider, outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookProcessed(strings.ToLower(string(provider)), outcome)
	}
}
