package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	domcart "example.com/gallery-storefront/app/internal/domain/cart"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*domcart.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *domorder.Order) (*domorder.Order, error)
	SetProviderRef(ctx context.Context, id int64, ref string) error
	Transition(ctx context.Context, id int64, to domorder.Status, change domorder.Change) (*domorder.Order, error)
}

type Metrics interface {
	OrderPlaced(provider string)
}

type Input struct {
	Provider domorder.PaymentProvider
	Shipping domorder.ShippingDetails
}

type Result struct {
	Order       *domorder.Order
	RedirectURL string
}

type Options struct {
	Shipping       domorder.ShippingPolicy
	Currency       string
	ReservationTTL time.Duration
	PublicBaseURL  string
	Logger         logrus.FieldLogger
	Metrics        Metrics
}

type Service struct {
	carts    CartService
	orders   OrderRepository
	gateways map[domorder.PaymentProvider]dompayment.Gateway
	opts     Options
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(carts CartService, orders OrderRepository, gateways []dompayment.Gateway, opts Options) *Service {
	s := &Service{
		carts:    carts,
		orders:   orders,
		gateways: make(map[domorder.PaymentProvider]dompayment.Gateway),
		opts:     opts,
		log:      opts.Logger,
		now:      time.Now,
	}
	for _, gw := range gateways {
		if gw != nil {
			s.gateways[gw.Provider()] = gw
		}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.opts.Currency == "" {
		s.opts.Currency = "ZAR"
	}
	if s.opts.ReservationTTL <= 0 {
		s.opts.ReservationTTL = 30 * time.Minute
	}
	return s
}

// Providers lists the configured payment providers.
func (s *Service) Providers() []domorder.PaymentProvider {
	out := make([]domorder.PaymentProvider, 0, len(s.gateways))
	for _, p := range []domorder.PaymentProvider{domorder.ProviderStripe, domorder.ProviderYoco} {
		if _, ok := s.gateways[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) Checkout(ctx context.Context, userID int64, in Input) (*Result, error) {
	if !in.Provider.IsValid() {
		return nil, domorder.ErrInvalidPayment
	}
	gw, ok := s.gateways[in.Provider]
	if !ok {
		return nil, domorder.ErrProviderUnavailable
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domorder.ErrEmptyOrderItems
	}

	now := s.now().UTC()
	draft := &domorder.Order{
		Reference:       domorder.NewReference(),
		UserID:          userID,
		Status:          domorder.StatusPending,
		PaymentProvider: in.Provider,
		PaymentStatus:   domorder.PaymentUnpaid,
		Currency:        s.opts.Currency,
		Shipping:        in.Shipping,
		Subtotal:        decimal.Zero,
		Items:           make([]domorder.OrderItem, 0, len(cart.Items)),
	}
	for _, line := range cart.Items {
		if !line.Available {
			return nil, fmt.Errorf("%w: %q is no longer available in the requested quantity", domorder.ErrCheckoutValidation, lineName(line))
		}
		draft.Items = append(draft.Items, domorder.OrderItem{
			ArtworkID:      line.ArtworkID,
			VariantID:      line.VariantID,
			Title:          line.Title,
			VariantName:    line.VariantName,
			UnitPrice:      line.UnitPrice,
			Quantity:       line.Quantity,
			ProcessingDays: line.ProcessingDays,
		})
		draft.Subtotal = draft.Subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
	}
	draft.ShippingFee = s.opts.Shipping.Fee(in.Shipping.Country, draft.Subtotal)
	draft.Total = draft.Subtotal.Add(draft.ShippingFee)
	reservedUntil := now.Add(s.opts.ReservationTTL)
	draft.ReservedUntil = &reservedUntil

	order, err := s.orders.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	log := s.log.WithFields(logrus.Fields{"order_id": order.ID, "reference": order.Reference, "provider": in.Provider})

	session, err := gw.CreateCheckout(ctx, dompayment.CheckoutRequest{
		Order:      order,
		SuccessURL: s.returnURL("success", order.Reference),
		CancelURL:  s.returnURL("cancel", order.Reference),
		FailureURL: s.returnURL("failed", order.Reference),
	})
	if err != nil {
		log.WithError(err).Error("payment session creation failed, releasing reservation")
		if _, cerr := s.orders.Transition(ctx, order.ID, domorder.StatusCancelled, domorder.Change{At: s.now().UTC()}); cerr != nil {
			log.WithError(cerr).Error("failed to cancel order after payment session error")
		}
		return nil, fmt.Errorf("create %s checkout: %w", strings.ToLower(string(in.Provider)), err)
	}

	if err := s.orders.SetProviderRef(ctx, order.ID, session.ProviderRef); err != nil {
		return nil, err
	}
	order.ProviderRef = session.ProviderRef

	if err := s.carts.Clear(ctx, userID); err != nil {
		log.WithError(err).Warn("failed to clear cart after checkout")
	}

	if s.opts.Metrics != nil {
		s.opts.Metrics.OrderPlaced(string(in.Provider))
	}
	log.Info("order placed")

	return &Result{Order: order, RedirectURL: session.RedirectURL}, nil
}

func (s *Service) returnURL(outcome, reference string) string {
	base := strings.TrimRight(s.opts.PublicBaseURL, "/")
	return fmt.Sprintf("%s/checkout/%s?reference=%s", base, outcome, url.QueryEscape(reference))
}

func lineName(line domcart.DetailedItem) string {
	if line.Title == "" {
		return fmt.Sprintf("artwork %d", line.ArtworkID)
	}
	if line.VariantName != "" {
		return line.Title + " (" + line.VariantName + ")"
	}
	return line.Title
}
