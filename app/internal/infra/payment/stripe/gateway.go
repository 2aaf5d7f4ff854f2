package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
)

const (
	signatureHeader  = "Stripe-Signature"
	metadataOrderRef = "order_reference"

	// Stripe refuses checkout sessions that expire sooner than this.
	minSessionLifetime = 31 * time.Minute
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	// Tolerance bounds the age of a signed webhook; zero means five minutes.
	Tolerance time.Duration
	// Backends overrides the API endpoints, mainly for tests.
	Backends *stripeapi.Backends
	Logger   logrus.FieldLogger
}

// Gateway is the Stripe Checkout integration.
type Gateway struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
	log           logrus.FieldLogger
	now           func() time.Time
}

func New(cfg Config) *Gateway {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	backends := cfg.Backends
	if backends == nil {
		backends = stripeapi.NewBackendsWithConfig(&stripeapi.BackendConfig{
			LeveledLogger: log.WithField("component", "stripe"),
		})
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Gateway{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		tolerance:     tolerance,
		log:           log,
		now:           time.Now,
	}
}

func (g *Gateway) Provider() domorder.PaymentProvider {
	return domorder.ProviderStripe
}

func (g *Gateway) CreateCheckout(ctx context.Context, req dompayment.CheckoutRequest) (*dompayment.CheckoutSession, error) {
	o := req.Order
	currency := strings.ToLower(o.Currency)

	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL:        stripeapi.String(req.SuccessURL),
		CancelURL:         stripeapi.String(req.CancelURL),
		ClientReferenceID: stripeapi.String(o.Reference),
		Metadata:          map[string]string{metadataOrderRef: o.Reference},
		PaymentIntentData: &stripeapi.CheckoutSessionPaymentIntentDataParams{
			Description: stripeapi.String("Order " + o.Reference),
			Metadata:    map[string]string{metadataOrderRef: o.Reference},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + o.Reference)
	if o.Shipping.Email != "" {
		params.CustomerEmail = stripeapi.String(o.Shipping.Email)
	}
	if o.ReservedUntil != nil {
		expires := *o.ReservedUntil
		if floor := g.now().Add(minSessionLifetime); expires.Before(floor) {
			expires = floor
		}
		params.ExpiresAt = stripeapi.Int64(expires.Unix())
	}

	for _, item := range o.Items {
		name := item.Title
		if item.VariantName != "" {
			name += " (" + item.VariantName + ")"
		}
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(item.Quantity),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripeapi.String(currency),
				UnitAmount:  stripeapi.Int64(domorder.MinorUnits(item.UnitPrice)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripeapi.String(name)},
			},
		})
	}
	if o.ShippingFee.IsPositive() {
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(1),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripeapi.String(currency),
				UnitAmount:  stripeapi.Int64(domorder.MinorUnits(o.ShippingFee)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripeapi.String("Shipping")},
			},
		})
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &dompayment.CheckoutSession{ProviderRef: session.ID, RedirectURL: session.URL}, nil
}

// Refund refunds the order's payment intent in full. Orders paid before the
// intent id was recorded are resolved through their checkout session.
func (g *Gateway) Refund(ctx context.Context, o *domorder.Order) error {
	intentID := o.PaymentRef
	if intentID == "" {
		if o.ProviderRef == "" {
			return fmt.Errorf("stripe: order %s has no checkout session", o.Reference)
		}
		params := &stripeapi.CheckoutSessionParams{}
		params.Context = ctx
		session, err := g.api.CheckoutSessions.Get(o.ProviderRef, params)
		if err != nil {
			return fmt.Errorf("stripe: load checkout session: %w", err)
		}
		if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
			return fmt.Errorf("stripe: checkout session %s has no payment intent", session.ID)
		}
		intentID = session.PaymentIntent.ID
	}

	params := &stripeapi.RefundParams{
		PaymentIntent: stripeapi.String(intentID),
		Reason:        stripeapi.String(string(stripeapi.RefundReasonRequestedByCustomer)),
		Metadata:      map[string]string{metadataOrderRef: o.Reference},
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + o.Reference)
	if _, err := g.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe: refund: %w", err)
	}
	return nil
}

func (g *Gateway) ParseWebhook(payload []byte, headers http.Header) (*dompayment.Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, headers.Get(signatureHeader), g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", dompayment.ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", dompayment.ErrInvalidPayload, err)
	}
	if evt.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", dompayment.ErrInvalidPayload, evt.ID)
	}

	out := &dompayment.Event{
		Provider:   domorder.ProviderStripe,
		ID:         evt.ID,
		Type:       dompayment.EventIgnored,
		RawType:    string(evt.Type),
		OccurredAt: time.Unix(evt.Created, 0).UTC(),
	}

	switch evt.Type {
	case stripeapi.EventTypeCheckoutSessionCompleted,
		stripeapi.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripeapi.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripeapi.EventTypeCheckoutSessionExpired:
		var session stripeapi.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", dompayment.ErrInvalidPayload, err)
		}
		out.OrderReference = session.ClientReferenceID
		if out.OrderReference == "" {
			out.OrderReference = session.Metadata[metadataOrderRef]
		}
		out.ProviderRef = session.ID
		if session.PaymentIntent != nil {
			out.PaymentRef = session.PaymentIntent.ID
		}
		out.Amount = session.AmountTotal
		out.Currency = strings.ToUpper(string(session.Currency))

		switch evt.Type {
		case stripeapi.EventTypeCheckoutSessionExpired:
			out.Type = dompayment.EventCheckoutExpired
		case stripeapi.EventTypeCheckoutSessionAsyncPaymentFailed:
			out.Type = dompayment.EventPaymentFailed
		default:
			// completed sessions with delayed payment methods settle later
			if session.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusPaid {
				out.Type = dompayment.EventPaymentSucceeded
			}
		}

	case stripeapi.EventTypeChargeRefunded:
		var charge stripeapi.Charge
		if err := json.Unmarshal(evt.Data.Raw, &charge); err != nil {
			return nil, fmt.Errorf("%w: charge: %v", dompayment.ErrInvalidPayload, err)
		}
		out.OrderReference = charge.Metadata[metadataOrderRef]
		if charge.PaymentIntent != nil {
			out.PaymentRef = charge.PaymentIntent.ID
		}
		out.Amount = charge.AmountRefunded
		out.Currency = strings.ToUpper(string(charge.Currency))
		if charge.Refunded {
			out.Type = dompayment.EventRefunded
		} else {
			g.log.WithFields(logrus.Fields{"event_id": evt.ID, "charge": charge.ID}).Info("partial refund ignored")
		}
	}

	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
