package payment

import (
	"context"
	"net/http"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

type CheckoutRequest struct {
	Order      *domorder.Order
	SuccessURL string
	CancelURL  string
	FailureURL string
}

type CheckoutSession struct {
	ProviderRef string
	RedirectURL string
}

// Gateway is one payment provider: hosted checkout, refunds and signed
// webhook parsing.
type Gateway interface {
	Provider() domorder.PaymentProvider
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	Refund(ctx context.Context, o *domorder.Order) error
	ParseWebhook(payload []byte, headers http.Header) (*Event, error)
}
