package payment

import (
	"time"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

type EventType string

const (
	EventPaymentSucceeded EventType = "PAYMENT_SUCCEEDED"
	EventPaymentFailed    EventType = "PAYMENT_FAILED"
	EventCheckoutExpired  EventType = "CHECKOUT_EXPIRED"
	EventRefunded         EventType = "REFUNDED"
	EventIgnored          EventType = "IGNORED"
)

// Event is a verified provider callback normalised onto the order model.
// Amount is in minor units.
type Event struct {
	Provider       domorder.PaymentProvider
	ID             string
	Type           EventType
	RawType        string
	OrderReference string
	ProviderRef    string
	PaymentRef     string
	Amount         int64
	Currency       string
	OccurredAt     time.Time
}
