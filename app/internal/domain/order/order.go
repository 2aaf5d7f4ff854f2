package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusCancelled:
		return true
	default:
		return false
	}
}

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
// Staying in the same status is always allowed so replayed events are no-ops.
func CanTransition(from, to Status) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Restocks reports whether moving from `from` to CANCELLED hands reserved
// stock back to the catalogue.
func Restocks(from, to Status) bool {
	return to == StatusCancelled && (from == StatusPending || from == StatusPaid)
}

type PaymentProvider string

const (
	ProviderStripe PaymentProvider = "STRIPE"
	ProviderYoco   PaymentProvider = "YOCO"
)

func (p PaymentProvider) IsValid() bool {
	switch p {
	case ProviderStripe, ProviderYoco:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type ShippingDetails struct {
	Name       string
	Email      string
	Phone      string
	Line1      string
	Line2      string
	City       string
	Province   string
	PostalCode string
	Country    string
}

type Order struct {
	ID              int64
	Reference       string
	UserID          int64
	Status          Status
	PaymentProvider PaymentProvider
	PaymentStatus   PaymentStatus
	ProviderRef     string
	PaymentRef      string
	Currency        string
	Subtotal        decimal.Decimal
	ShippingFee     decimal.Decimal
	Total           decimal.Decimal
	Shipping        ShippingDetails
	TrackingNumber  string
	Items           []OrderItem
	ReservedUntil   *time.Time
	PaidAt          *time.Time
	ShippedAt       *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID             int64
	OrderID        int64
	ArtworkID      int64
	VariantID      int64
	Title          string
	VariantName    string
	UnitPrice      decimal.Decimal
	Quantity       int64
	ProcessingDays int
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Change carries the side data applied together with a status transition.
// When From is set the transition only applies if the locked order is in
// one of those statuses.
type Change struct {
	From           []Status
	PaymentStatus  PaymentStatus
	PaymentRef     string
	TrackingNumber string
	At             time.Time
}

// Permits reports whether the guard in From accepts the current status.
func (c Change) Permits(current Status) bool {
	if len(c.From) == 0 {
		return true
	}
	for _, s := range c.From {
		if s == current {
			return true
		}
	}
	return false
}

type ListFilter struct {
	Status *Status
	UserID *int64
	Limit  int
	Offset int
}

type Stats struct {
	Revenue       decimal.Decimal
	CountByStatus map[Status]int64
}

// NewReference returns a short human-friendly order number such as ART-1F4C9A0B.
func NewReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ART-" + strings.ToUpper(id[:8])
}

// MinorUnits converts an amount to cents for payment providers.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
