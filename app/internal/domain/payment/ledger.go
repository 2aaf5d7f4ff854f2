package payment

import (
	"context"
	"time"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

type LedgerStatus string

// DeliveryLease is how long a RECEIVED entry blocks redeliveries of the same
// event. Older RECEIVED entries belong to a delivery that never completed.
const DeliveryLease = 2 * time.Minute

const (
	LedgerReceived  LedgerStatus = "RECEIVED"
	LedgerProcessed LedgerStatus = "PROCESSED"
	LedgerIgnored   LedgerStatus = "IGNORED"
	LedgerMismatch  LedgerStatus = "MISMATCH"
	LedgerFailed    LedgerStatus = "FAILED"
)

// Final reports whether a delivery in this status must not be processed again.
func (s LedgerStatus) Final() bool {
	switch s {
	case LedgerProcessed, LedgerIgnored, LedgerMismatch:
		return true
	default:
		return false
	}
}

// InFlight reports whether an entry received at receivedAt is still being
// processed at now.
func InFlight(status LedgerStatus, receivedAt, now time.Time) bool {
	return status == LedgerReceived && now.Sub(receivedAt) < DeliveryLease
}

type LedgerEntry struct {
	Provider    domorder.PaymentProvider
	EventID     string
	EventType   string
	OrderID     *int64
	Status      LedgerStatus
	Error       string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// Ledger deduplicates webhook deliveries by (provider, event id).
type Ledger interface {
	// Record stores a RECEIVED entry. duplicate is true when the event was
	// already handled to a final status. A RECEIVED entry younger than
	// DeliveryLease yields ErrDeliveryInProgress; stale RECEIVED and FAILED
	// entries are reopened.
	Record(ctx context.Context, e *LedgerEntry) (duplicate bool, err error)
	Complete(ctx context.Context, provider domorder.PaymentProvider, eventID string, status LedgerStatus, orderID *int64, errMsg string) error
}
