package payment

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrAmountMismatch   = errors.New("payment amount does not match order total")
	// ErrDeliveryInProgress means another delivery of the same event holds
	// the ledger lease; the provider should retry later.
	ErrDeliveryInProgress = errors.New("webhook delivery already in progress")
)
