package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
)

type ledgerStateRow struct {
	Status     string    `db:"status"`
	ReceivedAt time.Time `db:"received_at"`
}

// WebhookLedger is the delivery table behind webhook deduplication.
type WebhookLedger struct {
	store *Store
}

func NewWebhookLedger(store *Store) *WebhookLedger {
	return &WebhookLedger{store: store}
}

func (l *WebhookLedger) Record(ctx context.Context, e *dompayment.LedgerEntry) (bool, error) {
	var duplicate bool
	err := l.store.withTx(ctx, func(tx *sqlx.Tx) error {
		var state ledgerStateRow
		err := tx.GetContext(ctx, &state, l.store.rebind(`
            SELECT status, received_at FROM webhook_events WHERE provider = ? AND event_id = ? FOR UPDATE
        `), e.Provider, e.EventID)
		switch {
		case err == nil:
			status := dompayment.LedgerStatus(state.Status)
			if status.Final() {
				duplicate = true
				return nil
			}
			if dompayment.InFlight(status, state.ReceivedAt, e.ReceivedAt) {
				return dompayment.ErrDeliveryInProgress
			}
			_, err = tx.ExecContext(ctx, l.store.rebind(`
                UPDATE webhook_events SET status = ?, received_at = ?, last_error = ''
                WHERE provider = ? AND event_id = ?
            `), dompayment.LedgerReceived, e.ReceivedAt, e.Provider, e.EventID)
			return err
		case isNoRows(err):
			_, err = tx.ExecContext(ctx, l.store.rebind(`
                INSERT INTO webhook_events (provider, event_id, event_type, status, last_error, received_at)
                VALUES (?, ?, ?, ?, '', ?)
            `), e.Provider, e.EventID, e.EventType, dompayment.LedgerReceived, e.ReceivedAt)
			return err
		default:
			return err
		}
	})
	if err != nil && isUniqueViolation(err) {
		// a concurrent delivery of the same event won the insert
		return true, nil
	}
	return duplicate, err
}

func (l *WebhookLedger) Complete(ctx context.Context, provider domorder.PaymentProvider, eventID string, status dompayment.LedgerStatus, orderID *int64, errMsg string) error {
	var oid sql.NullInt64
	if orderID != nil {
		oid = sql.NullInt64{Int64: *orderID, Valid: true}
	}
	_, err := l.store.db.ExecContext(ctx, l.store.rebind(`
        UPDATE webhook_events SET status = ?, order_id = ?, last_error = ?, processed_at = ?
        WHERE provider = ? AND event_id = ?
    `), status, oid, errMsg, l.store.timestamp(), provider, eventID)
	return err
}
