package sqlstore

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

type OrderRepository struct {
	store *Store
}

func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store}
}

type orderRow struct {
	ID              int64           `db:"id"`
	Reference       string          `db:"reference"`
	UserID          int64           `db:"user_id"`
	Status          string          `db:"status"`
	PaymentProvider string          `db:"payment_provider"`
	PaymentStatus   string          `db:"payment_status"`
	ProviderRef     string          `db:"provider_ref"`
	PaymentRef      string          `db:"payment_ref"`
	Currency        string          `db:"currency"`
	Subtotal        decimal.Decimal `db:"subtotal"`
	ShippingFee     decimal.Decimal `db:"shipping_fee"`
	Total           decimal.Decimal `db:"total"`
	ShipName        string          `db:"ship_name"`
	ShipEmail       string          `db:"ship_email"`
	ShipPhone       string          `db:"ship_phone"`
	ShipLine1       string          `db:"ship_line1"`
	ShipLine2       string          `db:"ship_line2"`
	ShipCity        string          `db:"ship_city"`
	ShipProvince    string          `db:"ship_province"`
	ShipPostalCode  string          `db:"ship_postal_code"`
	ShipCountry     string          `db:"ship_country"`
	TrackingNumber  string          `db:"tracking_number"`
	ReservedUntil   sql.NullTime    `db:"reserved_until"`
	PaidAt          sql.NullTime    `db:"paid_at"`
	ShippedAt       sql.NullTime    `db:"shipped_at"`
	CancelledAt     sql.NullTime    `db:"cancelled_at"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (r orderRow) toDomain() *domorder.Order {
	return &domorder.Order{
		ID:              r.ID,
		Reference:       r.Reference,
		UserID:          r.UserID,
		Status:          domorder.Status(r.Status),
		PaymentProvider: domorder.PaymentProvider(r.PaymentProvider),
		PaymentStatus:   domorder.PaymentStatus(r.PaymentStatus),
		ProviderRef:     r.ProviderRef,
		PaymentRef:      r.PaymentRef,
		Currency:        r.Currency,
		Subtotal:        r.Subtotal,
		ShippingFee:     r.ShippingFee,
		Total:           r.Total,
		Shipping: domorder.ShippingDetails{
			Name:       r.ShipName,
			Email:      r.ShipEmail,
			Phone:      r.ShipPhone,
			Line1:      r.ShipLine1,
			Line2:      r.ShipLine2,
			City:       r.ShipCity,
			Province:   r.ShipProvince,
			PostalCode: r.ShipPostalCode,
			Country:    r.ShipCountry,
		},
		TrackingNumber: r.TrackingNumber,
		Items:          []domorder.OrderItem{},
		ReservedUntil:  nullTimePtr(r.ReservedUntil),
		PaidAt:         nullTimePtr(r.PaidAt),
		ShippedAt:      nullTimePtr(r.ShippedAt),
		CancelledAt:    nullTimePtr(r.CancelledAt),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type orderItemRow struct {
	ID             int64           `db:"id"`
	OrderID        int64           `db:"order_id"`
	ArtworkID      int64           `db:"artwork_id"`
	VariantID      int64           `db:"variant_id"`
	Title          string          `db:"title"`
	VariantName    string          `db:"variant_name"`
	UnitPrice      decimal.Decimal `db:"unit_price"`
	Quantity       int64           `db:"quantity"`
	ProcessingDays int             `db:"processing_days"`
}

func (r orderItemRow) toDomain() domorder.OrderItem {
	return domorder.OrderItem{
		ID:             r.ID,
		OrderID:        r.OrderID,
		ArtworkID:      r.ArtworkID,
		VariantID:      r.VariantID,
		Title:          r.Title,
		VariantName:    r.VariantName,
		UnitPrice:      r.UnitPrice,
		Quantity:       r.Quantity,
		ProcessingDays: r.ProcessingDays,
	}
}

const orderColumns = `id, reference, user_id, status, payment_provider, payment_status, provider_ref, payment_ref,
        currency, subtotal, shipping_fee, total, ship_name, ship_email, ship_phone, ship_line1, ship_line2,
        ship_city, ship_province, ship_postal_code, ship_country, tracking_number, reserved_until, paid_at,
        shipped_at, cancelled_at, created_at, updated_at`

type stockRow struct {
	Stock    int64 `db:"stock"`
	IsActive bool  `db:"is_active"`
}

// Create inserts the order and reserves stock for its items in one
// transaction. Artwork rows are locked in id order.
func (r *OrderRepository) Create(ctx context.Context, o *domorder.Order) (*domorder.Order, error) {
	if len(o.Items) == 0 {
		return nil, domorder.ErrEmptyOrderItems
	}

	wanted := make(map[int64]int64)
	for _, item := range o.Items {
		wanted[item.ArtworkID] += item.Quantity
	}
	ids := make([]int64, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var orderID int64
	err := r.store.withTx(ctx, func(tx *sqlx.Tx) error {
		now := r.store.timestamp()
		for _, artworkID := range ids {
			var row stockRow
			err := tx.GetContext(ctx, &row, r.store.rebind(`
                SELECT stock, is_active FROM artworks WHERE id = ? FOR UPDATE
            `), artworkID)
			if err != nil {
				if isNoRows(err) {
					return domartwork.ErrArtworkNotFound
				}
				return err
			}
			if !row.IsActive {
				return domartwork.ErrArtworkUnavailable
			}
			if row.Stock < wanted[artworkID] {
				return domartwork.ErrOutOfStock
			}
			if _, err := tx.ExecContext(ctx, r.store.rebind(`
                UPDATE artworks SET stock = stock - ?, updated_at = ? WHERE id = ?
            `), wanted[artworkID], now, artworkID); err != nil {
				return err
			}
		}

		var reservedUntil sql.NullTime
		if o.ReservedUntil != nil {
			reservedUntil = sql.NullTime{Time: o.ReservedUntil.UTC(), Valid: true}
		}
		id, err := r.store.insert(ctx, tx, `
            INSERT INTO orders (reference, user_id, status, payment_provider, payment_status, provider_ref,
                payment_ref, currency, subtotal, shipping_fee, total, ship_name, ship_email, ship_phone,
                ship_line1, ship_line2, ship_city, ship_province, ship_postal_code, ship_country,
                tracking_number, reserved_until, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        `, o.Reference, o.UserID, o.Status, o.PaymentProvider, o.PaymentStatus, o.ProviderRef,
			o.PaymentRef, o.Currency, o.Subtotal, o.ShippingFee, o.Total, o.Shipping.Name, o.Shipping.Email,
			o.Shipping.Phone, o.Shipping.Line1, o.Shipping.Line2, o.Shipping.City, o.Shipping.Province,
			o.Shipping.PostalCode, o.Shipping.Country, o.TrackingNumber, reservedUntil, now, now)
		if err != nil {
			return err
		}
		orderID = id

		for _, item := range o.Items {
			if _, err := tx.ExecContext(ctx, r.store.rebind(`
                INSERT INTO order_items (order_id, artwork_id, variant_id, title, variant_name, unit_price,
                    quantity, processing_days)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            `), orderID, item.ArtworkID, item.VariantID, item.Title, item.VariantName, item.UnitPrice,
				item.Quantity, item.ProcessingDays); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, orderID)
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domorder.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

func (r *OrderRepository) GetByReference(ctx context.Context, reference string) (*domorder.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE reference = ?`, reference)
}

func (r *OrderRepository) GetByProviderRef(ctx context.Context, provider domorder.PaymentProvider, ref string) (*domorder.Order, error) {
	if ref == "" {
		return nil, domorder.ErrOrderNotFound
	}
	return r.getOne(ctx, `
        SELECT `+orderColumns+` FROM orders
        WHERE payment_provider = ? AND (provider_ref = ? OR payment_ref = ?)
        ORDER BY id DESC LIMIT 1
    `, provider, ref, ref)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, args ...any) (*domorder.Order, error) {
	var row orderRow
	if err := r.store.db.GetContext(ctx, &row, r.store.rebind(query), args...); err != nil {
		if isNoRows(err) {
			return nil, domorder.ErrOrderNotFound
		}
		return nil, err
	}
	orders, err := r.withItems(ctx, []orderRow{row})
	if err != nil {
		return nil, err
	}
	return orders[0], nil
}

func (r *OrderRepository) List(ctx context.Context, filter domorder.ListFilter) ([]*domorder.Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *filter.UserID)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id DESC`
	query, args = limitClause(query, args, filter.Limit, filter.Offset)

	var rows []orderRow
	if err := r.store.db.SelectContext(ctx, &rows, r.store.rebind(query), args...); err != nil {
		return nil, err
	}
	return r.withItems(ctx, rows)
}

func (r *OrderRepository) SetProviderRef(ctx context.Context, id int64, ref string) error {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(`
        UPDATE orders SET provider_ref = ?, updated_at = ? WHERE id = ?
    `), ref, r.store.timestamp(), id)
	return err
}

func (r *OrderRepository) SetPaymentStatus(ctx context.Context, id int64, status domorder.PaymentStatus) (*domorder.Order, error) {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(`
        UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?
    `), status, r.store.timestamp(), id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

type orderStateRow struct {
	Status string `db:"status"`
}

// Transition moves an order to a new status under a row lock, applying the
// change's side data and returning reserved stock when the move cancels a
// pending or paid order.
func (r *OrderRepository) Transition(ctx context.Context, id int64, to domorder.Status, change domorder.Change) (*domorder.Order, error) {
	at := change.At
	if at.IsZero() {
		at = r.store.timestamp()
	}
	at = at.UTC()

	err := r.store.withTx(ctx, func(tx *sqlx.Tx) error {
		var state orderStateRow
		if err := tx.GetContext(ctx, &state, r.store.rebind(`SELECT status FROM orders WHERE id = ? FOR UPDATE`), id); err != nil {
			if isNoRows(err) {
				return domorder.ErrOrderNotFound
			}
			return err
		}
		from := domorder.Status(state.Status)
		if !change.Permits(from) || !domorder.CanTransition(from, to) {
			return domorder.ErrInvalidTransition
		}

		if domorder.Restocks(from, to) {
			var items []orderItemRow
			if err := tx.SelectContext(ctx, &items, r.store.rebind(`
                SELECT id, order_id, artwork_id, variant_id, title, variant_name, unit_price, quantity, processing_days
                FROM order_items WHERE order_id = ? ORDER BY artwork_id
            `), id); err != nil {
				return err
			}
			for _, item := range items {
				if _, err := tx.ExecContext(ctx, r.store.rebind(`
                    UPDATE artworks SET stock = stock + ?, updated_at = ? WHERE id = ?
                `), item.Quantity, at, item.ArtworkID); err != nil {
					return err
				}
			}
		}

		sets := []string{"status = ?", "updated_at = ?"}
		args := []any{to, at}
		if change.PaymentStatus != "" {
			sets = append(sets, "payment_status = ?")
			args = append(args, change.PaymentStatus)
		}
		if change.PaymentRef != "" {
			sets = append(sets, "payment_ref = ?")
			args = append(args, change.PaymentRef)
		}
		if change.TrackingNumber != "" {
			sets = append(sets, "tracking_number = ?")
			args = append(args, change.TrackingNumber)
		}
		if from != to {
			switch to {
			case domorder.StatusPaid:
				sets = append(sets, "paid_at = ?", "reserved_until = NULL")
				args = append(args, at)
			case domorder.StatusShipped:
				sets = append(sets, "shipped_at = ?")
				args = append(args, at)
			case domorder.StatusCancelled:
				sets = append(sets, "cancelled_at = ?", "reserved_until = NULL")
				args = append(args, at)
			}
		}
		args = append(args, id)

		_, err := tx.ExecContext(ctx, r.store.rebind(`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *OrderRepository) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*domorder.Order, error) {
	query, args := limitClause(`
        SELECT `+orderColumns+` FROM orders
        WHERE status = ? AND reserved_until IS NOT NULL AND reserved_until < ?
        ORDER BY reserved_until`, []any{domorder.StatusPending, now.UTC()}, limit, 0)

	var rows []orderRow
	if err := r.store.db.SelectContext(ctx, &rows, r.store.rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]*domorder.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type statusStatsRow struct {
	Status string          `db:"status"`
	Count  int64           `db:"order_count"`
	Total  decimal.Decimal `db:"order_total"`
}

// Stats counts orders per status; revenue is what was paid and not cancelled.
func (r *OrderRepository) Stats(ctx context.Context) (*domorder.Stats, error) {
	var rows []statusStatsRow
	err := r.store.db.SelectContext(ctx, &rows, `
        SELECT status, COUNT(*) AS order_count, COALESCE(SUM(total), 0) AS order_total
        FROM orders GROUP BY status
    `)
	if err != nil {
		return nil, err
	}

	stats := &domorder.Stats{Revenue: decimal.Zero, CountByStatus: make(map[domorder.Status]int64)}
	for _, row := range rows {
		status := domorder.Status(row.Status)
		stats.CountByStatus[status] = row.Count
		if status == domorder.StatusPaid || status == domorder.StatusShipped {
			stats.Revenue = stats.Revenue.Add(row.Total)
		}
	}
	return stats, nil
}

func (r *OrderRepository) withItems(ctx context.Context, rows []orderRow) ([]*domorder.Order, error) {
	out := make([]*domorder.Order, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	byID := make(map[int64]*domorder.Order, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		o := row.toDomain()
		out = append(out, o)
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	query, args, err := sqlx.In(`
        SELECT id, order_id, artwork_id, variant_id, title, variant_name, unit_price, quantity, processing_days
        FROM order_items WHERE order_id IN (?) ORDER BY id
    `, ids)
	if err != nil {
		return nil, err
	}
	var items []orderItemRow
	if err := r.store.db.SelectContext(ctx, &items, r.store.rebind(query), args...); err != nil {
		return nil, err
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item.toDomain())
		}
	}
	return out, nil
}
