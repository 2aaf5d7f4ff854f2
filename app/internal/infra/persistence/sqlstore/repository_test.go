package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
	domcart "example.com/gallery-storefront/app/internal/domain/cart"
	domcategory "example.com/gallery-storefront/app/internal/domain/category"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
	domuser "example.com/gallery-storefront/app/internal/domain/user"
)

var fixedTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func orderRows(id int64, status domorder.Status) *sqlmock.Rows {
	return sqlmock.NewRows(columns(orderColumns)).AddRow(
		id, "ART-0000BEEF", int64(7), string(status), "STRIPE", "UNPAID", "cs_1", "",
		"ZAR", "7701.00", "150.00", "7851.00", "Thandi", "thandi@example.com", "", "1 Long St", "",
		"Cape Town", "Western Cape", "8001", "ZA", "", fixedTime.Add(30*time.Minute), nil,
		nil, nil, fixedTime, fixedTime,
	)
}

func orderItemRows(orderID int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_id", "artwork_id", "variant_id", "title", "variant_name", "unit_price", "quantity", "processing_days"}).
		AddRow(int64(1), orderID, int64(1), int64(11), "Karoo Dusk", "Oak frame", "5300.00", int64(1), 7).
		AddRow(int64(2), orderID, int64(2), int64(0), "Harbour Light", "", "1200.50", int64(2), 3)
}

func draftOrder() *domorder.Order {
	until := fixedTime.Add(30 * time.Minute)
	return &domorder.Order{
		Reference:       "ART-0000BEEF",
		UserID:          7,
		Status:          domorder.StatusPending,
		PaymentProvider: domorder.ProviderStripe,
		PaymentStatus:   domorder.PaymentUnpaid,
		Currency:        "ZAR",
		Subtotal:        decimal.RequireFromString("7701.00"),
		ShippingFee:     decimal.RequireFromString("150.00"),
		Total:           decimal.RequireFromString("7851.00"),
		ReservedUntil:   &until,
		Items: []domorder.OrderItem{
			{ArtworkID: 2, Title: "Harbour Light", UnitPrice: decimal.RequireFromString("1200.50"), Quantity: 2},
			{ArtworkID: 1, VariantID: 11, Title: "Karoo Dusk", UnitPrice: decimal.RequireFromString("5300.00"), Quantity: 1},
		},
	}
}

func TestOrderRepository_CreateReservesStock(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewOrderRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT stock, is_active FROM artworks WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock", "is_active"}).AddRow(int64(1), true))
	mock.ExpectExec(q("UPDATE artworks SET stock = stock - $1")).
		WithArgs(int64(1), sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT stock, is_active FROM artworks WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"stock", "is_active"}).AddRow(int64(5), true))
	mock.ExpectExec(q("UPDATE artworks SET stock = stock - $1")).
		WithArgs(int64(2), sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO orders \(.*RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q("FROM orders WHERE id = $1")).WithArgs(int64(10)).WillReturnRows(orderRows(10, domorder.StatusPending))
	mock.ExpectQuery(q("FROM order_items WHERE order_id IN ($1)")).WithArgs(int64(10)).WillReturnRows(orderItemRows(10))

	o, err := repo.Create(context.Background(), draftOrder())

	require.NoError(t, err)
	require.Equal(t, int64(10), o.ID)
	require.Equal(t, "7851.00", o.Total.StringFixed(2))
	require.Len(t, o.Items, 2)
	require.Equal(t, "Oak frame", o.Items[0].VariantName)
	require.NotNil(t, o.ReservedUntil)
	require.Nil(t, o.PaidAt)
	require.Equal(t, "Cape Town", o.Shipping.City)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateOutOfStockRollsBack(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewOrderRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT stock, is_active FROM artworks WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock", "is_active"}).AddRow(int64(0), true))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), draftOrder())

	require.ErrorIs(t, err, domartwork.ErrOutOfStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateInactiveArtwork(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewOrderRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT stock, is_active FROM artworks WHERE id = $1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"stock", "is_active"}).AddRow(int64(4), false))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), draftOrder())

	require.ErrorIs(t, err, domartwork.ErrArtworkUnavailable)
}

func TestOrderRepository_TransitionCancelRestocks(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewOrderRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status FROM orders WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectQuery(q("FROM order_items WHERE order_id = $1")).WithArgs(int64(10)).WillReturnRows(orderItemRows(10))
	mock.ExpectExec(q("UPDATE artworks SET stock = stock + $1")).
		WithArgs(int64(1), sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE artworks SET stock = stock + $1")).
		WithArgs(int64(2), sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE orders SET status = $1, updated_at = $2, cancelled_at = $3, reserved_until = NULL WHERE id = $4")).
		WithArgs("CANCELLED", fixedTime, fixedTime, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q("FROM orders WHERE id = $1")).WillReturnRows(orderRows(10, domorder.StatusCancelled))
	mock.ExpectQuery(q("FROM order_items WHERE order_id IN ($1)")).WillReturnRows(orderItemRows(10))

	o, err := repo.Transition(context.Background(), 10, domorder.StatusCancelled, domorder.Change{At: fixedTime})

	require.NoError(t, err)
	require.Equal(t, domorder.StatusCancelled, o.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_TransitionToPaidRecordsPayment(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewOrderRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status FROM orders WHERE id = $1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec(q("UPDATE orders SET status = $1, updated_at = $2, payment_status = $3, payment_ref = $4, paid_at = $5, reserved_until = NULL WHERE id = $6")).
		WithArgs("PAID", fixedTime, "PAID", "pi_123", fixedTime, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q("FROM orders WHERE id = $1")).WillReturnRows(orderRows(10, domorder.StatusPaid))
	mock.ExpectQuery(q("FROM order_items WHERE order_id IN ($1)")).WillReturnRows(orderItemRows(10))

	_, err := repo.Transition(context.Background(), 10, domorder.StatusPaid, domorder.Change{
		PaymentStatus: domorder.PaymentPaid,
		PaymentRef:    "pi_123",
		At:            fixedTime,
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_TransitionRejected(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewOrderRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status FROM orders WHERE id = $1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("SHIPPED"))
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), 10, domorder.StatusCancelled, domorder.Change{})

	require.ErrorIs(t, err, domorder.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_TransitionGuardSeesLockedStatus(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewOrderRepository(store)

	// listed as PENDING, but a payment committed before the lock was taken
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status FROM orders WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PAID"))
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), 10, domorder.StatusCancelled, domorder.Change{
		From: []domorder.Status{domorder.StatusPending},
		At:   fixedTime,
	})

	require.ErrorIs(t, err, domorder.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewOrderRepository(store)
	mock.ExpectQuery(q("FROM orders WHERE id = $1")).WillReturnRows(sqlmock.NewRows(columns(orderColumns)))

	_, err := repo.GetByID(context.Background(), 99)

	require.ErrorIs(t, err, domorder.ErrOrderNotFound)
}

func TestOrderRepository_Stats(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewOrderRepository(store)
	mock.ExpectQuery("GROUP BY status").WillReturnRows(
		sqlmock.NewRows([]string{"status", "order_count", "order_total"}).
			AddRow("PAID", int64(2), "10000.00").
			AddRow("SHIPPED", int64(1), "5702.00").
			AddRow("CANCELLED", int64(4), "999.00"),
	)

	stats, err := repo.Stats(context.Background())

	require.NoError(t, err)
	require.Equal(t, "15702.00", stats.Revenue.StringFixed(2))
	require.Equal(t, int64(4), stats.CountByStatus[domorder.StatusCancelled])
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewUserRepository(store)
	mock.ExpectQuery(`INSERT INTO users .*RETURNING id`).WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &domuser.User{Name: "A", Email: "a@b.co", RoleCode: domuser.RoleCodeCustomer})

	require.ErrorIs(t, err, domuser.ErrEmailAlreadyUsed)
}

func TestCategoryRepository_CreateOnMySQLUsesLastInsertID(t *testing.T) {
	store, mock := newMockStore(t, DialectMySQL)
	repo := NewCategoryRepository(store)
	mock.ExpectExec(q("INSERT INTO categories (name, slug, description, is_active)")).
		WithArgs("Landscapes", "landscapes", "", true).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(q("FROM categories WHERE id = ?")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "description", "is_active"}).AddRow(int64(5), "Landscapes", "landscapes", "", true))

	c, err := repo.Create(context.Background(), &domcategory.Category{Name: "Landscapes", Slug: "landscapes", IsActive: true})

	require.NoError(t, err)
	require.Equal(t, int64(5), c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_DeleteInUse(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewCategoryRepository(store)
	mock.ExpectQuery(q("SELECT COUNT(*) FROM artworks WHERE category_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	err := repo.Delete(context.Background(), 3)

	require.ErrorIs(t, err, domcategory.ErrCategoryInUse)
}

func TestArtworkRepository_ListLoadsChildren(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewArtworkRepository(store)
	minPrice := decimal.RequireFromString("1000")

	mock.ExpectQuery(q("FROM artworks WHERE (LOWER(title) LIKE $1 OR LOWER(artist) LIKE $2) AND is_active = TRUE AND price >= $3 ORDER BY is_featured DESC, created_at DESC, id DESC LIMIT $4 OFFSET $5")).
		WithArgs("%karoo%", "%karoo%", "1000", 20, 0).
		WillReturnRows(sqlmock.NewRows(columns(artworkColumns)).
			AddRow(int64(1), "Karoo Dusk", "karoo-dusk", "N. Mokoena", "", "Oil", "60.00", "90.00", 2024,
				"4500.00", int64(2), int64(3), true, false, fixedTime, fixedTime))
	mock.ExpectQuery(q("FROM artwork_variants WHERE artwork_id IN ($1)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "artwork_id", "kind", "name", "price_adjustment", "processing_days", "is_active"}).
			AddRow(int64(11), int64(1), "FRAME", "Oak frame", "800.00", 4, true))
	mock.ExpectQuery(q("FROM artwork_images WHERE artwork_id IN ($1)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "artwork_id", "url", "storage_key", "alt_text", "sort_order"}).
			AddRow(int64(21), int64(1), "https://cdn.test/a.jpg", "artworks/1/a.jpg", "", 0))

	artworks, err := repo.List(context.Background(), domartwork.ListFilter{Search: " Karoo ", OnlyActive: true, MinPrice: &minPrice, Limit: 20})

	require.NoError(t, err)
	require.Len(t, artworks, 1)
	a := artworks[0]
	require.Equal(t, int64(3), a.CategoryID)
	require.Equal(t, "4500.00", a.Price.StringFixed(2))
	require.Len(t, a.Variants, 1)
	require.Equal(t, domartwork.VariantFrame, a.Variants[0].Kind)
	require.Len(t, a.Images, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArtworkRepository_AdjustStockNeverNegative(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewArtworkRepository(store)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT stock FROM artworks WHERE id = $1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(int64(1)))
	mock.ExpectRollback()

	_, err := repo.AdjustStock(context.Background(), 1, -2)

	require.ErrorIs(t, err, domartwork.ErrOutOfStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_AddOrUpdateItem(t *testing.T) {
	t.Run("Existing line is incremented", func(t *testing.T) {
		store, mock := newMockStore(t, DialectPostgres)
		repo := NewCartRepository(store)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT quantity FROM cart_items")).
			WithArgs(int64(7), int64(1), int64(11)).
			WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(int64(1)))
		mock.ExpectExec(q("UPDATE cart_items SET quantity = $1")).
			WithArgs(int64(3), int64(7), int64(1), int64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.AddOrUpdateItem(context.Background(), 7, domcart.Item{ArtworkID: 1, VariantID: 11, Quantity: 2}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("New line is inserted", func(t *testing.T) {
		store, mock := newMockStore(t, DialectMySQL)
		repo := NewCartRepository(store)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT quantity FROM cart_items")).WillReturnRows(sqlmock.NewRows([]string{"quantity"}))
		mock.ExpectExec(q("INSERT INTO cart_items (user_id, artwork_id, variant_id, quantity) VALUES (?, ?, ?, ?)")).
			WithArgs(int64(7), int64(2), int64(0), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.AddOrUpdateItem(context.Background(), 7, domcart.Item{ArtworkID: 2, Quantity: 1}))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCartRepository_RemoveMissingItem(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	repo := NewCartRepository(store)
	mock.ExpectExec("DELETE FROM cart_items").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RemoveItem(context.Background(), 7, 1, 0)

	require.ErrorIs(t, err, domcart.ErrItemNotFound)
}

func ledgerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"status", "received_at"})
}

func TestWebhookLedger_Record(t *testing.T) {
	entry := &dompayment.LedgerEntry{Provider: domorder.ProviderYoco, EventID: "evt_1", EventType: "payment.succeeded", ReceivedAt: fixedTime}

	t.Run("First delivery is inserted", func(t *testing.T) {
		store, mock := newMockStore(t, DialectPostgres)
		ledger := NewWebhookLedger(store)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT status, received_at FROM webhook_events")).WithArgs("YOCO", "evt_1").WillReturnRows(ledgerRows())
		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs("YOCO", "evt_1", "payment.succeeded", "RECEIVED", fixedTime).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		dup, err := ledger.Record(context.Background(), entry)

		require.NoError(t, err)
		require.False(t, dup)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Processed delivery is a duplicate", func(t *testing.T) {
		store, mock := newMockStore(t, DialectPostgres)
		ledger := NewWebhookLedger(store)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT status, received_at FROM webhook_events")).WillReturnRows(ledgerRows().AddRow("PROCESSED", fixedTime.Add(-time.Hour)))
		mock.ExpectCommit()

		dup, err := ledger.Record(context.Background(), entry)

		require.NoError(t, err)
		require.True(t, dup)
	})

	t.Run("Failed delivery is reopened", func(t *testing.T) {
		store, mock := newMockStore(t, DialectPostgres)
		ledger := NewWebhookLedger(store)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT status, received_at FROM webhook_events")).WillReturnRows(ledgerRows().AddRow("FAILED", fixedTime.Add(-time.Second)))
		mock.ExpectExec(q("UPDATE webhook_events SET status = $1")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		dup, err := ledger.Record(context.Background(), entry)

		require.NoError(t, err)
		require.False(t, dup)
	})

	t.Run("Delivery still in progress is not reopened", func(t *testing.T) {
		store, mock := newMockStore(t, DialectPostgres)
		ledger := NewWebhookLedger(store)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT status, received_at FROM webhook_events")).WillReturnRows(ledgerRows().AddRow("RECEIVED", fixedTime.Add(-30*time.Second)))
		mock.ExpectRollback()

		dup, err := ledger.Record(context.Background(), entry)

		require.ErrorIs(t, err, dompayment.ErrDeliveryInProgress)
		require.False(t, dup)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Abandoned delivery is reopened after the lease", func(t *testing.T) {
		store, mock := newMockStore(t, DialectPostgres)
		ledger := NewWebhookLedger(store)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT status, received_at FROM webhook_events")).WillReturnRows(ledgerRows().AddRow("RECEIVED", fixedTime.Add(-dompayment.DeliveryLease)))
		mock.ExpectExec(q("UPDATE webhook_events SET status = $1")).
			WithArgs("RECEIVED", fixedTime, "YOCO", "evt_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		dup, err := ledger.Record(context.Background(), entry)

		require.NoError(t, err)
		require.False(t, dup)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Concurrent insert counts as duplicate", func(t *testing.T) {
		store, mock := newMockStore(t, DialectPostgres)
		ledger := NewWebhookLedger(store)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT status, received_at FROM webhook_events")).WillReturnRows(ledgerRows())
		mock.ExpectExec("INSERT INTO webhook_events").WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectRollback()

		dup, err := ledger.Record(context.Background(), entry)

		require.NoError(t, err)
		require.True(t, dup)
	})
}

func TestWebhookLedger_Complete(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	ledger := NewWebhookLedger(store)
	orderID := int64(10)
	mock.ExpectExec(q("UPDATE webhook_events SET status = $1, order_id = $2, last_error = $3, processed_at = $4")).
		WithArgs("PROCESSED", int64(10), "", fixedTime, "STRIPE", "evt_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, ledger.Complete(context.Background(), domorder.ProviderStripe, "evt_1", dompayment.LedgerProcessed, &orderID, ""))
	require.NoError(t, mock.ExpectationsWereMet())
}
