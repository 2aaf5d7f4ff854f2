package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
	domcart "example.com/gallery-storefront/app/internal/domain/cart"
	domcategory "example.com/gallery-storefront/app/internal/domain/category"
	dominquiry "example.com/gallery-storefront/app/internal/domain/inquiry"
	domnotification "example.com/gallery-storefront/app/internal/domain/notification"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
	domuser "example.com/gallery-storefront/app/internal/domain/user"
	"example.com/gallery-storefront/app/internal/infra/invoice"
	"example.com/gallery-storefront/app/internal/infra/security"
	artworkuc "example.com/gallery-storefront/app/internal/usecase/artwork"
	authuc "example.com/gallery-storefront/app/internal/usecase/auth"
	cartuc "example.com/gallery-storefront/app/internal/usecase/cart"
	categoryuc "example.com/gallery-storefront/app/internal/usecase/category"
	checkoutuc "example.com/gallery-storefront/app/internal/usecase/checkout"
	dashboarduc "example.com/gallery-storefront/app/internal/usecase/dashboard"
	inquiryuc "example.com/gallery-storefront/app/internal/usecase/inquiry"
	orderuc "example.com/gallery-storefront/app/internal/usecase/order"
	paymentuc "example.com/gallery-storefront/app/internal/usecase/payment"
	useruc "example.com/gallery-storefront/app/internal/usecase/user"
)

const testJWTSecret = "test-secret"

// --- users ---

type memoryUserRepo struct {
	nextID int64
	items  map[int64]*domuser.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{items: map[int64]*domuser.User{}}
}

func (m *memoryUserRepo) Create(ctx context.Context, u *domuser.User) (*domuser.User, error) {
	for _, existing := range m.items {
		if existing.Email == u.Email {
			return nil, domuser.ErrEmailAlreadyUsed
		}
	}
	m.nextID++
	cp := *u
	cp.ID = m.nextID
	m.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id int64) (*domuser.User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, domuser.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*domuser.User, error) {
	for _, u := range m.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domuser.ErrUserNotFound
}

func (m *memoryUserRepo) List(ctx context.Context, filter domuser.ListUsersFilter) ([]*domuser.User, error) {
	var out []*domuser.User
	for _, id := range sortedKeys(m.items) {
		u := m.items[id]
		if filter.RoleCode != nil && u.RoleCode != *filter.RoleCode {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryUserRepo) Update(ctx context.Context, u *domuser.User) (*domuser.User, error) {
	if _, ok := m.items[u.ID]; !ok {
		return nil, domuser.ErrUserNotFound
	}
	cp := *u
	m.items[u.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return domuser.ErrUserNotFound
	}
	delete(m.items, id)
	return nil
}

// --- categories ---

type memoryCategoryRepo struct {
	nextID int64
	items  map[int64]*domcategory.Category
	inUse  map[int64]bool
}

func newMemoryCategoryRepo() *memoryCategoryRepo {
	return &memoryCategoryRepo{items: map[int64]*domcategory.Category{}, inUse: map[int64]bool{}}
}

func (m *memoryCategoryRepo) slugExists(slug string, ignoreID int64) bool {
	for id, item := range m.items {
		if id != ignoreID && item.Slug == slug {
			return true
		}
	}
	return false
}

func (m *memoryCategoryRepo) Create(ctx context.Context, c *domcategory.Category) (*domcategory.Category, error) {
	if m.slugExists(c.Slug, 0) {
		return nil, domcategory.ErrCategorySlugExists
	}
	m.nextID++
	cp := *c
	cp.ID = m.nextID
	m.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memoryCategoryRepo) Update(ctx context.Context, c *domcategory.Category) (*domcategory.Category, error) {
	if _, ok := m.items[c.ID]; !ok {
		return nil, domcategory.ErrCategoryNotFound
	}
	if m.slugExists(c.Slug, c.ID) {
		return nil, domcategory.ErrCategorySlugExists
	}
	cp := *c
	m.items[c.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memoryCategoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return domcategory.ErrCategoryNotFound
	}
	if m.inUse[id] {
		return domcategory.ErrCategoryInUse
	}
	delete(m.items, id)
	return nil
}

func (m *memoryCategoryRepo) GetByID(ctx context.Context, id int64) (*domcategory.Category, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, domcategory.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memoryCategoryRepo) List(ctx context.Context, filter domcategory.ListFilter) ([]*domcategory.Category, error) {
	var out []*domcategory.Category
	for _, id := range sortedKeys(m.items) {
		c := m.items[id]
		if filter.OnlyActive && !c.IsActive {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// --- artworks ---

type memoryArtworkRepo struct {
	mu          sync.Mutex
	nextID      int64
	nextVariant int64
	nextImage   int64
	items       map[int64]*domartwork.Artwork
}

func newMemoryArtworkRepo() *memoryArtworkRepo {
	return &memoryArtworkRepo{items: map[int64]*domartwork.Artwork{}}
}

func cloneArtwork(a *domartwork.Artwork) *domartwork.Artwork {
	cp := *a
	cp.Images = append([]domartwork.Image(nil), a.Images...)
	cp.Variants = append([]domartwork.Variant(nil), a.Variants...)
	return &cp
}

func (m *memoryArtworkRepo) seed(a *domartwork.Artwork) *domartwork.Artwork {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	for i := range a.Variants {
		m.nextVariant++
		a.Variants[i].ID = m.nextVariant
		a.Variants[i].ArtworkID = a.ID
	}
	m.items[a.ID] = cloneArtwork(a)
	return cloneArtwork(a)
}

func (m *memoryArtworkRepo) stock(id int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Stock
}

func (m *memoryArtworkRepo) Create(ctx context.Context, a *domartwork.Artwork) (*domartwork.Artwork, error) {
	m.mu.Lock()
	for _, existing := range m.items {
		if existing.Slug == a.Slug {
			m.mu.Unlock()
			return nil, domartwork.ErrArtworkSlugExists
		}
	}
	m.mu.Unlock()
	return m.seed(a), nil
}

func (m *memoryArtworkRepo) Update(ctx context.Context, a *domartwork.Artwork) (*domartwork.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[a.ID]; !ok {
		return nil, domartwork.ErrArtworkNotFound
	}
	m.items[a.ID] = cloneArtwork(a)
	return cloneArtwork(a), nil
}

func (m *memoryArtworkRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domartwork.ErrArtworkNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryArtworkRepo) GetByID(ctx context.Context, id int64) (*domartwork.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, domartwork.ErrArtworkNotFound
	}
	return cloneArtwork(a), nil
}

func (m *memoryArtworkRepo) GetBySlug(ctx context.Context, slug string) (*domartwork.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.Slug == slug {
			return cloneArtwork(a), nil
		}
	}
	return nil, domartwork.ErrArtworkNotFound
}

func (m *memoryArtworkRepo) GetByIDs(ctx context.Context, ids []int64) ([]*domartwork.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domartwork.Artwork
	for _, id := range ids {
		if a, ok := m.items[id]; ok {
			out = append(out, cloneArtwork(a))
		}
	}
	return out, nil
}

func (m *memoryArtworkRepo) List(ctx context.Context, filter domartwork.ListFilter) ([]*domartwork.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domartwork.Artwork
	for _, id := range sortedKeys(m.items) {
		a := m.items[id]
		if filter.OnlyActive && !a.IsActive {
			continue
		}
		if filter.OnlyFeatured && !a.IsFeatured {
			continue
		}
		if filter.CategoryID != nil && a.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(a.Title+" "+a.Artist), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.MinPrice != nil && a.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && a.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		out = append(out, cloneArtwork(a))
	}
	return out, nil
}

func (m *memoryArtworkRepo) AdjustStock(ctx context.Context, id int64, delta int64) (*domartwork.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, domartwork.ErrArtworkNotFound
	}
	if a.Stock+delta < 0 {
		return nil, domartwork.ErrOutOfStock
	}
	a.Stock += delta
	return cloneArtwork(a), nil
}

func (m *memoryArtworkRepo) CreateVariant(ctx context.Context, v *domartwork.Variant) (*domartwork.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[v.ArtworkID]
	if !ok {
		return nil, domartwork.ErrArtworkNotFound
	}
	m.nextVariant++
	v.ID = m.nextVariant
	a.Variants = append(a.Variants, *v)
	cp := *v
	return &cp, nil
}

func (m *memoryArtworkRepo) UpdateVariant(ctx context.Context, v *domartwork.Variant) (*domartwork.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[v.ArtworkID]
	if !ok {
		return nil, domartwork.ErrArtworkNotFound
	}
	for i := range a.Variants {
		if a.Variants[i].ID == v.ID {
			a.Variants[i] = *v
			cp := *v
			return &cp, nil
		}
	}
	return nil, domartwork.ErrVariantNotFound
}

func (m *memoryArtworkRepo) DeleteVariant(ctx context.Context, artworkID, variantID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[artworkID]
	if !ok {
		return domartwork.ErrArtworkNotFound
	}
	for i := range a.Variants {
		if a.Variants[i].ID == variantID {
			a.Variants = append(a.Variants[:i], a.Variants[i+1:]...)
			return nil
		}
	}
	return domartwork.ErrVariantNotFound
}

func (m *memoryArtworkRepo) AddImage(ctx context.Context, img *domartwork.Image) (*domartwork.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[img.ArtworkID]
	if !ok {
		return nil, domartwork.ErrArtworkNotFound
	}
	m.nextImage++
	img.ID = m.nextImage
	a.Images = append(a.Images, *img)
	cp := *img
	return &cp, nil
}

func (m *memoryArtworkRepo) GetImage(ctx context.Context, artworkID, imageID int64) (*domartwork.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.items[artworkID]; ok {
		for _, img := range a.Images {
			if img.ID == imageID {
				cp := img
				return &cp, nil
			}
		}
	}
	return nil, domartwork.ErrImageNotFound
}

func (m *memoryArtworkRepo) DeleteImage(ctx context.Context, artworkID, imageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.items[artworkID]; ok {
		for i, img := range a.Images {
			if img.ID == imageID {
				a.Images = append(a.Images[:i], a.Images[i+1:]...)
				return nil
			}
		}
	}
	return domartwork.ErrImageNotFound
}

// --- cart ---

type memoryCartRepo struct {
	items map[int64][]domcart.Item
}

func newMemoryCartRepo() *memoryCartRepo {
	return &memoryCartRepo{items: map[int64][]domcart.Item{}}
}

func (m *memoryCartRepo) AddOrUpdateItem(ctx context.Context, userID int64, item domcart.Item) error {
	for i, existing := range m.items[userID] {
		if existing.ArtworkID == item.ArtworkID && existing.VariantID == item.VariantID {
			m.items[userID][i].Quantity += item.Quantity
			return nil
		}
	}
	m.items[userID] = append(m.items[userID], item)
	return nil
}

func (m *memoryCartRepo) SetQuantity(ctx context.Context, userID int64, item domcart.Item) error {
	for i, existing := range m.items[userID] {
		if existing.ArtworkID == item.ArtworkID && existing.VariantID == item.VariantID {
			if item.Quantity == 0 {
				m.items[userID] = append(m.items[userID][:i], m.items[userID][i+1:]...)
				return nil
			}
			m.items[userID][i].Quantity = item.Quantity
			return nil
		}
	}
	return domcart.ErrItemNotFound
}

func (m *memoryCartRepo) RemoveItem(ctx context.Context, userID, artworkID, variantID int64) error {
	for i, existing := range m.items[userID] {
		if existing.ArtworkID == artworkID && existing.VariantID == variantID {
			m.items[userID] = append(m.items[userID][:i], m.items[userID][i+1:]...)
			return nil
		}
	}
	return domcart.ErrItemNotFound
}

func (m *memoryCartRepo) ListItems(ctx context.Context, userID int64) ([]domcart.Item, error) {
	return append([]domcart.Item(nil), m.items[userID]...), nil
}

func (m *memoryCartRepo) Clear(ctx context.Context, userID int64) error {
	delete(m.items, userID)
	return nil
}

// --- orders ---

// memoryOrderRepo reserves and restocks against the artwork repo the way
// the SQL store does inside its transactions.
type memoryOrderRepo struct {
	mu       sync.Mutex
	nextID   int64
	items    map[int64]*domorder.Order
	artworks *memoryArtworkRepo
}

func newMemoryOrderRepo(artworks *memoryArtworkRepo) *memoryOrderRepo {
	return &memoryOrderRepo{items: map[int64]*domorder.Order{}, artworks: artworks}
}

func cloneOrder(o *domorder.Order) *domorder.Order {
	cp := *o
	cp.Items = append([]domorder.OrderItem(nil), o.Items...)
	return &cp
}

func (m *memoryOrderRepo) put(o *domorder.Order) *domorder.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o.ID = m.nextID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	m.items[o.ID] = cloneOrder(o)
	return cloneOrder(o)
}

func (m *memoryOrderRepo) Create(ctx context.Context, o *domorder.Order) (*domorder.Order, error) {
	if len(o.Items) == 0 {
		return nil, domorder.ErrEmptyOrderItems
	}
	for _, item := range o.Items {
		a, err := m.artworks.GetByID(ctx, item.ArtworkID)
		if err != nil {
			return nil, err
		}
		if !a.IsActive {
			return nil, domartwork.ErrArtworkUnavailable
		}
		if a.Stock < item.Quantity {
			return nil, domartwork.ErrOutOfStock
		}
	}
	for _, item := range o.Items {
		if _, err := m.artworks.AdjustStock(ctx, item.ArtworkID, -item.Quantity); err != nil {
			return nil, err
		}
	}
	return m.put(o), nil
}

func (m *memoryOrderRepo) GetByID(ctx context.Context, id int64) (*domorder.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, domorder.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *memoryOrderRepo) GetByReference(ctx context.Context, reference string) (*domorder.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.items {
		if o.Reference == reference {
			return cloneOrder(o), nil
		}
	}
	return nil, domorder.ErrOrderNotFound
}

func (m *memoryOrderRepo) GetByProviderRef(ctx context.Context, provider domorder.PaymentProvider, ref string) (*domorder.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.items {
		if o.PaymentProvider == provider && o.ProviderRef == ref {
			return cloneOrder(o), nil
		}
	}
	return nil, domorder.ErrOrderNotFound
}

func (m *memoryOrderRepo) List(ctx context.Context, filter domorder.ListFilter) ([]*domorder.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domorder.Order
	ids := sortedKeys(m.items)
	for i := len(ids) - 1; i >= 0; i-- {
		o := m.items[ids[i]]
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		out = append(out, cloneOrder(o))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memoryOrderRepo) SetProviderRef(ctx context.Context, id int64, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return domorder.ErrOrderNotFound
	}
	o.ProviderRef = ref
	return nil
}

func (m *memoryOrderRepo) SetPaymentStatus(ctx context.Context, id int64, status domorder.PaymentStatus) (*domorder.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, domorder.ErrOrderNotFound
	}
	o.PaymentStatus = status
	return cloneOrder(o), nil
}

func (m *memoryOrderRepo) Transition(ctx context.Context, id int64, to domorder.Status, change domorder.Change) (*domorder.Order, error) {
	m.mu.Lock()
	o, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return nil, domorder.ErrOrderNotFound
	}
	if !change.Permits(o.Status) || !domorder.CanTransition(o.Status, to) {
		m.mu.Unlock()
		return nil, domorder.ErrInvalidTransition
	}
	from := o.Status
	o.Status = to
	if change.PaymentStatus != "" {
		o.PaymentStatus = change.PaymentStatus
	}
	if change.PaymentRef != "" {
		o.PaymentRef = change.PaymentRef
	}
	at := change.At
	switch {
	case from == to:
	case to == domorder.StatusPaid:
		o.PaidAt = &at
	case to == domorder.StatusShipped:
		o.ShippedAt = &at
		o.TrackingNumber = change.TrackingNumber
	case to == domorder.StatusCancelled:
		o.CancelledAt = &at
	}
	items := append([]domorder.OrderItem(nil), o.Items...)
	out := cloneOrder(o)
	m.mu.Unlock()

	if from != to && domorder.Restocks(from, to) {
		for _, item := range items {
			if _, err := m.artworks.AdjustStock(ctx, item.ArtworkID, item.Quantity); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (m *memoryOrderRepo) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*domorder.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domorder.Order
	for _, id := range sortedKeys(m.items) {
		o := m.items[id]
		if o.Status == domorder.StatusPending && o.ReservedUntil != nil && o.ReservedUntil.Before(now) {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (m *memoryOrderRepo) Stats(ctx context.Context) (*domorder.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domorder.Stats{Revenue: decimal.Zero, CountByStatus: map[domorder.Status]int64{}}
	for _, o := range m.items {
		stats.CountByStatus[o.Status]++
		if o.Status == domorder.StatusPaid || o.Status == domorder.StatusShipped {
			stats.Revenue = stats.Revenue.Add(o.Total)
		}
	}
	return stats, nil
}

// --- inquiries ---

type memoryInquiryRepo struct {
	nextID int64
	items  map[int64]*dominquiry.Inquiry
}

func newMemoryInquiryRepo() *memoryInquiryRepo {
	return &memoryInquiryRepo{items: map[int64]*dominquiry.Inquiry{}}
}

func (m *memoryInquiryRepo) Create(ctx context.Context, in *dominquiry.Inquiry) (*dominquiry.Inquiry, error) {
	m.nextID++
	cp := *in
	cp.ID = m.nextID
	m.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memoryInquiryRepo) GetByID(ctx context.Context, id int64) (*dominquiry.Inquiry, error) {
	in, ok := m.items[id]
	if !ok {
		return nil, dominquiry.ErrInquiryNotFound
	}
	cp := *in
	return &cp, nil
}

func (m *memoryInquiryRepo) List(ctx context.Context, filter dominquiry.ListFilter) ([]*dominquiry.Inquiry, error) {
	var out []*dominquiry.Inquiry
	for _, id := range sortedKeys(m.items) {
		in := m.items[id]
		if filter.Status != nil && in.Status != *filter.Status {
			continue
		}
		cp := *in
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryInquiryRepo) UpdateStatus(ctx context.Context, id int64, status dominquiry.Status) (*dominquiry.Inquiry, error) {
	in, ok := m.items[id]
	if !ok {
		return nil, dominquiry.ErrInquiryNotFound
	}
	in.Status = status
	cp := *in
	return &cp, nil
}

func (m *memoryInquiryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return dominquiry.ErrInquiryNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryInquiryRepo) CountByStatus(ctx context.Context, status dominquiry.Status) (int64, error) {
	var n int64
	for _, in := range m.items {
		if in.Status == status {
			n++
		}
	}
	return n, nil
}

// --- payments ---

type memoryLedger struct {
	entries  map[string]dompayment.LedgerStatus
	received map[string]time.Time
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{entries: map[string]dompayment.LedgerStatus{}, received: map[string]time.Time{}}
}

func (m *memoryLedger) Record(ctx context.Context, e *dompayment.LedgerEntry) (bool, error) {
	key := string(e.Provider) + "/" + e.EventID
	if status, ok := m.entries[key]; ok {
		if status.Final() {
			return true, nil
		}
		if dompayment.InFlight(status, m.received[key], e.ReceivedAt) {
			return false, dompayment.ErrDeliveryInProgress
		}
	}
	m.entries[key] = dompayment.LedgerReceived
	m.received[key] = e.ReceivedAt
	return false, nil
}

func (m *memoryLedger) Complete(ctx context.Context, provider domorder.PaymentProvider, eventID string, status dompayment.LedgerStatus, orderID *int64, errMsg string) error {
	m.entries[string(provider)+"/"+eventID] = status
	return nil
}

// fakeGateway accepts webhooks carrying X-Test-Signature: valid and a JSON
// body shaped like testWebhook.
type fakeGateway struct {
	provider    domorder.PaymentProvider
	checkoutErr error
	refundErr   error
	checkouts   []dompayment.CheckoutRequest
	refunds     []string
}

type testWebhook struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

func (g *fakeGateway) Provider() domorder.PaymentProvider { return g.provider }

func (g *fakeGateway) CreateCheckout(ctx context.Context, req dompayment.CheckoutRequest) (*dompayment.CheckoutSession, error) {
	if g.checkoutErr != nil {
		return nil, g.checkoutErr
	}
	g.checkouts = append(g.checkouts, req)
	return &dompayment.CheckoutSession{
		ProviderRef: "sess_" + req.Order.Reference,
		RedirectURL: "https://pay.example.com/" + req.Order.Reference,
	}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, o *domorder.Order) error {
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, o.Reference)
	return nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, headers http.Header) (*dompayment.Event, error) {
	if headers.Get("X-Test-Signature") != "valid" {
		return nil, dompayment.ErrInvalidSignature
	}
	var body testWebhook
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, dompayment.ErrInvalidPayload
	}
	return &dompayment.Event{
		ID:             body.ID,
		Type:           dompayment.EventType(body.Type),
		RawType:        strings.ToLower(body.Type),
		OrderReference: body.Reference,
		Amount:         body.Amount,
		Currency:       body.Currency,
		OccurredAt:     time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
	}, nil
}

type recordingPublisher struct {
	events []domnotification.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt domnotification.Event) error {
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) kinds() []domnotification.Kind {
	out := make([]domnotification.Kind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type memoryStorage struct {
	objects map[string][]byte
}

func (s *memoryStorage) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (s *memoryStorage) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

// --- harness ---

type testEnv struct {
	t         *testing.T
	router    http.Handler
	tokens    *security.JWTService
	logHook   *test.Hook
	users     *memoryUserRepo
	cats      *memoryCategoryRepo
	artworks  *memoryArtworkRepo
	carts     *memoryCartRepo
	orders    *memoryOrderRepo
	inquiries *memoryInquiryRepo
	ledger    *memoryLedger
	stripe    *fakeGateway
	publisher *recordingPublisher
	storage   *memoryStorage
	orderSvc  *orderuc.Service
}

type envOption func(*Dependencies)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	env := &testEnv{
		t:         t,
		tokens:    security.NewJWTService(testJWTSecret, time.Hour),
		logHook:   hook,
		users:     newMemoryUserRepo(),
		cats:      newMemoryCategoryRepo(),
		artworks:  newMemoryArtworkRepo(),
		carts:     newMemoryCartRepo(),
		inquiries: newMemoryInquiryRepo(),
		ledger:    newMemoryLedger(),
		stripe:    &fakeGateway{provider: domorder.ProviderStripe},
		publisher: &recordingPublisher{},
		storage:   &memoryStorage{objects: map[string][]byte{}},
	}
	env.orders = newMemoryOrderRepo(env.artworks)

	hasher := security.NewBcryptService(4)
	cartSvc := cartuc.NewService(env.carts, env.artworks, 3)
	gateways := []dompayment.Gateway{env.stripe}

	env.orderSvc = orderuc.NewService(env.orders, orderuc.Options{
		Publisher: env.publisher,
		Invoices:  invoice.NewRenderer(invoice.Issuer{Name: "Test Gallery"}),
		Logger:    logger,
	})

	deps := Dependencies{
		AuthService:     authuc.NewService(env.users, hasher, env.tokens),
		UserService:     useruc.NewService(env.users, hasher),
		CategoryService: categoryuc.NewService(env.cats),
		ArtworkService: artworkuc.NewService(env.artworks, artworkuc.Options{
			Storage:  env.storage,
			BaseDays: 3,
			Logger:   logger,
		}),
		CartService: cartSvc,
		CheckoutService: checkoutuc.NewService(cartSvc, env.orders, gateways, checkoutuc.Options{
			Shipping: domorder.ShippingPolicy{
				HomeCountry:   "ZA",
				Domestic:      decimal.RequireFromString("150"),
				International: decimal.RequireFromString("850"),
			},
			Currency:       "ZAR",
			ReservationTTL: 30 * time.Minute,
			PublicBaseURL:  "https://gallery.example.com",
			Logger:         logger,
		}),
		OrderService: env.orderSvc,
		PaymentService: paymentuc.NewService(env.orders, env.ledger, gateways, paymentuc.Options{
			Publisher: env.publisher,
			Logger:    logger,
		}),
		InquiryService:   inquiryuc.NewService(env.inquiries, env.artworks, env.publisher, logger),
		DashboardService: dashboarduc.NewService(env.orders, env.artworks, env.inquiries, 1),
		TokenService:     env.tokens,
		Logger:           logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.router = NewAPI(deps).Router()
	return env
}

func (e *testEnv) token(id int64, role domuser.RoleCode) string {
	e.t.Helper()
	tok, err := e.tokens.GenerateToken(&domuser.User{
		ID:       id,
		Name:     fmt.Sprintf("User %d", id),
		Email:    fmt.Sprintf("user%d@example.com", id),
		RoleCode: role,
	})
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) orderService() *orderuc.Service { return e.orderSvc }

func (e *testEnv) customerToken() string   { return e.token(100, domuser.RoleCodeCustomer) }
func (e *testEnv) adminToken() string      { return e.token(2, domuser.RoleCodeAdmin) }
func (e *testEnv) superAdminToken() string { return e.token(1, domuser.RoleCodeSuperAdmin) }

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedArtwork(title string, price string, stock int64, variants ...domartwork.Variant) *domartwork.Artwork {
	return e.artworks.seed(&domartwork.Artwork{
		Title:      title,
		Slug:       domcategory.Slugify(title),
		Artist:     "Irma Stern",
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: 1,
		IsActive:   true,
		Variants:   variants,
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
