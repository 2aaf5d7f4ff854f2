package artwork

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	dom "example.com/gallery-storefront/app/internal/domain/artwork"
)

type mockArtworkRepository struct {
	artworks  map[int64]*dom.Artwork
	nextID    int64
	listCalls int
	addImgErr error
}

func newMockArtworkRepository() *mockArtworkRepository {
	return &mockArtworkRepository{
		artworks: map[int64]*dom.Artwork{
			1: {
				ID: 1, Title: "Karoo Dusk", Slug: "karoo-dusk", Price: decimal.RequireFromString("4500"),
				Stock: 2, CategoryID: 1, IsActive: true,
				Variants: []dom.Variant{
					{ID: 11, ArtworkID: 1, Kind: dom.VariantFrame, Name: "Oak frame", PriceAdjustment: decimal.RequireFromString("800"), ProcessingDays: 4, IsActive: true},
				},
				Images: []dom.Image{{ID: 21, ArtworkID: 1, URL: "https://cdn.test/a.jpg", StorageKey: "artworks/1/a.jpg"}},
			},
			2: {ID: 2, Title: "Hidden Study", Slug: "hidden-study", Price: decimal.RequireFromString("900"), Stock: 1, IsActive: false},
		},
		nextID: 3,
	}
}

func (m *mockArtworkRepository) clone(a *dom.Artwork) *dom.Artwork {
	cloned := *a
	cloned.Variants = append([]dom.Variant(nil), a.Variants...)
	cloned.Images = append([]dom.Image(nil), a.Images...)
	return &cloned
}

func (m *mockArtworkRepository) Create(ctx context.Context, a *dom.Artwork) (*dom.Artwork, error) {
	for _, existing := range m.artworks {
		if existing.Slug == a.Slug {
			return nil, dom.ErrArtworkSlugExists
		}
	}
	a.ID = m.nextID
	m.nextID++
	m.artworks[a.ID] = m.clone(a)
	return a, nil
}

func (m *mockArtworkRepository) Update(ctx context.Context, a *dom.Artwork) (*dom.Artwork, error) {
	m.artworks[a.ID] = m.clone(a)
	return a, nil
}

func (m *mockArtworkRepository) Delete(ctx context.Context, id int64) error {
	delete(m.artworks, id)
	return nil
}

func (m *mockArtworkRepository) GetByID(ctx context.Context, id int64) (*dom.Artwork, error) {
	if a, ok := m.artworks[id]; ok {
		return m.clone(a), nil
	}
	return nil, dom.ErrArtworkNotFound
}

func (m *mockArtworkRepository) GetBySlug(ctx context.Context, slug string) (*dom.Artwork, error) {
	for _, a := range m.artworks {
		if a.Slug == slug {
			return m.clone(a), nil
		}
	}
	return nil, dom.ErrArtworkNotFound
}

func (m *mockArtworkRepository) GetByIDs(ctx context.Context, ids []int64) ([]*dom.Artwork, error) {
	var out []*dom.Artwork
	for _, id := range ids {
		if a, ok := m.artworks[id]; ok {
			out = append(out, m.clone(a))
		}
	}
	return out, nil
}

func (m *mockArtworkRepository) List(ctx context.Context, filter dom.ListFilter) ([]*dom.Artwork, error) {
	m.listCalls++
	var out []*dom.Artwork
	for _, a := range m.artworks {
		if filter.OnlyActive && !a.IsActive {
			continue
		}
		out = append(out, m.clone(a))
	}
	return out, nil
}

func (m *mockArtworkRepository) AdjustStock(ctx context.Context, id int64, delta int64) (*dom.Artwork, error) {
	a, ok := m.artworks[id]
	if !ok {
		return nil, dom.ErrArtworkNotFound
	}
	if a.Stock+delta < 0 {
		return nil, dom.ErrOutOfStock
	}
	a.Stock += delta
	return m.clone(a), nil
}

func (m *mockArtworkRepository) CreateVariant(ctx context.Context, v *dom.Variant) (*dom.Variant, error) {
	a := m.artworks[v.ArtworkID]
	v.ID = int64(100 + len(a.Variants))
	a.Variants = append(a.Variants, *v)
	return v, nil
}

func (m *mockArtworkRepository) UpdateVariant(ctx context.Context, v *dom.Variant) (*dom.Variant, error) {
	a := m.artworks[v.ArtworkID]
	for i := range a.Variants {
		if a.Variants[i].ID == v.ID {
			a.Variants[i] = *v
		}
	}
	return v, nil
}

func (m *mockArtworkRepository) DeleteVariant(ctx context.Context, artworkID, variantID int64) error {
	a, ok := m.artworks[artworkID]
	if !ok {
		return dom.ErrVariantNotFound
	}
	for i := range a.Variants {
		if a.Variants[i].ID == variantID {
			a.Variants = append(a.Variants[:i], a.Variants[i+1:]...)
			return nil
		}
	}
	return dom.ErrVariantNotFound
}

func (m *mockArtworkRepository) AddImage(ctx context.Context, img *dom.Image) (*dom.Image, error) {
	if m.addImgErr != nil {
		return nil, m.addImgErr
	}
	img.ID = 99
	a := m.artworks[img.ArtworkID]
	a.Images = append(a.Images, *img)
	return img, nil
}

func (m *mockArtworkRepository) GetImage(ctx context.Context, artworkID, imageID int64) (*dom.Image, error) {
	if a, ok := m.artworks[artworkID]; ok {
		for _, img := range a.Images {
			if img.ID == imageID {
				cloned := img
				return &cloned, nil
			}
		}
	}
	return nil, dom.ErrImageNotFound
}

func (m *mockArtworkRepository) DeleteImage(ctx context.Context, artworkID, imageID int64) error {
	a := m.artworks[artworkID]
	for i := range a.Images {
		if a.Images[i].ID == imageID {
			a.Images = append(a.Images[:i], a.Images[i+1:]...)
			return nil
		}
	}
	return dom.ErrImageNotFound
}

type memoryStorage struct {
	objects map[string][]byte
	deleted []string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type memoryCache struct {
	values        map[string][]byte
	invalidations int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memoryCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCache) InvalidateAll(ctx context.Context) error {
	m.values = make(map[string][]byte)
	m.invalidations++
	return nil
}

func TestList_UsesCacheUntilInvalidated(t *testing.T) {
	repo := newMockArtworkRepository()
	cache := newMemoryCache()
	svc := NewService(repo, Options{Cache: cache, BaseDays: 3})
	filter := dom.ListFilter{OnlyActive: true}

	first, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, repo.listCalls, "second read should be served from cache")
	require.Equal(t, "4500", second[0].Price.String())

	_, err = svc.AdjustStock(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Equal(t, 1, cache.invalidations)

	_, err = svc.List(context.Background(), filter)
	require.NoError(t, err)
	require.Equal(t, 2, repo.listCalls)
}

func TestGetPublic_HidesInactive(t *testing.T) {
	svc := NewService(newMockArtworkRepository(), Options{})

	_, err := svc.GetPublic(context.Background(), 2)
	require.ErrorIs(t, err, dom.ErrArtworkNotFound)

	a, err := svc.GetPublic(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "karoo-dusk", a.Slug)
}

func TestQuote_DelegatesToCalculator(t *testing.T) {
	svc := NewService(newMockArtworkRepository(), Options{BaseDays: 3})

	q, err := svc.Quote(context.Background(), 1, 11)
	require.NoError(t, err)
	require.Equal(t, "5300", q.UnitPrice.String())
	require.Equal(t, 7, q.ProcessingDays)

	_, err = svc.Quote(context.Background(), 2, 0)
	require.ErrorIs(t, err, dom.ErrArtworkUnavailable)
}

func TestCreate_SlugAndPriceRules(t *testing.T) {
	svc := NewService(newMockArtworkRepository(), Options{})

	a, err := svc.Create(context.Background(), &dom.Artwork{Title: " Table Mountain at Noon ", Price: decimal.RequireFromString("12000"), Stock: -3})
	require.NoError(t, err)
	require.Equal(t, "table-mountain-at-noon", a.Slug)
	require.Equal(t, int64(0), a.Stock)

	_, err = svc.Create(context.Background(), &dom.Artwork{Title: "Free", Price: decimal.Zero})
	require.ErrorIs(t, err, dom.ErrInvalidPrice)

	_, err = svc.Create(context.Background(), &dom.Artwork{Title: "Karoo Dusk", Price: decimal.RequireFromString("1")})
	require.ErrorIs(t, err, dom.ErrArtworkSlugExists)
}

func TestUpdate_PartialFields(t *testing.T) {
	svc := NewService(newMockArtworkRepository(), Options{})
	price := "5100.499"
	featured := true

	a, err := svc.Update(context.Background(), UpdateInput{ID: 1, Price: &price, IsFeatured: &featured})

	require.NoError(t, err)
	require.Equal(t, "5100.5", a.Price.String())
	require.True(t, a.IsFeatured)
	require.Equal(t, "Karoo Dusk", a.Title)

	bad := "-1"
	_, err = svc.Update(context.Background(), UpdateInput{ID: 1, Price: &bad})
	require.ErrorIs(t, err, dom.ErrInvalidPrice)
}

func TestAddVariant_Validation(t *testing.T) {
	svc := NewService(newMockArtworkRepository(), Options{})

	_, err := svc.AddVariant(context.Background(), &dom.Variant{ArtworkID: 1, Kind: "GLASS", Name: "Glass"})
	require.ErrorIs(t, err, dom.ErrInvalidVariantKind)

	_, err = svc.AddVariant(context.Background(), &dom.Variant{ArtworkID: 1, Kind: dom.VariantCanvas, Name: "Too cheap", PriceAdjustment: decimal.RequireFromString("-4500")})
	require.ErrorIs(t, err, dom.ErrInvalidPrice)

	v, err := svc.AddVariant(context.Background(), &dom.Variant{ArtworkID: 1, Kind: dom.VariantCanvas, Name: "Canvas", ProcessingDays: -2, IsActive: true})
	require.NoError(t, err)
	require.Equal(t, 0, v.ProcessingDays)

	_, err = svc.UpdateVariant(context.Background(), &dom.Variant{ID: 999, ArtworkID: 1, Kind: dom.VariantFrame})
	require.ErrorIs(t, err, dom.ErrVariantNotFound)
}

func TestUploadImage_StoresAndPersists(t *testing.T) {
	repo := newMockArtworkRepository()
	storage := newMemoryStorage()
	svc := NewService(repo, Options{Storage: storage})

	img, err := svc.UploadImage(context.Background(), UploadImageInput{
		ArtworkID:   1,
		FileName:    "Detail.JPG",
		ContentType: "image/jpeg",
		AltText:     "Detail",
		Body:        bytes.NewReader([]byte("jpeg-bytes")),
	})

	require.NoError(t, err)
	require.True(t, strings.HasPrefix(img.StorageKey, "artworks/1/"))
	require.True(t, strings.HasSuffix(img.StorageKey, ".jpg"))
	require.Equal(t, "https://cdn.test/"+img.StorageKey, img.URL)
	require.Equal(t, []byte("jpeg-bytes"), storage.objects[img.StorageKey])
}

func TestUploadImage_RollsBackObjectOnRepoError(t *testing.T) {
	repo := newMockArtworkRepository()
	repo.addImgErr = errors.New("insert failed")
	storage := newMemoryStorage()
	svc := NewService(repo, Options{Storage: storage})

	_, err := svc.UploadImage(context.Background(), UploadImageInput{ArtworkID: 1, FileName: "x.png", Body: strings.NewReader("png")})

	require.Error(t, err)
	require.Empty(t, storage.objects)
	require.Len(t, storage.deleted, 1)
}

func TestUploadImage_WithoutStorage(t *testing.T) {
	svc := NewService(newMockArtworkRepository(), Options{})

	_, err := svc.UploadImage(context.Background(), UploadImageInput{ArtworkID: 1, FileName: "x.png", Body: strings.NewReader("png")})
	require.Error(t, err)
}

func TestDelete_RemovesMedia(t *testing.T) {
	repo := newMockArtworkRepository()
	storage := newMemoryStorage()
	svc := NewService(repo, Options{Storage: storage})

	require.NoError(t, svc.Delete(context.Background(), 1))
	require.Equal(t, []string{"artworks/1/a.jpg"}, storage.deleted)
	require.NotContains(t, repo.artworks, int64(1))
}

func TestDeleteImage(t *testing.T) {
	repo := newMockArtworkRepository()
	storage := newMemoryStorage()
	svc := NewService(repo, Options{Storage: storage})

	require.NoError(t, svc.DeleteImage(context.Background(), 1, 21))
	require.Equal(t, []string{"artworks/1/a.jpg"}, storage.deleted)
	require.ErrorIs(t, svc.DeleteImage(context.Background(), 1, 21), dom.ErrImageNotFound)
}
