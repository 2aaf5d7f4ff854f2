package artwork

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	dom "example.com/gallery-storefront/app/internal/domain/artwork"
	domcategory "example.com/gallery-storefront/app/internal/domain/category"
)

// Storage keeps artwork media and returns a publicly reachable URL.
type Storage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// Cache holds catalogue reads. Values are JSON-encoded by the implementation.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	InvalidateAll(ctx context.Context) error
}

type Service struct {
	repo     dom.Repository
	storage  Storage
	cache    Cache
	baseDays int
	log      logrus.FieldLogger
}

type Options struct {
	Storage  Storage
	Cache    Cache
	BaseDays int
	Logger   logrus.FieldLogger
}

func NewService(repo dom.Repository, opts Options) *Service {
	s := &Service{
		repo:     repo,
		storage:  opts.Storage,
		cache:    opts.Cache,
		baseDays: opts.BaseDays,
		log:      opts.Logger,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

func (s *Service) List(ctx context.Context, filter dom.ListFilter) ([]*dom.Artwork, error) {
	key := listCacheKey(filter)
	var cached []*dom.Artwork
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.log.WithError(err).Warn("catalogue cache read failed")
	}

	artworks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, key, artworks)
	return artworks, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*dom.Artwork, error) {
	key := fmt.Sprintf("artwork:id:%d", id)
	var cached dom.Artwork
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, key, a)
	return a, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*dom.Artwork, error) {
	key := "artwork:slug:" + slug
	var cached dom.Artwork
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	a, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, key, a)
	return a, nil
}

// GetPublic hides inactive artworks from the storefront.
func (s *Service) GetPublic(ctx context.Context, id int64) (*dom.Artwork, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, dom.ErrArtworkNotFound
	}
	return a, nil
}

func (s *Service) Quote(ctx context.Context, artworkID, variantID int64) (dom.Quote, error) {
	a, err := s.repo.GetByID(ctx, artworkID)
	if err != nil {
		return dom.Quote{}, err
	}
	return dom.QuoteFor(a, variantID, s.baseDays)
}

func (s *Service) Create(ctx context.Context, a *dom.Artwork) (*dom.Artwork, error) {
	a.Title = strings.TrimSpace(a.Title)
	if a.Slug == "" {
		a.Slug = domcategory.Slugify(a.Title)
	} else {
		a.Slug = domcategory.Slugify(a.Slug)
	}
	if !a.Price.IsPositive() {
		return nil, dom.ErrInvalidPrice
	}
	if a.Stock < 0 {
		a.Stock = 0
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return created, nil
}

type UpdateInput struct {
	ID          int64
	Title       *string
	Slug        *string
	Artist      *string
	Description *string
	Medium      *string
	Year        *int
	Price       *string
	Stock       *int64
	CategoryID  *int64
	IsActive    *bool
	IsFeatured  *bool
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (*dom.Artwork, error) {
	existed, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		existed.Title = strings.TrimSpace(*in.Title)
	}
	if in.Slug != nil {
		if slug := domcategory.Slugify(*in.Slug); slug != "" {
			existed.Slug = slug
		}
	}
	if in.Artist != nil {
		existed.Artist = *in.Artist
	}
	if in.Description != nil {
		existed.Description = *in.Description
	}
	if in.Medium != nil {
		existed.Medium = *in.Medium
	}
	if in.Year != nil {
		existed.Year = *in.Year
	}
	if in.Price != nil {
		price, err := parsePrice(*in.Price)
		if err != nil {
			return nil, err
		}
		existed.Price = price
	}
	if in.Stock != nil && *in.Stock >= 0 {
		existed.Stock = *in.Stock
	}
	if in.CategoryID != nil && *in.CategoryID > 0 {
		existed.CategoryID = *in.CategoryID
	}
	if in.IsActive != nil {
		existed.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		existed.IsFeatured = *in.IsFeatured
	}

	updated, err := s.repo.Update(ctx, existed)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, img := range a.Images {
		s.deleteObject(ctx, img.StorageKey)
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) AdjustStock(ctx context.Context, id int64, delta int64) (*dom.Artwork, error) {
	a, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return a, nil
}

func (s *Service) AddVariant(ctx context.Context, v *dom.Variant) (*dom.Variant, error) {
	if !v.Kind.IsValid() {
		return nil, dom.ErrInvalidVariantKind
	}
	a, err := s.repo.GetByID(ctx, v.ArtworkID)
	if err != nil {
		return nil, err
	}
	if !a.Price.Add(v.PriceAdjustment).IsPositive() {
		return nil, dom.ErrInvalidPrice
	}
	if v.ProcessingDays < 0 {
		v.ProcessingDays = 0
	}

	created, err := s.repo.CreateVariant(ctx, v)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) UpdateVariant(ctx context.Context, v *dom.Variant) (*dom.Variant, error) {
	if !v.Kind.IsValid() {
		return nil, dom.ErrInvalidVariantKind
	}
	a, err := s.repo.GetByID(ctx, v.ArtworkID)
	if err != nil {
		return nil, err
	}
	if _, ok := a.Variant(v.ID); !ok {
		return nil, dom.ErrVariantNotFound
	}
	if !a.Price.Add(v.PriceAdjustment).IsPositive() {
		return nil, dom.ErrInvalidPrice
	}

	updated, err := s.repo.UpdateVariant(ctx, v)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) DeleteVariant(ctx context.Context, artworkID, variantID int64) error {
	if err := s.repo.DeleteVariant(ctx, artworkID, variantID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

type UploadImageInput struct {
	ArtworkID   int64
	FileName    string
	ContentType string
	AltText     string
	Position    int
	Body        io.Reader
}

func (s *Service) UploadImage(ctx context.Context, in UploadImageInput) (*dom.Image, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("artwork: media storage not configured")
	}
	if _, err := s.repo.GetByID(ctx, in.ArtworkID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("artworks/%d/%s%s", in.ArtworkID, uuid.NewString(), strings.ToLower(path.Ext(in.FileName)))
	url, err := s.storage.Put(ctx, key, in.ContentType, in.Body)
	if err != nil {
		return nil, fmt.Errorf("artwork: store image: %w", err)
	}

	img, err := s.repo.AddImage(ctx, &dom.Image{
		ArtworkID:  in.ArtworkID,
		URL:        url,
		StorageKey: key,
		AltText:    in.AltText,
		Position:   in.Position,
	})
	if err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}
	s.invalidate(ctx)
	return img, nil
}

func (s *Service) DeleteImage(ctx context.Context, artworkID, imageID int64) error {
	img, err := s.repo.GetImage(ctx, artworkID, imageID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteImage(ctx, artworkID, imageID); err != nil {
		return err
	}
	s.deleteObject(ctx, img.StorageKey)
	s.invalidate(ctx)
	return nil
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if s.storage == nil || key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to delete artwork media")
	}
}

func (s *Service) remember(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.log.WithError(err).Warn("catalogue cache write failed")
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.log.WithError(err).Warn("catalogue cache invalidation failed")
	}
}

func listCacheKey(f dom.ListFilter) string {
	var b strings.Builder
	b.WriteString("artworks:list")
	if f.CategoryID != nil {
		fmt.Fprintf(&b, ":c%d", *f.CategoryID)
	}
	if f.Search != "" {
		fmt.Fprintf(&b, ":q%s", strings.ToLower(f.Search))
	}
	if f.OnlyActive {
		b.WriteString(":active")
	}
	if f.OnlyFeatured {
		b.WriteString(":featured")
	}
	if f.MinPrice != nil {
		fmt.Fprintf(&b, ":min%s", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		fmt.Fprintf(&b, ":max%s", f.MaxPrice.String())
	}
	fmt.Fprintf(&b, ":l%d:o%d", f.Limit, f.Offset)
	return b.String()
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, any) error         { return nil }
func (noopCache) InvalidateAll(context.Context) error            { return nil }
