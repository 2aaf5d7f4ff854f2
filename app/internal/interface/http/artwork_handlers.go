package http

import (
	"bufio"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
	artworkuc "example.com/gallery-storefront/app/internal/usecase/artwork"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

func parseArtworkFilter(r *http.Request) (domartwork.ListFilter, error) {
	q := r.URL.Query()
	var filter domartwork.ListFilter
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, errors.New("category_id must be an integer")
		}
		filter.CategoryID = &id
	}
	for key, dst := range map[string]**decimal.Decimal{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		if v := q.Get(key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return filter, errors.New(key + " must be a decimal amount")
			}
			*dst = &d
		}
	}
	filter.Search = strings.TrimSpace(q.Get("q"))
	filter.OnlyFeatured = parseBoolQuery(r, "featured")

	limit, offset, err := pagination(r)
	if err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = limit, offset
	return filter, nil
}

func (a *API) handleListArtworks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseArtworkFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	filter.OnlyActive = true
	a.listArtworks(w, r, filter, false)
}

func (a *API) handleListArtworksAdmin(w http.ResponseWriter, r *http.Request) {
	filter, err := parseArtworkFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	filter.OnlyActive = parseBoolQuery(r, "active")
	a.listArtworks(w, r, filter, true)
}

func (a *API) listArtworks(w http.ResponseWriter, r *http.Request, filter domartwork.ListFilter, admin bool) {
	artworks, err := a.artworkSvc.List(r.Context(), filter)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	resp := make([]map[string]any, 0, len(artworks))
	for _, art := range artworks {
		resp = append(resp, mapArtwork(art, admin))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   resp,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (a *API) handleGetArtwork(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	art, err := a.artworkSvc.GetPublic(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapArtwork(art, false))
}

func (a *API) handleGetArtworkBySlug(w http.ResponseWriter, r *http.Request) {
	art, err := a.artworkSvc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	if !art.IsActive {
		a.handleDomainError(w, r, domartwork.ErrArtworkNotFound)
		return
	}
	writeJSON(w, http.StatusOK, mapArtwork(art, false))
}

func (a *API) handleQuote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var variantID int64
	if v := r.URL.Query().Get("variant_id"); v != "" {
		if variantID, err = strconv.ParseInt(v, 10, 64); err != nil || variantID < 0 {
			respondError(w, http.StatusBadRequest, errors.New("variant_id must be a non-negative integer"))
			return
		}
	}

	quote, err := a.artworkSvc.Quote(r.Context(), id, variantID)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapQuote(quote))
}

func (a *API) handleGetArtworkAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	art, err := a.artworkSvc.GetByID(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapArtwork(art, true))
}

type createArtworkRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"omitempty,max=220"`
	Artist      string `json:"artist" validate:"required,max=160"`
	Description string `json:"description"`
	Medium      string `json:"medium" validate:"max=120"`
	WidthCM     string `json:"width_cm" validate:"omitempty,numeric"`
	HeightCM    string `json:"height_cm" validate:"omitempty,numeric"`
	Year        int    `json:"year" validate:"omitempty,gte=1000,lte=9999"`
	Price       string `json:"price" validate:"required,numeric"`
	Stock       int64  `json:"stock" validate:"gte=0"`
	CategoryID  int64  `json:"category_id" validate:"required,gt=0"`
	IsActive    *bool  `json:"is_active"`
	IsFeatured  bool   `json:"is_featured"`
}

type updateArtworkRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Slug        *string `json:"slug" validate:"omitempty,max=220"`
	Artist      *string `json:"artist" validate:"omitempty,max=160"`
	Description *string `json:"description"`
	Medium      *string `json:"medium" validate:"omitempty,max=120"`
	Year        *int    `json:"year" validate:"omitempty,gte=1000,lte=9999"`
	Price       *string `json:"price" validate:"omitempty,numeric"`
	Stock       *int64  `json:"stock" validate:"omitempty,gte=0"`
	CategoryID  *int64  `json:"category_id" validate:"omitempty,gt=0"`
	IsActive    *bool   `json:"is_active"`
	IsFeatured  *bool   `json:"is_featured"`
}

func parseOptionalDecimal(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(v)
}

func (a *API) handleCreateArtwork(w http.ResponseWriter, r *http.Request) {
	var req createArtworkRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	width, err := parseOptionalDecimal(req.WidthCM)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	height, err := parseOptionalDecimal(req.HeightCM)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	art, err := a.artworkSvc.Create(r.Context(), &domartwork.Artwork{
		Title:       req.Title,
		Slug:        req.Slug,
		Artist:      req.Artist,
		Description: req.Description,
		Medium:      req.Medium,
		WidthCM:     width,
		HeightCM:    height,
		Year:        req.Year,
		Price:       price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		IsActive:    active,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapArtwork(art, true))
}

func (a *API) handleUpdateArtwork(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req updateArtworkRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	art, err := a.artworkSvc.Update(r.Context(), artworkuc.UpdateInput{
		ID:          id,
		Title:       req.Title,
		Slug:        req.Slug,
		Artist:      req.Artist,
		Description: req.Description,
		Medium:      req.Medium,
		Year:        req.Year,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		IsActive:    req.IsActive,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapArtwork(art, true))
}

func (a *API) handleDeleteArtwork(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.artworkSvc.Delete(r.Context(), id); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustStockRequest struct {
	Delta int64 `json:"delta" validate:"required"`
}

func (a *API) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req adjustStockRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	art, err := a.artworkSvc.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapArtwork(art, true))
}

type variantRequest struct {
	Kind            string `json:"kind" validate:"required,oneof=FRAME CANVAS PRINT"`
	Name            string `json:"name" validate:"required,max=120"`
	PriceAdjustment string `json:"price_adjustment" validate:"omitempty,numeric"`
	ProcessingDays  int    `json:"processing_days" validate:"gte=0,lte=365"`
	IsActive        *bool  `json:"is_active"`
}

func (req variantRequest) toVariant(artworkID, variantID int64) (*domartwork.Variant, error) {
	adj, err := parseOptionalDecimal(req.PriceAdjustment)
	if err != nil {
		return nil, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &domartwork.Variant{
		ID:              variantID,
		ArtworkID:       artworkID,
		Kind:            domartwork.VariantKind(req.Kind),
		Name:            strings.TrimSpace(req.Name),
		PriceAdjustment: adj,
		ProcessingDays:  req.ProcessingDays,
		IsActive:        active,
	}, nil
}

func (a *API) handleAddVariant(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req variantRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	v, err := req.toVariant(id, 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	created, err := a.artworkSvc.AddVariant(r.Context(), v)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapVariant(*created))
}

func (a *API) handleUpdateVariant(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	variantID, err := parseIDParam(r, "variantID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req variantRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	v, err := req.toVariant(id, variantID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := a.artworkSvc.UpdateVariant(r.Context(), v)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapVariant(*updated))
}

func (a *API) handleDeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	variantID, err := parseIDParam(r, "variantID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.artworkSvc.DeleteVariant(r.Context(), id, variantID); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadImage accepts multipart/form-data with a "file" part and
// optional "alt_text" and "position" fields.
func (a *API) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	defer file.Close()

	br := bufio.NewReaderSize(file, 512)
	head, _ := br.Peek(512)
	contentType := http.DetectContentType(head)
	if !allowedImageTypes[contentType] {
		respondError(w, http.StatusUnsupportedMediaType, errors.New("unsupported image type "+contentType))
		return
	}

	position := 0
	if v := r.FormValue("position"); v != "" {
		if position, err = strconv.Atoi(v); err != nil || position < 0 {
			respondError(w, http.StatusBadRequest, errors.New("position must be a non-negative integer"))
			return
		}
	}

	img, err := a.artworkSvc.UploadImage(r.Context(), artworkuc.UploadImageInput{
		ArtworkID:   id,
		FileName:    header.Filename,
		ContentType: contentType,
		AltText:     strings.TrimSpace(r.FormValue("alt_text")),
		Position:    position,
		Body:        br,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapImage(*img))
}

func (a *API) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	imageID, err := parseIDParam(r, "imageID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.artworkSvc.DeleteImage(r.Context(), id, imageID); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
