package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	domcart "example.com/gallery-storefront/app/internal/domain/cart"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
	checkoutuc "example.com/gallery-storefront/app/internal/usecase/checkout"
)

type addCartItemRequest struct {
	ArtworkID int64 `json:"artwork_id" validate:"required,gt=0"`
	VariantID int64 `json:"variant_id" validate:"gte=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type updateCartItemRequest struct {
	VariantID int64 `json:"variant_id" validate:"gte=0"`
	Quantity  int64 `json:"quantity" validate:"gte=0"`
}

type shippingRequest struct {
	Name       string `json:"name" validate:"required,max=160"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"max=40"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=120"`
	Province   string `json:"province" validate:"max=120"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,min=2,max=56"`
}

type checkoutRequest struct {
	Provider string          `json:"provider" validate:"required,oneof=STRIPE YOCO"`
	Shipping shippingRequest `json:"shipping"`
}

func (a *API) handleGetCart(w http.ResponseWriter, r *http.Request) {
	user := getAuthUser(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	cart, err := a.cartSvc.GetCart(r.Context(), user.UserID)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(cart))
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	user := getAuthUser(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	var req addCartItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	err := a.cartSvc.AddToCart(r.Context(), user.UserID, domcart.Item{
		ArtworkID: req.ArtworkID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	a.respondCart(w, r, user.UserID, http.StatusCreated)
}

func (a *API) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	user := getAuthUser(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}
	artworkID, err := parseIDParam(r, "artworkID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req updateCartItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	err = a.cartSvc.UpdateQuantity(r.Context(), user.UserID, domcart.Item{
		ArtworkID: artworkID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	a.respondCart(w, r, user.UserID, http.StatusOK)
}

func (a *API) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	user := getAuthUser(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}
	artworkID, err := parseIDParam(r, "artworkID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var variantID int64
	if v := r.URL.Query().Get("variant_id"); v != "" {
		if variantID, err = strconv.ParseInt(v, 10, 64); err != nil {
			respondError(w, http.StatusBadRequest, errors.New("variant_id must be an integer"))
			return
		}
	}

	if err := a.cartSvc.RemoveItem(r.Context(), user.UserID, artworkID, variantID); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) respondCart(w http.ResponseWriter, r *http.Request, userID int64, status int) {
	cart, err := a.cartSvc.GetCart(r.Context(), userID)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, status, mapCart(cart))
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	user := getAuthUser(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	var req checkoutRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	s := req.Shipping
	result, err := a.checkoutSvc.Checkout(r.Context(), user.UserID, checkoutuc.Input{
		Provider: domorder.PaymentProvider(req.Provider),
		Shipping: domorder.ShippingDetails{
			Name:       strings.TrimSpace(s.Name),
			Email:      strings.TrimSpace(s.Email),
			Phone:      strings.TrimSpace(s.Phone),
			Line1:      strings.TrimSpace(s.Line1),
			Line2:      strings.TrimSpace(s.Line2),
			City:       strings.TrimSpace(s.City),
			Province:   strings.TrimSpace(s.Province),
			PostalCode: strings.TrimSpace(s.PostalCode),
			Country:    strings.ToUpper(strings.TrimSpace(s.Country)),
		},
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"order":        mapOrder(result.Order),
		"redirect_url": result.RedirectURL,
	})
}
