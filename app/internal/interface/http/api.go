package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
	domcart "example.com/gallery-storefront/app/internal/domain/cart"
	domcategory "example.com/gallery-storefront/app/internal/domain/category"
	dominquiry "example.com/gallery-storefront/app/internal/domain/inquiry"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
	domuser "example.com/gallery-storefront/app/internal/domain/user"
	"example.com/gallery-storefront/app/internal/logging"
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

const (
	maxJSONBody    = 1 << 20
	maxWebhookBody = 1 << 20
	maxUploadBody  = 20 << 20
)

// Metrics instruments the router and serves /metrics.
type Metrics interface {
	Instrument(next http.Handler) http.Handler
	Handler() http.Handler
}

type API struct {
	authSvc      *authuc.Service
	userSvc      *useruc.Service
	categorySvc  *categoryuc.Service
	artworkSvc   *artworkuc.Service
	cartSvc      *cartuc.Service
	checkoutSvc  *checkoutuc.Service
	orderSvc     *orderuc.Service
	paymentSvc   *paymentuc.Service
	inquirySvc   *inquiryuc.Service
	dashboardSvc *dashboarduc.Service
	tokenSvc     authuc.TokenService
	validator    *validator.Validate
	log          logrus.FieldLogger
	metrics      Metrics
	mediaDir     string

	loginLimiter   *rateLimiter
	inquiryLimiter *rateLimiter
}

type Dependencies struct {
	AuthService      *authuc.Service
	UserService      *useruc.Service
	CategoryService  *categoryuc.Service
	ArtworkService   *artworkuc.Service
	CartService      *cartuc.Service
	CheckoutService  *checkoutuc.Service
	OrderService     *orderuc.Service
	PaymentService   *paymentuc.Service
	InquiryService   *inquiryuc.Service
	DashboardService *dashboarduc.Service
	TokenService     authuc.TokenService
	Logger           logrus.FieldLogger
	Metrics          Metrics

	// MediaDir, when set, is served under /media/ for local artwork storage.
	MediaDir string

	LoginRatePerMinute   int
	InquiryRatePerMinute int
}

func NewAPI(deps Dependencies) *API {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &API{
		authSvc:        deps.AuthService,
		userSvc:        deps.UserService,
		categorySvc:    deps.CategoryService,
		artworkSvc:     deps.ArtworkService,
		cartSvc:        deps.CartService,
		checkoutSvc:    deps.CheckoutService,
		orderSvc:       deps.OrderService,
		paymentSvc:     deps.PaymentService,
		inquirySvc:     deps.InquiryService,
		dashboardSvc:   deps.DashboardService,
		tokenSvc:       deps.TokenService,
		validator:      validator.New(),
		log:            log,
		metrics:        deps.Metrics,
		mediaDir:       deps.MediaDir,
		loginLimiter:   newRateLimiter(deps.LoginRatePerMinute, log),
		inquiryLimiter: newRateLimiter(deps.InquiryRatePerMinute, log),
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger(a.log))
	r.Use(chimw.Recoverer)
	if a.metrics != nil {
		r.Use(a.metrics.Instrument)
		r.Handle("/metrics", a.metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if a.mediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(a.mediaDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(pub chi.Router) {
			pub.Use(chimw.AllowContentType("application/json"))
			pub.With(a.loginLimiter.Handler).Post("/auth/login", a.handleLogin)
			pub.With(a.loginLimiter.Handler).Post("/auth/register", a.handleRegister)
			pub.Get("/categories", a.handleListPublicCategories)
			pub.Get("/artworks", a.handleListArtworks)
			pub.Get("/artworks/{id}", a.handleGetArtwork)
			pub.Get("/artworks/slug/{slug}", a.handleGetArtworkBySlug)
			pub.Get("/artworks/{id}/quote", a.handleQuote)
			pub.With(a.inquiryLimiter.Handler).Post("/inquiries", a.handleSubmitInquiry)
		})

		// Providers post their own content types; the body is verified raw.
		r.Post("/webhooks/stripe", a.handleWebhook(domorder.ProviderStripe))
		r.Post("/webhooks/yoco", a.handleWebhook(domorder.ProviderYoco))

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware)
			pr.Use(chimw.AllowContentType("application/json"))
			pr.Get("/me/cart", a.handleGetCart)
			pr.Post("/me/cart/items", a.handleAddCartItem)
			pr.Put("/me/cart/items/{artworkID}", a.handleUpdateCartItem)
			pr.Delete("/me/cart/items/{artworkID}", a.handleRemoveCartItem)
			pr.Post("/me/checkout", a.handleCheckout)
			pr.Get("/me/orders", a.handleListMyOrders)
			pr.Get("/me/orders/{id}", a.handleGetMyOrder)
			pr.Get("/me/orders/{id}/invoice", a.handleMyOrderInvoice)
		})

		r.Group(func(ar chi.Router) {
			ar.Use(a.authMiddleware)
			ar.Use(a.requireRoles(domuser.RoleCodeAdmin, domuser.RoleCodeSuperAdmin))

			ar.Route("/admin", func(admin chi.Router) {
				admin.Get("/dashboard", a.handleDashboard)

				admin.Route("/users", func(rr chi.Router) {
					rr.Get("/", a.handleListUsers)
					rr.Post("/", a.handleCreateUser)
					rr.Get("/{id}", a.handleGetUser)
					rr.Put("/{id}", a.handleUpdateUser)
					rr.Delete("/{id}", a.handleDeleteUser)
				})

				admin.Route("/categories", func(rr chi.Router) {
					rr.Get("/", a.handleListCategories)
					rr.Post("/", a.handleCreateCategory)
					rr.Get("/{id}", a.handleGetCategory)
					rr.Put("/{id}", a.handleUpdateCategory)
					rr.Delete("/{id}", a.handleDeleteCategory)
				})

				admin.Route("/artworks", func(rr chi.Router) {
					rr.Get("/", a.handleListArtworksAdmin)
					rr.Post("/", a.handleCreateArtwork)
					rr.Get("/{id}", a.handleGetArtworkAdmin)
					rr.Put("/{id}", a.handleUpdateArtwork)
					rr.Delete("/{id}", a.handleDeleteArtwork)
					rr.Post("/{id}/stock", a.handleAdjustStock)
					rr.Post("/{id}/variants", a.handleAddVariant)
					rr.Put("/{id}/variants/{variantID}", a.handleUpdateVariant)
					rr.Delete("/{id}/variants/{variantID}", a.handleDeleteVariant)
					rr.Post("/{id}/images", a.handleUploadImage)
					rr.Delete("/{id}/images/{imageID}", a.handleDeleteImage)
				})

				admin.Route("/orders", func(rr chi.Router) {
					rr.Get("/", a.handleListOrders)
					rr.Get("/{id}", a.handleGetOrder)
					rr.Patch("/{id}", a.handleUpdateOrderStatus)
					rr.Post("/{id}/refund", a.handleRefundOrder)
					rr.Get("/{id}/invoice", a.handleOrderInvoice)
				})

				admin.Route("/inquiries", func(rr chi.Router) {
					rr.Get("/", a.handleListInquiries)
					rr.Get("/{id}", a.handleGetInquiry)
					rr.Patch("/{id}", a.handleUpdateInquiryStatus)
					rr.Delete("/{id}", a.handleDeleteInquiry)
				})
			})
		})
	})

	return r
}

func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody)).Decode(dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func parseIDParam(r *http.Request, key string) (int64, error) {
	idStr := chi.URLParam(r, key)
	return strconv.ParseInt(idStr, 10, 64)
}

// pagination reads limit/offset; limit is capped at 100 and defaults to 20.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = 20
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if limit > 100 {
			limit = 100
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func parseBoolQuery(r *http.Request, key string) bool {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	return v == "1" || v == "true" || v == "yes"
}

// handleDomainError maps sentinel errors onto status codes. Anything
// unrecognised is logged and answered with a generic 500.
func (a *API) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domuser.ErrUserNotFound),
		errors.Is(err, domcategory.ErrCategoryNotFound),
		errors.Is(err, domartwork.ErrArtworkNotFound),
		errors.Is(err, domartwork.ErrVariantNotFound),
		errors.Is(err, domartwork.ErrImageNotFound),
		errors.Is(err, domcart.ErrItemNotFound),
		errors.Is(err, domorder.ErrOrderNotFound),
		errors.Is(err, dominquiry.ErrInquiryNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, domcategory.ErrCategorySlugExists),
		errors.Is(err, domcategory.ErrCategoryInUse),
		errors.Is(err, domartwork.ErrArtworkSlugExists),
		errors.Is(err, domuser.ErrEmailAlreadyUsed),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, dompayment.ErrDeliveryInProgress):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, domuser.ErrInvalidCredential),
		errors.Is(err, domuser.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domuser.ErrCannotAssignRole):
		respondError(w, http.StatusForbidden, err)
	case errors.Is(err, dompayment.ErrInvalidSignature),
		errors.Is(err, dompayment.ErrInvalidPayload):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, domorder.ErrProviderUnavailable):
		respondError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, domuser.ErrInvalidRoleCode),
		errors.Is(err, domuser.ErrWeakPassword),
		errors.Is(err, domuser.ErrCannotDeleteSelf),
		errors.Is(err, domcategory.ErrCategoryInvalidName),
		errors.Is(err, domcategory.ErrCategoryInvalidSlug),
		errors.Is(err, domartwork.ErrArtworkUnavailable),
		errors.Is(err, domartwork.ErrOutOfStock),
		errors.Is(err, domartwork.ErrInvalidVariantKind),
		errors.Is(err, domartwork.ErrInvalidPrice),
		errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrEmptyOrderItems),
		errors.Is(err, domorder.ErrInvalidPayment),
		errors.Is(err, domorder.ErrCheckoutValidation),
		errors.Is(err, domorder.ErrInvalidStatus),
		errors.Is(err, domorder.ErrNotRefundable),
		errors.Is(err, dompayment.ErrAmountMismatch),
		errors.Is(err, dominquiry.ErrInvalidStatus),
		errors.Is(err, dominquiry.ErrInvalidInquiry):
		respondError(w, http.StatusUnprocessableEntity, err)
	default:
		a.log.WithError(err).WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": chimw.GetReqID(r.Context()),
		}).Error("request failed")
		respondError(w, http.StatusInternalServerError, errInternal)
	}
}
