package yoco

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
)

const DefaultAPIURL = "https://payments.yoco.com"

type Config struct {
	SecretKey     string
	WebhookSecret string
	APIURL        string
	// Tolerance bounds webhook timestamp skew; zero means three minutes.
	Tolerance  time.Duration
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Gateway talks to the Yoco Checkout API.
type Gateway struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	tolerance     time.Duration
	http          *http.Client
	log           logrus.FieldLogger
	now           func() time.Time
}

func New(cfg Config) *Gateway {
	g := &Gateway{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimRight(cfg.APIURL, "/"),
		tolerance:     cfg.Tolerance,
		http:          cfg.HTTPClient,
		log:           cfg.Logger,
		now:           time.Now,
	}
	if g.baseURL == "" {
		g.baseURL = DefaultAPIURL
	}
	if g.tolerance <= 0 {
		g.tolerance = defaultTolerance
	}
	if g.http == nil {
		g.http = &http.Client{Timeout: 15 * time.Second}
	}
	if g.log == nil {
		g.log = logrus.StandardLogger()
	}
	return g
}

func (g *Gateway) Provider() domorder.PaymentProvider {
	return domorder.ProviderYoco
}

type checkoutLineItem struct {
	DisplayName string          `json:"displayName"`
	Quantity    int64           `json:"quantity"`
	Pricing     lineItemPricing `json:"pricingDetails"`
}

type lineItemPricing struct {
	Price int64 `json:"price"`
}

type checkoutRequest struct {
	Amount     int64              `json:"amount"`
	Currency   string             `json:"currency"`
	SuccessURL string             `json:"successUrl,omitempty"`
	CancelURL  string             `json:"cancelUrl,omitempty"`
	FailureURL string             `json:"failureUrl,omitempty"`
	ExternalID string             `json:"externalId"`
	Metadata   map[string]string  `json:"metadata"`
	LineItems  []checkoutLineItem `json:"lineItems,omitempty"`
}

type checkoutResponse struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirectUrl"`
	Status      string `json:"status"`
}

type refundResponse struct {
	ID       string `json:"id"`
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("yoco: api returned %d: %s", e.StatusCode, e.Body)
}

func (g *Gateway) CreateCheckout(ctx context.Context, req dompayment.CheckoutRequest) (*dompayment.CheckoutSession, error) {
	o := req.Order
	body := checkoutRequest{
		Amount:     domorder.MinorUnits(o.Total),
		Currency:   strings.ToUpper(o.Currency),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		FailureURL: req.FailureURL,
		ExternalID: o.Reference,
		Metadata:   map[string]string{metadataOrderRef: o.Reference},
	}
	for _, item := range o.Items {
		name := item.Title
		if item.VariantName != "" {
			name += " (" + item.VariantName + ")"
		}
		body.LineItems = append(body.LineItems, checkoutLineItem{
			DisplayName: name,
			Quantity:    item.Quantity,
			Pricing:     lineItemPricing{Price: domorder.MinorUnits(item.UnitPrice)},
		})
	}

	var resp checkoutResponse
	if err := g.post(ctx, "/api/checkouts", "checkout-"+o.Reference, body, &resp); err != nil {
		return nil, fmt.Errorf("yoco: create checkout: %w", err)
	}
	if resp.ID == "" || resp.RedirectURL == "" {
		return nil, fmt.Errorf("yoco: create checkout: incomplete response")
	}
	return &dompayment.CheckoutSession{ProviderRef: resp.ID, RedirectURL: resp.RedirectURL}, nil
}

// Refund refunds the checkout behind the order in full.
func (g *Gateway) Refund(ctx context.Context, o *domorder.Order) error {
	if o.ProviderRef == "" {
		return fmt.Errorf("yoco: order %s has no checkout", o.Reference)
	}
	var resp refundResponse
	if err := g.post(ctx, "/api/checkouts/"+o.ProviderRef+"/refund", "refund-"+o.Reference, struct{}{}, &resp); err != nil {
		return fmt.Errorf("yoco: refund: %w", err)
	}
	g.log.WithFields(logrus.Fields{
		"order_id":  o.ID,
		"refund_id": resp.RefundID,
		"status":    resp.Status,
	}).Info("yoco refund requested")
	return nil
}

func (g *Gateway) post(ctx context.Context, path, idempotencyKey string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
