package yoco

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
)

const (
	headerWebhookID        = "webhook-id"
	headerWebhookTimestamp = "webhook-timestamp"
	headerWebhookSignature = "webhook-signature"

	secretPrefix     = "whsec_"
	metadataOrderRef = "orderReference"
	metadataCheckout = "checkoutId"

	defaultTolerance = 3 * time.Minute
)

type webhookEvent struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	CreatedDate string         `json:"createdDate"`
	Payload     webhookPayload `json:"payload"`
}

type webhookPayload struct {
	ID        string            `json:"id"`
	PaymentID string            `json:"paymentId"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata"`
}

// ParseWebhook verifies the signed headers and maps the delivery onto a
// payment event.
func (g *Gateway) ParseWebhook(payload []byte, headers http.Header) (*dompayment.Event, error) {
	id := strings.TrimSpace(headers.Get(headerWebhookID))
	ts := strings.TrimSpace(headers.Get(headerWebhookTimestamp))
	sigs := strings.TrimSpace(headers.Get(headerWebhookSignature))
	if err := g.verify(id, ts, sigs, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", dompayment.ErrInvalidSignature, err)
	}

	var evt webhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", dompayment.ErrInvalidPayload, err)
	}
	eventID := evt.ID
	if eventID == "" {
		eventID = id
	}

	occurred, err := time.Parse(time.RFC3339Nano, evt.CreatedDate)
	if err != nil {
		secs, _ := strconv.ParseInt(ts, 10, 64)
		occurred = time.Unix(secs, 0)
	}

	out := &dompayment.Event{
		Provider:       domorder.ProviderYoco,
		ID:             eventID,
		Type:           dompayment.EventIgnored,
		RawType:        evt.Type,
		OrderReference: evt.Payload.Metadata[metadataOrderRef],
		ProviderRef:    evt.Payload.Metadata[metadataCheckout],
		Amount:         evt.Payload.Amount,
		Currency:       strings.ToUpper(evt.Payload.Currency),
		OccurredAt:     occurred.UTC(),
	}
	switch evt.Type {
	case "payment.succeeded":
		out.Type = dompayment.EventPaymentSucceeded
		out.PaymentRef = evt.Payload.ID
	case "payment.failed":
		out.Type = dompayment.EventPaymentFailed
		out.PaymentRef = evt.Payload.ID
	case "refund.succeeded":
		out.Type = dompayment.EventRefunded
		out.PaymentRef = evt.Payload.PaymentID
	}
	return out, nil
}

// verify checks the signature over "id.timestamp.body" with the decoded
// signing secret. The header may carry several space separated "v1,<sig>"
// entries while secrets are rotated.
func (g *Gateway) verify(id, ts, header string, body []byte) error {
	if id == "" || ts == "" || header == "" {
		return fmt.Errorf("missing signature headers")
	}
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", ts)
	}
	delta := g.now().Sub(time.Unix(secs, 0))
	if delta < 0 {
		delta = -delta
	}
	if delta > g.tolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(g.webhookSecret, secretPrefix))
	if err != nil {
		return fmt.Errorf("decode webhook secret: %w", err)
	}
	expected := Sign(key, id, ts, body)

	for _, entry := range strings.Fields(header) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}

// Sign returns the base64 HMAC-SHA256 of a delivery.
func Sign(key []byte, id, ts string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + ts + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
