package http

import (
	"errors"
	"io"
	"net/http"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

var errWebhookTooLarge = errors.New("webhook payload too large")

// handleWebhook reads the raw body for signature verification. Any 2xx tells
// the provider to stop retrying, so only verified, applied or duplicate
// deliveries are acknowledged.
func (a *API) handleWebhook(provider domorder.PaymentProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			respondError(w, http.StatusRequestEntityTooLarge, errWebhookTooLarge)
			return
		}

		result, err := a.paymentSvc.HandleWebhook(r.Context(), provider, payload, r.Header)
		if err != nil {
			a.handleDomainError(w, r, err)
			return
		}

		resp := map[string]any{
			"received":  true,
			"duplicate": result.Duplicate,
		}
		if result.Outcome != "" {
			resp["outcome"] = result.Outcome
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
