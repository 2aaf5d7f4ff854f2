package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorder_BusinessCounters(t *testing.T) {
	r := New()

	r.OrderPlaced("STRIPE")
	r.OrderPlaced("stripe")
	r.WebhookProcessed("YOCO", "processed")
	r.ReservationsExpired(3)
	r.ReservationsExpired(0)
	r.NotificationSent("order.paid", "sent")

	require.Equal(t, 2.0, testutil.ToFloat64(r.ordersPlaced.WithLabelValues("stripe")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.webhookEvents.WithLabelValues("yoco", "processed")))
	require.Equal(t, 3.0, testutil.ToFloat64(r.reservationsExpired))
	require.Equal(t, 1.0, testutil.ToFloat64(r.notificationsSent.WithLabelValues("order.paid", "sent")))
}

func TestRecorder_InstrumentUsesRoutePattern(t *testing.T) {
	r := New()
	router := chi.NewRouter()
	router.Use(r.Instrument)
	router.Get("/artworks/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Handle("/metrics", r.Handler())

	for _, id := range []string{"1", "2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/artworks/"+id, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/artworks/{id}", "404")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "gallery_http_requests_total"))
}
