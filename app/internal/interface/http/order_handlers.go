package http

import (
	"errors"
	"net/http"
	"strings"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

func parseOrderFilter(r *http.Request) (domorder.ListFilter, error) {
	var filter domorder.ListFilter
	if v := r.URL.Query().Get("status"); v != "" {
		status := domorder.Status(strings.ToUpper(v))
		if !status.IsValid() {
			return filter, domorder.ErrInvalidStatus
		}
		filter.Status = &status
	}
	limit, offset, err := pagination(r)
	if err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = limit, offset
	return filter, nil
}

func writeOrders(w http.ResponseWriter, orders []*domorder.Order) {
	resp := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, mapOrder(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (a *API) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	user := getAuthUser(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}
	filter, err := parseOrderFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	orders, err := a.orderSvc.ListForUser(r.Context(), user.UserID, filter)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeOrders(w, orders)
}

func (a *API) handleGetMyOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := a.loadMyOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (a *API) handleMyOrderInvoice(w http.ResponseWriter, r *http.Request) {
	o, ok := a.loadMyOrder(w, r)
	if !ok {
		return
	}
	a.writeInvoice(w, r, o)
}

func (a *API) loadMyOrder(w http.ResponseWriter, r *http.Request) (*domorder.Order, bool) {
	user := getAuthUser(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return nil, false
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return nil, false
	}
	o, err := a.orderSvc.GetForUser(r.Context(), user.UserID, id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return nil, false
	}
	return o, true
}

func (a *API) writeInvoice(w http.ResponseWriter, r *http.Request, o *domorder.Order) {
	pdf, err := a.orderSvc.Invoice(r.Context(), o)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+o.Reference+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

type updateOrderStatusRequest struct {
	Status         string `json:"status" validate:"required,oneof=PENDING PAID SHIPPED CANCELLED"`
	TrackingNumber string `json:"tracking_number" validate:"max=120"`
}

var errTrackingRequired = errors.New("tracking_number is required when shipping an order")

func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	orders, err := a.orderSvc.List(r.Context(), filter)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeOrders(w, orders)
}

func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	o, err := a.orderSvc.GetByID(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (a *API) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req updateOrderStatusRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	status := domorder.Status(req.Status)
	if status == domorder.StatusShipped && strings.TrimSpace(req.TrackingNumber) == "" {
		respondError(w, http.StatusBadRequest, errTrackingRequired)
		return
	}

	o, err := a.orderSvc.UpdateStatus(r.Context(), id, status, req.TrackingNumber)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (a *API) handleRefundOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	o, err := a.paymentSvc.Refund(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, mapOrder(o))
}

func (a *API) handleOrderInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	o, err := a.orderSvc.GetByID(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	a.writeInvoice(w, r, o)
}
