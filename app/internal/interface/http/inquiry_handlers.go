package http

import (
	"net/http"
	"strings"

	dominquiry "example.com/gallery-storefront/app/internal/domain/inquiry"
)

type submitInquiryRequest struct {
	ArtworkID *int64 `json:"artwork_id" validate:"omitempty,gt=0"`
	Name      string `json:"name" validate:"required,max=160"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"max=40"`
	Subject   string `json:"subject" validate:"max=200"`
	Message   string `json:"message" validate:"required,max=5000"`
}

type updateInquiryStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=NEW READ REPLIED ARCHIVED"`
}

func (a *API) handleSubmitInquiry(w http.ResponseWriter, r *http.Request) {
	var req submitInquiryRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	inq, err := a.inquirySvc.Submit(r.Context(), &dominquiry.Inquiry{
		ArtworkID: req.ArtworkID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Subject:   req.Subject,
		Message:   req.Message,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     inq.ID,
		"status": inq.Status,
	})
}

func (a *API) handleListInquiries(w http.ResponseWriter, r *http.Request) {
	var filter dominquiry.ListFilter
	if v := r.URL.Query().Get("status"); v != "" {
		status := dominquiry.Status(strings.ToUpper(v))
		if !status.IsValid() {
			respondError(w, http.StatusBadRequest, dominquiry.ErrInvalidStatus)
			return
		}
		filter.Status = &status
	}
	limit, offset, err := pagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	filter.Limit, filter.Offset = limit, offset

	inquiries, err := a.inquirySvc.List(r.Context(), filter)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	resp := make([]map[string]any, 0, len(inquiries))
	for _, inq := range inquiries {
		resp = append(resp, mapInquiry(inq))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (a *API) handleGetInquiry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	inq, err := a.inquirySvc.GetByID(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapInquiry(inq))
}

func (a *API) handleUpdateInquiryStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req updateInquiryStatusRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	inq, err := a.inquirySvc.UpdateStatus(r.Context(), id, dominquiry.Status(req.Status))
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapInquiry(inq))
}

func (a *API) handleDeleteInquiry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.inquirySvc.Delete(r.Context(), id); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := a.dashboardSvc.Summary(r.Context())
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSummary(summary))
}
