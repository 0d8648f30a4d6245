package request

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/match-video-api/internal/common"
)

// Handler exposes submission, preview and admin lookup endpoints.
type Handler struct {
	Service *Service
}

// Submit handles POST /api/v1/requests.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "request service not configured", nil)
		return
	}
	var in SubmitInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Service.Submit(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

// Preview handles POST /api/v1/quotes/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "request service not configured", nil)
		return
	}
	var in PreviewInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Service.Preview(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// AdminGet handles GET /api/v1/admin/requests/{receiptNumber}.
func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "request service not configured", nil)
		return
	}
	detail, err := h.Service.GetByReceipt(r.Context(), chi.URLParam(r, "receiptNumber"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}
