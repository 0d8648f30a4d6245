package tournament

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/match-video-api/internal/common"
)

// Handler exposes tournament search and admin endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalItems int64 `json:"totalItems"`
}

type activeBody struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// Search handles GET /api/v1/tournaments?q=&take=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	take := common.QueryInt(r, "take", h.service.DefaultTake(), h.service.MaxTake())
	items, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), take)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Detail handles GET /api/v1/tournaments/{id}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}

// AdminList handles GET /api/v1/admin/tournaments.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	page := common.QueryInt(r, "page", 1, 0)
	limit := common.QueryInt(r, "limit", h.service.DefaultTake(), h.service.MaxTake())
	result, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": pagination{Page: result.Page, PerPage: result.Limit, TotalItems: result.Total},
	})
}

// AdminCreate handles POST /api/v1/admin/tournaments.
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	t, err := h.service.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": t})
}

// AdminUpdate handles PUT /api/v1/admin/tournaments/{id}.
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}

// AdminSetActive handles PATCH /api/v1/admin/tournaments/{id}/active.
func (h *Handler) AdminSetActive(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var body activeBody
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.ValidateStruct(body); err != nil {
		common.WriteError(w, err)
		return
	}
	t, err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), *body.IsActive)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "tournament service not configured", nil)
		return false
	}
	return true
}
