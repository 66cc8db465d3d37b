package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finadvisor/platform/internal/common"
	"github.com/finadvisor/platform/internal/provider"
)

func (h *Handler) ListProviders(c *gin.Context) {
	recs, err := h.Providers.List(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{"providers": recs})
}

type createProviderReq struct {
	Name      string `json:"name" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
	Model     string `json:"model"`
	Priority  int    `json:"priority"`
	TimeoutMs int    `json:"timeout_ms"`
}

func (h *Handler) CreateProvider(c *gin.Context) {
	var req createProviderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if !h.Kinds.Has(kind) {
		common.Fail(c, http.StatusBadRequest, 10010, "unknown provider kind")
		return
	}

	rec := &provider.Record{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Kind:      kind,
		Model:     strings.TrimSpace(req.Model),
		Status:    provider.StatusInactive,
		Priority:  req.Priority,
		TimeoutMs: req.TimeoutMs,
	}
	if rec.Priority <= 0 {
		rec.Priority = 100
	}
	if rec.TimeoutMs <= 0 {
		rec.TimeoutMs = h.Cfg.ProviderTimeoutMs
	}

	if err := h.Providers.Create(c.Request.Context(), rec); err != nil {
		common.Fail(c, http.StatusBadRequest, 10011, "failed to create provider (maybe name already exists)")
		return
	}
	common.OK(c, rec)
}

type updateProviderReq struct {
	Status    *string `json:"status"`
	Priority  *int    `json:"priority"`
	TimeoutMs *int    `json:"timeout_ms"`
	Model     *string `json:"model"`
}

// UpdateProvider changes registry configuration. In-flight inquiries
// keep the snapshot they dispatched with.
func (h *Handler) UpdateProvider(c *gin.Context) {
	rec, err := h.Providers.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40402, "provider not found")
		return
	}

	var req updateProviderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if req.Status != nil {
		status := provider.Status(strings.ToUpper(strings.TrimSpace(*req.Status)))
		if !status.Valid() {
			common.Fail(c, http.StatusBadRequest, 10012, "invalid provider status")
			return
		}
		rec.Status = status
	}
	if req.Priority != nil && *req.Priority > 0 {
		rec.Priority = *req.Priority
	}
	if req.TimeoutMs != nil && *req.TimeoutMs > 0 {
		rec.TimeoutMs = *req.TimeoutMs
	}
	if req.Model != nil {
		rec.Model = strings.TrimSpace(*req.Model)
	}

	if err := h.Providers.Update(c.Request.Context(), rec); err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, rec)
}
