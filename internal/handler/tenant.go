package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimbusdeck/edge/internal/models"
	"github.com/nimbusdeck/edge/internal/service"
)

type TenantHandler struct {
	service *service.TenantService
}

func NewTenantHandler(service *service.TenantService) *TenantHandler {
	return &TenantHandler{service: service}
}

func (h *TenantHandler) Create(c *gin.Context) {
	var req struct {
		OrgID             string `json:"org_id" binding:"required"`
		Slug              string `json:"slug" binding:"required"`
		WorkerRef         string `json:"worker_ref" binding:"required"`
		Tier              string `json:"tier"`
		RequestsPerMinute int    `json:"requests_per_minute"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	cfg, err := h.service.Create(ctx, req.OrgID, req.Slug, req.WorkerRef, req.Tier, req.RequestsPerMinute)
	if err == service.ErrSlugTaken {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, cfg)
}

func (h *TenantHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err == service.ErrTenantNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func (h *TenantHandler) List(c *gin.Context) {
	configs, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, configs)
}

func (h *TenantHandler) Update(c *gin.Context) {
	var req struct {
		Status            *models.TenantStatus `json:"status"`
		WorkerRef         *string              `json:"worker_ref"`
		Tier              *string              `json:"tier"`
		RequestsPerMinute *int                 `json:"requests_per_minute"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.WorkerRef != nil {
		updates["worker_ref"] = *req.WorkerRef
	}
	if req.Tier != nil {
		updates["tier"] = *req.Tier
	}
	if req.RequestsPerMinute != nil {
		updates["requests_per_minute"] = *req.RequestsPerMinute
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	cfg, err := h.service.Update(c.Request.Context(), c.Param("id"), updates)
	if err == service.ErrTenantNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func (h *TenantHandler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err == service.ErrTenantNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tenant deleted"})
}
