package services

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-digital/atelier-backend/internal/api/http"
	"github.com/atelier-digital/atelier-backend/internal/apperr"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// Register mounts the public route: only active services, in order.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.listActive)
}

func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.GET("", h.listAll)
	rg.POST("", h.create)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
	rg.POST("/:id/active", h.toggleActive)
	rg.POST("/reorder", h.reorder)
}

func (h *Handler) listActive(c *gin.Context) {
	items, err := h.manager.List(c.Request.Context(), true)
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, items)
}

func (h *Handler) listAll(c *gin.Context) {
	items, err := h.manager.List(c.Request.Context(), false)
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, items)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		http.Fail(c, apperr.Validation("invalid request body"))
		return
	}

	s, err := h.manager.Create(c.Request.Context(), in)
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusCreated, s)
}

func (h *Handler) update(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		http.Fail(c, apperr.Validation("invalid request body"))
		return
	}

	s, err := h.manager.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, s)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) toggleActive(c *gin.Context) {
	s, err := h.manager.ToggleActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, s)
}

func (h *Handler) reorder(c *gin.Context) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		http.Fail(c, apperr.Validation("invalid request body"))
		return
	}

	items, err := h.manager.Reorder(c.Request.Context(), body.IDs)
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, items)
}
