package handler

import (
	"github.com/gin-gonic/gin"

	profileapp "github.com/orderly/backend/internal/application/profile"
	"github.com/orderly/backend/internal/interfaces/http/middleware"
)

// ProfileHandler handles customer rollup API endpoints
type ProfileHandler struct {
	BaseHandler
	service *profileapp.Service
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(service *profileapp.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// RegisterRoutes registers profile routes. The deltas endpoint is
// service-to-service and carries no end-user identity, so only the read
// endpoints go through actor resolution.
func (h *ProfileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	profiles := rg.Group("/profiles")
	{
		profiles.POST("/deltas", h.ApplyDelta)

		reads := profiles.Group("", middleware.Actor())
		{
			reads.GET("", h.List)
			reads.GET("/:customer_id", h.Get)
		}
	}
}

// ApplyDelta applies a statistics delta to a customer rollup
func (h *ProfileHandler) ApplyDelta(c *gin.Context) {
	var req profileapp.ApplyDeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.ApplyDelta(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get retrieves a customer rollup
func (h *ProfileHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.service.GetByCustomerID(c.Request.Context(), actor, c.Param("customer_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List retrieves customer rollups with pagination
func (h *ProfileHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var filter profileapp.ProfileListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}
