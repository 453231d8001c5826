package handler

import (
	"github.com/gin-gonic/gin"

	complaintapp "github.com/orderly/backend/internal/application/complaint"
	"github.com/orderly/backend/internal/interfaces/http/middleware"
)

// ComplaintHandler handles complaint ledger API endpoints
type ComplaintHandler struct {
	BaseHandler
	service *complaintapp.Service
}

// NewComplaintHandler creates a new ComplaintHandler
func NewComplaintHandler(service *complaintapp.Service) *ComplaintHandler {
	return &ComplaintHandler{service: service}
}

// RegisterRoutes registers complaint routes
func (h *ComplaintHandler) RegisterRoutes(rg *gin.RouterGroup) {
	complaints := rg.Group("/complaints", middleware.Actor())
	{
		complaints.POST("", h.Create)
		complaints.GET("", h.List)
		complaints.GET("/:id", h.Get)
		complaints.GET("/:id/history", h.History)
		complaints.POST("/:id/assign", h.Assign)
		complaints.POST("/:id/resolve", h.Resolve)
		complaints.POST("/:id/reopen", h.Reopen)
		complaints.POST("/:id/close", h.Close)
	}
}

// Create files a new complaint
func (h *ComplaintHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req complaintapp.CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get retrieves a complaint by its public identifier
func (h *ComplaintHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.service.GetByEntityID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List retrieves complaints with pagination and filters
func (h *ComplaintHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var filter complaintapp.ComplaintListFilter
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

// History retrieves the transition log of a complaint, oldest first
func (h *ComplaintHandler) History(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	records, err := h.service.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// Assign assigns the complaint to an agent, moving it in progress when open
func (h *ComplaintHandler) Assign(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req complaintapp.AssignComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.Assign(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Resolve marks the complaint as resolved
func (h *ComplaintHandler) Resolve(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req complaintapp.ResolveComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.Resolve(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reopen reopens a resolved complaint
func (h *ComplaintHandler) Reopen(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req complaintapp.ReopenComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.Reopen(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Close closes a resolved complaint for good
func (h *ComplaintHandler) Close(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req complaintapp.CloseComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.Close(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
