package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	orderapp "github.com/orderly/backend/internal/application/order"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order ledger API endpoints
type OrderHandler struct {
	BaseHandler
	service *orderapp.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *orderapp.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders", middleware.Actor())
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.GET("/:id/history", h.History)
		orders.POST("/:id/process", h.StartProcessing)
		orders.POST("/:id/ship", h.Ship)
		orders.POST("/:id/deliver", h.Deliver)
		orders.POST("/:id/cancel", h.Cancel)
		orders.POST("/:id/return-request", h.RequestReturn)
		orders.POST("/:id/return-approve", h.ApproveReturn)
		orders.POST("/:id/return-reject", h.RejectReturn)
	}
}

// Create places a new order
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req orderapp.CreateOrderRequest
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

// Get retrieves an order by its public identifier
func (h *OrderHandler) Get(c *gin.Context) {
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

// List retrieves orders with pagination and filters
func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var filter orderapp.OrderListFilter
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

// History retrieves the transition log of an order, oldest first
func (h *OrderHandler) History(c *gin.Context) {
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

// StartProcessing moves a placed order into processing
func (h *OrderHandler) StartProcessing(c *gin.Context) {
	h.transition(c, h.service.StartProcessing)
}

// Ship marks a processing order as shipped
func (h *OrderHandler) Ship(c *gin.Context) {
	h.transition(c, h.service.Ship)
}

// Deliver marks a shipped order as delivered
func (h *OrderHandler) Deliver(c *gin.Context) {
	h.transition(c, h.service.Deliver)
}

// Cancel cancels an order before shipment
func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req orderapp.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RequestReturn opens a return on a delivered order
func (h *OrderHandler) RequestReturn(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req orderapp.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.RequestReturn(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ApproveReturn accepts a requested return
func (h *OrderHandler) ApproveReturn(c *gin.Context) {
	h.transition(c, h.service.ApproveReturn)
}

// RejectReturn declines a requested return, putting the order back to delivered
func (h *OrderHandler) RejectReturn(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req orderapp.RejectReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.RejectReturn(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *OrderHandler) transition(c *gin.Context, apply func(context.Context, shared.Actor, string) (*orderapp.OrderResponse, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := apply(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
