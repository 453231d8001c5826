package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderly/backend/internal/domain/order"
)

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	CustomerID    uuid.UUID       `json:"customer_id" binding:"required"`
	MonetaryValue decimal.Decimal `json:"monetary_value" binding:"required"`
	// OwnerUserID is honored for privileged callers placing an order on a
	// customer's behalf; everyone else owns what they create.
	OwnerUserID *uuid.UUID `json:"owner_user_id"`
}

// CancelOrderRequest represents a request to cancel an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ReturnRequest represents a request to open a return on a delivered order
type ReturnRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// RejectReturnRequest represents a request to decline a requested return
type RejectReturnRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// OrderListFilter represents filter options for order lists
type OrderListFilter struct {
	CustomerID *uuid.UUID         `form:"customer_id"`
	Status     *order.OrderStatus `form:"status"`
	Page       int                `form:"page" binding:"omitempty,min=1"`
	PageSize   int                `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string             `form:"order_by"`
	OrderDir   string             `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID            uuid.UUID         `json:"id"`
	EntityID      string            `json:"entity_id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	OwnerUserID   uuid.UUID         `json:"owner_user_id"`
	MonetaryValue decimal.Decimal   `json:"monetary_value"`
	Status        order.OrderStatus `json:"status"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// HistoryRecordResponse represents one transition log entry in API responses
type HistoryRecordResponse struct {
	ID         uuid.UUID         `json:"id"`
	EntityID   string            `json:"entity_id"`
	FromStatus order.OrderStatus `json:"from_status,omitempty"`
	ToStatus   order.OrderStatus `json:"to_status"`
	ActorID    uuid.UUID         `json:"actor_id"`
	ActorRole  string            `json:"actor_role"`
	Note       string            `json:"note,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// ToOrderResponse converts a domain order to a response DTO
func ToOrderResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		EntityID:      o.EntityID,
		CustomerID:    o.CustomerID,
		OwnerUserID:   o.OwnerUserID,
		MonetaryValue: o.MonetaryValue,
		Status:        o.Status,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of domain orders to response DTOs
func ToOrderResponses(orders []order.Order) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	return responses
}

// ToHistoryResponses converts transition log entries to response DTOs
func ToHistoryResponses(records []*order.HistoryRecord) []HistoryRecordResponse {
	responses := make([]HistoryRecordResponse, len(records))
	for i, r := range records {
		responses[i] = HistoryRecordResponse{
			ID:         r.ID,
			EntityID:   r.EntityID,
			FromStatus: r.FromStatus,
			ToStatus:   r.ToStatus,
			ActorID:    r.ActorID,
			ActorRole:  r.ActorRole.String(),
			Note:       r.Note,
			RecordedAt: r.RecordedAt,
		}
	}
	return responses
}
