package complaint

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/complaint"
)

// CreateComplaintRequest represents a request to open a complaint
type CreateComplaintRequest struct {
	CustomerID    uuid.UUID `json:"customer_id" binding:"required"`
	OrderEntityID string    `json:"order_entity_id" binding:"omitempty,entityid"`
	Subject       string    `json:"subject" binding:"required,min=1,max=200"`
	Description   string    `json:"description" binding:"omitempty,max=5000"`
	// OwnerUserID is honored for privileged callers filing on a customer's
	// behalf; everyone else owns what they create.
	OwnerUserID *uuid.UUID `json:"owner_user_id"`
}

// AssignComplaintRequest represents a request to assign a complaint
type AssignComplaintRequest struct {
	AssigneeID uuid.UUID `json:"assignee_id" binding:"required"`
}

// ResolveComplaintRequest represents a request to resolve a complaint
type ResolveComplaintRequest struct {
	Note string `json:"note" binding:"omitempty,max=500"`
}

// ReopenComplaintRequest represents a request to reopen a resolved complaint
type ReopenComplaintRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// CloseComplaintRequest represents a request to close a resolved complaint
type CloseComplaintRequest struct {
	Note string `json:"note" binding:"omitempty,max=500"`
}

// ComplaintListFilter represents filter options for complaint lists
type ComplaintListFilter struct {
	CustomerID *uuid.UUID                 `form:"customer_id"`
	Status     *complaint.ComplaintStatus `form:"status"`
	AssigneeID *uuid.UUID                 `form:"assignee_id"`
	Page       int                        `form:"page" binding:"omitempty,min=1"`
	PageSize   int                        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string                     `form:"order_by"`
	OrderDir   string                     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ComplaintResponse represents a complaint in API responses
type ComplaintResponse struct {
	ID            uuid.UUID                 `json:"id"`
	EntityID      string                    `json:"entity_id"`
	CustomerID    uuid.UUID                 `json:"customer_id"`
	OwnerUserID   uuid.UUID                 `json:"owner_user_id"`
	OrderEntityID string                    `json:"order_entity_id,omitempty"`
	Subject       string                    `json:"subject"`
	Description   string                    `json:"description,omitempty"`
	Status        complaint.ComplaintStatus `json:"status"`
	AssigneeID    *uuid.UUID                `json:"assignee_id,omitempty"`
	ReopenCount   int                       `json:"reopen_count"`
	Version       int                       `json:"version"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// HistoryRecordResponse represents one transition log entry in API responses
type HistoryRecordResponse struct {
	ID         uuid.UUID                 `json:"id"`
	EntityID   string                    `json:"entity_id"`
	FromStatus complaint.ComplaintStatus `json:"from_status,omitempty"`
	ToStatus   complaint.ComplaintStatus `json:"to_status"`
	ActorID    uuid.UUID                 `json:"actor_id"`
	ActorRole  string                    `json:"actor_role"`
	Note       string                    `json:"note,omitempty"`
	RecordedAt time.Time                 `json:"recorded_at"`
}

// ToComplaintResponse converts a domain complaint to a response DTO
func ToComplaintResponse(c *complaint.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:            c.ID,
		EntityID:      c.EntityID,
		CustomerID:    c.CustomerID,
		OwnerUserID:   c.OwnerUserID,
		OrderEntityID: c.OrderEntityID,
		Subject:       c.Subject,
		Description:   c.Description,
		Status:        c.Status,
		AssigneeID:    c.AssigneeID,
		ReopenCount:   c.ReopenCount,
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ToComplaintResponses converts a slice of domain complaints to response DTOs
func ToComplaintResponses(complaints []complaint.Complaint) []ComplaintResponse {
	responses := make([]ComplaintResponse, len(complaints))
	for i := range complaints {
		responses[i] = ToComplaintResponse(&complaints[i])
	}
	return responses
}

// ToHistoryResponses converts transition log entries to response DTOs
func ToHistoryResponses(records []*complaint.HistoryRecord) []HistoryRecordResponse {
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
