package profile

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderly/backend/internal/domain/profile"
	"github.com/orderly/backend/internal/domain/stats"
)

// ApplyDeltaRequest represents one statistics delta submitted by a ledger
// service's reconciler
type ApplyDeltaRequest struct {
	CustomerID              uuid.UUID       `json:"customer_id" binding:"required"`
	OrderCountDelta         int64           `json:"order_count_delta"`
	OrderValueDelta         decimal.Decimal `json:"order_value_delta"`
	ComplaintCountDelta     int64           `json:"complaint_count_delta"`
	OpenComplaintCountDelta int64           `json:"open_complaint_count_delta"`
	DedupKey                uuid.UUID       `json:"dedup_key" binding:"required"`
}

// ApplyDeltaResponse reports whether the delta changed the rollup or had
// already been applied
type ApplyDeltaResponse struct {
	Applied bool `json:"applied"`
}

// ProfileResponse represents a customer rollup in API responses
type ProfileResponse struct {
	CustomerID         uuid.UUID       `json:"customer_id"`
	OrderCount         int64           `json:"order_count"`
	TotalOrderValue    decimal.Decimal `json:"total_order_value"`
	ComplaintCount     int64           `json:"complaint_count"`
	OpenComplaintCount int64           `json:"open_complaint_count"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ProfileListFilter represents filter options for rollup lists
type ProfileListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToDelta converts the request to a domain delta
func (r ApplyDeltaRequest) ToDelta() stats.Delta {
	return stats.Delta{
		CustomerID:              r.CustomerID,
		OrderCountDelta:         r.OrderCountDelta,
		OrderValueDelta:         r.OrderValueDelta,
		ComplaintCountDelta:     r.ComplaintCountDelta,
		OpenComplaintCountDelta: r.OpenComplaintCountDelta,
		DedupKey:                r.DedupKey,
	}
}

// ToProfileResponse converts a domain rollup to a response DTO
func ToProfileResponse(p *profile.CustomerProfile) ProfileResponse {
	return ProfileResponse{
		CustomerID:         p.CustomerID,
		OrderCount:         p.OrderCount,
		TotalOrderValue:    p.TotalOrderValue,
		ComplaintCount:     p.ComplaintCount,
		OpenComplaintCount: p.OpenComplaintCount,
		UpdatedAt:          p.UpdatedAt,
	}
}

// ToProfileResponses converts a slice of domain rollups to response DTOs
func ToProfileResponses(profiles []profile.CustomerProfile) []ProfileResponse {
	responses := make([]ProfileResponse, len(profiles))
	for i := range profiles {
		responses[i] = ToProfileResponse(&profiles[i])
	}
	return responses
}
