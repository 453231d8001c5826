package stats

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Delta is the ephemeral rollup adjustment a lifecycle transition produces
// for one customer. It is never persisted as-is; it travels through the
// delta outbox to the profile aggregator.
//
// DedupKey is the ID of the history record that triggered the delta. The
// aggregator rejects a delta whose key was already applied, so a retried
// delivery of a call that actually succeeded server-side is harmless.
type Delta struct {
	CustomerID              uuid.UUID       `json:"customer_id"`
	OrderCountDelta         int64           `json:"order_count_delta"`
	OrderValueDelta         decimal.Decimal `json:"order_value_delta"`
	ComplaintCountDelta     int64           `json:"complaint_count_delta"`
	OpenComplaintCountDelta int64           `json:"open_complaint_count_delta"`
	DedupKey                uuid.UUID       `json:"dedup_key"`
}

// NewDelta creates a zero delta for a customer, keyed by the triggering
// history record
func NewDelta(customerID, dedupKey uuid.UUID) Delta {
	return Delta{
		CustomerID:      customerID,
		OrderValueDelta: decimal.Zero,
		DedupKey:        dedupKey,
	}
}

// IsZero reports whether the delta would not change any counter
func (d Delta) IsZero() bool {
	return d.OrderCountDelta == 0 &&
		d.OrderValueDelta.IsZero() &&
		d.ComplaintCountDelta == 0 &&
		d.OpenComplaintCountDelta == 0
}
