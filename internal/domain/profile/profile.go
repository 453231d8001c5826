package profile

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerProfile is the per-customer statistics rollup maintained by
// applying deltas from the ledgers. Counters are folded in by the
// repository inside the database, so this model carries no mutation of
// its own. It is eventually consistent with the ledgers and is never
// authoritative; the ledgers are.
type CustomerProfile struct {
	CustomerID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderCount         int64           `gorm:"not null;default:0"`
	TotalOrderValue    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	ComplaintCount     int64           `gorm:"not null;default:0"`
	OpenComplaintCount int64           `gorm:"not null;default:0"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerProfile) TableName() string {
	return "customer_profiles"
}

// AppliedDelta records a delta that has been folded into a profile. The
// primary key on the dedup key is what makes replayed deliveries harmless.
type AppliedDelta struct {
	DedupKey   uuid.UUID `gorm:"type:uuid;primaryKey"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`
	AppliedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AppliedDelta) TableName() string {
	return "applied_deltas"
}
