package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/orderly/backend/internal/domain/sequence"
	"github.com/orderly/backend/internal/domain/shared"
)

// GormSequenceAllocator implements sequence.Allocator on top of a counter
// row per (kind, year). The increment happens inside the database, so two
// concurrent allocations can never observe the same value; no scan over
// issued identifiers is involved.
type GormSequenceAllocator struct {
	db *gorm.DB
}

// NewGormSequenceAllocator creates a new GormSequenceAllocator
func NewGormSequenceAllocator(db *gorm.DB) *GormSequenceAllocator {
	return &GormSequenceAllocator{db: db}
}

// Next returns the next identifier for the kind in the given year
func (a *GormSequenceAllocator) Next(ctx context.Context, kind sequence.Kind, year int) (string, error) {
	if !kind.IsValid() {
		return "", shared.NewDomainError("INVALID_KIND", fmt.Sprintf("Unknown sequence kind %q", kind))
	}

	var lastIssued int64
	err := a.db.WithContext(ctx).Raw(`
		INSERT INTO sequence_counters (kind, year, last_issued, updated_at)
		VALUES (?, ?, 1, NOW())
		ON CONFLICT (kind, year)
		DO UPDATE SET last_issued = sequence_counters.last_issued + 1, updated_at = NOW()
		RETURNING last_issued`,
		kind, year,
	).Scan(&lastIssued).Error
	if err != nil {
		return "", storageErr(fmt.Errorf("allocating %s sequence for %d: %w", kind, year, err))
	}

	return sequence.Identifier(kind, year, lastIssued), nil
}

// Ensure GormSequenceAllocator implements sequence.Allocator
var _ sequence.Allocator = (*GormSequenceAllocator)(nil)
