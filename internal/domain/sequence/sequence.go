package sequence

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Kind identifies the entity family a counter issues numbers for
type Kind string

const (
	KindOrder     Kind = "ORD"
	KindComplaint Kind = "CMP"
)

// IsValid checks if the kind is a known Kind
func (k Kind) IsValid() bool {
	switch k {
	case KindOrder, KindComplaint:
		return true
	}
	return false
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// identifierPattern is the persisted layout for entity identifiers
var identifierPattern = regexp.MustCompile(`^[A-Z]{3}-\d{4}-\d{6}$`)

// Identifier renders an entity identifier from its parts, e.g. ORD-2026-000123
func Identifier(kind Kind, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%06d", kind, year, n)
}

// IsIdentifier reports whether s matches the entity identifier layout
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ParseIdentifier splits an identifier into its parts
func ParseIdentifier(s string) (Kind, int, int64, error) {
	if !identifierPattern.MatchString(s) {
		return "", 0, 0, fmt.Errorf("malformed identifier %q", s)
	}
	kind := Kind(s[:3])
	year, err := strconv.Atoi(s[4:8])
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed identifier year %q: %w", s, err)
	}
	n, err := strconv.ParseInt(s[9:], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed identifier number %q: %w", s, err)
	}
	return kind, year, n, nil
}

// Counter is the persisted allocation state for one (kind, year) pair.
// LastIssued is monotonically non-decreasing; issued numbers are a consumable
// resource and are never reused, even when the entity they were assigned to
// is later cancelled or rejected.
type Counter struct {
	Kind       Kind      `gorm:"type:varchar(3);primaryKey"`
	Year       int       `gorm:"primaryKey"`
	LastIssued int64     `gorm:"not null;default:0"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Counter) TableName() string {
	return "sequence_counters"
}

// Allocator issues unique, sequential entity identifiers per (kind, year).
// Allocation happens-before entity persistence: a failed allocation aborts
// the whole creation request.
type Allocator interface {
	// Next returns the next identifier for the kind in the given year.
	// Concurrent calls for the same (kind, year) never return the same value.
	Next(ctx context.Context, kind Kind, year int) (string, error)
}
