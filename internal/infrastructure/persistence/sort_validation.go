package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"entity_id":      true,
	"status":         true,
	"monetary_value": true,
}

// ComplaintSortFields contains allowed sort fields for complaints
var ComplaintSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"entity_id":  true,
	"status":     true,
	"subject":    true,
}

// ProfileSortFields contains allowed sort fields for customer profiles
var ProfileSortFields = map[string]bool{
	"customer_id":          true,
	"updated_at":           true,
	"order_count":          true,
	"total_order_value":    true,
	"complaint_count":      true,
	"open_complaint_count": true,
}
