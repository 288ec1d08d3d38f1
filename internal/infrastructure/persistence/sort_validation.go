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

// OrderClause builds a whitelisted ORDER BY clause qualified with table.
// Listings of payments and cashouts join accounts, so bare column names
// would be ambiguous.
func OrderClause(table, sortField, sortOrder string, allowedFields map[string]bool) string {
	field := ValidateSortField(sortField, allowedFields, "created_at")
	return table + "." + field + " " + ValidateSortOrder(sortOrder) + ", " + table + ".id " + ValidateSortOrder(sortOrder)
}

// AccountSortFields contains allowed sort fields for accounts
var AccountSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"balance":    true,
}

// EntrySortFields contains allowed sort fields for payments and cashouts
var EntrySortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"title":      true,
	"amount":     true,
	"status":     true,
	"paid_at":    true,
}

// MovementSortFields contains allowed sort fields for the movement journal
var MovementSortFields = map[string]bool{
	"created_at": true,
	"amount":     true,
}
