package records

import (
	"strings"
)

// Sort orders accepted by Query.SortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ValidateQuery checks a query against the configured maximum limit.
func ValidateQuery(q *Query, maxLimit int) error {
	if q.Limit < 0 {
		return queryError("limit", "must be >= 0, got %d", q.Limit)
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		return queryError("limit", "must be <= %d, got %d", maxLimit, q.Limit)
	}
	if q.Offset < 0 {
		return queryError("offset", "must be >= 0, got %d", q.Offset)
	}

	if q.SortOrder != "" && q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		return queryError("sort", "%q is not one of asc, desc", q.SortOrder)
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return queryError("since", "must not be after until")
	}

	if q.Status != "" && !ValidStatuses[q.Status] {
		return queryError("status", "unknown status %q", q.Status)
	}

	return nil
}

// ApplyQueryDefaults fills the limit and sort order.
func ApplyQueryDefaults(q *Query, defaultLimit int) {
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}
}

// Matches reports whether record satisfies the query filters. Backends
// without a query language (the memory store) filter with it.
func (q *Query) Matches(record *Record) bool {
	if len(q.IDs) > 0 && !containsString(q.IDs, record.ID) {
		return false
	}

	// Time range filter
	if q.StartTime != nil && record.ParsedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && record.ParsedAt.After(*q.EndTime) {
		return false
	}

	if q.Status != "" && record.Status != q.Status {
		return false
	}
	if q.Name != "" && !strings.Contains(strings.ToLower(record.Name), strings.ToLower(q.Name)) {
		return false
	}
	if q.Source != "" && record.Source != q.Source {
		return false
	}
	if q.SchemaVersion != "" && record.SchemaVersion != q.SchemaVersion {
		return false
	}

	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
