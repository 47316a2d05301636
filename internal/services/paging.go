package services

// ListResult is the uniform envelope for offset-paged list endpoints.
// TotalCount covers the full filtered set, not just the returned page.
type ListResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}

const maxPageLimit = 200

// clampPage normalizes limit and offset. Limit falls back to def when unset
// and is capped at 200; offset is floored at zero.
func clampPage(limit, offset, def int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
