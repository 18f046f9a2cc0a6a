package utils

import (
	"net/http"
	"strconv"
)

const (
	DefaultPage  = 0
	DefaultLimit = 10
	MaxLimit     = 50
)

// ParsePage returns a non-negative page number, defaulting to 0.
func ParsePage(value string) int {
	page, err := strconv.Atoi(value)
	if err != nil || page < 0 {
		return DefaultPage
	}
	return page
}

// ParseLimit returns a page size clamped to [1, MaxLimit], defaulting to 10.
func ParseLimit(value string) int {
	limit, err := strconv.Atoi(value)
	if err != nil || limit == 0 {
		return DefaultLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// ParsePagination reads the page/limit query parameters of r.
func ParsePagination(r *http.Request, pageKey, limitKey string) (page, limit int) {
	return ParsePage(r.URL.Query().Get(pageKey)), ParseLimit(r.URL.Query().Get(limitKey))
}
