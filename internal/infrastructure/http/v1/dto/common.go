// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"clinibill/internal/core/apperror"
)

// DateOnly is the wire format for business dates.
const DateOnly = "2006-01-02"

// ParseDate parses a required yyyy-mm-dd field.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateOnly, value)
	if err != nil {
		return time.Time{}, apperror.NewValidation("invalid date").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return t, nil
}

// ListResponse wraps list results.
type ListResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}
