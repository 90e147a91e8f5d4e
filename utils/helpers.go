package utils

import (
	"strconv"
	"time"
)

// ===================================================================
// REQUEST HELPERS
// ===================================================================

// GetValueOrDefault returns value or defaultValue if value is empty
func GetValueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// GetIntOrDefault parses valueStr or returns defaultValue
func GetIntOrDefault(valueStr string, defaultValue int) int {
	if valueStr == "" {
		return defaultValue
	}
	if v, err := strconv.Atoi(valueStr); err == nil {
		return v
	}
	return defaultValue
}

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// GetPaginationParams extracts and validates pagination parameters
func GetPaginationParams(limitStr, offsetStr string, defaultLimit int) PaginationParams {
	limit := defaultLimit
	if l := GetIntOrDefault(limitStr, 0); l > 0 {
		limit = l
	}
	offset := 0
	if o := GetIntOrDefault(offsetStr, 0); o > 0 {
		offset = o
	}
	return PaginationParams{Limit: limit, Offset: offset}
}

// Page slices items according to p.
func Page[T any](items []T, p PaginationParams) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return items[p.Offset:end]
}

// GetUnixTimestamp returns current Unix timestamp
func GetUnixTimestamp() int64 {
	return time.Now().Unix()
}

// ===================================================================
// RESPONSE HELPERS
// ===================================================================

// StandardResponse represents a standard API response
type StandardResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse creates a success response
func SuccessResponse(message string, data interface{}) StandardResponse {
	return StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

// ErrorResponse creates an error response
func ErrorResponse(message string) StandardResponse {
	return StandardResponse{
		Status:  "error",
		Message: message,
	}
}

// ListResponse represents a paginated list response
type ListResponse struct {
	Items  interface{} `json:"items"`
	Count  int         `json:"count"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

// CreateListResponse creates a standardized list response
func CreateListResponse(items interface{}, count int, pagination *PaginationParams) ListResponse {
	response := ListResponse{
		Items: items,
		Count: count,
	}
	if pagination != nil {
		response.Limit = pagination.Limit
		response.Offset = pagination.Offset
	}
	return response
}
