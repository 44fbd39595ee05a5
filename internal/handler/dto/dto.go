// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// IndexResponse describes the running service.
type IndexResponse struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	APIBase     string `json:"api_base"`
	Attachments bool   `json:"attachments"`
}

// ListResponse wraps a collection of records.
type ListResponse[T any] struct {
	Data []T `json:"data"`
}

// NewListResponse returns items wrapped for the API, never with a null data field.
func NewListResponse[T any](items []T) *ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResponse[T]{Data: items}
}
