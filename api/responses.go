package api

// ListResponse wraps a page of items with pagination metadata.
type ListResponse[T any] struct {
	Items    []T   `json:"items" description:"List of items"`
	Total    int64 `json:"total" description:"Total count"`
	Page     int   `json:"page" description:"Zero-based page index"`
	PageSize int   `json:"page_size" description:"Page size"`
}

// CheckResponse is the response for a permission check.
type CheckResponse struct {
	UserID   string `json:"user_id" description:"User ID"`
	Resource string `json:"resource" description:"Resource"`
	Action   string `json:"action" description:"Action"`
	Allowed  bool   `json:"allowed" description:"Whether an effective permission covers the request"`
}
