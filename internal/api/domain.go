package api

import (
	"errors"
	"fmt"
)

// Sentinel domain errors. Services wrap these with context; handlers map
// them to HTTP statuses and envelope codes without leaking internals.
var (
	ErrBadRequest      = errors.New("invalid or missing request data")
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrUpstream        = errors.New("upstream service failure")
)

// UpstreamStatusError carries the status and body of a rejected
// upstream call so handlers can mirror them to the client. It unwraps
// to ErrUpstream for callers that only classify.
type UpstreamStatusError struct {
	Status int
	Body   string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

func (e *UpstreamStatusError) Unwrap() error { return ErrUpstream }

// Envelope is the canonical response shape for every endpoint.
// Code 0 means success; non-zero codes identify the failure class.
type Envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Payload interface{} `json:"payload"`
}

// Envelope codes per failure class.
const (
	CodeOK              = 0
	CodeBadRequest      = 1
	CodeNotFound        = 2
	CodeConflict        = 3
	CodeUnauthenticated = 4
	CodeForbidden       = 5
	CodeUpstream        = 6
	CodeInternal        = 9
)

// Pagination describes a page window in list responses.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPagination computes the page window for a total item count.
func NewPagination(page, limit, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		Limit:       limit,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
