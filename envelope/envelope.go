// Package envelope produces the uniform response shapes the gateway returns:
// {data, meta} for success and lists, {error} for failures.
package envelope

import (
	"github.com/speckit/gateway/id"
)

// Code identifies an error in the fixed taxonomy.
type Code string

// The fixed error taxonomy. Codes outside this set never leave the gateway.
const (
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeCORSRejected  Code = "CORS_REJECTED"
	CodeNotFound      Code = "NOT_FOUND"
	CodeBadRequest    Code = "BAD_REQUEST"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeInternalError Code = "INTERNAL_ERROR"
)

// Status returns the HTTP status for a code.
func (c Code) Status() int {
	switch c {
	case CodeUnauthorized:
		return 401
	case CodeForbidden, CodeCORSRejected:
		return 403
	case CodeNotFound:
		return 404
	case CodeBadRequest:
		return 400
	case CodeRateLimited:
		return 429
	default:
		return 500
	}
}

// Meta carries response metadata common to all success envelopes.
type Meta struct {
	APIVersion string      `json:"apiVersion"`
	RequestID  string      `json:"requestId"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// Envelope is the uniform success shape.
type Envelope struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorBody is the uniform error shape.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the failure. Details is reserved for caller-actionable
// structured data; internals are never echoed into it.
type ErrorDetail struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
}

// Builder stamps envelopes with the configured API version and a fresh
// request correlation ID per response.
type Builder struct {
	apiVersion string
}

// NewBuilder creates a Builder for the given API version.
func NewBuilder(apiVersion string) *Builder {
	return &Builder{apiVersion: apiVersion}
}

// Success wraps data in the standard envelope.
func (b *Builder) Success(data any) Envelope {
	return Envelope{
		Data: data,
		Meta: Meta{
			APIVersion: b.apiVersion,
			RequestID:  id.NewRequestID().String(),
		},
	}
}

// List wraps a page of items with pagination metadata. total is the full
// result count across all pages.
func (b *Builder) List(items any, page Page, total int) Envelope {
	pageCount := 0
	if total > 0 {
		pageCount = (total + page.Size - 1) / page.Size
	}
	return Envelope{
		Data: items,
		Meta: Meta{
			APIVersion: b.apiVersion,
			RequestID:  id.NewRequestID().String(),
			Pagination: &Pagination{
				Page:      page.Number,
				PageSize:  page.Size,
				PageCount: pageCount,
				Total:     total,
			},
		},
	}
}

// Error produces the uniform error body for a code.
func (b *Builder) Error(code Code, message string, details any) ErrorBody {
	return ErrorBody{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Status:  code.Status(),
			Details: details,
		},
	}
}
