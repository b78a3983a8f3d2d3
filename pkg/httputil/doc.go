// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses
// keyed by error kind, and parameter parsing including relay-style pagination
// arguments.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteSuccess(w, connection)
//	httputil.WriteCreated(w, resource)
//
// Error responses derive their status and wire code from the error's kind:
//
//	httputil.WriteAppError(w, err)
//
// # Request Parsing
//
// JSON parsing:
//
//	var req CreateReportRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	page, ok := httputil.ParsePageRequestOrError(w, r)
//
// # Related Packages
//
//   - pkg/apperr: Error kinds mapped to HTTP statuses
//   - pkg/pagination: Page request type populated from query parameters
package httputil
