// Package api exposes the HTTP surface of the service.
//
// # Overview
//
// NewServer wires the middleware stack in a fixed order: request ID, request
// timeout, metrics, identity resolution, rate limiting. Identity resolution
// never rejects a request; the per-route gates decide. Gated routes chain the
// authentication and password-change gates, and the Owner-only operations add
// a role gate whose organization scope comes from the org_id path variable,
// or falls back to an anywhere check for operations without one.
//
// # Usage
//
//	server := api.NewServer(api.Options{
//		DB:        db,
//		Users:     users,
//		Auth:      authSvc,
//		Tokens:    tokens,
//		Orgs:      orgSvc,
//		Radiology: radSvc,
//		Blobs:     blobs,
//		Evaluator: evaluator,
//		Logger:    logger,
//	})
//	http.ListenAndServe(addr, server)
//
// # Related Packages
//
//   - pkg/middleware: Identity resolution and the gate chain
//   - pkg/pagination: Connection payloads for the list endpoints
//   - pkg/httputil: Request parsing and error envelopes
package api
