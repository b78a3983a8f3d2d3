// Package middleware provides the request pipeline: identity resolution,
// access gates, request IDs, timeouts, and rate limiting.
//
// # Overview
//
// Routes compose these middlewares at registration time in a fixed order.
// Identity resolution runs first and never rejects, it only annotates the
// context. Enforcement happens in the gates:
//
//	authenticate -> password-change gate -> role gate -> handler
//
// The password change endpoint is the single route that skips the
// password-change gate, otherwise a first-login account could never escape
// the requirement.
//
// # Usage
//
//	authMW := middleware.NewAuthMiddleware(tokens, users, logger)
//	gate := middleware.NewGate(evaluator, metrics, logger)
//
//	r.Handle("/organizations/{org_id}/radiologists",
//		gate.Authenticated()(
//			gate.RequireRole(rbac.RoleOwner, middleware.OrgScopeFromPath("org_id"))(
//				http.HandlerFunc(h.InviteRadiologist)))).Methods("POST")
//
// Operations without an organization in their route fall back to the
// anywhere role check via middleware.NoOrgScope.
//
// # Rate Limiting
//
// With Redis configured, limits are shared across instances and keyed per
// user for authenticated callers and per IP otherwise. Redis failures fail
// open. Without Redis an in-memory token bucket applies per process.
//
// # Related Packages
//
//   - pkg/auth: Token verification and user loading
//   - pkg/rbac: Role evaluation behind the gates
package middleware
