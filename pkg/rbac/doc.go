// Package rbac evaluates organization membership roles.
//
// # Overview
//
// Every account in an organization holds exactly one role there, Owner or
// Radiologist. The evaluator answers three questions against the membership
// table: does this user hold a role in this organization, does the user hold
// it anywhere, and can the user see this organization's data at all.
//
// # Usage
//
//	eval := rbac.NewMembershipEvaluator(db)
//	ok, err := eval.HasRoleInOrganization(ctx, userID, orgID, rbac.RoleOwner)
//
// Operations without an organization scope fall back to the anywhere check:
//
//	ok, err := eval.HasRoleAnywhere(ctx, userID, rbac.RoleOwner)
//
// An expiring cache can wrap the evaluator when membership churn is low:
//
//	cached := rbac.NewCachingEvaluator(eval, 30*time.Second, hits, misses)
//
// # Related Packages
//
//   - pkg/middleware: Role gates built on the evaluator
//   - pkg/orgs: Membership writes that feed these checks
package rbac
