package middleware

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
	"github.com/kestrelhealth/radpoint/pkg/httputil"
	"github.com/kestrelhealth/radpoint/pkg/observability"
	"github.com/kestrelhealth/radpoint/pkg/rbac"
)

// OrgScopeFunc extracts the organization scope of a request. Returning
// (0, false, nil) means the operation has no organization scope and role
// checks fall back to the anywhere form. A non-nil error denies the request
// before any role check runs.
type OrgScopeFunc func(r *http.Request) (int64, bool, error)

// OrgScopeFromPath reads the organization ID from a mux path variable. An
// unparsable value is an error, not an unscoped request, so a malformed path
// never widens a scoped check into an anywhere check.
func OrgScopeFromPath(varName string) OrgScopeFunc {
	return func(r *http.Request) (int64, bool, error) {
		raw, ok := mux.Vars(r)[varName]
		if !ok {
			return 0, false, nil
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false, apperr.New(apperr.KindInvalidArgument, "invalid organization id")
		}
		return id, true, nil
	}
}

// NoOrgScope marks an operation as unscoped.
func NoOrgScope(*http.Request) (int64, bool, error) {
	return 0, false, nil
}

// Gate builds the access-control middleware chain. Route registration
// composes the gates in a fixed order: identity resolution, then the
// authentication gate, then the password-change gate, then any role gate.
type Gate struct {
	evaluator rbac.Evaluator
	metrics   *observability.Metrics
	logger    *observability.Logger
}

// NewGate creates a gate over the given role evaluator. Metrics may be nil.
func NewGate(evaluator rbac.Evaluator, metrics *observability.Metrics, logger *observability.Logger) *Gate {
	return &Gate{evaluator: evaluator, metrics: metrics, logger: logger}
}

func (g *Gate) deny(w http.ResponseWriter, err *apperr.Error) {
	if g.metrics != nil {
		g.metrics.AuthFailuresTotal.WithLabelValues(string(err.Kind)).Inc()
	}
	httputil.WriteAppError(w, err)
}

// Authenticated requires a resolved identity and a completed first-login
// password change.
func (g *Gate) Authenticated() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if !identity.Authenticated() {
				g.deny(w, apperr.New(apperr.KindAuthenticationRequired, "authentication required"))
				return
			}
			if identity.User.MustChangePassword {
				g.deny(w, apperr.New(apperr.KindPasswordChangeRequired, "password change required before accessing this resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthenticatedAllowPasswordChange requires a resolved identity but skips
// the password-change gate. Only the password change operation uses this.
func (g *Gate) AuthenticatedAllowPasswordChange() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetIdentity(r).Authenticated() {
				g.deny(w, apperr.New(apperr.KindAuthenticationRequired, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole requires the caller to hold the role within the request's
// organization scope, or anywhere when the operation is unscoped. It runs
// after Authenticated in the chain, so the identity is already vetted.
func (g *Gate) RequireRole(role rbac.Role, scope OrgScopeFunc) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if !identity.Authenticated() {
				g.deny(w, apperr.New(apperr.KindAuthenticationRequired, "authentication required"))
				return
			}

			orgID, scoped, scopeErr := scope(r)
			if scopeErr != nil {
				httputil.WriteAppError(w, scopeErr)
				return
			}

			var allowed bool
			var err error
			if scoped {
				allowed, err = g.evaluator.HasRoleInOrganization(r.Context(), identity.UserID(), orgID, role)
			} else {
				allowed, err = g.evaluator.HasRoleAnywhere(r.Context(), identity.UserID(), role)
			}
			if err != nil {
				g.logger.WithError(err).Error("Role evaluation failed")
				httputil.WriteAppError(w, apperr.Internal(err))
				return
			}

			if g.metrics != nil {
				g.metrics.RoleChecksTotal.WithLabelValues(string(role), strconv.FormatBool(allowed)).Inc()
			}
			if !allowed {
				g.deny(w, apperr.New(apperr.KindInsufficientPermissions, "%s role required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrgAccess requires membership in the scoped organization under any
// role.
func (g *Gate) RequireOrgAccess(scope OrgScopeFunc) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if !identity.Authenticated() {
				g.deny(w, apperr.New(apperr.KindAuthenticationRequired, "authentication required"))
				return
			}

			orgID, scoped, scopeErr := scope(r)
			if scopeErr != nil {
				httputil.WriteAppError(w, scopeErr)
				return
			}
			if !scoped {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := g.evaluator.CanAccessOrganization(r.Context(), identity.UserID(), orgID)
			if err != nil {
				g.logger.WithError(err).Error("Organization access evaluation failed")
				httputil.WriteAppError(w, apperr.Internal(err))
				return
			}
			if !allowed {
				g.deny(w, apperr.New(apperr.KindInsufficientPermissions, "not a member of this organization"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
