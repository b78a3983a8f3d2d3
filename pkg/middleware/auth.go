package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kestrelhealth/radpoint/pkg/auth"
	"github.com/kestrelhealth/radpoint/pkg/contextkeys"
	"github.com/kestrelhealth/radpoint/pkg/observability"
)

// AuthMiddleware resolves the caller identity from a bearer token. It never
// rejects a request: verification or lookup failures leave the request
// anonymous and the gates decide what anonymous callers may do.
type AuthMiddleware struct {
	tokens *auth.TokenManager
	users  *auth.Store
	logger *observability.Logger
}

// NewAuthMiddleware creates the identity resolution middleware.
func NewAuthMiddleware(tokens *auth.TokenManager, users *auth.Store, logger *observability.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, logger: logger}
}

// Handler resolves the identity and attaches it to the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := m.resolve(r)
		ctx := contextkeys.WithIdentity(r.Context(), identity)
		if identity.Authenticated() {
			ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(identity.UserID(), 10))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) resolve(r *http.Request) *auth.Identity {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return &auth.Identity{}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return &auth.Identity{}
	}

	userID, err := m.tokens.Verify(parts[1])
	if err != nil {
		m.logger.WithError(err).Debug("Token verification failed, continuing anonymous")
		return &auth.Identity{}
	}

	user, err := m.users.GetUser(r.Context(), userID)
	if err != nil {
		m.logger.WithError(err).WithField("user_id", userID).Debug("User lookup failed, continuing anonymous")
		return &auth.Identity{}
	}

	return &auth.Identity{User: user}
}

// GetIdentity extracts the resolved identity from the request. Requests that
// never passed through AuthMiddleware read as anonymous.
func GetIdentity(r *http.Request) *auth.Identity {
	if identity, ok := r.Context().Value(contextkeys.IdentityKey).(*auth.Identity); ok {
		return identity
	}
	return &auth.Identity{}
}
