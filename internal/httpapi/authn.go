package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"userdesk.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/api/health",
	"/metrics",
	"/readyz",
	"/",
}

// withAuth resolves the bearer token into a user and stores it in the
// request context. Public paths pass through untouched. A disabled account
// is rejected with 403; every other failure is a 401.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}

		userID, err := a.svc.Tokens().Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				unauthorized(w, r, "token expired")
			default:
				unauthorized(w, r, "invalid token")
			}
			return
		}

		user, err := a.svc.Resolve(r.Context(), userID)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAccountDisabled):
				respondError(w, r, http.StatusForbidden, "account is deactivated")
			case errors.Is(err, auth.ErrNotFound):
				unauthorized(w, r, "user no longer exists")
			default:
				fail(w, r, err)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
	})
}

// adminOnly gates a handler on the admin role. It runs after withAuth, so a
// missing user means the request never carried valid credentials.
func (a *API) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			unauthorized(w, r, "authentication required")
			return
		}
		if user.Role != auth.RoleAdmin {
			respondError(w, r, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="userdesk"`)
	respondError(w, r, http.StatusUnauthorized, msg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
