package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"medrecord.org/internal/account"
	"medrecord.org/internal/auth"
	"medrecord.org/internal/authz"
	"medrecord.org/internal/clinical"
	"medrecord.org/internal/message"
	"medrecord.org/internal/obs"
	"medrecord.org/internal/pharmacy"
	"medrecord.org/internal/validate"
	"medrecord.org/internal/verify"
)

// publicPaths never require a bearer token.
var publicPaths = map[string]bool{
	"/":                 true,
	"/healthz":          true,
	"/readyz":           true,
	"/metrics":          true,
	"/v1/info":          true,
	"/v1/auth/register": true,
	"/v1/auth/login":    true,
}

// withAuth validates the bearer token on protected paths and stashes the
// account ID in the request context. Handlers load the account fresh from
// the store so role and verification changes take effect immediately.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		token, err := extractBearerToken(r)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}
		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := auth.ContextWithAccountID(r.Context(), claims.Subject)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("httpapi: missing authorization header")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("httpapi: malformed authorization header")
	}
	return parts[1], nil
}

// currentAccount loads the authenticated caller from the store.
func (a *API) currentAccount(r *http.Request) (*account.Account, error) {
	id, ok := auth.AccountIDFromContext(r.Context())
	if !ok || id == "" {
		return nil, authz.ErrUnauthenticated
	}
	acct, err := a.accountStore.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, authz.ErrUnauthenticated
		}
		return nil, err
	}
	return &acct, nil
}

// writeDomainError maps service errors onto HTTP status codes. Unknown
// errors fail closed as 503 so a broken store never grants access.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var forbidden *authz.ForbiddenError
	switch {
	case errors.Is(err, authz.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.As(err, &forbidden):
		obs.ObserveDenial(string(forbidden.Reason))
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":      "forbidden",
			"reason":     string(forbidden.Reason),
			"request_id": RequestIDFromContext(r.Context()),
		})
	case errors.Is(err, authz.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, validate.ErrInvalid),
		errors.Is(err, account.ErrInvalidRole),
		errors.Is(err, account.ErrInvalidStatus),
		errors.Is(err, verify.ErrInvalidOutcome),
		errors.Is(err, clinical.ErrInvalidInput),
		errors.Is(err, message.ErrInvalidInput),
		errors.Is(err, pharmacy.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrConflict), errors.Is(err, verify.ErrAlreadyPending):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, verify.ErrAlreadyDecided), errors.Is(err, clinical.ErrStatusChanged):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, verify.ErrNotFound),
		errors.Is(err, clinical.ErrNotFound),
		errors.Is(err, message.ErrNotFound),
		errors.Is(err, pharmacy.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusServiceUnavailable, "temporarily unavailable")
	}
}
