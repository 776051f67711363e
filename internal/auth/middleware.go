package auth

import (
	"context"
	"net/http"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
)

// Authenticator resolves a raw token to its active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Middleware resolves tokens and guards routes.
type Middleware struct {
	auth   Authenticator
	logger logger.ZapLogger
}

func NewMiddleware(a Authenticator, log logger.ZapLogger) *Middleware {
	return &Middleware{auth: a, logger: log}
}

// Authenticate attaches the user when a token is presented. A bad token is
// rejected even on public routes.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			httpx.Error(w, r, m.logger, err)
			return
		}
		prefix := token
		if len(prefix) > TokenKeyLength {
			prefix = prefix[:TokenKeyLength]
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u, prefix)))
	})
}

func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			httpx.Error(w, r, m.logger, apperror.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) RequireStaff(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsStaff(r.Context()) {
			httpx.Error(w, r, m.logger, apperror.ErrPermissionDenied)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
