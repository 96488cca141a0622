package middleware

import (
	"context"
	"net/http"

	"github.com/mechflow/mechflow-backend/api/responses"
	"github.com/mechflow/mechflow-backend/api/validators"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/logger"
	"github.com/mechflow/mechflow-backend/pkg/models"
)

// SessionChecker resolves an opaque session token to its user record.
type SessionChecker interface {
	CurrentUser(ctx context.Context, token string) (models.User, error)
}

// Auth resolves the bearer token to a session user and seeds the request
// context with the user's identity.
func Auth(sessions SessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := validators.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			user, err := sessions.CurrentUser(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserEmail, user.Email)
			ctx = context.WithValue(ctx, ctxRole, string(user.Role))
			ctx = context.WithValue(ctx, ctxToken, token)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_email": user.Email,
					"actor_role": string(user.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
