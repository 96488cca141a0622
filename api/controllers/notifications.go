package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mechflow/mechflow-backend/api/middleware"
	"github.com/mechflow/mechflow-backend/api/responses"
	"github.com/mechflow/mechflow-backend/internal/notifications"
	"github.com/mechflow/mechflow-backend/pkg/enums"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/logger"
)

// NotificationList returns the session user's slice of the alert log.
// Mechanics see everything addressed to the shop; customers only entries
// addressed to their email.
func NotificationList(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		role, err := enums.ParseRole(middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role"))
			return
		}

		log, err := svc.List(r.Context(), role, middleware.UserEmailFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, log)
	}
}

// NotificationMarkRead flips a log entry to read.
func NotificationMarkRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		if err := svc.MarkRead(r.Context(), chi.URLParam(r, "notificationId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}
