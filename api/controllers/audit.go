package controllers

import (
	"net/http"

	"github.com/mechflow/mechflow-backend/api/responses"
	"github.com/mechflow/mechflow-backend/internal/audit"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/logger"
)

// AuditDeviceHistory returns the device-history trail.
func AuditDeviceHistory(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		history, err := svc.DeviceHistory(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// AuditSecurityLog returns the security-log trail.
func AuditSecurityLog(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		log, err := svc.SecurityLog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, log)
	}
}
