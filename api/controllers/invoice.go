package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mechflow/mechflow-backend/api/responses"
	"github.com/mechflow/mechflow-backend/internal/estimates"
	"github.com/mechflow/mechflow-backend/internal/settings"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/invoice"
	"github.com/mechflow/mechflow-backend/pkg/logger"
)

// EstimateInvoice renders the printable invoice for a record and streams it
// as a download.
func EstimateInvoice(svc estimates.Service, settingsSvc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || settingsSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice rendering unavailable"))
			return
		}

		estimate, err := svc.Get(r.Context(), chi.URLParam(r, "estimateId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := settingsSvc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filename, pdf, err := invoice.RenderPDF(estimate, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render invoice"))
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(pdf); err != nil && logg != nil {
			logg.Error(logg.WithEstimateID(r.Context(), estimate.ID), "invoice.stream_failed", err)
		}
	}
}

type shareLinkResponse struct {
	Message string `json:"message"`
	Link    string `json:"link"`
}

// EstimateShareLink builds the prefilled messaging link for a priced record.
func EstimateShareLink(svc estimates.Service, settingsSvc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || settingsSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "share links unavailable"))
			return
		}

		estimate, err := svc.Get(r.Context(), chi.URLParam(r, "estimateId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if estimate.Phone == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "estimate has no phone number"))
			return
		}
		cfg, err := settingsSvc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message := invoice.ShareMessage(estimate, cfg)
		responses.WriteSuccess(w, shareLinkResponse{
			Message: message,
			Link:    invoice.ShareLink(estimate.Phone, message),
		})
	}
}
