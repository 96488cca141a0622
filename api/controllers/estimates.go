package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mechflow/mechflow-backend/api/middleware"
	"github.com/mechflow/mechflow-backend/api/responses"
	"github.com/mechflow/mechflow-backend/api/validators"
	"github.com/mechflow/mechflow-backend/internal/estimates"
	"github.com/mechflow/mechflow-backend/internal/settings"
	"github.com/mechflow/mechflow-backend/internal/users"
	"github.com/mechflow/mechflow-backend/pkg/enums"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/logger"
	"github.com/mechflow/mechflow-backend/pkg/money"
)

// EstimateList returns the full ledger for the shop portal.
func EstimateList(svc estimates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "estimates service unavailable"))
			return
		}

		ledger, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger)
	}
}

// EstimateDetail returns a single ledger record.
func EstimateDetail(svc estimates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "estimates service unavailable"))
			return
		}

		estimate, err := svc.Get(r.Context(), chi.URLParam(r, "estimateId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, estimate)
	}
}

type estimateCreateRequest struct {
	Vehicle string `json:"vehicle" validate:"required,max=120"`
	Service string `json:"service" validate:"required,max=120"`
	Notes   string `json:"notes" validate:"omitempty,max=2000"`

	// Walk-in fields; the session identity fills whatever is left blank.
	Customer string `json:"customer" validate:"omitempty,max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=40"`
}

// EstimateCreate prices a repair request and records it. Identity fields
// default to the session user so customers never retype their contact info.
func EstimateCreate(svc estimates.Service, usersSvc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "estimates service unavailable"))
			return
		}

		var req estimateCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := estimates.CreateParams{
			Customer: req.Customer,
			Email:    req.Email,
			Phone:    req.Phone,
			Vehicle:  req.Vehicle,
			Service:  req.Service,
			Notes:    req.Notes,
		}

		if usersSvc != nil {
			if token := middleware.TokenFromContext(r.Context()); token != "" {
				if user, err := usersSvc.CurrentUser(r.Context(), token); err == nil {
					if params.Customer == "" {
						params.Customer = user.Name
					}
					if params.Email == "" {
						params.Email = user.Email
					}
					if params.Phone == "" {
						params.Phone = user.Phone
					}
					params.CustomerKey = user.ShareKey
				}
			}
		}

		estimate, err := svc.Create(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, estimate)
	}
}

type estimateUpdateRequest struct {
	Status        string           `json:"status" validate:"omitempty,max=40"`
	LaborCost     *decimal.Decimal `json:"laborCost" validate:"omitempty"`
	PartsCost     *decimal.Decimal `json:"partsCost" validate:"omitempty"`
	Discount      *decimal.Decimal `json:"discount" validate:"omitempty"`
	Tax           *decimal.Decimal `json:"tax" validate:"omitempty"`
	Amount        *decimal.Decimal `json:"amount" validate:"omitempty"`
	MechanicNotes *string          `json:"mechanicNotes" validate:"omitempty,max=2000"`
	Vehicle       *string          `json:"vehicle" validate:"omitempty,max=120"`
	Service       *string          `json:"service" validate:"omitempty,max=120"`
}

// EstimateUpdate applies a mechanic edit. When costs change and the caller
// did not price the totals explicitly, tax and amount are recomputed from
// the configured rate.
func EstimateUpdate(svc estimates.Service, settingsSvc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "estimates service unavailable"))
			return
		}

		var req estimateUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		estimate, err := svc.Get(r.Context(), chi.URLParam(r, "estimateId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		costsChanged := false
		if req.LaborCost != nil {
			estimate.LaborCost = *req.LaborCost
			costsChanged = true
		}
		if req.PartsCost != nil {
			estimate.PartsCost = *req.PartsCost
			costsChanged = true
		}
		if req.Discount != nil {
			estimate.Discount = *req.Discount
			costsChanged = true
		}
		if req.Tax != nil {
			estimate.Tax = *req.Tax
			costsChanged = false
		}
		if req.Amount != nil {
			estimate.Amount = *req.Amount
		}
		if req.MechanicNotes != nil {
			estimate.MechanicNotes = *req.MechanicNotes
		}
		if req.Vehicle != nil {
			estimate.Vehicle = *req.Vehicle
		}
		if req.Service != nil {
			estimate.Service = *req.Service
		}
		if req.Status != "" {
			estimate.Status = enums.EstimateStatus(req.Status)
		}

		if costsChanged && req.Amount == nil {
			rate := money.DefaultTaxRate
			if settingsSvc != nil {
				if cfg, cfgErr := settingsSvc.Get(r.Context()); cfgErr == nil && !cfg.TaxRate.IsZero() {
					rate = cfg.TaxRate
				}
			}
			subtotal := estimate.Subtotal()
			estimate.Tax = money.Tax(subtotal, rate)
			estimate.Amount = subtotal.Add(estimate.Tax)
		}

		updated, err := svc.Save(r.Context(), estimate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// EstimateMarkPaid flips the paid flag on a record.
func EstimateMarkPaid(svc estimates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "estimates service unavailable"))
			return
		}

		estimate, err := svc.MarkPaid(r.Context(), chi.URLParam(r, "estimateId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, estimate)
	}
}

// EstimateArchive soft-deletes a record.
func EstimateArchive(svc estimates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "estimates service unavailable"))
			return
		}

		if err := svc.Archive(r.Context(), chi.URLParam(r, "estimateId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"archived": true})
	}
}

type archiveCustomerRequest struct {
	Customer string `json:"customer" validate:"required,max=120"`
}

// EstimateArchiveCustomer soft-deletes every active record for a customer.
func EstimateArchiveCustomer(svc estimates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "estimates service unavailable"))
			return
		}

		var req archiveCustomerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.ArchiveCustomer(r.Context(), req.Customer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"archived": count})
	}
}

type estimateLookupRequest struct {
	Phone    string `json:"phone" validate:"omitempty,max=40"`
	Email    string `json:"email" validate:"omitempty,email"`
	ShareKey string `json:"shareKey" validate:"omitempty,max=20"`
}

// EstimateLookup is the unauthenticated tracking flow: any one credential
// resolves the customer's records.
func EstimateLookup(svc estimates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "estimates service unavailable"))
			return
		}

		var req estimateLookupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Phone == "" && req.Email == "" && req.ShareKey == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "phone, email, or share key required"))
			return
		}

		matches, err := svc.ListForCustomer(r.Context(), req.Phone, req.Email, req.ShareKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, matches)
	}
}

// EstimateMine returns the session customer's records.
func EstimateMine(svc estimates.Service, usersSvc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || usersSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "estimates service unavailable"))
			return
		}

		user, err := usersSvc.CurrentUser(r.Context(), middleware.TokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		matches, err := svc.ListForCustomer(r.Context(), user.Phone, user.Email, user.ShareKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, matches)
	}
}
