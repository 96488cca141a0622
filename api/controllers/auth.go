package controllers

import (
	"net/http"

	"github.com/mechflow/mechflow-backend/api/middleware"
	"github.com/mechflow/mechflow-backend/api/responses"
	"github.com/mechflow/mechflow-backend/api/validators"
	"github.com/mechflow/mechflow-backend/internal/audit"
	"github.com/mechflow/mechflow-backend/internal/users"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/logger"
	"github.com/mechflow/mechflow-backend/pkg/models"
)

// userView is the public shape of an account. The stored record carries the
// password hash; this never does.
type userView struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	ShareKey string `json:"shareKey,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

func newUserView(user models.User) userView {
	return userView{
		Email:    user.Email,
		Role:     string(user.Role),
		Name:     user.Name,
		Phone:    user.Phone,
		ShareKey: user.ShareKey,
		Avatar:   user.Avatar,
		Gender:   user.Gender,
	}
}

type sessionResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
	Phone    string `json:"phone" validate:"required"`
	Gender   string `json:"gender" validate:"omitempty,oneof=male female"`
	Portal   string `json:"portal" validate:"omitempty"`
}

// AuthRegister creates a customer account and opens a session for it.
func AuthRegister(svc users.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var req registerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, token, err := svc.Register(r.Context(), users.RegisterParams{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Gender:   req.Gender,
		})
		if err != nil {
			recordSecurityEvent(r, auditSvc, "register_failed", req.Email, req.Portal)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordSecurityEvent(r, auditSvc, "register", user.Email, req.Portal)
		recordDevice(r, auditSvc, req.Portal)
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{Token: token, User: newUserView(user)})
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Portal   string `json:"portal" validate:"omitempty"`
}

// AuthLogin opens a session for an email/password pair.
func AuthLogin(svc users.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, token, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			recordSecurityEvent(r, auditSvc, "login_failed", req.Email, req.Portal)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordSecurityEvent(r, auditSvc, "login", user.Email, req.Portal)
		recordDevice(r, auditSvc, req.Portal)
		responses.WriteSuccess(w, sessionResponse{Token: token, User: newUserView(user)})
	}
}

type keyLoginRequest struct {
	ShareKey string `json:"shareKey" validate:"required"`
	Portal   string `json:"portal" validate:"omitempty"`
}

// AuthLoginKey opens a session for a customer share key.
func AuthLoginKey(svc users.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var req keyLoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, token, err := svc.LoginByKey(r.Context(), req.ShareKey)
		if err != nil {
			recordSecurityEvent(r, auditSvc, "key_login_failed", req.ShareKey, req.Portal)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordSecurityEvent(r, auditSvc, "key_login", user.Email, req.Portal)
		recordDevice(r, auditSvc, req.Portal)
		responses.WriteSuccess(w, sessionResponse{Token: token, User: newUserView(user)})
	}
}

type phoneLoginRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"required"`
	Portal string `json:"portal" validate:"omitempty"`
}

// AuthLoginPhone opens a session for a matching email/phone pair.
func AuthLoginPhone(svc users.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var req phoneLoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, token, err := svc.LoginByPhoneEmail(r.Context(), req.Email, req.Phone)
		if err != nil {
			recordSecurityEvent(r, auditSvc, "phone_login_failed", req.Email, req.Portal)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordSecurityEvent(r, auditSvc, "phone_login", user.Email, req.Portal)
		recordDevice(r, auditSvc, req.Portal)
		responses.WriteSuccess(w, sessionResponse{Token: token, User: newUserView(user)})
	}
}

// AuthLogout clears the caller's session.
func AuthLogout(svc users.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		token := middleware.TokenFromContext(r.Context())
		if err := svc.Logout(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordSecurityEvent(r, auditSvc, "logout", middleware.UserEmailFromContext(r.Context()), "")
		responses.WriteSuccess(w, map[string]bool{"loggedOut": true})
	}
}

// AuthMe returns the session user.
func AuthMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		user, err := svc.CurrentUser(r.Context(), middleware.TokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newUserView(user))
	}
}

type avatarRequest struct {
	Gender string `json:"gender" validate:"required,oneof=male female"`
}

// AuthAvatar rolls a new avatar for the session user.
func AuthAvatar(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var req avatarRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.AssignAvatar(r.Context(), middleware.TokenFromContext(r.Context()), req.Gender)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newUserView(user))
	}
}

// recordSecurityEvent is best effort; auth flows never fail on audit writes.
func recordSecurityEvent(r *http.Request, auditSvc audit.Service, action, identifier, portal string) {
	if auditSvc == nil {
		return
	}
	_ = auditSvc.RecordSecurityEvent(r.Context(), audit.SecurityParams{
		Action:     action,
		Identifier: identifier,
		RemoteAddr: r.RemoteAddr,
		Portal:     portal,
	})
}

// recordDevice is best effort; auth flows never fail on audit writes.
func recordDevice(r *http.Request, auditSvc audit.Service, portal string) {
	if auditSvc == nil {
		return
	}
	_, _ = auditSvc.RecordDevice(r.Context(), audit.DeviceParams{
		UserAgent: r.UserAgent(),
		Platform:  r.Header.Get("Sec-CH-UA-Platform"),
		Language:  r.Header.Get("Accept-Language"),
		Portal:    portal,
	})
}
