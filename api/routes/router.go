package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mechflow/mechflow-backend/api/controllers"
	"github.com/mechflow/mechflow-backend/api/middleware"
	"github.com/mechflow/mechflow-backend/internal/audit"
	"github.com/mechflow/mechflow-backend/internal/estimates"
	"github.com/mechflow/mechflow-backend/internal/notifications"
	"github.com/mechflow/mechflow-backend/internal/settings"
	"github.com/mechflow/mechflow-backend/internal/users"
	"github.com/mechflow/mechflow-backend/pkg/config"
	"github.com/mechflow/mechflow-backend/pkg/enums"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store kv.Store,
	registry *prometheus.Registry,
	usersService users.Service,
	estimatesService estimates.Service,
	notificationsService notifications.Service,
	settingsService settings.Service,
	auditService audit.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(usersService, auditService, logg))
		r.Post("/login", controllers.AuthLogin(usersService, auditService, logg))
		r.Post("/login-key", controllers.AuthLoginKey(usersService, auditService, logg))
		r.Post("/login-phone", controllers.AuthLoginPhone(usersService, auditService, logg))
	})

	// Unauthenticated customer surface: estimate tracking and the public
	// shop details the portal shows before sign-in.
	r.Route("/api/v1/public", func(r chi.Router) {
		r.Post("/estimates", controllers.EstimateCreate(estimatesService, usersService, logg))
		r.Post("/estimates/lookup", controllers.EstimateLookup(estimatesService, logg))
		r.Get("/settings", controllers.SettingsGet(settingsService, logg))
		r.Get("/shop-status", controllers.ShopStatusGet(settingsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(usersService, logg))

		r.Post("/auth/logout", controllers.AuthLogout(usersService, auditService, logg))
		r.Get("/me", controllers.AuthMe(usersService, logg))
		r.Post("/me/avatar", controllers.AuthAvatar(usersService, logg))

		r.Post("/estimates", controllers.EstimateCreate(estimatesService, usersService, logg))
		r.Get("/estimates/my", controllers.EstimateMine(estimatesService, usersService, logg))
		r.Get("/estimates/{estimateId}", controllers.EstimateDetail(estimatesService, logg))
		r.Get("/estimates/{estimateId}/invoice", controllers.EstimateInvoice(estimatesService, settingsService, logg))
		r.Get("/estimates/{estimateId}/share-link", controllers.EstimateShareLink(estimatesService, settingsService, logg))

		r.Get("/notifications", controllers.NotificationList(notificationsService, logg))
		r.Post("/notifications/{notificationId}/read", controllers.NotificationMarkRead(notificationsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleMechanic), logg))

			r.Get("/estimates", controllers.EstimateList(estimatesService, logg))
			r.Patch("/estimates/{estimateId}", controllers.EstimateUpdate(estimatesService, settingsService, logg))
			r.Post("/estimates/{estimateId}/pay", controllers.EstimateMarkPaid(estimatesService, logg))
			r.Delete("/estimates/{estimateId}", controllers.EstimateArchive(estimatesService, logg))
			r.Post("/estimates/archive-customer", controllers.EstimateArchiveCustomer(estimatesService, logg))

			r.Put("/settings", controllers.SettingsSave(settingsService, logg))
			r.Put("/shop-status", controllers.ShopStatusSet(settingsService, logg))

			r.Get("/audit/devices", controllers.AuditDeviceHistory(auditService, logg))
			r.Get("/audit/security-log", controllers.AuditSecurityLog(auditService, logg))
		})
	})

	return r
}
