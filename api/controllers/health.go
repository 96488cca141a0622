package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/mechflow/mechflow-backend/pkg/config"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// HealthLive reports process liveness.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady reports readiness by probing the storage backend.
func HealthReady(cfg *config.Config, logg *logger.Logger, store kv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if _, err := store.Get(ctx, kv.KeyShopStatus); err != nil && !errors.Is(err, kv.ErrNotFound) {
				status = "degraded"
				code = http.StatusServiceUnavailable
				if logg != nil {
					logg.Error(r.Context(), "health.store_unreachable", err)
				}
			}
		}

		writeHealth(w, code, map[string]string{
			"status":  status,
			"env":     cfg.App.Env,
			"backend": cfg.KV.Backend,
		})
	}
}

func writeHealth(w http.ResponseWriter, code int, payload map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to write health response","err":"%v"}`, err)
	}
}
