package controllers

import (
	"net/http"
	"time"

	"github.com/omaraldhaheri/zaina-backend/api/responses"
	"github.com/omaraldhaheri/zaina-backend/pkg/config"
	"github.com/omaraldhaheri/zaina-backend/pkg/firestore"
	pkglogger "github.com/omaraldhaheri/zaina-backend/pkg/logger"
	"github.com/omaraldhaheri/zaina-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Zaina-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// HealthReady pings the document store and Redis; either failing marks the
// instance not ready.
func HealthReady(cfg *config.Config, store firestore.Pinger, cache redis.Pinger, logg *pkglogger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-Zaina-Env", cfg.App.Env)

		checks := map[string]string{"firestore": "ok", "redis": "ok"}
		ready := true

		if store == nil {
			checks["firestore"] = "not configured"
			ready = false
		} else if err := store.Ping(ctx); err != nil {
			checks["firestore"] = err.Error()
			ready = false
			if logg != nil {
				logg.Error(ctx, "firestore ping failed", err)
			}
		}

		if cache == nil {
			checks["redis"] = "not configured"
			ready = false
		} else if err := cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			ready = false
			if logg != nil {
				logg.Error(ctx, "redis ping failed", err)
			}
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not ready"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status":    state,
			"checks":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
