package ops

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoppulse/recsys-backend/internal/recommend"
	"github.com/shoppulse/recsys-backend/pkg/config"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

// Pinger reports whether one backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readyTimeout = 5 * time.Second

// RouterParams wire the worker's dependencies into the ops router.
type RouterParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Pingers map[string]Pinger
	// Serving is optional; without it the recommendations route is absent.
	Serving *recommend.Serving
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		recoverer(p.Logger),
		requestID(p.Logger),
		requestLogging(p.Logger),
	)

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", handleLive(p.Config))
		r.Get("/ready", handleReady(p.Config, p.Logger, p.Pingers))
	})
	r.Handle("/metrics", promhttp.Handler())

	if p.Serving != nil {
		r.Get("/api/v1/users/{userID}/recommendations", handleRecommendations(p.Logger, p.Serving))
	}
	return r
}

func handleLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopPulse-Env", cfg.App.Env)
		writeSuccess(w, map[string]string{"status": "live"})
	}
}

func handleReady(cfg *config.Config, logg *logger.Logger, pingers map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for name, pinger := range pingers {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				writeError(ctx, logg, w, apperrors.Wrap(apperrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		w.Header().Set("X-ShopPulse-Env", cfg.App.Env)
		writeSuccess(w, map[string]string{"status": "ready"})
	}
}

func handleRecommendations(logg *logger.Logger, serving *recommend.Serving) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			writeError(ctx, logg, w, apperrors.New(apperrors.CodeValidation, "user id must be numeric"))
			return
		}

		products, err := serving.ItemsFor(ctx, uint(userID))
		if err != nil {
			writeError(ctx, logg, w, err)
			return
		}
		writeSuccess(w, map[string]any{"user_id": userID, "products": products})
	}
}
