package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kalambet/nextstep/internal/profile"
	"github.com/kalambet/nextstep/internal/roadmap"
)

type AppDeps struct {
	Profile *profile.Store
	Roadmap *roadmap.Service
	Account AccountStore
	Token   string
	Logger  *zap.Logger
}

// NewAppHandler returns the local REST API. Everything except /health
// requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(deps.Logger))

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token, deps.Logger))

		r.Get("/state", handleGetState(deps))

		r.Get("/profile", handleGetProfile(deps))
		r.Put("/profile", handlePutProfile(deps))
		r.Patch("/profile/name", handlePatchName(deps))

		r.Get("/onboarding", handleGetOnboarding(deps))
		r.Patch("/onboarding", handlePatchOnboarding(deps))
		r.Post("/onboarding/validate", handleValidateStep(deps))
		r.Post("/onboarding/complete", handleCompleteOnboarding(deps))
		r.Post("/onboarding/edit", handleBeginEdit(deps))
		r.Post("/onboarding/apply", handleApplyOnboarding(deps))

		r.Post("/xp", handleAddXP(deps))
		r.Get("/progress", handleGetProgress(deps))

		r.Get("/roadmap", handleGetRoadmap(deps))
		r.Post("/skills/{id}/complete", handleCompleteSkill(deps))

		r.Get("/badges", handleListBadges(deps))
		r.Post("/badges", handleEarnBadge(deps))
		r.Get("/achievements", handleListAchievements(deps))

		r.Post("/reset", handleReset(deps))

		r.Get("/account", handleGetAccount(deps))
		r.Put("/account", handlePutAccount(deps))
		r.Delete("/account", handleDeleteAccount(deps))
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
			)
		})
	}
}
