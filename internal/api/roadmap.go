package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func handleGetRoadmap(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Roadmap.View())
	}
}

// handleCompleteSkill returns 200 with applied=false for requests the
// roadmap ignores (locked, unknown, already completed, no profile).
func handleCompleteSkill(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res, err := deps.Roadmap.Complete(id)
		if err != nil {
			storeFailed(w, "complete skill", err)
			return
		}
		if !res.Applied {
			deps.Logger.Debug("skill completion ignored", zap.String("skill_id", id), zap.String("reason", res.Reason))
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleListAchievements(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Roadmap.Achievements())
	}
}
