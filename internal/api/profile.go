package api

import (
	"net/http"
	"strings"

	"github.com/kalambet/nextstep/internal/profile"
	"github.com/kalambet/nextstep/internal/progress"
)

type stateResponse struct {
	profile.Snapshot
	Progress *progress.Progress `json:"progress,omitempty"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type xpRequest struct {
	Amount int `json:"amount"`
}

func handleGetState(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := stateResponse{Snapshot: deps.Profile.Snapshot()}
		if resp.Profile != nil {
			p := progress.Compute(resp.Profile.XP)
			resp.Progress = &p
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := deps.Profile.Profile()
		if !ok {
			noProfile(w)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handlePutProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p profile.UserProfile
		if !decodeBody(w, r, &p) {
			return
		}
		if strings.TrimSpace(p.ID) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "id is required")
			return
		}
		if err := deps.Profile.SetProfile(p); err != nil {
			storeFailed(w, "save profile", err)
			return
		}
		saved, _ := deps.Profile.Profile()
		writeJSON(w, http.StatusOK, saved)
	}
}

func handlePatchName(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req nameRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if _, ok := deps.Profile.Profile(); !ok {
			noProfile(w)
			return
		}
		if err := deps.Profile.SetName(strings.TrimSpace(req.Name)); err != nil {
			storeFailed(w, "save name", err)
			return
		}
		p, _ := deps.Profile.Profile()
		writeJSON(w, http.StatusOK, p)
	}
}

func handleAddXP(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req xpRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if _, ok := deps.Profile.Profile(); !ok {
			noProfile(w)
			return
		}
		// Negative amounts are accepted and ignored by the store.
		if err := deps.Profile.AddXP(req.Amount); err != nil {
			storeFailed(w, "add xp", err)
			return
		}
		p, _ := deps.Profile.Profile()
		writeJSON(w, http.StatusOK, progress.Compute(p.XP))
	}
}

func handleGetProgress(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := deps.Profile.Profile()
		if !ok {
			noProfile(w)
			return
		}
		writeJSON(w, http.StatusOK, progress.Compute(p.XP))
	}
}

func handleListBadges(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := deps.Profile.Profile()
		if !ok {
			noProfile(w)
			return
		}
		writeJSON(w, http.StatusOK, p.Badges)
	}
}

func handleEarnBadge(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b profile.Badge
		if !decodeBody(w, r, &b) {
			return
		}
		if strings.TrimSpace(b.ID) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "id is required")
			return
		}
		if _, ok := deps.Profile.Profile(); !ok {
			noProfile(w)
			return
		}
		if err := deps.Profile.EarnBadge(b); err != nil {
			storeFailed(w, "earn badge", err)
			return
		}
		p, _ := deps.Profile.Profile()
		writeJSON(w, http.StatusOK, p.Badges)
	}
}

func handleReset(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Profile.ResetOnboarding(); err != nil {
			storeFailed(w, "reset", err)
			return
		}
		deps.Logger.Info("profile reset")
		writeJSON(w, http.StatusOK, deps.Profile.Snapshot())
	}
}
