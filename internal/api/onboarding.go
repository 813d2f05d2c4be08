package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kalambet/nextstep/internal/profile"
)

type completeResponse struct {
	Profile   profile.UserProfile `json:"profile"`
	NewBadges []profile.Badge     `json:"newBadges"`
}

type editRequest struct {
	Step int `json:"step"`
}

func handleGetOnboarding(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Profile.Onboarding())
	}
}

func handlePatchOnboarding(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch profile.OnboardingPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		if err := deps.Profile.UpdateOnboarding(patch); err != nil {
			storeFailed(w, "save onboarding", err)
			return
		}
		writeJSON(w, http.StatusOK, deps.Profile.Onboarding())
	}
}

// writeInvalid writes a 422 for validation failures. It reports false for
// any other error.
func writeInvalid(w http.ResponseWriter, err error) bool {
	var verr *profile.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error": map[string]any{
			"message": verr.Error(),
			"type":    "validation_error",
			"step":    verr.Step,
			"fields":  verr.Fields,
		},
	})
	return true
}

func handleValidateStep(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft := deps.Profile.Onboarding()
		step := draft.Step
		if raw := r.URL.Query().Get("step"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid step %q", raw)
				return
			}
			step = n
		}

		if err := profile.ValidateStep(draft, step); err != nil {
			if writeInvalid(w, err) {
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"step": step, "valid": true})
	}
}

func handleCompleteOnboarding(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := profile.ValidateDraft(deps.Profile.Onboarding()); err != nil {
			if !writeInvalid(w, err) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			}
			return
		}
		if err := deps.Profile.CompleteOnboarding(); err != nil {
			storeFailed(w, "complete onboarding", err)
			return
		}
		badges, err := deps.Roadmap.CheckAchievements()
		if err != nil {
			storeFailed(w, "award badges", err)
			return
		}
		p, _ := deps.Profile.Profile()
		deps.Logger.Info("onboarding completed")
		writeJSON(w, http.StatusOK, completeResponse{Profile: p, NewBadges: badges})
	}
}

func handleBeginEdit(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := editRequest{Step: 1}
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		if err := deps.Profile.BeginProfileEdit(req.Step); err != nil {
			storeFailed(w, "begin edit", err)
			return
		}
		writeJSON(w, http.StatusOK, deps.Profile.Onboarding())
	}
}

func handleApplyOnboarding(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := profile.ValidateDraft(deps.Profile.Onboarding()); err != nil {
			if !writeInvalid(w, err) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			}
			return
		}
		if err := deps.Profile.ApplyOnboardingToProfile(); err != nil {
			storeFailed(w, "apply onboarding", err)
			return
		}
		p, _ := deps.Profile.Profile()
		writeJSON(w, http.StatusOK, p)
	}
}
