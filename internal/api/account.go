package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kalambet/nextstep/internal/storage"
)

// Subscription plans offered by the product.
const (
	PlanFree         = "Free"
	PlanProjectChart = "ProjectChart"
	PlanMentorPlus   = "MentorPlus"
)

// AccountStore reads and writes the flat account keys stored next to the
// profile snapshot. Implemented by storage.Store.
type AccountStore interface {
	GetValue(key string) (string, error)
	SetValue(key, value string) error
	DeleteValue(key string) error
}

// Account holds the login name and subscription plan. Both are independent
// of the profile and survive a reset.
type Account struct {
	Username string `json:"username"`
	Plan     string `json:"plan,omitempty"`
}

type accountPatch struct {
	Username *string `json:"username,omitempty" validate:"omitempty,max=64"`
	Plan     *string `json:"plan,omitempty" validate:"omitempty,oneof=Free ProjectChart MentorPlus"`
}

var accountValidator = validator.New()

func readAccount(s AccountStore) (Account, error) {
	var a Account
	for key, dst := range map[string]*string{
		storage.KeyUsername:         &a.Username,
		storage.KeySubscriptionPlan: &a.Plan,
	} {
		v, err := s.GetValue(key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return Account{}, fmt.Errorf("reading %s: %w", key, err)
		}
		*dst = v
	}
	return a, nil
}

func handleGetAccount(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := readAccount(deps.Account)
		if err != nil {
			storeFailed(w, "read account", err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func handlePutAccount(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch accountPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		if err := accountValidator.Struct(patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid account: %v", err)
			return
		}
		if patch.Username != nil {
			if err := deps.Account.SetValue(storage.KeyUsername, *patch.Username); err != nil {
				storeFailed(w, "save username", err)
				return
			}
		}
		if patch.Plan != nil {
			if err := deps.Account.SetValue(storage.KeySubscriptionPlan, *patch.Plan); err != nil {
				storeFailed(w, "save plan", err)
				return
			}
		}
		a, err := readAccount(deps.Account)
		if err != nil {
			storeFailed(w, "read account", err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// handleDeleteAccount clears the username and plan. The profile is untouched.
func handleDeleteAccount(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, key := range []string{storage.KeyUsername, storage.KeySubscriptionPlan} {
			if err := deps.Account.DeleteValue(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
				storeFailed(w, "clear account", err)
				return
			}
		}
		writeJSON(w, http.StatusOK, Account{})
	}
}
