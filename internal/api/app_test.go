package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalambet/nextstep/internal/profile"
	"github.com/kalambet/nextstep/internal/progress"
	"github.com/kalambet/nextstep/internal/roadmap"
	"github.com/kalambet/nextstep/internal/skills"
	"github.com/kalambet/nextstep/internal/storage"
)

const testToken = "test-token-12345"

type testEnv struct {
	handler http.Handler
	store   *storage.Store
	profile *profile.Store
	roadmap *roadmap.Service
}

func testCatalog() *skills.Catalog {
	return skills.NewCatalog([]skills.Skill{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B", Prerequisites: []string{"a"}},
		{ID: "c", Name: "C", Prerequisites: []string{"a"}},
		{ID: "d", Name: "D", Prerequisites: []string{"b", "c"}},
	})
}

func setupApp(t *testing.T) testEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ps, err := profile.NewStore(store)
	require.NoError(t, err)
	svc := roadmap.NewService(testCatalog(), ps, roadmap.DefaultSkillXP, nil)

	return testEnv{
		handler: NewAppHandler(AppDeps{
			Profile: ps,
			Roadmap: svc,
			Account: store,
			Token:   testToken,
		}),
		store:   store,
		profile: ps,
		roadmap: svc,
	}
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (e testEnv) do(t *testing.T, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, authReq(method, url, body, testToken))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

const validDraft = `{"step":4,"degree":"B.Tech","branch":"CS","syllabusTopics":["DS","Algorithms","DBMS"],"interests":["technology"],"careerGoal":"Software Engineer","knowsCareerGoal":true}`

func (e testEnv) onboard(t *testing.T) {
	t.Helper()
	rr := e.do(t, http.MethodPatch, "/onboarding", validDraft)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = e.do(t, http.MethodPost, "/onboarding/complete", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestHealth_NoAuth(t *testing.T) {
	e := setupApp(t)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAuth_Required(t *testing.T) {
	e := setupApp(t)
	for _, token := range []string{"", "wrong"} {
		rr := httptest.NewRecorder()
		e.handler.ServeHTTP(rr, authReq(http.MethodGet, "/state", "", token))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
		body := decode[map[string]map[string]string](t, rr)
		assert.Equal(t, "authentication_error", body["error"]["type"])
	}
}

func TestAuth_EmptyTokenLocksAPI(t *testing.T) {
	h := BearerAuth("", zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, header := range []string{"", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/state", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
}

func TestState_Initial(t *testing.T) {
	e := setupApp(t)
	rr := e.do(t, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rr.Code)

	st := decode[stateResponse](t, rr)
	assert.Nil(t, st.Profile)
	assert.Nil(t, st.Progress)
	assert.False(t, st.IsOnboardingComplete)
	assert.Equal(t, profile.InitialOnboarding(), st.Onboarding)
}

func TestProfile_NotFoundBeforeOnboarding(t *testing.T) {
	e := setupApp(t)
	for _, tc := range []struct{ method, url, body string }{
		{http.MethodGet, "/profile", ""},
		{http.MethodGet, "/progress", ""},
		{http.MethodGet, "/badges", ""},
		{http.MethodPost, "/xp", `{"amount":10}`},
		{http.MethodPatch, "/profile/name", `{"name":"Asha"}`},
	} {
		rr := e.do(t, tc.method, tc.url, tc.body)
		assert.Equal(t, http.StatusNotFound, rr.Code, "%s %s", tc.method, tc.url)
	}
}

func TestOnboarding_CompleteFlow(t *testing.T) {
	e := setupApp(t)

	rr := e.do(t, http.MethodPatch, "/onboarding", `{"degree":"B.Tech","step":9}`)
	require.Equal(t, http.StatusOK, rr.Code)
	draft := decode[profile.OnboardingData](t, rr)
	assert.Equal(t, 4, draft.Step, "step is clamped")
	assert.Equal(t, "B.Tech", draft.Degree)

	rr = e.do(t, http.MethodPost, "/onboarding/complete", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"validation_error"`)
	_, ok := e.profile.Profile()
	assert.False(t, ok, "invalid draft does not create a profile")

	e.onboard(t)

	p, ok := e.profile.Profile()
	require.True(t, ok)
	assert.Equal(t, profile.DefaultName, p.Name)
	assert.Equal(t, 1, p.Level)
	require.Len(t, p.Badges, 1)
	assert.Equal(t, roadmap.BadgeFirstSteps.ID, p.Badges[0].ID)
	assert.True(t, e.profile.IsOnboardingComplete())
}

func TestOnboarding_ValidateStep(t *testing.T) {
	e := setupApp(t)

	rr := e.do(t, http.MethodPost, "/onboarding/validate?step=1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	e.do(t, http.MethodPatch, "/onboarding", `{"degree":"B.Sc","branch":"Physics"}`)
	rr = e.do(t, http.MethodPost, "/onboarding/validate?step=1", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = e.do(t, http.MethodPost, "/onboarding/validate?step=x", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPost, "/onboarding/validate?step=7", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOnboarding_EditAndApply(t *testing.T) {
	e := setupApp(t)
	e.onboard(t)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/xp", `{"amount":120}`).Code)

	rr := e.do(t, http.MethodPost, "/onboarding/edit", `{"step":3}`)
	require.Equal(t, http.StatusOK, rr.Code)
	draft := decode[profile.OnboardingData](t, rr)
	assert.Equal(t, 3, draft.Step)
	assert.Equal(t, "Software Engineer", draft.CareerGoal)

	e.do(t, http.MethodPatch, "/onboarding", `{"interests":["design","data"]}`)
	rr = e.do(t, http.MethodPost, "/onboarding/apply", "")
	require.Equal(t, http.StatusOK, rr.Code)

	p := decode[profile.UserProfile](t, rr)
	assert.Equal(t, []string{"design", "data"}, p.Interests)
	assert.Equal(t, 120, p.XP, "apply keeps progress")
}

func TestXPAndProgress(t *testing.T) {
	e := setupApp(t)
	e.onboard(t)

	rr := e.do(t, http.MethodPost, "/xp", `{"amount":550}`)
	require.Equal(t, http.StatusOK, rr.Code)
	pr := decode[progress.Progress](t, rr)
	assert.Equal(t, 2, pr.Level)
	assert.Equal(t, 50, pr.CurrentLevelXP)
	assert.InDelta(t, 10.0, pr.ProgressPercent, 0.001)

	rr = e.do(t, http.MethodPost, "/xp", `{"amount":-100}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 550, decode[progress.Progress](t, rr).XP)

	rr = e.do(t, http.MethodPost, "/xp", `{"amount":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoadmap_CompleteSkill(t *testing.T) {
	e := setupApp(t)
	e.onboard(t)

	rr := e.do(t, http.MethodPost, "/skills/b/complete", "")
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[roadmap.Result](t, rr)
	assert.False(t, res.Applied)
	assert.Equal(t, roadmap.ReasonLocked, res.Reason)

	for _, id := range []string{"a", "b", "c"} {
		rr = e.do(t, http.MethodPost, "/skills/"+id+"/complete", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, decode[roadmap.Result](t, rr).Applied, id)
	}
	res = decode[roadmap.Result](t, rr)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, roadmap.BadgeSkillSeeker.ID, res.NewBadges[0].ID)
	assert.Equal(t, 300, res.Progress.XP)

	rr = e.do(t, http.MethodGet, "/roadmap", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rm := decode[roadmap.Roadmap](t, rr)
	assert.Equal(t, 3, rm.Completed)
	assert.Equal(t, 4, rm.Total)
	assert.Equal(t, 75, rm.Percent)
	assert.True(t, rm.Nodes[3].IsUnlocked)
}

func TestBadges(t *testing.T) {
	e := setupApp(t)
	e.onboard(t)

	rr := e.do(t, http.MethodPost, "/badges", `{"id":"early-adopter","name":"Early Adopter","description":"Joined early","icon":"🚀"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = e.do(t, http.MethodPost, "/badges", `{"id":"early-adopter","name":"Again"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	badges := decode[[]profile.Badge](t, e.do(t, http.MethodGet, "/badges", ""))
	require.Len(t, badges, 2)
	assert.Equal(t, "Early Adopter", badges[1].Name)

	rr = e.do(t, http.MethodPost, "/badges", `{"name":"no id"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAchievements(t *testing.T) {
	e := setupApp(t)

	list := decode[[]roadmap.AchievementStatus](t, e.do(t, http.MethodGet, "/achievements", ""))
	require.Len(t, list, 2)
	assert.False(t, list[0].Earned)
	assert.False(t, list[1].Earned)

	e.onboard(t)

	list = decode[[]roadmap.AchievementStatus](t, e.do(t, http.MethodGet, "/achievements", ""))
	require.Len(t, list, 2)
	assert.Equal(t, roadmap.BadgeFirstSteps.ID, list[0].ID)
	assert.True(t, list[0].Earned)
	assert.NotNil(t, list[0].EarnedAt)
	assert.Equal(t, roadmap.BadgeSkillSeeker.ID, list[1].ID)
	assert.False(t, list[1].Earned)
}

func TestProfile_PutAndName(t *testing.T) {
	e := setupApp(t)

	rr := e.do(t, http.MethodPut, "/profile", `{"id":"p1","name":"Asha","level":1,"xp":0}`)
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[profile.UserProfile](t, rr)
	assert.Equal(t, []string{}, p.CompletedSkills)

	rr = e.do(t, http.MethodPatch, "/profile/name", `{"name":"  "}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, profile.DefaultName, decode[profile.UserProfile](t, rr).Name)

	rr = e.do(t, http.MethodPut, "/profile", `{"name":"no id"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPut, "/profile", `{"id":"p1","unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReset(t *testing.T) {
	e := setupApp(t)
	e.onboard(t)
	e.do(t, http.MethodPut, "/account", `{"username":"asha"}`)

	rr := e.do(t, http.MethodPost, "/reset", "")
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[profile.Snapshot](t, rr)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.IsOnboardingComplete)

	a := decode[Account](t, e.do(t, http.MethodGet, "/account", ""))
	assert.Equal(t, "asha", a.Username, "account keys survive reset")
}

func TestAccount(t *testing.T) {
	e := setupApp(t)

	a := decode[Account](t, e.do(t, http.MethodGet, "/account", ""))
	assert.Equal(t, Account{}, a)

	rr := e.do(t, http.MethodPut, "/account", `{"username":"asha","plan":"MentorPlus"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, Account{Username: "asha", Plan: PlanMentorPlus}, decode[Account](t, rr))

	v, err := e.store.GetValue(storage.KeySubscriptionPlan)
	require.NoError(t, err)
	assert.Equal(t, PlanMentorPlus, v)

	rr = e.do(t, http.MethodPut, "/account", `{"plan":"Platinum"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPut, "/account", `{"plan":"Free"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, Account{Username: "asha", Plan: PlanFree}, decode[Account](t, rr))
}

func TestAccount_Clear(t *testing.T) {
	e := setupApp(t)
	e.onboard(t)
	e.do(t, http.MethodPut, "/account", `{"username":"asha","plan":"MentorPlus"}`)

	rr := e.do(t, http.MethodDelete, "/account", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, Account{}, decode[Account](t, rr))

	_, err := e.store.GetValue(storage.KeyUsername)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, Account{}, decode[Account](t, e.do(t, http.MethodGet, "/account", "")))

	rr = e.do(t, http.MethodDelete, "/account", "")
	assert.Equal(t, http.StatusOK, rr.Code, "clearing an empty account is fine")

	rr = e.do(t, http.MethodGet, "/profile", "")
	assert.Equal(t, http.StatusOK, rr.Code, "profile survives clearing the account")
}
