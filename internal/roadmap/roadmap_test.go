package roadmap

import (
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/nextstep/internal/profile"
	"github.com/kalambet/nextstep/internal/skills"
	"github.com/kalambet/nextstep/internal/storage"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memKV) SetValue(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) GetValue(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func newStore(t *testing.T) *profile.Store {
	t.Helper()
	s, err := profile.NewStore(&memKV{data: map[string]string{}}, profile.WithClock(fixedClock{}))
	require.NoError(t, err)
	return s
}

func onboard(t *testing.T, s *profile.Store) {
	t.Helper()
	step, goal, knows := 4, "Full Stack Developer", true
	require.NoError(t, s.UpdateOnboarding(profile.OnboardingPatch{
		Step: &step, CareerGoal: &goal, KnowsCareerGoal: &knows,
	}))
	require.NoError(t, s.CompleteOnboarding())
}

func chainCatalog() *skills.Catalog {
	return skills.NewCatalog([]skills.Skill{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B", Prerequisites: []string{"a"}},
		{ID: "c", Name: "C", Prerequisites: []string{"b"}},
		{ID: "d", Name: "D", Prerequisites: []string{"a"}},
	})
}

func TestView_NoProfile(t *testing.T) {
	svc := NewService(chainCatalog(), newStore(t), DefaultSkillXP, nil)

	rm := svc.View()
	assert.Equal(t, 4, rm.Total)
	assert.Equal(t, 0, rm.Completed)
	assert.Equal(t, 0, rm.Percent)
	require.Len(t, rm.Nodes, 4)
	assert.True(t, rm.Nodes[0].IsUnlocked)
	assert.False(t, rm.Nodes[1].IsUnlocked)
}

func TestComplete_AwardsXPAndUnlocks(t *testing.T) {
	s := newStore(t)
	onboard(t, s)
	svc := NewService(chainCatalog(), s, DefaultSkillXP, nil)

	res, err := svc.Complete("a")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 100, res.XPAwarded)
	assert.Equal(t, 100, res.Progress.XP)

	p, _ := s.Profile()
	assert.Equal(t, []string{"a"}, p.CompletedSkills)

	rm := svc.View()
	assert.Equal(t, 1, rm.Completed)
	assert.Equal(t, 25, rm.Percent)
	assert.Equal(t, "Full Stack Developer", rm.CareerGoal)
	byID := lo.KeyBy(rm.Nodes, func(n Node) string { return n.ID })
	assert.True(t, byID["b"].IsUnlocked)
	assert.True(t, byID["d"].IsUnlocked)
	assert.False(t, byID["c"].IsUnlocked)
}

func TestComplete_NoOps(t *testing.T) {
	s := newStore(t)
	svc := NewService(chainCatalog(), s, DefaultSkillXP, nil)

	res, err := svc.Complete("a")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, ReasonNoProfile, res.Reason)

	onboard(t, s)

	res, err = svc.Complete("missing")
	require.NoError(t, err)
	assert.Equal(t, ReasonUnknownSkill, res.Reason)

	res, err = svc.Complete("c")
	require.NoError(t, err)
	assert.Equal(t, ReasonLocked, res.Reason)

	_, err = svc.Complete("a")
	require.NoError(t, err)
	res, err = svc.Complete("a")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, ReasonAlreadyCompleted, res.Reason)

	p, _ := s.Profile()
	assert.Equal(t, 100, p.XP, "only the first completion awards xp")
}

func TestComplete_LevelUp(t *testing.T) {
	s := newStore(t)
	onboard(t, s)
	require.NoError(t, s.AddXP(450))
	svc := NewService(chainCatalog(), s, DefaultSkillXP, nil)

	res, err := svc.Complete("a")
	require.NoError(t, err)
	assert.Equal(t, 550, res.Progress.XP)
	assert.Equal(t, 2, res.Progress.Level)
	assert.Equal(t, 50, res.Progress.CurrentLevelXP)
}

func TestComplete_CustomSkillXP(t *testing.T) {
	s := newStore(t)
	onboard(t, s)
	svc := NewService(chainCatalog(), s, 250, nil)

	res, err := svc.Complete("a")
	require.NoError(t, err)
	assert.Equal(t, 250, res.XPAwarded)
	assert.Equal(t, 250, res.Progress.XP)
}

func TestAchievements(t *testing.T) {
	s := newStore(t)
	onboard(t, s)
	svc := NewService(chainCatalog(), s, DefaultSkillXP, nil)

	badges, err := svc.CheckAchievements()
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, BadgeFirstSteps.ID, badges[0].ID)
	require.NotNil(t, badges[0].EarnedAt)

	badges, err = svc.CheckAchievements()
	require.NoError(t, err)
	assert.Empty(t, badges, "badges are awarded once")

	for _, id := range []string{"a", "b"} {
		res, err := svc.Complete(id)
		require.NoError(t, err)
		assert.Empty(t, res.NewBadges)
	}
	res, err := svc.Complete("d")
	require.NoError(t, err)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, BadgeSkillSeeker.ID, res.NewBadges[0].ID)

	p, _ := s.Profile()
	assert.Len(t, p.Badges, 2)
}

func TestAchievements_NoProfile(t *testing.T) {
	svc := NewService(chainCatalog(), newStore(t), DefaultSkillXP, nil)
	badges, err := svc.CheckAchievements()
	require.NoError(t, err)
	assert.Empty(t, badges)
}

func TestNewService_NegativeSkillXP(t *testing.T) {
	svc := NewService(chainCatalog(), newStore(t), -1, nil)
	assert.Equal(t, DefaultSkillXP, svc.skillXP)
}

func TestAchievementsList(t *testing.T) {
	list := Achievements()
	ids := lo.Map(list, func(a Achievement, _ int) string { return a.Badge.ID })
	assert.Equal(t, []string{"first-steps", "skill-seeker"}, ids)

	assert.False(t, list[0].Earned(false, Roadmap{}))
	assert.True(t, list[1].Earned(false, Roadmap{Completed: 3}))
}

func TestService_Achievements(t *testing.T) {
	s := newStore(t)
	svc := NewService(chainCatalog(), s, DefaultSkillXP, nil)

	list := svc.Achievements()
	require.Len(t, list, 2)
	assert.False(t, list[0].Earned)
	assert.Nil(t, list[0].EarnedAt)

	onboard(t, s)
	_, err := svc.CheckAchievements()
	require.NoError(t, err)

	list = svc.Achievements()
	assert.Equal(t, BadgeFirstSteps.ID, list[0].ID)
	assert.True(t, list[0].Earned)
	assert.NotNil(t, list[0].EarnedAt)
	assert.False(t, list[1].Earned)
}
