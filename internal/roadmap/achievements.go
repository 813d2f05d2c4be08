package roadmap

import (
	"github.com/samber/lo"

	"github.com/kalambet/nextstep/internal/profile"
)

// Achievement is a badge together with the condition that earns it.
type Achievement struct {
	Badge  profile.Badge
	Earned func(onboarded bool, rm Roadmap) bool
}

var (
	BadgeFirstSteps = profile.Badge{
		ID:          "first-steps",
		Name:        "First Steps",
		Description: "Completed onboarding",
		Icon:        "👣",
	}
	BadgeSkillSeeker = profile.Badge{
		ID:          "skill-seeker",
		Name:        "Skill Seeker",
		Description: "Completed 3 skills",
		Icon:        "🎯",
	}
)

var achievements = []Achievement{
	{
		Badge:  BadgeFirstSteps,
		Earned: func(onboarded bool, _ Roadmap) bool { return onboarded },
	},
	{
		Badge:  BadgeSkillSeeker,
		Earned: func(_ bool, rm Roadmap) bool { return rm.Completed >= 3 },
	},
}

// Achievements lists the badges the service can award.
func Achievements() []Achievement {
	out := make([]Achievement, len(achievements))
	copy(out, achievements)
	return out
}

// AchievementStatus is an awardable badge and whether the profile holds it.
// Earned badges carry the stamped record.
type AchievementStatus struct {
	profile.Badge
	Earned bool `json:"earned"`
}

// Achievements lists every awardable badge with the profile's earned state.
func (s *Service) Achievements() []AchievementStatus {
	p, _ := s.store.Profile()
	return lo.Map(Achievements(), func(a Achievement, _ int) AchievementStatus {
		if b, ok := lo.Find(p.Badges, func(b profile.Badge) bool { return b.ID == a.Badge.ID }); ok {
			return AchievementStatus{Badge: b, Earned: true}
		}
		return AchievementStatus{Badge: a.Badge}
	})
}
