package roadmap

import (
	"fmt"
	"math"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/kalambet/nextstep/internal/profile"
	"github.com/kalambet/nextstep/internal/progress"
	"github.com/kalambet/nextstep/internal/skills"
)

// DefaultSkillXP is the bonus awarded for completing a skill.
const DefaultSkillXP = 100

// Reasons a completion request was not applied.
const (
	ReasonUnknownSkill     = "unknown_skill"
	ReasonNoProfile        = "no_profile"
	ReasonLocked           = "locked"
	ReasonAlreadyCompleted = "already_completed"
)

// ProfileStore defines the profile operations the Service needs.
// Implemented by profile.Store.
type ProfileStore interface {
	Profile() (profile.UserProfile, bool)
	IsOnboardingComplete() bool
	CompleteSkill(skillID string) error
	AddXP(amount int) error
	EarnBadge(badge profile.Badge) error
}

// Node is a catalog skill together with its derived state.
type Node struct {
	skills.Skill
	skills.State
}

// Roadmap is the render-ready view of the skill catalog for the profile.
type Roadmap struct {
	CareerGoal string `json:"careerGoal,omitempty"`
	Nodes      []Node `json:"nodes"`
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
	Percent    int    `json:"percent"`
}

// Result describes the outcome of a completion request.
type Result struct {
	SkillID   string            `json:"skillId"`
	Applied   bool              `json:"applied"`
	Reason    string            `json:"reason,omitempty"`
	XPAwarded int               `json:"xpAwarded"`
	NewBadges []profile.Badge   `json:"newBadges"`
	Progress  progress.Progress `json:"progress"`
}

// Service ties the skill catalog to the profile store.
type Service struct {
	catalog *skills.Catalog
	store   ProfileStore
	skillXP int
	logger  *zap.Logger

	// mu serializes completion so the check-then-award sequence cannot
	// award the same skill twice.
	mu sync.Mutex
}

// NewService creates a Service. If skillXP is negative, DefaultSkillXP is used.
func NewService(catalog *skills.Catalog, store ProfileStore, skillXP int, logger *zap.Logger) *Service {
	if skillXP < 0 {
		skillXP = DefaultSkillXP
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, store: store, skillXP: skillXP, logger: logger}
}

// View resolves the catalog against the current profile.
func (s *Service) View() Roadmap {
	p, _ := s.store.Profile()
	return s.view(p)
}

func (s *Service) view(p profile.UserProfile) Roadmap {
	states := s.catalog.Resolve(p.CompletedSkills)
	nodes := lo.Map(s.catalog.Skills(), func(sk skills.Skill, _ int) Node {
		return Node{Skill: sk, State: states[sk.ID]}
	})
	completed := lo.CountBy(nodes, func(n Node) bool { return n.IsCompleted })

	rm := Roadmap{
		CareerGoal: p.CareerGoal,
		Nodes:      nodes,
		Completed:  completed,
		Total:      len(nodes),
	}
	if rm.Total > 0 {
		rm.Percent = int(math.Round(float64(completed) / float64(rm.Total) * 100))
	}
	return rm
}

// Complete marks skillID completed and awards the skill bonus. Unknown,
// locked or already completed skills and a missing profile are no-ops
// reported through Result.Reason.
func (s *Service) Complete(skillID string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Result{SkillID: skillID, NewBadges: []profile.Badge{}}

	p, ok := s.store.Profile()
	res.Progress = progress.Compute(p.XP)
	if _, known := s.catalog.Lookup(skillID); !known {
		res.Reason = ReasonUnknownSkill
		return res, nil
	}
	if !ok {
		res.Reason = ReasonNoProfile
		return res, nil
	}

	state := s.catalog.Resolve(p.CompletedSkills)[skillID]
	switch {
	case state.IsCompleted:
		res.Reason = ReasonAlreadyCompleted
		return res, nil
	case !state.IsUnlocked:
		res.Reason = ReasonLocked
		return res, nil
	}

	if err := s.store.CompleteSkill(skillID); err != nil {
		return res, fmt.Errorf("completing skill %q: %w", skillID, err)
	}
	if err := s.store.AddXP(s.skillXP); err != nil {
		return res, fmt.Errorf("awarding xp for %q: %w", skillID, err)
	}
	res.Applied = true
	res.XPAwarded = s.skillXP

	badges, err := s.checkAchievements()
	if err != nil {
		return res, err
	}
	res.NewBadges = badges

	if p, ok := s.store.Profile(); ok {
		res.Progress = progress.Compute(p.XP)
	}
	s.logger.Info("skill completed",
		zap.String("skill_id", skillID),
		zap.Int("xp_awarded", s.skillXP),
		zap.Int("level", res.Progress.Level),
	)
	return res, nil
}

// CheckAchievements awards every badge whose condition currently holds and
// returns the ones that were newly earned.
func (s *Service) CheckAchievements() ([]profile.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkAchievements()
}

func (s *Service) checkAchievements() ([]profile.Badge, error) {
	p, ok := s.store.Profile()
	if !ok {
		return []profile.Badge{}, nil
	}
	earned := lo.Map(p.Badges, func(b profile.Badge, _ int) string { return b.ID })
	rm := s.view(p)

	var awarded []profile.Badge
	for _, a := range achievements {
		if lo.Contains(earned, a.Badge.ID) || !a.Earned(s.store.IsOnboardingComplete(), rm) {
			continue
		}
		if err := s.store.EarnBadge(a.Badge); err != nil {
			return awarded, fmt.Errorf("earning badge %q: %w", a.Badge.ID, err)
		}
		awarded = append(awarded, a.Badge)
		s.logger.Info("badge earned", zap.String("badge_id", a.Badge.ID))
	}

	if awarded == nil {
		return []profile.Badge{}, nil
	}
	// Report the stamped records.
	if p, ok := s.store.Profile(); ok {
		ids := lo.Map(awarded, func(b profile.Badge, _ int) string { return b.ID })
		awarded = lo.Filter(p.Badges, func(b profile.Badge, _ int) bool { return lo.Contains(ids, b.ID) })
	}
	return awarded, nil
}
