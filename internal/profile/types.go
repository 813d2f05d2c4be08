package profile

import (
	"time"

	"github.com/samber/lo"
)

// DefaultName is the display name given to profiles that have none.
const DefaultName = "Student"

// UserProfile is the canonical record of the single local user: identity,
// education, interests and gamified progress.
type UserProfile struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Degree          string   `json:"degree"`
	Branch          string   `json:"branch"`
	SyllabusTopics  []string `json:"syllabusTopics"`
	Interests       []string `json:"interests"`
	CareerGoal      string   `json:"careerGoal,omitempty"`
	Level           int      `json:"level"`
	XP              int      `json:"xp"`
	CompletedSkills []string `json:"completedSkills"`
	Badges          []Badge  `json:"badges"`
}

// Badge is an achievement awarded at most once per id.
type Badge struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	EarnedAt    *time.Time `json:"earnedAt,omitempty"`
}

// OnboardingData is the in-progress wizard draft.
type OnboardingData struct {
	Step            int      `json:"step"`
	Degree          string   `json:"degree"`
	Branch          string   `json:"branch"`
	SyllabusTopics  []string `json:"syllabusTopics"`
	Interests       []string `json:"interests"`
	CareerGoal      string   `json:"careerGoal"`
	KnowsCareerGoal bool     `json:"knowsCareerGoal"`
}

// OnboardingPatch lists the draft fields to change. Nil fields are left
// untouched; a non-nil empty slice clears the list.
type OnboardingPatch struct {
	Step            *int     `json:"step,omitempty"`
	Degree          *string  `json:"degree,omitempty"`
	Branch          *string  `json:"branch,omitempty"`
	SyllabusTopics  []string `json:"syllabusTopics,omitempty"`
	Interests       []string `json:"interests,omitempty"`
	CareerGoal      *string  `json:"careerGoal,omitempty"`
	KnowsCareerGoal *bool    `json:"knowsCareerGoal,omitempty"`
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Profile              *UserProfile   `json:"profile"`
	Onboarding           OnboardingData `json:"onboarding"`
	IsOnboardingComplete bool           `json:"isOnboardingComplete"`
}

// Interest is one of the fixed interest categories offered by the wizard.
type Interest string

const (
	InterestTechnology Interest = "technology"
	InterestDesign     Interest = "design"
	InterestData       Interest = "data"
	InterestBusiness   Interest = "business"
	InterestFinance    Interest = "finance"
	InterestMarketing  Interest = "marketing"
	InterestResearch   Interest = "research"
	InterestHealthcare Interest = "healthcare"
	InterestEducation  Interest = "education"
)

// Interests returns every interest category in display order.
func Interests() []Interest {
	return []Interest{
		InterestTechnology, InterestDesign, InterestData,
		InterestBusiness, InterestFinance, InterestMarketing,
		InterestResearch, InterestHealthcare, InterestEducation,
	}
}

// IsInterest reports whether id names a known interest category.
func IsInterest(id string) bool {
	return lo.Contains(Interests(), Interest(id))
}

// InitialOnboarding returns the empty draft the wizard starts from.
func InitialOnboarding() OnboardingData {
	return OnboardingData{
		Step:            1,
		SyllabusTopics:  []string{},
		Interests:       []string{},
		KnowsCareerGoal: true,
	}
}

func defaultSnapshot() Snapshot {
	return Snapshot{Onboarding: InitialOnboarding()}
}

func (p *UserProfile) clone() *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.SyllabusTopics = cloneStrings(p.SyllabusTopics)
	cp.Interests = cloneStrings(p.Interests)
	cp.CompletedSkills = cloneStrings(p.CompletedSkills)
	cp.Badges = make([]Badge, len(p.Badges))
	for i, b := range p.Badges {
		cp.Badges[i] = b
		if b.EarnedAt != nil {
			t := *b.EarnedAt
			cp.Badges[i].EarnedAt = &t
		}
	}
	return &cp
}

// normalize replaces nil lists with empty ones so they encode as [].
func (p *UserProfile) normalize() {
	if p.SyllabusTopics == nil {
		p.SyllabusTopics = []string{}
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}
	if p.CompletedSkills == nil {
		p.CompletedSkills = []string{}
	}
	if p.Badges == nil {
		p.Badges = []Badge{}
	}
}

func (o OnboardingData) clone() OnboardingData {
	cp := o
	cp.SyllabusTopics = cloneStrings(o.SyllabusTopics)
	cp.Interests = cloneStrings(o.Interests)
	return cp
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Profile:              s.Profile.clone(),
		Onboarding:           s.Onboarding.clone(),
		IsOnboardingComplete: s.IsOnboardingComplete,
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func clampStep(step int) int {
	switch {
	case step < 1:
		return 1
	case step > 4:
		return 4
	}
	return step
}
