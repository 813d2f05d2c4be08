package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/kalambet/nextstep/internal/progress"
	"github.com/kalambet/nextstep/internal/storage"
)

// StorageKey is the key the snapshot is persisted under.
const StorageKey = "nextstep-user-storage"

// SchemaVersion tags the persisted snapshot layout. Records carrying any
// other version are discarded on load.
const SchemaVersion = 1

// KVStore defines the storage operations the Store needs.
// Implemented by storage.Store; GetValue returns storage.ErrNotFound for
// missing keys.
type KVStore interface {
	SetValue(key, value string) error
	GetValue(key string) (string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp earned badges.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator sets the function producing new profile ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store owns the user profile and the onboarding draft. Every mutation is
// written through to the KVStore as a whole snapshot.
type Store struct {
	kv     KVStore
	clock  Clock
	newID  func() string
	logger *zap.Logger

	mu    sync.RWMutex
	state Snapshot

	// notifyMu is taken before mu is released so subscribers see
	// snapshots in commit order.
	notifyMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

type envelope struct {
	Version int      `json:"version"`
	State   Snapshot `json:"state"`
}

// NewStore loads the persisted snapshot from kv, falling back to defaults
// when none exists or the stored record cannot be read.
func NewStore(kv KVStore, opts ...Option) (*Store, error) {
	s := &Store{
		kv:     kv,
		clock:  realClock{},
		newID:  uuid.NewString,
		logger: zap.NewNop(),
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	s.state = snap
	return s, nil
}

// load reads the snapshot from storage. A corrupt or incompatible record is
// replaced with defaults.
func (s *Store) load() (Snapshot, error) {
	raw, err := s.kv.GetValue(StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return defaultSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading snapshot: %w", err)
	}

	snap, err := decodeSnapshot(raw)
	if err != nil {
		s.logger.Warn("discarding unreadable profile snapshot", zap.Error(err))
		snap = defaultSnapshot()
		if err := s.persist(snap); err != nil {
			return Snapshot{}, err
		}
	}
	return snap, nil
}

func decodeSnapshot(raw string) (Snapshot, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	if env.Version != SchemaVersion {
		return Snapshot{}, fmt.Errorf("snapshot version %d, want %d", env.Version, SchemaVersion)
	}

	snap := env.State
	if snap.Profile != nil {
		snap.Profile.normalize()
	}
	if snap.Onboarding.SyllabusTopics == nil {
		snap.Onboarding.SyllabusTopics = []string{}
	}
	if snap.Onboarding.Interests == nil {
		snap.Onboarding.Interests = []string{}
	}
	snap.Onboarding.Step = clampStep(snap.Onboarding.Step)
	return snap, nil
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(envelope{Version: SchemaVersion, State: snap})
}

func (s *Store) persist(snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := s.kv.SetValue(StorageKey, string(data)); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	return nil
}

// update applies fn to the state under lock. When fn reports a change the
// snapshot is persisted and subscribers are notified.
func (s *Store) update(fn func(st *Snapshot) bool) error {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return nil
	}
	snap := s.state.clone()
	err := s.persist(snap)
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(snap)
	s.notifyMu.Unlock()
	return err
}

// --- Readers ---

// Snapshot returns a copy of the full state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Profile returns a copy of the profile and whether one exists.
func (s *Store) Profile() (UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Profile == nil {
		return UserProfile{}, false
	}
	return *s.state.Profile.clone(), true
}

// Onboarding returns a copy of the current draft.
func (s *Store) Onboarding() OnboardingData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Onboarding.clone()
}

// IsOnboardingComplete reports whether the wizard has produced a profile.
func (s *Store) IsOnboardingComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsOnboardingComplete
}

// --- Mutations ---

// SetProfile replaces the profile wholesale. The caller is responsible for
// its invariants.
func (s *Store) SetProfile(p UserProfile) error {
	cp := p.clone()
	cp.normalize()
	return s.update(func(st *Snapshot) bool {
		st.Profile = cp
		return true
	})
}

// SetName changes the display name. An empty name resets it to DefaultName.
func (s *Store) SetName(name string) error {
	if name == "" {
		name = DefaultName
	}
	return s.update(func(st *Snapshot) bool {
		if st.Profile == nil || st.Profile.Name == name {
			return false
		}
		st.Profile.Name = name
		return true
	})
}

// UpdateOnboarding merges the set fields of patch into the draft.
func (s *Store) UpdateOnboarding(patch OnboardingPatch) error {
	return s.update(func(st *Snapshot) bool {
		d := &st.Onboarding
		if patch.Step != nil {
			d.Step = clampStep(*patch.Step)
		}
		if patch.Degree != nil {
			d.Degree = *patch.Degree
		}
		if patch.Branch != nil {
			d.Branch = *patch.Branch
		}
		if patch.SyllabusTopics != nil {
			d.SyllabusTopics = cloneStrings(patch.SyllabusTopics)
		}
		if patch.Interests != nil {
			d.Interests = cloneStrings(patch.Interests)
		}
		if patch.CareerGoal != nil {
			d.CareerGoal = *patch.CareerGoal
		}
		if patch.KnowsCareerGoal != nil {
			d.KnowsCareerGoal = *patch.KnowsCareerGoal
		}
		return true
	})
}

// CompleteOnboarding turns the draft into a brand-new profile with zero
// progress and marks onboarding complete. The draft is not validated here.
func (s *Store) CompleteOnboarding() error {
	id := s.newID()
	return s.update(func(st *Snapshot) bool {
		d := st.Onboarding
		st.Profile = &UserProfile{
			ID:              id,
			Name:            DefaultName,
			Degree:          d.Degree,
			Branch:          d.Branch,
			SyllabusTopics:  cloneStrings(d.SyllabusTopics),
			Interests:       cloneStrings(d.Interests),
			CareerGoal:      d.CareerGoal,
			Level:           1,
			XP:              0,
			CompletedSkills: []string{},
			Badges:          []Badge{},
		}
		st.IsOnboardingComplete = true
		return true
	})
}

// BeginProfileEdit seeds the draft from the existing profile so the wizard
// opens prefilled at step. Without a profile only the step is set.
func (s *Store) BeginProfileEdit(step int) error {
	return s.update(func(st *Snapshot) bool {
		st.Onboarding.Step = clampStep(step)
		if p := st.Profile; p != nil {
			st.Onboarding.Degree = p.Degree
			st.Onboarding.Branch = p.Branch
			st.Onboarding.SyllabusTopics = cloneStrings(p.SyllabusTopics)
			st.Onboarding.Interests = cloneStrings(p.Interests)
			st.Onboarding.CareerGoal = p.CareerGoal
			st.Onboarding.KnowsCareerGoal = p.CareerGoal != ""
		}
		return true
	})
}

// ApplyOnboardingToProfile merges the draft's education, interest and goal
// fields onto the existing profile. Identity and progress are kept.
func (s *Store) ApplyOnboardingToProfile() error {
	id := s.newID()
	return s.update(func(st *Snapshot) bool {
		p := st.Profile
		if p == nil {
			p = &UserProfile{ID: id, Name: DefaultName, Level: 1}
			p.normalize()
		}
		d := st.Onboarding
		p.Degree = d.Degree
		p.Branch = d.Branch
		p.SyllabusTopics = cloneStrings(d.SyllabusTopics)
		p.Interests = cloneStrings(d.Interests)
		p.CareerGoal = d.CareerGoal
		if p.Name == "" {
			p.Name = DefaultName
		}
		st.Profile = p
		return true
	})
}

// AddXP adds amount to the profile's experience and recomputes its level.
// Negative amounts and a missing profile are ignored. XP saturates at
// math.MaxInt.
func (s *Store) AddXP(amount int) error {
	if amount < 0 {
		return nil
	}
	return s.update(func(st *Snapshot) bool {
		if st.Profile == nil {
			return false
		}
		if amount > math.MaxInt-st.Profile.XP {
			amount = math.MaxInt - st.Profile.XP
		}
		if amount == 0 {
			return false
		}
		st.Profile.XP += amount
		st.Profile.Level = progress.LevelFor(st.Profile.XP)
		return true
	})
}

// CompleteSkill records skillID as completed. It is idempotent and awards
// no XP on its own.
func (s *Store) CompleteSkill(skillID string) error {
	return s.update(func(st *Snapshot) bool {
		if st.Profile == nil || lo.Contains(st.Profile.CompletedSkills, skillID) {
			return false
		}
		st.Profile.CompletedSkills = append(st.Profile.CompletedSkills, skillID)
		return true
	})
}

// EarnBadge awards badge once per id, stamping the earn time.
func (s *Store) EarnBadge(badge Badge) error {
	now := s.clock.Now().UTC()
	return s.update(func(st *Snapshot) bool {
		if st.Profile == nil {
			return false
		}
		if lo.ContainsBy(st.Profile.Badges, func(b Badge) bool { return b.ID == badge.ID }) {
			return false
		}
		badge.EarnedAt = &now
		st.Profile.Badges = append(st.Profile.Badges, badge)
		return true
	})
}

// ResetOnboarding drops the profile and the draft. Used for logout.
func (s *Store) ResetOnboarding() error {
	return s.update(func(st *Snapshot) bool {
		*st = defaultSnapshot()
		return true
	})
}

// --- External changes ---

// Reload re-reads the persisted snapshot and replaces the in-memory state
// with it. It reports whether the state changed; subscribers are notified
// only on change.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	snap, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}

	before, err := encodeSnapshot(s.state)
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("encoding snapshot: %w", err)
	}
	after, err := encodeSnapshot(snap)
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("encoding snapshot: %w", err)
	}
	if bytes.Equal(before, after) {
		s.mu.Unlock()
		return false, nil
	}
	s.state = snap
	out := snap.clone()
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.logger.Debug("profile snapshot reloaded from storage")
	s.notify(out)
	s.notifyMu.Unlock()
	return true, nil
}

// Subscribe registers fn to be called with the new state after every
// change, in commit order. fn must not mutate the store synchronously.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := lo.Values(s.subs)
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap.clone())
	}
}
