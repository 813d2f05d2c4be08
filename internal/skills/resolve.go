package skills

import "github.com/samber/lo"

// Resolve computes the completion and unlock state of every skill in catalog.
//
// A skill is unlocked when it is completed, has no prerequisites, or every
// prerequisite is a completed catalog skill. Only direct prerequisites are
// consulted, so the result does not depend on catalog order. Prerequisite ids
// missing from the catalog are never satisfied.
func Resolve(catalog []Skill, completed []string) map[string]State {
	done := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		done[id] = struct{}{}
	}
	known := make(map[string]struct{}, len(catalog))
	for _, s := range catalog {
		known[s.ID] = struct{}{}
	}

	satisfied := func(id string) bool {
		if _, ok := known[id]; !ok {
			return false
		}
		_, ok := done[id]
		return ok
	}

	out := make(map[string]State, len(catalog))
	for _, s := range catalog {
		_, isCompleted := done[s.ID]
		out[s.ID] = State{
			IsCompleted: isCompleted,
			IsUnlocked:  isCompleted || lo.EveryBy(s.Prerequisites, satisfied),
		}
	}
	return out
}
