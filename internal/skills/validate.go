package skills

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Issue describes a problem in an authored catalog.
type Issue struct {
	SkillID string
	Message string
}

func (i Issue) String() string {
	if i.SkillID == "" {
		return i.Message
	}
	return i.SkillID + ": " + i.Message
}

// Validate reports authoring mistakes in a catalog. Resolve tolerates all of
// them; this is only used to surface warnings.
func Validate(catalog []Skill) []Issue {
	var issues []Issue

	ids := lo.Map(catalog, func(s Skill, _ int) string { return s.ID })
	for _, dup := range lo.FindDuplicates(ids) {
		issues = append(issues, Issue{SkillID: dup, Message: "duplicate skill id"})
	}

	known := lo.Associate(catalog, func(s Skill) (string, Skill) { return s.ID, s })

	for _, s := range catalog {
		if strings.TrimSpace(s.ID) == "" {
			issues = append(issues, Issue{Message: fmt.Sprintf("skill %q has an empty id", s.Name)})
			continue
		}
		if !validCategory(s.Category) {
			issues = append(issues, Issue{SkillID: s.ID, Message: fmt.Sprintf("unknown category %q", s.Category)})
		}
		if !validDifficulty(s.Difficulty) {
			issues = append(issues, Issue{SkillID: s.ID, Message: fmt.Sprintf("unknown difficulty %q", s.Difficulty)})
		}
		for _, p := range s.Prerequisites {
			if p == s.ID {
				issues = append(issues, Issue{SkillID: s.ID, Message: "skill lists itself as a prerequisite"})
				continue
			}
			if _, ok := known[p]; !ok {
				issues = append(issues, Issue{SkillID: s.ID, Message: fmt.Sprintf("unknown prerequisite %q", p)})
			}
		}
	}

	for _, cycle := range findCycles(known) {
		issues = append(issues, Issue{
			SkillID: cycle[0],
			Message: "prerequisite cycle: " + strings.Join(cycle, " -> "),
		})
	}
	return issues
}

// findCycles returns one path per prerequisite cycle reachable by a
// depth-first walk. Self-loops are reported by Validate directly.
func findCycles(known map[string]Skill) [][]string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(known))
	var stack []string
	var cycles [][]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)
		for _, p := range known[id].Prerequisites {
			if p == id {
				continue
			}
			if _, ok := known[p]; !ok {
				continue
			}
			switch color[p] {
			case white:
				visit(p)
			case grey:
				start := lo.IndexOf(stack, p)
				cycle := append(append([]string{}, stack[start:]...), p)
				cycles = append(cycles, cycle)
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	ids := lo.Keys(known)
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}
