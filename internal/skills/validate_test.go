package skills

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.String()
	}
	return out
}

func TestValidate_Clean(t *testing.T) {
	catalog := []Skill{
		{ID: "a", Category: CategoryTechnical, Difficulty: DifficultyBeginner},
		{ID: "b", Category: CategorySoft, Difficulty: DifficultyAdvanced, Prerequisites: []string{"a"}},
	}
	assert.Empty(t, Validate(catalog))
}

func TestValidate_ReportsProblems(t *testing.T) {
	catalog := []Skill{
		{ID: "a", Category: "magic", Difficulty: DifficultyBeginner},
		{ID: "a", Category: CategoryTechnical, Difficulty: "impossible"},
		{ID: "b", Category: CategoryCourse, Difficulty: DifficultyBeginner, Prerequisites: []string{"ghost", "b"}},
	}
	got := strings.Join(messages(Validate(catalog)), "\n")

	assert.Contains(t, got, "a: duplicate skill id")
	assert.Contains(t, got, `a: unknown category "magic"`)
	assert.Contains(t, got, `a: unknown difficulty "impossible"`)
	assert.Contains(t, got, `b: unknown prerequisite "ghost"`)
	assert.Contains(t, got, "b: skill lists itself as a prerequisite")
}

func TestValidate_DetectsCycle(t *testing.T) {
	catalog := []Skill{
		{ID: "x", Category: CategoryTechnical, Difficulty: DifficultyBeginner, Prerequisites: []string{"y"}},
		{ID: "y", Category: CategoryTechnical, Difficulty: DifficultyBeginner, Prerequisites: []string{"z"}},
		{ID: "z", Category: CategoryTechnical, Difficulty: DifficultyBeginner, Prerequisites: []string{"x"}},
	}
	issues := Validate(catalog)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "prerequisite cycle")
	assert.Equal(t, "x", issues[0].SkillID)
}

func TestLoadCatalog_RejectsUnknownFields(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("skills:\n  - id: a\n    colour: red\n"))
	require.Error(t, err)
}

func TestLoadCatalogFile(t *testing.T) {
	path := t.TempDir() + "/catalog.yaml"
	require.NoError(t, writeFile(path, "skills:\n  - id: a\n    name: A\n    category: soft\n    difficulty: beginner\n"))

	c, err := LoadCatalogFile(path)
	require.NoError(t, err)
	s, ok := c.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "A", s.Name)
	assert.Equal(t, CategorySoft, s.Category)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
