package skills

// Category groups skills on the roadmap.
type Category string

const (
	CategoryTechnical     Category = "technical"
	CategorySoft          Category = "soft"
	CategoryCertification Category = "certification"
	CategoryCourse        Category = "course"
)

// Difficulty is the advertised difficulty of a skill.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ResourceType is the kind of learning material behind a Resource.
type ResourceType string

const (
	ResourceVideo   ResourceType = "video"
	ResourceArticle ResourceType = "article"
	ResourceCourse  ResourceType = "course"
	ResourceBook    ResourceType = "book"
)

// Skill is a static roadmap entry. It carries no user state; completion and
// unlock status are derived by Resolve.
type Skill struct {
	ID             string     `yaml:"id" json:"id"`
	Name           string     `yaml:"name" json:"name"`
	Description    string     `yaml:"description" json:"description"`
	Category       Category   `yaml:"category" json:"category"`
	Difficulty     Difficulty `yaml:"difficulty" json:"difficulty"`
	EstimatedHours int        `yaml:"estimated_hours" json:"estimatedHours"`
	Prerequisites  []string   `yaml:"prerequisites" json:"prerequisites"`
	Resources      []Resource `yaml:"resources" json:"resources"`
	Position       Position   `yaml:"position" json:"position"`
}

// Resource is a pointer to learning material for a skill.
type Resource struct {
	ID       string       `yaml:"id" json:"id"`
	Title    string       `yaml:"title" json:"title"`
	Type     ResourceType `yaml:"type" json:"type"`
	URL      string       `yaml:"url" json:"url"`
	Platform string       `yaml:"platform" json:"platform"`
}

// Position is the layout coordinate of a skill node. Presentation only.
type Position struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// State is the per-skill status derived from a set of completed skill ids.
type State struct {
	IsCompleted bool `json:"isCompleted"`
	IsUnlocked  bool `json:"isUnlocked"`
}

func validCategory(c Category) bool {
	switch c {
	case CategoryTechnical, CategorySoft, CategoryCertification, CategoryCourse:
		return true
	}
	return false
}

func validDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}
