package skills

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is an ordered, read-only list of skills.
type Catalog struct {
	skills []Skill
	byID   map[string]int
}

type catalogFile struct {
	Skills []Skill `yaml:"skills"`
}

// NewCatalog builds a Catalog from skills. Later duplicates of an id are
// shadowed by the first occurrence for Lookup but kept in Skills.
func NewCatalog(skills []Skill) *Catalog {
	c := &Catalog{
		skills: make([]Skill, len(skills)),
		byID:   make(map[string]int, len(skills)),
	}
	copy(c.skills, skills)
	for i, s := range c.skills {
		if _, ok := c.byID[s.ID]; !ok {
			c.byID[s.ID] = i
		}
	}
	return c
}

// DefaultCatalog returns the roadmap compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded skill catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog decodes a YAML catalog document.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding skill catalog: %w", err)
	}
	return NewCatalog(f.Skills), nil
}

// LoadCatalogFile reads a YAML catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening skill catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Skills returns a copy of the catalog entries in authoring order.
func (c *Catalog) Skills() []Skill {
	out := make([]Skill, len(c.skills))
	copy(out, c.skills)
	return out
}

// Lookup returns the skill with the given id.
func (c *Catalog) Lookup(id string) (Skill, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Skill{}, false
	}
	return c.skills[i], true
}

// Len returns the number of skills.
func (c *Catalog) Len() int { return len(c.skills) }

// Resolve is Resolve over the catalog entries.
func (c *Catalog) Resolve(completed []string) map[string]State {
	return Resolve(c.skills, completed)
}
