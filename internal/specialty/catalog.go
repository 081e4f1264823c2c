// Package specialty holds the specialty registry and the keyword relevance
// scorer used for recruitment.
package specialty

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/medpanel/internal/fsutil"
)

// DefaultExpertise is returned for specialties the catalog does not know.
const DefaultExpertise = "medical expertise"

// Specialty is an immutable catalog entry.
type Specialty struct {
	Name      string   `yaml:"name" json:"name"`
	Expertise string   `yaml:"expertise" json:"expertise"`
	Keywords  []string `yaml:"keywords" json:"keywords"`
}

// Catalog is an ordered specialty registry. Order matters: it is the
// tie-break for equal relevance scores and the backfill order.
type Catalog struct {
	entries []Specialty
	index   map[string]int
}

// NewCatalog builds a catalog, rejecting empty or duplicate names.
func NewCatalog(entries []Specialty) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("specialty with empty name")
		}
		if _, dup := c.index[name]; dup {
			return nil, fmt.Errorf("duplicate specialty %q", name)
		}
		e.Name = name
		e.Keywords = append([]string(nil), e.Keywords...)
		c.index[name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(defaultSpecialties)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of specialties.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// All returns a copy of the entries in catalog order.
func (c *Catalog) All() []Specialty {
	return append([]Specialty(nil), c.entries...)
}

// Names returns specialty names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Get looks up a specialty by exact name.
func (c *Catalog) Get(name string) (Specialty, bool) {
	i, ok := c.index[name]
	if !ok {
		return Specialty{}, false
	}
	return c.entries[i], true
}

// Position returns the catalog index of name, or -1.
func (c *Catalog) Position(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Describe returns the expertise text for name.
func (c *Catalog) Describe(name string) string {
	if s, ok := c.Get(name); ok && s.Expertise != "" {
		return s.Expertise
	}
	return DefaultExpertise
}

// Find returns specialty names fuzzily matching query, best match first.
func (c *Catalog) Find(query string) []string {
	if s, ok := c.Get(query); ok {
		return []string{s.Name}
	}
	matches := fuzzy.Find(strings.ToLower(query), lowerNames(c.Names()))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, c.entries[m.Index].Name)
	}
	return out
}

func lowerNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToLower(n)
	}
	return out
}

// File is the on-disk catalog format.
type File struct {
	// Extend keeps the built-in specialties and overrides or appends the
	// listed ones. Without it the file replaces the catalog.
	Extend      bool        `yaml:"extend"`
	Specialties []Specialty `yaml:"specialties"`
}

// maxCatalogBytes bounds catalog files.
const maxCatalogBytes = 1 << 20

// LoadFile reads a YAML catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := fsutil.ReadFileScoped(path, maxCatalogBytes)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if !f.Extend {
		if len(f.Specialties) == 0 {
			return nil, fmt.Errorf("catalog defines no specialties")
		}
		return NewCatalog(f.Specialties)
	}

	merged := Default().All()
	pos := make(map[string]int, len(merged))
	for i, s := range merged {
		pos[s.Name] = i
	}
	for _, s := range f.Specialties {
		if i, ok := pos[strings.TrimSpace(s.Name)]; ok {
			merged[i] = s
			continue
		}
		merged = append(merged, s)
	}
	return NewCatalog(merged)
}

// Marshal encodes the catalog in the file format.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(File{Specialties: c.entries})
}
