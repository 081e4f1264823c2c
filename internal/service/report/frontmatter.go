package report

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is an ordered set of YAML fields rendered at the top of a
// markdown transcript.
type Frontmatter struct {
	fields map[string]interface{}
	order  []string
}

// NewFrontmatter creates an empty frontmatter.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{fields: make(map[string]interface{})}
}

// Set adds or updates a field, keeping its first insertion position.
func (f *Frontmatter) Set(key string, value interface{}) {
	if _, exists := f.fields[key]; !exists {
		f.order = append(f.order, key)
	}
	f.fields[key] = value
}

// Get retrieves a field value.
func (f *Frontmatter) Get(key string) (interface{}, bool) {
	v, ok := f.fields[key]
	return v, ok
}

// Render produces the YAML block with delimiters, or "" when empty.
func (f *Frontmatter) Render() (string, error) {
	if len(f.order) == 0 {
		return "", nil
	}

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range f.order {
		var value yaml.Node
		if err := value.Encode(f.fields[key]); err != nil {
			return "", err
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, &value)
	}

	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return "---\n" + sb.String() + "---\n\n", nil
}
