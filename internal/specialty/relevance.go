package specialty

import (
	"sort"
	"strings"
)

const (
	keywordPoints  = 2
	namePoints     = 5
	criticalPoints = 3
)

// Scores maps a specialty name to its normalized relevance in (0,1].
// Specialties that matched nothing have no entry.
type Scores map[string]float64

// Get returns the score for name, zero when absent.
func (s Scores) Get(name string) float64 {
	return s[name]
}

// Ranked is one entry of a relevance-sorted list.
type Ranked struct {
	Specialty string  `json:"specialty"`
	Score     float64 `json:"score"`
}

type matcher struct {
	specialty string
	name      string
	keywords  []string
}

// Scorer computes keyword relevance against a catalog. It is safe for
// concurrent use.
type Scorer struct {
	catalog  *Catalog
	matchers []matcher
}

// NewScorer prepares keyword matchers for every catalog entry.
func NewScorer(c *Catalog) *Scorer {
	s := &Scorer{catalog: c}
	for _, e := range c.entries {
		m := matcher{specialty: e.Name, name: strings.ToLower(e.Name)}
		for _, kw := range e.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				m.keywords = append(m.keywords, kw)
			}
		}
		s.matchers = append(s.matchers, m)
	}
	return s
}

// Catalog returns the catalog the scorer was built from.
func (s *Scorer) Catalog() *Catalog {
	return s.catalog
}

// Raw returns the unnormalized points per specialty, positive entries only.
// Keywords match as plain substrings of the lower-cased question, so "lab"
// counts for "laboratory".
func (s *Scorer) Raw(question string) map[string]int {
	q := strings.ToLower(question)
	raw := make(map[string]int)
	for _, m := range s.matchers {
		points := 0
		for _, kw := range m.keywords {
			if strings.Contains(q, kw) {
				points += keywordPoints
			}
		}
		if strings.Contains(q, m.name) {
			points += namePoints
		}
		for _, ct := range criticalTerms {
			if !strings.Contains(q, ct.term) {
				continue
			}
			for _, name := range ct.specialties {
				if name == m.specialty {
					points += criticalPoints
				}
			}
		}
		if points > 0 {
			raw[m.specialty] = points
		}
	}
	return raw
}

// Score returns relevance normalized by the batch maximum.
func (s *Scorer) Score(question string) Scores {
	raw := s.Raw(question)
	maxPoints := 0
	for _, p := range raw {
		if p > maxPoints {
			maxPoints = p
		}
	}
	scores := make(Scores, len(raw))
	for name, p := range raw {
		scores[name] = float64(p) / float64(maxPoints)
	}
	return scores
}

// Rank returns the scored specialties highest first. Equal scores keep
// catalog order.
func (s *Scorer) Rank(question string) []Ranked {
	return s.Ranked(s.Score(question))
}

// Ranked orders precomputed scores the same way Rank does.
func (s *Scorer) Ranked(scores Scores) []Ranked {
	out := make([]Ranked, 0, len(scores))
	for name, v := range scores {
		out = append(out, Ranked{Specialty: name, Score: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return s.catalog.Position(out[i].Specialty) < s.catalog.Position(out[j].Specialty)
	})
	return out
}

// Category groups specialties for discussion ordering.
type Category int

const (
	CategoryOrgan Category = iota
	CategoryDiagnostic
	CategorySupport
)

func (c Category) String() string {
	switch c {
	case CategoryDiagnostic:
		return "diagnostic"
	case CategorySupport:
		return "support"
	default:
		return "organ"
	}
}

// CategoryOf classifies a specialty by name.
func CategoryOf(name string) Category {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "pathologist"), strings.Contains(n, "radiologist"):
		return CategoryDiagnostic
	case strings.Contains(n, "pharmacist"), strings.Contains(n, "social"):
		return CategorySupport
	default:
		return CategoryOrgan
	}
}
