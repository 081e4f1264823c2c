package specialty

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()
	c := Default()
	if c.Len() != 20 {
		t.Fatalf("Len() = %d, want 20", c.Len())
	}
	if c.Names()[0] != PrimaryCare || c.Names()[19] != Pathologist {
		t.Errorf("unexpected order: %v", c.Names())
	}
	if got := c.Describe("Cardiologist"); got != "heart conditions, cardiovascular disease, hypertension, arrhythmias" {
		t.Errorf("Describe() = %q", got)
	}
	if got := c.Describe("Astrologer"); got != DefaultExpertise {
		t.Errorf("Describe(unknown) = %q", got)
	}
	if c.Position("Astrologer") != -1 {
		t.Error("unknown specialty should have position -1")
	}
}

func TestNewCatalog_Rejects(t *testing.T) {
	t.Parallel()
	if _, err := NewCatalog([]Specialty{{Name: ""}}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := NewCatalog([]Specialty{{Name: "A"}, {Name: "A"}}); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestCatalog_Find(t *testing.T) {
	t.Parallel()
	c := Default()
	if got := c.Find("Oncologist"); len(got) != 1 || got[0] != Oncologist {
		t.Errorf("exact Find() = %v", got)
	}
	got := c.Find("cardio")
	if len(got) == 0 || got[0] != "Cardiologist" {
		t.Errorf("fuzzy Find() = %v", got)
	}
	if got := c.Find("zzzz"); len(got) != 0 {
		t.Errorf("Find(zzzz) = %v", got)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("replace", func(t *testing.T) {
		t.Parallel()
		c, err := Parse([]byte(`
specialties:
  - name: Toxicologist
    expertise: poisoning
    keywords: [overdose, toxin]
  - name: Internal Medicine
    keywords: [adult]
`))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if c.Len() != 2 || c.Names()[0] != "Toxicologist" {
			t.Errorf("Names() = %v", c.Names())
		}
	})

	t.Run("extend", func(t *testing.T) {
		t.Parallel()
		c, err := Parse([]byte(`
extend: true
specialties:
  - name: Cardiologist
    expertise: hearts only
    keywords: [heart]
  - name: Toxicologist
    keywords: [overdose]
`))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if c.Len() != 21 {
			t.Errorf("Len() = %d, want 21", c.Len())
		}
		if c.Describe("Cardiologist") != "hearts only" {
			t.Errorf("override not applied")
		}
		if c.Position("Cardiologist") != 2 {
			t.Errorf("override moved: %d", c.Position("Cardiologist"))
		}
	})

	t.Run("empty replace", func(t *testing.T) {
		t.Parallel()
		if _, err := Parse([]byte("specialties: []")); err == nil {
			t.Error("expected error for empty catalog")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		if _, err := Parse([]byte("specialties: [")); err == nil {
			t.Error("expected YAML error")
		}
	})
}

func TestLoadFile_RoundTrip(t *testing.T) {
	t.Parallel()
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if c.Len() != Default().Len() {
		t.Errorf("Len() = %d", c.Len())
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScorer_Score(t *testing.T) {
	t.Parallel()
	s := NewScorer(Default())

	tests := []struct {
		name     string
		question string
		want     Scores
	}{
		{
			name:     "single match",
			question: "A 60-year-old with chest pain and heart failure; ECG shows ST elevation.",
			want:     Scores{"Cardiologist": 1.0},
		},
		{
			name:     "critical terms and normalization",
			question: "A child with fever and infection after surgery",
			want: Scores{
				"Infectious Disease": 1.0,
				"Pediatrician":       5.0 / 7.0,
				InternalMedicine:     3.0 / 7.0,
				"General Surgeon":    2.0 / 7.0,
				Radiologist:          2.0 / 7.0,
			},
		},
		{
			name:     "name bonus",
			question: "Refer to a dermatologist for the rash",
			want:     Scores{"Dermatologist": 1.0},
		},
		{
			name:     "no match",
			question: "What is the capital of France?",
			want:     Scores{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := s.Score(tt.question)
			if len(got) != len(tt.want) {
				t.Fatalf("Score() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if math.Abs(got[k]-v) > 1e-9 {
					t.Errorf("Score()[%s] = %f, want %f", k, got[k], v)
				}
			}
		})
	}
}

func TestScorer_KeywordsMatchAsSubstrings(t *testing.T) {
	t.Parallel()
	s := NewScorer(Default())
	tests := []struct {
		question string
		want     string
	}{
		{"Laboratory results reveal elevated enzymes", Pathologist},
		{"Labs pending", Pathologist},
		{"labored respirations", Pathologist},
		{"CT of the abdomen", Radiologist},
		{"acute infection", Radiologist},
	}
	for _, tt := range tests {
		if got := s.Raw(tt.question)[tt.want]; got != keywordPoints {
			t.Errorf("Raw(%q)[%s] = %d, want %d", tt.question, tt.want, got, keywordPoints)
		}
	}
}

func TestScorer_NormalizedRange(t *testing.T) {
	t.Parallel()
	s := NewScorer(Default())
	questions := []string{
		"Emergency: a child with brain injury and bleeding",
		"Cancer patient with anemia and a lung mass on CT scan",
		"Chronic kidney disease with hypertension and diabetes",
		"heart",
	}
	for _, q := range questions {
		scores := s.Score(q)
		top := 0.0
		for name, v := range scores {
			if v <= 0 || v > 1 {
				t.Errorf("%q: %s = %f outside (0,1]", q, name, v)
			}
			top = math.Max(top, v)
		}
		if top != 1.0 {
			t.Errorf("%q: max = %f, want 1.0", q, top)
		}
		if len(s.Score(q)) != len(scores) {
			t.Errorf("%q: scoring not deterministic", q)
		}
	}
}

func TestScorer_RankTieBreak(t *testing.T) {
	t.Parallel()
	s := NewScorer(Default())
	ranked := s.Rank("kidney and lung findings")
	if len(ranked) != 2 {
		t.Fatalf("Rank() = %v", ranked)
	}
	if ranked[0].Specialty != "Pulmonologist" || ranked[1].Specialty != "Nephrologist" {
		t.Errorf("tie not broken by catalog order: %v", ranked)
	}
}

func TestCategoryOf(t *testing.T) {
	t.Parallel()
	tests := map[string]Category{
		Pathologist:        CategoryDiagnostic,
		Radiologist:        CategoryDiagnostic,
		ClinicalPharmacist: CategorySupport,
		"Social Worker":    CategorySupport,
		"Cardiologist":     CategoryOrgan,
		EmergencyMedicine:  CategoryOrgan,
	}
	for name, want := range tests {
		if got := CategoryOf(name); got != want {
			t.Errorf("CategoryOf(%q) = %d, want %d", name, got, want)
		}
	}
	if CategoryDiagnostic.String() != "diagnostic" || CategoryOrgan.String() != "organ" {
		t.Errorf("Category.String() = %s, %s", CategoryDiagnostic, CategoryOrgan)
	}
}
