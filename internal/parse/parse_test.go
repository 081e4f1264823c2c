package parse

import (
	"testing"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

var abcd = []string{"A", "B", "C", "D"}

func TestAssessment_WellFormed(t *testing.T) {
	t.Parallel()
	text := `SITUATION: 54-year-old with crushing chest pain
BACKGROUND: Smoker, hypertensive.
Family history of early MI.
ASSESSMENT: Acute coronary syndrome is most likely.
RECOMMENDATION: Urgent catheterization. Answer: (C)`

	got := Assessment(text, abcd)
	want := core.StructuredAssessment{
		Situation:         "54-year-old with crushing chest pain",
		Background:        "Smoker, hypertensive. Family history of early MI.",
		Assessment:        "Acute coronary syndrome is most likely.",
		Recommendation:    "Urgent catheterization. Answer: (C)",
		RecommendedAnswer: "C",
		Raw:               text,
	}
	if got != want {
		t.Errorf("Assessment() =\n%+v\nwant\n%+v", got, want)
	}
	if again := Assessment(text, abcd); again != got {
		t.Error("parsing is not idempotent")
	}
}

func TestAssessment_MarkdownHeaders(t *testing.T) {
	t.Parallel()
	text := "**Situation:** fever\n## Background: travel\n- assessment: malaria likely\n1. Recommendation: treat"
	got := Assessment(text, abcd)
	if got.Situation != "fever" || got.Background != "travel" || got.Assessment != "malaria likely" || got.Recommendation != "treat" {
		t.Errorf("Assessment() = %+v", got)
	}
}

func TestAssessment_MissingSections(t *testing.T) {
	t.Parallel()
	got := Assessment("I am not sure about this case.", abcd)
	if got.Situation != "" || got.Recommendation != "" || got.RecommendedAnswer != "" {
		t.Errorf("Assessment() = %+v", got)
	}
}

func TestAnswer(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want string
	}{
		{"answer colon", "Answer: B", "B"},
		{"answer parenthesized", "answer: (d)", "D"},
		{"last answer wins", "Answer: A ... on reflection, Answer: C", "C"},
		{"answer beats later pattern", "Answer: B although (C) is tempting", "B"},
		{"invalid answer skipped", "Answer: E. Option D fits best", "D"},
		{"option", "I favor option C here", "C"},
		{"parenthesized", "Between (A) and (D), the latter", "D"},
		{"line start", "Reasoning...\nB) is correct", "B"},
		{"choose", "I would choose A", "A"},
		{"select", "select option B", "B"},
		{"word not letter", "Answer: Cardiac tamponade", ""},
		{"frequency fallback", "A is unlikely. C fits, C explains the rash, and B does not.", "C"},
		{"frequency tie by order", "D or B", "B"},
		{"article a ignored", "a case with a rash and a fever", ""},
		{"none", "no letters here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Answer(tt.text, abcd); got != tt.want {
				t.Errorf("Answer(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestVote(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want core.Vote
	}{
		{
			name: "canonical",
			text: "VOTE: B\nCONFIDENCE: 0.85\nRATIONALE: clear lab findings",
			want: core.Vote{Choice: "B", Confidence: 0.85, Rationale: "clear lab findings"},
		},
		{
			name: "vote label letter not read",
			text: "VOTE: D\nCONFIDENCE: 0.6\nRATIONALE: x",
			want: core.Vote{Choice: "D", Confidence: 0.6, Rationale: "x"},
		},
		{
			name: "markdown and percent",
			text: "**Vote:** [C]\n**Confidence:** 90%\n**Rationale:** imaging",
			want: core.Vote{Choice: "C", Confidence: 0.9, Rationale: "imaging"},
		},
		{
			name: "lowercase bare letter",
			text: "vote: a\nconfidence: high",
			want: core.Vote{Choice: "A", Confidence: core.DefaultConfidence},
		},
		{
			name: "prose vote",
			text: "VOTE: undecided\nRATIONALE: need more data",
			want: core.Vote{Confidence: core.DefaultConfidence, Rationale: "need more data"},
		},
		{
			name: "empty",
			text: "",
			want: core.Vote{Confidence: core.DefaultConfidence},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Vote(tt.text, abcd)
			tt.want.Raw = tt.text
			if got != tt.want {
				t.Errorf("Vote() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	t.Parallel()
	tests := map[string]float64{
		"0.85":        0.85,
		" .7 ":        0.7,
		"80%":         0.8,
		"75":          0.75,
		"1":           1,
		"0":           0,
		"about 0.6/1": 0.6,
		"150":         core.DefaultConfidence,
		"very":        core.DefaultConfidence,
	}
	for in, want := range tests {
		if got := Confidence(in); got != want {
			t.Errorf("Confidence(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDecision(t *testing.T) {
	t.Parallel()
	text := `DECISION: C
PRIMARY RATIONALE: Imaging and labs both point to C.
The alternative is less consistent.
MINORITY CONSIDERATION: One member favored B.
FOLLOW-UP: Repeat troponin in 6 hours.
CONSENSUS STATUS: Strong majority`

	got := Decision(text, abcd)
	if got.Choice != "C" {
		t.Errorf("Choice = %q", got.Choice)
	}
	if got.Rationale != "Imaging and labs both point to C. The alternative is less consistent." {
		t.Errorf("Rationale = %q", got.Rationale)
	}
	if got.MinorityConsideration != "One member favored B." || got.FollowUp != "Repeat troponin in 6 hours." {
		t.Errorf("unexpected sections: %+v", got)
	}
	if got.ConsensusStatus != "Strong majority" || got.Raw != text {
		t.Errorf("unexpected status: %+v", got)
	}
}

func TestDecision_Variants(t *testing.T) {
	t.Parallel()
	got := Decision("Final Decision: Option (A)\nRationale: fits", abcd)
	if got.Choice != "A" || got.Rationale != "fits" {
		t.Errorf("Decision() = %+v", got)
	}
	got = Decision("DECISION: E\nFollow up: none", abcd)
	if got.Choice != "" || got.FollowUp != "none" {
		t.Errorf("invalid letter should be absent: %+v", got)
	}
}

func TestComplexity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want core.Tier
		ok   bool
	}{
		{"low", core.TierLow, true},
		{" High.", core.TierHigh, true},
		{"moderate complexity", core.TierModerate, true},
		{"Complexity Level: high", core.TierHigh, true},
		{"it depends", core.TierModerate, false},
		{"", core.TierModerate, false},
	}
	for _, tt := range tests {
		got, ok := Complexity(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Complexity(%q) = %q, %v", tt.in, got, ok)
		}
	}
}
