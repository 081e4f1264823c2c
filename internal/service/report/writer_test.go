package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/testutil"
)

func sampleResult() *core.CaseResult {
	c := testutil.NewCase("Crushing chest pain | sweating")
	c.ID = "case/42"
	c.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	lead := core.Member{ID: "lead", Specialty: "Cardiologist", Role: core.RoleLead}
	member := core.Member{ID: "specialist_1", Specialty: "Emergency Medicine", Role: core.RoleConsultant}
	decision := core.FinalDecision{
		Choice:                "B",
		Rationale:             "ST elevation in II, III, aVF.",
		MinorityConsideration: "PE remains possible.",
		FollowUp:              "Serial troponins.",
		ConsensusStatus:       "consensus (100%)",
		ConsensusAchieved:     true,
		AgreementRate:         1,
	}
	return &core.CaseResult{
		Case:        *c,
		Tier:        core.TierModerate,
		Recruitment: core.Recruitment{Tier: core.TierModerate, Panel: &core.Team{Lead: lead, Members: []core.Member{member}}},
		Explanation: "Cardiology leads for chest pain.",
		Deliberations: []core.Deliberation{{
			Assessments: []core.AdvisorAssessment{
				{AdvisorID: "lead", Specialty: "Cardiologist", Assessment: core.StructuredAssessment{Assessment: "Inferior | STEMI", RecommendedAnswer: "B"}},
				{AdvisorID: "specialist_1", Specialty: "Emergency Medicine", Assessment: core.StructuredAssessment{Assessment: "Unclear"}},
			},
			InitialCheck: core.ConsensusCheck{AgreementRate: 0.5},
			Turns: []core.DiscussionTurn{
				{Speaker: "specialist_1", Specialty: "Emergency Medicine", Round: 1, Message: "Check D-dimer."},
				{Speaker: "lead", Specialty: "Cardiologist", Round: 2, Message: "ECG is diagnostic.", Topic: "ECG"},
			},
			Polls:     []core.ConsensusCheck{{Majority: "B", AgreementRate: 0.5}, {Majority: "B", AgreementRate: 1}},
			Feedback:  []core.Feedback{{Round: 1, Message: "Focus on the ECG."}},
			RoundsRun: 2,
			Decision:  decision,
		}},
		Decision:  decision,
		Usage:     core.UsageReport{Calls: 9, Failures: 1, Total: core.TokenUsage{Input: 1000, Output: 250}},
		StartedAt: c.CreatedAt,
		Duration:  75 * time.Second,
	}
}

func TestWriter_WritesBothFormats(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	w := NewWriter(Config{BaseDir: base, UseUTC: true, Enabled: true})

	dir, err := w.Write(sampleResult())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, dir, filepath.Join(base, "case-42"))

	md, err := os.ReadFile(filepath.Join(dir, "transcript.md"))
	testutil.AssertNoError(t, err)
	text := string(md)
	testutil.AssertTrue(t, strings.HasPrefix(text, "---\ncase_id: case/42\n"), "frontmatter should lead: "+text[:40])
	testutil.AssertContains(t, text, "tier: moderate")
	testutil.AssertContains(t, text, "- Cardiologist")
	testutil.AssertContains(t, text, "**B) ")
	testutil.AssertContains(t, text, "Consensus: consensus (100%)")
	testutil.AssertContains(t, text, "**Minority view:** PE remains possible.")
	testutil.AssertContains(t, text, "- Panel: Cardiologist (lead), Emergency Medicine")
	testutil.AssertContains(t, text, "Cardiology leads for chest pain.")
	testutil.AssertContains(t, text, "| lead | Cardiologist | B | Inferior \\| STEMI |")
	testutil.AssertContains(t, text, "| specialist_1 | Emergency Medicine | - | Unclear |")
	testutil.AssertContains(t, text, "#### Round 2")
	testutil.AssertContains(t, text, "- **Cardiologist** _(ECG)_: ECG is diagnostic.")
	testutil.AssertContains(t, text, "| 2 | B | 100% |")
	testutil.AssertContains(t, text, "- Round 1: Focus on the ECG.")
	testutil.AssertContains(t, text, "| Duration | 1m 15s |")
	testutil.AssertNotContains(t, text, "### Team decision")

	raw, err := os.ReadFile(filepath.Join(dir, "case.json"))
	testutil.AssertNoError(t, err)
	var back core.CaseResult
	testutil.AssertNoError(t, json.Unmarshal(raw, &back))
	testutil.AssertEqual(t, back.Decision.Choice, "B")
	testutil.AssertEqual(t, back.Case.ID, "case/42")
}

func TestWriter_Overwrites(t *testing.T) {
	t.Parallel()
	w := NewWriter(Config{BaseDir: t.TempDir(), Formats: []string{FormatJSON}, Enabled: true})
	r := sampleResult()
	dir, err := w.Write(r)
	testutil.AssertNoError(t, err)

	r.Decision.Choice = "C"
	_, err = w.Write(r)
	testutil.AssertNoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "case.json"))
	testutil.AssertNoError(t, err)
	testutil.AssertContains(t, string(raw), `"choice": "C"`)
	_, err = os.Stat(filepath.Join(dir, "transcript.md"))
	testutil.AssertTrue(t, os.IsNotExist(err), "markdown should not be written when not configured")
}

func TestWriter_Disabled(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	w := NewWriter(Config{BaseDir: base})
	testutil.AssertFalse(t, w.IsEnabled(), "zero config should be disabled")
	dir, err := w.Write(sampleResult())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, dir, "")
	entries, _ := os.ReadDir(base)
	testutil.AssertLen(t, entries, 0)
}

func TestWriter_Errors(t *testing.T) {
	t.Parallel()
	w := NewWriter(Config{BaseDir: t.TempDir(), Formats: []string{"pdf"}, Enabled: true})
	_, err := w.Write(sampleResult())
	testutil.AssertTrue(t, core.IsCategory(err, core.ErrCatValidation), "unknown format should be rejected")

	_, err = NewWriter(DefaultConfig()).Write(&core.CaseResult{})
	testutil.AssertTrue(t, core.IsCategory(err, core.ErrCatValidation), "missing ID should be rejected")
}

func TestRenderMarkdown_NoDecisionAndSubTeams(t *testing.T) {
	t.Parallel()
	r := sampleResult()
	r.Decision = core.FinalDecision{ConsensusStatus: "no consensus (40%)"}
	r.Deliberations[0].TeamKey = "FRDT"
	r.Deliberations[0].Decision = core.FinalDecision{}

	text := RenderMarkdown(r)
	testutil.AssertContains(t, text, "**No decision reached.**")
	testutil.AssertContains(t, text, "**Rationale:** -")
	testutil.AssertContains(t, text, "## Deliberation (FRDT)")
	testutil.AssertContains(t, text, "### Team decision\n\n- (-)")
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{125 * time.Second, "2m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()
	testutil.AssertEqual(t, sanitizeFilename("Case 42/A:b?"), "case-42-a-b")
}
