package core

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("root")
	err := ErrModel(CodeModelFailed, "call failed").WithCause(cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to match cause")
	}
	if !errors.Is(err, &DomainError{Category: ErrCatModel, Code: CodeModelFailed}) {
		t.Fatal("expected errors.Is to match category and code")
	}
	if errors.Is(err, &DomainError{Category: ErrCatModel, Code: CodeEmptyResponse}) {
		t.Fatal("expected different code not to match")
	}
}

func TestErrorFactories(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err       *DomainError
		category  ErrorCategory
		retryable bool
	}{
		{ErrValidation("C", "m"), ErrCatValidation, false},
		{ErrModel("C", "m"), ErrCatModel, true},
		{ErrTimeout("m"), ErrCatTimeout, true},
		{ErrRateLimit("m"), ErrCatRateLimit, true},
		{ErrParse("C", "m"), ErrCatParse, false},
		{ErrState("C", "m"), ErrCatState, false},
		{ErrNotFound("case", "x"), ErrCatNotFound, false},
	}
	for _, tt := range tests {
		if got := GetCategory(tt.err); got != tt.category {
			t.Errorf("GetCategory(%v) = %s, want %s", tt.err, got, tt.category)
		}
		if IsRetryable(tt.err) != tt.retryable {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, !tt.retryable, tt.retryable)
		}
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Error("plain errors should be internal")
	}
}

func TestErrInterrupted(t *testing.T) {
	t.Parallel()
	tests := []struct {
		cause error
		cat   ErrorCategory
		code  string
	}{
		{context.Canceled, ErrCatState, CodeCaseCancelled},
		{context.DeadlineExceeded, ErrCatTimeout, "TIMEOUT"},
	}
	for _, tt := range tests {
		err := ErrInterrupted(tt.cause)
		if err.Category != tt.cat || err.Code != tt.code {
			t.Errorf("ErrInterrupted(%v) = %s/%s, want %s/%s", tt.cause, err.Category, err.Code, tt.cat, tt.code)
		}
		if !errors.Is(err, tt.cause) {
			t.Errorf("ErrInterrupted(%v) does not wrap its cause", tt.cause)
		}
	}
}

func TestParseTier(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"low", TierLow, false},
		{"Basic", TierLow, false},
		{" moderate ", TierModerate, false},
		{"intermediate", TierModerate, false},
		{"HIGH", TierHigh, false},
		{"advanced", TierHigh, false},
		{"extreme", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTier(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTier(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestCase_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		c       Case
		wantErr bool
	}{
		{"valid", Case{Question: "q", Options: Options{"A": "x", "B": "y"}}, false},
		{"valid with tier", Case{Question: "q", Options: Options{"A": "x", "B": "y"}, Tier: TierHigh}, false},
		{"empty question", Case{Question: "  ", Options: Options{"A": "x", "B": "y"}}, true},
		{"one option", Case{Question: "q", Options: Options{"A": "x"}}, true},
		{"six options", Case{Question: "q", Options: Options{"A": "1", "B": "2", "C": "3", "D": "4", "E": "5", "F": "6"}}, true},
		{"lowercase key", Case{Question: "q", Options: Options{"a": "x", "B": "y"}}, true},
		{"multi-letter key", Case{Question: "q", Options: Options{"AB": "x", "C": "y"}}, true},
		{"blank option", Case{Question: "q", Options: Options{"A": "x", "B": ""}}, true},
		{"bad tier", Case{Question: "q", Options: Options{"A": "x", "B": "y"}, Tier: "extreme"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsCategory(err, ErrCatValidation) {
				t.Errorf("expected validation category, got %s", GetCategory(err))
			}
		})
	}
}

func TestOptions_LettersAndFormat(t *testing.T) {
	t.Parallel()
	o := Options{"C": "three", "A": "one", "B": "two"}
	if got := o.Letters(); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("Letters() = %v", got)
	}
	if got := o.Format(); got != "A) one\nB) two\nC) three" {
		t.Errorf("Format() = %q", got)
	}
	c := Case{Options: o}
	if c.DefaultChoice() != "A" {
		t.Errorf("DefaultChoice() = %q", c.DefaultChoice())
	}
}

func TestCase_WithBriefingCopies(t *testing.T) {
	t.Parallel()
	base := Case{Question: "q", Briefing: []string{"one"}}
	next := base.WithBriefing("two")
	if len(base.Briefing) != 1 || len(next.Briefing) != 2 {
		t.Errorf("briefing not copied: base=%v next=%v", base.Briefing, next.Briefing)
	}
}

func TestTally(t *testing.T) {
	t.Parallel()
	order := []string{"A", "B", "C", "D"}
	tests := []struct {
		name      string
		prefs     []string
		majority  string
		rate      float64
		consensus bool
	}{
		{"four of five", []string{"A", "A", "A", "A", "B"}, "A", 0.8, true},
		{"three of five", []string{"A", "B", "A", "C", "A"}, "A", 0.6, false},
		{"absent excluded", []string{"B", "", "B", "B", "B"}, "B", 1.0, true},
		{"tie by letter order", []string{"C", "B", "C", "B"}, "B", 0.5, false},
		{"all absent", []string{"", ""}, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Tally(tt.prefs, order, ConsensusThreshold)
			if got.Majority != tt.majority || got.HasConsensus != tt.consensus || math.Abs(got.AgreementRate-tt.rate) > 1e-9 {
				t.Errorf("Tally(%v) = %+v", tt.prefs, got)
			}
		})
	}
}

func TestConsensusCheck_Groups(t *testing.T) {
	t.Parallel()
	check := Tally([]string{"C", "A", "C", "B", "A", "C"}, []string{"A", "B", "C"}, ConsensusThreshold)
	if got := check.Groups([]string{"A", "B", "C"}); !reflect.DeepEqual(got, []string{"C", "A", "B"}) {
		t.Errorf("Groups() = %v", got)
	}
	if (ConsensusCheck{}).Groups(nil) != nil {
		t.Error("empty check should have no groups")
	}
}

func TestPhaseTransitions(t *testing.T) {
	t.Parallel()
	if !CanTransition(PhaseInitialCheck, PhaseFinalDecision) {
		t.Error("early consensus skip must be allowed")
	}
	if CanTransition(PhaseSilentAssessment, PhaseRoundLoop) {
		t.Error("initial check cannot be skipped")
	}
	if CanTransition(PhaseFinalDecision, PhaseRoundLoop) {
		t.Error("final decision is not re-entrant")
	}
	for i, p := range AllPhases() {
		if PhaseOrder(p) != i {
			t.Errorf("PhaseOrder(%s) = %d, want %d", p, PhaseOrder(p), i)
		}
	}
	if _, err := ParsePhase("bogus"); err == nil {
		t.Error("expected error for unknown phase")
	}
}

func TestRecruitment_Members(t *testing.T) {
	t.Parallel()
	team := Team{Lead: Member{ID: "lead"}, Members: []Member{{ID: "a", Weight: 0.4}, {ID: "b", Weight: 0.3}}}
	r := Recruitment{Tier: TierModerate, Panel: &team}
	if len(r.Members()) != 3 || r.Members()[0].ID != "lead" {
		t.Errorf("Members() = %+v", r.Members())
	}
	if team.Size() != 3 || math.Abs(team.TotalWeight()-0.7) > 1e-9 {
		t.Errorf("Size/TotalWeight = %d/%f", team.Size(), team.TotalWeight())
	}
	h := Recruitment{SubTeams: []SubTeam{{Key: "iat", Team: team}, {Key: "det", Team: team}}}
	if len(h.Members()) != 6 {
		t.Errorf("hierarchical Members() = %d", len(h.Members()))
	}
}

func TestTokenUsage(t *testing.T) {
	t.Parallel()
	u := TokenUsage{Input: 10, Output: 5}.Add(TokenUsage{Input: 1, Output: 2})
	if u.Total() != 18 {
		t.Errorf("Total() = %d", u.Total())
	}
}
