package core

import "fmt"

// Phase is a state of the deliberation protocol.
type Phase string

const (
	// PhaseSilentAssessment collects one independent SBAR assessment per advisor.
	PhaseSilentAssessment Phase = "silent_assessment"

	// PhaseInitialCheck tallies the silent recommendations.
	PhaseInitialCheck Phase = "initial_consensus_check"

	// PhaseRoundLoop runs discussion, poll and feedback until consensus or
	// the round budget is spent.
	PhaseRoundLoop Phase = "round_loop"

	// PhaseFinalDecision asks the lead for the decision and collects
	// acknowledgments.
	PhaseFinalDecision Phase = "final_decision"

	// PhaseDone is terminal. It is not an executable phase.
	PhaseDone Phase = "done"
)

// AllPhases returns the executable phases in order.
func AllPhases() []Phase {
	return []Phase{PhaseSilentAssessment, PhaseInitialCheck, PhaseRoundLoop, PhaseFinalDecision}
}

// PhaseOrder returns the numeric order of a phase, or -1 if unknown.
func PhaseOrder(p Phase) int {
	switch p {
	case PhaseSilentAssessment:
		return 0
	case PhaseInitialCheck:
		return 1
	case PhaseRoundLoop:
		return 2
	case PhaseFinalDecision:
		return 3
	case PhaseDone:
		return 4
	default:
		return -1
	}
}

// NextPhase returns the phase that follows p on the default path. The
// initial check may skip the round loop; see CanTransition.
func NextPhase(p Phase) Phase {
	switch p {
	case PhaseSilentAssessment:
		return PhaseInitialCheck
	case PhaseInitialCheck:
		return PhaseRoundLoop
	case PhaseRoundLoop:
		return PhaseFinalDecision
	case PhaseFinalDecision:
		return PhaseDone
	default:
		return ""
	}
}

// CanTransition reports whether the protocol may move from one phase to
// another. Early consensus is the only skip.
func CanTransition(from, to Phase) bool {
	if NextPhase(from) == to && to != "" {
		return true
	}
	return from == PhaseInitialCheck && to == PhaseFinalDecision
}

// ValidPhase checks if a phase is known.
func ValidPhase(p Phase) bool {
	return PhaseOrder(p) >= 0
}

// ParsePhase converts a string to a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !ValidPhase(p) {
		return "", fmt.Errorf("invalid phase: %s", s)
	}
	return p, nil
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}
