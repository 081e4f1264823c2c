package parse

import (
	"strings"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

const (
	secDecision  = "decision"
	secPrimary   = "primary_rationale"
	secMinority  = "minority"
	secFollowUp  = "follow_up"
	secConsensus = "consensus_status"
)

var decisionHeaders = []header{
	newHeader(secDecision, "FINAL DECISION", "DECISION"),
	newHeader(secPrimary, "PRIMARY RATIONALE", "RATIONALE"),
	newHeader(secMinority, "MINORITY CONSIDERATION", "MINORITY CONSIDERATIONS"),
	newHeader(secFollowUp, "FOLLOW UP", "FOLLOWUP"),
	newHeader(secConsensus, "CONSENSUS STATUS"),
}

// Decision parses a lead's final decision response. Consensus fields other
// than ConsensusStatus are left for the caller to fill in.
func Decision(text string, letters []string) core.FinalDecision {
	scan := scanSections(text, decisionHeaders)
	valid := letterSet(letters)

	d := core.FinalDecision{
		Rationale:             scan.text[secPrimary],
		MinorityConsideration: scan.text[secMinority],
		FollowUp:              scan.text[secFollowUp],
		ConsensusStatus:       scan.text[secConsensus],
		Raw:                   text,
	}
	for _, line := range scan.lines[secDecision] {
		if l := firstLetter(line, valid); l != "" {
			d.Choice = l
		}
	}
	return d
}

// Complexity reads a classifier reply. Anything other than a recognizable
// tier word yields TierModerate and ok=false.
func Complexity(text string) (core.Tier, bool) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return core.TierModerate, false
	}
	word := strings.Trim(fields[0], ".,:;!*\"'`")
	if strings.HasPrefix(word, "complexity") && len(fields) > 1 {
		word = strings.Trim(fields[len(fields)-1], ".,:;!*\"'`")
	}
	switch core.Tier(word) {
	case core.TierLow, core.TierModerate, core.TierHigh:
		return core.Tier(word), true
	}
	return core.TierModerate, false
}
