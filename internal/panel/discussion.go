package panel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
	"github.com/hugo-lorenzo-mato/medpanel/internal/specialty"
)

// DiscussionKind selects the discussion format of a round.
type DiscussionKind string

const (
	KindRoundRobin DiscussionKind = "round_robin"
	KindFocused    DiscussionKind = "focused"
	KindOpen       DiscussionKind = "open"
)

const (
	// previousTurns is how many earlier turns a round-robin speaker sees.
	previousTurns = 3
	// summaryLength caps each quoted turn.
	summaryLength = 100
	// decisionTurns caps the discussion highlights given to the decision.
	decisionTurns = 12
	// focusGroups is how many disagreement groups a focused round covers.
	focusGroups = 2

	feedbackSpeaker = "moderator"
	feedbackTopic   = "moderator_feedback"
)

// Open discussion topics, cycled across rounds.
const (
	TopicReconcile   = "Reconciling different diagnostic opinions"
	TopicRiskBenefit = "Risk-benefit analysis of the leading option"
	TopicAlternative = "Alternative management if first choice fails"
)

// Discussion is the context handed to an advisor for one turn.
type Discussion struct {
	Kind  DiscussionKind
	Case  *core.Case
	Round int
	Topic string
	// Previous holds the turns visible to a round-robin speaker.
	Previous []core.DiscussionTurn
	// Positions are the disagreement groups of a focused round.
	Positions []Position
	// Tally is the latest poll, shown in open rounds.
	Tally core.ConsensusCheck
}

// Position is a block of advisors sharing a recommendation.
type Position struct {
	Choice   string
	Advisors []core.Member
}

// KindForRound returns the discussion format for a zero-based round index.
func KindForRound(r int) DiscussionKind {
	switch r {
	case 0:
		return KindRoundRobin
	case 1:
		return KindFocused
	}
	return KindOpen
}

// SpeakingOrder orders a team for round-robin discussion: diagnostic
// specialties, then organ specialists by descending relevance, then
// support specialties. The lead always speaks last.
func SpeakingOrder(lead Advisor, members []Advisor) []Advisor {
	var diagnostic, organ, support []Advisor
	for _, a := range members {
		switch specialty.CategoryOf(a.Profile().Specialty) {
		case specialty.CategoryDiagnostic:
			diagnostic = append(diagnostic, a)
		case specialty.CategorySupport:
			support = append(support, a)
		default:
			organ = append(organ, a)
		}
	}
	sort.SliceStable(organ, func(i, j int) bool {
		return organ[i].Profile().Relevance > organ[j].Profile().Relevance
	})

	out := make([]Advisor, 0, len(members)+1)
	out = append(out, diagnostic...)
	out = append(out, organ...)
	out = append(out, support...)
	return append(out, lead)
}

// Positions groups advisors by their silent recommendation, largest group
// first, keeping at most limit groups. Advisors without a recommendation
// are left out.
func Positions(advisors []Advisor, order []string, limit int) []Position {
	var prefs []string
	for _, a := range advisors {
		sa, _ := a.Assessment()
		prefs = append(prefs, sa.RecommendedAnswer)
	}
	groups := core.Tally(prefs, order, core.ConsensusThreshold).Groups(order)
	if len(groups) > limit {
		groups = groups[:limit]
	}

	out := make([]Position, 0, len(groups))
	for _, choice := range groups {
		p := Position{Choice: choice}
		for i, a := range advisors {
			if prefs[i] == choice {
				p.Advisors = append(p.Advisors, a.Profile())
			}
		}
		out = append(out, p)
	}
	return out
}

// Topics returns the open discussion topics for a case.
func Topics(initial core.ConsensusCheck) []string {
	var topics []string
	if len(initial.Distribution) > 1 {
		topics = append(topics, TopicReconcile)
	}
	return append(topics, TopicRiskBenefit, TopicAlternative)
}

func summarize(turns []core.DiscussionTurn) []service.TurnSummary {
	out := make([]service.TurnSummary, 0, len(turns))
	for _, t := range turns {
		if t.Message == "" {
			continue
		}
		out = append(out, service.TurnSummary{Specialty: t.Specialty, Summary: service.Truncate(summaryLength, t.Message)})
	}
	return out
}

func lastTurns(turns []core.DiscussionTurn, n int) []core.DiscussionTurn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

func groupViews(c *core.Case, positions []Position) []service.GroupView {
	out := make([]service.GroupView, 0, len(positions))
	for _, p := range positions {
		g := service.GroupView{Choice: p.Choice, Text: c.Options[p.Choice]}
		for _, m := range p.Advisors {
			g.Members = append(g.Members, m.Specialty)
		}
		out = append(out, g)
	}
	return out
}

func tallyLines(c *core.Case, check core.ConsensusCheck) []service.TallyLine {
	groups := check.Groups(c.Options.Letters())
	out := make([]service.TallyLine, 0, len(groups))
	for _, choice := range groups {
		out = append(out, service.TallyLine{Choice: choice, Text: c.Options[choice], Count: check.Distribution[choice]})
	}
	return out
}

// voteSummary condenses a round's turns for the vote prompt.
func voteSummary(turns []core.DiscussionTurn) string {
	var b strings.Builder
	for _, t := range summarize(turns) {
		fmt.Fprintf(&b, "- %s: %s\n", t.Specialty, t.Summary)
	}
	return strings.TrimSpace(b.String())
}
