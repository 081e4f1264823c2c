package panel

import (
	"context"
	"fmt"
	"sort"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/parse"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
)

// Lead chairs a team: it moderates between rounds and makes the decision.
type Lead struct {
	*advisor
}

// NewLead builds the lead advisor backed by model.
func NewLead(m core.Member, model core.Model, deps Deps, teamName string) (*Lead, error) {
	m.Role = core.RoleLead
	a, err := newAdvisor(m, model, deps, teamName, service.TmplSystemLead)
	if err != nil {
		return nil, err
	}
	return &Lead{advisor: a}, nil
}

// Moderate produces feedback on a round that ended without consensus.
func (l *Lead) Moderate(ctx context.Context, c *core.Case, round int, check core.ConsensusCheck, recent []core.DiscussionTurn) string {
	return l.ask(ctx, service.TmplFeedback, service.FeedbackParams{
		Case:          service.NewCaseView(c),
		Round:         round,
		Tally:         tallyLines(c, check),
		Majority:      check.Majority,
		AgreementRate: check.AgreementRate,
		Threshold:     core.ConsensusThreshold,
		Recent:        summarize(recent),
	}, service.TempFeedback)
}

// DecisionInput is everything the lead weighs in the final decision.
type DecisionInput struct {
	Case        *core.Case
	Assessments []core.AdvisorAssessment
	Turns       []core.DiscussionTurn
	// Votes holds the latest vote of each advisor.
	Votes   []core.AdvisorVote
	Weights map[string]float64
	// Check is the last consensus poll, or the initial check on early consensus.
	Check core.ConsensusCheck
	Early bool
}

// Decide makes the final decision with one model call. On early consensus
// the choice is forced to the consensus majority.
func (l *Lead) Decide(ctx context.Context, in DecisionInput) core.FinalDecision {
	letters := in.Case.Options.Letters()
	analysis := AnalyzeVotes(in.Votes, in.Weights, letters)
	if len(analysis) == 0 {
		analysis = distributionAnalysis(in.Check, letters)
	}

	assessments := make([]service.TurnSummary, 0, len(in.Assessments))
	for _, a := range in.Assessments {
		summary := a.Assessment.Assessment
		if summary == "" {
			summary = a.Assessment.Raw
		}
		if a.Assessment.RecommendedAnswer != "" {
			summary = fmt.Sprintf("favors %s. %s", a.Assessment.RecommendedAnswer, summary)
		}
		assessments = append(assessments, service.TurnSummary{Specialty: a.Specialty, Summary: service.Truncate(summaryLength, summary)})
	}

	text := l.ask(ctx, service.TmplDecision, service.DecisionParams{
		Case:          service.NewCaseView(in.Case),
		Assessments:   assessments,
		Discussion:    summarize(lastTurns(in.Turns, decisionTurns)),
		Analysis:      analysis,
		AgreementRate: in.Check.AgreementRate,
		Consensus:     in.Check.HasConsensus,
	}, service.TempDecision)

	d := parse.Decision(text, letters)
	d.ConsensusAchieved = in.Check.HasConsensus
	d.AgreementRate = in.Check.AgreementRate
	d.EarlyConsensus = in.Early
	if in.Early {
		d.Choice = in.Check.Majority
		d.Rationale = fmt.Sprintf("Early consensus: %.0f%% of the panel independently recommended option %s in silent assessment.",
			in.Check.AgreementRate*100, in.Check.Majority)
	}
	if d.ConsensusStatus == "" {
		d.ConsensusStatus = consensusStatus(in.Check, in.Early)
	}
	return d
}

func consensusStatus(check core.ConsensusCheck, early bool) string {
	switch {
	case early:
		return fmt.Sprintf("early consensus (%.0f%%)", check.AgreementRate*100)
	case check.HasConsensus:
		return fmt.Sprintf("consensus reached (%.0f%%)", check.AgreementRate*100)
	case check.Total == 0:
		return "no preferences recorded"
	}
	return fmt.Sprintf("no consensus (%.0f%%)", check.AgreementRate*100)
}

// AnalyzeVotes groups votes by choice with their count, mean confidence and
// summed decision weight. Votes without a choice are skipped. The result is
// ordered by count, then mean confidence, then option order.
func AnalyzeVotes(votes []core.AdvisorVote, weights map[string]float64, order []string) []service.VoteAnalysis {
	byChoice := make(map[string]*service.VoteAnalysis)
	for _, v := range votes {
		if v.Vote.Choice == "" {
			continue
		}
		a, ok := byChoice[v.Vote.Choice]
		if !ok {
			a = &service.VoteAnalysis{Choice: v.Vote.Choice}
			byChoice[v.Vote.Choice] = a
		}
		a.Count++
		a.AvgConfidence += v.Vote.Confidence
		a.Weight += weights[v.AdvisorID]
	}

	out := make([]service.VoteAnalysis, 0, len(byChoice))
	for _, a := range byChoice {
		a.AvgConfidence /= float64(a.Count)
		out = append(out, *a)
	}
	rank := letterRank(order)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].AvgConfidence != out[j].AvgConfidence {
			return out[i].AvgConfidence > out[j].AvgConfidence
		}
		return rank(out[i].Choice) < rank(out[j].Choice)
	})
	return out
}

func distributionAnalysis(check core.ConsensusCheck, order []string) []service.VoteAnalysis {
	var out []service.VoteAnalysis
	for _, choice := range check.Groups(order) {
		out = append(out, service.VoteAnalysis{Choice: choice, Count: check.Distribution[choice]})
	}
	return out
}

func letterRank(order []string) func(string) int {
	idx := make(map[string]int, len(order))
	for i, l := range order {
		idx[l] = i
	}
	return func(l string) int {
		if i, ok := idx[l]; ok {
			return i
		}
		return len(order)
	}
}
