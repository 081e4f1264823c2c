package report

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/recruit"
)

// sanitizeFilename removes or replaces characters unsuitable for filenames
func sanitizeFilename(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			result.WriteRune(r)
		} else if r == ' ' || r == '/' || r == ':' {
			result.WriteRune('-')
		}
	}
	return strings.ToLower(result.String())
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func percent(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// renderFrontmatter builds the transcript header fields.
func renderFrontmatter(r *core.CaseResult, useUTC bool) (string, error) {
	created := r.Case.CreatedAt
	if useUTC {
		created = created.UTC()
	}
	specialties := make([]string, 0, len(r.Recruitment.Members()))
	for _, m := range r.Recruitment.Members() {
		specialties = append(specialties, m.Specialty)
	}

	f := NewFrontmatter()
	f.Set("case_id", r.Case.ID)
	f.Set("created_at", created.Format(time.RFC3339))
	f.Set("tier", string(r.Tier))
	f.Set("choice", r.Decision.Choice)
	f.Set("consensus", r.Decision.ConsensusAchieved)
	f.Set("agreement", r.Decision.AgreementRate)
	f.Set("specialties", specialties)
	f.Set("tokens", r.Usage.Total.Total())
	f.Set("duration", formatDuration(r.Duration))
	return f.Render()
}

// RenderMarkdown renders the full case transcript.
func RenderMarkdown(r *core.CaseResult) string {
	var sb strings.Builder

	sb.WriteString("# Case " + r.Case.ID + "\n\n")
	sb.WriteString("## Question\n\n")
	sb.WriteString(r.Case.Question + "\n\n")
	for _, l := range r.Case.Options.Letters() {
		sb.WriteString(fmt.Sprintf("- **%s)** %s\n", l, r.Case.Options[l]))
	}

	sb.WriteString("\n## Decision\n\n")
	sb.WriteString(renderDecision(r.Case.Options, r.Decision))

	sb.WriteString("\n## Team\n\n")
	sb.WriteString(fmt.Sprintf("Complexity: **%s**\n\n", r.Tier))
	sb.WriteString(recruit.Describe(r.Recruitment) + "\n")
	if r.Explanation != "" {
		sb.WriteString("\n" + r.Explanation + "\n")
	}

	for _, d := range r.Deliberations {
		sb.WriteString(renderDeliberation(d))
	}

	sb.WriteString("\n## Usage\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Calls | %d |\n", r.Usage.Calls))
	sb.WriteString(fmt.Sprintf("| Failed calls | %d |\n", r.Usage.Failures))
	sb.WriteString(fmt.Sprintf("| Input tokens | %d |\n", r.Usage.Total.Input))
	sb.WriteString(fmt.Sprintf("| Output tokens | %d |\n", r.Usage.Total.Output))
	sb.WriteString(fmt.Sprintf("| Duration | %s |\n", formatDuration(r.Duration)))
	return sb.String()
}

func renderDecision(opts core.Options, d core.FinalDecision) string {
	var sb strings.Builder
	if d.Choice == "" {
		sb.WriteString("**No decision reached.**\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("**%s) %s**\n\n", d.Choice, opts[d.Choice]))
	}
	sb.WriteString(fmt.Sprintf("Consensus: %s\n\n", orDash(d.ConsensusStatus)))
	if d.EarlyConsensus {
		sb.WriteString("_Reached from the silent assessments, without discussion._\n\n")
	}
	sb.WriteString("**Rationale:** " + orDash(d.Rationale) + "\n\n")
	sb.WriteString("**Minority view:** " + orDash(d.MinorityConsideration) + "\n\n")
	sb.WriteString("**Follow-up:** " + orDash(d.FollowUp) + "\n")
	return sb.String()
}

func renderDeliberation(d core.Deliberation) string {
	var sb strings.Builder
	title := "Deliberation"
	if d.TeamKey != "" {
		title += " (" + d.TeamKey + ")"
	}
	sb.WriteString("\n## " + title + "\n\n")

	sb.WriteString("### Silent assessments\n\n")
	sb.WriteString("| Advisor | Specialty | Answer | Assessment |\n")
	sb.WriteString("|---------|-----------|--------|------------|\n")
	for _, a := range d.Assessments {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			a.AdvisorID, a.Specialty, orDash(a.Assessment.RecommendedAnswer), tableCell(a.Assessment.Assessment)))
	}
	sb.WriteString(fmt.Sprintf("\nInitial agreement: %s\n", percent(d.InitialCheck.AgreementRate)))

	if len(d.Turns) > 0 {
		sb.WriteString("\n### Discussion\n")
		round := 0
		for _, t := range d.Turns {
			if t.Round != round {
				round = t.Round
				sb.WriteString(fmt.Sprintf("\n#### Round %d\n\n", round))
			}
			topic := ""
			if t.Topic != "" {
				topic = " _(" + t.Topic + ")_"
			}
			sb.WriteString(fmt.Sprintf("- **%s**%s: %s\n", t.Specialty, topic, strings.TrimSpace(t.Message)))
		}
	}

	if len(d.Polls) > 0 {
		sb.WriteString("\n### Polls\n\n")
		sb.WriteString("| Round | Majority | Agreement |\n")
		sb.WriteString("|-------|----------|-----------|\n")
		for i, p := range d.Polls {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s |\n", i+1, orDash(p.Majority), percent(p.AgreementRate)))
		}
	}

	if len(d.Feedback) > 0 {
		sb.WriteString("\n### Moderator feedback\n\n")
		for _, f := range d.Feedback {
			sb.WriteString(fmt.Sprintf("- Round %d: %s\n", f.Round, strings.TrimSpace(f.Message)))
		}
	}

	if d.TeamKey != "" {
		sb.WriteString("\n### Team decision\n\n")
		sb.WriteString(fmt.Sprintf("%s (%s)\n", orDash(d.Decision.Choice), orDash(d.Decision.ConsensusStatus)))
	}
	return sb.String()
}

func tableCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	if len(s) > 160 {
		s = s[:157] + "..."
	}
	return orDash(s)
}
