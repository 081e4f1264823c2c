package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/recruit"
)

// DecisionMarkdown renders the outcome of a case as a short markdown
// document: the chosen option, consensus, rationale and the team.
func DecisionMarkdown(r *core.CaseResult) string {
	var sb strings.Builder
	d := r.Decision
	if d.Choice == "" {
		sb.WriteString("## No decision reached\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("## %s) %s\n\n", d.Choice, r.Case.Options[d.Choice]))
	}
	if d.ConsensusStatus != "" {
		sb.WriteString(fmt.Sprintf("*%s*", d.ConsensusStatus))
		if d.EarlyConsensus {
			sb.WriteString(" *(from the silent assessments)*")
		}
		sb.WriteString("\n\n")
	}
	if d.Rationale != "" {
		sb.WriteString("**Rationale.** " + strings.TrimSpace(d.Rationale) + "\n\n")
	}
	if d.MinorityConsideration != "" {
		sb.WriteString("**Minority view.** " + strings.TrimSpace(d.MinorityConsideration) + "\n\n")
	}
	if d.FollowUp != "" {
		sb.WriteString("**Follow-up.** " + strings.TrimSpace(d.FollowUp) + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("### Team (%s)\n\n", r.Tier))
	sb.WriteString(recruit.Describe(r.Recruitment) + "\n")
	if r.Explanation != "" {
		sb.WriteString("\n" + r.Explanation + "\n")
	}
	return sb.String()
}

// RenderMarkdown renders md for a terminal of the given width. Without color
// the "notty" style is used.
func RenderMarkdown(md string, width int, color bool) (string, error) {
	style := "notty"
	if color {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// RenderResult renders the decision of r, falling back to the raw markdown
// when rendering fails.
func RenderResult(r *core.CaseResult, width int, color bool) string {
	md := DecisionMarkdown(r)
	out, err := RenderMarkdown(md, width, color)
	if err != nil {
		return md
	}
	return out
}
