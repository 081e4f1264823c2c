package recruit

import (
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

// Describe renders a recruitment as plain text, one line per team.
func Describe(rec core.Recruitment) string {
	switch {
	case rec.Solo != nil:
		return "- Solo: " + rec.Solo.Specialty
	case rec.Panel != nil:
		return "- Panel: " + describeTeam(*rec.Panel)
	}
	lines := make([]string, 0, len(rec.SubTeams))
	for _, st := range rec.SubTeams {
		lines = append(lines, fmt.Sprintf("- %s: %s", st.Name, describeTeam(st.Team)))
	}
	return strings.Join(lines, "\n")
}

func describeTeam(t core.Team) string {
	parts := make([]string, 0, t.Size())
	parts = append(parts, t.Lead.Specialty+" (lead)")
	for _, m := range t.Members {
		parts = append(parts, m.Specialty)
	}
	return strings.Join(parts, ", ")
}
