package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

const (
	secVote       = "vote"
	secConfidence = "confidence"
	secRationale  = "rationale"
)

var voteHeaders = []header{
	newHeader(secVote, "VOTE", "FINAL VOTE"),
	newHeader(secConfidence, "CONFIDENCE"),
	newHeader(secRationale, "RATIONALE"),
}

var numberRe = regexp.MustCompile(`(\d+(?:\.\d+)?|\.\d+)\s*(%)?`)

// Vote parses a VOTE/CONFIDENCE/RATIONALE response.
func Vote(text string, letters []string) core.Vote {
	scan := scanSections(text, voteHeaders)
	valid := letterSet(letters)

	v := core.Vote{Confidence: core.DefaultConfidence, Raw: text}
	for _, line := range scan.lines[secVote] {
		if l := firstLetter(line, valid); l != "" {
			v.Choice = l
		}
	}
	if lines := scan.lines[secConfidence]; len(lines) > 0 {
		v.Confidence = Confidence(lines[len(lines)-1])
	}
	if lines := scan.lines[secRationale]; len(lines) > 0 {
		v.Rationale = lines[len(lines)-1]
	}
	return v
}

// Confidence reads a confidence value in [0,1]. Percentages and values on a
// 0-100 scale are rescaled; anything unreadable yields the default.
func Confidence(s string) float64 {
	m := numberRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return core.DefaultConfidence
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return core.DefaultConfidence
	}
	if m[2] == "%" || (f > 1 && f <= 100) {
		f /= 100
	}
	if f < 0 || f > 1 {
		return core.DefaultConfidence
	}
	return f
}
