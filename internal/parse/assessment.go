package parse

import (
	"regexp"
	"strings"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

const (
	secSituation      = "situation"
	secBackground     = "background"
	secAssessment     = "assessment"
	secRecommendation = "recommendation"
)

var sbarHeaders = []header{
	newHeader(secSituation, "SITUATION"),
	newHeader(secBackground, "BACKGROUND"),
	newHeader(secAssessment, "ASSESSMENT"),
	newHeader(secRecommendation, "RECOMMENDATION"),
}

// answerPatterns are tried in order against the upper-cased text. The
// first pattern with any valid match wins, and its last valid match is used.
var answerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ANSWER\s*(?:IS\s*)?:\s*\**\s*\(?([A-Z])\b`),
	regexp.MustCompile(`OPTION\s+\(?([A-Z])\b`),
	regexp.MustCompile(`\(([A-Z])\)`),
	regexp.MustCompile(`(?m)^\s*([A-Z])\)\s`),
	regexp.MustCompile(`CHOOSE\s+(?:OPTION\s+)?\(?([A-Z])\b`),
	regexp.MustCompile(`SELECT\s+(?:OPTION\s+)?\(?([A-Z])\b`),
}

// Assessment parses an SBAR response. letters are the valid option keys in
// tie-break order.
func Assessment(text string, letters []string) core.StructuredAssessment {
	scan := scanSections(text, sbarHeaders)
	return core.StructuredAssessment{
		Situation:         scan.text[secSituation],
		Background:        scan.text[secBackground],
		Assessment:        scan.text[secAssessment],
		Recommendation:    scan.text[secRecommendation],
		RecommendedAnswer: Answer(text, letters),
		Raw:               text,
	}
}

// Answer extracts the recommended option letter from free text, or "" when
// no option letter can be found.
func Answer(text string, letters []string) string {
	valid := letterSet(letters)
	upper := strings.ToUpper(text)

	for _, re := range answerPatterns {
		last := ""
		for _, m := range re.FindAllStringSubmatch(upper, -1) {
			if valid[m[1]] {
				last = m[1]
			}
		}
		if last != "" {
			return last
		}
	}
	return mostFrequentLetter(text, letters, valid)
}

// mostFrequentLetter counts standalone uppercase option letters in the
// original text. Counting in upper-cased text would turn every article
// "a" into a vote for A.
func mostFrequentLetter(text string, letters []string, valid map[string]bool) string {
	counts := make(map[string]int)
	for _, m := range standaloneLetter.FindAllStringSubmatch(text, -1) {
		if valid[m[1]] {
			counts[m[1]]++
		}
	}
	best, bestCount := "", 0
	for _, l := range letters {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}
