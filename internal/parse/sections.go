// Package parse turns free-form advisor output into typed records. Every
// function is pure and never fails; unrecognized input yields defaults.
package parse

import (
	"regexp"
	"strings"
)

// header matches a labelled line such as "SITUATION: ..." and tolerates
// markdown decoration and list numbering in front of the label.
type header struct {
	key string
	re  *regexp.Regexp
}

func newHeader(key string, labels ...string) header {
	alts := make([]string, len(labels))
	for i, l := range labels {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(l), " ", `[\s_-]+`)
	}
	expr := `(?i)^[\s*#>_\-\d.)]*(?:` + strings.Join(alts, "|") + `)[\s*_]*:(.*)$`
	return header{key: key, re: regexp.MustCompile(expr)}
}

// sectionScan is the result of a line scan.
type sectionScan struct {
	// text holds each section's seed plus continuation lines, space-joined.
	text map[string]string
	// lines holds the same-line remainder of every header occurrence.
	lines map[string][]string
}

// scanSections walks text line by line. A header opens its section and
// seeds it with the text after the colon; following non-header lines are
// appended until the next header. A repeated header restarts its section.
func scanSections(text string, headers []header) sectionScan {
	out := sectionScan{text: make(map[string]string), lines: make(map[string][]string)}
	current := ""
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if key, rest, ok := matchHeader(line, headers); ok {
			current = key
			out.text[key] = rest
			out.lines[key] = append(out.lines[key], rest)
			continue
		}
		if current == "" || line == "" {
			continue
		}
		if out.text[current] == "" {
			out.text[current] = line
		} else {
			out.text[current] += " " + line
		}
	}
	return out
}

func matchHeader(line string, headers []header) (string, string, bool) {
	for _, h := range headers {
		if m := h.re.FindStringSubmatch(line); m != nil {
			return h.key, cleanRemainder(m[1]), true
		}
	}
	return "", "", false
}

func cleanRemainder(s string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), "*_"))
}

var standaloneLetter = regexp.MustCompile(`\b([A-Z])\b`)

// firstLetter picks the option letter from a labelled line: the first
// standalone valid letter, else the first valid uppercase character.
// Lowercase prose never yields a choice.
func firstLetter(s string, valid map[string]bool) string {
	for _, m := range standaloneLetter.FindAllStringSubmatch(s, -1) {
		if valid[m[1]] {
			return m[1]
		}
	}
	if bare := strings.ToUpper(strings.Trim(s, " \t*_()[].")); valid[bare] {
		return bare
	}
	for _, r := range s {
		if valid[string(r)] {
			return string(r)
		}
	}
	return ""
}

func letterSet(letters []string) map[string]bool {
	set := make(map[string]bool, len(letters))
	for _, l := range letters {
		set[l] = true
	}
	return set
}
