package logging

import "regexp"

const redactedMark = "[REDACTED]"

var credentialPatterns = []string{
	`sk-ant-[a-zA-Z0-9-]{40,}`,
	`sk-[A-Za-z0-9_-]{20,}`,
	`AIza[a-zA-Z0-9_-]{35}`,
	`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
	`(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{16,}`,
	`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`,
}

// Case text sometimes carries identifiers pasted from a chart.
var identifierPatterns = []string{
	`\b\d{3}-\d{2}-\d{4}\b`,
	`(?i)\bMRN[:#\s]*\d{5,}\b`,
	`\(?\b\d{3}\)?[-.\s]\d{3}[-.]\d{4}\b`,
}

// Redactor masks credentials and, optionally, patient identifiers.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor builds a redactor. Credentials are always masked.
func NewRedactor(identifiers bool) *Redactor {
	src := append([]string{}, credentialPatterns...)
	if identifiers {
		src = append(src, identifierPatterns...)
	}
	r := &Redactor{patterns: make([]*regexp.Regexp, 0, len(src))}
	for _, p := range src {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	return r
}

// Redact returns s with every sensitive match replaced.
func (r *Redactor) Redact(s string) string {
	for _, p := range r.patterns {
		s = p.ReplaceAllString(s, redactedMark)
	}
	return s
}

// AddPattern registers an extra expression.
func (r *Redactor) AddPattern(expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}
