package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	MinOptions = 2
	MaxOptions = 5
)

// Options maps a single uppercase letter to the option text.
type Options map[string]string

// Letters returns the option keys in letter order. Letter order is the
// deterministic tie-break used everywhere a tally is resolved.
func (o Options) Letters() []string {
	letters := make([]string, 0, len(o))
	for k := range o {
		letters = append(letters, k)
	}
	sort.Strings(letters)
	return letters
}

// Has reports whether letter is a valid key.
func (o Options) Has(letter string) bool {
	_, ok := o[letter]
	return ok
}

// Format renders the options one per line as "A) text".
func (o Options) Format() string {
	var b strings.Builder
	for _, l := range o.Letters() {
		fmt.Fprintf(&b, "%s) %s\n", l, o[l])
	}
	return strings.TrimRight(b.String(), "\n")
}

// Case is one multi-choice diagnostic question put to the panel.
type Case struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   Options   `json:"options"`
	Tier      Tier      `json:"tier,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Briefing carries notes handed over from earlier sub-teams.
	Briefing []string `json:"briefing,omitempty"`
}

// Validate checks the question and option set. An empty tier is allowed and
// means the tier is classified before recruitment.
func (c *Case) Validate() error {
	if strings.TrimSpace(c.Question) == "" {
		return ErrValidation(CodeEmptyQuestion, "question is empty")
	}
	if n := len(c.Options); n < MinOptions || n > MaxOptions {
		return ErrValidation(CodeInvalidOptions,
			fmt.Sprintf("expected %d-%d options, got %d", MinOptions, MaxOptions, n)).
			WithDetail("count", n)
	}
	for k, v := range c.Options {
		if len(k) != 1 || k[0] < 'A' || k[0] > 'Z' {
			return ErrValidation(CodeInvalidOptions,
				fmt.Sprintf("option key %q must be a single uppercase letter", k))
		}
		if strings.TrimSpace(v) == "" {
			return ErrValidation(CodeInvalidOptions, fmt.Sprintf("option %s has no text", k))
		}
	}
	if c.Tier != "" && !c.Tier.Valid() {
		return ErrValidation(CodeInvalidTier, fmt.Sprintf("unknown complexity tier %q", c.Tier))
	}
	return nil
}

// DefaultChoice is the preference assumed for an advisor that never
// expressed one.
func (c *Case) DefaultChoice() string {
	letters := c.Options.Letters()
	if len(letters) == 0 {
		return ""
	}
	return letters[0]
}

// WithBriefing returns a copy of c with extra briefing notes appended.
func (c Case) WithBriefing(notes ...string) *Case {
	c.Briefing = append(append([]string{}, c.Briefing...), notes...)
	return &c
}
