package tui

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// OutputMode selects how a running case is shown.
type OutputMode int

const (
	// ModeTUI uses the live deliberation view.
	ModeTUI OutputMode = iota
	// ModePlain prints one line per event.
	ModePlain
	// ModeJSON writes one JSON event per line.
	ModeJSON
	// ModeQuiet prints only the final decision.
	ModeQuiet
)

var modeNames = map[OutputMode]string{
	ModeTUI:   "tui",
	ModePlain: "plain",
	ModeJSON:  "json",
	ModeQuiet: "quiet",
}

func (m OutputMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseOutputMode parses a --output value.
func ParseOutputMode(s string) (OutputMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for mode, name := range modeNames {
		if name == s {
			return mode, nil
		}
	}
	return ModePlain, fmt.Errorf("unknown output mode %q (want tui, plain, json or quiet)", s)
}

// Detector picks an output mode from flags, environment and the terminal.
type Detector struct {
	forceMode *OutputMode
	noColor   bool
	getenv    func(string) string
	isTTY     func() bool
}

// NewDetector returns a detector that inspects the process environment and
// stdout.
func NewDetector() *Detector {
	return &Detector{
		getenv: os.Getenv,
		isTTY:  func() bool { return term.IsTerminal(int(os.Stdout.Fd())) },
	}
}

// ForceMode overrides detection.
func (d *Detector) ForceMode(mode OutputMode) *Detector {
	d.forceMode = &mode
	return d
}

// NoColor disables color output.
func (d *Detector) NoColor(disable bool) *Detector {
	d.noColor = disable
	return d
}

// Detect returns the forced mode, then MEDPANEL_OUTPUT, then plain output in
// CI, on dumb terminals or when stdout is redirected, and the live view
// otherwise.
func (d *Detector) Detect() OutputMode {
	if d.forceMode != nil {
		return *d.forceMode
	}
	if v := d.getenv("MEDPANEL_OUTPUT"); v != "" {
		if mode, err := ParseOutputMode(v); err == nil {
			return mode
		}
	}
	if d.getenv("CI") != "" || d.getenv("GITHUB_ACTIONS") != "" {
		return ModePlain
	}
	if d.getenv("TERM") == "dumb" || !d.isTTY() {
		return ModePlain
	}
	return ModeTUI
}

// ShouldUseColor honors --no-color, NO_COLOR and TERM=dumb, and only
// colors terminals.
func (d *Detector) ShouldUseColor() bool {
	if d.noColor || d.getenv("NO_COLOR") != "" || d.getenv("TERM") == "dumb" {
		return false
	}
	return d.isTTY()
}

// TerminalSize returns the stdout dimensions, or 80x24 when stdout is not
// a terminal.
func TerminalSize() (width, height int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80, 24
	}
	return w, h
}
