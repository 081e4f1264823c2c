// Package clip copies consultation output to the user's clipboard, falling
// back to a terminal escape sequence and finally to a temp file.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is the mechanism that made the text available.
type Method string

const (
	MethodNative Method = "native"
	MethodOSC52  Method = "osc52"
	MethodFile   Method = "file"
)

// Result reports how the text was copied. FilePath is only set for
// MethodFile.
type Result struct {
	Method   Method
	FilePath string
}

// String describes the result for a status line.
func (r Result) String() string {
	switch r.Method {
	case MethodNative:
		return "copied to clipboard"
	case MethodOSC52:
		return "copied to clipboard (terminal)"
	case MethodFile:
		return "clipboard unavailable, saved to " + r.FilePath
	}
	return "not copied"
}

// Terminals can drop or block large OSC52 payloads.
const osc52LimitBytes = 100_000

// Copier copies text with the native clipboard first.
type Copier struct {
	// Terminal receives the OSC52 sequence. Stderr keeps it out of the
	// Bubble Tea renderer on stdout.
	Terminal *os.File
	// TempDir holds the file fallback. Empty means os.TempDir().
	TempDir string

	native func(string) error
	osc52  func(io.Writer, string) error
	isTTY  func(*os.File) bool
}

// New returns a Copier writing escape sequences to stderr.
func New() *Copier {
	return &Copier{
		Terminal: os.Stderr,
		native:   atotto.WriteAll,
		osc52:    writeOSC52,
		isTTY:    func(f *os.File) bool { return term.IsTerminal(int(f.Fd())) },
	}
}

// WriteAll copies text using the first method that works.
func WriteAll(text string) (Result, error) {
	return New().Copy(text)
}

// Copy tries the native clipboard, then OSC52, then a temp file.
func (c *Copier) Copy(text string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}
	if c.native != nil {
		if err := c.native(text); err == nil {
			return Result{Method: MethodNative}, nil
		}
	}
	if err := c.copyOSC52(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := c.writeTempFile(text)
	if err != nil {
		return Result{}, fmt.Errorf("saving clipboard fallback: %w", err)
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

func (c *Copier) copyOSC52(text string) error {
	if c.osc52 == nil || c.Terminal == nil {
		return errors.New("no terminal")
	}
	if c.isTTY != nil && !c.isTTY(c.Terminal) {
		return errors.New("not a terminal")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}
	return c.osc52(c.Terminal, text)
}

func writeOSC52(w io.Writer, text string) error {
	seq := osc52.New(text).Limit(osc52LimitBytes)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("STY") != "" {
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(w)
	return err
}

func (c *Copier) writeTempFile(text string) (path string, err error) {
	f, err := os.CreateTemp(c.TempDir, "medpanel-decision-*.md")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		_ = f.Close()
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
