package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/medpanel/internal/clip"
	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/fsutil"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service/consult"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service/report"
	"github.com/hugo-lorenzo-mato/medpanel/internal/tui"
)

// Result formats for the final answer.
const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

var consultCmd = &cobra.Command{
	Use:   "consult [question]",
	Short: "Deliberate a multiple-choice clinical question",
	Long: `Run a consultation: classify the case, recruit a team and deliberate
until a final decision is reached.

The question comes from the arguments or from --input, a JSON file with
"question", "options" and optional "id" and "tier" fields ("-" reads stdin).
Options are given as --option A="Gastroesophageal reflux" and may be
repeated.`,
	Example: `  medpanel consult "55-year-old with crushing chest pain. Most likely diagnosis?" \
    -o A="Gastroesophageal reflux" -o B="Acute coronary syndrome" -o C="Costochondritis"
  medpanel consult --input case.json --tier high --output plain`,
	RunE: runConsult,
}

var (
	consultOptions []string
	consultInput   string
	consultID      string
	consultTier    string
	consultExplain bool
	consultOutput  string
	consultFormat  string
	consultCopy    bool
)

func init() {
	rootCmd.AddCommand(consultCmd)
	consultCmd.Flags().StringArrayVarP(&consultOptions, "option", "o", nil, "answer option as LETTER=text (repeatable)")
	consultCmd.Flags().StringVarP(&consultInput, "input", "i", "", "read the case from a JSON file (- for stdin)")
	consultCmd.Flags().StringVar(&consultID, "id", "", "case ID (generated when empty)")
	consultCmd.Flags().StringVarP(&consultTier, "tier", "t", "", "complexity tier: low, moderate, high (classified when empty)")
	consultCmd.Flags().BoolVar(&consultExplain, "explain", false, "ask for an explanation of the recruited team")
	consultCmd.Flags().StringVar(&consultOutput, "output", "", "progress output: tui, plain, json, quiet (default: detected)")
	consultCmd.Flags().StringVarP(&consultFormat, "format", "f", formatText, "final answer format: text, markdown, json")
	consultCmd.Flags().BoolVar(&consultCopy, "copy", false, "copy the decision to the clipboard")
}

// maxInputBytes bounds --input files.
const maxInputBytes = 1 << 20

// caseInput is the JSON shape accepted by --input.
type caseInput struct {
	ID       string            `json:"id"`
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Tier     string            `json:"tier"`
}

// loadRequest assembles a consultation request from the input file,
// arguments and flags. Arguments and flags override the file.
func loadRequest(args []string, inputPath string, optionFlags []string, id, tier string, stdin io.Reader) (consult.Request, error) {
	var in caseInput
	if inputPath != "" {
		data, err := readInput(inputPath, stdin)
		if err != nil {
			return consult.Request{}, err
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return consult.Request{}, core.ErrValidation(core.CodeInvalidOptions, fmt.Sprintf("parsing %s: %v", inputPath, err))
		}
	}

	req := consult.Request{ID: in.ID, Question: in.Question, Options: core.Options{}}
	for letter, text := range in.Options {
		req.Options[strings.ToUpper(strings.TrimSpace(letter))] = text
	}
	if q := joinArgs(args); q != "" {
		req.Question = q
	}
	if id != "" {
		req.ID = id
	}
	for _, opt := range optionFlags {
		letter, text, err := parseOption(opt)
		if err != nil {
			return consult.Request{}, err
		}
		req.Options[letter] = text
	}
	if tier == "" {
		tier = in.Tier
	}
	if tier != "" {
		t, err := core.ParseTier(tier)
		if err != nil {
			return consult.Request{}, err
		}
		req.Tier = t
	}
	if strings.TrimSpace(req.Question) == "" {
		return consult.Request{}, core.ErrValidation(core.CodeEmptyQuestion, "no question provided (pass it as an argument or with --input)")
	}
	return req, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := fsutil.ReadFileScoped(path, maxInputBytes)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}
	return data, nil
}

// parseOption splits "B=Acute coronary syndrome" into its letter and text.
func parseOption(s string) (string, string, error) {
	letter, text, ok := strings.Cut(s, "=")
	letter = strings.ToUpper(strings.TrimSpace(letter))
	text = strings.TrimSpace(text)
	if !ok || letter == "" || text == "" {
		return "", "", core.ErrValidation(core.CodeInvalidOptions, fmt.Sprintf("option %q must look like LETTER=text", s))
	}
	return letter, text, nil
}

// outputMode resolves the progress output mode and color support from
// flags and the environment.
func outputMode(flag string) (tui.OutputMode, bool, error) {
	d := tui.NewDetector().NoColor(noColor)
	switch {
	case quiet:
		d.ForceMode(tui.ModeQuiet)
	case flag != "":
		mode, err := tui.ParseOutputMode(flag)
		if err != nil {
			return mode, false, err
		}
		d.ForceMode(mode)
	}
	return d.Detect(), d.ShouldUseColor(), nil
}

func runConsult(cmd *cobra.Command, args []string) error {
	switch consultFormat {
	case formatText, formatMarkdown, formatJSON:
	default:
		return fmt.Errorf("unknown format %q (want text, markdown or json)", consultFormat)
	}
	mode, color, err := outputMode(consultOutput)
	if err != nil {
		return err
	}
	req, err := loadRequest(args, consultInput, consultOptions, consultID, consultTier, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{logToFile: mode == tui.ModeTUI})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := a.runner.NewCase(req)
	if err != nil {
		return err
	}
	explain := consultExplain || a.cfg.Panel.Explain
	run := func(ctx context.Context) (*core.CaseResult, error) {
		return a.runner.Run(ctx, c, explain)
	}

	var result *core.CaseResult
	if mode == tui.ModeTUI {
		result, err = tui.Watch(ctx, c, a.bus, run, nil, color)
	} else {
		result, err = runWithFallback(ctx, a, c, run, tui.NewFallbackOutput(cmd.ErrOrStderr(), mode, color))
	}
	if result == nil {
		return err
	}
	if err != nil {
		a.logger.Warn("consultation finished with errors", "case_id", c.ID, "error", err)
	}

	if mode != tui.ModeTUI || consultFormat != formatText {
		if perr := printResult(cmd.OutOrStdout(), result, consultFormat, mode == tui.ModeQuiet, color); perr != nil {
			return perr
		}
	}
	if consultCopy {
		res, cerr := clip.WriteAll(tui.DecisionMarkdown(result))
		if cerr != nil {
			a.logger.Warn("copying decision failed", "error", cerr)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), res.String())
		}
	}
	return err
}

// runWithFallback runs a case while out prints its events line by line.
func runWithFallback(ctx context.Context, a *app, c *core.Case, run tui.RunFunc, out *tui.FallbackOutput) (*core.CaseResult, error) {
	ch := a.bus.SubscribeForCase(c.ID)
	done := make(chan struct{})
	go func() {
		out.Consume(ch)
		close(done)
	}()

	result, err := run(ctx)
	a.bus.Unsubscribe(ch)
	<-done
	return result, err
}

// printResult writes the final answer. Quiet text output is a single line.
func printResult(w io.Writer, result *core.CaseResult, format string, quietMode, color bool) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case formatMarkdown:
		_, err := io.WriteString(w, report.RenderMarkdown(result))
		return err
	}
	if quietMode {
		choice := result.Decision.Choice
		if choice == "" {
			_, err := fmt.Fprintln(w, "no decision")
			return err
		}
		_, err := fmt.Fprintf(w, "%s) %s\n", choice, result.Case.Options[choice])
		return err
	}
	width, _ := tui.TerminalSize()
	_, err := io.WriteString(w, tui.RenderResult(result, width, color))
	return err
}
