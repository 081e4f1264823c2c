package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/medpanel/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service/report"
	"github.com/hugo-lorenzo-mato/medpanel/internal/tui"
)

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Inspect stored consultations",
	RunE:  runCasesList,
}

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored cases, newest first",
	RunE:  runCasesList,
}

var casesShowCmd = &cobra.Command{
	Use:   "show <case-id>",
	Short: "Show a stored case",
	Args:  cobra.ExactArgs(1),
	RunE:  runCasesShow,
}

var casesDeleteCmd = &cobra.Command{
	Use:   "delete <case-id>",
	Short: "Delete a stored case",
	Args:  cobra.ExactArgs(1),
	RunE:  runCasesDelete,
}

var casesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-specialty participation across stored cases",
	RunE:  runCasesStats,
}

var (
	casesLimit  int
	casesOffset int
	casesTier   string
	casesJSON   bool
	casesFormat string
)

func init() {
	rootCmd.AddCommand(casesCmd)
	casesCmd.AddCommand(casesListCmd, casesShowCmd, casesDeleteCmd, casesStatsCmd)
	casesCmd.PersistentFlags().BoolVar(&casesJSON, "json", false, "output as JSON")
	for _, c := range []*cobra.Command{casesCmd, casesListCmd} {
		c.Flags().IntVarP(&casesLimit, "limit", "n", store.DefaultListLimit, "maximum number of cases")
		c.Flags().IntVar(&casesOffset, "offset", 0, "number of cases to skip")
		c.Flags().StringVarP(&casesTier, "tier", "t", "", "only cases of this tier")
	}
	casesShowCmd.Flags().StringVarP(&casesFormat, "format", "f", formatText, "output format: text, markdown, json")
}

// withStore opens the application and hands its case store to fn.
func withStore(fn func(a *app, s *store.SQLiteStore) error) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	s, err := a.requireStore()
	if err != nil {
		return err
	}
	return fn(a, s)
}

func runCasesList(cmd *cobra.Command, _ []string) error {
	opts := store.ListOptions{Limit: casesLimit, Offset: casesOffset}
	if casesTier != "" {
		tier, err := core.ParseTier(casesTier)
		if err != nil {
			return err
		}
		opts.Tier = tier
	}
	return withStore(func(_ *app, s *store.SQLiteStore) error {
		cases, err := s.List(cmd.Context(), opts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if casesJSON {
			return writeJSON(out, cases)
		}
		if len(cases) == 0 {
			fmt.Fprintln(out, "No cases stored.")
			return nil
		}
		return printCaseTable(out, cases)
	})
}

func printCaseTable(out io.Writer, cases []core.CaseSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIER\tANSWER\tAGREEMENT\tADVISORS\tTOKENS\tCREATED\tQUESTION")
	for _, c := range cases {
		choice := c.Choice
		if choice == "" {
			choice = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%d\t%d\t%s\t%s\n",
			c.ID, c.Tier, choice, c.AgreementRate*100, c.Advisors, c.TotalTokens,
			c.CreatedAt.Local().Format(time.DateTime), truncateQuestion(c.Question, 60))
	}
	return w.Flush()
}

func truncateQuestion(q string, n int) string {
	r := []rune(strings.Join(strings.Fields(q), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}

func runCasesShow(cmd *cobra.Command, args []string) error {
	return withStore(func(_ *app, s *store.SQLiteStore) error {
		result, err := s.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case casesJSON || casesFormat == formatJSON:
			return writeJSON(out, result)
		case casesFormat == formatMarkdown:
			_, err = io.WriteString(out, report.RenderMarkdown(result))
			return err
		}
		_, color, _ := outputMode("")
		width, _ := tui.TerminalSize()
		rendered, err := tui.RenderMarkdown(report.RenderMarkdown(result), width, color)
		if err != nil {
			rendered = report.RenderMarkdown(result)
		}
		_, err = io.WriteString(out, rendered)
		return err
	})
}

func runCasesDelete(cmd *cobra.Command, args []string) error {
	return withStore(func(_ *app, s *store.SQLiteStore) error {
		if err := s.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted case %s\n", args[0])
		return nil
	})
}

func runCasesStats(cmd *cobra.Command, _ []string) error {
	return withStore(func(_ *app, s *store.SQLiteStore) error {
		stats, err := s.Stats(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if casesJSON {
			return writeJSON(out, stats)
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SPECIALTY\tASSESSMENTS\tAGREED\tRATE")
		for _, st := range stats {
			rate := 0.0
			if st.Assessments > 0 {
				rate = float64(st.Agreed) / float64(st.Assessments) * 100
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\n", st.Specialty, st.Assessments, st.Agreed, rate)
		}
		return w.Flush()
	})
}
