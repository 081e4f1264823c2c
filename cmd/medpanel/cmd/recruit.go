package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/recruit"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
)

var recruitCmd = &cobra.Command{
	Use:   "recruit <question>",
	Short: "Show the team a question would be given",
	Long: `Recruit a team for a question without deliberating. With --tier the
team is formed locally; otherwise the utility model classifies the
question first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecruit,
}

var (
	recruitTier    string
	recruitExplain bool
	recruitJSON    bool
)

func init() {
	rootCmd.AddCommand(recruitCmd)
	recruitCmd.Flags().StringVarP(&recruitTier, "tier", "t", "", "complexity tier: low, moderate, high (classified when empty)")
	recruitCmd.Flags().BoolVar(&recruitExplain, "explain", false, "ask the utility model to explain the team")
	recruitCmd.Flags().BoolVar(&recruitJSON, "json", false, "output as JSON")
}

func runRecruit(cmd *cobra.Command, args []string) error {
	question := joinArgs(args)
	var tier core.Tier
	if recruitTier != "" {
		t, err := core.ParseTier(recruitTier)
		if err != nil {
			return err
		}
		tier = t
	}

	a, err := newApp(appOptions{withoutStore: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	rec, err := a.runner.Recruit(cmd.Context(), question, tier)
	if err != nil {
		return err
	}
	var explanation string
	if recruitExplain {
		explanation = a.runner.Explain(cmd.Context(), question, rec, service.NewUsageCollector())
	}

	out := cmd.OutOrStdout()
	if recruitJSON {
		return writeJSON(out, struct {
			core.Recruitment
			Explanation string `json:"explanation,omitempty"`
		}{rec, explanation})
	}

	fmt.Fprintf(out, "Tier: %s\n\n%s\n", rec.Tier, recruit.Describe(rec))
	if explanation != "" {
		fmt.Fprintf(out, "\n%s\n", explanation)
	}
	return nil
}
