package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/specialty"
)

var specialtiesCmd = &cobra.Command{
	Use:     "specialties",
	Aliases: []string{"specialty"},
	Short:   "Browse the specialty catalog",
	RunE:    runSpecialtiesList,
}

var specialtiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List specialties in catalog order",
	RunE:  runSpecialtiesList,
}

var specialtiesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a specialty's expertise and keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSpecialtiesShow,
}

var specialtiesRankCmd = &cobra.Command{
	Use:   "rank <question>",
	Short: "Rank specialties by relevance to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSpecialtiesRank,
}

var (
	specialtiesJSON  bool
	specialtiesLimit int
)

func init() {
	rootCmd.AddCommand(specialtiesCmd)
	specialtiesCmd.AddCommand(specialtiesListCmd, specialtiesShowCmd, specialtiesRankCmd)
	specialtiesCmd.PersistentFlags().BoolVar(&specialtiesJSON, "json", false, "output as JSON")
	specialtiesRankCmd.Flags().IntVarP(&specialtiesLimit, "limit", "n", 10, "number of specialties to show")
}

// catalogFromConfig loads the configured catalog without building the rest
// of the application.
func catalogFromConfig() (*specialty.Catalog, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return loadCatalog(cfg.Catalog.Path)
}

func runSpecialtiesList(cmd *cobra.Command, _ []string) error {
	catalog, err := catalogFromConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if specialtiesJSON {
		return writeJSON(out, catalog.All())
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSPECIALTY\tCATEGORY\tKEYWORDS")
	for i, s := range catalog.All() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i+1, s.Name, specialty.CategoryOf(s.Name), len(s.Keywords))
	}
	return w.Flush()
}

func runSpecialtiesShow(cmd *cobra.Command, args []string) error {
	catalog, err := catalogFromConfig()
	if err != nil {
		return err
	}
	name := joinArgs(args)
	s, ok := catalog.Get(name)
	if !ok {
		// Fall back to fuzzy matching so "cardio" finds "Cardiologist".
		matches := catalog.Find(name)
		if len(matches) == 0 {
			return core.ErrNotFound("specialty", name)
		}
		s, _ = catalog.Get(matches[0])
	}

	out := cmd.OutOrStdout()
	if specialtiesJSON {
		return writeJSON(out, s)
	}
	fmt.Fprintf(out, "%s (%s, position %d)\n", s.Name, specialty.CategoryOf(s.Name), catalog.Position(s.Name)+1)
	fmt.Fprintf(out, "  Expertise: %s\n", s.Expertise)
	fmt.Fprintf(out, "  Keywords:  %s\n", strings.Join(s.Keywords, ", "))
	return nil
}

func runSpecialtiesRank(cmd *cobra.Command, args []string) error {
	catalog, err := catalogFromConfig()
	if err != nil {
		return err
	}
	ranked := specialty.NewScorer(catalog).Rank(joinArgs(args))
	if specialtiesLimit > 0 && len(ranked) > specialtiesLimit {
		ranked = ranked[:specialtiesLimit]
	}

	out := cmd.OutOrStdout()
	if specialtiesJSON {
		return writeJSON(out, ranked)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPECIALTY\tSCORE")
	for _, r := range ranked {
		fmt.Fprintf(w, "%s\t%.2f\n", r.Specialty, r.Score)
	}
	return w.Flush()
}
