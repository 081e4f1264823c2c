package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/medpanel/internal/config"
	"github.com/hugo-lorenzo-mato/medpanel/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, models and host resources",
	Long: `Verify that the configuration is valid, every configured model backend
is reachable and the host has the resources to run local models.`,
	RunE: runDoctor,
}

var doctorGPU bool

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorGPU, "gpu", false, "also inventory GPUs (can be slow)")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Validating configuration...")
	issues := validateConfig()
	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(out, "  ✗ %s\n", issue)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Edit .medpanel/config.yaml to fix the issues above.")
		return errors.New("configuration check failed")
	}
	fmt.Fprintln(out, "  ✓ Configuration valid")
	fmt.Fprintln(out)

	a, err := newApp(appOptions{withoutStore: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	fmt.Fprintln(out, "Checking models...")
	modelsOK := checkModels(out, a.models.Availability(), a.cfg.Models)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Checking host resources...")
	collector := diagnostics.NewCollector(doctorGPU)
	preflight := diagnostics.NewPreflight(diagnostics.PreflightConfig{
		Enabled:         true,
		MinFreeMemoryMB: a.cfg.Preflight.MinFreeMemoryMB,
		MaxLoadPerCPU:   a.cfg.Preflight.MaxLoadPerCPU,
	}, collector)
	result := preflight.Run()
	for _, line := range result.Metrics.Summary() {
		fmt.Fprintf(out, "  %s\n", line)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "  ⚠ %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  ✗ %s\n", e)
	}
	fmt.Fprintln(out)

	if !modelsOK {
		return errors.New("default model unavailable")
	}
	if !result.OK {
		fmt.Fprintln(out, "Models available, but local model subprocesses will be refused until resources free up")
		return nil
	}
	fmt.Fprintln(out, "All checks passed")
	return nil
}

// validateConfig loads the configuration and returns every validation
// problem found.
func validateConfig() []string {
	cfg, err := config.NewLoader().WithConfigFile(cfgFile).Load()
	if err != nil {
		return []string{fmt.Sprintf("Cannot load config: %v", err)}
	}
	if err := config.ValidateConfig(cfg); err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			issues := make([]string, 0, len(verrs))
			for _, verr := range verrs {
				issues = append(issues, verr.Error())
			}
			return issues
		}
		return []string{err.Error()}
	}
	return nil
}

// checkModels prints one line per model. Only the default model is
// required; the others are reported as optional.
func checkModels(out io.Writer, availability map[string]error, cfg config.ModelsConfig) bool {
	ok := true
	for _, name := range sortedKeys(availability) {
		err := availability[name]
		switch {
		case err == nil:
			fmt.Fprintf(out, "  ✓ %s\n", name)
		case name == cfg.Default:
			ok = false
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, err)
		default:
			fmt.Fprintf(out, "  ○ %s (optional): %v\n", name, err)
		}
	}
	if _, found := availability[cfg.Default]; !found {
		ok = false
		fmt.Fprintf(out, "  ✗ default model %q is not configured\n", cfg.Default)
	}
	if key := cfg.Entries[cfg.Default].APIKeyEnv; key != "" && os.Getenv(key) == "" {
		fmt.Fprintf(out, "  ⚠ %s is not set\n", key)
	}
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
