package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/medpanel/internal/config"
	"github.com/hugo-lorenzo-mato/medpanel/internal/specialty"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Long: `Create .medpanel/config.yaml with the built-in defaults. With --catalog
the built-in specialty catalog is also written next to it and referenced
from the configuration, so it can be edited and hot-reloaded by serve.`,
	RunE: runInit,
}

var (
	initForce   bool
	initCatalog bool
	initDir     string
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing files")
	initCmd.Flags().BoolVar(&initCatalog, "catalog", false, "also write the specialty catalog")
	initCmd.Flags().StringVar(&initDir, "dir", config.DefaultConfigDir, "configuration directory")
}

func runInit(cmd *cobra.Command, _ []string) error {
	configPath := filepath.Join(initDir, "config.yaml")
	catalogPath := filepath.Join(initDir, "specialties.yaml")

	if !initForce {
		for _, p := range []string{configPath, catalogPath} {
			if p == catalogPath && !initCatalog {
				continue
			}
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists, use --force to overwrite", p)
			}
		}
	}

	cfg, err := config.Default()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(initDir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", initDir, err)
	}

	out := cmd.OutOrStdout()
	if initCatalog {
		data, err := specialty.Default().Marshal()
		if err != nil {
			return err
		}
		if err := config.AtomicWrite(catalogPath, data); err != nil {
			return fmt.Errorf("writing catalog: %w", err)
		}
		cfg.Catalog.Path = catalogPath
		fmt.Fprintf(out, "Wrote %s\n", catalogPath)
	}

	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s\n", configPath)
	fmt.Fprintln(out, "Set the API key named in models.entries (OPENAI_API_KEY by default) and run 'medpanel doctor'.")
	return nil
}
