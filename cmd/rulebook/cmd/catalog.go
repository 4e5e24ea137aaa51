package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebook/internal/core/db"
	"github.com/solatis/rulebook/internal/core/logging"
	"github.com/solatis/rulebook/internal/core/source"
	"github.com/solatis/rulebook/internal/interchange"
	"github.com/solatis/rulebook/internal/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the ruleset catalog database",
}

var catalogLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Replace the catalog with the rulesets in a file",
	Long: `Replace the catalog with the rulesets in a file.

The file is either an import array ([...]) or a bulk document
({"rule_sets": [...]}, JSON or YAML). The replacement is atomic.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogLoad,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogLoadCmd)
}

func runCatalogLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url, err := requireDatabaseURL(cfg)
	if err != nil {
		return err
	}

	ruleSets, err := readRuleSetsFile(cmd, args[0])
	if err != nil {
		return err
	}

	database, err := db.Open(cmd.Context(), url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	catalog, err := db.NewCatalog(database)
	if err != nil {
		return err
	}
	if err := catalog.ReplaceRuleSets(cmd.Context(), ruleSets); err != nil {
		return err
	}

	logger := logging.Component("catalog")
	logger.Info().
		Str("file", args[0]).
		Int("rule_sets", len(ruleSets)).
		Msg("catalog replaced")
	return nil
}

// readRuleSetsFile accepts an import array or a bulk document.
func readRuleSetsFile(cmd *cobra.Command, path string) ([]types.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		return interchange.ParseImport(data)
	}
	return (&source.FileSource{Path: path}).LoadRuleSets(cmd.Context())
}
