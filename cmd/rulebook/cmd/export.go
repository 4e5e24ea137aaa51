package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebook/internal/core/source"
	"github.com/solatis/rulebook/internal/interchange"
	"github.com/solatis/rulebook/internal/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export rulesets from a source",
	Long: `Export rulesets from a source (http(s) URL, catalog database URL or
file path) as a JSON array, a YAML list or a bulk document.

Unlike serve, export fails when the source cannot be read.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("source", "", "rule set source (defaults to source.url, then --db-url)")
	exportCmd.Flags().String("format", "json", "output format (json, yaml, document)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("format")
	format, err := interchange.ParseFormat(name)
	if err != nil {
		return err
	}

	ruleSets, err := loadFromSource(cmd)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	return interchange.Export(w, ruleSets, format)
}

// loadFromSource reads rulesets from --source, source.url or the catalog database.
// Errors are returned rather than replaced by the sample dataset.
func loadFromSource(cmd *cobra.Command) ([]types.RuleSet, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	location, _ := cmd.Flags().GetString("source")
	if location == "" {
		location = cfg.Source.URL
	}
	if location == "" {
		location = cfg.Database.URL
	}
	if location == "" {
		return nil, fmt.Errorf("--source required (or set RB_SOURCE_URL)")
	}

	src, err := source.Open(location)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if cfg.Source.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Source.Timeout)
		defer cancel()
	}
	return src.LoadRuleSets(ctx)
}
