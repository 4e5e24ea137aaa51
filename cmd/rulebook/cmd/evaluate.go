package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebook/internal/rules"
	"github.com/solatis/rulebook/internal/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [measurements.json|-]",
	Short: "Evaluate a ruleset against measurements",
	Long: `Evaluate a ruleset against a JSON object of measurements keyed by
measurement label and print the matching findings in rule order.

Measurements are read from the named file, or stdin when omitted or "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("source", "", "rule set source (defaults to source.url, then --db-url)")
	evaluateCmd.Flags().String("rule-set", "", "ruleset id (default: first ruleset)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ruleSets, err := loadFromSource(cmd)
	if err != nil {
		return err
	}

	idFlag, _ := cmd.Flags().GetString("rule-set")
	rs, err := pickRuleSet(ruleSets, idFlag)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read measurements: %w", err)
	}

	findings, err := rules.Evaluate(rs, types.Payload(payload))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"ruleSetId": rs.ID,
		"findings":  findings,
	})
}

func pickRuleSet(ruleSets []types.RuleSet, id string) (types.RuleSet, error) {
	if id == "" {
		if len(ruleSets) == 0 {
			return types.RuleSet{}, types.ErrNoSelection
		}
		return ruleSets[0], nil
	}

	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return types.RuleSet{}, fmt.Errorf("invalid --rule-set %q: %w", id, err)
	}
	for _, rs := range ruleSets {
		if rs.ID == types.ID(n) {
			return rs, nil
		}
	}
	return types.RuleSet{}, fmt.Errorf("rule set %d: %w", n, types.ErrRuleSetNotFound)
}
