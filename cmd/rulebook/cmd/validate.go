package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebook/internal/interchange"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file|-]",
	Short: "Check that import text would be accepted",
	Long: `Check that a file holds a JSON array of rulesets the editor would import.
Rejected input prints the same message the editor shows.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	ruleSets, err := interchange.ParseImport(data)
	if err != nil {
		var importErr *interchange.ImportError
		if errors.As(err, &importErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), importErr.Message)
		}
		return err
	}

	rules := 0
	for _, rs := range ruleSets {
		rules += len(rs.Rules)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "valid: %d rulesets, %d rules\n", len(ruleSets), rules)
	return nil
}
