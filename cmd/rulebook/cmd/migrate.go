package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebook/internal/core/db"
	"github.com/solatis/rulebook/internal/core/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply catalog database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "list migrations without applying them")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url, err := requireDatabaseURL(cfg)
	if err != nil {
		return err
	}

	database, err := db.Open(cmd.Context(), url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	logger := logging.Component("migrate")
	migrator, err := db.NewMigrator(database, logger)
	if err != nil {
		return err
	}

	if statusOnly, _ := cmd.Flags().GetBool("status"); !statusOnly {
		applied, err := migrator.Up(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info().Int("applied", applied).Msg("catalog schema up to date")
	}

	statuses, err := migrator.Status(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tAPPLIED\tAPPLIED AT")
	for _, s := range statuses {
		appliedAt := "-"
		if s.AppliedAt != nil {
			appliedAt = s.AppliedAt.Format("2006-01-02T15:04:05Z")
		}
		fmt.Fprintf(w, "%s\t%t\t%s\n", s.ID, s.Applied, appliedAt)
	}
	return w.Flush()
}
