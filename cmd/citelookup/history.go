package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/citation-lookup-service/internal/app"
	"github.com/helixir/citation-lookup-service/internal/domain"
	"github.com/helixir/citation-lookup-service/internal/repository"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded lookups, newest first",
	Long: `History reads the lookup history written by the database artifact sink.
The database sink must have been enabled when the lookups ran.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("status", "", "only lookups with this outcome (no_matches, no_citing_authors, complete)")
	historyCmd.Flags().String("paper-id", "", "only lookups that resolved to this Semantic Scholar paper ID")
	historyCmd.Flags().Int("limit", 20, "maximum number of lookups to print")
	historyCmd.Flags().Int("offset", 0, "number of lookups to skip")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	paperID, _ := cmd.Flags().GetString("paper-id")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	filter := repository.LookupFilter{
		Status:  domain.LookupStatus(status),
		PaperID: paperID,
		Limit:   limit,
		Offset:  offset,
	}
	if err := filter.Validate(); err != nil {
		return err
	}

	cfg.Database.MigrationAutoRun = false
	db, err := app.OpenDatabase(cmd.Context(), &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := repository.NewPgLookupRepository(db).List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list lookups: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}
