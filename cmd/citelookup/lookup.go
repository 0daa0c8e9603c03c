package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/citation-lookup-service/internal/app"
	"github.com/helixir/citation-lookup-service/internal/citations"
	"github.com/helixir/citation-lookup-service/internal/domain"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve a paper title and list the authors citing it",
	Long: `Lookup matches --title against Semantic Scholar, picks the candidate
written by --first/--last when given, fetches its citations and prints the
citing authors with their affiliations as JSON.

Enabled artifact sinks receive the result exactly as they do for the HTTP
endpoint; pass --no-artifacts to skip them.`,
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().String("title", "", "paper title to match (required)")
	lookupCmd.Flags().String("first", "", "first name of one of the paper's authors")
	lookupCmd.Flags().String("last", "", "last name of one of the paper's authors")
	lookupCmd.Flags().Bool("no-artifacts", false, "do not persist the result")
	_ = lookupCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	first, _ := cmd.Flags().GetString("first")
	last, _ := cmd.Flags().GetString("last")
	noArtifacts, _ := cmd.Flags().GetBool("no-artifacts")

	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("--title must not be blank")
	}

	if noArtifacts {
		cfg.Artifacts.File.Enabled = false
		cfg.Artifacts.Database.Enabled = false
		cfg.Artifacts.Kafka.Enabled = false
		cfg.Artifacts.Graph.Enabled = false
	}

	ctx := cmd.Context()
	components, err := app.Build(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	result, err := components.Service.FindPaperCitations(ctx, domain.NewPaperQuery(title, first, last))
	if err != nil {
		return err
	}

	report, err := citations.NewReport(result)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(report)
}
