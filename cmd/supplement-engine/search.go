// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/supplement-engine/internal/source"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the literature for candidate studies",
	Long: `Search queries the configured literature backend (PubMed, OpenAlex,
Semantic Scholar, or all three in turn) and prints the candidate studies
without curation or synthesis.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("term", "", "search term (e.g. creatine)")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results to return (default 20)")
	searchCmd.Flags().String("backend", "", "search backend: pubmed, openalex, semantic_scholar, chain")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	_ = searchCmd.MarkFlagRequired("term")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	term, _ := cmd.Flags().GetString("term")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	backend, _ := cmd.Flags().GetString("backend")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if backend != "" {
		cfg.Source.Backend = types.SourceBackend(backend)
	}
	if maxResults <= 0 {
		maxResults = cfg.Source.MaxResults
	}

	src, err := newSource(cfg.Source)
	if err != nil {
		return err
	}
	studies, err := src.Search(cmd.Context(), term, maxResults)
	if err != nil {
		return fmt.Errorf("searching %s: %w", src.Name(), err)
	}

	if jsonOutput {
		return source.FormatJSON(studies, os.Stdout)
	}
	source.FormatTable(studies, os.Stdout)
	return nil
}
