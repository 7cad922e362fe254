package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/search"
)

var (
	searchProject    string
	searchDiscipline string
	searchLimit      int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a project's analyzed content",
	Long: `Search a project's analyzed content with hybrid retrieval.

The query is embedded and ranked server-side against both vector
similarity and keyword relevance, fused into a single score.

Examples:
  maestro search "roof drain detail" --project 4f8a1c2e-...
  maestro search "fire damper" --project ... --discipline mechanical --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if searchProject == "" {
			return fmt.Errorf("--project is required")
		}

		d, err := buildDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		limit := searchLimit
		if limit <= 0 {
			limit = d.cfg.Search.MatchCount
		}

		engine := search.New(search.Config{
			Embedder: d.openai,
			Ranker:   d.db,
			Retry:    d.retryConfig(),
		})

		results, err := engine.Search(ctx, args[0], searchProject, searchDiscipline, limit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		for i, r := range results {
			fmt.Printf("%2d. %-40s %s (%s)  score=%.4f\n", i+1, r.Title, r.PageName, r.Discipline, r.Score)
			if r.RelevanceSnippet != "" {
				fmt.Printf("    %s\n", r.RelevanceSnippet)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchProject, "project", "", "project id to search within (required)")
	searchCmd.Flags().StringVar(&searchDiscipline, "discipline", "", "restrict results to one discipline")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results (default: search.match_count)")
}
