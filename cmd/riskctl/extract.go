package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anna-farino/RiskAi-sub010/app"
	"github.com/anna-farino/RiskAi-sub010/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract <article-url>...",
	Short: "Extract title, author, date and body from article pages",
	Long: `Extract one or more article pages. With several URLs the pages run
concurrently and failures are reported per URL.

Examples:
  riskctl extract https://news.example.com/2024/05/breach

  # Reuse selectors saved from an earlier run
  riskctl extract --selectors sel.json https://news.example.com/a https://news.example.com/b`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.String("selectors", "", "JSON file with a known selector set for the domain")
	f.Bool("markdown", false, "also render the body as Markdown")
	f.Int("concurrency", 0, "pages in flight for multiple URLs (default: RISKAI_BATCH_CONCURRENCY)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	selPath, _ := cmd.Flags().GetString("selectors")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if md, _ := cmd.Flags().GetBool("markdown"); md {
		cfg.Extract.Markdown = true
	}
	if concurrency <= 0 {
		concurrency = cfg.Server.BatchConcurrency
	}

	known, err := loadSelectors(selPath)
	if err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app.App) error {
		if len(args) == 1 {
			article, err := a.Scraper.ExtractArticle(ctx, args[0], known)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), article)
		}

		var items []models.BatchItem
		if known != nil {
			for _, u := range args {
				item := models.BatchItem{URL: u}
				article, err := a.Scraper.ExtractArticle(ctx, u, known)
				var se *models.ScrapeError
				switch {
				case errors.As(err, &se):
					item.Error = se.ToDetail()
				case err != nil:
					item.Error = &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
				default:
					item.Article = article
				}
				items = append(items, item)
			}
		} else {
			items = a.Scraper.ExtractBatch(ctx, args, concurrency, nil)
		}
		return writeJSON(cmd.OutOrStdout(), items)
	})
}

func loadSelectors(path string) (*models.SelectorSet, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selectors: %w", err)
	}
	var set models.SelectorSet
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("parse selectors %s: %w", path, err)
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("selectors %s: %w", path, err)
	}
	return &set, nil
}
