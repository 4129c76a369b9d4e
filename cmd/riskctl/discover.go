package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/anna-farino/RiskAi-sub010/app"
	"github.com/anna-farino/RiskAi-sub010/scraper"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <source-url>",
	Short: "List the external article links of a source page",
	Long: `Fetch a source page and print its external article links.

Examples:
  # All links from an advisory index
  riskctl discover https://www.cisa.gov/news-events/cybersecurity-advisories

  # Ransomware stories first, at most 25
  riskctl discover https://news.example.com --topic ransomware --max 25`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	f := discoverCmd.Flags()
	f.String("topic", "", "words that move matching links to the front")
	f.Int("max", 0, "maximum links to print (default: RISKAI_MAX_LINKS)")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	maxLinks, _ := cmd.Flags().GetInt("max")

	return withApp(func(ctx context.Context, a *app.App) error {
		links, err := a.Scraper.DiscoverLinks(ctx, args[0], scraper.DiscoverOptions{
			TopicHint: topic,
			MaxLinks:  maxLinks,
		})
		if err != nil {
			return err
		}
		if links == nil {
			links = []string{}
		}
		return writeJSON(cmd.OutOrStdout(), links)
	})
}
