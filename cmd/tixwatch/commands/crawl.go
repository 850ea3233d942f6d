package commands

import (
	"log/slog"
	"os"
	"time"

	"tixwatch-backend/internal/crawler"
	"tixwatch-backend/internal/eventstore"
	"tixwatch-backend/lib/serviceutil"
	"tixwatch-backend/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	crawlOutput *string
	crawlLimit  *int
	crawlUrls   *[]string
)

func init() {
	crawlOutput = crawlCmd.Flags().String("output", "tixcraft_activities.json", "The event collection to merge crawled records into.")
	crawlLimit = crawlCmd.Flags().Int("limit", 0, "Crawl only the first n activities, 0 crawls all of them.")
	crawlUrls = crawlCmd.Flags().StringSlice("url", nil, "Crawl these activity urls instead of the listing.")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--output <events.json>] [--limit <n>] [--url <url>...]",
	Short: "Crawls activity pages and merges the classified records into the event collection.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		path := orDefault(cmd, "output", *crawlOutput, cfg.Paths.Events)

		store, err := eventstore.Open(path)
		if err != nil {
			serviceutil.Fatal("failed to open event collection", err)
		}

		telemetry.InstrumentPerfStats(ctx, 5*time.Second)

		client := newFetchClient()
		c := crawler.Crawler{
			Classifier: cfg.Classifier(),
			Fetcher:    client,
			Lister:     client,
			Store:      store,
			Telemetry:  telemetry.NewScopedAPI("crawl", telemetry.SlogAPI{}),
			Delay:      cfg.CrawlDelay(),
			Limit:      *crawlLimit,
		}

		t1 := time.Now()
		stats, err := c.Run(ctx, *crawlUrls)
		if err != nil && ctx.Err() == nil {
			serviceutil.Fatal("crawl failed", err)
		}
		if err != nil {
			slog.Warn("crawl interrupted, records crawled so far were kept", "err", err)
		}
		slog.Info("crawling time", "seconds", time.Since(t1).Seconds())

		collection := store.Collection()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Crawl", "Count"})
		t.AppendRows([]table.Row{
			{"attempted", stats.Attempted},
			{"fetched", stats.Fetched},
			{"resolved", stats.Resolved},
			{"failed", len(stats.Failed)},
		})
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"total events", collection.TotalEvents},
			{"success rate", collection.SuccessRate},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()

		for _, url := range stats.Failed {
			slog.Warn("failed to fetch", "url", url)
		}
		slog.Info("collection updated", "path", store.Path())
	},
}
