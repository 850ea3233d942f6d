package commands

import (
	"errors"
	"os"
	"strings"

	"tixwatch-backend/internal/history"
	"tixwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyUrl   *string
	historyLimit *int
)

func init() {
	historyUrl = historyCmd.Flags().String("url", "", "Show how the validation of this activity url changed across runs.")
	historyLimit = historyCmd.Flags().Int("limit", history.DefaultLimit, "How many runs to show.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--url <url>] [--limit <n>]",
	Short: "Lists past validation runs, or the status of one activity across them.",
	Run: func(cmd *cobra.Command, args []string) {
		if !cfg.History.Enabled() {
			serviceutil.Fatal("history is not configured", errors.New("set history.file or history.url in the config"))
		}
		store, database, err := history.Open(cfg.History)
		if err != nil {
			serviceutil.Fatal("failed to open history", err)
		}
		defer database.Close()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)

		if *historyUrl != "" {
			entries, err := store.Drift(cmd.Context(), *historyUrl, *historyLimit)
			if err != nil {
				serviceutil.Fatal("failed to read history", err)
			}
			t.AppendHeader(table.Row{"Run", "Generated at", "Status", "Changed", "Errors"})
			for _, e := range entries {
				changed := ""
				if e.Changed {
					changed = "*"
				}
				t.AppendRow(table.Row{e.RunID, e.GeneratedAt, e.Status.String(), changed, strings.Join(e.Errors, "\n")})
			}
			t.Render()
			return
		}

		runs, err := store.Runs(cmd.Context(), *historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to read history", err)
		}
		t.AppendHeader(table.Row{"Run", "Generated at", "Source", "Total", "OK", "Warning", "Mismatch"})
		for _, r := range runs {
			t.AppendRow(table.Row{
				r.ID,
				r.GeneratedAt,
				r.SourceFile,
				r.Summary.Total,
				r.Summary.OK,
				r.Summary.Warning,
				r.Summary.Mismatch,
			})
		}
		t.Render()
	},
}
