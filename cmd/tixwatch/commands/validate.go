package commands

import (
	"log/slog"
	"os"
	"time"

	"tixwatch-backend/internal/eventstore"
	"tixwatch-backend/internal/history"
	"tixwatch-backend/internal/notify"
	"tixwatch-backend/internal/validator"
	"tixwatch-backend/lib/serviceutil"
	"tixwatch-backend/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	validateInput      *string
	validateLimit      *int
	validateSleep      *float64
	validateOutputJson *string
	validateOutputMd   *string
	validateNotify     *bool
)

func init() {
	validateInput = validateCmd.Flags().String("input", "tixcraft_activities.json", "The event collection to validate.")
	validateLimit = validateCmd.Flags().Int("limit", 0, "Validate only the first n records, 0 validates all of them.")
	validateSleep = validateCmd.Flags().Float64("sleep", 0.2, "Seconds to wait between records.")
	validateOutputJson = validateCmd.Flags().String("output-json", "validation_report.json", "Where to write the json report.")
	validateOutputMd = validateCmd.Flags().String("output-md", "validation_report.md", "Where to write the markdown report.")
	validateNotify = validateCmd.Flags().Bool("notify", false, "Mail the report to the configured recipients when a record needs review.")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [--input <events.json>] [--limit <n>] [--sleep <seconds>] [--output-json <report.json>] [--output-md <report.md>] [--notify]",
	Short: "Checks every stored record against its live page and writes a validation report.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		input := orDefault(cmd, "input", *validateInput, cfg.Paths.Events)
		outputJson := orDefault(cmd, "output-json", *validateOutputJson, cfg.Paths.ReportJson)
		outputMd := orDefault(cmd, "output-md", *validateOutputMd, cfg.Paths.ReportMarkdown)

		delay := cfg.ValidationDelay()
		if cmd.Flags().Changed("sleep") {
			delay = time.Duration(*validateSleep * float64(time.Second))
		}

		source, err := eventstore.Load(input)
		if err != nil {
			serviceutil.Fatal("failed to load event collection", err)
		}

		telemetry.InstrumentPerfStats(ctx, 5*time.Second)

		runner := validator.Runner{
			Validator:  cfg.Validator(),
			Fetcher:    newFetchClient(),
			Telemetry:  telemetry.NewScopedAPI("validate", telemetry.SlogAPI{}),
			Attempts:   cfg.Validation.Attempts,
			RetryDelay: cfg.RetryDelay(),
			Delay:      delay,
			Limit:      *validateLimit,
		}

		report, err := runner.Run(ctx, source, input)
		if err != nil {
			slog.Warn("validation interrupted, writing partial report", "err", err, "validated", len(report.Results))
		}

		err = validator.SaveReport(outputJson, report)
		if err != nil {
			serviceutil.Fatal("failed to write json report", err)
		}
		err = validator.SaveMarkdown(outputMd, report)
		if err != nil {
			serviceutil.Fatal("failed to write markdown report", err)
		}

		if cfg.History.Enabled() {
			store, database, err := history.Open(cfg.History)
			if err != nil {
				slog.Warn("failed to open history", "err", err)
			} else {
				id, err := store.Record(ctx, report)
				if err != nil {
					slog.Warn("failed to record run", "err", err)
				} else {
					slog.Info("recorded run", "id", id)
				}
				database.Close()
			}
		}

		if *validateNotify {
			if !cfg.Smtp.Enabled() {
				slog.Warn("notify requested but smtp is not configured")
			} else {
				sent, err := notify.NewNotifier(cfg.Smtp).ReportRun(ctx, report)
				if err != nil {
					slog.Warn("failed to send report", "err", err)
				} else if sent {
					slog.Info("report sent", "recipients", len(cfg.Smtp.Recipients))
				}
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Status", "Records"})
		t.AppendRows([]table.Row{
			{"ok", report.Summary.OK},
			{"warning", report.Summary.Warning},
			{"mismatch", report.Summary.Mismatch},
		})
		t.AppendFooter(table.Row{"total", report.Summary.Total})
		t.SetStyle(table.StyleRounded)
		t.Render()

		slog.Info("reports written", "json", outputJson, "markdown", outputMd)
	},
}
