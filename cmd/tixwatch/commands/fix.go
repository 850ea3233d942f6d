package commands

import (
	"fmt"
	"os"

	"tixwatch-backend/internal/eventstore"
	"tixwatch-backend/internal/fixer"
	"tixwatch-backend/internal/model"
	"tixwatch-backend/internal/validator"
	"tixwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	fixSource       *string
	fixReport       *string
	fixOutput       *string
	fixApplyWarning *bool
)

func init() {
	fixSource = fixCmd.Flags().String("source", "tixcraft_activities.json", "The event collection to correct.")
	fixReport = fixCmd.Flags().String("report", "validation_report.json", "The validation report to take corrections from.")
	fixOutput = fixCmd.Flags().String("output", "tixcraft_activities_corrected_preview.json", "Where to write the corrected collection.")
	fixApplyWarning = fixCmd.Flags().Bool("apply-warning", false, "Also correct fields the report only warned about.")
	rootCmd.AddCommand(fixCmd)
}

var fixCmd = &cobra.Command{
	Use:   "apply-fixes [--source <events.json>] [--report <report.json>] [--output <preview.json>] [--apply-warning]",
	Short: "Writes a corrected copy of the event collection using the top candidates of a validation report.",
	Run: func(cmd *cobra.Command, args []string) {
		sourcePath := orDefault(cmd, "source", *fixSource, cfg.Paths.Events)
		reportPath := orDefault(cmd, "report", *fixReport, cfg.Paths.ReportJson)
		outputPath := orDefault(cmd, "output", *fixOutput, cfg.Paths.Preview)

		source, err := eventstore.Load(sourcePath)
		if err != nil {
			serviceutil.Fatal("failed to load event collection", err)
		}
		report, err := validator.LoadReport(reportPath)
		if err != nil {
			serviceutil.Fatal("failed to load validation report", err)
		}

		corrected, stats := fixer.Apply(source, report, *fixApplyWarning)
		err = eventstore.Save(outputPath, corrected)
		if err != nil {
			serviceutil.Fatal("failed to write corrected collection", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Field", "Fixed"})
		for _, field := range model.Fields {
			t.AppendRow(table.Row{string(field), stats.Fields[field]})
		}
		t.AppendFooter(table.Row{"total", stats.Total})
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Printf("records changed: %d\n", stats.Records)
		fmt.Printf("output: %s\n", outputPath)
	},
}
