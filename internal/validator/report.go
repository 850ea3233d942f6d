package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"tixwatch-backend/internal/eventstore"
	"tixwatch-backend/internal/model"
)

// ErrMalformedReport is returned when a report file lacks a required key.
var ErrMalformedReport = errors.New("malformed validation report")

func DecodeReport(data []byte) (model.ValidationReport, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return model.ValidationReport{}, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	for _, required := range []string{"summary", "results"} {
		if _, ok := keys[required]; !ok {
			return model.ValidationReport{}, fmt.Errorf("%w: missing '%s'", ErrMalformedReport, required)
		}
	}

	var out model.ValidationReport
	if err := json.Unmarshal(data, &out); err != nil {
		return model.ValidationReport{}, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	return out, nil
}

func LoadReport(path string) (model.ValidationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ValidationReport{}, err
	}
	report, err := DecodeReport(data)
	if err != nil {
		return model.ValidationReport{}, fmt.Errorf("%s: %w", path, err)
	}
	return report, nil
}

func SaveReport(path string, report model.ValidationReport) error {
	if report.Results == nil {
		report.Results = []model.ValidationResult{}
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return eventstore.WriteAtomic(path, buf.Bytes())
}

// RenderMarkdown renders the report for human review. Only records that
// are not ok are listed in detail.
func RenderMarkdown(report model.ValidationReport) string {
	var b strings.Builder
	b.WriteString("# Validation Report\n\n")
	fmt.Fprintf(&b, "- Generated at: %s\n", report.GeneratedAt)
	fmt.Fprintf(&b, "- Source file: %s\n", report.SourceFile)
	fmt.Fprintf(&b, "- Total: %d\n", report.Summary.Total)
	fmt.Fprintf(&b, "- OK: %d\n", report.Summary.OK)
	fmt.Fprintf(&b, "- Warning: %d\n", report.Summary.Warning)
	fmt.Fprintf(&b, "- Mismatch: %d\n\n", report.Summary.Mismatch)

	var review []model.ValidationResult
	for _, res := range report.Results {
		if res.Status != model.StatusOK {
			review = append(review, res)
		}
	}
	if len(review) == 0 {
		b.WriteString("All records match their pages.\n")
		return b.String()
	}

	b.WriteString("## Needs review\n\n")
	for _, res := range review {
		fmt.Fprintf(&b, "### #%d %s\n", res.Index, res.Title)
		fmt.Fprintf(&b, "- URL: %s\n", res.URL)
		fmt.Fprintf(&b, "- Status: %s\n", res.Status)
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "- Error: %s\n", e)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- Warning: %s\n", w)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SaveMarkdown writes RenderMarkdown(report) to path.
func SaveMarkdown(path string, report model.ValidationReport) error {
	return eventstore.WriteAtomic(path, []byte(RenderMarkdown(report)))
}
