package model

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome of checking a field or a record. The zero value is
// StatusOK and statuses are ordered ok < warning < mismatch.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusMismatch
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusMismatch:
		return "mismatch"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case "ok":
		return StatusOK, nil
	case "warning":
		return StatusWarning, nil
	case "mismatch":
		return StatusMismatch, nil
	}
	return StatusOK, fmt.Errorf("unknown status '%s'", s)
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	parsed, err := ParseStatus(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Worst returns the most severe of the given statuses.
func Worst(statuses ...Status) Status {
	worst := StatusOK
	for _, s := range statuses {
		if s > worst {
			worst = s
		}
	}
	return worst
}

// FieldCheck is the verdict on one stored field.
type FieldCheck struct {
	Status     Status   `json:"status"`
	Reason     string   `json:"reason"`
	Matched    []string `json:"matched"`
	Candidates []string `json:"candidates"`
	JSONValue  string   `json:"json_value"`
}

// ValidationResult is the verdict on one stored record.
type ValidationResult struct {
	Index     int                   `json:"index"`
	Title     string                `json:"title"`
	URL       string                `json:"url"`
	Status    Status                `json:"status"`
	Errors    []string              `json:"errors"`
	Warnings  []string              `json:"warnings"`
	Checks    map[Field]*FieldCheck `json:"checks"`
	PageTitle string                `json:"page_title"`
}

// Summary counts results by status. Total always equals the sum of the
// other three.
type Summary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Warning  int `json:"warning"`
	Mismatch int `json:"mismatch"`
}

func (s *Summary) Add(status Status) {
	s.Total++
	switch status {
	case StatusOK:
		s.OK++
	case StatusWarning:
		s.Warning++
	case StatusMismatch:
		s.Mismatch++
	}
}

// ValidationReport is the persisted output of a validation run.
type ValidationReport struct {
	GeneratedAt string             `json:"generated_at"`
	SourceFile  string             `json:"source_file"`
	Summary     Summary            `json:"summary"`
	Results     []ValidationResult `json:"results"`
}

// Summarize recomputes Summary from Results.
func (r *ValidationReport) Summarize() {
	r.Summary = Summary{}
	for _, res := range r.Results {
		r.Summary.Add(res.Status)
	}
}

// ByURL indexes results by record url. Later results win on duplicates.
func (r ValidationReport) ByURL() map[string]ValidationResult {
	out := make(map[string]ValidationResult, len(r.Results))
	for _, res := range r.Results {
		out[res.URL] = res
	}
	return out
}
