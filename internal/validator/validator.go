package validator

import (
	"fmt"
	"strings"

	"tixwatch-backend/internal/classifier"
	"tixwatch-backend/internal/model"
	"tixwatch-backend/internal/pagefetch"
	"tixwatch-backend/lib/textutil"
)

// DefaultMinTextLength is the shortest page text, in runes of compare
// form, that is worth validating against.
const DefaultMinTextLength = 200

// Observation is what was seen on a live page.
type Observation struct {
	Title string
	Text  string
}

// ObservationFromPage merges the page title into the text so that a stored
// title fragment can be confirmed too.
func ObservationFromPage(p pagefetch.Page) Observation {
	text := p.Text
	if p.Title != "" {
		text = p.Title + "\n" + text
	}
	return Observation{Title: p.Title, Text: text}
}

// Lines splits the observation into cleaned, non-empty lines.
func (o Observation) Lines() []string {
	var out []string
	for _, line := range strings.Split(o.Text, "\n") {
		line = textutil.Clean(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

type Validator struct {
	Classifier     classifier.Classifier
	MatchThreshold float64
	MinTextLength  int
}

func New() Validator {
	return Validator{
		Classifier:     classifier.New(),
		MatchThreshold: DefaultMatchThreshold,
		MinTextLength:  DefaultMinTextLength,
	}
}

// Sufficient reports whether o carries enough content to judge a record.
// The returned reason explains a negative answer.
func (v Validator) Sufficient(o Observation) (bool, string) {
	if strings.TrimSpace(o.Title) == "" {
		return false, "page has no title"
	}
	n := textutil.RuneLen(textutil.CompareForm(o.Text))
	if n < v.MinTextLength {
		return false, fmt.Sprintf("page text too short (%d < %d characters)", n, v.MinTextLength)
	}
	return true, ""
}

func newResult(record model.EventRecord, o Observation) model.ValidationResult {
	return model.ValidationResult{
		Index:     record.Index,
		Title:     record.Title,
		URL:       record.URL,
		Status:    model.StatusOK,
		Errors:    []string{},
		Warnings:  []string{},
		Checks:    map[model.Field]*model.FieldCheck{},
		PageTitle: o.Title,
	}
}

// Reject returns the mismatch result of a record whose page could not be
// observed well enough.
func (v Validator) Reject(record model.EventRecord, o Observation, reason string) model.ValidationResult {
	result := newResult(record, o)
	result.Status = model.StatusMismatch
	result.Errors = append(result.Errors, "page: "+reason)
	return result
}

// Validate checks every field of record against o. It never fails: an
// insufficient observation yields a mismatch result explaining why.
func (v Validator) Validate(record model.EventRecord, o Observation) model.ValidationResult {
	if ok, reason := v.Sufficient(o); !ok {
		return v.Reject(record, o, reason)
	}

	result := newResult(record, o)
	candidates := v.Classifier.Candidates(o.Lines())

	var statuses []model.Status
	for _, field := range model.Fields {
		check := CheckField(record.Get(field), candidates[field], o.Text, v.MatchThreshold)
		result.Checks[field] = &check
		statuses = append(statuses, check.Status)

		switch check.Status {
		case model.StatusMismatch:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", field, check.Reason))
		case model.StatusWarning:
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", field, check.Reason))
		}
	}
	result.Status = model.Worst(statuses...)
	return result
}
