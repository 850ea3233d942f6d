package rules

import (
	"regexp"
	"strings"

	"tixwatch-backend/internal/model"
	"tixwatch-backend/lib/textutil"
)

// Rule fires on a line when any of its patterns matches and any of its
// keywords is present. A rule with both patterns and keywords requires both,
// a rule with only one of the two requires only that one. Any exclusion
// keyword vetoes the rule regardless.
type Rule struct {
	Name       string
	Patterns   []*regexp.Regexp
	Keywords   []string
	Exclusions []string
}

func (r Rule) Fires(line string) bool {
	if len(r.Patterns) == 0 && len(r.Keywords) == 0 {
		return false
	}
	if textutil.ContainsAny(line, r.Exclusions) {
		return false
	}
	if len(r.Patterns) > 0 && !matchesAny(line, r.Patterns) {
		return false
	}
	if len(r.Keywords) > 0 && !textutil.ContainsAny(line, r.Keywords) {
		return false
	}
	return true
}

func matchesAny(line string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// RuleSet is the ordered rule list of a single field together with the
// field-wide constraints applied around it.
type RuleSet struct {
	Field model.Field
	// Rules are evaluated in order, the first one that fires wins.
	Rules []Rule
	// Exclusions veto every rule in the set.
	Exclusions []string
	// MinLength and MaxLength bound the rune length of an accepted line,
	// zero means unbounded.
	MinLength int
	MaxLength int
	// MaxCandidates caps how many lines the field may keep.
	MaxCandidates int
	// Labels are the bare field captions, a line that is only a label
	// carries no value.
	Labels []string
	// Simplify, when set, rewrites an accepted line. Returning an empty
	// string discards it.
	Simplify func(line string) string
}

// Match returns the first rule of the set that fires on line.
func (s RuleSet) Match(line string) (Rule, bool) {
	n := textutil.RuneLen(line)
	if s.MinLength > 0 && n < s.MinLength {
		return Rule{}, false
	}
	if s.MaxLength > 0 && n > s.MaxLength {
		return Rule{}, false
	}
	if textutil.ContainsAny(line, s.Exclusions) {
		return Rule{}, false
	}
	for _, r := range s.Rules {
		if r.Fires(line) {
			return r, true
		}
	}
	return Rule{}, false
}

var labelTrimRegex = regexp.MustCompile(`[\s:：\-－|｜/()（）\[\]【】]+`)

// IsEmptyShell reports whether line is nothing but one of the field's labels,
// e.g. "Price:" with no amount after it.
func (s RuleSet) IsEmptyShell(line string) bool {
	rest := strings.ToLower(labelTrimRegex.ReplaceAllString(textutil.Clean(line), ""))
	if rest == "" {
		return true
	}
	for _, label := range s.Labels {
		l := strings.ToLower(labelTrimRegex.ReplaceAllString(label, ""))
		if rest == l {
			return true
		}
	}
	return false
}

// Accept runs the full per-line decision for the field: rule match,
// simplification and empty-shell suppression. It returns the value to
// accumulate.
func (s RuleSet) Accept(line string) (string, bool) {
	line = textutil.Clean(line)
	if line == "" {
		return "", false
	}
	if _, ok := s.Match(line); !ok {
		return "", false
	}
	if s.Simplify != nil {
		line = textutil.Clean(s.Simplify(line))
		if line == "" {
			return "", false
		}
	}
	if s.IsEmptyShell(line) {
		return "", false
	}
	return line, true
}

// Sets holds one RuleSet per field.
type Sets map[model.Field]RuleSet

// WithMaxCandidates returns a copy of the sets with every cap replaced by n.
func (s Sets) WithMaxCandidates(n int) Sets {
	out := make(Sets, len(s))
	for f, set := range s {
		set.MaxCandidates = n
		out[f] = set
	}
	return out
}
