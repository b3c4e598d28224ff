// Package match evaluates postings against boolean keyword criteria and
// records field-level evidence for why a posting did or didn't match.
package match

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Criteria are the cleaned keyword rules (see config.NormalizeAndValidate):
// every required term must hit, every group needs at least one hit, and any
// exclude hit disqualifies.
type Criteria struct {
	RequiredTerms []string
	KeywordGroups [][]string
	ExcludeTerms  []string
}

// Verdict is the outcome of one evaluation plus the evidence behind it.
// MatchedGroupTerms is parallel to Criteria.KeywordGroups.
type Verdict struct {
	IsMatch bool

	MatchedRequiredTerms []string
	MissingRequiredTerms []string
	MatchedGroupTerms    [][]string
	UnsatisfiedGroups    []int
	FoundExcludeTerms    []string

	// MatchedFields maps field name (title/description/location) to the
	// terms found in that field.
	MatchedFields map[string][]string

	// Snippets are description excerpts around matched terms, for display.
	Snippets []string

	// Summary is a human-readable account of what matched. Descriptive
	// only; the decision is in IsMatch.
	Summary string
}

type Matcher struct {
	Criteria Criteria
	Log      *slog.Logger
}

func NewMatcher(c Criteria, log *slog.Logger) *Matcher {
	if log == nil {
		log = slog.Default()
	}
	return &Matcher{Criteria: c, Log: log.With("component", "match")}
}

// Evaluate checks text against the criteria. Terms are assumed normalized
// (lowercase, trimmed); field text is matched via its normalized variants.
func (m *Matcher) Evaluate(jobKey string, text Text) Verdict {
	fields := []struct {
		name string
		text string
	}{
		{"title", text.TitleNormalized},
		{"description", text.DescriptionNorm},
		{"location", text.LocationNormalized},
	}

	v := Verdict{MatchedFields: map[string][]string{}}

	// a term can sit in both required_terms and a keyword group; record
	// its evidence once per field
	recorded := map[string]bool{}
	inAnyField := func(term string) bool {
		hit := false
		for _, f := range fields {
			if containsTerm(f.text, term) {
				key := f.name + "\x00" + term
				if !recorded[key] {
					recorded[key] = true
					v.MatchedFields[f.name] = append(v.MatchedFields[f.name], term)
				}
				hit = true
			}
		}
		return hit
	}

	for _, term := range m.Criteria.RequiredTerms {
		if inAnyField(term) {
			v.MatchedRequiredTerms = append(v.MatchedRequiredTerms, term)
		} else {
			v.MissingRequiredTerms = append(v.MissingRequiredTerms, term)
		}
	}

	for idx, group := range m.Criteria.KeywordGroups {
		var matched []string
		for _, term := range group {
			if inAnyField(term) {
				matched = append(matched, term)
			}
		}
		v.MatchedGroupTerms = append(v.MatchedGroupTerms, matched)
		if len(matched) == 0 {
			v.UnsatisfiedGroups = append(v.UnsatisfiedGroups, idx)
		}
	}

	for _, term := range m.Criteria.ExcludeTerms {
		found := false
		for _, f := range fields {
			if containsTerm(f.text, term) {
				found = true
			}
		}
		if found {
			v.FoundExcludeTerms = append(v.FoundExcludeTerms, term)
		}
	}

	v.IsMatch = len(v.MissingRequiredTerms) == 0 &&
		len(v.UnsatisfiedGroups) == 0 &&
		len(v.FoundExcludeTerms) == 0

	allMatched := v.allMatchedTerms()
	v.Snippets = ExtractSnippets(text.DescriptionOriginal, allMatched, snippetContextChars)
	v.Summary = m.summarize(v)

	if v.IsMatch {
		m.Log.Info("job matched",
			"job_key", jobKey,
			"required_matched", len(v.MatchedRequiredTerms),
			"required_total", len(m.Criteria.RequiredTerms),
			"groups_total", len(m.Criteria.KeywordGroups),
		)
	} else {
		m.Log.Debug("job did not match",
			"job_key", jobKey,
			"reason", v.missReason(),
		)
	}

	return v
}

// allMatchedTerms flattens required and group hits, deduplicated and sorted.
func (v Verdict) allMatchedTerms() []string {
	seen := map[string]bool{}
	var out []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range v.MatchedRequiredTerms {
		add(t)
	}
	for _, g := range v.MatchedGroupTerms {
		for _, t := range g {
			add(t)
		}
	}
	sort.Strings(out)
	return out
}

func (v Verdict) missReason() string {
	switch {
	case len(v.MissingRequiredTerms) > 0:
		return fmt.Sprintf("missing required terms: %s", strings.Join(v.MissingRequiredTerms, ", "))
	case len(v.UnsatisfiedGroups) > 0:
		return fmt.Sprintf("unsatisfied keyword groups: %v", v.UnsatisfiedGroups)
	case len(v.FoundExcludeTerms) > 0:
		return fmt.Sprintf("exclude terms found: %s", strings.Join(v.FoundExcludeTerms, ", "))
	default:
		return ""
	}
}

func (m *Matcher) summarize(v Verdict) string {
	var parts []string

	// call out location-only matches; they are easy to misread
	if len(v.MatchedFields["location"]) > 0 &&
		len(v.MatchedFields["title"]) == 0 &&
		len(v.MatchedFields["description"]) == 0 {
		loc := append([]string(nil), v.MatchedFields["location"]...)
		sort.Strings(loc)
		parts = append(parts, "Location matched: "+strings.Join(loc, ", "))
	}

	if len(v.MatchedRequiredTerms) > 0 {
		req := append([]string(nil), v.MatchedRequiredTerms...)
		sort.Strings(req)
		parts = append(parts, "Required terms: "+strings.Join(req, ", "))
	}
	for i, g := range v.MatchedGroupTerms {
		if len(g) > 0 {
			parts = append(parts, fmt.Sprintf("Group %d: %s", i+1, strings.Join(g, ", ")))
		}
	}
	if len(v.FoundExcludeTerms) > 0 {
		parts = append(parts, "Excluded terms present: "+strings.Join(v.FoundExcludeTerms, ", "))
	}

	if len(parts) == 0 {
		return "No specific match criteria"
	}
	return strings.Join(parts, "\n")
}
