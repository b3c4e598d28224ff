package notify

import (
	"html"
	htmltemplate "html/template"
	"time"

	"jobscan-engine/internal/match"
)

// Payload is the template context for one alert email.
type Payload struct {
	JobKey      string
	VersionHash string

	Title    string
	Company  string
	Location string
	URL      string

	SourceType       string
	SourceIdentifier string

	PostedAt    string
	UpdatedAt   string
	FirstSeenAt string
	LastSeenAt  string

	IsNew   bool
	Summary string

	Snippets            []string
	SnippetsHighlighted []htmltemplate.HTML
	MatchedTerms        []string
}

// BuildPayload flattens a candidate into the template context. Snippets
// are HTML-escaped before keyword highlighting so description text can
// never inject markup into the email.
func BuildPayload(c Candidate) Payload {
	job := c.Job
	terms := allVerdictTerms(c.Verdict)

	highlighted := make([]htmltemplate.HTML, 0, len(c.Verdict.Snippets))
	for _, s := range c.Verdict.Snippets {
		esc := html.EscapeString(s)
		highlighted = append(highlighted, htmltemplate.HTML(match.Highlight(esc, terms, "<b>", "</b>")))
	}

	location := job.Location
	if location == "" {
		location = "Remote"
	}

	return Payload{
		JobKey:              job.JobKey,
		VersionHash:         job.ContentHash,
		Title:               job.Title,
		Company:             job.Company,
		Location:            location,
		URL:                 job.URL,
		SourceType:          job.SourceType,
		SourceIdentifier:    job.SourceIdentifier,
		PostedAt:            formatTime(job.PostedAt),
		UpdatedAt:           formatTime(job.UpdatedAt),
		FirstSeenAt:         formatTime(&job.FirstSeenAt),
		LastSeenAt:          formatTime(&job.LastSeenAt),
		IsNew:               c.IsNew,
		Summary:             c.Verdict.Summary,
		Snippets:            c.Verdict.Snippets,
		SnippetsHighlighted: highlighted,
		MatchedTerms:        terms,
	}
}

func allVerdictTerms(v match.Verdict) []string {
	seen := map[string]bool{}
	var out []string
	add := func(t string) {
		if t != "" && !seen[t] {
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
	return out
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
