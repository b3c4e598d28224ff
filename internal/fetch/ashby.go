package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/domain"
)

const ashbyEndpoint = "https://jobs.ashby.com/api/graphql"

// ashby reads public Ashby job boards through their GraphQL endpoint.
// Still no auth; the organization identifier is a query variable.
type ashby struct {
	c        *client
	endpoint string
	maxJobs  int
	log      *slog.Logger
}

func newAshby(c *client, maxJobs int) *ashby {
	return &ashby{
		c:        c,
		endpoint: ashbyEndpoint,
		maxJobs:  maxJobs,
		log:      c.log.With("adapter", "ashby"),
	}
}

func (a *ashby) Type() string { return "ashby" }

const ashbyQuery = `query JobBoard($organizationIdentifier: String!) {
  jobBoard(organizationIdentifier: $organizationIdentifier) {
    jobPostings {
      id
      title
      location { name }
      description
      externalLink
      publishedDate
      updatedAt
    }
  }
}`

type ashbyPosting struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Location *struct {
		Name string `json:"name"`
	} `json:"location"`
	Description   string `json:"description"`
	ExternalLink  string `json:"externalLink"`
	PublishedDate string `json:"publishedDate"`
	UpdatedAt     string `json:"updatedAt"`
}

type ashbyResponse struct {
	Data *struct {
		JobBoard *struct {
			JobPostings []ashbyPosting `json:"jobPostings"`
		} `json:"jobBoard"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (a *ashby) FetchJobs(ctx context.Context, src config.Source) ([]domain.RawJob, error) {
	payload := map[string]any{
		"query": ashbyQuery,
		"variables": map[string]string{
			"organizationIdentifier": src.Identifier,
		},
	}

	var body ashbyResponse
	if err := a.c.postJSON(ctx, "ashby", a.endpoint, payload, &body); err != nil {
		return nil, err
	}

	if len(body.Errors) > 0 {
		msgs := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &Error{
			Kind:   KindMalformed,
			Source: "ashby",
			URL:    a.endpoint,
			Err:    fmt.Errorf("graphql errors: %s", strings.Join(msgs, ", ")),
		}
	}

	if body.Data == nil || body.Data.JobBoard == nil {
		a.log.Warn("no job board for organization", "source", src.Identifier)
		return nil, nil
	}

	postings := body.Data.JobBoard.JobPostings
	out := make([]domain.RawJob, 0, len(postings))
	for _, p := range postings {
		raw, err := a.transform(p, src)
		if err != nil {
			a.log.Warn("skipping unusable posting",
				"source", src.Identifier,
				"job_id", p.ID,
				"err", err,
			)
			continue
		}
		out = append(out, raw)
	}

	a.log.Info("fetched postings", "source", src.Identifier, "count", len(out))
	return truncate(out, a.maxJobs, a.log, src), nil
}

func (a *ashby) transform(p ashbyPosting, src config.Source) (domain.RawJob, error) {
	if p.ID == "" {
		return domain.RawJob{}, fmt.Errorf("posting has no id")
	}
	if strings.TrimSpace(p.Title) == "" {
		return domain.RawJob{}, fmt.Errorf("posting %s has no title", p.ID)
	}

	var location string
	if p.Location != nil {
		location = p.Location.Name
	}

	return domain.RawJob{
		ExternalID:  p.ID,
		Title:       p.Title,
		Company:     src.Name,
		Location:    location,
		Description: StripHTML(p.Description),
		URL:         p.ExternalLink,
		PostedAt:    parseTimestamp(p.PublishedDate),
		UpdatedAt:   parseTimestamp(p.UpdatedAt),
	}, nil
}
