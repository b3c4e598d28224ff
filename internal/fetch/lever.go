package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/domain"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

// lever reads the public Lever postings API, a plain JSON array per
// company slug.
type lever struct {
	c       *client
	baseURL string
	maxJobs int
	log     *slog.Logger
}

func newLever(c *client, maxJobs int) *lever {
	return &lever{
		c:       c,
		baseURL: leverBaseURL,
		maxJobs: maxJobs,
		log:     c.log.With("adapter", "lever"),
	}
}

func (l *lever) Type() string { return "lever" }

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location string `json:"location"`
	} `json:"categories"`
	Description      string `json:"description"` // html
	DescriptionPlain string `json:"descriptionPlain"`
	AdditionalPlain  string `json:"additionalPlain"`
}

func (l *lever) FetchJobs(ctx context.Context, src config.Source) ([]domain.RawJob, error) {
	url := fmt.Sprintf("%s/%s?mode=json", l.baseURL, src.Identifier)

	var postings []leverPosting
	if err := l.c.getJSON(ctx, "lever", url, &postings); err != nil {
		return nil, err
	}

	out := make([]domain.RawJob, 0, len(postings))
	for _, p := range postings {
		raw, err := l.transform(p, src)
		if err != nil {
			l.log.Warn("skipping unusable posting",
				"source", src.Identifier,
				"job_id", p.ID,
				"err", err,
			)
			continue
		}
		out = append(out, raw)
	}

	l.log.Info("fetched postings", "source", src.Identifier, "count", len(out))
	return truncate(out, l.maxJobs, l.log, src), nil
}

func (l *lever) transform(p leverPosting, src config.Source) (domain.RawJob, error) {
	if p.ID == "" {
		return domain.RawJob{}, fmt.Errorf("posting has no id")
	}
	if strings.TrimSpace(p.Text) == "" {
		return domain.RawJob{}, fmt.Errorf("posting %s has no title", p.ID)
	}

	var postedAt *time.Time
	if p.CreatedAt > 0 {
		t := time.UnixMilli(p.CreatedAt).UTC()
		postedAt = &t
	}

	return domain.RawJob{
		ExternalID:  p.ID,
		Title:       p.Text,
		Company:     src.Name,
		Location:    p.Categories.Location,
		Description: l.description(p),
		URL:         p.HostedURL,
		PostedAt:    postedAt,
	}, nil
}

// description prefers the plain-text fields Lever already provides and
// only falls back to stripping the HTML body.
func (l *lever) description(p leverPosting) string {
	plain := strings.TrimSpace(p.DescriptionPlain)
	additional := strings.TrimSpace(p.AdditionalPlain)

	switch {
	case plain != "" && additional != "":
		return plain + "\n\n" + additional
	case plain != "":
		return plain
	case additional != "":
		return additional
	default:
		return StripHTML(p.Description)
	}
}
