package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/domain"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouse reads the public Greenhouse board API. No auth; one GET per
// board with content=true so descriptions come inline.
type greenhouse struct {
	c       *client
	baseURL string
	maxJobs int
	log     *slog.Logger
}

func newGreenhouse(c *client, maxJobs int) *greenhouse {
	return &greenhouse{
		c:       c,
		baseURL: greenhouseBaseURL,
		maxJobs: maxJobs,
		log:     c.log.With("adapter", "greenhouse"),
	}
}

func (g *greenhouse) Type() string { return "greenhouse" }

type greenhouseJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"`
	Location    *struct {
		Name string `json:"name"`
	} `json:"location"`
	Metadata       []greenhouseMetadata `json:"metadata"`
	FirstPublished string               `json:"first_published"`
	UpdatedAt      string               `json:"updated_at"`
}

type greenhouseMetadata struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

func (g *greenhouse) FetchJobs(ctx context.Context, src config.Source) ([]domain.RawJob, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", g.baseURL, src.Identifier)

	var body struct {
		Jobs []greenhouseJob `json:"jobs"`
	}
	if err := g.c.getJSON(ctx, "greenhouse", url, &body); err != nil {
		return nil, err
	}

	out := make([]domain.RawJob, 0, len(body.Jobs))
	for _, j := range body.Jobs {
		raw, err := g.transform(j, src)
		if err != nil {
			g.log.Warn("skipping unusable posting",
				"source", src.Identifier,
				"job_id", j.ID,
				"err", err,
			)
			continue
		}
		out = append(out, raw)
	}

	g.log.Info("fetched postings", "source", src.Identifier, "count", len(out))
	return truncate(out, g.maxJobs, g.log, src), nil
}

func (g *greenhouse) transform(j greenhouseJob, src config.Source) (domain.RawJob, error) {
	if j.ID == 0 {
		return domain.RawJob{}, fmt.Errorf("posting has no id")
	}
	if strings.TrimSpace(j.Title) == "" {
		return domain.RawJob{}, fmt.Errorf("posting %d has no title", j.ID)
	}

	return domain.RawJob{
		ExternalID:  strconv.FormatInt(j.ID, 10),
		Title:       j.Title,
		Company:     src.Name,
		Location:    g.combinedLocation(j),
		Description: StripHTML(g.enrichedDescription(j)),
		URL:         j.AbsoluteURL,
		PostedAt:    parseTimestamp(j.FirstPublished),
		UpdatedAt:   parseTimestamp(j.UpdatedAt),
	}, nil
}

// combinedLocation merges the top-level location with the "Job Posting
// Location" metadata field when they disagree.
func (g *greenhouse) combinedLocation(j greenhouseJob) string {
	var top string
	if j.Location != nil {
		top = strings.TrimSpace(j.Location.Name)
	}

	var meta string
	for _, m := range j.Metadata {
		if m.Name == "Job Posting Location" {
			meta = metadataValueString(m.Value)
			break
		}
	}

	if top != "" && meta != "" && !strings.EqualFold(top, meta) {
		return fmt.Sprintf("%s (%s)", top, meta)
	}
	if top != "" {
		return top
	}
	return meta
}

// metadataFieldsOfInterest are board metadata entries worth folding into
// the description so keyword matching can see them.
var metadataFieldsOfInterest = map[string]string{
	"Career Site Department": "Department",
	"Department":             "Department",
	"Cost Center":            "Cost Center",
	"Employment Type":        "Employment Type",
}

func (g *greenhouse) enrichedDescription(j greenhouseJob) string {
	var extra []string
	for _, m := range j.Metadata {
		label, ok := metadataFieldsOfInterest[m.Name]
		if !ok {
			continue
		}
		if v := metadataValueString(m.Value); v != "" {
			extra = append(extra, label+": "+v)
		}
	}

	desc := j.Content
	if len(extra) > 0 {
		desc = strings.TrimSpace(desc + "\n\n" + strings.Join(extra, "\n"))
	}
	return desc
}

// metadataValueString flattens a metadata value, which Greenhouse sends
// as either a string or an array of strings.
func metadataValueString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		var parts []string
		for _, v := range list {
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// parseTimestamp parses the ISO 8601 variants the board APIs emit.
// Returns nil when absent or unparseable; postings without dates are
// still usable.
func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
