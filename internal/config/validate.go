package config

import (
	"fmt"
	"strings"
	"time"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

var knownSourceTypes = map[string]bool{
	"greenhouse": true,
	"lever":      true,
	"ashby":      true,
}

// NormalizeAndValidate returns a normalized copy of cfg plus the validation
// outcome. Search terms are trimmed, lowercased and deduped here so the
// matcher can rely on clean input.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimTerms := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.ToLower(strings.TrimSpace(x))
			if x == "" || seen[x] {
				continue
			}
			seen[x] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Search.RequiredTerms = trimTerms(out.Search.RequiredTerms)
	out.Search.ExcludeTerms = trimTerms(out.Search.ExcludeTerms)

	var groups [][]string
	for _, g := range out.Search.KeywordGroups {
		g = trimTerms(g)
		if len(g) > 0 {
			groups = append(groups, g)
		}
	}
	out.Search.KeywordGroups = groups

	// ---- Validation rules ----

	if len(out.Search.RequiredTerms) == 0 && len(out.Search.KeywordGroups) == 0 {
		res.addErr("search must specify at least one of required_terms or keyword_groups")
	}

	excluded := map[string]bool{}
	for _, t := range out.Search.ExcludeTerms {
		excluded[t] = true
	}
	for _, t := range out.Search.RequiredTerms {
		if excluded[t] {
			res.addErr("term cannot be both required and excluded: %q", t)
		}
	}
	for i, g := range out.Search.KeywordGroups {
		for _, t := range g {
			if excluded[t] {
				res.addErr("keyword group %d contains excluded term: %q", i, t)
			}
		}
	}

	// sources
	seen := map[string]bool{}
	anyEnabled := false
	for i, s := range out.Sources {
		typ := strings.ToLower(strings.TrimSpace(s.Type))
		id := strings.TrimSpace(s.Identifier)
		out.Sources[i].Type = typ
		out.Sources[i].Identifier = id
		out.Sources[i].Name = strings.TrimSpace(s.Name)

		if out.Sources[i].Name == "" {
			res.addErr("sources[%d].name is required", i)
		}
		if id == "" {
			res.addErr("sources[%d].identifier is required", i)
		}
		if !knownSourceTypes[typ] {
			res.addErr("sources[%d].type %q is not supported", i, s.Type)
		}
		key := typ + "/" + strings.ToLower(id)
		if seen[key] {
			res.addErr("duplicate source: %s appears multiple times", key)
		}
		seen[key] = true
		if s.Enabled {
			anyEnabled = true
		}
	}
	if len(out.Sources) == 0 {
		res.addErr("at least one source must be configured")
	} else if !anyEnabled {
		res.addErr("at least one source must be enabled")
	}

	// interval bounds
	if strings.TrimSpace(out.ScanInterval) != "" {
		d, err := time.ParseDuration(out.ScanInterval)
		switch {
		case err != nil:
			res.addErr("scan_interval %q is not a valid duration", out.ScanInterval)
		case d < 5*time.Minute:
			res.addErr("scan_interval must be at least 5m")
		case d > 24*time.Hour:
			res.addErr("scan_interval must be at most 24h")
		}
	}

	// email sanity (delivery fields only matter when recipients are set)
	if strings.TrimSpace(out.Email.To) != "" {
		if strings.TrimSpace(out.Email.SMTPHost) == "" {
			res.addErr("email.smtp_host is required when email.to is set")
		}
		if out.Email.SMTPPort == 0 {
			res.addErr("email.smtp_port is required when email.to is set")
		}
		if strings.TrimSpace(out.Email.From) == "" {
			res.addErr("email.from is required when email.to is set")
		}
	} else {
		res.addWarn("email.to is empty; matches will be logged but not delivered")
	}
	if out.Email.MaxRetries < 0 || out.Email.MaxRetries > 10 {
		res.addErr("email.max_retries must be 0..10")
	}
	if out.Email.RetryBackoffMultiplier != 0 && out.Email.RetryBackoffMultiplier < 1.0 {
		res.addErr("email.retry_backoff_multiplier must be >= 1.0")
	}

	if len(out.Search.ExcludeTerms) > 100 {
		res.addWarn("exclude_terms has %d entries; consider tightening it", len(out.Search.ExcludeTerms))
	}

	return out, res
}
