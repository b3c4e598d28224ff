package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	var cfg Config
	cfg.Sources = []Source{
		{Name: "Acme", Type: "greenhouse", Identifier: "acme", Enabled: true},
	}
	cfg.Search.RequiredTerms = []string{"python"}
	cfg.ScanInterval = "15m"
	cfg.Email.To = "me@example.com"
	cfg.Email.From = "scanner@example.com"
	cfg.Email.SMTPHost = "smtp.example.com"
	cfg.Email.SMTPPort = 587
	cfg.Email.MaxRetries = 3
	return cfg
}

func TestNormalizeAndValidateOK(t *testing.T) {
	out, res := NormalizeAndValidate(validConfig())
	require.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, []string{"python"}, out.Search.RequiredTerms)
}

func TestNormalizeTerms(t *testing.T) {
	cfg := validConfig()
	cfg.Search.RequiredTerms = []string{"  Python ", "python", "", "Remote"}
	cfg.Search.KeywordGroups = [][]string{{" Senior ", ""}, {}}

	out, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, []string{"python", "remote"}, out.Search.RequiredTerms)
	assert.Equal(t, [][]string{{"senior"}}, out.Search.KeywordGroups)
}

func TestRequiredExcludeConflict(t *testing.T) {
	cfg := validConfig()
	cfg.Search.ExcludeTerms = []string{"python"}

	_, res := NormalizeAndValidate(cfg)
	assert.False(t, res.OK())
}

func TestGroupExcludeConflict(t *testing.T) {
	cfg := validConfig()
	cfg.Search.KeywordGroups = [][]string{{"senior", "lead"}}
	cfg.Search.ExcludeTerms = []string{"lead"}

	_, res := NormalizeAndValidate(cfg)
	assert.False(t, res.OK())
}

func TestDuplicateSources(t *testing.T) {
	cfg := validConfig()
	cfg.Sources = append(cfg.Sources, Source{
		Name: "Acme again", Type: "Greenhouse", Identifier: " acme ", Enabled: false,
	})

	_, res := NormalizeAndValidate(cfg)
	assert.False(t, res.OK())
}

func TestNoEnabledSources(t *testing.T) {
	cfg := validConfig()
	cfg.Sources[0].Enabled = false

	_, res := NormalizeAndValidate(cfg)
	assert.False(t, res.OK())
}

func TestIntervalBounds(t *testing.T) {
	for _, tt := range []struct {
		interval string
		ok       bool
	}{
		{"15m", true},
		{"5m", true},
		{"24h", true},
		{"1m", false},
		{"48h", false},
		{"soon", false},
		{"", true}, // unset falls back to the default
	} {
		cfg := validConfig()
		cfg.ScanInterval = tt.interval
		_, res := NormalizeAndValidate(cfg)
		assert.Equal(t, tt.ok, res.OK(), "interval %q: %v", tt.interval, res.Errors)
	}
}

func TestEmptySearchRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Search = Search{ExcludeTerms: []string{"intern"}}

	_, res := NormalizeAndValidate(cfg)
	assert.False(t, res.OK())
}
