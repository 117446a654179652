package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 300*time.Millisecond, cfg.Preview.LongPressDelay)
	assert.Equal(t, 10*time.Second, cfg.Preview.CommentRefreshInterval)
	assert.True(t, cfg.Preview.ScrollToSkip)
	assert.False(t, cfg.Preview.AutoRefreshComment)
	assert.Equal(t, 50, cfg.Tuning.CacheSize)
	assert.Equal(t, 150*time.Millisecond, cfg.Tuning.HoverWindow)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"cache", func(c *Config) { c.Tuning.CacheSize = 0 }, "cache_size"},
		{"scroll", func(c *Config) { c.Tuning.ScrollThreshold = 0 }, "scroll_threshold"},
		{"interval", func(c *Config) { c.Preview.CommentRefreshInterval = 10 * time.Millisecond }, "comment_refresh_interval"},
		{"base url relative", func(c *Config) { c.Site.BaseURL = "/board/" }, "base_url"},
		{"base url slash", func(c *Config) { c.Site.BaseURL = "https://example.com/x" }, "must end with /"},
		{"nonce", func(c *Config) { c.Site.Nonce = "magic" }, "site.nonce"},
		{"rule kind", func(c *Config) { c.Block.Rules = []BlockRule{{Kind: "COLOR", Pattern: "*"}} }, "unknown kind"},
		{"rule pattern", func(c *Config) { c.Block.Rules = []BlockRule{{Kind: "NICK"}} }, "empty pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoaderFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
preview:
  auto_refresh_comment: true
  comment_refresh_interval: 30s
tuning:
  cache_size: 7
block:
  rules:
    - kind: NICK
      pattern: "spam*"
      gallery: programming
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("REFRESHER_TUNING_SCROLL_THRESHOLD", "4")

	l := NewLoader()
	l.SetConfigFile(path)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Preview.AutoRefreshComment)
	assert.Equal(t, 30*time.Second, cfg.Preview.CommentRefreshInterval)
	assert.Equal(t, 7, cfg.Tuning.CacheSize)
	assert.Equal(t, 4, cfg.Tuning.ScrollThreshold)
	assert.Equal(t, "https://gall.dcinside.com/", cfg.Site.BaseURL)
	require.Len(t, cfg.Block.Rules, 1)
	assert.Equal(t, "programming", cfg.Block.Rules[0].Gallery)
}

func TestLoaderMissingForcedFile(t *testing.T) {
	l := NewLoader()
	l.SetConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := l.Load()
	require.Error(t, err)
}
