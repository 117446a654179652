// Package config holds the preview engine settings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"refresher/internal/logging"
)

// Config is the root configuration.
type Config struct {
	Preview Preview        `mapstructure:"preview"`
	Tuning  Tuning         `mapstructure:"tuning"`
	Site    Site           `mapstructure:"site"`
	Block   Block          `mapstructure:"block"`
	Logging logging.Config `mapstructure:"logging"`
}

// Preview mirrors the user facing options of the preview module.
type Preview struct {
	TooltipMode            bool          `mapstructure:"tooltip_mode"`
	TooltipMediaHide       bool          `mapstructure:"tooltip_media_hide"`
	ReversePreviewKey      bool          `mapstructure:"reverse_preview_key"`
	LongPressDelay         time.Duration `mapstructure:"long_press_delay"`
	ScrollToSkip           bool          `mapstructure:"scroll_to_skip"`
	ColorPreviewLink       bool          `mapstructure:"color_preview_link"`
	AutoRefreshComment     bool          `mapstructure:"auto_refresh_comment"`
	CommentRefreshInterval time.Duration `mapstructure:"comment_refresh_interval"`
	ToggleBlur             bool          `mapstructure:"toggle_blur"`
	ToggleBackgroundBlur   bool          `mapstructure:"toggle_background_blur"`
	ToggleAdminPanel       bool          `mapstructure:"toggle_admin_panel"`
	UseKeyPress            bool          `mapstructure:"use_key_press"`
	ExpandRecognizeRange   bool          `mapstructure:"expand_recognize_range"`
	NoCacheHeader          bool          `mapstructure:"no_cache_header"`
	ExperimentalComment    bool          `mapstructure:"experimental_comment"`
}

// Tuning holds engine constants that tests and hosts may override.
type Tuning struct {
	CacheSize       int           `mapstructure:"cache_size"`
	HoverWindow     time.Duration `mapstructure:"hover_window"`
	ScrollThreshold int           `mapstructure:"scroll_threshold"`
	KeypressWindow  time.Duration `mapstructure:"keypress_window"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// Site describes the remote forum.
type Site struct {
	BaseURL      string `mapstructure:"base_url"`
	Origin       string `mapstructure:"origin"`
	CookieDomain string `mapstructure:"cookie_domain"`
	UserAgent    string `mapstructure:"user_agent"`
	// Nonce selects how the comment nonce is obtained: static, page or browser.
	Nonce       string `mapstructure:"nonce"`
	StaticNonce string `mapstructure:"static_nonce"`
}

// Block carries the rules of the built in block list.
type Block struct {
	Rules []BlockRule `mapstructure:"rules"`
}

// BlockRule matches Pattern (a glob) against values of Kind. An empty
// Gallery applies everywhere.
type BlockRule struct {
	Kind    string `mapstructure:"kind"`
	Pattern string `mapstructure:"pattern"`
	Gallery string `mapstructure:"gallery"`
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Preview: Preview{
			LongPressDelay:         300 * time.Millisecond,
			ScrollToSkip:           true,
			ColorPreviewLink:       true,
			CommentRefreshInterval: 10 * time.Second,
			ToggleBlur:             true,
			ToggleAdminPanel:       true,
			UseKeyPress:            true,
		},
		Tuning: Tuning{
			CacheSize:       50,
			HoverWindow:     150 * time.Millisecond,
			ScrollThreshold: 2,
			KeypressWindow:  time.Second,
			RequestTimeout:  15 * time.Second,
		},
		Site: Site{
			BaseURL:      "https://gall.dcinside.com/",
			Origin:       "https://gall.dcinside.com",
			CookieDomain: "dcinside.com",
			UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
			Nonce:        "page",
		},
		Logging: logging.Config{Level: "info", Format: "console"},
	}
}

var validKinds = map[string]bool{
	"NICK": true, "ID": true, "IP": true, "TEXT": true, "COMMENT": true, "DCCON": true,
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Tuning.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("tuning.cache_size must be positive, got %d", c.Tuning.CacheSize))
	}
	if c.Tuning.HoverWindow < 0 {
		errs = append(errs, errors.New("tuning.hover_window must not be negative"))
	}
	if c.Tuning.ScrollThreshold < 1 {
		errs = append(errs, fmt.Errorf("tuning.scroll_threshold must be at least 1, got %d", c.Tuning.ScrollThreshold))
	}
	if c.Tuning.KeypressWindow <= 0 {
		errs = append(errs, errors.New("tuning.keypress_window must be positive"))
	}
	if c.Preview.CommentRefreshInterval < time.Second {
		errs = append(errs, fmt.Errorf("preview.comment_refresh_interval must be at least 1s, got %s", c.Preview.CommentRefreshInterval))
	}
	if c.Preview.LongPressDelay < 0 {
		errs = append(errs, errors.New("preview.long_press_delay must not be negative"))
	}
	if u, err := url.Parse(c.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("site.base_url %q is not an absolute URL", c.Site.BaseURL))
	} else if !strings.HasSuffix(u.Path, "/") {
		errs = append(errs, fmt.Errorf("site.base_url %q must end with /", c.Site.BaseURL))
	}
	switch c.Site.Nonce {
	case "static", "page", "browser":
	default:
		errs = append(errs, fmt.Errorf("site.nonce must be static, page or browser, got %q", c.Site.Nonce))
	}
	for i, r := range c.Block.Rules {
		if !validKinds[strings.ToUpper(r.Kind)] {
			errs = append(errs, fmt.Errorf("block.rules[%d]: unknown kind %q", i, r.Kind))
		}
		if r.Pattern == "" {
			errs = append(errs, fmt.Errorf("block.rules[%d]: empty pattern", i))
		}
	}
	return errors.Join(errs...)
}
