package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. REFRESHER_SITE_BASE_URL.
const EnvPrefix = "REFRESHER"

// Loader reads configuration with precedence defaults < file < env.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader returns a loader with its own viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// SetConfigFile forces a specific file. A missing forced file is an error.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Viper exposes the underlying instance so CLI flags can be bound to it.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load resolves and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.setup(cfg)

	if err := l.readFile(); err != nil {
		return nil, err
	}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) setup(cfg *Config) {
	v := l.v
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "refresher"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		v.AddConfigPath(filepath.Join(home, ".config", "refresher"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, cfg)
	v.AutomaticEnv()
}

// setDefaults registers every key so AutomaticEnv can see nested values
// during Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	p := cfg.Preview
	v.SetDefault("preview.tooltip_mode", p.TooltipMode)
	v.SetDefault("preview.tooltip_media_hide", p.TooltipMediaHide)
	v.SetDefault("preview.reverse_preview_key", p.ReversePreviewKey)
	v.SetDefault("preview.long_press_delay", p.LongPressDelay)
	v.SetDefault("preview.scroll_to_skip", p.ScrollToSkip)
	v.SetDefault("preview.color_preview_link", p.ColorPreviewLink)
	v.SetDefault("preview.auto_refresh_comment", p.AutoRefreshComment)
	v.SetDefault("preview.comment_refresh_interval", p.CommentRefreshInterval)
	v.SetDefault("preview.toggle_blur", p.ToggleBlur)
	v.SetDefault("preview.toggle_background_blur", p.ToggleBackgroundBlur)
	v.SetDefault("preview.toggle_admin_panel", p.ToggleAdminPanel)
	v.SetDefault("preview.use_key_press", p.UseKeyPress)
	v.SetDefault("preview.expand_recognize_range", p.ExpandRecognizeRange)
	v.SetDefault("preview.no_cache_header", p.NoCacheHeader)
	v.SetDefault("preview.experimental_comment", p.ExperimentalComment)

	t := cfg.Tuning
	v.SetDefault("tuning.cache_size", t.CacheSize)
	v.SetDefault("tuning.hover_window", t.HoverWindow)
	v.SetDefault("tuning.scroll_threshold", t.ScrollThreshold)
	v.SetDefault("tuning.keypress_window", t.KeypressWindow)
	v.SetDefault("tuning.request_timeout", t.RequestTimeout)

	s := cfg.Site
	v.SetDefault("site.base_url", s.BaseURL)
	v.SetDefault("site.origin", s.Origin)
	v.SetDefault("site.cookie_domain", s.CookieDomain)
	v.SetDefault("site.user_agent", s.UserAgent)
	v.SetDefault("site.nonce", s.Nonce)
	v.SetDefault("site.static_nonce", s.StaticNonce)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

func (l *Loader) readFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}
	err := l.v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if l.configFile == "" && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to load config file: %w", err)
}
