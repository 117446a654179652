package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"refresher/internal/block"
	"refresher/internal/cache"
	"refresher/internal/config"
	"refresher/internal/gateway"
	"refresher/internal/logging"
	"refresher/internal/model"
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"base-url":   "site.base_url",
	"nonce":      "site.nonce",
}

// runtime is everything a command needs, built once per invocation.
type runtime struct {
	cfg     *config.Config
	log     zerolog.Logger
	client  *gateway.Client
	checker *block.List
	cache   *cache.PostCache
	// pageNonce is set when nonces are scraped from listing pages.
	pageNonce *gateway.PageNonce
	closers   []func()
}

func newRuntime(cmd *cobra.Command, opts *rootOptions) (*runtime, error) {
	loader := config.NewLoader()
	if opts.configFile != "" {
		loader.SetConfigFile(opts.configFile)
	}
	v := loader.Viper()
	for name, key := range flagKeys {
		f := cmd.Root().PersistentFlags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	cfg.Logging.Output = cmd.ErrOrStderr()
	log := logging.Init(cfg.Logging)

	checker, err := block.NewList(cfg.Block.Rules)
	if err != nil {
		return nil, fmt.Errorf("block rules: %w", err)
	}

	rt := &runtime{
		cfg:     cfg,
		log:     log,
		checker: checker,
		cache:   cache.New(cfg.Tuning.CacheSize),
	}
	gopts := []gateway.Option{
		gateway.WithBaseURL(cfg.Site.BaseURL),
		gateway.WithOrigin(cfg.Site.Origin),
		gateway.WithCookieDomain(cfg.Site.CookieDomain),
		gateway.WithUserAgent(cfg.Site.UserAgent),
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.Tuning.RequestTimeout}),
		gateway.WithLogger(logging.Component("gateway")),
	}
	switch cfg.Site.Nonce {
	case "static":
		gopts = append(gopts, gateway.WithNonceSource(gateway.StaticNonce(cfg.Site.StaticNonce)))
	case "page":
		gopts = append(gopts, gateway.WithNonceFunc(func(c *gateway.Client) gateway.NonceSource {
			rt.pageNonce = gateway.NewPageNonce(c)
			return rt.pageNonce
		}))
	case "browser":
		gopts = append(gopts, gateway.WithNonceFunc(func(c *gateway.Client) gateway.NonceSource {
			bn := gateway.NewBrowserNonce(c, cfg.Tuning.RequestTimeout)
			rt.closers = append(rt.closers, bn.Close)
			return bn
		}))
	}
	rt.client, err = gateway.New(gopts...)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("base_url", cfg.Site.BaseURL).Str("nonce", cfg.Site.Nonce).Int("block_rules", checker.Len()).Msg("runtime ready")
	return rt, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// locatorFromURL reads the gallery and post number of a post page URL.
func locatorFromURL(raw string) (model.GalleryLocator, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return model.GalleryLocator{}, fmt.Errorf("invalid post url %q: %w", raw, err)
	}
	q := u.Query()
	loc := model.GalleryLocator{Gallery: q.Get("id"), ID: q.Get("no"), Link: u.String()}
	if loc.Gallery == "" || loc.ID == "" {
		return model.GalleryLocator{}, fmt.Errorf("post url %q needs id and no parameters", raw)
	}
	return loc, nil
}

// galleryFromURL reads the gallery of a listing or post URL. A bare
// gallery id is taken as a major gallery.
func galleryFromURL(raw string) (model.GalleryLocator, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "/") {
		if raw == "" {
			return model.GalleryLocator{}, fmt.Errorf("empty gallery")
		}
		return model.GalleryLocator{Gallery: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return model.GalleryLocator{}, fmt.Errorf("invalid gallery url %q: %w", raw, err)
	}
	id := u.Query().Get("id")
	if id == "" {
		return model.GalleryLocator{}, fmt.Errorf("gallery url %q needs an id parameter", raw)
	}
	return model.GalleryLocator{Gallery: id, Link: u.String()}, nil
}
