package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"refresher/internal/model"
)

// BrowserNonce loads the listing page in headless Chrome and reads the
// nonce after scripts ran. Cookies from the jar are handed to the browser
// and the ones it receives are written back.
type BrowserNonce struct {
	allocator context.Context
	cancel    context.CancelFunc
	jar       http.CookieJar
	base      *url.URL
	timeout   time.Duration

	mu    sync.Mutex
	cache map[string]string
}

// NewBrowserNonce starts an exec allocator. Close releases it.
func NewBrowserNonce(c *Client, timeout time.Duration) *BrowserNonce {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
	)
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}
	alloc, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &BrowserNonce{
		allocator: alloc,
		cancel:    cancel,
		jar:       c.Jar(),
		base:      c.BaseURL(),
		timeout:   timeout,
		cache:     map[string]string{},
	}
}

// Close stops the browser.
func (b *BrowserNonce) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *BrowserNonce) Nonce(ctx context.Context, loc model.GalleryLocator) (string, error) {
	key := loc.SubType().PathSegment() + loc.Gallery
	b.mu.Lock()
	if v, ok := b.cache[key]; ok {
		b.mu.Unlock()
		return v, nil
	}
	b.mu.Unlock()

	target := b.base.ResolveReference(&url.URL{
		Path:     loc.SubType().PathSegment() + "board/lists/",
		RawQuery: "id=" + url.QueryEscape(loc.Gallery),
	}).String()

	taskCtx, cancelBrowser := chromedp.NewContext(b.allocator)
	defer cancelBrowser()
	taskCtx, cancel := context.WithTimeout(taskCtx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var value string
	var ok bool
	var received []*network.Cookie
	actions := []chromedp.Action{network.Enable()}
	if params := b.cookieParams(target); len(params) > 0 {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookies(params).Do(ctx)
		}))
	}
	actions = append(actions,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.AttributeValue("#e_s_n_o", "value", &value, &ok, chromedp.ByQuery, chromedp.AtLeast(0)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			received, err = network.GetCookies().WithURLs([]string{target}).Do(ctx)
			return err
		}),
	)
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("browser nonce: %w", ErrCancelled)
		}
		return "", fmt.Errorf("browser nonce: %w: %v", ErrNetwork, err)
	}
	b.storeCookies(target, received)
	if !ok {
		return "", ErrNoNonce
	}

	b.mu.Lock()
	b.cache[key] = value
	b.mu.Unlock()
	return value, nil
}

// Forget drops the remembered nonce of loc's gallery.
func (b *BrowserNonce) Forget(loc model.GalleryLocator) {
	b.mu.Lock()
	delete(b.cache, loc.SubType().PathSegment()+loc.Gallery)
	b.mu.Unlock()
}

func (b *BrowserNonce) cookieParams(target string) []*network.CookieParam {
	u, err := url.Parse(target)
	if err != nil || b.jar == nil {
		return nil
	}
	var params []*network.CookieParam
	for _, ck := range b.jar.Cookies(u) {
		p := &network.CookieParam{
			Name:   ck.Name,
			Value:  ck.Value,
			Domain: u.Hostname(),
			Path:   "/",
		}
		if !ck.Expires.IsZero() {
			exp := cdp.TimeSinceEpoch(ck.Expires.UTC())
			p.Expires = &exp
		}
		params = append(params, p)
	}
	return params
}

func (b *BrowserNonce) storeCookies(target string, cookies []*network.Cookie) {
	u, err := url.Parse(target)
	if err != nil || b.jar == nil || len(cookies) == 0 {
		return
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   strings.TrimPrefix(c.Domain, "."),
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if !c.Session && c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0).UTC()
		}
		out = append(out, hc)
	}
	b.jar.SetCookies(u, out)
}
