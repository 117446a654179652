// Package gateway talks to the forum: post pages, comment payloads and the
// moderation endpoints.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	"refresher/internal/clock"
	"refresher/internal/model"
)

const (
	// CSRFCookie is the cookie whose value is sent as the ci_t form field.
	CSRFCookie = "ci_c"

	defaultBaseURL      = "https://gall.dcinside.com/"
	defaultOrigin       = "https://gall.dcinside.com"
	defaultCookieDomain = "dcinside.com"
	voteMarkerTTL       = 3 * time.Hour
	maxBodyBytes        = 8 << 20
)

// Client is the forum gateway. It is safe for concurrent use.
type Client struct {
	base         *url.URL
	origin       string
	cookieDomain string
	userAgent    string

	http      *http.Client
	endpoints Endpoints
	nonce     NonceSource
	nonceFn   func(*Client) NonceSource
	clock     clock.Clock
	log       zerolog.Logger

	posts singleflight.Group
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL sets the site root. It must end with "/".
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("gateway: base url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.base = u
		return nil
	}
}

// WithOrigin sets the Origin header sent on moderation requests.
func WithOrigin(origin string) Option {
	return func(c *Client) error { c.origin = origin; return nil }
}

// WithCookieDomain sets the domain of cookies the client writes itself.
// An empty domain makes them host-only.
func WithCookieDomain(domain string) Option {
	return func(c *Client) error { c.cookieDomain = domain; return nil }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error { c.userAgent = ua; return nil }
}

// WithHTTPClient replaces the transport client. A client without a jar
// gets one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error { c.http = hc; return nil }
}

// WithEndpoints overrides the moderation endpoint table.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) error { c.endpoints = e; return nil }
}

// WithNonceSource sets how the comment nonce is obtained.
func WithNonceSource(n NonceSource) Option {
	return func(c *Client) error { c.nonce = n; return nil }
}

// WithNonceFunc builds the nonce source from the assembled client. Used by
// sources that share its cookie jar.
func WithNonceFunc(fn func(*Client) NonceSource) Option {
	return func(c *Client) error { c.nonceFn = fn; return nil }
}

// WithClock sets the clock used for cookie expiry and captcha timestamps.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) error { c.clock = clk; return nil }
}

// WithLogger sets the logger. Requests are logged at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error { c.log = l; return nil }
}

// New builds a Client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		origin:       defaultOrigin,
		cookieDomain: defaultCookieDomain,
		endpoints:    DefaultEndpoints(),
		clock:        clock.Real(),
		log:          zerolog.Nop(),
	}
	c.base, _ = url.Parse(defaultBaseURL)
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	} else {
		hc := *c.http
		c.http = &hc
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("gateway: cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	c.http.Transport = NewLoggingTransport(c.http.Transport, c.log)
	if c.nonceFn != nil {
		c.nonce = c.nonceFn(c)
	}
	if c.nonce == nil {
		c.nonce = NewPageNonce(c)
	}
	return c, nil
}

// BaseURL returns the site root.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Endpoints returns the endpoint table in use.
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// Jar returns the cookie jar shared by every request.
func (c *Client) Jar() http.CookieJar { return c.http.Jar }

// CSRFToken returns the current anti-forgery token or "".
func (c *Client) CSRFToken() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == CSRFCookie {
			return ck.Value
		}
	}
	return ""
}

// SetCSRFToken stores token as the anti-forgery cookie.
func (c *Client) SetCSRFToken(token string) {
	c.setCookie(&http.Cookie{Name: CSRFCookie, Value: token, Path: "/"})
}

func (c *Client) setCookie(ck *http.Cookie) {
	if c.cookieDomain != "" && ck.Domain == "" {
		ck.Domain = c.cookieDomain
	}
	c.http.Jar.SetCookies(c.base, []*http.Cookie{ck})
}

// resolve joins a path relative to the base URL.
func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.base.String() + strings.TrimPrefix(path, "/")
	}
	return c.base.ResolveReference(ref).String()
}

// ViewURL is the canonical page URL of the post.
func (c *Client) ViewURL(loc model.GalleryLocator) string {
	return c.resolve(loc.SubType().PathSegment() + "board/view/?id=" +
		url.QueryEscape(loc.Gallery) + "&no=" + url.QueryEscape(loc.ID))
}

// ListURL is the gallery listing page.
func (c *Client) ListURL(loc model.GalleryLocator) string {
	return c.resolve(loc.SubType().PathSegment() + "board/lists/?id=" + url.QueryEscape(loc.Gallery))
}

func (c *Client) get(ctx context.Context, op, target string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrNetwork, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.do(ctx, op, req)
}

// postForm sends a moderation style request: body "&" + params, XHR
// headers and no caching.
func (c *Client) postForm(ctx context.Context, op, target, referer string, params url.Values) (string, error) {
	body := "&" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrNetwork, err)
	}
	req.Header.Set("Origin", c.origin)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Cache-Control", "no-store")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	b, err := c.do(ctx, op, req)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Client) do(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrCancelled)
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(ctx, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w", op, &StatusError{Code: resp.StatusCode, URL: req.URL.String()})
	}
	return b, nil
}

// moderationParams starts a form with the CSRF token, gallery id and type.
func (c *Client) moderationParams(loc model.GalleryLocator) url.Values {
	v := url.Values{}
	v.Set("ci_t", c.CSRFToken())
	v.Set("id", loc.Gallery)
	v.Set("_GALLTYPE_", loc.SubType().TypeName())
	return v
}

func requireLink(op string, loc model.GalleryLocator) error {
	if loc.Link == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingContext)
	}
	return nil
}
