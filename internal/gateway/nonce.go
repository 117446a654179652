package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andybalholm/cascadia"

	"refresher/internal/model"
	"refresher/internal/parse"
)

// ErrNoNonce is returned when a listing page carries no #e_s_n_o input.
var ErrNoNonce = errors.New("gateway: page nonce not found")

// NonceSource provides the per page-session nonce the comment endpoint
// requires.
type NonceSource interface {
	Nonce(ctx context.Context, loc model.GalleryLocator) (string, error)
}

// StaticNonce always returns the same value.
type StaticNonce string

func (s StaticNonce) Nonce(context.Context, model.GalleryLocator) (string, error) {
	return string(s), nil
}

var nonceSel = cascadia.MustCompile("#e_s_n_o")

// NonceFromPage reads the nonce input of a parsed listing or view page.
func NonceFromPage(body []byte) (string, error) {
	doc, err := parse.Document(body)
	if err != nil {
		return "", err
	}
	n := cascadia.Query(doc, nonceSel)
	if n == nil {
		return "", ErrNoNonce
	}
	v, _ := parse.Attr(n, "value")
	return v, nil
}

// PageNonce scrapes the nonce from the gallery listing page and remembers
// it per gallery.
type PageNonce struct {
	c     *Client
	mu    sync.Mutex
	cache map[string]string
}

// NewPageNonce returns a PageNonce fetching through c.
func NewPageNonce(c *Client) *PageNonce {
	return &PageNonce{c: c, cache: map[string]string{}}
}

func (p *PageNonce) Nonce(ctx context.Context, loc model.GalleryLocator) (string, error) {
	key := loc.SubType().PathSegment() + loc.Gallery
	p.mu.Lock()
	v, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return v, nil
	}

	body, err := p.c.get(ctx, "fetch nonce", p.c.ListURL(loc), nil)
	if err != nil {
		return "", err
	}
	v, err = NonceFromPage(body)
	if err != nil {
		return "", fmt.Errorf("fetch nonce %s: %w", loc.Gallery, err)
	}
	p.mu.Lock()
	p.cache[key] = v
	p.mu.Unlock()
	return v, nil
}

// Remember stores a nonce already read from loc's listing page.
func (p *PageNonce) Remember(loc model.GalleryLocator, nonce string) {
	if nonce == "" {
		return
	}
	p.mu.Lock()
	p.cache[loc.SubType().PathSegment()+loc.Gallery] = nonce
	p.mu.Unlock()
}

// Forget drops the remembered nonce of loc's gallery.
func (p *PageNonce) Forget(loc model.GalleryLocator) {
	p.mu.Lock()
	delete(p.cache, loc.SubType().PathSegment()+loc.Gallery)
	p.mu.Unlock()
}
