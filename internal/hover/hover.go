// Package hover shows a floating post preview while the pointer rests on a
// listing row.
package hover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"refresher/internal/block"
	"refresher/internal/cache"
	"refresher/internal/clock"
	"refresher/internal/gateway"
	"refresher/internal/model"
	"refresher/internal/parse"
)

// DefaultWindow is the coalescing window for rapid hover-enters.
const DefaultWindow = 150 * time.Millisecond

const (
	edgeMargin = 10
	mediaSel   = "img, video, iframe"
	bodySel    = ".write_div"
)

// Tooltip is the floating element the host renders.
type Tooltip interface {
	Show()
	Hide()
	SetTitle(title string)
	SetContents(markup string)
	MoveTo(x, y int)
	Size() (w, h int)
}

// Fetcher loads a post.
type Fetcher interface {
	FetchPost(ctx context.Context, loc model.GalleryLocator, noCache bool) (*model.PostRecord, error)
}

// Resolver maps a hovered element to a post.
type Resolver interface {
	Resolve(target *html.Node) (model.GalleryLocator, bool)
}

// Options configures a Controller.
type Options struct {
	Window    time.Duration
	MediaHide bool
	NoCache   bool
	Checker   block.Checker
	Cache     *cache.PostCache
	Clock     clock.Clock
	Logger    zerolog.Logger
}

// Controller drives one Tooltip. Its requests are cancelled by Close and
// never by the overlay session.
type Controller struct {
	tip      Tooltip
	fetch    Fetcher
	resolver Resolver
	opt      Options

	mu          sync.Mutex
	enabled     bool
	lastRequest time.Time
	lastTarget  *html.Node
	cursorLeft  bool
	timer       clock.Timer
	viewportW   int
	viewportH   int
	ctx         context.Context
	cancel      context.CancelFunc

	wg sync.WaitGroup
}

// New returns an enabled controller.
func New(tip Tooltip, f Fetcher, r Resolver, opt Options) *Controller {
	if opt.Window <= 0 {
		opt.Window = DefaultWindow
	}
	if opt.Checker == nil {
		opt.Checker = block.Nothing{}
	}
	if opt.Cache == nil {
		opt.Cache = cache.New(cache.DefaultCapacity)
	}
	if opt.Clock == nil {
		opt.Clock = clock.Real()
	}
	c := &Controller{tip: tip, fetch: f, resolver: r, opt: opt, enabled: true}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// SetEnabled turns the tooltip mode on or off.
func (c *Controller) SetEnabled(on bool) {
	c.mu.Lock()
	c.enabled = on
	c.mu.Unlock()
}

// SetViewport records the visible area used to clamp the tooltip.
func (c *Controller) SetViewport(w, h int) {
	c.mu.Lock()
	c.viewportW, c.viewportH = w, h
	c.mu.Unlock()
}

// Enter handles the pointer entering target. Entries closer together than
// the window are deferred to a single retry on the latest target.
func (c *Controller) Enter(target *html.Node) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	c.cursorLeft = false
	now := c.opt.Clock.Now()
	if !c.lastRequest.IsZero() && now.Sub(c.lastRequest) < c.opt.Window {
		c.lastRequest = now
		c.lastTarget = target
		if c.timer != nil {
			c.timer.Stop()
		}
		c.timer = c.opt.Clock.AfterFunc(c.opt.Window, func() { c.retry(target) })
		c.mu.Unlock()
		return
	}
	c.lastRequest = now
	ctx := c.ctx
	c.mu.Unlock()

	loc, ok := c.resolver.Resolve(target)
	if !ok {
		return
	}
	c.tip.Show()
	c.tip.SetTitle(loc.Title)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.load(ctx, loc)
	}()
}

func (c *Controller) retry(target *html.Node) {
	c.mu.Lock()
	c.timer = nil
	again := !c.cursorLeft && c.lastTarget == target
	c.cursorLeft = false
	c.mu.Unlock()
	if again {
		c.Enter(target)
	}
}

func (c *Controller) load(ctx context.Context, loc model.GalleryLocator) {
	post, err := c.post(ctx, loc)
	if err != nil {
		if errors.Is(err, gateway.ErrCancelled) || ctx.Err() != nil {
			c.tip.SetContents("")
			return
		}
		c.opt.Logger.Debug().Err(err).Str("key", loc.Key()).Msg("preview load failed")
		c.tip.SetContents(fmt.Sprintf("cannot load the post: %v", err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	c.tip.SetContents(c.render(post, loc.Gallery))
}

func (c *Controller) post(ctx context.Context, loc model.GalleryLocator) (*model.PostRecord, error) {
	if e, ok := c.opt.Cache.Get(loc.Key()); ok && e.Post != nil {
		return e.Post, nil
	}
	post, err := c.fetch.FetchPost(ctx, loc, c.opt.NoCache)
	if err != nil {
		return nil, err
	}
	c.opt.Cache.Set(loc.Key(), cache.Entry{Post: post})
	return post, nil
}

func (c *Controller) render(post *model.PostRecord, gallery string) string {
	contents := model.Deref(post.Contents)
	if c.opt.Checker.Check(block.Text, contents, gallery) {
		return block.ContentNotice
	}
	out, err := parse.StripStyle(contents, bodySel)
	if err != nil {
		return contents
	}
	if c.opt.MediaHide {
		if hidden, err := parse.Remove(out, mediaSel); err == nil {
			out = hidden
		}
	}
	return out
}

// Move places the tooltip at the pointer, kept inside the viewport.
func (c *Controller) Move(clientX, clientY int) {
	c.mu.Lock()
	on, vw, vh := c.enabled, c.viewportW, c.viewportH
	c.mu.Unlock()
	if !on {
		return
	}
	w, h := c.tip.Size()
	c.tip.MoveTo(min(clientX, vw-w-edgeMargin), min(clientY, vh-h-edgeMargin))
}

// Close hides the tooltip and cancels its in-flight request.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cursorLeft = true
	if c.enabled {
		c.cancel()
		c.ctx, c.cancel = context.WithCancel(context.Background())
	}
	c.mu.Unlock()
	c.tip.Hide()
}

// Shutdown cancels everything and stops the pending retry.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}

// Wait blocks until every started load has rendered.
func (c *Controller) Wait() { c.wg.Wait() }
