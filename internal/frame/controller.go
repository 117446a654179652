// Package frame runs the preview overlay: a post pane and a comment pane
// sharing one session, paging by scrolling and integrating with the
// browser history.
package frame

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"refresher/internal/block"
	"refresher/internal/cache"
	"refresher/internal/clock"
	"refresher/internal/comments"
	"refresher/internal/config"
	"refresher/internal/events"
	"refresher/internal/gateway"
	"refresher/internal/listing"
	"refresher/internal/model"
	"refresher/internal/moderation"
	"refresher/internal/parse"
)

const (
	rightButton      = 2
	commentFormScope = ".cmt_write_box"
	loadingTitle     = "Loading post..."
	toastShort       = 2 * time.Second
	toastLong        = 3 * time.Second
)

var (
	errVoteRejected    = errors.New("frame: vote rejected")
	errCommentRejected = errors.New("frame: comment rejected")
)

// Gateway is the remote surface the overlay needs.
type Gateway interface {
	moderation.Gateway
	FetchPost(ctx context.Context, loc model.GalleryLocator, noCache bool) (*model.PostRecord, error)
	Vote(ctx context.Context, loc model.GalleryLocator, up bool, code string) (gateway.VoteResult, error)
	WriteComment(ctx context.Context, loc model.GalleryLocator, hidden map[string]string, in gateway.CommentInput) (gateway.Response, error)
	ViewURL(loc model.GalleryLocator) string
}

// Comments loads processed comment threads.
type Comments interface {
	Load(ctx context.Context, loc model.GalleryLocator, useCache bool) (*comments.Result, error)
}

// Resolver maps a listing element to a post.
type Resolver interface {
	Resolve(target *html.Node) (model.GalleryLocator, bool)
}

// Options configures a Controller.
type Options struct {
	Preview          config.Preview
	ScrollThreshold  int
	KeyWindow        time.Duration
	HasAdminControls bool

	Cache     *cache.PostCache
	Checker   block.Checker
	Events    Bus
	History   History
	Clipboard Clipboard
	Tooltip   Tooltip
	Notifier  moderation.Notifier
	Alerter   moderation.Alerter
	Captcha   moderation.CaptchaPrompter
	Observer  Observer
	// OnClose runs after a session ended, to remove popups of the host.
	OnClose func()

	Clock  clock.Clock
	Logger zerolog.Logger
}

// Controller owns the overlay. At most one session is open at a time.
type Controller struct {
	gw        Gateway
	comments  Comments
	resolver  Resolver
	opt       Options
	primary   *Frame
	secondary *Frame
	wg        sync.WaitGroup

	mu           sync.Mutex
	session      *Session
	loc          model.GalleryLocator
	historySkip  bool
	pushed       bool
	post         *model.PostRecord
	panel        *moderation.Panel
	panelSession *Session
	adminShown   bool
	subs         []string
	seedGen      uint64
	seeded       bool
	scroll       ScrollDetector
	refresh      clock.Timer
	interval     time.Duration
	titleStore   string
	urlStore     string
	historyClose bool
	preventOpen  bool
	lastPress    time.Time
	revoked      bool
}

// New returns a closed controller.
func New(gw Gateway, cm Comments, r Resolver, opt Options) *Controller {
	if opt.Cache == nil {
		opt.Cache = cache.New(cache.DefaultCapacity)
	}
	if opt.Checker == nil {
		opt.Checker = block.Nothing{}
	}
	if opt.Events == nil {
		opt.Events = events.NewBus()
	}
	if opt.History == nil {
		opt.History = nopHistory{}
	}
	if opt.Notifier == nil {
		opt.Notifier = moderation.NotifyFunc(func(string, bool, time.Duration) {})
	}
	if opt.Alerter == nil {
		opt.Alerter = moderation.AlertFunc(func(string) {})
	}
	if opt.Observer == nil {
		opt.Observer = nopObserver{}
	}
	if opt.Clock == nil {
		opt.Clock = clock.Real()
	}
	if opt.ScrollThreshold <= 0 {
		opt.ScrollThreshold = DefaultScrollThreshold
	}
	return &Controller{
		gw:        gw,
		comments:  cm,
		resolver:  r,
		opt:       opt,
		primary:   newFrame(Primary, opt.Observer),
		secondary: newFrame(Secondary, opt.Observer),
		interval:  opt.Preview.CommentRefreshInterval,
		scroll:    ScrollDetector{Threshold: opt.ScrollThreshold},
	}
}

// Primary is the post frame.
func (c *Controller) Primary() *Frame { return c.primary }

// Secondary is the comment frame.
func (c *Controller) Secondary() *Frame { return c.secondary }

// Session returns the open session or nil.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// IsOpen reports whether a session is open.
func (c *Controller) IsOpen() bool { return c.Session() != nil }

// Locator returns the post currently shown.
func (c *Controller) Locator() model.GalleryLocator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loc
}

// Panel returns the admin panel of the session, or nil when the viewer
// cannot manage the gallery or the panel is turned off.
func (c *Controller) Panel() *moderation.Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.adminShown {
		return nil
	}
	return c.panel
}

// Wait blocks until every load started so far has been applied.
func (c *Controller) Wait() { c.wg.Wait() }

// HandlePress tracks right button presses. Releasing after the long press
// delay lets the next context menu through to the page.
func (c *Controller) HandlePress(button int, down bool) {
	if button != rightButton {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.opt.Clock.Now()
	if down {
		c.lastPress = now
		return
	}
	if !c.lastPress.IsZero() && now.Sub(c.lastPress) > c.opt.Preview.LongPressDelay {
		c.preventOpen = true
		c.lastPress = time.Time{}
	}
}

// HandleContextMenu handles a right click on a listing element. With the
// reversed key setting the click navigates to the post instead.
func (c *Controller) HandleContextMenu(target *html.Node) bool {
	if c.opt.Preview.ReversePreviewKey {
		loc, ok := c.resolver.Resolve(target)
		if ok {
			c.opt.History.Navigate(loc.Link)
		}
		return ok
	}
	return c.openElement(target)
}

// HandleClick handles a left click, which opens the preview only with the
// reversed key setting.
func (c *Controller) HandleClick(target *html.Node) bool {
	if !c.opt.Preview.ReversePreviewKey {
		return false
	}
	return c.openElement(target)
}

func (c *Controller) openElement(target *html.Node) bool {
	c.mu.Lock()
	if c.revoked {
		c.mu.Unlock()
		return false
	}
	if c.preventOpen {
		c.preventOpen = false
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	if listing.IsWriterCell(target) {
		return false
	}
	if c.opt.Tooltip != nil {
		c.opt.Tooltip.Close()
	}
	loc, ok := c.resolver.Resolve(target)
	if !ok {
		return false
	}
	c.open(loc, listing.IsReplyCount(target), false)
	return true
}

// Open shows loc in a new session.
func (c *Controller) Open(loc model.GalleryLocator) {
	c.open(loc, false, false)
}

func (c *Controller) open(loc model.GalleryLocator, collapse, historySkip bool) {
	c.mu.Lock()
	if c.revoked {
		c.mu.Unlock()
		return
	}
	wasOpen := c.session != nil
	if wasOpen {
		c.teardownLocked()
	}
	if !historySkip && !wasOpen {
		c.titleStore = c.opt.History.Title()
		c.urlStore = c.opt.History.URL()
	}
	s := newSession(context.Background(), c.opt.Clock.Now(), c.opt.Logger)
	c.session = s
	c.loc = loc
	c.historySkip = historySkip
	c.pushed = false
	c.post = nil
	c.scroll = ScrollDetector{Threshold: c.opt.ScrollThreshold}
	c.mu.Unlock()

	s.log().Debug().Str("gallery", loc.Gallery).Str("id", loc.ID).Msg("preview opened")
	c.primary.update(func(v *View) { v.Data.Collapse = collapse })
	c.start(s, loc)
}

// start fills both frames for loc within s.
func (c *Controller) start(s *Session, loc model.GalleryLocator) {
	c.makePrimary(s, loc)
	c.makeSecondary(s)
	c.attachPanel(s, loc)
	if !c.primary.collapsed() {
		c.loadPost(s, true)
	}
}

func (c *Controller) makePrimary(s *Session, loc model.GalleryLocator) {
	c.primary.invalidate()
	c.primary.update(func(v *View) {
		v.Error = nil
		v.Contents = ""
		v.Data.Upvotes = ""
		v.Data.FixedUpvotes = ""
		v.Data.Downvotes = ""
		v.Data.User = nil
		v.Data.Load = !v.Data.Collapse
		v.Data.Buttons = true
		v.Title = loc.Title
	})
	c.syncHistory(loc, false)

	c.primary.setFunctions(func(f *Functions) {
		f.Load = func(useCache bool) { c.loadPost(s, useCache) }
		f.Retry = func(useCache bool) { c.loadPost(s, useCache) }
		f.Vote = func(up bool) bool { return c.vote(s, up) }
		f.Share = func() bool { return c.share(s) }
		f.OpenOriginal = func() bool { return c.openOriginal(s) }
	})
}

// syncHistory pushes the first entry of a session and replaces it on later
// loads. Navigation driven by the history itself only renames the page.
func (c *Controller) syncHistory(loc model.GalleryLocator, loaded bool) {
	if !c.opt.Preview.ColorPreviewLink {
		return
	}
	title := pageTitle(loc.Title, c.opt.History.Title())
	c.mu.Lock()
	skip, push := c.historySkip, !c.pushed && !loaded
	if !skip && push {
		c.pushed = true
	}
	state := &HistoryState{Locator: loc, PreURL: c.urlStore}
	c.mu.Unlock()

	switch {
	case skip:
	case push:
		c.opt.History.Push(state, title, loc.Link)
	default:
		c.opt.History.Replace(state, title, loc.Link)
	}
	c.opt.History.SetTitle(title)
}

func (c *Controller) loadPost(s *Session, useCache bool) {
	if s.Done() {
		return
	}
	gen := c.primary.begin()
	loc := c.Locator()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		post, err := c.fetchPost(s.ctx, loc, useCache)
		if s.Done() {
			return
		}
		if err != nil {
			if errors.Is(err, gateway.ErrCancelled) {
				return
			}
			s.log().Warn().Err(err).Str("key", loc.Key()).Msg("post load failed")
			c.primary.apply(gen, func(v *View) {
				v.Error = &Error{Title: "Post", Detail: err}
				v.Data.Load = false
			})
			return
		}
		c.showPost(s, gen, loc, post)
	}()
}

func (c *Controller) fetchPost(ctx context.Context, loc model.GalleryLocator, useCache bool) (*model.PostRecord, error) {
	key := loc.Key()
	if useCache {
		if e, ok := c.opt.Cache.Get(key); ok && e.Post != nil {
			return e.Post, nil
		}
	}
	post, err := c.gw.FetchPost(ctx, loc, c.opt.Preview.NoCacheHeader)
	if err != nil {
		return nil, err
	}
	c.opt.Cache.Set(key, cache.Entry{Post: post})
	return post, nil
}

func (c *Controller) showPost(s *Session, gen uint64, loc model.GalleryLocator, post *model.PostRecord) {
	title := model.Deref(post.Title)
	contents := model.Deref(post.Contents)
	if c.opt.Checker.Check(block.Text, contents, loc.Gallery) {
		contents = block.ContentNotice
	}

	applied := c.primary.apply(gen, func(v *View) {
		v.Error = nil
		v.Contents = contents
		v.Data.Upvotes = model.Deref(post.Upvotes)
		v.Data.FixedUpvotes = model.Deref(post.FixedUpvotes)
		v.Data.Downvotes = model.Deref(post.Downvotes)
		if title != "" {
			v.Title = title
		}
		v.Data.DisabledDownvote = post.DisabledDownvote
		v.Data.User = post.User
		v.Data.Date = parseDate(model.Deref(post.Date))
		v.Data.Expire = model.Deref(post.Expire)
		v.Data.Buttons = true
		v.Data.Views = model.Deref(post.Views) + " views"
		v.Data.Load = false
	})
	if !applied {
		return
	}

	c.mu.Lock()
	if c.session != s || !c.primary.current(gen) {
		c.mu.Unlock()
		return
	}
	c.post = post
	if title != "" {
		c.loc.Title = title
	}
	cur := c.loc
	c.mu.Unlock()

	c.syncHistory(cur, true)
	c.opt.Events.Emit(events.PostDataLoaded, post)
	c.opt.Events.Emit(events.PostCommentIDLoaded, post.CommentID, post.CommentNo)
	c.opt.Events.EmitNextTick(events.ContentPreview, c.primary)
}

func (c *Controller) makeSecondary(s *Session) {
	c.secondary.invalidate()
	c.secondary.update(func(v *View) {
		v.Error = nil
		v.Data.Comments = nil
		v.Data.Load = true
		v.Data.UseWriteComment = c.opt.Preview.ExperimentalComment
		v.Title = "Comments"
		v.Subtitle = "Loading"
	})
	c.secondary.setFunctions(func(f *Functions) {
		f.Load = func(useCache bool) { c.loadComments(s, useCache) }
		f.Retry = func(useCache bool) { c.loadComments(s, useCache) }
		f.DeleteComment = func(id, password string, asAdmin bool) bool {
			return c.deleteComment(s, id, password, asAdmin)
		}
		f.WriteComment = nil
	})

	c.mu.Lock()
	c.stopRefreshLocked()
	for _, id := range c.subs {
		c.opt.Events.Off(id)
	}
	c.subs = nil
	c.seedGen++
	c.seeded = false
	gen := c.seedGen
	collapsed := c.primary.collapsed()
	c.mu.Unlock()

	// A collapsed post is never loaded, so no seed will arrive.
	if collapsed {
		c.loadComments(s, true)
		return
	}
	id := c.opt.Events.On(events.PostCommentIDLoaded, func(args ...any) {
		c.seed(s, gen, argString(args, 0), argString(args, 1))
	}, true)

	c.mu.Lock()
	c.subs = append(c.subs, id)
	post := c.post
	c.mu.Unlock()
	if post != nil {
		c.opt.Events.Off(id)
		c.seed(s, gen, post.CommentID, post.CommentNo)
	}
}

// seed starts the comment frame once the post revealed its thread ids.
func (c *Controller) seed(s *Session, gen uint64, commentID, commentNo string) {
	c.mu.Lock()
	if c.session != s || c.seedGen != gen || c.seeded {
		c.mu.Unlock()
		return
	}
	c.seeded = true
	c.loc.CommentID = commentID
	c.loc.CommentNo = commentNo
	c.mu.Unlock()

	c.secondary.setFunctions(func(f *Functions) {
		f.WriteComment = func(form CommentForm) bool { return c.writeComment(s, form) }
	})
	c.restartRefresh()
	c.loadComments(s, true)
}

func (c *Controller) loadComments(s *Session, useCache bool) {
	if s.Done() {
		return
	}
	gen := c.secondary.begin()
	loc := c.Locator()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.comments.Load(s.ctx, loc, useCache)
		if s.Done() {
			return
		}
		if err != nil {
			if errors.Is(err, gateway.ErrCancelled) {
				return
			}
			s.log().Warn().Err(err).Str("key", loc.Key()).Msg("comment load failed")
			c.secondary.apply(gen, func(v *View) {
				v.Error = &Error{Title: "Comments", Detail: err}
				v.Data.Load = false
			})
			return
		}
		c.secondary.apply(gen, func(v *View) {
			v.Error = nil
			v.Subtitle = res.Subtitle
			v.Data.Comments = res.Thread
			v.Data.Load = false
		})
	}()
}

func (c *Controller) attachPanel(s *Session, loc model.GalleryLocator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panel != nil && c.panelSession == s && !c.panel.Detached() {
		c.panel.SetLocator(loc)
		c.adminShown = c.opt.Preview.ToggleAdminPanel && c.opt.HasAdminControls
		return
	}
	if c.panel != nil {
		c.panel.Detach()
	}
	c.panelSession = s
	c.panel = moderation.NewPanel(s.ctx, c.gw, loc, moderation.Options{
		Notifier:     c.opt.Notifier,
		Alerter:      c.opt.Alerter,
		Captcha:      c.opt.Captcha,
		Events:       c.opt.Events,
		Clock:        c.opt.Clock,
		KeyWindow:    c.opt.KeyWindow,
		UseKeyPress:  c.opt.Preview.UseKeyPress,
		CloseOverlay: c.Close,
		Logger:       s.log(),
	})
	c.adminShown = c.opt.Preview.ToggleAdminPanel && c.opt.HasAdminControls
}

func (c *Controller) vote(s *Session, up bool) bool {
	if s.Done() {
		return false
	}
	if c.primary.collapsed() {
		c.opt.Notifier.Toast("Only the comments are shown. Open the post to vote.", true, toastLong)
		return false
	}
	c.mu.Lock()
	post, panel, loc := c.post, c.panel, c.loc
	c.mu.Unlock()
	if post == nil {
		c.opt.Notifier.Toast("Wait until the post has loaded.", true, toastLong)
		return false
	}

	err := panel.Challenge(moderation.CaptchaRecommend, post.RequireCaptcha, func(ctx context.Context, code string) error {
		res, err := c.gw.Vote(ctx, loc, up, code)
		if err != nil {
			return err
		}
		if !res.OK() {
			c.opt.Notifier.Toast(res.Counts, true, toastShort)
			return errVoteRejected
		}
		counts := Thousands(res.Counts)
		c.primary.update(func(v *View) {
			if up {
				v.Data.Upvotes = counts
			} else {
				v.Data.Downvotes = counts
			}
		})
		return nil
	})
	if err != nil && !errors.Is(err, errVoteRejected) && !errors.Is(err, gateway.ErrCancelled) && !errors.Is(err, moderation.ErrDismissed) {
		c.opt.Notifier.Toast(err.Error(), true, toastLong)
	}
	return err == nil
}

func (c *Controller) share(s *Session) bool {
	if c.opt.Clipboard == nil || s.Done() {
		return false
	}
	link := c.gw.ViewURL(c.Locator())
	if err := c.opt.Clipboard.WriteText(link); err != nil {
		c.opt.Notifier.Toast(err.Error(), true, toastLong)
		return false
	}
	c.opt.Notifier.Toast("Copied to the clipboard.", false, toastLong)
	return true
}

func (c *Controller) openOriginal(s *Session) bool {
	if s.Done() {
		return false
	}
	if c.opt.Preview.ColorPreviewLink {
		c.opt.History.Reload()
	} else {
		c.opt.History.Navigate(c.Locator().Link)
	}
	return true
}

func (c *Controller) writeComment(s *Session, form CommentForm) bool {
	if s.Done() {
		return false
	}
	c.mu.Lock()
	post, panel, loc := c.post, c.panel, c.loc
	c.mu.Unlock()
	if post == nil {
		c.opt.Notifier.Toast("Wait until the post has loaded.", true, toastLong)
		return false
	}

	err := panel.Challenge(moderation.CaptchaComment, post.RequireCommentCaptcha, func(ctx context.Context, code string) error {
		hidden := parse.HiddenInputs(post.Document, commentFormScope)
		resp, err := c.gw.WriteComment(ctx, loc, hidden, gateway.CommentInput{
			Name:     form.Name,
			Password: form.Password,
			Memo:     form.Memo,
			ReplyTo:  form.ReplyTo,
			Code:     code,
		})
		if err != nil {
			return err
		}
		if r := resp.Result(); r == "false" || r == "PreNotWorking" {
			c.opt.Alerter.Alert(resp.Message())
			return errCommentRejected
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, errCommentRejected) && !errors.Is(err, gateway.ErrCancelled) && !errors.Is(err, moderation.ErrDismissed) {
			c.opt.Notifier.Toast(err.Error(), true, toastLong)
		}
		return false
	}
	c.loadComments(s, false)
	return true
}

func (c *Controller) deleteComment(s *Session, id, password string, asAdmin bool) bool {
	if s.Done() {
		return false
	}
	c.mu.Lock()
	panel := c.panel
	c.mu.Unlock()
	return panel.DeleteComment(id, password, asAdmin, func() { c.loadComments(s, false) })
}

// navigate loads loc in place, keeping the session.
func (c *Controller) navigate(loc model.GalleryLocator, historySkip bool) bool {
	c.mu.Lock()
	s := c.session
	if s == nil || c.revoked {
		c.mu.Unlock()
		return false
	}
	if c.primary.loading() {
		c.mu.Unlock()
		return false
	}
	loc = loc.WithID(loc.ID)
	loc.Title = loadingTitle
	c.loc = loc
	c.historySkip = historySkip
	c.post = nil
	c.mu.Unlock()

	s.log().Debug().Str("id", loc.ID).Msg("preview navigated")
	c.start(s, loc)
	return true
}

// HandleScroll feeds a wheel event of the overlay. It reports whether it
// moved to another post.
func (c *Controller) HandleScroll(deltaY float64, atTop, atBottom bool) bool {
	if !c.opt.Preview.ScrollToSkip {
		return false
	}
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return false
	}
	dir := c.scroll.Feed(deltaY, atTop, atBottom)
	top, bottom := c.scroll.Mode()
	loc, skip := c.loc, c.historySkip
	c.mu.Unlock()

	c.primary.update(func(v *View) {
		v.Data.ScrollModeTop = top
		v.Data.ScrollModeBottom = bottom
	})
	if dir == Stay {
		return false
	}

	id, err := strconv.Atoi(loc.ID)
	if err != nil {
		return false
	}
	switch dir {
	case Previous:
		id--
	case Next:
		if !c.primary.failed() {
			id++
		}
	}
	loc.ID = strconv.Itoa(id)
	moved := c.navigate(loc, skip)
	c.primary.update(func(v *View) {
		v.Data.ScrollModeTop = false
		v.Data.ScrollModeBottom = false
	})
	return moved
}

// HandlePopState reacts to back and forward navigation. A nil state closes
// the overlay; otherwise the stored post is shown without touching the
// history again.
func (c *Controller) HandlePopState(state *HistoryState) {
	c.mu.Lock()
	if c.revoked {
		c.mu.Unlock()
		return
	}
	if state == nil {
		c.historyClose = true
		c.mu.Unlock()
		c.Close()
		return
	}
	c.historyClose = false
	open := c.session != nil
	c.mu.Unlock()

	if !open {
		c.open(state.Locator, false, true)
		return
	}
	c.navigate(state.Locator, true)
}

// HandleKey forwards a key press to the admin panel shortcut.
func (c *Controller) HandleKey(code string, inputFocused bool) bool {
	p := c.Panel()
	if p == nil {
		return false
	}
	return p.HandleKey(code, inputFocused)
}

// SetRefreshInterval changes the comment auto refresh period and restarts
// the timer of an open session.
func (c *Controller) SetRefreshInterval(d time.Duration) {
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
	c.restartRefresh()
}

// SetAutoRefresh turns comment auto refresh on or off.
func (c *Controller) SetAutoRefresh(on bool) {
	c.mu.Lock()
	c.opt.Preview.AutoRefreshComment = on
	c.mu.Unlock()
}

func (c *Controller) restartRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopRefreshLocked()
	s := c.session
	if s == nil || !c.seeded || c.interval <= 0 {
		return
	}
	d := c.interval
	var tick func()
	tick = func() {
		c.mu.Lock()
		if c.session != s || s.Done() {
			c.mu.Unlock()
			return
		}
		auto := c.opt.Preview.AutoRefreshComment
		c.refresh = c.opt.Clock.AfterFunc(d, tick)
		c.mu.Unlock()
		if auto {
			c.loadComments(s, false)
		}
	}
	c.refresh = c.opt.Clock.AfterFunc(d, tick)
}

func (c *Controller) stopRefreshLocked() {
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}
}

// teardownLocked ends the open session without touching the page title.
func (c *Controller) teardownLocked() {
	s := c.session
	c.session = nil
	s.cancel()
	c.stopRefreshLocked()
	for _, id := range c.subs {
		c.opt.Events.Off(id)
	}
	c.subs = nil
	if c.panel != nil {
		c.panel.Detach()
	}
	c.adminShown = false
	c.primary.invalidate()
	c.secondary.invalidate()
	s.log().Debug().Dur("open", c.opt.Clock.Now().Sub(s.Started)).Msg("preview closed")
}

// Close ends the session. Unless the close came from history navigation
// the page title and URL from before the preview are restored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	restore := !c.historyClose && c.titleStore != ""
	title, url := c.titleStore, c.urlStore
	c.historyClose = false
	c.mu.Unlock()

	if restore {
		c.opt.History.Push(nil, title, url)
	}
	if title != "" {
		c.opt.History.SetTitle(title)
	}
	if c.opt.OnClose != nil {
		c.opt.OnClose()
	}
}

// Revoke closes the overlay and ignores every later event.
func (c *Controller) Revoke() {
	c.Close()
	c.mu.Lock()
	c.revoked = true
	c.stopRefreshLocked()
	c.mu.Unlock()
}

// Thousands inserts comma separators into a plain digit string. Anything
// else is returned unchanged.
func Thousands(s string) string {
	if s == "" {
		return s
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// pageTitle names the document after the post, keeping the site suffix of
// the current title.
func pageTitle(postTitle, current string) string {
	parts := strings.Split(current, "-")
	return fmt.Sprintf("%s - %s", postTitle, strings.TrimSpace(parts[len(parts)-1]))
}

var dateLayouts = []string{"2006.01.02 15:04:05", "2006.01.02 15:04", "2006.01.02"}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.ParseInLocation(l, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func argString(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	s, _ := args[i].(string)
	return s
}
