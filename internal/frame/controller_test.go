package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"refresher/internal/block"
	"refresher/internal/cache"
	"refresher/internal/clock"
	"refresher/internal/comments"
	"refresher/internal/config"
	"refresher/internal/events"
	"refresher/internal/gateway"
	"refresher/internal/listing"
	"refresher/internal/logging"
	"refresher/internal/model"
	"refresher/internal/parse"
)

const listHTML = `<table><tbody>
<tr class="ub-content us-post">
  <td class="gall_num">100</td>
  <td class="gall_tit ub-word"><a id="title" href="/mgallery/board/view/?id=prog&amp;no=100">Listing title</a>
    <a class="reply_numbox" href="#"><span id="replies" class="reply_num">[2]</span></a></td>
  <td class="gall_writer ub-writer"><span id="writer" class="nickname">w</span></td>
</tr>
</tbody></table>`

type fakeGateway struct {
	mu        sync.Mutex
	posts     []string
	cmts      []string
	cmtLocs   []model.GalleryLocator
	votes     []string
	writes    []gateway.CommentInput
	hidden    map[string]string
	deletes   int
	deleteCtx context.Context

	postFn  func(ctx context.Context, loc model.GalleryLocator, n int) (*model.PostRecord, error)
	voteRaw string
	write   string
}

func (g *fakeGateway) FetchPost(ctx context.Context, loc model.GalleryLocator, _ bool) (*model.PostRecord, error) {
	g.mu.Lock()
	g.posts = append(g.posts, loc.ID)
	n := len(g.posts)
	fn := g.postFn
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, loc, n)
	}
	return &model.PostRecord{
		ID:        loc.ID,
		Title:     model.Str("Post " + loc.ID),
		Contents:  model.Str("<p>contents " + loc.ID + "</p>"),
		Upvotes:   model.Str("3"),
		Views:     model.Str("12"),
		Date:      model.Str("2024.01.02 03:04:05"),
		CommentID: "seed-" + loc.Gallery,
		CommentNo: "seed-" + loc.ID,
	}, nil
}

func (g *fakeGateway) FetchComments(_ context.Context, loc model.GalleryLocator) (*gateway.CommentPayload, error) {
	g.mu.Lock()
	g.cmts = append(g.cmts, loc.ID)
	g.cmtLocs = append(g.cmtLocs, loc)
	g.mu.Unlock()
	return &gateway.CommentPayload{
		Comments: []gateway.RawComment{
			{No: "1", Name: "a", Memo: "first"},
			{No: "2", Name: "b", Memo: "second"},
		},
		TotalCount: 2,
	}, nil
}

func (g *fakeGateway) Vote(_ context.Context, _ model.GalleryLocator, up bool, code string) (gateway.VoteResult, error) {
	g.mu.Lock()
	g.votes = append(g.votes, fmt.Sprintf("%t:%s", up, code))
	raw := g.voteRaw
	g.mu.Unlock()
	return gateway.ParseVote(raw), nil
}

func (g *fakeGateway) WriteComment(_ context.Context, _ model.GalleryLocator, hidden map[string]string, in gateway.CommentInput) (gateway.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes = append(g.writes, in)
	g.hidden = hidden
	return gateway.DecodeResponse(g.write), nil
}

func (g *fakeGateway) ViewURL(loc model.GalleryLocator) string {
	return "https://gall.dcinside.com/mgallery/board/view/?id=" + loc.Gallery + "&no=" + loc.ID
}

func (g *fakeGateway) DeletePost(ctx context.Context, _ model.GalleryLocator) (gateway.Response, error) {
	g.mu.Lock()
	g.deletes++
	g.deleteCtx = ctx
	g.mu.Unlock()
	return gateway.DecodeResponse(`{"result":"success"}`), nil
}

func (g *fakeGateway) Block(context.Context, model.GalleryLocator, gateway.BlockRequest) (gateway.Response, error) {
	return gateway.Response{}, nil
}

func (g *fakeGateway) SetNotice(context.Context, model.GalleryLocator, bool) (gateway.Response, error) {
	return gateway.Response{}, nil
}

func (g *fakeGateway) SetRecommend(context.Context, model.GalleryLocator, bool) (gateway.Response, error) {
	return gateway.Response{}, nil
}

func (g *fakeGateway) DeleteComment(context.Context, model.GalleryLocator, string, bool, string) (string, bool) {
	return "true", true
}

func (g *fakeGateway) RequestCaptcha(context.Context, model.GalleryLocator, string) (string, error) {
	return "https://gall.dcinside.com/kcaptcha/image/?x=1", nil
}

func (g *fakeGateway) postCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.posts...)
}

func (g *fakeGateway) commentCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.cmts...)
}

type historyCall struct {
	op    string
	state *HistoryState
	title string
	url   string
}

type fakeHistory struct {
	mu    sync.Mutex
	title string
	url   string
	calls []historyCall
}

func (h *fakeHistory) Push(s *HistoryState, title, url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, historyCall{"push", s, title, url})
	h.url = url
}

func (h *fakeHistory) Replace(s *HistoryState, title, url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, historyCall{"replace", s, title, url})
	h.url = url
}

func (h *fakeHistory) Title() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.title
}

func (h *fakeHistory) SetTitle(t string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.title = t
}

func (h *fakeHistory) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url
}

func (h *fakeHistory) Reload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, historyCall{op: "reload"})
}

func (h *fakeHistory) Navigate(u string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, historyCall{op: "navigate", url: u})
}

func (h *fakeHistory) ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, c := range h.calls {
		out = append(out, c.op)
	}
	return out
}

type host struct {
	mu     sync.Mutex
	toasts []string
	alerts []string
	copied []string
	closed int
}

func (h *host) Toast(msg string, isError bool, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.toasts = append(h.toasts, fmt.Sprintf("%t:%s", isError, msg))
}

func (h *host) Alert(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = append(h.alerts, msg)
}

func (h *host) WriteText(s string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.copied = append(h.copied, s)
	return nil
}

type captchaFunc func(ctx context.Context, url string) (string, error)

func (f captchaFunc) PromptCaptcha(ctx context.Context, url string) (string, error) { return f(ctx, url) }

type fixture struct {
	c       *Controller
	gw      *fakeGateway
	hist    *fakeHistory
	host    *host
	bus     *events.Bus
	clk     *clock.Fake
	doc     *html.Node
	changes int
}

func defaultPreview() config.Preview {
	p := config.DefaultConfig().Preview
	p.ColorPreviewLink = true
	p.ScrollToSkip = true
	return p
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(listHTML))
	require.NoError(t, err)
	base, err := url.Parse("https://gall.dcinside.com/")
	require.NoError(t, err)

	f := &fixture{
		gw:   &fakeGateway{voteRaw: "true||1234||5", write: `{"result":"true"}`},
		hist: &fakeHistory{title: "programming - DCInside", url: "https://gall.dcinside.com/mgallery/board/lists/?id=prog"},
		host: &host{},
		bus:  events.NewBus(),
		clk:  clock.NewFake(time.Unix(1_700_000_000, 0)),
		doc:  doc,
	}
	pc := cache.New(cache.DefaultCapacity)
	var mu sync.Mutex
	opt := Options{
		Preview:   defaultPreview(),
		KeyWindow: time.Second,
		Cache:     pc,
		Events:    f.bus,
		History:   f.hist,
		Clipboard: f.host,
		Notifier:  f.host,
		Alerter:   f.host,
		Observer: ObserverFunc(func(string, View) {
			mu.Lock()
			f.changes++
			mu.Unlock()
		}),
		Clock:  f.clk,
		Logger: zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&opt)
	}
	pipeline := comments.New(f.gw, pc, opt.Checker, zerolog.Nop())
	f.c = New(f.gw, pipeline, listing.NewResolver(base, listing.DefaultHops), opt)
	t.Cleanup(func() {
		f.c.Revoke()
		f.c.Wait()
		f.bus.Wait()
	})
	return f
}

func (f *fixture) el(t *testing.T, sel string) *html.Node {
	t.Helper()
	n := cascadia.Query(f.doc, cascadia.MustCompile(sel))
	require.NotNil(t, n, sel)
	return n
}

func (f *fixture) openTitle(t *testing.T) {
	t.Helper()
	require.True(t, f.c.HandleContextMenu(f.el(t, "#title")))
	f.c.Wait()
	f.bus.Wait()
}

func TestOpenLoadsPostThenComments(t *testing.T) {
	f := newFixture(t)
	var previews int
	f.bus.On(events.ContentPreview, func(...any) { previews++ }, false)

	f.openTitle(t)

	require.NotNil(t, f.c.Session())
	v := f.c.Primary().View()
	assert.Nil(t, v.Error)
	assert.Equal(t, "Post 100", v.Title)
	assert.Equal(t, "<p>contents 100</p>", v.Contents)
	assert.Equal(t, "3", v.Data.Upvotes)
	assert.Equal(t, "12 views", v.Data.Views)
	assert.Equal(t, 2024, v.Data.Date.Year())
	assert.False(t, v.Data.Load)
	assert.True(t, v.Data.Buttons)

	cv := f.c.Secondary().View()
	assert.Equal(t, "Comments", cv.Title)
	assert.Equal(t, "2", cv.Subtitle)
	require.NotNil(t, cv.Data.Comments)
	assert.Len(t, cv.Data.Comments.Comments, 2)
	assert.False(t, cv.Data.Load)

	assert.Equal(t, []string{"100"}, f.gw.postCalls())
	require.Len(t, f.gw.cmtLocs, 1)
	assert.Equal(t, "seed-prog", f.gw.cmtLocs[0].CommentID)
	assert.Equal(t, "seed-100", f.gw.cmtLocs[0].CommentNo)
	assert.Equal(t, 1, previews)
	assert.Positive(t, f.changes)

	assert.Equal(t, []string{"push", "replace"}, f.hist.ops())
	push := f.hist.calls[0]
	assert.Equal(t, "Listing title - DCInside", push.title)
	assert.Equal(t, "https://gall.dcinside.com/mgallery/board/view/?id=prog&no=100", push.url)
	assert.Equal(t, "https://gall.dcinside.com/mgallery/board/lists/?id=prog", push.state.PreURL)
	assert.Equal(t, "Post 100", f.hist.calls[1].state.Locator.Title)
	assert.Equal(t, "Post 100 - DCInside", f.hist.Title())
	assert.NotNil(t, f.c.Secondary().Functions().WriteComment)
}

func TestBlockedContentsReplaced(t *testing.T) {
	list, err := block.NewList([]config.BlockRule{{Kind: "TEXT", Pattern: "contents"}})
	require.NoError(t, err)
	f := newFixture(t, func(o *Options) { o.Checker = list })

	f.openTitle(t)
	assert.Equal(t, block.ContentNotice, f.c.Primary().View().Contents)
}

func TestPostServedFromCache(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)
	f.c.Close()

	f.openTitle(t)
	assert.Equal(t, []string{"100"}, f.gw.postCalls())

	f.c.Primary().Functions().Retry(false)
	f.c.Wait()
	assert.Equal(t, []string{"100", "100"}, f.gw.postCalls())
}

func TestWriterCellIgnored(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.c.HandleContextMenu(f.el(t, "#writer")))
	assert.Nil(t, f.c.Session())
}

func TestReplyCountOpensCollapsed(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.c.HandleContextMenu(f.el(t, "#replies")))
	f.c.Wait()

	assert.True(t, f.c.Primary().View().Data.Collapse)
	assert.Empty(t, f.gw.postCalls())
	assert.Equal(t, []string{"100"}, f.gw.commentCalls())
	assert.False(t, f.c.Primary().Functions().Vote(true))
	assert.Contains(t, f.host.toasts[0], "Only the comments are shown")
}

func TestLongPressSuppressesNextOpen(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Preview.LongPressDelay = 300 * time.Millisecond })

	f.c.HandlePress(2, true)
	f.clk.Advance(500 * time.Millisecond)
	f.c.HandlePress(2, false)
	assert.False(t, f.c.HandleContextMenu(f.el(t, "#title")))
	assert.Nil(t, f.c.Session())

	f.c.HandlePress(2, true)
	f.clk.Advance(100 * time.Millisecond)
	f.c.HandlePress(2, false)
	assert.True(t, f.c.HandleContextMenu(f.el(t, "#title")))
}

func TestReversedKeyNavigatesOnContextMenu(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Preview.ReversePreviewKey = true })

	assert.True(t, f.c.HandleContextMenu(f.el(t, "#title")))
	assert.Nil(t, f.c.Session())
	assert.Equal(t, []string{"navigate"}, f.hist.ops())

	assert.True(t, f.c.HandleClick(f.el(t, "#title")))
	f.c.Wait()
	assert.NotNil(t, f.c.Session())
}

func TestScrollTwiceAtTopGoesToPrevious(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)

	assert.False(t, f.c.HandleScroll(-10, true, false))
	assert.True(t, f.c.Primary().View().Data.ScrollModeTop)
	assert.True(t, f.c.HandleScroll(-10, true, false))
	f.c.Wait()

	assert.Equal(t, []string{"100", "99"}, f.gw.postCalls())
	assert.Equal(t, "99", f.c.Locator().ID)
	assert.Contains(t, f.c.Locator().Link, "no=99")
	assert.Equal(t, "Post 99", f.c.Primary().View().Title)
	assert.False(t, f.c.Primary().View().Data.ScrollModeTop)
	assert.Equal(t, []string{"push", "replace", "replace", "replace"}, f.hist.ops())
}

func TestScrollAwayFromEdgeRestartsCount(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)

	assert.False(t, f.c.HandleScroll(-10, true, false))
	assert.False(t, f.c.HandleScroll(-10, false, false))
	assert.False(t, f.c.HandleScroll(-10, true, false))
	assert.Equal(t, []string{"100"}, f.gw.postCalls())

	assert.True(t, f.c.HandleScroll(-10, true, false))
}

func TestScrollNextRetriesSamePostAfterError(t *testing.T) {
	f := newFixture(t)
	f.gw.postFn = func(context.Context, model.GalleryLocator, int) (*model.PostRecord, error) {
		return nil, &gateway.StatusError{Code: 404, URL: "u"}
	}
	f.openTitle(t)
	v := f.c.Primary().View()
	require.NotNil(t, v.Error)
	assert.Equal(t, "Post", v.Error.Title)
	assert.False(t, v.Data.Load)

	f.c.HandleScroll(10, false, true)
	assert.True(t, f.c.HandleScroll(10, false, true))
	f.c.Wait()
	assert.Equal(t, []string{"100", "100"}, f.gw.postCalls())
}

func TestScrollNextAdvances(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)

	f.c.HandleScroll(10, false, true)
	assert.True(t, f.c.HandleScroll(10, false, true))
	f.c.Wait()
	assert.Equal(t, []string{"100", "101"}, f.gw.postCalls())
}

func TestPaginationSuppressedWhileLoading(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.gw.postFn = func(ctx context.Context, loc model.GalleryLocator, _ int) (*model.PostRecord, error) {
		<-release
		return &model.PostRecord{ID: loc.ID}, nil
	}
	require.True(t, f.c.HandleContextMenu(f.el(t, "#title")))

	f.c.HandleScroll(-10, true, false)
	assert.False(t, f.c.HandleScroll(-10, true, false))
	close(release)
	f.c.Wait()
	assert.Equal(t, []string{"100"}, f.gw.postCalls())
}

func TestScrollDisabled(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Preview.ScrollToSkip = false })
	f.openTitle(t)
	f.c.HandleScroll(-10, true, false)
	assert.False(t, f.c.HandleScroll(-10, true, false))
}

func TestStaleLoadIsDropped(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.gw.postFn = func(_ context.Context, loc model.GalleryLocator, n int) (*model.PostRecord, error) {
		if n == 1 {
			<-release
			return &model.PostRecord{ID: loc.ID, Contents: model.Str("old")}, nil
		}
		return &model.PostRecord{ID: loc.ID, Contents: model.Str("new")}, nil
	}
	require.True(t, f.c.HandleContextMenu(f.el(t, "#title")))
	require.Eventually(t, func() bool { return len(f.gw.postCalls()) == 1 }, time.Second, time.Millisecond)

	f.c.Primary().Functions().Retry(false)
	require.Eventually(t, func() bool { return f.c.Primary().View().Contents == "new" }, time.Second, time.Millisecond)
	close(release)
	f.c.Wait()
	assert.Equal(t, "new", f.c.Primary().View().Contents)
}

func TestCloseCancelsSessionAndRestoresPage(t *testing.T) {
	f := newFixture(t)
	var closed int
	f.c.opt.OnClose = func() { closed++ }
	started := make(chan struct{})
	f.gw.postFn = func(ctx context.Context, _ model.GalleryLocator, _ int) (*model.PostRecord, error) {
		close(started)
		<-ctx.Done()
		return nil, fmt.Errorf("fetch post: %w", gateway.ErrCancelled)
	}
	require.True(t, f.c.HandleContextMenu(f.el(t, "#title")))
	<-started
	s := f.c.Session()

	f.c.Close()
	f.c.Wait()

	assert.True(t, s.Done())
	assert.Nil(t, f.c.Session())
	assert.Nil(t, f.c.Primary().View().Error)
	assert.Equal(t, 1, closed)
	ops := f.hist.ops()
	assert.Equal(t, "push", ops[len(ops)-1])
	last := f.hist.calls[len(f.hist.calls)-1]
	assert.Nil(t, last.state)
	assert.Equal(t, "programming - DCInside", last.title)
	assert.Equal(t, "https://gall.dcinside.com/mgallery/board/lists/?id=prog", last.url)
	assert.Equal(t, "programming - DCInside", f.hist.Title())
}

func TestPopStateWithoutStateClosesQuietly(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)
	before := len(f.hist.ops())

	f.c.HandlePopState(nil)
	assert.Nil(t, f.c.Session())
	assert.Len(t, f.hist.ops(), before)
	assert.Equal(t, "programming - DCInside", f.hist.Title())
}

func TestPopStateReopensWithoutTouchingHistory(t *testing.T) {
	f := newFixture(t)
	loc := model.GalleryLocator{Gallery: "prog", ID: "42", Link: "https://gall.dcinside.com/mgallery/board/view/?id=prog&no=42", Title: "t"}

	f.c.HandlePopState(&HistoryState{Locator: loc})
	f.c.Wait()
	require.NotNil(t, f.c.Session())
	assert.Equal(t, []string{"42"}, f.gw.postCalls())
	assert.Empty(t, f.hist.ops())

	loc.ID = "43"
	f.c.HandlePopState(&HistoryState{Locator: loc})
	f.c.Wait()
	assert.Equal(t, []string{"42", "43"}, f.gw.postCalls())
	assert.Empty(t, f.hist.ops())
}

func TestScrollKeepsHistorySkipOfPopStateSession(t *testing.T) {
	f := newFixture(t)
	loc := model.GalleryLocator{Gallery: "prog", ID: "42", Link: "https://gall.dcinside.com/mgallery/board/view/?id=prog&no=42", Title: "t"}

	f.c.HandlePopState(&HistoryState{Locator: loc})
	f.c.Wait()
	f.c.HandleScroll(10, false, true)
	require.True(t, f.c.HandleScroll(10, false, true))
	f.c.Wait()
	assert.Equal(t, []string{"42", "43"}, f.gw.postCalls())
	assert.Empty(t, f.hist.ops())
}

func TestVoteFormatsCounts(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)

	require.True(t, f.c.Primary().Functions().Vote(true))
	assert.Equal(t, "1,234", f.c.Primary().View().Data.Upvotes)
	assert.Equal(t, []string{"true:"}, f.gw.votes)

	f.gw.voteRaw = "false||already voted"
	assert.False(t, f.c.Primary().Functions().Vote(false))
	assert.Equal(t, "true:already voted", f.host.toasts[len(f.host.toasts)-1])
}

func TestVoteBeforeLoadRefused(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	defer close(release)
	f.gw.postFn = func(ctx context.Context, loc model.GalleryLocator, _ int) (*model.PostRecord, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, fmt.Errorf("fetch post: %w", gateway.ErrCancelled)
	}
	require.True(t, f.c.HandleContextMenu(f.el(t, "#title")))

	assert.False(t, f.c.Primary().Functions().Vote(true))
	assert.Equal(t, []string{"true:Wait until the post has loaded."}, f.host.toasts)
	f.c.Close()
}

func TestVoteWithCaptcha(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Captcha = captchaFunc(func(_ context.Context, u string) (string, error) {
			assert.Contains(t, u, "kcaptcha")
			return "abcd", nil
		})
	})
	f.gw.postFn = func(_ context.Context, loc model.GalleryLocator, _ int) (*model.PostRecord, error) {
		return &model.PostRecord{ID: loc.ID, RequireCaptcha: true}, nil
	}
	f.openTitle(t)

	require.True(t, f.c.Primary().Functions().Vote(false))
	assert.Equal(t, []string{"false:abcd"}, f.gw.votes)
	assert.Equal(t, "1,234", f.c.Primary().View().Data.Downvotes)
}

func TestShareAndOpenOriginal(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)

	require.True(t, f.c.Primary().Functions().Share())
	assert.Equal(t, []string{"https://gall.dcinside.com/mgallery/board/view/?id=prog&no=100"}, f.host.copied)
	assert.Contains(t, f.host.toasts, "false:Copied to the clipboard.")

	require.True(t, f.c.Primary().Functions().OpenOriginal())
	ops := f.hist.ops()
	assert.Equal(t, "reload", ops[len(ops)-1])

	f.c.opt.Preview.ColorPreviewLink = false
	require.True(t, f.c.Primary().Functions().OpenOriginal())
	last := f.hist.calls[len(f.hist.calls)-1]
	assert.Equal(t, "navigate", last.op)
	assert.Contains(t, last.url, "no=100")
}

func TestWriteComment(t *testing.T) {
	f := newFixture(t)
	page := `<div class="cmt_write_box"><input type="hidden" name="service_code" value="sc"><input type="hidden" id="e_s_n_o" value="n1"></div>`
	doc, err := parse.Document([]byte(page))
	require.NoError(t, err)
	f.gw.postFn = func(_ context.Context, loc model.GalleryLocator, _ int) (*model.PostRecord, error) {
		return &model.PostRecord{ID: loc.ID, Document: doc, CommentID: "prog", CommentNo: loc.ID}, nil
	}
	f.openTitle(t)
	write := f.c.Secondary().Functions().WriteComment
	require.NotNil(t, write)

	require.True(t, write(CommentForm{Name: "n", Password: "pw", Memo: "hello"}))
	f.c.Wait()
	assert.Equal(t, map[string]string{"service_code": "sc", "e_s_n_o": "n1"}, f.gw.hidden)
	assert.Equal(t, "hello", f.gw.writes[0].Memo)
	assert.Equal(t, []string{"100", "100"}, f.gw.commentCalls())

	f.gw.write = `{"result":"false","message":"too fast"}`
	assert.False(t, write(CommentForm{Memo: "again"}))
	assert.Equal(t, []string{"too fast"}, f.host.alerts)
}

func TestDeleteCommentNeedsSecondPress(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)
	del := f.c.Secondary().Functions().DeleteComment

	assert.False(t, del("7", "", false))
	assert.True(t, del("7", "", false))
	f.c.Wait()
	assert.Equal(t, []string{"100", "100"}, f.gw.commentCalls())
}

func TestAutoRefreshComments(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Preview.AutoRefreshComment = true
		o.Preview.CommentRefreshInterval = 10 * time.Second
	})
	f.openTitle(t)
	require.Equal(t, 1, f.clk.Pending())

	f.clk.Advance(10 * time.Second)
	f.c.Wait()
	assert.Equal(t, []string{"100", "100"}, f.gw.commentCalls())

	f.c.SetRefreshInterval(time.Minute)
	f.clk.Advance(10 * time.Second)
	f.c.Wait()
	assert.Len(t, f.gw.commentCalls(), 2)
	f.clk.Advance(50 * time.Second)
	f.c.Wait()
	assert.Len(t, f.gw.commentCalls(), 3)

	f.c.Close()
	assert.Zero(t, f.clk.Pending())
}

func TestAutoRefreshOffKeepsTimerIdle(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Preview.CommentRefreshInterval = 5 * time.Second })
	f.openTitle(t)
	f.clk.Advance(15 * time.Second)
	f.c.Wait()
	assert.Len(t, f.gw.commentCalls(), 1)

	f.c.SetAutoRefresh(true)
	f.clk.Advance(5 * time.Second)
	f.c.Wait()
	assert.Len(t, f.gw.commentCalls(), 2)
}

func TestAdminShortcutDeletesAndCloses(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.HasAdminControls = true
		o.Preview.ToggleAdminPanel = true
		o.Preview.UseKeyPress = true
	})
	f.openTitle(t)
	require.NotNil(t, f.c.Panel())

	assert.False(t, f.c.HandleKey("KeyD", false))
	assert.True(t, f.c.HandleKey("KeyD", false))
	assert.Equal(t, 1, f.gw.deletes)
	assert.Nil(t, f.c.Session())
	assert.NoError(t, f.gw.deleteCtx.Err())
}

func TestPanelFollowsInPlaceNavigation(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.HasAdminControls = true
		o.Preview.ToggleAdminPanel = true
		o.Preview.UseKeyPress = true
	})
	f.openTitle(t)
	first := f.c.Panel()
	require.NotNil(t, first)
	assert.Equal(t, "100", first.Locator().ID)

	f.c.HandleScroll(10, false, true)
	require.True(t, f.c.HandleScroll(10, false, true))
	f.c.Wait()
	assert.Same(t, first, f.c.Panel())
	assert.Equal(t, "101", first.Locator().ID)
	assert.False(t, first.Detached())

	// A new session gets a new panel.
	f.c.Close()
	assert.True(t, first.Detached())
	f.openTitle(t)
	require.NotNil(t, f.c.Panel())
	assert.NotSame(t, first, f.c.Panel())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSessionContextCarriesSessionLogger(t *testing.T) {
	out := &syncBuffer{}
	f := newFixture(t, func(o *Options) { o.Logger = zerolog.New(out) })
	f.openTitle(t)
	s := f.c.Session()
	require.NotNil(t, s)

	logging.FromContext(s.Context()).Info().Msg("from request scope")
	f.c.Close()

	tag := `"session":"` + s.ID + `"`
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	var opened, scoped, closed bool
	for _, line := range lines {
		switch {
		case strings.Contains(line, "preview opened"):
			opened = strings.Contains(line, tag)
		case strings.Contains(line, "from request scope"):
			scoped = strings.Contains(line, tag)
		case strings.Contains(line, "preview closed"):
			closed = strings.Contains(line, tag)
		}
	}
	assert.True(t, opened, out.String())
	assert.True(t, scoped, out.String())
	assert.True(t, closed, out.String())
}

func TestNoAdminPanelWithoutControls(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)
	assert.Nil(t, f.c.Panel())
	assert.False(t, f.c.HandleKey("KeyD", false))
}

func TestRevokeIgnoresLaterEvents(t *testing.T) {
	f := newFixture(t)
	f.openTitle(t)
	f.c.Revoke()

	assert.Nil(t, f.c.Session())
	assert.False(t, f.c.HandleContextMenu(f.el(t, "#title")))
	f.c.HandlePopState(&HistoryState{Locator: model.GalleryLocator{Gallery: "prog", ID: "1", Link: "x"}})
	assert.Nil(t, f.c.Session())
}

func TestCommentErrorShownInline(t *testing.T) {
	f := newFixture(t)
	failing := &failingComments{err: fmt.Errorf("%w: boom", comments.ErrLoad)}
	f.c.comments = failing
	f.openTitle(t)

	v := f.c.Secondary().View()
	require.NotNil(t, v.Error)
	assert.Equal(t, "Comments", v.Error.Title)
	assert.True(t, errors.Is(v.Error.Detail, comments.ErrLoad))
	assert.False(t, v.Data.Load)
}

type failingComments struct{ err error }

func (f *failingComments) Load(context.Context, model.GalleryLocator, bool) (*comments.Result, error) {
	return nil, f.err
}

func TestThousands(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"5":       "5",
		"999":     "999",
		"1000":    "1,000",
		"1234567": "1,234,567",
		"1,234":   "1,234",
		"-":       "-",
	}
	for in, want := range cases {
		assert.Equal(t, want, Thousands(in), in)
	}
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Hello - DCInside", pageTitle("Hello", "programming - DCInside"))
	assert.Equal(t, "Hello - plain", pageTitle("Hello", "plain"))
}
