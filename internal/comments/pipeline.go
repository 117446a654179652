// Package comments loads a post's comment thread and prepares it for
// display: non-user rows are dropped, writers resolved and blocked content
// filtered out.
package comments

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"refresher/internal/block"
	"refresher/internal/cache"
	"refresher/internal/gateway"
	"refresher/internal/model"
	"refresher/internal/parse"
)

// ErrLoad wraps network and decode failures. An empty thread is not an
// error.
var ErrLoad = errors.New("comments: load failed")

var (
	embedRe = regexp.MustCompile(`<(img|video) class=`)
	dcconRe = regexp.MustCompile(`https://dcimg5\.dcinside\.com/dccon\.php\?no=(\w*)`)
)

// Fetcher is the gateway call the pipeline depends on.
type Fetcher interface {
	FetchComments(ctx context.Context, loc model.GalleryLocator) (*gateway.CommentPayload, error)
}

// Pipeline loads and filters comment threads.
type Pipeline struct {
	fetch Fetcher
	cache *cache.PostCache
	block block.Checker
	log   zerolog.Logger
}

// New returns a pipeline. A nil checker blocks nothing.
func New(f Fetcher, c *cache.PostCache, b block.Checker, log zerolog.Logger) *Pipeline {
	if b == nil {
		b = block.Nothing{}
	}
	return &Pipeline{fetch: f, cache: c, block: b, log: log}
}

// Result is a processed thread.
type Result struct {
	// Thread holds the comments left after filtering.
	Thread      *model.CommentThread
	ThreadCount int
	Subtitle    string
}

// Load returns the processed thread of loc, from the cache when useCache is
// set and a thread is stored. Fetched threads are cached unfiltered.
func (p *Pipeline) Load(ctx context.Context, loc model.GalleryLocator, useCache bool) (*Result, error) {
	key := loc.Key()
	if useCache {
		if e, ok := p.cache.Get(key); ok && e.Comment != nil {
			return p.Process(e.Comment, loc.Gallery), nil
		}
	}

	payload, err := p.fetch.FetchComments(ctx, loc)
	if err != nil {
		if errors.Is(err, gateway.ErrCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	raw := payload.Thread()
	p.cache.Set(key, cache.Entry{Comment: raw})
	p.log.Debug().Str("key", key).Int("comments", len(raw.Comments)).Msg("comments loaded")
	return p.Process(raw, loc.Gallery), nil
}

// Process filters raw without modifying it.
func (p *Pipeline) Process(raw *model.CommentThread, gallery string) *Result {
	t := p.Filter(raw, gallery)
	n := t.ThreadCount()
	return &Result{Thread: t, ThreadCount: n, Subtitle: Subtitle(n, t.TotalCount)}
}

// Filter drops comment-boy rows and blocked comments and resolves writers.
// Applying it to its own output yields the same sequence.
func (p *Pipeline) Filter(raw *model.CommentThread, gallery string) *model.CommentThread {
	out := &model.CommentThread{}
	if raw == nil {
		return out
	}
	out.TotalCount = raw.TotalCount
	if raw.Comments == nil {
		return out
	}
	out.Comments = make([]model.CommentRecord, 0, len(raw.Comments))
	for _, c := range raw.Comments {
		if c.NickType == model.NickTypeCommentBoy {
			continue
		}
		c.User = model.User{
			Nick: c.Name,
			UID:  c.UserID,
			IP:   c.IP,
			Icon: parse.GallogIcon(c.GallogIcon),
		}
		items, dccon := CheckBag(c)
		c.DcconID = dccon
		if p.block.CheckAll(items, gallery) {
			continue
		}
		out.Comments = append(out.Comments, c)
	}
	return out
}

// CheckBag builds the block-list items of a comment. A memo embedding a
// sticker is checked by its sticker id instead of its text; the id is also
// returned. A memo embedding media without a recognizable sticker URL is
// checked as text.
func CheckBag(c model.CommentRecord) ([]block.Item, string) {
	items := []block.Item{{Kind: block.Nick, Value: c.Name}}
	if c.UserID != "" {
		items = append(items, block.Item{Kind: block.ID, Value: c.UserID})
	}
	if c.IP != "" {
		items = append(items, block.Item{Kind: block.IP, Value: c.IP})
	}
	if embedRe.MatchString(c.Memo) {
		if m := dcconRe.FindStringSubmatch(c.Memo); m != nil {
			return append(items, block.Item{Kind: block.Dccon, Value: m[1]}), m[1]
		}
	}
	return append(items, block.Item{Kind: block.Comment, Value: c.Memo}), ""
}

// Subtitle formats the comment counter shown above a thread.
func Subtitle(threads, total int) string {
	if threads != total {
		return fmt.Sprintf("%d threads, total %d", threads, total)
	}
	return fmt.Sprintf("%d", total)
}
