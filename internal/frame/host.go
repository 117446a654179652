package frame

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"refresher/internal/events"
	"refresher/internal/logging"
	"refresher/internal/model"
)

// HistoryState is the serializable record pushed with each preview URL.
type HistoryState struct {
	Locator model.GalleryLocator `json:"preData"`
	PreURL  string               `json:"preURL"`
}

// History is the host's document title and URL history. A nil state
// marks an entry that closes the preview when navigated to.
type History interface {
	Push(state *HistoryState, title, url string)
	Replace(state *HistoryState, title, url string)
	Title() string
	SetTitle(title string)
	URL() string
	Reload()
	Navigate(url string)
}

// Clipboard receives shared links.
type Clipboard interface {
	WriteText(text string) error
}

// Bus is the event bus surface the controller uses.
type Bus interface {
	On(name string, handler events.Handler, once bool) string
	Off(id string) bool
	Emit(name string, args ...any)
	EmitNextTick(name string, args ...any)
}

// Tooltip is the hover preview closed whenever the overlay opens.
type Tooltip interface {
	Close()
}

// Session is the cancellation scope of one open overlay. Both frames and
// the moderation panel run their requests under its context.
type Session struct {
	ID      string
	Started time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// newSession starts a session whose context carries log tagged with the
// session id.
func newSession(parent context.Context, now time.Time, log zerolog.Logger) *Session {
	id := uuid.NewString()
	ctx := logging.WithContext(parent, log.With().Str("session", id).Logger())
	ctx, cancel := context.WithCancel(ctx)
	return &Session{ID: id, Started: now, ctx: ctx, cancel: cancel}
}

func (s *Session) log() zerolog.Logger { return logging.FromContext(s.ctx) }

// Context returns the session context.
func (s *Session) Context() context.Context { return s.ctx }

// Done reports whether the session was closed.
func (s *Session) Done() bool { return s.ctx.Err() != nil }

type nopHistory struct{}

func (nopHistory) Push(*HistoryState, string, string)    {}
func (nopHistory) Replace(*HistoryState, string, string) {}
func (nopHistory) Title() string                         { return "" }
func (nopHistory) SetTitle(string)                       {}
func (nopHistory) URL() string                           { return "" }
func (nopHistory) Reload()                               {}
func (nopHistory) Navigate(string)                       {}
