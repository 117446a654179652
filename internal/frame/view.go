package frame

import (
	"sync"
	"time"

	"refresher/internal/model"
)

// Frame names.
const (
	Primary   = "post"
	Secondary = "comments"
)

// Error is the inline error block of a frame.
type Error struct {
	Title  string
	Detail error
}

// Data is the state bag the renderer reads next to the text fields.
type Data struct {
	Load    bool
	Buttons bool

	User             *model.User
	Date             time.Time
	Expire           string
	Views            string
	Upvotes          string
	FixedUpvotes     string
	Downvotes        string
	DisabledDownvote bool

	Comments        *model.CommentThread
	Collapse        bool
	UseWriteComment bool

	ScrollModeTop    bool
	ScrollModeBottom bool
}

// View is a snapshot of everything a frame shows.
type View struct {
	Title    string
	Subtitle string
	Contents string
	Error    *Error
	Data     Data
}

// CommentForm is what the user typed into the comment box.
type CommentForm struct {
	Name     string
	Password string
	Memo     string
	ReplyTo  string
}

// Functions are the actions the renderer may invoke. Unset slots are nil.
type Functions struct {
	Load          func(useCache bool)
	Retry         func(useCache bool)
	Vote          func(up bool) bool
	Share         func() bool
	WriteComment  func(form CommentForm) bool
	DeleteComment func(commentID, password string, asAdmin bool) bool
	OpenOriginal  func() bool
}

// Observer is told about every change of a frame.
type Observer interface {
	FrameChanged(name string, v View)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(name string, v View)

func (f ObserverFunc) FrameChanged(name string, v View) { f(name, v) }

type nopObserver struct{}

func (nopObserver) FrameChanged(string, View) {}

// Frame is one pane of the overlay.
type Frame struct {
	name string
	obs  Observer

	mu   sync.Mutex
	view View
	fns  Functions
	gen  uint64
}

func newFrame(name string, obs Observer) *Frame {
	return &Frame{name: name, obs: obs}
}

// Name returns Primary or Secondary.
func (f *Frame) Name() string { return f.name }

// View returns a copy of the current state.
func (f *Frame) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Functions returns the current action slots.
func (f *Frame) Functions() Functions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fns
}

func (f *Frame) update(fn func(v *View)) {
	f.mu.Lock()
	fn(&f.view)
	v := f.view
	f.mu.Unlock()
	f.obs.FrameChanged(f.name, v)
}

func (f *Frame) setFunctions(fn func(fns *Functions)) {
	f.mu.Lock()
	fn(&f.fns)
	f.mu.Unlock()
}

// begin starts a new load and returns its generation. Results of older
// generations are dropped by apply.
func (f *Frame) begin() uint64 {
	f.mu.Lock()
	f.gen++
	g := f.gen
	f.view.Data.Load = true
	v := f.view
	f.mu.Unlock()
	f.obs.FrameChanged(f.name, v)
	return g
}

// apply runs fn if gen is still the latest load.
func (f *Frame) apply(gen uint64, fn func(v *View)) bool {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return false
	}
	fn(&f.view)
	v := f.view
	f.mu.Unlock()
	f.obs.FrameChanged(f.name, v)
	return true
}

func (f *Frame) current(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return gen == f.gen
}

// invalidate drops every load in flight.
func (f *Frame) invalidate() {
	f.mu.Lock()
	f.gen++
	f.mu.Unlock()
}

func (f *Frame) collapsed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view.Data.Collapse
}

func (f *Frame) loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view.Data.Load
}

func (f *Frame) failed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view.Error != nil
}
