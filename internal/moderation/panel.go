// Package moderation implements the manager actions of an open preview:
// delete, block, notice and recommend toggles, the keyboard shortcut and
// the captcha challenge shared with voting and comment writing.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"refresher/internal/clock"
	"refresher/internal/events"
	"refresher/internal/gateway"
	"refresher/internal/model"
)

// State is the lifecycle of the panel's current action.
type State int

const (
	Idle State = iota
	AwaitingCaptcha
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingCaptcha:
		return "awaiting_captcha"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// ErrRejected marks a failure reported by the server.
var ErrRejected = errors.New("moderation: rejected")

// RejectedError carries the server's result and message.
type RejectedError struct {
	Result  string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Result == "" {
		return "moderation: rejected: " + e.Message
	}
	return fmt.Sprintf("moderation: rejected: %s: %s", e.Result, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Gateway is the set of remote calls the panel makes.
type Gateway interface {
	DeletePost(ctx context.Context, loc model.GalleryLocator) (gateway.Response, error)
	Block(ctx context.Context, loc model.GalleryLocator, req gateway.BlockRequest) (gateway.Response, error)
	SetNotice(ctx context.Context, loc model.GalleryLocator, set bool) (gateway.Response, error)
	SetRecommend(ctx context.Context, loc model.GalleryLocator, set bool) (gateway.Response, error)
	DeleteComment(ctx context.Context, loc model.GalleryLocator, commentID string, asAdmin bool, password string) (string, bool)
	RequestCaptcha(ctx context.Context, loc model.GalleryLocator, kind string) (string, error)
}

// Options configures a Panel.
type Options struct {
	Notifier Notifier
	Alerter  Alerter
	Captcha  CaptchaPrompter
	Events   events.Emitter
	Clock    clock.Clock
	// KeyWindow is the rolling window of the double press shortcut.
	KeyWindow time.Duration
	// UseKeyPress enables HandleKey.
	UseKeyPress bool
	// CloseOverlay closes the preview. Called before a delete is sent and
	// after a block that also deleted.
	CloseOverlay func()
	Logger       zerolog.Logger
}

type keyCount struct {
	last  time.Time
	count int
}

// Panel holds the moderation state of one open session. All actions use
// the session context, so closing the session cancels them.
type Panel struct {
	gw  Gateway
	ctx context.Context
	opt Options

	mu        sync.Mutex
	loc       model.GalleryLocator
	state     State
	setNotice bool
	setRecomm bool
	keys      map[string]*keyCount
	cmtPress  map[string]time.Time
	detached  bool
}

// NewPanel returns a panel for loc bound to the session context ctx.
func NewPanel(ctx context.Context, gw Gateway, loc model.GalleryLocator, opt Options) *Panel {
	if opt.Notifier == nil {
		opt.Notifier = silent{}
	}
	if opt.Alerter == nil {
		opt.Alerter = silent{}
	}
	if opt.Clock == nil {
		opt.Clock = clock.Real()
	}
	if opt.KeyWindow <= 0 {
		opt.KeyWindow = time.Second
	}
	if opt.CloseOverlay == nil {
		opt.CloseOverlay = func() {}
	}
	return &Panel{
		gw:        gw,
		ctx:       ctx,
		opt:       opt,
		loc:       loc,
		setNotice: !loc.Notice,
		setRecomm: !loc.Recommend,
		keys:      map[string]*keyCount{},
		cmtPress:  map[string]time.Time{},
	}
}

// State returns the state of the last action.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Panel) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Locator returns the post the panel acts on.
func (p *Panel) Locator() model.GalleryLocator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loc
}

// SetLocator points the panel at another post after in-place navigation.
func (p *Panel) SetLocator(loc model.GalleryLocator) {
	p.mu.Lock()
	p.loc = loc
	p.setNotice = !loc.Notice
	p.setRecomm = !loc.Recommend
	p.keys = map[string]*keyCount{}
	p.cmtPress = map[string]time.Time{}
	p.mu.Unlock()
}

// NoticeLabel is the label of the notice toggle: the action it performs.
func (p *Panel) NoticeLabel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setNotice {
		return "Set as notice"
	}
	return "Release notice"
}

// RecommendLabel is the label of the recommend toggle.
func (p *Panel) RecommendLabel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setRecomm {
		return "Add to recommended"
	}
	return "Remove from recommended"
}

// Detach stops the panel from reacting to keys. Pending requests end with
// the session context.
func (p *Panel) Detach() {
	p.mu.Lock()
	p.detached = true
	p.keys = map[string]*keyCount{}
	p.mu.Unlock()
}

// Detached reports whether Detach was called.
func (p *Panel) Detached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detached
}

// Delete closes the overlay and deletes the post.
func (p *Panel) Delete() error {
	p.opt.CloseOverlay()
	loc := p.Locator()
	p.setState(Submitting)
	// The request outlives the session it just closed.
	resp, err := p.gw.DeletePost(context.WithoutCancel(p.ctx), loc)
	return p.finish("delete", resp, err, "Post deleted.", 600*time.Millisecond, nil)
}

// Block validates opts and blocks the writer.
func (p *Panel) Block(opts BlockOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	loc := p.Locator()
	p.setState(Submitting)
	resp, err := p.gw.Block(p.ctx, loc, gateway.BlockRequest{
		Hours:      opts.Hours,
		Reason:     opts.Reason,
		ReasonText: opts.ReasonText,
		Delete:     opts.Delete,
	})
	return p.finish("block", resp, err, "", 3*time.Second, func() {
		if opts.Delete {
			p.opt.CloseOverlay()
		}
	})
}

// PromptBlock asks bp for options and blocks with them. A dismissed prompt
// is not an error.
func (p *Panel) PromptBlock(bp BlockPrompter) error {
	opts, err := bp.PromptBlock(p.ctx)
	if errors.Is(err, ErrDismissed) {
		return nil
	}
	if err != nil {
		return err
	}
	return p.Block(opts)
}

// ToggleNotice performs the action shown by NoticeLabel. The label flips
// only on success; a refresh is requested either way.
func (p *Panel) ToggleNotice() error {
	p.mu.Lock()
	set, loc := p.setNotice, p.loc
	p.mu.Unlock()

	p.setState(Submitting)
	resp, err := p.gw.SetNotice(p.ctx, loc, set)
	if errors.Is(err, gateway.ErrCancelled) {
		p.setState(Idle)
		return err
	}
	p.emitRefresh()
	return p.finish("notice", resp, err, "", 3*time.Second, func() {
		p.mu.Lock()
		p.setNotice = !set
		p.mu.Unlock()
	})
}

// ToggleRecommend performs the action shown by RecommendLabel.
func (p *Panel) ToggleRecommend() error {
	p.mu.Lock()
	set, loc := p.setRecomm, p.loc
	p.mu.Unlock()

	p.setState(Submitting)
	resp, err := p.gw.SetRecommend(p.ctx, loc, set)
	if errors.Is(err, gateway.ErrCancelled) {
		p.setState(Idle)
		return err
	}
	p.emitRefresh()
	return p.finish("recommend", resp, err, "", 3*time.Second, func() {
		p.mu.Lock()
		p.setRecomm = !set
		p.mu.Unlock()
	})
}

func (p *Panel) emitRefresh() {
	if p.opt.Events != nil {
		p.opt.Events.Emit(events.RefreshRequest)
	}
}

// finish maps a moderation response onto the state machine and the host's
// toast and alert surfaces.
func (p *Panel) finish(action string, resp gateway.Response, err error, okMsg string, d time.Duration, onSuccess func()) error {
	loc := p.Locator()
	log := p.opt.Logger.With().Str("action", action).Str("gallery", loc.Gallery).Str("id", loc.ID).Logger()
	switch {
	case err == nil:
	case errors.Is(err, gateway.ErrCancelled):
		p.setState(Idle)
		return err
	case errors.Is(err, gateway.ErrMissingContext):
		p.setState(Failed)
		log.Debug().Err(err).Msg("skipped")
		return err
	default:
		p.setState(Failed)
		log.Warn().Err(err).Msg("request failed")
		p.opt.Notifier.Toast(err.Error(), true, 3*time.Second)
		return err
	}

	if resp.Shape != gateway.ShapeJSON {
		p.setState(Failed)
		p.opt.Alerter.Alert(resp.Raw)
		return &RejectedError{Message: resp.Raw}
	}
	if !resp.Succeeded() {
		p.setState(Failed)
		rej := &RejectedError{Result: resp.Result(), Message: resp.Message()}
		p.opt.Notifier.Toast(rej.Message, true, d)
		p.opt.Alerter.Alert(rej.Result + ": " + rej.Message)
		log.Info().Str("result", rej.Result).Msg("rejected")
		return rej
	}

	p.setState(Success)
	msg := resp.Message()
	if msg == "" {
		msg = okMsg
	}
	if msg != "" {
		p.opt.Notifier.Toast(msg, false, d)
	}
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

// HandleKey processes a key press of the admin shortcut. KeyD deletes on
// the second press within the key window; KeyB is counted but unbound.
// Presses while an input has focus are ignored. It reports whether the
// delete was triggered.
func (p *Panel) HandleKey(code string, inputFocused bool) bool {
	if code != "KeyD" && code != "KeyB" {
		return false
	}
	p.mu.Lock()
	if !p.opt.UseKeyPress || p.detached || inputFocused {
		p.mu.Unlock()
		return false
	}
	now := p.opt.Clock.Now()
	kc, ok := p.keys[code]
	if !ok || now.Sub(kc.last) > p.opt.KeyWindow {
		kc = &keyCount{}
		p.keys[code] = kc
	}
	kc.last = now
	kc.count++
	fire := code == "KeyD" && kc.count >= 2
	if fire {
		kc.count = 0
	}
	p.mu.Unlock()

	if code != "KeyD" {
		return false
	}
	if !fire {
		p.opt.Notifier.Toast("Press D once more to delete the post.", true, p.opt.KeyWindow)
		return false
	}
	if err := p.Delete(); err != nil && !errors.Is(err, gateway.ErrCancelled) {
		p.opt.Logger.Warn().Err(err).Str("key", code).Msg("shortcut delete failed")
	}
	return true
}

// DeleteComment deletes a comment of the post. Without a password the
// request is sent only on the second call for the same comment within the
// key window. It reports whether the deletion succeeded; reload runs after
// any server answer.
func (p *Panel) DeleteComment(commentID, password string, asAdmin bool, reload func()) bool {
	p.mu.Lock()
	loc := p.loc
	if loc.Link == "" {
		p.mu.Unlock()
		return false
	}
	if password == "" {
		now := p.opt.Clock.Now()
		first, pressed := p.cmtPress[commentID]
		if !pressed || now.Sub(first) > p.opt.KeyWindow {
			p.cmtPress[commentID] = now
			p.mu.Unlock()
			p.opt.Notifier.Toast("Press once more to delete the comment.", true, p.opt.KeyWindow)
			return false
		}
		delete(p.cmtPress, commentID)
	}
	p.mu.Unlock()

	p.setState(Submitting)
	raw, ok := p.gw.DeleteComment(p.ctx, loc, commentID, asAdmin, password)
	if !ok {
		p.setState(Failed)
		return false
	}
	success, msg := gateway.CommentDeleteOutcome(raw, ok)
	if success {
		p.setState(Success)
		p.opt.Notifier.Toast("Comment deleted.", false, 3*time.Second)
	} else {
		p.setState(Failed)
		p.opt.Notifier.Toast(msg, true, 3*time.Second)
	}
	if reload != nil {
		reload()
	}
	return success
}
