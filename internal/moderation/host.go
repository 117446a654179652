package moderation

import (
	"context"
	"errors"
	"time"
)

// ErrDismissed is returned by prompters when the user closed the prompt.
var ErrDismissed = errors.New("moderation: prompt dismissed")

// Notifier shows transient toasts.
type Notifier interface {
	Toast(msg string, isError bool, d time.Duration)
}

// Alerter shows blocking messages that need acknowledgment.
type Alerter interface {
	Alert(msg string)
}

// CaptchaPrompter shows a captcha image and waits for the typed code.
type CaptchaPrompter interface {
	PromptCaptcha(ctx context.Context, imageURL string) (string, error)
}

// BlockPrompter asks for block options.
type BlockPrompter interface {
	PromptBlock(ctx context.Context) (BlockOptions, error)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(msg string, isError bool, d time.Duration)

func (f NotifyFunc) Toast(msg string, isError bool, d time.Duration) { f(msg, isError, d) }

// AlertFunc adapts a function to Alerter.
type AlertFunc func(msg string)

func (f AlertFunc) Alert(msg string) { f(msg) }

type silent struct{}

func (silent) Toast(string, bool, time.Duration) {}
func (silent) Alert(string)                      {}
