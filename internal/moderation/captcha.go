package moderation

import (
	"context"
	"errors"

	"refresher/internal/gateway"
)

// Captcha kinds understood by the captcha endpoint.
const (
	CaptchaRecommend = "recommend"
	CaptchaComment   = "comment"
)

// ErrNoPrompter is returned when a captcha is required but the host
// cannot show one.
var ErrNoPrompter = errors.New("moderation: no captcha prompter")

// Challenge runs submit once. When required, a captcha image is requested
// first and submit receives the code the user typed; the two requests are
// independent and nothing is retried.
func (p *Panel) Challenge(kind string, required bool, submit func(ctx context.Context, code string) error) error {
	loc := p.Locator()
	code := ""
	if required {
		if p.opt.Captcha == nil {
			p.setState(Failed)
			return ErrNoPrompter
		}
		p.setState(AwaitingCaptcha)
		imageURL, err := p.gw.RequestCaptcha(p.ctx, loc, kind)
		if err != nil {
			return p.fail(err)
		}
		code, err = p.opt.Captcha.PromptCaptcha(p.ctx, imageURL)
		if err != nil {
			if errors.Is(err, ErrDismissed) {
				p.setState(Idle)
				return err
			}
			return p.fail(err)
		}
	}
	p.setState(Submitting)
	if err := submit(p.ctx, code); err != nil {
		return p.fail(err)
	}
	p.setState(Success)
	return nil
}

func (p *Panel) fail(err error) error {
	if errors.Is(err, gateway.ErrCancelled) || errors.Is(err, context.Canceled) {
		p.setState(Idle)
	} else {
		p.setState(Failed)
	}
	return err
}
