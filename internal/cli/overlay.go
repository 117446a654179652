package cli

import (
	"os"

	"github.com/spf13/cobra"

	"refresher/internal/comments"
	"refresher/internal/events"
	"refresher/internal/frame"
	"refresher/internal/listing"
	"refresher/internal/logging"
)

// overlay is a preview session driven from the command line.
type overlay struct {
	ctl  *frame.Controller
	bus  *events.Bus
	term *terminal
}

func (rt *runtime) newOverlay(cmd *cobra.Command, adminControls bool) *overlay {
	term := newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin())
	bus := events.NewBus()
	preview := rt.cfg.Preview
	// One shot commands never keep the session alive for refreshes.
	preview.AutoRefreshComment = false

	pipeline := comments.New(rt.client, rt.cache, rt.checker, logging.Component("comments"))
	resolver := listing.NewResolver(rt.client.BaseURL(), listing.DefaultHops)
	ctl := frame.New(rt.client, pipeline, resolver, frame.Options{
		Preview:          preview,
		ScrollThreshold:  rt.cfg.Tuning.ScrollThreshold,
		KeyWindow:        rt.cfg.Tuning.KeypressWindow,
		HasAdminControls: adminControls,
		Cache:            rt.cache,
		Checker:          rt.checker,
		Events:           bus,
		Clipboard:        term,
		Notifier:         term,
		Alerter:          term,
		Captcha:          &captchaPrompter{term: term, client: rt.client, dir: os.TempDir()},
		Logger:           logging.Component("frame"),
	})
	return &overlay{ctl: ctl, bus: bus, term: term}
}

// settle waits for the post, the comments seeded by it and the events
// they emitted.
func (o *overlay) settle() {
	o.ctl.Wait()
	o.bus.Wait()
	o.ctl.Wait()
}

func (o *overlay) Close() {
	o.ctl.Close()
	o.settle()
}

// skip moves n posts forward, or backward when n is negative, by feeding
// wheel events at the matching end of the overlay. It returns how many
// moves happened.
func (o *overlay) skip(n, threshold int) int {
	down := n > 0
	if !down {
		n = -n
	}
	moved := 0
	for range n {
		ok := false
		for i := 0; i < threshold && !ok; i++ {
			if down {
				ok = o.ctl.HandleScroll(1, false, true)
			} else {
				ok = o.ctl.HandleScroll(-1, true, false)
			}
		}
		if !ok {
			break
		}
		o.settle()
		moved++
	}
	return moved
}
