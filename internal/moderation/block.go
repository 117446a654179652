package moderation

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"
)

// BlockHours are the accepted block durations.
var BlockHours = []int{1, 6, 24, 168, 336, 720}

// Block reasons. ReasonOther requires free text.
const (
	ReasonOther = iota
	ReasonObscene
	ReasonAdvertising
	ReasonAbuse
	ReasonFlooding
	ReasonCopyright
	ReasonDefamation
)

// MaxReasonText is the longest accepted free text reason, in characters.
const MaxReasonText = 20

// ErrInvalidBlock is returned for options outside the accepted sets.
var ErrInvalidBlock = errors.New("moderation: invalid block options")

// BlockOptions is the user's block selection.
type BlockOptions struct {
	Hours      int
	Reason     int
	ReasonText string
	Delete     bool
}

// DefaultBlockOptions is the preselected choice: one hour, obscene content.
func DefaultBlockOptions() BlockOptions {
	return BlockOptions{Hours: 1, Reason: ReasonObscene}
}

// Validate checks the duration, the reason and the free text.
func (o BlockOptions) Validate() error {
	if !slices.Contains(BlockHours, o.Hours) {
		return fmt.Errorf("%w: duration %dh", ErrInvalidBlock, o.Hours)
	}
	if o.Reason < ReasonOther || o.Reason > ReasonDefamation {
		return fmt.Errorf("%w: reason %d", ErrInvalidBlock, o.Reason)
	}
	if o.Reason == ReasonOther {
		n := utf8.RuneCountInString(o.ReasonText)
		if n == 0 {
			return fmt.Errorf("%w: reason text required", ErrInvalidBlock)
		}
		if n > MaxReasonText {
			return fmt.Errorf("%w: reason text longer than %d", ErrInvalidBlock, MaxReasonText)
		}
	}
	return nil
}

// ReasonLabel returns the display name of a reason.
func ReasonLabel(r int) string {
	switch r {
	case ReasonObscene:
		return "obscene"
	case ReasonAdvertising:
		return "advertising"
	case ReasonAbuse:
		return "abuse"
	case ReasonFlooding:
		return "flooding"
	case ReasonCopyright:
		return "copyright"
	case ReasonDefamation:
		return "defamation"
	case ReasonOther:
		return "other"
	}
	return "unknown"
}
