package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"refresher/internal/events"
	"refresher/internal/logging"
	"refresher/internal/model"
	"refresher/internal/moderation"
)

// withPanel builds a moderation panel for the post at args[0] and runs fn.
func withPanel(cmd *cobra.Command, root *rootOptions, raw string, tweak func(*model.GalleryLocator), fn func(p *moderation.Panel, term *terminal) error) error {
	loc, err := locatorFromURL(raw)
	if err != nil {
		return err
	}
	if tweak != nil {
		tweak(&loc)
	}
	rt, err := newRuntime(cmd, root)
	if err != nil {
		return err
	}
	defer rt.Close()

	term := newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin())
	bus := events.NewBus()
	defer bus.Wait()
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	p := moderation.NewPanel(ctx, rt.client, loc, moderation.Options{
		Notifier:    term,
		Alerter:     term,
		Captcha:     &captchaPrompter{term: term, client: rt.client, dir: os.TempDir()},
		Events:      bus,
		KeyWindow:   rt.cfg.Tuning.KeypressWindow,
		UseKeyPress: rt.cfg.Preview.UseKeyPress,
		Logger:      logging.Component("moderation"),
	})
	return fn(p, term)
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url>",
		Short: "Delete a post as gallery manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPanel(cmd, root, args[0], nil, func(p *moderation.Panel, _ *terminal) error {
				return p.Delete()
			})
		},
	}
}

// blockPrompter reads block options as "hours reason [text]".
type blockPrompter struct {
	term *terminal
}

func (b blockPrompter) PromptBlock(context.Context) (moderation.BlockOptions, error) {
	fmt.Fprintln(b.term.err, "durations (hours):", joinInts(moderation.BlockHours))
	for r := moderation.ReasonOther; r <= moderation.ReasonDefamation; r++ {
		fmt.Fprintf(b.term.err, "  %d %s\n", r, moderation.ReasonLabel(r))
	}
	line, err := b.term.readLine("hours reason [text]: ")
	if err != nil {
		return moderation.BlockOptions{}, err
	}
	return parseBlockLine(line)
}

func parseBlockLine(line string) (moderation.BlockOptions, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return moderation.BlockOptions{}, moderation.ErrDismissed
	}
	opts := moderation.DefaultBlockOptions()
	var err error
	if opts.Hours, err = strconv.Atoi(fields[0]); err != nil {
		return opts, fmt.Errorf("%w: hours %q", moderation.ErrInvalidBlock, fields[0])
	}
	if len(fields) > 1 {
		if opts.Reason, err = strconv.Atoi(fields[1]); err != nil {
			return opts, fmt.Errorf("%w: reason %q", moderation.ErrInvalidBlock, fields[1])
		}
	}
	if len(fields) > 2 {
		opts.ReasonText = strings.Join(fields[2:], " ")
	}
	return opts, nil
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func newBlockCmd(root *rootOptions) *cobra.Command {
	var (
		opts        = moderation.DefaultBlockOptions()
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "block <url>",
		Short: "Block the writer of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPanel(cmd, root, args[0], nil, func(p *moderation.Panel, term *terminal) error {
				if interactive {
					return p.PromptBlock(blockPrompter{term: term})
				}
				return p.Block(opts)
			})
		},
	}
	cmd.Flags().IntVar(&opts.Hours, "hours", opts.Hours, "block duration in hours: "+joinInts(moderation.BlockHours))
	cmd.Flags().IntVar(&opts.Reason, "reason", opts.Reason, "reason code, 0 takes --reason-text")
	cmd.Flags().StringVar(&opts.ReasonText, "reason-text", "", "free text reason")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the post too")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for the options")
	return cmd
}

func newNoticeCmd(root *rootOptions) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "notice <url>",
		Short: "Pin or unpin a post as notice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tweak := func(loc *model.GalleryLocator) { loc.Notice = off }
			return withPanel(cmd, root, args[0], tweak, func(p *moderation.Panel, term *terminal) error {
				fmt.Fprintln(term.err, p.NoticeLabel())
				return p.ToggleNotice()
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "unpin instead")
	return cmd
}

func newRecommendCmd(root *rootOptions) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "recommend <url>",
		Short: "Add or remove a post from the recommended list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tweak := func(loc *model.GalleryLocator) { loc.Recommend = off }
			return withPanel(cmd, root, args[0], tweak, func(p *moderation.Panel, term *terminal) error {
				fmt.Fprintln(term.err, p.RecommendLabel())
				return p.ToggleRecommend()
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "remove instead")
	return cmd
}

func newDeleteCommentCmd(root *rootOptions) *cobra.Command {
	var (
		password string
		asAdmin  bool
	)
	cmd := &cobra.Command{
		Use:   "delete-comment <url> <comment-no>",
		Short: "Delete a comment",
		Long:  "Delete a comment with its password, or as gallery manager after confirming.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPanel(cmd, root, args[0], nil, func(p *moderation.Panel, term *terminal) error {
				if p.DeleteComment(args[1], password, asAdmin, nil) {
					return nil
				}
				if password != "" {
					return errors.New("comment not deleted")
				}
				answer, err := term.readLine("delete comment " + args[1] + "? [y/N] ")
				if err != nil || !strings.EqualFold(answer, "y") {
					return moderation.ErrDismissed
				}
				if !p.DeleteComment(args[1], "", asAdmin, nil) {
					return errors.New("comment not deleted")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password of an anonymous comment")
	cmd.Flags().BoolVar(&asAdmin, "admin", false, "delete as gallery manager")
	return cmd
}

func newCaptchaCmd(root *rootOptions) *cobra.Command {
	var (
		kind string
		dir  string
	)
	cmd := &cobra.Command{
		Use:   "captcha <url>",
		Short: "Download a captcha picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := locatorFromURL(args[0])
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd, root)
			if err != nil {
				return err
			}
			defer rt.Close()

			imageURL, err := rt.client.RequestCaptcha(cmd.Context(), loc, kind)
			if err != nil {
				return err
			}
			img, err := rt.client.FetchCaptchaImage(cmd.Context(), imageURL)
			if err != nil {
				return err
			}
			path, err := saveCaptcha(dir, img)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %dx%d\n", path, img.Format, img.Width, img.Height)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", moderation.CaptchaRecommend, "captcha kind: recommend|comment")
	cmd.Flags().StringVar(&dir, "dir", "", "directory for the picture (default temp dir)")
	return cmd
}
