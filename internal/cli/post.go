package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"refresher/internal/frame"
	"refresher/internal/model"
)

// postJSON is the machine readable form of an opened post.
type postJSON struct {
	Locator  model.GalleryLocator `json:"locator"`
	Title    string               `json:"title"`
	User     *model.User          `json:"user,omitempty"`
	Date     string               `json:"date,omitempty"`
	Views    string               `json:"views"`
	Upvotes  string               `json:"upvotes"`
	Down     string               `json:"downvotes"`
	Contents string               `json:"contents"`
	Comments []commentJSON        `json:"comments,omitempty"`
	Error    string               `json:"error,omitempty"`
}

type commentJSON struct {
	No      string     `json:"no"`
	Parent  string     `json:"parent,omitempty"`
	Depth   int        `json:"depth"`
	User    model.User `json:"user"`
	Memo    string     `json:"memo"`
	Date    string     `json:"date,omitempty"`
	Deleted bool       `json:"deleted,omitempty"`
}

func newPostCmd(root *rootOptions) *cobra.Command {
	var (
		withComments bool
		raw          bool
		jsonOutput   bool
		skip         int
	)
	cmd := &cobra.Command{
		Use:   "post <url>",
		Short: "Preview a post",
		Long:  "Fetch a post page, apply the block rules and print it as markdown.",
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

			o := rt.newOverlay(cmd, false)
			defer o.Close()
			o.ctl.Open(loc)
			o.settle()
			if skip != 0 {
				if moved := o.skip(skip, rt.cfg.Tuning.ScrollThreshold); moved != abs(skip) {
					return fmt.Errorf("moved %d of %d posts", moved, abs(skip))
				}
			}

			pv := o.ctl.Primary().View()
			cv := o.ctl.Secondary().View()
			if jsonOutput {
				out := toJSON(o.ctl.Locator(), pv, cv, withComments)
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
				return viewErr(pv)
			}
			domain := rt.client.BaseURL().String()
			printPost(cmd.OutOrStdout(), pv, domain, raw)
			if withComments && pv.Error == nil {
				fmt.Fprintln(cmd.OutOrStdout())
				printComments(cmd.OutOrStdout(), cv, domain)
			}
			return viewErr(pv)
		},
	}
	cmd.Flags().BoolVar(&withComments, "comments", false, "print the comment thread too")
	cmd.Flags().BoolVar(&raw, "html", false, "print the contents as html")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	cmd.Flags().IntVar(&skip, "skip", 0, "scroll this many posts forward, or backward when negative")
	return cmd
}

func newCommentsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "comments <url>",
		Aliases: []string{"cmt"},
		Short:   "Print the comment thread of a post",
		Args:    cobra.ExactArgs(1),
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

			o := rt.newOverlay(cmd, false)
			defer o.Close()
			o.ctl.Open(loc)
			o.settle()

			if err := viewErr(o.ctl.Primary().View()); err != nil {
				return err
			}
			cv := o.ctl.Secondary().View()
			printComments(cmd.OutOrStdout(), cv, rt.client.BaseURL().String())
			return viewErr(cv)
		},
	}
}

func newVoteCmd(root *rootOptions) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "vote <url>",
		Short: "Upvote or downvote a post",
		Long:  "Vote on a post. When the gallery requires a captcha its picture is saved to a temporary file and the code is read from stdin.",
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

			o := rt.newOverlay(cmd, false)
			defer o.Close()
			o.ctl.Open(loc)
			o.settle()
			if err := viewErr(o.ctl.Primary().View()); err != nil {
				return err
			}
			vote := o.ctl.Primary().Functions().Vote
			if vote == nil || !vote(!down) {
				return errors.New("vote failed")
			}
			v := o.ctl.Primary().View()
			fmt.Fprintf(cmd.OutOrStdout(), "upvotes %s, downvotes %s\n", v.Data.Upvotes, v.Data.Downvotes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "downvote instead")
	return cmd
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func viewErr(v frame.View) error {
	if v.Error == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", v.Error.Title, v.Error.Detail)
}

func toJSON(loc model.GalleryLocator, pv, cv frame.View, withComments bool) postJSON {
	out := postJSON{
		Locator:  loc,
		Title:    pv.Title,
		User:     pv.Data.User,
		Views:    pv.Data.Views,
		Upvotes:  pv.Data.Upvotes,
		Down:     pv.Data.Downvotes,
		Contents: pv.Contents,
	}
	if !pv.Data.Date.IsZero() {
		out.Date = pv.Data.Date.Format(dateLayout)
	}
	if pv.Error != nil {
		out.Error = viewErr(pv).Error()
	}
	if withComments && cv.Data.Comments != nil {
		for _, c := range cv.Data.Comments.Comments {
			out.Comments = append(out.Comments, commentJSON{
				No: c.No, Parent: c.Parent, Depth: c.Depth, User: c.User,
				Memo: c.Memo, Date: c.RegDate, Deleted: c.Deleted,
			})
		}
	}
	return out
}
