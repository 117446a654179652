package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"refresher/internal/hover"
	"refresher/internal/listing"
	"refresher/internal/logging"
	"refresher/internal/model"
)

type browseOptions struct {
	page      int
	preview   int
	open      int
	comments  bool
	mediaHide bool
}

func newBrowseCmd(root *rootOptions) *cobra.Command {
	opts := browseOptions{}
	cmd := &cobra.Command{
		Use:     "browse <gallery-or-url>",
		Aliases: []string{"ls"},
		Short:   "List the posts of a gallery",
		Long: `List the posts of a gallery listing page.

--preview shows the hover preview of a row, --open opens a row the way a
right click on the listing does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gal, err := galleryFromURL(args[0])
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd, root)
			if err != nil {
				return err
			}
			defer rt.Close()

			body, pageURL, err := rt.client.FetchList(cmd.Context(), gal, opts.page)
			if err != nil {
				return err
			}
			page, err := listing.ParsePage(pageURL, body)
			if err != nil {
				return fmt.Errorf("parse listing: %w", err)
			}
			resolver := listing.NewResolver(rt.client.BaseURL(), listing.DefaultHops)
			rt.log.Debug().Str("gallery", page.Gallery()).Int("rows", len(page.Rows())).Bool("admin", page.HasAdminControls()).Msg("listing parsed")
			// Posts opened from this page reuse its nonce.
			if rt.pageNonce != nil {
				rt.pageNonce.Remember(model.GalleryLocator{Gallery: page.Gallery(), Link: pageURL}, page.Nonce())
			}

			switch {
			case opts.preview > 0:
				row, err := pickRow(page, resolver, opts.preview)
				if err != nil {
					return err
				}
				return runPreview(cmd, rt, resolver, row, opts.mediaHide)
			case opts.open > 0:
				row, err := pickRow(page, resolver, opts.open)
				if err != nil {
					return err
				}
				return runOpen(cmd, rt, page, row, opts.comments)
			}

			locs := page.Locators(resolver)
			table := make([][]string, 0, len(locs))
			for i, loc := range locs {
				table = append(table, []string{
					strconv.Itoa(i + 1),
					loc.ID,
					truncateTitle(loc.Title),
					formatYesNo(loc.Notice),
					formatYesNo(loc.Recommend),
				})
			}
			return writeTable(cmd.OutOrStdout(), []string{"ROW", "NO", "TITLE", "NOTICE", "RECOMMENDED"}, table)
		},
	}
	cmd.Flags().IntVar(&opts.page, "page", 1, "listing page")
	cmd.Flags().IntVar(&opts.preview, "preview", 0, "show the hover preview of this row")
	cmd.Flags().IntVar(&opts.open, "open", 0, "open this row in the preview")
	cmd.Flags().BoolVar(&opts.comments, "comments", false, "with --open, print the comments too")
	cmd.Flags().BoolVar(&opts.mediaHide, "media-hide", false, "with --preview, drop pictures and videos")
	return cmd
}

// pickRow returns the n-th row that links to a post, counting from 1 like
// the ROW column of the table.
func pickRow(page *listing.Page, resolver *listing.Resolver, n int) (*html.Node, error) {
	seen := 0
	for _, row := range page.Rows() {
		if _, ok := resolver.Resolve(row); !ok {
			continue
		}
		seen++
		if seen == n {
			return row, nil
		}
	}
	return nil, fmt.Errorf("row %d out of range, the page has %d posts", n, seen)
}

func runPreview(cmd *cobra.Command, rt *runtime, resolver *listing.Resolver, row *html.Node, mediaHide bool) error {
	tip := &tooltip{}
	ctl := hover.New(tip, rt.client, resolver, hover.Options{
		Window:    rt.cfg.Tuning.HoverWindow,
		MediaHide: mediaHide || rt.cfg.Preview.TooltipMediaHide,
		NoCache:   rt.cfg.Preview.NoCacheHeader,
		Checker:   rt.checker,
		Cache:     rt.cache,
		Logger:    logging.Component("hover"),
	})
	defer ctl.Shutdown()
	ctl.Enter(row)
	ctl.Wait()

	title, contents := tip.snapshot()
	if title == "" && contents == "" {
		return fmt.Errorf("row does not link to a post")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n\n%s\n", title, markdown(contents, rt.client.BaseURL().String()))
	return nil
}

func runOpen(cmd *cobra.Command, rt *runtime, page *listing.Page, row *html.Node, withComments bool) error {
	o := rt.newOverlay(cmd, page.HasAdminControls())
	defer o.Close()

	var opened bool
	if rt.cfg.Preview.ReversePreviewKey {
		opened = o.ctl.HandleClick(row)
	} else {
		opened = o.ctl.HandleContextMenu(row)
	}
	if !opened {
		return fmt.Errorf("row does not link to a post")
	}
	o.settle()

	domain := rt.client.BaseURL().String()
	pv := o.ctl.Primary().View()
	printPost(cmd.OutOrStdout(), pv, domain, false)
	if withComments && pv.Error == nil {
		fmt.Fprintln(cmd.OutOrStdout())
		printComments(cmd.OutOrStdout(), o.ctl.Secondary().View(), domain)
	}
	if p := o.ctl.Panel(); p != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "manager actions: %s, %s\n", p.NoticeLabel(), p.RecommendLabel())
	}
	return viewErr(pv)
}
