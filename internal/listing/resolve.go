// Package listing maps elements of a gallery listing page to the post they
// point at.
package listing

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"refresher/internal/model"
	"refresher/internal/parse"
)

// NoticeLabel is the number cell text of notice rows.
const NoticeLabel = "공지"

// Hops bounds how far up the tree each neighbor search goes. A value of n
// examines the target and its n-1 nearest ancestors.
type Hops struct {
	Number int
	Icon   int
	Link   int
	// Zoom is used for layouts without a number cell.
	Zoom int
}

// DefaultHops matches the listing layouts of the site.
var DefaultHops = Hops{Number: 5, Icon: 5, Link: 3, Zoom: 2}

var (
	numberSel    = cascadia.MustCompile(".gall_num")
	iconSel      = cascadia.MustCompile("em.icon_img")
	titleLinkSel = cascadia.MustCompile("a:not(.reply_numbox)")
	anySel       = cascadia.MustCompile("a")
	txtBoxSel    = cascadia.MustCompile(".txt_box")
	noParamRe    = regexp.MustCompile(`&no=([^&]*)`)
	idParamRe    = regexp.MustCompile(`id=([^&]*)`)
)

// Resolver turns listing elements into locators.
type Resolver struct {
	base *url.URL
	hops Hops
}

// NewResolver resolves relative links against base.
func NewResolver(base *url.URL, hops Hops) *Resolver {
	if hops.Number <= 0 {
		hops = DefaultHops
	}
	return &Resolver{base: base, hops: hops}
}

// findNeighbor searches target and its ancestors, at most hops nodes, for
// the first node matching sel or containing a match.
func findNeighbor(target *html.Node, sel cascadia.Sel, hops int) *html.Node {
	for n, i := target, 0; n != nil && i < hops; n, i = n.Parent, i+1 {
		if n.Type != html.ElementNode {
			continue
		}
		if sel.Match(n) {
			return n
		}
		if m := cascadia.Query(n, sel); m != nil {
			return m
		}
	}
	return nil
}

func (r *Resolver) lookup(target *html.Node, isRow bool, sel cascadia.Sel, hops int) *html.Node {
	if isRow {
		return cascadia.Query(target, sel)
	}
	return findNeighbor(target, sel, hops)
}

// Resolve returns the locator of the post target refers to. ok is false
// when no link with both a gallery and a post number is found.
func (r *Resolver) Resolve(target *html.Node) (loc model.GalleryLocator, ok bool) {
	if target == nil {
		return loc, false
	}
	isRow := target.Type == html.ElementNode && target.DataAtom == atom.Tr

	var link *html.Node
	if num := r.lookup(target, isRow, numberSel, r.hops.Number); num != nil {
		if strings.TrimSpace(parse.Text(num)) == NoticeLabel {
			loc.Notice = true
		} else {
			loc.ID = strings.TrimSpace(parse.Text(num))
		}
		if em := r.lookup(target, isRow, iconSel, r.hops.Icon); em != nil {
			loc.Recommend = parse.ClassContains(em, "icon_recomimg")
		}
		link = r.lookup(target, isRow, titleLinkSel, r.hops.Link)
		if link != nil {
			loc.Title = strings.TrimSpace(parse.Text(link))
		}
	} else {
		link = r.lookup(target, isRow, anySel, r.hops.Zoom)
		if box := r.lookup(target, isRow, txtBoxSel, r.hops.Zoom); box != nil {
			loc.Title = parse.InnerHTML(box)
		}
	}

	if link == nil {
		return loc, false
	}
	href, _ := parse.Attr(link, "href")
	href = r.absolute(href)
	no := noParamRe.FindStringSubmatch(href)
	id := idParamRe.FindStringSubmatch(href)
	if no == nil || id == nil {
		return loc, false
	}
	loc.ID = no[1]
	loc.Gallery = id[1]
	loc.Link = href
	return loc, true
}

func (r *Resolver) absolute(href string) string {
	if r.base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return r.base.ResolveReference(ref).String()
}

// IsWriterCell reports whether n sits inside a writer cell, where clicks
// belong to the user menu rather than the preview.
func IsWriterCell(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && parse.HasClass(n, "ub-writer") {
			return true
		}
	}
	return false
}

// IsReplyCount reports whether n is a comment counter, which opens the
// preview with the post collapsed.
func IsReplyCount(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && parse.ClassContains(n, "reply_num")
}
