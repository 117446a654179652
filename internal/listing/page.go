package listing

import (
	"net/url"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"refresher/internal/model"
	"refresher/internal/parse"
)

var (
	nonceSel = cascadia.MustCompile("#e_s_n_o")
	adminSel = cascadia.MustCompile(".useradmin_btnbox button")
	rowSel   = cascadia.MustCompile("tr.ub-content")
)

// Page is a parsed listing page.
type Page struct {
	Doc *html.Node
	URL *url.URL
}

// ParsePage parses body fetched from pageURL.
func ParsePage(pageURL string, body []byte) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := parse.Document(body)
	if err != nil {
		return nil, err
	}
	return &Page{Doc: doc, URL: u}, nil
}

// Nonce returns the page-session nonce or "".
func (p *Page) Nonce() string {
	v, _ := parse.Attr(cascadia.Query(p.Doc, nonceSel), "value")
	return v
}

// HasAdminControls reports whether the viewer manages this gallery.
func (p *Page) HasAdminControls() bool {
	return cascadia.Query(p.Doc, adminSel) != nil
}

// Gallery returns the gallery id of the page URL.
func (p *Page) Gallery() string {
	if p.URL == nil {
		return ""
	}
	return p.URL.Query().Get("id")
}

// Rows returns the post rows of the listing.
func (p *Page) Rows() []*html.Node {
	return cascadia.QueryAll(p.Doc, rowSel)
}

// Locators resolves every row that links to a post.
func (p *Page) Locators(r *Resolver) []model.GalleryLocator {
	var out []model.GalleryLocator
	for _, row := range p.Rows() {
		if loc, ok := r.Resolve(row); ok {
			out = append(out, loc)
		}
	}
	return out
}
