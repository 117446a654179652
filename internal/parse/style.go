package parse

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// loosenWidth rewrites a fixed width inline style so the body can shrink
// into the preview: width becomes unset, the old width moves to max-width
// and overflow is cleared. Styles without a width are left alone.
func loosenWidth(n *html.Node) {
	style, ok := Attr(n, "style")
	if !ok || strings.TrimSpace(style) == "" {
		return
	}
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		return
	}
	width := ""
	for _, d := range decls {
		if d != nil && strings.EqualFold(strings.TrimSpace(d.Property), "width") {
			width = strings.TrimSpace(d.Value)
		}
	}
	if width == "" {
		return
	}
	out := make([]*css.Declaration, 0, len(decls)+1)
	for _, d := range decls {
		if d == nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(d.Property)) {
		case "width":
			out = append(out, &css.Declaration{Property: "width", Value: "unset"})
		case "overflow", "max-width":
		default:
			out = append(out, d)
		}
	}
	out = append(out, &css.Declaration{Property: "max-width", Value: width})
	SetAttr(n, "style", renderDeclarations(out))
}

func renderDeclarations(decls []*css.Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		v := d.Property + ": " + d.Value
		if d.Important {
			v += " !important"
		}
		parts = append(parts, v+";")
	}
	return strings.Join(parts, " ")
}

// StripStyle removes the style attribute from every element of markup that
// matches selector and returns the re-rendered markup.
func StripStyle(markup, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", err
	}
	root, err := Fragment(markup)
	if err != nil {
		return "", err
	}
	for _, n := range cascadia.QueryAll(root, sel) {
		attrs := n.Attr[:0]
		for _, a := range n.Attr {
			if !strings.EqualFold(a.Key, "style") {
				attrs = append(attrs, a)
			}
		}
		n.Attr = attrs
	}
	return InnerHTML(root), nil
}

// Remove drops every element of markup matching selector.
func Remove(markup, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", err
	}
	root, err := Fragment(markup)
	if err != nil {
		return "", err
	}
	for _, n := range cascadia.QueryAll(root, sel) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return InnerHTML(root), nil
}
