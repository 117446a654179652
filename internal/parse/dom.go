package parse

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document parses a full page.
func Document(body []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(body))
}

// Fragment parses markup as the children of a <body> element and returns a
// synthetic root holding them.
func Fragment(markup string) (*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.TextNode {
			sb.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr replaces or adds an attribute.
func SetAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// HasClass reports whether n's class list contains class.
func HasClass(n *html.Node, class string) bool {
	v, _ := Attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// ClassContains reports whether n's class attribute contains sub anywhere.
func ClassContains(n *html.Node, sub string) bool {
	v, _ := Attr(n, "class")
	return strings.Contains(v, sub)
}

func queryOne(root *html.Node, sel cascadia.Sel) *html.Node {
	if root == nil {
		return nil
	}
	return cascadia.Query(root, sel)
}

// QueryOne compiles selector and returns the first descendant match.
func QueryOne(root *html.Node, selector string) *html.Node {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil
	}
	return queryOne(root, sel)
}

// HiddenInputs collects name/value pairs of hidden inputs below the first
// node matching scope. An empty scope searches the whole document.
func HiddenInputs(doc *html.Node, scope string) map[string]string {
	out := map[string]string{}
	root := doc
	if scope != "" {
		root = QueryOne(doc, scope)
	}
	if root == nil {
		return out
	}
	for _, in := range cascadia.QueryAll(root, hiddenInputSel) {
		name, ok := Attr(in, "name")
		if !ok || name == "" {
			name, _ = Attr(in, "id")
		}
		if name == "" {
			continue
		}
		val, _ := Attr(in, "value")
		out[name] = val
	}
	return out
}

var hiddenInputSel = cascadia.MustCompile(`input[type="hidden"]`)
