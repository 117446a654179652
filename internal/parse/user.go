package parse

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"refresher/internal/model"
)

var (
	writerIconSel = cascadia.MustCompile(".writer_nikcon img")
	gallogIconSel = cascadia.MustCompile("a.writer_nikcon img")
)

// User reads the writer attributes of a .gall_writer style element. A nil
// node yields the zero user.
func User(n *html.Node) model.User {
	var u model.User
	if n == nil {
		return u
	}
	u.Nick, _ = Attr(n, "data-nick")
	u.UID, _ = Attr(n, "data-uid")
	u.IP, _ = Attr(n, "data-ip")
	if img := queryOne(n, writerIconSel); img != nil {
		u.Icon, _ = Attr(img, "src")
	}
	return u
}

// GallogIcon returns the icon source of a comment's gallog_icon markup.
func GallogIcon(markup string) string {
	if markup == "" {
		return ""
	}
	root, err := Fragment(markup)
	if err != nil {
		return ""
	}
	src, _ := Attr(queryOne(root, gallogIconSel), "src")
	return src
}
