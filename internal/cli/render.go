package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"refresher/internal/frame"
	"refresher/internal/model"
)

const dateLayout = "2006-01-02 15:04"

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// markdown converts a post fragment. Relative links are resolved against
// domain. Fragments the converter rejects are printed as they are.
func markdown(fragment, domain string) string {
	out, err := mdConverter.ConvertString(fragment, converter.WithDomain(domain))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(out)
}

func userLine(u *model.User) string {
	if u == nil || u.IsZero() {
		return "unknown"
	}
	switch {
	case u.UID != "":
		return fmt.Sprintf("%s (%s)", u.Nick, u.UID)
	case u.IP != "":
		return fmt.Sprintf("%s (%s)", u.Nick, u.IP)
	default:
		return u.Nick
	}
}

func printError(w io.Writer, e *frame.Error) {
	fmt.Fprintf(w, "%s: %v\n", e.Title, e.Detail)
}

func printPost(w io.Writer, v frame.View, domain string, raw bool) {
	if v.Error != nil {
		printError(w, v.Error)
		return
	}
	fmt.Fprintf(w, "# %s\n", v.Title)

	meta := []string{userLine(v.Data.User)}
	if !v.Data.Date.IsZero() {
		meta = append(meta, v.Data.Date.Format(dateLayout))
	}
	if v.Data.Views != "" {
		meta = append(meta, v.Data.Views)
	}
	votes := "+" + v.Data.Upvotes
	if v.Data.FixedUpvotes != "" {
		votes += " (fixed " + v.Data.FixedUpvotes + ")"
	}
	if !v.Data.DisabledDownvote {
		votes += " / -" + v.Data.Downvotes
	}
	meta = append(meta, votes)
	fmt.Fprintln(w, strings.Join(meta, " | "))
	if v.Data.Expire != "" {
		fmt.Fprintf(w, "expires %s\n", v.Data.Expire)
	}
	fmt.Fprintln(w)
	if raw {
		fmt.Fprintln(w, v.Contents)
		return
	}
	fmt.Fprintln(w, markdown(v.Contents, domain))
}

func printComments(w io.Writer, v frame.View, domain string) {
	if v.Error != nil {
		printError(w, v.Error)
		return
	}
	fmt.Fprintf(w, "## %s (%s)\n", v.Title, v.Subtitle)
	if v.Data.Comments == nil {
		return
	}
	for _, c := range v.Data.Comments.Comments {
		indent := strings.Repeat("  ", c.Depth)
		body := markdown(c.Memo, domain)
		switch {
		case c.Deleted:
			body = "(deleted)"
		case c.DcconID != "":
			body = "[dccon " + c.DcconID + "]"
		}
		fmt.Fprintf(w, "%s- %s: %s", indent, userLine(&c.User), body)
		if c.RegDate != "" {
			fmt.Fprintf(w, " [%s]", c.RegDate)
		}
		fmt.Fprintln(w)
	}
}
