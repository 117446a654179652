// Package parse turns fetched forum pages into records.
package parse

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"refresher/internal/model"
)

var (
	headerSel       = cascadia.MustCompile(".view_content_wrap span.title_headtext")
	titleSel        = cascadia.MustCompile(".view_content_wrap span.title_subject")
	dateSel         = cascadia.MustCompile(".view_content_wrap div.fl > span.gall_date")
	expireSel       = cascadia.MustCompile(".view_content_wrap div.fl > span.mini_autodeltime > div.pop_tipbox > div")
	viewsSel        = cascadia.MustCompile(".view_content_wrap div.fr > span.gall_count")
	upvotesSel      = cascadia.MustCompile(".view_content_wrap div.fr > span.gall_reply_num")
	fixedUpvotesSel = cascadia.MustCompile(".view_content_wrap .btn_recommend_box .sup_num .smallnum")
	downvotesSel    = cascadia.MustCompile("div.btn_recommend_box .down_num")
	contentSel      = cascadia.MustCompile(".view_content_wrap > div > div.inner.clear > div.writing_view_box")
	writeDivSel     = cascadia.MustCompile(".write_div")
	noticeSel       = cascadia.MustCompile(".user_control .option_box li:first-child")
	captchaSel      = cascadia.MustCompile(".recommend_kapcode")
	cmtCaptchaSel   = cascadia.MustCompile(`.cmt_write_box input[name="comment_code"]`)
	downvoteIconSel = cascadia.MustCompile(".icon_recom_down")
	writerSel       = cascadia.MustCompile("div.view_content_wrap > header > div > div.gall_writer")

	seedIDRe = regexp.MustCompile(`\$\(document\)\.data\('comment_id',\s*'([^']*)'\)`)
	seedNoRe = regexp.MustCompile(`\$\(document\)\.data\('comment_no',\s*'([^']*)'\)`)

	expireSuffixRe = regexp.MustCompile(`\s자동\s삭제`)
	viewsPrefixRe  = regexp.MustCompile(`조회\s`)
	upPrefixRe     = regexp.MustCompile(`추천\s`)
)

// NoticeRegisterLabel is the admin menu label shown on posts that are not
// notices yet.
const NoticeRegisterLabel = "공지 등록"

// Post extracts a PostRecord from a post page body. Missing fields are
// left nil; only unreadable input is an error.
func Post(id string, body []byte) (*model.PostRecord, error) {
	doc, err := Document(body)
	if err != nil {
		return nil, err
	}

	p := &model.PostRecord{ID: id, Document: doc}
	p.Header = inner(doc, headerSel, func(s string) string {
		return strings.NewReplacer("[", "", "]", "").Replace(s)
	})
	p.Title = inner(doc, titleSel, nil)
	p.Date = inner(doc, dateSel, nil)
	p.Expire = inner(doc, expireSel, func(s string) string {
		return expireSuffixRe.ReplaceAllString(s, "")
	})
	p.Views = inner(doc, viewsSel, func(s string) string {
		return viewsPrefixRe.ReplaceAllString(s, "")
	})
	p.Upvotes = inner(doc, upvotesSel, func(s string) string {
		return upPrefixRe.ReplaceAllString(s, "")
	})
	p.FixedUpvotes = inner(doc, fixedUpvotesSel, nil)
	p.Downvotes = inner(doc, downvotesSel, nil)

	if content := queryOne(doc, contentSel); content != nil {
		if wd := queryOne(content, writeDivSel); wd != nil {
			loosenWidth(wd)
		}
		p.Contents = model.Str(InnerHTML(content))
	}

	p.CommentID, p.CommentNo = CommentSeed(body)

	if n := queryOne(doc, noticeSel); n != nil {
		p.IsNotice = InnerHTML(n) != NoticeRegisterLabel
	}
	p.RequireCaptcha = queryOne(doc, captchaSel) != nil
	p.RequireCommentCaptcha = queryOne(doc, cmtCaptchaSel) != nil
	p.DisabledDownvote = queryOne(doc, downvoteIconSel) == nil

	if w := queryOne(doc, writerSel); w != nil {
		u := User(w)
		p.User = &u
	}
	return p, nil
}

// CommentSeed finds the comment thread identifiers a page script assigns
// with $(document).data(...). Either may be empty.
func CommentSeed(body []byte) (commentID, commentNo string) {
	if m := seedIDRe.FindSubmatch(body); m != nil {
		commentID = string(m[1])
	}
	if m := seedNoRe.FindSubmatch(body); m != nil {
		commentNo = string(m[1])
	}
	return commentID, commentNo
}

func inner(root *html.Node, sel cascadia.Sel, clean func(string) string) *string {
	n := queryOne(root, sel)
	if n == nil {
		return nil
	}
	s := InnerHTML(n)
	if clean != nil {
		s = clean(s)
	}
	return &s
}
