package model

// NickTypeCommentBoy marks the non-user "comment boy" rows the site injects
// into threads.
const NickTypeCommentBoy = "COMMENT_BOY"

// CommentRecord is one comment of a thread.
type CommentRecord struct {
	No         string
	Parent     string
	Depth      int
	Memo       string
	Name       string
	UserID     string
	IP         string
	NickType   string
	RegDate    string
	GallogIcon string
	Deleted    bool

	User    User
	DcconID string
}

// CommentThread is an ordered thread plus the server's total count.
type CommentThread struct {
	Comments   []CommentRecord
	TotalCount int
}

// Clone returns a copy whose comment slice can be modified freely.
func (t *CommentThread) Clone() *CommentThread {
	if t == nil {
		return nil
	}
	out := &CommentThread{TotalCount: t.TotalCount}
	if t.Comments != nil {
		out.Comments = append([]CommentRecord(nil), t.Comments...)
	}
	return out
}

// ThreadCount returns the number of top level comments.
func (t *CommentThread) ThreadCount() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, c := range t.Comments {
		if c.Depth == 0 {
			n++
		}
	}
	return n
}
