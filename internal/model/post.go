package model

import "golang.org/x/net/html"

// User is the author identity shown next to posts and comments.
type User struct {
	Nick string `json:"nick"`
	UID  string `json:"uid,omitempty"`
	IP   string `json:"ip,omitempty"`
	Icon string `json:"icon,omitempty"`
}

// IsZero reports whether no identity field was found.
func (u User) IsZero() bool {
	return u.Nick == "" && u.UID == "" && u.IP == "" && u.Icon == ""
}

// PostRecord is one parsed post page. Optional fields are nil when the
// page did not carry them.
type PostRecord struct {
	ID           string
	Header       *string
	Title        *string
	Date         *string
	Expire       *string
	User         *User
	Views        *string
	Upvotes      *string
	FixedUpvotes *string
	Downvotes    *string
	Contents     *string

	CommentID string
	CommentNo string

	IsNotice              bool
	RequireCaptcha        bool
	RequireCommentCaptcha bool
	DisabledDownvote      bool

	// Document is the parsed page, kept for the comment form's hidden fields.
	Document *html.Node
}

// TitleOr returns the title or fallback when absent.
func (p *PostRecord) TitleOr(fallback string) string {
	if p == nil || p.Title == nil {
		return fallback
	}
	return *p.Title
}

// ContentsOr returns the contents fragment or fallback when absent.
func (p *PostRecord) ContentsOr(fallback string) string {
	if p == nil || p.Contents == nil {
		return fallback
	}
	return *p.Contents
}

// HasCommentSeed reports whether both seed thread identifiers were found.
func (p *PostRecord) HasCommentSeed() bool {
	return p != nil && p.CommentID != "" && p.CommentNo != ""
}

// Str returns a pointer to s. Used by the parser and tests.
func Str(s string) *string {
	return &s
}

// Deref returns the pointed value or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
