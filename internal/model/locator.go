package model

import (
	"net/url"
	"strings"
)

// SubType represents the gallery variants served by the site.
type SubType uint8

const (
	SubTypeMajor SubType = iota
	SubTypeMinor
	SubTypeMini
)

// SubTypeFromLink derives the gallery variant from an originating URL.
func SubTypeFromLink(link string) SubType {
	l := strings.ToLower(link)
	switch {
	case strings.Contains(l, "/mini/"):
		return SubTypeMini
	case strings.Contains(l, "/mgallery/"):
		return SubTypeMinor
	default:
		return SubTypeMajor
	}
}

// PathSegment returns the URL path prefix used in front of "board/".
func (s SubType) PathSegment() string {
	switch s {
	case SubTypeMini:
		return "mini/"
	case SubTypeMinor:
		return "mgallery/"
	default:
		return ""
	}
}

// TypeName returns the `_GALLTYPE_` form value.
func (s SubType) TypeName() string {
	switch s {
	case SubTypeMini:
		return "MI"
	case SubTypeMinor:
		return "M"
	default:
		return "G"
	}
}

func (s SubType) String() string {
	switch s {
	case SubTypeMini:
		return "mini"
	case SubTypeMinor:
		return "minor"
	default:
		return "major"
	}
}

// GalleryLocator identifies one post. ID and Title are the only fields
// that change while a session is open.
type GalleryLocator struct {
	Gallery   string `json:"gallery"`
	ID        string `json:"id"`
	Link      string `json:"link"`
	CommentID string `json:"commentId,omitempty"`
	CommentNo string `json:"commentNo,omitempty"`
	Title     string `json:"title,omitempty"`
	Notice    bool   `json:"notice"`
	Recommend bool   `json:"recommend"`
}

// Key is the cache key for the post addressed by the locator.
func (l GalleryLocator) Key() string {
	return l.Gallery + l.ID
}

// SubType derives the gallery variant from Link.
func (l GalleryLocator) SubType() SubType {
	return SubTypeFromLink(l.Link)
}

// WithID returns a copy pointing at another post of the same gallery with
// the link's `no` parameter rewritten.
func (l GalleryLocator) WithID(id string) GalleryLocator {
	l.ID = id
	l.Link = setQueryParam(l.Link, "no", id)
	l.CommentID = ""
	l.CommentNo = ""
	return l
}

func setQueryParam(link, key, value string) string {
	if link == "" {
		return link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
