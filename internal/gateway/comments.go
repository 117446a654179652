package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"refresher/internal/model"
)

// FlexString accepts a JSON string, number, bool or null.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(b)
	return nil
}

// FlexInt accepts a JSON number, a numeric string or null.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	v := strings.TrimSpace(string(s))
	if v == "" {
		*n = 0
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		i = int(f)
	}
	*n = FlexInt(i)
	return nil
}

// RawComment is one entry of the comment payload as sent by the server.
type RawComment struct {
	No         FlexString  `json:"no"`
	Parent     FlexString  `json:"parent"`
	Depth      FlexInt     `json:"depth"`
	Memo       string      `json:"memo"`
	Name       string      `json:"name"`
	UserID     *FlexString `json:"user_id"`
	IP         *FlexString `json:"ip"`
	NickType   FlexString  `json:"nicktype"`
	RegDate    string      `json:"reg_date"`
	GallogIcon string      `json:"gallog_icon"`
	Del        FlexString  `json:"del_yn"`
}

// CommentPayload is the comment endpoint response.
type CommentPayload struct {
	Comments   []RawComment `json:"comments"`
	TotalCount FlexInt      `json:"total_cnt"`
}

// DecodeComments decodes a comment payload.
func DecodeComments(body []byte) (*CommentPayload, error) {
	var p CommentPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &p, nil
}

// nonceForgetter is implemented by nonce sources that memoize.
type nonceForgetter interface {
	Forget(loc model.GalleryLocator)
}

// FetchComments requests the first page of the post's comment thread. The
// seed thread ids of an issue-zoom post override the post's own. A reply
// that does not decode usually means the nonce went stale, so a memoized
// nonce is dropped and the request is sent once more.
func (c *Client) FetchComments(ctx context.Context, loc model.GalleryLocator) (*CommentPayload, error) {
	const op = "fetch comments"
	if err := requireLink(op, loc); err != nil {
		return nil, err
	}
	p, err := c.fetchComments(ctx, op, loc)
	if !errors.Is(err, ErrDecode) {
		return p, err
	}
	f, ok := c.nonce.(nonceForgetter)
	if !ok {
		return nil, err
	}
	c.log.Debug().Str("gallery", loc.Gallery).Str("id", loc.ID).Msg("comment nonce rejected, refetching")
	f.Forget(loc)
	return c.fetchComments(ctx, op, loc)
}

func (c *Client) fetchComments(ctx context.Context, op string, loc model.GalleryLocator) (*CommentPayload, error) {
	nonce, err := c.nonce.Nonce(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: nonce: %w", op, err)
	}

	cmtID, cmtNo := loc.CommentID, loc.CommentNo
	if cmtID == "" && cmtNo == "" {
		cmtID, cmtNo = loc.Gallery, loc.ID
	}
	params := url.Values{}
	params.Set("id", loc.Gallery)
	params.Set("no", loc.ID)
	params.Set("cmt_id", cmtID)
	params.Set("cmt_no", cmtNo)
	params.Set("e_s_n_o", nonce)
	params.Set("comment_page", "1")
	params.Set("_GALLTYPE_", loc.SubType().TypeName())

	raw, err := c.postForm(ctx, op, c.resolve(pathComments), c.ViewURL(loc), params)
	if err != nil {
		return nil, err
	}
	return DecodeComments([]byte(raw))
}

// Thread converts the payload into the model form. Optional ids stay
// empty when the server sent null.
func (p *CommentPayload) Thread() *model.CommentThread {
	t := &model.CommentThread{TotalCount: int(p.TotalCount)}
	if p.Comments == nil {
		return t
	}
	t.Comments = make([]model.CommentRecord, 0, len(p.Comments))
	for _, rc := range p.Comments {
		rec := model.CommentRecord{
			No:         string(rc.No),
			Parent:     string(rc.Parent),
			Depth:      int(rc.Depth),
			Memo:       rc.Memo,
			Name:       rc.Name,
			NickType:   string(rc.NickType),
			RegDate:    rc.RegDate,
			GallogIcon: rc.GallogIcon,
			Deleted:    strings.EqualFold(string(rc.Del), "Y"),
		}
		if rc.UserID != nil {
			rec.UserID = string(*rc.UserID)
		}
		if rc.IP != nil {
			rec.IP = string(*rc.IP)
		}
		t.Comments = append(t.Comments, rec)
	}
	return t
}
