package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"refresher/internal/model"
)

// Vote casts an up or down vote. The "already voted" cookie is written
// before the request so the server's double vote check sees it.
func (c *Client) Vote(ctx context.Context, loc model.GalleryLocator, up bool, code string) (VoteResult, error) {
	const op = "vote"
	if err := requireLink(op, loc); err != nil {
		return VoteResult{}, err
	}
	name := loc.Gallery + loc.ID + "_Firstcheck"
	mode := "U"
	if !up {
		name += "_down"
		mode = "D"
	}
	c.setCookie(&http.Cookie{
		Name:    name,
		Value:   "Y",
		Path:    "/",
		Expires: c.clock.Now().Add(voteMarkerTTL),
	})

	if code == "" {
		code = "undefined"
	}
	params := url.Values{}
	params.Set("ci_t", c.CSRFToken())
	params.Set("id", loc.Gallery)
	params.Set("no", loc.ID)
	params.Set("mode", mode)
	params.Set("code_recommend", code)
	params.Set("_GALLTYPE_", loc.SubType().TypeName())
	params.Set("link_id", loc.Gallery)

	raw, err := c.postForm(ctx, op, c.resolve(c.endpoints.Select(ActionVote, loc.Link)), loc.Link, params)
	if err != nil {
		return VoteResult{}, err
	}
	return ParseVote(raw), nil
}

// DeletePost removes the post as a gallery manager.
func (c *Client) DeletePost(ctx context.Context, loc model.GalleryLocator) (Response, error) {
	const op = "delete post"
	if err := requireLink(op, loc); err != nil {
		return Response{}, err
	}
	params := c.moderationParams(loc)
	params.Set("nos[]", loc.ID)
	return c.moderate(ctx, op, ActionDeletePost, loc, params)
}

// BlockRequest carries the options of a block action.
type BlockRequest struct {
	Hours      int
	Reason     int
	ReasonText string
	Delete     bool
}

// Block bans the post's writer and optionally deletes the post.
func (c *Client) Block(ctx context.Context, loc model.GalleryLocator, req BlockRequest) (Response, error) {
	const op = "block"
	if err := requireLink(op, loc); err != nil {
		return Response{}, err
	}
	del := "0"
	if req.Delete {
		del = "1"
	}
	params := c.moderationParams(loc)
	params.Set("nos[]", loc.ID)
	params.Set("parent", "")
	params.Set("avoid_hour", strconv.Itoa(req.Hours))
	params.Set("avoid_reason", strconv.Itoa(req.Reason))
	params.Set("avoid_reason_txt", req.ReasonText)
	params.Set("del_chk", del)
	return c.moderate(ctx, op, ActionBlock, loc, params)
}

// SetNotice promotes (set) or demotes the post as a notice.
func (c *Client) SetNotice(ctx context.Context, loc model.GalleryLocator, set bool) (Response, error) {
	const op = "set notice"
	if err := requireLink(op, loc); err != nil {
		return Response{}, err
	}
	params := c.moderationParams(loc)
	params.Set("mode", setMode(set))
	params.Set("no", loc.ID)
	return c.moderate(ctx, op, ActionSetNotice, loc, params)
}

// SetRecommend adds the post to (set) or removes it from the recommended list.
func (c *Client) SetRecommend(ctx context.Context, loc model.GalleryLocator, set bool) (Response, error) {
	const op = "set recommend"
	if err := requireLink(op, loc); err != nil {
		return Response{}, err
	}
	params := c.moderationParams(loc)
	params.Set("mode", setMode(set))
	params.Set("nos[]", loc.ID)
	return c.moderate(ctx, op, ActionSetRecommend, loc, params)
}

func setMode(set bool) string {
	if set {
		return "SET"
	}
	return "REL"
}

func (c *Client) moderate(ctx context.Context, op string, action Action, loc model.GalleryLocator, params url.Values) (Response, error) {
	raw, err := c.postForm(ctx, op, c.resolve(c.endpoints.Select(action, loc.Link)), c.ListURL(loc), params)
	if err != nil {
		return Response{}, err
	}
	r := DecodeResponse(raw)
	c.log.Debug().Str("action", action.String()).Str("shape", r.Shape.String()).Msg("moderation response")
	return r, nil
}

// DeleteComment deletes commentID. The admin path is used when asAdmin is
// set and no password is given. Any failure before a response arrives
// yields ok == false instead of an error.
func (c *Client) DeleteComment(ctx context.Context, loc model.GalleryLocator, commentID string, asAdmin bool, password string) (raw string, ok bool) {
	const op = "delete comment"
	if loc.Link == "" {
		return "", false
	}
	params := c.moderationParams(loc)
	target := c.resolve(pathCommentRemove)
	if asAdmin && password == "" {
		params.Set("pno", loc.ID)
		params.Set("cmt_nos[]", commentID)
		target = c.resolve(c.endpoints.Select(ActionDeleteComment, loc.Link))
	} else {
		params.Set("mode", "del")
		params.Set("re_no", commentID)
		if password != "" {
			params.Set("re_password", password)
			params.Set("g-recaptcha-response", password)
		}
	}
	raw, err := c.postForm(ctx, op, target, c.ViewURL(loc), params)
	if err != nil {
		c.log.Debug().Err(err).Str("comment", commentID).Msg("comment delete failed")
		return "", false
	}
	return raw, true
}

// RequestCaptcha opens a captcha session of kind ("recommend", "comment")
// and returns the image URL to show.
func (c *Client) RequestCaptcha(ctx context.Context, loc model.GalleryLocator, kind string) (string, error) {
	const op = "request captcha"
	if err := requireLink(op, loc); err != nil {
		return "", err
	}
	typeName := loc.SubType().TypeName()
	params := url.Values{}
	params.Set("ci_t", c.CSRFToken())
	params.Set("gall_id", loc.Gallery)
	params.Set("kcaptcha_type", kind)
	params.Set("_GALLTYPE_", typeName)
	if _, err := c.postForm(ctx, op, c.resolve(c.endpoints.Select(ActionCaptcha, loc.Link)), c.ListURL(loc), params); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("gall_id", loc.Gallery)
	q.Set("kcaptcha_type", kind)
	q.Set("time", strconv.FormatInt(c.clock.Now().UnixMilli(), 10))
	q.Set("_GALLTYPE_", typeName)
	return c.resolve(pathCaptchaImage) + "?" + q.Encode(), nil
}

// CommentInput is a text comment to submit.
type CommentInput struct {
	Name     string
	Password string
	Memo     string
	ReplyTo  string
	Code     string
}

// WriteComment submits a text comment. hidden carries the hidden fields of
// the post page's comment form, as read by parse.HiddenInputs.
func (c *Client) WriteComment(ctx context.Context, loc model.GalleryLocator, hidden map[string]string, in CommentInput) (Response, error) {
	const op = "write comment"
	if err := requireLink(op, loc); err != nil {
		return Response{}, err
	}
	if in.Memo == "" {
		return Response{}, fmt.Errorf("%s: empty memo", op)
	}
	params := url.Values{}
	for k, v := range hidden {
		params.Set(k, v)
	}
	params.Set("ci_t", c.CSRFToken())
	params.Set("id", loc.Gallery)
	params.Set("no", loc.ID)
	params.Set("memo", in.Memo)
	params.Set("_GALLTYPE_", loc.SubType().TypeName())
	if in.Name != "" {
		params.Set("name", in.Name)
	}
	if in.Password != "" {
		params.Set("password", in.Password)
	}
	if in.ReplyTo != "" {
		params.Set("c_no", in.ReplyTo)
	}
	if in.Code != "" {
		params.Set("code", in.Code)
	}
	raw, err := c.postForm(ctx, op, c.resolve(pathCommentWrite), c.ViewURL(loc), params)
	if err != nil {
		return Response{}, err
	}
	return DecodeResponse(raw), nil
}
