package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"refresher/internal/model"
	"refresher/internal/parse"
)

// FetchPost downloads and parses the post page addressed by loc. noCache
// asks intermediaries to revalidate. Concurrent calls for the same post
// share one request.
func (c *Client) FetchPost(ctx context.Context, loc model.GalleryLocator, noCache bool) (*model.PostRecord, error) {
	key := fmt.Sprintf("%s|%t", loc.Key(), noCache)
	ch := c.posts.DoChan(key, func() (any, error) {
		return c.fetchPost(ctx, loc, noCache)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch post: %w", ErrCancelled)
	case res := <-ch:
		if res.Err != nil {
			// A shared call cancelled by another caller's context is
			// retried with ours.
			if res.Shared && errors.Is(res.Err, ErrCancelled) && ctx.Err() == nil {
				return c.fetchPost(ctx, loc, noCache)
			}
			return nil, res.Err
		}
		return res.Val.(*model.PostRecord), nil
	}
}

func (c *Client) fetchPost(ctx context.Context, loc model.GalleryLocator, noCache bool) (*model.PostRecord, error) {
	h := http.Header{}
	if noCache {
		h.Set("Cache-Control", "no-cache")
		h.Set("Pragma", "no-cache")
	}
	body, err := c.get(ctx, "fetch post", c.ViewURL(loc), h)
	if err != nil {
		return nil, err
	}
	p, err := parse.Post(loc.ID, body)
	if err != nil {
		return nil, fmt.Errorf("fetch post: parse: %w", err)
	}
	c.log.Debug().Str("gallery", loc.Gallery).Str("id", loc.ID).Msg("post fetched")
	return p, nil
}

// FetchList downloads the listing page of loc's gallery. page starts at 1.
func (c *Client) FetchList(ctx context.Context, loc model.GalleryLocator, page int) (body []byte, pageURL string, err error) {
	pageURL = c.ListURL(loc)
	if page > 1 {
		pageURL += fmt.Sprintf("&page=%d", page)
	}
	body, err = c.get(ctx, "fetch list", pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	return body, pageURL, nil
}
