package gateway

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// CaptchaImage is a downloaded captcha picture.
type CaptchaImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// FetchCaptchaImage downloads the image at imageURL, sending the session
// cookies, and reads its dimensions.
func (c *Client) FetchCaptchaImage(ctx context.Context, imageURL string) (*CaptchaImage, error) {
	const op = "fetch captcha image"
	h := http.Header{}
	h.Set("Cache-Control", "no-store")
	h.Set("Referer", c.base.String())
	b, err := c.get(ctx, op, imageURL, h)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &CaptchaImage{Data: b, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
