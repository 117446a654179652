package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"refresher/internal/gateway"
	"refresher/internal/moderation"
)

// terminal is the host surface of a command: toasts and alerts go to the
// error stream, prompts read lines from the input stream.
type terminal struct {
	out io.Writer
	err io.Writer
	in  *bufio.Reader
}

func newTerminal(out, errw io.Writer, in io.Reader) *terminal {
	return &terminal{out: out, err: errw, in: bufio.NewReader(in)}
}

func (t *terminal) Toast(msg string, isError bool, _ time.Duration) {
	if isError {
		fmt.Fprintf(t.err, "error: %s\n", msg)
		return
	}
	fmt.Fprintln(t.err, msg)
}

func (t *terminal) Alert(msg string) {
	fmt.Fprintf(t.err, "alert: %s\n", msg)
}

func (t *terminal) WriteText(text string) error {
	_, err := fmt.Fprintln(t.out, text)
	return err
}

// readLine prompts and reads one trimmed line. EOF on an empty line
// dismisses the prompt.
func (t *terminal) readLine(prompt string) (string, error) {
	fmt.Fprint(t.err, prompt)
	line, err := t.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		if err == io.EOF {
			return "", moderation.ErrDismissed
		}
		return "", err
	}
	return line, nil
}

// captchaPrompter saves the captcha picture to a file and asks for the code.
type captchaPrompter struct {
	term   *terminal
	client *gateway.Client
	dir    string
}

func (p *captchaPrompter) PromptCaptcha(ctx context.Context, imageURL string) (string, error) {
	img, err := p.client.FetchCaptchaImage(ctx, imageURL)
	if err != nil {
		return "", err
	}
	path, err := saveCaptcha(p.dir, img)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(p.term.err, "captcha saved to %s (%dx%d)\n", path, img.Width, img.Height)
	code, err := p.term.readLine("code: ")
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", moderation.ErrDismissed
	}
	return code, nil
}

func saveCaptcha(dir string, img *gateway.CaptchaImage) (string, error) {
	f, err := os.CreateTemp(dir, "captcha-*."+img.Format)
	if err != nil {
		return "", fmt.Errorf("save captcha: %w", err)
	}
	if _, err := f.Write(img.Data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("save captcha: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("save captcha: %w", err)
	}
	return f.Name(), nil
}

// tooltip collects what the hover controller shows.
type tooltip struct {
	mu       sync.Mutex
	visible  bool
	title    string
	contents string
}

func (t *tooltip) Show()                { t.set(func() { t.visible = true }) }
func (t *tooltip) Hide()                { t.set(func() { t.visible = false }) }
func (t *tooltip) SetTitle(s string)    { t.set(func() { t.title = s }) }
func (t *tooltip) SetContents(s string) { t.set(func() { t.contents = s }) }
func (t *tooltip) MoveTo(int, int)      {}
func (t *tooltip) Size() (int, int)     { return 0, 0 }

func (t *tooltip) set(fn func()) {
	t.mu.Lock()
	fn()
	t.mu.Unlock()
}

func (t *tooltip) snapshot() (title, contents string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title, t.contents
}
