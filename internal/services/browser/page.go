package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// Page is one tab in the shared browser, implementing interfaces.Page.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger arbor.ILogger
	mu     sync.Mutex
	closed bool
}

// fault returns a typed automation fault when the page context is gone.
func (p *Page) fault(op string) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed || p.ctx.Err() != nil {
		return &interfaces.AutomationFault{Op: op, Err: context.Canceled}
	}
	return nil
}

// classify converts closed-context errors into automation faults while
// leaving operation-scoped timeouts as ordinary errors.
func (p *Page) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && p.ctx.Err() == nil {
		return fmt.Errorf("%s timed out: %w", op, err)
	}
	if p.ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return &interfaces.AutomationFault{Op: op, Err: err}
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// run executes chromedp actions against the page with an optional timeout.
func (p *Page) run(ctx context.Context, op string, timeout time.Duration, actions ...chromedp.Action) error {
	if err := p.fault(op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx := p.ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(p.ctx, timeout)
	}
	defer cancel()

	return p.classify(op, chromedp.Run(runCtx, actions...))
}

// jsString safely embeds a Go string as a JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return p.run(ctx, "navigate", timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *Page) WaitVisible(ctx context.Context, sel models.Selector, timeout time.Duration) error {
	if sel.Kind == models.SelectorText {
		deadline := time.Now().Add(timeout)
		for {
			count, err := p.Count(ctx, sel)
			if err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("wait_visible timed out: %w", context.DeadlineExceeded)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(250 * time.Millisecond):
			}
		}
	}
	return p.run(ctx, "wait_visible", timeout,
		chromedp.WaitVisible(sel.Query, chromedp.ByQuery),
	)
}

func (p *Page) Count(ctx context.Context, sel models.Selector) (int, error) {
	if sel.Kind == models.SelectorText {
		html, err := p.HTML(ctx)
		if err != nil {
			return 0, err
		}
		if strings.Contains(html, sel.Query) {
			return 1, nil
		}
		return 0, nil
	}

	var count int
	js := fmt.Sprintf("document.querySelectorAll(%s).length", jsString(sel.Query))
	if err := p.run(ctx, "count", 10*time.Second, chromedp.Evaluate(js, &count)); err != nil {
		return 0, err
	}
	return count, nil
}

func (p *Page) Texts(ctx context.Context, sel models.Selector, max int) ([]string, error) {
	if sel.Kind == models.SelectorText {
		count, err := p.Count(ctx, sel)
		if err != nil || count == 0 {
			return nil, err
		}
		return []string{sel.Query}, nil
	}

	var texts []string
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).slice(0, %d).map(e => (e.innerText || '').trim()).filter(t => t.length > 0)`,
		jsString(sel.Query), max,
	)
	if err := p.run(ctx, "texts", 10*time.Second, chromedp.Evaluate(js, &texts)); err != nil {
		return nil, err
	}
	return texts, nil
}

func (p *Page) Click(ctx context.Context, sel models.Selector) error {
	if sel.Kind == models.SelectorText {
		// DOM.performSearch matches plain text
		return p.run(ctx, "click", 10*time.Second, chromedp.Click(sel.Query, chromedp.BySearch))
	}
	return p.run(ctx, "click", 10*time.Second, chromedp.Click(sel.Query, chromedp.ByQuery))
}

func (p *Page) TypeHuman(ctx context.Context, sel models.Selector, text string, perChar func() time.Duration) error {
	actions := []chromedp.Action{
		chromedp.Click(sel.Query, chromedp.ByQuery),
		chromedp.SetValue(sel.Query, "", chromedp.ByQuery),
	}
	for _, ch := range text {
		actions = append(actions,
			chromedp.SendKeys(sel.Query, string(ch), chromedp.ByQuery),
			chromedp.Sleep(perChar()),
		)
	}
	return p.run(ctx, "type", 60*time.Second, actions...)
}

func (p *Page) PressEnter(ctx context.Context) error {
	return p.run(ctx, "press_enter", 10*time.Second, chromedp.KeyEvent(kb.Enter))
}

func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	return p.run(ctx, "mouse_move", 5*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func (p *Page) ScrollBy(ctx context.Context, deltaY int) error {
	js := fmt.Sprintf("window.scrollBy(0, %d)", deltaY)
	return p.run(ctx, "scroll", 5*time.Second, chromedp.Evaluate(js, nil))
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, "title", 10*time.Second, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var location string
	if err := p.run(ctx, "url", 10*time.Second, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, "html", 15*time.Second, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *Page) Cookies(ctx context.Context) ([]models.Cookie, error) {
	var cookies []models.Cookie
	err := p.run(ctx, "cookies", 10*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		cookies = make([]models.Cookie, 0, len(raw))
		for _, c := range raw {
			cookies = append(cookies, models.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
				SameSite: string(c.SameSite),
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return cookies, nil
}

func (p *Page) SetCookies(ctx context.Context, cookies []models.Cookie) error {
	return p.run(ctx, "set_cookies", 10*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			setter := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				setter = setter.WithExpires(&expires)
			}
			if c.SameSite != "" {
				setter = setter.WithSameSite(network.CookieSameSite(c.SameSite))
			}
			if err := setter.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

func storageAreaJS(area string) (string, error) {
	switch area {
	case "localStorage", "sessionStorage":
		return "window." + area, nil
	default:
		return "", fmt.Errorf("unknown storage area: %s", area)
	}
}

func (p *Page) StorageState(ctx context.Context, area string) (map[string]string, error) {
	ref, err := storageAreaJS(area)
	if err != nil {
		return nil, err
	}

	var values map[string]string
	js := fmt.Sprintf(
		`(() => { const out = {}; const s = %s; for (let i = 0; i < s.length; i++) { const k = s.key(i); out[k] = s.getItem(k); } return out; })()`,
		ref,
	)
	if err := p.run(ctx, "storage_state", 10*time.Second, chromedp.Evaluate(js, &values)); err != nil {
		return nil, err
	}
	return values, nil
}

func (p *Page) SetStorageState(ctx context.Context, area string, values map[string]string) error {
	ref, err := storageAreaJS(area)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode storage values: %w", err)
	}
	js := fmt.Sprintf(
		`(() => { const data = %s; const s = %s; for (const [k, v] of Object.entries(data)) { s.setItem(k, v); } })()`,
		string(encoded), ref,
	)
	return p.run(ctx, "set_storage_state", 10*time.Second, chromedp.Evaluate(js, nil))
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, "screenshot", 15*time.Second, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close releases the tab. Safe to call more than once.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	return nil
}
