package interfaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/vigil/internal/models"
)

// AutomationFault signals that the underlying browser or page disappeared
// mid-operation. It is distinct from ordinary selector misses and navigation
// timeouts, which are site-content conditions; a fault means the automation
// layer itself broke and the current flow cannot continue.
type AutomationFault struct {
	Op  string
	Err error
}

func (f *AutomationFault) Error() string {
	return fmt.Sprintf("automation fault during %s: %v", f.Op, f.Err)
}

func (f *AutomationFault) Unwrap() error { return f.Err }

// IsAutomationFault reports whether err is (or wraps) an AutomationFault.
func IsAutomationFault(err error) bool {
	var fault *AutomationFault
	return errors.As(err, &fault)
}

// Browser is the owned browser process resource. Opened once at startup and
// released on shutdown; pages are created per scan.
type Browser interface {
	// NewPage opens a fresh page (tab) in the shared browser.
	NewPage(ctx context.Context) (Page, error)
	// Close releases the browser process and every remaining page.
	Close() error
}

// Page exposes the browser-automation primitives the login flow and scan
// orchestrator drive. Implementations convert closed-context errors into
// *AutomationFault so callers branch on a typed condition.
type Page interface {
	// Navigate loads a URL, waiting up to timeout for the load to settle.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitVisible blocks until the selector matches a visible element or the
	// timeout elapses.
	WaitVisible(ctx context.Context, sel models.Selector, timeout time.Duration) error
	// Count returns how many elements the selector currently matches.
	Count(ctx context.Context, sel models.Selector) (int, error)
	// Texts returns the text content of up to max elements matching sel.
	Texts(ctx context.Context, sel models.Selector, max int) ([]string, error)
	// Click clicks the first element matching sel.
	Click(ctx context.Context, sel models.Selector) error
	// TypeHuman types text into the first element matching sel with a
	// per-character cadence supplied by the caller.
	TypeHuman(ctx context.Context, sel models.Selector, text string, perChar func() time.Duration) error
	// PressEnter sends the Enter key to the focused element.
	PressEnter(ctx context.Context) error
	// MouseMove moves the pointer to viewport coordinates.
	MouseMove(ctx context.Context, x, y float64) error
	// ScrollBy scrolls the page vertically by the given pixel delta.
	ScrollBy(ctx context.Context, deltaY int) error
	// Title returns the current document title.
	Title(ctx context.Context) (string, error)
	// URL returns the current location.
	URL(ctx context.Context) (string, error)
	// HTML returns the full serialized document.
	HTML(ctx context.Context) (string, error)
	// Cookies snapshots the context's cookie jar.
	Cookies(ctx context.Context) ([]models.Cookie, error)
	// SetCookies applies cookies onto the context.
	SetCookies(ctx context.Context, cookies []models.Cookie) error
	// StorageState reads the named storage area ("localStorage" or
	// "sessionStorage") as key/value pairs.
	StorageState(ctx context.Context, area string) (map[string]string, error)
	// SetStorageState writes key/value pairs into the named storage area.
	SetStorageState(ctx context.Context, area string, values map[string]string) error
	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the page.
	Close() error
}
