// -----------------------------------------------------------------------
// Behavioral Pacing - randomized delays and interaction sequences between
// automation actions. Purely advisory: nothing here feeds control flow
// beyond "did a banner get dismissed".
// -----------------------------------------------------------------------

package pacing

import (
	"context"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// cookieBannerSelectors are the consent-button candidates tried in order.
var cookieBannerSelectors = models.ParseSelectors([]string{
	`#onetrust-accept-btn-handler`,
	`#accept-cookies`,
	`.accept-cookies`,
	`.cookie-accept`,
	`[data-action="accept"]`,
})

// Service produces randomized wait intervals and simulated interactions.
type Service struct {
	config common.PacingConfig
	logger arbor.ILogger
}

// NewService creates a new pacing service
func NewService(config common.PacingConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// Between draws a duration uniformly from [min, max].
func (s *Service) Between(min, max time.Duration) time.Duration {
	if s.config.Fast {
		return 0
	}
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// Sleep waits a random duration in [min, max], honouring cancellation.
func (s *Service) Sleep(ctx context.Context, min, max time.Duration) error {
	d := s.Between(min, max)
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// TypingDelay is the per-keystroke cadence (50-150ms).
func (s *Service) TypingDelay() time.Duration {
	return s.Between(50*time.Millisecond, 150*time.Millisecond)
}

// SettleDelay simulates waiting for a page to settle after load (2-4s).
func (s *Service) SettleDelay(ctx context.Context) error {
	return s.Sleep(ctx, 2*time.Second, 4*time.Second)
}

// ThinkDelay simulates human decision time (1-2.5s).
func (s *Service) ThinkDelay(ctx context.Context) error {
	return s.Sleep(ctx, time.Second, 2500*time.Millisecond)
}

// ReadDelay simulates reading page content (3-6s).
func (s *Service) ReadDelay(ctx context.Context) error {
	return s.Sleep(ctx, 3*time.Second, 6*time.Second)
}

// InterTargetDelay is the pause between independent target scans in a batch.
// Minutes-scale: rapid sequential country checks are a bot signature.
func (s *Service) InterTargetDelay() time.Duration {
	return s.Between(s.config.InterTargetMin, s.config.InterTargetMax)
}

// ScanInterval is the randomized period between scheduled scan rounds, so
// periodic scanning doesn't tick at a fixed robotic cadence.
func (s *Service) ScanInterval() time.Duration {
	return s.Between(s.config.ScanJitterMin, s.config.ScanJitterMax)
}

// DismissCookieBanner clicks the first matching consent button, if any.
// Returns whether a banner was dismissed.
func (s *Service) DismissCookieBanner(ctx context.Context, page interfaces.Page) bool {
	for _, sel := range cookieBannerSelectors {
		count, err := page.Count(ctx, sel)
		if err != nil || count == 0 {
			continue
		}
		if err := s.ThinkDelay(ctx); err != nil {
			return false
		}
		if err := page.Click(ctx, sel); err != nil {
			s.logger.Debug().Err(err).Str("selector", sel.Query).Msg("Cookie banner click failed")
			continue
		}
		s.logger.Debug().Str("selector", sel.Query).Msg("Cookie banner dismissed")
		_ = s.Sleep(ctx, 500*time.Millisecond, time.Second)
		return true
	}
	return false
}

// MoveMouse drifts the pointer to a random viewport position.
func (s *Service) MoveMouse(ctx context.Context, page interfaces.Page) {
	x := 100 + rand.Float64()*700
	y := 100 + rand.Float64()*500
	if err := page.MouseMove(ctx, x, y); err != nil {
		s.logger.Debug().Err(err).Msg("Mouse movement failed")
		return
	}
	_ = s.Sleep(ctx, 100*time.Millisecond, 300*time.Millisecond)
}

// Scroll scrolls down a random amount, occasionally scrolling partway back.
func (s *Service) Scroll(ctx context.Context, page interfaces.Page) {
	amount := 200 + rand.Intn(300)
	if err := page.ScrollBy(ctx, amount); err != nil {
		s.logger.Debug().Err(err).Msg("Scroll failed")
		return
	}
	_ = s.Sleep(ctx, 500*time.Millisecond, time.Second)

	if rand.Float64() < 0.3 {
		if err := page.ScrollBy(ctx, -amount/2); err == nil {
			_ = s.Sleep(ctx, 300*time.Millisecond, 600*time.Millisecond)
		}
	}
}

// Interact runs the full human-like page interaction sequence: settle,
// dismiss any cookie banner, wander the mouse, maybe scroll, then "read".
func (s *Service) Interact(ctx context.Context, page interfaces.Page) {
	if err := s.SettleDelay(ctx); err != nil {
		return
	}

	s.DismissCookieBanner(ctx, page)

	for i := 0; i < 2+rand.Intn(3); i++ {
		s.MoveMouse(ctx, page)
	}

	if rand.Float64() < 0.7 {
		s.Scroll(ctx, page)
	}

	_ = s.ReadDelay(ctx)
}
