package scanner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/login"
	"github.com/ternarybob/vigil/internal/services/pacing"
	"github.com/ternarybob/vigil/internal/services/registry"
	"golang.org/x/time/rate"
)

// Service orchestrates appointment scans: page acquisition, pacing,
// classification, logging, and event publication. Scan never lets a failure
// escape as an error; every path produces a structured result.
type Service struct {
	registry *registry.Service
	login    *login.Service
	pacing   *pacing.Service
	browser  interfaces.Browser
	scanLog  interfaces.ScanLogStorage
	events   interfaces.EventService
	config   common.ScannerConfig
	logger   arbor.ILogger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewService(
	registrySvc *registry.Service,
	loginSvc *login.Service,
	pacingSvc *pacing.Service,
	browser interfaces.Browser,
	scanLog interfaces.ScanLogStorage,
	events interfaces.EventService,
	config common.ScannerConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		registry: registrySvc,
		login:    loginSvc,
		pacing:   pacingSvc,
		browser:  browser,
		scanLog:  scanLog,
		events:   events,
		config:   config,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Scan performs one scan of the target's appointment page.
func (s *Service) Scan(ctx context.Context, req *models.ScanRequest) *models.ScanResult {
	start := time.Now()
	target := s.registry.Get(req.TargetID)
	name := target.Name
	if req.TargetName != "" {
		name = req.TargetName
	}

	s.publish(ctx, interfaces.EventScanStarted, map[string]string{"target": target.Code})
	s.logger.Info().Str("target", target.Code).Str("url", target.AppointmentURL).Msg("Scanning target")

	if !s.limiter(target.Code).Allow() {
		return s.finish(ctx, start, &models.ScanResult{
			Target:  name,
			Message: "Scan suppressed: minimum gap between scans for this target not reached",
		})
	}

	page, sessionSaved, result := s.acquirePage(ctx, req, target, name, start)
	if result != nil {
		return result
	}
	defer page.Close()

	// Failures from here on still produce a structured result; the deferred
	// close runs on every path.
	if !s.onAppointmentPage(ctx, page) {
		if err := page.Navigate(ctx, target.AppointmentURL, target.NavTimeout); err != nil {
			return s.finish(ctx, start, &models.ScanResult{
				Target:       name,
				Message:      fmt.Sprintf("Navigation failed: %s", truncate(err.Error(), 100)),
				SessionSaved: sessionSaved,
			})
		}
	}

	s.pacing.Interact(ctx, page)

	// Best effort: the page may classify fine even when the ready marker
	// never shows.
	if target.ReadySelector != "" {
		sel := models.ParseSelector(target.ReadySelector)
		if err := page.WaitVisible(ctx, sel, s.config.SelectorWaitDuration()); err != nil {
			s.logger.Debug().Str("target", target.Code).Msg("Ready selector did not appear, classifying anyway")
		}
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return s.finish(ctx, start, &models.ScanResult{
			Target:       name,
			Message:      fmt.Sprintf("Error: %s", truncate(err.Error(), 100)),
			SessionSaved: sessionSaved,
		})
	}

	verdict := Classify(html, target.Selectors)
	return s.finish(ctx, start, &models.ScanResult{
		Success:        true,
		Target:         name,
		HasAppointment: verdict.HasAppointment,
		AvailableSlots: verdict.Slots,
		Message:        verdict.Message,
		SessionSaved:   sessionSaved,
	})
}

// ScanBatch scans the requested targets strictly in sequence, pausing a
// randomized delay between targets. One target failing never aborts the rest.
func (s *Service) ScanBatch(ctx context.Context, req *models.BatchScanRequest) *models.BatchResult {
	batch := &models.BatchResult{Success: true}

	for i, targetID := range req.TargetIDs {
		if i > 0 {
			delay := s.pacing.InterTargetDelay()
			s.logger.Info().Str("next_target", targetID).Str("delay", delay.String()).Msg("Pausing before next target")
			if err := s.pacing.Sleep(ctx, delay, delay); err != nil {
				s.logger.Warn().Err(err).Msg("Batch scan cancelled")
				break
			}
		}

		result := s.Scan(ctx, &models.ScanRequest{
			TargetID:    targetID,
			UserID:      req.UserID,
			Credentials: req.Credentials,
			EmailAccess: req.EmailAccess,
		})
		batch.Results = append(batch.Results, result)
		batch.Scanned++
		if result.HasAppointment {
			batch.Found++
		}
	}

	s.logger.Info().Int("scanned", batch.Scanned).Int("found", batch.Found).Msg("Batch scan finished")
	return batch
}

// acquirePage returns a page ready for classification: an authenticated one
// when credentials were supplied, otherwise a fresh public page. A non-nil
// result means acquisition failed and the scan is over.
func (s *Service) acquirePage(ctx context.Context, req *models.ScanRequest, target models.TargetConfig, name string, start time.Time) (interfaces.Page, bool, *models.ScanResult) {
	if req.Authenticated() {
		page, isNew, err := s.login.EnsureLoggedIn(ctx, s.browser, target, req.UserID, req.Credentials, req.EmailAccess)
		if err != nil {
			return nil, false, s.finish(ctx, start, &models.ScanResult{
				Target:  name,
				Message: fmt.Sprintf("Login failed: %s", truncate(err.Error(), 150)),
			})
		}
		return page, isNew, nil
	}

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, false, s.finish(ctx, start, &models.ScanResult{
			Target:  name,
			Message: fmt.Sprintf("Error: %s", truncate(err.Error(), 100)),
		})
	}
	return page, false, nil
}

// onAppointmentPage guesses whether the current page already shows the
// booking view, which the authenticated flow can land on directly.
func (s *Service) onAppointmentPage(ctx context.Context, page interfaces.Page) bool {
	url, err := page.URL(ctx)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(url), "book-an-appointment")
}

// finish stamps the duration, persists the result, and publishes completion
// events. Logging or event failures never alter the result.
func (s *Service) finish(ctx context.Context, start time.Time, result *models.ScanResult) *models.ScanResult {
	result.DurationMs = time.Since(start).Milliseconds()
	result.ScannedAt = time.Now().UTC()

	if s.scanLog != nil {
		if err := s.scanLog.Append(ctx, result); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to append scan result to log")
		}
	}

	s.publish(ctx, interfaces.EventScanCompleted, result)
	if result.HasAppointment {
		s.logger.Info().Str("target", result.Target).Int("slots", len(result.AvailableSlots)).Msg("Appointment slots found")
		s.publish(ctx, interfaces.EventSlotsFound, result)
	}
	return result
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload})
}

// limiter returns the per-target rate limiter, creating it on first use.
func (s *Service) limiter(targetCode string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.limiters[targetCode]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(s.config.MinScanGapDuration()), 1)
	s.limiters[targetCode] = l
	return l
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
