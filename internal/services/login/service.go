package login

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/pacing"
	"github.com/ternarybob/vigil/internal/services/session"
)

// CodeReader acquires a one-time passcode from the user's mailbox.
type CodeReader interface {
	Read(ctx context.Context, access models.EmailAccess, timeout time.Duration) (string, bool)
}

// FlowError wraps a non-success login outcome so callers can recover the
// stage and maintenance flag.
type FlowError struct {
	Outcome models.LoginOutcome
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("login failed at %s: %s", e.Outcome.Stage, e.Outcome.Message)
}

// Service drives the portal's multi-step authentication sequence.
type Service struct {
	otp     CodeReader
	pacing  *pacing.Service
	session *session.Service
	config  common.OTPConfig
	logger  arbor.ILogger
}

func NewService(otpReader CodeReader, pacingSvc *pacing.Service, sessionSvc *session.Service, config common.OTPConfig, logger arbor.ILogger) *Service {
	return &Service{
		otp:     otpReader,
		pacing:  pacingSvc,
		session: sessionSvc,
		config:  config,
		logger:  logger,
	}
}

// Login walks the page through the full authentication sequence and returns
// the terminal outcome. It never panics past a vanished page: automation
// faults surface as a Failed(browser_closed) outcome.
func (s *Service) Login(ctx context.Context, page interfaces.Page, target models.TargetConfig, creds models.Credentials, email models.EmailAccess) models.LoginOutcome {
	// PageLoad: straight to the login page, skipping the landing page.
	s.logger.Info().Str("target", target.Code).Str("url", target.LoginURL).Msg("Navigating to login page")
	if err := page.Navigate(ctx, target.LoginURL, target.NavTimeout); err != nil {
		return s.failed(models.StagePageLoad, fmt.Sprintf("login page load failed: %s", truncate(err.Error(), 200)), err)
	}
	s.pacing.SettleDelay(ctx)

	// An immediate redirect means either an already-live session or the
	// maintenance page.
	if url, err := page.URL(ctx); err == nil && !strings.Contains(strings.ToLower(url), "login") {
		lower := strings.ToLower(url)
		if strings.Contains(lower, "dashboard") {
			s.logger.Info().Str("target", target.Code).Msg("Already logged in, redirected to dashboard")
			return models.LoginOutcome{Success: true, Message: "Already logged in", OTPMethod: models.OTPSession, Stage: models.StageComplete}
		}
		if strings.Contains(lower, "maintenance") {
			return s.maintenance("Redirected to maintenance page")
		}
	}

	// ChallengeCheck: bot interstitials get one grace period and a re-check;
	// maintenance is terminal immediately.
	if outcome, done := s.challengeCheck(ctx, page, target); done {
		return outcome
	}

	s.pacing.DismissCookieBanner(ctx, page)

	// FormFill: first matching candidate wins for each field.
	s.logger.Info().Str("target", target.Code).Msg("Entering credentials")
	if outcome, done := s.fillField(ctx, page, emailSelectors, creds.Email, "email"); done {
		return outcome
	}
	s.pacing.ThinkDelay(ctx)
	if outcome, done := s.fillField(ctx, page, passwordSelectors, creds.Password, "password"); done {
		return outcome
	}
	s.pacing.ThinkDelay(ctx)

	// Submit, with the Enter key as fallback when no button matches.
	if outcome, done := s.submitForm(ctx, page); done {
		return outcome
	}
	s.pacing.SettleDelay(ctx)

	// OtpWait: acquire a code, or detect a manual entry in the live window.
	code, method, outcome, done := s.acquireOTP(ctx, page, email)
	if done {
		return outcome
	}

	if code != "" {
		if outcome, done := s.submitOTP(ctx, page, code, method); done {
			return outcome
		}
		s.pacing.SettleDelay(ctx)
	}

	// OutcomeCheck: any dashboard indicator means we are in.
	sel, found, err := s.firstMatch(ctx, page, dashboardSelectors)
	if err != nil {
		return s.failed(models.StageBrowserClosed, "page closed during outcome check", err)
	}
	if !found {
		url, _ := page.URL(ctx)
		return s.failed(models.StageDashboardNotFound, fmt.Sprintf("no dashboard indicator after login, url: %s", url), nil)
	}

	s.logger.Info().Str("target", target.Code).Str("indicator", sel.Query).Msg("Login successful")
	return models.LoginOutcome{Success: true, Message: "Login successful", OTPMethod: method, Stage: models.StageComplete}
}

// challengeGrace is how long a bot interstitial gets to clear itself before
// the re-check.
const challengeGrace = 10 * time.Second

func (s *Service) challengeCheck(ctx context.Context, page interfaces.Page, target models.TargetConfig) (models.LoginOutcome, bool) {
	state, err := s.pageState(ctx, page)
	if err != nil {
		return s.failed(models.StageBrowserClosed, "page closed during challenge check", err), true
	}

	switch state {
	case stateMaintenance:
		return s.maintenance("System maintenance in progress"), true
	case stateChallenge:
		s.logger.Warn().Str("target", target.Code).Msg("Bot challenge detected, waiting for it to clear")
		if err := s.pacing.Sleep(ctx, challengeGrace, challengeGrace); err != nil {
			return s.failed(models.StageChallenge, "cancelled while waiting out challenge", err), true
		}
		state, err = s.pageState(ctx, page)
		if err != nil {
			return s.failed(models.StageBrowserClosed, "page closed during challenge re-check", err), true
		}
		if state == stateChallenge {
			return s.failed(models.StageChallenge, "bot challenge did not clear", nil), true
		}
		if state == stateMaintenance {
			return s.maintenance("System maintenance in progress"), true
		}
	}
	return models.LoginOutcome{}, false
}

type pageState int

const (
	stateNormal pageState = iota
	stateChallenge
	stateMaintenance
)

// pageState classifies the current document as normal, a bot challenge, or
// the maintenance page. Maintenance is checked by visible-text selectors
// first, then raw HTML markers.
func (s *Service) pageState(ctx context.Context, page interfaces.Page) (pageState, error) {
	for _, sel := range maintenanceSelectors {
		count, err := page.Count(ctx, sel)
		if err != nil {
			return stateNormal, err
		}
		if count > 0 {
			return stateMaintenance, nil
		}
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return stateNormal, err
	}
	lower := strings.ToLower(html)

	for _, marker := range maintenanceMarkers {
		if strings.Contains(lower, marker) {
			return stateMaintenance, nil
		}
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return stateChallenge, nil
		}
	}
	if title, err := page.Title(ctx); err == nil {
		lowerTitle := strings.ToLower(title)
		for _, marker := range challengeMarkers {
			if strings.Contains(lowerTitle, marker) {
				return stateChallenge, nil
			}
		}
	}
	return stateNormal, nil
}

func (s *Service) fillField(ctx context.Context, page interfaces.Page, candidates []models.Selector, value, fieldName string) (models.LoginOutcome, bool) {
	sel, found, err := s.firstMatch(ctx, page, candidates)
	if err != nil {
		return s.failed(models.StageBrowserClosed, fmt.Sprintf("page closed while locating %s field", fieldName), err), true
	}
	if !found {
		return s.failed(models.StageFieldNotFound, fmt.Sprintf("%s input field not found", fieldName), nil), true
	}

	if err := page.TypeHuman(ctx, sel, value, s.pacing.TypingDelay); err != nil {
		if interfaces.IsAutomationFault(err) {
			return s.failed(models.StageBrowserClosed, fmt.Sprintf("page closed while typing %s", fieldName), err), true
		}
		return s.failed(models.StageFieldNotFound, fmt.Sprintf("could not type into %s field: %s", fieldName, truncate(err.Error(), 120)), err), true
	}

	s.logger.Debug().Str("field", fieldName).Str("selector", sel.Query).Msg("Field filled")
	return models.LoginOutcome{}, false
}

func (s *Service) submitForm(ctx context.Context, page interfaces.Page) (models.LoginOutcome, bool) {
	sel, found, err := s.firstMatch(ctx, page, submitSelectors)
	if err != nil {
		return s.failed(models.StageBrowserClosed, "page closed while locating submit control", err), true
	}

	if found {
		s.pacing.MoveMouse(ctx, page)
		if err := page.Click(ctx, sel); err != nil {
			if interfaces.IsAutomationFault(err) {
				return s.failed(models.StageBrowserClosed, "page closed while submitting form", err), true
			}
			found = false
		}
	}
	if !found {
		// Keyboard fallback
		s.logger.Debug().Msg("No submit control matched, sending Enter")
		if err := page.PressEnter(ctx); err != nil {
			if interfaces.IsAutomationFault(err) {
				return s.failed(models.StageBrowserClosed, "page closed while submitting form", err), true
			}
			return s.failed(models.StageSubmitNotFound, "submit control not found and Enter fallback failed", err), true
		}
	}
	return models.LoginOutcome{}, false
}

// acquireOTP returns the code and the method that produced it. When the
// manual flag is set and no mailbox is configured, the operator is expected
// to type the code into the live browser window; we poll for the dashboard
// instead of a code.
func (s *Service) acquireOTP(ctx context.Context, page interfaces.Page, email models.EmailAccess) (string, models.OTPMethod, models.LoginOutcome, bool) {
	waitTimeout := s.config.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = 60 * time.Second
	}

	if email.Configured() {
		s.logger.Info().Str("mailbox", email.Address).Msg("Reading OTP from mailbox")
		if code, ok := s.otp.Read(ctx, email, waitTimeout); ok {
			return code, models.OTPAuto, models.LoginOutcome{}, false
		}
		return "", "", s.failed(models.StageOTPMissing, "no OTP email received before timeout", nil), true
	}

	if !s.config.ManualOTP {
		return "", "", s.failed(models.StageOTPMissing,
			"no mailbox configured for OTP auto-read; set [otp] manual_otp to allow operator entry", nil), true
	}

	// Manual path: wait for the operator to finish the OTP step themselves.
	s.logger.Warn().Msg("Manual OTP mode: waiting for operator to complete verification in the browser window")
	deadline := time.Now().Add(2 * waitTimeout)
	for time.Now().Before(deadline) {
		_, found, err := s.firstMatch(ctx, page, dashboardSelectors)
		if err != nil {
			return "", "", s.failed(models.StageBrowserClosed, "page closed while waiting for manual OTP", err), true
		}
		if found {
			return "", models.OTPManual, models.LoginOutcome{}, false
		}
		if err := s.pacing.Sleep(ctx, 2*time.Second, 2*time.Second); err != nil {
			return "", "", s.failed(models.StageOTPMissing, "cancelled while waiting for manual OTP", err), true
		}
	}
	return "", "", s.failed(models.StageOTPMissing, "operator did not complete OTP verification in time", nil), true
}

func (s *Service) submitOTP(ctx context.Context, page interfaces.Page, code string, method models.OTPMethod) (models.LoginOutcome, bool) {
	sel, found, err := s.firstMatch(ctx, page, otpSelectors)
	if err != nil {
		return s.failed(models.StageBrowserClosed, "page closed while locating OTP field", err), true
	}
	if !found {
		return s.failed(models.StageFieldNotFound, "OTP input field not found", nil), true
	}
	if err := page.TypeHuman(ctx, sel, code, s.pacing.TypingDelay); err != nil {
		if interfaces.IsAutomationFault(err) {
			return s.failed(models.StageBrowserClosed, "page closed while typing OTP", err), true
		}
		return s.failed(models.StageFieldNotFound, "could not type OTP code", err), true
	}
	s.pacing.ThinkDelay(ctx)

	if sel, found, err := s.firstMatch(ctx, page, otpSubmitSelectors); err != nil {
		return s.failed(models.StageBrowserClosed, "page closed while submitting OTP", err), true
	} else if found {
		if err := page.Click(ctx, sel); err != nil && interfaces.IsAutomationFault(err) {
			return s.failed(models.StageBrowserClosed, "page closed while submitting OTP", err), true
		}
	} else if err := page.PressEnter(ctx); err != nil && interfaces.IsAutomationFault(err) {
		return s.failed(models.StageBrowserClosed, "page closed while submitting OTP", err), true
	}

	s.logger.Info().Str("method", string(method)).Msg("OTP submitted")
	return models.LoginOutcome{}, false
}

// firstMatch walks an ordered candidate list and returns the first selector
// with at least one match. Automation faults abort the walk; ordinary
// selector errors just skip to the next candidate.
func (s *Service) firstMatch(ctx context.Context, page interfaces.Page, candidates []models.Selector) (models.Selector, bool, error) {
	for _, sel := range candidates {
		count, err := page.Count(ctx, sel)
		if err != nil {
			if interfaces.IsAutomationFault(err) {
				return models.Selector{}, false, err
			}
			continue
		}
		if count > 0 {
			return sel, true, nil
		}
	}
	return models.Selector{}, false, nil
}

func (s *Service) failed(stage models.LoginStage, message string, err error) models.LoginOutcome {
	event := s.logger.Warn().Str("stage", string(stage))
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(message)

	if err != nil && interfaces.IsAutomationFault(err) {
		stage = models.StageBrowserClosed
	}
	return models.LoginOutcome{Success: false, Message: message, OTPMethod: models.OTPFailed, Stage: stage}
}

func (s *Service) maintenance(message string) models.LoginOutcome {
	s.logger.Warn().Msg("Portal is in maintenance mode")
	return models.LoginOutcome{
		Success:     false,
		Message:     message,
		OTPMethod:   models.OTPMaintenance,
		Stage:       models.StageMaintenance,
		Maintenance: true,
	}
}

// EnsureLoggedIn returns a page sitting on an authenticated portal view,
// reusing the saved session when it still holds and falling back to a fresh
// login otherwise. The fresh-login path persists the new session before
// returning. The caller owns the returned page.
func (s *Service) EnsureLoggedIn(ctx context.Context, browser interfaces.Browser, target models.TargetConfig, userID string, creds models.Credentials, email models.EmailAccess) (interfaces.Page, bool, error) {
	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open page: %w", err)
	}

	if s.session.IsValid(ctx, userID, target.Code) && s.session.Load(ctx, page, userID, target.Code) {
		if err := page.Navigate(ctx, target.DashboardURL, target.NavTimeout); err == nil {
			if _, found, err := s.firstMatch(ctx, page, dashboardSelectors); err == nil && found {
				s.logger.Info().Str("user", userID).Str("target", target.Code).Msg("Saved session reused")
				return page, false, nil
			}
		}
		s.logger.Info().Str("user", userID).Str("target", target.Code).Msg("Saved session rejected by portal, performing fresh login")
	}

	outcome := s.Login(ctx, page, target, creds, email)
	if !outcome.Success {
		page.Close()
		return nil, false, &FlowError{Outcome: outcome}
	}

	if err := s.session.Save(ctx, page, userID, target.Code); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist fresh session")
	}
	return page, true, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
