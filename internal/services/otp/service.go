// -----------------------------------------------------------------------
// OTP Acquisition - polls a mailbox over IMAP for verification codes
// Connection failures and timeouts are reported as "no code", never as
// errors, so a flaky mailbox cannot abort a login flow.
// -----------------------------------------------------------------------

package otp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/models"
)

// Service reads one-time passwords from a user's mailbox.
type Service struct {
	config common.OTPConfig
	logger arbor.ILogger
}

// NewService creates a new OTP service
func NewService(config common.OTPConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// Read polls the mailbox until a code arrives or the timeout elapses.
// Returns ("", false) on timeout or connection failure. A found code returns
// immediately; the matched message is marked read so re-polls skip it.
func (s *Service) Read(ctx context.Context, access models.EmailAccess, timeout time.Duration) (string, bool) {
	access = access.WithDefaults()
	if access.IMAPHost == "" {
		access.IMAPHost = s.config.DefaultIMAPHost
	}
	if access.IMAPPort == 0 {
		access.IMAPPort = s.config.DefaultIMAPPort
	}
	if access.FromDomain == "" {
		access.FromDomain = s.config.FromDomain
	}
	if timeout <= 0 {
		timeout = s.config.WaitTimeout
	}

	pollInterval := s.config.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	s.logger.Info().
		Str("mailbox", access.Address).
		Str("from_domain", access.FromDomain).
		Str("timeout", timeout.String()).
		Msg("Waiting for OTP email")

	deadline := time.Now().Add(timeout)
	for {
		code, err := s.fetchLatestCode(access)
		if err != nil {
			s.logger.Warn().Err(err).Msg("OTP mailbox poll failed")
		} else if code != "" {
			s.logger.Info().Msg("OTP code extracted from email")
			return code, true
		}

		if time.Now().After(deadline) {
			s.logger.Warn().Str("timeout", timeout.String()).Msg("No OTP email received before timeout")
			return "", false
		}

		select {
		case <-ctx.Done():
			s.logger.Warn().Msg("OTP wait cancelled")
			return "", false
		case <-time.After(pollInterval):
		}
	}
}

// fetchLatestCode connects, inspects the newest unread message from the
// sender domain, and extracts a code from it.
func (s *Service) fetchLatestCode(access models.EmailAccess) (string, error) {
	addr := fmt.Sprintf("%s:%d", access.IMAPHost, access.IMAPPort)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return "", fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout()

	if err := c.Login(access.Address, access.Password); err != nil {
		return "", fmt.Errorf("IMAP login failed: %w", err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return "", fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Header.Add("From", access.FromDomain)

	seqNums, err := c.Search(criteria)
	if err != nil {
		return "", fmt.Errorf("failed to search for unseen messages: %w", err)
	}
	if len(seqNums) == 0 {
		return "", nil
	}

	// Newest message wins
	latest := seqNums[len(seqNums)-1]

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(latest)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, 1)

	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, messages)
	}()

	var body string
	for msg := range messages {
		if msg == nil {
			continue
		}
		parsed, err := parseMessageBody(msg, section)
		if err != nil {
			s.logger.Warn().Err(err).Int64("seq", int64(msg.SeqNum)).Msg("Failed to parse message body")
			continue
		}
		body = parsed
	}

	if err := <-done; err != nil {
		return "", fmt.Errorf("failed to fetch message: %w", err)
	}

	code := ExtractCode(body)
	if code == "" {
		s.logger.Debug().Int64("seq", int64(latest)).Msg("Unread message contained no recognizable code")
		return "", nil
	}

	// Mark read so re-polls don't reprocess this message
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := c.Store(seqSet, item, flags, nil); err != nil {
		s.logger.Warn().Err(err).Int64("seq", int64(latest)).Msg("Failed to mark OTP message as read")
	}

	return code, nil
}

// parseMessageBody extracts the text body from an IMAP message
func parseMessageBody(msg *imap.Message, section *imap.BodySectionName) (string, error) {
	r := msg.GetBody(section)
	if r == nil {
		return "", fmt.Errorf("no body section")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to create mail reader: %w", err)
	}

	var body string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read next part: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if strings.HasPrefix(contentType, "text/plain") {
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read body: %w", err)
				}
				body = string(b)
			}
		}
	}

	return strings.TrimSpace(body), nil
}
