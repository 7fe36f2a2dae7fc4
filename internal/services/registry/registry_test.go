package registry

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/vigil/internal/models"
)

func TestGetKnownTarget(t *testing.T) {
	svc := NewService()

	cfg := svc.Get("deu")
	assert.Equal(t, "Germany", cfg.Name)
	assert.True(t, strings.HasSuffix(cfg.AppointmentURL, "/deu/book-an-appointment"))
	assert.NotEmpty(t, cfg.Selectors.NoSlots)
	assert.NotEmpty(t, cfg.Selectors.Slots)
	assert.NotZero(t, cfg.NavTimeout)
}

func TestGetIsCaseInsensitive(t *testing.T) {
	svc := NewService()

	assert.Equal(t, svc.Get("nld"), svc.Get("NLD"))
	assert.Equal(t, svc.Get("deu"), svc.Get("  Deu "))
}

func TestGetUnknownTargetSynthesizesDefault(t *testing.T) {
	svc := NewService()

	for _, code := range []string{"xyz", "aut", "prt"} {
		cfg := svc.Get(code)
		require.NotEmpty(t, cfg.AppointmentURL, "code %s", code)

		parsed, err := url.Parse(cfg.AppointmentURL)
		require.NoError(t, err, "code %s", code)
		assert.Equal(t, "https", parsed.Scheme)
		assert.Contains(t, cfg.AppointmentURL, "/"+code+"/book-an-appointment")

		// Default configs still carry generic selectors so classification
		// can run against unsupported targets.
		assert.NotEmpty(t, cfg.Selectors.NoSlots)
		assert.NotEmpty(t, cfg.Selectors.Slots)
		assert.NotEmpty(t, cfg.ReadySelector)
	}
}

func TestSelectorOrderingPreserved(t *testing.T) {
	svc := NewService()

	cfg := svc.Get("deu")
	require.True(t, len(cfg.Selectors.NoSlots) >= 2)
	assert.Equal(t, models.SelectorText, cfg.Selectors.NoSlots[0].Kind)
	assert.Equal(t, "No appointment slots are currently available", cfg.Selectors.NoSlots[0].Query)
}

func TestList(t *testing.T) {
	svc := NewService()

	targets := svc.List()
	require.Len(t, targets, 6)

	codes := make([]string, 0, len(targets))
	for _, target := range targets {
		codes = append(codes, target.Code)
	}
	assert.Equal(t, []string{"bel", "deu", "esp", "fra", "ita", "nld"}, codes)
}

func TestSupported(t *testing.T) {
	svc := NewService()

	assert.True(t, svc.Supported("deu"))
	assert.True(t, svc.Supported("DEU"))
	assert.False(t, svc.Supported("xyz"))
}
