package scanner

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/registry"
)

func deuSelectors() models.TargetSelectors {
	return registry.NewService().Get("deu").Selectors
}

const slotsPage = `<html><body>
<div class="appointment-calendar">
  <div class="appointment-slot available">15 Mar 2026 09:00</div>
  <div class="appointment-slot available">15 Mar 2026 11:30</div>
  <div class="appointment-slot available">16 Mar 2026 14:00</div>
</div>
</body></html>`

const noSlotsPage = `<html><body>
<div class="appointment-calendar">
  <p>No appointment slots are currently available</p>
</div>
</body></html>`

const emptyPage = `<html><body><div class="appointment-calendar"></div></body></html>`

func TestClassifyFindsSlots(t *testing.T) {
	verdict := Classify(slotsPage, deuSelectors())

	assert.True(t, verdict.HasAppointment)
	require.Len(t, verdict.Slots, 3)
	assert.Equal(t, "15 Mar 2026 09:00", verdict.Slots[0])
	assert.Equal(t, "Found 3 available slots", verdict.Message)
}

func TestClassifyNoSlotsBanner(t *testing.T) {
	verdict := Classify(noSlotsPage, deuSelectors())

	assert.False(t, verdict.HasAppointment)
	assert.Empty(t, verdict.Slots)
	assert.Equal(t, "No appointments available", verdict.Message)
}

func TestClassifyTurkishBanner(t *testing.T) {
	page := `<html><body><p>Şu anda randevu slotu bulunmamaktadır</p></body></html>`
	verdict := Classify(page, deuSelectors())

	assert.False(t, verdict.HasAppointment)
	assert.Equal(t, "No appointments available", verdict.Message)
}

// The banner must win even when slot elements are also present, e.g. greyed
// calendar entries left in the DOM.
func TestClassifyBannerWinsOverSlots(t *testing.T) {
	page := `<html><body>
<p>No appointment slots are currently available</p>
<div class="appointment-slot available">ghost slot</div>
</body></html>`

	verdict := Classify(page, deuSelectors())

	assert.False(t, verdict.HasAppointment)
	assert.Equal(t, "No appointments available", verdict.Message)
}

func TestClassifyEmptyPageIsNotAvailability(t *testing.T) {
	verdict := Classify(emptyPage, deuSelectors())

	assert.False(t, verdict.HasAppointment)
	assert.Equal(t, "No slots detected on page", verdict.Message)
}

func TestClassifySlotTextsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, `<div class="appointment-slot available">slot %d</div>`, i)
	}
	b.WriteString("</body></html>")

	verdict := Classify(b.String(), deuSelectors())

	assert.True(t, verdict.HasAppointment)
	assert.Len(t, verdict.Slots, models.MaxSlotTexts)
}

func TestClassifySkipsBlankSlotTexts(t *testing.T) {
	page := `<html><body>
<div class="appointment-slot available">  </div>
<div class="appointment-slot available">17 Mar 2026</div>
</body></html>`

	verdict := Classify(page, deuSelectors())

	assert.True(t, verdict.HasAppointment)
	require.Len(t, verdict.Slots, 1)
	assert.Equal(t, "17 Mar 2026", verdict.Slots[0])
}

// Classification is a pure function of the snapshot: repeated runs agree.
func TestClassifyIdempotent(t *testing.T) {
	selectors := deuSelectors()
	for _, page := range []string{slotsPage, noSlotsPage, emptyPage} {
		first := Classify(page, selectors)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Classify(page, selectors))
		}
	}
}

func TestClassifyGarbageInput(t *testing.T) {
	verdict := Classify("not html at all <<<>>>", deuSelectors())
	assert.False(t, verdict.HasAppointment)
}
