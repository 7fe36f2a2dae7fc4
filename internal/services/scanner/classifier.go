package scanner

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/vigil/internal/models"
)

// Classification is the availability verdict for one captured page.
type Classification struct {
	HasAppointment bool
	Slots          []string
	Message        string
}

// Classify decides appointment availability from a captured HTML snapshot.
// The no-slots banner always wins over slot matches; slot selectors are
// consulted only when no banner matched, and an empty page classifies as no
// availability. Pure function of its inputs, so repeated calls on the same
// snapshot always agree.
func Classify(html string, selectors models.TargetSelectors) Classification {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Classification{Message: "Page could not be parsed"}
	}

	bodyText := doc.Text()

	// 1. No-appointment banner takes precedence over everything.
	for _, sel := range selectors.NoSlots {
		if selectorMatches(doc, bodyText, sel) {
			return Classification{Message: "No appointments available"}
		}
	}

	// 2. Slot selectors, first match wins, slot texts capped.
	for _, sel := range selectors.Slots {
		if sel.Kind != models.SelectorCSS {
			continue
		}
		nodes := doc.Find(sel.Query)
		if nodes.Length() == 0 {
			continue
		}

		slots := make([]string, 0, models.MaxSlotTexts)
		nodes.EachWithBreak(func(_ int, node *goquery.Selection) bool {
			text := strings.TrimSpace(node.Text())
			if text != "" {
				slots = append(slots, text)
			}
			return len(slots) < models.MaxSlotTexts
		})

		return Classification{
			HasAppointment: true,
			Slots:          slots,
			Message:        fmt.Sprintf("Found %d available slots", len(slots)),
		}
	}

	// 3. Neither banner nor slots: treat as unavailable, not as an error.
	return Classification{Message: "No slots detected on page"}
}

func selectorMatches(doc *goquery.Document, bodyText string, sel models.Selector) bool {
	if sel.Kind == models.SelectorText {
		return strings.Contains(bodyText, sel.Query)
	}
	return doc.Find(sel.Query).Length() > 0
}
