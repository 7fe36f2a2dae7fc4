// -----------------------------------------------------------------------
// Target Registry - per-target URLs, selectors and timeouts
// Unknown target codes synthesize a default configuration so the scan
// pipeline treats unsupported targets the same as supported ones.
// -----------------------------------------------------------------------

package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/vigil/internal/models"
)

const portalRoot = "https://visa.vfsglobal.com/tur"

// Service resolves target codes to immutable configurations.
type Service struct {
	targets map[string]models.TargetConfig
}

// NewService builds the registry with the built-in target table.
func NewService() *Service {
	s := &Service{targets: make(map[string]models.TargetConfig)}
	for _, t := range builtinTargets() {
		s.targets[t.Code] = t
	}
	return s
}

// Get returns the configuration for a target code. Lookup is
// case-insensitive and never fails: unknown codes get a best-effort default
// configuration with derived URLs and generic selectors.
func (s *Service) Get(code string) models.TargetConfig {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if cfg, ok := s.targets[normalized]; ok {
		return cfg
	}
	return defaultTarget(normalized)
}

// Supported reports whether the code has a dedicated configuration.
func (s *Service) Supported(code string) bool {
	_, ok := s.targets[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// List returns the supported targets sorted by code.
func (s *Service) List() []models.TargetSummary {
	summaries := make([]models.TargetSummary, 0, len(s.targets))
	for _, t := range s.targets {
		summaries = append(summaries, models.TargetSummary{Code: t.Code, Name: t.Name})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Code < summaries[j].Code })
	return summaries
}

// newTarget assembles a configuration from the raw selector table, deriving
// the portal URLs from the target code.
func newTarget(code, name string, noSlots, slots, dates, loading []string, ready string) models.TargetConfig {
	return models.TargetConfig{
		Code:           code,
		Name:           name,
		BaseURL:        fmt.Sprintf("%s/en/%s", portalRoot, code),
		AppointmentURL: fmt.Sprintf("%s/en/%s/book-an-appointment", portalRoot, code),
		LoginURL:       fmt.Sprintf("%s/tr/%s/login", portalRoot, code),
		DashboardURL:   fmt.Sprintf("%s/tr/%s/dashboard", portalRoot, code),
		Selectors: models.TargetSelectors{
			NoSlots: models.ParseSelectors(noSlots),
			Slots:   models.ParseSelectors(slots),
			Dates:   models.ParseSelectors(dates),
			Loading: models.ParseSelectors(loading),
		},
		ReadySelector: ready,
		NavTimeout:    30 * time.Second,
	}
}

// defaultTarget synthesizes a configuration for an unsupported code.
func defaultTarget(code string) models.TargetConfig {
	return newTarget(code, strings.ToUpper(code),
		[]string{
			"text=No appointment slots are currently available",
			"text=Şu anda randevu slotu bulunmamaktadır",
		},
		[]string{".appointment-slot.available"},
		[]string{".appointment-date"},
		[]string{".loading"},
		".appointment-calendar",
	)
}

// builtinTargets is the supported target table. Selector lists are ordered:
// earlier entries win.
func builtinTargets() []models.TargetConfig {
	return []models.TargetConfig{
		newTarget("deu", "Germany",
			[]string{
				"text=No appointment slots are currently available",
				"text=Şu anda randevu slotu bulunmamaktadır",
				".no-appointment-message",
				".alert-warning",
			},
			[]string{
				".appointment-slot.available",
				"button.appointment-date:not([disabled])",
				`[data-available="true"]`,
				".calendar-day.available",
			},
			[]string{".appointment-date", ".calendar-date", "[data-date]"},
			[]string{".loading", ".spinner", "text=Loading"},
			".appointment-calendar, .appointment-slots, .no-appointment-message",
		),
		newTarget("bel", "Belgium",
			[]string{
				"text=No appointment slots are currently available",
				"text=Şu anda randevu slotu bulunmamaktadır",
				".no-appointment-message",
			},
			[]string{".appointment-slot.available", "button.appointment-date:not([disabled])"},
			[]string{".appointment-date"},
			[]string{".loading"},
			".appointment-calendar, .appointment-slots",
		),
		newTarget("esp", "Spain",
			[]string{
				"text=No appointment slots are currently available",
				"text=Şu anda randevu slotu bulunmamaktadır",
				".no-appointment-message",
			},
			[]string{".appointment-slot.available", "button.appointment-date:not([disabled])"},
			[]string{".appointment-date"},
			[]string{".loading"},
			".appointment-calendar, .appointment-slots",
		),
		newTarget("fra", "France",
			[]string{
				"text=No appointment slots are currently available",
				".no-appointment-message",
			},
			[]string{".appointment-slot.available"},
			[]string{".appointment-date"},
			[]string{".loading"},
			".appointment-calendar",
		),
		newTarget("ita", "Italy",
			[]string{
				"text=No appointment slots are currently available",
				".no-appointment-message",
			},
			[]string{".appointment-slot.available"},
			[]string{".appointment-date"},
			[]string{".loading"},
			".appointment-calendar",
		),
		newTarget("nld", "Netherlands",
			[]string{
				"text=No appointment slots are currently available",
				".no-appointment-message",
			},
			[]string{".appointment-slot.available"},
			[]string{".appointment-date"},
			[]string{".loading"},
			".appointment-calendar",
		),
	}
}
