package models

import (
	"strings"
	"time"
)

// SelectorKind distinguishes how a selector query is matched against the
// page: as a CSS selector or as a visible-text search.
type SelectorKind string

const (
	SelectorCSS  SelectorKind = "css"
	SelectorText SelectorKind = "text"
)

// Selector is a single element-matching rule. Selector lists are ordered:
// the first matching entry wins.
type Selector struct {
	Kind  SelectorKind `json:"kind"`
	Query string       `json:"query"`
}

// ParseSelector converts a raw selector string into a typed Selector. Strings
// prefixed with "text=" become text searches, with surrounding quotes
// stripped; everything else is treated as CSS.
func ParseSelector(raw string) Selector {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "text="); ok {
		rest = strings.Trim(rest, `"'`)
		return Selector{Kind: SelectorText, Query: rest}
	}
	return Selector{Kind: SelectorCSS, Query: raw}
}

// ParseSelectors converts a raw selector list, preserving order.
func ParseSelectors(raw []string) []Selector {
	selectors := make([]Selector, 0, len(raw))
	for _, r := range raw {
		selectors = append(selectors, ParseSelector(r))
	}
	return selectors
}

// TargetSelectors groups the per-target selector lists used to classify an
// appointment page.
type TargetSelectors struct {
	// NoSlots match the portal's "no appointments" banner.
	NoSlots []Selector `json:"no_slots"`
	// Slots match individual available appointment slots.
	Slots []Selector `json:"slots"`
	// Dates match selectable appointment dates.
	Dates []Selector `json:"dates"`
	// Loading match transient loading indicators.
	Loading []Selector `json:"loading"`
}

// TargetConfig is the full portal configuration for one destination country.
type TargetConfig struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	BaseURL        string          `json:"base_url"`
	AppointmentURL string          `json:"appointment_url"`
	LoginURL       string          `json:"login_url"`
	DashboardURL   string          `json:"dashboard_url"`
	Selectors      TargetSelectors `json:"selectors"`
	// ReadySelector marks the element whose presence means the appointment
	// page has finished rendering.
	ReadySelector string        `json:"ready_selector"`
	NavTimeout    time.Duration `json:"nav_timeout"`
}

// TargetSummary is the compact form returned by target listings.
type TargetSummary struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
