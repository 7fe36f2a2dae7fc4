package models

import "time"

// MaxSlotTexts caps how many slot descriptions a scan result carries.
const MaxSlotTexts = 10

// ScanRequest asks for a single target to be scanned. Credentials are
// optional when a valid saved session exists for the user/target pair.
type ScanRequest struct {
	TargetID    string      `json:"target_id" validate:"required,min=2,max=8"`
	TargetName  string      `json:"target_name,omitempty"`
	UserID      string      `json:"user_id" validate:"required"`
	Credentials Credentials `json:"credentials"`
	EmailAccess EmailAccess `json:"email_access"`
}

// Authenticated reports whether the request carries portal credentials.
func (r *ScanRequest) Authenticated() bool {
	return r.Credentials.Email != "" && r.Credentials.Password != ""
}

// BatchScanRequest scans several targets in sequence with the same account.
type BatchScanRequest struct {
	TargetIDs   []string    `json:"target_ids" validate:"required,min=1,dive,min=2,max=8"`
	UserID      string      `json:"user_id" validate:"required"`
	Credentials Credentials `json:"credentials"`
	EmailAccess EmailAccess `json:"email_access"`
}

// ScanResult is the outcome of one appointment-page scan.
type ScanResult struct {
	ID             string    `json:"id" badgerhold:"key"`
	Success        bool      `json:"success"`
	Target         string    `json:"target"`
	HasAppointment bool      `json:"has_appointment"`
	AvailableSlots []string  `json:"available_slots,omitempty"`
	Message        string    `json:"message"`
	DurationMs     int64     `json:"duration_ms"`
	SessionSaved   bool      `json:"session_saved"`
	ScannedAt      time.Time `json:"scanned_at"`
}

// BatchResult aggregates the results of a sequential multi-target scan.
type BatchResult struct {
	Success bool          `json:"success"`
	Scanned int           `json:"scanned"`
	Found   int           `json:"found"`
	Results []*ScanResult `json:"results"`
}
