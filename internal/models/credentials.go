package models

// Credentials are the portal account details used for a login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// EmailAccess holds the IMAP mailbox details used to auto-read one-time
// passcodes. Zero-valued fields fall back to the portal defaults.
type EmailAccess struct {
	Address    string `json:"address" validate:"omitempty,email"`
	Password   string `json:"password"`
	IMAPHost   string `json:"imap_host"`
	IMAPPort   int    `json:"imap_port"`
	FromDomain string `json:"from_domain"`
}

// WithDefaults returns a copy with the standard mailbox defaults applied to
// any unset field.
func (e EmailAccess) WithDefaults() EmailAccess {
	if e.IMAPHost == "" {
		e.IMAPHost = "imap.gmail.com"
	}
	if e.IMAPPort == 0 {
		e.IMAPPort = 993
	}
	if e.FromDomain == "" {
		e.FromDomain = "vfsglobal.com"
	}
	return e
}

// Configured reports whether the mailbox can be polled at all.
func (e EmailAccess) Configured() bool {
	return e.Address != "" && e.Password != ""
}
