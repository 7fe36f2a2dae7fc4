package models

// OTPMethod records how the one-time passcode step was satisfied.
type OTPMethod string

const (
	// OTPAuto means the code was read from the user's mailbox.
	OTPAuto OTPMethod = "auto"
	// OTPManual means an operator supplied the code out of band.
	OTPManual OTPMethod = "manual"
	// OTPSession means no code was needed because a saved session held.
	OTPSession OTPMethod = "session"
	// OTPFailed means no code could be obtained.
	OTPFailed OTPMethod = "failed"
	// OTPMaintenance means the portal was down before the OTP step.
	OTPMaintenance OTPMethod = "maintenance"
)

// LoginStage identifies where in the login flow an outcome was decided.
type LoginStage string

const (
	StagePageLoad          LoginStage = "page_load"
	StageChallenge         LoginStage = "challenge"
	StageFieldNotFound     LoginStage = "field_not_found"
	StageSubmitNotFound    LoginStage = "submit_not_found"
	StageOTPMissing        LoginStage = "otp_missing"
	StageDashboardNotFound LoginStage = "dashboard_not_found"
	StageBrowserClosed     LoginStage = "browser_closed"
	StageMaintenance       LoginStage = "maintenance"
	StageComplete          LoginStage = "complete"
)

// LoginOutcome is the terminal state of one login attempt.
type LoginOutcome struct {
	Success     bool       `json:"success"`
	Message     string     `json:"message"`
	OTPMethod   OTPMethod  `json:"otp_method"`
	Stage       LoginStage `json:"stage"`
	Maintenance bool       `json:"maintenance"`
}
