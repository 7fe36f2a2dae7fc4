package login

import "github.com/ternarybob/vigil/internal/models"

// Candidate selector lists for the portal's login flow. Each list is ordered;
// the first matching entry is used. The portal renders an Angular Material
// form, so the mat-input ids come last as a structural fallback behind the
// semantic attribute selectors. Turkish variants cover the portal's local
// locale.

var emailSelectors = models.ParseSelectors([]string{
	`input[type="email"]`,
	`input[name="email"]`,
	`input[id="email"]`,
	`input[placeholder*="email" i]`,
	`input[placeholder*="e-posta" i]`,
	`#mat-input-0`,
})

var passwordSelectors = models.ParseSelectors([]string{
	`input[type="password"]`,
	`input[name="password"]`,
	`input[id="password"]`,
	`input[placeholder*="password" i]`,
	`input[placeholder*="şifre" i]`,
	`#mat-input-1`,
})

var submitSelectors = models.ParseSelectors([]string{
	`button[type="submit"]`,
	`text=Sign In`,
	`text=Giriş`,
	`text=Oturum Aç`,
	`.login-button`,
	`.submit-button`,
})

var otpSelectors = models.ParseSelectors([]string{
	`input[type="text"][maxlength="6"]`,
	`input[type="text"][maxlength="4"]`,
	`input[name="otp"]`,
	`input[id="otp"]`,
	`input[placeholder*="OTP" i]`,
	`input[placeholder*="code" i]`,
	`input[placeholder*="kod" i]`,
})

var otpSubmitSelectors = models.ParseSelectors([]string{
	`button[type="submit"]`,
	`text=Verify`,
	`text=Doğrula`,
	`text=Submit`,
	`text=Gönder`,
})

var maintenanceSelectors = models.ParseSelectors([]string{
	`text=Sistem Bakımı`,
	`text=Planlanmış Sistem Bakımı`,
	`text=Maintenance`,
	`text=System Maintenance`,
	`text=bakım nedeniyle`,
	`text=temporarily unavailable`,
})

var dashboardSelectors = models.ParseSelectors([]string{
	`text=Dashboard`,
	`text=Başvuru Detayları`,
	`text=Yeni Rezervasyon`,
	`text=New Reservation`,
	`.dashboard`,
	`a[href*="dashboard"]`,
	`a[href*="application"]`,
})

// challengeMarkers are substrings of a bot-challenge interstitial page.
var challengeMarkers = []string{
	"verify you are human",
	"turnstile",
	"access denied",
	"just a moment",
}

// maintenanceMarkers are substrings of the maintenance page, checked against
// lowercased HTML.
var maintenanceMarkers = []string{
	"maintenance",
	"bakım",
}
