package otp

import "regexp"

// codePatterns are tried in order. Explicitly labelled codes come first; the
// bare 6-digit pattern is the last resort because it can match unrelated
// digits elsewhere in the message body.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)OTP[:\s]+([0-9]{4,8})`),
	regexp.MustCompile(`(?i)verification code[:\s]+([0-9]{4,8})`),
	regexp.MustCompile(`(?i)one-time password[:\s]+([0-9]{4,8})`),
	regexp.MustCompile(`(?i)şifre[:\s]+([0-9]{4,8})`),
	regexp.MustCompile(`\b([0-9]{6})\b`),
}

// ExtractCode pulls a one-time password out of an email body. Returns the
// first pattern match in declared order, or "" when nothing matches.
func ExtractCode(text string) string {
	for _, pattern := range codePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}
