package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "labelled otp",
			body: "Your OTP is: 483920\nThis code expires in 10 minutes.",
			want: "483920",
		},
		{
			name: "verification code label",
			body: "Use verification code: 12345678 to continue",
			want: "12345678",
		},
		{
			name: "one-time password label",
			body: "Your one-time password: 9911 is valid for 5 minutes",
			want: "9911",
		},
		{
			name: "turkish label",
			body: "Tek kullanımlık şifre: 554433",
			want: "554433",
		},
		{
			name: "bare six digit fallback",
			body: "Please enter 771234 on the login page",
			want: "771234",
		},
		{
			name: "no code",
			body: "Thank you for contacting support. Your ticket reference is ABC.",
			want: "",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCode(tt.body))
		})
	}
}

// The labelled patterns must win over the bare 6-digit fallback even when an
// unrelated 6-digit number appears earlier in the body.
func TestExtractCodeLabelledPatternWins(t *testing.T) {
	body := "Reference 111222 for your application.\nYour OTP: 483920"
	assert.Equal(t, "483920", ExtractCode(body))
}

func TestExtractCodeCaseInsensitiveLabels(t *testing.T) {
	assert.Equal(t, "246810", ExtractCode("otp 246810"))
	assert.Equal(t, "135791", ExtractCode("VERIFICATION CODE: 135791"))
}
