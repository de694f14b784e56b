package organizations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDisposableEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"user@mailinator.com", true},
		{"User@MAILINATOR.COM", true},
		{"  x@Mailinator.COM ", true},
		{"a@yopmail.com", true},
		{"weird@part@guerrillamail.com", true}, // domain is after the last @
		{"user@example.com", false},
		{"user@mailinator.com.evil.com", false},
		{"not-an-email", false},
		{"trailing@", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsDisposableEmail(tc.email), "email %q", tc.email)
	}
}
