package waitlist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last+tag@sub.example.co.uk",
		strings.Repeat("a", 308) + "@example.com",
	}
	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"user",
		"user@",
		"@example.com",
		"user@example",
		"user@example.",
		"user @example.com",
		strings.Repeat("a", 309) + "@example.com",
	}
	for _, email := range invalid {
		assert.Error(t, ValidateEmail(email), email)
	}
}
