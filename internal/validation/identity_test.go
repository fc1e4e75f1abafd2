package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"warhorse/internal/i18n"
	"warhorse/internal/models"
)

func TestPassword(t *testing.T) {
	assert.NoError(t, Password("12345678"))
	assert.NoError(t, Password("correct horse battery staple"))

	err := Password("1234567")
	assert.Equal(t, i18n.CodeInvalidPassword, models.CodeOf(err))
	assert.Error(t, Password(""))
}

func TestAccountName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "minimum length", input: "abc", ok: true},
		{name: "maximum length", input: strings.Repeat("a", 20), ok: true},
		{name: "typical", input: "jdoe_42", ok: true},
		{name: "too short", input: "ab", ok: false},
		{name: "too long", input: strings.Repeat("a", 21), ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AccountName(tt.input)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, i18n.CodeInvalidAccountName, models.CodeOf(err))
		})
	}
}

func TestDisplayNameLengthIsMeasuredInBytes(t *testing.T) {
	assert.NoError(t, DisplayName("abc"))
	assert.Error(t, DisplayName("ab"))
	assert.Error(t, DisplayName(strings.Repeat("x", 21)))

	// "éé" is two runes but four bytes, so it clears the minimum.
	assert.NoError(t, DisplayName("éé"))
	// Eleven three-byte runes exceed the 20-byte cap.
	assert.Error(t, DisplayName(strings.Repeat("漢", 11)))
}

func TestEmail(t *testing.T) {
	valid := []string{
		"test@example.com",
		"user.name+tag@example.com",
		"user_name@example.co.uk",
		"test.email-with-dash@example.com",
		"a@b.com",
	}
	for _, email := range valid {
		assert.NoError(t, Email(email), "expected %q to be accepted", email)
	}

	invalid := []string{
		"@example.com",
		"test@",
		"test",
		"test@.com",
		"test@com.",
		"test space@example.com",
		"",
		"test@example..com",
		"a@" + strings.Repeat("b", 250) + ".com",
	}
	for _, email := range invalid {
		err := Email(email)
		assert.Equal(t, i18n.CodeInvalidEmail, models.CodeOf(err), "expected %q to be rejected", email)
	}
}
