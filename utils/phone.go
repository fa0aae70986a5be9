package utils

import (
	"regexp"
	"strings"
)

var nonDigit = regexp.MustCompile(`\D`)

// NormalizePhoneNumber reduces a phone number to bare digits with the
// country code first, the form sms/whatsapp dispatch expects.
func NormalizePhoneNumber(phoneNumber string) string {
	digits := nonDigit.ReplaceAllString(phoneNumber, "")
	// "00" international prefix collapses into the bare country code
	if strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}
	return digits
}

// ValidatePhoneNumber checks the normalized form fits E.164 length bounds.
func ValidatePhoneNumber(phoneNumber string) bool {
	digits := NormalizePhoneNumber(phoneNumber)
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	// No leading zero in E.164
	return digits[0] != '0'
}

// DisplayPhoneNumber formats a stored number for display.
func DisplayPhoneNumber(phoneNumber string) string {
	digits := NormalizePhoneNumber(phoneNumber)
	if digits == "" {
		return phoneNumber
	}
	return "+" + digits
}
