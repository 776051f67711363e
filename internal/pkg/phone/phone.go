// Package phone validates and normalises subscriber numbers, defaulting to
// Kenyan (+254) numbering.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmpty   = errors.New("Phone number cannot be empty")
	ErrInvalid = errors.New("Invalid phone number format")
	ErrZeroLen = errors.New("Phone number starting with 0 must be exactly 10 digits")
	ErrTooLong = errors.New("Phone number is too long")
)

var (
	validPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{9}$`),
		regexp.MustCompile(`^0\d{9}$`),
		regexp.MustCompile(`^\+\d{1,4}\d{9}$`),
		regexp.MustCompile(`^\d{1,4}\d{9}$`),
	}
	kenyan = regexp.MustCompile(`^(?:0|\+?254)?(\d{9})$`)
)

const maxLen = 15

// Validate reports why number is not acceptable, or nil.
func Validate(number string) error {
	if number == "" {
		return ErrEmpty
	}
	matched := false
	for _, p := range validPatterns {
		if p.MatchString(number) {
			matched = true
			break
		}
	}
	if !matched {
		return ErrInvalid
	}
	if strings.HasPrefix(number, "0") && len(number) != 10 {
		return ErrZeroLen
	}
	if len(number) > maxLen {
		return ErrTooLong
	}
	return nil
}

// Normalize returns the international form. Invalid input is returned as is.
func Normalize(number string) string {
	if Validate(number) != nil {
		return number
	}
	if m := kenyan.FindStringSubmatch(number); m != nil {
		return "+254" + m[1]
	}
	if strings.HasPrefix(number, "+") {
		return number
	}
	return "+" + number
}

// MSISDN is the digits-only form M-Pesa expects (2547XXXXXXXX).
func MSISDN(number string) string {
	return strings.TrimPrefix(Normalize(number), "+")
}
