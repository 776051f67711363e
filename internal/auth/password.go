package auth

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the most bcrypt will hash.
	MaxPasswordBytes = 72
)

var msgPasswordTooLong = "This password is too long. It must contain at most 72 bytes."

var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range strings.Fields(`
		123456 password 12345678 qwerty 123456789 12345 1234 111111 1234567 dragon
		123123 baseball abc123 football monkey letmein 696969 shadow master 666666
		qwertyuiop 123321 mustang 1234567890 michael 654321 superman 1qaz2wsx 7777777
		121212 000000 qazwsx 123qwe killer trustno1 jordan jennifer zxcvbnm asdfgh
		hunter buster soccer harley batman andrew tigger sunshine iloveyou 2000 charlie
		robert thomas hockey ranger daniel starwars klaster 112233 george computer
		michelle jessica pepper 1111 zxcvbn 555555 11111111 131313 freedom 777777 pass
		maggie 159753 aaaaaa ginger princess joshua cheese amanda summer love ashley
		nicole chelsea biteme matthew access yankees 987654321 dallas austin thunder
		taylor matrix welcome welcome1 password1 password123 admin admin123 passw0rd
		qwerty123 changeme secret kenya2024 nairobi mpesa shamba
	`) {
		commonPasswords[p] = struct{}{}
	}
}

// ErrPasswordTooLong is returned by HashPassword for passwords bcrypt cannot hash.
var ErrPasswordTooLong = errors.New(msgPasswordTooLong)

func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword applies the password rules; attributes are user values the
// password must not resemble (email, names).
func ValidatePassword(password string, attributes ...string) error {
	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if len(password) > MaxPasswordBytes {
		problems = append(problems, msgPasswordTooLong)
	}
	if isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, "This password is too common.")
	}
	if tooSimilar(password, attributes) {
		problems = append(problems, "The password is too similar to your personal information.")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, " "))
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func tooSimilar(password string, attributes []string) bool {
	pw := strings.ToLower(password)
	for _, attr := range attributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if i := strings.Index(attr, "@"); i > 0 {
			attr = attr[:i]
		}
		if len(attr) < 3 {
			continue
		}
		if strings.Contains(pw, attr) || strings.Contains(attr, pw) {
			return true
		}
	}
	return false
}
