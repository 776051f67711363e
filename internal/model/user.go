package model

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type User struct {
	BaseModel
	FirstName      string     `db:"first_name"`
	LastName       string     `db:"last_name"`
	Email          string     `db:"email"`
	Phone          string     `db:"phone"`
	PasswordHash   string     `db:"password_hash"`
	ProfilePicture *string    `db:"profile_picture"`
	IsActive       bool       `db:"is_active"`
	IsStaff        bool       `db:"is_staff"`
	IsSuperuser    bool       `db:"is_superuser"`
	LastLogin      *time.Time `db:"last_login"`
}

// FullName capitalises each name part.
func (u *User) FullName() string {
	return strings.TrimSpace(capitalize(u.FirstName) + " " + capitalize(u.LastName))
}

func (u *User) IsNew(now time.Time) bool {
	return now.Sub(u.CreatedAt) <= NewWindow
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

type AuthToken struct {
	Digest    string     `db:"digest"`
	TokenKey  string     `db:"token_key"`
	UserID    string     `db:"user_id"`
	CreatedAt time.Time  `db:"created_at"`
	Expiry    *time.Time `db:"expiry"`
}

type PaymentMethod struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	Name             string    `db:"name"`
	MpesaPhoneNumber string    `db:"mpesa_phone_number"`
	CreatedAt        time.Time `db:"created_at"`
}
