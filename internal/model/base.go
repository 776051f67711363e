package model

import "time"

type BaseModel struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Now is the current UTC time at database precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Date truncates t to midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewWindow is how long an account or advert counts as new.
const NewWindow = 7 * 24 * time.Hour
