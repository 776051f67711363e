package model

import "time"

type SiteVisit struct {
	ID        string    `db:"id"`
	IPAddress string    `db:"ip_address"`
	UserAgent string    `db:"user_agent"`
	Path      string    `db:"path"`
	VisitedAt time.Time `db:"visited_at"`
}

type PageVisit struct {
	ID        string    `db:"id"`
	UserID    *string   `db:"user_id"`
	TokenKey  *string   `db:"token_key"`
	IPAddress string    `db:"ip_address"`
	Path      string    `db:"path"`
	Method    string    `db:"method"`
	IsAPICall bool      `db:"is_api_call"`
	Referer   *string   `db:"referer"`
	UserAgent *string   `db:"user_agent"`
	VisitedAt time.Time `db:"visited_at"`
}
