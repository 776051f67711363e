package model

import "time"

type Advertisement struct {
	BaseModel
	UserID         string               `db:"user_id" json:"user_id"`
	CategoryID     string               `db:"category_id" json:"category_id"`
	Title          string               `db:"title" json:"title"`
	Description    string               `db:"description" json:"description"`
	County         string               `db:"county" json:"county"`
	SubCounty      string               `db:"sub_county" json:"sub_county"`
	GeoLocation    *string              `db:"geo_location" json:"geo_location"`
	Views          int                  `db:"views" json:"views"`
	CategoryName   string               `db:"category_name" json:"category_name"`
	Classification string               `db:"classification" json:"classification"`
	Photos         []AdvertisementPhoto `db:"-" json:"photos"`
}

func (a *Advertisement) IsNew(now time.Time) bool {
	return now.Sub(a.CreatedAt) <= NewWindow
}

type AdvertisementPhoto struct {
	ID              string    `db:"id" json:"id"`
	AdvertisementID string    `db:"advertisement_id" json:"advertisement_id"`
	Photo           string    `db:"photo" json:"photo"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type Review struct {
	ID              string    `db:"id"`
	AdvertisementID string    `db:"advertisement_id"`
	UserID          string    `db:"user_id"`
	Message         string    `db:"message"`
	Rating          int       `db:"rating"`
	CreatedAt       time.Time `db:"created_at"`
	ReviewerName    string    `db:"reviewer_name"`
}
