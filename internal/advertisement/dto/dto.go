package dto

import (
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
)

type AdvertisementFilters struct {
	CategoryID     string `json:"category_id,omitempty"`
	Classification string `json:"classification,omitempty"`
	County         string `json:"county,omitempty"`
	Search         string `json:"search,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	Page           int    `json:"page"`
	PageSize       int    `json:"page_size"`
}

type PhotoResponse struct {
	ID    string `json:"id"`
	Photo string `json:"photo"`
}

type AdvertisementResponse struct {
	ID                  string          `json:"id"`
	User                string          `json:"user"`
	Category            string          `json:"category"`
	CategoryName        string          `json:"category_name"`
	Classification      string          `json:"classification"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	County              string          `json:"county"`
	SubCounty           string          `json:"sub_county"`
	GeoLocation         *string         `json:"geo_location"`
	Views               int             `json:"views"`
	IsNew               bool            `json:"is_new"`
	CreatedOn           time.Time       `json:"created_on"`
	UpdatedOn           time.Time       `json:"updated_on"`
	AdvertisementPhotos []PhotoResponse `json:"advertisement_photos"`
}

func NewAdvertisementResponse(a *model.Advertisement, urlFor func(string) string, now time.Time) AdvertisementResponse {
	resp := AdvertisementResponse{
		ID:                  a.ID,
		User:                a.UserID,
		Category:            a.CategoryID,
		CategoryName:        a.CategoryName,
		Classification:      a.Classification,
		Title:               a.Title,
		Description:         a.Description,
		County:              a.County,
		SubCounty:           a.SubCounty,
		GeoLocation:         a.GeoLocation,
		Views:               a.Views,
		IsNew:               a.IsNew(now),
		CreatedOn:           a.CreatedAt,
		UpdatedOn:           a.UpdatedAt,
		AdvertisementPhotos: make([]PhotoResponse, len(a.Photos)),
	}
	for i, p := range a.Photos {
		resp.AdvertisementPhotos[i] = PhotoResponse{ID: p.ID, Photo: urlFor(p.Photo)}
	}
	return resp
}

func NewAdvertisementList(ads []model.Advertisement, urlFor func(string) string, now time.Time) []AdvertisementResponse {
	out := make([]AdvertisementResponse, len(ads))
	for i := range ads {
		out[i] = NewAdvertisementResponse(&ads[i], urlFor, now)
	}
	return out
}
