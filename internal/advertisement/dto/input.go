package dto

import "github.com/agriconnectke/marketplace-service/internal/pkg/storage"

type CreateAdvertisementInput struct {
	UserID      string
	CategoryID  string
	Title       string
	Description string
	County      string
	SubCounty   string
	GeoLocation *string
	Photos      []*storage.Upload
}

// UpdateAdvertisementInput carries only the fields the client sent when
// Partial is set; otherwise every field is required.
type UpdateAdvertisementInput struct {
	ID             string
	Partial        bool
	CategoryID     *string
	Title          *string
	Description    *string
	County         *string
	SubCounty      *string
	GeoLocationSet bool
	GeoLocation    *string
	Photos         []*storage.Upload
}
