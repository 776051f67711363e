package dto

import "github.com/shopspring/decimal"

type PackageInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Duration    *int             `json:"duration"`
	Pricing     *decimal.Decimal `json:"pricing"`
	Offerings   []string         `json:"offerings"`
}

// UpdatePackageInput carries a PUT (every field) or PATCH (Partial) body.
type UpdatePackageInput struct {
	ID          string           `json:"-"`
	Partial     bool             `json:"-"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Duration    *int             `json:"duration"`
	Pricing     *decimal.Decimal `json:"pricing"`
	Offerings   *[]string        `json:"offerings"`
}

type PaymentDetails struct {
	MSISDN        string  `json:"msisdn"`
	FirstName     string  `json:"first_name"`
	MiddleName    *string `json:"middle_name"`
	LastName      string  `json:"last_name"`
	BillRefNumber string  `json:"bill_ref_number"`
}

type SubscribeInput struct {
	UserID    string         `json:"-"`
	PackageID string         `json:"package"`
	Payment   PaymentDetails `json:"payment"`
}

type FeatureInput struct {
	UserID          string `json:"-"`
	SubscriptionID  string `json:"-"`
	AdvertisementID string `json:"advertisement"`
}
