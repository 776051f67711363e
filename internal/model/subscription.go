package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubscriptionPackage struct {
	BaseModel
	Name        string            `db:"name"`
	Description string            `db:"description"`
	Duration    int               `db:"duration"`
	Pricing     decimal.Decimal   `db:"pricing"`
	Offerings   []PackageOffering `db:"-"`
}

type PackageOffering struct {
	ID        string `db:"id"`
	PackageID string `db:"package_id"`
	Offering  string `db:"offering"`
}

type Subscription struct {
	BaseModel
	UserID      string    `db:"user_id"`
	PackageID   string    `db:"package_id"`
	PaymentID   string    `db:"payment_id"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	Active      bool      `db:"active"`
	PackageName string    `db:"package_name"`
}

// Current reports whether the subscription is active and not past its end date.
func (s *Subscription) Current(today time.Time) bool {
	return s.Active && !Date(s.EndDate).Before(Date(today))
}

type FeaturedAdvertisement struct {
	ID              string    `db:"id"`
	SubscriptionID  string    `db:"subscription_id"`
	AdvertisementID string    `db:"advertisement_id"`
	CreatedAt       time.Time `db:"created_at"`
}
