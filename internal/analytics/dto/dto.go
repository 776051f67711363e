package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money renders as a string with two decimal places.
type Money struct {
	decimal.Decimal
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.StringFixed(2))
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}

type UserReport struct {
	TotalUsers       int `json:"total_users"`
	ActiveUsers      int `json:"active_users"`
	InactiveUsers    int `json:"inactive_users"`
	NewUsersLastWeek int `json:"new_users_last_week"`
}

type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int    `db:"count" json:"count"`
}

type ViewedAd struct {
	ID    string `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
	Views int    `db:"views" json:"views"`
}

type AdvertisementReport struct {
	TotalAds          int             `json:"total_ads"`
	AdsByCategory     []CategoryCount `json:"ads_by_category"`
	MostViewedAds     []ViewedAd      `json:"most_viewed_ads"`
	AvgViewsLastMonth *float64        `json:"avg_views_last_month"`
}

type ClassificationCount struct {
	Classification string `db:"classification" json:"classification"`
	Count          int    `db:"count" json:"count"`
}

type CategoryReport struct {
	TotalCategories            int                   `json:"total_categories"`
	CategoriesByClassification []ClassificationCount `json:"categories_by_classification"`
	TopLevelCategories         int                   `json:"top_level_categories"`
}

type PackageCount struct {
	Package string `db:"package" json:"package"`
	Count   int    `db:"count" json:"count"`
}

type SubscriptionReport struct {
	TotalSubscriptions     int            `json:"total_subscriptions"`
	ActiveSubscriptions    int            `json:"active_subscriptions"`
	SubscriptionsByPackage []PackageCount `json:"subscriptions_by_package"`
	TotalRevenue           Money          `json:"total_revenue"`
	RevenueLastMonth       Money          `json:"revenue_last_month"`
}

type FeaturedReport struct {
	TotalFeaturedAds     int            `json:"total_featured_ads"`
	FeaturedAdsByPackage []PackageCount `json:"featured_ads_by_package"`
}

type DurationCount struct {
	Duration int `db:"duration" json:"duration"`
	Count    int `db:"count" json:"count"`
}

type PackageReport struct {
	TotalPackages      int             `json:"total_packages"`
	PackagesByDuration []DurationCount `json:"packages_by_duration"`
	MostPopularPackage *PackageCount   `json:"most_popular_package"`
}

type EndpointCount struct {
	Path      string `db:"path" json:"path"`
	Method    string `db:"method" json:"method"`
	CallCount int    `db:"call_count" json:"call_count"`
}

type UserCallCount struct {
	Email     string `db:"email" json:"email"`
	CallCount int    `db:"call_count" json:"call_count"`
}

type APITrafficReport struct {
	TotalAPICalls      int             `json:"total_api_calls"`
	TopEndpoints       []EndpointCount `json:"top_endpoints"`
	AuthenticatedCalls int             `json:"authenticated_calls"`
	AnonymousCalls     int             `json:"anonymous_calls"`
	TopUsers           []UserCallCount `json:"top_users"`
}

type PageCount struct {
	Path       string `db:"path" json:"path"`
	VisitCount int    `db:"visit_count" json:"visit_count"`
}

type SiteVisitReport struct {
	TotalVisits    int         `json:"total_visits"`
	VisitsToday    int         `json:"visits_today"`
	VisitsLastWeek int         `json:"visits_last_week"`
	TopPages       []PageCount `json:"top_pages"`
	UniqueVisitors int         `json:"unique_visitors"`
}

type Report struct {
	Users          *UserReport          `json:"user_analytics"`
	Advertisements *AdvertisementReport `json:"advertisement_analytics"`
	Categories     *CategoryReport      `json:"category_analytics"`
	Subscriptions  *SubscriptionReport  `json:"subscription_payment_analytics"`
	Featured       *FeaturedReport      `json:"featured_ad_analytics"`
	Packages       *PackageReport       `json:"package_analytics"`
	APITraffic     *APITrafficReport    `json:"api_traffic_analytics"`
	SiteVisits     *SiteVisitReport     `json:"site_visit_analytics"`
}
