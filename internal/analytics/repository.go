package analytics

import (
	"context"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/analytics/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
)

// Repository aggregates reports as of now.
type Repository interface {
	RecordVisit(ctx context.Context, page *model.PageVisit, site *model.SiteVisit) error

	Users(ctx context.Context, now time.Time) (*dto.UserReport, error)
	Advertisements(ctx context.Context, now time.Time) (*dto.AdvertisementReport, error)
	Categories(ctx context.Context) (*dto.CategoryReport, error)
	Subscriptions(ctx context.Context, now time.Time) (*dto.SubscriptionReport, error)
	Featured(ctx context.Context) (*dto.FeaturedReport, error)
	Packages(ctx context.Context) (*dto.PackageReport, error)
	APITraffic(ctx context.Context) (*dto.APITrafficReport, error)
	SiteVisits(ctx context.Context, now time.Time) (*dto.SiteVisitReport, error)
}
