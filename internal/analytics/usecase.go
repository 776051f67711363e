package analytics

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/analytics/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
)

type UseCase interface {
	Track(ctx context.Context, page *model.PageVisit, site *model.SiteVisit) error

	Users(ctx context.Context) (*dto.UserReport, error)
	Advertisements(ctx context.Context) (*dto.AdvertisementReport, error)
	Categories(ctx context.Context) (*dto.CategoryReport, error)
	Subscriptions(ctx context.Context) (*dto.SubscriptionReport, error)
	Featured(ctx context.Context) (*dto.FeaturedReport, error)
	Packages(ctx context.Context) (*dto.PackageReport, error)
	APITraffic(ctx context.Context) (*dto.APITrafficReport, error)
	SiteVisits(ctx context.Context) (*dto.SiteVisitReport, error)
	All(ctx context.Context) (*dto.Report, error)
}
