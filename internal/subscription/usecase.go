package subscription

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/subscription/dto"
)

type UseCase interface {
	ListPackages(ctx context.Context) ([]model.SubscriptionPackage, error)
	GetPackage(ctx context.Context, id string) (*model.SubscriptionPackage, error)
	CreatePackage(ctx context.Context, input *dto.PackageInput) (*model.SubscriptionPackage, error)
	UpdatePackage(ctx context.Context, input *dto.UpdatePackageInput) (*model.SubscriptionPackage, error)
	DeletePackage(ctx context.Context, id string) error

	Subscribe(ctx context.Context, input *dto.SubscribeInput) (*model.Subscription, *model.Payment, error)
	ListSubscriptions(ctx context.Context, filters *dto.SubscriptionFilters) ([]model.Subscription, int, error)
	GetSubscription(ctx context.Context, id string) (*model.Subscription, error)
	RefreshSubscription(ctx context.Context, id string) (*model.Subscription, error)

	FeatureAdvertisement(ctx context.Context, input *dto.FeatureInput) (*model.FeaturedAdvertisement, error)
	ListFeatured(ctx context.Context, subscriptionID string) ([]model.FeaturedAdvertisement, error)
}
