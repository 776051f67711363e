package subscription

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/subscription/dto"
)

type Repository interface {
	CreatePackage(ctx context.Context, p *model.SubscriptionPackage) error
	FindPackageByID(ctx context.Context, id string) (*model.SubscriptionPackage, error)
	FindPackageByName(ctx context.Context, name string) (*model.SubscriptionPackage, error)
	FindPackages(ctx context.Context) ([]model.SubscriptionPackage, error)
	// UpdatePackage rewrites the package row and replaces its offerings.
	UpdatePackage(ctx context.Context, p *model.SubscriptionPackage) error
	DeletePackage(ctx context.Context, id string) error
	PackageInUse(ctx context.Context, id string) (bool, error)

	// CreatePending stores a pending payment and its inactive subscription
	// atomically.
	CreatePending(ctx context.Context, pay *model.Payment, sub *model.Subscription) error
	FindByID(ctx context.Context, id string) (*model.Subscription, error)
	FindAll(ctx context.Context, filters *dto.SubscriptionFilters) ([]model.Subscription, int, error)
	InvoiceTaken(ctx context.Context, invoiceNumber string) (bool, error)

	AdvertisementOwner(ctx context.Context, advertisementID string) (string, error)
	IsFeatured(ctx context.Context, subscriptionID, advertisementID string) (bool, error)
	CreateFeatured(ctx context.Context, f *model.FeaturedAdvertisement) error
	FindFeatured(ctx context.Context, subscriptionID string) ([]model.FeaturedAdvertisement, error)
}
