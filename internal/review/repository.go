package review

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, review *model.Review) error
	ListByAdvertisement(ctx context.Context, advertisementID string) ([]model.Review, error)
	// AdvertisementOwner returns "" when the advertisement does not exist.
	AdvertisementOwner(ctx context.Context, advertisementID string) (string, error)
}
