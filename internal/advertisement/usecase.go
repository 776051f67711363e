package advertisement

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/advertisement/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
)

type UseCase interface {
	CreateAdvertisement(ctx context.Context, input *dto.CreateAdvertisementInput) (*model.Advertisement, error)
	GetAdvertisement(ctx context.Context, id string) (*model.Advertisement, error)
	ViewAdvertisement(ctx context.Context, id string) (*model.Advertisement, error)
	ListAdvertisements(ctx context.Context, filters *dto.AdvertisementFilters) ([]model.Advertisement, int, error)
	TopAdvertisements(ctx context.Context, classification string) ([]model.Advertisement, error)
	FeaturedAdvertisements(ctx context.Context) ([]model.Advertisement, error)
	UpdateAdvertisement(ctx context.Context, input *dto.UpdateAdvertisementInput) (*model.Advertisement, error)
	DeleteAdvertisement(ctx context.Context, id string) error

	AddPhotos(ctx context.Context, advertisementID string, photos []*storage.Upload) (*model.Advertisement, error)
	DeletePhoto(ctx context.Context, advertisementID, photoID string) error
}
