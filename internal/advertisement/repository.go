package advertisement

import (
	"context"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/advertisement/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, ad *model.Advertisement) error
	FindByID(ctx context.Context, id string) (*model.Advertisement, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Advertisement, error)
	FindAll(ctx context.Context, filters *dto.AdvertisementFilters) ([]model.Advertisement, int, error)
	FindTop(ctx context.Context, classification string, limit int) ([]model.Advertisement, error)
	FindFeatured(ctx context.Context, today time.Time) ([]model.Advertisement, error)
	Update(ctx context.Context, ad *model.Advertisement) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error

	CategoryExists(ctx context.Context, id string) (bool, error)

	AddPhoto(ctx context.Context, photo *model.AdvertisementPhoto) error
	FindPhoto(ctx context.Context, id string) (*model.AdvertisementPhoto, error)
	DeletePhoto(ctx context.Context, id string) error
}
