package review

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/review/dto"
)

type UseCase interface {
	CreateReview(ctx context.Context, input *dto.CreateReviewInput) (*model.Review, error)
	ListForAdvertisement(ctx context.Context, advertisementID string) ([]model.Review, error)
}
