package usecase

import (
	"context"
	"strings"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/review"
	"github.com/agriconnectke/marketplace-service/internal/review/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minRating     = 1
	maxRating     = 5
	defaultRating = 1
)

type reviewUseCase struct {
	repo   review.Repository
	logger logger.ZapLogger
}

func NewReviewUseCase(repo review.Repository, log logger.ZapLogger) review.UseCase {
	return &reviewUseCase{repo: repo, logger: log}
}

func (uc *reviewUseCase) CreateReview(ctx context.Context, input *dto.CreateReviewInput) (*model.Review, error) {
	ve := apperror.NewValidation()
	message := strings.TrimSpace(input.Message)
	if message == "" {
		ve.Add("message", "This field may not be blank.")
	}
	rating := defaultRating
	if input.Rating != nil {
		rating = *input.Rating
	}
	if rating < minRating {
		ve.Add("rating", "Ensure this value is greater than or equal to 1.")
	} else if rating > maxRating {
		ve.Add("rating", "Ensure this value is less than or equal to 5.")
	}

	var owner string
	if input.AdvertisementID == "" {
		ve.Add("advertisement", "This field is required.")
	} else {
		var err error
		owner, err = uc.repo.AdvertisementOwner(ctx, input.AdvertisementID)
		if err != nil {
			return nil, err
		}
		if owner == "" {
			ve.Add("advertisement", `Invalid pk "`+input.AdvertisementID+`" - object does not exist.`)
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	if owner == input.UserID {
		return nil, apperror.ErrOwnAdvertReview
	}

	rv := &model.Review{
		ID:              uuid.New().String(),
		AdvertisementID: input.AdvertisementID,
		UserID:          input.UserID,
		Message:         message,
		Rating:          rating,
		CreatedAt:       model.Now(),
	}
	if err := uc.repo.Create(ctx, rv); err != nil {
		return nil, err
	}
	uc.logger.Info("review created", zap.String("advertisement_id", rv.AdvertisementID), zap.Int("rating", rating))
	return rv, nil
}

func (uc *reviewUseCase) ListForAdvertisement(ctx context.Context, advertisementID string) ([]model.Review, error) {
	owner, err := uc.repo.AdvertisementOwner(ctx, advertisementID)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, apperror.ErrAdvertisementNotFound
	}
	return uc.repo.ListByAdvertisement(ctx, advertisementID)
}
