package usecase

import (
	"context"
	"testing"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/review/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, rv *model.Review) error {
	return m.Called(ctx, rv).Error(0)
}

func (m *mockRepository) ListByAdvertisement(ctx context.Context, advertisementID string) ([]model.Review, error) {
	args := m.Called(ctx, advertisementID)
	reviews, _ := args.Get(0).([]model.Review)
	return reviews, args.Error(1)
}

func (m *mockRepository) AdvertisementOwner(ctx context.Context, advertisementID string) (string, error) {
	args := m.Called(ctx, advertisementID)
	return args.String(0), args.Error(1)
}

func intPtr(v int) *int { return &v }

func TestCreateReview(t *testing.T) {
	repo := new(mockRepository)
	repo.On("AdvertisementOwner", mock.Anything, "ad-1").Return("seller", nil)
	repo.On("AdvertisementOwner", mock.Anything, "ghost").Return("", nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(rv *model.Review) bool {
		return rv.AdvertisementID == "ad-1" && rv.UserID == "buyer" && rv.ID != ""
	})).Return(nil).Once()

	uc := NewReviewUseCase(repo, logger.NewNop())
	ctx := context.Background()

	rv, err := uc.CreateReview(ctx, &dto.CreateReviewInput{UserID: "buyer", AdvertisementID: "ad-1", Message: " Great seller ", Rating: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, "Great seller", rv.Message)
	assert.Equal(t, 5, rv.Rating)

	_, err = uc.CreateReview(ctx, &dto.CreateReviewInput{UserID: "seller", AdvertisementID: "ad-1", Message: "Buy mine"})
	assert.ErrorIs(t, err, apperror.ErrOwnAdvertReview)

	_, err = uc.CreateReview(ctx, &dto.CreateReviewInput{UserID: "buyer", AdvertisementID: "ghost", Message: "", Rating: intPtr(6)})
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{
		"advertisement": `Invalid pk "ghost" - object does not exist.`,
		"message":       "This field may not be blank.",
		"rating":        "Ensure this value is less than or equal to 5.",
	}, ve.Fields)

	repo.AssertExpectations(t)
}

func TestCreateReviewDefaultsRating(t *testing.T) {
	repo := new(mockRepository)
	repo.On("AdvertisementOwner", mock.Anything, "ad-1").Return("seller", nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	rv, err := NewReviewUseCase(repo, logger.NewNop()).CreateReview(context.Background(),
		&dto.CreateReviewInput{UserID: "buyer", AdvertisementID: "ad-1", Message: "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1, rv.Rating)
}

func TestListForAdvertisement(t *testing.T) {
	repo := new(mockRepository)
	repo.On("AdvertisementOwner", mock.Anything, "ad-1").Return("seller", nil)
	repo.On("AdvertisementOwner", mock.Anything, "ghost").Return("", nil)
	repo.On("ListByAdvertisement", mock.Anything, "ad-1").Return([]model.Review{{ID: "r1", Rating: 4}}, nil)

	uc := NewReviewUseCase(repo, logger.NewNop())
	reviews, err := uc.ListForAdvertisement(context.Background(), "ad-1")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	_, err = uc.ListForAdvertisement(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrAdvertisementNotFound)
}
