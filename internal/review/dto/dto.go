package dto

import (
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
)

type CreateReviewInput struct {
	UserID          string `json:"-"`
	AdvertisementID string `json:"advertisement"`
	Message         string `json:"message"`
	Rating          *int   `json:"rating"`
}

type ReviewResponse struct {
	ID            string    `json:"id"`
	Advertisement string    `json:"advertisement"`
	Message       string    `json:"message"`
	Rating        int       `json:"rating"`
	Reviewer      string    `json:"reviewer"`
	CreatedOn     time.Time `json:"created_on"`
}

func NewReviewResponse(r *model.Review) ReviewResponse {
	return ReviewResponse{
		ID:            r.ID,
		Advertisement: r.AdvertisementID,
		Message:       r.Message,
		Rating:        r.Rating,
		Reviewer:      r.ReviewerName,
		CreatedOn:     r.CreatedAt,
	}
}
