package handler

import (
	"net/http"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/review"
	"github.com/agriconnectke/marketplace-service/internal/review/dto"
	"github.com/gorilla/mux"
)

type ReviewHandler struct {
	uc     review.UseCase
	logger logger.ZapLogger
}

func NewReviewHandler(uc review.UseCase, log logger.ZapLogger) *ReviewHandler {
	return &ReviewHandler{uc: uc, logger: log}
}

func (h *ReviewHandler) Register(r *mux.Router, mw *auth.Middleware) {
	r.Handle("/reviews/new", mw.RequireAuth(http.HandlerFunc(h.Create))).Methods(http.MethodPost).Name("new-review")
	r.Handle("/reviews/{advertisement_id}", mw.RequireAuth(http.HandlerFunc(h.List))).Methods(http.MethodGet).Name("review-list")
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateReviewInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.UserID = auth.GetUserID(r.Context())

	rv, err := h.uc.CreateReview(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dto.NewReviewResponse(rv))
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.uc.ListForAdvertisement(r.Context(), mux.Vars(r)["advertisement_id"])
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	out := make([]dto.ReviewResponse, len(reviews))
	for i := range reviews {
		out[i] = dto.NewReviewResponse(&reviews[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}
