package handler

import (
	"net/http"
	"strconv"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/subscription"
	"github.com/agriconnectke/marketplace-service/internal/subscription/dto"
	"github.com/gorilla/mux"
)

type SubscriptionHandler struct {
	uc     subscription.UseCase
	logger logger.ZapLogger
}

func NewSubscriptionHandler(uc subscription.UseCase, log logger.ZapLogger) *SubscriptionHandler {
	return &SubscriptionHandler{uc: uc, logger: log}
}

func (h *SubscriptionHandler) Register(r *mux.Router, mw *auth.Middleware) {
	r.HandleFunc("/subscription/packages", h.ListPackages).Methods(http.MethodGet).Name("package-list")
	r.Handle("/subscription/packages/new", mw.RequireStaff(http.HandlerFunc(h.CreatePackage))).Methods(http.MethodPost).Name("new-package")
	r.HandleFunc("/subscription/packages/{id}", h.GetPackage).Methods(http.MethodGet).Name("package-detail")
	r.Handle("/subscription/packages/{id}", mw.RequireStaff(http.HandlerFunc(h.UpdatePackage))).Methods(http.MethodPut, http.MethodPatch)
	r.Handle("/subscription/packages/{id}", mw.RequireStaff(http.HandlerFunc(h.DeletePackage))).Methods(http.MethodDelete)

	r.Handle("/subscriptions", mw.RequireStaff(http.HandlerFunc(h.List))).Methods(http.MethodGet).Name("subscription-list")
	r.Handle("/subscriptions/new", mw.RequireAuth(http.HandlerFunc(h.Subscribe))).Methods(http.MethodPost).Name("new-subscription")
	r.Handle("/subscriptions/mine", mw.RequireAuth(http.HandlerFunc(h.ListMine))).Methods(http.MethodGet).Name("subscription-history")
	r.Handle("/subscription/{id}", mw.RequireAuth(http.HandlerFunc(h.Get))).Methods(http.MethodGet).Name("subscription-detail")
	r.Handle("/subscription/{id}/refresh", mw.RequireAuth(http.HandlerFunc(h.Refresh))).Methods(http.MethodPost).Name("subscription-refresh")
	r.Handle("/subscription/{id}/feature", mw.RequireAuth(http.HandlerFunc(h.Feature))).Methods(http.MethodPost).Name("feature-advertisement")
	r.Handle("/subscription/{id}/featured", mw.RequireAuth(http.HandlerFunc(h.ListFeatured))).Methods(http.MethodGet).Name("featured-list")
}

func (h *SubscriptionHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.uc.ListPackages(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewPackageList(pkgs))
}

func (h *SubscriptionHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var input dto.PackageInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	p, err := h.uc.CreatePackage(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dto.NewPackageResponse(p))
}

func (h *SubscriptionHandler) GetPackage(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetPackage(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewPackageResponse(p))
}

func (h *SubscriptionHandler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	var input dto.UpdatePackageInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.ID = mux.Vars(r)["id"]
	input.Partial = r.Method == http.MethodPatch

	p, err := h.uc.UpdatePackage(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewPackageResponse(p))
}

func (h *SubscriptionHandler) DeletePackage(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeletePackage(r.Context(), mux.Vars(r)["id"]); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}

func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var input dto.SubscribeInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.UserID = auth.GetUserID(r.Context())

	sub, pay, err := h.uc.Subscribe(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dto.NewSubscribeResponse(sub, pay))
}

func (h *SubscriptionHandler) list(w http.ResponseWriter, r *http.Request, userID string) {
	p := httpx.ParsePage(r)
	filters := &dto.SubscriptionFilters{UserID: userID, Page: p.Page, PageSize: p.PageSize}
	if v, err := strconv.ParseBool(r.URL.Query().Get("active")); err == nil {
		filters.Active = &v
	}
	subs, count, err := h.uc.ListSubscriptions(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(r, dto.NewSubscriptionList(subs), count, p))
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("user"))
}

func (h *SubscriptionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, auth.GetUserID(r.Context()))
}

func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.uc.GetSubscription(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewSubscriptionResponse(s))
}

func (h *SubscriptionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, err := h.uc.RefreshSubscription(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewSubscriptionResponse(s))
}

func (h *SubscriptionHandler) Feature(w http.ResponseWriter, r *http.Request) {
	var input dto.FeatureInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.UserID = auth.GetUserID(r.Context())
	input.SubscriptionID = mux.Vars(r)["id"]

	f, err := h.uc.FeatureAdvertisement(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dto.NewFeaturedResponse(f))
}

func (h *SubscriptionHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	featured, err := h.uc.ListFeatured(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	out := make([]dto.FeaturedResponse, len(featured))
	for i := range featured {
		out[i] = dto.NewFeaturedResponse(&featured[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}
