package handler

import (
	"context"
	"net/http"

	"github.com/agriconnectke/marketplace-service/internal/analytics"
	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/gorilla/mux"
)

type AnalyticsHandler struct {
	uc     analytics.UseCase
	logger logger.ZapLogger
}

func NewAnalyticsHandler(uc analytics.UseCase, log logger.ZapLogger) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc, logger: log}
}

func (h *AnalyticsHandler) Register(r *mux.Router, mw *auth.Middleware) {
	routes := []struct {
		path, name string
		report     func(ctx context.Context) (interface{}, error)
	}{
		{"/analytics", "all-analytics", func(ctx context.Context) (interface{}, error) { return h.uc.All(ctx) }},
		{"/analytics/users", "user-analytics", func(ctx context.Context) (interface{}, error) { return h.uc.Users(ctx) }},
		{"/analytics/advertisements", "ad-analytics", func(ctx context.Context) (interface{}, error) { return h.uc.Advertisements(ctx) }},
		{"/analytics/categories", "category-analytics", func(ctx context.Context) (interface{}, error) { return h.uc.Categories(ctx) }},
		{"/analytics/subscriptions", "sub-payment-analytics", func(ctx context.Context) (interface{}, error) { return h.uc.Subscriptions(ctx) }},
		{"/analytics/featured-ads", "featured-ad-analytics", func(ctx context.Context) (interface{}, error) { return h.uc.Featured(ctx) }},
		{"/analytics/packages", "package-analytics", func(ctx context.Context) (interface{}, error) { return h.uc.Packages(ctx) }},
		{"/analytics/api-traffic", "api-traffic-analytics", func(ctx context.Context) (interface{}, error) { return h.uc.APITraffic(ctx) }},
		{"/analytics/site-visits", "site-visit-analytics", func(ctx context.Context) (interface{}, error) { return h.uc.SiteVisits(ctx) }},
	}
	for _, rt := range routes {
		r.Handle(rt.path, mw.RequireStaff(h.serve(rt.report))).Methods(http.MethodGet).Name(rt.name)
	}
}

func (h *AnalyticsHandler) serve(report func(ctx context.Context) (interface{}, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rep, err := report(r.Context())
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, rep)
	})
}
