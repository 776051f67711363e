package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/analytics"
	"github.com/agriconnectke/marketplace-service/internal/analytics/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	reportCacheKey = "analytics:all"
	reportCacheTTL = time.Minute
)

type analyticsUseCase struct {
	repo   analytics.Repository
	cache  cache.Store
	logger logger.ZapLogger
	now    func() time.Time
}

func NewAnalyticsUseCase(repo analytics.Repository, c cache.Store, log logger.ZapLogger) analytics.UseCase {
	return &analyticsUseCase{
		repo:   repo,
		cache:  c,
		logger: log,
		now:    model.Now,
	}
}

func (uc *analyticsUseCase) Track(ctx context.Context, page *model.PageVisit, site *model.SiteVisit) error {
	return uc.repo.RecordVisit(ctx, page, site)
}

func (uc *analyticsUseCase) Users(ctx context.Context) (*dto.UserReport, error) {
	return uc.repo.Users(ctx, uc.now())
}

func (uc *analyticsUseCase) Advertisements(ctx context.Context) (*dto.AdvertisementReport, error) {
	return uc.repo.Advertisements(ctx, uc.now())
}

func (uc *analyticsUseCase) Categories(ctx context.Context) (*dto.CategoryReport, error) {
	return uc.repo.Categories(ctx)
}

func (uc *analyticsUseCase) Subscriptions(ctx context.Context) (*dto.SubscriptionReport, error) {
	return uc.repo.Subscriptions(ctx, uc.now())
}

func (uc *analyticsUseCase) Featured(ctx context.Context) (*dto.FeaturedReport, error) {
	return uc.repo.Featured(ctx)
}

func (uc *analyticsUseCase) Packages(ctx context.Context) (*dto.PackageReport, error) {
	return uc.repo.Packages(ctx)
}

func (uc *analyticsUseCase) APITraffic(ctx context.Context) (*dto.APITrafficReport, error) {
	return uc.repo.APITraffic(ctx)
}

func (uc *analyticsUseCase) SiteVisits(ctx context.Context) (*dto.SiteVisitReport, error) {
	return uc.repo.SiteVisits(ctx, uc.now())
}

// All builds every report concurrently and caches the result for a minute.
func (uc *analyticsUseCase) All(ctx context.Context) (*dto.Report, error) {
	if cached, err := uc.cache.Get(ctx, reportCacheKey); err == nil {
		var rep dto.Report
		if err := json.Unmarshal(cached, &rep); err == nil {
			return &rep, nil
		}
	}

	rep := &dto.Report{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { rep.Users, err = uc.Users(gctx); return })
	g.Go(func() (err error) { rep.Advertisements, err = uc.Advertisements(gctx); return })
	g.Go(func() (err error) { rep.Categories, err = uc.Categories(gctx); return })
	g.Go(func() (err error) { rep.Subscriptions, err = uc.Subscriptions(gctx); return })
	g.Go(func() (err error) { rep.Featured, err = uc.Featured(gctx); return })
	g.Go(func() (err error) { rep.Packages, err = uc.Packages(gctx); return })
	g.Go(func() (err error) { rep.APITraffic, err = uc.APITraffic(gctx); return })
	g.Go(func() (err error) { rep.SiteVisits, err = uc.SiteVisits(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rep); err == nil {
		if err := uc.cache.Set(ctx, reportCacheKey, data, reportCacheTTL); err != nil {
			uc.logger.Warn("failed to cache analytics report", zap.Error(err))
		}
	}
	return rep, nil
}
