package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/analytics/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const topN = 10

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) RecordVisit(ctx context.Context, page *model.PageVisit, site *model.SiteVisit) error {
	if page != nil {
		query := `
            INSERT INTO page_visits (id, user_id, token_key, ip_address, path, method, is_api_call, referer, user_agent, visited_at)
            VALUES (:id, :user_id, :token_key, :ip_address, :path, :method, :is_api_call, :referer, :user_agent, :visited_at)
        `
		if _, err := r.DB.NamedExecContext(ctx, query, page); err != nil {
			return fmt.Errorf("insert page visit: %w", err)
		}
	}
	if site != nil {
		query := `
            INSERT INTO site_visits (id, ip_address, user_agent, path, visited_at)
            VALUES (:id, :ip_address, :user_agent, :path, :visited_at)
        `
		if _, err := r.DB.NamedExecContext(ctx, query, site); err != nil {
			return fmt.Errorf("insert site visit: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind(query), args...)
	return n, err
}

func (r *PGRepository) counts(ctx context.Context, queries map[*int]string, args map[*int][]interface{}) error {
	for dst, q := range queries {
		n, err := r.count(ctx, q, args[dst]...)
		if err != nil {
			return err
		}
		*dst = n
	}
	return nil
}

func (r *PGRepository) selectTop(ctx context.Context, dst interface{}, query string, args ...interface{}) error {
	return r.DB.SelectContext(ctx, dst, r.DB.Rebind(fmt.Sprintf("%s LIMIT %d", query, topN)), args...)
}

func (r *PGRepository) Users(ctx context.Context, now time.Time) (*dto.UserReport, error) {
	rep := &dto.UserReport{}
	err := r.counts(ctx, map[*int]string{
		&rep.TotalUsers:       "SELECT count(*) FROM users",
		&rep.ActiveUsers:      "SELECT count(*) FROM users WHERE is_active = ?",
		&rep.NewUsersLastWeek: "SELECT count(*) FROM users WHERE created_at >= ?",
	}, map[*int][]interface{}{
		&rep.ActiveUsers:      {true},
		&rep.NewUsersLastWeek: {now.AddDate(0, 0, -7)},
	})
	if err != nil {
		return nil, err
	}
	rep.InactiveUsers = rep.TotalUsers - rep.ActiveUsers
	return rep, nil
}

func (r *PGRepository) Advertisements(ctx context.Context, now time.Time) (*dto.AdvertisementReport, error) {
	rep := &dto.AdvertisementReport{
		AdsByCategory: []dto.CategoryCount{},
		MostViewedAds: []dto.ViewedAd{},
	}
	var err error
	if rep.TotalAds, err = r.count(ctx, "SELECT count(*) FROM advertisements"); err != nil {
		return nil, err
	}

	byCategory := `
        SELECT c.name AS category, count(a.id) AS count
        FROM advertisements a JOIN categories c ON c.id = a.category_id
        GROUP BY c.name ORDER BY count DESC, c.name`
	if err := r.DB.SelectContext(ctx, &rep.AdsByCategory, byCategory); err != nil {
		return nil, err
	}
	if err := r.selectTop(ctx, &rep.MostViewedAds,
		"SELECT id, title, views FROM advertisements ORDER BY views DESC, title"); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	query := r.DB.Rebind("SELECT AVG(views) FROM advertisements WHERE created_at >= ?")
	if err := r.DB.GetContext(ctx, &avg, query, now.AddDate(0, 0, -30)); err != nil {
		return nil, err
	}
	if avg.Valid {
		rep.AvgViewsLastMonth = &avg.Float64
	}
	return rep, nil
}

func (r *PGRepository) Categories(ctx context.Context) (*dto.CategoryReport, error) {
	rep := &dto.CategoryReport{CategoriesByClassification: []dto.ClassificationCount{}}
	err := r.counts(ctx, map[*int]string{
		&rep.TotalCategories:    "SELECT count(*) FROM categories",
		&rep.TopLevelCategories: "SELECT count(*) FROM categories WHERE parent_id IS NULL",
	}, nil)
	if err != nil {
		return nil, err
	}
	query := `
        SELECT classification, count(*) AS count FROM categories
        GROUP BY classification ORDER BY classification`
	if err := r.DB.SelectContext(ctx, &rep.CategoriesByClassification, query); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *PGRepository) revenue(ctx context.Context, since *time.Time) (decimal.Decimal, error) {
	query := "SELECT COALESCE(SUM(trans_amount), 0) FROM payments WHERE status = ?"
	args := []interface{}{model.PaymentCompleted}
	if since != nil {
		query += " AND trans_time >= ?"
		args = append(args, *since)
	}
	var total decimal.Decimal
	err := r.DB.GetContext(ctx, &total, r.DB.Rebind(query), args...)
	return total, err
}

func (r *PGRepository) Subscriptions(ctx context.Context, now time.Time) (*dto.SubscriptionReport, error) {
	rep := &dto.SubscriptionReport{SubscriptionsByPackage: []dto.PackageCount{}}
	err := r.counts(ctx, map[*int]string{
		&rep.TotalSubscriptions:  "SELECT count(*) FROM subscriptions",
		&rep.ActiveSubscriptions: "SELECT count(*) FROM subscriptions WHERE active = ?",
	}, map[*int][]interface{}{
		&rep.ActiveSubscriptions: {true},
	})
	if err != nil {
		return nil, err
	}

	byPackage := `
        SELECT p.name AS package, count(s.id) AS count
        FROM subscriptions s JOIN subscription_packages p ON p.id = s.package_id
        GROUP BY p.name ORDER BY count DESC, p.name`
	if err := r.DB.SelectContext(ctx, &rep.SubscriptionsByPackage, byPackage); err != nil {
		return nil, err
	}

	if rep.TotalRevenue.Decimal, err = r.revenue(ctx, nil); err != nil {
		return nil, err
	}
	since := now.AddDate(0, 0, -30)
	if rep.RevenueLastMonth.Decimal, err = r.revenue(ctx, &since); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *PGRepository) Featured(ctx context.Context) (*dto.FeaturedReport, error) {
	rep := &dto.FeaturedReport{FeaturedAdsByPackage: []dto.PackageCount{}}
	var err error
	if rep.TotalFeaturedAds, err = r.count(ctx, "SELECT count(*) FROM featured_advertisements"); err != nil {
		return nil, err
	}
	query := `
        SELECT p.name AS package, count(f.id) AS count
        FROM featured_advertisements f
        JOIN subscriptions s ON s.id = f.subscription_id
        JOIN subscription_packages p ON p.id = s.package_id
        GROUP BY p.name ORDER BY count DESC, p.name`
	if err := r.DB.SelectContext(ctx, &rep.FeaturedAdsByPackage, query); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *PGRepository) Packages(ctx context.Context) (*dto.PackageReport, error) {
	rep := &dto.PackageReport{PackagesByDuration: []dto.DurationCount{}}
	var err error
	if rep.TotalPackages, err = r.count(ctx, "SELECT count(*) FROM subscription_packages"); err != nil {
		return nil, err
	}
	byDuration := `
        SELECT duration, count(*) AS count FROM subscription_packages
        GROUP BY duration ORDER BY duration`
	if err := r.DB.SelectContext(ctx, &rep.PackagesByDuration, byDuration); err != nil {
		return nil, err
	}

	var popular dto.PackageCount
	query := `
        SELECT p.name AS package, count(s.id) AS count
        FROM subscriptions s JOIN subscription_packages p ON p.id = s.package_id
        GROUP BY p.name ORDER BY count DESC, p.name LIMIT 1`
	if err := r.DB.GetContext(ctx, &popular, query); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	} else {
		rep.MostPopularPackage = &popular
	}
	return rep, nil
}

func (r *PGRepository) APITraffic(ctx context.Context) (*dto.APITrafficReport, error) {
	rep := &dto.APITrafficReport{
		TopEndpoints: []dto.EndpointCount{},
		TopUsers:     []dto.UserCallCount{},
	}
	err := r.counts(ctx, map[*int]string{
		&rep.TotalAPICalls:      "SELECT count(*) FROM page_visits WHERE is_api_call = ?",
		&rep.AuthenticatedCalls: "SELECT count(*) FROM page_visits WHERE is_api_call = ? AND user_id IS NOT NULL",
		&rep.AnonymousCalls:     "SELECT count(*) FROM page_visits WHERE is_api_call = ? AND user_id IS NULL",
	}, map[*int][]interface{}{
		&rep.TotalAPICalls:      {true},
		&rep.AuthenticatedCalls: {true},
		&rep.AnonymousCalls:     {true},
	})
	if err != nil {
		return nil, err
	}

	endpoints := `
        SELECT path, method, count(*) AS call_count FROM page_visits
        WHERE is_api_call = ?
        GROUP BY path, method ORDER BY call_count DESC, path, method`
	if err := r.selectTop(ctx, &rep.TopEndpoints, endpoints, true); err != nil {
		return nil, err
	}
	users := `
        SELECT u.email AS email, count(v.id) AS call_count
        FROM page_visits v JOIN users u ON u.id = v.user_id
        WHERE v.is_api_call = ?
        GROUP BY u.email ORDER BY call_count DESC, u.email`
	if err := r.selectTop(ctx, &rep.TopUsers, users, true); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *PGRepository) SiteVisits(ctx context.Context, now time.Time) (*dto.SiteVisitReport, error) {
	rep := &dto.SiteVisitReport{TopPages: []dto.PageCount{}}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err := r.counts(ctx, map[*int]string{
		&rep.TotalVisits:    "SELECT count(*) FROM site_visits",
		&rep.VisitsToday:    "SELECT count(*) FROM site_visits WHERE visited_at >= ?",
		&rep.VisitsLastWeek: "SELECT count(*) FROM site_visits WHERE visited_at >= ?",
		&rep.UniqueVisitors: "SELECT count(DISTINCT ip_address) FROM site_visits",
	}, map[*int][]interface{}{
		&rep.VisitsToday:    {today},
		&rep.VisitsLastWeek: {now.AddDate(0, 0, -7)},
	})
	if err != nil {
		return nil, err
	}
	pages := `
        SELECT path, count(*) AS visit_count FROM site_visits
        GROUP BY path ORDER BY visit_count DESC, path`
	if err := r.selectTop(ctx, &rep.TopPages, pages); err != nil {
		return nil, err
	}
	return rep, nil
}
