package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/advertisement/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const selectAdverts = `
    SELECT a.id, a.user_id, a.category_id, a.title, a.description, a.county, a.sub_county,
           a.geo_location, a.views, a.created_at, a.updated_at,
           c.name AS category_name, c.classification
    FROM advertisements a
    JOIN categories c ON c.id = a.category_id`

func (r *PGRepository) Create(ctx context.Context, ad *model.Advertisement) error {
	query := `
        INSERT INTO advertisements (
            id, user_id, category_id, title, description, county, sub_county,
            geo_location, views, created_at, updated_at
        )
        VALUES (
            :id, :user_id, :category_id, :title, :description, :county, :sub_county,
            :geo_location, :views, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, ad)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Advertisement, error) {
	var ad model.Advertisement
	err := r.DB.GetContext(ctx, &ad, r.DB.Rebind(selectAdverts+" WHERE a.id = ? LIMIT 1"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ads := []model.Advertisement{ad}
	if err := r.loadPhotos(ctx, ads); err != nil {
		return nil, err
	}
	return &ads[0], nil
}

// FindByIDs returns the adverts in the order of ids, skipping missing ones.
func (r *PGRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Advertisement, error) {
	out := []model.Advertisement{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(selectAdverts+" WHERE a.id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var found []model.Advertisement
	if err := r.DB.SelectContext(ctx, &found, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	byID := make(map[string]model.Advertisement, len(found))
	for _, ad := range found {
		byID[ad.ID] = ad
	}
	for _, id := range ids {
		if ad, ok := byID[id]; ok {
			out = append(out, ad)
		}
	}
	if err := r.loadPhotos(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.AdvertisementFilters) ([]model.Advertisement, int, error) {
	ads := []model.Advertisement{}
	var count int

	conditions := []string{}
	args := []interface{}{}

	if f.CategoryID != "" {
		conditions = append(conditions, "a.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Classification != "" {
		conditions = append(conditions, "c.classification = ?")
		args = append(args, f.Classification)
	}
	if f.County != "" {
		conditions = append(conditions, "LOWER(a.county) = LOWER(?)")
		args = append(args, f.County)
	}
	if f.UserID != "" {
		conditions = append(conditions, "a.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Search != "" {
		conditions = append(conditions, "(LOWER(a.title) LIKE ?"+database.LikeEscape+
			" OR LOWER(a.description) LIKE ?"+database.LikeEscape+
			" OR LOWER(a.county) LIKE ?"+database.LikeEscape+
			" OR LOWER(a.sub_county) LIKE ?"+database.LikeEscape+")")
		like := database.ContainsPattern(strings.ToLower(f.Search))
		args = append(args, like, like, like, like)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM advertisements a JOIN categories c ON c.id = a.category_id" + whereClause
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), args...); err != nil {
		return nil, 0, err
	}

	query := selectAdverts + whereClause + " ORDER BY a.created_at DESC, a.id"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}
	if err := r.DB.SelectContext(ctx, &ads, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	if err := r.loadPhotos(ctx, ads); err != nil {
		return nil, 0, err
	}
	return ads, count, nil
}

func (r *PGRepository) FindTop(ctx context.Context, classification string, limit int) ([]model.Advertisement, error) {
	ads := []model.Advertisement{}
	query := selectAdverts + fmt.Sprintf(" WHERE c.classification = ? ORDER BY a.views DESC, a.created_at DESC LIMIT %d", limit)
	if err := r.DB.SelectContext(ctx, &ads, r.DB.Rebind(query), classification); err != nil {
		return nil, err
	}
	if err := r.loadPhotos(ctx, ads); err != nil {
		return nil, err
	}
	return ads, nil
}

// FindFeatured returns adverts attached to an active subscription whose end
// date is not before today.
func (r *PGRepository) FindFeatured(ctx context.Context, today time.Time) ([]model.Advertisement, error) {
	ads := []model.Advertisement{}
	query := selectAdverts + `
    WHERE a.id IN (
        SELECT f.advertisement_id
        FROM featured_advertisements f
        JOIN subscriptions s ON s.id = f.subscription_id
        WHERE s.active = ? AND s.end_date >= ?
    )
    ORDER BY a.created_at DESC`
	if err := r.DB.SelectContext(ctx, &ads, r.DB.Rebind(query), true, model.Date(today)); err != nil {
		return nil, err
	}
	if err := r.loadPhotos(ctx, ads); err != nil {
		return nil, err
	}
	return ads, nil
}

func (r *PGRepository) Update(ctx context.Context, ad *model.Advertisement) error {
	query := `
        UPDATE advertisements
        SET category_id = :category_id,
            title = :title,
            description = :description,
            county = :county,
            sub_county = :sub_county,
            geo_location = :geo_location,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, ad)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM advertisements WHERE id = ?"), id)
	return err
}

func (r *PGRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("UPDATE advertisements SET views = views + 1 WHERE id = ?"), id)
	return err
}

func (r *PGRepository) CategoryExists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM categories WHERE id = ?"), id); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PGRepository) AddPhoto(ctx context.Context, p *model.AdvertisementPhoto) error {
	query := `
        INSERT INTO advertisement_photos (id, advertisement_id, photo, created_at)
        VALUES (:id, :advertisement_id, :photo, :created_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) FindPhoto(ctx context.Context, id string) (*model.AdvertisementPhoto, error) {
	var p model.AdvertisementPhoto
	query := r.DB.Rebind("SELECT id, advertisement_id, photo, created_at FROM advertisement_photos WHERE id = ? LIMIT 1")
	if err := r.DB.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) DeletePhoto(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM advertisement_photos WHERE id = ?"), id)
	return err
}

func (r *PGRepository) loadPhotos(ctx context.Context, ads []model.Advertisement) error {
	if len(ads) == 0 {
		return nil
	}
	ids := make([]string, len(ads))
	index := make(map[string]int, len(ads))
	for i := range ads {
		ids[i] = ads[i].ID
		index[ads[i].ID] = i
		ads[i].Photos = []model.AdvertisementPhoto{}
	}
	query, args, err := sqlx.In(`
        SELECT id, advertisement_id, photo, created_at
        FROM advertisement_photos
        WHERE advertisement_id IN (?)
        ORDER BY created_at, id`, ids)
	if err != nil {
		return err
	}
	var photos []model.AdvertisementPhoto
	if err := r.DB.SelectContext(ctx, &photos, r.DB.Rebind(query), args...); err != nil {
		return err
	}
	for _, p := range photos {
		i := index[p.AdvertisementID]
		ads[i].Photos = append(ads[i].Photos, p)
	}
	return nil
}
