package repository

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, rv *model.Review) error {
	query := `
        INSERT INTO reviews (id, advertisement_id, user_id, message, rating, created_at)
        VALUES (:id, :advertisement_id, :user_id, :message, :rating, :created_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, rv)
	return err
}

func (r *PGRepository) ListByAdvertisement(ctx context.Context, advertisementID string) ([]model.Review, error) {
	reviews := []model.Review{}
	query := r.DB.Rebind(`
        SELECT rv.id, rv.advertisement_id, rv.user_id, rv.message, rv.rating, rv.created_at,
               u.first_name || ' ' || u.last_name AS reviewer_name
        FROM reviews rv
        JOIN users u ON u.id = rv.user_id
        WHERE rv.advertisement_id = ?
        ORDER BY rv.created_at DESC, rv.id`)
	if err := r.DB.SelectContext(ctx, &reviews, query, advertisementID); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *PGRepository) AdvertisementOwner(ctx context.Context, advertisementID string) (string, error) {
	var owners []string
	query := r.DB.Rebind("SELECT user_id FROM advertisements WHERE id = ?")
	if err := r.DB.SelectContext(ctx, &owners, query, advertisementID); err != nil {
		return "", err
	}
	if len(owners) == 0 {
		return "", nil
	}
	return owners[0], nil
}
