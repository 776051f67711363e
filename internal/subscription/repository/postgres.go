package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/agriconnectke/marketplace-service/internal/model"
	paymentrepo "github.com/agriconnectke/marketplace-service/internal/payment/repository"
	"github.com/agriconnectke/marketplace-service/internal/subscription/dto"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const selectPackages = `
    SELECT id, name, description, duration, pricing, created_at, updated_at
    FROM subscription_packages`

const selectSubscriptions = `
    SELECT s.id, s.user_id, s.package_id, s.payment_id, s.start_date, s.end_date, s.active,
           s.created_at, s.updated_at, sp.name AS package_name
    FROM subscriptions s
    JOIN subscription_packages sp ON sp.id = s.package_id`

func insertOfferings(ctx context.Context, tx *sqlx.Tx, p *model.SubscriptionPackage) error {
	for i := range p.Offerings {
		o := &p.Offerings[i]
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		o.PackageID = p.ID
		query := "INSERT INTO package_offerings (id, package_id, offering) VALUES (:id, :package_id, :offering)"
		if _, err := tx.NamedExecContext(ctx, query, o); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) CreatePackage(ctx context.Context, p *model.SubscriptionPackage) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO subscription_packages (id, name, description, duration, pricing, created_at, updated_at)
        VALUES (:id, :name, :description, :duration, :pricing, :created_at, :updated_at)
    `
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return err
	}
	if err := insertOfferings(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) loadOfferings(ctx context.Context, pkgs []model.SubscriptionPackage) error {
	if len(pkgs) == 0 {
		return nil
	}
	ids := make([]string, len(pkgs))
	for i, p := range pkgs {
		ids[i] = p.ID
	}
	query, args, err := sqlx.In("SELECT id, package_id, offering FROM package_offerings WHERE package_id IN (?) ORDER BY offering, id", ids)
	if err != nil {
		return err
	}
	var offerings []model.PackageOffering
	if err := r.DB.SelectContext(ctx, &offerings, r.DB.Rebind(query), args...); err != nil {
		return err
	}
	byPackage := map[string][]model.PackageOffering{}
	for _, o := range offerings {
		byPackage[o.PackageID] = append(byPackage[o.PackageID], o)
	}
	for i := range pkgs {
		pkgs[i].Offerings = byPackage[pkgs[i].ID]
		if pkgs[i].Offerings == nil {
			pkgs[i].Offerings = []model.PackageOffering{}
		}
	}
	return nil
}

func (r *PGRepository) findPackage(ctx context.Context, where string, arg interface{}) (*model.SubscriptionPackage, error) {
	var p model.SubscriptionPackage
	err := r.DB.GetContext(ctx, &p, r.DB.Rebind(selectPackages+" WHERE "+where+" LIMIT 1"), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	pkgs := []model.SubscriptionPackage{p}
	if err := r.loadOfferings(ctx, pkgs); err != nil {
		return nil, err
	}
	return &pkgs[0], nil
}

func (r *PGRepository) FindPackageByID(ctx context.Context, id string) (*model.SubscriptionPackage, error) {
	return r.findPackage(ctx, "id = ?", id)
}

func (r *PGRepository) FindPackageByName(ctx context.Context, name string) (*model.SubscriptionPackage, error) {
	return r.findPackage(ctx, "LOWER(name) = LOWER(?)", name)
}

func (r *PGRepository) FindPackages(ctx context.Context) ([]model.SubscriptionPackage, error) {
	pkgs := []model.SubscriptionPackage{}
	if err := r.DB.SelectContext(ctx, &pkgs, selectPackages+" ORDER BY pricing, name"); err != nil {
		return nil, err
	}
	if err := r.loadOfferings(ctx, pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (r *PGRepository) UpdatePackage(ctx context.Context, p *model.SubscriptionPackage) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        UPDATE subscription_packages
        SET name = :name,
            description = :description,
            duration = :duration,
            pricing = :pricing,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM package_offerings WHERE package_id = ?"), p.ID); err != nil {
		return err
	}
	for i := range p.Offerings {
		p.Offerings[i].ID = ""
	}
	if err := insertOfferings(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) DeletePackage(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM subscription_packages WHERE id = ?"), id)
	return err
}

func (r *PGRepository) PackageInUse(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind("SELECT count(*) FROM subscriptions WHERE package_id = ?"), id)
	return n > 0, err
}

func (r *PGRepository) CreatePending(ctx context.Context, pay *model.Payment, sub *model.Subscription) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := paymentrepo.Insert(ctx, tx, pay); err != nil {
		return err
	}
	query := `
        INSERT INTO subscriptions (id, user_id, package_id, payment_id, start_date, end_date, active, created_at, updated_at)
        VALUES (:id, :user_id, :package_id, :payment_id, :start_date, :end_date, :active, :created_at, :updated_at)
    `
	if _, err := tx.NamedExecContext(ctx, query, sub); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	var s model.Subscription
	err := r.DB.GetContext(ctx, &s, r.DB.Rebind(selectSubscriptions+" WHERE s.id = ? LIMIT 1"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.SubscriptionFilters) ([]model.Subscription, int, error) {
	subs := []model.Subscription{}
	var count int

	conditions := []string{}
	args := []interface{}{}
	if f.UserID != "" {
		conditions = append(conditions, "s.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Active != nil {
		conditions = append(conditions, "s.active = ?")
		args = append(args, *f.Active)
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM subscriptions s"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	query := selectSubscriptions + whereClause + " ORDER BY s.created_at DESC, s.id"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}
	if err := r.DB.SelectContext(ctx, &subs, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return subs, count, nil
}

func (r *PGRepository) InvoiceTaken(ctx context.Context, invoiceNumber string) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind("SELECT count(*) FROM payments WHERE invoice_number = ?"), invoiceNumber)
	return n > 0, err
}

func (r *PGRepository) AdvertisementOwner(ctx context.Context, advertisementID string) (string, error) {
	var owners []string
	if err := r.DB.SelectContext(ctx, &owners, r.DB.Rebind("SELECT user_id FROM advertisements WHERE id = ?"), advertisementID); err != nil {
		return "", err
	}
	if len(owners) == 0 {
		return "", nil
	}
	return owners[0], nil
}

func (r *PGRepository) IsFeatured(ctx context.Context, subscriptionID, advertisementID string) (bool, error) {
	var n int
	query := r.DB.Rebind("SELECT count(*) FROM featured_advertisements WHERE subscription_id = ? AND advertisement_id = ?")
	err := r.DB.GetContext(ctx, &n, query, subscriptionID, advertisementID)
	return n > 0, err
}

func (r *PGRepository) CreateFeatured(ctx context.Context, f *model.FeaturedAdvertisement) error {
	query := `
        INSERT INTO featured_advertisements (id, subscription_id, advertisement_id, created_at)
        VALUES (:id, :subscription_id, :advertisement_id, :created_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, f)
	return err
}

func (r *PGRepository) FindFeatured(ctx context.Context, subscriptionID string) ([]model.FeaturedAdvertisement, error) {
	featured := []model.FeaturedAdvertisement{}
	query := r.DB.Rebind(`
        SELECT id, subscription_id, advertisement_id, created_at
        FROM featured_advertisements
        WHERE subscription_id = ?
        ORDER BY created_at, id`)
	if err := r.DB.SelectContext(ctx, &featured, query, subscriptionID); err != nil {
		return nil, err
	}
	return featured, nil
}
