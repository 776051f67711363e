package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database"
	"github.com/agriconnectke/marketplace-service/internal/user/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const userColumns = `id, first_name, last_name, email, phone, password_hash, profile_picture,
	is_active, is_staff, is_superuser, last_login, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (` + userColumns + `)
        VALUES (
            :id, :first_name, :last_name, :email, :phone, :password_hash, :profile_picture,
            :is_active, :is_staff, :is_superuser, :last_login, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, u)
	return err
}

func (r *PGRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	var u model.User
	query := r.DB.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`)
	if err := r.DB.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *PGRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.findOne(ctx, "phone = ?", phone)
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.UserFilters) ([]model.User, int, error) {
	users := []model.User{}
	var count int

	conditions := []string{}
	args := []interface{}{}

	if f.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *f.IsActive)
	}
	if f.Search != "" {
		conditions = append(conditions, "(LOWER(first_name) LIKE LOWER(?)"+database.LikeEscape+
			" OR LOWER(last_name) LIKE LOWER(?)"+database.LikeEscape+
			" OR LOWER(email) LIKE LOWER(?)"+database.LikeEscape+
			" OR phone LIKE ?"+database.LikeEscape+")")
		like := database.ContainsPattern(f.Search)
		args = append(args, like, like, like, like)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM users"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + userColumns + " FROM users" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)
	}
	if err := r.DB.SelectContext(ctx, &users, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return users, count, nil
}

func (r *PGRepository) Update(ctx context.Context, u *model.User) error {
	query := `
        UPDATE users
        SET first_name = :first_name,
            last_name = :last_name,
            email = :email,
            phone = :phone,
            profile_picture = :profile_picture,
            is_active = :is_active,
            is_staff = :is_staff,
            is_superuser = :is_superuser,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, u)
	return err
}

func (r *PGRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		r.DB.Rebind("UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?"),
		hash, model.Now(), id)
	return err
}

func (r *PGRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("UPDATE users SET last_login = ? WHERE id = ?"), at, id)
	return err
}

func (r *PGRepository) isTaken(ctx context.Context, column, value, excludeID string) (bool, error) {
	var count int
	query := "SELECT count(*) FROM users WHERE " + column + " = ?"
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id != ?"
		args = append(args, excludeID)
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(query), args...); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PGRepository) IsEmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return r.isTaken(ctx, "LOWER(email)", strings.ToLower(email), excludeID)
}

func (r *PGRepository) IsPhoneTaken(ctx context.Context, phone, excludeID string) (bool, error) {
	return r.isTaken(ctx, "phone", phone, excludeID)
}

func (r *PGRepository) CreateToken(ctx context.Context, t *model.AuthToken) error {
	query := `
        INSERT INTO auth_tokens (digest, token_key, user_id, created_at, expiry)
        VALUES (:digest, :token_key, :user_id, :created_at, :expiry)
    `
	_, err := r.DB.NamedExecContext(ctx, query, t)
	return err
}

func (r *PGRepository) FindToken(ctx context.Context, digest string) (*model.AuthToken, error) {
	var t model.AuthToken
	query := r.DB.Rebind(`SELECT digest, token_key, user_id, created_at, expiry FROM auth_tokens WHERE digest = ? LIMIT 1`)
	if err := r.DB.GetContext(ctx, &t, query, digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGRepository) DeleteToken(ctx context.Context, digest string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM auth_tokens WHERE digest = ?"), digest)
	return err
}

func (r *PGRepository) DeleteUserTokens(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM auth_tokens WHERE user_id = ?"), userID)
	return err
}

func (r *PGRepository) ListPaymentMethods(ctx context.Context, userID string) ([]model.PaymentMethod, error) {
	methods := []model.PaymentMethod{}
	query := r.DB.Rebind(`SELECT id, user_id, name, mpesa_phone_number, created_at
        FROM payment_methods WHERE user_id = ? ORDER BY created_at`)
	if err := r.DB.SelectContext(ctx, &methods, query, userID); err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *PGRepository) FindPaymentMethod(ctx context.Context, id string) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod
	query := r.DB.Rebind(`SELECT id, user_id, name, mpesa_phone_number, created_at FROM payment_methods WHERE id = ?`)
	if err := r.DB.GetContext(ctx, &pm, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &pm, nil
}

func (r *PGRepository) CreatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error {
	query := `
        INSERT INTO payment_methods (id, user_id, name, mpesa_phone_number, created_at)
        VALUES (:id, :user_id, :name, :mpesa_phone_number, :created_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, pm)
	return err
}

func (r *PGRepository) DeletePaymentMethod(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM payment_methods WHERE id = ?"), id)
	return err
}
