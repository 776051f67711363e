package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/payment/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const selectPayments = `
    SELECT id, user_id, transaction_type, trans_id, checkout_request_id, merchant_request_id,
           trans_time, trans_amount, business_short_code, bill_ref_number, invoice_number,
           org_account_balance, third_party_trans_id, msisdn, first_name, middle_name, last_name,
           status, result_code, result_desc, created_at, updated_at
    FROM payments`

// Insert writes p through e so callers can enlist it in their transaction.
func Insert(ctx context.Context, e sqlx.ExtContext, p *model.Payment) error {
	query := `
        INSERT INTO payments (
            id, user_id, transaction_type, trans_id, checkout_request_id, merchant_request_id,
            trans_time, trans_amount, business_short_code, bill_ref_number, invoice_number,
            org_account_balance, third_party_trans_id, msisdn, first_name, middle_name, last_name,
            status, result_code, result_desc, created_at, updated_at
        )
        VALUES (
            :id, :user_id, :transaction_type, :trans_id, :checkout_request_id, :merchant_request_id,
            :trans_time, :trans_amount, :business_short_code, :bill_ref_number, :invoice_number,
            :org_account_balance, :third_party_trans_id, :msisdn, :first_name, :middle_name, :last_name,
            :status, :result_code, :result_desc, :created_at, :updated_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, e, query, p)
	return err
}

func (r *PGRepository) Create(ctx context.Context, p *model.Payment) error {
	return Insert(ctx, r.DB, p)
}

func (r *PGRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.GetContext(ctx, &p, r.DB.Rebind(selectPayments+" WHERE "+where+" LIMIT 1"), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *PGRepository) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*model.Payment, error) {
	return r.findOne(ctx, "checkout_request_id = ?", checkoutRequestID)
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.PaymentFilters) ([]model.Payment, int, error) {
	payments := []model.Payment{}
	var count int

	conditions := []string{}
	args := []interface{}{}
	if f.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM payments"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	query := selectPayments + whereClause + " ORDER BY created_at DESC, id"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}
	if err := r.DB.SelectContext(ctx, &payments, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return payments, count, nil
}

func (r *PGRepository) Settle(ctx context.Context, p *model.Payment) (bool, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	query := `
        UPDATE payments
        SET trans_id = :trans_id,
            merchant_request_id = :merchant_request_id,
            trans_time = :trans_time,
            trans_amount = :trans_amount,
            org_account_balance = :org_account_balance,
            msisdn = :msisdn,
            status = :status,
            result_code = :result_code,
            result_desc = :result_desc,
            updated_at = :updated_at
        WHERE id = :id AND status = 'pending'
    `
	res, err := tx.NamedExecContext(ctx, query, p)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if p.Status == model.PaymentCompleted {
		activate := tx.Rebind("UPDATE subscriptions SET active = ?, updated_at = ? WHERE payment_id = ?")
		if _, err := tx.ExecContext(ctx, activate, true, p.UpdatedAt, p.ID); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PGRepository) InvoiceTaken(ctx context.Context, invoiceNumber string) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind("SELECT count(*) FROM payments WHERE invoice_number = ?"), invoiceNumber)
	return n > 0, err
}

func (r *PGRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind("SELECT count(*) FROM users WHERE id = ?"), userID)
	return n > 0, err
}

func (r *PGRepository) Receipt(ctx context.Context, paymentID string) (*dto.Receipt, error) {
	var rc dto.Receipt
	query := r.DB.Rebind(`
        SELECT p.id AS payment_id, p.user_id, u.email, u.first_name, p.invoice_number,
               p.trans_id AS receipt_number, p.trans_amount AS amount,
               sp.name AS package_name, s.end_date
        FROM payments p
        JOIN users u ON u.id = p.user_id
        LEFT JOIN subscriptions s ON s.payment_id = p.id
        LEFT JOIN subscription_packages sp ON sp.id = s.package_id
        WHERE p.id = ?
        LIMIT 1`)
	if err := r.DB.GetContext(ctx, &rc, query, paymentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rc, nil
}
