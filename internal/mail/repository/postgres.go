package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const selectMails = `
    SELECT id, kind, sender_id, recipient, audience, subject, message, sent, created_at, updated_at
    FROM mails`

func (r *PGRepository) Create(ctx context.Context, m *model.Mail) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO mails (id, kind, sender_id, recipient, audience, subject, message, sent, created_at, updated_at)
        VALUES (:id, :kind, :sender_id, :recipient, :audience, :subject, :message, :sent, :created_at, :updated_at)
    `
	if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("insert mail: %w", err)
	}

	attQuery := `
        INSERT INTO mail_attachments (id, mail_id, file_key, filename, content_type, size, uploaded_at)
        VALUES (:id, :mail_id, :file_key, :filename, :content_type, :size, :uploaded_at)
    `
	for i := range m.Attachments {
		m.Attachments[i].MailID = m.ID
		if _, err := tx.NamedExecContext(ctx, attQuery, &m.Attachments[i]); err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PGRepository) FindByID(ctx context.Context, id, senderID string) (*model.Mail, error) {
	var m model.Mail
	query := r.DB.Rebind(selectMails + " WHERE id = ? AND sender_id = ?")
	if err := r.DB.GetContext(ctx, &m, query, id, senderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	m.Attachments = []model.MailAttachment{}
	attQuery := r.DB.Rebind(`
        SELECT id, mail_id, file_key, filename, content_type, size, uploaded_at
        FROM mail_attachments WHERE mail_id = ? ORDER BY uploaded_at, filename`)
	if err := r.DB.SelectContext(ctx, &m.Attachments, attQuery, m.ID); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PGRepository) FindBySender(ctx context.Context, senderID string) ([]model.Mail, error) {
	mails := []model.Mail{}
	query := r.DB.Rebind(selectMails + " WHERE sender_id = ? ORDER BY created_at DESC")
	if err := r.DB.SelectContext(ctx, &mails, query, senderID); err != nil {
		return nil, err
	}
	return mails, nil
}

func (r *PGRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	query := r.DB.Rebind("UPDATE mails SET sent = ?, updated_at = ? WHERE id = ?")
	_, err := r.DB.ExecContext(ctx, query, true, at, id)
	return err
}

func (r *PGRepository) AudienceEmails(ctx context.Context, audience string) ([]string, error) {
	query := "SELECT email FROM users WHERE is_active = ?"
	args := []interface{}{true}
	switch audience {
	case model.AudienceStaff:
		query += " AND is_staff = ?"
		args = append(args, true)
	case model.AudienceClients:
		query += " AND is_staff = ?"
		args = append(args, false)
	case model.AudienceAll:
	default:
		return nil, fmt.Errorf("unknown audience %q", audience)
	}

	emails := []string{}
	if err := r.DB.SelectContext(ctx, &emails, r.DB.Rebind(query+" ORDER BY email"), args...); err != nil {
		return nil, err
	}
	return emails, nil
}
