package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	mailpkg "github.com/agriconnectke/marketplace-service/internal/mail"
	"github.com/agriconnectke/marketplace-service/internal/mail/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mailer"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MaxSubjectLength  = 255
	MaxAttachmentSize = 10 << 20

	attachmentPrefix   = "mail_attachments"
	defaultConcurrency = 5

	msgRequired = "This field is required."
)

type Options struct {
	From     string
	SiteName string
	// Concurrency bounds parallel deliveries of one bulk mail.
	Concurrency int
}

type mailUseCase struct {
	repo     mailpkg.Repository
	sender   mailer.Sender
	renderer *mailer.Renderer
	files    storage.Store
	opts     Options
	logger   logger.ZapLogger
	now      func() time.Time
}

func NewMailUseCase(repo mailpkg.Repository, sender mailer.Sender, renderer *mailer.Renderer, files storage.Store, opts Options, log logger.ZapLogger) mailpkg.UseCase {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &mailUseCase{
		repo:     repo,
		sender:   sender,
		renderer: renderer,
		files:    files,
		opts:     opts,
		logger:   log,
		now:      model.Now,
	}
}

func validEmail(raw string) bool {
	addr, err := mail.ParseAddress(raw)
	return err == nil && addr.Address == raw
}

func validate(input *dto.CreateMailInput) error {
	ve := apperror.NewValidation()

	switch input.Kind {
	case "":
		ve.Add("mail_type", msgRequired)
	case model.MailIndividual:
		if input.Recipient == "" {
			ve.Add("recipient", "Recipient is required for individual mail.")
		} else if !validEmail(input.Recipient) {
			ve.Add("recipient", "Invalid email for recipient.")
		}
	case model.MailBulk:
		switch input.Audience {
		case "":
			ve.Add("recipients", "Recipients type is required for bulk mail.")
		case model.AudienceStaff, model.AudienceClients, model.AudienceAll:
		default:
			ve.Add("recipients", fmt.Sprintf("%q is not a valid choice.", input.Audience))
		}
	default:
		ve.Add("mail_type", fmt.Sprintf("%q is not a valid choice.", input.Kind))
	}

	if input.Subject == "" {
		ve.Add("subject", msgRequired)
	} else if len([]rune(input.Subject)) > MaxSubjectLength {
		ve.Add("subject", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxSubjectLength))
	}
	if input.Message == "" {
		ve.Add("message", msgRequired)
	}
	for _, a := range input.Attachments {
		if a.Size > MaxAttachmentSize {
			ve.Add("attachments", fmt.Sprintf("File %s is too large. Max size is 10 MB.", a.Filename))
		}
	}
	return ve.Err()
}

func (uc *mailUseCase) CreateMail(ctx context.Context, input *dto.CreateMailInput) (*dto.Delivery, error) {
	input.Recipient = strings.TrimSpace(input.Recipient)
	input.Subject = strings.TrimSpace(input.Subject)
	if err := validate(input); err != nil {
		return nil, err
	}

	now := uc.now()
	m := &model.Mail{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Kind:      input.Kind,
		SenderID:  &input.SenderID,
		Subject:   input.Subject,
		Message:   input.Message,
	}
	if input.Kind == model.MailIndividual {
		m.Recipient = &input.Recipient
	} else {
		m.Audience = &input.Audience
	}

	keys := make([]string, 0, len(input.Attachments))
	discard := func() {
		for _, k := range keys {
			_ = uc.files.Delete(ctx, k)
		}
	}
	for _, a := range input.Attachments {
		key, err := uc.files.Save(ctx, attachmentPrefix, a.Filename, a.ContentType, a.Body)
		if err != nil {
			discard()
			return nil, err
		}
		keys = append(keys, key)
		m.Attachments = append(m.Attachments, model.MailAttachment{
			ID:          uuid.New().String(),
			FileKey:     key,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
			UploadedAt:  now,
		})
	}

	if err := uc.repo.Create(ctx, m); err != nil {
		discard()
		return nil, err
	}
	uc.logger.Info("Mail created",
		zap.String("mail_id", m.ID),
		zap.String("kind", m.Kind),
		zap.Int("attachments", len(m.Attachments)),
	)

	if !input.SendNow {
		return &dto.Delivery{Mail: m}, nil
	}
	return uc.deliver(ctx, m)
}

func (uc *mailUseCase) ListMails(ctx context.Context, senderID string) ([]model.Mail, error) {
	return uc.repo.FindBySender(ctx, senderID)
}

func (uc *mailUseCase) GetMail(ctx context.Context, id, senderID string) (*model.Mail, error) {
	m, err := uc.repo.FindByID(ctx, id, senderID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperror.ErrMailNotFound
	}
	return m, nil
}

func (uc *mailUseCase) SendMail(ctx context.Context, id, senderID string) (*dto.Delivery, error) {
	m, err := uc.GetMail(ctx, id, senderID)
	if err != nil {
		return nil, err
	}
	if m.Sent {
		return nil, apperror.ErrMailAlreadySent
	}
	return uc.deliver(ctx, m)
}

func (uc *mailUseCase) recipients(ctx context.Context, m *model.Mail) ([]string, error) {
	if m.Kind == model.MailIndividual {
		if m.Recipient == nil {
			return nil, nil
		}
		return []string{*m.Recipient}, nil
	}
	if m.Audience == nil {
		return nil, nil
	}
	return uc.repo.AudienceEmails(ctx, *m.Audience)
}

// deliver sends one message per recipient. The mail counts as sent once at
// least one recipient received it.
func (uc *mailUseCase) deliver(ctx context.Context, m *model.Mail) (*dto.Delivery, error) {
	to, err := uc.recipients(ctx, m)
	if err != nil {
		return nil, err
	}

	htmlBody, text, err := uc.renderer.Render(mailer.TemplateMessage, map[string]interface{}{
		"SiteName": uc.opts.SiteName,
		"Body":     m.Message,
	})
	if err != nil {
		return nil, err
	}

	attachments := make([]mailer.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		data, err := uc.files.ReadAll(ctx, a.FileKey)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", a.Filename, err)
		}
		attachments = append(attachments, mailer.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Data:        data,
		})
	}

	var (
		mu     sync.Mutex
		failed []string
	)
	g := new(errgroup.Group)
	g.SetLimit(uc.opts.Concurrency)
	for _, addr := range to {
		addr := addr
		g.Go(func() error {
			msg := &mailer.Message{
				From:        uc.opts.From,
				To:          []string{addr},
				Subject:     m.Subject,
				Text:        text,
				HTML:        htmlBody,
				Attachments: attachments,
			}
			if err := uc.sender.Send(ctx, msg); err != nil {
				uc.logger.Warn("Mail delivery failed",
					zap.String("mail_id", m.ID),
					zap.String("recipient", addr),
					zap.Error(err),
				)
				mu.Lock()
				failed = append(failed, addr)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(failed)

	if len(to) == 0 || len(failed) < len(to) {
		now := uc.now()
		if err := uc.repo.MarkSent(ctx, m.ID, now); err != nil {
			return nil, err
		}
		m.Sent = true
		m.UpdatedAt = now
	}

	uc.logger.Info("Mail delivered",
		zap.String("mail_id", m.ID),
		zap.Int("recipients", len(to)),
		zap.Int("failed", len(failed)),
	)
	return &dto.Delivery{Mail: m, Attempted: true, FailedRecipients: failed}, nil
}
