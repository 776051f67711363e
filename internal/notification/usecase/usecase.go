package usecase

import (
	"context"
	"fmt"

	"github.com/agriconnectke/marketplace-service/internal/events"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mailer"
	"go.uber.org/zap"
)

type Options struct {
	From        string
	SiteName    string
	FrontendURL string
	Admins      []string
}

// email is a rendered user-facing message plus the line reported to admins.
type email struct {
	to       string
	subject  string
	template string
	data     map[string]interface{}
	event    string
	details  string
}

type notificationUseCase struct {
	sender   mailer.Sender
	renderer *mailer.Renderer
	opts     Options
	logger   logger.ZapLogger
}

// NewNotificationUseCase returns the events.Handler that turns domain events
// into emails.
func NewNotificationUseCase(sender mailer.Sender, renderer *mailer.Renderer, opts Options, log logger.ZapLogger) events.Handler {
	return &notificationUseCase{sender: sender, renderer: renderer, opts: opts, logger: log}
}

func (uc *notificationUseCase) Handle(ctx context.Context, e *events.Event) error {
	m, err := uc.compose(e)
	if err != nil {
		return err
	}
	if m == nil {
		uc.logger.Debug("Ignoring event", zap.String("event_type", e.EventType))
		return nil
	}

	if err := uc.send(ctx, []string{m.to}, m.subject, m.template, m.data); err != nil {
		return fmt.Errorf("send %s: %w", m.template, err)
	}
	uc.logger.Info("Notification sent",
		zap.String("event_id", e.EventID),
		zap.String("event_type", e.EventType),
	)

	// The user already has their mail; a failed admin copy must not trigger
	// a redelivery of the event.
	if len(uc.opts.Admins) > 0 {
		err := uc.send(ctx, uc.opts.Admins, "["+uc.opts.SiteName+"] "+m.event, mailer.TemplateAdminNotification,
			map[string]interface{}{"Event": m.event, "Details": m.details})
		if err != nil {
			uc.logger.Warn("Admin notification failed", zap.String("event_id", e.EventID), zap.Error(err))
		}
	}
	return nil
}

func (uc *notificationUseCase) compose(e *events.Event) (*email, error) {
	switch e.EventType {
	case events.UserRegistered:
		var p events.UserRegisteredPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		return &email{
			to:       p.Email,
			subject:  "Welcome to " + uc.opts.SiteName,
			template: mailer.TemplateWelcome,
			data:     map[string]interface{}{"FirstName": p.FirstName, "FrontendURL": uc.opts.FrontendURL},
			event:    "New user registered",
			details:  fmt.Sprintf("%s (%s) created an account.", p.FirstName, p.Email),
		}, nil

	case events.PasswordResetRequested:
		var p events.PasswordResetRequestedPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		return &email{
			to:       p.Email,
			subject:  "Password reset request",
			template: mailer.TemplatePasswordReset,
			data: map[string]interface{}{
				"FirstName":        p.FirstName,
				"ResetLink":        p.ResetLink,
				"ExpiresInMinutes": p.ExpiresInMinutes,
			},
			event:   "Password reset requested",
			details: fmt.Sprintf("%s requested a password reset.", p.Email),
		}, nil

	case events.PasswordChanged:
		var p events.PasswordChangedPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		return &email{
			to:       p.Email,
			subject:  "Your password was changed",
			template: mailer.TemplatePasswordChanged,
			data:     map[string]interface{}{"FirstName": p.FirstName},
			event:    "Password changed",
			details:  fmt.Sprintf("%s changed their password.", p.Email),
		}, nil

	case events.PaymentCompleted:
		var p events.PaymentCompletedPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		return &email{
			to:       p.Email,
			subject:  "Payment receipt - Invoice " + p.InvoiceNumber,
			template: mailer.TemplateInvoice,
			data: map[string]interface{}{
				"FirstName":     p.FirstName,
				"InvoiceNumber": p.InvoiceNumber,
				"ReceiptNumber": p.ReceiptNumber,
				"PackageName":   p.PackageName,
				"Amount":        p.Amount,
				"EndDate":       p.EndDate,
			},
			event:   "Payment received",
			details: fmt.Sprintf("%s paid KES %s for invoice %s (receipt %s).", p.Email, p.Amount, p.InvoiceNumber, p.ReceiptNumber),
		}, nil
	}
	return nil, nil
}

func (uc *notificationUseCase) send(ctx context.Context, to []string, subject, name string, data map[string]interface{}) error {
	data["SiteName"] = uc.opts.SiteName
	htmlBody, text, err := uc.renderer.Render(name, data)
	if err != nil {
		return err
	}
	return uc.sender.Send(ctx, &mailer.Message{
		From:    uc.opts.From,
		To:      to,
		Subject: subject,
		Text:    text,
		HTML:    htmlBody,
	})
}
