package mail

import (
	"context"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
)

type Repository interface {
	// Create stores the mail and its attachment rows together.
	Create(ctx context.Context, m *model.Mail) error
	FindByID(ctx context.Context, id, senderID string) (*model.Mail, error)
	FindBySender(ctx context.Context, senderID string) ([]model.Mail, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	// AudienceEmails resolves a bulk audience to active users' addresses.
	AudienceEmails(ctx context.Context, audience string) ([]string, error)
}
