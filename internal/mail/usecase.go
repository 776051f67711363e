package mail

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/mail/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
)

type UseCase interface {
	CreateMail(ctx context.Context, input *dto.CreateMailInput) (*dto.Delivery, error)
	ListMails(ctx context.Context, senderID string) ([]model.Mail, error)
	GetMail(ctx context.Context, id, senderID string) (*model.Mail, error)
	SendMail(ctx context.Context, id, senderID string) (*dto.Delivery, error)
}
