package user

import (
	"context"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/user/dto"
)

type Repository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	FindAll(ctx context.Context, filters *dto.UserFilters) ([]model.User, int, error)
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	IsEmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	IsPhoneTaken(ctx context.Context, phone, excludeID string) (bool, error)

	CreateToken(ctx context.Context, t *model.AuthToken) error
	FindToken(ctx context.Context, digest string) (*model.AuthToken, error)
	DeleteToken(ctx context.Context, digest string) error
	DeleteUserTokens(ctx context.Context, userID string) error

	ListPaymentMethods(ctx context.Context, userID string) ([]model.PaymentMethod, error)
	FindPaymentMethod(ctx context.Context, id string) (*model.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, id string) error
}
