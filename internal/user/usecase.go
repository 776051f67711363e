package user

import (
	"context"
	"io"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/user/dto"
)

type UseCase interface {
	Register(ctx context.Context, input *dto.RegisterInput) (*dto.AuthResult, error)
	Login(ctx context.Context, input *dto.LoginInput) (*dto.AuthResult, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID string) error
	Authenticate(ctx context.Context, token string) (*model.User, error)

	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, input *dto.ConfirmResetInput) error
	ChangePassword(ctx context.Context, input *dto.ChangePasswordInput) error

	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, input *dto.UpdateProfileInput) (*model.User, error)
	Deactivate(ctx context.Context, id string) error
	UploadProfilePicture(ctx context.Context, userID, filename, contentType string, r io.Reader) (*model.User, error)
	ListUsers(ctx context.Context, filters *dto.UserFilters) ([]model.User, int, error)
	CreateUser(ctx context.Context, input *dto.CreateUserInput) (*model.User, error)

	ListPaymentMethods(ctx context.Context, userID string) ([]model.PaymentMethod, error)
	AddPaymentMethod(ctx context.Context, input *dto.PaymentMethodInput) (*model.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, userID, id string) error
}
