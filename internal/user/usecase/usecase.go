package usecase

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/events"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/phone"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
	"github.com/agriconnectke/marketplace-service/internal/user"
	"github.com/agriconnectke/marketplace-service/internal/user/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgRequired    = "This field is required."
	msgEmailFormat = "Enter a valid email address."
)

type Options struct {
	FrontendURL string
	TokenTTL    time.Duration
}

type userUseCase struct {
	repo      user.Repository
	reset     *auth.ResetTokens
	publisher events.Publisher
	files     storage.Store
	opts      Options
	logger    logger.ZapLogger
}

func NewUserUseCase(repo user.Repository, reset *auth.ResetTokens, publisher events.Publisher, files storage.Store, opts Options, log logger.ZapLogger) user.UseCase {
	return &userUseCase{
		repo:      repo,
		reset:     reset,
		publisher: publisher,
		files:     files,
		opts:      opts,
		logger:    log,
	}
}

// NormalizeEmail lower-cases the domain part and rejects anything that is
// not a bare address.
func NormalizeEmail(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", false
	}
	at := strings.LastIndex(raw, "@")
	if at <= 0 || at == len(raw)-1 {
		return "", false
	}
	return raw[:at] + "@" + strings.ToLower(raw[at+1:]), true
}

func (uc *userUseCase) Register(ctx context.Context, input *dto.RegisterInput) (*dto.AuthResult, error) {
	ve := apperror.NewValidation()

	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	if first == "" {
		ve.Add("first_name", msgRequired)
	}
	if last == "" {
		ve.Add("last_name", msgRequired)
	}

	email, ok := NormalizeEmail(input.Email)
	if !ok {
		ve.Add("email", msgEmailFormat)
	} else if taken, err := uc.repo.IsEmailTaken(ctx, email, ""); err != nil {
		return nil, err
	} else if taken {
		ve.Add("email", "A user with that email already exists.")
	}

	number := normalizePhone(input.Phone)
	if number == "" {
		ve.Add("phone", phoneMessage(input.Phone))
	} else if taken, err := uc.repo.IsPhoneTaken(ctx, number, ""); err != nil {
		return nil, err
	} else if taken {
		ve.Add("phone", "A user with that phone number already exists.")
	}

	if input.Password != input.ConfirmPassword {
		ve.Add("confirm_password", "Passwords do not match")
	} else if err := auth.ValidatePassword(input.Password, email, first, last); err != nil {
		ve.Add("password", err.Error())
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := model.Now()
	u := &model.User{
		BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		FirstName:    first,
		LastName:     last,
		Email:        email,
		Phone:        number,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := uc.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	token, expiry, err := uc.issueToken(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, events.UserRegistered, u.ID, events.UserRegisteredPayload{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
	})

	return &dto.AuthResult{User: u, Token: token, Expiry: expiry}, nil
}

// normalizePhone returns the international number, or "" when raw is invalid.
func normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if phone.Validate(raw) != nil {
		return ""
	}
	return phone.Normalize(raw)
}

func phoneMessage(raw string) string {
	if err := phone.Validate(strings.TrimSpace(raw)); err != nil {
		return err.Error()
	}
	return ""
}

func (uc *userUseCase) issueToken(ctx context.Context, userID string) (string, *time.Time, error) {
	token, digest, key, err := auth.GenerateToken()
	if err != nil {
		return "", nil, err
	}
	now := model.Now()
	t := &model.AuthToken{
		Digest:    digest,
		TokenKey:  key,
		UserID:    userID,
		CreatedAt: now,
	}
	if uc.opts.TokenTTL > 0 {
		exp := now.Add(uc.opts.TokenTTL)
		t.Expiry = &exp
	}
	if err := uc.repo.CreateToken(ctx, t); err != nil {
		return "", nil, err
	}
	return token, t.Expiry, nil
}

func (uc *userUseCase) Login(ctx context.Context, input *dto.LoginInput) (*dto.AuthResult, error) {
	credential := strings.TrimSpace(input.Credential)
	if credential == "" || input.Password == "" {
		return nil, apperror.ErrInvalidCredential
	}

	var (
		u   *model.User
		err error
	)
	if strings.Contains(credential, "@") {
		u, err = uc.repo.FindByEmail(ctx, credential)
	} else {
		u, err = uc.repo.FindByPhone(ctx, phone.Normalize(credential))
	}
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive || !auth.CheckPassword(u.PasswordHash, input.Password) {
		return nil, apperror.ErrInvalidCredential
	}

	now := model.Now()
	if err := uc.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now

	token, expiry, err := uc.issueToken(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResult{User: u, Token: token, Expiry: expiry}, nil
}

func (uc *userUseCase) Logout(ctx context.Context, token string) error {
	return uc.repo.DeleteToken(ctx, auth.Digest(token))
}

func (uc *userUseCase) LogoutAll(ctx context.Context, userID string) error {
	return uc.repo.DeleteUserTokens(ctx, userID)
}

func (uc *userUseCase) Authenticate(ctx context.Context, token string) (*model.User, error) {
	digest := auth.Digest(token)
	t, err := uc.repo.FindToken(ctx, digest)
	if err != nil {
		return nil, err
	}
	if t == nil || len(token) < auth.TokenKeyLength || t.TokenKey != token[:auth.TokenKeyLength] {
		return nil, apperror.ErrInvalidToken
	}
	if t.Expiry != nil && t.Expiry.Before(model.Now()) {
		if err := uc.repo.DeleteToken(ctx, digest); err != nil {
			uc.logger.Warn("failed to delete expired token", zap.Error(err))
		}
		return nil, apperror.ErrInvalidToken
	}

	u, err := uc.repo.FindByID(ctx, t.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, apperror.ErrInvalidToken
	}
	return u, nil
}

func (uc *userUseCase) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, ok := NormalizeEmail(email)
	if !ok {
		ve := apperror.NewValidation()
		ve.Add("email", msgEmailFormat)
		return ve
	}
	u, err := uc.repo.FindByEmail(ctx, normalized)
	if err != nil {
		return err
	}
	if u == nil || !u.IsActive {
		return nil
	}

	token, err := uc.reset.Generate(u)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/accounts/reset-password/%s/%s/",
		strings.TrimRight(uc.opts.FrontendURL, "/"), auth.EncodeUID(u.ID), token)

	uc.publish(ctx, events.PasswordResetRequested, u.ID, events.PasswordResetRequestedPayload{
		UserID:           u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		ResetLink:        link,
		ExpiresInMinutes: int(uc.reset.TTL() / time.Minute),
	})
	return nil
}

func (uc *userUseCase) ConfirmPasswordReset(ctx context.Context, input *dto.ConfirmResetInput) error {
	id, err := auth.DecodeUID(input.UID)
	if err != nil {
		return apperror.ErrInvalidResetLink
	}
	u, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil || uc.reset.Verify(input.Token, u) != nil {
		return apperror.ErrInvalidResetLink
	}

	if input.NewPassword == "" {
		return apperror.ErrPasswordRequired
	}
	if err := uc.setPassword(ctx, u, input.NewPassword, "new_password"); err != nil {
		return err
	}
	if err := uc.repo.DeleteUserTokens(ctx, u.ID); err != nil {
		return err
	}
	return nil
}

func (uc *userUseCase) ChangePassword(ctx context.Context, input *dto.ChangePasswordInput) error {
	u, err := uc.repo.FindByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperror.ErrUserNotFound
	}
	if !auth.CheckPassword(u.PasswordHash, input.OldPassword) {
		return apperror.ErrWrongPassword
	}
	return uc.setPassword(ctx, u, input.NewPassword, "new_password")
}

func (uc *userUseCase) setPassword(ctx context.Context, u *model.User, password, field string) error {
	ve := apperror.NewValidation()
	if password == "" {
		ve.Add(field, msgRequired)
	} else if err := auth.ValidatePassword(password, u.Email, u.FirstName, u.LastName); err != nil {
		ve.Add(field, err.Error())
	}
	if err := ve.Err(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := uc.repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	u.PasswordHash = hash

	uc.publish(ctx, events.PasswordChanged, u.ID, events.PasswordChangedPayload{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
	})
	return nil
}

func (uc *userUseCase) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.ErrUserNotFound
	}
	return u, nil
}

func (uc *userUseCase) UpdateProfile(ctx context.Context, input *dto.UpdateProfileInput) (*model.User, error) {
	u, err := uc.GetUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	ve := apperror.NewValidation()
	if !input.Partial {
		required := map[string]*string{
			"first_name": input.FirstName,
			"last_name":  input.LastName,
			"email":      input.Email,
			"phone":      input.Phone,
		}
		for field, v := range required {
			if v == nil {
				ve.Add(field, msgRequired)
			}
		}
	}
	if input.FirstName != nil {
		if v := strings.TrimSpace(*input.FirstName); v == "" {
			ve.Add("first_name", msgRequired)
		} else {
			u.FirstName = v
		}
	}
	if input.LastName != nil {
		if v := strings.TrimSpace(*input.LastName); v == "" {
			ve.Add("last_name", msgRequired)
		} else {
			u.LastName = v
		}
	}
	if input.Email != nil {
		email, ok := NormalizeEmail(*input.Email)
		if !ok {
			ve.Add("email", msgEmailFormat)
		} else if taken, err := uc.repo.IsEmailTaken(ctx, email, u.ID); err != nil {
			return nil, err
		} else if taken {
			ve.Add("email", "A user with that email already exists.")
		} else {
			u.Email = email
		}
	}
	if input.Phone != nil {
		number := normalizePhone(*input.Phone)
		if number == "" {
			ve.Add("phone", phoneMessage(*input.Phone))
		} else if taken, err := uc.repo.IsPhoneTaken(ctx, number, u.ID); err != nil {
			return nil, err
		} else if taken {
			ve.Add("phone", "A user with that phone number already exists.")
		} else {
			u.Phone = number
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	if input.IsActive != nil && input.CallerIsStaff {
		u.IsActive = *input.IsActive
	}
	if input.CallerIsSuperuser {
		if input.IsStaff != nil {
			u.IsStaff = *input.IsStaff
		}
		if input.IsSuperuser != nil {
			u.IsSuperuser = *input.IsSuperuser
		}
	}

	u.UpdatedAt = model.Now()
	if err := uc.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *userUseCase) Deactivate(ctx context.Context, id string) error {
	u, err := uc.GetUser(ctx, id)
	if err != nil {
		return err
	}
	u.IsActive = false
	u.UpdatedAt = model.Now()
	if err := uc.repo.Update(ctx, u); err != nil {
		return err
	}
	return uc.repo.DeleteUserTokens(ctx, id)
}

func (uc *userUseCase) UploadProfilePicture(ctx context.Context, userID, filename, contentType string, r io.Reader) (*model.User, error) {
	u, err := uc.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := uc.files.Save(ctx, "profile_pictures", filename, contentType, r)
	if err != nil {
		return nil, err
	}
	old := u.ProfilePicture
	u.ProfilePicture = &key
	u.UpdatedAt = model.Now()
	if err := uc.repo.Update(ctx, u); err != nil {
		_ = uc.files.Delete(ctx, key)
		return nil, err
	}

	if old != nil {
		if err := uc.files.Delete(ctx, *old); err != nil {
			uc.logger.Warn("failed to delete old profile picture", zap.String("key", *old), zap.Error(err))
		}
	}
	return u, nil
}

func (uc *userUseCase) ListUsers(ctx context.Context, filters *dto.UserFilters) ([]model.User, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *userUseCase) CreateUser(ctx context.Context, input *dto.CreateUserInput) (*model.User, error) {
	ve := apperror.NewValidation()
	email, ok := NormalizeEmail(input.Email)
	if input.Email == "" {
		ve.Add("email", "Users must have an email address")
	} else if !ok {
		ve.Add("email", msgEmailFormat)
	}
	if strings.TrimSpace(input.FirstName) == "" {
		ve.Add("first_name", "Users must have a first name")
	}
	if strings.TrimSpace(input.LastName) == "" {
		ve.Add("last_name", "Users must have a last name")
	}
	number := normalizePhone(input.Phone)
	if input.Phone == "" {
		ve.Add("phone", "Users must have a phone number")
	} else if number == "" {
		ve.Add("phone", phoneMessage(input.Phone))
	}
	if len(input.Password) > auth.MaxPasswordBytes {
		ve.Add("password", auth.ErrPasswordTooLong.Error())
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	if taken, err := uc.repo.IsEmailTaken(ctx, email, ""); err != nil {
		return nil, err
	} else if taken {
		ve.Add("email", "A user with that email already exists.")
	}
	if taken, err := uc.repo.IsPhoneTaken(ctx, number, ""); err != nil {
		return nil, err
	} else if taken {
		ve.Add("phone", "A user with that phone number already exists.")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	var hash string
	if input.Password != "" {
		h, err := auth.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	now := model.Now()
	u := &model.User{
		BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		Phone:        number,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      input.IsStaff || input.IsSuperuser,
		IsSuperuser:  input.IsSuperuser,
	}
	if err := uc.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *userUseCase) ListPaymentMethods(ctx context.Context, userID string) ([]model.PaymentMethod, error) {
	return uc.repo.ListPaymentMethods(ctx, userID)
}

func (uc *userUseCase) AddPaymentMethod(ctx context.Context, input *dto.PaymentMethodInput) (*model.PaymentMethod, error) {
	ve := apperror.NewValidation()
	name := strings.TrimSpace(input.Name)
	if name == "" {
		ve.Add("name", msgRequired)
	}
	number := normalizePhone(input.MpesaPhoneNumber)
	if number == "" {
		ve.Add("mpesa_phone_number", phoneMessage(input.MpesaPhoneNumber))
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	pm := &model.PaymentMethod{
		ID:               uuid.New().String(),
		UserID:           input.UserID,
		Name:             name,
		MpesaPhoneNumber: number,
		CreatedAt:        model.Now(),
	}
	if err := uc.repo.CreatePaymentMethod(ctx, pm); err != nil {
		return nil, err
	}
	return pm, nil
}

func (uc *userUseCase) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	pm, err := uc.repo.FindPaymentMethod(ctx, id)
	if err != nil {
		return err
	}
	if pm == nil || pm.UserID != userID {
		return apperror.ErrPaymentMethodNotFound
	}
	return uc.repo.DeletePaymentMethod(ctx, id)
}

func (uc *userUseCase) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, eventType, key, payload); err != nil {
		uc.logger.Error("failed to publish event", zap.String("event_type", eventType), zap.Error(err))
	}
}
