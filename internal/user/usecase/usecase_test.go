package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/events"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database/dbtest"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
	"github.com/agriconnectke/marketplace-service/internal/user"
	"github.com/agriconnectke/marketplace-service/internal/user/dto"
	"github.com/agriconnectke/marketplace-service/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	Type    string
	Key     string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Type: eventType, Key: key, Payload: payload})
	return nil
}

func (p *recordingPublisher) last(eventType string) (published, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == eventType {
			return p.events[i], true
		}
	}
	return published{}, false
}

type fixture struct {
	uc   user.UseCase
	repo *repository.PGRepository
	pub  *recordingPublisher
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	repo := repository.NewPGRepository(db)
	files, err := storage.Open(context.Background(), "mem://", "http://api.test")
	require.NoError(t, err)
	t.Cleanup(func() { files.Close() })

	pub := &recordingPublisher{}
	uc := NewUserUseCase(repo, auth.NewResetTokens("test-secret", 30*time.Minute), pub, files,
		Options{FrontendURL: "https://shamba.test/", TokenTTL: 10 * time.Hour}, logger.NewNop())
	return &fixture{uc: uc, repo: repo, pub: pub}
}

func registerInput() *dto.RegisterInput {
	return &dto.RegisterInput{
		FirstName:       "Wanjiru",
		LastName:        "Kamau",
		Email:           "wanjiru@Example.COM",
		Phone:           "0712345678",
		Password:        "Mavuno#2024!",
		ConfirmPassword: "Mavuno#2024!",
	}
}

func TestNormalizeEmail(t *testing.T) {
	email, ok := NormalizeEmail(" Mary@Farm.CO.KE ")
	assert.True(t, ok)
	assert.Equal(t, "Mary@farm.co.ke", email)

	for _, bad := range []string{"", "not-an-email", "Mary <mary@farm.co.ke>", "@farm.co.ke"} {
		_, ok := NormalizeEmail(bad)
		assert.False(t, ok, bad)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.uc.Register(ctx, registerInput())
	require.NoError(t, err)
	assert.Len(t, res.Token, 64)
	assert.Equal(t, "wanjiru@example.com", res.User.Email)
	assert.Equal(t, "+254712345678", res.User.Phone)
	require.NotNil(t, res.Expiry)

	ev, ok := f.pub.last(events.UserRegistered)
	require.True(t, ok)
	assert.Equal(t, res.User.ID, ev.Key)

	u, err := f.uc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)

	byEmail, err := f.uc.Login(ctx, &dto.LoginInput{Credential: "wanjiru@example.com", Password: "Mavuno#2024!"})
	require.NoError(t, err)
	assert.NotNil(t, byEmail.User.LastLogin)

	byPhone, err := f.uc.Login(ctx, &dto.LoginInput{Credential: "712345678", Password: "Mavuno#2024!"})
	require.NoError(t, err)
	assert.NotEqual(t, byEmail.Token, byPhone.Token)

	_, err = f.uc.Login(ctx, &dto.LoginInput{Credential: "wanjiru@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredential)

	_, err = f.uc.Login(ctx, &dto.LoginInput{Credential: "nobody@example.com", Password: "Mavuno#2024!"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredential)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.uc.Register(ctx, registerInput())
	require.NoError(t, err)

	dup := registerInput()
	dup.Phone = "+254798765432"
	_, err = f.uc.Register(ctx, dup)
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "A user with that email already exists.", ve.Fields["email"])
	assert.NotContains(t, ve.Fields, "phone")

	bad := &dto.RegisterInput{
		Email:           "kip@example.com",
		Phone:           "071234",
		Password:        "Mavuno#2024!",
		ConfirmPassword: "different",
	}
	_, err = f.uc.Register(ctx, bad)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "first_name")
	assert.Contains(t, ve.Fields, "last_name")
	assert.Contains(t, ve.Fields, "phone")
	assert.Equal(t, "Passwords do not match", ve.Fields["confirm_password"])

	weak := registerInput()
	weak.Email = "otieno@example.com"
	weak.Phone = "0722000111"
	weak.Password, weak.ConfirmPassword = "12345678", "12345678"
	_, err = f.uc.Register(ctx, weak)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields["password"], "entirely numeric")

	long := registerInput()
	long.Email = "wambui@example.com"
	long.Phone = "0722000222"
	long.Password = strings.Repeat("Mavuno#2024!", 8)
	long.ConfirmPassword = long.Password
	_, err = f.uc.Register(ctx, long)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields["password"], "too long")
}

func TestLogoutAndExpiry(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.uc.Register(ctx, registerInput())
	require.NoError(t, err)

	other, err := f.uc.Login(ctx, &dto.LoginInput{Credential: "wanjiru@example.com", Password: "Mavuno#2024!"})
	require.NoError(t, err)

	require.NoError(t, f.uc.Logout(ctx, res.Token))
	_, err = f.uc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, apperror.ErrInvalidToken)

	_, err = f.uc.Authenticate(ctx, other.Token)
	require.NoError(t, err)
	require.NoError(t, f.uc.LogoutAll(ctx, res.User.ID))
	_, err = f.uc.Authenticate(ctx, other.Token)
	assert.ErrorIs(t, err, apperror.ErrInvalidToken)

	token, digest, key, err := auth.GenerateToken()
	require.NoError(t, err)
	past := model.Now().Add(-time.Minute)
	require.NoError(t, f.repo.CreateToken(ctx, &model.AuthToken{
		Digest: digest, TokenKey: key, UserID: res.User.ID, CreatedAt: past.Add(-time.Hour), Expiry: &past,
	}))
	_, err = f.uc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, apperror.ErrInvalidToken)
	stored, err := f.repo.FindToken(ctx, digest)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.uc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, f.uc.RequestPasswordReset(ctx, "ghost@example.com"))
	_, ok := f.pub.last(events.PasswordResetRequested)
	assert.False(t, ok)

	err = f.uc.RequestPasswordReset(ctx, "not-an-email")
	var ve *apperror.ValidationError
	assert.ErrorAs(t, err, &ve)

	require.NoError(t, f.uc.RequestPasswordReset(ctx, "wanjiru@example.com"))
	ev, ok := f.pub.last(events.PasswordResetRequested)
	require.True(t, ok)
	payload := ev.Payload.(events.PasswordResetRequestedPayload)
	assert.Equal(t, 30, payload.ExpiresInMinutes)
	require.True(t, strings.HasPrefix(payload.ResetLink, "https://shamba.test/accounts/reset-password/"))

	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(payload.ResetLink, "https://shamba.test/accounts/reset-password/"), "/"), "/")
	require.Len(t, parts, 2)
	uid, token := parts[0], parts[1]

	err = f.uc.ConfirmPasswordReset(ctx, &dto.ConfirmResetInput{UID: uid, Token: "tampered", NewPassword: "Mbegu#2025!"})
	assert.ErrorIs(t, err, apperror.ErrInvalidResetLink)

	err = f.uc.ConfirmPasswordReset(ctx, &dto.ConfirmResetInput{UID: uid, Token: token})
	assert.ErrorIs(t, err, apperror.ErrPasswordRequired)

	require.NoError(t, f.uc.ConfirmPasswordReset(ctx, &dto.ConfirmResetInput{UID: uid, Token: token, NewPassword: "Mbegu#2025!"}))
	_, ok = f.pub.last(events.PasswordChanged)
	assert.True(t, ok)

	_, err = f.uc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, apperror.ErrInvalidToken)

	err = f.uc.ConfirmPasswordReset(ctx, &dto.ConfirmResetInput{UID: uid, Token: token, NewPassword: "Another#2026!"})
	assert.ErrorIs(t, err, apperror.ErrInvalidResetLink)

	_, err = f.uc.Login(ctx, &dto.LoginInput{Credential: "wanjiru@example.com", Password: "Mbegu#2025!"})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	res, err := f.uc.Register(ctx, registerInput())
	require.NoError(t, err)

	err = f.uc.ChangePassword(ctx, &dto.ChangePasswordInput{UserID: res.User.ID, OldPassword: "nope", NewPassword: "Mbegu#2025!"})
	assert.ErrorIs(t, err, apperror.ErrWrongPassword)

	require.NoError(t, f.uc.ChangePassword(ctx, &dto.ChangePasswordInput{
		UserID: res.User.ID, OldPassword: "Mavuno#2024!", NewPassword: "Mbegu#2025!",
	}))
	_, err = f.uc.Login(ctx, &dto.LoginInput{Credential: "wanjiru@example.com", Password: "Mbegu#2025!"})
	assert.NoError(t, err)
}

func TestUpdateProfileRespectsCallerRights(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	res, err := f.uc.Register(ctx, registerInput())
	require.NoError(t, err)

	yes := true
	no := false
	name := "Njeri"
	u, err := f.uc.UpdateProfile(ctx, &dto.UpdateProfileInput{
		ID: res.User.ID, Partial: true, FirstName: &name, IsStaff: &yes, IsSuperuser: &yes, IsActive: &no,
	})
	require.NoError(t, err)
	assert.Equal(t, "Njeri", u.FirstName)
	assert.False(t, u.IsStaff)
	assert.False(t, u.IsSuperuser)
	assert.True(t, u.IsActive)

	u, err = f.uc.UpdateProfile(ctx, &dto.UpdateProfileInput{
		ID: res.User.ID, Partial: true, IsStaff: &yes, CallerIsStaff: true, CallerIsSuperuser: true,
	})
	require.NoError(t, err)
	assert.True(t, u.IsStaff)

	_, err = f.uc.UpdateProfile(ctx, &dto.UpdateProfileInput{ID: res.User.ID, FirstName: &name})
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields, "phone")
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	res, err := f.uc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, f.uc.Deactivate(ctx, res.User.ID))
	_, err = f.uc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, apperror.ErrInvalidToken)
	_, err = f.uc.Login(ctx, &dto.LoginInput{Credential: "wanjiru@example.com", Password: "Mavuno#2024!"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredential)

	u, err := f.uc.GetUser(ctx, res.User.ID)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	admin, err := f.uc.CreateUser(ctx, &dto.CreateUserInput{
		FirstName: "Admin", LastName: "Shamba", Email: "admin@shamba.test", Phone: "254700000001",
		Password: "Mavuno#2024!", IsSuperuser: true,
	})
	require.NoError(t, err)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.IsSuperuser)
	assert.Equal(t, "+254700000001", admin.Phone)

	_, err = f.uc.CreateUser(ctx, &dto.CreateUserInput{FirstName: "No", LastName: "Email", Phone: "0700000002"})
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Users must have an email address", ve.Fields["email"])

	_, err = f.uc.CreateUser(ctx, &dto.CreateUserInput{
		FirstName: "Dup", LastName: "Phone", Email: "dup@shamba.test", Phone: "0700000001",
	})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "phone")

	users, count, err := f.uc.ListUsers(ctx, &dto.UserFilters{Search: "shamba", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, users, 1)
}

func TestPaymentMethods(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	res, err := f.uc.Register(ctx, registerInput())
	require.NoError(t, err)

	_, err = f.uc.AddPaymentMethod(ctx, &dto.PaymentMethodInput{UserID: res.User.ID, Name: "", MpesaPhoneNumber: "12"})
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 2)

	pm, err := f.uc.AddPaymentMethod(ctx, &dto.PaymentMethodInput{UserID: res.User.ID, Name: "Shop line", MpesaPhoneNumber: "0722111222"})
	require.NoError(t, err)
	assert.Equal(t, "+254722111222", pm.MpesaPhoneNumber)

	methods, err := f.uc.ListPaymentMethods(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Len(t, methods, 1)

	assert.ErrorIs(t, f.uc.DeletePaymentMethod(ctx, "someone-else", pm.ID), apperror.ErrPaymentMethodNotFound)
	require.NoError(t, f.uc.DeletePaymentMethod(ctx, res.User.ID, pm.ID))
	methods, err = f.uc.ListPaymentMethods(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Empty(t, methods)
}

func TestUploadProfilePicture(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	res, err := f.uc.Register(ctx, registerInput())
	require.NoError(t, err)

	u, err := f.uc.UploadProfilePicture(ctx, res.User.ID, "me.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	require.NotNil(t, u.ProfilePicture)
	assert.True(t, strings.HasPrefix(*u.ProfilePicture, "profile_pictures/"))

	stored, err := f.uc.GetUser(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ProfilePicture, stored.ProfilePicture)
}
