package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func TestGenerateToken(t *testing.T) {
	token, digest, key, err := GenerateToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Len(t, digest, 128)
	assert.Equal(t, token[:8], key)
	assert.Equal(t, digest, Digest(token))
}

func TestTokenFromRequest(t *testing.T) {
	tests := map[string]string{
		"Token abc":  "abc",
		"Bearer abc": "abc",
		"Basic abc":  "",
		"Token":      "",
		"":           "",
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, TokenFromRequest(r), header)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Mavuno#2024!", "jane@example.com", "Jane", "Doe"))
	assert.ErrorContains(t, ValidatePassword("short"), "too short")
	assert.ErrorContains(t, ValidatePassword("1234567890123"), "entirely numeric")
	assert.ErrorContains(t, ValidatePassword("password123"), "too common")
	assert.ErrorContains(t, ValidatePassword("wanjiku-farm-99", "wanjiku@example.com"), "too similar")
	assert.ErrorContains(t, ValidatePassword(strings.Repeat("Shamba#9", 11)), "too long")
	assert.NoError(t, ValidatePassword(strings.Repeat("Shamba#9", 9)))
}

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("Mavuno#2024!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "Mavuno#2024!"))
	assert.False(t, CheckPassword(h, "wrong"))
	assert.False(t, CheckPassword("", "anything"))

	_, err = HashPassword(strings.Repeat("x", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestResetTokens(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rt := NewResetTokens("secret", 30*time.Minute)
	rt.now = func() time.Time { return now }

	u := &model.User{BaseModel: model.BaseModel{ID: "u1"}, PasswordHash: "hash-1"}
	tok, err := rt.Generate(u)
	require.NoError(t, err)
	assert.NoError(t, rt.Verify(tok, u))

	other := &model.User{BaseModel: model.BaseModel{ID: "u2"}, PasswordHash: "hash-1"}
	assert.ErrorIs(t, rt.Verify(tok, other), ErrInvalidResetToken)

	changed := *u
	changed.PasswordHash = "hash-2"
	assert.ErrorIs(t, rt.Verify(tok, &changed), ErrInvalidResetToken)

	now = now.Add(31 * time.Minute)
	assert.ErrorIs(t, rt.Verify(tok, u), ErrInvalidResetToken)

	assert.ErrorIs(t, rt.Verify("garbage", u), ErrInvalidResetToken)
}

func TestUIDRoundTrip(t *testing.T) {
	id, err := DecodeUID(EncodeUID("3f1c-uuid"))
	require.NoError(t, err)
	assert.Equal(t, "3f1c-uuid", id)

	_, err = DecodeUID("%%%")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	staff := &model.User{BaseModel: model.BaseModel{ID: "s1"}, IsStaff: true, IsActive: true}
	member := &model.User{BaseModel: model.BaseModel{ID: "m1"}, IsActive: true}

	a := new(mockAuthenticator)
	a.On("Authenticate", mock.Anything, "stafftoken-0000").Return(staff, nil)
	a.On("Authenticate", mock.Anything, "membertoken-000").Return(member, nil)
	a.On("Authenticate", mock.Anything, "bad").Return(nil, apperror.ErrInvalidToken)

	mw := NewMiddleware(a, logger.NewNop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-User", GetUserID(r.Context()))
		w.Header().Set("X-Token-Key", TokenKeyFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		h      http.Handler
		header string
		status int
		user   string
	}{
		{"public anonymous", mw.Authenticate(ok), "", http.StatusOK, ""},
		{"public with token", mw.Authenticate(ok), "Token membertoken-000", http.StatusOK, "m1"},
		{"bad token rejected", mw.Authenticate(ok), "Token bad", http.StatusUnauthorized, ""},
		{"auth required anonymous", mw.Authenticate(mw.RequireAuth(ok)), "", http.StatusUnauthorized, ""},
		{"staff route member", mw.Authenticate(mw.RequireStaff(ok)), "Token membertoken-000", http.StatusForbidden, ""},
		{"staff route staff", mw.Authenticate(mw.RequireStaff(ok)), "Token stafftoken-0000", http.StatusOK, "s1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, rec.Header().Get("X-User"))
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token membertoken-000")
	rec := httptest.NewRecorder()
	mw.Authenticate(ok).ServeHTTP(rec, req)
	assert.Equal(t, "memberto", rec.Header().Get("X-Token-Key"))
}

func TestCanModify(t *testing.T) {
	owner := &model.User{BaseModel: model.BaseModel{ID: "o1"}}
	staff := &model.User{BaseModel: model.BaseModel{ID: "s1"}, IsStaff: true}
	other := &model.User{BaseModel: model.BaseModel{ID: "x1"}}

	assert.True(t, CanModify(WithUser(context.Background(), owner, ""), "o1"))
	assert.True(t, CanModify(WithUser(context.Background(), staff, ""), "o1"))
	assert.False(t, CanModify(WithUser(context.Background(), other, ""), "o1"))
	assert.False(t, CanModify(context.Background(), "o1"))
}
