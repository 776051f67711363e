package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCode(t *testing.T) {
	v := NewValidation()
	v.Add("email", "required")

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"domain", ErrCategoryNotFound, codes.NotFound},
		{"wrapped domain", fmt.Errorf("load: %w", ErrPermissionDenied), codes.PermissionDenied},
		{"validation", v, codes.InvalidArgument},
		{"grpc status", status.Error(codes.Unavailable, "down"), codes.Unavailable},
		{"plain", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestStatusFromDomainError(t *testing.T) {
	s, ok := status.FromError(ErrMailAlreadySent)
	assert.True(t, ok)
	assert.Equal(t, codes.FailedPrecondition, s.Code())
	assert.Equal(t, "Mail has already been sent", s.Message())
}

func TestValidationError(t *testing.T) {
	v := NewValidation()
	assert.NoError(t, v.Err())

	v.Add("phone", "invalid")
	v.Add("phone", "ignored")
	v.Add("email", "required")

	err := v.Err()
	assert.Error(t, err)
	assert.Equal(t, "invalid", v.Fields["phone"])
	assert.Equal(t, "validation failed: email: required; phone: invalid", err.Error())
}

func TestIsMatchesByID(t *testing.T) {
	copyErr := New(codes.NotFound, "category_not_found", "different text")
	assert.True(t, errors.Is(copyErr, ErrCategoryNotFound))
	assert.False(t, errors.Is(ErrUserNotFound, ErrCategoryNotFound))
}
