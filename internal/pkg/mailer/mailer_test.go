package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakySender) Send(_ context.Context, _ *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp: connection refused")
	}
	return nil
}

func TestRetryingSenderRecovers(t *testing.T) {
	next := &flakySender{failures: 2}
	s := NewRetryingSender(next, 3, time.Millisecond, logger.NewNop())

	err := s.Send(context.Background(), &Message{To: []string{"a@example.com"}, Subject: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestRetryingSenderGivesUp(t *testing.T) {
	next := &flakySender{failures: 10}
	s := NewRetryingSender(next, 3, time.Millisecond, logger.NewNop())

	err := s.Send(context.Background(), &Message{To: []string{"a@example.com"}})
	require.Error(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestRetryingSenderNoRecipients(t *testing.T) {
	next := &flakySender{}
	s := NewRetryingSender(next, 3, time.Millisecond, logger.NewNop())

	err := s.Send(context.Background(), &Message{})
	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Equal(t, 0, next.calls)
}

func TestRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	htmlBody, text, err := r.Render(TemplatePasswordReset, map[string]interface{}{
		"SiteName":         "Shamba Market",
		"FirstName":        "Wanjiru",
		"ResetLink":        "https://app.example.com/accounts/reset-password/abc/tok/",
		"ExpiresInMinutes": 30,
	})
	require.NoError(t, err)
	assert.Contains(t, htmlBody, `<a href="https://app.example.com/accounts/reset-password/abc/tok/">`)
	assert.NotContains(t, text, "<")
	assert.Contains(t, text, "Hello Wanjiru,")
	assert.Contains(t, text, "expires in 30 minutes")
	assert.NotContains(t, text, "\n\n\n")
}

func TestRendererEscapesUserInput(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	htmlBody, text, err := r.Render(TemplateMessage, map[string]interface{}{
		"SiteName": "Shamba Market",
		"Body":     "Prices <b>up</b> & rising",
	})
	require.NoError(t, err)
	assert.Contains(t, htmlBody, "&lt;b&gt;up&lt;/b&gt;")
	assert.Contains(t, text, "Prices <b>up</b> & rising")
}
