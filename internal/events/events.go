// Package events defines the domain events published by the use cases and
// the publishers that carry them.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	UserRegistered         = "user.registered"
	PasswordResetRequested = "user.password_reset_requested"
	PasswordChanged        = "user.password_changed"
	PaymentCompleted       = "payment.completed"
)

type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func New(eventType string, payload interface{}) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type UserRegisteredPayload struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

type PasswordResetRequestedPayload struct {
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	FirstName        string `json:"first_name"`
	ResetLink        string `json:"reset_link"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

type PasswordChangedPayload struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

type PaymentCompletedPayload struct {
	PaymentID     string `json:"payment_id"`
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	InvoiceNumber string `json:"invoice_number"`
	ReceiptNumber string `json:"receipt_number"`
	Amount        string `json:"amount"`
	PackageName   string `json:"package_name,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
}

// Publisher emits domain events. key orders events of one aggregate.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
}

// Handler consumes one event.
type Handler interface {
	Handle(ctx context.Context, e *Event) error
}
