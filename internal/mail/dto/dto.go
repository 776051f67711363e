package dto

import (
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
)

// Delivery is the outcome of creating or sending a mail. Attempted is false
// when the mail was only stored.
type Delivery struct {
	Mail             *model.Mail
	Attempted        bool
	FailedRecipients []string
}

type MailSummary struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Recipient  *string   `json:"recipient,omitempty"`
	Recipients *string   `json:"recipients,omitempty"`
	Subject    string    `json:"subject"`
	Sent       bool      `json:"sent"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewMailSummary(m *model.Mail) MailSummary {
	return MailSummary{
		ID:         m.ID,
		Type:       m.Kind,
		Recipient:  m.Recipient,
		Recipients: m.Audience,
		Subject:    m.Subject,
		Sent:       m.Sent,
		CreatedAt:  m.CreatedAt,
	}
}

type AttachmentResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

type MailResponse struct {
	MailSummary
	Message     string               `json:"message"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Attachments []AttachmentResponse `json:"attachments"`
}

func NewMailResponse(m *model.Mail, urlFor func(string) string) MailResponse {
	resp := MailResponse{
		MailSummary: NewMailSummary(m),
		Message:     m.Message,
		UpdatedAt:   m.UpdatedAt,
		Attachments: make([]AttachmentResponse, len(m.Attachments)),
	}
	for i, a := range m.Attachments {
		resp.Attachments[i] = AttachmentResponse{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
			URL:         urlFor(a.FileKey),
		}
	}
	return resp
}

type DeliveryResponse struct {
	ID               string   `json:"id"`
	Message          string   `json:"message"`
	FailedRecipients []string `json:"failed_recipients,omitempty"`
}

type FieldHelp struct {
	MailType    string `json:"mail_type"`
	Recipient   string `json:"recipient,omitempty"`
	Recipients  string `json:"recipients,omitempty"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	Attachments string `json:"attachments"`
	SendNow     string `json:"send_now"`
}

type Example struct {
	MailType    string   `json:"mail_type"`
	Recipient   string   `json:"recipient,omitempty"`
	Recipients  string   `json:"recipients,omitempty"`
	Subject     string   `json:"subject"`
	Message     string   `json:"message"`
	Attachments []string `json:"attachments"`
	SendNow     bool     `json:"send_now"`
}
