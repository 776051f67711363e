package model

import "time"

const (
	MailIndividual = "individual"
	MailBulk       = "bulk"
)

const (
	AudienceStaff   = "staff"
	AudienceClients = "clients"
	AudienceAll     = "all"
)

type Mail struct {
	BaseModel
	Kind        string           `db:"kind"`
	SenderID    *string          `db:"sender_id"`
	Recipient   *string          `db:"recipient"`
	Audience    *string          `db:"audience"`
	Subject     string           `db:"subject"`
	Message     string           `db:"message"`
	Sent        bool             `db:"sent"`
	Attachments []MailAttachment `db:"-"`
}

type MailAttachment struct {
	ID          string    `db:"id"`
	MailID      string    `db:"mail_id"`
	FileKey     string    `db:"file_key"`
	Filename    string    `db:"filename"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size"`
	UploadedAt  time.Time `db:"uploaded_at"`
}
