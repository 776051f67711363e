package dto

import "github.com/agriconnectke/marketplace-service/internal/pkg/storage"

type CreateMailInput struct {
	SenderID    string
	Kind        string
	Recipient   string
	Audience    string
	Subject     string
	Message     string
	SendNow     bool
	Attachments []*storage.Upload
}
