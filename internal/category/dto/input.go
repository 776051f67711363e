package dto

import "github.com/agriconnectke/marketplace-service/internal/pkg/storage"

type CreateCategoryInput struct {
	Name           string
	Classification string
	ParentID       *string
	Image          *storage.Upload
}

// UpdateCategoryInput is a partial update. ParentSet distinguishes
// "clear the parent" from "leave it alone".
type UpdateCategoryInput struct {
	ID             string
	Name           *string
	Classification *string
	ParentSet      bool
	ParentID       *string
	Image          *storage.Upload
	ClearImage     bool
}

type RelationInput struct {
	ID       string `json:"-"`
	ParentID string `json:"parent"`
	ChildID  string `json:"child"`
}
